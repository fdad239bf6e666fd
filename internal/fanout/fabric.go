// Package fanout delivers events published to a group to every connection subscribed to it.
package fanout

import (
	"context"
	"errors"

	"private-chat/internal/protocol"
)

// ErrClosed is returned by fabric operations after Close
var ErrClosed = errors.New("fanout fabric is closed")

// Subscriber receives encoded frames published to groups it is subscribed to.
// Deliver must not block.
type Subscriber interface {
	ID() string
	Deliver(frame []byte)
}

// Fabric is a group addressed publish/subscribe bus.
// One subscriber may be subscribed to several groups and one group may have any number of subscribers.
type Fabric interface {
	Subscribe(ctx context.Context, group string, sub Subscriber) error
	Unsubscribe(ctx context.Context, group string, sub Subscriber) error
	Publish(ctx context.Context, group string, ev protocol.Event) error
	Close() error
}
