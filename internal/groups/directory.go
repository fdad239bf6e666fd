// Package groups resolves users to the fanout groups of their dialogs.
package groups

import (
	"context"
	"strconv"

	"github.com/samber/lo"
	"go.uber.org/zap"

	"private-chat/internal/storage"
)

// DialogSource is the part of storage used to compute group membership
type DialogSource interface {
	DialogsForUser(ctx context.Context, user int64) ([]storage.Dialog, error)
}

// Directory computes group names from dialogs stored in DialogSource.
// Nothing is cached: dialogs created during a connection are seen on the next call.
type Directory struct {
	logger *zap.SugaredLogger
	source DialogSource
}

func NewDirectory(logger *zap.SugaredLogger, source DialogSource) *Directory {
	return &Directory{logger: logger, source: source}
}

// GroupName returns the name of the group owned by user
func GroupName(user int64) string {
	return strconv.FormatInt(user, 10)
}

// GroupsFor returns the set of group names of every dialog member user takes part in.
// The user's own group is part of the result for each non-empty set.
func (d *Directory) GroupsFor(ctx context.Context, user int64) ([]string, error) {
	dialogs, err := d.source.DialogsForUser(ctx, user)
	if err != nil {
		return nil, err
	}

	members := lo.Uniq(lo.FlatMap(dialogs, func(dlg storage.Dialog, _ int) []int64 {
		return []int64{dlg.User1, dlg.User2}
	}))

	return lo.Map(members, func(id int64, _ int) string { return GroupName(id) }), nil
}

// Targets returns groups that must be notified about user's presence or typing, i.e. GroupsFor without user's own group
func (d *Directory) Targets(ctx context.Context, user int64) ([]string, error) {
	groups, err := d.GroupsFor(ctx, user)
	if err != nil {
		return nil, err
	}

	targets := lo.Without(groups, GroupName(user))
	d.logger.Debugf("User %d has %d dialog groups", user, len(targets))

	return targets, nil
}
