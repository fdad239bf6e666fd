package session

import (
	"context"
	"time"

	"github.com/google/uuid"

	"private-chat/internal/metrics"
	"private-chat/internal/pool"
	"private-chat/internal/storage"
)

// Storage is the persistence collaborator used by sessions
type Storage interface {
	DialogsForUser(ctx context.Context, user int64) ([]storage.Dialog, error)
	UserByID(ctx context.Context, id int64) (storage.User, error)
	FileByID(ctx context.Context, id uuid.UUID) (storage.UploadedFile, error)
	CreateTextMessage(ctx context.Context, text string, from, to int64) (storage.Message, error)
	CreateFileMessage(ctx context.Context, file storage.UploadedFile, from, to int64) (storage.Message, error)
	MessageByID(ctx context.Context, id int64) (storage.Message, error)
	MarkMessageRead(ctx context.Context, id int64) error
	UnreadCount(ctx context.Context, sender, recipient int64) (int, error)
}

// offloaded runs every Storage call on the shared pool
type offloaded struct {
	next Storage
	pool *pool.Pool
}

func run[T any](ctx context.Context, o *offloaded, op string, fn func(ctx context.Context) (T, error)) (T, error) {
	start := time.Now()
	defer func() {
		metrics.StorageDuration.WithLabelValues(op).Observe(time.Since(start).Seconds())
	}()
	return pool.Do(ctx, o.pool, fn)
}

func (o *offloaded) DialogsForUser(ctx context.Context, user int64) ([]storage.Dialog, error) {
	return run(ctx, o, "dialogs_for_user", func(ctx context.Context) ([]storage.Dialog, error) {
		return o.next.DialogsForUser(ctx, user)
	})
}

func (o *offloaded) UserByID(ctx context.Context, id int64) (storage.User, error) {
	return run(ctx, o, "user_by_id", func(ctx context.Context) (storage.User, error) {
		return o.next.UserByID(ctx, id)
	})
}

func (o *offloaded) FileByID(ctx context.Context, id uuid.UUID) (storage.UploadedFile, error) {
	return run(ctx, o, "file_by_id", func(ctx context.Context) (storage.UploadedFile, error) {
		return o.next.FileByID(ctx, id)
	})
}

func (o *offloaded) CreateTextMessage(ctx context.Context, text string, from, to int64) (storage.Message, error) {
	return run(ctx, o, "create_text_message", func(ctx context.Context) (storage.Message, error) {
		return o.next.CreateTextMessage(ctx, text, from, to)
	})
}

func (o *offloaded) CreateFileMessage(ctx context.Context, file storage.UploadedFile, from, to int64) (storage.Message, error) {
	return run(ctx, o, "create_file_message", func(ctx context.Context) (storage.Message, error) {
		return o.next.CreateFileMessage(ctx, file, from, to)
	})
}

func (o *offloaded) MessageByID(ctx context.Context, id int64) (storage.Message, error) {
	return run(ctx, o, "message_by_id", func(ctx context.Context) (storage.Message, error) {
		return o.next.MessageByID(ctx, id)
	})
}

func (o *offloaded) MarkMessageRead(ctx context.Context, id int64) error {
	_, err := run(ctx, o, "mark_message_read", func(ctx context.Context) (struct{}, error) {
		return struct{}{}, o.next.MarkMessageRead(ctx, id)
	})
	return err
}

func (o *offloaded) UnreadCount(ctx context.Context, sender, recipient int64) (int, error) {
	return run(ctx, o, "unread_count", func(ctx context.Context) (int, error) {
		return o.next.UnreadCount(ctx, sender, recipient)
	})
}
