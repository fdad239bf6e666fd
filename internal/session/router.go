package session

import (
	"context"
	"errors"
	"fmt"
	"path"
	"strconv"

	"github.com/google/uuid"

	"private-chat/internal/groups"
	"private-chat/internal/metrics"
	"private-chat/internal/protocol"
	"private-chat/internal/storage"
)

// handle parses one inbound frame and executes the command it carries.
// Protocol and referential failures are reported to this connection only,
// storage failures are logged and abort the command silently.
// ctx is cancelled when the peer goes away: storage calls run detached from it
// so that a dispatched command completes, publishes check it and are skipped.
func (s *session) handle(ctx context.Context, frame []byte) {
	cmd, perr := s.h.parser.Parse(frame)
	if perr != nil {
		metrics.FramesReceived.WithLabelValues("invalid").Inc()
		s.fail(perr)
		return
	}
	metrics.FramesReceived.WithLabelValues(cmd.Type().String()).Inc()
	s.logger.Debugf("Received %s", cmd.Type())

	var err error
	switch c := cmd.(type) {
	case protocol.IgnoredCommand:
		s.logger.Debugf("Ignoring message %s", c.Kind)
	case protocol.TypingCommand:
		if c.Stopped {
			s.presence(ctx, protocol.TypingStopped)
		} else {
			s.presence(ctx, protocol.IsTyping)
		}
	case protocol.TextMessageCommand:
		perr, err = s.textMessage(ctx, c)
	case protocol.FileMessageCommand:
		perr, err = s.fileMessage(ctx, c)
	case protocol.MessageReadCommand:
		perr, err = s.messageRead(ctx, c)
	default:
		err = fmt.Errorf("no route for %T", cmd)
	}

	if err != nil {
		s.logger.Errorf("Cannot process %s: %v", cmd.Type(), err)
		return
	}
	if perr != nil {
		s.fail(perr)
	}
}

func (s *session) fail(e *protocol.Error) {
	metrics.ErrorsSent.WithLabelValues(e.Type.String()).Inc()
	s.logger.Infof("Sending error %s", e)
	s.reply(e.Event())
}

func userNotExist(pk string) *protocol.Error {
	return protocol.Errorf(protocol.InvalidUserPK, fmt.Sprintf("User with pk %s does not exist", pk))
}

// resolveUser returns the user behind pk.
// Only the group name form of an id is accepted ("+2" or "02" would address another group than user 2),
// any other pk resolves like a missing user.
func (s *session) resolveUser(ctx context.Context, pk string) (storage.User, *protocol.Error, error) {
	id, err := strconv.ParseInt(pk, 10, 64)
	if err != nil || groups.GroupName(id) != pk {
		return storage.User{}, userNotExist(pk), nil
	}

	u, err := s.h.store.UserByID(ctx, id)
	if err != nil {
		if errors.Is(err, storage.ErrUserNotExist) {
			return storage.User{}, userNotExist(pk), nil
		}
		return storage.User{}, nil, fmt.Errorf("resolve user %s: %w", pk, err)
	}
	s.logger.Debugf("User %s exists", pk)

	return u, nil, nil
}

// afterSave correlates random id with stored id for both parties
func (s *session) afterSave(ctx context.Context, m storage.Message, randomID int64) {
	s.logger.Infof("Message with id %d saved, firing events to %d & %s", m.ID, m.Recipient, s.group)
	ev := protocol.MessageIDCreatedEvent{RandomID: randomID, DBID: m.ID}
	s.publish(ctx, groups.GroupName(m.Recipient), ev)
	s.publish(ctx, s.group, ev)
}

// unreadCount publishes the number of unread messages from sender to recipient into group
func (s *session) unreadCount(ctx context.Context, group string, sender, recipient int64) error {
	n, err := s.h.store.UnreadCount(context.WithoutCancel(ctx), sender, recipient)
	if err != nil {
		return fmt.Errorf("unread count: %w", err)
	}
	s.publish(ctx, group, protocol.NewUnreadCountEvent{Sender: groups.GroupName(sender), UnreadCount: n})
	return nil
}

func (s *session) textMessage(ctx context.Context, c protocol.TextMessageCommand) (*protocol.Error, error) {
	sctx := context.WithoutCancel(ctx)

	s.logger.Infof("Validation passed, sending text message from %s to %s", s.group, c.UserPK)
	s.publish(ctx, c.UserPK, protocol.NewTextMessageEvent{
		RandomID:       c.RandomID,
		Text:           c.Text,
		Sender:         s.group,
		Receiver:       c.UserPK,
		SenderUsername: s.user.Username,
	})

	recipient, perr, err := s.resolveUser(sctx, c.UserPK)
	if perr != nil || err != nil {
		return perr, err
	}

	m, err := s.h.store.CreateTextMessage(sctx, c.Text, s.user.UserID, recipient.ID)
	if err != nil {
		if errors.Is(err, storage.ErrUserNotExist) {
			return userNotExist(c.UserPK), nil
		}
		return nil, fmt.Errorf("save text message: %w", err)
	}

	s.afterSave(ctx, m, c.RandomID)
	return nil, s.unreadCount(ctx, c.UserPK, s.user.UserID, recipient.ID)
}

func (s *session) fileMessage(ctx context.Context, c protocol.FileMessageCommand) (*protocol.Error, error) {
	sctx := context.WithoutCancel(ctx)
	fileNotExist := protocol.Errorf(protocol.FileDoesNotExist, fmt.Sprintf("File with id %s does not exist", c.FileID))

	fid, err := uuid.Parse(c.FileID)
	if err != nil {
		return fileNotExist, nil
	}
	file, err := s.h.store.FileByID(sctx, fid)
	if err != nil {
		if errors.Is(err, storage.ErrFileNotExist) {
			return fileNotExist, nil
		}
		return nil, fmt.Errorf("resolve file %s: %w", c.FileID, err)
	}

	recipient, perr, err := s.resolveUser(sctx, c.UserPK)
	if perr != nil || err != nil {
		return perr, err
	}

	s.logger.Infof("Will save file message from %s to %s", s.group, c.UserPK)
	m, err := s.h.store.CreateFileMessage(sctx, file, s.user.UserID, recipient.ID)
	if err != nil {
		switch {
		case errors.Is(err, storage.ErrFileNotExist):
			return fileNotExist, nil
		case errors.Is(err, storage.ErrUserNotExist):
			return userNotExist(c.UserPK), nil
		}
		return nil, fmt.Errorf("save file message: %w", err)
	}

	s.afterSave(ctx, m, c.RandomID)

	s.publish(ctx, c.UserPK, protocol.NewFileMessageEvent{
		DBID: m.ID,
		File: protocol.File{
			ID:   file.ID.String(),
			URL:  s.h.cfg.mediaURL + file.Path,
			Size: file.Size,
			Name: path.Base(file.Path),
		},
		Sender:         s.group,
		Receiver:       c.UserPK,
		SenderUsername: s.user.Username,
	})

	return nil, s.unreadCount(ctx, c.UserPK, s.user.UserID, recipient.ID)
}

func (s *session) messageRead(ctx context.Context, c protocol.MessageReadCommand) (*protocol.Error, error) {
	sctx := context.WithoutCancel(ctx)

	if c.UserPK == s.group {
		return protocol.Errorf(protocol.InvalidUserPK, "'user_pk' can't be self  (you can't mark self messages as read)"), nil
	}

	s.logger.Infof("Validation passed, marking msg from %s to %s with id %d as read", c.UserPK, s.group, c.MessageID)
	s.publish(ctx, c.UserPK, protocol.MessageReadEvent{
		MessageID: c.MessageID,
		Sender:    c.UserPK,
		Receiver:  s.group,
	})

	sender, perr, err := s.resolveUser(sctx, c.UserPK)
	if perr != nil || err != nil {
		return perr, err
	}

	m, err := s.h.store.MessageByID(sctx, c.MessageID)
	if err != nil {
		if errors.Is(err, storage.ErrMessageNotExist) {
			return protocol.Errorf(protocol.InvalidMessageReadID, fmt.Sprintf("Message with id %d does not exist", c.MessageID)), nil
		}
		return nil, fmt.Errorf("resolve message %d: %w", c.MessageID, err)
	}
	if m.Sender != sender.ID || m.Recipient != s.user.UserID {
		return protocol.Errorf(protocol.InvalidMessageReadID,
			fmt.Sprintf("Message with id %d was not sent by %s to %s", c.MessageID, c.UserPK, s.group)), nil
	}

	if err := s.h.store.MarkMessageRead(sctx, m.ID); err != nil {
		return nil, fmt.Errorf("mark message %d read: %w", m.ID, err)
	}

	return nil, s.unreadCount(ctx, s.group, sender.ID, s.user.UserID)
}
