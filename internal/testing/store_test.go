package testing

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"private-chat/internal/storage"
)

func TestStoreCreatesDialogOnce(t *testing.T) {
	s := NewStore()
	u1, u2 := s.AddUser(), s.AddUser()

	_, err := s.CreateTextMessage(context.Background(), "hi", u1.ID, u2.ID)
	require.NoError(t, err)
	_, err = s.CreateTextMessage(context.Background(), "hello", u2.ID, u1.ID)
	require.NoError(t, err)

	dialogs, err := s.DialogsForUser(context.Background(), u1.ID)
	require.NoError(t, err)
	require.Len(t, dialogs, 1)
}

func TestStoreMarkReadIdempotent(t *testing.T) {
	s := NewStore()
	u1, u2 := s.AddUser(), s.AddUser()

	m, err := s.CreateTextMessage(context.Background(), "hi", u1.ID, u2.ID)
	require.NoError(t, err)

	n, err := s.UnreadCount(context.Background(), u1.ID, u2.ID)
	require.NoError(t, err)
	require.Equal(t, 1, n)

	require.NoError(t, s.MarkMessageRead(context.Background(), m.ID))
	require.NoError(t, s.MarkMessageRead(context.Background(), m.ID))

	stored, ok := s.Message(m.ID)
	require.True(t, ok)
	require.True(t, stored.Read)

	n, err = s.UnreadCount(context.Background(), u1.ID, u2.ID)
	require.NoError(t, err)
	require.Zero(t, n)
}

func TestStoreUnknownRecipient(t *testing.T) {
	s := NewStore()
	u1 := s.AddUser()

	_, err := s.CreateTextMessage(context.Background(), "hi", u1.ID, 100)
	require.Equal(t, storage.ErrUserNotExist, err)
}
