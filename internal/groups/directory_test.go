package groups

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	mytesting "private-chat/internal/testing"
)

func bootstrapDirectory(t *testing.T) (*Directory, *mytesting.Store) {
	logger, err := zap.NewDevelopment()
	require.NoError(t, err)
	store := mytesting.NewStore()
	return NewDirectory(logger.Sugar(), store), store
}

func TestGroupsFor(t *testing.T) {
	d, store := bootstrapDirectory(t)
	u1, u2, u3, u4 := store.AddUser(), store.AddUser(), store.AddUser(), store.AddUser()
	store.AddDialog(u1.ID, u2.ID)
	store.AddDialog(u3.ID, u1.ID)
	store.AddDialog(u2.ID, u4.ID)

	groups, err := d.GroupsFor(context.Background(), u1.ID)
	require.NoError(t, err)
	require.ElementsMatch(t, []string{GroupName(u1.ID), GroupName(u2.ID), GroupName(u3.ID)}, groups)

	groups, err = d.GroupsFor(context.Background(), u2.ID)
	require.NoError(t, err)
	require.ElementsMatch(t, []string{GroupName(u1.ID), GroupName(u2.ID), GroupName(u4.ID)}, groups)
}

func TestGroupsForNoDialogs(t *testing.T) {
	d, store := bootstrapDirectory(t)
	u := store.AddUser()

	groups, err := d.GroupsFor(context.Background(), u.ID)
	require.NoError(t, err)
	require.Empty(t, groups)
}

func TestTargetsExcludeSelf(t *testing.T) {
	d, store := bootstrapDirectory(t)
	u1, u2, u3 := store.AddUser(), store.AddUser(), store.AddUser()
	store.AddDialog(u1.ID, u2.ID)
	store.AddDialog(u1.ID, u3.ID)
	// dialog with self
	store.AddDialog(u1.ID, u1.ID)

	targets, err := d.Targets(context.Background(), u1.ID)
	require.NoError(t, err)
	require.ElementsMatch(t, []string{GroupName(u2.ID), GroupName(u3.ID)}, targets)
	require.NotContains(t, targets, GroupName(u1.ID))
}

func TestGroupsForIsNotCached(t *testing.T) {
	d, store := bootstrapDirectory(t)
	u1, u2 := store.AddUser(), store.AddUser()

	targets, err := d.Targets(context.Background(), u1.ID)
	require.NoError(t, err)
	require.Empty(t, targets)

	_, err = store.CreateTextMessage(context.Background(), "hi", u1.ID, u2.ID)
	require.NoError(t, err)

	targets, err = d.Targets(context.Background(), u1.ID)
	require.NoError(t, err)
	require.Equal(t, []string{GroupName(u2.ID)}, targets)
	require.Equal(t, 2, store.DialogQueries)
}

func TestGroupsForStorageError(t *testing.T) {
	d, store := bootstrapDirectory(t)
	u := store.AddUser()
	store.Err = errors.New("connection refused")

	_, err := d.Targets(context.Background(), u.ID)
	require.Equal(t, store.Err, err)
}
