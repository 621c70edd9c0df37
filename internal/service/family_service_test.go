package service

import (
	"context"
	"testing"

	"rewardpoints/internal/apperr"
	"rewardpoints/internal/infrastructure/lock"
	"rewardpoints/internal/model"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLinkAndListChildren(t *testing.T) {
	f := newFixture(t, lock.NewLocalLocker())
	ctx := context.Background()
	parent, kid1 := f.linkedPair(t, "mom", "anna")
	f.register(t, "ben", model.RoleChild)
	f.fund(t, parent, kid1, 15)

	linked, err := f.family.LinkChild(ctx, parent, "ben")
	require.NoError(t, err)
	assert.Equal(t, "ben", linked.Username)

	_, err = f.family.LinkChild(ctx, parent, "ben")
	require.NoError(t, err, "linking twice is a no-op")

	children, err := f.family.ListChildren(ctx, parent)
	require.NoError(t, err)
	require.Len(t, children, 2)
	assert.Equal(t, "anna", children[0].Username)
	assert.Equal(t, int64(15), children[0].Balance)
	assert.Equal(t, "ben", children[1].Username)

	own, err := f.family.ListChildren(ctx, kid1)
	require.NoError(t, err)
	require.Len(t, own, 1)
	assert.Equal(t, kid1.UserID, own[0].ID)
}

func TestLinkChildErrors(t *testing.T) {
	f := newFixture(t, lock.NewLocalLocker())
	ctx := context.Background()
	parent, child := f.linkedPair(t, "mom", "kid")
	f.register(t, "dad", model.RoleParent)

	_, err := f.family.LinkChild(ctx, parent, "nobody")
	assert.ErrorIs(t, err, apperr.ErrNotFound)

	_, err = f.family.LinkChild(ctx, parent, "dad")
	assert.ErrorIs(t, err, apperr.ErrValidation)

	_, err = f.family.LinkChild(ctx, parent, "")
	assert.ErrorIs(t, err, apperr.ErrValidation)

	_, err = f.family.LinkChild(ctx, child, "kid")
	assert.ErrorIs(t, err, apperr.ErrAuthorization)
}

func TestListParents(t *testing.T) {
	f := newFixture(t, lock.NewLocalLocker())
	ctx := context.Background()
	mom, child := f.linkedPair(t, "mom", "kid")
	dad := f.register(t, "dad", model.RoleParent)
	f.register(t, "neighbour", model.RoleParent)
	_, err := f.family.LinkChild(ctx, dad, "kid")
	require.NoError(t, err)

	parents, err := f.family.ListParents(ctx, mom)
	require.NoError(t, err)
	names := make([]string, 0, len(parents))
	for _, p := range parents {
		names = append(names, p.Username)
	}
	assert.Equal(t, []string{"dad", "mom"}, names)

	_, err = f.family.ListParents(ctx, child)
	assert.ErrorIs(t, err, apperr.ErrAuthorization)
}
