package service

import (
	"context"
	"testing"

	"rewardpoints/internal/apperr"
	"rewardpoints/internal/config"
	"rewardpoints/internal/infrastructure/lock"
	"rewardpoints/internal/model"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSeedAndListRewards(t *testing.T) {
	f := newFixture(t, lock.NewLocalLocker())
	ctx := context.Background()

	require.NoError(t, f.catalog.SeedRewards(ctx, []config.RewardSeed{
		{Name: "Movie night", Cost: 80},
		{Name: "Extra screen time", Cost: 30},
		{Name: "Ice cream trip", Cost: 50},
	}))
	require.NoError(t, f.catalog.SeedRewards(ctx, []config.RewardSeed{
		{Name: "Movie night", Cost: 90, Description: "Pick the movie"},
	}), "seeding again updates by name")

	rewards, err := f.catalog.ListRewards(ctx)
	require.NoError(t, err)
	require.Len(t, rewards, 3)
	assert.Equal(t, "Extra screen time", rewards[0].Name)
	assert.Equal(t, "Movie night", rewards[2].Name)
	assert.Equal(t, int64(90), rewards[2].Cost)
	assert.Equal(t, "Pick the movie", rewards[2].Description)

	got, err := f.catalog.GetReward(ctx, rewards[0].ID)
	require.NoError(t, err)
	assert.Equal(t, rewards[0].Name, got.Name)

	_, err = f.catalog.GetReward(ctx, 9999)
	assert.ErrorIs(t, err, apperr.ErrNotFound)
}

func TestSeedRewardsValidation(t *testing.T) {
	f := newFixture(t, lock.NewLocalLocker())
	ctx := context.Background()

	assert.ErrorIs(t, f.catalog.SeedRewards(ctx, []config.RewardSeed{{Name: "", Cost: 1}}), apperr.ErrValidation)
	assert.ErrorIs(t, f.catalog.SeedRewards(ctx, []config.RewardSeed{{Name: "Debt", Cost: -1}}), apperr.ErrValidation)
	assert.ErrorIs(t, f.catalog.SeedRewards(ctx, []config.RewardSeed{{Name: "Pony", Cost: model.MaxPoints + 1}}), apperr.ErrValidation)
}
