package service

import (
	"context"
	"errors"
	"strings"

	"rewardpoints/internal/apperr"
	"rewardpoints/internal/config"
	"rewardpoints/internal/model"
	"rewardpoints/internal/repository"

	log "github.com/sirupsen/logrus"
	"gorm.io/gorm"
)

// CatalogService is read-only for API callers. Rewards are seeded from
// configuration at startup.
type CatalogService struct {
	rewardRepo *repository.RewardRepository
}

func NewCatalogService(db *gorm.DB) *CatalogService {
	return &CatalogService{rewardRepo: repository.NewRewardRepository(db)}
}

func (s *CatalogService) ListRewards(ctx context.Context) ([]*model.Reward, error) {
	rewards, err := s.rewardRepo.List(ctx)
	if err != nil {
		return nil, apperr.Internal("list rewards", err)
	}
	return rewards, nil
}

func (s *CatalogService) GetReward(ctx context.Context, id int64) (*model.Reward, error) {
	reward, err := s.rewardRepo.GetByID(ctx, nil, id)
	if err != nil {
		if errors.Is(err, repository.ErrRewardNotFound) {
			return nil, apperr.NotFound("reward not found")
		}
		return nil, apperr.Internal("load reward", err)
	}
	return reward, nil
}

// SeedRewards upserts the given rewards by name.
func (s *CatalogService) SeedRewards(ctx context.Context, seeds []config.RewardSeed) error {
	for _, seed := range seeds {
		name := strings.TrimSpace(seed.Name)
		if name == "" {
			return apperr.Validation("reward name is required")
		}
		if seed.Cost < 0 {
			return apperr.Validation("reward cost must not be negative: " + name)
		}
		if seed.Cost > model.MaxPoints {
			return apperr.Validation("reward cost is too large: " + name)
		}
		reward := &model.Reward{Name: name, Cost: seed.Cost, Description: seed.Description}
		if err := s.rewardRepo.Upsert(ctx, reward); err != nil {
			return apperr.Internal("seed reward "+name, err)
		}
	}
	log.WithField("count", len(seeds)).Info("reward catalog seeded")
	return nil
}
