package repository

import (
	"context"
	"errors"

	"rewardpoints/internal/model"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

var ErrRewardNotFound = errors.New("reward not found")

type RewardRepository struct {
	db *gorm.DB
}

func NewRewardRepository(db *gorm.DB) *RewardRepository {
	return &RewardRepository{db: db}
}

func (r *RewardRepository) GetByID(ctx context.Context, tx *gorm.DB, id int64) (*model.Reward, error) {
	if tx == nil {
		tx = r.db
	}
	var reward model.Reward
	err := tx.WithContext(ctx).First(&reward, id).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrRewardNotFound
		}
		return nil, err
	}
	return &reward, nil
}

func (r *RewardRepository) List(ctx context.Context) ([]*model.Reward, error) {
	var rewards []*model.Reward
	err := r.db.WithContext(ctx).Order("cost ASC").Order("name ASC").Find(&rewards).Error
	return rewards, err
}

func (r *RewardRepository) ListByIDs(ctx context.Context, ids []int64) (map[int64]*model.Reward, error) {
	out := make(map[int64]*model.Reward, len(ids))
	if len(ids) == 0 {
		return out, nil
	}
	var rewards []*model.Reward
	if err := r.db.WithContext(ctx).Where("id IN ?", ids).Find(&rewards).Error; err != nil {
		return nil, err
	}
	for _, rw := range rewards {
		out[rw.ID] = rw
	}
	return out, nil
}

// Upsert creates the reward or updates cost and description by name.
func (r *RewardRepository) Upsert(ctx context.Context, reward *model.Reward) error {
	return r.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "name"}},
			DoUpdates: clause.AssignmentColumns([]string{"cost", "description", "updated_at"}),
		}).
		Create(reward).Error
}
