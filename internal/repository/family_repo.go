package repository

import (
	"context"

	"rewardpoints/internal/model"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type FamilyRepository struct {
	db *gorm.DB
}

func NewFamilyRepository(db *gorm.DB) *FamilyRepository {
	return &FamilyRepository{db: db}
}

// Link is idempotent: linking an already linked pair is a no-op.
func (r *FamilyRepository) Link(ctx context.Context, tx *gorm.DB, parentID, childID int64) error {
	if tx == nil {
		tx = r.db
	}
	return tx.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "parent_id"}, {Name: "child_id"}},
			DoNothing: true,
		}).
		Create(&model.FamilyLink{ParentID: parentID, ChildID: childID}).Error
}

func (r *FamilyRepository) IsLinked(ctx context.Context, tx *gorm.DB, parentID, childID int64) (bool, error) {
	if tx == nil {
		tx = r.db
	}
	var n int64
	err := tx.WithContext(ctx).
		Model(&model.FamilyLink{}).
		Where("parent_id = ? AND child_id = ?", parentID, childID).
		Count(&n).Error
	return n > 0, err
}

func (r *FamilyRepository) ChildIDs(ctx context.Context, parentID int64) ([]int64, error) {
	var ids []int64
	err := r.db.WithContext(ctx).
		Model(&model.FamilyLink{}).
		Where("parent_id = ?", parentID).
		Order("child_id ASC").
		Pluck("child_id", &ids).Error
	return ids, err
}

func (r *FamilyRepository) ParentIDs(ctx context.Context, childID int64) ([]int64, error) {
	var ids []int64
	err := r.db.WithContext(ctx).
		Model(&model.FamilyLink{}).
		Where("child_id = ?", childID).
		Order("parent_id ASC").
		Pluck("parent_id", &ids).Error
	return ids, err
}
