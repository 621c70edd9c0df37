package repository

import (
	"context"
	"errors"
	"time"

	"rewardpoints/internal/model"

	"gorm.io/gorm"
)

var (
	ErrRequestNotFound      = errors.New("reward request not found")
	ErrRequestStatusInvalid = errors.New("reward request status invalid")
)

type RequestRepository struct {
	db *gorm.DB
}

func NewRequestRepository(db *gorm.DB) *RequestRepository {
	return &RequestRepository{db: db}
}

func (r *RequestRepository) Create(ctx context.Context, tx *gorm.DB, req *model.RewardRequest) error {
	if tx == nil {
		tx = r.db
	}
	return tx.WithContext(ctx).Create(req).Error
}

func (r *RequestRepository) GetByID(ctx context.Context, tx *gorm.DB, id int64) (*model.RewardRequest, error) {
	if tx == nil {
		tx = r.db
	}
	var req model.RewardRequest
	err := tx.WithContext(ctx).First(&req, id).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrRequestNotFound
		}
		return nil, err
	}
	return &req, nil
}

// UpdateStatus moves a request from fromStatus to toStatus. The WHERE on the
// current status makes concurrent transitions race safely: only one wins.
func (r *RequestRepository) UpdateStatus(ctx context.Context, tx *gorm.DB, id int64, fromStatus, toStatus string, actorID int64) error {
	if !model.CanTransitionTo(fromStatus, toStatus) {
		return ErrRequestStatusInvalid
	}

	if tx == nil {
		tx = r.db
	}

	updates := map[string]interface{}{
		"status": toStatus,
	}

	if toStatus == model.RequestStatusApproved {
		now := time.Now()
		updates["approved_at"] = &now
		updates["approved_by"] = actorID
	}

	result := tx.WithContext(ctx).
		Model(&model.RewardRequest{}).
		Where("id = ? AND status = ?", id, fromStatus).
		Updates(updates)

	if result.Error != nil {
		return result.Error
	}

	if result.RowsAffected == 0 {
		return ErrRequestStatusInvalid
	}

	return nil
}

type RequestFilter struct {
	ChildIDs []int64
	Status   string
}

// List returns requests of the given children, newest first.
func (r *RequestRepository) List(ctx context.Context, filter RequestFilter, page, pageSize int) ([]*model.RewardRequest, int64, error) {
	var requests []*model.RewardRequest
	var total int64

	if len(filter.ChildIDs) == 0 {
		return requests, 0, nil
	}

	query := func() *gorm.DB {
		q := r.db.WithContext(ctx).Model(&model.RewardRequest{}).Where("child_id IN ?", filter.ChildIDs)
		if filter.Status != "" {
			q = q.Where("status = ?", filter.Status)
		}
		return q
	}

	if err := query().Count(&total).Error; err != nil {
		return nil, 0, err
	}

	err := query().
		Order("requested_at DESC").
		Order("id DESC").
		Offset((page - 1) * pageSize).
		Limit(pageSize).
		Find(&requests).Error

	return requests, total, err
}

// GetStalePending returns pending requests created before the cutoff that
// have not been reminded since then.
func (r *RequestRepository) GetStalePending(ctx context.Context, before time.Time, limit int) ([]*model.RewardRequest, error) {
	var requests []*model.RewardRequest
	err := r.db.WithContext(ctx).
		Where("status = ? AND requested_at < ?", model.RequestStatusPending, before).
		Where("reminded_at IS NULL OR reminded_at < ?", before).
		Order("requested_at ASC").
		Limit(limit).
		Find(&requests).Error
	return requests, err
}

func (r *RequestRepository) MarkReminded(ctx context.Context, tx *gorm.DB, id int64, at time.Time) error {
	if tx == nil {
		tx = r.db
	}
	return tx.WithContext(ctx).
		Model(&model.RewardRequest{}).
		Where("id = ?", id).
		Update("reminded_at", at).Error
}
