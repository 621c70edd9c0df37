package service

import (
	"context"
	"errors"
	"strings"
	"time"

	"rewardpoints/internal/apperr"
	"rewardpoints/internal/auth"
	"rewardpoints/internal/config"
	"rewardpoints/internal/model"
	"rewardpoints/internal/repository"

	log "github.com/sirupsen/logrus"
	"gorm.io/gorm"
)

type RequestService struct {
	db          *gorm.DB
	cfg         *config.Config
	ledger      *LedgerService
	requestRepo *repository.RequestRepository
	rewardRepo  *repository.RewardRepository
	familyRepo  *repository.FamilyRepository
	outboxRepo  *repository.OutboxRepository
}

func NewRequestService(db *gorm.DB, ledger *LedgerService, cfg *config.Config) *RequestService {
	return &RequestService{
		db:          db,
		cfg:         cfg,
		ledger:      ledger,
		requestRepo: repository.NewRequestRepository(db),
		rewardRepo:  repository.NewRewardRepository(db),
		familyRepo:  repository.NewFamilyRepository(db),
		outboxRepo:  repository.NewOutboxRepository(db),
	}
}

// RequestView is a reward request with the reward it refers to.
type RequestView struct {
	model.RewardRequest
	RewardName string `json:"reward_name"`
	RewardCost int64  `json:"reward_cost"`
}

type RequestPage struct {
	Items    []*RequestView `json:"items"`
	Total    int64          `json:"total"`
	Page     int            `json:"page"`
	PageSize int            `json:"page_size"`
}

type ApprovalResult struct {
	Request     *RequestView            `json:"request"`
	Transaction *model.PointTransaction `json:"transaction"`
	Balance     int64                   `json:"balance"`
}

func (s *RequestService) loadReward(ctx context.Context, rewardID int64) (*model.Reward, error) {
	if rewardID == 0 {
		return nil, apperr.Validation("reward is required")
	}
	reward, err := s.rewardRepo.GetByID(ctx, nil, rewardID)
	if err != nil {
		if errors.Is(err, repository.ErrRewardNotFound) {
			return nil, apperr.NotFound("reward not found")
		}
		return nil, apperr.Internal("load reward", err)
	}
	return reward, nil
}

// CreateRequest records a pending request. The balance is not checked until
// a parent approves it.
func (s *RequestService) CreateRequest(ctx context.Context, actor auth.Identity, rewardID int64) (*RequestView, error) {
	if err := requireChild(actor); err != nil {
		return nil, err
	}
	reward, err := s.loadReward(ctx, rewardID)
	if err != nil {
		return nil, err
	}

	req := &model.RewardRequest{
		ChildID:  actor.UserID,
		RewardID: reward.ID,
		Status:   model.RequestStatusPending,
	}
	if err := s.requestRepo.Create(ctx, nil, req); err != nil {
		return nil, apperr.Internal("create reward request", err)
	}

	log.WithFields(log.Fields{"request_id": req.ID, "child_id": req.ChildID, "reward": reward.Name}).Info("reward requested")
	return &RequestView{RewardRequest: *req, RewardName: reward.Name, RewardCost: reward.Cost}, nil
}

// ApproveRequest spends the reward's cost from the child's account and
// marks the request approved, atomically. A request that is no longer
// pending fails with InvalidStateError; an uncovered cost fails with
// InsufficientBalanceError and leaves the request pending.
func (s *RequestService) ApproveRequest(ctx context.Context, actor auth.Identity, requestID int64) (*ApprovalResult, error) {
	if err := requireParent(actor); err != nil {
		return nil, err
	}

	req, err := s.requestRepo.GetByID(ctx, nil, requestID)
	if err != nil {
		if errors.Is(err, repository.ErrRequestNotFound) {
			return nil, apperr.NotFound("reward request not found")
		}
		return nil, apperr.Internal("load reward request", err)
	}

	linked, err := s.familyRepo.IsLinked(ctx, nil, actor.UserID, req.ChildID)
	if err != nil {
		return nil, apperr.Internal("check family link", err)
	}
	if !linked {
		return nil, apperr.Authorization("not a parent of this child")
	}

	if req.Status != model.RequestStatusPending {
		return nil, apperr.InvalidState("request is already " + strings.ToLower(req.Status))
	}

	reward, err := s.loadReward(ctx, req.RewardID)
	if err != nil {
		return nil, err
	}

	result, err := s.ledger.Spend(ctx, actor, req.ChildID, reward, &req.ID)
	if err != nil {
		return nil, err
	}

	approved, err := s.requestRepo.GetByID(ctx, nil, req.ID)
	if err != nil {
		return nil, apperr.Internal("reload reward request", err)
	}
	return &ApprovalResult{
		Request:     &RequestView{RewardRequest: *approved, RewardName: reward.Name, RewardCost: reward.Cost},
		Transaction: result.Transaction,
		Balance:     result.Balance,
	}, nil
}

// Redeem spends points on a reward immediately, without a request record.
func (s *RequestService) Redeem(ctx context.Context, actor auth.Identity, rewardID int64) (*LedgerResult, error) {
	if err := requireChild(actor); err != nil {
		return nil, err
	}
	reward, err := s.loadReward(ctx, rewardID)
	if err != nil {
		return nil, err
	}
	return s.ledger.Spend(ctx, actor, actor.UserID, reward, nil)
}

// ListRequests returns the caller's visible requests, newest first,
// optionally filtered by status.
func (s *RequestService) ListRequests(ctx context.Context, actor auth.Identity, status string, page, pageSize int) (*RequestPage, error) {
	page, pageSize = normalizePage(page, pageSize)

	status = strings.ToUpper(strings.TrimSpace(status))
	if status != "" && status != model.RequestStatusPending && status != model.RequestStatusApproved {
		return nil, apperr.Validation("unknown status " + status)
	}

	childIDs, err := visibleChildren(ctx, s.familyRepo, actor)
	if err != nil {
		return nil, err
	}

	requests, total, err := s.requestRepo.List(ctx, repository.RequestFilter{ChildIDs: childIDs, Status: status}, page, pageSize)
	if err != nil {
		return nil, apperr.Internal("list reward requests", err)
	}

	rewardIDs := make([]int64, 0, len(requests))
	for _, r := range requests {
		rewardIDs = append(rewardIDs, r.RewardID)
	}
	rewards, err := s.rewardRepo.ListByIDs(ctx, rewardIDs)
	if err != nil {
		return nil, apperr.Internal("load rewards", err)
	}

	items := make([]*RequestView, 0, len(requests))
	for _, r := range requests {
		view := &RequestView{RewardRequest: *r}
		if rw, ok := rewards[r.RewardID]; ok {
			view.RewardName = rw.Name
			view.RewardCost = rw.Cost
		}
		items = append(items, view)
	}
	return &RequestPage{Items: items, Total: total, Page: page, PageSize: pageSize}, nil
}

// RemindPending writes a reminder event for every request that has been
// pending since before the cutoff and was not reminded since, and returns
// how many were reminded.
func (s *RequestService) RemindPending(ctx context.Context, before time.Time, limit int) (int, error) {
	requests, err := s.requestRepo.GetStalePending(ctx, before, limit)
	if err != nil {
		return 0, apperr.Internal("find stale requests", err)
	}

	reminded := 0
	for _, req := range requests {
		parentIDs, err := s.familyRepo.ParentIDs(ctx, req.ChildID)
		if err != nil {
			return reminded, apperr.Internal("list parents", err)
		}

		now := time.Now()
		err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
			if err := s.requestRepo.MarkReminded(ctx, tx, req.ID, now); err != nil {
				return err
			}
			return writeEvent(ctx, tx, s.outboxRepo, s.cfg.Kafka.Topic.PointsEvents, EventRequestReminder, req.ChildID, &ReminderEvent{
				EventID:     eventID(EventRequestReminder),
				EventType:   EventRequestReminder,
				RequestID:   req.ID,
				ChildID:     req.ChildID,
				RewardID:    req.RewardID,
				ParentIDs:   parentIDs,
				RequestedAt: req.RequestedAt,
			})
		})
		if err != nil {
			return reminded, apperr.Internal("write reminder", err)
		}
		reminded++
	}

	if reminded > 0 {
		log.WithField("count", reminded).Info("pending reward request reminders queued")
	}
	return reminded, nil
}
