package service

import (
	"context"
	"errors"
	"fmt"
	"math"
	"strings"
	"time"
	"unicode/utf8"

	"rewardpoints/internal/apperr"
	"rewardpoints/internal/auth"
	"rewardpoints/internal/config"
	"rewardpoints/internal/infrastructure/lock"
	"rewardpoints/internal/metrics"
	"rewardpoints/internal/model"
	"rewardpoints/internal/repository"
	"rewardpoints/pkg/idgen"

	"github.com/google/uuid"
	log "github.com/sirupsen/logrus"
	"gorm.io/gorm"
)

type LedgerService struct {
	db              *gorm.DB
	cfg             *config.Config
	locker          lock.Locker
	accountRepo     *repository.AccountRepository
	transactionRepo *repository.TransactionRepository
	outboxRepo      *repository.OutboxRepository
	requestRepo     *repository.RequestRepository
	familyRepo      *repository.FamilyRepository
}

func NewLedgerService(db *gorm.DB, locker lock.Locker, cfg *config.Config) *LedgerService {
	return &LedgerService{
		db:              db,
		cfg:             cfg,
		locker:          locker,
		accountRepo:     repository.NewAccountRepository(db),
		transactionRepo: repository.NewTransactionRepository(db),
		outboxRepo:      repository.NewOutboxRepository(db),
		requestRepo:     repository.NewRequestRepository(db),
		familyRepo:      repository.NewFamilyRepository(db),
	}
}

type AdjustRequest struct {
	Child           int64  `json:"child"`
	Points          int64  `json:"points"`
	TransactionType string `json:"transaction_type"`
	Description     string `json:"description"`
}

// LedgerResult is a committed transaction and the balance it left behind.
type LedgerResult struct {
	Transaction *model.PointTransaction `json:"transaction"`
	Balance     int64                   `json:"balance"`
}

type TransactionPage struct {
	Items    []*model.PointTransaction `json:"items"`
	Total    int64                     `json:"total"`
	Page     int                       `json:"page"`
	PageSize int                       `json:"page_size"`
}

type ReconcileReport struct {
	ChildID    int64 `json:"child_id"`
	Balance    int64 `json:"balance"`
	LedgerSum  int64 `json:"ledger_sum"`
	Consistent bool  `json:"consistent"`
}

// ledgerEntry describes one balance mutation for post.
type ledgerEntry struct {
	childID     int64
	parentID    *int64
	requestID   *int64
	rewardID    *int64
	actorID     int64
	points      int64
	txType      string
	description string
	eventType   string
}

// ApplyTransaction lets a parent add or remove points on a linked child's
// account. The type may be omitted, in which case it follows the sign of
// Points; otherwise the sign is forced to match the type.
func (s *LedgerService) ApplyTransaction(ctx context.Context, actor auth.Identity, req *AdjustRequest) (*LedgerResult, error) {
	if err := requireParent(actor); err != nil {
		return nil, err
	}
	if req.Child == 0 {
		return nil, apperr.Validation("child is required")
	}
	description := strings.TrimSpace(req.Description)
	if description == "" {
		return nil, apperr.Validation("description is required")
	}
	if utf8.RuneCountInString(description) > model.MaxDescriptionLength {
		return nil, apperr.Validation(fmt.Sprintf("description must be at most %d characters", model.MaxDescriptionLength))
	}
	if req.Points == 0 {
		return nil, apperr.Validation("points must not be zero")
	}
	if req.Points > model.MaxPoints || req.Points < -model.MaxPoints {
		return nil, apperr.Validation(fmt.Sprintf("points must be between -%d and %d", model.MaxPoints, model.MaxPoints))
	}

	txType := strings.ToUpper(strings.TrimSpace(req.TransactionType))
	points := req.Points
	switch {
	case txType == "":
		txType = model.TypeForDelta(points)
	case !model.ValidTransactionType(txType):
		return nil, apperr.Validation(fmt.Sprintf("unknown transaction type %q", req.TransactionType))
	case txType == model.TransactionTypeRedeem:
		return nil, apperr.Validation("redeem transactions are created by redeeming a reward")
	default:
		points = model.NormalizePoints(txType, points)
	}

	linked, err := s.familyRepo.IsLinked(ctx, nil, actor.UserID, req.Child)
	if err != nil {
		return nil, apperr.Internal("check family link", err)
	}
	if !linked {
		return nil, apperr.Authorization("not a parent of this child")
	}

	parentID := actor.UserID
	return s.post(ctx, &ledgerEntry{
		childID:     req.Child,
		parentID:    &parentID,
		actorID:     actor.UserID,
		points:      points,
		txType:      txType,
		description: description,
		eventType:   EventPointsAdjusted,
	})
}

// Spend debits reward.Cost from the child's account. It is the only path
// that spends points: direct redemption passes a nil requestID, approval
// passes the request being approved, which moves to APPROVED in the same
// transaction. Callers are responsible for authorising actor.
func (s *LedgerService) Spend(ctx context.Context, actor auth.Identity, childID int64, reward *model.Reward, requestID *int64) (*LedgerResult, error) {
	e := &ledgerEntry{
		childID:   childID,
		requestID: requestID,
		rewardID:  &reward.ID,
		actorID:   actor.UserID,
		points:    -reward.Cost,
		txType:    model.TransactionTypeRedeem,
	}
	if actor.IsParent() {
		parentID := actor.UserID
		e.parentID = &parentID
	}
	if requestID != nil {
		e.description = "Approved reward: " + reward.Name
		e.eventType = EventRequestApproved
	} else {
		e.description = "Redeemed reward: " + reward.Name
		e.eventType = EventRewardRedeemed
	}
	return s.post(ctx, e)
}

// post applies one entry under the account lock and inside one DB
// transaction: account row lock, optional request transition, balance
// check, guarded update, ledger row and outbox event. Inside the
// transaction only tx may be used.
func (s *LedgerService) post(ctx context.Context, e *ledgerEntry) (*LedgerResult, error) {
	if e.points > model.MaxPoints || e.points < -model.MaxPoints {
		metrics.LedgerRejections.WithLabelValues(string(apperr.KindValidation)).Inc()
		return nil, apperr.Validation(fmt.Sprintf("points must be between -%d and %d", model.MaxPoints, model.MaxPoints))
	}

	release, err := s.locker.Acquire(ctx, lock.AccountKey(e.childID), uuid.NewString())
	if err != nil {
		return nil, apperr.Internal("account is busy, try again", err)
	}
	defer release()

	var trans *model.PointTransaction
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		account, err := s.accountRepo.GetByUserIDForUpdate(ctx, tx, e.childID)
		if err != nil {
			if errors.Is(err, repository.ErrAccountNotFound) {
				return apperr.NotFound("account not found")
			}
			return fmt.Errorf("load account: %w", err)
		}

		if e.requestID != nil {
			err := s.requestRepo.UpdateStatus(ctx, tx, *e.requestID, model.RequestStatusPending, model.RequestStatusApproved, e.actorID)
			if err != nil {
				if errors.Is(err, repository.ErrRequestStatusInvalid) {
					return apperr.InvalidState("request is not pending")
				}
				return fmt.Errorf("approve request: %w", err)
			}
		}

		if e.points < 0 {
			cost := -e.points
			if account.Balance < cost {
				return apperr.InsufficientBalance(fmt.Sprintf("not enough points: balance %d, need %d", account.Balance, cost))
			}
			if err := s.accountRepo.Deduct(ctx, tx, e.childID, cost, account.Version); err != nil {
				if errors.Is(err, repository.ErrBalanceNotEnough) {
					return apperr.InsufficientBalance("not enough points")
				}
				if errors.Is(err, repository.ErrOptimisticLock) {
					return apperr.Wrap(apperr.KindConflict, "account changed concurrently, check balance and try again", err)
				}
				return fmt.Errorf("deduct points: %w", err)
			}
		} else {
			if account.Balance > math.MaxInt64-e.points {
				return apperr.Validation("balance would exceed the maximum")
			}
			if err := s.accountRepo.Increase(ctx, tx, e.childID, e.points); err != nil {
				return fmt.Errorf("add points: %w", err)
			}
		}

		trans = &model.PointTransaction{
			TransactionNo: idgen.GenerateTransactionNo(),
			ChildID:       e.childID,
			ParentID:      e.parentID,
			RequestID:     e.requestID,
			Points:        e.points,
			Type:          e.txType,
			BalanceBefore: account.Balance,
			BalanceAfter:  account.Balance + e.points,
			Description:   e.description,
		}
		if err := s.transactionRepo.Create(ctx, tx, trans); err != nil {
			return fmt.Errorf("record transaction: %w", err)
		}

		return writeEvent(ctx, tx, s.outboxRepo, s.cfg.Kafka.Topic.PointsEvents, e.eventType, e.childID, &LedgerEvent{
			EventID:       eventID(e.eventType),
			EventType:     e.eventType,
			TransactionNo: trans.TransactionNo,
			ChildID:       e.childID,
			ParentID:      e.parentID,
			RequestID:     e.requestID,
			RewardID:      e.rewardID,
			Points:        e.points,
			Type:          e.txType,
			BalanceAfter:  trans.BalanceAfter,
			Description:   e.description,
			OccurredAt:    time.Now().UTC(),
		})
	})

	if err != nil {
		kind := apperr.KindOf(err)
		metrics.LedgerRejections.WithLabelValues(string(kind)).Inc()
		if kind == apperr.KindInternal {
			log.WithError(err).WithField("child_id", e.childID).Error("ledger post failed")
			var ae *apperr.Error
			if !errors.As(err, &ae) {
				err = apperr.Internal("ledger update failed", err)
			}
		}
		return nil, err
	}

	metrics.LedgerTransactions.WithLabelValues(trans.Type).Inc()
	log.WithFields(log.Fields{
		"transaction_no": trans.TransactionNo,
		"child_id":       trans.ChildID,
		"points":         trans.Points,
		"type":           trans.Type,
		"balance":        trans.BalanceAfter,
	}).Info("ledger transaction committed")

	return &LedgerResult{Transaction: trans, Balance: trans.BalanceAfter}, nil
}

// CurrentBalance reads the incrementally maintained balance.
func (s *LedgerService) CurrentBalance(ctx context.Context, childID int64) (int64, error) {
	account, err := s.accountRepo.GetByUserID(ctx, nil, childID)
	if err != nil {
		if errors.Is(err, repository.ErrAccountNotFound) {
			return 0, apperr.NotFound("account not found")
		}
		return 0, apperr.Internal("load account", err)
	}
	return account.Balance, nil
}

// Reconcile compares the stored balance with the sum of the ledger.
func (s *LedgerService) Reconcile(ctx context.Context, childID int64) (*ReconcileReport, error) {
	balance, err := s.CurrentBalance(ctx, childID)
	if err != nil {
		return nil, err
	}
	sum, err := s.transactionRepo.SumByChildID(ctx, childID)
	if err != nil {
		return nil, apperr.Internal("sum ledger", err)
	}
	report := &ReconcileReport{ChildID: childID, Balance: balance, LedgerSum: sum, Consistent: balance == sum}
	if !report.Consistent {
		log.WithFields(log.Fields{"child_id": childID, "balance": balance, "ledger_sum": sum}).Warn("balance does not match ledger")
	}
	return report, nil
}

// ListTransactions returns the caller's visible ledger, newest first. A
// parent sees every linked child, optionally narrowed to one; a child sees
// only their own.
func (s *LedgerService) ListTransactions(ctx context.Context, actor auth.Identity, childID int64, page, pageSize int) (*TransactionPage, error) {
	page, pageSize = normalizePage(page, pageSize)

	childIDs, err := visibleChildren(ctx, s.familyRepo, actor)
	if err != nil {
		return nil, err
	}
	if childID != 0 {
		if !containsID(childIDs, childID) {
			return nil, apperr.Authorization("not allowed to view this child")
		}
		childIDs = []int64{childID}
	}

	items, total, err := s.transactionRepo.List(ctx, childIDs, page, pageSize)
	if err != nil {
		return nil, apperr.Internal("list transactions", err)
	}
	return &TransactionPage{Items: items, Total: total, Page: page, PageSize: pageSize}, nil
}

// GetTransaction looks up one ledger entry by its number. Entries outside
// the caller's visible children are reported as not found.
func (s *LedgerService) GetTransaction(ctx context.Context, actor auth.Identity, transactionNo string) (*model.PointTransaction, error) {
	transactionNo = strings.TrimSpace(transactionNo)
	if transactionNo == "" {
		return nil, apperr.Validation("transaction number is required")
	}

	trans, err := s.transactionRepo.GetByTransactionNo(ctx, transactionNo)
	if err != nil {
		if errors.Is(err, repository.ErrTransactionNotFound) {
			return nil, apperr.NotFound("transaction not found")
		}
		return nil, apperr.Internal("load transaction", err)
	}

	childIDs, err := visibleChildren(ctx, s.familyRepo, actor)
	if err != nil {
		return nil, err
	}
	if !containsID(childIDs, trans.ChildID) {
		return nil, apperr.NotFound("transaction not found")
	}
	return trans, nil
}

// visibleChildren is the set of child ids the actor may read.
func visibleChildren(ctx context.Context, families *repository.FamilyRepository, actor auth.Identity) ([]int64, error) {
	switch {
	case actor.IsChild():
		return []int64{actor.UserID}, nil
	case actor.IsParent():
		ids, err := families.ChildIDs(ctx, actor.UserID)
		if err != nil {
			return nil, apperr.Internal("list children", err)
		}
		return ids, nil
	default:
		return nil, apperr.Authorization("unknown role")
	}
}
