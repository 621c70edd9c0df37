package service

import (
	"context"
	"errors"
	"strings"

	"rewardpoints/internal/apperr"
	"rewardpoints/internal/auth"
	"rewardpoints/internal/model"
	"rewardpoints/internal/repository"

	log "github.com/sirupsen/logrus"
	"gorm.io/gorm"
)

type FamilyService struct {
	db          *gorm.DB
	userRepo    *repository.UserRepository
	familyRepo  *repository.FamilyRepository
	accountRepo *repository.AccountRepository
}

func NewFamilyService(db *gorm.DB) *FamilyService {
	return &FamilyService{
		db:          db,
		userRepo:    repository.NewUserRepository(db),
		familyRepo:  repository.NewFamilyRepository(db),
		accountRepo: repository.NewAccountRepository(db),
	}
}

type ChildView struct {
	ID       int64  `json:"id"`
	Username string `json:"username"`
	Balance  int64  `json:"balance"`
}

type UserView struct {
	ID       int64  `json:"id"`
	Username string `json:"username"`
}

// ListChildren returns the children visible to actor with their balances.
// A child sees only themselves.
func (s *FamilyService) ListChildren(ctx context.Context, actor auth.Identity) ([]*ChildView, error) {
	ids, err := visibleChildren(ctx, s.familyRepo, actor)
	if err != nil {
		return nil, err
	}
	users, err := s.userRepo.ListByIDs(ctx, ids)
	if err != nil {
		return nil, apperr.Internal("load children", err)
	}
	accounts, err := s.accountRepo.ListByUserIDs(ctx, ids)
	if err != nil {
		return nil, apperr.Internal("load balances", err)
	}

	views := make([]*ChildView, 0, len(users))
	for _, u := range users {
		v := &ChildView{ID: u.ID, Username: u.Username}
		if a, ok := accounts[u.ID]; ok {
			v.Balance = a.Balance
		}
		views = append(views, v)
	}
	return views, nil
}

// LinkChild makes actor a parent of the child with the given username.
func (s *FamilyService) LinkChild(ctx context.Context, actor auth.Identity, username string) (*ChildView, error) {
	if err := requireParent(actor); err != nil {
		return nil, err
	}
	username = strings.TrimSpace(username)
	if username == "" {
		return nil, apperr.Validation("username is required")
	}

	child, err := s.userRepo.GetByUsername(ctx, username)
	if err != nil {
		if errors.Is(err, repository.ErrUserNotFound) {
			return nil, apperr.NotFound("user not found")
		}
		return nil, apperr.Internal("load user", err)
	}
	if child.Role != model.RoleChild {
		return nil, apperr.Validation("user is not a child")
	}

	var account *model.Account
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := s.familyRepo.Link(ctx, tx, actor.UserID, child.ID); err != nil {
			return err
		}
		var createErr error
		account, createErr = s.accountRepo.GetOrCreate(ctx, tx, child.ID)
		return createErr
	})
	if err != nil {
		return nil, apperr.Internal("link child", err)
	}

	log.WithFields(log.Fields{"parent_id": actor.UserID, "child_id": child.ID}).Info("child linked")
	return &ChildView{ID: child.ID, Username: child.Username, Balance: account.Balance}, nil
}

// ListParents returns the parents sharing at least one child with actor,
// actor included.
func (s *FamilyService) ListParents(ctx context.Context, actor auth.Identity) ([]*UserView, error) {
	if err := requireParent(actor); err != nil {
		return nil, err
	}
	childIDs, err := s.familyRepo.ChildIDs(ctx, actor.UserID)
	if err != nil {
		return nil, apperr.Internal("list children", err)
	}

	ids := []int64{actor.UserID}
	for _, childID := range childIDs {
		parentIDs, err := s.familyRepo.ParentIDs(ctx, childID)
		if err != nil {
			return nil, apperr.Internal("list parents", err)
		}
		for _, id := range parentIDs {
			if !containsID(ids, id) {
				ids = append(ids, id)
			}
		}
	}

	users, err := s.userRepo.ListByIDs(ctx, ids)
	if err != nil {
		return nil, apperr.Internal("load parents", err)
	}
	views := make([]*UserView, 0, len(users))
	for _, u := range users {
		views = append(views, &UserView{ID: u.ID, Username: u.Username})
	}
	return views, nil
}
