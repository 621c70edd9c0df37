package service

import (
	"context"
	"errors"
	"strings"
	"time"
	"unicode/utf8"

	"rewardpoints/internal/apperr"
	"rewardpoints/internal/auth"
	"rewardpoints/internal/config"
	"rewardpoints/internal/infrastructure/cache"
	"rewardpoints/internal/model"
	"rewardpoints/internal/repository"

	log "github.com/sirupsen/logrus"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

const (
	minPasswordLength = 8
	maxUsernameLength = 150
)

type AuthService struct {
	db          *gorm.DB
	tokens      *auth.TokenIssuer
	revocations cache.RevocationList
	bcryptCost  int
	userRepo    *repository.UserRepository
	accountRepo *repository.AccountRepository
	now         func() time.Time
}

func NewAuthService(db *gorm.DB, tokens *auth.TokenIssuer, revocations cache.RevocationList, cfg *config.Config) *AuthService {
	cost := cfg.Auth.BcryptCost
	if cost == 0 {
		cost = bcrypt.DefaultCost
	}
	return &AuthService{
		db:          db,
		tokens:      tokens,
		revocations: revocations,
		bcryptCost:  cost,
		userRepo:    repository.NewUserRepository(db),
		accountRepo: repository.NewAccountRepository(db),
		now:         time.Now,
	}
}

type RegisterRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
	Role     string `json:"role"`
}

type LoginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

// Register creates a user. Children get an empty points account.
func (s *AuthService) Register(ctx context.Context, req *RegisterRequest) (*auth.Identity, error) {
	username := strings.TrimSpace(req.Username)
	role := strings.ToLower(strings.TrimSpace(req.Role))
	switch {
	case username == "":
		return nil, apperr.Validation("username is required")
	case utf8.RuneCountInString(username) > maxUsernameLength:
		return nil, apperr.Validation("username is too long")
	case len(req.Password) < minPasswordLength:
		return nil, apperr.Validation("password must be at least 8 characters")
	case !model.ValidRole(role):
		return nil, apperr.Validation("role must be parent or child")
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(req.Password), s.bcryptCost)
	if err != nil {
		return nil, apperr.Internal("hash password", err)
	}

	user := &model.User{Username: username, PasswordHash: string(hash), Role: role}
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := s.userRepo.Create(ctx, tx, user); err != nil {
			return err
		}
		if role == model.RoleChild {
			return s.accountRepo.Create(ctx, tx, &model.Account{UserID: user.ID})
		}
		return nil
	})
	if err != nil {
		if errors.Is(err, repository.ErrUsernameTaken) {
			return nil, apperr.Conflict("username already exists")
		}
		return nil, apperr.Internal("register user", err)
	}

	log.WithFields(log.Fields{"user_id": user.ID, "role": role}).Info("user registered")
	id := auth.IdentityOf(user)
	return &id, nil
}

// Login exchanges credentials for a token pair.
func (s *AuthService) Login(ctx context.Context, req *LoginRequest) (*auth.TokenPair, error) {
	user, err := s.userRepo.GetByUsername(ctx, strings.TrimSpace(req.Username))
	if err != nil {
		if errors.Is(err, repository.ErrUserNotFound) {
			return nil, apperr.Authentication("invalid username or password")
		}
		return nil, apperr.Internal("load user", err)
	}
	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(req.Password)); err != nil {
		return nil, apperr.Authentication("invalid username or password")
	}

	pair, err := s.tokens.IssuePair(auth.IdentityOf(user))
	if err != nil {
		return nil, apperr.Internal("issue tokens", err)
	}
	return &pair, nil
}

// Refresh issues a new access token for a valid, unrevoked refresh token.
// The refresh token itself is returned unchanged.
func (s *AuthService) Refresh(ctx context.Context, refreshToken string) (*auth.TokenPair, error) {
	claims, err := s.tokens.Parse(refreshToken, auth.TokenTypeRefresh)
	if err != nil {
		return nil, apperr.Authentication("invalid refresh token")
	}
	revoked, err := s.revocations.IsRevoked(ctx, claims.ID)
	if err != nil {
		return nil, apperr.Internal("check token revocation", err)
	}
	if revoked {
		return nil, apperr.Authentication("refresh token has been revoked")
	}

	user, err := s.userRepo.GetByID(ctx, claims.UserID)
	if err != nil {
		if errors.Is(err, repository.ErrUserNotFound) {
			return nil, apperr.Authentication("user no longer exists")
		}
		return nil, apperr.Internal("load user", err)
	}

	access, err := s.tokens.IssueAccess(auth.IdentityOf(user))
	if err != nil {
		return nil, apperr.Internal("issue tokens", err)
	}
	return &auth.TokenPair{Access: access, Refresh: refreshToken}, nil
}

// Logout revokes the refresh token until it would have expired anyway.
// Invalid or already expired tokens are ignored.
func (s *AuthService) Logout(ctx context.Context, refreshToken string) error {
	claims, err := s.tokens.Parse(refreshToken, auth.TokenTypeRefresh)
	if err != nil {
		return nil
	}
	ttl := s.tokens.RefreshTTL()
	if claims.ExpiresAt != nil {
		ttl = claims.ExpiresAt.Time.Sub(s.now())
	}
	if err := s.revocations.Revoke(ctx, claims.ID, ttl); err != nil {
		return apperr.Internal("revoke token", err)
	}
	log.WithField("user_id", claims.UserID).Info("refresh token revoked")
	return nil
}

// Authenticate resolves an access token to the caller. The role comes from
// the stored user, not from the token.
func (s *AuthService) Authenticate(ctx context.Context, accessToken string) (auth.Identity, error) {
	claims, err := s.tokens.Parse(accessToken, auth.TokenTypeAccess)
	if err != nil {
		return auth.Identity{}, apperr.Authentication("invalid or expired token")
	}
	user, err := s.userRepo.GetByID(ctx, claims.UserID)
	if err != nil {
		if errors.Is(err, repository.ErrUserNotFound) {
			return auth.Identity{}, apperr.Authentication("user no longer exists")
		}
		return auth.Identity{}, apperr.Internal("load user", err)
	}
	return auth.IdentityOf(user), nil
}
