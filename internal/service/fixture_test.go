package service

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"rewardpoints/internal/auth"
	"rewardpoints/internal/config"
	"rewardpoints/internal/infrastructure/cache"
	"rewardpoints/internal/infrastructure/database"
	"rewardpoints/internal/infrastructure/lock"
	"rewardpoints/internal/model"

	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

type nopLocker struct{}

func (nopLocker) Acquire(context.Context, string, string) (func(), error) {
	return func() {}, nil
}

type fixture struct {
	db       *gorm.DB
	cfg      *config.Config
	tokens   *auth.TokenIssuer
	auth     *AuthService
	family   *FamilyService
	ledger   *LedgerService
	catalog  *CatalogService
	requests *RequestService
}

func testConfig() *config.Config {
	return &config.Config{
		Auth: config.AuthConfig{
			Secret:     "test-secret",
			Issuer:     "rewardpoints",
			AccessTTL:  time.Minute,
			RefreshTTL: time.Hour,
			BcryptCost: bcrypt.MinCost,
		},
		Kafka:    config.KafkaConfig{Topic: config.KafkaTopicConfig{PointsEvents: "points.events"}},
		Business: config.BusinessConfig{MaxRetryCount: 3, ReminderAfter: 24 * time.Hour},
	}
}

func newFixture(t *testing.T, locker lock.Locker) *fixture {
	t.Helper()

	db, err := database.Open(&config.DatabaseConfig{
		Driver:   "sqlite",
		Path:     filepath.Join(t.TempDir(), "points.db"),
		LogLevel: "silent",
	})
	require.NoError(t, err)
	t.Cleanup(func() {
		if sqlDB, err := db.DB(); err == nil {
			sqlDB.Close()
		}
	})

	cfg := testConfig()
	tokens := auth.NewTokenIssuer(&cfg.Auth)
	ledger := NewLedgerService(db, locker, cfg)
	return &fixture{
		db:       db,
		cfg:      cfg,
		tokens:   tokens,
		auth:     NewAuthService(db, tokens, cache.NewMemoryRevocationList(), cfg),
		family:   NewFamilyService(db),
		ledger:   ledger,
		catalog:  NewCatalogService(db),
		requests: NewRequestService(db, ledger, cfg),
	}
}

func (f *fixture) register(t *testing.T, username, role string) auth.Identity {
	t.Helper()
	id, err := f.auth.Register(context.Background(), &RegisterRequest{Username: username, Password: "password123", Role: role})
	require.NoError(t, err)
	return *id
}

// linkedPair registers a parent and a linked child.
func (f *fixture) linkedPair(t *testing.T, parentName, childName string) (auth.Identity, auth.Identity) {
	t.Helper()
	parent := f.register(t, parentName, model.RoleParent)
	child := f.register(t, childName, model.RoleChild)
	_, err := f.family.LinkChild(context.Background(), parent, childName)
	require.NoError(t, err)
	return parent, child
}

func (f *fixture) fund(t *testing.T, parent, child auth.Identity, points int64) {
	t.Helper()
	_, err := f.ledger.ApplyTransaction(context.Background(), parent, &AdjustRequest{
		Child: child.UserID, Points: points, Description: "allowance",
	})
	require.NoError(t, err)
}

func (f *fixture) reward(t *testing.T, name string, cost int64) *model.Reward {
	t.Helper()
	require.NoError(t, f.catalog.SeedRewards(context.Background(), []config.RewardSeed{{Name: name, Cost: cost}}))
	var r model.Reward
	require.NoError(t, f.db.Where("name = ?", name).First(&r).Error)
	return &r
}

func (f *fixture) balance(t *testing.T, child auth.Identity) int64 {
	t.Helper()
	b, err := f.ledger.CurrentBalance(context.Background(), child.UserID)
	require.NoError(t, err)
	return b
}

func (f *fixture) countTransactions(t *testing.T, childID int64, txType string) int64 {
	t.Helper()
	var n int64
	require.NoError(t, f.db.Model(&model.PointTransaction{}).
		Where("child_id = ? AND type = ?", childID, txType).Count(&n).Error)
	return n
}
