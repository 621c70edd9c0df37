package service

import (
	"context"
	"encoding/json"
	"math"
	"math/rand"
	"strings"
	"testing"

	"rewardpoints/internal/apperr"
	"rewardpoints/internal/auth"
	"rewardpoints/internal/infrastructure/lock"
	"rewardpoints/internal/model"
	"rewardpoints/internal/repository"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestApplyTransactionAddsPoints(t *testing.T) {
	f := newFixture(t, lock.NewLocalLocker())
	ctx := context.Background()
	parent, child := f.linkedPair(t, "mom", "kid")
	f.fund(t, parent, child, 20)

	result, err := f.ledger.ApplyTransaction(ctx, parent, &AdjustRequest{Child: child.UserID, Points: 30, Description: "chores"})
	require.NoError(t, err)

	assert.Equal(t, int64(50), result.Balance)
	assert.Equal(t, int64(50), f.balance(t, child))
	assert.Equal(t, model.TransactionTypeAdd, result.Transaction.Type)
	assert.Equal(t, int64(20), result.Transaction.BalanceBefore)
	assert.Equal(t, int64(50), result.Transaction.BalanceAfter)
	require.NotNil(t, result.Transaction.ParentID)
	assert.Equal(t, parent.UserID, *result.Transaction.ParentID)
	assert.Equal(t, "chores", result.Transaction.Description)
}

func TestApplyTransactionNormalisesSignByType(t *testing.T) {
	f := newFixture(t, lock.NewLocalLocker())
	parent, child := f.linkedPair(t, "mom", "kid")
	f.fund(t, parent, child, 40)

	result, err := f.ledger.ApplyTransaction(context.Background(), parent, &AdjustRequest{
		Child: child.UserID, Points: 15, TransactionType: "subtract", Description: "broke a window",
	})
	require.NoError(t, err)
	assert.Equal(t, int64(-15), result.Transaction.Points)
	assert.Equal(t, model.TransactionTypeSubtract, result.Transaction.Type)
	assert.Equal(t, int64(25), result.Balance)

	result, err = f.ledger.ApplyTransaction(context.Background(), parent, &AdjustRequest{
		Child: child.UserID, Points: -5, Description: "late",
	})
	require.NoError(t, err)
	assert.Equal(t, model.TransactionTypeSubtract, result.Transaction.Type)
	assert.Equal(t, int64(20), result.Balance)
}

func TestApplyTransactionRejections(t *testing.T) {
	f := newFixture(t, lock.NewLocalLocker())
	ctx := context.Background()
	parent, child := f.linkedPair(t, "mom", "kid")
	stranger := f.register(t, "neighbour", model.RoleParent)
	f.fund(t, parent, child, 10)

	cases := []struct {
		name  string
		actor auth.Identity
		req   AdjustRequest
		err   error
	}{
		{"zero delta", parent, AdjustRequest{Child: child.UserID, Points: 0, Description: "x"}, apperr.ErrValidation},
		{"empty description", parent, AdjustRequest{Child: child.UserID, Points: 5, Description: "  "}, apperr.ErrValidation},
		{"missing child", parent, AdjustRequest{Points: 5, Description: "x"}, apperr.ErrValidation},
		{"redeem type", parent, AdjustRequest{Child: child.UserID, Points: 5, TransactionType: "REDEEM", Description: "x"}, apperr.ErrValidation},
		{"unknown type", parent, AdjustRequest{Child: child.UserID, Points: 5, TransactionType: "BONUS", Description: "x"}, apperr.ErrValidation},
		{"child actor", child, AdjustRequest{Child: child.UserID, Points: 5, Description: "x"}, apperr.ErrAuthorization},
		{"unlinked parent", stranger, AdjustRequest{Child: child.UserID, Points: 5, Description: "x"}, apperr.ErrAuthorization},
		{"overdraft", parent, AdjustRequest{Child: child.UserID, Points: -11, Description: "x"}, apperr.ErrInsufficientBalance},
		{"min int64", parent, AdjustRequest{Child: child.UserID, Points: math.MinInt64, Description: "x"}, apperr.ErrValidation},
		{"min int64 as add", parent, AdjustRequest{Child: child.UserID, Points: math.MinInt64, TransactionType: "ADD", Description: "x"}, apperr.ErrValidation},
		{"max int64", parent, AdjustRequest{Child: child.UserID, Points: math.MaxInt64, Description: "x"}, apperr.ErrValidation},
		{"above max points", parent, AdjustRequest{Child: child.UserID, Points: model.MaxPoints + 1, Description: "x"}, apperr.ErrValidation},
		{"below min points", parent, AdjustRequest{Child: child.UserID, Points: -model.MaxPoints - 1, TransactionType: "SUBTRACT", Description: "x"}, apperr.ErrValidation},
		{"long description", parent, AdjustRequest{Child: child.UserID, Points: 5, Description: strings.Repeat("a", model.MaxDescriptionLength+1)}, apperr.ErrValidation},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			req := tc.req
			_, err := f.ledger.ApplyTransaction(ctx, tc.actor, &req)
			assert.ErrorIs(t, err, tc.err)
		})
	}

	assert.Equal(t, int64(10), f.balance(t, child), "rejected calls leave the balance alone")
	assert.Equal(t, int64(1), f.countTransactions(t, child.UserID, model.TransactionTypeAdd))

	report, err := f.ledger.Reconcile(ctx, child.UserID)
	require.NoError(t, err)
	assert.True(t, report.Consistent)
}

func TestApplyTransactionAcceptsBounds(t *testing.T) {
	f := newFixture(t, lock.NewLocalLocker())
	ctx := context.Background()
	parent, child := f.linkedPair(t, "mom", "kid")

	result, err := f.ledger.ApplyTransaction(ctx, parent, &AdjustRequest{
		Child: child.UserID, Points: model.MaxPoints, Description: strings.Repeat("a", model.MaxDescriptionLength),
	})
	require.NoError(t, err)
	assert.Equal(t, model.MaxPoints, result.Balance)

	result, err = f.ledger.ApplyTransaction(ctx, parent, &AdjustRequest{Child: child.UserID, Points: -model.MaxPoints, Description: "x"})
	require.NoError(t, err)
	assert.Equal(t, int64(0), result.Balance)
}

func TestCreditCannotOverflowBalance(t *testing.T) {
	f := newFixture(t, lock.NewLocalLocker())
	ctx := context.Background()
	parent, child := f.linkedPair(t, "mom", "kid")
	f.fund(t, parent, child, 1)

	near := int64(math.MaxInt64 - 5)
	require.NoError(t, f.db.Model(&model.Account{}).Where("user_id = ?", child.UserID).Update("balance", near).Error)

	_, err := f.ledger.ApplyTransaction(ctx, parent, &AdjustRequest{Child: child.UserID, Points: 10, Description: "bonus"})
	assert.ErrorIs(t, err, apperr.ErrValidation)
	assert.Equal(t, near, f.balance(t, child))
	assert.Equal(t, int64(1), f.countTransactions(t, child.UserID, model.TransactionTypeAdd))

	result, err := f.ledger.ApplyTransaction(ctx, parent, &AdjustRequest{Child: child.UserID, Points: 5, Description: "bonus"})
	require.NoError(t, err)
	assert.Equal(t, int64(math.MaxInt64), result.Balance)
}

func TestSpendRejectsOutOfRangeCost(t *testing.T) {
	f := newFixture(t, lock.NewLocalLocker())
	_, child := f.linkedPair(t, "mom", "kid")

	huge := &model.Reward{Name: "Pony", Cost: math.MaxInt64}
	require.NoError(t, f.db.Create(huge).Error)

	_, err := f.requests.Redeem(context.Background(), child, huge.ID)
	assert.ErrorIs(t, err, apperr.ErrValidation)
	assert.Equal(t, int64(0), f.balance(t, child))
}

func TestGetTransaction(t *testing.T) {
	f := newFixture(t, lock.NewLocalLocker())
	ctx := context.Background()
	parent, child := f.linkedPair(t, "mom", "kid")
	stranger, _ := f.linkedPair(t, "dad", "other")

	result, err := f.ledger.ApplyTransaction(ctx, parent, &AdjustRequest{Child: child.UserID, Points: 7, Description: "dishes"})
	require.NoError(t, err)
	no := result.Transaction.TransactionNo

	for _, actor := range []auth.Identity{parent, child} {
		got, err := f.ledger.GetTransaction(ctx, actor, no)
		require.NoError(t, err, actor.Username)
		assert.Equal(t, result.Transaction.ID, got.ID)
		assert.Equal(t, int64(7), got.Points)
	}

	_, err = f.ledger.GetTransaction(ctx, stranger, no)
	assert.ErrorIs(t, err, apperr.ErrNotFound, "other families cannot see it")

	_, err = f.ledger.GetTransaction(ctx, parent, "TXN-missing")
	assert.ErrorIs(t, err, apperr.ErrNotFound)

	_, err = f.ledger.GetTransaction(ctx, parent, " ")
	assert.ErrorIs(t, err, apperr.ErrValidation)
}

func TestBalanceEqualsRunningSum(t *testing.T) {
	f := newFixture(t, lock.NewLocalLocker())
	ctx := context.Background()
	parent, child := f.linkedPair(t, "mom", "kid")

	rng := rand.New(rand.NewSource(42))
	var expected int64
	for i := 0; i < 60; i++ {
		delta := int64(rng.Intn(41) - 20)
		if delta == 0 {
			delta = 1
		}
		_, err := f.ledger.ApplyTransaction(ctx, parent, &AdjustRequest{Child: child.UserID, Points: delta, Description: "step"})
		if expected+delta < 0 {
			require.ErrorIs(t, err, apperr.ErrInsufficientBalance)
		} else {
			require.NoError(t, err)
			expected += delta
		}
		require.Equal(t, expected, f.balance(t, child), "after step %d", i)
	}

	report, err := f.ledger.Reconcile(ctx, child.UserID)
	require.NoError(t, err)
	assert.True(t, report.Consistent)
	assert.Equal(t, expected, report.LedgerSum)
}

func TestReconcileDetectsDrift(t *testing.T) {
	f := newFixture(t, lock.NewLocalLocker())
	parent, child := f.linkedPair(t, "mom", "kid")
	f.fund(t, parent, child, 10)

	require.NoError(t, f.db.Model(&model.Account{}).Where("user_id = ?", child.UserID).Update("balance", 99).Error)

	report, err := f.ledger.Reconcile(context.Background(), child.UserID)
	require.NoError(t, err)
	assert.False(t, report.Consistent)
	assert.Equal(t, int64(99), report.Balance)
	assert.Equal(t, int64(10), report.LedgerSum)
}

func TestCurrentBalanceUnknownAccount(t *testing.T) {
	f := newFixture(t, lock.NewLocalLocker())
	_, err := f.ledger.CurrentBalance(context.Background(), 12345)
	assert.ErrorIs(t, err, apperr.ErrNotFound)
}

func TestListTransactionsIsRoleScoped(t *testing.T) {
	f := newFixture(t, lock.NewLocalLocker())
	ctx := context.Background()
	parent, kid1 := f.linkedPair(t, "mom", "kid1")
	kid2 := f.register(t, "kid2", model.RoleChild)
	_, err := f.family.LinkChild(ctx, parent, "kid2")
	require.NoError(t, err)
	other, kid3 := f.linkedPair(t, "dad2", "kid3")

	f.fund(t, parent, kid1, 10)
	f.fund(t, parent, kid2, 20)
	f.fund(t, parent, kid1, 30)
	f.fund(t, other, kid3, 40)

	page, err := f.ledger.ListTransactions(ctx, parent, 0, 1, 20)
	require.NoError(t, err)
	assert.Equal(t, int64(3), page.Total)
	require.Len(t, page.Items, 3)
	assert.Equal(t, int64(30), page.Items[0].Points, "newest first")
	assert.Equal(t, int64(10), page.Items[2].Points)

	page, err = f.ledger.ListTransactions(ctx, parent, kid2.UserID, 1, 20)
	require.NoError(t, err)
	require.Len(t, page.Items, 1)
	assert.Equal(t, kid2.UserID, page.Items[0].ChildID)

	page, err = f.ledger.ListTransactions(ctx, kid1, 0, 1, 20)
	require.NoError(t, err)
	assert.Equal(t, int64(2), page.Total)
	for _, tr := range page.Items {
		assert.Equal(t, kid1.UserID, tr.ChildID)
	}

	_, err = f.ledger.ListTransactions(ctx, parent, kid3.UserID, 1, 20)
	assert.ErrorIs(t, err, apperr.ErrAuthorization)
	_, err = f.ledger.ListTransactions(ctx, kid1, kid2.UserID, 1, 20)
	assert.ErrorIs(t, err, apperr.ErrAuthorization)

	page, err = f.ledger.ListTransactions(ctx, parent, 0, 2, 2)
	require.NoError(t, err)
	assert.Len(t, page.Items, 1)
	assert.Equal(t, 2, page.Page)
}

func TestLedgerWritesOutboxEvent(t *testing.T) {
	f := newFixture(t, lock.NewLocalLocker())
	ctx := context.Background()
	parent, child := f.linkedPair(t, "mom", "kid")
	f.fund(t, parent, child, 25)

	msgs, err := repository.NewOutboxRepository(f.db).ListByEventType(ctx, EventPointsAdjusted)
	require.NoError(t, err)
	require.Len(t, msgs, 1)
	assert.Equal(t, "points.events", msgs[0].Topic)
	assert.Equal(t, model.OutboxStatusPending, msgs[0].Status)

	var event LedgerEvent
	require.NoError(t, json.Unmarshal([]byte(msgs[0].Payload), &event))
	assert.Equal(t, child.UserID, event.ChildID)
	assert.Equal(t, int64(25), event.Points)
	assert.Equal(t, int64(25), event.BalanceAfter)
	assert.NotEmpty(t, event.EventID)
}
