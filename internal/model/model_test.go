package model

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNormalizePoints(t *testing.T) {
	assert.Equal(t, int64(30), NormalizePoints(TransactionTypeAdd, -30))
	assert.Equal(t, int64(30), NormalizePoints(TransactionTypeAdd, 30))
	assert.Equal(t, int64(-30), NormalizePoints(TransactionTypeSubtract, 30))
	assert.Equal(t, int64(-80), NormalizePoints(TransactionTypeRedeem, 80))
	assert.Equal(t, int64(-80), NormalizePoints(TransactionTypeRedeem, -80))
}

func TestTypeForDelta(t *testing.T) {
	assert.Equal(t, TransactionTypeAdd, TypeForDelta(5))
	assert.Equal(t, TransactionTypeSubtract, TypeForDelta(-5))
}

func TestRequestTransitions(t *testing.T) {
	assert.True(t, CanTransitionTo(RequestStatusPending, RequestStatusApproved))
	assert.False(t, CanTransitionTo(RequestStatusApproved, RequestStatusApproved))
	assert.False(t, CanTransitionTo(RequestStatusApproved, RequestStatusPending))
	assert.False(t, CanTransitionTo("REJECTED", RequestStatusApproved))
}

func TestValidRole(t *testing.T) {
	assert.True(t, ValidRole(RoleParent))
	assert.True(t, ValidRole(RoleChild))
	assert.False(t, ValidRole("admin"))
	assert.False(t, ValidRole(""))
}
