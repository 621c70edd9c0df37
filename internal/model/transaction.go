package model

import (
	"time"
)

const (
	TransactionTypeAdd      = "ADD"
	TransactionTypeSubtract = "SUBTRACT"
	TransactionTypeRedeem   = "REDEEM"
)

const (
	// MaxPoints bounds a single adjustment and a reward cost, keeping every
	// balance far from int64 overflow.
	MaxPoints int64 = 1_000_000_000

	MaxDescriptionLength = 255
)

func ValidTransactionType(t string) bool {
	switch t {
	case TransactionTypeAdd, TransactionTypeSubtract, TransactionTypeRedeem:
		return true
	}
	return false
}

// NormalizePoints forces the sign of points to match the transaction type:
// ADD is a credit, SUBTRACT and REDEEM are debits.
func NormalizePoints(txType string, points int64) int64 {
	if points < 0 {
		points = -points
	}
	if txType == TransactionTypeAdd {
		return points
	}
	return -points
}

// TypeForDelta picks the transaction type implied by a signed delta.
func TypeForDelta(delta int64) string {
	if delta < 0 {
		return TransactionTypeSubtract
	}
	return TransactionTypeAdd
}

// PointTransaction is one entry of the ledger. Rows are only ever appended.
type PointTransaction struct {
	ID            int64     `gorm:"primaryKey;autoIncrement" json:"id"`
	TransactionNo string    `gorm:"type:varchar(64);uniqueIndex;not null" json:"transaction_no"`
	ChildID       int64     `gorm:"index;not null" json:"child"`
	ParentID      *int64    `gorm:"index" json:"parent"`  // acting parent, nil for self-redemption
	RequestID     *int64    `gorm:"index" json:"request"` // originating reward request
	Points        int64     `gorm:"not null" json:"points"`
	Type          string    `gorm:"type:varchar(20);not null" json:"transaction_type"`
	BalanceBefore int64     `gorm:"not null" json:"balance_before"`
	BalanceAfter  int64     `gorm:"not null" json:"balance_after"`
	Description   string    `gorm:"type:varchar(255)" json:"description"`
	CreatedAt     time.Time `gorm:"autoCreateTime;index" json:"created_at"`
}

func (PointTransaction) TableName() string {
	return "score_transaction"
}
