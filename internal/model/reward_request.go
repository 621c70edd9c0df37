package model

import (
	"time"
)

const (
	RequestStatusPending  = "PENDING"
	RequestStatusApproved = "APPROVED"
)

// APPROVED is terminal.
var ValidRequestTransitions = map[string][]string{
	RequestStatusPending: {RequestStatusApproved},
}

func CanTransitionTo(currentStatus, targetStatus string) bool {
	for _, s := range ValidRequestTransitions[currentStatus] {
		if s == targetStatus {
			return true
		}
	}
	return false
}

type RewardRequest struct {
	ID          int64      `gorm:"primaryKey;autoIncrement" json:"id"`
	ChildID     int64      `gorm:"index;not null" json:"child"`
	RewardID    int64      `gorm:"index;not null" json:"reward"`
	Status      string     `gorm:"type:varchar(20);index;not null" json:"status"`
	RequestedAt time.Time  `gorm:"autoCreateTime;index" json:"requested_at"`
	ApprovedAt  *time.Time `json:"approved_at,omitempty"`
	ApprovedBy  *int64     `json:"approved_by,omitempty"`
	RemindedAt  *time.Time `json:"reminded_at,omitempty"`
	UpdatedAt   time.Time  `gorm:"autoUpdateTime" json:"updated_at"`
}

func (RewardRequest) TableName() string {
	return "reward_request"
}
