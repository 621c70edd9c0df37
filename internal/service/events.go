package service

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"time"

	"rewardpoints/internal/model"
	"rewardpoints/internal/repository"
	"rewardpoints/pkg/idgen"

	"gorm.io/gorm"
)

const (
	EventPointsAdjusted  = "points.adjusted"
	EventRewardRedeemed  = "reward.redeemed"
	EventRequestApproved = "reward_request.approved"
	EventRequestReminder = "reward_request.reminder"
)

// LedgerEvent is published for every committed ledger transaction.
type LedgerEvent struct {
	EventID       string    `json:"event_id"`
	EventType     string    `json:"event_type"`
	TransactionNo string    `json:"transaction_no"`
	ChildID       int64     `json:"child_id"`
	ParentID      *int64    `json:"parent_id,omitempty"`
	RequestID     *int64    `json:"request_id,omitempty"`
	RewardID      *int64    `json:"reward_id,omitempty"`
	Points        int64     `json:"points"`
	Type          string    `json:"transaction_type"`
	BalanceAfter  int64     `json:"balance_after"`
	Description   string    `json:"description"`
	OccurredAt    time.Time `json:"occurred_at"`
}

// ReminderEvent asks the notification side to nudge the child's parents
// about a request that has been pending too long.
type ReminderEvent struct {
	EventID     string    `json:"event_id"`
	EventType   string    `json:"event_type"`
	RequestID   int64     `json:"request_id"`
	ChildID     int64     `json:"child_id"`
	RewardID    int64     `json:"reward_id"`
	ParentIDs   []int64   `json:"parent_ids"`
	RequestedAt time.Time `json:"requested_at"`
}

// writeEvent stores an outbox message in tx. The account id is the message
// key so all events of one account land on the same partition.
func writeEvent(ctx context.Context, tx *gorm.DB, repo *repository.OutboxRepository, topic, eventType string, childID int64, payload interface{}) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("encode %s event: %w", eventType, err)
	}
	msg := &model.OutboxMessage{
		MessageKey: strconv.FormatInt(childID, 10),
		EventType:  eventType,
		Topic:      topic,
		Payload:    string(body),
		Status:     model.OutboxStatusPending,
	}
	if err := repo.Create(ctx, tx, msg); err != nil {
		return fmt.Errorf("write %s event: %w", eventType, err)
	}
	return nil
}

func eventID(eventType string) string {
	return idgen.GenerateEventKey(eventType)
}
