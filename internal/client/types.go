package client

import "time"

type Child struct {
	ID       int64  `json:"id"`
	Username string `json:"username"`
	Balance  int64  `json:"balance"`
}

type Transaction struct {
	ID              int64     `json:"id"`
	TransactionNo   string    `json:"transaction_no"`
	Child           int64     `json:"child"`
	Parent          *int64    `json:"parent"`
	Request         *int64    `json:"request"`
	Points          int64     `json:"points"`
	TransactionType string    `json:"transaction_type"`
	BalanceBefore   int64     `json:"balance_before"`
	BalanceAfter    int64     `json:"balance_after"`
	Description     string    `json:"description"`
	CreatedAt       time.Time `json:"created_at"`
}

type TransactionPage struct {
	Items    []Transaction `json:"items"`
	Total    int64         `json:"total"`
	Page     int           `json:"page"`
	PageSize int           `json:"page_size"`
}

type LedgerResult struct {
	Transaction Transaction `json:"transaction"`
	Balance     int64       `json:"balance"`
}

type AdjustInput struct {
	Child           int64  `json:"child"`
	Points          int64  `json:"points"`
	TransactionType string `json:"transaction_type,omitempty"`
	Description     string `json:"description"`
}

type Reward struct {
	ID          int64  `json:"id"`
	Name        string `json:"name"`
	Cost        int64  `json:"cost"`
	Description string `json:"description"`
}

type RewardRequest struct {
	ID          int64      `json:"id"`
	Child       int64      `json:"child"`
	Reward      int64      `json:"reward"`
	RewardName  string     `json:"reward_name"`
	RewardCost  int64      `json:"reward_cost"`
	Status      string     `json:"status"`
	RequestedAt time.Time  `json:"requested_at"`
	ApprovedAt  *time.Time `json:"approved_at,omitempty"`
	ApprovedBy  *int64     `json:"approved_by,omitempty"`
}

type RequestPage struct {
	Items    []RewardRequest `json:"items"`
	Total    int64           `json:"total"`
	Page     int             `json:"page"`
	PageSize int             `json:"page_size"`
}

type Approval struct {
	Request     RewardRequest `json:"request"`
	Transaction Transaction   `json:"transaction"`
	Balance     int64         `json:"balance"`
}
