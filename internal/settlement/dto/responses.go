package dto

import "time"

type SettleRoundResponse struct {
	Round          string `json:"round"`
	SettledCount   int    `json:"settledCount"`
	WinCount       int    `json:"winCount"`
	TotalWinCents  int64  `json:"total_win_cents"`
	RebateAttempts int    `json:"rebateAttempts"`
	RebateFailures int    `json:"rebateFailures"`
}

type ProcessRebatesResponse struct {
	Round    string `json:"round"`
	Attempts int    `json:"attempts"`
	Failures int    `json:"failures"`
}

type LedgerEntryResponse struct {
	ID                 int64     `json:"id"`
	UserType           string    `json:"userType"`
	UserID             int64     `json:"userId"`
	Kind               string    `json:"kind"`
	AmountCents        int64     `json:"amount_cents"`
	BalanceBeforeCents int64     `json:"balance_before_cents"`
	BalanceAfterCents  int64     `json:"balance_after_cents"`
	Round              string    `json:"round,omitempty"`
	Description        string    `json:"description"`
	CreatedAt          time.Time `json:"createdAt"`
}
