package events

import "time"

// Evento emitido pelo settlement-worker após liquidar uma rodada.
type RoundSettled struct {
	Round          string    `json:"round"`
	SettledCount   int       `json:"settledCount"`
	WinCount       int       `json:"winCount"`
	TotalWinCents  int64     `json:"total_win_cents"`
	RebateAttempts int       `json:"rebateAttempts,omitempty"`
	RebateFailures int       `json:"rebateFailures,omitempty"`
	Ts             time.Time `json:"ts"`
}
