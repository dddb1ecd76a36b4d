package dto

import "github.com/shopspring/decimal"

type ChainAgentResponse struct {
	ID         int64           `json:"id"`
	Username   string          `json:"username"`
	Level      int             `json:"level"`
	RebatePct  decimal.Decimal `json:"rebate_percentage"`
	MarketType string          `json:"market_type"`
}

type ChainResponse struct {
	Success    bool                 `json:"success"`
	Message    string               `json:"message,omitempty"`
	AgentChain []ChainAgentResponse `json:"agentChain"`
}

type RebateExistsResponse struct {
	Success bool `json:"success"`
	Exists  bool `json:"exists"`
}

type AllocateRebateRequest struct {
	AgentID        int64  `json:"agentId"`
	AmountCents    int64  `json:"amount_cents"`
	MemberUsername string `json:"memberUsername"`
	BetAmountCents int64  `json:"bet_amount_cents"`
	Round          string `json:"round"`
}

type PlatformResidualRequest struct {
	AmountCents    int64  `json:"amount_cents"`
	MemberUsername string `json:"memberUsername"`
	Round          string `json:"round"`
}

type AdjustBalanceRequest struct {
	AccountType string `json:"accountType"` // "agent" | "member"
	AccountID   int64  `json:"accountId"`
	DeltaCents  int64  `json:"delta_cents"`
	Kind        string `json:"kind"` // "deposit", "withdraw", ...
	Round       string `json:"round,omitempty"`
	Description string `json:"description,omitempty"`
}

type AdjustBalanceResponse struct {
	Success            bool  `json:"success"`
	BalanceBeforeCents int64 `json:"balance_before_cents"`
	BalanceAfterCents  int64 `json:"balance_after_cents"`
}

type TransferRequest struct {
	FromType    string `json:"fromType"` // "agent" | "member"
	FromID      int64  `json:"fromId"`
	ToType      string `json:"toType"`
	ToID        int64  `json:"toId"`
	AmountCents int64  `json:"amount_cents"`
	Description string `json:"description,omitempty"`
}

type TransferResponse struct {
	Success    bool   `json:"success"`
	TransferID string `json:"transferId"`
}

type SetRebatePctRequest struct {
	AgentID   int64           `json:"agentId"`
	RebatePct decimal.Decimal `json:"rebate_percentage"`
}

type GenericResponse struct {
	Success bool   `json:"success"`
	Message string `json:"message,omitempty"`
}
