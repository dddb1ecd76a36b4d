package dto

import "github.com/shopspring/decimal"

// ChainAgent é um elo da cadeia retornada pelo agency-service.
type ChainAgent struct {
	ID         int64           `json:"id"`
	Username   string          `json:"username"`
	Level      int             `json:"level"`
	RebatePct  decimal.Decimal `json:"rebate_percentage"`
	MarketType string          `json:"market_type"`
}

type ChainResponse struct {
	Success    bool         `json:"success"`
	Message    string       `json:"message,omitempty"`
	AgentChain []ChainAgent `json:"agentChain"`
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

type GenericResponse struct {
	Success bool   `json:"success"`
	Message string `json:"message,omitempty"`
}
