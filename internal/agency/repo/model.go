package repo

import "github.com/shopspring/decimal"

// Agent é um nó da hierarquia de agência. A árvore tem uma raiz por
// categoria de mercado; parent_id nulo marca a raiz.
type Agent struct {
	ID           int64
	Username     string
	ParentID     *int64
	Level        int
	RebatePct    decimal.Decimal
	MarketType   string // "A" ou "D"
	BalanceCents int64
}

// ChainAgent é um elo da cadeia de um membro, do agente direto à raiz.
type ChainAgent struct {
	ID         int64
	Username   string
	Level      int
	RebatePct  decimal.Decimal
	MarketType string
}

// Adjustment é o resultado de uma mutação de saldo pela primitiva de ledger.
type Adjustment struct {
	BeforeCents int64
	AfterCents  int64
}
