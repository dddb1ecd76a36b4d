package repo

import "time"

// Bet é a aposta persistida, carregada junto com a conta do apostador
// (join com members) para a liquidação.
type Bet struct {
	ID          int64
	Username    string
	Round       string
	BetType     string
	BetValue    string
	Position    int // 0 quando o tipo não usa posição explícita
	AmountCents int64
	Odds        float64 // odd gravada na colocação; 0 se ausente

	// Campos da conta do apostador (lidos sob lock na mesma transação)
	MemberID     int64
	BalanceCents int64
	MarketType   string // "A" ou "D"
}

// LedgerEntry é uma linha imutável da trilha de auditoria de saldo.
type LedgerEntry struct {
	ID                 int64
	UserType           string // "member" | "agent" | "platform"
	UserID             int64
	Kind               string // "win", "rebate", "transfer_in", ...
	AmountCents        int64
	BalanceBeforeCents int64
	BalanceAfterCents  int64
	Round              string
	Description        string
	CreatedAt          time.Time
}

// SettleOutcome é o resultado da liquidação de uma rodada.
type SettleOutcome struct {
	SettledCount  int
	WinCount      int
	TotalWinCents int64
}

// CustomerStake é o total apostado por um cliente em uma rodada,
// insumo do cálculo de rebate.
type CustomerStake struct {
	Username   string
	StakeCents int64
}
