package rebate

import (
	"context"
	"fmt"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// ChainAgent é um elo da cadeia de agentes de um cliente, do agente
// direto até a raiz.
type ChainAgent struct {
	ID         int64
	Username   string
	Level      int
	RebatePct  decimal.Decimal // fração retida configurada (ex: 0.005)
	MarketType string          // "A" ou "D"
}

// ChainResolver resolve a cadeia de agentes de um cliente.
// Cruza a fronteira de serviço; lentidão ou falha aqui nunca corrompe a
// liquidação já commitada.
type ChainResolver interface {
	AgentChain(ctx context.Context, customer string) ([]ChainAgent, error)
}

// AgentLedger é a porta de crédito no ledger dos agentes.
type AgentLedger interface {
	// HasRebate informa se já existe lançamento de rebate para
	// rodada+cliente: a guarda de idempotência contra pagamento duplicado.
	HasRebate(ctx context.Context, round, customer string) (bool, error)
	CreditRebate(ctx context.Context, agentID int64, amountCents int64, customer string, stakeCents int64, round string) error
	// RecordPlatformResidual lança a sobra retida pela plataforma,
	// para que o pool inteiro fique contabilizado na trilha.
	RecordPlatformResidual(ctx context.Context, amountCents int64, customer, round string) error
}

// Pools de rebate por categoria de mercado: fração fixa do stake.
var (
	marketCapA = decimal.NewFromFloat(0.011) // mercado A: 1.1%
	marketCapD = decimal.NewFromFloat(0.041) // demais: 4.1%

	centEpsilon = decimal.NewFromFloat(0.01)
	oneHundred  = decimal.NewFromInt(100)
)

// Share é um crédito individual decidido pela alocação.
type Share struct {
	AgentID     int64
	Username    string
	AmountCents int64
}

// Allocation é o desfecho da alocação de rebate de um cliente/rodada.
type Allocation struct {
	Skipped          bool // guarda de idempotência acionada
	PoolCents        int64
	Shares           []Share
	PlatformCents    int64
	CreditsAttempted int
}

// Allocator distribui o pool de comissão pela cadeia de agentes via
// regra de diferença de teto: cada agente recebe só o incremento entre
// sua fração configurada e o que já foi consumido abaixo dele.
type Allocator struct {
	log    *zap.Logger
	chain  ChainResolver
	ledger AgentLedger
}

func NewAllocator(log *zap.Logger, chain ChainResolver, ledger AgentLedger) *Allocator {
	return &Allocator{log: log, chain: chain, ledger: ledger}
}

// MarketCap retorna a fração do pool para a categoria de mercado.
func MarketCap(marketType string) decimal.Decimal {
	if marketType == "A" {
		return marketCapA
	}
	return marketCapD
}

// Allocate distribui o rebate de um cliente em uma rodada.
// Chamada uma vez por cliente por rodada; segura para ser repetida
// graças à guarda de idempotência.
func (a *Allocator) Allocate(ctx context.Context, customer, round string, stakeCents int64) (*Allocation, error) {
	exists, err := a.ledger.HasRebate(ctx, round, customer)
	if err != nil {
		return nil, fmt.Errorf("rebate guard %s/%s: %w", round, customer, err)
	}
	if exists {
		a.log.Info("rebate already allocated, skipping",
			zap.String("round", round), zap.String("customer", customer))
		return &Allocation{Skipped: true}, nil
	}

	chain, err := a.chain.AgentChain(ctx, customer)
	if err != nil {
		return nil, fmt.Errorf("resolve chain %s: %w", customer, err)
	}
	if len(chain) == 0 {
		// Cliente sem agente: pool inteiro fica com a plataforma, sem lançamento
		a.log.Info("customer has no agent chain, pool stays with platform",
			zap.String("customer", customer))
		return &Allocation{}, nil
	}

	stake := decimal.NewFromInt(stakeCents).Div(oneHundred)
	poolCap := MarketCap(chain[0].MarketType)
	pool := stake.Mul(poolCap).Round(2)

	alloc := &Allocation{PoolCents: toCents(pool)}
	remaining := pool
	consumed := decimal.Zero

	for _, agent := range chain {
		if remaining.LessThanOrEqual(centEpsilon) {
			break
		}
		pct := agent.RebatePct
		if pct.LessThanOrEqual(decimal.Zero) {
			// Agente não retém nada; a fração sobe intacta
			continue
		}

		share := pct.Sub(consumed)
		if share.LessThanOrEqual(decimal.Zero) {
			// Fração já consumida pelos níveis abaixo
			continue
		}

		amount := stake.Mul(share).Round(2)
		if agent.RebatePct.GreaterThanOrEqual(poolCap) {
			// Agente com fração no teto absorve tudo que restou
			amount = remaining
		}
		if amount.GreaterThan(remaining) {
			amount = remaining
		}

		amountCents := toCents(amount)
		if amountCents > 0 {
			alloc.CreditsAttempted++
			if err := a.ledger.CreditRebate(ctx, agent.ID, amountCents, customer, stakeCents, round); err != nil {
				return alloc, fmt.Errorf("credit agent %s: %w", agent.Username, err)
			}
			alloc.Shares = append(alloc.Shares, Share{AgentID: agent.ID, Username: agent.Username, AmountCents: amountCents})
			a.log.Info("rebate credited",
				zap.String("round", round),
				zap.String("agent", agent.Username),
				zap.Int64("amount_cents", amountCents))
		}

		remaining = remaining.Sub(amount)
		consumed = consumed.Add(share)

		if agent.RebatePct.GreaterThanOrEqual(poolCap) {
			break
		}
	}

	// Sobra fica com a plataforma, com lançamento explícito para auditoria
	if remaining.GreaterThan(centEpsilon) {
		residual := toCents(remaining)
		alloc.PlatformCents = residual
		if err := a.ledger.RecordPlatformResidual(ctx, residual, customer, round); err != nil {
			return alloc, fmt.Errorf("platform residual %s/%s: %w", round, customer, err)
		}
		a.log.Info("rebate residual retained by platform",
			zap.String("round", round), zap.Int64("amount_cents", residual))
	}

	return alloc, nil
}

func toCents(d decimal.Decimal) int64 {
	return d.Mul(oneHundred).Round(0).IntPart()
}
