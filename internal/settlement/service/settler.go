package service

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/qazasd2518995/racing-bet-core/internal/settlement/engine"
	"github.com/qazasd2518995/racing-bet-core/internal/settlement/rebate"
	"github.com/qazasd2518995/racing-bet-core/internal/settlement/repo"
)

// SettlementRepo é a persistência usada pelo liquidador.
type SettlementRepo interface {
	SettleRound(ctx context.Context, round string, judge repo.Judge) (*repo.SettleOutcome, error)
	StakeTotalsByCustomer(ctx context.Context, round string) ([]repo.CustomerStake, error)
}

// RebateAllocator distribui a comissão pós-liquidação.
type RebateAllocator interface {
	Allocate(ctx context.Context, customer, round string, stakeCents int64) (*rebate.Allocation, error)
}

// Summary é o retorno estruturado de uma liquidação de rodada.
type Summary struct {
	Round          string
	SettledCount   int
	WinCount       int
	TotalWinCents  int64
	RebateAttempts int
	RebateFailures int
}

// Settler é o motor único de liquidação: normaliza o resultado, roda a
// transação de liquidação e dispara a distribuição de rebate como passo
// obrigatório pós-commit (best-effort: falha de rebate não desfaz a
// liquidação e é seguro reprocessar).
type Settler struct {
	log     *zap.Logger
	repo    SettlementRepo
	rebates RebateAllocator
}

func NewSettler(log *zap.Logger, r SettlementRepo, rb RebateAllocator) *Settler {
	return &Settler{log: log, repo: r, rebates: rb}
}

// SettleRound liquida uma rodada contra o resultado bruto do sorteio.
// Resultado que não normaliza aborta sem nenhuma mutação (retry seguro).
func (s *Settler) SettleRound(ctx context.Context, round string, rawResult []byte) (*Summary, error) {
	res, err := engine.Normalize(rawResult)
	if err != nil {
		return nil, err
	}

	judge := func(b repo.Bet) (bool, int64, string) {
		sel, perr := engine.ParseSelector(b.BetType, b.BetValue, b.Position)
		if perr != nil {
			// Aposta malformada vira derrota, nunca aborta o lote
			s.log.Warn("unparseable bet settled as loss",
				zap.Int64("betId", b.ID),
				zap.String("betType", b.BetType),
				zap.String("betValue", b.BetValue),
				zap.Error(perr))
			return false, 0, perr.Error()
		}
		ev := engine.Evaluate(sel, res, b.Odds)
		if !ev.Won {
			return false, 0, ev.Reason
		}
		return true, engine.WinAmountCents(b.AmountCents, ev.Odds), ev.Reason
	}

	out, err := s.repo.SettleRound(ctx, round, judge)
	if err != nil {
		return nil, err
	}

	summary := &Summary{
		Round:         round,
		SettledCount:  out.SettledCount,
		WinCount:      out.WinCount,
		TotalWinCents: out.TotalWinCents,
	}

	s.log.Info("round settled",
		zap.String("round", round),
		zap.Int("settled", out.SettledCount),
		zap.Int("wins", out.WinCount),
		zap.Int64("total_win_cents", out.TotalWinCents))

	// Rebate roda depois do commit; falha aqui é isolada por cliente,
	// logada e reprocessável via ProcessRebates
	if out.SettledCount > 0 {
		attempts, failures, rerr := s.ProcessRebates(ctx, round)
		summary.RebateAttempts = attempts
		summary.RebateFailures = failures
		if rerr != nil {
			// Falha antes de qualquer alocação conta como falha de rebate
			// para não passar por "rodada sem stakes"
			summary.RebateFailures++
			s.log.Error("rebate processing failed", zap.String("round", round), zap.Error(rerr))
		}
	}

	return summary, nil
}

// ProcessRebates distribui o rebate de todos os clientes de uma rodada
// já liquidada. Idempotente: clientes já pagos são pulados pela guarda.
// Falha na leitura dos stakes retorna erro; "rodada sem stakes" retorna
// (0, 0, nil).
func (s *Settler) ProcessRebates(ctx context.Context, round string) (attempts, failures int, err error) {
	stakes, err := s.repo.StakeTotalsByCustomer(ctx, round)
	if err != nil {
		return 0, 0, fmt.Errorf("stake totals %s: %w", round, err)
	}

	for _, cs := range stakes {
		attempts++
		if _, aerr := s.rebates.Allocate(ctx, cs.Username, round, cs.StakeCents); aerr != nil {
			failures++
			s.log.Error("rebate allocation failed",
				zap.String("round", round),
				zap.String("customer", cs.Username),
				zap.Error(aerr))
		}
	}
	return attempts, failures, nil
}
