package service

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/qazasd2518995/racing-bet-core/internal/settlement/rebate"
	"github.com/qazasd2518995/racing-bet-core/internal/settlement/repo"
)

// fakeRepo simula a transação de liquidação em memória, incluindo o
// comportamento de "segunda chamada vê zero linhas".
type fakeRepo struct {
	bets      []repo.Bet
	settled   map[int64]bool
	credits   map[string]int64 // um crédito agregado por cliente
	stakesErr error
}

func newFakeRepo(bets ...repo.Bet) *fakeRepo {
	return &fakeRepo{bets: bets, settled: map[int64]bool{}, credits: map[string]int64{}}
}

func (f *fakeRepo) SettleRound(_ context.Context, round string, judge repo.Judge) (*repo.SettleOutcome, error) {
	out := &repo.SettleOutcome{}
	wins := map[string]int64{}
	for _, b := range f.bets {
		if b.Round != round || f.settled[b.ID] {
			continue
		}
		won, winCents, _ := judge(b)
		if won {
			out.WinCount++
			if winCents > 0 {
				out.TotalWinCents += winCents
				wins[b.Username] += winCents
			}
		}
		f.settled[b.ID] = true
		out.SettledCount++
	}
	for user, cents := range wins {
		f.credits[user] += cents
	}
	return out, nil
}

func (f *fakeRepo) StakeTotalsByCustomer(_ context.Context, round string) ([]repo.CustomerStake, error) {
	if f.stakesErr != nil {
		return nil, f.stakesErr
	}
	totals := map[string]int64{}
	for _, b := range f.bets {
		if b.Round == round && f.settled[b.ID] {
			totals[b.Username] += b.AmountCents
		}
	}
	var out []repo.CustomerStake
	for user, cents := range totals {
		out = append(out, repo.CustomerStake{Username: user, StakeCents: cents})
	}
	return out, nil
}

type fakeAllocator struct {
	calls   []string
	failFor string
}

func (f *fakeAllocator) Allocate(_ context.Context, customer, _ string, _ int64) (*rebate.Allocation, error) {
	f.calls = append(f.calls, customer)
	if customer == f.failFor {
		return nil, errors.New("agency down")
	}
	return &rebate.Allocation{}, nil
}

func bet(id int64, user, betType, betValue string, position int, stakeCents int64) repo.Bet {
	return repo.Bet{ID: id, Username: user, Round: "202401", BetType: betType,
		BetValue: betValue, Position: position, AmountCents: stakeCents}
}

var drawJSON = []byte(`{"positions":[7,3,9,2,4,8,1,10,5,6]}`)

func TestSettleRound(t *testing.T) {
	r := newFakeRepo(
		bet(1, "alice", "number", "7", 1, 10000),    // posição 1 abriu 7: ganha 985.00
		bet(2, "alice", "champion", "small", 0, 5000), // campeão 7 é grande: perde
		bet(3, "bob", "sum", "10", 0, 2000),         // soma 10: ganha 2000*5.37
		bet(4, "bob", "lucky_color", "red", 0, 1000), // tipo desconhecido: perde
	)
	alloc := &fakeAllocator{}
	s := NewSettler(zap.NewNop(), r, alloc)

	sum, err := s.SettleRound(context.Background(), "202401", drawJSON)
	require.NoError(t, err)

	assert.Equal(t, 4, sum.SettledCount)
	assert.Equal(t, 2, sum.WinCount)
	assert.Equal(t, int64(98500+10740), sum.TotalWinCents)

	// Um crédito agregado por cliente
	assert.Equal(t, int64(98500), r.credits["alice"])
	assert.Equal(t, int64(10740), r.credits["bob"])

	// Rebate disparado para cada cliente com apostas liquidadas
	assert.ElementsMatch(t, []string{"alice", "bob"}, alloc.calls)
	assert.Equal(t, 2, sum.RebateAttempts)
	assert.Equal(t, 0, sum.RebateFailures)
}

func TestSettleRoundIdempotent(t *testing.T) {
	r := newFakeRepo(bet(1, "alice", "number", "7", 1, 10000))
	s := NewSettler(zap.NewNop(), r, &fakeAllocator{})

	first, err := s.SettleRound(context.Background(), "202401", drawJSON)
	require.NoError(t, err)
	assert.Equal(t, 1, first.SettledCount)

	creditAfterFirst := r.credits["alice"]

	second, err := s.SettleRound(context.Background(), "202401", drawJSON)
	require.NoError(t, err)
	assert.Equal(t, 0, second.SettledCount)
	assert.Equal(t, int64(0), second.TotalWinCents)
	assert.Equal(t, creditAfterFirst, r.credits["alice"]) // saldo intocado
}

func TestSettleRoundMalformedResultAborts(t *testing.T) {
	r := newFakeRepo(bet(1, "alice", "number", "7", 1, 10000))
	s := NewSettler(zap.NewNop(), r, &fakeAllocator{})

	_, err := s.SettleRound(context.Background(), "202401", []byte(`{"positions":[1,2]}`))
	require.Error(t, err)
	assert.False(t, r.settled[1]) // nenhuma mutação
}

func TestProcessRebatesStakeTotalsFailure(t *testing.T) {
	r := newFakeRepo(bet(1, "alice", "number", "7", 1, 10000))
	r.stakesErr = errors.New("pg down")
	s := NewSettler(zap.NewNop(), r, &fakeAllocator{})

	_, _, err := s.ProcessRebates(context.Background(), "202401")
	assert.Error(t, err) // distinguível de "rodada sem stakes"
}

func TestSettleRoundStakeFailureCountsAsRebateFailure(t *testing.T) {
	r := newFakeRepo(bet(1, "alice", "number", "7", 1, 10000))
	r.stakesErr = errors.New("pg down")
	alloc := &fakeAllocator{}
	s := NewSettler(zap.NewNop(), r, alloc)

	sum, err := s.SettleRound(context.Background(), "202401", drawJSON)
	require.NoError(t, err) // liquidação já commitada não desfaz
	assert.Equal(t, 1, sum.SettledCount)
	assert.Equal(t, 0, sum.RebateAttempts)
	assert.Equal(t, 1, sum.RebateFailures)
	assert.Empty(t, alloc.calls)
}

func TestSettleRoundRebateFailureIsIsolated(t *testing.T) {
	r := newFakeRepo(
		bet(1, "alice", "number", "7", 1, 10000),
		bet(2, "bob", "number", "3", 2, 10000),
	)
	alloc := &fakeAllocator{failFor: "alice"}
	s := NewSettler(zap.NewNop(), r, alloc)

	sum, err := s.SettleRound(context.Background(), "202401", drawJSON)
	require.NoError(t, err) // falha de rebate não falha a liquidação
	assert.Equal(t, 2, sum.SettledCount)
	assert.Equal(t, 2, sum.RebateAttempts)
	assert.Equal(t, 1, sum.RebateFailures)
	assert.ElementsMatch(t, []string{"alice", "bob"}, alloc.calls)
}
