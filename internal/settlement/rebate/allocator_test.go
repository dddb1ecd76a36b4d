package rebate

import (
	"context"
	"errors"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type fakeChain struct {
	agents []ChainAgent
	err    error
}

func (f *fakeChain) AgentChain(_ context.Context, _ string) ([]ChainAgent, error) {
	return f.agents, f.err
}

type fakeLedger struct {
	hasRebate bool
	creditErr error

	credits  []Share
	residual int64
}

func (f *fakeLedger) HasRebate(_ context.Context, _, _ string) (bool, error) {
	return f.hasRebate, nil
}

func (f *fakeLedger) CreditRebate(_ context.Context, agentID, amountCents int64, _ string, _ int64, _ string) error {
	if f.creditErr != nil {
		return f.creditErr
	}
	f.credits = append(f.credits, Share{AgentID: agentID, AmountCents: amountCents})
	return nil
}

func (f *fakeLedger) RecordPlatformResidual(_ context.Context, amountCents int64, _, _ string) error {
	f.residual = amountCents
	return nil
}

func pct(v string) decimal.Decimal { return decimal.RequireFromString(v) }

func agent(id int64, p string, market string) ChainAgent {
	return ChainAgent{ID: id, Username: "ag", RebatePct: pct(p), MarketType: market}
}

func newAllocator(chain *fakeChain, ledger *fakeLedger) *Allocator {
	return NewAllocator(zap.NewNop(), chain, ledger)
}

func TestAllocateDifferentialSplit(t *testing.T) {
	// stake=1000.00, mercado A (pool 1.1% = 11.00),
	// cadeia direto 0.5% -> raiz 1.1%: direto 5.00, raiz 6.00, sobra 0
	chain := &fakeChain{agents: []ChainAgent{agent(1, "0.005", "A"), agent(2, "0.011", "A")}}
	ledger := &fakeLedger{}

	alloc, err := newAllocator(chain, ledger).Allocate(context.Background(), "m1", "202401", 100000)
	require.NoError(t, err)

	require.Len(t, ledger.credits, 2)
	assert.Equal(t, int64(500), ledger.credits[0].AmountCents)
	assert.Equal(t, int64(600), ledger.credits[1].AmountCents)
	assert.Equal(t, int64(1100), alloc.PoolCents)
	assert.Equal(t, int64(0), alloc.PlatformCents)
	assert.Equal(t, int64(0), ledger.residual)
}

func TestAllocatePoolBound(t *testing.T) {
	// Frações mal configuradas (todas no teto) nunca estouram o pool fixo
	chain := &fakeChain{agents: []ChainAgent{
		agent(1, "0.041", "D"), agent(2, "0.041", "D"), agent(3, "0.041", "D"),
	}}
	ledger := &fakeLedger{}

	alloc, err := newAllocator(chain, ledger).Allocate(context.Background(), "m1", "202401", 100000)
	require.NoError(t, err)

	var total int64
	for _, c := range ledger.credits {
		total += c.AmountCents
	}
	// pool D = 4.1% de 1000.00 = 41.00; primeiro agente absorve tudo
	assert.Equal(t, int64(4100), total)
	require.Len(t, ledger.credits, 1)
	assert.Equal(t, int64(1), ledger.credits[0].AgentID)
	assert.Equal(t, int64(4100), alloc.PoolCents)
}

func TestAllocateZeroPctPassesThrough(t *testing.T) {
	// Agente com fração zero não retém nada; nível acima recebe o incremento cheio
	chain := &fakeChain{agents: []ChainAgent{
		agent(1, "0", "A"), agent(2, "0.008", "A"), agent(3, "0.011", "A"),
	}}
	ledger := &fakeLedger{}

	_, err := newAllocator(chain, ledger).Allocate(context.Background(), "m1", "202401", 100000)
	require.NoError(t, err)

	require.Len(t, ledger.credits, 2)
	assert.Equal(t, int64(2), ledger.credits[0].AgentID)
	assert.Equal(t, int64(800), ledger.credits[0].AmountCents) // 0.8% de 1000
	assert.Equal(t, int64(300), ledger.credits[1].AmountCents) // incremento até o teto
}

func TestAllocateConsumedDownstream(t *testing.T) {
	// Fração do nível acima menor que a já consumida abaixo: nada a receber
	chain := &fakeChain{agents: []ChainAgent{
		agent(1, "0.008", "A"), agent(2, "0.005", "A"),
	}}
	ledger := &fakeLedger{}

	alloc, err := newAllocator(chain, ledger).Allocate(context.Background(), "m1", "202401", 100000)
	require.NoError(t, err)

	require.Len(t, ledger.credits, 1)
	assert.Equal(t, int64(800), ledger.credits[0].AmountCents)
	// sobra 11.00 - 8.00 = 3.00 fica com a plataforma, com lançamento
	assert.Equal(t, int64(300), alloc.PlatformCents)
	assert.Equal(t, int64(300), ledger.residual)
}

func TestAllocateEmptyChain(t *testing.T) {
	ledger := &fakeLedger{}
	alloc, err := newAllocator(&fakeChain{}, ledger).Allocate(context.Background(), "m1", "202401", 100000)
	require.NoError(t, err)
	assert.Empty(t, ledger.credits)
	assert.False(t, alloc.Skipped)
	assert.Equal(t, int64(0), ledger.residual)
}

func TestAllocateIdempotencyGuard(t *testing.T) {
	chain := &fakeChain{agents: []ChainAgent{agent(1, "0.011", "A")}}
	ledger := &fakeLedger{hasRebate: true}

	alloc, err := newAllocator(chain, ledger).Allocate(context.Background(), "m1", "202401", 100000)
	require.NoError(t, err)
	assert.True(t, alloc.Skipped)
	assert.Empty(t, ledger.credits)
}

func TestAllocateChainFailureSurfaces(t *testing.T) {
	chain := &fakeChain{err: errors.New("agency unreachable")}
	_, err := newAllocator(chain, &fakeLedger{}).Allocate(context.Background(), "m1", "202401", 100000)
	assert.Error(t, err)
}

func TestAllocateCreditFailureSurfaces(t *testing.T) {
	chain := &fakeChain{agents: []ChainAgent{agent(1, "0.011", "A")}}
	ledger := &fakeLedger{creditErr: errors.New("agency 500")}
	_, err := newAllocator(chain, ledger).Allocate(context.Background(), "m1", "202401", 100000)
	assert.Error(t, err)
}

func TestMarketCap(t *testing.T) {
	assert.True(t, MarketCap("A").Equal(pct("0.011")))
	assert.True(t, MarketCap("D").Equal(pct("0.041")))
	assert.True(t, MarketCap("").Equal(pct("0.041")))
}
