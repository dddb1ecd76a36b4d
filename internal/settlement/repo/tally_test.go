package repo

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func tallyBet(id int64, user string, stakeCents int64) Bet {
	return Bet{ID: id, Username: user, Round: "202401", AmountCents: stakeCents,
		MemberID: 10, BalanceCents: 50000}
}

func TestRoundTally(t *testing.T) {
	t.Run("derrota grava won=false sem crédito", func(t *testing.T) {
		tally := newRoundTally(1)
		tally.add(tallyBet(1, "alice", 1000), false, 0)

		assert.Equal(t, 1, tally.outcome.SettledCount)
		assert.Equal(t, 0, tally.outcome.WinCount)
		assert.Empty(t, tally.credits)
		require.Len(t, tally.values, 1)
		assert.Equal(t, "(1, false, 0)", tally.values[0])
	})

	t.Run("vitória gera crédito agregado por cliente", func(t *testing.T) {
		tally := newRoundTally(2)
		tally.add(tallyBet(1, "alice", 1000), true, 9850)
		tally.add(tallyBet(2, "alice", 2000), true, 19700)

		assert.Equal(t, 2, tally.outcome.WinCount)
		assert.Equal(t, int64(29550), tally.outcome.TotalWinCents)
		require.Contains(t, tally.credits, "alice")
		assert.Equal(t, int64(29550), tally.credits["alice"].winCents)
		assert.Equal(t, 2, tally.credits["alice"].winBets)
	})

	t.Run("vitória com prêmio zero persiste won=true sem crédito", func(t *testing.T) {
		tally := newRoundTally(1)
		tally.add(tallyBet(1, "alice", 1000), true, 0)

		assert.Equal(t, 1, tally.outcome.WinCount)
		assert.Equal(t, int64(0), tally.outcome.TotalWinCents)
		assert.Empty(t, tally.credits)
		require.Len(t, tally.values, 1)
		assert.Equal(t, "(1, true, 0)", tally.values[0])
	})
}
