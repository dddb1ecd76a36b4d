package engine

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func result(vals ...int) *Result {
	var r Result
	copy(r.Positions[:], vals)
	return &r
}

func TestEvaluateNumber(t *testing.T) {
	res := result(7, 3, 9, 2, 4, 8, 1, 10, 5, 6)

	t.Run("número errado perde", func(t *testing.T) {
		ev := Evaluate(Selector{Family: FamilyNumber, Rank: 3, Number: 7}, res, 0)
		assert.False(t, ev.Won)
		assert.Equal(t, NumberOdds, ev.Odds)
	})

	t.Run("número certo ganha", func(t *testing.T) {
		res2 := result(7, 3, 7, 2, 4, 8, 1, 10, 5, 6)
		ev := Evaluate(Selector{Family: FamilyNumber, Rank: 3, Number: 7}, res2, 0)
		assert.True(t, ev.Won)
		assert.Equal(t, NumberOdds, ev.Odds)
	})

	t.Run("odd gravada na aposta prevalece", func(t *testing.T) {
		ev := Evaluate(Selector{Family: FamilyNumber, Rank: 1, Number: 7}, res, 9.89)
		assert.True(t, ev.Won)
		assert.Equal(t, 9.89, ev.Odds)
	})
}

func TestEvaluateTwoSides(t *testing.T) {
	res := result(7, 3, 9, 2, 4, 8, 1, 10, 5, 6)

	tests := []struct {
		name string
		sel  Selector
		won  bool
	}{
		{"campeão 7 é grande", Selector{Family: FamilyTwoSides, Rank: 1, Side: SideBig}, true},
		{"campeão 7 não é pequeno", Selector{Family: FamilyTwoSides, Rank: 1, Side: SideSmall}, false},
		{"vice 3 é pequeno", Selector{Family: FamilyTwoSides, Rank: 2, Side: SideSmall}, true},
		{"vice 3 é ímpar", Selector{Family: FamilyTwoSides, Rank: 2, Side: SideOdd}, true},
		{"posição 8 abriu 10, par", Selector{Family: FamilyTwoSides, Rank: 8, Side: SideEven}, true},
		{"divisa: 6 é grande", Selector{Family: FamilyTwoSides, Rank: 10, Side: SideBig}, true},
		{"divisa: 5 é pequeno", Selector{Family: FamilyTwoSides, Rank: 9, Side: SideSmall}, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ev := Evaluate(tt.sel, res, 0)
			assert.Equal(t, tt.won, ev.Won)
			assert.Equal(t, TwoSidesOdds, ev.Odds)
		})
	}
}

func TestEvaluateSum(t *testing.T) {
	// soma campeão+vice = 7+3 = 10
	res := result(7, 3, 9, 2, 4, 8, 1, 10, 5, 6)

	t.Run("soma exata certa", func(t *testing.T) {
		ev := Evaluate(Selector{Family: FamilySumExact, Sum: 10}, res, 0)
		assert.True(t, ev.Won)
		assert.Equal(t, 5.37, ev.Odds)
	})

	t.Run("soma exata errada", func(t *testing.T) {
		ev := Evaluate(Selector{Family: FamilySumExact, Sum: 11}, res, 0)
		assert.False(t, ev.Won)
	})

	t.Run("soma 10 é pequena (grande só a partir de 12)", func(t *testing.T) {
		assert.False(t, Evaluate(Selector{Family: FamilySumTwoSides, Side: SideBig}, res, 0).Won)
		assert.True(t, Evaluate(Selector{Family: FamilySumTwoSides, Side: SideSmall}, res, 0).Won)
	})

	t.Run("soma 12 é grande", func(t *testing.T) {
		res2 := result(7, 5, 9, 2, 4, 8, 1, 10, 3, 6)
		assert.True(t, Evaluate(Selector{Family: FamilySumTwoSides, Side: SideBig}, res2, 0).Won)
	})

	t.Run("soma par", func(t *testing.T) {
		assert.True(t, Evaluate(Selector{Family: FamilySumTwoSides, Side: SideEven}, res, 0).Won)
		assert.False(t, Evaluate(Selector{Family: FamilySumTwoSides, Side: SideOdd}, res, 0).Won)
	})

	t.Run("tabela simétrica nos extremos", func(t *testing.T) {
		assert.Equal(t, 43.00, SumOdds(3))
		assert.Equal(t, 43.00, SumOdds(18))
		assert.Equal(t, 86.00, SumOdds(19))
		assert.Equal(t, 0.0, SumOdds(2))
	})
}

func TestEvaluateHeadToHead(t *testing.T) {
	// posição 1 abriu 7, posição 10 abriu 6
	res := result(7, 3, 9, 2, 4, 8, 1, 10, 5, 6)

	t.Run("dragão ganha quando A > B", func(t *testing.T) {
		ev := Evaluate(Selector{Family: FamilyHeadToHead, RankA: 1, RankB: 10, Dragon: true}, res, 0)
		assert.True(t, ev.Won)
	})

	t.Run("tigre perde no mesmo resultado", func(t *testing.T) {
		ev := Evaluate(Selector{Family: FamilyHeadToHead, RankA: 1, RankB: 10, Dragon: false}, res, 0)
		assert.False(t, ev.Won)
	})

	t.Run("tigre ganha quando A < B", func(t *testing.T) {
		ev := Evaluate(Selector{Family: FamilyHeadToHead, RankA: 4, RankB: 7, Dragon: false}, res, 0)
		assert.False(t, ev.Won) // posição 4 abriu 2, posição 7 abriu 1: dragão vence
		ev = Evaluate(Selector{Family: FamilyHeadToHead, RankA: 7, RankB: 4, Dragon: false}, res, 0)
		assert.True(t, ev.Won)
	})
}

func TestWinAmountCents(t *testing.T) {
	t.Run("stake x odds arredondado a centavo", func(t *testing.T) {
		// 1000.00 x 9.85 = 9850.00
		assert.Equal(t, int64(985000), WinAmountCents(100000, NumberOdds))
		// 10.00 x 1.985 = 19.85
		assert.Equal(t, int64(1985), WinAmountCents(1000, TwoSidesOdds))
		// 3.33 x 1.985 = 6.61005 -> 6.61
		assert.Equal(t, int64(661), WinAmountCents(333, TwoSidesOdds))
	})

	t.Run("odds não positiva zera o prêmio", func(t *testing.T) {
		assert.Equal(t, int64(0), WinAmountCents(100000, 0))
		assert.Equal(t, int64(0), WinAmountCents(100000, -1))
	})
}
