package engine

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseSelector(t *testing.T) {
	tests := []struct {
		name     string
		betType  string
		betValue string
		position int
		want     Selector
	}{
		{"número por posição explícita", "number", "7", 3,
			Selector{Family: FamilyNumber, Rank: 3, Number: 7}},
		{"número via alias champion", "champion", "5", 0,
			Selector{Family: FamilyNumber, Rank: 1, Number: 5}},
		{"número via alias chinês", "第十名", "2", 0,
			Selector{Family: FamilyNumber, Rank: 10, Number: 2}},
		{"dois lados em inglês", "runnerup", "big", 0,
			Selector{Family: FamilyTwoSides, Rank: 2, Side: SideBig}},
		{"dois lados em chinês", "季軍", "單", 0,
			Selector{Family: FamilyTwoSides, Rank: 3, Side: SideOdd}},
		{"dois lados com posição no valor", "two_sides", "7_small", 0,
			Selector{Family: FamilyTwoSides, Rank: 7, Side: SideSmall}},
		{"soma exata", "sum", "11", 0,
			Selector{Family: FamilySumExact, Sum: 11}},
		{"soma dois lados", "sumValue", "even", 0,
			Selector{Family: FamilySumTwoSides, Side: SideEven}},
		{"soma em chinês", "冠亞和", "大", 0,
			Selector{Family: FamilySumTwoSides, Side: SideBig}},
		{"dragão formato novo", "dragon_tiger", "dragon_1_10", 0,
			Selector{Family: FamilyHeadToHead, RankA: 1, RankB: 10, Dragon: true}},
		{"tigre formato novo", "dragonTiger", "tiger_4_7", 0,
			Selector{Family: FamilyHeadToHead, RankA: 4, RankB: 7, Dragon: false}},
		{"dragão formato vs", "龍虎", "1_vs_10", 0,
			Selector{Family: FamilyHeadToHead, RankA: 1, RankB: 10, Dragon: true}},
		{"dragão formato legado", "dragon_tiger", "2_9", 0,
			Selector{Family: FamilyHeadToHead, RankA: 2, RankB: 9, Dragon: true}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseSelector(tt.betType, tt.betValue, tt.position)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestParseSelectorRejects(t *testing.T) {
	tests := []struct {
		name     string
		betType  string
		betValue string
		position int
	}{
		{"tipo desconhecido", "lucky_color", "red", 0},
		{"posição fora do intervalo", "number", "7", 11},
		{"número não numérico", "number", "abc", 3},
		{"lado desconhecido", "champion", "medium", 0},
		{"soma fora da tabela", "sum", "25", 0},
		{"dragão contra si mesmo", "dragon_tiger", "dragon_3_3", 0},
		{"dragão posição inválida", "dragon_tiger", "dragon_0_11", 0},
		{"dois lados malformado", "two_sides", "big", 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParseSelector(tt.betType, tt.betValue, tt.position)
			assert.Error(t, err)
		})
	}
}
