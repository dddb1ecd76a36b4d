package engine

import (
	"fmt"

	"github.com/shopspring/decimal"
)

// Odds padrão do mercado A, usadas quando a aposta não gravou odds na
// colocação. Valores herdados da tabela oficial do jogo.
const (
	NumberOdds   = 9.85
	TwoSidesOdds = 1.985
)

// Tabela de odds para soma exata campeão+vice. Simétrica em torno de 10/11.
var sumOdds = map[int]float64{
	3: 43.00, 4: 21.50, 5: 14.33, 6: 10.75, 7: 8.60,
	8: 7.16, 9: 6.14, 10: 5.37, 11: 5.37, 12: 6.14,
	13: 7.16, 14: 8.60, 15: 10.75, 16: 14.33, 17: 21.50,
	18: 43.00, 19: 86.00,
}

// Evaluation é o veredito de uma aposta contra um resultado canônico.
type Evaluation struct {
	Won    bool
	Odds   float64
	Reason string
}

// Evaluate decide vitória/derrota de um Selector contra o resultado.
// recordedOdds é a odd gravada na colocação da aposta; quando ausente
// (<= 0) usa o padrão da família.
func Evaluate(sel Selector, res *Result, recordedOdds float64) Evaluation {
	switch sel.Family {
	case FamilyNumber:
		drawn := res.Positions[sel.Rank-1]
		return Evaluation{
			Won:    drawn == sel.Number,
			Odds:   pickOdds(recordedOdds, NumberOdds),
			Reason: fmt.Sprintf("posição %d abriu %d, aposta %d", sel.Rank, drawn, sel.Number),
		}

	case FamilyTwoSides:
		drawn := res.Positions[sel.Rank-1]
		return Evaluation{
			Won:    sideHits(sel.Side, drawn, 6),
			Odds:   pickOdds(recordedOdds, TwoSidesOdds),
			Reason: fmt.Sprintf("posição %d abriu %d (%s)", sel.Rank, drawn, sideName(drawn, 6)),
		}

	case FamilySumExact:
		sum := res.Positions[0] + res.Positions[1]
		return Evaluation{
			Won:    sum == sel.Sum,
			Odds:   pickOdds(recordedOdds, sumOdds[sel.Sum]),
			Reason: fmt.Sprintf("soma campeão+vice abriu %d, aposta %d", sum, sel.Sum),
		}

	case FamilySumTwoSides:
		// Na soma, grande é >= 12
		sum := res.Positions[0] + res.Positions[1]
		return Evaluation{
			Won:    sideHits(sel.Side, sum, 12),
			Odds:   pickOdds(recordedOdds, TwoSidesOdds),
			Reason: fmt.Sprintf("soma campeão+vice abriu %d (%s)", sum, sideName(sum, 12)),
		}

	case FamilyHeadToHead:
		a := res.Positions[sel.RankA-1]
		b := res.Positions[sel.RankB-1]
		// Valores são distintos, então empate é impossível
		won := (sel.Dragon && a > b) || (!sel.Dragon && a < b)
		winner := "dragão"
		if a < b {
			winner = "tigre"
		}
		return Evaluation{
			Won:    won,
			Odds:   pickOdds(recordedOdds, TwoSidesOdds),
			Reason: fmt.Sprintf("posição %d (%d) vs posição %d (%d): %s venceu", sel.RankA, a, sel.RankB, b, winner),
		}
	}

	// Inalcançável com Selector vindo de ParseSelector
	return Evaluation{Won: false, Odds: 0, Reason: "família de aposta inválida"}
}

// WinAmountCents calcula o prêmio em centavos: stake × odds arredondado
// a 2 casas. Odds ausente ou não positiva zera o prêmio mesmo com vitória.
func WinAmountCents(stakeCents int64, odds float64) int64 {
	if odds <= 0 {
		return 0
	}
	return decimal.NewFromInt(stakeCents).
		Mul(decimal.NewFromFloat(odds)).
		Round(0).
		IntPart()
}

// SumOdds retorna a odd de tabela para uma soma exata (0 se fora da tabela).
func SumOdds(sum int) float64 { return sumOdds[sum] }

func pickOdds(recorded, def float64) float64 {
	if recorded > 0 {
		return recorded
	}
	return def
}

// sideHits testa o valor sorteado contra o lado apostado.
// bigFrom é o menor valor considerado "grande" (6 por posição, 12 na soma).
func sideHits(side Side, value, bigFrom int) bool {
	switch side {
	case SideBig:
		return value >= bigFrom
	case SideSmall:
		return value < bigFrom
	case SideOdd:
		return value%2 == 1
	case SideEven:
		return value%2 == 0
	}
	return false
}

func sideName(value, bigFrom int) string {
	if value >= bigFrom {
		return "grande"
	}
	return "pequeno"
}
