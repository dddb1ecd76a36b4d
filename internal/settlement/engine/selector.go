package engine

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
)

// Family é a união fechada das famílias de aposta suportadas.
// A avaliação faz switch exaustivo sobre este tipo; aposta que não
// parseia para uma família conhecida nunca chega ao avaliador.
type Family int

const (
	FamilyNumber      Family = iota // número exato em uma posição
	FamilyTwoSides                  // grande/pequeno/ímpar/par em uma posição
	FamilySumExact                  // valor exato da soma campeão+vice
	FamilySumTwoSides               // grande/pequeno/ímpar/par sobre a soma
	FamilyHeadToHead                // dragão/tigre entre duas posições
)

// Side é o lado de uma aposta de dois lados.
type Side int

const (
	SideBig Side = iota
	SideSmall
	SideOdd
	SideEven
)

// Selector é uma aposta já parseada para sua família, pronta para avaliação.
type Selector struct {
	Family Family

	Rank   int  // FamilyNumber / FamilyTwoSides: posição 1..10
	Number int  // FamilyNumber: número apostado
	Side   Side // FamilyTwoSides / FamilySumTwoSides

	Sum int // FamilySumExact: soma apostada (3..19)

	RankA  int  // FamilyHeadToHead
	RankB  int  // FamilyHeadToHead
	Dragon bool // FamilyHeadToHead: true = aposta que RankA > RankB
}

// Posições por alias de tipo de aposta. Os fornecedores gravam tanto os
// nomes em inglês quanto em chinês.
var positionAliases = map[string]int{
	"champion": 1, "冠軍": 1, "冠军": 1,
	"runnerup": 2, "亞軍": 2, "亚军": 2,
	"third": 3, "季軍": 3, "季军": 3, "第三名": 3,
	"fourth": 4, "第四名": 4,
	"fifth": 5, "第五名": 5,
	"sixth": 6, "第六名": 6,
	"seventh": 7, "第七名": 7,
	"eighth": 8, "第八名": 8,
	"ninth": 9, "第九名": 9,
	"tenth": 10, "第十名": 10,
}

var sideAliases = map[string]Side{
	"big": SideBig, "大": SideBig,
	"small": SideSmall, "小": SideSmall,
	"odd": SideOdd, "單": SideOdd, "单": SideOdd,
	"even": SideEven, "雙": SideEven, "双": SideEven,
}

var digitsRe = regexp.MustCompile(`^\d+$`)

// ParseSelector converte os campos persistidos de uma aposta
// (bet_type, bet_value, position) em um Selector tipado.
// Combinações não reconhecidas retornam erro; a liquidação registra a
// aposta como perdida com o motivo, sem abortar o lote.
func ParseSelector(betType, betValue string, position int) (Selector, error) {
	betType = strings.TrimSpace(betType)
	betValue = strings.TrimSpace(betValue)

	// 1. Aposta de número por posição explícita
	if betType == "number" {
		if position < 1 || position > 10 {
			return Selector{}, fmt.Errorf("posição inválida: %d", position)
		}
		n, err := strconv.Atoi(betValue)
		if err != nil {
			return Selector{}, fmt.Errorf("número apostado inválido: %q", betValue)
		}
		return Selector{Family: FamilyNumber, Rank: position, Number: n}, nil
	}

	// 2. Aposta por alias de posição: número ou dois lados
	if rank, ok := positionAliases[betType]; ok {
		if digitsRe.MatchString(betValue) {
			n, _ := strconv.Atoi(betValue)
			return Selector{Family: FamilyNumber, Rank: rank, Number: n}, nil
		}
		if side, ok := sideAliases[betValue]; ok {
			return Selector{Family: FamilyTwoSides, Rank: rank, Side: side}, nil
		}
		return Selector{}, fmt.Errorf("valor de aposta desconhecido: %s %q", betType, betValue)
	}

	// 3. Dois lados com posição embutida no valor: "3_big"
	if betType == "two_sides" || betType == "兩面" || betType == "两面" {
		parts := strings.SplitN(betValue, "_", 2)
		if len(parts) == 2 {
			rank, err := strconv.Atoi(parts[0])
			if err == nil && rank >= 1 && rank <= 10 {
				if side, ok := sideAliases[parts[1]]; ok {
					return Selector{Family: FamilyTwoSides, Rank: rank, Side: side}, nil
				}
			}
		}
		return Selector{}, fmt.Errorf("aposta de dois lados inválida: %q", betValue)
	}

	// 4. Soma campeão+vice: valor exato ou dois lados
	if betType == "sum" || betType == "sumValue" || betType == "冠亞和" || betType == "冠亚和" {
		if digitsRe.MatchString(betValue) {
			sum, _ := strconv.Atoi(betValue)
			if sum < 3 || sum > 19 {
				return Selector{}, fmt.Errorf("soma fora do intervalo: %d", sum)
			}
			return Selector{Family: FamilySumExact, Sum: sum}, nil
		}
		if side, ok := sideAliases[betValue]; ok {
			return Selector{Family: FamilySumTwoSides, Side: side}, nil
		}
		return Selector{}, fmt.Errorf("valor de soma desconhecido: %q", betValue)
	}

	// 5. Dragão/tigre entre duas posições
	if isHeadToHeadType(betType) {
		return parseHeadToHead(betValue)
	}

	return Selector{}, fmt.Errorf("tipo de aposta desconhecido: %s %q", betType, betValue)
}

func isHeadToHeadType(betType string) bool {
	switch betType {
	case "dragon_tiger", "dragonTiger", "龍虎", "龙虎":
		return true
	}
	return strings.Contains(betType, "dragon") || strings.Contains(betType, "tiger") ||
		strings.Contains(betType, "_vs_") || strings.Contains(betType, "龍") || strings.Contains(betType, "虎")
}

// parseHeadToHead aceita os formatos "dragon_1_10", "tiger_4_7",
// "1_vs_10" e o legado "1_10" (lado dragão implícito).
func parseHeadToHead(betValue string) (Selector, error) {
	var a, b int
	var dragon bool
	var err error

	switch {
	case strings.HasPrefix(betValue, "dragon_"), strings.HasPrefix(betValue, "tiger_"):
		parts := strings.Split(betValue, "_")
		if len(parts) != 3 {
			return Selector{}, fmt.Errorf("formato dragão/tigre inválido: %q", betValue)
		}
		dragon = parts[0] == "dragon"
		if a, err = strconv.Atoi(parts[1]); err != nil {
			return Selector{}, fmt.Errorf("posição inválida em %q", betValue)
		}
		if b, err = strconv.Atoi(parts[2]); err != nil {
			return Selector{}, fmt.Errorf("posição inválida em %q", betValue)
		}

	case strings.Contains(betValue, "_vs_"):
		parts := strings.SplitN(betValue, "_vs_", 2)
		dragon = true
		if a, err = strconv.Atoi(parts[0]); err != nil {
			return Selector{}, fmt.Errorf("posição inválida em %q", betValue)
		}
		if b, err = strconv.Atoi(parts[1]); err != nil {
			return Selector{}, fmt.Errorf("posição inválida em %q", betValue)
		}

	default:
		parts := strings.Split(betValue, "_")
		if len(parts) < 2 {
			return Selector{}, fmt.Errorf("formato dragão/tigre inválido: %q", betValue)
		}
		if a, err = strconv.Atoi(parts[0]); err != nil {
			return Selector{}, fmt.Errorf("posição inválida em %q", betValue)
		}
		if b, err = strconv.Atoi(parts[1]); err != nil {
			return Selector{}, fmt.Errorf("posição inválida em %q", betValue)
		}
		dragon = len(parts) < 3 || parts[2] != "tiger"
	}

	if a < 1 || a > 10 || b < 1 || b > 10 || a == b {
		return Selector{}, fmt.Errorf("posições dragão/tigre inválidas: %q", betValue)
	}
	return Selector{Family: FamilyHeadToHead, RankA: a, RankB: b, Dragon: dragon}, nil
}
