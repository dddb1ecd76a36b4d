package engine

import (
	"encoding/json"
	"errors"
	"fmt"
)

// ErrMalformedResult indica que o resultado do sorteio não pôde ser
// normalizado; a liquidação da rodada deve abortar sem nenhuma mutação.
var ErrMalformedResult = errors.New("malformed draw result")

// Result é a forma canônica do resultado de uma rodada:
// dez posições ranqueadas, índice 0 = campeão.
type Result struct {
	Positions [10]int
}

// Formatos aceitos pelos fornecedores de resultado. A normalização roda
// antes de qualquer avaliação e não tem efeitos colaterais.
type rawResult struct {
	Positions []int `json:"positions"`
	Result    []int `json:"result"`

	Position1  *int `json:"position_1"`
	Position2  *int `json:"position_2"`
	Position3  *int `json:"position_3"`
	Position4  *int `json:"position_4"`
	Position5  *int `json:"position_5"`
	Position6  *int `json:"position_6"`
	Position7  *int `json:"position_7"`
	Position8  *int `json:"position_8"`
	Position9  *int `json:"position_9"`
	Position10 *int `json:"position_10"`
}

// Normalize converte qualquer formato aceito de resultado em Result canônico.
// Aceita: objeto com "positions", objeto com "result", objeto com
// position_1..position_10, ou array puro de 10 inteiros.
func Normalize(raw []byte) (*Result, error) {
	if len(raw) == 0 {
		return nil, fmt.Errorf("%w: payload vazio", ErrMalformedResult)
	}

	// Array puro: [7,3,9,...]
	var arr []int
	if err := json.Unmarshal(raw, &arr); err == nil {
		return fromSlice(arr)
	}

	var obj rawResult
	if err := json.Unmarshal(raw, &obj); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedResult, err)
	}

	if len(obj.Positions) > 0 {
		return fromSlice(obj.Positions)
	}
	if len(obj.Result) > 0 {
		return fromSlice(obj.Result)
	}
	if obj.Position1 != nil {
		fields := []*int{
			obj.Position1, obj.Position2, obj.Position3, obj.Position4, obj.Position5,
			obj.Position6, obj.Position7, obj.Position8, obj.Position9, obj.Position10,
		}
		vals := make([]int, 0, 10)
		for _, f := range fields {
			if f == nil {
				return nil, fmt.Errorf("%w: campos position_N incompletos", ErrMalformedResult)
			}
			vals = append(vals, *f)
		}
		return fromSlice(vals)
	}

	return nil, fmt.Errorf("%w: nenhum formato reconhecido", ErrMalformedResult)
}

func fromSlice(vals []int) (*Result, error) {
	if len(vals) != 10 {
		return nil, fmt.Errorf("%w: esperadas 10 posições, recebidas %d", ErrMalformedResult, len(vals))
	}
	var r Result
	copy(r.Positions[:], vals)
	return &r, nil
}
