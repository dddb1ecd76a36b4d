package dto

import "encoding/json"

type SettleRoundRequest struct {
	Round string `json:"round"`
	// Resultado bruto do sorteio; formato varia por fornecedor e é
	// normalizado pelo núcleo
	Result json.RawMessage `json:"result"`
}

type ProcessRebatesRequest struct {
	Round string `json:"round"`
}
