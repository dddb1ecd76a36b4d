package events

import (
	"encoding/json"
	"time"
)

// Evento publicado quando o resultado de uma rodada é divulgado.
// Payload mantém o resultado bruto (formato varia por fornecedor);
// a normalização acontece no núcleo de liquidação.
type DrawResultPublished struct {
	Round  string          `json:"round"`
	Result json.RawMessage `json:"result"`
	Ts     time.Time       `json:"ts"`
}
