package topics

const (
	// Sorteios
	DrawResults = "draw_results"

	// Liquidação
	RoundSettled = "round_settled"

	// DLQs
	DrawResultsDLQ = "draw_results_dlq"
)
