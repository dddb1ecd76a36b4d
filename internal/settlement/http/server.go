package http

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"go.uber.org/zap"

	"github.com/qazasd2518995/racing-bet-core/internal/settlement/dto"
	"github.com/qazasd2518995/racing-bet-core/internal/settlement/engine"
	"github.com/qazasd2518995/racing-bet-core/internal/settlement/repo"
	"github.com/qazasd2518995/racing-bet-core/internal/settlement/service"
)

// Settler é o motor de liquidação usado pelos handlers.
type Settler interface {
	SettleRound(ctx context.Context, round string, rawResult []byte) (*service.Summary, error)
	ProcessRebates(ctx context.Context, round string) (attempts, failures int, err error)
}

// LedgerReader expõe a trilha de auditoria para reconciliação.
type LedgerReader interface {
	LedgerEntries(ctx context.Context, userType string, userID int64, limit int) ([]repo.LedgerEntry, error)
}

// Server expõe os endpoints HTTP do núcleo de liquidação
type Server struct {
	log     *zap.Logger
	settler Settler
	ledger  LedgerReader
}

// NewServer instancia o servidor HTTP de liquidação
func NewServer(log *zap.Logger, s Settler, l LedgerReader) *Server {
	return &Server{log: log, settler: s, ledger: l}
}

// Router retorna o mux HTTP com as rotas da API de liquidação
func (s *Server) Router() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/internal/settle", s.settleRound)             // POST
	mux.HandleFunc("/internal/rebates/process", s.processRebates) // POST
	mux.HandleFunc("/ledger", s.ledgerEntries)                    // GET ?userType=&userId=
	return mux
}

// settleRound é o ponto de entrada único de liquidação de uma rodada
func (s *Server) settleRound(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	var req dto.SettleRoundRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "bad json", http.StatusBadRequest)
		return
	}
	if req.Round == "" || len(req.Result) == 0 {
		http.Error(w, "invalid payload", http.StatusBadRequest)
		return
	}

	sum, err := s.settler.SettleRound(r.Context(), req.Round, req.Result)
	if err != nil {
		if errors.Is(err, engine.ErrMalformedResult) {
			http.Error(w, err.Error(), http.StatusUnprocessableEntity)
			return
		}
		s.log.Error("settle round", zap.String("round", req.Round), zap.Error(err))
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	writeJSON(w, dto.SettleRoundResponse{
		Round:          sum.Round,
		SettledCount:   sum.SettledCount,
		WinCount:       sum.WinCount,
		TotalWinCents:  sum.TotalWinCents,
		RebateAttempts: sum.RebateAttempts,
		RebateFailures: sum.RebateFailures,
	})
}

// processRebates reprocessa a distribuição de rebate de uma rodada já
// liquidada (seguro: a guarda de idempotência pula clientes já pagos)
func (s *Server) processRebates(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	var req dto.ProcessRebatesRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "bad json", http.StatusBadRequest)
		return
	}
	if req.Round == "" {
		http.Error(w, "round required", http.StatusBadRequest)
		return
	}

	attempts, failures, err := s.settler.ProcessRebates(r.Context(), req.Round)
	if err != nil {
		s.log.Error("process rebates", zap.String("round", req.Round), zap.Error(err))
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	writeJSON(w, dto.ProcessRebatesResponse{Round: req.Round, Attempts: attempts, Failures: failures})
}

// ledgerEntries retorna a trilha de auditoria de uma conta
func (s *Server) ledgerEntries(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	userType := r.URL.Query().Get("userType")
	if userType == "" {
		userType = "member"
	}
	userID, err := strconv.ParseInt(r.URL.Query().Get("userId"), 10, 64)
	if err != nil {
		http.Error(w, "userId required", http.StatusBadRequest)
		return
	}
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))

	entries, err := s.ledger.LedgerEntries(r.Context(), userType, userID, limit)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	out := make([]dto.LedgerEntryResponse, 0, len(entries))
	for _, e := range entries {
		out = append(out, dto.LedgerEntryResponse{
			ID:                 e.ID,
			UserType:           e.UserType,
			UserID:             e.UserID,
			Kind:               e.Kind,
			AmountCents:        e.AmountCents,
			BalanceBeforeCents: e.BalanceBeforeCents,
			BalanceAfterCents:  e.BalanceAfterCents,
			Round:              e.Round,
			Description:        e.Description,
			CreatedAt:          e.CreatedAt,
		})
	}
	writeJSON(w, out)
}

// writeJSON serializa e envia resposta JSON
func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(v)
}
