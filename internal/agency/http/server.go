package http

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/qazasd2518995/racing-bet-core/internal/agency/dto"
	"github.com/qazasd2518995/racing-bet-core/internal/agency/repo"
)

// Repo define a interface de operações da agência usadas pelo handler HTTP
type Repo interface {
	AgentChain(ctx context.Context, memberUsername string) ([]repo.ChainAgent, error)
	RebateExists(ctx context.Context, round, memberUsername string) (bool, error)
	CreditRebate(ctx context.Context, agentID, amountCents int64, memberUsername string, stakeCents int64, round, idemKey string) error
	RecordPlatformResidual(ctx context.Context, amountCents int64, memberUsername, round, idemKey string) error
	AdjustBalance(ctx context.Context, accountType string, accountID, deltaCents int64, kind, round, description string) (*repo.Adjustment, error)
	Transfer(ctx context.Context, fromType string, fromID int64, toType string, toID, amountCents int64, description string) (transferID string, err error)
	SetRebatePct(ctx context.Context, agentID int64, pct decimal.Decimal) error
}

// Server expõe os endpoints HTTP do serviço de agência
type Server struct {
	log  *zap.Logger
	repo Repo
}

// NewServer instancia o servidor HTTP de agência
func NewServer(log *zap.Logger, repo Repo) *Server { return &Server{log: log, repo: repo} }

// Router retorna o mux HTTP com as rotas da API de agência
func (s *Server) Router() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/internal/member-agent-chain", s.memberAgentChain) // GET ?username=...
	mux.HandleFunc("/internal/rebate-exists", s.rebateExists)          // GET ?round=...&username=...
	mux.HandleFunc("/internal/allocate-rebate", s.allocateRebate)      // POST
	mux.HandleFunc("/internal/platform-residual", s.platformResidual)  // POST
	mux.HandleFunc("/internal/adjust-balance", s.adjustBalance)        // POST
	mux.HandleFunc("/transfers", s.transfer)                           // POST
	mux.HandleFunc("/agents/rebate-pct", s.setRebatePct)               // POST
	return mux
}

// memberAgentChain resolve a cadeia de agentes de um membro, do agente
// direto à raiz da categoria de mercado
func (s *Server) memberAgentChain(w http.ResponseWriter, r *http.Request) {
	username := r.URL.Query().Get("username")
	if username == "" {
		http.Error(w, "username required", http.StatusBadRequest)
		return
	}
	chain, err := s.repo.AgentChain(r.Context(), username)
	if err != nil {
		if errors.Is(err, repo.ErrNotFound) {
			writeJSON(w, dto.ChainResponse{Success: false, Message: "member not found"})
			return
		}
		s.log.Error("agent chain", zap.String("username", username), zap.Error(err))
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	resp := dto.ChainResponse{Success: true, AgentChain: make([]dto.ChainAgentResponse, 0, len(chain))}
	for _, a := range chain {
		resp.AgentChain = append(resp.AgentChain, dto.ChainAgentResponse{
			ID:         a.ID,
			Username:   a.Username,
			Level:      a.Level,
			RebatePct:  a.RebatePct,
			MarketType: a.MarketType,
		})
	}
	writeJSON(w, resp)
}

// rebateExists informa se a rodada já tem rebate registrado para o membro
func (s *Server) rebateExists(w http.ResponseWriter, r *http.Request) {
	round := r.URL.Query().Get("round")
	username := r.URL.Query().Get("username")
	if round == "" || username == "" {
		http.Error(w, "round and username required", http.StatusBadRequest)
		return
	}
	exists, err := s.repo.RebateExists(r.Context(), round, username)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	writeJSON(w, dto.RebateExistsResponse{Success: true, Exists: exists})
}

// allocateRebate credita o rebate de um agente para a rodada. A operação é
// idempotente pela chave Idempotency-Key da requisição e por
// (rodada, membro, agente); repetições respondem success sem novo crédito.
func (s *Server) allocateRebate(w http.ResponseWriter, r *http.Request) {
	var req dto.AllocateRebateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "bad json", http.StatusBadRequest)
		return
	}
	if req.AgentID <= 0 || req.AmountCents <= 0 || req.MemberUsername == "" || req.Round == "" {
		http.Error(w, "invalid payload", http.StatusBadRequest)
		return
	}
	err := s.repo.CreditRebate(r.Context(), req.AgentID, req.AmountCents, req.MemberUsername,
		req.BetAmountCents, req.Round, r.Header.Get("Idempotency-Key"))
	if err != nil {
		if errors.Is(err, repo.ErrNotFound) {
			writeJSON(w, dto.GenericResponse{Success: false, Message: "agent not found"})
			return
		}
		s.log.Error("allocate rebate",
			zap.Int64("agentId", req.AgentID),
			zap.String("round", req.Round),
			zap.Error(err))
		writeJSON(w, dto.GenericResponse{Success: false, Message: err.Error()})
		return
	}
	writeJSON(w, dto.GenericResponse{Success: true})
}

// platformResidual registra no ledger a sobra do pool de rebate que fica
// com a plataforma
func (s *Server) platformResidual(w http.ResponseWriter, r *http.Request) {
	var req dto.PlatformResidualRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "bad json", http.StatusBadRequest)
		return
	}
	if req.AmountCents <= 0 || req.MemberUsername == "" || req.Round == "" {
		http.Error(w, "invalid payload", http.StatusBadRequest)
		return
	}
	if err := s.repo.RecordPlatformResidual(r.Context(), req.AmountCents, req.MemberUsername,
		req.Round, r.Header.Get("Idempotency-Key")); err != nil {
		s.log.Error("platform residual", zap.String("round", req.Round), zap.Error(err))
		writeJSON(w, dto.GenericResponse{Success: false, Message: err.Error()})
		return
	}
	writeJSON(w, dto.GenericResponse{Success: true})
}

// adjustBalance aplica a primitiva de ajuste de saldo em uma conta:
// depósitos e retiradas administrativas, com linha de ledger na mesma
// transação
func (s *Server) adjustBalance(w http.ResponseWriter, r *http.Request) {
	var req dto.AdjustBalanceRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "bad json", http.StatusBadRequest)
		return
	}
	if req.AccountID <= 0 || req.DeltaCents == 0 || req.Kind == "" {
		http.Error(w, "invalid payload", http.StatusBadRequest)
		return
	}
	adj, err := s.repo.AdjustBalance(r.Context(), req.AccountType, req.AccountID,
		req.DeltaCents, req.Kind, req.Round, req.Description)
	if err != nil {
		if errors.Is(err, repo.ErrInsufficientFunds) {
			http.Error(w, "insufficient funds", http.StatusConflict)
			return
		}
		if errors.Is(err, repo.ErrNotFound) {
			http.Error(w, "account not found", http.StatusNotFound)
			return
		}
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	writeJSON(w, dto.AdjustBalanceResponse{
		Success:            true,
		BalanceBeforeCents: adj.BeforeCents,
		BalanceAfterCents:  adj.AfterCents,
	})
}

// transfer move pontos entre duas contas (agente ou membro) de forma atômica
func (s *Server) transfer(w http.ResponseWriter, r *http.Request) {
	var req dto.TransferRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "bad json", http.StatusBadRequest)
		return
	}
	if req.FromID <= 0 || req.ToID <= 0 || req.AmountCents <= 0 {
		http.Error(w, "invalid payload", http.StatusBadRequest)
		return
	}
	transferID, err := s.repo.Transfer(r.Context(), req.FromType, req.FromID, req.ToType, req.ToID, req.AmountCents, req.Description)
	if err != nil {
		if errors.Is(err, repo.ErrInsufficientFunds) {
			http.Error(w, "insufficient funds", http.StatusConflict)
			return
		}
		if errors.Is(err, repo.ErrNotFound) {
			http.Error(w, "account not found", http.StatusNotFound)
			return
		}
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	writeJSON(w, dto.TransferResponse{Success: true, TransferID: transferID})
}

// setRebatePct altera o percentual de rebate de um agente, limitado ao
// percentual do agente pai
func (s *Server) setRebatePct(w http.ResponseWriter, r *http.Request) {
	var req dto.SetRebatePctRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "bad json", http.StatusBadRequest)
		return
	}
	if req.AgentID <= 0 {
		http.Error(w, "invalid payload", http.StatusBadRequest)
		return
	}
	if err := s.repo.SetRebatePct(r.Context(), req.AgentID, req.RebatePct); err != nil {
		if errors.Is(err, repo.ErrInvalidPct) {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		if errors.Is(err, repo.ErrNotFound) {
			http.Error(w, "agent not found", http.StatusNotFound)
			return
		}
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	writeJSON(w, dto.GenericResponse{Success: true})
}

// writeJSON serializa e envia resposta JSON
func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(v)
}
