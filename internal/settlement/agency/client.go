package agency

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/qazasd2518995/racing-bet-core/internal/settlement/agency/dto"
	"github.com/qazasd2518995/racing-bet-core/internal/settlement/rebate"
)

const creditRetries = 3

// Client é a porta HTTP para o agency-service: resolução de cadeia de
// agentes e crédito de rebate. Toda chamada tem timeout; créditos levam
// chave de idempotência e retry, então repetir nunca paga em dobro.
type Client struct {
	log     *zap.Logger
	baseURL string
	http    *http.Client

	// Cache Redis da cadeia de agentes; a hierarquia muda raramente e a
	// resolução cruza a fronteira de serviço a cada rodada
	cache    *redis.Client
	cacheTTL time.Duration
}

func New(log *zap.Logger, baseURL string, cache *redis.Client, cacheTTL time.Duration) *Client {
	return &Client{
		log:      log,
		baseURL:  baseURL,
		http:     &http.Client{Timeout: 3 * time.Second},
		cache:    cache,
		cacheTTL: cacheTTL,
	}
}

var _ rebate.ChainResolver = (*Client)(nil)
var _ rebate.AgentLedger = (*Client)(nil)

func chainCacheKey(customer string) string { return "agent_chain:" + customer }

// AgentChain resolve a cadeia de agentes de um cliente, do direto à raiz.
// Cliente sem agente retorna lista vazia, não erro.
func (c *Client) AgentChain(ctx context.Context, customer string) ([]rebate.ChainAgent, error) {
	// Tenta o cache primeiro; falha de cache nunca bloqueia a resolução
	if c.cache != nil {
		if raw, err := c.cache.Get(ctx, chainCacheKey(customer)).Bytes(); err == nil {
			var cached []dto.ChainAgent
			if json.Unmarshal(raw, &cached) == nil {
				return toChain(cached), nil
			}
		}
	}

	u := fmt.Sprintf("%s/internal/member-agent-chain?username=%s", c.baseURL, url.QueryEscape(customer))
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return nil, err
	}
	res, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("agency chain: %w", err)
	}
	defer res.Body.Close()
	if res.StatusCode >= 300 {
		return nil, fmt.Errorf("agency chain http %d", res.StatusCode)
	}

	var out dto.ChainResponse
	if err := json.NewDecoder(res.Body).Decode(&out); err != nil {
		return nil, err
	}
	if !out.Success {
		return nil, fmt.Errorf("agency chain: %s", out.Message)
	}

	if c.cache != nil {
		if raw, err := json.Marshal(out.AgentChain); err == nil {
			if err := c.cache.Set(ctx, chainCacheKey(customer), raw, c.cacheTTL).Err(); err != nil {
				c.log.Warn("agent chain cache set failed", zap.Error(err))
			}
		}
	}

	return toChain(out.AgentChain), nil
}

// HasRebate consulta se já existe lançamento de rebate para rodada+cliente
func (c *Client) HasRebate(ctx context.Context, round, customer string) (bool, error) {
	u := fmt.Sprintf("%s/internal/rebate-exists?round=%s&username=%s",
		c.baseURL, url.QueryEscape(round), url.QueryEscape(customer))
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return false, err
	}
	res, err := c.http.Do(req)
	if err != nil {
		return false, fmt.Errorf("agency rebate-exists: %w", err)
	}
	defer res.Body.Close()
	if res.StatusCode >= 300 {
		return false, fmt.Errorf("agency rebate-exists http %d", res.StatusCode)
	}

	var out dto.RebateExistsResponse
	if err := json.NewDecoder(res.Body).Decode(&out); err != nil {
		return false, err
	}
	return out.Exists, nil
}

// CreditRebate credita um agente com retry e chave de idempotência.
func (c *Client) CreditRebate(ctx context.Context, agentID, amountCents int64, customer string, stakeCents int64, round string) error {
	body, _ := json.Marshal(dto.AllocateRebateRequest{
		AgentID:        agentID,
		AmountCents:    amountCents,
		MemberUsername: customer,
		BetAmountCents: stakeCents,
		Round:          round,
	})
	key := fmt.Sprintf("rebate:%s:%s:%d", round, customer, agentID)
	return c.postWithRetry(ctx, "/internal/allocate-rebate", body, key)
}

// RecordPlatformResidual lança a sobra do pool retida pela plataforma.
func (c *Client) RecordPlatformResidual(ctx context.Context, amountCents int64, customer, round string) error {
	body, _ := json.Marshal(dto.PlatformResidualRequest{
		AmountCents:    amountCents,
		MemberUsername: customer,
		Round:          round,
	})
	key := fmt.Sprintf("residual:%s:%s", round, customer)
	return c.postWithRetry(ctx, "/internal/platform-residual", body, key)
}

func (c *Client) postWithRetry(ctx context.Context, path string, body []byte, idemKey string) error {
	var lastErr error
	for attempt := 0; attempt < creditRetries; attempt++ {
		if attempt > 0 {
			select {
			case <-time.After(time.Duration(300*attempt) * time.Millisecond):
			case <-ctx.Done():
				return ctx.Err()
			}
		}
		lastErr = c.postOnce(ctx, path, body, idemKey)
		if lastErr == nil {
			return nil
		}
		c.log.Warn("agency post failed",
			zap.String("path", path), zap.Int("attempt", attempt+1), zap.Error(lastErr))
	}
	return lastErr
}

func (c *Client) postOnce(ctx context.Context, path string, body []byte, idemKey string) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Idempotency-Key", idemKey)

	res, err := c.http.Do(req)
	if err != nil {
		return err
	}
	defer res.Body.Close()
	if res.StatusCode >= 300 {
		return fmt.Errorf("agency http %d", res.StatusCode)
	}

	var out dto.GenericResponse
	if err := json.NewDecoder(res.Body).Decode(&out); err != nil {
		return err
	}
	if !out.Success {
		return fmt.Errorf("agency: %s", out.Message)
	}
	return nil
}

func toChain(in []dto.ChainAgent) []rebate.ChainAgent {
	out := make([]rebate.ChainAgent, 0, len(in))
	for _, a := range in {
		out = append(out, rebate.ChainAgent{
			ID:         a.ID,
			Username:   a.Username,
			Level:      a.Level,
			RebatePct:  a.RebatePct,
			MarketType: a.MarketType,
		})
	}
	return out
}
