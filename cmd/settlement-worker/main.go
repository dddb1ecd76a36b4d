package main

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	kafkago "github.com/segmentio/kafka-go"
	"go.uber.org/zap"

	"github.com/qazasd2518995/racing-bet-core/internal/settlement/agency"
	"github.com/qazasd2518995/racing-bet-core/internal/settlement/engine"
	"github.com/qazasd2518995/racing-bet-core/internal/settlement/rebate"
	srepo "github.com/qazasd2518995/racing-bet-core/internal/settlement/repo"
	"github.com/qazasd2518995/racing-bet-core/internal/settlement/service"
	sharedcache "github.com/qazasd2518995/racing-bet-core/internal/shared/cache"
	"github.com/qazasd2518995/racing-bet-core/internal/shared/config"
	"github.com/qazasd2518995/racing-bet-core/internal/shared/db"
	"github.com/qazasd2518995/racing-bet-core/internal/shared/kafka"
	"github.com/qazasd2518995/racing-bet-core/internal/shared/logger"
	ev "github.com/qazasd2518995/racing-bet-core/pkg/contracts/events"
)

func main() {
	cfg := config.Load()
	log, err := logger.New(cfg.ServiceName, cfg.Env)
	if err != nil {
		panic(err)
	}
	defer log.Sync()

	// Conexão com Postgres para a transação de liquidação
	pg, err := db.ConnectPostgres(cfg.PostgresDSN)
	if err != nil {
		log.Fatal("postgres connect", zap.Error(err))
	}
	defer pg.Close()

	// Redis para cache da cadeia de agentes
	redisClient, err := sharedcache.ConnectRedis(cfg.RedisAddr)
	if err != nil {
		log.Fatal("redis connect", zap.Error(err))
	}
	defer redisClient.Close()

	// Kafka consumer: consome eventos draw_results (consumer group settlement-worker)
	reader := kafka.NewReader(cfg.KafkaBrokers, cfg.TopicDrawResults, "settlement-worker")
	defer reader.Close()

	// Kafka producer: publica round_settled e, opcionalmente, envia para DLQ
	settledWriter := kafka.NewWriter(cfg.KafkaBrokers, cfg.TopicRoundSettled)
	defer settledWriter.Close()

	var dlqWriter *kafkago.Writer
	if cfg.TopicDrawResultsDLQ != "" {
		dlqWriter = kafka.NewWriter(cfg.KafkaBrokers, cfg.TopicDrawResultsDLQ)
		defer dlqWriter.Close()
	}

	// Métricas Prometheus para monitoramento da liquidação
	consumed := prometheus.NewCounter(prometheus.CounterOpts{Name: "settlement_rounds_consumed_total", Help: "rodadas consumidas"})
	settled := prometheus.NewCounter(prometheus.CounterOpts{Name: "settlement_bets_settled_total", Help: "apostas liquidadas"})
	rebateFail := prometheus.NewCounter(prometheus.CounterOpts{Name: "settlement_rebate_failures_total", Help: "créditos de rebate com falha"})
	errorsBy := prometheus.NewCounterVec(prometheus.CounterOpts{Name: "settlement_errors_total", Help: "erros por estágio"}, []string{"stage"})
	prometheus.MustRegister(consumed, settled, rebateFail, errorsBy)

	// Monta o motor de liquidação
	agencyClient := agency.New(log, cfg.AgencyBaseURL, redisClient, time.Duration(cfg.AgentChainCacheTTL)*time.Second)
	allocator := rebate.NewAllocator(log, agencyClient, agencyClient)
	repo := srepo.NewPostgres(pg)
	settler := service.NewSettler(log, repo, allocator)

	// Servidor HTTP para métricas e health check
	go func() {
		mux := http.NewServeMux()
		mux.Handle("/metrics", promhttp.Handler())
		mux.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
			ctx, cancel := context.WithTimeout(r.Context(), 500*time.Millisecond)
			defer cancel()
			if err := pg.PingContext(ctx); err != nil {
				http.Error(w, "pg", http.StatusServiceUnavailable)
				return
			}
			if err := redisClient.Ping(ctx).Err(); err != nil {
				http.Error(w, "redis", http.StatusServiceUnavailable)
				return
			}
			w.WriteHeader(http.StatusOK)
			_, _ = w.Write([]byte("ok"))
		})
		addr := ":" + cfg.MetricsPort
		log.Info("metrics/health listening", zap.String("addr", addr))
		_ = http.ListenAndServe(addr, mux)
	}()

	// Sinalização para shutdown gracioso (SIGINT/SIGTERM)
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	log.Info("settlement-worker started",
		zap.String("consume", cfg.TopicDrawResults),
		zap.String("publish", cfg.TopicRoundSettled),
		zap.Int("workers", cfg.SettlementWorkers),
	)

	// Pool de workers: rodadas distintas liquidam em paralelo; a transação
	// usa SKIP LOCKED, então dois workers na mesma rodada não se bloqueiam.
	workers := cfg.SettlementWorkers
	if workers < 1 {
		workers = 1
	}
	msgs := make(chan kafkago.Message)
	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for msg := range msgs {
				handleOne(ctx, log, settler, settledWriter, dlqWriter, msg,
					func(n int) { consumed.Inc(); settled.Add(float64(n)) },
					func(n int) { rebateFail.Add(float64(n)) },
					func(stage string) { errorsBy.WithLabelValues(stage).Inc() },
				)
			}
		}()
	}

	// Loop principal: lê do Kafka e despacha para o pool
	for {
		msg, err := reader.ReadMessage(ctx)
		if err != nil {
			if ctx.Err() != nil {
				break
			}
			log.Warn("kafka read", zap.Error(err))
			time.Sleep(time.Second)
			continue
		}
		select {
		case msgs <- msg:
		case <-ctx.Done():
		}
		if ctx.Err() != nil {
			break
		}
	}

	close(msgs)
	wg.Wait()
	log.Info("settlement-worker stopped")
}

// handleOne liquida uma rodada a partir do evento draw_results:
// 1. Decodifica o evento
// 2. Roda a liquidação (com retry para falhas transitórias)
// 3. Resultado malformado ou esgotamento de retries vai para a DLQ
// 4. Publica round_settled no Kafka
func handleOne(
	ctx context.Context,
	log *zap.Logger,
	settler *service.Settler,
	settledWriter *kafkago.Writer,
	dlqWriter *kafkago.Writer,
	msg kafkago.Message,
	onSettled func(n int),
	onRebateFail func(n int),
	onError func(stage string),
) {
	var published ev.DrawResultPublished
	if jerr := json.Unmarshal(msg.Value, &published); jerr != nil {
		log.Error("unmarshal draw_results", zap.Error(jerr))
		onError("decode")
		if dlqWriter != nil {
			_ = kafka.WriteJSON(ctx, dlqWriter, string(msg.Key), msg.Value)
		}
		return
	}
	if published.Round == "" {
		log.Error("draw_results sem rodada")
		onError("decode")
		return
	}

	sum, err := settler.SettleRound(ctx, published.Round, published.Result)
	if err != nil {
		if errors.Is(err, engine.ErrMalformedResult) {
			// Sem retry: o payload nunca vai melhorar
			onError("normalize")
			if dlqWriter != nil {
				_ = kafka.WriteJSON(ctx, dlqWriter, published.Round, msg.Value)
			}
			return
		}
		// Retry simples: tenta até 3 vezes antes de enviar para DLQ
		const retries = 3
		for i := 0; i < retries && err != nil; i++ {
			time.Sleep(time.Duration(300*(i+1)) * time.Millisecond)
			sum, err = settler.SettleRound(ctx, published.Round, published.Result)
		}
		if err != nil {
			log.Error("settle round", zap.String("round", published.Round), zap.Error(err))
			onError("settle")
			if dlqWriter != nil {
				_ = kafka.WriteJSON(ctx, dlqWriter, published.Round, msg.Value)
			}
			return
		}
	}

	onSettled(sum.SettledCount)
	if sum.RebateFailures > 0 {
		onRebateFail(sum.RebateFailures)
	}

	evs := ev.RoundSettled{
		Round:          sum.Round,
		SettledCount:   sum.SettledCount,
		WinCount:       sum.WinCount,
		TotalWinCents:  sum.TotalWinCents,
		RebateAttempts: sum.RebateAttempts,
		RebateFailures: sum.RebateFailures,
		Ts:             time.Now(),
	}
	b, _ := json.Marshal(evs)
	if err := kafka.WriteJSON(ctx, settledWriter, sum.Round, b); err != nil {
		log.Warn("publish round_settled", zap.String("round", sum.Round), zap.Error(err))
		onError("publish")
	}
}
