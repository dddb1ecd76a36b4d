package main

import (
	"context"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/qazasd2518995/racing-bet-core/internal/settlement/agency"
	shttp "github.com/qazasd2518995/racing-bet-core/internal/settlement/http"
	"github.com/qazasd2518995/racing-bet-core/internal/settlement/rebate"
	srepo "github.com/qazasd2518995/racing-bet-core/internal/settlement/repo"
	"github.com/qazasd2518995/racing-bet-core/internal/settlement/service"
	"github.com/qazasd2518995/racing-bet-core/internal/shared/cache"
	"github.com/qazasd2518995/racing-bet-core/internal/shared/config"
	"github.com/qazasd2518995/racing-bet-core/internal/shared/db"
	"github.com/qazasd2518995/racing-bet-core/internal/shared/logger"
)

func main() {
	cfg := config.Load()

	// Inicializa logger estruturado
	log, err := logger.New("settlement-service", cfg.Env)
	if err != nil {
		panic(err)
	}
	defer log.Sync()
	log.Info("starting service", zap.String("service", "settlement-service"), zap.String("env", cfg.Env))

	// Conexão com Postgres para a transação de liquidação
	pg, err := db.ConnectPostgres(cfg.PostgresDSN)
	if err != nil {
		log.Fatal("postgres connect", zap.Error(err))
	}
	defer pg.Close()

	// Redis para cache da cadeia de agentes
	redisClient, err := cache.ConnectRedis(cfg.RedisAddr)
	if err != nil {
		log.Fatal("redis connect", zap.Error(err))
	}
	defer redisClient.Close()

	// Cliente do serviço de agência + alocador de rebate + motor de liquidação
	agencyClient := agency.New(log, cfg.AgencyBaseURL, redisClient, time.Duration(cfg.AgentChainCacheTTL)*time.Second)
	allocator := rebate.NewAllocator(log, agencyClient, agencyClient)
	repo := srepo.NewPostgres(pg)
	settler := service.NewSettler(log, repo, allocator)
	api := shttp.NewServer(log, settler, repo)

	// Servidor HTTP interno (API de liquidação)
	apiSrv := &http.Server{
		Addr:    ":" + cfg.HTTPPort, // ex: 8083
		Handler: api.Router(),
	}

	// Servidor de métricas e health check
	metricsMux := http.NewServeMux()
	metricsMux.Handle("/metrics", promhttp.Handler())
	metricsMux.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
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
	metricsSrv := &http.Server{Addr: ":" + cfg.MetricsPort, Handler: metricsMux} // ex: 9099

	// Inicia servidor de métricas/health em goroutine separada
	go func() {
		log.Info("metrics/health listening", zap.String("addr", metricsSrv.Addr))
		if err := metricsSrv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal("metrics srv", zap.Error(err))
		}
	}()

	// Inicia servidor principal da API de liquidação
	log.Info("api listening", zap.String("addr", apiSrv.Addr))
	if err := apiSrv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		log.Fatal("api srv", zap.Error(err))
	}
}
