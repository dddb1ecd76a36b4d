package main

import (
	"net/http"

	"go.uber.org/zap"

	ahttp "github.com/qazasd2518995/racing-bet-core/internal/agency/http"
	arepo "github.com/qazasd2518995/racing-bet-core/internal/agency/repo"
	"github.com/qazasd2518995/racing-bet-core/internal/shared/config"
	"github.com/qazasd2518995/racing-bet-core/internal/shared/db"
	"github.com/qazasd2518995/racing-bet-core/internal/shared/logger"
	"github.com/qazasd2518995/racing-bet-core/internal/shared/metrics"
)

func main() {
	cfg := config.Load()

	log, err := logger.New("agency-service", cfg.Env)
	if err != nil {
		panic(err)
	}
	defer log.Sync()
	log.Info("starting service", zap.String("service", "agency-service"), zap.String("env", cfg.Env))

	// Conexão com Postgres (hierarquia de agentes + ledger)
	pg, err := db.ConnectPostgres(cfg.PostgresDSN)
	if err != nil {
		log.Fatal("postgres connect", zap.Error(err))
	}
	defer pg.Close()

	repo := arepo.NewPostgres(pg)
	api := ahttp.NewServer(log, repo)

	// Servidor de métricas e health check em porta separada
	metrics.StartMetricsServer(cfg.MetricsPort, pg.PingContext) // ex: 9098
	log.Info("metrics/health listening", zap.String("port", cfg.MetricsPort))

	apiSrv := &http.Server{
		Addr:    ":" + cfg.HTTPPort, // ex: 8084
		Handler: api.Router(),
	}
	log.Info("api listening", zap.String("addr", apiSrv.Addr))
	if err := apiSrv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		log.Fatal("api srv", zap.Error(err))
	}
}
