package main

import (
	"github.com/redis/go-redis/v9"

	"github.com/coinflow/pss/internal/application/paymentservice"
	"github.com/coinflow/pss/internal/infrastructure/cache"
	"github.com/coinflow/pss/internal/infrastructure/clients"
	"github.com/coinflow/pss/internal/infrastructure/database"
	"github.com/coinflow/pss/internal/repositories/sessionrepo"
	"github.com/coinflow/pss/internal/server"
	"github.com/coinflow/pss/internal/server/websocket"
	"github.com/coinflow/pss/pkg/config"
	"github.com/coinflow/pss/pkg/logger"
)

func main() {
	log := logger.New()

	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to load configuration")
	}

	dbManager, err := database.New(&cfg.Database)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to connect to database")
	}
	defer dbManager.ShutDown()

	rdb := redis.NewClient(&redis.Options{
		Addr:     cfg.Redis.Addr,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})
	defer rdb.Close()

	sessionRepo := sessionrepo.New(dbManager, log)
	exchangeClient := clients.NewExchangeAPIClient(&cfg.ExchangeAPI, log)
	chainObserver := clients.NewChainObserverClient(cfg.ChainObserver, log)
	ratesCache := cache.NewRatesCache(rdb, cfg.Redis.RatesTTL, log)
	wsHub := websocket.NewWsHub(log)

	paymentSvc := paymentservice.New(
		sessionRepo,
		exchangeClient,
		ratesCache,
		chainObserver,
		wsHub,
		cfg.Payment,
		log,
	)

	srv := server.New(cfg, log, paymentSvc, wsHub)
	if err := srv.Start(); err != nil {
		log.Fatal().Err(err).Msg("Server exited with error")
	}
}
