package main

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/gagliardetto/solana-go/rpc"

	"github.com/qwami-service/qwami_service/internal/api/handlers"
	"github.com/qwami-service/qwami_service/internal/api/routes"
	"github.com/qwami-service/qwami_service/internal/domain/services/balance"
	"github.com/qwami-service/qwami_service/internal/domain/services/conversion"
	"github.com/qwami-service/qwami_service/internal/domain/services/orchestrator"
	"github.com/qwami-service/qwami_service/internal/domain/services/session"
	"github.com/qwami-service/qwami_service/internal/domain/services/treasury"
	"github.com/qwami-service/qwami_service/internal/infrastructure/adapters/solana"
	"github.com/qwami-service/qwami_service/internal/infrastructure/cache"
	"github.com/qwami-service/qwami_service/internal/infrastructure/config"
	"github.com/qwami-service/qwami_service/internal/workers/balance_poller"
	"github.com/qwami-service/qwami_service/pkg/graceful"
	"github.com/qwami-service/qwami_service/pkg/logger"
)

const version = "1.0.0"

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		panic(fmt.Sprintf("Failed to load config: %v", err))
	}

	// Initialize logger
	log := logger.New(cfg.LogLevel, cfg.Environment)
	defer log.Sync()

	// Redis cache; the service degrades to direct RPC reads without it
	var redisClient cache.RedisClient
	var balanceCache *cache.BalanceCache
	redisClient, err = cache.NewRedisClient(&cfg.Redis, log.Zap())
	if err != nil {
		log.Warn("Redis unavailable, running without cache", "error", err)
		redisClient = nil
	} else {
		balanceCache = cache.NewBalanceCache(redisClient)
	}

	// Ledger client
	ledger := solana.NewClient(solana.Config{
		Endpoint:          cfg.Solana.RPCEndpoint,
		Network:           cfg.Solana.Network,
		Commitment:        rpc.CommitmentType(cfg.Solana.Commitment),
		ConfirmTimeout:    time.Duration(cfg.Solana.ConfirmTimeout) * time.Second,
		ConfirmPoll:       time.Duration(cfg.Solana.ConfirmPoll) * time.Millisecond,
		RequestsPerSecond: cfg.Solana.RequestsPerSecond,
	}, log.Zap())

	// Domain services
	balanceService, err := balance.NewService(ledger, balanceCache, balance.Config{
		TokenMint:      cfg.Qwami.TokenMint,
		MintConfigured: cfg.Qwami.MintConfigured(),
	}, log.Zap())
	if err != nil {
		log.Fatal("Failed to create balance service", "error", err)
	}

	treasuryService, err := treasury.NewService(ledger, balanceCache, treasury.Config{
		Network:             cfg.Solana.Network,
		TokenMint:           cfg.Qwami.TokenMint,
		MintConfigured:      cfg.Qwami.MintConfigured(),
		AuthorityKey:        cfg.Qwami.AuthorityKey,
		AuthorityConfigured: cfg.Qwami.AuthorityConfigured(),
		TokenDecimals:       cfg.Qwami.TokenDecimals,
		MaxSupply:           cfg.Qwami.MaxSupply,
		Simulation:          cfg.Qwami.Simulation,
		BasePriceUSD:        cfg.Qwami.BasePriceUSD,
		SolUSDPrice:         cfg.Qwami.SolUSDPrice,
		StakingEnabled:      cfg.Qwami.StakingEnabled,
		DAOEnabled:          cfg.Qwami.DAOEnabled,
	}, log.Zap())
	if err != nil {
		log.Fatal("Failed to create treasury service", "error", err)
	}

	converter := conversion.NewService(conversion.Config{
		BasePriceUSD: cfg.Qwami.BasePriceUSD,
		SolUSDPrice:  cfg.Qwami.SolUSDPrice,
	})

	// Operator wallet; optional, most deployments only serve the
	// treasury-signed surface
	var sessionManager *session.Manager
	var operationService handlers.OperationService
	var sessionService handlers.SessionService
	if cfg.Qwami.WalletKeypair != "" {
		provider, err := session.NewKeypairProvider(cfg.Qwami.WalletKeypair)
		if err != nil {
			log.Fatal("Invalid operator wallet keypair", "error", err)
		}
		sessionManager = session.NewManager(provider, balanceService, log.Zap())
		sessionService = sessionManager

		var authority orchestrator.AuthoritySigner
		if treasuryService.HasAuthority() {
			authority = treasuryService
		}

		operations, err := orchestrator.NewService(ledger, sessionManager, balanceService, converter, authority, orchestrator.Config{
			TokenMint:      cfg.Qwami.TokenMint,
			MintConfigured: cfg.Qwami.MintConfigured(),
			TokenDecimals:  cfg.Qwami.TokenDecimals,
			Simulation:     cfg.Qwami.Simulation,
		}, log.Zap())
		if err != nil {
			log.Fatal("Failed to create operation service", "error", err)
		}
		operationService = operations

		// Connect on boot so the operation surface is immediately usable
		if _, err := sessionManager.Connect(context.Background()); err != nil {
			log.Warn("Operator wallet connect failed at startup", "error", err)
		}
	} else {
		log.Info("No operator wallet configured, serving treasury surface only")
	}

	// HTTP layer
	qwamiHandler := handlers.NewQwamiHandler(
		balanceService,
		treasuryService,
		converter,
		operationService,
		sessionService,
		cfg.Qwami.TokenDecimals,
		log.Zap(),
	)

	var redisPinger handlers.Pinger
	if redisClient != nil {
		redisPinger = redisClient
	}
	healthHandler := handlers.NewHealthHandler(redisPinger, log.Zap(), version)

	router := routes.SetupRoutes(routes.Deps{
		Config: cfg,
		Logger: log,
		Qwami:  qwamiHandler,
		Health: healthHandler,
	})

	server := &http.Server{
		Addr:           fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port),
		Handler:        router,
		ReadTimeout:    time.Duration(cfg.Server.ReadTimeout) * time.Second,
		WriteTimeout:   time.Duration(cfg.Server.WriteTimeout) * time.Second,
		IdleTimeout:    120 * time.Second,
		MaxHeaderBytes: 1 << 20,
	}

	shutdown := graceful.NewShutdownManager(server, log)

	// Background balance poller
	if cfg.Workers.BalancePollEnabled {
		var sessionReader balance_poller.SessionReader
		if sessionManager != nil {
			sessionReader = sessionManager
		}
		poller := balance_poller.NewWorker(
			balanceService,
			sessionReader,
			treasuryService,
			cfg.Workers.BalancePollSchedule,
			log.Zap(),
		)
		if err := poller.Start(); err != nil {
			log.Fatal("Failed to start balance poller", "error", err)
		}
		shutdown.Register(poller)
	}

	if sessionManager != nil {
		shutdown.Register(shutdownFunc(func(time.Duration) error {
			sessionManager.Disconnect(context.Background())
			sessionManager.Close()
			return nil
		}))
	}
	if redisClient != nil {
		shutdown.Register(shutdownFunc(func(time.Duration) error {
			return redisClient.Close()
		}))
	}

	go func() {
		log.Info("Starting server",
			"port", cfg.Server.Port,
			"environment", cfg.Environment,
			"network", cfg.Solana.Network,
			"simulation", cfg.Qwami.Simulation,
		)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal("Failed to start server", "error", err)
		}
	}()

	shutdown.WaitForShutdown()
}

type shutdownFunc func(timeout time.Duration) error

func (f shutdownFunc) Shutdown(timeout time.Duration) error { return f(timeout) }
