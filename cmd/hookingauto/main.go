package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/nats-io/nats.go"

	"github.com/wonhyungLee/hookingauto/internal/api"
	"github.com/wonhyungLee/hookingauto/internal/exchange"
	"github.com/wonhyungLee/hookingauto/internal/hedge"
	"github.com/wonhyungLee/hookingauto/internal/publisher"
	"github.com/wonhyungLee/hookingauto/internal/rate"
	"github.com/wonhyungLee/hookingauto/internal/sizing"
	"github.com/wonhyungLee/hookingauto/internal/submit"
	"github.com/wonhyungLee/hookingauto/internal/trade"
	"github.com/wonhyungLee/hookingauto/pkg/config"
	"github.com/wonhyungLee/hookingauto/pkg/logger"
	"github.com/wonhyungLee/hookingauto/pkg/model"
	"github.com/wonhyungLee/hookingauto/pkg/utils"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// --- Load configuration ---
	cfg := config.Load()

	logger.Init(cfg.ServiceName, cfg.Env, cfg.LogLevel)
	defer logger.Sync()
	logg := logger.S()
	logg.Info("starting [hookingauto]...")
	logg.Info("connection to DSN: ", utils.MaskDSN(cfg.DatabaseURL))
	logg.Infow("exchange credentials loaded",
		"binance_key", utils.MaskKey(cfg.Binance.APIKey),
		"upbit_key", utils.MaskKey(cfg.Upbit.APIKey))

	// --- NATS + publisher (optional) ---
	var pub *publisher.Publisher
	var nc *nats.Conn
	if cfg.NATSURL != "" {
		var err error
		nc, err = nats.Connect(cfg.NATSURL)
		if err != nil {
			logg.Fatalw("failed to connect to NATS", "error", err)
		}
		pub, err = publisher.New(nc, cfg.ServiceName)
		if err != nil {
			logg.Fatalw("failed to init publisher", "error", err)
		}
	} else {
		logg.Warn("NATS_URL not set; outcome events disabled")
	}

	// --- Position ledger ---
	var (
		ledger      hedge.Ledger
		pgLedger    *hedge.PostgresLedger
		storeHealth api.HealthChecker
	)
	if cfg.DatabaseURL != "" {
		var err error
		pgLedger, err = hedge.NewPostgresLedger(ctx, cfg.DatabaseURL, hedge.PGPoolConfig{
			MaxConns:          int32(cfg.PGMaxConns),
			MinConns:          int32(cfg.PGMinConns),
			MaxConnLifetime:   cfg.PGMaxConnLifetime,
			MaxConnIdleTime:   cfg.PGMaxConnIdleTime,
			HealthCheckPeriod: cfg.PGHealthCheckPeriod,
		}, logger.L())
		if err != nil {
			logg.Fatalw("failed to init position ledger", "error", err)
		}
		ledger = pgLedger
		storeHealth = pgLedger
	} else {
		logg.Warn("DATABASE_URL not set; using in-memory position ledger")
		ledger = hedge.NewMemoryLedger()
	}

	// --- Rate limiter ---
	rateMgr := rate.NewManager(rate.Config{
		RequestsPerSecond: cfg.RateRequestsPerSecond,
		Burst:             cfg.RateBurst,
	})

	// --- Exchange gateways ---
	exchanges := exchange.NewRegistry()
	exchanges.Register("BINANCE", model.MarketSpot,
		exchange.NewBinanceSpot(cfg.Binance, cfg.ExchangeSandbox, rateMgr, logger.L()))
	exchanges.Register("BINANCE", model.MarketLinear,
		exchange.NewBinanceUSDM(cfg.Binance, cfg.ExchangeSandbox, rateMgr, logger.L()))
	exchanges.Register("BINANCE", model.MarketCoinM,
		exchange.NewBinanceCoinM(cfg.Binance, cfg.ExchangeSandbox, rateMgr, logger.L()))
	exchanges.Register("UPBIT", model.MarketSpot,
		exchange.NewUpbit(cfg.Upbit, rateMgr, logger.L()))

	// --- Execution pipeline ---
	resolver := sizing.NewResolver(logger.L())
	submitter := submit.NewRetrySubmitter(cfg.RetryDelay, logger.L())
	executor := trade.NewExecutor(exchanges, resolver, submitter, logger.L())
	coordinator := hedge.NewCoordinator(executor, ledger,
		cfg.HedgeDomesticExchange, cfg.HedgeDomesticQuote, logger.L())

	// --- Fiber HTTP server ---
	app := fiber.New(fiber.Config{
		ReadTimeout:  cfg.HTTPReadTimeout,
		WriteTimeout: cfg.HTTPWriteTimeout,
		IdleTimeout:  cfg.HTTPIdleTimeout,
		BodyLimit:    cfg.HTTPBodyLimit,
	})

	handler := api.NewHandler(logger.L(), executor, coordinator, exchanges, pub)
	api.RegisterRoutes(app, handler, pub, storeHealth)

	go func() {
		logg.Infof("HTTP API listening on :%d", cfg.Port)
		if err := app.Listen(fmt.Sprintf(":%d", cfg.Port)); err != nil {
			logg.Fatalw("fiber.listen_failed", "error", err)
		}
	}()

	logg.Infow("[hookingauto] running",
		"env", cfg.Env,
		"nats", cfg.NATSURL,
		"domestic_exchange", cfg.HedgeDomesticExchange,
		"domestic_quote", cfg.HedgeDomesticQuote,
		"sandbox", cfg.ExchangeSandbox,
		"exchanges", exchanges.Exchanges())

	<-ctx.Done()
	logg.Info("shutting down [hookingauto]...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := app.ShutdownWithContext(shutdownCtx); err != nil {
		logg.Warnw("fiber.shutdown_failed", "error", err)
	}
	if nc != nil {
		if err := nc.Drain(); err != nil {
			logg.Warnw("nats.drain_failed", "error", err)
		}
	}
	if pgLedger != nil {
		pgLedger.Close()
	}
}
