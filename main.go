package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	_ "github.com/joho/godotenv/autoload"

	"address-reconciliation/internal/api"
	"address-reconciliation/internal/constants"
	"address-reconciliation/internal/domain"
	"address-reconciliation/internal/infrastructure/repository"
	"address-reconciliation/internal/location"
	"address-reconciliation/internal/matching"
	"address-reconciliation/internal/prompts"
	"address-reconciliation/internal/scanner"
	"address-reconciliation/pkg/config"
	"address-reconciliation/pkg/container"
	"address-reconciliation/pkg/database"
	"address-reconciliation/pkg/health"
	"address-reconciliation/pkg/logging"
	metricsPkg "address-reconciliation/pkg/metrics"
	"address-reconciliation/pkg/monitoring"
)

const version = "1.0.0"

func main() {
	cfg := config.Load()
	if err := cfg.Validate(); err != nil {
		log.Fatal(err)
	}

	c := container.New()
	_ = c.Supply(cfg)

	_ = c.Provide(func(cfg *config.Config) (*logging.Logger, error) {
		lc := logging.DefaultLogConfig()
		lc.Level = logging.ParseLevel(cfg.LogLevel)
		lc.Format = cfg.LogFormat
		if cfg.EnableFileLogging {
			lc.Output = "file"
			lc.FilePath = cfg.LogFile
		}
		return logging.NewLogger(lc)
	}, true)

	_ = c.Provide(func(cfg *config.Config) (*database.DB, error) {
		return database.NewWithConfig(cfg.DatabaseURL, cfg)
	}, true)

	// Creates service_attempts on first start
	_ = c.Provide(func(db *database.DB) (domain.Repository, error) {
		ctx, cancel := context.WithTimeout(context.Background(), constants.EventsSQLTimeoutDefault)
		defer cancel()
		return repository.NewSQLRepository(ctx, db)
	}, true)

	_ = c.Provide(func(cfg *config.Config, repo domain.Repository, logger *logging.Logger) (*matching.Service, error) {
		rules, err := rulesFor(cfg)
		if err != nil {
			return nil, err
		}
		return matching.NewService(repo, rules, cfg.ReconcileConcurrency, logger), nil
	}, true)

	_ = c.Provide(prompts.NewManager, true)

	_ = c.Provide(func(db *database.DB, logger *logging.Logger) *health.Manager {
		hm := health.NewManager(health.Config{Timeout: constants.HealthTimeoutDefault, Version: version}, logger)
		hm.Register(health.DatabaseChecker("database", db))
		return hm
	}, true)

	var (
		logger *logging.Logger
		db     *database.DB
		repo   domain.Repository
		svc    *matching.Service
		hm     *health.Manager
	)
	for _, target := range []any{&logger, &db, &repo, &svc, &hm} {
		if err := c.Resolve(target); err != nil {
			log.Fatal("startup: ", err)
		}
	}
	defer logger.Close()
	defer db.Close()

	mainLog := logger.WithComponent("main")
	mainLog.Info("Starting address reconciliation service",
		logging.String("env", cfg.Env),
		logging.String("version", version))
	mainLog.Debug("Configuration loaded", logging.Any("config", cfg.GetConfigSummary()))
	monitoring.EnableProfiling(cfg.ProfilingEnabled)

	deps := api.Deps{
		Repo:     repo,
		Matching: svc,
		Health:   hm,
		Logger:   logger,
	}

	// Optional integrations stay nil in deps when their key is missing.
	if cfg.GoogleMapsAPIKey != "" {
		geo, err := location.NewGoogleGeolocator(cfg.GoogleMapsAPIKey, cfg.LocationConsiderIP)
		if err != nil {
			log.Fatal("geolocator: ", err)
		}
		deps.Locator = location.NewLocator(geo, cfg.LocationTimeout, logger)
	} else {
		mainLog.Warn("GOOGLE_MAPS_API_KEY not set; location endpoints disabled")
	}
	hm.Register(health.OptionalChecker("location", deps.Locator != nil))

	if cfg.OpenAIAPIKey != "" {
		if err := c.Invoke(func(pm *prompts.Manager) {
			deps.Scanner = scanner.NewOpenAI(cfg.OpenAIAPIKey, pm, scanner.Options{
				Model:       cfg.OpenAIModel,
				Temperature: float32(cfg.OpenAITemperature),
				MaxTokens:   cfg.OpenAIMaxTokens,
				Timeout:     cfg.OpenAITimeout(),
			}, logger)
		}); err != nil {
			log.Fatal("scanner: ", err)
		}
	} else {
		mainLog.Warn("OPENAI_API_KEY not set; scan endpoint disabled")
	}
	hm.Register(health.OptionalChecker("scanner", deps.Scanner != nil))

	// Hot reload of matching rules and batch fan-out
	cw := config.NewWatcher(time.Duration(cfg.ConfigReloadIntervalSeconds) * time.Second)
	cw.Start()
	defer cw.Close()
	go func() {
		for chg := range cw.Subscribe() {
			if chg.Err != nil {
				mainLog.Error("Config reload failed", chg.Err)
				continue
			}
			rules, err := rulesFor(chg.New)
			if err == nil {
				err = svc.SetRules(rules)
			}
			if err != nil {
				mainLog.Error("Matching rules rejected; keeping current rules", err)
			}
			svc.SetConcurrency(chg.New.ReconcileConcurrency)
			mainLog.Info("Config applied", logging.Any("fields", chg.Fields))
		}
	}()

	var recent *monitoring.Recent
	if cfg.MetricsEnabled {
		recent = monitoring.NewRecent(512)
	}
	deps.Recent = recent

	server := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           api.NewRouter(deps),
		ReadHeaderTimeout: constants.HTTPReadHeaderTimeout,
		ReadTimeout:       constants.HTTPReadTimeout,
		WriteTimeout:      constants.HTTPWriteTimeout,
		IdleTimeout:       constants.HTTPIdleTimeout,
	}

	var adminServer *http.Server
	if cfg.ProfilingEnabled || cfg.MetricsEnabled {
		mux := http.NewServeMux()
		if cfg.ProfilingEnabled {
			monitoring.RegisterPprof(mux)
		}
		if cfg.MetricsEnabled {
			mux.Handle(cfg.MetricsPath, metricsPkg.Handler())
			if cfg.MetricsPath != "/metrics.json" {
				mux.Handle("/metrics.json", monitoring.SummaryHandler(recent))
			}
		}
		adminServer = &http.Server{
			Addr:              ":" + cfg.AdminPort,
			Handler:           mux,
			ReadHeaderTimeout: constants.HTTPReadHeaderTimeout,
		}
		go func() {
			mainLog.Info("Admin server (pprof/metrics) starting", logging.String("port", cfg.AdminPort))
			if err := adminServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				mainLog.Error("Admin HTTP server error", err)
			}
		}()
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	serveErr := make(chan error, 1)
	go func() {
		mainLog.Info("Server starting", logging.String("port", cfg.Port))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serveErr <- err
		}
	}()

	select {
	case <-ctx.Done():
		mainLog.Info("Received shutdown signal, initiating graceful shutdown")
	case err := <-serveErr:
		mainLog.Error("HTTP server error", err)
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), constants.GracefulShutdownTimeoutDefault)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		mainLog.Error("HTTP server shutdown error", err)
	}
	if adminServer != nil {
		if err := adminServer.Shutdown(shutdownCtx); err != nil {
			mainLog.Error("Admin HTTP server shutdown error", err)
		}
	}
	mainLog.Info("Application shutdown complete")
}

// rulesFor layers the YAML rules file over the env values in cfg.
func rulesFor(cfg *config.Config) (matching.Rules, error) {
	base := matching.Rules{
		CorroborateWithinFeet: cfg.CorroborateWithinFeet,
		NearMatchSimilarity:   cfg.NearMatchSimilarity,
	}
	if base.Validate() != nil {
		base = matching.DefaultRules()
	}
	return matching.LoadRules(cfg.MatchRulesPath, base)
}
