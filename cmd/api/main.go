package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/xelth-com/agrocampo/internal/access"
	"github.com/xelth-com/agrocampo/internal/ai"
	"github.com/xelth-com/agrocampo/internal/buildinfo"
	"github.com/xelth-com/agrocampo/internal/config"
	"github.com/xelth-com/agrocampo/internal/database"
	"github.com/xelth-com/agrocampo/internal/handlers"
	"github.com/xelth-com/agrocampo/internal/middleware"
	"github.com/xelth-com/agrocampo/internal/services/alerts"
	"github.com/xelth-com/agrocampo/internal/services/labor"
	"github.com/xelth-com/agrocampo/internal/services/reports"
	"github.com/xelth-com/agrocampo/internal/websocket"
)

const (
	loginAttempts = 5
	loginWindow   = 15 * time.Minute
)

func setupLogging(cfg *config.Config) {
	level, err := zerolog.ParseLevel(cfg.LogLevel)
	if err != nil || cfg.LogLevel == "" {
		level = zerolog.InfoLevel
	}
	zerolog.SetGlobalLevel(level)
	zerolog.TimeFieldFormat = time.RFC3339
	if !cfg.IsProduction() {
		log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339})
	}
}

func main() {
	// 1. Load configuration
	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("failed to load configuration")
	}
	setupLogging(cfg)
	loc := cfg.Location()
	log.Info().Str("commit", buildinfo.Commit()).Str("built", buildinfo.BuildTime).Str("tz", loc.String()).Msg("starting agrocampo")

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// 2. Initialize database (embedded vs external is detected from config)
	db, err := database.Connect(cfg.Database)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to connect to database")
	}

	// 3. Schema and fixed role catalog
	if err := database.Migrate(db.DB); err != nil {
		_ = db.Close()
		log.Fatal().Err(err).Msg("schema migration failed")
	}
	log.Info().Msg("schema synchronized")

	// 4. Optional redis: shared login throttling and health reporting
	var (
		rdb     *redis.Client
		limiter middleware.Limiter = middleware.NewMemoryLimiter(loginAttempts, loginWindow)
	)
	if cfg.RedisURL != "" {
		rdb, err = database.NewRedis(ctx, cfg.RedisURL)
		if err != nil {
			log.Warn().Err(err).Msg("redis unavailable, using in-memory login limiter")
		} else {
			limiter = middleware.NewRedisLimiter(rdb, "agrocampo:login", loginAttempts, loginWindow)
			log.Info().Msg("redis connected")
		}
	}

	// 5. Realtime hub
	hub := websocket.NewHub()
	go hub.Run(ctx)

	// 6. Access control and services
	gate := access.NewGate(
		access.NewScopeCalculator(access.NewGormLinks(db.DB)),
		access.EditWindow{Duration: cfg.EditWindow},
	)
	laborSvc := labor.NewService(labor.NewStore(db.DB), gate, hub, loc)
	alertSvc := alerts.NewService(db.DB, hub, loc)
	reportSvc := reports.NewService(db.DB, gate, loc)

	var describer alerts.Describer = alerts.TemplateDescriber{}
	if cfg.Gemini.APIKey != "" {
		client, err := ai.NewGeminiClient(ctx, cfg.Gemini.APIKey, cfg.Gemini.Model)
		if err != nil {
			log.Warn().Err(err).Msg("gemini client unavailable, alert descriptions use templates")
		} else {
			defer client.Close()
			describer = alerts.NewGeminiDescriber(client, cfg.Gemini.Timeout)
			log.Info().Str("model", cfg.Gemini.Model).Msg("gemini alert descriptions enabled")
		}
	}
	engine := alerts.NewEngine(db.DB, hub, describer, alerts.Config{
		Interval:            cfg.Alerts.Interval,
		LowYieldThresholdKg: cfg.Alerts.LowYieldThresholdKg,
		Location:            loc,
	})
	engine.Start()

	// 7. HTTP
	router := handlers.NewRouter(handlers.Deps{
		DB:      db.DB,
		Config:  cfg,
		Labor:   laborSvc,
		Alerts:  alertSvc,
		Engine:  engine,
		Reports: reportSvc,
		Hub:     hub,
		Limiter: limiter,
		Redis:   rdb,
	})
	server := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           router.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		log.Info().Str("port", cfg.Port).Str("env", cfg.Env).Msg("server listening")
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal().Err(err).Msg("failed to start server")
		}
	}()

	<-ctx.Done()
	log.Info().Msg("shutdown signal received")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("http server shutdown")
	}
	engine.Stop()
	if rdb != nil {
		_ = rdb.Close()
	}

	// Closing the database also stops embedded PostgreSQL
	if err := db.Close(); err != nil {
		log.Error().Err(err).Msg("database close")
	}
	log.Info().Msg("shutdown complete")
}
