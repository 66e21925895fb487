package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go-dokan-pos/internal/ai"
	"go-dokan-pos/internal/auth"
	"go-dokan-pos/internal/cache"
	"go-dokan-pos/internal/cashflow"
	"go-dokan-pos/internal/config"
	"go-dokan-pos/internal/database"
	"go-dokan-pos/internal/forecast"
	"go-dokan-pos/internal/handlers"
	"go-dokan-pos/internal/ledger"
	"go-dokan-pos/internal/middleware"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("failed to load config")
	}

	zerolog.TimeFieldFormat = time.RFC3339
	if cfg.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
		zerolog.SetGlobalLevel(zerolog.InfoLevel)
	} else {
		log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.Kitchen})
		zerolog.SetGlobalLevel(zerolog.DebugLevel)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	db, err := database.Connect(cfg.DBDriver, cfg.DBDSN, database.Options{Verbose: !cfg.IsProduction()})
	if err != nil {
		log.Fatal().Err(err).Str("driver", cfg.DBDriver).Msg("failed to connect to database")
	}

	// --- Stats cache: Redis when configured, in-process otherwise ---
	var statsCache cache.Cache = cache.NewMemory()
	if cfg.RedisURL != "" {
		rc, err := cache.NewRedis(ctx, cfg.RedisURL)
		if err != nil {
			log.Warn().Err(err).Msg("redis unavailable, using in-memory stats cache")
		} else {
			defer rc.Close()
			statsCache = rc
		}
	}

	ledgerSvc := ledger.NewService(db, ledger.WithCache(statsCache))
	forecastSvc := forecast.NewService(db)
	runner := forecast.NewRunner(forecastSvc, cfg.MLDataDir, forecast.Commands{
		Input:   cfg.MLInputCmd,
		Predict: cfg.MLPredictCmd,
		Advise:  cfg.MLAdviseCmd,
	})

	// --- AI: optional, every AI route answers 503 without a key ---
	var (
		advisor ai.Advisor = ai.Disabled{}
		agent   handlers.Asker
	)
	gemini, err := ai.NewGemini(ctx, cfg.GeminiAPIKey, cfg.GeminiModel)
	switch {
	case errors.Is(err, ai.ErrDisabled):
		log.Info().Msg("GEMINI_API_KEY not set, AI advice disabled")
	case err != nil:
		log.Error().Err(err).Msg("failed to create Gemini client, AI advice disabled")
	default:
		defer gemini.Close()
		advisor = gemini
		agent = ai.NewAgent(gemini, ledgerSvc)
	}

	h := handlers.New(handlers.Deps{
		DB:        db,
		Cache:     statsCache,
		Tokens:    auth.NewManager(cfg.JWTSecret, time.Duration(cfg.JWTExpirationHours)*time.Hour),
		Ledger:    ledgerSvc,
		Cashflow:  cashflow.NewService(db, cashflow.WithAdvisor(advisor)),
		Forecast:  forecastSvc,
		Runner:    runner,
		Agent:     agent,
		ShopName:  cfg.ShopName,
		BackupDir: cfg.BackupDir,
	})

	r := gin.New()
	r.Use(middleware.RequestID(), middleware.Logger(), middleware.Recovery())
	r.Use(cors.New(cors.Config{
		AllowOrigins:     cfg.Origins(),
		AllowMethods:     []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Authorization", middleware.RequestIDHeader},
		ExposeHeaders:    []string{"Content-Length", "Content-Disposition", middleware.RequestIDHeader},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}))

	h.Routes(r, cfg.AllowRegistration)

	// --- Serve the built frontend when it is present ---
	if _, err := os.Stat("./web/index.html"); err == nil {
		r.Static("/assets", "./web/assets")
		r.StaticFile("/vite.svg", "./web/vite.svg")
		// SPA catch-all so client-side routes survive a refresh.
		r.NoRoute(func(c *gin.Context) {
			c.File("./web/index.html")
		})
	}

	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Port),
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      5 * time.Minute, // forecast runs and AI calls are slow
		IdleTimeout:       2 * time.Minute,
	}

	go func() {
		log.Info().Int("port", cfg.Port).Str("env", cfg.Env).Msg("server starting")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal().Err(err).Msg("server failed to start")
		}
	}()

	<-ctx.Done()
	log.Info().Msg("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("graceful shutdown failed")
	}
	if sqlDB, err := db.DB(); err == nil {
		_ = sqlDB.Close()
	}
}
