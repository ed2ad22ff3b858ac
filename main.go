package main

import (
	"context"
	"flag"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	"go.uber.org/zap"

	"github.com/sitedaddy/daisy-dog/config"
	"github.com/sitedaddy/daisy-dog/logging"
	"github.com/sitedaddy/daisy-dog/server"
)

func main() {
	configPath := flag.String("config", "", "path to the YAML config (default "+config.DefaultPath+")")
	variant := flag.String("variant", "", `"web" (API + static files) or "api" (API only)`)
	flag.Parse()

	// A missing .env is normal outside local development.
	envErr := godotenv.Load()

	cfg, err := config.Load(*configPath, config.Variant(*variant))
	if err != nil {
		log.Fatalf("load config: %v", err)
	}

	logger, err := logging.New(cfg.Logging)
	if err != nil {
		log.Fatalf("init logger: %v", err)
	}
	defer logger.Sync()

	if envErr != nil {
		logger.Debug("No .env file loaded", zap.Error(envErr))
	}
	if cfg.Path == "" {
		logger.Warn("Config file not found, using defaults")
	}

	if !cfg.App.Debug {
		gin.SetMode(gin.ReleaseMode)
	}

	apiKey := "(not set)"
	if cfg.Places.APIKey != "" {
		apiKey = config.MaskString(cfg.Places.APIKey)
	}
	logger.Info("Configuration loaded",
		zap.String("app", cfg.App.Name),
		zap.String("version", cfg.App.Version),
		zap.String("environment", cfg.App.Environment),
		zap.String("variant", string(cfg.App.Variant)),
		zap.String("addr", cfg.Address()),
		zap.String("reviews_place_id", cfg.Places.ReviewsPlaceID),
		zap.String("details_place_id", cfg.Places.DetailsPlaceID),
		zap.String("api_key", apiKey),
		zap.String("config_path", cfg.Path),
	)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := server.New(cfg, logger).Run(ctx); err != nil {
		logger.Fatal("Gateway stopped with error", zap.Error(err))
	}
	logger.Info("Gateway stopped")
}
