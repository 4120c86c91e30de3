package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"

	"psdprocessor/internal/export"
	"psdprocessor/internal/http/handlers"
	httpapi "psdprocessor/internal/http/httpapi"
	"psdprocessor/internal/infra"
	"psdprocessor/internal/intake"
	"psdprocessor/internal/storage"
)

func main() {
	// Load .env if present
	_ = godotenv.Load()

	cfg, err := infra.LoadConfig()
	if err != nil {
		panic(err)
	}
	logger := infra.NewLogger(cfg.AppEnv)

	layout, err := storage.NewLayout(cfg.UploadDir, cfg.OutputDir)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to prepare storage roots")
	}

	var policy export.Policy
	switch cfg.ExportPolicy {
	case infra.PolicyColorways:
		policy = export.ColorwayPolicy{}
	default:
		policy = export.LayerPolicy{}
	}

	app := &handlers.App{
		Config:   cfg,
		Logger:   logger,
		Layout:   layout,
		Resolver: intake.NewResolver(layout, cfg.FetchTimeout, logger),
		Exporter: export.NewExporter(policy, logger),
	}

	// Mirroring is opt-in; the App's Mirror field stays nil without a bucket.
	if cfg.S3Bucket != "" {
		mirror, err := storage.NewMirror(context.Background(), cfg.S3Bucket, cfg.S3Prefix, cfg.S3CredentialsFile)
		if err != nil {
			logger.Fatal().Err(err).Msg("failed to configure artifact mirror")
		}
		app.Mirror = mirror
		logger.Info().Str("bucket", cfg.S3Bucket).Msg("artifact mirroring enabled")
	}

	router := httpapi.NewRouter(app, cfg, logger)
	server := infra.NewHTTPServer(cfg, router)

	// Start async
	go func() {
		logger.Info().Str("policy", cfg.ExportPolicy).Msgf("API listening on :%s", cfg.Port)
		if err := server.Start(); err != nil {
			logger.Fatal().Err(err).Msg("http server failed")
		}
	}()

	// Graceful shutdown
	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
	<-stop

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.HTTPIdleTimeout)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error().Err(err).Msg("failed to shutdown server")
	}
	logger.Info().Msg("server stopped")
}
