package main

import (
	"context"
	"flag"
	"os"
	"os/signal"
	"syscall"

	"factorview/internal/api"
	"factorview/internal/config"
	"factorview/internal/logging"
	"factorview/internal/metrics"
	"factorview/internal/routes"
)

func main() {
	cfgPath := flag.String("config", os.Getenv("FACTORVIEW_CONFIG"), "Path to YAML config (optional)")
	flag.Parse()

	cfg, err := config.Load(*cfgPath)
	if err != nil {
		logging.Fatal().Err(err).Msg("failed to load config")
	}
	logging.Init(logging.Config{Level: cfg.Log.Level, Format: cfg.Log.Format})

	logging.Info().
		Str("base_url", cfg.EffectiveBaseURL()).
		Str("proxy_target", cfg.Proxy.Target).
		Str("static_dir", cfg.Server.StaticDir).
		Str("env", cfg.Server.Env).
		Msg("configuration loaded")

	srv, err := api.NewServer(cfg, routes.Default, metrics.New())
	if err != nil {
		logging.Fatal().Err(err).Msg("failed to build server")
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := srv.Run(ctx); err != nil {
		logging.Fatal().Err(err).Msg("server stopped")
	}
}
