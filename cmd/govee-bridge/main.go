package main

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/oebus/govee-bridge/internal/bridge"
	"github.com/oebus/govee-bridge/internal/config"
	"github.com/oebus/govee-bridge/internal/datadog"
	"github.com/oebus/govee-bridge/internal/logging"
	"github.com/oebus/govee-bridge/internal/notifications"
)

const shutdownTimeout = 10 * time.Second

func main() {
	cfg := config.Load()
	logging.Init(cfg.LogLevel, cfg.LogFile)

	log.Info().
		Str("base_url", cfg.BaseURL).
		Str("webhook_addr", cfg.WebhookAddr).
		Int("poll_interval_seconds", cfg.PollIntervalSeconds).
		Msg("Starting Govee bridge")

	datadog.InitMetrics(cfg)
	notifications.Init(cfg.NtfyTopic)

	b := bridge.New(cfg)
	if err := b.Start(context.Background()); err != nil {
		if errors.Is(err, bridge.ErrNeedsReconfiguration) {
			if nerr := notifications.Send("Govee bridge", "API key rejected - reconfiguration required"); nerr != nil {
				log.Warn().Err(nerr).Msg("Failed to send notification")
			}
			log.Fatal().Err(err).Msg("API key rejected - fix api_key and restart")
		}
		log.Fatal().Err(err).Msg("Bridge startup failed")
	}

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)
	s := <-sig
	log.Info().Str("signal", s.String()).Msg("Shutting down")

	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	b.Stop(ctx)
}
