package main

import (
	"context"
	"errors"
	"net/http"
	"os/signal"
	"syscall"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/legendx/enhancebot/common"
	"github.com/legendx/enhancebot/config"
	"github.com/legendx/enhancebot/logging"
	"github.com/legendx/enhancebot/metrics"
	"github.com/legendx/enhancebot/modules/enhance"
	"github.com/legendx/enhancebot/modules/replicate"
	"github.com/legendx/enhancebot/modules/telegram"
	"github.com/legendx/enhancebot/modules/verify"
)

const userAgent = "enhancebot/1.0"

func main() {
	cfg, err := config.Load()
	if err != nil {
		fallback := logging.Setup("info")
		fallback.Fatal().Err(err).Msg("config failed")
	}
	log := logging.Setup(cfg.LogLevel)

	registry := prometheus.NewRegistry()
	m := metrics.New(registry)
	if cfg.MetricsAddr != "" {
		metrics.Serve(cfg.MetricsAddr, registry, log)
	}

	api, err := tgbotapi.NewBotAPI(cfg.BotToken)
	if err != nil {
		log.Fatal().Err(err).Msg("telegram connection failed")
	}

	httpClient := common.NewHttpClient(userAgent, &http.Client{})
	chatAPI := telegram.NewChatAPI(api, httpClient)

	cache := verify.NewCache(common.SystemClock())
	oracle := verify.NewService(chatAPI, log.With().Str("component", "verify").Logger())

	var remote enhance.RemoteEnhancer
	if cfg.RemoteEnabled() {
		remote = replicate.NewClient(cfg.ReplicateAPIToken, cfg.ReplicateModel, userAgent)
		log.Info().Str("model", cfg.ReplicateModel).Msg("remote enhancement enabled")
	}
	enhancer := enhance.NewService(remote, cfg.RemoteTimeout, cfg.MaxEnhanceWorkers,
		log.With().Str("component", "enhance").Logger())

	svc := telegram.NewService(chatAPI, cache, oracle, enhancer,
		cfg.ChannelUsername, cfg.VerifiedTTL, m,
		log.With().Str("component", "orchestrator").Logger())

	bot := telegram.NewBot(api, svc, log.With().Str("component", "bot").Logger())

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := bot.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		log.Fatal().Err(err).Msg("bot failed")
	}
}
