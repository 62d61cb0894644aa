package main

import (
	"errors"
	"flag"
	"io/fs"
	"log"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/joho/godotenv"
	"go.uber.org/zap"

	"mobeebot/internal/config"
	"mobeebot/internal/logging"
)

func main() {
	remove := flag.Bool("delete", false, "remove the webhook instead of registering it")
	dropPending := flag.Bool("drop-pending", false, "discard updates queued while no webhook was set")
	flag.Parse()

	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		log.Fatalf("failed to read .env: %v", err)
	}
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("invalid configuration: %v", err)
	}
	logger, flush, err := logging.New(cfg.LogLevel, cfg.LogDevelopment)
	if err != nil {
		log.Fatalf("failed to build logger: %v", err)
	}
	defer flush()

	api, err := tgbotapi.NewBotAPI(cfg.BotToken)
	if err != nil {
		logger.Fatal("failed to authorize bot", zap.Error(err))
	}

	if *remove {
		if _, err := api.Request(tgbotapi.DeleteWebhookConfig{DropPendingUpdates: *dropPending}); err != nil {
			logger.Fatal("failed to delete webhook", zap.Error(err))
		}
		logger.Info("webhook deleted")
		return
	}

	if cfg.WebhookBaseURL == "" {
		logger.Fatal("WEBHOOK_BASE_URL is required")
	}
	params := tgbotapi.Params{"url": cfg.WebhookURL()}
	params.AddNonEmpty("secret_token", cfg.WebhookSecret)
	params.AddBool("drop_pending_updates", *dropPending)
	params["allowed_updates"] = `["message","callback_query"]`
	if _, err := api.MakeRequest("setWebhook", params); err != nil {
		logger.Fatal("failed to set webhook", zap.Error(err))
	}

	info, err := api.GetWebhookInfo()
	if err != nil {
		logger.Fatal("failed to read webhook info", zap.Error(err))
	}
	logger.Info("webhook registered",
		zap.String("url", info.URL),
		zap.Int("pending_updates", info.PendingUpdateCount),
		zap.String("last_error", info.LastErrorMessage))
}
