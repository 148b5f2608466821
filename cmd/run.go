package cmd

import (
	"context"
	"fmt"
	"time"

	log "github.com/sirupsen/logrus"

	"tickerbot/bot"
	"tickerbot/config"
	"tickerbot/events"
	"tickerbot/quote"
	"tickerbot/repository"
	"tickerbot/scheduler"
	"tickerbot/service"
)

// Run initializes and starts the application
func Run(ctx context.Context) error {
	cfg := config.Get()

	level, err := log.ParseLevel(cfg.LogLevel)
	if err != nil {
		return fmt.Errorf("invalid log level %q: %w", cfg.LogLevel, err)
	}
	log.SetLevel(level)
	if cfg.Environment == "production" {
		log.SetFormatter(&log.JSONFormatter{})
	}

	log.Info("Starting ticker bot...")

	// Initialize persistence
	store, err := repository.NewSettingsStore(cfg.DataFile)
	if err != nil {
		return fmt.Errorf("failed to open settings store: %w", err)
	}
	log.WithField("file", cfg.DataFile).Info("Settings store loaded")

	styles := config.LoadStyles(cfg.StylesFile)

	// Initialize quote client with a read-through cache
	quotes := quote.NewCache(quote.NewClient(cfg.QuoteBaseURL), cfg.QuoteCacheTTL)

	// Initialize event bus and services
	eventBus := events.NewBus()
	settingsService := service.NewSettingsService(store, quotes, eventBus, cfg.DefaultCMCAPIKey)

	// Initialize Discord bot
	log.Info("Connecting to Discord...")
	discordBot, err := bot.New(bot.Config{
		Token:  cfg.DiscordToken,
		Styles: styles,
	}, settingsService, quotes, eventBus)
	if err != nil {
		return fmt.Errorf("failed to initialize Discord bot: %w", err)
	}
	log.Info("Discord bot connected")

	// Start update schedulers aligned to clock boundaries
	go func() {
		voice := scheduler.New("voice-tickers", cfg.VoiceUpdateInterval)
		if err := voice.Run(ctx, discordBot.UpdateAllVoiceChannels); err != nil && ctx.Err() == nil {
			log.WithError(err).Error("Voice ticker scheduler stopped")
		}
	}()
	go func() {
		messages := scheduler.New("message-tickers", cfg.MessageUpdateInterval)
		if err := messages.Run(ctx, discordBot.UpdateAllMessageTickers); err != nil && ctx.Err() == nil {
			log.WithError(err).Error("Message ticker scheduler stopped")
		}
	}()

	log.WithField("environment", cfg.Environment).Info("Bot is running")
	<-ctx.Done()

	log.Info("Shutting down bot...")
	if err := discordBot.Close(); err != nil {
		log.WithError(err).Error("Error closing Discord bot")
	}

	// Give in-flight handlers a moment to finish
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	select {
	case <-shutdownCtx.Done():
		log.Warn("Shutdown timeout exceeded")
	case <-time.After(1 * time.Second):
		log.Info("Shutdown completed")
	}

	return nil
}
