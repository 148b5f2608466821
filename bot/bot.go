package bot

import (
	"context"
	"fmt"
	"strconv"

	"github.com/bwmarrin/discordgo"
	log "github.com/sirupsen/logrus"

	"tickerbot/config"
	"tickerbot/events"
	"tickerbot/service"
)

// Config holds bot configuration
type Config struct {
	Token  string
	Styles config.Styles
}

type Bot struct {
	config          Config
	session         *discordgo.Session
	discord         discordAPI
	settingsService service.SettingsService
	quotes          service.QuoteProvider
	eventBus        *events.Bus
}

func New(config Config, settingsService service.SettingsService, quotes service.QuoteProvider, eventBus *events.Bus) (*Bot, error) {
	dg, err := discordgo.New("Bot " + config.Token)
	if err != nil {
		return nil, fmt.Errorf("error creating discord session: %w", err)
	}
	dg.Identify.Intents = discordgo.IntentsGuilds | discordgo.IntentsGuildMessages

	bot := &Bot{
		config:          config,
		session:         dg,
		discord:         dg,
		settingsService: settingsService,
		quotes:          quotes,
		eventBus:        eventBus,
	}

	// Register slash command handlers
	dg.AddHandler(bot.handleCommands)

	// Open websocket connection
	if err := dg.Open(); err != nil {
		return nil, fmt.Errorf("error opening connection: %w", err)
	}

	// Register slash commands with Discord
	if err := bot.registerCommands(); err != nil {
		dg.Close()
		return nil, fmt.Errorf("error registering commands: %w", err)
	}

	// Refresh a guild's voice channels as soon as its ticker set changes,
	// rather than waiting for the next hourly boundary
	eventBus.Subscribe(events.EventTypeVoiceTickersChanged, func(ctx context.Context, event events.Event) {
		e, ok := event.(events.VoiceTickersChangedEvent)
		if !ok {
			return
		}
		if err := bot.RefreshGuildVoiceChannels(ctx, e.GuildID); err != nil {
			log.WithError(err).WithField("guild", e.GuildID).Error("Failed to refresh voice channels after settings change")
		}
	})

	return bot, nil
}

func (b *Bot) Close() error {
	return b.session.Close()
}

// guildIDFromInteraction parses the interaction's guild snowflake
func guildIDFromInteraction(i *discordgo.InteractionCreate) (int64, error) {
	return strconv.ParseInt(i.GuildID, 10, 64)
}
