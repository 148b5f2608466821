package bot

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/bwmarrin/discordgo"
	log "github.com/sirupsen/logrus"

	"tickerbot/models"
	"tickerbot/service"
)

// userMessage translates service errors into replies shown to the invoking member
func userMessage(err error) string {
	switch {
	case errors.Is(err, service.ErrInvalidAPIKey):
		return "That API key was rejected by CoinMarketCap. Double-check it and try again."
	case errors.Is(err, service.ErrNoAPIKey):
		return "No CoinMarketCap API key is configured. Set one with `/set_cmc_api_key` first."
	case errors.Is(err, service.ErrNoCategory):
		return "No voice update category is configured. Set one with `/set_voice_update_category` first."
	case errors.Is(err, service.ErrNoAdminRole):
		return "No admin role is configured."
	case errors.Is(err, service.ErrUnknownTicker):
		return "That ticker was not found on CoinMarketCap."
	case errors.Is(err, service.ErrAlreadyTracked):
		return "That ticker is already being tracked."
	case errors.Is(err, service.ErrNotTracked):
		return "That ticker is not being tracked."
	default:
		return "Something went wrong. Please try again."
	}
}

func (b *Bot) handleSetAPIKey(s *discordgo.Session, i *discordgo.InteractionCreate) {
	guildID, err := guildIDFromInteraction(i)
	if err != nil {
		b.respondWithError(s, i, "This command can only be used in a server.")
		return
	}
	apiKey := optionMap(i)["api_key"].StringValue()

	// Key validation hits the quote API, so acknowledge first
	if err := b.deferResponse(s, i); err != nil {
		log.WithError(err).Error("Error deferring interaction response")
		return
	}

	if err := b.settingsService.SetAPIKey(context.Background(), guildID, apiKey); err != nil {
		log.WithError(err).WithField("guild", guildID).Warn("Failed to set API key")
		b.followUpWithError(s, i, userMessage(err))
		return
	}
	b.followUp(s, i, "✅ CoinMarketCap API key saved.")
}

func (b *Bot) handleRemoveAPIKey(s *discordgo.Session, i *discordgo.InteractionCreate) {
	guildID, err := guildIDFromInteraction(i)
	if err != nil {
		b.respondWithError(s, i, "This command can only be used in a server.")
		return
	}

	if err := b.settingsService.RemoveAPIKey(context.Background(), guildID); err != nil {
		b.respondWithError(s, i, userMessage(err))
		return
	}
	b.respond(s, i, "✅ CoinMarketCap API key removed.")
}

func (b *Bot) handleSetAdminRole(s *discordgo.Session, i *discordgo.InteractionCreate) {
	guildID, err := guildIDFromInteraction(i)
	if err != nil {
		b.respondWithError(s, i, "This command can only be used in a server.")
		return
	}
	roleID, err := snowflakeOption(optionMap(i)["role"])
	if err != nil {
		b.respondWithError(s, i, "Invalid role.")
		return
	}

	if err := b.settingsService.SetAdminRole(context.Background(), guildID, roleID); err != nil {
		b.respondWithError(s, i, userMessage(err))
		return
	}
	b.respond(s, i, fmt.Sprintf("✅ Admin role set to <@&%d>.", roleID))
}

func (b *Bot) handleRemoveAdminRole(s *discordgo.Session, i *discordgo.InteractionCreate) {
	guildID, err := guildIDFromInteraction(i)
	if err != nil {
		b.respondWithError(s, i, "This command can only be used in a server.")
		return
	}

	if err := b.settingsService.RemoveAdminRole(context.Background(), guildID); err != nil {
		b.respondWithError(s, i, userMessage(err))
		return
	}
	b.respond(s, i, "✅ Admin role removed.")
}

func (b *Bot) handleSetUpdateCategory(s *discordgo.Session, i *discordgo.InteractionCreate) {
	guildID, err := guildIDFromInteraction(i)
	if err != nil {
		b.respondWithError(s, i, "This command can only be used in a server.")
		return
	}
	categoryID, err := snowflakeOption(optionMap(i)["category"])
	if err != nil {
		b.respondWithError(s, i, "Invalid category.")
		return
	}

	if err := b.settingsService.SetUpdateCategory(context.Background(), guildID, categoryID); err != nil {
		b.respondWithError(s, i, userMessage(err))
		return
	}
	b.respond(s, i, "✅ Voice update category set. Previously tracked voice tickers were cleared, re-add them now.")
}

func (b *Bot) handleAddVoiceTicker(s *discordgo.Session, i *discordgo.InteractionCreate) {
	guildID, err := guildIDFromInteraction(i)
	if err != nil {
		b.respondWithError(s, i, "This command can only be used in a server.")
		return
	}
	symbol := strings.ToUpper(strings.TrimSpace(optionMap(i)["ticker"].StringValue()))

	// Ticker validation hits the quote API, so acknowledge first
	if err := b.deferResponse(s, i); err != nil {
		log.WithError(err).Error("Error deferring interaction response")
		return
	}

	if err := b.settingsService.AddVoiceTicker(context.Background(), guildID, symbol); err != nil {
		b.followUpWithError(s, i, userMessage(err))
		return
	}
	b.followUp(s, i, fmt.Sprintf("✅ Added **%s** to voice channel updates.", symbol))
}

func (b *Bot) handleRemoveVoiceTicker(s *discordgo.Session, i *discordgo.InteractionCreate) {
	guildID, err := guildIDFromInteraction(i)
	if err != nil {
		b.respondWithError(s, i, "This command can only be used in a server.")
		return
	}
	symbol := strings.ToUpper(strings.TrimSpace(optionMap(i)["ticker"].StringValue()))

	if err := b.settingsService.RemoveVoiceTicker(context.Background(), guildID, symbol); err != nil {
		b.respondWithError(s, i, userMessage(err))
		return
	}
	b.respond(s, i, fmt.Sprintf("✅ Removed **%s** from voice channel updates.", symbol))
}

func (b *Bot) handleAddMessageTicker(s *discordgo.Session, i *discordgo.InteractionCreate) {
	guildID, err := guildIDFromInteraction(i)
	if err != nil {
		b.respondWithError(s, i, "This command can only be used in a server.")
		return
	}
	opts := optionMap(i)
	symbol := strings.ToUpper(strings.TrimSpace(opts["ticker"].StringValue()))
	channelID, err := snowflakeOption(opts["channel"])
	if err != nil {
		b.respondWithError(s, i, "Invalid channel.")
		return
	}

	if err := b.deferResponse(s, i); err != nil {
		log.WithError(err).Error("Error deferring interaction response")
		return
	}

	if err := b.settingsService.AddMessageTicker(context.Background(), guildID, symbol, channelID); err != nil {
		b.followUpWithError(s, i, userMessage(err))
		return
	}
	b.followUp(s, i, fmt.Sprintf("✅ Price updates for **%s** will be posted in <#%d>.", symbol, channelID))
}

func (b *Bot) handleRemoveMessageTicker(s *discordgo.Session, i *discordgo.InteractionCreate) {
	guildID, err := guildIDFromInteraction(i)
	if err != nil {
		b.respondWithError(s, i, "This command can only be used in a server.")
		return
	}
	symbol := strings.ToUpper(strings.TrimSpace(optionMap(i)["ticker"].StringValue()))

	if err := b.settingsService.RemoveMessageTicker(context.Background(), guildID, symbol); err != nil {
		b.respondWithError(s, i, userMessage(err))
		return
	}
	b.respond(s, i, fmt.Sprintf("✅ Stopped price updates for **%s**.", symbol))
}

func (b *Bot) handleAddRatioPair(s *discordgo.Session, i *discordgo.InteractionCreate) {
	guildID, err := guildIDFromInteraction(i)
	if err != nil {
		b.respondWithError(s, i, "This command can only be used in a server.")
		return
	}
	opts := optionMap(i)
	base := strings.ToUpper(strings.TrimSpace(opts["ticker1"].StringValue()))
	quoteSymbol := strings.ToUpper(strings.TrimSpace(opts["ticker2"].StringValue()))
	channelID, err := snowflakeOption(opts["channel"])
	if err != nil {
		b.respondWithError(s, i, "Invalid channel.")
		return
	}

	if err := b.deferResponse(s, i); err != nil {
		log.WithError(err).Error("Error deferring interaction response")
		return
	}

	if err := b.settingsService.AddRatioPair(context.Background(), guildID, base, quoteSymbol, channelID); err != nil {
		b.followUpWithError(s, i, userMessage(err))
		return
	}
	b.followUp(s, i, fmt.Sprintf("✅ Ratio updates for **%s** will be posted in <#%d>.",
		models.RatioKey(base, quoteSymbol), channelID))
}

func (b *Bot) handleRemoveRatioPair(s *discordgo.Session, i *discordgo.InteractionCreate) {
	guildID, err := guildIDFromInteraction(i)
	if err != nil {
		b.respondWithError(s, i, "This command can only be used in a server.")
		return
	}
	opts := optionMap(i)
	base := strings.ToUpper(strings.TrimSpace(opts["ticker1"].StringValue()))
	quoteSymbol := strings.ToUpper(strings.TrimSpace(opts["ticker2"].StringValue()))

	if err := b.settingsService.RemoveRatioPair(context.Background(), guildID, base, quoteSymbol); err != nil {
		b.respondWithError(s, i, userMessage(err))
		return
	}
	b.respond(s, i, fmt.Sprintf("✅ Stopped ratio updates for **%s**.", models.RatioKey(base, quoteSymbol)))
}

func (b *Bot) handleShowSettings(s *discordgo.Session, i *discordgo.InteractionCreate) {
	guildID, err := guildIDFromInteraction(i)
	if err != nil {
		b.respondWithError(s, i, "This command can only be used in a server.")
		return
	}

	settings, err := b.settingsService.GetSettings(context.Background(), guildID)
	if err != nil {
		b.respondWithError(s, i, userMessage(err))
		return
	}
	if settings == nil {
		settings = models.NewGuildSettings(guildID)
	}
	b.respondWithEmbed(s, i, CreateSettingsEmbed(settings))
}

func (b *Bot) handleForceUpdateVoice(s *discordgo.Session, i *discordgo.InteractionCreate) {
	guildID, err := guildIDFromInteraction(i)
	if err != nil {
		b.respondWithError(s, i, "This command can only be used in a server.")
		return
	}

	if err := b.deferResponse(s, i); err != nil {
		log.WithError(err).Error("Error deferring interaction response")
		return
	}

	if err := b.RefreshGuildVoiceChannels(context.Background(), guildID); err != nil {
		log.WithError(err).WithField("guild", guildID).Error("Forced voice update failed")
		b.followUpWithError(s, i, userMessage(err))
		return
	}
	b.followUp(s, i, "✅ Voice channel tickers updated.")
}

func (b *Bot) handleForceUpdateMessages(s *discordgo.Session, i *discordgo.InteractionCreate) {
	guildID, err := guildIDFromInteraction(i)
	if err != nil {
		b.respondWithError(s, i, "This command can only be used in a server.")
		return
	}

	if err := b.deferResponse(s, i); err != nil {
		log.WithError(err).Error("Error deferring interaction response")
		return
	}

	if err := b.RefreshGuildMessages(context.Background(), guildID, true, false); err != nil {
		log.WithError(err).WithField("guild", guildID).Error("Forced message update failed")
		b.followUpWithError(s, i, userMessage(err))
		return
	}
	b.followUp(s, i, "✅ Message tickers updated.")
}

func (b *Bot) handleForceUpdateRatios(s *discordgo.Session, i *discordgo.InteractionCreate) {
	guildID, err := guildIDFromInteraction(i)
	if err != nil {
		b.respondWithError(s, i, "This command can only be used in a server.")
		return
	}

	if err := b.deferResponse(s, i); err != nil {
		log.WithError(err).Error("Error deferring interaction response")
		return
	}

	if err := b.RefreshGuildMessages(context.Background(), guildID, false, true); err != nil {
		log.WithError(err).WithField("guild", guildID).Error("Forced ratio update failed")
		b.followUpWithError(s, i, userMessage(err))
		return
	}
	b.followUp(s, i, "✅ Ratio tickers updated.")
}
