package bot

import (
	"context"
	"fmt"
	"strconv"

	"github.com/bwmarrin/discordgo"
	"github.com/samber/lo"
	"github.com/shopspring/decimal"
	log "github.com/sirupsen/logrus"

	"tickerbot/models"
	"tickerbot/quote"
	"tickerbot/service"
)

// discordAPI is the slice of session operations the updaters need, split out
// so they can be exercised without a live gateway connection
type discordAPI interface {
	GuildChannels(guildID string, options ...discordgo.RequestOption) ([]*discordgo.Channel, error)
	ChannelDelete(channelID string, options ...discordgo.RequestOption) (*discordgo.Channel, error)
	GuildChannelCreateComplex(guildID string, data discordgo.GuildChannelCreateData, options ...discordgo.RequestOption) (*discordgo.Channel, error)
	ChannelMessageSend(channelID string, content string, options ...discordgo.RequestOption) (*discordgo.Message, error)
}

// UpdateAllVoiceChannels refreshes ticker voice channels for every guild that
// has a category, an API key and at least the potential for tracked tickers.
// Per-guild failures are logged and do not stop the sweep.
func (b *Bot) UpdateAllVoiceChannels(ctx context.Context) error {
	allSettings, err := b.settingsService.AllSettings(ctx)
	if err != nil {
		return fmt.Errorf("failed to load guild settings: %w", err)
	}

	for _, settings := range allSettings {
		if settings.UpdateCategoryID == nil || b.settingsService.ResolveAPIKey(settings) == "" {
			continue
		}
		if err := b.refreshVoiceChannels(ctx, settings); err != nil {
			log.WithError(err).WithField("guild", settings.GuildID).Error("Failed to update voice channels")
		}
	}
	return nil
}

// RefreshGuildVoiceChannels refreshes ticker voice channels for one guild
func (b *Bot) RefreshGuildVoiceChannels(ctx context.Context, guildID int64) error {
	settings, err := b.settingsService.GetSettings(ctx, guildID)
	if err != nil {
		return fmt.Errorf("failed to load guild settings: %w", err)
	}
	if settings == nil || settings.UpdateCategoryID == nil {
		return service.ErrNoCategory
	}
	if b.settingsService.ResolveAPIKey(settings) == "" {
		return service.ErrNoAPIKey
	}
	return b.refreshVoiceChannels(ctx, settings)
}

// refreshVoiceChannels tears down the ticker channels under the guild's update
// category and recreates them, ordered by market cap. Recreating instead of
// renaming sidesteps Discord's aggressive rate limit on channel renames.
// Quotes are fetched before any channel is touched, so a failed lookup leaves
// the existing channels standing until the next tick.
func (b *Bot) refreshVoiceChannels(ctx context.Context, settings *models.GuildSettings) error {
	guildID := strconv.FormatInt(settings.GuildID, 10)
	categoryID := strconv.FormatInt(*settings.UpdateCategoryID, 10)

	var quotes []quote.Quote
	var previous map[string]decimal.Decimal
	if len(settings.VoiceTickers) > 0 {
		apiKey := b.settingsService.ResolveAPIKey(settings)
		fetched, err := b.quotes.Fetch(ctx, apiKey, settings.VoiceTickers)
		if err != nil {
			return fmt.Errorf("failed to fetch quotes: %w", err)
		}

		current := make(map[string]decimal.Decimal, len(fetched))
		for _, q := range fetched {
			current[q.Symbol] = q.PriceUSD
		}
		previous, err = b.settingsService.ReconcilePrices(ctx, settings.GuildID, current)
		if err != nil {
			return fmt.Errorf("failed to reconcile prices: %w", err)
		}

		SortByMarketCap(fetched)
		quotes = fetched
	}

	channels, err := b.discord.GuildChannels(guildID)
	if err != nil {
		return fmt.Errorf("failed to list guild channels: %w", err)
	}
	for _, ch := range channels {
		if ch.Type == discordgo.ChannelTypeGuildVoice && ch.ParentID == categoryID {
			if _, err := b.discord.ChannelDelete(ch.ID); err != nil {
				return fmt.Errorf("failed to delete channel %s: %w", ch.ID, err)
			}
		}
	}

	for _, q := range quotes {
		var prevPrice *decimal.Decimal
		if p, ok := previous[q.Symbol]; ok {
			prevPrice = &p
		}
		movement := PriceMovement(prevPrice, q.PriceUSD, q.PercentChange1h)

		_, err := b.discord.GuildChannelCreateComplex(guildID, discordgo.GuildChannelCreateData{
			Name:     VoiceChannelName(q, movement, b.config.Styles),
			Type:     discordgo.ChannelTypeGuildVoice,
			ParentID: categoryID,
		})
		if err != nil {
			return fmt.Errorf("failed to create channel for %s: %w", q.Symbol, err)
		}
	}
	return nil
}

// UpdateAllMessageTickers posts price and ratio messages for every guild.
// Per-guild failures are logged and do not stop the sweep.
func (b *Bot) UpdateAllMessageTickers(ctx context.Context) error {
	allSettings, err := b.settingsService.AllSettings(ctx)
	if err != nil {
		return fmt.Errorf("failed to load guild settings: %w", err)
	}

	for _, settings := range allSettings {
		if err := b.refreshMessages(ctx, settings, true, true); err != nil {
			log.WithError(err).WithField("guild", settings.GuildID).Error("Failed to update message tickers")
		}
	}
	return nil
}

// RefreshGuildMessages posts price and/or ratio messages for one guild
func (b *Bot) RefreshGuildMessages(ctx context.Context, guildID int64, prices, ratios bool) error {
	settings, err := b.settingsService.GetSettings(ctx, guildID)
	if err != nil {
		return fmt.Errorf("failed to load guild settings: %w", err)
	}
	if settings == nil {
		return service.ErrNotTracked
	}
	return b.refreshMessages(ctx, settings, prices, ratios)
}

func (b *Bot) refreshMessages(ctx context.Context, settings *models.GuildSettings, prices, ratios bool) error {
	apiKey := b.settingsService.ResolveAPIKey(settings)
	if apiKey == "" {
		if len(settings.MessageTickers) > 0 || len(settings.RatioTickers) > 0 {
			return service.ErrNoAPIKey
		}
		return nil
	}

	if prices && len(settings.MessageTickers) > 0 {
		if err := b.postPriceMessages(ctx, settings, apiKey); err != nil {
			return err
		}
	}
	if ratios && len(settings.RatioTickers) > 0 {
		if err := b.postRatioMessages(ctx, settings, apiKey); err != nil {
			return err
		}
	}
	return nil
}

func (b *Bot) postPriceMessages(ctx context.Context, settings *models.GuildSettings, apiKey string) error {
	symbols := lo.Keys(settings.MessageTickers)
	quotes, err := b.quotes.Fetch(ctx, apiKey, symbols)
	if err != nil {
		return fmt.Errorf("failed to fetch quotes: %w", err)
	}

	for _, q := range quotes {
		channelID, ok := settings.MessageTickers[q.Symbol]
		if !ok {
			continue
		}
		if _, err := b.discord.ChannelMessageSend(strconv.FormatInt(channelID, 10), PriceMessage(q)); err != nil {
			log.WithError(err).WithFields(log.Fields{
				"guild":  settings.GuildID,
				"symbol": q.Symbol,
			}).Error("Failed to post price message")
		}
	}
	return nil
}

func (b *Bot) postRatioMessages(ctx context.Context, settings *models.GuildSettings, apiKey string) error {
	var symbols []string
	for key := range settings.RatioTickers {
		base, quoteSymbol, ok := models.SplitRatioKey(key)
		if !ok {
			continue
		}
		symbols = append(symbols, base, quoteSymbol)
	}
	symbols = lo.Uniq(symbols)
	if len(symbols) == 0 {
		return nil
	}

	quotes, err := b.quotes.Fetch(ctx, apiKey, symbols)
	if err != nil {
		return fmt.Errorf("failed to fetch quotes: %w", err)
	}
	bySymbol := lo.SliceToMap(quotes, func(q quote.Quote) (string, quote.Quote) {
		return q.Symbol, q
	})

	for key, channelID := range settings.RatioTickers {
		base, quoteSymbol, ok := models.SplitRatioKey(key)
		if !ok {
			continue
		}
		baseQuote, baseOK := bySymbol[base]
		quoteQuote, quoteOK := bySymbol[quoteSymbol]
		if !baseOK || !quoteOK {
			log.WithFields(log.Fields{
				"guild": settings.GuildID,
				"pair":  key,
			}).Warn("Skipping ratio pair with missing quote")
			continue
		}
		if _, err := b.discord.ChannelMessageSend(strconv.FormatInt(channelID, 10), RatioMessage(baseQuote, quoteQuote)); err != nil {
			log.WithError(err).WithFields(log.Fields{
				"guild": settings.GuildID,
				"pair":  key,
			}).Error("Failed to post ratio message")
		}
	}
	return nil
}
