package bot

import (
	"context"
	"errors"
	"testing"

	"github.com/bwmarrin/discordgo"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"tickerbot/config"
	"tickerbot/models"
	"tickerbot/quote"
	"tickerbot/service"
)

// fakeDiscord records the channel operations the updaters perform
type fakeDiscord struct {
	channels []*discordgo.Channel
	deleted  []string
	created  []discordgo.GuildChannelCreateData
	sent     map[string][]string
}

func (f *fakeDiscord) GuildChannels(guildID string, _ ...discordgo.RequestOption) ([]*discordgo.Channel, error) {
	return f.channels, nil
}

func (f *fakeDiscord) ChannelDelete(channelID string, _ ...discordgo.RequestOption) (*discordgo.Channel, error) {
	f.deleted = append(f.deleted, channelID)
	return nil, nil
}

func (f *fakeDiscord) GuildChannelCreateComplex(guildID string, data discordgo.GuildChannelCreateData, _ ...discordgo.RequestOption) (*discordgo.Channel, error) {
	f.created = append(f.created, data)
	return nil, nil
}

func (f *fakeDiscord) ChannelMessageSend(channelID string, content string, _ ...discordgo.RequestOption) (*discordgo.Message, error) {
	if f.sent == nil {
		f.sent = make(map[string][]string)
	}
	f.sent[channelID] = append(f.sent[channelID], content)
	return nil, nil
}

// stubSettingsService serves one guild's settings; unused methods panic
type stubSettingsService struct {
	service.SettingsService
	settings   *models.GuildSettings
	previous   map[string]decimal.Decimal
	reconciled map[string]decimal.Decimal
}

func (s *stubSettingsService) GetSettings(ctx context.Context, guildID int64) (*models.GuildSettings, error) {
	return s.settings, nil
}

func (s *stubSettingsService) ResolveAPIKey(settings *models.GuildSettings) string {
	if settings == nil {
		return ""
	}
	return settings.CMCAPIKey
}

func (s *stubSettingsService) ReconcilePrices(ctx context.Context, guildID int64, current map[string]decimal.Decimal) (map[string]decimal.Decimal, error) {
	s.reconciled = current
	return s.previous, nil
}

func voiceSettings(tickers ...string) *models.GuildSettings {
	settings := models.NewGuildSettings(100)
	categoryID := int64(555)
	settings.UpdateCategoryID = &categoryID
	settings.CMCAPIKey = "guild-api-key"
	settings.VoiceTickers = tickers
	return settings
}

func tickerChannel(id string) *discordgo.Channel {
	return &discordgo.Channel{ID: id, Type: discordgo.ChannelTypeGuildVoice, ParentID: "555"}
}

func newTestBot(settings *stubSettingsService, quotes service.QuoteProvider, discord *fakeDiscord) *Bot {
	return &Bot{
		config:          Config{Styles: config.DefaultStyles()},
		discord:         discord,
		settingsService: settings,
		quotes:          quotes,
	}
}

func TestVoiceRefreshKeepsChannelsWhenFetchFails(t *testing.T) {
	ctx := context.Background()
	discord := &fakeDiscord{channels: []*discordgo.Channel{tickerChannel("900")}}
	mockQuotes := new(service.MockQuoteProvider)
	mockQuotes.On("Fetch", ctx, "guild-api-key", []string{"BTC"}).
		Return(nil, errors.New("upstream unavailable"))

	bot := newTestBot(&stubSettingsService{settings: voiceSettings("BTC")}, mockQuotes, discord)

	err := bot.RefreshGuildVoiceChannels(ctx, 100)
	require.Error(t, err)

	// A failed fetch must leave the existing channels standing
	assert.Empty(t, discord.deleted)
	assert.Empty(t, discord.created)
}

func TestVoiceRefreshRecreatesChannelsByMarketCap(t *testing.T) {
	ctx := context.Background()
	discord := &fakeDiscord{channels: []*discordgo.Channel{
		tickerChannel("900"),
		{ID: "901", Type: discordgo.ChannelTypeGuildText, ParentID: "555"},
		{ID: "902", Type: discordgo.ChannelTypeGuildVoice, ParentID: "666"},
	}}
	mockQuotes := new(service.MockQuoteProvider)
	mockQuotes.On("Fetch", ctx, "guild-api-key", []string{"ETH", "BTC"}).
		Return([]quote.Quote{
			{Symbol: "ETH", PriceUSD: decimal.RequireFromString("3000"), MarketCap: 362e9},
			{Symbol: "BTC", PriceUSD: decimal.RequireFromString("64021.553"), MarketCap: 1260e9},
		}, nil)

	settings := &stubSettingsService{
		settings: voiceSettings("ETH", "BTC"),
		previous: map[string]decimal.Decimal{
			"BTC": decimal.RequireFromString("63000"),
			"ETH": decimal.RequireFromString("3100"),
		},
	}
	bot := newTestBot(settings, mockQuotes, discord)

	require.NoError(t, bot.RefreshGuildVoiceChannels(ctx, 100))

	// Only voice channels under the update category are removed
	assert.Equal(t, []string{"900"}, discord.deleted)

	require.Len(t, discord.created, 2)
	assert.Equal(t, "BTC 📈 $64022", discord.created[0].Name)
	assert.Equal(t, "ETH 📉 $3000", discord.created[1].Name)
	assert.Equal(t, "555", discord.created[0].ParentID)
	assert.Equal(t, discordgo.ChannelTypeGuildVoice, discord.created[0].Type)

	// The current sample was stored for the next movement comparison
	assert.True(t, settings.reconciled["BTC"].Equal(decimal.RequireFromString("64021.553")))
}

func TestVoiceRefreshEmptyTickerListCleansUp(t *testing.T) {
	ctx := context.Background()
	discord := &fakeDiscord{channels: []*discordgo.Channel{tickerChannel("900")}}
	mockQuotes := new(service.MockQuoteProvider)

	bot := newTestBot(&stubSettingsService{settings: voiceSettings()}, mockQuotes, discord)

	require.NoError(t, bot.RefreshGuildVoiceChannels(ctx, 100))
	assert.Equal(t, []string{"900"}, discord.deleted)
	assert.Empty(t, discord.created)
	mockQuotes.AssertNotCalled(t, "Fetch")
}

func TestMessageRefreshPostsToConfiguredChannels(t *testing.T) {
	ctx := context.Background()
	discord := &fakeDiscord{}
	mockQuotes := new(service.MockQuoteProvider)
	mockQuotes.On("Fetch", ctx, "guild-api-key", []string{"BTC"}).
		Return([]quote.Quote{{Symbol: "BTC", Name: "Bitcoin", Slug: "bitcoin", PriceUSD: decimal.RequireFromString("64000")}}, nil)

	settings := voiceSettings()
	settings.MessageTickers["BTC"] = 42
	bot := newTestBot(&stubSettingsService{settings: settings}, mockQuotes, discord)

	require.NoError(t, bot.RefreshGuildMessages(ctx, 100, true, false))
	require.Len(t, discord.sent["42"], 1)
	assert.Equal(t,
		"The price of Bitcoin (BTC) is $64000.00 USD on [CMC](<https://coinmarketcap.com/currencies/bitcoin/>)",
		discord.sent["42"][0])
}
