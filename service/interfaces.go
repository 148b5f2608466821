package service

import (
	"context"

	"github.com/shopspring/decimal"

	"tickerbot/models"
	"tickerbot/quote"
)

// GuildSettingsRepository defines the interface for guild settings persistence
type GuildSettingsRepository interface {
	// GetOrCreate returns the settings for a guild, inserting an empty record if missing
	GetOrCreate(ctx context.Context, guildID int64) (*models.GuildSettings, error)

	// Get returns the settings for a guild, or nil when the guild has none
	Get(ctx context.Context, guildID int64) (*models.GuildSettings, error)

	// Save replaces a guild's settings
	Save(ctx context.Context, settings *models.GuildSettings) error

	// All returns every guild's settings
	All(ctx context.Context) ([]*models.GuildSettings, error)
}

// QuoteProvider defines the interface for price quote lookups
type QuoteProvider interface {
	// Fetch returns quotes for the symbols, allowing cached results
	Fetch(ctx context.Context, apiKey string, symbols []string) ([]quote.Quote, error)

	// FetchFresh returns quotes bypassing any cache, for validation
	FetchFresh(ctx context.Context, apiKey string, symbols []string) ([]quote.Quote, error)
}

// SettingsService defines the interface for guild settings operations
type SettingsService interface {
	// GetSettings returns a guild's settings, or nil when none are configured
	GetSettings(ctx context.Context, guildID int64) (*models.GuildSettings, error)

	// AllSettings returns settings for every configured guild
	AllSettings(ctx context.Context) ([]*models.GuildSettings, error)

	// SetAPIKey validates and stores the guild's quote API key
	SetAPIKey(ctx context.Context, guildID int64, apiKey string) error

	// RemoveAPIKey clears the guild's quote API key
	RemoveAPIKey(ctx context.Context, guildID int64) error

	// ResolveAPIKey returns the key updates should use for a guild,
	// falling back to the process-wide default when the guild has none
	ResolveAPIKey(settings *models.GuildSettings) string

	// SetAdminRole sets the role allowed to run admin commands
	SetAdminRole(ctx context.Context, guildID int64, roleID int64) error

	// RemoveAdminRole clears the configured admin role
	RemoveAdminRole(ctx context.Context, guildID int64) error

	// SetUpdateCategory sets the voice ticker category and resets the ticker list
	SetUpdateCategory(ctx context.Context, guildID int64, categoryID int64) error

	// AddVoiceTicker adds a symbol to the guild's voice channel updates
	AddVoiceTicker(ctx context.Context, guildID int64, symbol string) error

	// RemoveVoiceTicker removes a symbol from the guild's voice channel updates
	RemoveVoiceTicker(ctx context.Context, guildID int64, symbol string) error

	// AddMessageTicker routes price messages for a symbol to a channel
	AddMessageTicker(ctx context.Context, guildID int64, symbol string, channelID int64) error

	// RemoveMessageTicker stops price messages for a symbol
	RemoveMessageTicker(ctx context.Context, guildID int64, symbol string) error

	// AddRatioPair routes ratio messages for a symbol pair to a channel
	AddRatioPair(ctx context.Context, guildID int64, base, quoteSymbol string, channelID int64) error

	// RemoveRatioPair stops ratio messages for a symbol pair
	RemoveRatioPair(ctx context.Context, guildID int64, base, quoteSymbol string) error

	// ReconcilePrices persists the current price sample for a guild and
	// returns the previous one for movement comparison
	ReconcilePrices(ctx context.Context, guildID int64, current map[string]decimal.Decimal) (previous map[string]decimal.Decimal, err error)
}
