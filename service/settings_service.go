package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/samber/lo"
	"github.com/shopspring/decimal"

	"tickerbot/events"
	"tickerbot/models"
	"tickerbot/quote"
)

// minAPIKeyLength rejects obviously malformed keys before spending a lookup
const minAPIKeyLength = 10

// settingsService implements the SettingsService interface
type settingsService struct {
	repo          GuildSettingsRepository
	quotes        QuoteProvider
	eventBus      *events.Bus
	defaultAPIKey string
}

// NewSettingsService creates a new guild settings service.
// defaultAPIKey may be empty; when set it backs guilds without their own key.
func NewSettingsService(repo GuildSettingsRepository, quotes QuoteProvider, eventBus *events.Bus, defaultAPIKey string) SettingsService {
	return &settingsService{
		repo:          repo,
		quotes:        quotes,
		eventBus:      eventBus,
		defaultAPIKey: defaultAPIKey,
	}
}

func (s *settingsService) GetSettings(ctx context.Context, guildID int64) (*models.GuildSettings, error) {
	settings, err := s.repo.Get(ctx, guildID)
	if err != nil {
		return nil, fmt.Errorf("failed to get guild settings: %w", err)
	}
	return settings, nil
}

func (s *settingsService) AllSettings(ctx context.Context) ([]*models.GuildSettings, error) {
	settings, err := s.repo.All(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list guild settings: %w", err)
	}
	return settings, nil
}

func (s *settingsService) SetAPIKey(ctx context.Context, guildID int64, apiKey string) error {
	apiKey = strings.TrimSpace(apiKey)
	if len(apiKey) < minAPIKeyLength {
		return ErrInvalidAPIKey
	}

	// Validate the key by looking up a symbol that always exists
	if err := s.verifySymbols(ctx, apiKey, "BTC"); err != nil {
		if errors.Is(err, ErrUnknownTicker) {
			return ErrInvalidAPIKey
		}
		return err
	}

	settings, err := s.repo.GetOrCreate(ctx, guildID)
	if err != nil {
		return fmt.Errorf("failed to get guild settings: %w", err)
	}
	settings.CMCAPIKey = apiKey
	if err := s.repo.Save(ctx, settings); err != nil {
		return fmt.Errorf("failed to save guild settings: %w", err)
	}
	s.eventBus.Emit(ctx, events.SettingsChangedEvent{GuildID: guildID})
	return nil
}

func (s *settingsService) RemoveAPIKey(ctx context.Context, guildID int64) error {
	settings, err := s.repo.Get(ctx, guildID)
	if err != nil {
		return fmt.Errorf("failed to get guild settings: %w", err)
	}
	if settings == nil || settings.CMCAPIKey == "" {
		return ErrNoAPIKey
	}
	settings.CMCAPIKey = ""
	if err := s.repo.Save(ctx, settings); err != nil {
		return fmt.Errorf("failed to save guild settings: %w", err)
	}
	s.eventBus.Emit(ctx, events.SettingsChangedEvent{GuildID: guildID})
	return nil
}

func (s *settingsService) ResolveAPIKey(settings *models.GuildSettings) string {
	if settings != nil && settings.CMCAPIKey != "" {
		return settings.CMCAPIKey
	}
	return s.defaultAPIKey
}

func (s *settingsService) SetAdminRole(ctx context.Context, guildID int64, roleID int64) error {
	settings, err := s.repo.GetOrCreate(ctx, guildID)
	if err != nil {
		return fmt.Errorf("failed to get guild settings: %w", err)
	}
	settings.AdminRoleID = &roleID
	if err := s.repo.Save(ctx, settings); err != nil {
		return fmt.Errorf("failed to save guild settings: %w", err)
	}
	s.eventBus.Emit(ctx, events.SettingsChangedEvent{GuildID: guildID})
	return nil
}

func (s *settingsService) RemoveAdminRole(ctx context.Context, guildID int64) error {
	settings, err := s.repo.Get(ctx, guildID)
	if err != nil {
		return fmt.Errorf("failed to get guild settings: %w", err)
	}
	if settings == nil || settings.AdminRoleID == nil {
		return ErrNoAdminRole
	}
	settings.AdminRoleID = nil
	if err := s.repo.Save(ctx, settings); err != nil {
		return fmt.Errorf("failed to save guild settings: %w", err)
	}
	s.eventBus.Emit(ctx, events.SettingsChangedEvent{GuildID: guildID})
	return nil
}

// SetUpdateCategory points voice updates at a new category. The ticker list
// is reset because the old channels live under the previous category.
func (s *settingsService) SetUpdateCategory(ctx context.Context, guildID int64, categoryID int64) error {
	settings, err := s.repo.GetOrCreate(ctx, guildID)
	if err != nil {
		return fmt.Errorf("failed to get guild settings: %w", err)
	}
	settings.UpdateCategoryID = &categoryID
	settings.VoiceTickers = nil
	if err := s.repo.Save(ctx, settings); err != nil {
		return fmt.Errorf("failed to save guild settings: %w", err)
	}
	s.eventBus.Emit(ctx, events.VoiceTickersChangedEvent{GuildID: guildID})
	return nil
}

func (s *settingsService) AddVoiceTicker(ctx context.Context, guildID int64, symbol string) error {
	symbol = strings.ToUpper(strings.TrimSpace(symbol))

	settings, err := s.repo.Get(ctx, guildID)
	if err != nil {
		return fmt.Errorf("failed to get guild settings: %w", err)
	}
	if settings == nil || settings.UpdateCategoryID == nil {
		return ErrNoCategory
	}
	apiKey := s.ResolveAPIKey(settings)
	if apiKey == "" {
		return ErrNoAPIKey
	}
	if settings.HasVoiceTicker(symbol) {
		return ErrAlreadyTracked
	}
	if err := s.verifySymbols(ctx, apiKey, symbol); err != nil {
		return err
	}

	settings.VoiceTickers = append(settings.VoiceTickers, symbol)
	if err := s.repo.Save(ctx, settings); err != nil {
		return fmt.Errorf("failed to save guild settings: %w", err)
	}
	s.eventBus.Emit(ctx, events.VoiceTickersChangedEvent{GuildID: guildID})
	return nil
}

func (s *settingsService) RemoveVoiceTicker(ctx context.Context, guildID int64, symbol string) error {
	symbol = strings.ToUpper(strings.TrimSpace(symbol))

	settings, err := s.repo.Get(ctx, guildID)
	if err != nil {
		return fmt.Errorf("failed to get guild settings: %w", err)
	}
	if settings == nil || !settings.HasVoiceTicker(symbol) {
		return ErrNotTracked
	}

	settings.VoiceTickers = lo.Without(settings.VoiceTickers, symbol)
	if err := s.repo.Save(ctx, settings); err != nil {
		return fmt.Errorf("failed to save guild settings: %w", err)
	}
	s.eventBus.Emit(ctx, events.VoiceTickersChangedEvent{GuildID: guildID})
	return nil
}

func (s *settingsService) AddMessageTicker(ctx context.Context, guildID int64, symbol string, channelID int64) error {
	symbol = strings.ToUpper(strings.TrimSpace(symbol))

	settings, err := s.repo.GetOrCreate(ctx, guildID)
	if err != nil {
		return fmt.Errorf("failed to get guild settings: %w", err)
	}
	apiKey := s.ResolveAPIKey(settings)
	if apiKey == "" {
		return ErrNoAPIKey
	}
	if err := s.verifySymbols(ctx, apiKey, symbol); err != nil {
		return err
	}

	settings.MessageTickers[symbol] = channelID
	if err := s.repo.Save(ctx, settings); err != nil {
		return fmt.Errorf("failed to save guild settings: %w", err)
	}
	s.eventBus.Emit(ctx, events.SettingsChangedEvent{GuildID: guildID})
	return nil
}

func (s *settingsService) RemoveMessageTicker(ctx context.Context, guildID int64, symbol string) error {
	symbol = strings.ToUpper(strings.TrimSpace(symbol))

	settings, err := s.repo.Get(ctx, guildID)
	if err != nil {
		return fmt.Errorf("failed to get guild settings: %w", err)
	}
	if settings == nil {
		return ErrNotTracked
	}
	if _, ok := settings.MessageTickers[symbol]; !ok {
		return ErrNotTracked
	}

	delete(settings.MessageTickers, symbol)
	if err := s.repo.Save(ctx, settings); err != nil {
		return fmt.Errorf("failed to save guild settings: %w", err)
	}
	s.eventBus.Emit(ctx, events.SettingsChangedEvent{GuildID: guildID})
	return nil
}

func (s *settingsService) AddRatioPair(ctx context.Context, guildID int64, base, quoteSymbol string, channelID int64) error {
	base = strings.ToUpper(strings.TrimSpace(base))
	quoteSymbol = strings.ToUpper(strings.TrimSpace(quoteSymbol))

	settings, err := s.repo.GetOrCreate(ctx, guildID)
	if err != nil {
		return fmt.Errorf("failed to get guild settings: %w", err)
	}
	apiKey := s.ResolveAPIKey(settings)
	if apiKey == "" {
		return ErrNoAPIKey
	}
	if err := s.verifySymbols(ctx, apiKey, base, quoteSymbol); err != nil {
		return err
	}

	settings.RatioTickers[models.RatioKey(base, quoteSymbol)] = channelID
	if err := s.repo.Save(ctx, settings); err != nil {
		return fmt.Errorf("failed to save guild settings: %w", err)
	}
	s.eventBus.Emit(ctx, events.SettingsChangedEvent{GuildID: guildID})
	return nil
}

func (s *settingsService) RemoveRatioPair(ctx context.Context, guildID int64, base, quoteSymbol string) error {
	key := models.RatioKey(base, quoteSymbol)

	settings, err := s.repo.Get(ctx, guildID)
	if err != nil {
		return fmt.Errorf("failed to get guild settings: %w", err)
	}
	if settings == nil {
		return ErrNotTracked
	}
	if _, ok := settings.RatioTickers[key]; !ok {
		return ErrNotTracked
	}

	delete(settings.RatioTickers, key)
	if err := s.repo.Save(ctx, settings); err != nil {
		return fmt.Errorf("failed to save guild settings: %w", err)
	}
	s.eventBus.Emit(ctx, events.SettingsChangedEvent{GuildID: guildID})
	return nil
}

func (s *settingsService) ReconcilePrices(ctx context.Context, guildID int64, current map[string]decimal.Decimal) (map[string]decimal.Decimal, error) {
	settings, err := s.repo.Get(ctx, guildID)
	if err != nil {
		return nil, fmt.Errorf("failed to get guild settings: %w", err)
	}
	if settings == nil {
		return nil, nil
	}

	previous := make(map[string]decimal.Decimal, len(settings.LastPrices))
	for symbol, price := range settings.LastPrices {
		previous[symbol] = price
	}

	// Merge rather than replace so symbols missing from this sample keep
	// their last known price for the next comparison.
	for symbol, price := range current {
		settings.LastPrices[symbol] = price
	}
	if err := s.repo.Save(ctx, settings); err != nil {
		return nil, fmt.Errorf("failed to save guild settings: %w", err)
	}
	return previous, nil
}

// verifySymbols checks that every symbol resolves on the quote API
func (s *settingsService) verifySymbols(ctx context.Context, apiKey string, symbols ...string) error {
	quotes, err := s.quotes.FetchFresh(ctx, apiKey, symbols)
	if err != nil {
		if errors.Is(err, quote.ErrInvalidAPIKey) {
			return ErrInvalidAPIKey
		}
		return fmt.Errorf("failed to verify ticker: %w", err)
	}

	found := lo.Map(quotes, func(q quote.Quote, _ int) string { return q.Symbol })
	if !lo.Every(found, symbols) {
		return ErrUnknownTicker
	}
	return nil
}
