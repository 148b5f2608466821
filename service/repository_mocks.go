package service

import (
	"context"

	"github.com/stretchr/testify/mock"

	"tickerbot/models"
	"tickerbot/quote"
)

// MockGuildSettingsRepository is a mock implementation of GuildSettingsRepository
type MockGuildSettingsRepository struct {
	mock.Mock
}

func (m *MockGuildSettingsRepository) GetOrCreate(ctx context.Context, guildID int64) (*models.GuildSettings, error) {
	args := m.Called(ctx, guildID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.GuildSettings), args.Error(1)
}

func (m *MockGuildSettingsRepository) Get(ctx context.Context, guildID int64) (*models.GuildSettings, error) {
	args := m.Called(ctx, guildID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.GuildSettings), args.Error(1)
}

func (m *MockGuildSettingsRepository) Save(ctx context.Context, settings *models.GuildSettings) error {
	args := m.Called(ctx, settings)
	return args.Error(0)
}

func (m *MockGuildSettingsRepository) All(ctx context.Context) ([]*models.GuildSettings, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*models.GuildSettings), args.Error(1)
}

// MockQuoteProvider is a mock implementation of QuoteProvider
type MockQuoteProvider struct {
	mock.Mock
}

func (m *MockQuoteProvider) Fetch(ctx context.Context, apiKey string, symbols []string) ([]quote.Quote, error) {
	args := m.Called(ctx, apiKey, symbols)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]quote.Quote), args.Error(1)
}

func (m *MockQuoteProvider) FetchFresh(ctx context.Context, apiKey string, symbols []string) ([]quote.Quote, error) {
	args := m.Called(ctx, apiKey, symbols)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]quote.Quote), args.Error(1)
}
