package repository

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"sync"

	"github.com/shopspring/decimal"
	log "github.com/sirupsen/logrus"

	"tickerbot/models"
)

// SettingsStore persists all guild settings as a single JSON document keyed
// by guild ID. Snowflake IDs are serialized as decimal strings so the file
// survives tools that parse JSON numbers as float64.
type SettingsStore struct {
	path string

	mu     sync.Mutex
	guilds map[int64]*models.GuildSettings
}

// guildRecord is the persisted form of a guild settings entry
type guildRecord struct {
	CMCAPIKey      string            `json:"cmc_api_key,omitempty"`
	AdminRoleID    string            `json:"admin_role_id,omitempty"`
	UpdateCategory string            `json:"update_category,omitempty"`
	VoiceTickers   []string          `json:"voice_tickers,omitempty"`
	MessageTickers map[string]string `json:"message_tickers,omitempty"`
	RatioTickers   map[string]string `json:"ratio_tickers,omitempty"`
	LastPrices     map[string]string `json:"last_prices,omitempty"`
}

// NewSettingsStore loads the settings document at path, creating an empty
// store when the file does not exist yet.
func NewSettingsStore(path string) (*SettingsStore, error) {
	store := &SettingsStore{
		path:   path,
		guilds: make(map[int64]*models.GuildSettings),
	}
	if err := store.load(); err != nil {
		return nil, err
	}
	return store, nil
}

// GetOrCreate returns the settings for a guild, inserting an empty record if missing
func (s *SettingsStore) GetOrCreate(ctx context.Context, guildID int64) (*models.GuildSettings, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	settings, ok := s.guilds[guildID]
	if !ok {
		settings = models.NewGuildSettings(guildID)
		s.guilds[guildID] = settings
		if err := s.persist(); err != nil {
			delete(s.guilds, guildID)
			return nil, fmt.Errorf("failed to persist new guild settings: %w", err)
		}
	}
	return settings.Clone(), nil
}

// Get returns the settings for a guild, or nil when the guild has none
func (s *SettingsStore) Get(ctx context.Context, guildID int64) (*models.GuildSettings, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	settings, ok := s.guilds[guildID]
	if !ok {
		return nil, nil
	}
	return settings.Clone(), nil
}

// Save replaces a guild's settings and rewrites the document
func (s *SettingsStore) Save(ctx context.Context, settings *models.GuildSettings) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.guilds[settings.GuildID] = settings.Clone()
	if err := s.persist(); err != nil {
		return fmt.Errorf("failed to persist guild settings: %w", err)
	}
	return nil
}

// All returns every guild's settings, ordered by guild ID for stable iteration
func (s *SettingsStore) All(ctx context.Context) ([]*models.GuildSettings, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]*models.GuildSettings, 0, len(s.guilds))
	for _, settings := range s.guilds {
		out = append(out, settings.Clone())
	}
	sort.Slice(out, func(i, j int) bool { return out[i].GuildID < out[j].GuildID })
	return out, nil
}

// load reads the document from disk. A missing file is an empty store; a
// corrupt file is an error rather than silent data loss.
func (s *SettingsStore) load() error {
	data, err := os.ReadFile(s.path)
	if err != nil {
		if os.IsNotExist(err) {
			log.WithField("file", s.path).Info("No settings file found, starting empty")
			return nil
		}
		return fmt.Errorf("failed to read settings file: %w", err)
	}

	var records map[string]guildRecord
	if err := json.Unmarshal(data, &records); err != nil {
		return fmt.Errorf("failed to parse settings file %s: %w", s.path, err)
	}

	for guildIDStr, record := range records {
		guildID, err := strconv.ParseInt(guildIDStr, 10, 64)
		if err != nil {
			return fmt.Errorf("invalid guild ID %q in settings file: %w", guildIDStr, err)
		}
		settings, err := settingsFromRecord(guildID, record)
		if err != nil {
			return fmt.Errorf("invalid settings for guild %d: %w", guildID, err)
		}
		s.guilds[guildID] = settings
	}
	log.WithField("guilds", len(s.guilds)).Info("Loaded guild settings")
	return nil
}

// persist writes the whole document atomically; callers must hold s.mu
func (s *SettingsStore) persist() error {
	records := make(map[string]guildRecord, len(s.guilds))
	for guildID, settings := range s.guilds {
		records[strconv.FormatInt(guildID, 10)] = recordFromSettings(settings)
	}

	data, err := json.MarshalIndent(records, "", "    ")
	if err != nil {
		return fmt.Errorf("failed to marshal settings: %w", err)
	}

	dir := filepath.Dir(s.path)
	tmp, err := os.CreateTemp(dir, ".settings-*.json")
	if err != nil {
		return fmt.Errorf("failed to create temp settings file: %w", err)
	}
	tmpName := tmp.Name()
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return fmt.Errorf("failed to write settings: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("failed to close temp settings file: %w", err)
	}
	if err := os.Rename(tmpName, s.path); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("failed to replace settings file: %w", err)
	}
	return nil
}

func settingsFromRecord(guildID int64, record guildRecord) (*models.GuildSettings, error) {
	settings := models.NewGuildSettings(guildID)
	settings.CMCAPIKey = record.CMCAPIKey
	settings.VoiceTickers = append(settings.VoiceTickers, record.VoiceTickers...)

	if record.AdminRoleID != "" {
		id, err := strconv.ParseInt(record.AdminRoleID, 10, 64)
		if err != nil {
			return nil, fmt.Errorf("invalid admin role ID %q: %w", record.AdminRoleID, err)
		}
		settings.AdminRoleID = &id
	}
	if record.UpdateCategory != "" {
		id, err := strconv.ParseInt(record.UpdateCategory, 10, 64)
		if err != nil {
			return nil, fmt.Errorf("invalid update category ID %q: %w", record.UpdateCategory, err)
		}
		settings.UpdateCategoryID = &id
	}

	var err error
	if settings.MessageTickers, err = parseChannelMap(record.MessageTickers); err != nil {
		return nil, fmt.Errorf("invalid message tickers: %w", err)
	}
	if settings.RatioTickers, err = parseChannelMap(record.RatioTickers); err != nil {
		return nil, fmt.Errorf("invalid ratio tickers: %w", err)
	}

	for symbol, priceStr := range record.LastPrices {
		price, err := decimal.NewFromString(priceStr)
		if err != nil {
			return nil, fmt.Errorf("invalid last price %q for %s: %w", priceStr, symbol, err)
		}
		settings.LastPrices[symbol] = price
	}
	return settings, nil
}

func recordFromSettings(settings *models.GuildSettings) guildRecord {
	record := guildRecord{
		CMCAPIKey:    settings.CMCAPIKey,
		VoiceTickers: settings.VoiceTickers,
	}
	if settings.AdminRoleID != nil {
		record.AdminRoleID = strconv.FormatInt(*settings.AdminRoleID, 10)
	}
	if settings.UpdateCategoryID != nil {
		record.UpdateCategory = strconv.FormatInt(*settings.UpdateCategoryID, 10)
	}
	if len(settings.MessageTickers) > 0 {
		record.MessageTickers = formatChannelMap(settings.MessageTickers)
	}
	if len(settings.RatioTickers) > 0 {
		record.RatioTickers = formatChannelMap(settings.RatioTickers)
	}
	if len(settings.LastPrices) > 0 {
		record.LastPrices = make(map[string]string, len(settings.LastPrices))
		for symbol, price := range settings.LastPrices {
			record.LastPrices[symbol] = price.String()
		}
	}
	return record
}

func parseChannelMap(in map[string]string) (map[string]int64, error) {
	out := make(map[string]int64, len(in))
	for key, idStr := range in {
		id, err := strconv.ParseInt(idStr, 10, 64)
		if err != nil {
			return nil, fmt.Errorf("invalid channel ID %q for %s: %w", idStr, key, err)
		}
		out[key] = id
	}
	return out, nil
}

func formatChannelMap(in map[string]int64) map[string]string {
	out := make(map[string]string, len(in))
	for key, id := range in {
		out[key] = strconv.FormatInt(id, 10)
	}
	return out
}
