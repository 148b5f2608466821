package models

import (
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
)

// GuildSettings holds the per-guild ticker configuration
type GuildSettings struct {
	GuildID          int64
	CMCAPIKey        string
	AdminRoleID      *int64
	UpdateCategoryID *int64
	VoiceTickers     []string
	MessageTickers   map[string]int64           // symbol -> text channel ID
	RatioTickers     map[string]int64           // "A:B" pair key -> text channel ID
	LastPrices       map[string]decimal.Decimal // symbol -> last seen USD price
}

// NewGuildSettings creates an empty settings record for a guild
func NewGuildSettings(guildID int64) *GuildSettings {
	return &GuildSettings{
		GuildID:        guildID,
		MessageTickers: make(map[string]int64),
		RatioTickers:   make(map[string]int64),
		LastPrices:     make(map[string]decimal.Decimal),
	}
}

// HasVoiceTicker reports whether the symbol is already tracked for voice updates
func (g *GuildSettings) HasVoiceTicker(symbol string) bool {
	for _, t := range g.VoiceTickers {
		if t == symbol {
			return true
		}
	}
	return false
}

// Clone returns a deep copy so callers can mutate freely before saving
func (g *GuildSettings) Clone() *GuildSettings {
	c := &GuildSettings{
		GuildID:        g.GuildID,
		CMCAPIKey:      g.CMCAPIKey,
		VoiceTickers:   append([]string(nil), g.VoiceTickers...),
		MessageTickers: make(map[string]int64, len(g.MessageTickers)),
		RatioTickers:   make(map[string]int64, len(g.RatioTickers)),
		LastPrices:     make(map[string]decimal.Decimal, len(g.LastPrices)),
	}
	if g.AdminRoleID != nil {
		id := *g.AdminRoleID
		c.AdminRoleID = &id
	}
	if g.UpdateCategoryID != nil {
		id := *g.UpdateCategoryID
		c.UpdateCategoryID = &id
	}
	for k, v := range g.MessageTickers {
		c.MessageTickers[k] = v
	}
	for k, v := range g.RatioTickers {
		c.RatioTickers[k] = v
	}
	for k, v := range g.LastPrices {
		c.LastPrices[k] = v
	}
	return c
}

// RatioKey builds the canonical "A:B" key for a ratio pair
func RatioKey(base, quote string) string {
	return fmt.Sprintf("%s:%s", strings.ToUpper(base), strings.ToUpper(quote))
}

// SplitRatioKey splits an "A:B" pair key into its two symbols
func SplitRatioKey(key string) (base, quote string, ok bool) {
	parts := strings.SplitN(key, ":", 2)
	if len(parts) != 2 || parts[0] == "" || parts[1] == "" {
		return "", "", false
	}
	return parts[0], parts[1], true
}
