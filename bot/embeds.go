package bot

import (
	"fmt"
	"sort"
	"strings"

	"github.com/bwmarrin/discordgo"
	"github.com/samber/lo"

	"tickerbot/models"
)

const embedColor = 0x2ECC71

// maskAPIKey hides all but the last four characters of a key
func maskAPIKey(key string) string {
	if key == "" {
		return "not set"
	}
	if len(key) <= 4 {
		return "****"
	}
	return "****" + key[len(key)-4:]
}

// CreateSettingsEmbed builds the embed shown by the settings command
func CreateSettingsEmbed(settings *models.GuildSettings) *discordgo.MessageEmbed {
	adminRole := "not set"
	if settings.AdminRoleID != nil {
		adminRole = fmt.Sprintf("<@&%d>", *settings.AdminRoleID)
	}

	category := "not set"
	if settings.UpdateCategoryID != nil {
		category = fmt.Sprintf("<#%d>", *settings.UpdateCategoryID)
	}

	voiceTickers := "none"
	if len(settings.VoiceTickers) > 0 {
		voiceTickers = strings.Join(settings.VoiceTickers, ", ")
	}

	return &discordgo.MessageEmbed{
		Title: "Ticker Settings",
		Color: embedColor,
		Fields: []*discordgo.MessageEmbedField{
			{
				Name:   "CoinMarketCap API Key",
				Value:  maskAPIKey(settings.CMCAPIKey),
				Inline: true,
			},
			{
				Name:   "Admin Role",
				Value:  adminRole,
				Inline: true,
			},
			{
				Name:   "Voice Update Category",
				Value:  category,
				Inline: true,
			},
			{
				Name:  "Voice Tickers",
				Value: voiceTickers,
			},
			{
				Name:  "Message Tickers",
				Value: formatChannelRouting(settings.MessageTickers),
			},
			{
				Name:  "Ratio Tickers",
				Value: formatChannelRouting(settings.RatioTickers),
			},
		},
	}
}

// formatChannelRouting renders a symbol-to-channel map as one line per entry
func formatChannelRouting(routing map[string]int64) string {
	if len(routing) == 0 {
		return "none"
	}
	keys := lo.Keys(routing)
	sort.Strings(keys)

	lines := make([]string, 0, len(keys))
	for _, key := range keys {
		lines = append(lines, fmt.Sprintf("%s → <#%d>", key, routing[key]))
	}
	return strings.Join(lines, "\n")
}
