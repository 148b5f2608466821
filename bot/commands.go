package bot

import (
	"fmt"

	"github.com/bwmarrin/discordgo"
)

// registerCommands registers all slash commands with Discord
func (b *Bot) registerCommands() error {
	tickerOption := &discordgo.ApplicationCommandOption{
		Type:        discordgo.ApplicationCommandOptionString,
		Name:        "ticker",
		Description: "Cryptocurrency symbol, e.g. BTC",
		Required:    true,
	}
	textChannelOption := &discordgo.ApplicationCommandOption{
		Type:         discordgo.ApplicationCommandOptionChannel,
		Name:         "channel",
		Description:  "Text channel to post updates in",
		ChannelTypes: []discordgo.ChannelType{discordgo.ChannelTypeGuildText},
		Required:     true,
	}

	commands := []*discordgo.ApplicationCommand{
		{
			Name:        "set_cmc_api_key",
			Description: "Set this server's CoinMarketCap API key",
			Options: []*discordgo.ApplicationCommandOption{
				{
					Type:        discordgo.ApplicationCommandOptionString,
					Name:        "api_key",
					Description: "CoinMarketCap API key",
					Required:    true,
				},
			},
		},
		{
			Name:        "remove_cmc_api_key",
			Description: "Remove this server's CoinMarketCap API key",
		},
		{
			Name:        "set_admin_role",
			Description: "Set the role allowed to manage ticker settings",
			Options: []*discordgo.ApplicationCommandOption{
				{
					Type:        discordgo.ApplicationCommandOptionRole,
					Name:        "role",
					Description: "Role allowed to use admin commands",
					Required:    true,
				},
			},
		},
		{
			Name:        "remove_admin_role",
			Description: "Remove the configured admin role",
		},
		{
			Name:        "set_voice_update_category",
			Description: "Set the category for price update voice channels",
			Options: []*discordgo.ApplicationCommandOption{
				{
					Type:         discordgo.ApplicationCommandOptionChannel,
					Name:         "category",
					Description:  "Category that will hold the ticker voice channels",
					ChannelTypes: []discordgo.ChannelType{discordgo.ChannelTypeGuildCategory},
					Required:     true,
				},
			},
		},
		{
			Name:        "add_voice_ticker",
			Description: "Add a ticker to voice channel updates",
			Options:     []*discordgo.ApplicationCommandOption{tickerOption},
		},
		{
			Name:        "remove_voice_ticker",
			Description: "Remove a ticker from voice channel updates",
			Options:     []*discordgo.ApplicationCommandOption{tickerOption},
		},
		{
			Name:        "add_message_ticker",
			Description: "Add a ticker for periodic price messages",
			Options:     []*discordgo.ApplicationCommandOption{tickerOption, textChannelOption},
		},
		{
			Name:        "remove_message_ticker",
			Description: "Remove a ticker from periodic price messages",
			Options:     []*discordgo.ApplicationCommandOption{tickerOption},
		},
		{
			Name:        "add_message_ratio_tickers",
			Description: "Add a ticker ratio for periodic messages",
			Options: []*discordgo.ApplicationCommandOption{
				{
					Type:        discordgo.ApplicationCommandOptionString,
					Name:        "ticker1",
					Description: "Base symbol of the ratio",
					Required:    true,
				},
				{
					Type:        discordgo.ApplicationCommandOptionString,
					Name:        "ticker2",
					Description: "Quote symbol of the ratio",
					Required:    true,
				},
				textChannelOption,
			},
		},
		{
			Name:        "remove_message_ratio_tickers",
			Description: "Remove a ticker ratio from periodic messages",
			Options: []*discordgo.ApplicationCommandOption{
				{
					Type:        discordgo.ApplicationCommandOptionString,
					Name:        "ticker1",
					Description: "Base symbol of the ratio",
					Required:    true,
				},
				{
					Type:        discordgo.ApplicationCommandOptionString,
					Name:        "ticker2",
					Description: "Quote symbol of the ratio",
					Required:    true,
				},
			},
		},
		{
			Name:        "show_settings",
			Description: "Show all current ticker settings for this server",
		},
		{
			Name:        "force_update_voice_tickers",
			Description: "Force update all voice channel tickers",
		},
		{
			Name:        "force_update_message_tickers",
			Description: "Force update all message tickers",
		},
		{
			Name:        "force_update_ratio_tickers",
			Description: "Force update all ratio tickers",
		},
	}

	for _, cmd := range commands {
		_, err := b.session.ApplicationCommandCreate(b.session.State.User.ID, "", cmd)
		if err != nil {
			return fmt.Errorf("cannot create '%s' command: %w", cmd.Name, err)
		}
	}

	return nil
}

// handleCommands dispatches slash command interactions
func (b *Bot) handleCommands(s *discordgo.Session, i *discordgo.InteractionCreate) {
	if i.Type != discordgo.InteractionApplicationCommand {
		return
	}

	// Every command mutates or exposes guild settings, so all are admin-gated
	if !b.isAuthorized(s, i) {
		b.respondWithError(s, i, "You need administrator permissions or the configured admin role to use this command.")
		return
	}

	switch i.ApplicationCommandData().Name {
	case "set_cmc_api_key":
		b.handleSetAPIKey(s, i)
	case "remove_cmc_api_key":
		b.handleRemoveAPIKey(s, i)
	case "set_admin_role":
		b.handleSetAdminRole(s, i)
	case "remove_admin_role":
		b.handleRemoveAdminRole(s, i)
	case "set_voice_update_category":
		b.handleSetUpdateCategory(s, i)
	case "add_voice_ticker":
		b.handleAddVoiceTicker(s, i)
	case "remove_voice_ticker":
		b.handleRemoveVoiceTicker(s, i)
	case "add_message_ticker":
		b.handleAddMessageTicker(s, i)
	case "remove_message_ticker":
		b.handleRemoveMessageTicker(s, i)
	case "add_message_ratio_tickers":
		b.handleAddRatioPair(s, i)
	case "remove_message_ratio_tickers":
		b.handleRemoveRatioPair(s, i)
	case "show_settings":
		b.handleShowSettings(s, i)
	case "force_update_voice_tickers":
		b.handleForceUpdateVoice(s, i)
	case "force_update_message_tickers":
		b.handleForceUpdateMessages(s, i)
	case "force_update_ratio_tickers":
		b.handleForceUpdateRatios(s, i)
	}
}
