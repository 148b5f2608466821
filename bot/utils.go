package bot

import (
	"context"
	"fmt"
	"strconv"

	"github.com/bwmarrin/discordgo"
	log "github.com/sirupsen/logrus"
)

// respond sends an ephemeral reply to an interaction
func (b *Bot) respond(s *discordgo.Session, i *discordgo.InteractionCreate, message string) {
	err := s.InteractionRespond(i.Interaction, &discordgo.InteractionResponse{
		Type: discordgo.InteractionResponseChannelMessageWithSource,
		Data: &discordgo.InteractionResponseData{
			Content: message,
			Flags:   discordgo.MessageFlagsEphemeral,
		},
	})
	if err != nil {
		log.WithError(err).Error("Error sending interaction response")
	}
}

// respondWithError sends an ephemeral error reply to an interaction
func (b *Bot) respondWithError(s *discordgo.Session, i *discordgo.InteractionCreate, message string) {
	b.respond(s, i, fmt.Sprintf("❌ %s", message))
}

// respondWithEmbed sends an ephemeral embed reply to an interaction
func (b *Bot) respondWithEmbed(s *discordgo.Session, i *discordgo.InteractionCreate, embed *discordgo.MessageEmbed) {
	err := s.InteractionRespond(i.Interaction, &discordgo.InteractionResponse{
		Type: discordgo.InteractionResponseChannelMessageWithSource,
		Data: &discordgo.InteractionResponseData{
			Embeds: []*discordgo.MessageEmbed{embed},
			Flags:  discordgo.MessageFlagsEphemeral,
		},
	})
	if err != nil {
		log.WithError(err).Error("Error sending embed response")
	}
}

// deferResponse acknowledges an interaction so a slow handler can follow up later
func (b *Bot) deferResponse(s *discordgo.Session, i *discordgo.InteractionCreate) error {
	return s.InteractionRespond(i.Interaction, &discordgo.InteractionResponse{
		Type: discordgo.InteractionResponseDeferredChannelMessageWithSource,
		Data: &discordgo.InteractionResponseData{
			Flags: discordgo.MessageFlagsEphemeral,
		},
	})
}

// followUp sends a message as a follow-up to a deferred interaction
func (b *Bot) followUp(s *discordgo.Session, i *discordgo.InteractionCreate, message string) {
	_, err := s.FollowupMessageCreate(i.Interaction, false, &discordgo.WebhookParams{
		Content: message,
		Flags:   discordgo.MessageFlagsEphemeral,
	})
	if err != nil {
		log.WithError(err).Error("Error sending follow-up message")
	}
}

// followUpWithError sends an error message as a follow-up to a deferred interaction
func (b *Bot) followUpWithError(s *discordgo.Session, i *discordgo.InteractionCreate, message string) {
	b.followUp(s, i, fmt.Sprintf("❌ %s", message))
}

// isAuthorized reports whether the invoking member may run admin commands:
// either they hold the Administrator permission or the guild's configured
// admin role
func (b *Bot) isAuthorized(s *discordgo.Session, i *discordgo.InteractionCreate) bool {
	if i.Member == nil {
		return false
	}
	if i.Member.Permissions&discordgo.PermissionAdministrator != 0 {
		return true
	}

	guildID, err := guildIDFromInteraction(i)
	if err != nil {
		return false
	}
	settings, err := b.settingsService.GetSettings(context.Background(), guildID)
	if err != nil {
		log.WithError(err).WithField("guild", guildID).Error("Failed to load settings for authorization check")
		return false
	}
	if settings == nil || settings.AdminRoleID == nil {
		return false
	}

	adminRole := strconv.FormatInt(*settings.AdminRoleID, 10)
	for _, roleID := range i.Member.Roles {
		if roleID == adminRole {
			return true
		}
	}
	return false
}

// optionMap indexes an interaction's options by name
func optionMap(i *discordgo.InteractionCreate) map[string]*discordgo.ApplicationCommandInteractionDataOption {
	options := i.ApplicationCommandData().Options
	m := make(map[string]*discordgo.ApplicationCommandInteractionDataOption, len(options))
	for _, opt := range options {
		m[opt.Name] = opt
	}
	return m
}

// snowflakeOption parses a channel or role option into an int64 ID
func snowflakeOption(opt *discordgo.ApplicationCommandInteractionDataOption) (int64, error) {
	return strconv.ParseInt(opt.Value.(string), 10, 64)
}
