package notifier

import (
	"fmt"
	"log/slog"
	"slices"
	"strings"

	"github.com/bwmarrin/discordgo"
	"github.com/gdg-garage/vegfest-api/internal/models"
)

type Notifier interface {
	NotifySubmission(user models.User, registration models.Registration) error
	NotifyStatusChange(registration models.Registration, label string, actorName string) error
}

type DiscordNotifier struct {
	session   *discordgo.Session
	guildID   string
	channelID string
	logger    *slog.Logger
}

type Option func(*DiscordNotifier)

func WithLogger(logger *slog.Logger) Option {
	return func(n *DiscordNotifier) {
		n.logger = logger
	}
}

// NewDiscordSession opens a bot session used for notifications and guild
// role lookups.
func NewDiscordSession(botToken string) (*discordgo.Session, error) {
	if botToken == "" {
		return nil, fmt.Errorf("discord bot token is empty")
	}
	session, err := discordgo.New("Bot " + botToken)
	if err != nil {
		return nil, fmt.Errorf("create discord session: %w", err)
	}
	session.Identify.Intents = discordgo.IntentsGuildMembers
	return session, nil
}

func NewDiscordNotifier(session *discordgo.Session, guildID, channelID string, opts ...Option) *DiscordNotifier {
	n := &DiscordNotifier{
		session:   session,
		guildID:   guildID,
		channelID: channelID,
		logger:    slog.Default(),
	}
	for _, opt := range opts {
		opt(n)
	}
	return n
}

func (n *DiscordNotifier) NotifySubmission(user models.User, registration models.Registration) error {
	return n.send(submissionMessage(user, registration))
}

func (n *DiscordNotifier) NotifyStatusChange(registration models.Registration, label string, actorName string) error {
	return n.send(statusChangeMessage(registration, label, actorName))
}

// HasRole reports whether the Discord user holds roleID in the configured guild.
func (n *DiscordNotifier) HasRole(discordUserID, roleID string) (bool, error) {
	if n.session == nil {
		return false, fmt.Errorf("discord session is nil")
	}
	if n.guildID == "" || roleID == "" || discordUserID == "" {
		return false, nil
	}
	member, err := n.session.GuildMember(n.guildID, discordUserID)
	if err != nil {
		return false, fmt.Errorf("fetch guild member: %w", err)
	}
	return slices.Contains(member.Roles, roleID), nil
}

func (n *DiscordNotifier) send(message string) error {
	if n.session == nil {
		return fmt.Errorf("discord session is nil")
	}
	if n.channelID == "" {
		return fmt.Errorf("discord channel ID is empty")
	}

	_, err := n.session.ChannelMessageSend(n.channelID, message)
	if err != nil {
		n.logger.Error("discord message failed", "error", err, "channel_id", n.channelID)
		return err
	}
	return nil
}

func submissionMessage(user models.User, registration models.Registration) string {
	var b strings.Builder
	fmt.Fprintf(&b, "📝 **New Registration Submitted**\n**Organization:** %s\n**Type:** %s\n**Contact:** %s <%s>",
		registration.OrganizationName,
		registration.Type,
		registration.ContactName,
		registration.ContactEmail,
	)
	if user.DiscordID != "" {
		fmt.Fprintf(&b, "\n**Applicant:** %s (<@%s>)", user.Username, user.DiscordID)
	}
	if registration.BoothCount > 0 {
		fmt.Fprintf(&b, "\n**Booths:** %d", registration.BoothCount)
	}
	return b.String()
}

func statusChangeMessage(registration models.Registration, label string, actorName string) string {
	icon := "✅"
	if registration.Status == models.StatusDeclined {
		icon = "❌"
	}
	return fmt.Sprintf("%s **%s**\n**Organization:** %s\n**Status:** %s\n**By:** %s",
		icon,
		label,
		registration.OrganizationName,
		registration.Status,
		actorName,
	)
}
