package bot

import (
	"context"
	"fmt"
	"sync"

	"happyfool/application"

	"github.com/bwmarrin/discordgo"
	log "github.com/sirupsen/logrus"
)

// maxMessageLength is Discord's limit for a plain channel message
const maxMessageLength = 2000

// Config holds bot configuration
type Config struct {
	Token             string
	GuildID           string
	ModeratorRoleIDs  []string
	SubscriberRoleIDs []string
}

// DeliverySubmitter accepts raw chat deliveries for dispatch
type DeliverySubmitter interface {
	Submit(ctx context.Context, raw application.RawDelivery) bool
}

// Bot is the Discord chat transport. It turns guild messages into raw
// deliveries and sends replies back to channels.
type Bot struct {
	config  Config
	session *discordgo.Session

	mu        sync.RWMutex
	ctx       context.Context
	submitter DeliverySubmitter
}

// New creates a bot with an unopened Discord session
func New(config Config) (*Bot, error) {
	dg, err := discordgo.New("Bot " + config.Token)
	if err != nil {
		return nil, fmt.Errorf("error creating discord session: %w", err)
	}
	dg.Identify.Intents = discordgo.IntentsGuilds |
		discordgo.IntentsGuildMessages |
		discordgo.IntentsGuildMembers |
		discordgo.IntentsMessageContent

	return &Bot{
		config:  config,
		session: dg,
	}, nil
}

// Open connects to Discord and starts handing messages to submitter.
// Messages received after ctx is cancelled are ignored.
func (b *Bot) Open(ctx context.Context, submitter DeliverySubmitter) error {
	b.mu.Lock()
	b.ctx = ctx
	b.submitter = submitter
	b.mu.Unlock()

	b.session.AddHandler(b.handleMessageCreate)

	if err := b.session.Open(); err != nil {
		return fmt.Errorf("error opening discord connection: %w", err)
	}

	fields := log.Fields{"guildID": b.config.GuildID}
	if b.session.State != nil && b.session.State.User != nil {
		fields["user"] = b.session.State.User.Username
	}
	log.WithFields(fields).Info("Discord bot connected")
	return nil
}

// Close gracefully shuts down the bot
func (b *Bot) Close() error {
	log.Info("Closing Discord session")
	return b.session.Close()
}

// Send posts text to a channel
func (b *Bot) Send(ctx context.Context, channel, text string) error {
	if _, err := b.session.ChannelMessageSend(channel, truncate(text), discordgo.WithContext(ctx)); err != nil {
		return fmt.Errorf("failed to send message to channel %s: %w", channel, err)
	}
	return nil
}

// Ping reports whether the gateway connection is up
func (b *Bot) Ping(ctx context.Context) error {
	if !b.session.DataReady {
		return fmt.Errorf("discord session is not ready")
	}
	return nil
}

func (b *Bot) handleMessageCreate(s *discordgo.Session, m *discordgo.MessageCreate) {
	selfID := ""
	if s.State != nil && s.State.User != nil {
		selfID = s.State.User.ID
	}
	if !b.shouldHandle(m, selfID) {
		return
	}

	b.mu.RLock()
	ctx, submitter := b.ctx, b.submitter
	b.mu.RUnlock()
	if submitter == nil || ctx.Err() != nil {
		return
	}

	role := resolveRole(m.Member, m.Author.ID, b.guildOwner(s, m.GuildID), b.channelPermissions(s, m.Author.ID, m.ChannelID), b.config)
	raw := toDelivery(m, role)

	if !submitter.Submit(ctx, raw) {
		log.WithFields(log.Fields{
			"messageID": m.ID,
			"channelID": m.ChannelID,
		}).Warn("Discord message was not accepted for dispatch")
	}
}

// shouldHandle filters out our own messages, other bots, DMs and other guilds
func (b *Bot) shouldHandle(m *discordgo.MessageCreate, selfID string) bool {
	if m.Message == nil || m.Author == nil {
		return false
	}
	if m.Author.Bot || m.Author.ID == selfID {
		return false
	}
	if m.GuildID == "" {
		return false
	}
	if b.config.GuildID != "" && m.GuildID != b.config.GuildID {
		return false
	}
	return true
}

func (b *Bot) guildOwner(s *discordgo.Session, guildID string) string {
	if s.State != nil {
		if guild, err := s.State.Guild(guildID); err == nil {
			return guild.OwnerID
		}
	}
	guild, err := s.Guild(guildID)
	if err != nil {
		log.WithError(err).WithField("guildID", guildID).Debug("Failed to look up guild owner")
		return ""
	}
	return guild.OwnerID
}

func (b *Bot) channelPermissions(s *discordgo.Session, userID, channelID string) int64 {
	if s.State == nil {
		return 0
	}
	perms, err := s.State.UserChannelPermissions(userID, channelID)
	if err != nil {
		return 0
	}
	return perms
}

func toDelivery(m *discordgo.MessageCreate, role string) application.RawDelivery {
	return application.RawDelivery{
		MessageID: m.ID,
		UserID:    m.Author.ID,
		UserLogin: m.Author.Username,
		Role:      role,
		Channel:   m.ChannelID,
		Text:      m.Content,
		Timestamp: m.Timestamp,
	}
}

func truncate(text string) string {
	runes := []rune(text)
	if len(runes) <= maxMessageLength {
		return text
	}
	return string(runes[:maxMessageLength-1]) + "…"
}
