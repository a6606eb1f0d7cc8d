// Package discord connects the command router and the role and messaging
// adapters to a discordgo session.
package discord

import (
	"context"
	"fmt"
	"log/slog"
	"slices"
	"time"

	"github.com/bwmarrin/discordgo"

	"github.com/aussie-warriors/awbot/internal/observability/attr"
)

// Bot owns the gateway session.
type Bot struct {
	session *discordgo.Session
	guildID string
	prefix  string
	router  *Router
	logger  *slog.Logger
	started time.Time

	rootCtx context.Context
}

// NewSession creates a discordgo session with the intents the bot needs.
func NewSession(token string) (*discordgo.Session, error) {
	s, err := discordgo.New("Bot " + token)
	if err != nil {
		return nil, fmt.Errorf("failed to create discord session: %w", err)
	}
	s.Identify.Intents = discordgo.IntentsGuilds |
		discordgo.IntentsGuildMembers |
		discordgo.IntentsGuildMessages |
		discordgo.IntentsGuildMessageReactions |
		discordgo.IntentsDirectMessages |
		discordgo.IntentsMessageContent
	s.StateEnabled = true
	return s, nil
}

// NewBot wires a session to a router.
func NewBot(session *discordgo.Session, guildID, prefix string, router *Router, logger *slog.Logger) *Bot {
	return &Bot{
		session: session,
		guildID: guildID,
		prefix:  prefix,
		router:  router,
		logger:  logger.With(attr.String("component", "discord_bot")),
		rootCtx: context.Background(),
	}
}

// Open connects to the gateway. Handlers run with ctx as their parent.
func (b *Bot) Open(ctx context.Context) error {
	b.rootCtx = ctx
	b.started = time.Now()
	b.session.AddHandler(b.onReady)
	b.session.AddHandler(b.onMessageCreate)
	if err := b.session.Open(); err != nil {
		return fmt.Errorf("failed to open discord gateway: %w", err)
	}
	return nil
}

// Close disconnects from the gateway.
func (b *Bot) Close() error {
	return b.session.Close()
}

// StartedAt is when the gateway was opened.
func (b *Bot) StartedAt() time.Time {
	return b.started
}

// Latency is the last heartbeat round trip.
func (b *Bot) Latency() time.Duration {
	return b.session.HeartbeatLatency()
}

func (b *Bot) onReady(_ *discordgo.Session, r *discordgo.Ready) {
	b.logger.Info("Connected to Discord",
		attr.String("user", r.User.Username),
		attr.Int("guilds", len(r.Guilds)),
	)
}

func (b *Bot) onMessageCreate(s *discordgo.Session, m *discordgo.MessageCreate) {
	if m.Author == nil || m.Author.Bot {
		return
	}
	if b.guildID != "" && m.GuildID != "" && m.GuildID != b.guildID {
		return
	}

	botID := ""
	if s.State != nil && s.State.User != nil {
		botID = s.State.User.ID
	}
	name, args, ok := ParseInvocation(m.Content, b.prefix, botID)
	if !ok {
		return
	}

	authorID, _ := ParseID(m.Author.ID)
	req := &Request{
		Name:       name,
		Args:       args,
		GuildID:    m.GuildID,
		ChannelID:  m.ChannelID,
		MessageID:  m.ID,
		AuthorID:   authorID,
		AuthorName: m.Author.Username,
		Prefix:     b.prefix,
		Received:   time.Now().UTC(),
	}
	for _, u := range m.Mentions {
		if u.ID == botID {
			continue
		}
		if id, ok := ParseID(u.ID); ok {
			req.Mentions = append(req.Mentions, id)
		}
	}

	ctx, cancel := context.WithTimeout(b.rootCtx, 2*time.Minute)
	defer cancel()

	resp, err := b.router.Dispatch(ctx, req)
	if err != nil {
		b.logger.ErrorContext(ctx, "Dispatch failed", attr.Error(err))
		return
	}
	if resp == nil {
		return
	}
	if err := b.reply(ctx, m.Message, resp); err != nil {
		b.logger.ErrorContext(ctx, "Failed to send reply",
			attr.String("command", name),
			attr.Error(err),
		)
	}
}

func (b *Bot) reply(ctx context.Context, msg *discordgo.Message, resp *Response) error {
	if resp.React != "" {
		if err := b.session.MessageReactionAdd(msg.ChannelID, msg.ID, resp.React, discordgo.WithContext(ctx)); err != nil {
			return err
		}
	}
	if resp.Content == "" && len(resp.Embeds) == 0 && len(resp.Files) == 0 {
		return nil
	}
	_, err := b.session.ChannelMessageSendComplex(msg.ChannelID, &discordgo.MessageSend{
		Content:   resp.Content,
		Embeds:    resp.Embeds,
		Files:     resp.Files,
		Reference: msg.Reference(),
		AllowedMentions: &discordgo.MessageAllowedMentions{
			Parse: []discordgo.AllowedMentionType{discordgo.AllowedMentionTypeUsers},
		},
	}, discordgo.WithContext(ctx))
	return err
}

// SessionPermissions checks permission levels against live guild state.
type SessionPermissions struct {
	session  *discordgo.Session
	ownerIDs []string
}

// NewSessionPermissions builds the production PermissionChecker.
func NewSessionPermissions(session *discordgo.Session, ownerIDs []string) *SessionPermissions {
	return &SessionPermissions{session: session, ownerIDs: ownerIDs}
}

func (p *SessionPermissions) Allowed(ctx context.Context, req *Request, perm Permission) (bool, error) {
	author := FormatID(req.AuthorID)
	if slices.Contains(p.ownerIDs, author) {
		return true, nil
	}
	if perm == PermOwner {
		return false, nil
	}

	perms, err := p.session.UserChannelPermissions(author, req.ChannelID, discordgo.WithContext(ctx))
	if err != nil {
		return false, fmt.Errorf("failed to read channel permissions: %w", err)
	}
	return HasPermission(perms, perm), nil
}

// HasPermission maps a Discord permission bitset onto a level.
func HasPermission(bits int64, perm Permission) bool {
	if bits&discordgo.PermissionAdministrator != 0 {
		return perm != PermOwner
	}
	switch perm {
	case PermEveryone:
		return true
	case PermManageRoles:
		return bits&discordgo.PermissionManageRoles != 0
	case PermManageServer:
		return bits&discordgo.PermissionManageServer != 0
	}
	return false
}
