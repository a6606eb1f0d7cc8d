package discord

import (
	"bytes"
	"context"
	"fmt"
	"time"

	"github.com/bwmarrin/discordgo"

	"github.com/aussie-warriors/awbot/internal/eventbus"
)

// Messenger posts notices, files and direct messages.
type Messenger struct {
	session *discordgo.Session
}

// NewMessenger wraps a session.
func NewMessenger(session *discordgo.Session) *Messenger {
	return &Messenger{session: session}
}

// NoticeEmbed renders a notice as an embed.
func NoticeEmbed(n eventbus.Notice) *discordgo.MessageEmbed {
	e := &discordgo.MessageEmbed{
		Title:       n.Title,
		Description: truncate(n.Description, 4096),
		Color:       n.Color,
	}
	if !n.Timestamp.IsZero() {
		e.Timestamp = n.Timestamp.Format(time.RFC3339)
	}
	for _, f := range n.Fields {
		e.Fields = append(e.Fields, &discordgo.MessageEmbedField{
			Name:   truncate(f.Name, 256),
			Value:  truncate(f.Value, 1024),
			Inline: f.Inline,
		})
	}
	return e
}

// SendNotice implements eventbus.NoticeSender.
func (m *Messenger) SendNotice(ctx context.Context, channelID string, n eventbus.Notice) error {
	send := &discordgo.MessageSend{Content: n.Content}
	if n.Title != "" || n.Description != "" || len(n.Fields) > 0 {
		send.Embeds = []*discordgo.MessageEmbed{NoticeEmbed(n)}
	}
	if _, err := m.session.ChannelMessageSendComplex(channelID, send, discordgo.WithContext(ctx)); err != nil {
		return fmt.Errorf("failed to send notice to %s: %w", channelID, err)
	}
	return nil
}

// SendFile uploads data to a channel with an optional caption.
func (m *Messenger) SendFile(ctx context.Context, channelID, caption, name, contentType string, data []byte) error {
	_, err := m.session.ChannelMessageSendComplex(channelID, &discordgo.MessageSend{
		Content: caption,
		Files: []*discordgo.File{{
			Name:        name,
			ContentType: contentType,
			Reader:      bytes.NewReader(data),
		}},
	}, discordgo.WithContext(ctx))
	if err != nil {
		return fmt.Errorf("failed to upload %s: %w", name, err)
	}
	return nil
}

// DirectMessage sends a DM. Users with DMs closed produce an error.
func (m *Messenger) DirectMessage(ctx context.Context, userID int64, content string) error {
	ch, err := m.session.UserChannelCreate(FormatID(userID), discordgo.WithContext(ctx))
	if err != nil {
		return fmt.Errorf("failed to open DM with %d: %w", userID, err)
	}
	if _, err := m.session.ChannelMessageSend(ch.ID, content, discordgo.WithContext(ctx)); err != nil {
		return fmt.Errorf("failed to DM %d: %w", userID, err)
	}
	return nil
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n-1]) + "…"
}
