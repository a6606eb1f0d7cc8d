// Package warningcommands exposes moderator warnings as chat commands.
package warningcommands

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/bwmarrin/discordgo"

	warningservice "github.com/aussie-warriors/awbot/app/modules/warning/application"
	warningdb "github.com/aussie-warriors/awbot/app/modules/warning/infrastructure/repositories"
	"github.com/aussie-warriors/awbot/internal/discord"
)

const (
	embedColor = 0x36393e
	// Discord rejects embeds with more fields.
	maxFields = 25
)

// Handlers holds the warning command handlers.
type Handlers struct {
	service warningservice.Service
	now     func() time.Time
}

// NewHandlers creates the warning command handlers.
func NewHandlers(service warningservice.Service) *Handlers {
	return &Handlers{service: service, now: time.Now}
}

// Commands lists the warning commands.
func (h *Handlers) Commands() []discord.Command {
	perm := discord.PermManageServer
	return []discord.Command{
		{Name: "warn", Aliases: []string{"warnings"}, Group: "warnings", Usage: "warn @user [reason] [expires <when>]", Help: "Warn a member. Same as `warn add`.", Permission: perm, Handler: h.Add},
		{Name: "warn add", Group: "warnings", Usage: "warn add @user [reason] [expires <when>]", Help: "Warn a member. Warnings expire after 7 days unless `expires` says otherwise, e.g. `expires in 3 days`.", Permission: perm, Handler: h.Add},
		{Name: "warn remove", Aliases: []string{"warn delete"}, Group: "warnings", Usage: "warn remove <id>", Help: "Remove a warning by its number.", Permission: perm, Handler: h.Remove},
		{Name: "warn clear", Group: "warnings", Usage: "warn clear @user", Help: "Remove every warning of a member.", Permission: perm, Handler: h.Clear},
		{Name: "warn show", Aliases: []string{"warn list", "warns"}, Group: "warnings", Usage: "warn show [@user]", Help: "List active warnings of a member, or of everyone.", Permission: perm, Handler: h.Show},
	}
}

// Add handles "warn add @user [reason] [expires <when>]".
func (h *Handlers) Add(ctx context.Context, req *discord.Request) (*discord.Response, error) {
	if !req.HasTarget() {
		return nil, discord.Userf("Mention the member to warn: `%swarn add @user [reason] [expires <when>]`", req.Prefix)
	}
	reason, expires := SplitReason(withoutMention(req.Args))

	res, err := h.service.Warn(ctx, warningservice.WarnRequest{
		UserID:        req.TargetUser(),
		ModeratorID:   req.AuthorID,
		ModeratorName: req.AuthorName,
		Reason:        reason,
		Expires:       expires,
	})
	if err != nil {
		if errors.Is(err, warningservice.ErrInvalidExpiry) {
			return nil, discord.Userf("I couldn't read %q as a future time. Try `in 3 days` or `next friday`.", expires)
		}
		return nil, err
	}

	msg := fmt.Sprintf("Warning No.%d recorded for %s.", res.Warning.ID, discord.Mention(res.Warning.UserID))
	if res.DMFailed {
		msg += " They have DMs closed, so they were not told."
	}
	return &discord.Response{Content: msg, React: "✅"}, nil
}

// Remove handles "warn remove <id>".
func (h *Handlers) Remove(ctx context.Context, req *discord.Request) (*discord.Response, error) {
	id, err := strconv.ParseInt(strings.TrimPrefix(req.Arg(0), "#"), 10, 64)
	if err != nil || id <= 0 {
		return nil, discord.Userf("Give the warning number, e.g. `%swarn remove 12`.", req.Prefix)
	}
	if _, err := h.service.Remove(ctx, id); err != nil {
		if errors.Is(err, warningservice.ErrNotFound) {
			return nil, discord.Userf("Warning ID not found.")
		}
		return nil, err
	}
	return &discord.Response{React: "✅"}, nil
}

// Clear handles "warn clear @user".
func (h *Handlers) Clear(ctx context.Context, req *discord.Request) (*discord.Response, error) {
	if !req.HasTarget() {
		return nil, discord.Userf("Mention the member whose warnings to clear.")
	}
	if _, err := h.service.Clear(ctx, req.TargetUser()); err != nil {
		return nil, err
	}
	return &discord.Response{React: "✅"}, nil
}

// Show handles "warn show [@user]".
func (h *Handlers) Show(ctx context.Context, req *discord.Request) (*discord.Response, error) {
	var user int64
	if req.HasTarget() {
		user = req.TargetUser()
	}
	warnings, err := h.service.Active(ctx, user)
	if err != nil {
		return nil, err
	}
	return discord.EmbedResponse(ListEmbed(warnings, h.now())), nil
}

// ListEmbed renders active warnings, one field each.
func ListEmbed(warnings []warningdb.Warning, now time.Time) *discordgo.MessageEmbed {
	e := &discordgo.MessageEmbed{
		Title:     "Active Warnings:",
		Color:     embedColor,
		Footer:    &discordgo.MessageEmbedFooter{Text: fmt.Sprintf("Total Warnings: %d", len(warnings))},
		Timestamp: now.UTC().Format(time.RFC3339),
	}
	for i, w := range warnings {
		if i == maxFields {
			break
		}
		e.Fields = append(e.Fields, &discordgo.MessageEmbedField{
			Name:  fmt.Sprintf("Warning No. %d", w.ID),
			Value: fmt.Sprintf("%s\n%s\n\nExpires in %s", discord.Mention(w.UserID), w.Reason, ExpiresIn(w.ExpiresAt, now)),
		})
	}
	return e
}

// ExpiresIn renders the time left in whole days, or hours under a day.
func ExpiresIn(expires, now time.Time) string {
	left := expires.Sub(now)
	if left <= 0 {
		return "0h"
	}
	if left < 24*time.Hour {
		return fmt.Sprintf("%dh", int(left.Hours()))
	}
	return fmt.Sprintf("%dd", int(left.Hours()/24))
}

// SplitReason separates "reason words expires <when>" into its parts.
func SplitReason(args []string) (reason, expires string) {
	for i, a := range args {
		if strings.EqualFold(a, "expires") {
			return strings.Join(args[:i], " "), strings.Join(args[i+1:], " ")
		}
	}
	return strings.Join(args, " "), ""
}

func withoutMention(args []string) []string {
	if len(args) > 0 {
		if _, ok := discord.UserArg(args[0]); ok {
			return args[1:]
		}
	}
	return args
}
