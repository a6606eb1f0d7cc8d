// Package warrolecommands exposes war role management as chat commands.
package warrolecommands

import (
	"context"
	"errors"
	"fmt"
	"strings"

	warroleservice "github.com/aussie-warriors/awbot/app/modules/warrole/application"
	"github.com/aussie-warriors/awbot/internal/discord"
	"github.com/aussie-warriors/awbot/internal/eventbus"
	"github.com/aussie-warriors/awbot/internal/settings"
)

// Toggles reads runtime switches.
type Toggles interface {
	Enabled(key string) bool
}

// Handlers holds the war role command handlers.
type Handlers struct {
	service warroleservice.Service
	toggles Toggles
}

// NewHandlers creates the war role command handlers.
func NewHandlers(service warroleservice.Service, toggles Toggles) *Handlers {
	return &Handlers{service: service, toggles: toggles}
}

// Commands lists the war role commands.
func (h *Handlers) Commands() []discord.Command {
	return []discord.Command{
		{
			Name:       "warrole",
			Group:      "war",
			Usage:      "warrole <init|sync|add|remove|show>",
			Help:       "Manage the war role.",
			Permission: discord.PermManageRoles,
			Handler:    h.Usage,
		},
		{
			Name:       "warrole init",
			Group:      "war",
			Usage:      "warrole init",
			Help:       "Give the war role to everyone in the current war and remove it from everyone else.",
			Permission: discord.PermManageRoles,
			Handler:    h.gated(h.Init),
		},
		{
			Name:       "warrole sync",
			Group:      "war",
			Usage:      "warrole sync",
			Help:       "Reconcile the war role with the current war now.",
			Permission: discord.PermManageRoles,
			Handler:    h.gated(h.Sync),
		},
		{
			Name:       "warrole add",
			Group:      "war",
			Usage:      "warrole add <tag|ign>",
			Help:       "Put a war member on the roster and give their owner the role.",
			Permission: discord.PermManageRoles,
			Handler:    h.gated(h.Add),
		},
		{
			Name:       "warrole remove",
			Aliases:    []string{"warrole rm"},
			Group:      "war",
			Usage:      "warrole remove <tag|ign>",
			Help:       "Take an account off the roster.",
			Permission: discord.PermManageRoles,
			Handler:    h.gated(h.Remove),
		},
		{
			Name:       "warrole show",
			Group:      "war",
			Usage:      "warrole show",
			Help:       "Compare the saved roster with the role's holders.",
			Permission: discord.PermManageRoles,
			Handler:    h.Show,
		},
	}
}

func (h *Handlers) gated(next discord.HandlerFunc) discord.HandlerFunc {
	return func(ctx context.Context, req *discord.Request) (*discord.Response, error) {
		if h.toggles != nil && !h.toggles.Enabled(settings.KeyWarRoles) {
			return nil, discord.Userf("War roles are turned off. Enable them with `%ssetting %s true`.", req.Prefix, settings.KeyWarRoles)
		}
		return next(ctx, req)
	}
}

// Usage handles the bare "warrole".
func (h *Handlers) Usage(_ context.Context, req *discord.Request) (*discord.Response, error) {
	return nil, discord.Userf("Usage: `%swarrole <init|sync|add|remove|show>`", req.Prefix)
}

// Init handles "warrole init".
func (h *Handlers) Init(ctx context.Context, _ *discord.Request) (*discord.Response, error) {
	res, err := h.service.Init(ctx)
	if err != nil {
		return nil, err
	}
	return report(res), nil
}

// Sync handles "warrole sync".
func (h *Handlers) Sync(ctx context.Context, _ *discord.Request) (*discord.Response, error) {
	res, err := h.service.Reconcile(ctx)
	if err != nil {
		return nil, err
	}
	return report(res), nil
}

func report(res *warroleservice.Result) *discord.Response {
	resp := discord.EmbedResponse(discord.NoticeEmbed(warroleservice.ReportNotice(res)))
	if res.OK() {
		resp.React = "✅"
	}
	return resp
}

// Add handles "warrole add <tag|ign>".
func (h *Handlers) Add(ctx context.Context, req *discord.Request) (*discord.Response, error) {
	query := strings.Join(req.Args, " ")
	if query == "" {
		return nil, discord.Userf("Usage: `%swarrole add <tag|ign>`", req.Prefix)
	}
	change, err := h.service.Add(ctx, query)
	if err != nil {
		return nil, userFacing(err)
	}
	return discord.Text(fmt.Sprintf("Added %s (%s) to the war roster and gave %s the war role.",
		change.Name, change.Entry.Tag, discord.Mention(change.Entry.UserID))), nil
}

// Remove handles "warrole remove <tag|ign>".
func (h *Handlers) Remove(ctx context.Context, req *discord.Request) (*discord.Response, error) {
	query := strings.Join(req.Args, " ")
	if query == "" {
		return nil, discord.Userf("Usage: `%swarrole remove <tag|ign>`", req.Prefix)
	}
	change, err := h.service.Remove(ctx, query)
	if err != nil {
		return nil, userFacing(err)
	}
	msg := fmt.Sprintf("Removed %s from the war roster.", change.Entry.Tag)
	if change.RoleKept {
		msg += fmt.Sprintf(" %s keeps the war role for another account.", discord.Mention(change.Entry.UserID))
	} else {
		msg += fmt.Sprintf(" Took the war role from %s.", discord.Mention(change.Entry.UserID))
	}
	return discord.Text(msg), nil
}

// Show handles "warrole show".
func (h *Handlers) Show(ctx context.Context, _ *discord.Request) (*discord.Response, error) {
	view, err := h.service.Show(ctx)
	if err != nil {
		return nil, err
	}
	lines := make([]string, 0, len(view.Entries))
	for _, e := range view.Entries {
		lines = append(lines, fmt.Sprintf("`%s` %s", e.Tag, discord.Mention(e.UserID)))
	}
	embeds := discord.ListEmbeds(fmt.Sprintf("War roster (%d)", len(view.Entries)), eventbus.ColorBlue, lines, "The roster is empty.")

	var drift []string
	for _, u := range view.MissingRole {
		drift = append(drift, discord.Mention(u)+" is on the roster without the role")
	}
	for _, u := range view.NotOnRoster {
		drift = append(drift, discord.Mention(u)+" has the role but is not on the roster")
	}
	if len(drift) > 0 {
		embeds = append(embeds, discord.ListEmbeds("Out of sync", eventbus.ColorOrange, drift, "")...)
	}
	return &discord.Response{Embeds: embeds}, nil
}

func userFacing(err error) error {
	switch {
	case errors.Is(err, warroleservice.ErrNotInWar),
		errors.Is(err, warroleservice.ErrUnclaimed),
		errors.Is(err, warroleservice.ErrAmbiguousName),
		errors.Is(err, warroleservice.ErrNotOnRoster):
		msg := err.Error()
		if i := strings.Index(msg, ": "); i > 0 && !strings.ContainsAny(msg[:i], " #") {
			msg = msg[i+2:]
		}
		return discord.Userf("%s", strings.ToUpper(msg[:1])+msg[1:])
	}
	return err
}
