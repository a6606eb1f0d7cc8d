// Package admincommands holds the bot maintenance commands.
package admincommands

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/bwmarrin/discordgo"

	adminservice "github.com/aussie-warriors/awbot/app/modules/admin/application"
	"github.com/aussie-warriors/awbot/internal/discord"
	"github.com/aussie-warriors/awbot/internal/eventbus"
	"github.com/aussie-warriors/awbot/internal/settings"
)

const topCommands = 10

// Gateway reports the connection health shown by ping and uptime.
type Gateway interface {
	Latency() time.Duration
	StartedAt() time.Time
}

// CommandLister lists the registered commands for help.
type CommandLister interface {
	Commands() []discord.Command
}

// Handlers holds the admin command handlers.
type Handlers struct {
	service  adminservice.Service
	gateway  Gateway
	commands CommandLister
	now      func() time.Time
}

// NewHandlers creates the admin command handlers.
func NewHandlers(service adminservice.Service, gateway Gateway, commands CommandLister) *Handlers {
	return &Handlers{service: service, gateway: gateway, commands: commands, now: time.Now}
}

// Commands lists the admin commands.
func (h *Handlers) Commands() []discord.Command {
	return []discord.Command{
		{Name: "ping", Group: "admin", Usage: "ping", Help: "Show the gateway latency.", Handler: h.Ping},
		{Name: "uptime", Group: "admin", Usage: "uptime", Help: "Show how long the bot has been connected.", Handler: h.Uptime},
		{Name: "commandstats", Group: "admin", Usage: "commandstats", Help: "Show the most used commands.", Handler: h.CommandStats},
		{Name: "taskstats", Group: "admin", Usage: "taskstats", Help: "Show periodic task runs.", Handler: h.TaskStats},
		{Name: "coctoken", Group: "admin", Usage: "coctoken", Help: "Regenerate the game API key.", Permission: discord.PermOwner, Handler: h.RefreshToken},
		{Name: "setting", Aliases: []string{"settings"}, Group: "admin", Usage: "setting [key] [true|false]", Help: "Show or change a runtime toggle.", Permission: discord.PermOwner, Handler: h.Setting},
		{Name: "help", Group: "admin", Usage: "help [command]", Help: "List commands or describe one.", Handler: h.Help},
	}
}

func (h *Handlers) Ping(_ context.Context, _ *discord.Request) (*discord.Response, error) {
	return discord.Text(fmt.Sprintf("Pong! %dms", h.gateway.Latency().Milliseconds())), nil
}

func (h *Handlers) Uptime(_ context.Context, _ *discord.Request) (*discord.Response, error) {
	started := h.gateway.StartedAt()
	if started.IsZero() {
		return discord.Text("The gateway is not connected yet."), nil
	}
	return discord.Text("Uptime: " + FormatUptime(h.now().Sub(started))), nil
}

func (h *Handlers) CommandStats(ctx context.Context, _ *discord.Request) (*discord.Response, error) {
	stats, err := h.service.CommandStats(ctx, topCommands)
	if err != nil {
		return nil, err
	}
	lines := make([]string, 0, len(stats.Top))
	for i, c := range stats.Top {
		lines = append(lines, fmt.Sprintf("%d. `%s`: %d", i+1, c.Command, c.Uses))
	}
	embeds := discord.ListEmbeds("Most used commands", eventbus.ColorBlue, lines, "No commands used yet.")
	embeds[len(embeds)-1].Footer = &discordgo.MessageEmbedFooter{Text: fmt.Sprintf("Total commands used: %d", stats.Total)}
	return &discord.Response{Embeds: embeds}, nil
}

func (h *Handlers) TaskStats(ctx context.Context, _ *discord.Request) (*discord.Response, error) {
	counts, err := h.service.TaskStats(ctx)
	if err != nil {
		return nil, err
	}
	lines := make([]string, 0, len(counts))
	for _, c := range counts {
		lines = append(lines, fmt.Sprintf("`%s`: %d runs, %d completed, %d failed", c.TaskName, c.Runs, c.Completed, c.Failed))
	}
	return &discord.Response{Embeds: discord.ListEmbeds("Task runs", eventbus.ColorBlue, lines, "No tasks have run yet.")}, nil
}

func (h *Handlers) RefreshToken(ctx context.Context, _ *discord.Request) (*discord.Response, error) {
	if err := h.service.RefreshToken(ctx); err != nil {
		if errors.Is(err, adminservice.ErrNoRefresher) {
			return nil, discord.Userf("No developer portal login is configured.")
		}
		return nil, err
	}
	return &discord.Response{Content: "Game API key refreshed.", React: "✅"}, nil
}

func (h *Handlers) Setting(ctx context.Context, req *discord.Request) (*discord.Response, error) {
	key := req.Arg(0)
	if key == "" {
		lines := make([]string, 0, len(settings.Keys()))
		for _, k := range settings.Keys() {
			v, err := h.service.Setting(ctx, k)
			if err != nil {
				return nil, err
			}
			lines = append(lines, fmt.Sprintf("`%s`: %s", k, discord.OnOff(v)))
		}
		return discord.Text(strings.Join(lines, "\n")), nil
	}

	if req.Arg(1) == "" {
		v, err := h.service.Setting(ctx, key)
		if err != nil {
			return nil, settingError(err, key)
		}
		return discord.Text(fmt.Sprintf("`%s` is %s.", key, discord.OnOff(v))), nil
	}

	value, ok := discord.ParseBool(req.Arg(1))
	if !ok {
		return nil, discord.Userf("Usage: `%ssetting %s <true|false>`", req.Prefix, key)
	}
	if err := h.service.SetSetting(ctx, key, value); err != nil {
		return nil, settingError(err, key)
	}
	return discord.Text(fmt.Sprintf("`%s` is now %s.", key, discord.OnOff(value))), nil
}

func settingError(err error, key string) error {
	if errors.Is(err, adminservice.ErrUnknownSetting) {
		return discord.Userf("Unknown setting `%s`. Known settings: %s", key, strings.Join(settings.Keys(), ", "))
	}
	return err
}

func (h *Handlers) Help(_ context.Context, req *discord.Request) (*discord.Response, error) {
	all := h.commands.Commands()
	if len(req.Args) > 0 {
		name := strings.ToLower(strings.Join(req.Args, " "))
		for _, c := range all {
			if c.Name == name || containsFold(c.Aliases, name) {
				return discord.EmbedResponse(CommandEmbed(c, req.Prefix)), nil
			}
		}
		return nil, discord.Userf("No command named `%s`.", name)
	}
	return discord.EmbedResponse(HelpEmbed(all, req.Prefix)), nil
}

// HelpEmbed lists commands grouped by module.
func HelpEmbed(cmds []discord.Command, prefix string) *discordgo.MessageEmbed {
	groups := map[string][]string{}
	var order []string
	for _, c := range cmds {
		g := c.Group
		if g == "" {
			g = "general"
		}
		if _, ok := groups[g]; !ok {
			order = append(order, g)
		}
		groups[g] = append(groups[g], "`"+c.Name+"`")
	}
	sort.Strings(order)

	e := &discordgo.MessageEmbed{
		Title:  "Commands",
		Color:  eventbus.ColorBlue,
		Footer: &discordgo.MessageEmbedFooter{Text: fmt.Sprintf("Use %shelp <command> for details.", prefix)},
	}
	for _, g := range order {
		e.Fields = append(e.Fields, &discordgo.MessageEmbedField{Name: g, Value: strings.Join(groups[g], ", ")})
	}
	return e
}

// CommandEmbed describes one command.
func CommandEmbed(c discord.Command, prefix string) *discordgo.MessageEmbed {
	e := &discordgo.MessageEmbed{
		Title:       prefix + c.Usage,
		Description: c.Help,
		Color:       eventbus.ColorBlue,
		Fields:      []*discordgo.MessageEmbedField{{Name: "Permission", Value: c.Permission.String(), Inline: true}},
	}
	if len(c.Aliases) > 0 {
		e.Fields = append(e.Fields, &discordgo.MessageEmbedField{Name: "Aliases", Value: strings.Join(c.Aliases, ", "), Inline: true})
	}
	return e
}

// FormatUptime renders d as days, hours and minutes.
func FormatUptime(d time.Duration) string {
	mins := int(d.Minutes())
	days, hours, mins := mins/(24*60), mins/60%24, mins%60
	if days > 0 {
		return fmt.Sprintf("%d days, %d hours, %d minutes", days, hours, mins)
	}
	return fmt.Sprintf("%d hours, %d minutes", hours, mins)
}

func containsFold(list []string, s string) bool {
	for _, v := range list {
		if strings.EqualFold(v, s) {
			return true
		}
	}
	return false
}
