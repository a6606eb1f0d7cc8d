// Package warstatscommands exposes war statistics as chat commands.
package warstatscommands

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/bwmarrin/discordgo"

	warstatsservice "github.com/aussie-warriors/awbot/app/modules/warstats/application"
	warstatsdb "github.com/aussie-warriors/awbot/app/modules/warstats/infrastructure/repositories"
	"github.com/aussie-warriors/awbot/internal/discord"
	"github.com/aussie-warriors/awbot/internal/eventbus"
	"github.com/aussie-warriors/awbot/internal/settings"
)

const xlsxContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

// Flags reads and writes runtime switches.
type Flags interface {
	Enabled(key string) bool
	SetFlag(key string, value bool) error
}

// Handlers holds the war stats command handlers.
type Handlers struct {
	service warstatsservice.Service
	flags   Flags
}

// NewHandlers creates the war stats command handlers.
func NewHandlers(service warstatsservice.Service, flags Flags) *Handlers {
	return &Handlers{service: service, flags: flags}
}

// Commands lists the war stats commands.
func (h *Handlers) Commands() []discord.Command {
	return []discord.Command{
		{Name: "warstats", Group: "war", Usage: "warstats <tag|ign>", Help: "Show hit and defense rates over the last 20 wars.", Handler: h.PlayerStats},
		{Name: "statsdump", Group: "war", Usage: "statsdump", Help: "Export every stored war row as a spreadsheet.", Permission: discord.PermManageServer, Handler: h.Dump},
		{Name: "stats_toggle", Group: "war", Usage: "stats_toggle [true|false]", Help: "Show or change whether ended wars are recorded.", Permission: discord.PermManageServer, Handler: h.Toggle},
	}
}

// PlayerStats handles "warstats <tag|ign>".
func (h *Handlers) PlayerStats(ctx context.Context, req *discord.Request) (*discord.Response, error) {
	query := strings.Join(req.Args, " ")
	if query == "" {
		return nil, discord.Userf("Usage: `%swarstats <tag|ign>`", req.Prefix)
	}
	stats, err := h.service.PlayerStats(ctx, query)
	if err != nil {
		return nil, userFacing(err, query)
	}

	embed := &discordgo.MessageEmbed{
		Title: fmt.Sprintf("%s (%s)", stats.Name, stats.Tag),
		Color: eventbus.ColorBlue,
		Fields: []*discordgo.MessageEmbedField{
			{Name: "Town Hall", Value: fmt.Sprintf("%d", stats.TH), Inline: true},
			{Name: "Wars", Value: fmt.Sprintf("%d", len(stats.Wars)), Inline: true},
			{Name: "Hit rate", Value: rate(stats.HitRate)},
			{Name: "Defense rate", Value: rate(stats.DefenseRate)},
		},
	}
	resp := &discord.Response{Embeds: []*discordgo.MessageEmbed{embed}}

	png, err := h.service.HitRateChart(ctx, stats)
	if err != nil {
		// The numbers are still worth sending without the chart.
		return resp, nil
	}
	embed.Image = &discordgo.MessageEmbedImage{URL: "attachment://warstats.png"}
	resp.Files = []*discordgo.File{{Name: "warstats.png", ContentType: "image/png", Reader: bytes.NewReader(png)}}
	return resp, nil
}

// Dump handles "statsdump".
func (h *Handlers) Dump(ctx context.Context, _ *discord.Request) (*discord.Response, error) {
	data, err := h.service.Dump(ctx)
	if err != nil {
		return nil, err
	}
	return &discord.Response{
		Content: "War stats for the last 20 wars.",
		Files:   []*discordgo.File{{Name: "war_stats.xlsx", ContentType: xlsxContentType, Reader: bytes.NewReader(data)}},
	}, nil
}

// Toggle handles "stats_toggle [true|false]".
func (h *Handlers) Toggle(_ context.Context, req *discord.Request) (*discord.Response, error) {
	if req.Arg(0) == "" {
		on := h.flags.Enabled(settings.KeyUpdateStats)
		color := eventbus.ColorRed
		if on {
			color = eventbus.ColorGreen
		}
		return discord.EmbedResponse(&discordgo.MessageEmbed{Description: "War stats collection is " + discord.OnOff(on), Color: color}), nil
	}
	value, ok := discord.ParseBool(req.Arg(0))
	if !ok {
		return nil, discord.Userf("%q is not true or false.", req.Arg(0))
	}
	if err := h.flags.SetFlag(settings.KeyUpdateStats, value); err != nil {
		return nil, err
	}
	return &discord.Response{React: "✅"}, nil
}

func rate(f warstatsdb.Fraction) string {
	return fmt.Sprintf("%s (%.1f%%)", f.String(), f.Percent())
}

func userFacing(err error, query string) error {
	switch {
	case errors.Is(err, warstatsservice.ErrNoStats):
		return discord.Userf("No war stats recorded for %s.", query)
	case errors.Is(err, warstatsservice.ErrAmbiguousName):
		return discord.Userf("More than one player is named %s. Use their tag instead.", query)
	}
	return err
}
