// Package warstatuscommands renders war status lookups.
package warstatuscommands

import (
	"context"
	"errors"
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/bwmarrin/discordgo"

	warstatusservice "github.com/aussie-warriors/awbot/app/modules/warstatus/application"
	"github.com/aussie-warriors/awbot/internal/clashapi"
	"github.com/aussie-warriors/awbot/internal/discord"
	"github.com/aussie-warriors/awbot/internal/eventbus"
)

const colorGold = 0xf1c40f

// Handlers holds the war status command handlers.
type Handlers struct {
	service warstatusservice.Service
	now     func() time.Time
}

// NewHandlers creates the war status command handlers.
func NewHandlers(service warstatusservice.Service) *Handlers {
	return &Handlers{service: service, now: time.Now}
}

// Commands lists the war status commands.
func (h *Handlers) Commands() []discord.Command {
	return []discord.Command{
		{Name: "warstatus", Aliases: []string{"search clan"}, Group: "war", Usage: "warstatus <tag|name>", Help: "Show any clan's current war.", Handler: h.Status},
	}
}

// Status handles "warstatus <tag|name>".
func (h *Handlers) Status(ctx context.Context, req *discord.Request) (*discord.Response, error) {
	query := strings.Join(req.Args, " ")
	if query == "" {
		return nil, discord.Userf("Usage: `%swarstatus <tag|name>`", req.Prefix)
	}
	status, err := h.service.Lookup(ctx, query)
	if err != nil {
		if errors.Is(err, warstatusservice.ErrClanNotFound) {
			return nil, discord.Userf("Clan %s not found. Please try again.", query)
		}
		return nil, err
	}
	if len(status.Candidates) > 0 {
		return discord.EmbedResponse(CandidatesEmbed(status.Candidates, req.Prefix)), nil
	}
	return discord.EmbedResponse(StatusEmbed(status, h.now())), nil
}

// CandidatesEmbed lists the clans a name matched.
func CandidatesEmbed(clans []clashapi.Clan, prefix string) *discordgo.MessageEmbed {
	lines := make([]string, 0, len(clans))
	for i, c := range clans {
		lines = append(lines, fmt.Sprintf("%d. %s (%s) - Lv%d", i+1, c.Name, c.Tag, c.ClanLevel))
	}
	return &discordgo.MessageEmbed{
		Title:       "Several clans match",
		Description: strings.Join(lines, "\n\n"),
		Color:       eventbus.ColorBlue,
		Footer:      &discordgo.MessageEmbedFooter{Text: fmt.Sprintf("Run %swarstatus <tag> with one of the tags above.", prefix)},
	}
}

// StatusEmbed renders a clan's war.
func StatusEmbed(status *warstatusservice.Status, now time.Time) *discordgo.MessageEmbed {
	clan := status.Clan
	e := &discordgo.MessageEmbed{
		Color:  eventbus.ColorBlue,
		Fields: []*discordgo.MessageEmbedField{{Name: clan.Name, Value: clan.Tag}},
		Footer: &discordgo.MessageEmbedFooter{
			Text: fmt.Sprintf("War Record: %d-%d-%d | Streak: %d", clan.WarWins, clan.WarLosses, clan.WarTies, clan.WarWinStreak),
		},
	}
	if status.WarLogPrivate || status.War == nil {
		e.Description = "Current war not available: war log may be private"
		return e
	}

	war := status.War
	e.Fields = append(e.Fields, &discordgo.MessageEmbedField{Name: "War State:", Value: war.State})
	if war.State == clashapi.WarStateNotInWar {
		return e
	}

	e.Fields = append(e.Fields, &discordgo.MessageEmbedField{
		Name:  "Opponent:",
		Value: war.Opponent.Name + "\n" + war.Opponent.Tag,
	})
	switch war.State {
	case clashapi.WarStatePreparation:
		e.Fields = append(e.Fields, &discordgo.MessageEmbedField{Name: "War Start Time:", Value: Until(war.StartTime.Time, now)})
		e.Description = "Currently in preparation. Stats are not available yet."
		return e
	case clashapi.WarStateInWar:
		e.Fields = append(e.Fields, &discordgo.MessageEmbedField{Name: "War End Time:", Value: Until(war.EndTime.Time, now)})
	}

	us, them := war.Clan, war.Opponent
	e.Color = resultColor(us, them)
	e.Fields = append(e.Fields,
		&discordgo.MessageEmbedField{
			Name:   us.Name,
			Value:  fmt.Sprintf("%d/%d attacks\n%s%%", us.Attacks, war.AttacksPerSide(), percent(us.DestructionPercentage)),
			Inline: true,
		},
		&discordgo.MessageEmbedField{
			Name:   fmt.Sprintf("Size: %d vs %d", war.TeamSize, war.TeamSize),
			Value:  fmt.Sprintf("%d ⭐ vs ⭐ %d", us.Stars, them.Stars),
			Inline: true,
		},
		&discordgo.MessageEmbedField{
			Name:   them.Name,
			Value:  fmt.Sprintf("%d/%d attacks\n%s%%", them.Attacks, war.AttacksPerSide(), percent(them.DestructionPercentage)),
			Inline: true,
		},
	)
	return e
}

// resultColor is green when winning, gold when tied and red when losing.
// Stars decide first, then destruction.
func resultColor(us, them clashapi.WarClan) int {
	switch {
	case us.Stars > them.Stars:
		return eventbus.ColorGreen
	case us.Stars < them.Stars:
		return eventbus.ColorRed
	case us.DestructionPercentage > them.DestructionPercentage:
		return eventbus.ColorGreen
	case us.DestructionPercentage < them.DestructionPercentage:
		return eventbus.ColorRed
	}
	return colorGold
}

// Until renders the time from now to t as hours, minutes and seconds.
func Until(t, now time.Time) string {
	d := t.Sub(now)
	if d <= 0 {
		return "ended"
	}
	secs := int(d.Seconds())
	return fmt.Sprintf("%d hours %d minutes %d seconds", secs/3600, secs%3600/60, secs%60)
}

func percent(v float64) string {
	s := fmt.Sprintf("%.2f", math.Round(v*100)/100)
	return strings.TrimSuffix(strings.TrimRight(s, "0"), ".")
}
