// Package donationcommands exposes donation tracking as chat commands.
package donationcommands

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/bwmarrin/discordgo"

	donationservice "github.com/aussie-warriors/awbot/app/modules/donation/application"
	"github.com/aussie-warriors/awbot/config"
	"github.com/aussie-warriors/awbot/internal/discord"
	"github.com/aussie-warriors/awbot/internal/eventbus"
	"github.com/aussie-warriors/awbot/internal/settings"
)

// Flags reads and writes runtime switches.
type Flags interface {
	Enabled(key string) bool
	SetFlag(key string, value bool) error
}

// Handlers holds the donation command handlers.
type Handlers struct {
	service donationservice.Service
	clans   config.ClansConfig
	flags   Flags
}

// NewHandlers creates the donation command handlers.
func NewHandlers(service donationservice.Service, clans config.ClansConfig, flags Flags) *Handlers {
	return &Handlers{service: service, clans: clans, flags: flags}
}

// Commands lists the donation commands.
func (h *Handlers) Commands() []discord.Command {
	cmds := []discord.Command{
		{Name: "don", Aliases: []string{"mydon"}, Group: "donations", Usage: "don [@user]", Help: "Show this season's donations for each of your accounts.", Handler: h.Donations},
		{Name: "clandon", Group: "donations", Usage: "clandon <clan>", Help: "Show donations for a tracked clan grouped by member.", Handler: h.ClanDonations},
		{Name: "avg", Group: "donations", Usage: "avg [@user]", Help: "Show a user's average donations, or everyone below the requirement.", Handler: h.Average},
		{Name: "myavg", Group: "donations", Usage: "myavg", Help: "Show your average donations.", Handler: h.MyAverage},
		{Name: "avgchart", Group: "donations", Usage: "avgchart [@user]", Help: "Chart a user's donations per account against the requirement.", Handler: h.Chart},
		{Name: "myupd", Group: "donations", Usage: "myupd", Help: "Refresh donations for your accounts.", Handler: h.MyUpdate},
		{Name: "update_required", Group: "donations", Usage: "update_required", Help: "Recompute the donations required by today.", Permission: discord.PermManageServer, Handler: h.UpdateRequired},
		{Name: "refavg", Group: "donations", Usage: "refavg", Help: "Rebuild the averages table.", Permission: discord.PermManageServer, Handler: h.RefreshAverages},
		{Name: "upd", Group: "donations", Usage: "upd", Help: "Refresh donations for every claimed account.", Permission: discord.PermManageServer, Handler: h.Update},
		{Name: "manreset", Group: "donations", Usage: "manreset", Help: "Start a new donation season today.", Permission: discord.PermManageServer, Handler: h.NewSeason},
		{Name: "send_pings", Group: "donations", Usage: "send_pings", Help: "Post the donation warnings now.", Permission: discord.PermManageServer, Handler: h.SendPings},
		{Name: "send_pings_status", Group: "donations", Usage: "send_pings_status [true|false]", Help: "Show or change whether warnings are posted weekly.", Permission: discord.PermManageServer, Handler: h.PingStatus},
	}
	for _, clan := range h.clans.Tracked {
		if clan.Alias == "" {
			continue
		}
		clan := clan
		name := strings.ToLower(clan.Alias) + "don"
		cmds = append(cmds, discord.Command{
			Name:  name,
			Group: "donations",
			Usage: name,
			Help:  "Show donations for " + clan.Name + ".",
			Handler: func(ctx context.Context, _ *discord.Request) (*discord.Response, error) {
				return h.clan(ctx, clan)
			},
		})
	}
	return cmds
}

// Donations handles "don [@user]".
func (h *Handlers) Donations(ctx context.Context, req *discord.Request) (*discord.Response, error) {
	user := req.TargetUser()
	claims, err := h.service.UserDonations(ctx, user)
	if err != nil {
		if errors.Is(err, donationservice.ErrNoClaims) {
			return nil, discord.Userf("%s has no claimed accounts.", discord.Mention(user))
		}
		return nil, err
	}
	lines := make([]string, 0, len(claims))
	for _, c := range claims {
		lines = append(lines, fmt.Sprintf("%s (%s): `%s donations`", c.IGN, c.Tag, amount(c.Difference)))
	}
	return &discord.Response{Embeds: discord.ListEmbeds("Donations this season", eventbus.ColorBlue, lines, "")}, nil
}

// ClanDonations handles "clandon <clan>".
func (h *Handlers) ClanDonations(ctx context.Context, req *discord.Request) (*discord.Response, error) {
	key := strings.Join(req.Args, " ")
	clan, ok := h.clans.ByAlias(key)
	if !ok {
		return nil, discord.Userf("Unknown clan %q. Tracked clans: %s", key, strings.Join(h.clans.Names(), ", "))
	}
	return h.clan(ctx, clan)
}

func (h *Handlers) clan(ctx context.Context, clan config.Clan) (*discord.Response, error) {
	res, err := h.service.ClanDonations(ctx, clan.Name)
	if err != nil {
		return nil, userFacing(err)
	}
	lines := []string{fmt.Sprintf("Donations required by today: **%s**", amount(res.Quota))}
	for _, u := range res.Users {
		accounts := make([]string, 0, len(u.Claims))
		for _, c := range u.Claims {
			accounts = append(accounts, fmt.Sprintf("%s (%s): `%s don`", c.IGN, c.Tag, amount(c.Difference)))
		}
		lines = append(lines, discord.Mention(u.UserID)+"\n"+strings.Join(accounts, "\n"))
	}
	return &discord.Response{Embeds: discord.ListEmbeds(clan.Name+" donations", eventbus.ColorBlue, lines, "")}, nil
}

// Average handles "avg [@user]".
func (h *Handlers) Average(ctx context.Context, req *discord.Request) (*discord.Response, error) {
	if req.HasTarget() {
		return h.average(ctx, req.TargetUser())
	}
	flagged, err := h.service.Flagged(ctx)
	if err != nil {
		return nil, err
	}
	lines := make([]string, 0, len(flagged))
	for _, a := range flagged {
		lines = append(lines, fmt.Sprintf("%s: `%s donations`", discord.Mention(a.UserID), amount(a.Average)))
	}
	return &discord.Response{Embeds: discord.ListEmbeds("Below the requirement", eventbus.ColorOrange, lines, "Everyone is on track.")}, nil
}

// MyAverage handles "myavg".
func (h *Handlers) MyAverage(ctx context.Context, req *discord.Request) (*discord.Response, error) {
	return h.average(ctx, req.AuthorID)
}

func (h *Handlers) average(ctx context.Context, user int64) (*discord.Response, error) {
	avg, err := h.service.UserAverage(ctx, user)
	if err != nil {
		if errors.Is(err, donationservice.ErrNoAverage) {
			return nil, discord.Userf("%s has no average yet. Accounts must be claimed in a tracked clan.", discord.Mention(user))
		}
		return nil, err
	}
	color := eventbus.ColorGreen
	if avg.Warning {
		color = eventbus.ColorRed
	}
	return discord.EmbedResponse(&discordgo.MessageEmbed{
		Description: fmt.Sprintf("%s: `%s donations`", discord.Mention(user), amount(avg.Average)),
		Color:       color,
	}), nil
}

// Chart handles "avgchart [@user]".
func (h *Handlers) Chart(ctx context.Context, req *discord.Request) (*discord.Response, error) {
	user := req.TargetUser()
	png, err := h.service.DonationChart(ctx, user)
	if err != nil {
		return nil, userFacing(err)
	}
	return &discord.Response{
		Content: "Donations for " + discord.Mention(user),
		Files:   []*discordgo.File{{Name: "donations.png", ContentType: "image/png", Reader: bytes.NewReader(png)}},
	}, nil
}

// MyUpdate handles "myupd".
func (h *Handlers) MyUpdate(ctx context.Context, req *discord.Request) (*discord.Response, error) {
	res, err := h.service.RefreshUser(ctx, req.AuthorID)
	if err != nil {
		return nil, userFacing(err)
	}
	msg := fmt.Sprintf("Updated donations for %d account(s). Type `%smydon` to see them.", res.Updated, req.Prefix)
	if len(res.Failed) > 0 {
		msg += fmt.Sprintf(" Could not reach: %s.", strings.Join(res.Failed, ", "))
	}
	return &discord.Response{Content: msg, React: "✅"}, nil
}

// UpdateRequired handles "update_required".
func (h *Handlers) UpdateRequired(ctx context.Context, _ *discord.Request) (*discord.Response, error) {
	quota, err := h.service.UpdateRequired(ctx)
	if err != nil {
		return nil, userFacing(err)
	}
	return &discord.Response{Content: fmt.Sprintf("Donations required by today: **%s**", amount(quota)), React: "✅"}, nil
}

// RefreshAverages handles "refavg".
func (h *Handlers) RefreshAverages(ctx context.Context, _ *discord.Request) (*discord.Response, error) {
	if _, err := h.service.RebuildAverages(ctx); err != nil {
		return nil, userFacing(err)
	}
	return &discord.Response{React: "✅"}, nil
}

// Update handles "upd".
func (h *Handlers) Update(ctx context.Context, _ *discord.Request) (*discord.Response, error) {
	res, err := h.service.RefreshDonations(ctx)
	if err != nil {
		return nil, userFacing(err)
	}
	msg := fmt.Sprintf("Updated %d account(s). %d user(s) below the requirement of %s.", res.Updated, res.Flagged, amount(res.Quota))
	if len(res.Failed) > 0 {
		msg += fmt.Sprintf(" Could not reach: %s.", strings.Join(res.Failed, ", "))
	}
	return &discord.Response{Content: msg, React: "✅"}, nil
}

// NewSeason handles "manreset".
func (h *Handlers) NewSeason(ctx context.Context, _ *discord.Request) (*discord.Response, error) {
	res, err := h.service.NewSeason(ctx)
	if err != nil {
		return nil, err
	}
	msg := fmt.Sprintf("Started a new season on day %d. Re-baselined %d account(s).", res.Season.StartDate, res.Rebaselined)
	if len(res.Failed) > 0 {
		msg += fmt.Sprintf(" Used the last known totals for: %s.", strings.Join(res.Failed, ", "))
	}
	return &discord.Response{Content: msg, React: "✅"}, nil
}

// SendPings handles "send_pings".
func (h *Handlers) SendPings(ctx context.Context, _ *discord.Request) (*discord.Response, error) {
	n, err := h.service.SendPings(ctx)
	if err != nil {
		return nil, userFacing(err)
	}
	if n == 0 {
		return discord.Text("Nobody is below the requirement."), nil
	}
	return &discord.Response{React: "✅"}, nil
}

// PingStatus handles "send_pings_status [true|false]".
func (h *Handlers) PingStatus(_ context.Context, req *discord.Request) (*discord.Response, error) {
	if req.Arg(0) == "" {
		on := h.flags.Enabled(settings.KeySendPings)
		color := eventbus.ColorRed
		if on {
			color = eventbus.ColorGreen
		}
		return discord.EmbedResponse(&discordgo.MessageEmbed{Description: "Weekly pings are " + discord.OnOff(on), Color: color}), nil
	}
	value, ok := discord.ParseBool(req.Arg(0))
	if !ok {
		return nil, discord.Userf("%q is not true or false.", req.Arg(0))
	}
	if err := h.flags.SetFlag(settings.KeySendPings, value); err != nil {
		return nil, err
	}
	return &discord.Response{React: "✅"}, nil
}

func amount(v float64) string {
	return strings.TrimSuffix(strings.TrimRight(fmt.Sprintf("%.2f", v), "0"), ".")
}

func userFacing(err error) error {
	switch {
	case errors.Is(err, donationservice.ErrNoActiveSeason):
		return discord.Userf("No donation season is running. Start one with `manreset`.")
	case errors.Is(err, donationservice.ErrNoClaims):
		return discord.Userf("No claimed accounts found.")
	case errors.Is(err, donationservice.ErrUnknownClan):
		return discord.Userf("That clan is not tracked.")
	}
	return err
}
