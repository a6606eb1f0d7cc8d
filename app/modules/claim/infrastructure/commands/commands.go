// Package claimcommands exposes the claim service as chat commands.
package claimcommands

import (
	"context"
	"errors"
	"fmt"
	"strings"

	claimservice "github.com/aussie-warriors/awbot/app/modules/claim/application"
	claimdb "github.com/aussie-warriors/awbot/app/modules/claim/infrastructure/repositories"
	"github.com/aussie-warriors/awbot/config"
	"github.com/aussie-warriors/awbot/internal/discord"
	"github.com/aussie-warriors/awbot/internal/eventbus"
)

// Handlers holds the claim command handlers.
type Handlers struct {
	service claimservice.Service
	clans   config.ClansConfig
	perms   discord.PermissionChecker
}

// NewHandlers creates the claim command handlers.
func NewHandlers(service claimservice.Service, clans config.ClansConfig, perms discord.PermissionChecker) *Handlers {
	return &Handlers{service: service, clans: clans, perms: perms}
}

// Commands lists the claim commands.
func (h *Handlers) Commands() []discord.Command {
	cmds := []discord.Command{
		{
			Name:    "claim",
			Group:   "claims",
			Usage:   "claim <tag|ign> [@user]",
			Help:    "Link a game account to your Discord account. Moderators may claim for someone else.",
			Handler: h.Claim,
		},
		{
			Name:       "delete_claim",
			Aliases:    []string{"del"},
			Group:      "claims",
			Usage:      "delete_claim <tag|ign>",
			Help:       "Remove a claim.",
			Permission: discord.PermManageRoles,
			Handler:    h.DeleteClaim,
		},
		{
			Name:    "gc",
			Aliases: []string{"getclaims"},
			Group:   "claims",
			Usage:   "gc [@user]",
			Help:    "List a user's claimed accounts.",
			Handler: h.GetClaims,
		},
		{
			Name:       "updign",
			Group:      "claims",
			Usage:      "updign <tag|all>",
			Help:       "Refresh in-game names from the game API.",
			Permission: discord.PermManageRoles,
			Handler:    h.UpdateIGN,
		},
		{
			Name:       "exempt",
			Group:      "claims",
			Usage:      "exempt <tag|ign> <true|false>",
			Help:       "Exclude an account from donation averages.",
			Permission: discord.PermManageRoles,
			Handler:    h.Exempt,
		},
		{
			Name:    "exemptlist",
			Group:   "claims",
			Usage:   "exemptlist",
			Help:    "List exempt accounts.",
			Handler: h.ExemptList,
		},
		{
			Name:    "members",
			Group:   "claims",
			Usage:   "members <clan>",
			Help:    "Show claimed and unclaimed members of a tracked clan.",
			Handler: h.Members,
		},
	}

	for _, clan := range h.clans.Tracked {
		if clan.Alias == "" {
			continue
		}
		clan := clan
		cmds = append(cmds, discord.Command{
			Name:  strings.ToLower(clan.Alias) + "gm",
			Group: "claims",
			Usage: strings.ToLower(clan.Alias) + "gm",
			Help:  "Show claimed and unclaimed members of " + clan.Name + ".",
			Handler: func(ctx context.Context, req *discord.Request) (*discord.Response, error) {
				return h.roster(ctx, clan)
			},
		})
	}
	return cmds
}

// Claim handles "claim <tag|ign> [@user]".
func (h *Handlers) Claim(ctx context.Context, req *discord.Request) (*discord.Response, error) {
	query := queryArg(req.Args)
	if query == "" {
		return nil, discord.Userf("Usage: `%sclaim <tag|ign> [@user]`", req.Prefix)
	}

	owner := req.TargetUser()
	if owner != req.AuthorID {
		ok, err := h.perms.Allowed(ctx, req, discord.PermManageRoles)
		if err != nil {
			return nil, err
		}
		if !ok {
			return nil, discord.Userf("You need the **%s** permission to claim for someone else.", discord.PermManageRoles)
		}
	}

	claim, err := h.service.Claim(ctx, owner, query)
	if err != nil {
		var claimed *claimservice.ClaimedError
		if errors.As(err, &claimed) && claimed.OwnerID != 0 {
			return nil, discord.Userf("%s is already claimed by %s.", claimed.Tag, discord.Mention(claimed.OwnerID))
		}
		return nil, userFacing(err)
	}
	return discord.Text(fmt.Sprintf("%s (%s) has been claimed by %s.", claim.IGN, claim.Tag, discord.Mention(owner))), nil
}

// DeleteClaim handles "delete_claim <tag|ign>".
func (h *Handlers) DeleteClaim(ctx context.Context, req *discord.Request) (*discord.Response, error) {
	query := queryArg(req.Args)
	if query == "" {
		return nil, discord.Userf("Usage: `%sdelete_claim <tag|ign>`", req.Prefix)
	}
	claim, err := h.service.Unclaim(ctx, query)
	if err != nil {
		return nil, userFacing(err)
	}
	return discord.Text(fmt.Sprintf("Removed claim on %s (%s) from %s.", claim.IGN, claim.Tag, discord.Mention(claim.UserID))), nil
}

// GetClaims handles "gc [@user]".
func (h *Handlers) GetClaims(ctx context.Context, req *discord.Request) (*discord.Response, error) {
	user := req.TargetUser()
	claims, err := h.service.UserClaims(ctx, user)
	if err != nil {
		return nil, err
	}
	lines := make([]string, 0, len(claims))
	for _, c := range claims {
		line := fmt.Sprintf("**%s** `%s` %s", c.IGN, c.Tag, c.Clan)
		if c.Exempt {
			line += " (exempt)"
		}
		lines = append(lines, line)
	}
	return &discord.Response{Embeds: discord.ListEmbeds(
		"Claims", eventbus.ColorBlue, lines,
		discord.Mention(user)+" has no claimed accounts.",
	)}, nil
}

// UpdateIGN handles "updign <tag|all>".
func (h *Handlers) UpdateIGN(ctx context.Context, req *discord.Request) (*discord.Response, error) {
	arg := req.Arg(0)
	switch {
	case arg == "":
		return nil, discord.Userf("Usage: `%supdign <tag|all>`", req.Prefix)
	case strings.EqualFold(arg, "all"):
		res, err := h.service.RefreshAllIGNs(ctx)
		if err != nil {
			return nil, err
		}
		lines := make([]string, 0, len(res.Renamed)+len(res.Failed))
		for _, r := range res.Renamed {
			lines = append(lines, fmt.Sprintf("`%s` %s → %s", r.Tag, r.OldName, r.NewName))
		}
		for _, tag := range res.Failed {
			lines = append(lines, fmt.Sprintf("`%s` could not be refreshed", tag))
		}
		return &discord.Response{Embeds: discord.ListEmbeds("Name refresh", eventbus.ColorGreen, lines, "All names are up to date.")}, nil
	}

	res, err := h.service.RefreshIGN(ctx, arg)
	if err != nil {
		return nil, userFacing(err)
	}
	if res.OldName == res.NewName {
		return discord.Text(fmt.Sprintf("%s is already up to date (%s).", res.Tag, res.NewName)), nil
	}
	return discord.Text(fmt.Sprintf("Renamed %s from %s to %s.", res.Tag, res.OldName, res.NewName)), nil
}

// Exempt handles "exempt <tag|ign> <true|false>".
func (h *Handlers) Exempt(ctx context.Context, req *discord.Request) (*discord.Response, error) {
	if len(req.Args) < 2 {
		return nil, discord.Userf("Usage: `%sexempt <tag|ign> <true|false>`", req.Prefix)
	}
	value, ok := discord.ParseBool(req.Args[len(req.Args)-1])
	if !ok {
		return nil, discord.Userf("%q is not true or false.", req.Args[len(req.Args)-1])
	}
	claim, err := h.service.SetExempt(ctx, strings.Join(req.Args[:len(req.Args)-1], " "), value)
	if err != nil {
		return nil, userFacing(err)
	}
	if value {
		return discord.Text(fmt.Sprintf("%s (%s) is now exempt from donation tracking.", claim.IGN, claim.Tag)), nil
	}
	return discord.Text(fmt.Sprintf("%s (%s) is no longer exempt.", claim.IGN, claim.Tag)), nil
}

// ExemptList handles "exemptlist".
func (h *Handlers) ExemptList(ctx context.Context, req *discord.Request) (*discord.Response, error) {
	claims, err := h.service.ListExempt(ctx)
	if err != nil {
		return nil, err
	}
	lines := make([]string, 0, len(claims))
	for _, c := range claims {
		lines = append(lines, fmt.Sprintf("**%s** `%s` %s", c.IGN, c.Tag, discord.Mention(c.UserID)))
	}
	return &discord.Response{Embeds: discord.ListEmbeds("Exempt accounts", eventbus.ColorBlue, lines, "No accounts are exempt.")}, nil
}

// Members handles "members <clan>".
func (h *Handlers) Members(ctx context.Context, req *discord.Request) (*discord.Response, error) {
	key := strings.Join(req.Args, " ")
	clan, ok := h.clans.ByAlias(key)
	if !ok {
		return nil, discord.Userf("Unknown clan %q. Tracked clans: %s", key, strings.Join(h.clans.Names(), ", "))
	}
	return h.roster(ctx, clan)
}

func (h *Handlers) roster(ctx context.Context, clan config.Clan) (*discord.Response, error) {
	roster, err := h.service.ClanRoster(ctx, clan)
	if err != nil {
		return nil, err
	}
	claimed := make([]string, 0, len(roster.Claimed))
	for _, e := range roster.Claimed {
		claimed = append(claimed, fmt.Sprintf("%s `%s` %s", e.Member.Name, e.Member.Tag, discord.Mention(e.UserID)))
	}
	unclaimed := make([]string, 0, len(roster.Unclaimed))
	for _, m := range roster.Unclaimed {
		unclaimed = append(unclaimed, fmt.Sprintf("%s `%s`", m.Name, m.Tag))
	}

	embeds := discord.ListEmbeds(fmt.Sprintf("%s: claimed (%d)", clan.Name, len(claimed)), eventbus.ColorGreen, claimed, "Nobody is claimed.")
	embeds = append(embeds, discord.ListEmbeds(fmt.Sprintf("%s: unclaimed (%d)", clan.Name, len(unclaimed)), eventbus.ColorOrange, unclaimed, "Everyone is claimed.")...)
	if len(embeds) > 10 {
		embeds = embeds[:10]
	}
	return &discord.Response{Embeds: embeds}, nil
}

// queryArg joins the args that are not user mentions, so names with
// spaces work without quotes.
func queryArg(args []string) string {
	parts := make([]string, 0, len(args))
	for _, a := range args {
		if strings.HasPrefix(a, "<@") && strings.HasSuffix(a, ">") {
			continue
		}
		parts = append(parts, a)
	}
	return strings.TrimSpace(strings.Join(parts, " "))
}

func userFacing(err error) error {
	switch {
	case errors.Is(err, claimservice.ErrAlreadyClaimed),
		errors.Is(err, claimservice.ErrPlayerNotFound),
		errors.Is(err, claimservice.ErrAmbiguousName),
		errors.Is(err, claimdb.ErrNotFound):
		return discord.Userf("%s", trimOperation(err))
	}
	return err
}

// trimOperation drops the "Operation: " prefix the service adds.
func trimOperation(err error) string {
	msg := err.Error()
	if i := strings.Index(msg, ": "); i > 0 && !strings.ContainsAny(msg[:i], " #\"") {
		msg = msg[i+2:]
	}
	return strings.ToUpper(msg[:1]) + msg[1:]
}
