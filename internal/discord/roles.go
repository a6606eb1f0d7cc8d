package discord

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"slices"

	"github.com/bwmarrin/discordgo"
)

// ErrMemberNotFound is returned when a user is no longer in the guild.
var ErrMemberNotFound = errors.New("member not in guild")

const memberPageSize = 1000

// RoleManager grants and revokes a guild role.
type RoleManager struct {
	session *discordgo.Session
	guildID string
}

// NewRoleManager binds role operations to one guild.
func NewRoleManager(session *discordgo.Session, guildID string) *RoleManager {
	return &RoleManager{session: session, guildID: guildID}
}

// GrantRole adds roleID to userID.
func (m *RoleManager) GrantRole(ctx context.Context, userID int64, roleID, reason string) error {
	err := m.session.GuildMemberRoleAdd(m.guildID, FormatID(userID), roleID,
		discordgo.WithContext(ctx), discordgo.WithAuditLogReason(reason))
	return mapMemberError(err)
}

// RevokeRole removes roleID from userID.
func (m *RoleManager) RevokeRole(ctx context.Context, userID int64, roleID, reason string) error {
	err := m.session.GuildMemberRoleRemove(m.guildID, FormatID(userID), roleID,
		discordgo.WithContext(ctx), discordgo.WithAuditLogReason(reason))
	return mapMemberError(err)
}

// RoleMembers lists every guild member holding roleID.
func (m *RoleManager) RoleMembers(ctx context.Context, roleID string) ([]int64, error) {
	var (
		out   []int64
		after string
	)
	for {
		page, err := m.session.GuildMembers(m.guildID, after, memberPageSize, discordgo.WithContext(ctx))
		if err != nil {
			return nil, fmt.Errorf("failed to list guild members: %w", err)
		}
		ids, cursor := scanMemberPage(page, roleID)
		out = append(out, ids...)
		if len(page) < memberPageSize || cursor == "" {
			return out, nil
		}
		after = cursor
	}
}

// scanMemberPage returns the holders of roleID in page and the ID of the
// last member with a user, which is the cursor for the next page.
func scanMemberPage(page []*discordgo.Member, roleID string) (ids []int64, cursor string) {
	for _, mem := range page {
		if mem == nil || mem.User == nil {
			continue
		}
		cursor = mem.User.ID
		if slices.Contains(mem.Roles, roleID) {
			if id, ok := ParseID(mem.User.ID); ok {
				ids = append(ids, id)
			}
		}
	}
	return ids, cursor
}

// MemberName returns a user's display name in the guild.
func (m *RoleManager) MemberName(ctx context.Context, userID int64) (string, error) {
	mem, err := m.session.GuildMember(m.guildID, FormatID(userID), discordgo.WithContext(ctx))
	if err != nil {
		return "", mapMemberError(err)
	}
	if mem.Nick != "" {
		return mem.Nick, nil
	}
	if mem.User != nil {
		if mem.User.GlobalName != "" {
			return mem.User.GlobalName, nil
		}
		return mem.User.Username, nil
	}
	return FormatID(userID), nil
}

func mapMemberError(err error) error {
	if err == nil {
		return nil
	}
	var restErr *discordgo.RESTError
	if errors.As(err, &restErr) && restErr.Response != nil && restErr.Response.StatusCode == http.StatusNotFound {
		return fmt.Errorf("%w: %v", ErrMemberNotFound, err)
	}
	return err
}
