package discord

import (
	"testing"

	"github.com/bwmarrin/discordgo"
	"github.com/stretchr/testify/assert"
)

func TestScanMemberPage(t *testing.T) {
	const role = "555"
	member := func(id string, roles ...string) *discordgo.Member {
		return &discordgo.Member{User: &discordgo.User{ID: id}, Roles: roles}
	}

	tests := []struct {
		name       string
		page       []*discordgo.Member
		wantIDs    []int64
		wantCursor string
	}{
		{
			name:       "holders in order",
			page:       []*discordgo.Member{member("10", role), member("11"), member("12", "1", role)},
			wantIDs:    []int64{10, 12},
			wantCursor: "12",
		},
		{
			name:       "last member without user",
			page:       []*discordgo.Member{member("10", role), member("11"), {Roles: []string{role}}},
			wantIDs:    []int64{10},
			wantCursor: "11",
		},
		{
			name:       "no users",
			page:       []*discordgo.Member{{Roles: []string{role}}, nil},
			wantCursor: "",
		},
		{
			name:       "empty page",
			wantCursor: "",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ids, cursor := scanMemberPage(tt.page, role)
			assert.Equal(t, tt.wantIDs, ids)
			assert.Equal(t, tt.wantCursor, cursor)
		})
	}
}
