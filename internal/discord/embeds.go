package discord

import (
	"strconv"
	"strings"

	"github.com/bwmarrin/discordgo"
)

const (
	maxDescription = 4000
	maxEmbeds      = 10
)

// ListEmbeds pages lines into embeds that fit Discord's description limit.
// An empty list renders a single embed with the empty text.
func ListEmbeds(title string, color int, lines []string, empty string) []*discordgo.MessageEmbed {
	if len(lines) == 0 {
		return []*discordgo.MessageEmbed{{Title: title, Color: color, Description: empty}}
	}

	var (
		pages []string
		cur   strings.Builder
	)
	for _, line := range lines {
		if cur.Len() > 0 && cur.Len()+len(line)+1 > maxDescription {
			pages = append(pages, cur.String())
			cur.Reset()
		}
		if cur.Len() > 0 {
			cur.WriteByte('\n')
		}
		cur.WriteString(truncate(line, maxDescription))
	}
	pages = append(pages, cur.String())
	if len(pages) > maxEmbeds {
		pages = pages[:maxEmbeds]
	}

	out := make([]*discordgo.MessageEmbed, 0, len(pages))
	for i, p := range pages {
		e := &discordgo.MessageEmbed{Color: color, Description: p}
		if i == 0 {
			e.Title = title
		}
		if len(pages) > 1 {
			e.Footer = &discordgo.MessageEmbedFooter{Text: "Page " + strconv.Itoa(i+1) + "/" + strconv.Itoa(len(pages))}
		}
		out = append(out, e)
	}
	return out
}

// ParseBool accepts the words moderators type for on and off.
func ParseBool(s string) (bool, bool) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "true", "on", "yes", "y", "1", "enable", "enabled":
		return true, true
	case "false", "off", "no", "n", "0", "disable", "disabled":
		return false, true
	}
	return false, false
}

// OnOff renders a toggle.
func OnOff(b bool) string {
	if b {
		return "enabled"
	}
	return "disabled"
}
