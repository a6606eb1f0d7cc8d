package discord

import (
	"context"
	"fmt"
	"time"

	"github.com/bwmarrin/discordgo"
)

// Permission is the level required to run a command.
type Permission int

const (
	PermEveryone Permission = iota
	PermManageRoles
	PermManageServer
	PermOwner
)

func (p Permission) String() string {
	switch p {
	case PermManageRoles:
		return "Manage Roles"
	case PermManageServer:
		return "Manage Server"
	case PermOwner:
		return "Bot Owner"
	}
	return "Everyone"
}

// Request is one command invocation.
type Request struct {
	Name       string
	Args       []string
	GuildID    string
	ChannelID  string
	MessageID  string
	AuthorID   int64
	AuthorName string
	// Mentions excludes the bot itself.
	Mentions []int64
	Prefix   string
	Received time.Time
}

// Arg returns the i-th argument or "".
func (r *Request) Arg(i int) string {
	if i < 0 || i >= len(r.Args) {
		return ""
	}
	return r.Args[i]
}

// TargetUser returns the first mentioned user, or the author.
func (r *Request) TargetUser() int64 {
	if len(r.Mentions) > 0 {
		return r.Mentions[0]
	}
	for _, a := range r.Args {
		if id, ok := UserArg(a); ok && len(a) > 3 && a[0] == '<' {
			return id
		}
	}
	return r.AuthorID
}

// HasTarget reports whether a user other than the author was mentioned.
func (r *Request) HasTarget() bool {
	return r.TargetUser() != r.AuthorID
}

// Response is what a command sends back.
type Response struct {
	Content string
	Embeds  []*discordgo.MessageEmbed
	Files   []*discordgo.File
	// React adds an emoji reaction to the invoking message.
	React string
}

// Text builds a plain text response.
func Text(s string) *Response {
	return &Response{Content: s}
}

// EmbedResponse builds a single-embed response.
func EmbedResponse(e *discordgo.MessageEmbed) *Response {
	return &Response{Embeds: []*discordgo.MessageEmbed{e}}
}

// HandlerFunc runs a command.
type HandlerFunc func(ctx context.Context, req *Request) (*Response, error)

// Command is a registered command. A Name with a space ("warrole init")
// registers a subcommand of a group.
type Command struct {
	Name       string
	Aliases    []string
	Group      string
	Usage      string
	Help       string
	Permission Permission
	Handler    HandlerFunc
}

// UserError is shown to the invoking user verbatim and is not treated as a
// failure of the bot.
type UserError struct {
	Msg string
}

func (e *UserError) Error() string { return e.Msg }

// Userf builds a UserError.
func Userf(format string, args ...any) error {
	return &UserError{Msg: fmt.Sprintf(format, args...)}
}
