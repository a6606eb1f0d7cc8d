package discord

import (
	"strconv"
	"strings"
	"unicode"
)

// ParseInvocation splits a message into a command name and arguments. The
// message must start with prefix or a mention of botID. Double-quoted
// arguments may contain spaces.
func ParseInvocation(content, prefix, botID string) (name string, args []string, ok bool) {
	content = strings.TrimSpace(content)

	var rest string
	switch {
	case prefix != "" && strings.HasPrefix(content, prefix):
		rest = content[len(prefix):]
	case botID != "" && strings.HasPrefix(content, "<@"+botID+">"):
		rest = content[len("<@"+botID+">"):]
	case botID != "" && strings.HasPrefix(content, "<@!"+botID+">"):
		rest = content[len("<@!"+botID+">"):]
	default:
		return "", nil, false
	}

	fields := splitArgs(rest)
	if len(fields) == 0 {
		return "", nil, false
	}
	return strings.ToLower(fields[0]), fields[1:], true
}

func splitArgs(s string) []string {
	var (
		out     []string
		cur     strings.Builder
		inQuote bool
		started bool
	)
	flush := func() {
		if started {
			out = append(out, cur.String())
		}
		cur.Reset()
		started = false
	}
	for _, r := range s {
		switch {
		case r == '"':
			if inQuote {
				inQuote = false
				started = true
				flush()
				continue
			}
			inQuote = true
			started = true
		case unicode.IsSpace(r) && !inQuote:
			flush()
		default:
			cur.WriteRune(r)
			started = true
		}
	}
	flush()
	return out
}

// ParseID converts a snowflake string to int64.
func ParseID(s string) (int64, bool) {
	id, err := strconv.ParseInt(s, 10, 64)
	return id, err == nil && id > 0
}

// FormatID converts an int64 snowflake to its string form.
func FormatID(id int64) string {
	return strconv.FormatInt(id, 10)
}

// Mention renders a user mention.
func Mention(id int64) string {
	return "<@" + FormatID(id) + ">"
}

// UserArg parses "<@123>", "<@!123>" or a bare id.
func UserArg(arg string) (int64, bool) {
	arg = strings.TrimSpace(arg)
	if strings.HasPrefix(arg, "<@") && strings.HasSuffix(arg, ">") {
		arg = strings.TrimPrefix(strings.TrimSuffix(arg[2:], ">"), "!")
	}
	return ParseID(arg)
}
