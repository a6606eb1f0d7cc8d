package warroleservice

import (
	"fmt"
	"strings"

	"github.com/aussie-warriors/awbot/internal/eventbus"
)

// ReportNotice renders a reconciliation result for the info channel.
func ReportNotice(r *Result) eventbus.Notice {
	n := eventbus.Notice{Title: "War roles updated", Color: eventbus.ColorGreen}
	if !r.OK() {
		n.Color = eventbus.ColorOrange
	}
	if r.WarState != "" {
		n.Description = "War state: " + r.WarState
	}

	add := func(name string, lines []string) {
		if len(lines) == 0 {
			return
		}
		n.Fields = append(n.Fields, eventbus.Field{Name: name, Value: strings.Join(lines, "\n")})
	}

	add("Role given", changeLines(r.Added))
	add("Role removed", changeLines(r.Removed))
	add("Role kept", changeLines(r.Retained))

	var unclaimed []string
	for _, tag := range r.Unclaimed {
		unclaimed = append(unclaimed, label(tag, r.Names[tag]))
	}
	add("Members not claimed", unclaimed)
	add("Failed to give role", failureLines(r.FailedGrants))
	add("Failed to remove role", failureLines(r.FailedRevokes))

	if r.Conflict {
		add("Roster not saved", []string{"The roster changed during the update and will be retried."})
	} else if !r.Persisted && len(r.Unclaimed) > 0 {
		add("Roster not saved", []string{"Claim the accounts above so the roster can be saved."})
	}
	return n
}

func changeLines(changes []RoleChange) []string {
	out := make([]string, 0, len(changes))
	for _, c := range changes {
		out = append(out, fmt.Sprintf("<@%d> %s", c.UserID, label(c.Tag, c.Name)))
	}
	return out
}

func failureLines(failures []RoleFailure) []string {
	out := make([]string, 0, len(failures))
	for _, f := range failures {
		out = append(out, fmt.Sprintf("<@%d> %s: %s", f.UserID, label(f.Tag, f.Name), f.Err))
	}
	return out
}

func label(tag, name string) string {
	switch {
	case tag == "":
		return "(role holder)"
	case name == "":
		return tag
	}
	return fmt.Sprintf("%s (%s)", name, tag)
}
