package donationservice

import (
	"context"
	"fmt"
	"strings"

	donationdb "github.com/aussie-warriors/awbot/app/modules/donation/infrastructure/repositories"
	"github.com/aussie-warriors/awbot/internal/eventbus"
	"github.com/aussie-warriors/awbot/internal/results"
)

const donationRules = "The required donations are 400 per month in every tracked clan. " +
	"That is 100 per week, or roughly 13.3 per day.\n\n" +
	"The bot averages the donations of all your accounts in the tracked clans. " +
	"If the average is below the requirement you will be pinged once a week."

// SendPings publishes the flagged list to the donations channel.
func (s *DonationService) SendPings(ctx context.Context) (int, error) {
	return unwrap(withTelemetry(s, ctx, "SendPings", func(ctx context.Context) (results.OperationResult[int, error], error) {
		season, err := s.repo.ActiveSeason(ctx, nil)
		if err != nil {
			return classify(0, err)
		}
		flagged, err := s.repo.ListFlagged(ctx, nil)
		if err != nil {
			return classify(0, err)
		}
		if len(flagged) == 0 {
			return classify(0, nil)
		}
		if s.publisher == nil {
			return classify(0, fmt.Errorf("no publisher configured"))
		}
		if err := s.publisher.Publish(ctx, eventbus.TopicDonations, PingNotice(flagged, season.DonationsByToday)); err != nil {
			return classify(0, err)
		}
		return classify(len(flagged), nil)
	}))
}

// PingNotice renders the weekly warning list with a ping for each user.
func PingNotice(flagged []donationdb.Average, quota float64) eventbus.Notice {
	lines := make([]string, 0, len(flagged))
	mentions := make([]string, 0, len(flagged))
	for _, a := range flagged {
		lines = append(lines, fmt.Sprintf("<@%d>: `%s donations`", a.UserID, formatAmount(a.Average)))
		mentions = append(mentions, fmt.Sprintf("<@%d>", a.UserID))
	}
	return eventbus.Notice{
		Title:       "Average Donation List - Warnings only",
		Description: strings.Join(lines, "\n"),
		Color:       eventbus.ColorBlue,
		Content: fmt.Sprintf("%s\nThe average donations of your accounts in the tracked clans are below "+
			"the required %s troop space by today. Please donate some troops! "+
			"Check your numbers with `don` and `avg`.", strings.Join(mentions, ", "), formatAmount(quota)),
		Fields: []eventbus.Field{{Name: "Donation Rules", Value: donationRules}},
	}
}

func formatAmount(v float64) string {
	return strings.TrimSuffix(strings.TrimRight(fmt.Sprintf("%.2f", v), "0"), ".")
}
