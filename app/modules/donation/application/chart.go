package donationservice

import (
	"bytes"
	"context"
	"fmt"
	"math"

	"github.com/wcharczuk/go-chart/v2"
	"github.com/wcharczuk/go-chart/v2/drawing"

	claimdb "github.com/aussie-warriors/awbot/app/modules/claim/infrastructure/repositories"
	"github.com/aussie-warriors/awbot/internal/results"
)

var (
	barColor   = drawing.ColorFromHex("3498db")
	shortColor = drawing.ColorFromHex("e74c3c")
	quotaColor = drawing.ColorFromHex("95a5a6")
)

// DonationChart renders a user's per-account donations next to the quota.
func (s *DonationService) DonationChart(ctx context.Context, userID int64) ([]byte, error) {
	return unwrap(withTelemetry(s, ctx, "DonationChart", func(ctx context.Context) (results.OperationResult[[]byte, error], error) {
		claims, err := s.repo.ListClaimsByUser(ctx, nil, userID)
		if err != nil {
			return classify[[]byte](nil, err)
		}
		if len(claims) == 0 {
			return classify[[]byte](nil, ErrNoClaims)
		}
		season, err := s.repo.ActiveSeason(ctx, nil)
		if err != nil {
			return classify[[]byte](nil, err)
		}
		return classify(RenderDonationChart(claims, season.DonationsByToday))
	}))
}

// RenderDonationChart draws one bar per account plus a quota bar as PNG.
// Accounts under the quota are drawn red.
func RenderDonationChart(claims []claimdb.Claim, quota float64) ([]byte, error) {
	bars := make([]chart.Value, 0, len(claims)+1)
	top := quota
	for _, c := range claims {
		color := barColor
		if c.Difference < quota {
			color = shortColor
		}
		bars = append(bars, chart.Value{
			Label: c.IGN,
			Value: c.Difference,
			Style: chart.Style{FillColor: color, StrokeColor: color},
		})
		top = math.Max(top, c.Difference)
	}
	bars = append(bars, chart.Value{
		Label: "Required",
		Value: quota,
		Style: chart.Style{FillColor: quotaColor, StrokeColor: quotaColor},
	})
	if top <= 0 {
		top = 1
	}

	graph := chart.BarChart{
		Title:    "Donations this season",
		Width:    120*len(bars) + 160,
		Height:   400,
		BarWidth: 60,
		Background: chart.Style{
			Padding: chart.Box{Top: 40},
		},
		YAxis: chart.YAxis{
			Range: &chart.ContinuousRange{Min: 0, Max: math.Ceil(top * 1.1)},
		},
		Bars: bars,
	}

	buffer := bytes.NewBuffer(nil)
	if err := graph.Render(chart.PNG, buffer); err != nil {
		return nil, fmt.Errorf("failed to render donation chart: %w", err)
	}
	return buffer.Bytes(), nil
}
