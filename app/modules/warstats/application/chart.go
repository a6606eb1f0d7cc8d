package warstatsservice

import (
	"bytes"
	"context"
	"fmt"
	"strconv"

	"github.com/wcharczuk/go-chart/v2"
	"github.com/wcharczuk/go-chart/v2/drawing"

	"github.com/aussie-warriors/awbot/internal/results"
)

var (
	hitColor     = drawing.ColorFromHex("2ecc71")
	defenseColor = drawing.ColorFromHex("3498db")
)

// HitRateChart renders the player's hit and defense rates per war.
func (s *WarStatsService) HitRateChart(ctx context.Context, stats *PlayerStats) ([]byte, error) {
	return unwrap(withTelemetry(s, ctx, "HitRateChart", func(ctx context.Context) (results.OperationResult[[]byte, error], error) {
		if stats == nil || len(stats.Wars) == 0 {
			return classify[[]byte](nil, ErrNoStats)
		}
		return classify(RenderHitRateChart(stats))
	}))
}

// RenderHitRateChart draws one point per war, oldest on the left, as PNG.
func RenderHitRateChart(stats *PlayerStats) ([]byte, error) {
	n := len(stats.Wars)
	xs := make([]float64, n)
	hits := make([]float64, n)
	defs := make([]float64, n)
	ticks := make([]chart.Tick, 0, n+2)
	ticks = append(ticks, chart.Tick{Value: 0})
	for i, w := range stats.Wars {
		xs[i] = float64(i + 1)
		hits[i] = w.HitRate.Percent()
		defs[i] = w.DefenseRate.Percent()
		ticks = append(ticks, chart.Tick{Value: xs[i], Label: strconv.Itoa(w.WarNo)})
	}
	ticks = append(ticks, chart.Tick{Value: float64(n + 1)})

	graph := chart.Chart{
		Title:  fmt.Sprintf("%s (%s)", stats.Name, stats.Tag),
		Width:  90*n + 240,
		Height: 400,
		Background: chart.Style{
			Padding: chart.Box{Top: 40, Right: 20},
		},
		XAxis: chart.XAxis{
			Name:  "War (1 is the latest)",
			Ticks: ticks,
		},
		YAxis: chart.YAxis{
			Name:  "%",
			Range: &chart.ContinuousRange{Min: 0, Max: 100},
			Ticks: []chart.Tick{
				{Value: 0, Label: "0"},
				{Value: 25, Label: "25"},
				{Value: 50, Label: "50"},
				{Value: 75, Label: "75"},
				{Value: 100, Label: "100"},
			},
		},
		Series: []chart.Series{
			chart.ContinuousSeries{
				Name:    "Hit rate",
				XValues: xs,
				YValues: hits,
				Style:   chart.Style{StrokeColor: hitColor, StrokeWidth: 3, DotColor: hitColor, DotWidth: 4},
			},
			chart.ContinuousSeries{
				Name:    "Defense rate",
				XValues: xs,
				YValues: defs,
				Style:   chart.Style{StrokeColor: defenseColor, StrokeWidth: 2, DotColor: defenseColor, DotWidth: 3},
			},
		},
	}
	graph.Elements = []chart.Renderable{chart.Legend(&graph)}

	buffer := bytes.NewBuffer(nil)
	if err := graph.Render(chart.PNG, buffer); err != nil {
		return nil, fmt.Errorf("failed to render war stats chart: %w", err)
	}
	return buffer.Bytes(), nil
}
