package warstatsservice

import (
	"context"
	"fmt"
	"sort"

	"github.com/xuri/excelize/v2"

	warstatsdb "github.com/aussie-warriors/awbot/app/modules/warstats/infrastructure/repositories"
	"github.com/aussie-warriors/awbot/internal/results"
)

const (
	warsSheet   = "Wars"
	totalsSheet = "Totals"
)

var (
	warsHeader   = []any{"War", "Name", "Tag", "TH", "Hit rate", "Hits %", "Defense rate", "Defenses %"}
	totalsHeader = []any{"Name", "Tag", "TH", "Wars", "Hit rate", "Hits %", "Defense rate", "Defenses %"}
)

// Dump exports the window as xlsx.
func (s *WarStatsService) Dump(ctx context.Context) ([]byte, error) {
	return unwrap(withTelemetry(s, ctx, "Dump", func(ctx context.Context) (results.OperationResult[[]byte, error], error) {
		rows, err := s.repo.ListAll(ctx, nil)
		if err != nil {
			return classify[[]byte](nil, err)
		}
		return classify(RenderWorkbook(rows))
	}))
}

// RenderWorkbook writes one sheet of per-war rows and one of per-player
// totals. rows are expected newest war first.
func RenderWorkbook(rows []warstatsdb.WarStat) ([]byte, error) {
	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName("Sheet1", warsSheet); err != nil {
		return nil, fmt.Errorf("failed to name sheet: %w", err)
	}
	if _, err := f.NewSheet(totalsSheet); err != nil {
		return nil, fmt.Errorf("failed to add sheet: %w", err)
	}

	wars := make([][]any, 0, len(rows))
	for _, r := range rows {
		wars = append(wars, []any{
			r.WarNo, r.Name, r.Tag, r.TH,
			r.HitRate.String(), round1(r.HitRate.Percent()),
			r.DefenseRate.String(), round1(r.DefenseRate.Percent()),
		})
	}
	if err := writeSheet(f, warsSheet, warsHeader, wars); err != nil {
		return nil, err
	}

	players := totals(rows)
	sums := make([][]any, 0, len(players))
	for _, p := range players {
		sums = append(sums, []any{
			p.Name, p.Tag, p.TH, len(p.Wars),
			p.HitRate.String(), round1(p.HitRate.Percent()),
			p.DefenseRate.String(), round1(p.DefenseRate.Percent()),
		})
	}
	if err := writeSheet(f, totalsSheet, totalsHeader, sums); err != nil {
		return nil, err
	}

	f.SetActiveSheet(0)
	buf, err := f.WriteToBuffer()
	if err != nil {
		return nil, fmt.Errorf("failed to write workbook: %w", err)
	}
	return buf.Bytes(), nil
}

func writeSheet(f *excelize.File, sheet string, header []any, rows [][]any) error {
	if err := f.SetSheetRow(sheet, "A1", &header); err != nil {
		return fmt.Errorf("failed to write %s header: %w", sheet, err)
	}
	for i := range rows {
		cell, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			return err
		}
		if err := f.SetSheetRow(sheet, cell, &rows[i]); err != nil {
			return fmt.Errorf("failed to write %s row %d: %w", sheet, i+2, err)
		}
	}

	lastCol, err := excelize.ColumnNumberToName(len(header))
	if err != nil {
		return err
	}
	bold, err := f.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true}})
	if err != nil {
		return fmt.Errorf("failed to create header style: %w", err)
	}
	if err := f.SetCellStyle(sheet, "A1", lastCol+"1", bold); err != nil {
		return fmt.Errorf("failed to style %s header: %w", sheet, err)
	}
	if err := f.SetColWidth(sheet, "A", lastCol, 14); err != nil {
		return fmt.Errorf("failed to size %s columns: %w", sheet, err)
	}
	if err := f.AutoFilter(sheet, fmt.Sprintf("A1:%s%d", lastCol, len(rows)+1), nil); err != nil {
		return fmt.Errorf("failed to add %s filter: %w", sheet, err)
	}
	return f.SetPanes(sheet, &excelize.Panes{
		Freeze:      true,
		YSplit:      1,
		TopLeftCell: "A2",
		ActivePane:  "bottomLeft",
	})
}

// totals groups rows by tag, sorted by name.
func totals(rows []warstatsdb.WarStat) []*PlayerStats {
	byTag := map[string][]warstatsdb.WarStat{}
	for _, r := range rows {
		byTag[r.Tag] = append(byTag[r.Tag], r)
	}
	out := make([]*PlayerStats, 0, len(byTag))
	for _, group := range byTag {
		sort.SliceStable(group, func(i, j int) bool { return group[i].WarNo > group[j].WarNo })
		out = append(out, Summarize(group))
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Name != out[j].Name {
			return out[i].Name < out[j].Name
		}
		return out[i].Tag < out[j].Tag
	})
	return out
}

func round1(v float64) float64 {
	return float64(int(v*10+0.5)) / 10
}
