package claimservice

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/uptrace/bun"
	"github.com/xuri/excelize/v2"

	claimdb "github.com/aussie-warriors/awbot/app/modules/claim/infrastructure/repositories"
	"github.com/aussie-warriors/awbot/internal/clashapi"
	"github.com/aussie-warriors/awbot/internal/results"
)

// ParseImportSheet reads claims from the first sheet of an xlsx file. The
// header row must name the userid, ign and tag columns in any order.
func ParseImportSheet(data []byte) ([]ImportRow, error) {
	f, err := excelize.OpenReader(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("failed to open XLSX file: %w", err)
	}
	defer f.Close()

	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		return nil, fmt.Errorf("XLSX file has no sheets")
	}
	rows, err := f.GetRows(sheets[0])
	if err != nil {
		return nil, fmt.Errorf("failed to read sheet %q: %w", sheets[0], err)
	}
	if len(rows) == 0 {
		return nil, fmt.Errorf("sheet %q is empty", sheets[0])
	}

	cols := map[string]int{"userid": -1, "ign": -1, "tag": -1}
	for i, h := range rows[0] {
		key := strings.ToLower(strings.TrimSpace(h))
		if _, ok := cols[key]; ok {
			cols[key] = i
		}
	}
	for name, idx := range cols {
		if idx < 0 {
			return nil, fmt.Errorf("missing %q column in header", name)
		}
	}

	cell := func(row []string, i int) string {
		if i < len(row) {
			return strings.TrimSpace(row[i])
		}
		return ""
	}

	var out []ImportRow
	for n, row := range rows[1:] {
		rawID, ign, tag := cell(row, cols["userid"]), cell(row, cols["ign"]), cell(row, cols["tag"])
		if rawID == "" && ign == "" && tag == "" {
			continue
		}
		id, err := strconv.ParseInt(rawID, 10, 64)
		if err != nil {
			return nil, fmt.Errorf("row %d: invalid userid %q", n+2, rawID)
		}
		if !clashapi.LooksLikeTag(tag) {
			return nil, fmt.Errorf("row %d: invalid tag %q", n+2, tag)
		}
		out = append(out, ImportRow{UserID: id, IGN: ign, Tag: clashapi.NormalizeTag(tag)})
	}
	return out, nil
}

// Import inserts claims in bulk. Starting donations are read from the API;
// tags that are already claimed or unknown are skipped.
func (s *ClaimService) Import(ctx context.Context, rows []ImportRow) (*ImportResult, error) {
	type importResult = results.OperationResult[*ImportResult, error]
	result, err := withTelemetry(s, ctx, "Import", fmt.Sprintf("%d rows", len(rows)), func(ctx context.Context) (importResult, error) {
		out := &ImportResult{}
		for _, row := range rows {
			player, err := s.api.GetPlayer(ctx, row.Tag)
			if err != nil {
				if errors.Is(err, clashapi.ErrNotFound) {
					out.Skipped = append(out.Skipped, row.Tag)
					continue
				}
				return importResult{}, fmt.Errorf("failed to fetch player %s: %w", row.Tag, err)
			}
			ign := row.IGN
			if ign == "" {
				ign = player.Name
			}
			donations := player.LifetimeDonations()
			claim := &claimdb.Claim{
				UserID:            row.UserID,
				IGN:               ign,
				Tag:               player.Tag,
				StartingDonations: donations,
				CurrentDonations:  donations,
				Clan:              player.ClanName(),
			}

			inserted, err := runInTx(s, ctx, func(ctx context.Context, db bun.IDB) (results.OperationResult[bool, error], error) {
				if err := s.repo.Insert(ctx, db, claim); err != nil {
					if errors.Is(err, claimdb.ErrAlreadyClaimed) || claimdb.IsUniqueViolation(err) {
						return results.FailureResult[bool, error](ErrAlreadyClaimed), nil
					}
					return results.OperationResult[bool, error]{}, err
				}
				return results.SuccessResult[bool, error](true), nil
			})
			if err != nil {
				return importResult{}, err
			}
			if inserted.IsFailure() {
				out.Skipped = append(out.Skipped, row.Tag)
				continue
			}
			out.Inserted++
		}
		return results.SuccessResult[*ImportResult, error](out), nil
	})
	return unwrap(result, err)
}
