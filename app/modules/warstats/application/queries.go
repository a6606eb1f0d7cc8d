package warstatsservice

import (
	"context"
	"strings"

	warstatsdb "github.com/aussie-warriors/awbot/app/modules/warstats/infrastructure/repositories"
	"github.com/aussie-warriors/awbot/internal/clashapi"
	"github.com/aussie-warriors/awbot/internal/observability/attr"
	"github.com/aussie-warriors/awbot/internal/results"
)

// PlayerStats resolves query to a tag and sums its rows.
func (s *WarStatsService) PlayerStats(ctx context.Context, query string) (*PlayerStats, error) {
	return unwrap(withTelemetry(s, ctx, "PlayerStats", func(ctx context.Context) (results.OperationResult[*PlayerStats, error], error) {
		tag, err := s.resolveTag(ctx, query)
		if err != nil {
			return classify[*PlayerStats](nil, err)
		}
		rows, err := s.repo.ListByTag(ctx, nil, tag)
		if err != nil {
			return classify[*PlayerStats](nil, err)
		}
		if len(rows) == 0 {
			return classify[*PlayerStats](nil, ErrNoStats)
		}
		return classify(Summarize(rows), nil)
	}))
}

func (s *WarStatsService) resolveTag(ctx context.Context, query string) (string, error) {
	query = strings.TrimSpace(query)
	if clashapi.LooksLikeTag(query) {
		return clashapi.NormalizeTag(query), nil
	}
	tags, err := s.repo.FindTagsByName(ctx, nil, query)
	if err != nil {
		return "", err
	}
	switch len(tags) {
	case 0:
		return "", ErrNoStats
	case 1:
		return tags[0], nil
	}
	return "", ErrAmbiguousName
}

// Summarize totals rows of one player. rows must be ordered oldest war
// first; the name and townhall come from the latest war.
func Summarize(rows []warstatsdb.WarStat) *PlayerStats {
	if len(rows) == 0 {
		return nil
	}
	latest := rows[len(rows)-1]
	out := &PlayerStats{
		Tag:  latest.Tag,
		Name: latest.Name,
		TH:   latest.TH,
		Wars: rows,
	}
	for _, r := range rows {
		out.HitRate = out.HitRate.Add(r.HitRate)
		out.DefenseRate = out.DefenseRate.Add(r.DefenseRate)
	}
	return out
}

// RenamePlayer updates the stored name for tag. Tags without rows are not
// an error.
func (s *WarStatsService) RenamePlayer(ctx context.Context, tag, name string) error {
	_, err := unwrap(withTelemetry(s, ctx, "RenamePlayer", func(ctx context.Context) (results.OperationResult[int, error], error) {
		n, err := s.repo.RenameTag(ctx, nil, clashapi.NormalizeTag(tag), name)
		if err != nil {
			return classify(0, err)
		}
		if n > 0 {
			s.logger.InfoContext(ctx, "Renamed player in war stats",
				attr.PlayerTag(tag),
				attr.String("name", name),
				attr.Int("rows", n),
			)
		}
		return classify(n, nil)
	}))
	return err
}
