package warstatsservice

import (
	"context"
	"errors"
	"fmt"

	"github.com/uptrace/bun"

	warstatsdb "github.com/aussie-warriors/awbot/app/modules/warstats/infrastructure/repositories"
	"github.com/aussie-warriors/awbot/internal/clashapi"
	"github.com/aussie-warriors/awbot/internal/observability/attr"
	"github.com/aussie-warriors/awbot/internal/results"
	"github.com/aussie-warriors/awbot/internal/settings"
)

// Collect stores the current war when it has ended and was not stored yet.
func (s *WarStatsService) Collect(ctx context.Context) (*CollectResult, error) {
	return unwrap(withTelemetry(s, ctx, "Collect", func(ctx context.Context) (results.OperationResult[*CollectResult, error], error) {
		if s.toggles != nil && !s.toggles.Enabled(settings.KeyUpdateStats) {
			return classify(&CollectResult{Skipped: SkipDisabled}, nil)
		}

		war, err := s.api.GetCurrentWar(ctx, s.homeClan)
		if err != nil {
			return classify[*CollectResult](nil, fmt.Errorf("failed to fetch current war: %w", err))
		}
		res := &CollectResult{State: war.State}
		if war.State != clashapi.WarStateEnded {
			res.Skipped = SkipNotEnded
			return classify(res, nil)
		}
		res.WarKey = war.Key()
		res.Opponent = war.Opponent.Name

		recorded, err := s.repo.IsRecorded(ctx, nil, res.WarKey)
		if err != nil {
			return classify[*CollectResult](nil, err)
		}
		if recorded {
			res.Skipped = SkipRecorded
			return classify(res, nil)
		}

		rows := Aggregate(war)
		_, err = runInTx(s, ctx, func(ctx context.Context, db bun.IDB) (struct{}, error) {
			if err := s.repo.RecordWar(ctx, db, &warstatsdb.RecordedWar{
				WarKey:     res.WarKey,
				ClanTag:    war.Clan.Tag,
				Opponent:   war.Opponent.Name,
				EndTime:    war.EndTime.UTC(),
				RecordedAt: s.now(),
			}); err != nil {
				return struct{}{}, err
			}
			return struct{}{}, s.repo.ShiftWindow(ctx, db, rows)
		})
		if errors.Is(err, warstatsdb.ErrAlreadyRecorded) {
			res.Skipped = SkipRecorded
			return classify(res, nil)
		}
		if err != nil {
			return classify[*CollectResult](nil, err)
		}

		res.Rows = len(rows)
		s.logger.InfoContext(ctx, "War stats recorded",
			attr.String("war_key", res.WarKey),
			attr.String("opponent", res.Opponent),
			attr.Int("rows", res.Rows),
		)
		return classify(res, nil)
	}))
}
