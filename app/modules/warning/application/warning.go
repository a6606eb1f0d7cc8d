package warningservice

import (
	"context"
	"fmt"
	"strings"

	"github.com/uptrace/bun"

	warningdb "github.com/aussie-warriors/awbot/app/modules/warning/infrastructure/repositories"
	"github.com/aussie-warriors/awbot/internal/eventbus"
	"github.com/aussie-warriors/awbot/internal/observability/attr"
	"github.com/aussie-warriors/awbot/internal/results"
)

// Warn stores the warning first; the DM and the leader notice are best
// effort.
func (s *WarningService) Warn(ctx context.Context, req WarnRequest) (*WarnResult, error) {
	return unwrap(withTelemetry(s, ctx, "Warn", func(ctx context.Context) (results.OperationResult[*WarnResult, error], error) {
		now := s.now()
		expires, err := ParseExpiry(req.Expires, now)
		if err != nil {
			return classify[*WarnResult](nil, err)
		}

		w := &warningdb.Warning{
			UserID:    req.UserID,
			Reason:    FormatReason(req.ModeratorName, req.Reason),
			CreatedAt: now,
			ExpiresAt: expires,
			Active:    true,
		}
		if err := s.repo.Insert(ctx, nil, w); err != nil {
			return classify[*WarnResult](nil, err)
		}
		res := &WarnResult{Warning: w}

		reason := strings.TrimSpace(req.Reason)
		if reason == "" {
			reason = "No Reason"
		}
		if s.dm != nil {
			msg := fmt.Sprintf("You have been warned by %s for: %s", req.ModeratorName, reason)
			if err := s.dm.DirectMessage(ctx, req.UserID, msg); err != nil {
				res.DMFailed = true
				s.logger.WarnContext(ctx, "Failed to DM warned user",
					attr.UserID(req.UserID),
					attr.Error(err),
				)
			}
		}

		s.notify(ctx, eventbus.Notice{
			Title:       "Warning issued",
			Description: fmt.Sprintf("%s was warned. This warning will expire <t:%d:R>.", mention(req.UserID), expires.Unix()),
			Color:       eventbus.ColorOrange,
			Fields: []eventbus.Field{
				{Name: fmt.Sprintf("Warning No.%d", w.ID), Value: mention(req.UserID), Inline: true},
				{Name: "Moderator", Value: mention(req.ModeratorID), Inline: true},
				{Name: "Reason", Value: reason},
			},
		})
		return classify(res, nil)
	}))
}

// Remove deactivates one warning by id.
func (s *WarningService) Remove(ctx context.Context, id int64) (*warningdb.Warning, error) {
	return unwrap(withTelemetry(s, ctx, "Remove", func(ctx context.Context) (results.OperationResult[*warningdb.Warning, error], error) {
		return classify(runInTx(s, ctx, func(ctx context.Context, db bun.IDB) (*warningdb.Warning, error) {
			w, err := s.repo.Get(ctx, db, id)
			if err != nil {
				return nil, err
			}
			if err := s.repo.Deactivate(ctx, db, id); err != nil {
				return nil, err
			}
			w.Active = false
			return w, nil
		}))
	}))
}

// Clear deactivates every active warning of a user.
func (s *WarningService) Clear(ctx context.Context, userID int64) (int, error) {
	return unwrap(withTelemetry(s, ctx, "Clear", func(ctx context.Context) (results.OperationResult[int, error], error) {
		return classify(s.repo.DeactivateUser(ctx, nil, userID))
	}))
}

// Active lists active warnings.
func (s *WarningService) Active(ctx context.Context, userID int64) ([]warningdb.Warning, error) {
	return unwrap(withTelemetry(s, ctx, "Active", func(ctx context.Context) (results.OperationResult[[]warningdb.Warning, error], error) {
		return classify(s.repo.ListActive(ctx, nil, userID))
	}))
}

// ExpireDue deactivates each due warning and announces it. A failed
// deactivation leaves the warning for the next run.
func (s *WarningService) ExpireDue(ctx context.Context) ([]warningdb.Warning, error) {
	return unwrap(withTelemetry(s, ctx, "ExpireDue", func(ctx context.Context) (results.OperationResult[[]warningdb.Warning, error], error) {
		due, err := s.repo.ListDue(ctx, nil, s.now())
		if err != nil {
			return classify[[]warningdb.Warning](nil, err)
		}

		expired := make([]warningdb.Warning, 0, len(due))
		for _, w := range due {
			if err := s.repo.Deactivate(ctx, nil, w.ID); err != nil {
				s.logger.ErrorContext(ctx, "Failed to expire warning",
					attr.Int64("warning_id", w.ID),
					attr.Error(err),
				)
				continue
			}
			w.Active = false
			expired = append(expired, w)
			s.notify(ctx, eventbus.Notice{
				Title:       "Automatic Warning Removal",
				Description: mention(w.UserID),
				Color:       eventbus.ColorGreen,
				Fields: []eventbus.Field{
					{Name: fmt.Sprintf("Warning No.%d", w.ID), Value: w.Reason},
				},
			})
		}
		return classify(expired, nil)
	}))
}

func (s *WarningService) notify(ctx context.Context, n eventbus.Notice) {
	if s.publisher == nil {
		return
	}
	if err := s.publisher.Publish(ctx, eventbus.TopicLeaderNote, n); err != nil {
		s.logger.ErrorContext(ctx, "Failed to publish warning notice", attr.Error(err))
	}
}

func mention(id int64) string {
	return fmt.Sprintf("<@%d>", id)
}
