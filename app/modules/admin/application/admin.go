package adminservice

import (
	"context"
	"fmt"

	admindb "github.com/aussie-warriors/awbot/app/modules/admin/infrastructure/repositories"
	"github.com/aussie-warriors/awbot/internal/discord"
	"github.com/aussie-warriors/awbot/internal/observability/attr"
	"github.com/aussie-warriors/awbot/internal/results"
)

// maxErrorText bounds the error stored per task run.
const maxErrorText = 1000

// LogCommand stores one command invocation. It runs outside withTelemetry
// since the router already traces the command.
func (s *AdminService) LogCommand(ctx context.Context, entry discord.CommandEntry) error {
	return s.repo.InsertCommand(ctx, nil, &admindb.CommandLog{
		CorrelationID: entry.CorrelationID,
		GuildID:       entry.GuildID,
		ChannelID:     entry.ChannelID,
		AuthorID:      entry.AuthorID,
		Used:          entry.Used.UTC(),
		Prefix:        entry.Prefix,
		Command:       entry.Command,
		Failed:        entry.Failed,
	})
}

func (s *AdminService) CommandStats(ctx context.Context, limit int) (*CommandStats, error) {
	return unwrap(withTelemetry(s, ctx, "CommandStats", func(ctx context.Context) (results.OperationResult[*CommandStats, error], error) {
		total, err := s.repo.CountCommands(ctx, nil)
		if err != nil {
			return results.OperationResult[*CommandStats, error]{}, err
		}
		top, err := s.repo.TopCommands(ctx, nil, limit)
		if err != nil {
			return results.OperationResult[*CommandStats, error]{}, err
		}
		return results.SuccessResult[*CommandStats, error](&CommandStats{Total: total, Top: top}), nil
	}))
}

func (s *AdminService) TaskStats(ctx context.Context) ([]admindb.TaskCount, error) {
	return unwrap(withTelemetry(s, ctx, "TaskStats", func(ctx context.Context) (results.OperationResult[[]admindb.TaskCount, error], error) {
		return classify(s.repo.TaskCounts(ctx, nil))
	}))
}

func (s *AdminService) StartTask(ctx context.Context, name string) (int64, error) {
	run := &admindb.TaskLog{TaskName: name, Used: s.now()}
	if err := s.repo.StartTask(ctx, nil, run); err != nil {
		return 0, err
	}
	return run.ID, nil
}

func (s *AdminService) FinishTask(ctx context.Context, id int64, runErr error) error {
	var text string
	if runErr != nil {
		text = runErr.Error()
		if text == "" {
			text = "unknown error"
		}
		if len(text) > maxErrorText {
			text = text[:maxErrorText]
		}
	}
	return s.repo.FinishTask(ctx, nil, id, text)
}

// RefreshToken forces a new game API key regardless of whether the current
// one still works.
func (s *AdminService) RefreshToken(ctx context.Context) error {
	_, err := unwrap(withTelemetry(s, ctx, "RefreshToken", func(ctx context.Context) (results.OperationResult[bool, error], error) {
		if s.refresher == nil {
			return classify(false, ErrNoRefresher)
		}
		if err := s.refresher.Refresh(ctx); err != nil {
			return results.OperationResult[bool, error]{}, fmt.Errorf("failed to refresh api key: %w", err)
		}
		s.logger.InfoContext(ctx, "Game API key refreshed on request", attr.ExtractCorrelationID(ctx))
		return results.SuccessResult[bool, error](true), nil
	}))
	return err
}

func (s *AdminService) Setting(ctx context.Context, key string) (bool, error) {
	return unwrap(withTelemetry(s, ctx, "Setting", func(ctx context.Context) (results.OperationResult[bool, error], error) {
		return classify(s.settings.Flag(key))
	}))
}

func (s *AdminService) SetSetting(ctx context.Context, key string, value bool) error {
	_, err := unwrap(withTelemetry(s, ctx, "SetSetting", func(ctx context.Context) (results.OperationResult[bool, error], error) {
		if err := s.settings.SetFlag(key, value); err != nil {
			return classify(false, err)
		}
		s.logger.InfoContext(ctx, "Setting changed",
			attr.ExtractCorrelationID(ctx),
			attr.String("key", key),
			attr.Any("value", value),
		)
		return results.SuccessResult[bool, error](value), nil
	}))
	return err
}
