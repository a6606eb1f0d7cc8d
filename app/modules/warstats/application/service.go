package warstatsservice

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"time"

	"github.com/uptrace/bun"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	warstatsdb "github.com/aussie-warriors/awbot/app/modules/warstats/infrastructure/repositories"
	"github.com/aussie-warriors/awbot/internal/clashapi"
	"github.com/aussie-warriors/awbot/internal/observability"
	"github.com/aussie-warriors/awbot/internal/observability/attr"
	"github.com/aussie-warriors/awbot/internal/results"
)

// WarStatsService implements the Service interface.
type WarStatsService struct {
	repo     warstatsdb.Repository
	api      clashapi.API
	homeClan string
	toggles  Toggles
	logger   *slog.Logger
	metrics  observability.Metrics
	tracer   trace.Tracer
	db       *bun.DB
	now      func() time.Time
}

// NewWarStatsService creates a new WarStatsService for the home clan.
func NewWarStatsService(
	repo warstatsdb.Repository,
	api clashapi.API,
	homeClan string,
	toggles Toggles,
	logger *slog.Logger,
	metrics observability.Metrics,
	tracer trace.Tracer,
	db *bun.DB,
) *WarStatsService {
	if logger == nil {
		logger = slog.Default()
	}
	return &WarStatsService{
		repo:     repo,
		api:      api,
		homeClan: clashapi.NormalizeTag(homeClan),
		toggles:  toggles,
		logger:   logger,
		metrics:  metrics,
		tracer:   tracer,
		db:       db,
		now:      func() time.Time { return time.Now().UTC() },
	}
}

var _ Service = (*WarStatsService)(nil)

type operationFunc[S any] func(ctx context.Context) (results.OperationResult[S, error], error)

// withTelemetry wraps a service operation with tracing, metrics, and panic recovery.
func withTelemetry[S any](
	s *WarStatsService,
	ctx context.Context,
	operationName string,
	op operationFunc[S],
) (result results.OperationResult[S, error], err error) {
	var span trace.Span
	if s.tracer != nil {
		ctx, span = s.tracer.Start(ctx, operationName, trace.WithAttributes(
			attribute.String("operation", operationName),
		))
	} else {
		span = trace.SpanFromContext(ctx)
	}
	defer span.End()

	if s.metrics != nil {
		s.metrics.RecordOperationAttempt(ctx, operationName, "WarStatsService")
	}
	startTime := time.Now()
	defer func() {
		if s.metrics != nil {
			s.metrics.RecordOperationDuration(ctx, operationName, "WarStatsService", time.Since(startTime))
		}
	}()

	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("panic in %s: %v", operationName, r)
			s.logger.ErrorContext(ctx, "Critical panic recovered", attr.ExtractCorrelationID(ctx), attr.Error(err))
			if s.metrics != nil {
				s.metrics.RecordOperationFailure(ctx, operationName, "WarStatsService")
			}
			span.RecordError(err)
			result = results.OperationResult[S, error]{}
		}
	}()

	result, err = op(ctx)
	if err != nil {
		wrappedErr := fmt.Errorf("%s: %w", operationName, err)
		s.logger.ErrorContext(ctx, "Operation failed with error",
			attr.ExtractCorrelationID(ctx),
			attr.String("operation", operationName),
			attr.Error(wrappedErr),
		)
		if s.metrics != nil {
			s.metrics.RecordOperationFailure(ctx, operationName, "WarStatsService")
		}
		span.RecordError(wrappedErr)
		return result, wrappedErr
	}
	if result.IsFailure() {
		s.logger.WarnContext(ctx, "Operation returned failure result",
			attr.ExtractCorrelationID(ctx),
			attr.String("operation", operationName),
			attr.Any("failure_payload", *result.Failure),
		)
	}
	if s.metrics != nil {
		s.metrics.RecordOperationSuccess(ctx, operationName, "WarStatsService")
	}
	return result, nil
}

func runInTx[S any](
	s *WarStatsService,
	ctx context.Context,
	fn func(ctx context.Context, db bun.IDB) (S, error),
) (S, error) {
	if s.db == nil {
		return fn(ctx, nil)
	}
	var out S
	err := s.db.RunInTx(ctx, &sql.TxOptions{}, func(ctx context.Context, tx bun.Tx) error {
		var txErr error
		out, txErr = fn(ctx, tx)
		return txErr
	})
	return out, err
}

func classify[S any](v S, err error) (results.OperationResult[S, error], error) {
	switch {
	case err == nil:
		return results.SuccessResult[S, error](v), nil
	case isFailure(err):
		return results.FailureResult[S, error](err), nil
	}
	return results.OperationResult[S, error]{}, err
}

func unwrap[S any](result results.OperationResult[S, error], err error) (S, error) {
	var zero S
	if err != nil {
		return zero, err
	}
	if result.IsFailure() {
		return zero, *result.Failure
	}
	return *result.Success, nil
}
