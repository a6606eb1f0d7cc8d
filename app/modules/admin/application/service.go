package adminservice

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	admindb "github.com/aussie-warriors/awbot/app/modules/admin/infrastructure/repositories"
	"github.com/aussie-warriors/awbot/internal/clashapi"
	"github.com/aussie-warriors/awbot/internal/observability"
	"github.com/aussie-warriors/awbot/internal/observability/attr"
	"github.com/aussie-warriors/awbot/internal/results"
)

// AdminService implements the Service interface.
type AdminService struct {
	repo      admindb.Repository
	refresher clashapi.KeyRefresher
	settings  Settings
	logger    *slog.Logger
	metrics   observability.Metrics
	tracer    trace.Tracer
	now       func() time.Time
}

// NewAdminService creates a new AdminService. refresher may be nil when
// no developer portal login is configured.
func NewAdminService(
	repo admindb.Repository,
	refresher clashapi.KeyRefresher,
	settings Settings,
	logger *slog.Logger,
	metrics observability.Metrics,
	tracer trace.Tracer,
) *AdminService {
	if logger == nil {
		logger = slog.Default()
	}
	return &AdminService{
		repo:      repo,
		refresher: refresher,
		settings:  settings,
		logger:    logger,
		metrics:   metrics,
		tracer:    tracer,
		now:       func() time.Time { return time.Now().UTC() },
	}
}

var _ Service = (*AdminService)(nil)

type operationFunc[S any] func(ctx context.Context) (results.OperationResult[S, error], error)

// withTelemetry wraps a service operation with tracing, metrics, and panic recovery.
func withTelemetry[S any](
	s *AdminService,
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
		s.metrics.RecordOperationAttempt(ctx, operationName, "AdminService")
	}
	startTime := time.Now()
	defer func() {
		if s.metrics != nil {
			s.metrics.RecordOperationDuration(ctx, operationName, "AdminService", time.Since(startTime))
		}
	}()

	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("panic in %s: %v", operationName, r)
			s.logger.ErrorContext(ctx, "Critical panic recovered", attr.ExtractCorrelationID(ctx), attr.Error(err))
			if s.metrics != nil {
				s.metrics.RecordOperationFailure(ctx, operationName, "AdminService")
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
			s.metrics.RecordOperationFailure(ctx, operationName, "AdminService")
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
		s.metrics.RecordOperationSuccess(ctx, operationName, "AdminService")
	}
	return result, nil
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
