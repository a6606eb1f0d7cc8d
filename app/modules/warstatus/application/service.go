// Package warstatusservice looks up any clan's current war.
package warstatusservice

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/aussie-warriors/awbot/internal/clashapi"
	"github.com/aussie-warriors/awbot/internal/observability/attr"
)

// SearchLimit caps name searches.
const SearchLimit = 5

var (
	// ErrClanNotFound means no clan matched the tag or name.
	ErrClanNotFound = errors.New("clan not found")
)

// Status is the outcome of a lookup. Exactly one of War, Candidates or
// WarLogPrivate describes what was found.
type Status struct {
	Clan *clashapi.Clan
	War  *clashapi.War
	// Candidates is set when a name matched several clans.
	Candidates    []clashapi.Clan
	WarLogPrivate bool
}

// Service looks up war status.
type Service interface {
	Lookup(ctx context.Context, query string) (*Status, error)
}

// WarStatusService implements Service.
type WarStatusService struct {
	api    clashapi.API
	logger *slog.Logger
	tracer trace.Tracer
}

// NewWarStatusService creates a WarStatusService.
func NewWarStatusService(api clashapi.API, logger *slog.Logger, tracer trace.Tracer) *WarStatusService {
	if logger == nil {
		logger = slog.Default()
	}
	return &WarStatusService{api: api, logger: logger, tracer: tracer}
}

// Lookup resolves query to a clan and fetches its current war. A name
// that matches one clan exactly, or only one clan at all, is used
// directly; otherwise the candidates are returned.
func (s *WarStatusService) Lookup(ctx context.Context, query string) (*Status, error) {
	query = strings.TrimSpace(query)
	if s.tracer != nil {
		var span trace.Span
		ctx, span = s.tracer.Start(ctx, "WarStatus.Lookup", trace.WithAttributes(attribute.String("query", query)))
		defer span.End()
		status, err := s.lookup(ctx, query)
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
		}
		return status, err
	}
	return s.lookup(ctx, query)
}

func (s *WarStatusService) lookup(ctx context.Context, query string) (*Status, error) {
	clan, candidates, err := s.findClan(ctx, query)
	if err != nil {
		return nil, err
	}
	if clan == nil {
		return &Status{Candidates: candidates}, nil
	}

	status := &Status{Clan: clan}
	if !clan.IsWarLogPublic {
		status.WarLogPrivate = true
		return status, nil
	}
	war, err := s.api.GetCurrentWar(ctx, clan.Tag)
	if err != nil {
		if clashapi.IsAccessDenied(err) {
			status.WarLogPrivate = true
			return status, nil
		}
		return nil, fmt.Errorf("failed to fetch war for %s: %w", clan.Tag, err)
	}
	status.War = war
	s.logger.DebugContext(ctx, "War status looked up",
		attr.String("clan_tag", clan.Tag),
		attr.String("state", war.State),
	)
	return status, nil
}

func (s *WarStatusService) findClan(ctx context.Context, query string) (*clashapi.Clan, []clashapi.Clan, error) {
	if strings.HasPrefix(query, "#") {
		clan, err := s.api.GetClan(ctx, clashapi.NormalizeTag(query))
		if err != nil {
			if errors.Is(err, clashapi.ErrNotFound) {
				return nil, nil, ErrClanNotFound
			}
			return nil, nil, fmt.Errorf("failed to fetch clan %s: %w", query, err)
		}
		return clan, nil, nil
	}

	found, err := s.api.SearchClans(ctx, query, SearchLimit)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to search clans: %w", err)
	}
	if len(found) > SearchLimit {
		found = found[:SearchLimit]
	}
	switch len(found) {
	case 0:
		return nil, nil, ErrClanNotFound
	case 1:
		return s.fullClan(ctx, found[0])
	}

	var exact []clashapi.Clan
	for _, c := range found {
		if strings.EqualFold(c.Name, query) {
			exact = append(exact, c)
		}
	}
	if len(exact) == 1 {
		return s.fullClan(ctx, exact[0])
	}
	return nil, found, nil
}

// fullClan refetches a search hit, which lacks the war record.
func (s *WarStatusService) fullClan(ctx context.Context, hit clashapi.Clan) (*clashapi.Clan, []clashapi.Clan, error) {
	clan, err := s.api.GetClan(ctx, hit.Tag)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to fetch clan %s: %w", hit.Tag, err)
	}
	return clan, nil, nil
}
