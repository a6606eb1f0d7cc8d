// Package warning wires the warning module.
package warning

import (
	"context"
	"fmt"

	"github.com/uptrace/bun"

	warningservice "github.com/aussie-warriors/awbot/app/modules/warning/application"
	warningcommands "github.com/aussie-warriors/awbot/app/modules/warning/infrastructure/commands"
	warningdb "github.com/aussie-warriors/awbot/app/modules/warning/infrastructure/repositories"
	"github.com/aussie-warriors/awbot/internal/discord"
	"github.com/aussie-warriors/awbot/internal/eventbus"
	"github.com/aussie-warriors/awbot/internal/observability"
)

// Module represents the warning module.
type Module struct {
	Service  *warningservice.WarningService
	Handlers *warningcommands.Handlers
}

// NewWarningModule creates the warning module and registers its commands.
func NewWarningModule(
	ctx context.Context,
	obs observability.Observability,
	db *bun.DB,
	dm warningservice.DirectMessenger,
	publisher eventbus.Publisher,
	router *discord.Router,
) (*Module, error) {
	logger := obs.Logger.With("module", "warning")
	logger.InfoContext(ctx, "warning.NewWarningModule initializing")

	repo := warningdb.NewRepository(db)
	service := warningservice.NewWarningService(repo, dm, publisher, logger, obs.Metrics, obs.Tracer, db)
	handlers := warningcommands.NewHandlers(service)

	if err := router.Register(handlers.Commands()...); err != nil {
		return nil, fmt.Errorf("failed to register warning commands: %w", err)
	}
	return &Module{Service: service, Handlers: handlers}, nil
}
