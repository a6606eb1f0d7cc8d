// Package warstats wires the war statistics module.
package warstats

import (
	"context"
	"fmt"

	"github.com/uptrace/bun"

	warstatsservice "github.com/aussie-warriors/awbot/app/modules/warstats/application"
	warstatscommands "github.com/aussie-warriors/awbot/app/modules/warstats/infrastructure/commands"
	warstatsdb "github.com/aussie-warriors/awbot/app/modules/warstats/infrastructure/repositories"
	"github.com/aussie-warriors/awbot/internal/clashapi"
	"github.com/aussie-warriors/awbot/internal/discord"
	"github.com/aussie-warriors/awbot/internal/observability"
)

// Module represents the war stats module.
type Module struct {
	Service  *warstatsservice.WarStatsService
	Handlers *warstatscommands.Handlers
}

// NewWarStatsModule creates the war stats module and registers its commands.
func NewWarStatsModule(
	ctx context.Context,
	obs observability.Observability,
	db *bun.DB,
	api clashapi.API,
	homeClan string,
	flags warstatscommands.Flags,
	router *discord.Router,
) (*Module, error) {
	logger := obs.Logger.With("module", "warstats")
	logger.InfoContext(ctx, "warstats.NewWarStatsModule initializing")

	repo := warstatsdb.NewRepository(db)
	service := warstatsservice.NewWarStatsService(repo, api, homeClan, flags, logger, obs.Metrics, obs.Tracer, db)
	handlers := warstatscommands.NewHandlers(service, flags)

	if err := router.Register(handlers.Commands()...); err != nil {
		return nil, fmt.Errorf("failed to register warstats commands: %w", err)
	}
	return &Module{Service: service, Handlers: handlers}, nil
}
