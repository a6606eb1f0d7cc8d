// Package claim wires the claim module.
package claim

import (
	"context"
	"fmt"

	"github.com/uptrace/bun"

	claimservice "github.com/aussie-warriors/awbot/app/modules/claim/application"
	claimcommands "github.com/aussie-warriors/awbot/app/modules/claim/infrastructure/commands"
	claimdb "github.com/aussie-warriors/awbot/app/modules/claim/infrastructure/repositories"
	"github.com/aussie-warriors/awbot/config"
	"github.com/aussie-warriors/awbot/internal/clashapi"
	"github.com/aussie-warriors/awbot/internal/discord"
	"github.com/aussie-warriors/awbot/internal/observability"
)

// Module represents the claim module.
type Module struct {
	Service  *claimservice.ClaimService
	Handlers *claimcommands.Handlers
}

// NewClaimModule creates the claim module and registers its commands.
func NewClaimModule(
	ctx context.Context,
	obs observability.Observability,
	db *bun.DB,
	api clashapi.API,
	clans config.ClansConfig,
	names claimservice.NameSyncer,
	router *discord.Router,
	perms discord.PermissionChecker,
) (*Module, error) {
	logger := obs.Logger.With("module", "claim")
	logger.InfoContext(ctx, "claim.NewClaimModule initializing")

	repo := claimdb.NewRepository(db)
	service := claimservice.NewClaimService(repo, api, clans.Tracked, names, logger, obs.Metrics, obs.Tracer, db)
	handlers := claimcommands.NewHandlers(service, clans, perms)

	if err := router.Register(handlers.Commands()...); err != nil {
		return nil, fmt.Errorf("failed to register claim commands: %w", err)
	}
	return &Module{Service: service, Handlers: handlers}, nil
}
