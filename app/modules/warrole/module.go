// Package warrole wires the war role module.
package warrole

import (
	"context"
	"fmt"

	"github.com/uptrace/bun"

	warroleservice "github.com/aussie-warriors/awbot/app/modules/warrole/application"
	warrolecommands "github.com/aussie-warriors/awbot/app/modules/warrole/infrastructure/commands"
	warroledb "github.com/aussie-warriors/awbot/app/modules/warrole/infrastructure/repositories"
	"github.com/aussie-warriors/awbot/internal/clashapi"
	"github.com/aussie-warriors/awbot/internal/discord"
	"github.com/aussie-warriors/awbot/internal/observability"
)

// Module represents the war role module.
type Module struct {
	Service  *warroleservice.WarRoleService
	Handlers *warrolecommands.Handlers
}

// NewWarRoleModule creates the war role module and registers its commands.
func NewWarRoleModule(
	ctx context.Context,
	obs observability.Observability,
	db *bun.DB,
	api clashapi.API,
	claims warroleservice.ClaimResolver,
	roles warroleservice.RoleManager,
	homeClan string,
	roleID string,
	toggles warrolecommands.Toggles,
	router *discord.Router,
) (*Module, error) {
	logger := obs.Logger.With("module", "warrole")
	logger.InfoContext(ctx, "warrole.NewWarRoleModule initializing")

	repo := warroledb.NewRepository(db)
	service := warroleservice.NewWarRoleService(repo, api, claims, roles, homeClan, roleID, logger, obs.Metrics, obs.Tracer, db)
	handlers := warrolecommands.NewHandlers(service, toggles)

	if err := router.Register(handlers.Commands()...); err != nil {
		return nil, fmt.Errorf("failed to register warrole commands: %w", err)
	}
	return &Module{Service: service, Handlers: handlers}, nil
}
