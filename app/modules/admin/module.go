// Package admin wires usage logging and the maintenance commands.
package admin

import (
	"context"
	"fmt"

	"github.com/uptrace/bun"

	adminservice "github.com/aussie-warriors/awbot/app/modules/admin/application"
	admincommands "github.com/aussie-warriors/awbot/app/modules/admin/infrastructure/commands"
	admindb "github.com/aussie-warriors/awbot/app/modules/admin/infrastructure/repositories"
	"github.com/aussie-warriors/awbot/internal/clashapi"
	"github.com/aussie-warriors/awbot/internal/discord"
	"github.com/aussie-warriors/awbot/internal/observability"
)

// Module represents the admin module.
type Module struct {
	Service  *adminservice.AdminService
	Handlers *admincommands.Handlers
}

// NewAdminModule creates the module, installs it as the router's usage
// logger and registers its commands.
func NewAdminModule(
	ctx context.Context,
	obs observability.Observability,
	db *bun.DB,
	refresher clashapi.KeyRefresher,
	settings adminservice.Settings,
	gateway admincommands.Gateway,
	router *discord.Router,
) (*Module, error) {
	logger := obs.Logger.With("module", "admin")
	logger.InfoContext(ctx, "admin.NewAdminModule initializing")

	repo := admindb.NewRepository(db)
	service := adminservice.NewAdminService(repo, refresher, settings, logger, obs.Metrics, obs.Tracer)
	handlers := admincommands.NewHandlers(service, gateway, router)

	router.SetCommandLogger(service)
	if err := router.Register(handlers.Commands()...); err != nil {
		return nil, fmt.Errorf("failed to register admin commands: %w", err)
	}
	return &Module{Service: service, Handlers: handlers}, nil
}
