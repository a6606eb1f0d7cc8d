// Package warstatus wires the war status lookup.
package warstatus

import (
	"context"
	"fmt"

	warstatusservice "github.com/aussie-warriors/awbot/app/modules/warstatus/application"
	warstatuscommands "github.com/aussie-warriors/awbot/app/modules/warstatus/infrastructure/commands"
	"github.com/aussie-warriors/awbot/internal/clashapi"
	"github.com/aussie-warriors/awbot/internal/discord"
	"github.com/aussie-warriors/awbot/internal/observability"
)

// Module represents the war status module.
type Module struct {
	Service  *warstatusservice.WarStatusService
	Handlers *warstatuscommands.Handlers
}

// NewWarStatusModule creates the module and registers its command.
func NewWarStatusModule(ctx context.Context, obs observability.Observability, api clashapi.API, router *discord.Router) (*Module, error) {
	logger := obs.Logger.With("module", "warstatus")
	logger.InfoContext(ctx, "warstatus.NewWarStatusModule initializing")

	service := warstatusservice.NewWarStatusService(api, logger, obs.Tracer)
	handlers := warstatuscommands.NewHandlers(service)
	if err := router.Register(handlers.Commands()...); err != nil {
		return nil, fmt.Errorf("failed to register warstatus commands: %w", err)
	}
	return &Module{Service: service, Handlers: handlers}, nil
}
