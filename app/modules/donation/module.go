// Package donation wires the donation module.
package donation

import (
	"context"
	"fmt"

	"github.com/uptrace/bun"

	donationservice "github.com/aussie-warriors/awbot/app/modules/donation/application"
	donationcommands "github.com/aussie-warriors/awbot/app/modules/donation/infrastructure/commands"
	donationdb "github.com/aussie-warriors/awbot/app/modules/donation/infrastructure/repositories"
	"github.com/aussie-warriors/awbot/config"
	"github.com/aussie-warriors/awbot/internal/clashapi"
	"github.com/aussie-warriors/awbot/internal/discord"
	"github.com/aussie-warriors/awbot/internal/eventbus"
	"github.com/aussie-warriors/awbot/internal/observability"
)

// Module represents the donation module.
type Module struct {
	Service  *donationservice.DonationService
	Handlers *donationcommands.Handlers
}

// NewDonationModule creates the donation module and registers its commands.
func NewDonationModule(
	ctx context.Context,
	obs observability.Observability,
	db *bun.DB,
	api clashapi.API,
	clans config.ClansConfig,
	publisher eventbus.Publisher,
	flags donationcommands.Flags,
	router *discord.Router,
) (*Module, error) {
	logger := obs.Logger.With("module", "donation")
	logger.InfoContext(ctx, "donation.NewDonationModule initializing")

	repo := donationdb.NewRepository(db)
	service := donationservice.NewDonationService(repo, api, clans.Names(), publisher, logger, obs.Metrics, obs.Tracer, db)
	handlers := donationcommands.NewHandlers(service, clans, flags)

	if err := router.Register(handlers.Commands()...); err != nil {
		return nil, fmt.Errorf("failed to register donation commands: %w", err)
	}
	return &Module{Service: service, Handlers: handlers}, nil
}
