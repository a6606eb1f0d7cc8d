// Package app wires the bot's modules to the gateway, the store, the game
// API and the scheduler.
package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/bwmarrin/discordgo"
	"github.com/uptrace/bun"

	"github.com/aussie-warriors/awbot/app/modules/admin"
	"github.com/aussie-warriors/awbot/app/modules/claim"
	"github.com/aussie-warriors/awbot/app/modules/donation"
	"github.com/aussie-warriors/awbot/app/modules/warning"
	"github.com/aussie-warriors/awbot/app/modules/warrole"
	"github.com/aussie-warriors/awbot/app/modules/warstats"
	"github.com/aussie-warriors/awbot/app/modules/warstatus"
	"github.com/aussie-warriors/awbot/config"
	"github.com/aussie-warriors/awbot/internal/clashapi"
	"github.com/aussie-warriors/awbot/internal/db/bundb"
	"github.com/aussie-warriors/awbot/internal/discord"
	"github.com/aussie-warriors/awbot/internal/eventbus"
	"github.com/aussie-warriors/awbot/internal/httpserver"
	"github.com/aussie-warriors/awbot/internal/observability"
	"github.com/aussie-warriors/awbot/internal/observability/attr"
	"github.com/aussie-warriors/awbot/internal/scheduler"
	"github.com/aussie-warriors/awbot/internal/settings"
)

const shutdownTimeout = 30 * time.Second

// Modules holds every feature module.
type Modules struct {
	Claim     *claim.Module
	Donation  *donation.Module
	WarRole   *warrole.Module
	WarStats  *warstats.Module
	Warning   *warning.Module
	WarStatus *warstatus.Module
	Admin     *admin.Module
}

// App owns the process-wide resources.
type App struct {
	Config   *config.Config
	Settings *settings.Store
	Modules  Modules

	obs       observability.Observability
	logger    *slog.Logger
	db        *bun.DB
	bus       *eventbus.EventBus
	notifier  *eventbus.Notifier
	session   *discordgo.Session
	bot       *discord.Bot
	scheduler *scheduler.Scheduler
	http      *httpserver.Server

	wg sync.WaitGroup
}

// NewApp connects to Postgres, builds the game API client and the Discord
// session, and wires every module. Nothing is started until Run.
func NewApp(ctx context.Context, cfg *config.Config, store *settings.Store, obs observability.Observability) (*App, error) {
	logger := obs.Logger.With(attr.String("component", "app"))
	doc := store.Snapshot()

	dsn := firstNonEmpty(cfg.Postgres.DSN, doc.Postgres)
	db, err := bundb.Open(ctx, dsn)
	if err != nil {
		return nil, err
	}

	a := &App{Config: cfg, Settings: store, obs: obs, logger: logger, db: db}
	if err := a.wire(ctx, dsn, firstNonEmpty(cfg.Discord.Token, doc.BotToken)); err != nil {
		db.Close()
		return nil, err
	}
	return a, nil
}

func (a *App) wire(ctx context.Context, dsn, token string) error {
	cfg, store, obs := a.Config, a.Settings, a.obs

	a.bus = eventbus.NewEventBus(obs.Logger)

	var refresher clashapi.KeyRefresher
	apiOpts := []clashapi.Option{clashapi.WithLogger(obs.Logger.With(attr.String("component", "clashapi")))}
	if email, _ := store.Credentials(); email != "" {
		km := clashapi.NewKeyManager(cfg.Clash.DeveloperURL, cfg.Clash.IPLookupURL, cfg.Clash.KeyName, store, nil, obs.Logger)
		refresher = km
		apiOpts = append(apiOpts, clashapi.WithRefresher(km))
	}
	api := clashapi.NewClient(cfg.Clash.BaseURL, store, cfg.Clash.RequestsPerSecond, apiOpts...)

	session, err := discord.NewSession(token)
	if err != nil {
		return err
	}
	a.session = session
	perms := discord.NewSessionPermissions(session, cfg.Discord.OwnerIDs)
	router := discord.NewRouter(perms, nil, a.bus, obs)
	a.bot = discord.NewBot(session, cfg.Discord.GuildID, cfg.Discord.Prefix, router, obs.Logger)
	messenger := discord.NewMessenger(session)
	roles := discord.NewRoleManager(session, cfg.Discord.GuildID)

	a.notifier, err = eventbus.NewNotifier(a.bus, messenger, map[string]string{
		eventbus.TopicOperatorAlert: cfg.Channels.Operator,
		eventbus.TopicLeaderNote:    cfg.Channels.LeaderNotes,
		eventbus.TopicInfoLog:       cfg.Channels.Info,
		eventbus.TopicDonations:     cfg.Channels.Donations,
	}, obs.Logger)
	if err != nil {
		return err
	}

	m := &a.Modules
	if m.WarStats, err = warstats.NewWarStatsModule(ctx, obs, a.db, api, cfg.Clans.Home, store, router); err != nil {
		return err
	}
	if m.Claim, err = claim.NewClaimModule(ctx, obs, a.db, api, cfg.Clans, m.WarStats.Service, router, perms); err != nil {
		return err
	}
	if m.WarRole, err = warrole.NewWarRoleModule(ctx, obs, a.db, api, m.Claim.Service, roles, cfg.Clans.Home, cfg.Roles.War, store, router); err != nil {
		return err
	}
	if m.Donation, err = donation.NewDonationModule(ctx, obs, a.db, api, cfg.Clans, a.bus, store, router); err != nil {
		return err
	}
	if m.Warning, err = warning.NewWarningModule(ctx, obs, a.db, messenger, a.bus, router); err != nil {
		return err
	}
	if m.WarStatus, err = warstatus.NewWarStatusModule(ctx, obs, api, router); err != nil {
		return err
	}
	if m.Admin, err = admin.NewAdminModule(ctx, obs, a.db, refresher, store, a.bot, router); err != nil {
		return err
	}

	tasks := a.tasks()
	runner, err := scheduler.NewRunner(tasks, m.Admin.Service, a.bus, obs.Logger, obs.Metrics)
	if err != nil {
		return err
	}
	pool, err := scheduler.NewPool(ctx, dsn)
	if err != nil {
		return err
	}
	if a.scheduler, err = scheduler.New(pool, tasks, runner, obs); err != nil {
		pool.Close()
		return err
	}

	if addr := cfg.Observability.MetricsAddress; addr != "" {
		a.http = httpserver.New(addr, httpserver.NewRouter(a.db, obs.Registry), obs.Logger)
	}
	return nil
}

// Run starts the notifier, the gateway, the scheduler and the ops server,
// then blocks until ctx is cancelled.
func (a *App) Run(ctx context.Context) error {
	a.wg.Add(1)
	go func() {
		defer a.wg.Done()
		if err := a.notifier.Run(ctx); err != nil {
			a.logger.Error("Notifier stopped", attr.Error(err))
		}
	}()
	<-a.notifier.Running()

	if err := a.bot.Open(ctx); err != nil {
		return err
	}
	if err := a.scheduler.Start(ctx); err != nil {
		return err
	}
	if a.http != nil {
		a.wg.Add(1)
		go func() {
			defer a.wg.Done()
			if err := a.http.Run(ctx); err != nil {
				a.logger.Error("Ops HTTP server stopped", attr.Error(err))
			}
		}()
	}

	a.logger.InfoContext(ctx, "awbot running")
	<-ctx.Done()
	return nil
}

// Close stops jobs first so no cycle outlives the store, and closes the
// Discord session last.
func (a *App) Close() error {
	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	var errs []error
	if a.scheduler != nil {
		errs = append(errs, a.scheduler.Stop(ctx))
	}
	if a.notifier != nil {
		errs = append(errs, a.notifier.Close())
	}
	a.wg.Wait()
	if a.bus != nil {
		errs = append(errs, a.bus.Close())
	}
	if a.db != nil {
		errs = append(errs, a.db.Close())
	}
	if a.bot != nil {
		errs = append(errs, a.bot.Close())
	}
	if err := errors.Join(errs...); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}
	a.logger.Info("awbot stopped")
	return nil
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
