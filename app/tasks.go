package app

import (
	"context"

	warroleservice "github.com/aussie-warriors/awbot/app/modules/warrole/application"
	"github.com/aussie-warriors/awbot/internal/eventbus"
	"github.com/aussie-warriors/awbot/internal/observability/attr"
	"github.com/aussie-warriors/awbot/internal/scheduler"
	"github.com/aussie-warriors/awbot/internal/settings"
)

// Task names as recorded in the tasks table.
const (
	TaskWarRole   = "war_role"
	TaskWarStats  = "war_stats"
	TaskDonations = "donations"
	TaskAverages  = "averages"
	TaskWarnings  = "warnings"
	TaskPings     = "pings"
)

func (a *App) tasks() []scheduler.Task {
	m, s := a.Modules, a.Config.Schedules
	flag := func(key string) func() bool {
		return func() bool { return a.Settings.Enabled(key) }
	}

	return []scheduler.Task{
		{
			Name:     TaskWarRole,
			Schedule: s.WarRole,
			Enabled:  flag(settings.KeyWarRoles),
			Run: func(ctx context.Context) error {
				res, err := m.WarRole.Service.Reconcile(ctx)
				if err != nil {
					return err
				}
				if res.Changed() || !res.OK() {
					a.publish(ctx, eventbus.TopicInfoLog, warroleservice.ReportNotice(res))
				}
				return nil
			},
		},
		{
			Name:     TaskWarStats,
			Schedule: s.WarStats,
			Run: func(ctx context.Context) error {
				_, err := m.WarStats.Service.Collect(ctx)
				return err
			},
		},
		{
			Name:     TaskDonations,
			Schedule: s.Donations,
			Run: func(ctx context.Context) error {
				_, err := m.Donation.Service.RefreshDonations(ctx)
				return err
			},
		},
		{
			Name:     TaskAverages,
			Schedule: s.Averages,
			Run: func(ctx context.Context) error {
				_, err := m.Donation.Service.RebuildAverages(ctx)
				return err
			},
		},
		{
			Name:     TaskWarnings,
			Schedule: s.Warnings,
			Run: func(ctx context.Context) error {
				_, err := m.Warning.Service.ExpireDue(ctx)
				return err
			},
		},
		{
			Name:     TaskPings,
			Schedule: s.Pings,
			Enabled:  flag(settings.KeySendPings),
			Run: func(ctx context.Context) error {
				_, err := m.Donation.Service.SendPings(ctx)
				return err
			},
		},
	}
}

func (a *App) publish(ctx context.Context, topic string, n eventbus.Notice) {
	if err := a.bus.Publish(ctx, topic, n); err != nil {
		a.logger.WarnContext(ctx, "Failed to publish notice", attr.Error(err))
	}
}
