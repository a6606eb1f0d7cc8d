package scheduler

import (
	"fmt"
	"strings"
	"time"

	"github.com/riverqueue/river"
	"github.com/robfig/cron/v3"
)

// ParseSchedule accepts either a Go duration ("15m") or a standard five
// field cron expression ("0 7 * * 3", "@daily").
func ParseSchedule(expr string) (river.PeriodicSchedule, error) {
	expr = strings.TrimSpace(expr)
	if expr == "" {
		return nil, fmt.Errorf("empty schedule")
	}
	if d, err := time.ParseDuration(expr); err == nil {
		if d < time.Minute {
			return nil, fmt.Errorf("interval %s is shorter than a minute", d)
		}
		return river.PeriodicInterval(d), nil
	}
	sched, err := cron.ParseStandard(expr)
	if err != nil {
		return nil, fmt.Errorf("invalid schedule %q: %w", expr, err)
	}
	return sched, nil
}
