package adminservice

import (
	"context"
	"sort"

	"github.com/uptrace/bun"

	admindb "github.com/aussie-warriors/awbot/app/modules/admin/infrastructure/repositories"
	"github.com/aussie-warriors/awbot/internal/settings"
)

// ------------------------
// Fake Admin Repo
// ------------------------

// FakeAdminRepo keeps command and task logs in memory.
type FakeAdminRepo struct {
	trace    []string
	commands []admindb.CommandLog
	tasks    []admindb.TaskLog

	InsertCommandFunc func(ctx context.Context, db bun.IDB, entry *admindb.CommandLog) error
}

var _ admindb.Repository = (*FakeAdminRepo)(nil)

func NewFakeAdminRepo() *FakeAdminRepo {
	return &FakeAdminRepo{trace: []string{}}
}

func (f *FakeAdminRepo) record(step string) {
	f.trace = append(f.trace, step)
}

func (f *FakeAdminRepo) Trace() []string {
	out := make([]string, len(f.trace))
	copy(out, f.trace)
	return out
}

func (f *FakeAdminRepo) InsertCommand(ctx context.Context, db bun.IDB, entry *admindb.CommandLog) error {
	f.record("InsertCommand")
	if f.InsertCommandFunc != nil {
		return f.InsertCommandFunc(ctx, db, entry)
	}
	entry.ID = int64(len(f.commands) + 1)
	f.commands = append(f.commands, *entry)
	return nil
}

func (f *FakeAdminRepo) TopCommands(ctx context.Context, db bun.IDB, limit int) ([]admindb.CommandCount, error) {
	f.record("TopCommands")
	byName := map[string]int{}
	for _, c := range f.commands {
		byName[c.Command]++
	}
	out := make([]admindb.CommandCount, 0, len(byName))
	for name, n := range byName {
		out = append(out, admindb.CommandCount{Command: name, Uses: n})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Uses != out[j].Uses {
			return out[i].Uses > out[j].Uses
		}
		return out[i].Command < out[j].Command
	})
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (f *FakeAdminRepo) CountCommands(ctx context.Context, db bun.IDB) (int, error) {
	f.record("CountCommands")
	return len(f.commands), nil
}

func (f *FakeAdminRepo) StartTask(ctx context.Context, db bun.IDB, task *admindb.TaskLog) error {
	f.record("StartTask")
	task.ID = int64(len(f.tasks) + 1)
	f.tasks = append(f.tasks, *task)
	return nil
}

func (f *FakeAdminRepo) FinishTask(ctx context.Context, db bun.IDB, id int64, errText string) error {
	f.record("FinishTask")
	for i := range f.tasks {
		if f.tasks[i].ID == id {
			if errText == "" {
				f.tasks[i].Completed = true
			} else {
				f.tasks[i].Error = errText
			}
			return nil
		}
	}
	return admindb.ErrNotFound
}

func (f *FakeAdminRepo) TaskCounts(ctx context.Context, db bun.IDB) ([]admindb.TaskCount, error) {
	f.record("TaskCounts")
	byName := map[string]*admindb.TaskCount{}
	var names []string
	for _, t := range f.tasks {
		c, ok := byName[t.TaskName]
		if !ok {
			c = &admindb.TaskCount{TaskName: t.TaskName}
			byName[t.TaskName] = c
			names = append(names, t.TaskName)
		}
		c.Runs++
		if t.Completed {
			c.Completed++
		}
		if t.Error != "" {
			c.Failed++
		}
	}
	sort.Strings(names)
	out := make([]admindb.TaskCount, 0, len(names))
	for _, n := range names {
		out = append(out, *byName[n])
	}
	return out, nil
}

type fakeRefresher struct {
	calls int
	err   error
}

func (f *fakeRefresher) Refresh(context.Context) error {
	f.calls++
	return f.err
}

type fakeSettings struct {
	flags map[string]bool
	err   error
}

func (f *fakeSettings) Flag(key string) (bool, error) {
	v, ok := f.flags[key]
	if !ok {
		return false, settings.ErrUnknownKey
	}
	return v, nil
}

func (f *fakeSettings) SetFlag(key string, value bool) error {
	if f.err != nil {
		return f.err
	}
	if _, ok := f.flags[key]; !ok {
		return settings.ErrUnknownKey
	}
	f.flags[key] = value
	return nil
}
