package warstatsservice

import (
	"context"
	"sort"
	"strings"

	"github.com/uptrace/bun"

	warstatsdb "github.com/aussie-warriors/awbot/app/modules/warstats/infrastructure/repositories"
)

// ------------------------
// Fake War Stats Repo
// ------------------------

// FakeWarStatsRepo keeps the window in memory with the same ageing rules as
// the SQL implementation.
type FakeWarStatsRepo struct {
	trace    []string
	rows     []warstatsdb.WarStat
	recorded map[string]warstatsdb.RecordedWar
	nextID   int64

	ShiftWindowFunc func(ctx context.Context, db bun.IDB, rows []warstatsdb.WarStat) error
}

func NewFakeWarStatsRepo() *FakeWarStatsRepo {
	return &FakeWarStatsRepo{trace: []string{}, recorded: map[string]warstatsdb.RecordedWar{}}
}

func (f *FakeWarStatsRepo) record(step string) {
	f.trace = append(f.trace, step)
}

func (f *FakeWarStatsRepo) Trace() []string {
	return f.trace
}

func (f *FakeWarStatsRepo) warNumbers() []int {
	seen := map[int]bool{}
	var out []int
	for _, r := range f.rows {
		if !seen[r.WarNo] {
			seen[r.WarNo] = true
			out = append(out, r.WarNo)
		}
	}
	sort.Ints(out)
	return out
}

func (f *FakeWarStatsRepo) IsRecorded(ctx context.Context, db bun.IDB, warKey string) (bool, error) {
	f.record("IsRecorded")
	_, ok := f.recorded[warKey]
	return ok, nil
}

func (f *FakeWarStatsRepo) RecordWar(ctx context.Context, db bun.IDB, war *warstatsdb.RecordedWar) error {
	f.record("RecordWar")
	if _, ok := f.recorded[war.WarKey]; ok {
		return warstatsdb.ErrAlreadyRecorded
	}
	f.recorded[war.WarKey] = *war
	return nil
}

func (f *FakeWarStatsRepo) ShiftWindow(ctx context.Context, db bun.IDB, rows []warstatsdb.WarStat) error {
	f.record("ShiftWindow")
	if f.ShiftWindowFunc != nil {
		return f.ShiftWindowFunc(ctx, db, rows)
	}
	kept := f.rows[:0]
	for _, r := range f.rows {
		r.WarNo++
		if r.WarNo <= warstatsdb.WindowSize {
			kept = append(kept, r)
		}
	}
	f.rows = kept
	for _, r := range rows {
		f.nextID++
		r.ID = f.nextID
		r.WarNo = 1
		f.rows = append(f.rows, r)
	}
	return nil
}

func (f *FakeWarStatsRepo) ListAll(ctx context.Context, db bun.IDB) ([]warstatsdb.WarStat, error) {
	f.record("ListAll")
	out := append([]warstatsdb.WarStat(nil), f.rows...)
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].WarNo != out[j].WarNo {
			return out[i].WarNo < out[j].WarNo
		}
		return out[i].ID < out[j].ID
	})
	return out, nil
}

func (f *FakeWarStatsRepo) ListByTag(ctx context.Context, db bun.IDB, tag string) ([]warstatsdb.WarStat, error) {
	f.record("ListByTag")
	var out []warstatsdb.WarStat
	for _, r := range f.rows {
		if r.Tag == tag {
			out = append(out, r)
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].WarNo > out[j].WarNo })
	return out, nil
}

func (f *FakeWarStatsRepo) FindTagsByName(ctx context.Context, db bun.IDB, name string) ([]string, error) {
	f.record("FindTagsByName")
	seen := map[string]bool{}
	var out []string
	for _, r := range f.rows {
		if strings.EqualFold(r.Name, name) && !seen[r.Tag] {
			seen[r.Tag] = true
			out = append(out, r.Tag)
		}
	}
	sort.Strings(out)
	return out, nil
}

func (f *FakeWarStatsRepo) RenameTag(ctx context.Context, db bun.IDB, tag, name string) (int, error) {
	f.record("RenameTag")
	n := 0
	for i := range f.rows {
		if f.rows[i].Tag == tag {
			f.rows[i].Name = name
			n++
		}
	}
	return n, nil
}

var _ warstatsdb.Repository = (*FakeWarStatsRepo)(nil)

type fakeToggles map[string]bool

func (f fakeToggles) Enabled(key string) bool { return f[key] }
