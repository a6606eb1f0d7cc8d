package warningservice

import (
	"context"
	"errors"
	"sort"
	"sync"
	"time"

	"github.com/uptrace/bun"

	warningdb "github.com/aussie-warriors/awbot/app/modules/warning/infrastructure/repositories"
	"github.com/aussie-warriors/awbot/internal/eventbus"
)

// ------------------------
// Fake Warning Repo
// ------------------------

type FakeWarningRepo struct {
	trace    []string
	warnings map[int64]*warningdb.Warning
	nextID   int64

	DeactivateFunc func(ctx context.Context, db bun.IDB, id int64) error
}

func NewFakeWarningRepo(seed ...warningdb.Warning) *FakeWarningRepo {
	f := &FakeWarningRepo{trace: []string{}, warnings: map[int64]*warningdb.Warning{}}
	for i := range seed {
		w := seed[i]
		f.warnings[w.ID] = &w
		if w.ID > f.nextID {
			f.nextID = w.ID
		}
	}
	return f
}

func (f *FakeWarningRepo) record(step string) {
	f.trace = append(f.trace, step)
}

func (f *FakeWarningRepo) Trace() []string {
	return f.trace
}

func (f *FakeWarningRepo) list(keep func(warningdb.Warning) bool) []warningdb.Warning {
	var out []warningdb.Warning
	for _, w := range f.warnings {
		if keep(*w) {
			out = append(out, *w)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].ExpiresAt.Equal(out[j].ExpiresAt) {
			return out[i].ExpiresAt.Before(out[j].ExpiresAt)
		}
		return out[i].ID < out[j].ID
	})
	return out
}

func (f *FakeWarningRepo) Insert(ctx context.Context, db bun.IDB, w *warningdb.Warning) error {
	f.record("Insert")
	f.nextID++
	w.ID = f.nextID
	stored := *w
	f.warnings[w.ID] = &stored
	return nil
}

func (f *FakeWarningRepo) Get(ctx context.Context, db bun.IDB, id int64) (*warningdb.Warning, error) {
	f.record("Get")
	w, ok := f.warnings[id]
	if !ok {
		return nil, warningdb.ErrNotFound
	}
	out := *w
	return &out, nil
}

func (f *FakeWarningRepo) Deactivate(ctx context.Context, db bun.IDB, id int64) error {
	f.record("Deactivate")
	if f.DeactivateFunc != nil {
		return f.DeactivateFunc(ctx, db, id)
	}
	w, ok := f.warnings[id]
	if !ok {
		return warningdb.ErrNotFound
	}
	w.Active = false
	return nil
}

func (f *FakeWarningRepo) DeactivateUser(ctx context.Context, db bun.IDB, userID int64) (int, error) {
	f.record("DeactivateUser")
	n := 0
	for _, w := range f.warnings {
		if w.UserID == userID && w.Active {
			w.Active = false
			n++
		}
	}
	return n, nil
}

func (f *FakeWarningRepo) ListActive(ctx context.Context, db bun.IDB, userID int64) ([]warningdb.Warning, error) {
	f.record("ListActive")
	return f.list(func(w warningdb.Warning) bool {
		return w.Active && (userID == 0 || w.UserID == userID)
	}), nil
}

func (f *FakeWarningRepo) ListDue(ctx context.Context, db bun.IDB, now time.Time) ([]warningdb.Warning, error) {
	f.record("ListDue")
	return f.list(func(w warningdb.Warning) bool {
		return w.Active && !w.ExpiresAt.After(now)
	}), nil
}

var _ warningdb.Repository = (*FakeWarningRepo)(nil)

type fakeDM struct {
	sent map[int64][]string
	err  error
}

func (f *fakeDM) DirectMessage(_ context.Context, userID int64, content string) error {
	if f.err != nil {
		return f.err
	}
	if f.sent == nil {
		f.sent = map[int64][]string{}
	}
	f.sent[userID] = append(f.sent[userID], content)
	return nil
}

type fakePublisher struct {
	mu      sync.Mutex
	topics  []string
	notices []eventbus.Notice
}

func (p *fakePublisher) Publish(_ context.Context, topic string, n eventbus.Notice) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.topics = append(p.topics, topic)
	p.notices = append(p.notices, n)
	return nil
}

var (
	errDMsClosed = errors.New("cannot send messages to this user")
	errStore     = errors.New("connection reset")
)
