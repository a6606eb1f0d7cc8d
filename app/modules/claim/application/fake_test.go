package claimservice

import (
	"context"

	"github.com/uptrace/bun"

	claimdb "github.com/aussie-warriors/awbot/app/modules/claim/infrastructure/repositories"
)

// ------------------------
// Fake Claim Repo
// ------------------------

type FakeClaimRepo struct {
	trace []string

	InsertFunc      func(ctx context.Context, db bun.IDB, claim *claimdb.Claim) error
	DeleteFunc      func(ctx context.Context, db bun.IDB, tag string) (*claimdb.Claim, error)
	GetByTagFunc    func(ctx context.Context, db bun.IDB, tag string) (*claimdb.Claim, error)
	FindByIGNFunc   func(ctx context.Context, db bun.IDB, ign string) ([]claimdb.Claim, error)
	ListByUserFunc  func(ctx context.Context, db bun.IDB, userID int64) ([]claimdb.Claim, error)
	ListAllFunc     func(ctx context.Context, db bun.IDB) ([]claimdb.Claim, error)
	ListExemptFunc  func(ctx context.Context, db bun.IDB) ([]claimdb.Claim, error)
	ResolveTagsFunc func(ctx context.Context, db bun.IDB, tags []string) (map[string]int64, error)
	UpdateIGNFunc   func(ctx context.Context, db bun.IDB, tag, ign string) error
	SetExemptFunc   func(ctx context.Context, db bun.IDB, tag string, exempt bool) error
}

func NewFakeClaimRepo() *FakeClaimRepo {
	return &FakeClaimRepo{trace: []string{}}
}

func (f *FakeClaimRepo) record(step string) {
	f.trace = append(f.trace, step)
}

func (f *FakeClaimRepo) Insert(ctx context.Context, db bun.IDB, claim *claimdb.Claim) error {
	f.record("Insert")
	if f.InsertFunc != nil {
		return f.InsertFunc(ctx, db, claim)
	}
	return nil
}

func (f *FakeClaimRepo) Delete(ctx context.Context, db bun.IDB, tag string) (*claimdb.Claim, error) {
	f.record("Delete")
	if f.DeleteFunc != nil {
		return f.DeleteFunc(ctx, db, tag)
	}
	return nil, claimdb.ErrNotFound
}

func (f *FakeClaimRepo) GetByTag(ctx context.Context, db bun.IDB, tag string) (*claimdb.Claim, error) {
	f.record("GetByTag")
	if f.GetByTagFunc != nil {
		return f.GetByTagFunc(ctx, db, tag)
	}
	return nil, claimdb.ErrNotFound
}

func (f *FakeClaimRepo) FindByIGN(ctx context.Context, db bun.IDB, ign string) ([]claimdb.Claim, error) {
	f.record("FindByIGN")
	if f.FindByIGNFunc != nil {
		return f.FindByIGNFunc(ctx, db, ign)
	}
	return nil, nil
}

func (f *FakeClaimRepo) ListByUser(ctx context.Context, db bun.IDB, userID int64) ([]claimdb.Claim, error) {
	f.record("ListByUser")
	if f.ListByUserFunc != nil {
		return f.ListByUserFunc(ctx, db, userID)
	}
	return nil, nil
}

func (f *FakeClaimRepo) ListAll(ctx context.Context, db bun.IDB) ([]claimdb.Claim, error) {
	f.record("ListAll")
	if f.ListAllFunc != nil {
		return f.ListAllFunc(ctx, db)
	}
	return nil, nil
}

func (f *FakeClaimRepo) ListExempt(ctx context.Context, db bun.IDB) ([]claimdb.Claim, error) {
	f.record("ListExempt")
	if f.ListExemptFunc != nil {
		return f.ListExemptFunc(ctx, db)
	}
	return nil, nil
}

func (f *FakeClaimRepo) ResolveTags(ctx context.Context, db bun.IDB, tags []string) (map[string]int64, error) {
	f.record("ResolveTags")
	if f.ResolveTagsFunc != nil {
		return f.ResolveTagsFunc(ctx, db, tags)
	}
	return map[string]int64{}, nil
}

func (f *FakeClaimRepo) UpdateIGN(ctx context.Context, db bun.IDB, tag, ign string) error {
	f.record("UpdateIGN")
	if f.UpdateIGNFunc != nil {
		return f.UpdateIGNFunc(ctx, db, tag, ign)
	}
	return nil
}

func (f *FakeClaimRepo) SetExempt(ctx context.Context, db bun.IDB, tag string, exempt bool) error {
	f.record("SetExempt")
	if f.SetExemptFunc != nil {
		return f.SetExemptFunc(ctx, db, tag, exempt)
	}
	return nil
}

func (f *FakeClaimRepo) Trace() []string {
	out := make([]string, len(f.trace))
	copy(out, f.trace)
	return out
}

var _ claimdb.Repository = (*FakeClaimRepo)(nil)

// uniqueViolation mimics the SQLSTATE accessor of a driver error.
type uniqueViolation struct{}

func (uniqueViolation) Error() string       { return "duplicate key value violates unique constraint" }
func (uniqueViolation) Field(k byte) string { return map[byte]string{'C': "23505"}[k] }

type fakeNameSyncer struct {
	renamed map[string]string
}

func (f *fakeNameSyncer) RenamePlayer(_ context.Context, tag, name string) error {
	if f.renamed == nil {
		f.renamed = map[string]string{}
	}
	f.renamed[tag] = name
	return nil
}
