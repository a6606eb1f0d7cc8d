package donationservice

import (
	"context"
	"sort"
	"sync"

	"github.com/uptrace/bun"

	claimdb "github.com/aussie-warriors/awbot/app/modules/claim/infrastructure/repositories"
	donationdb "github.com/aussie-warriors/awbot/app/modules/donation/infrastructure/repositories"
	"github.com/aussie-warriors/awbot/internal/eventbus"
)

// ------------------------
// Fake Donation Repo
// ------------------------

// FakeDonationRepo keeps claims, seasons and averages in memory.
type FakeDonationRepo struct {
	trace    []string
	claims   map[string]*claimdb.Claim
	seasons  []donationdb.Season
	averages []donationdb.Average

	UpdateDonationsFunc func(ctx context.Context, db bun.IDB, tag string, current int, clan string) error
}

func NewFakeDonationRepo(claims ...claimdb.Claim) *FakeDonationRepo {
	f := &FakeDonationRepo{trace: []string{}, claims: map[string]*claimdb.Claim{}}
	for i := range claims {
		c := claims[i]
		f.claims[c.Tag] = &c
	}
	return f
}

func (f *FakeDonationRepo) record(step string) {
	f.trace = append(f.trace, step)
}

func (f *FakeDonationRepo) withSeason(startDay int, quota float64) *FakeDonationRepo {
	f.seasons = append(f.seasons, donationdb.Season{ID: int64(len(f.seasons) + 1), Toggle: true, StartDate: startDay, DonationsByToday: quota})
	return f
}

func (f *FakeDonationRepo) sorted(keep func(claimdb.Claim) bool) []claimdb.Claim {
	var out []claimdb.Claim
	for _, c := range f.claims {
		if keep(*c) {
			out = append(out, *c)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].UserID != out[j].UserID {
			return out[i].UserID < out[j].UserID
		}
		return out[i].IGN < out[j].IGN
	})
	return out
}

func (f *FakeDonationRepo) ActiveSeason(ctx context.Context, db bun.IDB) (*donationdb.Season, error) {
	f.record("ActiveSeason")
	for i := len(f.seasons) - 1; i >= 0; i-- {
		if f.seasons[i].Toggle {
			s := f.seasons[i]
			return &s, nil
		}
	}
	return nil, donationdb.ErrNoActiveSeason
}

func (f *FakeDonationRepo) StartSeason(ctx context.Context, db bun.IDB, startDay int) (*donationdb.Season, error) {
	f.record("StartSeason")
	for i := range f.seasons {
		f.seasons[i].Toggle = false
	}
	f.withSeason(startDay, 0)
	s := f.seasons[len(f.seasons)-1]
	return &s, nil
}

func (f *FakeDonationRepo) SetDonationsByToday(ctx context.Context, db bun.IDB, quota float64) error {
	f.record("SetDonationsByToday")
	for i := range f.seasons {
		if f.seasons[i].Toggle {
			f.seasons[i].DonationsByToday = quota
			return nil
		}
	}
	return donationdb.ErrNoActiveSeason
}

func (f *FakeDonationRepo) ListClaims(ctx context.Context, db bun.IDB) ([]claimdb.Claim, error) {
	f.record("ListClaims")
	return f.sorted(func(claimdb.Claim) bool { return true }), nil
}

func (f *FakeDonationRepo) ListClaimsByUser(ctx context.Context, db bun.IDB, userID int64) ([]claimdb.Claim, error) {
	f.record("ListClaimsByUser")
	return f.sorted(func(c claimdb.Claim) bool { return c.UserID == userID }), nil
}

func (f *FakeDonationRepo) ListClaimsByClan(ctx context.Context, db bun.IDB, clan string) ([]claimdb.Claim, error) {
	f.record("ListClaimsByClan")
	return f.sorted(func(c claimdb.Claim) bool { return c.Clan == clan }), nil
}

func (f *FakeDonationRepo) UpdateDonations(ctx context.Context, db bun.IDB, tag string, current int, clan string) error {
	f.record("UpdateDonations")
	if f.UpdateDonationsFunc != nil {
		return f.UpdateDonationsFunc(ctx, db, tag, current, clan)
	}
	c := f.claims[tag]
	c.CurrentDonations = current
	c.Difference = float64(current - c.StartingDonations)
	c.Clan = clan
	return nil
}

func (f *FakeDonationRepo) Rebaseline(ctx context.Context, db bun.IDB, tag string, value int) error {
	f.record("Rebaseline")
	c := f.claims[tag]
	c.StartingDonations = value
	c.CurrentDonations = value
	c.Difference = 0
	return nil
}

func (f *FakeDonationRepo) ReplaceAverages(ctx context.Context, db bun.IDB, rows []donationdb.Average) error {
	f.record("ReplaceAverages")
	f.averages = append([]donationdb.Average(nil), rows...)
	return nil
}

func (f *FakeDonationRepo) GetAverage(ctx context.Context, db bun.IDB, userID int64) (*donationdb.Average, error) {
	f.record("GetAverage")
	for _, a := range f.averages {
		if a.UserID == userID {
			return &a, nil
		}
	}
	return nil, donationdb.ErrNotFound
}

func (f *FakeDonationRepo) ListFlagged(ctx context.Context, db bun.IDB) ([]donationdb.Average, error) {
	f.record("ListFlagged")
	var out []donationdb.Average
	for _, a := range f.averages {
		if a.Warning {
			out = append(out, a)
		}
	}
	return out, nil
}

// ------------------------
// Fake Publisher
// ------------------------

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
