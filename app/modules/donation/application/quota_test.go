package donationservice

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	claimdb "github.com/aussie-warriors/awbot/app/modules/claim/infrastructure/repositories"
	donationdb "github.com/aussie-warriors/awbot/app/modules/donation/infrastructure/repositories"
)

func dayOf(year, yday int) time.Time {
	return time.Date(year, time.January, 1, 12, 0, 0, 0, time.UTC).AddDate(0, 0, yday-1)
}

func TestQuota(t *testing.T) {
	tests := []struct {
		name     string
		startDay int
		today    time.Time
		want     float64
	}{
		{name: "ten days in", startDay: 100, today: dayOf(2026, 110), want: 133.3},
		{name: "season start", startDay: 100, today: dayOf(2026, 100), want: 0},
		{name: "one day", startDay: 1, today: dayOf(2026, 2), want: 13.33},
		{name: "across new year", startDay: 360, today: dayOf(2027, 5), want: 133.3},
		{name: "across leap year end", startDay: 360, today: dayOf(2029, 5), want: 146.63},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Quota(tt.startDay, tt.today))
		})
	}
}

func TestDaysElapsed_YearWrap(t *testing.T) {
	// 2028 is a leap year: day 360 of 366 to day 5 of 2029 is 11 days.
	assert.Equal(t, 11, DaysElapsed(360, dayOf(2029, 5)))
	assert.Equal(t, 10, DaysElapsed(360, dayOf(2027, 5)))
}

func TestComputeAverages(t *testing.T) {
	tracked := []string{"Aussie Warriors", "Aussies 4 War"}
	claims := []claimdb.Claim{
		{UserID: 1, Tag: "#A1", Clan: "Aussie Warriors", Difference: 100},
		{UserID: 1, Tag: "#A2", Clan: "Aussies 4 War", Difference: 200},
		{UserID: 2, Tag: "#B1", Clan: "Aussie Warriors", Difference: 50},
		{UserID: 2, Tag: "#B2", Clan: "Elsewhere", Difference: 0, Exempt: true},
		{UserID: 3, Tag: "#C1", Clan: "Elsewhere", Difference: 0},
		{UserID: 4, Tag: "#D1", Clan: "Aussie Warriors", Difference: 999, Exempt: true},
		{UserID: 5, Tag: "#E1", Clan: "Aussie Warriors", Difference: 133.3},
	}

	got := ComputeAverages(claims, tracked, 133.3)

	want := []donationdb.Average{
		{UserID: 1, Average: 150, Warning: false},
		{UserID: 2, Average: 25, Warning: true},
		{UserID: 4, Average: 999, Warning: false},
		{UserID: 5, Average: 133.3, Warning: false},
	}
	assert.Equal(t, want, got)
}

func TestComputeAverages_ExemptRowsCount(t *testing.T) {
	tracked := []string{"Aussie Warriors"}
	claims := []claimdb.Claim{
		{UserID: 1, Tag: "#A1", Clan: "Aussie Warriors", Difference: 1000, Exempt: true},
		{UserID: 1, Tag: "#A2", Clan: "Aussie Warriors", Difference: 0},
		{UserID: 2, Tag: "#B1", Clan: "Aussie Warriors", Difference: 500, Exempt: true},
	}

	got := ComputeAverages(claims, tracked, 133.3)

	want := []donationdb.Average{
		{UserID: 1, Average: 500, Warning: false},
		{UserID: 2, Average: 500, Warning: false},
	}
	assert.Equal(t, want, got)
}
