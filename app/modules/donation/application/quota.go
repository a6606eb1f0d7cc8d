package donationservice

import (
	"math"
	"sort"
	"time"

	claimdb "github.com/aussie-warriors/awbot/app/modules/claim/infrastructure/repositories"
	donationdb "github.com/aussie-warriors/awbot/app/modules/donation/infrastructure/repositories"
)

// DailyQuota is the troop space each account is expected to donate per day.
const DailyQuota = 13.33

// DaysElapsed counts days from the season's start day-of-year to today,
// wrapping once across a year boundary.
func DaysElapsed(startDay int, today time.Time) int {
	d := today.YearDay() - startDay
	if d < 0 {
		d += daysInYear(today.Year() - 1)
	}
	return d
}

func daysInYear(year int) int {
	return time.Date(year, time.December, 31, 0, 0, 0, 0, time.UTC).YearDay()
}

// Quota is the donations required by today.
func Quota(startDay int, today time.Time) float64 {
	return Round2(float64(DaysElapsed(startDay, today)) * DailyQuota)
}

// Round2 rounds to two decimal places.
func Round2(v float64) float64 {
	return math.Round(v*100) / 100
}

// ComputeAverages averages difference over every claim a user holds.
// Users with no claim in a tracked clan are left out.
func ComputeAverages(claims []claimdb.Claim, trackedClans []string, quota float64) []donationdb.Average {
	tracked := make(map[string]struct{}, len(trackedClans))
	for _, c := range trackedClans {
		tracked[c] = struct{}{}
	}

	type acc struct {
		sum    float64
		n      int
		inClan bool
	}
	byUser := map[int64]*acc{}
	for _, c := range claims {
		a, ok := byUser[c.UserID]
		if !ok {
			a = &acc{}
			byUser[c.UserID] = a
		}
		if _, ok := tracked[c.Clan]; ok {
			a.inClan = true
		}
		a.sum += c.Difference
		a.n++
	}

	out := make([]donationdb.Average, 0, len(byUser))
	for userID, a := range byUser {
		if !a.inClan {
			continue
		}
		avg := Round2(a.sum / float64(a.n))
		out = append(out, donationdb.Average{UserID: userID, Average: avg, Warning: avg < quota})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].UserID < out[j].UserID })
	return out
}
