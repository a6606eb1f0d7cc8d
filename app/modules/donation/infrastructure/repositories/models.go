package donationdb

import "github.com/uptrace/bun"

// Season is a donation season. Exactly one row has Toggle set.
type Season struct {
	bun.BaseModel `bun:"table:season,alias:s"`

	ID               int64   `bun:"id,pk,autoincrement"`
	Toggle           bool    `bun:"toggle,notnull"`
	DonationsByToday float64 `bun:"donationsbytoday,notnull"`
	// StartDate is the day of the year the season started.
	StartDate int `bun:"start_date,notnull"`
}

// Average is a user's mean seasonal donations across their accounts.
type Average struct {
	bun.BaseModel `bun:"table:averages,alias:a"`

	ID      int64   `bun:"id,pk,autoincrement"`
	UserID  int64   `bun:"userid,notnull"`
	Average float64 `bun:"average,type:numeric"`
	Warning bool    `bun:"warning,notnull"`
}
