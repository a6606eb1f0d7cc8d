package warstatsdb

import (
	"database/sql/driver"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/uptrace/bun"
)

// WindowSize is the number of wars kept in war_stats.
const WindowSize = 20

// Fraction is a success count over an attempt count, stored as "A/B".
type Fraction struct {
	Num int
	Den int
}

// Percent returns Num/Den as a percentage, or 0 when Den is 0.
func (f Fraction) Percent() float64 {
	if f.Den == 0 {
		return 0
	}
	return float64(f.Num) * 100 / float64(f.Den)
}

// Add sums two fractions component-wise.
func (f Fraction) Add(o Fraction) Fraction {
	return Fraction{Num: f.Num + o.Num, Den: f.Den + o.Den}
}

func (f Fraction) String() string {
	return strconv.Itoa(f.Num) + "/" + strconv.Itoa(f.Den)
}

// ParseFraction reads "A/B". An empty string is 0/0.
func ParseFraction(s string) (Fraction, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return Fraction{}, nil
	}
	num, den, ok := strings.Cut(s, "/")
	if !ok {
		return Fraction{}, fmt.Errorf("invalid fraction %q", s)
	}
	n, err := strconv.Atoi(strings.TrimSpace(num))
	if err != nil {
		return Fraction{}, fmt.Errorf("invalid fraction numerator %q: %w", s, err)
	}
	d, err := strconv.Atoi(strings.TrimSpace(den))
	if err != nil {
		return Fraction{}, fmt.Errorf("invalid fraction denominator %q: %w", s, err)
	}
	if n < 0 || d < 0 || n > d {
		return Fraction{}, fmt.Errorf("invalid fraction %q", s)
	}
	return Fraction{Num: n, Den: d}, nil
}

// Scan implements sql.Scanner.
func (f *Fraction) Scan(src any) error {
	switch v := src.(type) {
	case nil:
		*f = Fraction{}
		return nil
	case string:
		parsed, err := ParseFraction(v)
		if err != nil {
			return err
		}
		*f = parsed
		return nil
	case []byte:
		parsed, err := ParseFraction(string(v))
		if err != nil {
			return err
		}
		*f = parsed
		return nil
	}
	return fmt.Errorf("cannot scan %T into Fraction", src)
}

// Value implements driver.Valuer.
func (f Fraction) Value() (driver.Value, error) {
	return f.String(), nil
}

// WarStat is one member's result in one war. war_no 1 is the latest war.
type WarStat struct {
	bun.BaseModel `bun:"table:war_stats,alias:ws"`

	ID          int64    `bun:"id,pk,autoincrement" json:"id"`
	WarNo       int      `bun:"war_no,notnull" json:"war_no"`
	Name        string   `bun:"name,notnull" json:"name"`
	Tag         string   `bun:"tag,notnull" json:"tag"`
	TH          int      `bun:"th,notnull" json:"th"`
	HitRate     Fraction `bun:"hitrate,type:text,notnull" json:"hitrate"`
	DefenseRate Fraction `bun:"defenserate,type:text,notnull" json:"defenserate"`
}

// RecordedWar marks an ended war as stored.
type RecordedWar struct {
	bun.BaseModel `bun:"table:recorded_wars,alias:rw"`

	WarKey     string    `bun:"war_key,pk" json:"war_key"`
	ClanTag    string    `bun:"clan_tag,notnull" json:"clan_tag"`
	Opponent   string    `bun:"opponent,notnull" json:"opponent"`
	EndTime    time.Time `bun:"end_time,notnull" json:"end_time"`
	RecordedAt time.Time `bun:"recorded_at,notnull,default:current_timestamp" json:"recorded_at"`
}
