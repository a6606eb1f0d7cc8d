package claimdb

import "github.com/uptrace/bun"

// Claim links a Discord user to a game account.
type Claim struct {
	bun.BaseModel `bun:"table:claims,alias:c"`

	UserID            int64   `bun:"userid,notnull"`
	IGN               string  `bun:"ign,notnull"`
	Tag               string  `bun:"tag,pk"`
	StartingDonations int     `bun:"starting_donations,notnull,default:0"`
	CurrentDonations  int     `bun:"current_donations,notnull,default:0"`
	Difference        float64 `bun:"difference,type:numeric,notnull,default:0"`
	Clan              string  `bun:"clan"`
	Exempt            bool    `bun:"exempt,notnull,default:false"`
}

// TagOwner is the uniqueness index over claimed tags.
type TagOwner struct {
	bun.BaseModel `bun:"table:tag_to_id,alias:t"`

	ID  int64  `bun:"id,notnull"`
	Tag string `bun:"tag,pk"`
}
