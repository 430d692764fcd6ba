package entities

import "time"

// Account is a chat user's points balance. Accounts are created the first
// time a user is seen and are never deleted, only zeroed.
type Account struct {
	ID             string    `db:"id"`
	Login          string    `db:"login"`
	Balance        int64     `db:"balance"`
	Version        int64     `db:"version"`
	MinutesWatched int64     `db:"minutes_watched"`
	LastSeenAt     time.Time `db:"last_seen_at"`
	CreatedAt      time.Time `db:"created_at"`
	UpdatedAt      time.Time `db:"updated_at"`
}

// HoursWatched returns accrued watch time in hours
func (a *Account) HoursWatched() float64 {
	return float64(a.MinutesWatched) / 60
}

// CanAfford returns true if the balance covers amount
func (a *Account) CanAfford(amount int64) bool {
	return amount <= a.Balance
}
