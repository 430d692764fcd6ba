package entities

import "time"

// Reason classifies why a balance changed
type Reason string

// All transaction reasons supported by the ledger
const (
	ReasonCommandCost  Reason = "command_cost"
	ReasonGambleStake  Reason = "gamble_stake"
	ReasonGamblePayout Reason = "gamble_payout"
	ReasonAdminAdjust  Reason = "admin_adjust"
	ReasonAccrual      Reason = "accrual"
	ReasonInitial      Reason = "initial"
)

// IsValid reports whether r is a known reason
func (r Reason) IsValid() bool {
	switch r {
	case ReasonCommandCost, ReasonGambleStake, ReasonGamblePayout,
		ReasonAdminAdjust, ReasonAccrual, ReasonInitial:
		return true
	}
	return false
}

// IsGamblingRelated returns true if the reason comes from a game outcome
func (r Reason) IsGamblingRelated() bool {
	return r == ReasonGambleStake || r == ReasonGamblePayout
}

// IsSystemGenerated returns true if no chat user triggered the change directly
func (r Reason) IsSystemGenerated() bool {
	return r == ReasonAccrual || r == ReasonInitial
}

// Transaction is one immutable ledger entry. ID is the idempotence key:
// the source id of the event that caused the change.
type Transaction struct {
	ID               string         `db:"id"`
	AccountID        string         `db:"account_id"`
	Delta            int64          `db:"delta"`
	Reason           Reason         `db:"reason"`
	ResultingBalance int64          `db:"resulting_balance"`
	Metadata         map[string]any `db:"metadata"`
	CreatedAt        time.Time      `db:"created_at"`
}

// BalanceBefore returns the account balance right before this entry was applied
func (t *Transaction) BalanceBefore() int64 {
	return t.ResultingBalance - t.Delta
}

// IsCredit returns true if the entry added points
func (t *Transaction) IsCredit() bool {
	return t.Delta > 0
}

// MetadataString returns a string metadata value or "" if absent
func (t *Transaction) MetadataString(key string) string {
	if t.Metadata == nil {
		return ""
	}
	if s, ok := t.Metadata[key].(string); ok {
		return s
	}
	return ""
}

// MetadataInt returns an integer metadata value. JSON round trips decode
// numbers as float64, both shapes are accepted.
func (t *Transaction) MetadataInt(key string) (int64, bool) {
	if t.Metadata == nil {
		return 0, false
	}
	switch v := t.Metadata[key].(type) {
	case int64:
		return v, true
	case int:
		return int64(v), true
	case float64:
		return int64(v), true
	}
	return 0, false
}
