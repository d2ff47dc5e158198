package ledger

import (
	"time"

	"github.com/fundgate/ledger-core/internal/domain/shared"
	"github.com/shopspring/decimal"
)

// Balance is the derived view of an account. It is never persisted.
type Balance struct {
	UserID           string          `json:"user_id"`
	Currency         string          `json:"currency"`
	Balance          decimal.Decimal `json:"balance"`
	AvailableBalance decimal.Decimal `json:"available_balance"`
	HeldBalance      decimal.Decimal `json:"held_balance"`
	LastUpdated      *time.Time      `json:"last_updated,omitempty"`
}

// Fold recomputes the account view from its entries.
//
// Posting entries sum into Balance. Escrow entries only move funds between
// available and held: held = max(0, |holds| - |releases| - |completes|).
// Entries that are not APPROVED are ignored.
func Fold(key AccountKey, entries []*Entry) Balance {
	total := decimal.Zero
	holds := decimal.Zero
	closed := decimal.Zero
	var last *time.Time

	for _, e := range entries {
		if !e.Counts() {
			continue
		}
		switch e.Type.Class() {
		case shared.EntryClassPosting:
			total = total.Add(e.Amount)
		case shared.EntryClassEscrow:
			if e.Type == shared.EntryTypeWithdrawalHold {
				holds = holds.Add(e.Amount.Abs())
			} else {
				closed = closed.Add(e.Amount.Abs())
			}
		}
		if last == nil || e.CreatedAt.After(*last) {
			ts := e.CreatedAt
			last = &ts
		}
	}

	held := holds.Sub(closed)
	if held.IsNegative() {
		held = decimal.Zero
	}

	return Balance{
		UserID:           key.UserID,
		Currency:         key.Currency,
		Balance:          total,
		AvailableBalance: total.Sub(held),
		HeldBalance:      held,
		LastUpdated:      last,
	}
}

// OutstandingHold returns the amount still held under referenceID
func OutstandingHold(entries []*Entry, referenceID string) decimal.Decimal {
	held := decimal.Zero
	for _, e := range entries {
		if !e.Counts() || e.ReferenceID != referenceID {
			continue
		}
		switch {
		case e.Type == shared.EntryTypeWithdrawalHold:
			held = held.Add(e.Amount.Abs())
		case e.Type.ClosesHold():
			held = held.Sub(e.Amount.Abs())
		}
	}
	if held.IsNegative() {
		return decimal.Zero
	}
	return held
}
