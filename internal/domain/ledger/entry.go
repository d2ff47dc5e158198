package ledger

import (
	"strings"
	"time"

	"github.com/fundgate/ledger-core/internal/domain/shared"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// AccountKey identifies a derived account: one user in one currency
type AccountKey struct {
	UserID   string `json:"user_id"`
	Currency string `json:"currency"`
}

// NewAccountKey normalises and validates an account key
func NewAccountKey(userID, currency string) (AccountKey, error) {
	key := AccountKey{
		UserID:   strings.TrimSpace(userID),
		Currency: strings.ToUpper(strings.TrimSpace(currency)),
	}
	if err := key.Validate(); err != nil {
		return AccountKey{}, err
	}
	return key, nil
}

// Validate checks the key is usable for reads and writes
func (k AccountKey) Validate() error {
	if k.UserID == "" {
		return shared.ErrInvalidUserID
	}
	if len(k.Currency) < 3 || len(k.Currency) > 10 {
		return shared.ErrInvalidCurrency
	}
	return nil
}

// String is the serialisation key used for locking
func (k AccountKey) String() string {
	return k.UserID + "|" + k.Currency
}

// Entry is one immutable, signed ledger record. Entries are never updated or deleted.
type Entry struct {
	ID          uuid.UUID          `json:"id"`
	UserID      string             `json:"user_id"`
	Currency    string             `json:"currency"`
	Amount      decimal.Decimal    `json:"amount"`
	Type        shared.EntryType   `json:"type"`
	Status      shared.EntryStatus `json:"status"`
	ReferenceID string             `json:"reference_id,omitempty"`
	ActorID     string             `json:"actor_id"`
	Reason      string             `json:"reason,omitempty"`
	CreatedAt   time.Time          `json:"created_at"`
}

// NewEntry builds an APPROVED entry with a fresh id and timestamp.
// No sufficiency check is made here.
func NewEntry(key AccountKey, amount decimal.Decimal, entryType shared.EntryType, referenceID, actorID, reason string) (*Entry, error) {
	if err := key.Validate(); err != nil {
		return nil, err
	}
	if !entryType.Valid() {
		return nil, shared.ErrInvalidEntryType
	}
	if amount.IsZero() || !shared.Representable(amount) {
		return nil, shared.ErrInvalidAmount
	}
	if strings.TrimSpace(actorID) == "" {
		return nil, shared.ErrInvalidActor
	}

	return &Entry{
		ID:          uuid.New(),
		UserID:      key.UserID,
		Currency:    key.Currency,
		Amount:      amount,
		Type:        entryType,
		Status:      shared.EntryStatusApproved,
		ReferenceID: referenceID,
		ActorID:     actorID,
		Reason:      reason,
		CreatedAt:   time.Now().UTC(),
	}, nil
}

// Key returns the account the entry belongs to
func (e *Entry) Key() AccountKey {
	return AccountKey{UserID: e.UserID, Currency: e.Currency}
}

// Counts reports whether the entry participates in balance computation
func (e *Entry) Counts() bool {
	return e.Status == shared.EntryStatusApproved
}
