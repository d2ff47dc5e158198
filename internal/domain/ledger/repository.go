package ledger

import (
	"context"
)

// Repository is the append-only entry log
type Repository interface {
	// Append writes a new entry. There is no update or delete.
	Append(ctx context.Context, entry *Entry) error
	// ListByAccount returns every entry of the account in write order
	ListByAccount(ctx context.Context, key AccountKey) ([]*Entry, error)
	ListByReference(ctx context.Context, key AccountKey, referenceID string) ([]*Entry, error)
	// ListHistory pages through the account newest first
	ListHistory(ctx context.Context, key AccountKey, limit, offset int) ([]*Entry, error)
	CountByAccount(ctx context.Context, key AccountKey) (int64, error)
}

// ErrDuplicateEntry indicates an entry id collision
type ErrDuplicateEntry struct {
	ID string
}

func (e ErrDuplicateEntry) Error() string {
	return "duplicate ledger entry: " + e.ID
}

// Is implements the errors.Is interface for ErrDuplicateEntry
func (e ErrDuplicateEntry) Is(target error) bool {
	t, ok := target.(ErrDuplicateEntry)
	if !ok {
		return false
	}
	if t.ID == "" {
		return true
	}
	return e.ID == t.ID
}
