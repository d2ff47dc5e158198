package memory

import (
	"context"

	"github.com/fundgate/ledger-core/internal/domain/ledger"
)

// LedgerRepository implements ledger.Repository in memory
type LedgerRepository struct {
	store *Store
	stage *stage
}

func (r *LedgerRepository) Append(ctx context.Context, entry *ledger.Entry) error {
	c := *entry
	if r.stage != nil {
		r.stage.entries = append(r.stage.entries, &c)
		return nil
	}

	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	if _, dup := r.store.entryIDs[c.ID]; dup {
		return ledger.ErrDuplicateEntry{ID: c.ID.String()}
	}
	r.store.entries = append(r.store.entries, &c)
	r.store.entryIDs[c.ID] = struct{}{}
	return nil
}

func (r *LedgerRepository) ListByAccount(ctx context.Context, key ledger.AccountKey) ([]*ledger.Entry, error) {
	return r.filter(func(e *ledger.Entry) bool { return e.Key() == key }), nil
}

func (r *LedgerRepository) ListByReference(ctx context.Context, key ledger.AccountKey, referenceID string) ([]*ledger.Entry, error) {
	return r.filter(func(e *ledger.Entry) bool {
		return e.Key() == key && e.ReferenceID == referenceID
	}), nil
}

func (r *LedgerRepository) ListHistory(ctx context.Context, key ledger.AccountKey, limit, offset int) ([]*ledger.Entry, error) {
	all := r.filter(func(e *ledger.Entry) bool { return e.Key() == key })
	// newest first, matching seq DESC
	reversed := make([]*ledger.Entry, 0, len(all))
	for i := len(all) - 1; i >= 0; i-- {
		reversed = append(reversed, all[i])
	}
	if offset >= len(reversed) {
		return nil, nil
	}
	end := len(reversed)
	if limit > 0 && offset+limit < end {
		end = offset + limit
	}
	return reversed[offset:end], nil
}

func (r *LedgerRepository) CountByAccount(ctx context.Context, key ledger.AccountKey) (int64, error) {
	return int64(len(r.filter(func(e *ledger.Entry) bool { return e.Key() == key }))), nil
}

// filter returns copies of committed entries followed by staged ones, in write order
func (r *LedgerRepository) filter(match func(*ledger.Entry) bool) []*ledger.Entry {
	r.store.mu.RLock()
	defer r.store.mu.RUnlock()

	var out []*ledger.Entry
	for _, e := range r.store.entries {
		if match(e) {
			c := *e
			out = append(out, &c)
		}
	}
	if r.stage != nil {
		for _, e := range r.stage.entries {
			if match(e) {
				c := *e
				out = append(out, &c)
			}
		}
	}
	return out
}

var _ ledger.Repository = (*LedgerRepository)(nil)
