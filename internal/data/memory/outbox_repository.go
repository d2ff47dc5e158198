package memory

import (
	"context"

	"github.com/fundgate/ledger-core/internal/domain/outbox"
	"github.com/fundgate/ledger-core/internal/domain/shared"
)

// OutboxRepository implements outbox.Repository in memory
type OutboxRepository struct {
	store *Store
	stage *stage
}

func (r *OutboxRepository) Create(ctx context.Context, message *outbox.Message) error {
	c := *message
	if r.stage != nil {
		r.stage.messages = append(r.stage.messages, &c)
		return nil
	}

	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	r.store.nextID++
	c.ID = r.store.nextID
	message.ID = c.ID
	r.store.messages = append(r.store.messages, &c)
	return nil
}

func (r *OutboxRepository) GetPending(ctx context.Context, limit int) ([]*outbox.Message, error) {
	r.store.mu.RLock()
	defer r.store.mu.RUnlock()

	var out []*outbox.Message
	for _, m := range r.store.messages {
		if m.Status != shared.OutboxStatusPending {
			continue
		}
		c := *m
		out = append(out, &c)
		if limit > 0 && len(out) == limit {
			break
		}
	}
	return out, nil
}

func (r *OutboxRepository) UpdateStatus(ctx context.Context, id int64, status shared.OutboxStatus) error {
	return r.update(id, func(m *outbox.Message) {
		m.Status = status
	})
}

func (r *OutboxRepository) IncrementAttempts(ctx context.Context, id int64) error {
	return r.update(id, func(m *outbox.Message) {
		m.IncrementAttempts()
	})
}

func (r *OutboxRepository) update(id int64, fn func(*outbox.Message)) error {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	for _, m := range r.store.messages {
		if m.ID == id {
			fn(m)
			return nil
		}
	}
	return outbox.ErrMessageNotFound{ID: id}
}

var _ outbox.Repository = (*OutboxRepository)(nil)
