// Package memory provides process-local implementations of the ledger
// repositories and account transactor. They back the service tests and
// single-process deployments; nothing survives a restart.
package memory

import (
	"context"
	"sync"

	"github.com/fundgate/ledger-core/internal/domain/funding"
	"github.com/fundgate/ledger-core/internal/domain/ledger"
	"github.com/fundgate/ledger-core/internal/domain/outbox"
	"github.com/fundgate/ledger-core/internal/domain/shared"
	"github.com/fundgate/ledger-core/internal/domain/uow"
	"github.com/google/uuid"
)

// Store holds committed state shared by every repository it hands out
type Store struct {
	mu       sync.RWMutex
	entries  []*ledger.Entry
	entryIDs map[uuid.UUID]struct{}
	requests map[uuid.UUID]*funding.Request
	messages []*outbox.Message
	nextID   int64

	locksMu sync.Mutex
	locks   map[string]*sync.Mutex
}

// NewStore creates an empty store
func NewStore() *Store {
	return &Store{
		entryIDs: make(map[uuid.UUID]struct{}),
		requests: make(map[uuid.UUID]*funding.Request),
		locks:    make(map[string]*sync.Mutex),
	}
}

// Ledger returns a repository reading and writing committed state
func (s *Store) Ledger() *LedgerRepository { return &LedgerRepository{store: s} }

// Funding returns a repository reading and writing committed state
func (s *Store) Funding() *FundingRepository { return &FundingRepository{store: s} }

// Outbox returns a repository reading and writing committed state
func (s *Store) Outbox() *OutboxRepository { return &OutboxRepository{store: s} }

// Transactor returns the per-account unit of work over this store
func (s *Store) Transactor() *Transactor { return &Transactor{store: s} }

// Messages returns a snapshot of every outbox message
func (s *Store) Messages() []*outbox.Message {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]*outbox.Message, len(s.messages))
	for i, m := range s.messages {
		c := *m
		out[i] = &c
	}
	return out
}

func (s *Store) accountLock(key ledger.AccountKey) *sync.Mutex {
	s.locksMu.Lock()
	defer s.locksMu.Unlock()
	l, ok := s.locks[key.String()]
	if !ok {
		l = &sync.Mutex{}
		s.locks[key.String()] = l
	}
	return l
}

// stage buffers the writes of one unit of work until commit
type stage struct {
	entries  []*ledger.Entry
	requests map[uuid.UUID]*funding.Request
	// transitions must still find their row PENDING at commit
	transitions map[uuid.UUID]struct{}
	messages    []*outbox.Message
}

func newStage() *stage {
	return &stage{
		requests:    make(map[uuid.UUID]*funding.Request),
		transitions: make(map[uuid.UUID]struct{}),
	}
}

func (s *Store) commit(st *stage) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for id := range st.transitions {
		current, ok := s.requests[id]
		if !ok {
			return funding.ErrRequestNotFound{ID: id}
		}
		if current.Status != shared.RequestStatusPending {
			return shared.ErrInvalidStateTransition
		}
	}
	for _, e := range st.entries {
		if _, dup := s.entryIDs[e.ID]; dup {
			return ledger.ErrDuplicateEntry{ID: e.ID.String()}
		}
	}
	for id := range st.requests {
		if _, isTransition := st.transitions[id]; isTransition {
			continue
		}
		if _, exists := s.requests[id]; exists {
			return funding.ErrDuplicateRequest{ID: id}
		}
	}

	for _, e := range st.entries {
		s.entries = append(s.entries, e)
		s.entryIDs[e.ID] = struct{}{}
	}
	for id, req := range st.requests {
		s.requests[id] = req
	}
	for _, m := range st.messages {
		s.nextID++
		m.ID = s.nextID
		s.messages = append(s.messages, m)
	}
	return nil
}

// Transactor implements uow.Transactor with one mutex per account key
type Transactor struct {
	store *Store
}

// InAccount runs fn under the account's mutex and commits its staged writes when fn succeeds
func (t *Transactor) InAccount(ctx context.Context, key ledger.AccountKey, fn func(ctx context.Context, scope uow.Scope) error) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	lock := t.store.accountLock(key)
	lock.Lock()
	defer lock.Unlock()

	st := newStage()
	scope := uow.Scope{
		Entries:  &LedgerRepository{store: t.store, stage: st},
		Requests: &FundingRepository{store: t.store, stage: st},
		Outbox:   &OutboxRepository{store: t.store, stage: st},
	}
	if err := fn(ctx, scope); err != nil {
		return err
	}
	return t.store.commit(st)
}

var _ uow.Transactor = (*Transactor)(nil)
