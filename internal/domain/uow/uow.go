// Package uow defines the per-account unit of work used by every balance
// mutation. Reads made through a Scope observe the writes staged in it, and
// no other Scope for the same account runs until it commits or rolls back.
package uow

import (
	"context"

	"github.com/fundgate/ledger-core/internal/domain/funding"
	"github.com/fundgate/ledger-core/internal/domain/ledger"
	"github.com/fundgate/ledger-core/internal/domain/outbox"
)

// Scope exposes repositories bound to one account transaction
type Scope struct {
	Entries  ledger.Repository
	Requests funding.Repository
	Outbox   outbox.Repository
}

// Transactor serialises work per account key.
// fn's writes commit together when it returns nil and are discarded otherwise.
type Transactor interface {
	InAccount(ctx context.Context, key ledger.AccountKey, fn func(ctx context.Context, scope Scope) error) error
}
