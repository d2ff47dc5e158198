package accounting

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/fundgate/ledger-core/internal/config"
	"github.com/fundgate/ledger-core/internal/domain/funding"
	"github.com/fundgate/ledger-core/internal/domain/ledger"
	"github.com/fundgate/ledger-core/internal/domain/outbox"
	"github.com/fundgate/ledger-core/internal/domain/shared"
	"github.com/fundgate/ledger-core/internal/domain/uow"
	"github.com/fundgate/ledger-core/internal/logger"
	"github.com/fundgate/ledger-core/internal/platform/metrics"
	"github.com/fundgate/ledger-core/internal/platform/transfer"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Options tunes the withdrawal approval protocol
type Options struct {
	TransferTimeout time.Duration
	ClaimLease      time.Duration
	FinalizeRetries int
	RetryBackoff    time.Duration
}

// OptionsFromConfig maps the transfer configuration onto workflow options
func OptionsFromConfig(cfg config.TransferConfig) Options {
	return Options{
		TransferTimeout: cfg.Timeout,
		ClaimLease:      cfg.ClaimLease,
		FinalizeRetries: cfg.FinalizeRetries,
		RetryBackoff:    200 * time.Millisecond,
	}
}

// SubmitParams describes a new deposit or withdrawal request
type SubmitParams struct {
	// RequestID is optional; senders that may redeliver supply their own
	RequestID   uuid.UUID
	Key         ledger.AccountKey
	Amount      decimal.Decimal
	Destination string
	ActorID     string
}

// ApproveParams carries the reviewer's decision inputs
type ApproveParams struct {
	ActorID string
	// TxHash is an externally executed transfer; empty lets the workflow execute it
	TxHash string
	Fee    decimal.Decimal
}

// AdjustParams describes an administrative posting
type AdjustParams struct {
	Key ledger.AccountKey
	// Amount is a magnitude for CREDIT, REFUND, DEDUCTION and FEE, signed for ADJUSTMENT
	Amount      decimal.Decimal
	Type        shared.EntryType
	ReferenceID string
	ActorID     string
	Reason      string
}

// Workflow is the PENDING -> APPROVED | REJECTED state machine for funding requests
type Workflow struct {
	transactor uow.Transactor
	requests   funding.Repository
	store      *LedgerStore
	escrow     *EscrowManager
	transfers  transfer.Executor
	opts       Options
	logger     *slog.Logger
}

// NewWorkflow creates the approval workflow.
// requests serves reads outside an account unit of work.
func NewWorkflow(
	logger *slog.Logger,
	transactor uow.Transactor,
	requests funding.Repository,
	store *LedgerStore,
	escrow *EscrowManager,
	transfers transfer.Executor,
	opts Options,
) *Workflow {
	if opts.ClaimLease <= opts.TransferTimeout {
		opts.ClaimLease = opts.TransferTimeout + time.Minute
	}
	if opts.FinalizeRetries < 0 {
		opts.FinalizeRetries = 0
	}
	return &Workflow{
		transactor: transactor,
		requests:   requests,
		store:      store,
		escrow:     escrow,
		transfers:  transfers,
		opts:       opts,
		logger:     logger,
	}
}

// SubmitWithdrawal creates a PENDING withdrawal and holds its amount
func (w *Workflow) SubmitWithdrawal(ctx context.Context, p SubmitParams) (*funding.Request, error) {
	return w.submit(ctx, shared.RequestKindWithdrawal, p)
}

// SubmitDeposit creates a PENDING deposit. Nothing is held.
func (w *Workflow) SubmitDeposit(ctx context.Context, p SubmitParams) (*funding.Request, error) {
	return w.submit(ctx, shared.RequestKindDeposit, p)
}

func (w *Workflow) submit(ctx context.Context, kind shared.RequestKind, p SubmitParams) (*funding.Request, error) {
	log := logger.FromContext(ctx, w.logger)

	req, err := funding.NewRequest(p.RequestID, kind, p.Key, p.Amount, p.Destination)
	if err != nil {
		return nil, err
	}
	actor := p.ActorID
	if strings.TrimSpace(actor) == "" {
		actor = req.UserID
	}

	err = w.transactor.InAccount(ctx, req.Key(), func(ctx context.Context, scope uow.Scope) error {
		if err := scope.Requests.Create(ctx, req); err != nil {
			return err
		}

		var entryIDs []uuid.UUID
		if kind == shared.RequestKindWithdrawal {
			hold, err := w.escrow.HoldFundsInScope(ctx, scope, req.Key(), req.Amount, req.ReferenceID(), actor)
			if err != nil {
				return err
			}
			entryIDs = append(entryIDs, hold.ID)
		}

		return appendEvent(ctx, scope, req, shared.EventFundingRequestSubmitted, actor, entryIDs)
	})
	if err != nil {
		log.Warn("Funding request not submitted",
			"request_id", req.ID.String(),
			"kind", string(kind),
			"user_id", req.UserID,
			"currency", req.Currency,
			"error", err,
		)
		return nil, storageError("submit request", err)
	}

	log.Info("Funding request submitted",
		"request_id", req.ID.String(),
		"kind", string(kind),
		"user_id", req.UserID,
		"currency", req.Currency,
		"amount", req.Amount.String(),
	)
	return req, nil
}

// Approve dispatches on the request kind
func (w *Workflow) Approve(ctx context.Context, id uuid.UUID, p ApproveParams) (*funding.Request, error) {
	req, err := w.GetRequest(ctx, id)
	if err != nil {
		return nil, err
	}
	if req.Kind == shared.RequestKindDeposit {
		return w.approveDeposit(ctx, req, p)
	}
	return w.approveWithdrawal(ctx, req, p)
}

// ApproveDeposit credits a PENDING deposit
func (w *Workflow) ApproveDeposit(ctx context.Context, id uuid.UUID, p ApproveParams) (*funding.Request, error) {
	req, err := w.GetRequest(ctx, id)
	if err != nil {
		return nil, err
	}
	if req.Kind != shared.RequestKindDeposit {
		return nil, fmt.Errorf("%w: request %s is a %s", funding.ErrInvalidKind, id, req.Kind)
	}
	return w.approveDeposit(ctx, req, p)
}

// ApproveWithdrawal executes the transfer of a PENDING withdrawal and settles its hold.
//
// The request is claimed for the lease before the transfer so a concurrent
// approval or rejection cannot interleave. The transfer reference is stored
// before settlement; a later attempt that finds it never calls the gateway
// again, and settles with the fee recorded alongside it. On transfer failure
// the request stays PENDING.
func (w *Workflow) ApproveWithdrawal(ctx context.Context, id uuid.UUID, p ApproveParams) (*funding.Request, error) {
	req, err := w.GetRequest(ctx, id)
	if err != nil {
		return nil, err
	}
	if req.Kind != shared.RequestKindWithdrawal {
		return nil, fmt.Errorf("%w: request %s is a %s", funding.ErrInvalidKind, id, req.Kind)
	}
	return w.approveWithdrawal(ctx, req, p)
}

func (w *Workflow) approveWithdrawal(ctx context.Context, req *funding.Request, p ApproveParams) (result *funding.Request, err error) {
	log := logger.FromContext(ctx, w.logger).With("request_id", req.ID.String())
	defer func() { recordDecision(req.Kind, "approve", err) }()

	if err := validateApproval(req, p); err != nil {
		return nil, err
	}

	claimed, err := w.claim(ctx, req)
	if err != nil {
		return nil, err
	}

	txHash := claimed.TxHash
	if txHash != "" {
		if p.TxHash != "" && p.TxHash != txHash {
			log.Warn("Ignoring supplied tx_hash, a transfer is already recorded",
				"recorded_tx_hash", txHash,
				"supplied_tx_hash", p.TxHash,
			)
		}
		if !p.Fee.Equal(claimed.Fee) {
			log.Warn("Ignoring supplied fee, the recorded transfer was executed with another",
				"recorded_fee", claimed.Fee.String(),
				"supplied_fee", p.Fee.String(),
			)
		}
		p.Fee = claimed.Fee
	}

	if txHash == "" {
		txHash = strings.TrimSpace(p.TxHash)
		if txHash == "" {
			txHash, err = w.executeTransfer(ctx, claimed, p.Fee)
			if err != nil {
				w.releaseClaim(ctx, claimed)
				log.Error("Withdrawal left pending after transfer failure", "error", err)
				return nil, err
			}
		}

		if err := w.recordTransfer(ctx, claimed, txHash, p.Fee); err != nil {
			// Settlement below persists the reference too.
			log.Error("Failed to record transfer reference", "tx_hash", txHash, "error", err)
		}
	}

	approved, err := w.finalizeWithdrawal(ctx, claimed, p, txHash)
	if err != nil {
		w.releaseClaim(ctx, claimed)
		if errors.Is(err, shared.ErrInvalidStateTransition) {
			return nil, err
		}
		log.Error("Transfer executed but ledger settlement failed, request stays pending with its reference",
			"tx_hash", txHash,
			"error", err,
		)
		return nil, storageError("settle withdrawal", err)
	}

	log.Info("Withdrawal approved",
		"user_id", approved.UserID,
		"currency", approved.Currency,
		"amount", approved.Amount.String(),
		"fee", approved.Fee.String(),
		"tx_hash", approved.TxHash,
		"reviewed_by", approved.ReviewedBy,
	)
	return approved, nil
}

func validateApproval(req *funding.Request, p ApproveParams) error {
	if strings.TrimSpace(p.ActorID) == "" {
		return shared.ErrInvalidActor
	}
	if req.Status != shared.RequestStatusPending {
		return fmt.Errorf("%w: request %s is %s", shared.ErrInvalidStateTransition, req.ID, req.Status)
	}
	if p.Fee.IsNegative() || !shared.Representable(p.Fee) || (!p.Fee.IsZero() && p.Fee.GreaterThanOrEqual(req.Amount)) {
		return shared.ErrInvalidFee
	}
	return nil
}

func (w *Workflow) claim(ctx context.Context, req *funding.Request) (*funding.Request, error) {
	var claimed *funding.Request
	until := time.Now().UTC().Add(w.opts.ClaimLease)
	err := w.transactor.InAccount(ctx, req.Key(), func(ctx context.Context, scope uow.Scope) error {
		var err error
		claimed, err = scope.Requests.Claim(ctx, req.ID, until)
		return err
	})
	if err != nil {
		return nil, storageError("claim request", err)
	}
	return claimed, nil
}

func (w *Workflow) releaseClaim(ctx context.Context, req *funding.Request) {
	ctx = context.WithoutCancel(ctx)
	err := w.transactor.InAccount(ctx, req.Key(), func(ctx context.Context, scope uow.Scope) error {
		return scope.Requests.ReleaseClaim(ctx, req.ID)
	})
	if err != nil {
		w.logger.Error("Failed to release approval claim, it expires with its lease",
			"request_id", req.ID.String(),
			"error", err,
		)
	}
}

func (w *Workflow) recordTransfer(ctx context.Context, req *funding.Request, txHash string, fee decimal.Decimal) error {
	return w.transactor.InAccount(context.WithoutCancel(ctx), req.Key(), func(ctx context.Context, scope uow.Scope) error {
		return scope.Requests.RecordTransferReference(ctx, req.ID, txHash, fee)
	})
}

func (w *Workflow) executeTransfer(ctx context.Context, req *funding.Request, fee decimal.Decimal) (string, error) {
	tctx, cancel := context.WithTimeout(ctx, w.opts.TransferTimeout)
	defer cancel()

	ref, err := w.transfers.ExecuteTransfer(tctx, transfer.Order{
		RequestID:   req.ID,
		UserID:      req.UserID,
		Currency:    req.Currency,
		Amount:      req.Amount.Sub(fee),
		Destination: req.Destination,
	})
	if err != nil {
		if !errors.Is(err, shared.ErrExternalTransferFailure) {
			err = fmt.Errorf("%w: %w", shared.ErrExternalTransferFailure, err)
		}
		return "", err
	}
	return ref, nil
}

// finalizeWithdrawal settles the hold and transitions the request, retrying
// storage failures. The gateway is never called from here.
func (w *Workflow) finalizeWithdrawal(ctx context.Context, claimed *funding.Request, p ApproveParams, txHash string) (*funding.Request, error) {
	ctx = context.WithoutCancel(ctx)

	var approved *funding.Request
	var err error
	for attempt := 0; attempt <= w.opts.FinalizeRetries; attempt++ {
		if attempt > 0 {
			time.Sleep(w.opts.RetryBackoff * time.Duration(attempt))
		}

		approved, err = w.settleWithdrawal(ctx, claimed.ID, claimed.Key(), p, txHash)
		if err == nil {
			return approved, nil
		}
		if errors.Is(err, shared.ErrInvalidStateTransition) || errors.Is(err, shared.ErrHoldNotFound) {
			return nil, err
		}
		w.logger.Warn("Withdrawal settlement attempt failed",
			"request_id", claimed.ID.String(),
			"attempt", attempt+1,
			"error", err,
		)
	}
	return nil, err
}

func (w *Workflow) settleWithdrawal(ctx context.Context, id uuid.UUID, key ledger.AccountKey, p ApproveParams, txHash string) (*funding.Request, error) {
	var approved *funding.Request
	err := w.transactor.InAccount(ctx, key, func(ctx context.Context, scope uow.Scope) error {
		current, err := scope.Requests.GetByID(ctx, id)
		if err != nil {
			return err
		}
		if current.Status != shared.RequestStatusPending {
			return fmt.Errorf("%w: request %s is %s", shared.ErrInvalidStateTransition, id, current.Status)
		}

		ref := current.ReferenceID()
		complete, err := w.escrow.CompleteHoldInScope(ctx, scope, key, current.Amount, ref, p.ActorID)
		if err != nil {
			return err
		}
		entryIDs := []uuid.UUID{complete.ID}

		store := w.store.WithRepository(scope.Entries)
		debit, err := store.AddEntry(ctx, AddEntryParams{
			Key:         key,
			Amount:      current.Amount.Sub(p.Fee).Neg(),
			Type:        shared.EntryTypeWithdrawal,
			ReferenceID: ref,
			ActorID:     p.ActorID,
		})
		if err != nil {
			return err
		}
		entryIDs = append(entryIDs, debit.ID)

		if p.Fee.IsPositive() {
			fee, err := store.AddEntry(ctx, AddEntryParams{
				Key:         key,
				Amount:      p.Fee.Neg(),
				Type:        shared.EntryTypeFee,
				ReferenceID: ref,
				ActorID:     p.ActorID,
				Reason:      "withdrawal fee",
			})
			if err != nil {
				return err
			}
			entryIDs = append(entryIDs, fee.ID)
		}

		if err := current.Approve(p.ActorID, txHash, p.Fee); err != nil {
			return err
		}
		if err := scope.Requests.Transition(ctx, current); err != nil {
			return err
		}
		approved = current

		return appendEvent(ctx, scope, current, shared.EventFundingRequestApproved, p.ActorID, entryIDs)
	})
	if err != nil {
		return nil, err
	}
	return approved, nil
}

func (w *Workflow) approveDeposit(ctx context.Context, req *funding.Request, p ApproveParams) (result *funding.Request, err error) {
	log := logger.FromContext(ctx, w.logger).With("request_id", req.ID.String())
	defer func() { recordDecision(req.Kind, "approve", err) }()

	if err := validateApproval(req, p); err != nil {
		return nil, err
	}

	var approved *funding.Request
	err = w.transactor.InAccount(ctx, req.Key(), func(ctx context.Context, scope uow.Scope) error {
		current, err := scope.Requests.GetByID(ctx, req.ID)
		if err != nil {
			return err
		}
		if current.Status != shared.RequestStatusPending {
			return fmt.Errorf("%w: request %s is %s", shared.ErrInvalidStateTransition, req.ID, current.Status)
		}

		ref := current.ReferenceID()
		store := w.store.WithRepository(scope.Entries)
		credit, err := store.AddEntry(ctx, AddEntryParams{
			Key:         current.Key(),
			Amount:      current.Amount,
			Type:        shared.EntryTypeDeposit,
			ReferenceID: ref,
			ActorID:     p.ActorID,
		})
		if err != nil {
			return err
		}
		entryIDs := []uuid.UUID{credit.ID}

		if p.Fee.IsPositive() {
			fee, err := store.AddEntry(ctx, AddEntryParams{
				Key:         current.Key(),
				Amount:      p.Fee.Neg(),
				Type:        shared.EntryTypeFee,
				ReferenceID: ref,
				ActorID:     p.ActorID,
				Reason:      "deposit fee",
			})
			if err != nil {
				return err
			}
			entryIDs = append(entryIDs, fee.ID)
		}

		if err := current.Approve(p.ActorID, strings.TrimSpace(p.TxHash), p.Fee); err != nil {
			return err
		}
		if err := scope.Requests.Transition(ctx, current); err != nil {
			return err
		}
		approved = current

		return appendEvent(ctx, scope, current, shared.EventFundingRequestApproved, p.ActorID, entryIDs)
	})
	if err != nil {
		log.Warn("Deposit approval failed", "error", err)
		return nil, storageError("approve deposit", err)
	}

	log.Info("Deposit approved",
		"user_id", approved.UserID,
		"currency", approved.Currency,
		"amount", approved.Amount.String(),
		"reviewed_by", approved.ReviewedBy,
	)
	return approved, nil
}

// Reject closes a PENDING request. A withdrawal's outstanding hold is released in full.
// Withdrawals whose transfer was already executed or is being executed cannot be rejected.
func (w *Workflow) Reject(ctx context.Context, id uuid.UUID, actorID, reason string) (result *funding.Request, err error) {
	reason = strings.TrimSpace(reason)
	if reason == "" {
		return nil, shared.ErrReasonRequired
	}
	if strings.TrimSpace(actorID) == "" {
		return nil, shared.ErrInvalidActor
	}

	req, err := w.GetRequest(ctx, id)
	if err != nil {
		return nil, err
	}
	log := logger.FromContext(ctx, w.logger).With("request_id", id.String())
	defer func() { recordDecision(req.Kind, "reject", err) }()

	var rejected *funding.Request
	err = w.transactor.InAccount(ctx, req.Key(), func(ctx context.Context, scope uow.Scope) error {
		current, err := scope.Requests.GetByID(ctx, id)
		if err != nil {
			return err
		}
		if current.Status != shared.RequestStatusPending {
			return fmt.Errorf("%w: request %s is %s", shared.ErrInvalidStateTransition, id, current.Status)
		}
		if current.TxHash != "" {
			return fmt.Errorf("%w: transfer %s already executed", shared.ErrInvalidStateTransition, current.TxHash)
		}
		if current.ClaimLive(time.Now().UTC()) {
			return shared.ErrApprovalInProgress
		}

		var entryIDs []uuid.UUID
		if current.Kind == shared.RequestKindWithdrawal {
			store := w.store.WithRepository(scope.Entries)
			held, err := store.OutstandingHold(ctx, current.Key(), current.ReferenceID())
			if err != nil {
				return err
			}
			if held.IsPositive() {
				release, err := w.escrow.ReleaseFundsInScope(ctx, scope, current.Key(), held, current.ReferenceID(), actorID, reason)
				if err != nil {
					return err
				}
				entryIDs = append(entryIDs, release.ID)
			}
		}

		if err := current.Reject(actorID, reason); err != nil {
			return err
		}
		if err := scope.Requests.Transition(ctx, current); err != nil {
			return err
		}
		rejected = current

		return appendEvent(ctx, scope, current, shared.EventFundingRequestRejected, actorID, entryIDs)
	})
	if err != nil {
		log.Warn("Rejection failed", "error", err)
		return nil, storageError("reject request", err)
	}

	log.Info("Funding request rejected",
		"kind", string(rejected.Kind),
		"user_id", rejected.UserID,
		"currency", rejected.Currency,
		"reviewed_by", rejected.ReviewedBy,
	)
	return rejected, nil
}

// Adjust writes an administrative posting. Debits never take the available balance below zero.
func (w *Workflow) Adjust(ctx context.Context, p AdjustParams) (*ledger.Entry, ledger.Balance, error) {
	log := logger.FromContext(ctx, w.logger)

	amount, err := signedAdjustment(p.Type, p.Amount)
	if err != nil {
		return nil, ledger.Balance{}, err
	}
	reason := strings.TrimSpace(p.Reason)
	if reason == "" {
		return nil, ledger.Balance{}, shared.ErrReasonRequired
	}
	if err := p.Key.Validate(); err != nil {
		return nil, ledger.Balance{}, err
	}

	var entry *ledger.Entry
	var balance ledger.Balance
	err = w.transactor.InAccount(ctx, p.Key, func(ctx context.Context, scope uow.Scope) error {
		store := w.store.WithRepository(scope.Entries)

		before, err := store.ComputeBalance(ctx, p.Key)
		if err != nil {
			return err
		}
		if amount.IsNegative() && before.AvailableBalance.LessThan(amount.Abs()) {
			return fmt.Errorf("%w: available %s, requested %s",
				shared.ErrInsufficientFunds, before.AvailableBalance.String(), amount.Abs().String())
		}

		entry, err = store.AddEntry(ctx, AddEntryParams{
			Key:         p.Key,
			Amount:      amount,
			Type:        p.Type,
			ReferenceID: p.ReferenceID,
			ActorID:     p.ActorID,
			Reason:      reason,
		})
		if err != nil {
			return err
		}

		balance, err = store.ComputeBalance(ctx, p.Key)
		if err != nil {
			return err
		}

		msg, err := outbox.NewMessage(p.Key.String(), &outbox.Event{
			Type:      shared.EventLedgerAdjusted,
			UserID:    p.Key.UserID,
			Currency:  p.Key.Currency,
			Amount:    amount,
			EntryType: p.Type,
			ActorID:   p.ActorID,
			Reason:    reason,
			EntryIDs:  []uuid.UUID{entry.ID},
		})
		if err != nil {
			return fmt.Errorf("failed to build outbox message: %w", err)
		}
		return scope.Outbox.Create(ctx, msg)
	})
	if err != nil {
		log.Warn("Ledger adjustment failed",
			"user_id", p.Key.UserID,
			"currency", p.Key.Currency,
			"entry_type", string(p.Type),
			"error", err,
		)
		return nil, ledger.Balance{}, storageError("adjust ledger", err)
	}

	log.Info("Ledger adjusted",
		"entry_id", entry.ID.String(),
		"user_id", p.Key.UserID,
		"currency", p.Key.Currency,
		"entry_type", string(p.Type),
		"amount", amount.String(),
		"actor_id", p.ActorID,
	)
	return entry, balance, nil
}

func signedAdjustment(entryType shared.EntryType, amount decimal.Decimal) (decimal.Decimal, error) {
	if amount.IsZero() || !shared.Representable(amount) {
		return decimal.Zero, shared.ErrInvalidAmount
	}
	switch entryType {
	case shared.EntryTypeAdjustment:
		return amount, nil
	case shared.EntryTypeCredit, shared.EntryTypeRefund:
		if amount.IsNegative() {
			return decimal.Zero, shared.ErrInvalidAmount
		}
		return amount, nil
	case shared.EntryTypeDeduction, shared.EntryTypeFee:
		if amount.IsNegative() {
			return decimal.Zero, shared.ErrInvalidAmount
		}
		return amount.Neg(), nil
	default:
		// Deposits, withdrawals and escrow entries only come from the workflow.
		return decimal.Zero, fmt.Errorf("%w: %s cannot be posted as an adjustment", shared.ErrInvalidEntryType, entryType)
	}
}

// GetRequest loads a request by id
func (w *Workflow) GetRequest(ctx context.Context, id uuid.UUID) (*funding.Request, error) {
	req, err := w.requests.GetByID(ctx, id)
	if err != nil {
		return nil, storageError("get request", err)
	}
	return req, nil
}

// ListRequests lists requests matching filter
func (w *Workflow) ListRequests(ctx context.Context, filter funding.Filter) ([]*funding.Request, error) {
	reqs, err := w.requests.List(ctx, filter)
	if err != nil {
		return nil, storageError("list requests", err)
	}
	return reqs, nil
}

func appendEvent(ctx context.Context, scope uow.Scope, req *funding.Request, eventType shared.EventType, actorID string, entryIDs []uuid.UUID) error {
	msg, err := outbox.NewMessage(req.ID.String(), &outbox.Event{
		Type:      eventType,
		RequestID: req.ID,
		Kind:      req.Kind,
		UserID:    req.UserID,
		Currency:  req.Currency,
		Amount:    req.Amount,
		Fee:       req.Fee,
		Status:    req.Status,
		ActorID:   actorID,
		TxHash:    req.TxHash,
		Reason:    req.RejectionReason,
		EntryIDs:  entryIDs,
	})
	if err != nil {
		return fmt.Errorf("failed to build outbox message: %w", err)
	}
	return scope.Outbox.Create(ctx, msg)
}

func recordDecision(kind shared.RequestKind, decision string, err error) {
	metrics.FundingDecisions.WithLabelValues(string(kind), decision, outcomeLabel(err)).Inc()
}

func outcomeLabel(err error) string {
	switch {
	case err == nil:
		return "success"
	case errors.Is(err, shared.ErrInvalidStateTransition):
		return "invalid_state"
	case errors.Is(err, shared.ErrApprovalInProgress):
		return "in_progress"
	case errors.Is(err, shared.ErrExternalTransferFailure):
		return "transfer_failed"
	case errors.Is(err, shared.ErrInsufficientFunds):
		return "insufficient_funds"
	case errors.Is(err, shared.ErrStorage):
		return "storage_error"
	default:
		return "rejected"
	}
}
