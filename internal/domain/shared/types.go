package shared

import "strings"

// EntryType is the closed vocabulary of ledger entry types. Values are stable:
// new types may be appended but existing ones never change meaning.
type EntryType string

const (
	EntryTypeDeposit            EntryType = "DEPOSIT"
	EntryTypeWithdrawal         EntryType = "WITHDRAWAL"
	EntryTypeWithdrawalHold     EntryType = "WITHDRAWAL_HOLD"
	EntryTypeWithdrawalRelease  EntryType = "WITHDRAWAL_RELEASE"
	EntryTypeWithdrawalComplete EntryType = "WITHDRAWAL_COMPLETE"
	EntryTypeFee                EntryType = "FEE"
	EntryTypeAdjustment         EntryType = "ADJUSTMENT"
	EntryTypeCredit             EntryType = "CREDIT"
	EntryTypeDeduction          EntryType = "DEDUCTION"
	EntryTypeRefund             EntryType = "REFUND"
)

// AllEntryTypes returns every known entry type in declaration order
func AllEntryTypes() []EntryType {
	return []EntryType{
		EntryTypeDeposit,
		EntryTypeWithdrawal,
		EntryTypeWithdrawalHold,
		EntryTypeWithdrawalRelease,
		EntryTypeWithdrawalComplete,
		EntryTypeFee,
		EntryTypeAdjustment,
		EntryTypeCredit,
		EntryTypeDeduction,
		EntryTypeRefund,
	}
}

// EntryClass groups entry types by how they affect the derived account view
type EntryClass int

const (
	EntryClassUnknown EntryClass = iota
	// EntryClassPosting entries change the account balance.
	EntryClassPosting
	// EntryClassEscrow entries move funds between available and held.
	EntryClassEscrow
)

// Class reports how t participates in balance computation.
// Every EntryType must have a case here.
func (t EntryType) Class() EntryClass {
	switch t {
	case EntryTypeDeposit,
		EntryTypeWithdrawal,
		EntryTypeFee,
		EntryTypeAdjustment,
		EntryTypeCredit,
		EntryTypeDeduction,
		EntryTypeRefund:
		return EntryClassPosting
	case EntryTypeWithdrawalHold,
		EntryTypeWithdrawalRelease,
		EntryTypeWithdrawalComplete:
		return EntryClassEscrow
	default:
		return EntryClassUnknown
	}
}

// Valid reports whether t belongs to the closed vocabulary
func (t EntryType) Valid() bool {
	return t.Class() != EntryClassUnknown
}

// ClosesHold reports whether t closes an outstanding WITHDRAWAL_HOLD
func (t EntryType) ClosesHold() bool {
	return t == EntryTypeWithdrawalRelease || t == EntryTypeWithdrawalComplete
}

// ParseEntryType converts an external string into an EntryType
func ParseEntryType(s string) (EntryType, error) {
	t := EntryType(strings.ToUpper(strings.TrimSpace(s)))
	if !t.Valid() {
		return "", ErrInvalidEntryType
	}
	return t, nil
}

// EntryStatus defines whether an entry counts toward balances.
// Only APPROVED entries are written today; PENDING and VOID are reserved.
type EntryStatus string

const (
	EntryStatusApproved EntryStatus = "APPROVED"
	EntryStatusPending  EntryStatus = "PENDING"
	EntryStatusVoid     EntryStatus = "VOID"
)

// RequestKind distinguishes deposit and withdrawal requests
type RequestKind string

const (
	RequestKindDeposit    RequestKind = "DEPOSIT"
	RequestKindWithdrawal RequestKind = "WITHDRAWAL"
)

// Valid reports whether k is a known request kind
func (k RequestKind) Valid() bool {
	switch k {
	case RequestKindDeposit, RequestKindWithdrawal:
		return true
	default:
		return false
	}
}

// RequestStatus defines approval workflow states
type RequestStatus string

const (
	RequestStatusPending  RequestStatus = "PENDING"
	RequestStatusApproved RequestStatus = "APPROVED"
	RequestStatusRejected RequestStatus = "REJECTED"
)

// Terminal reports whether no further transition is allowed from s
func (s RequestStatus) Terminal() bool {
	switch s {
	case RequestStatusApproved, RequestStatusRejected:
		return true
	default:
		return false
	}
}

// Valid reports whether s is a known request status
func (s RequestStatus) Valid() bool {
	switch s {
	case RequestStatusPending, RequestStatusApproved, RequestStatusRejected:
		return true
	default:
		return false
	}
}

// OutboxStatus defines message publishing states
type OutboxStatus string

const (
	OutboxStatusPending         OutboxStatus = "PENDING"
	OutboxStatusProcessed       OutboxStatus = "PROCESSED"
	OutboxStatusFailedToPublish OutboxStatus = "FAILED_TO_PUBLISH"
)

// EventType names the funding events emitted through the outbox
type EventType string

const (
	EventFundingRequestSubmitted EventType = "FUNDING_REQUEST_SUBMITTED"
	EventFundingRequestApproved  EventType = "FUNDING_REQUEST_APPROVED"
	EventFundingRequestRejected  EventType = "FUNDING_REQUEST_REJECTED"
	EventLedgerAdjusted          EventType = "LEDGER_ADJUSTED"
)
