package service

import (
	"context"

	"github.com/fundgate/ledger-core/internal/accounting"
	"github.com/fundgate/ledger-core/internal/domain/funding"
)

// SubmissionService turns a submission message into a PENDING funding request
type SubmissionService interface {
	ProcessSubmission(ctx context.Context, msg *funding.SubmissionMessage) error
}

// Submitter creates funding requests
type Submitter interface {
	SubmitWithdrawal(ctx context.Context, p accounting.SubmitParams) (*funding.Request, error)
	SubmitDeposit(ctx context.Context, p accounting.SubmitParams) (*funding.Request, error)
}
