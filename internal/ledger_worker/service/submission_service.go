package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/fundgate/ledger-core/internal/accounting"
	"github.com/fundgate/ledger-core/internal/domain/funding"
	"github.com/fundgate/ledger-core/internal/domain/ledger"
	"github.com/fundgate/ledger-core/internal/domain/shared"
	"github.com/fundgate/ledger-core/internal/logger"
)

// ErrSubmissionRejected marks a submission that can never succeed as sent.
// The consumer parks it instead of retrying.
var ErrSubmissionRejected = errors.New("submission rejected")

type SubmissionServiceImpl struct {
	submitter Submitter
	logger    *slog.Logger
}

func NewSubmissionService(submitter Submitter, logger *slog.Logger) *SubmissionServiceImpl {
	return &SubmissionServiceImpl{
		submitter: submitter,
		logger:    logger,
	}
}

// ProcessSubmission creates the request. Redelivery of an already created request succeeds.
func (s *SubmissionServiceImpl) ProcessSubmission(ctx context.Context, msg *funding.SubmissionMessage) error {
	log := logger.FromContext(ctx, s.logger).With("request_id", msg.RequestID.String())

	if err := msg.Validate(); err != nil {
		return fmt.Errorf("%w: %w", ErrSubmissionRejected, err)
	}
	key, err := ledger.NewAccountKey(msg.UserID, msg.Currency)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrSubmissionRejected, err)
	}

	params := accounting.SubmitParams{
		RequestID:   msg.RequestID,
		Key:         key,
		Amount:      msg.Amount,
		Destination: msg.Destination,
	}

	switch msg.Kind {
	case shared.RequestKindWithdrawal:
		_, err = s.submitter.SubmitWithdrawal(ctx, params)
	default:
		_, err = s.submitter.SubmitDeposit(ctx, params)
	}

	switch {
	case err == nil:
		return nil
	case errors.Is(err, funding.ErrDuplicateRequest{}):
		log.Info("Submission already recorded, skipping")
		return nil
	case errors.Is(err, shared.ErrStorage), errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return err
	default:
		return fmt.Errorf("%w: %w", ErrSubmissionRejected, err)
	}
}

var _ SubmissionService = (*SubmissionServiceImpl)(nil)
