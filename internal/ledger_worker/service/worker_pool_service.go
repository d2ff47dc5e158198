package service

import (
	"context"
	"log/slog"

	"github.com/fundgate/ledger-core/internal/config"
	"github.com/fundgate/ledger-core/internal/domain/funding"
	"github.com/panjf2000/ants/v2"
)

// WorkerPoolSubmissionService bounds how many submissions hit the database at once
type WorkerPoolSubmissionService struct {
	baseService SubmissionService
	pool        *ants.Pool
	logger      *slog.Logger
}

func NewWorkerPoolSubmissionService(
	baseService SubmissionService,
	cfg config.WorkerPoolConfig,
	logger *slog.Logger,
) (*WorkerPoolSubmissionService, error) {
	pool, err := ants.NewPool(cfg.Size)
	if err != nil {
		return nil, err
	}

	return &WorkerPoolSubmissionService{
		baseService: baseService,
		pool:        pool,
		logger:      logger,
	}, nil
}

// ProcessSubmission runs the submission on the pool and waits for its result
func (s *WorkerPoolSubmissionService) ProcessSubmission(ctx context.Context, msg *funding.SubmissionMessage) error {
	resultChan := make(chan error, 1)
	msgCopy := *msg

	err := s.pool.Submit(func() {
		resultChan <- s.baseService.ProcessSubmission(ctx, &msgCopy)
	})
	if err != nil {
		s.logger.Error("Failed to submit funding request to worker pool",
			"request_id", msg.RequestID.String(),
			"error", err,
		)
		return err
	}

	return <-resultChan
}

// Shutdown gracefully shuts down the worker pool.
func (s *WorkerPoolSubmissionService) Shutdown() {
	s.logger.Info("Shutting down worker pool", "running_workers", s.pool.Running())
	s.pool.Release()
}

// Running returns the number of running workers in the pool.
func (s *WorkerPoolSubmissionService) Running() int {
	return s.pool.Running()
}

// Capacity returns the capacity of the worker pool.
func (s *WorkerPoolSubmissionService) Capacity() int {
	return s.pool.Cap()
}
