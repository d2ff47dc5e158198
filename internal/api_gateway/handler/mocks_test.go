package handler

import (
	"context"
	"io"
	"log/slog"

	"github.com/fundgate/ledger-core/internal/accounting"
	"github.com/fundgate/ledger-core/internal/api_gateway/middleware"
	"github.com/fundgate/ledger-core/internal/api_gateway/service"
	"github.com/fundgate/ledger-core/internal/domain/funding"
	"github.com/fundgate/ledger-core/internal/domain/ledger"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stretchr/testify/mock"
)

type MockAccountService struct {
	mock.Mock
}

func (m *MockAccountService) GetBalance(ctx context.Context, userID, currency string) (ledger.Balance, error) {
	args := m.Called(ctx, userID, currency)
	return args.Get(0).(ledger.Balance), args.Error(1)
}

func (m *MockAccountService) GetHistory(ctx context.Context, userID, currency string, page, perPage int) ([]*ledger.Entry, int64, error) {
	args := m.Called(ctx, userID, currency, page, perPage)
	if args.Get(0) == nil {
		return nil, 0, args.Error(2)
	}
	return args.Get(0).([]*ledger.Entry), args.Get(1).(int64), args.Error(2)
}

type MockFundingService struct {
	mock.Mock
}

func (m *MockFundingService) Submit(ctx context.Context, in service.SubmitInput) (*funding.Request, error) {
	args := m.Called(ctx, in)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*funding.Request), args.Error(1)
}

func (m *MockFundingService) GetRequest(ctx context.Context, id uuid.UUID) (*funding.Request, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*funding.Request), args.Error(1)
}

func (m *MockFundingService) ListRequests(ctx context.Context, filter funding.Filter) ([]*funding.Request, error) {
	args := m.Called(ctx, filter)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*funding.Request), args.Error(1)
}

func (m *MockFundingService) Approve(ctx context.Context, id uuid.UUID, p accounting.ApproveParams) (*funding.Request, error) {
	args := m.Called(ctx, id, p)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*funding.Request), args.Error(1)
}

func (m *MockFundingService) Reject(ctx context.Context, id uuid.UUID, actorID, reason string) (*funding.Request, error) {
	args := m.Called(ctx, id, actorID, reason)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*funding.Request), args.Error(1)
}

func (m *MockFundingService) BulkApprove(ctx context.Context, ids []uuid.UUID, actorID string) []accounting.BulkResult {
	args := m.Called(ctx, ids, actorID)
	return args.Get(0).([]accounting.BulkResult)
}

func (m *MockFundingService) Adjust(ctx context.Context, in service.AdjustInput) (*ledger.Entry, ledger.Balance, error) {
	args := m.Called(ctx, in)
	if args.Get(0) == nil {
		return nil, ledger.Balance{}, args.Error(2)
	}
	return args.Get(0).(*ledger.Entry), args.Get(1).(ledger.Balance), args.Error(2)
}

func newTestLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// asUser stands in for RequireUser in handler tests
func asUser(userID string) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Set(middleware.UserIDKey, userID)
		c.Set(middleware.ActorIDKey, userID)
		c.Next()
	}
}

// asAdmin stands in for RequireAdmin in handler tests
func asAdmin(actorID string) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Set(middleware.ActorIDKey, actorID)
		c.Set(middleware.IsAdminKey, true)
		c.Next()
	}
}

func setupTestRouter(auth gin.HandlerFunc) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(auth)
	return r
}
