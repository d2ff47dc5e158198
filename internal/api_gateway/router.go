package api_gateway

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/fundgate/ledger-core/internal/api_gateway/handler"
	"github.com/fundgate/ledger-core/internal/api_gateway/middleware"
	"github.com/fundgate/ledger-core/internal/config"
	"github.com/fundgate/ledger-core/internal/idempotency"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

type handlers struct {
	account *handler.AccountHandler
	funding *handler.FundingHandler
	admin   *handler.AdminHandler
}

// setupRouter configures API routes and middleware for the application
func setupRouter(
	logger *slog.Logger,
	r *gin.Engine,
	h handlers,
	guard *idempotency.Guard,
	adminCfg config.AdminConfig,
) {
	r.Use(middleware.CorrelationID())
	r.Use(middleware.Recovery(logger))
	r.Use(middleware.Logger(logger))
	r.Use(middleware.Metrics())

	// User endpoints, scoped to the X-User-ID caller
	v1 := r.Group("/api/v1", middleware.RequireUser())
	{
		idem := middleware.Idempotency(guard, true)

		v1.POST("/withdrawals", idem, h.funding.CreateWithdrawal)
		v1.POST("/deposits", idem, h.funding.CreateDeposit)
		v1.GET("/funding-requests/:id", h.funding.GetRequest)

		accounts := v1.Group("/accounts/:user_id")
		{
			accounts.GET("/balances/:currency", h.account.GetBalance)
			accounts.GET("/balances/:currency/entries", h.account.GetHistory)
		}
	}

	admin := r.Group("/api/v1/admin", middleware.RequireAdmin(logger, adminCfg))
	{
		idem := middleware.Idempotency(guard, true)

		admin.GET("/funding-requests", h.admin.ListRequests)
		admin.GET("/funding-requests/:id", h.funding.GetRequest)
		admin.POST("/funding-requests/:id/approve", idem, h.admin.Approve)
		admin.POST("/funding-requests/:id/reject", idem, h.admin.Reject)
		admin.POST("/withdrawals/bulk-approve", idem, h.admin.BulkApprove)
		admin.POST("/adjustments", idem, h.admin.Adjust)

		admin.GET("/accounts/:user_id/balances/:currency", h.account.GetBalance)
		admin.GET("/accounts/:user_id/balances/:currency/entries", h.account.GetHistory)
	}

	// Health check endpoint for monitoring
	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"status":               "ok",
			"timestamp":            time.Now().UTC(),
			"idempotency_backend":  guard.BackendName(),
			"idempotency_degraded": guard.Degraded(),
		})
	})

	r.GET("/metrics", gin.WrapH(promhttp.Handler()))
}
