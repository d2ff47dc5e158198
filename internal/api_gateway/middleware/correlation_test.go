package middleware

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func correlationRouter(captured *string) *gin.Engine {
	router := gin.New()
	router.Use(CorrelationID())
	router.GET("/ping", func(c *gin.Context) {
		*captured = GetCorrelationID(c)
		c.Status(http.StatusNoContent)
	})
	return router
}

func TestCorrelationID(t *testing.T) {
	gin.SetMode(gin.TestMode)

	tests := []struct {
		name     string
		inbound  string
		wantKept bool
	}{
		{"Missing", "", false},
		{"UUID", uuid.NewString(), true},
		{"TraceToken", "req-42_a.b:c", true},
		{"TooLong", strings.Repeat("a", maxCorrelationIDLength+1), false},
		{"HeaderInjection", "abc def\nlevel=ERROR", false},
		{"NonASCII", "交易-1", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var captured string
			router := correlationRouter(&captured)

			req := httptest.NewRequest(http.MethodGet, "/ping", nil)
			if tt.inbound != "" {
				req.Header.Set(CorrelationIDHeader, tt.inbound)
			}
			rr := httptest.NewRecorder()
			router.ServeHTTP(rr, req)

			echoed := rr.Header().Get(CorrelationIDHeader)
			require.NotEmpty(t, echoed)
			assert.Equal(t, echoed, captured)

			if tt.wantKept {
				assert.Equal(t, tt.inbound, echoed)
				return
			}
			_, err := uuid.Parse(echoed)
			assert.NoError(t, err, "replacement id should be a UUID")
		})
	}
}

func TestGetCorrelationID_OutsideMiddleware(t *testing.T) {
	c, _ := gin.CreateTestContext(httptest.NewRecorder())
	assert.Empty(t, GetCorrelationID(c))
}
