package ratelimit

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
)

func TestNew_AllowsWithinLimitThenRejects(t *testing.T) {
	gin.SetMode(gin.TestMode)
	router := gin.New()
	router.Use(New(1, time.Minute))
	router.GET("/validate", func(c *gin.Context) { c.Status(http.StatusOK) })

	first := httptest.NewRecorder()
	req1 := httptest.NewRequest(http.MethodGet, "/validate", nil)
	router.ServeHTTP(first, req1)
	if first.Code != http.StatusOK {
		t.Fatalf("first request status = %d, want 200", first.Code)
	}

	second := httptest.NewRecorder()
	req2 := httptest.NewRequest(http.MethodGet, "/validate", nil)
	router.ServeHTTP(second, req2)
	if second.Code != http.StatusTooManyRequests {
		t.Fatalf("second request status = %d, want 429", second.Code)
	}
}
