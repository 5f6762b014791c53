package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/semre57/sengchain/internal/health"
)

// Healthz reports liveness. The latest integrity report is attached but
// never changes the status code.
func Healthz(checker *health.Checker) gin.HandlerFunc {
	return func(c *gin.Context) {
		body := gin.H{"status": "ok"}
		if checker != nil {
			body["ledger"] = checker.Last()
		}
		c.JSON(http.StatusOK, body)
	}
}

// Readyz returns 503 while the last integrity check failed.
func Readyz(checker *health.Checker) gin.HandlerFunc {
	return func(c *gin.Context) {
		if checker == nil {
			c.JSON(http.StatusOK, gin.H{"status": "ready"})
			return
		}
		rep := checker.Last()
		if rep.Status == health.StatusDegraded {
			c.JSON(http.StatusServiceUnavailable, gin.H{"status": "degraded", "ledger": rep})
			return
		}
		c.JSON(http.StatusOK, gin.H{"status": "ready", "ledger": rep})
	}
}
