package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/relocato/mailbridge/interfaces"
)

// HealthCheck provides a simple liveness endpoint
func HealthCheck(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status": "ok",
	})
}

// Status returns the probed health of the inbound and outbound mail
// paths. Probe failures are reported in the payload; the endpoint itself
// always answers 200.
func Status(healthService interfaces.HealthService) gin.HandlerFunc {
	return func(c *gin.Context) {
		status := healthService.Check(c.Request.Context())
		c.JSON(http.StatusOK, status)
	}
}
