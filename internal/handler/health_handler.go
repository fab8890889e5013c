package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// HealthHandler handles health check endpoints.
type HealthHandler struct {
	providers  []string
	ocrEnabled bool
	archive    bool
}

// NewHealthHandler creates a new HealthHandler reporting the configured
// generation providers.
func NewHealthHandler(providers []string, ocrEnabled, archive bool) *HealthHandler {
	return &HealthHandler{providers: providers, ocrEnabled: ocrEnabled, archive: archive}
}

// Liveness handles GET /healthz
// @Summary Liveness probe
// @Tags health
// @Produce json
// @Success 200 {object} map[string]string
// @Router /healthz [get]
func (h *HealthHandler) Liveness(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

// Readiness handles GET /readyz
// @Summary Readiness probe
// @Description Reports the configured generation providers
// @Tags health
// @Produce json
// @Success 200 {object} map[string]interface{}
// @Failure 503 {object} map[string]string
// @Router /readyz [get]
func (h *HealthHandler) Readiness(c *gin.Context) {
	if len(h.providers) == 0 {
		c.JSON(http.StatusServiceUnavailable, gin.H{"status": "unavailable", "error": "no generation provider configured"})
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"status":    "ok",
		"providers": h.providers,
		"ocr":       h.ocrEnabled,
		"archive":   h.archive,
	})
}
