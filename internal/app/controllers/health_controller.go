package controllers

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/yigit/coursereg/internal/app/models/dto"
)

// HealthController reports liveness and store connectivity
type HealthController struct {
	ping    func(ctx context.Context) error
	driver  string
	started time.Time
}

// NewHealthController creates a new HealthController. ping may be nil.
func NewHealthController(ping func(ctx context.Context) error, driver string) *HealthController {
	return &HealthController{ping: ping, driver: driver, started: time.Now()}
}

// HealthResponse is the health payload
type HealthResponse struct {
	Status string `json:"status" example:"ok"`
	Store  string `json:"store" example:"postgres"`
	Uptime string `json:"uptime" example:"1h2m3s"`
}

// Health checks the store
// @Summary Health check
// @Tags health
// @Produce json
// @Success 200 {object} dto.APIResponse{data=controllers.HealthResponse}
// @Failure 503 {object} dto.APIResponse{data=controllers.HealthResponse}
// @Router /health [get]
func (h *HealthController) Health(ctx *gin.Context) {
	resp := HealthResponse{Status: "ok", Store: h.driver, Uptime: time.Since(h.started).Round(time.Second).String()}
	status := http.StatusOK

	if h.ping != nil {
		pingCtx, cancel := context.WithTimeout(ctx.Request.Context(), 2*time.Second)
		defer cancel()
		if err := h.ping(pingCtx); err != nil {
			resp.Status = "degraded"
			status = http.StatusServiceUnavailable
		}
	}

	r := dto.NewSuccessResponse(resp)
	r.Success = status == http.StatusOK
	ctx.JSON(status, r)
}

// Ping answers a plain liveness probe
func (h *HealthController) Ping(ctx *gin.Context) {
	ctx.JSON(http.StatusOK, gin.H{"message": "pong"})
}
