package handlers

import (
	"net/http"

	"webui-dashboard-api/pkg/logger"
	"webui-dashboard-api/pkg/stats"
	"webui-dashboard-api/pkg/utils"
)

// SystemHandler serves the welcome and health endpoints.
type SystemHandler struct {
	stats *stats.Service
	log   *logger.Logger
}

func NewSystemHandler(svc *stats.Service, log *logger.Logger) *SystemHandler {
	return &SystemHandler{stats: svc, log: log}
}

// GET /
func (h *SystemHandler) Root(w http.ResponseWriter, r *http.Request) {
	utils.WriteSuccessResponse(w, map[string]string{
		"message": "Welcome to Open WebUI Dashboard API",
	})
}

// GET /health
func (h *SystemHandler) Health(w http.ResponseWriter, r *http.Request) {
	if err := h.stats.HealthCheck(r.Context()); err != nil {
		h.log.Error("health check failed", "error", err)
		utils.WriteInternalServerErrorResponse(w, "Database connection failed: "+err.Error())
		return
	}
	utils.WriteSuccessResponse(w, map[string]string{
		"status":   "ok",
		"database": "connected",
	})
}
