package handlers

import (
	"net/http"

	"webui-dashboard-api/pkg/logger"
	"webui-dashboard-api/pkg/stats"
	"webui-dashboard-api/pkg/utils"
)

// StatsHandler serves the /api/stats reports.
type StatsHandler struct {
	stats *stats.Service
	log   *logger.Logger
}

func NewStatsHandler(svc *stats.Service, log *logger.Logger) *StatsHandler {
	return &StatsHandler{stats: svc, log: log}
}

// GET /api/stats/overview
func (h *StatsHandler) Overview(w http.ResponseWriter, r *http.Request) {
	overview, err := h.stats.Overview(r.Context())
	if err != nil {
		writeError(w, h.log, err)
		return
	}
	utils.WriteSuccessResponse(w, overview)
}

// GET /api/stats/daily?from=YYYY-MM-DD&to=YYYY-MM-DD
func (h *StatsHandler) Daily(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	rows, err := h.stats.Daily(r.Context(), q.Get("from"), q.Get("to"))
	if err != nil {
		writeError(w, h.log, err)
		return
	}
	utils.WriteSuccessResponse(w, rows)
}

// GET /api/stats/models
func (h *StatsHandler) Models(w http.ResponseWriter, r *http.Request) {
	rows, err := h.stats.Models(r.Context())
	if err != nil {
		writeError(w, h.log, err)
		return
	}
	utils.WriteSuccessResponse(w, rows)
}

// GET /api/stats/workspace-ranking
func (h *StatsHandler) WorkspaceRanking(w http.ResponseWriter, r *http.Request) {
	rows, err := h.stats.WorkspaceRanking(r.Context())
	if err != nil {
		writeError(w, h.log, err)
		return
	}
	utils.WriteSuccessResponse(w, rows)
}

// GET /api/stats/developer-ranking
func (h *StatsHandler) DeveloperRanking(w http.ResponseWriter, r *http.Request) {
	rows, err := h.stats.DeveloperRanking(r.Context())
	if err != nil {
		writeError(w, h.log, err)
		return
	}
	utils.WriteSuccessResponse(w, rows)
}

// GET /api/stats/group-ranking?variant=total|split
func (h *StatsHandler) GroupRanking(w http.ResponseWriter, r *http.Request) {
	variant, err := stats.ParseGroupVariant(r.URL.Query().Get("variant"))
	if err != nil {
		writeError(w, h.log, err)
		return
	}
	rows, err := h.stats.GroupRanking(r.Context(), variant)
	if err != nil {
		writeError(w, h.log, err)
		return
	}
	utils.WriteSuccessResponse(w, rows)
}
