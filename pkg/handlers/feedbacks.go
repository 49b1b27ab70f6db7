package handlers

import (
	"net/http"

	"webui-dashboard-api/pkg/logger"
	"webui-dashboard-api/pkg/stats"
	"webui-dashboard-api/pkg/utils"
)

// FeedbacksHandler serves feedback reports.
type FeedbacksHandler struct {
	stats *stats.Service
	log   *logger.Logger
}

func NewFeedbacksHandler(svc *stats.Service, log *logger.Logger) *FeedbacksHandler {
	return &FeedbacksHandler{stats: svc, log: log}
}

// GET /api/feedbacks/summary
func (h *FeedbacksHandler) Summary(w http.ResponseWriter, r *http.Request) {
	summary, err := h.stats.FeedbackSummary(r.Context())
	if err != nil {
		writeError(w, h.log, err)
		return
	}
	utils.WriteSuccessResponse(w, summary)
}
