package handlers

import (
	"net/http"

	"webui-dashboard-api/pkg/logger"
	"webui-dashboard-api/pkg/stats"
	"webui-dashboard-api/pkg/utils"
)

// ChatsHandler serves chat listings.
type ChatsHandler struct {
	stats *stats.Service
	log   *logger.Logger
}

func NewChatsHandler(svc *stats.Service, log *logger.Logger) *ChatsHandler {
	return &ChatsHandler{stats: svc, log: log}
}

// GET /api/chats/recent?limit=
func (h *ChatsHandler) Recent(w http.ResponseWriter, r *http.Request) {
	limit, err := stats.ParseLimit(r.URL.Query().Get("limit"))
	if err != nil {
		writeError(w, h.log, err)
		return
	}
	chats, err := h.stats.RecentChats(r.Context(), limit)
	if err != nil {
		writeError(w, h.log, err)
		return
	}
	utils.WriteSuccessResponse(w, chats)
}
