package handlers

import (
	"net/http"

	"webui-dashboard-api/pkg/config"
	"webui-dashboard-api/pkg/middleware"
	"webui-dashboard-api/pkg/utils"
)

// AuthHandler 认证处理器
type AuthHandler struct {
	config *config.Config
}

func NewAuthHandler(cfg *config.Config) *AuthHandler {
	return &AuthHandler{config: cfg}
}

// MeResponse describes the current caller.
type MeResponse struct {
	User    string `json:"user"`
	IsAdmin bool   `json:"is_admin"`
}

// GET /api/auth/me
func (h *AuthHandler) Me(w http.ResponseWriter, r *http.Request) {
	identity, ok := middleware.IdentityFromContext(r.Context())
	if !ok {
		utils.WriteError(w, utils.Unauthorized("Authentication required"))
		return
	}
	utils.WriteSuccessResponse(w, MeResponse{
		User:    identity.Handle,
		IsAdmin: h.config.IsAdmin(identity.Handle),
	})
}
