package handlers

import (
	"errors"
	"net/http"

	"webui-dashboard-api/pkg/database"
	"webui-dashboard-api/pkg/logger"
	"webui-dashboard-api/pkg/stats"
	"webui-dashboard-api/pkg/utils"
)

// writeError maps service and store errors onto the HTTP error taxonomy.
func writeError(w http.ResponseWriter, log *logger.Logger, err error) {
	var apiErr *utils.APIError
	switch {
	case errors.As(err, &apiErr):
		utils.WriteError(w, apiErr)
	case errors.Is(err, stats.ErrInvalidParameter):
		utils.WriteError(w, utils.BadRequest(err.Error()))
	case errors.Is(err, database.ErrNotFound):
		utils.WriteError(w, utils.NotFound("Package not found"))
	case errors.Is(err, database.ErrDuplicate):
		utils.WriteError(w, utils.Conflict("Package already exists"))
	default:
		log.Error("request failed", "error", err)
		utils.WriteError(w, utils.Internal(err))
	}
}
