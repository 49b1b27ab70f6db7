package handlers

import (
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"webui-dashboard-api/pkg/config"
	"webui-dashboard-api/pkg/database"
	"webui-dashboard-api/pkg/logger"
	"webui-dashboard-api/pkg/middleware"
	"webui-dashboard-api/pkg/models"
	"webui-dashboard-api/pkg/utils"

	chiRoute "github.com/go-chi/chi/v5"
)

// PackagesHandler manages requests for packages to be installed on the
// shared runtime.
type PackagesHandler struct {
	config *config.Config
	db     database.DatabaseInterface
	log    *logger.Logger
}

func NewPackagesHandler(cfg *config.Config, db database.DatabaseInterface, log *logger.Logger) *PackagesHandler {
	return &PackagesHandler{config: cfg, db: db, log: log}
}

// GET /api/packages
func (h *PackagesHandler) List(w http.ResponseWriter, r *http.Request) {
	list, err := h.db.ListPackages(r.Context())
	if err != nil {
		writeError(w, h.log, err)
		return
	}
	if list == nil {
		list = []models.PackageRequest{}
	}
	utils.WriteSuccessResponse(w, list)
}

// POST /api/packages
func (h *PackagesHandler) Create(w http.ResponseWriter, r *http.Request) {
	identity, ok := middleware.IdentityFromContext(r.Context())
	if !ok {
		utils.WriteError(w, utils.Unauthorized("Authentication required"))
		return
	}

	var req models.CreatePackageRequest
	if err := utils.ParseJSONBody(r, &req); err != nil {
		utils.WriteError(w, utils.BadRequest("Invalid request body: "+err.Error()))
		return
	}
	req.PackageName = utils.NormalizePackageName(req.PackageName)
	if err := utils.ValidateStruct(req); err != nil {
		utils.WriteError(w, err)
		return
	}

	pkg := &models.PackageRequest{
		PackageName: req.PackageName,
		AddedBy:     identity.Handle,
		Status:      models.PackagePending,
	}
	if err := h.db.CreatePackage(r.Context(), pkg); err != nil {
		writeError(w, h.log, err)
		return
	}
	h.log.Info("package requested", "package", pkg.PackageName, "user", identity.Handle, "id", pkg.ID)
	utils.WriteCreatedResponse(w, pkg)
}

// DELETE /api/packages/{id}
func (h *PackagesHandler) Delete(w http.ResponseWriter, r *http.Request) {
	identity, ok := middleware.IdentityFromContext(r.Context())
	if !ok {
		utils.WriteError(w, utils.Unauthorized("Authentication required"))
		return
	}
	id, err := packageID(r)
	if err != nil {
		utils.WriteError(w, err)
		return
	}

	isAdmin := h.config.IsAdmin(identity.Handle)
	err = h.db.DeletePackage(r.Context(), id, func(pkg *models.PackageRequest) error {
		if isAdmin || strings.EqualFold(pkg.AddedBy, identity.Handle) {
			return nil
		}
		return utils.Forbidden("Only the requester or an admin can delete this package")
	})
	if err != nil {
		writeError(w, h.log, err)
		return
	}
	h.log.Info("package deleted", "id", id, "user", identity.Handle)
	utils.WriteOKResponse(w)
}

// PATCH /api/packages/{id}/status
func (h *PackagesHandler) UpdateStatus(w http.ResponseWriter, r *http.Request) {
	identity, ok := middleware.IdentityFromContext(r.Context())
	if !ok {
		utils.WriteError(w, utils.Unauthorized("Authentication required"))
		return
	}
	id, err := packageID(r)
	if err != nil {
		utils.WriteError(w, err)
		return
	}
	if !h.config.IsAdmin(identity.Handle) {
		utils.WriteError(w, utils.Forbidden("Only admins can change package status"))
		return
	}

	var req models.UpdatePackageStatusRequest
	if err := utils.ReadJSON(r, &req); err != nil {
		utils.WriteError(w, err)
		return
	}

	update := models.PackageStatusUpdate{
		Status:    req.Status,
		Note:      req.StatusNote,
		UpdatedBy: identity.Handle,
	}
	if err := h.db.UpdatePackageStatus(r.Context(), id, update); err != nil {
		writeError(w, h.log, err)
		return
	}
	h.log.Info("package status updated", "id", id, "status", req.Status, "user", identity.Handle)
	utils.WriteOKResponse(w)
}

func packageID(r *http.Request) (int64, error) {
	raw := chiRoute.URLParam(r, "id")
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return 0, utils.BadRequest(fmt.Sprintf("Invalid package id %q", raw))
	}
	return id, nil
}
