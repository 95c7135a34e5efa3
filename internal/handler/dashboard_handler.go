package handler

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"

	"github.com/noah-isme/caselog-api/internal/models"
	"github.com/noah-isme/caselog-api/internal/service"
	appErrors "github.com/noah-isme/caselog-api/pkg/errors"
	"github.com/noah-isme/caselog-api/pkg/response"
)

// DashboardHandler exposes the admin dashboard. Every route runs behind the session
// gate, which mounts the caller's controller on the context.
type DashboardHandler struct {
	validate *validator.Validate
}

// NewDashboardHandler constructs a dashboard handler.
func NewDashboardHandler(validate *validator.Validate) *DashboardHandler {
	if validate == nil {
		validate = validator.New()
	}
	return &DashboardHandler{validate: validate}
}

// Get godoc
// @Summary Dashboard view
// @Description Filtered cases, metrics and selection. Query parameters replace the current criteria.
// @Tags Dashboard
// @Produce json
// @Security BearerAuth
// @Param X-Session-Token header string true "Session token"
// @Param X-Session-User header string true "Session username"
// @Param severity query string false "Severity (any accepted spelling)"
// @Param dateFrom query string false "Inclusive lower date bound (YYYY-MM-DD)"
// @Param dateTo query string false "Inclusive upper date bound (YYYY-MM-DD)"
// @Param rescuerName query string false "Rescuer name substring"
// @Param rescuerRank query string false "Exact rescuer rank"
// @Param trainer query string false "Exact trainer"
// @Param sortBy query string false "date or rescuerName"
// @Param sortDirection query string false "asc or desc"
// @Success 200 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Failure 401 {object} response.Envelope
// @Router /dashboard [get]
func (h *DashboardHandler) Get(c *gin.Context) {
	ctrl, ok := dashboardFromContext(c)
	if !ok {
		return
	}

	if len(c.Request.URL.Query()) > 0 {
		var criteria models.FilterCriteria
		if err := c.ShouldBindQuery(&criteria); err != nil {
			response.Error(c, validationError(err, "invalid filter criteria"))
			return
		}
		if err := h.validate.Struct(criteria); err != nil {
			response.Error(c, validationError(err, "invalid filter criteria"))
			return
		}
		if err := ctrl.SetCriteria(criteria); err != nil {
			h.fail(c, ctrl, err)
			return
		}
	}
	h.view(c, ctrl)
}

// Refresh godoc
// @Summary Refetch cases
// @Tags Dashboard
// @Produce json
// @Security BearerAuth
// @Success 200 {object} response.Envelope
// @Failure 502 {object} response.Envelope
// @Router /dashboard/refresh [post]
func (h *DashboardHandler) Refresh(c *gin.Context) {
	ctrl, ok := dashboardFromContext(c)
	if !ok {
		return
	}
	if err := ctrl.Refresh(c.Request.Context()); err != nil {
		h.fail(c, ctrl, err)
		return
	}
	h.view(c, ctrl)
}

// SelectAll godoc
// @Summary Toggle select-all
// @Tags Dashboard
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param payload body models.SelectAllRequest true "Select-all flag"
// @Success 200 {object} response.Envelope
// @Router /dashboard/selection [put]
func (h *DashboardHandler) SelectAll(c *gin.Context) {
	ctrl, ok := dashboardFromContext(c)
	if !ok {
		return
	}
	var req models.SelectAllRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, validationError(err, "invalid selection payload"))
		return
	}
	if err := h.validate.Struct(req); err != nil {
		response.Error(c, validationError(err, "invalid selection payload"))
		return
	}
	if err := ctrl.ToggleSelectAll(*req.All); err != nil {
		h.fail(c, ctrl, err)
		return
	}
	h.view(c, ctrl)
}

// Select godoc
// @Summary Select or deselect one case
// @Tags Dashboard
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path string true "Case identifier"
// @Param payload body models.SelectionRequest true "Selection flag"
// @Success 200 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /dashboard/selection/{id} [put]
func (h *DashboardHandler) Select(c *gin.Context) {
	ctrl, ok := dashboardFromContext(c)
	if !ok {
		return
	}
	var req models.SelectionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, validationError(err, "invalid selection payload"))
		return
	}
	if err := h.validate.Struct(req); err != nil {
		response.Error(c, validationError(err, "invalid selection payload"))
		return
	}
	if err := ctrl.SetSelected(c.Param("id"), *req.Selected); err != nil {
		h.fail(c, ctrl, err)
		return
	}
	h.view(c, ctrl)
}

// DeleteOne godoc
// @Summary Delete a case
// @Tags Dashboard
// @Produce json
// @Security BearerAuth
// @Param id path string true "Case identifier"
// @Success 200 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Failure 502 {object} response.Envelope
// @Router /dashboard/cases/{id} [delete]
func (h *DashboardHandler) DeleteOne(c *gin.Context) {
	ctrl, ok := dashboardFromContext(c)
	if !ok {
		return
	}
	if err := ctrl.DeleteOne(c.Request.Context(), c.Param("id")); err != nil {
		h.fail(c, ctrl, err)
		return
	}
	h.view(c, ctrl)
}

// DeleteSelected godoc
// @Summary Delete selected cases
// @Tags Dashboard
// @Produce json
// @Security BearerAuth
// @Success 200 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Failure 502 {object} response.Envelope
// @Router /dashboard/cases [delete]
func (h *DashboardHandler) DeleteSelected(c *gin.Context) {
	ctrl, ok := dashboardFromContext(c)
	if !ok {
		return
	}
	ids, err := ctrl.DeleteSelected(c.Request.Context())
	if err != nil {
		h.fail(c, ctrl, err)
		return
	}
	view := ctrl.View()
	view.Notices = ctrl.Notices()
	respond(c, http.StatusOK, gin.H{"deleted": ids, "view": view})
}

// Export godoc
// @Summary Export all cases
// @Description Refetches the full collection and returns a signed download link
// @Tags Dashboard
// @Produce json
// @Security BearerAuth
// @Param format query string false "xlsx (default), csv, or pdf when EXPORT_PDF_FONT is set"
// @Success 200 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Failure 502 {object} response.Envelope
// @Router /dashboard/export [post]
func (h *DashboardHandler) Export(c *gin.Context) {
	ctrl, ok := dashboardFromContext(c)
	if !ok {
		return
	}
	format := models.ExportFormat(strings.ToLower(c.DefaultQuery("format", string(models.ExportFormatXLSX))))
	switch format {
	case models.ExportFormatXLSX, models.ExportFormatCSV, models.ExportFormatPDF:
	default:
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "unsupported export format"))
		return
	}

	result, err := ctrl.Export(c.Request.Context(), format)
	if err != nil {
		h.fail(c, ctrl, err)
		return
	}
	respond(c, http.StatusOK, result)
}

func (h *DashboardHandler) view(c *gin.Context, ctrl *service.DashboardController) {
	view := ctrl.View()
	view.Notices = ctrl.Notices()
	respond(c, http.StatusOK, view)
}

func (h *DashboardHandler) fail(c *gin.Context, ctrl *service.DashboardController, err error) {
	meta := map[string]interface{}{}
	if notices := ctrl.Notices(); len(notices) > 0 {
		meta["notices"] = notices
	}
	response.Error(c, err, meta)
}
