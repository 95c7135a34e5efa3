package handler

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/caselog-api/internal/models"
	"github.com/noah-isme/caselog-api/pkg/response"
)

type caseSubmitter interface {
	Submit(ctx context.Context, form models.CaseForm) (*models.CaseRecord, error)
}

type caseReader interface {
	Get(ctx context.Context, id string) (*models.CaseRecord, error)
}

// CaseHandler serves the public submission form and single-case lookups.
type CaseHandler struct {
	forms caseSubmitter
	cases caseReader
}

// NewCaseHandler constructs a CaseHandler.
func NewCaseHandler(forms caseSubmitter, cases caseReader) *CaseHandler {
	return &CaseHandler{forms: forms, cases: cases}
}

// Reference godoc
// @Summary Form reference data
// @Description Ranks, trainer roster and severities accepted by the submission form
// @Tags Cases
// @Produce json
// @Success 200 {object} response.Envelope
// @Router /reference [get]
func (h *CaseHandler) Reference(c *gin.Context) {
	response.JSON(c, http.StatusOK, models.ReferenceData{
		Ranks:      models.Ranks,
		Trainers:   models.Trainers,
		Severities: []models.Severity{models.SeverityRed, models.SeverityYellow},
	})
}

// Submit godoc
// @Summary Submit a case
// @Tags Cases
// @Accept json
// @Produce json
// @Param payload body models.CaseForm true "Case form"
// @Success 201 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Failure 502 {object} response.Envelope
// @Router /cases [post]
func (h *CaseHandler) Submit(c *gin.Context) {
	var form models.CaseForm
	if err := c.ShouldBindJSON(&form); err != nil {
		response.Error(c, validationError(err, "يرجى ملء جميع الحقول"))
		return
	}

	record, err := h.forms.Submit(c.Request.Context(), form)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, record)
}

// Get godoc
// @Summary Get a case
// @Tags Cases
// @Produce json
// @Security BearerAuth
// @Param id path string true "Case identifier"
// @Success 200 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /cases/{id} [get]
func (h *CaseHandler) Get(c *gin.Context) {
	record, err := h.cases.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, record)
}
