package handler

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
	"github.com/stemsi/formbank-backend/internal/codec"
	"github.com/stemsi/formbank-backend/internal/middleware"
	"github.com/stemsi/formbank-backend/internal/model"
	"github.com/stemsi/formbank-backend/internal/response"
	"github.com/stemsi/formbank-backend/internal/service"
	"github.com/stemsi/formbank-backend/internal/validator"
)

const xlsxContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

// FormHandler handles question bank (form) endpoints.
type FormHandler struct {
	bankService   *service.BankService
	exportService *service.ExportService
	spreadsheet   *service.SpreadsheetExporter
	log           zerolog.Logger
}

// NewFormHandler creates a new FormHandler.
func NewFormHandler(
	bankService *service.BankService,
	exportService *service.ExportService,
	spreadsheet *service.SpreadsheetExporter,
	log zerolog.Logger,
) *FormHandler {
	return &FormHandler{
		bankService:   bankService,
		exportService: exportService,
		spreadsheet:   spreadsheet,
		log:           log.With().Str("component", "form_handler").Logger(),
	}
}

// ListForms godoc
// GET /api/forms?status=draft|published
// Lists bank summaries, most recently updated first.
func (h *FormHandler) ListForms(c *gin.Context) {
	status := model.BankStatus(c.Query("status"))
	if status != "" && status != model.BankStatusDraft && status != model.BankStatusPublished {
		response.FailWithFields(c, http.StatusBadRequest, response.ErrValidation, []response.FieldError{
			{Field: "status", Message: "status must be one of [draft published]"},
		})
		return
	}

	forms, err := h.bankService.List(c.Request.Context(), status)
	if err != nil {
		h.fail(c, err)
		return
	}

	response.Success(c, http.StatusOK, forms)
}

// ExportForm godoc
// POST /api/forms
// Stores an exported form. With questionbank_id set, that bank is replaced.
func (h *FormHandler) ExportForm(c *gin.Context) {
	var req model.QuestionBank
	if !h.bind(c, &req) {
		return
	}

	result, err := h.exportService.Export(c.Request.Context(), &req)
	if err != nil {
		h.fail(c, err)
		return
	}

	if result.Replaced {
		response.SuccessMessage(c, http.StatusOK, "Form updated successfully", result)
		return
	}
	response.SuccessMessage(c, http.StatusCreated, "Form saved successfully", result)
}

// ReplaceForm godoc
// PUT /api/forms/:id
// Replaces the whole tree of a form, creating it if absent.
func (h *FormHandler) ReplaceForm(c *gin.Context) {
	var req model.QuestionBank
	if !h.bind(c, &req) {
		return
	}

	result, err := h.exportService.Replace(c.Request.Context(), c.Param("id"), &req)
	if err != nil {
		h.fail(c, err)
		return
	}

	if result.Replaced {
		response.SuccessMessage(c, http.StatusOK, "Form updated successfully", result)
		return
	}
	response.SuccessMessage(c, http.StatusCreated, "Form saved successfully", result)
}

// GetForm godoc
// GET /api/forms/:id?format=editor
// Returns the reconstructed form tree.
func (h *FormHandler) GetForm(c *gin.Context) {
	bank, err := h.bankService.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		h.fail(c, err)
		return
	}
	if bank == nil {
		response.Fail(c, http.StatusNotFound, response.ErrNotFound)
		return
	}

	if c.Query("format") == "editor" {
		bank.EditorMode = true
	}
	response.Success(c, http.StatusOK, bank)
}

// DeleteForm godoc
// DELETE /api/forms/:id
// Deletes a form and everything it owns.
func (h *FormHandler) DeleteForm(c *gin.Context) {
	if err := h.bankService.Delete(c.Request.Context(), c.Param("id")); err != nil {
		h.fail(c, err)
		return
	}

	response.SuccessMessage(c, http.StatusOK, "Form deleted successfully", gin.H{"questionbankId": c.Param("id")})
}

// DownloadForm godoc
// GET /api/forms/:id/download
// Sends the form tree as a JSON file attachment.
func (h *FormHandler) DownloadForm(c *gin.Context) {
	id := c.Param("id")
	doc, err := h.exportService.Document(c.Request.Context(), id)
	if err != nil {
		h.fail(c, err)
		return
	}

	c.Header("Content-Disposition", attachment(service.DocumentName(id)))
	c.Data(http.StatusOK, "application/json; charset=utf-8", doc)
}

// ExportSpreadsheet godoc
// GET /api/forms/:id/export.xlsx
// Sends the form as an XLSX workbook.
func (h *FormHandler) ExportSpreadsheet(c *gin.Context) {
	id := c.Param("id")
	data, err := h.spreadsheet.Export(c.Request.Context(), id)
	if err != nil {
		h.fail(c, err)
		return
	}

	c.Header("Content-Disposition", attachment(h.spreadsheet.FileName(id)))
	c.Data(http.StatusOK, xlsxContentType, data)
}

// ────────────────────────────────────────────────────────────────────────────
// Internal helpers
// ────────────────────────────────────────────────────────────────────────────

// bind decodes and validates a bank payload, writing the 4xx response itself
// when the payload is rejected. The token subject, if any, becomes the author.
func (h *FormHandler) bind(c *gin.Context, req *model.QuestionBank) bool {
	if err := c.ShouldBindJSON(req); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			response.Fail(c, http.StatusRequestEntityTooLarge, response.ErrBodyTooLarge)
			return false
		}
		response.FailWithFields(c, http.StatusBadRequest, response.ErrValidation, validator.TranslateErrors(err))
		return false
	}

	if fields := validator.ValidateBank(req); fields != nil {
		response.FailWithFields(c, http.StatusBadRequest, response.ErrValidation, fields)
		return false
	}

	if claims := middleware.GetClaims(c); claims != nil && claims.Subject != "" {
		author := claims.Subject
		req.AuthorID = &author
	}
	return true
}

// fail maps service errors onto HTTP responses.
func (h *FormHandler) fail(c *gin.Context, err error) {
	switch {
	case errors.Is(err, service.ErrBankNotFound):
		response.Fail(c, http.StatusNotFound, response.ErrNotFound)
	case errors.Is(err, service.ErrDuplicateContentID),
		errors.Is(err, codec.ErrMissingContentType),
		errors.Is(err, codec.ErrUnknownContentType),
		errors.Is(err, codec.ErrCardTypeMismatch),
		errors.Is(err, codec.ErrUnknownCardType),
		errors.Is(err, codec.ErrInvalidBlob):
		response.FailWithDetail(c, http.StatusBadRequest, response.ErrInvalidPayload, err.Error())
	default:
		h.log.Error().Err(err).
			Str("request_id", response.RequestID(c)).
			Str("path", c.FullPath()).
			Msg("Form request failed")
		response.FailWithDetail(c, http.StatusInternalServerError, response.ErrInternal, err.Error())
	}
}

func attachment(name string) string {
	return fmt.Sprintf("attachment; filename=%q", name)
}
