package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"finbook/internal/services"
)

// ImportHandler handles bank statement uploads.
type ImportHandler struct {
	importService services.ImportServicer
	auditService  services.AuditServicer
}

// NewImportHandler creates a new ImportHandler.
func NewImportHandler(importService services.ImportServicer, auditService services.AuditServicer) *ImportHandler {
	return &ImportHandler{importService: importService, auditService: auditService}
}

// ImportStatements handles importing one or more statement files
// @Summary     Import bank statements
// @Description Upload CSV or XLSX statements as multipart "files" fields or as a JSON array of data URIs. Rows seen before are skipped; a malformed file rejects the whole upload.
// @Tags        transactions
// @Accept      json,mpfd
// @Produce     json
// @Security    BearerAuth
// @Param       files formData file false "Statement files"
// @Success     201 {object} services.ImportSummary "Import summary"
// @Failure     400 {object} ErrorResponse "Malformed statement"
// @Failure     401 {object} ErrorResponse "Unauthorized"
// @Failure     413 {object} ErrorResponse "Upload too large"
// @Failure     500 {object} ErrorResponse "Server error"
// @Router      /transactions/import [post]
func (h *ImportHandler) ImportStatements(c *gin.Context) {
	principal, err := getPrincipal(c)
	if err != nil {
		respondWithError(c, err)
		return
	}

	files, err := readStatementFiles(c)
	if err != nil {
		respondWithError(c, err)
		return
	}

	summary, err := h.importService.ImportStatements(files)
	if err != nil {
		respondWithError(c, err)
		return
	}

	for _, f := range summary.Files {
		h.auditService.Log(principal, "IMPORT_STATEMENT", "account", f.AccountID, c.ClientIP(),
			map[string]any{"iban": f.IBAN, "created": f.Created, "total": f.Total})
	}

	c.JSON(http.StatusCreated, summary)
}
