package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	apperrors "finbook/internal/errors"
	"finbook/internal/pagination"
	"finbook/internal/services"
)

// AuditHandler exposes the audit trail.
type AuditHandler struct {
	auditService services.AuditServicer
}

// NewAuditHandler creates a new AuditHandler.
func NewAuditHandler(auditService services.AuditServicer) *AuditHandler {
	return &AuditHandler{auditService: auditService}
}

// ListAuditLogs handles listing audit entries
// @Summary     List audit log entries
// @Description Newest first, always paged
// @Tags        audit
// @Produce     json
// @Security    BearerAuth
// @Param       principal     query string false "Principal"
// @Param       action        query string false "Action, e.g. LINK_RECORD"
// @Param       resource_type query string false "Resource type"
// @Param       resource_id   query string false "Resource ID"
// @Param       page          query int    false "Page number"
// @Param       page_size     query int    false "Page size"
// @Success     200 {object} pagination.PageResponse[models.AuditLog] "Audit entries"
// @Failure     400 {object} ErrorResponse "Invalid input"
// @Failure     401 {object} ErrorResponse "Unauthorized"
// @Failure     500 {object} ErrorResponse "Server error"
// @Router      /audit-logs [get]
func (h *AuditHandler) ListAuditLogs(c *gin.Context) {
	if _, err := getPrincipal(c); err != nil {
		respondWithError(c, err)
		return
	}

	var filter services.AuditFilter
	var page pagination.PageRequest
	if err := c.ShouldBindQuery(&filter); err != nil {
		respondWithError(c, apperrors.WithMessage(apperrors.ErrInvalidInput, err.Error()))
		return
	}
	if err := c.ShouldBindQuery(&page); err != nil {
		respondWithError(c, apperrors.WithMessage(apperrors.ErrInvalidInput, err.Error()))
		return
	}

	entries, err := h.auditService.List(filter, page)
	if err != nil {
		respondWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, entries)
}
