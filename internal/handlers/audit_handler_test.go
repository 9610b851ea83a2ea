package handlers

import (
	"net/http"
	"testing"

	"github.com/gin-gonic/gin"

	"finbook/internal/models"
	"finbook/internal/pagination"
	"finbook/internal/services"
)

func setupAuditRouter(handler *AuditHandler) *gin.Engine {
	r := gin.New()
	r.GET("/audit-logs", injectPrincipal(testPrincipal), handler.ListAuditLogs)
	return r
}

func TestAuditHandler_ListAuditLogs(t *testing.T) {
	t.Run("binds filter and page", func(t *testing.T) {
		var gotFilter services.AuditFilter
		var gotPage pagination.PageRequest
		audit := &mockAuditService{
			listFn: func(filter services.AuditFilter, page pagination.PageRequest) (*pagination.PageResponse[models.AuditLog], error) {
				gotFilter, gotPage = filter, page
				resp := pagination.NewPageResponse([]models.AuditLog{{Action: "HIDE_TRANSACTION"}}, page.Page, page.PageSize, 11)
				return &resp, nil
			},
		}
		r := setupAuditRouter(NewAuditHandler(audit))

		rec := doRequest(r, "GET", "/audit-logs?action=HIDE_TRANSACTION&resource_type=transaction&page=2&page_size=5", "")

		if rec.Code != http.StatusOK {
			t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
		}
		if gotFilter.Action != "HIDE_TRANSACTION" || gotFilter.ResourceType != "transaction" || gotFilter.Principal != "" {
			t.Errorf("unexpected filter: %+v", gotFilter)
		}
		if gotPage.Page != 2 || gotPage.PageSize != 5 {
			t.Errorf("unexpected page: %+v", gotPage)
		}
		body := parseJSON(t, rec)
		if body["total_pages"].(float64) != 3 || len(body["data"].([]interface{})) != 1 {
			t.Errorf("unexpected body: %s", rec.Body.String())
		}
	})

	t.Run("invalid page", func(t *testing.T) {
		r := setupAuditRouter(NewAuditHandler(&mockAuditService{}))

		rec := doRequest(r, "GET", "/audit-logs?page_size=-1", "")

		if rec.Code != http.StatusBadRequest {
			t.Fatalf("expected 400, got %d", rec.Code)
		}
		assertErrorCode(t, parseJSON(t, rec), "INVALID_INPUT")
	})

	t.Run("no principal", func(t *testing.T) {
		r := gin.New()
		r.GET("/audit-logs", NewAuditHandler(&mockAuditService{}).ListAuditLogs)

		rec := doRequest(r, "GET", "/audit-logs", "")

		if rec.Code != http.StatusUnauthorized {
			t.Fatalf("expected 401, got %d", rec.Code)
		}
	})
}
