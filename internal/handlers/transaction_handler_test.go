package handlers

import (
	"net/http"
	"net/url"
	"testing"

	"github.com/gin-gonic/gin"

	apperrors "finbook/internal/errors"
	"finbook/internal/models"
	"finbook/internal/services"
)

// --- mock transaction service ---

type mockTransactionService struct {
	listTransactionsFn   func(params url.Values) (*services.Listing[models.Transaction], error)
	getTransactionByIDFn func(id string) (*models.Transaction, error)
	deleteTransactionFn  func(id string) error
	hideFn               func(id string) (*models.Transaction, error)
	linkRecordFn         func(id, recordID string) (*models.Transaction, error)
	unlinkRecordFn       func(id, recordID string) (*models.Transaction, error)
	setRecordsFn         func(id string, recordIDs []string) (*models.Transaction, error)
	pairCounterBookingFn func(idA, idB string) error
	findDuplicatesFn     func(minCount int) ([]services.DuplicateGroup, error)
	suggestRecordsFn     func(id string, limit int) ([]services.Suggestion, error)
}

func (m *mockTransactionService) ListTransactions(params url.Values) (*services.Listing[models.Transaction], error) {
	if m.listTransactionsFn != nil {
		return m.listTransactionsFn(params)
	}
	return &services.Listing[models.Transaction]{Items: []models.Transaction{}}, nil
}

func (m *mockTransactionService) GetTransactionByID(id string) (*models.Transaction, error) {
	if m.getTransactionByIDFn != nil {
		return m.getTransactionByIDFn(id)
	}
	return &models.Transaction{Base: models.Base{ID: id}}, nil
}

func (m *mockTransactionService) DeleteTransaction(id string) error {
	if m.deleteTransactionFn != nil {
		return m.deleteTransactionFn(id)
	}
	return nil
}

func (m *mockTransactionService) Hide(id string) (*models.Transaction, error) {
	if m.hideFn != nil {
		return m.hideFn(id)
	}
	return &models.Transaction{Base: models.Base{ID: id}, IsIgnored: true}, nil
}

func (m *mockTransactionService) Show(id string) (*models.Transaction, error) {
	return &models.Transaction{Base: models.Base{ID: id}}, nil
}

func (m *mockTransactionService) Bookmark(id string) (*models.Transaction, error) {
	return &models.Transaction{Base: models.Base{ID: id}, IsHighlighted: true}, nil
}

func (m *mockTransactionService) Unbookmark(id string) (*models.Transaction, error) {
	return &models.Transaction{Base: models.Base{ID: id}}, nil
}

func (m *mockTransactionService) LinkRecord(id, recordID string) (*models.Transaction, error) {
	if m.linkRecordFn != nil {
		return m.linkRecordFn(id, recordID)
	}
	return &models.Transaction{Base: models.Base{ID: id}}, nil
}

func (m *mockTransactionService) UnlinkRecord(id, recordID string) (*models.Transaction, error) {
	if m.unlinkRecordFn != nil {
		return m.unlinkRecordFn(id, recordID)
	}
	return &models.Transaction{Base: models.Base{ID: id}}, nil
}

func (m *mockTransactionService) SetRecords(id string, recordIDs []string) (*models.Transaction, error) {
	if m.setRecordsFn != nil {
		return m.setRecordsFn(id, recordIDs)
	}
	return &models.Transaction{Base: models.Base{ID: id}}, nil
}

func (m *mockTransactionService) PairCounterBooking(idA, idB string) error {
	if m.pairCounterBookingFn != nil {
		return m.pairCounterBookingFn(idA, idB)
	}
	return nil
}

func (m *mockTransactionService) FindDuplicates(minCount int) ([]services.DuplicateGroup, error) {
	if m.findDuplicatesFn != nil {
		return m.findDuplicatesFn(minCount)
	}
	return []services.DuplicateGroup{}, nil
}

func (m *mockTransactionService) SuggestRecords(id string, limit int) ([]services.Suggestion, error) {
	if m.suggestRecordsFn != nil {
		return m.suggestRecordsFn(id, limit)
	}
	return []services.Suggestion{}, nil
}

var _ services.TransactionServicer = (*mockTransactionService)(nil)

func setupTransactionRouter(handler *TransactionHandler) *gin.Engine {
	r := gin.New()
	auth := r.Group("", injectPrincipal(testPrincipal))
	auth.GET("/transactions", handler.ListTransactions)
	auth.GET("/transactions/duplicates", handler.FindDuplicates)
	auth.POST("/transactions/counter-booking", handler.PairCounterBooking)
	auth.GET("/transactions/:id", handler.GetTransactionByID)
	auth.DELETE("/transactions/:id", handler.DeleteTransaction)
	auth.POST("/transactions/:id/hide", handler.Hide)
	auth.POST("/transactions/:id/show", handler.Show)
	auth.POST("/transactions/:id/bookmark", handler.Bookmark)
	auth.POST("/transactions/:id/unbookmark", handler.Unbookmark)
	auth.POST("/transactions/:id/records", handler.SetRecords)
	auth.POST("/transactions/:id/records/:recordId", handler.LinkRecord)
	auth.DELETE("/transactions/:id/records/:recordId", handler.UnlinkRecord)
	auth.GET("/transactions/:id/suggestions", handler.SuggestRecords)
	return r
}

func TestTransactionHandler_ListTransactions(t *testing.T) {
	var got url.Values
	txSvc := &mockTransactionService{
		listTransactionsFn: func(params url.Values) (*services.Listing[models.Transaction], error) {
			got = params
			return &services.Listing[models.Transaction]{Items: []models.Transaction{{Creditor: "Shop"}}}, nil
		},
	}
	r := setupTransactionRouter(NewTransactionHandler(txSvc, &mockAuditService{}))

	rec := doRequest(r, "GET", "/transactions?is_duplicate=true&ordering=-amount", "")

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	if got.Get("is_duplicate") != "true" || got.Get("ordering") != "-amount" {
		t.Errorf("unexpected params: %v", got)
	}
	if items := parseJSONArray(t, rec); len(items) != 1 {
		t.Errorf("expected 1 transaction, got %d", len(items))
	}
}

func TestTransactionHandler_GetTransactionByID(t *testing.T) {
	txSvc := &mockTransactionService{
		getTransactionByIDFn: func(string) (*models.Transaction, error) {
			return nil, apperrors.ErrTransactionNotFound
		},
	}
	r := setupTransactionRouter(NewTransactionHandler(txSvc, &mockAuditService{}))

	rec := doRequest(r, "GET", "/transactions/tx-1", "")

	if rec.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", rec.Code)
	}
	assertErrorCode(t, parseJSON(t, rec), "TRANSACTION_NOT_FOUND")
}

func TestTransactionHandler_Transitions(t *testing.T) {
	tests := []struct {
		path   string
		action string
	}{
		{"/transactions/tx-1/hide", "HIDE_TRANSACTION"},
		{"/transactions/tx-1/show", "SHOW_TRANSACTION"},
		{"/transactions/tx-1/bookmark", "BOOKMARK_TRANSACTION"},
		{"/transactions/tx-1/unbookmark", "UNBOOKMARK_TRANSACTION"},
	}
	for _, tt := range tests {
		t.Run(tt.action, func(t *testing.T) {
			audit := &mockAuditService{}
			r := setupTransactionRouter(NewTransactionHandler(&mockTransactionService{}, audit))

			rec := doRequest(r, "POST", tt.path, "")

			if rec.Code != http.StatusOK {
				t.Fatalf("expected 200, got %d", rec.Code)
			}
			tx := parseJSON(t, rec)["transaction"].(map[string]interface{})
			if tx["id"] != "tx-1" {
				t.Errorf("expected tx-1, got %v", tx["id"])
			}
			audit.assertLogged(t, tt.action)
		})
	}

	t.Run("hide conflict", func(t *testing.T) {
		txSvc := &mockTransactionService{
			hideFn: func(string) (*models.Transaction, error) { return nil, apperrors.ErrAlreadyImported },
		}
		r := setupTransactionRouter(NewTransactionHandler(txSvc, &mockAuditService{}))

		rec := doRequest(r, "POST", "/transactions/tx-1/hide", "")

		if rec.Code != http.StatusConflict {
			t.Fatalf("expected 409, got %d", rec.Code)
		}
		assertErrorCode(t, parseJSON(t, rec), "ALREADY_IMPORTED")
	})
}

func TestTransactionHandler_Records(t *testing.T) {
	t.Run("set records", func(t *testing.T) {
		var got []string
		txSvc := &mockTransactionService{
			setRecordsFn: func(id string, recordIDs []string) (*models.Transaction, error) {
				got = recordIDs
				return &models.Transaction{Base: models.Base{ID: id}}, nil
			},
		}
		audit := &mockAuditService{}
		r := setupTransactionRouter(NewTransactionHandler(txSvc, audit))

		rec := doRequest(r, "POST", "/transactions/tx-1/records", `["rec-1","rec-2"]`)

		if rec.Code != http.StatusOK {
			t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
		}
		if len(got) != 2 || got[1] != "rec-2" {
			t.Errorf("unexpected ids: %v", got)
		}
		audit.assertLogged(t, "SET_TRANSACTION_RECORDS")
	})

	t.Run("set records rejects object", func(t *testing.T) {
		r := setupTransactionRouter(NewTransactionHandler(&mockTransactionService{}, &mockAuditService{}))

		rec := doRequest(r, "POST", "/transactions/tx-1/records", `{"id":"rec-1"}`)

		if rec.Code != http.StatusBadRequest {
			t.Fatalf("expected 400, got %d", rec.Code)
		}
	})

	t.Run("link", func(t *testing.T) {
		var gotTx, gotRec string
		txSvc := &mockTransactionService{
			linkRecordFn: func(id, recordID string) (*models.Transaction, error) {
				gotTx, gotRec = id, recordID
				return &models.Transaction{Base: models.Base{ID: id}}, nil
			},
		}
		r := setupTransactionRouter(NewTransactionHandler(txSvc, &mockAuditService{}))

		rec := doRequest(r, "POST", "/transactions/tx-1/records/rec-9", "")

		if rec.Code != http.StatusOK || gotTx != "tx-1" || gotRec != "rec-9" {
			t.Fatalf("expected link tx-1/rec-9, got %d %s/%s", rec.Code, gotTx, gotRec)
		}
	})

	t.Run("unlink not linked", func(t *testing.T) {
		txSvc := &mockTransactionService{
			unlinkRecordFn: func(string, string) (*models.Transaction, error) { return nil, apperrors.ErrNotLinked },
		}
		r := setupTransactionRouter(NewTransactionHandler(txSvc, &mockAuditService{}))

		rec := doRequest(r, "DELETE", "/transactions/tx-1/records/rec-9", "")

		if rec.Code != http.StatusConflict {
			t.Fatalf("expected 409, got %d", rec.Code)
		}
		assertErrorCode(t, parseJSON(t, rec), "NOT_LINKED")
	})
}

func TestTransactionHandler_PairCounterBooking(t *testing.T) {
	t.Run("pairs two ids", func(t *testing.T) {
		var gotA, gotB string
		txSvc := &mockTransactionService{
			pairCounterBookingFn: func(a, b string) error {
				gotA, gotB = a, b
				return nil
			},
		}
		audit := &mockAuditService{}
		r := setupTransactionRouter(NewTransactionHandler(txSvc, audit))

		rec := doRequest(r, "POST", "/transactions/counter-booking", `["tx-1","tx-2"]`)

		if rec.Code != http.StatusNoContent {
			t.Fatalf("expected 204, got %d: %s", rec.Code, rec.Body.String())
		}
		if gotA != "tx-1" || gotB != "tx-2" {
			t.Errorf("unexpected pair %s/%s", gotA, gotB)
		}
		audit.assertLogged(t, "PAIR_COUNTER_BOOKING")
	})

	t.Run("requires exactly two", func(t *testing.T) {
		r := setupTransactionRouter(NewTransactionHandler(&mockTransactionService{}, &mockAuditService{}))

		rec := doRequest(r, "POST", "/transactions/counter-booking", `["tx-1","tx-2","tx-3"]`)

		if rec.Code != http.StatusBadRequest {
			t.Fatalf("expected 400, got %d", rec.Code)
		}
		assertErrorCode(t, parseJSON(t, rec), "VALIDATION_ERROR")
	})
}

func TestTransactionHandler_FindDuplicates(t *testing.T) {
	t.Run("default minimum", func(t *testing.T) {
		var got int
		txSvc := &mockTransactionService{
			findDuplicatesFn: func(minCount int) ([]services.DuplicateGroup, error) {
				got = minCount
				return []services.DuplicateGroup{{Purpose: "x", Count: 2}}, nil
			},
		}
		r := setupTransactionRouter(NewTransactionHandler(txSvc, &mockAuditService{}))

		rec := doRequest(r, "GET", "/transactions/duplicates", "")

		if rec.Code != http.StatusOK || got != services.DefaultDuplicateMinimum {
			t.Fatalf("expected 200 with default minimum, got %d %d", rec.Code, got)
		}
	})

	t.Run("invalid minimum", func(t *testing.T) {
		r := setupTransactionRouter(NewTransactionHandler(&mockTransactionService{}, &mockAuditService{}))

		rec := doRequest(r, "GET", "/transactions/duplicates?min_count=zero", "")

		if rec.Code != http.StatusBadRequest {
			t.Fatalf("expected 400, got %d", rec.Code)
		}
	})
}

func TestTransactionHandler_SuggestRecords(t *testing.T) {
	var gotLimit int
	txSvc := &mockTransactionService{
		suggestRecordsFn: func(id string, limit int) ([]services.Suggestion, error) {
			gotLimit = limit
			return []services.Suggestion{{Record: models.Record{Subject: "Power"}, Distance: 1}}, nil
		},
	}
	r := setupTransactionRouter(NewTransactionHandler(txSvc, &mockAuditService{}))

	rec := doRequest(r, "GET", "/transactions/tx-1/suggestions?limit=3", "")

	if rec.Code != http.StatusOK || gotLimit != 3 {
		t.Fatalf("expected 200 with limit 3, got %d %d", rec.Code, gotLimit)
	}
	items := parseJSONArray(t, rec)
	if items[0].(map[string]interface{})["distance"].(float64) != 1 {
		t.Errorf("unexpected body: %v", items)
	}
}

func TestTransactionHandler_DeleteTransaction(t *testing.T) {
	audit := &mockAuditService{}
	r := setupTransactionRouter(NewTransactionHandler(&mockTransactionService{}, audit))

	rec := doRequest(r, "DELETE", "/transactions/tx-1", "")

	if rec.Code != http.StatusNoContent {
		t.Fatalf("expected 204, got %d", rec.Code)
	}
	audit.assertLogged(t, "DELETE_TRANSACTION")
}
