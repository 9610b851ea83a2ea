package handlers

import (
	"net/http"
	"testing"
	"time"

	"github.com/gin-gonic/gin"

	apperrors "finbook/internal/errors"
	"finbook/internal/models"
	"finbook/internal/recurrence"
	"finbook/internal/services"
)

type mockContractService struct {
	createContractFn func(in services.ContractInput) (*models.Contract, error)
	listContractsFn  func(isActive *bool) ([]models.Contract, error)
	updateContractFn func(id string, in services.ContractInput) (*models.Contract, error)
	deleteContractFn func(id string) error
}

func (m *mockContractService) CreateContract(in services.ContractInput) (*models.Contract, error) {
	if m.createContractFn != nil {
		return m.createContractFn(in)
	}
	return &models.Contract{}, nil
}

func (m *mockContractService) ListContracts(isActive *bool) ([]models.Contract, error) {
	if m.listContractsFn != nil {
		return m.listContractsFn(isActive)
	}
	return []models.Contract{}, nil
}

func (m *mockContractService) GetContractByID(id string) (*models.Contract, error) {
	return &models.Contract{Base: models.Base{ID: id}}, nil
}

func (m *mockContractService) UpdateContract(id string, in services.ContractInput) (*models.Contract, error) {
	if m.updateContractFn != nil {
		return m.updateContractFn(id, in)
	}
	return &models.Contract{Base: models.Base{ID: id}}, nil
}

func (m *mockContractService) DeleteContract(id string) error {
	if m.deleteContractFn != nil {
		return m.deleteContractFn(id)
	}
	return nil
}

var _ services.ContractServicer = (*mockContractService)(nil)

func setupContractRouter(handler *ContractHandler) *gin.Engine {
	r := gin.New()
	auth := r.Group("", injectPrincipal(testPrincipal))
	auth.POST("/contracts", handler.CreateContract)
	auth.GET("/contracts", handler.ListContracts)
	auth.GET("/contracts/:id", handler.GetContractByID)
	auth.PUT("/contracts/:id", handler.UpdateContract)
	auth.DELETE("/contracts/:id", handler.DeleteContract)
	return r
}

const validContractBody = `{
	"name": "Rent",
	"date_start": "01.01.2024",
	"account_id": "acc-1",
	"category_id": "cat-1",
	"amount": -900,
	"payment_date": "2024-01-03",
	"payment_cycle": "m",
	"minimum_duration": 12
}`

func TestContractHandler_CreateContract(t *testing.T) {
	t.Run("returns 201 and converts dates", func(t *testing.T) {
		var got services.ContractInput
		conSvc := &mockContractService{
			createContractFn: func(in services.ContractInput) (*models.Contract, error) {
				got = in
				return &models.Contract{Base: models.Base{ID: "con-1"}, Name: in.Name}, nil
			},
		}
		audit := &mockAuditService{}
		r := setupContractRouter(NewContractHandler(conSvc, audit))

		rec := doRequest(r, "POST", "/contracts", validContractBody)

		if rec.Code != http.StatusCreated {
			t.Fatalf("expected 201, got %d: %s", rec.Code, rec.Body.String())
		}
		if !got.DateStart.Equal(time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)) {
			t.Errorf("date_start = %s", got.DateStart)
		}
		if got.PaymentDate == nil || got.PaymentDate.Day() != 3 {
			t.Errorf("payment_date = %v", got.PaymentDate)
		}
		if !got.IsActive {
			t.Error("contracts default to active")
		}
		if got.PaymentCycle != recurrence.CycleMonthly || *got.MinimumDuration != 12 {
			t.Errorf("unexpected input: %+v", got)
		}
		audit.assertLogged(t, "CREATE_CONTRACT")
	})

	t.Run("returns 400 on unknown cycle", func(t *testing.T) {
		r := setupContractRouter(NewContractHandler(&mockContractService{}, &mockAuditService{}))

		rec := doRequest(r, "POST", "/contracts",
			`{"name":"Rent","date_start":"2024-01-01","account_id":"a","category_id":"c","payment_cycle":"w"}`)

		if rec.Code != http.StatusBadRequest {
			t.Fatalf("expected 400, got %d", rec.Code)
		}
	})

	t.Run("returns 400 on bad date", func(t *testing.T) {
		r := setupContractRouter(NewContractHandler(&mockContractService{}, &mockAuditService{}))

		rec := doRequest(r, "POST", "/contracts",
			`{"name":"Rent","date_start":"January","account_id":"a","category_id":"c","payment_cycle":"m"}`)

		if rec.Code != http.StatusBadRequest {
			t.Fatalf("expected 400, got %d", rec.Code)
		}
		assertErrorCode(t, parseJSON(t, rec), "INVALID_INPUT")
	})

	t.Run("returns 400 on negative duration", func(t *testing.T) {
		r := setupContractRouter(NewContractHandler(&mockContractService{}, &mockAuditService{}))

		rec := doRequest(r, "POST", "/contracts",
			`{"name":"Rent","date_start":"2024-01-01","account_id":"a","category_id":"c","payment_cycle":"m","renewal_duration":-1}`)

		if rec.Code != http.StatusBadRequest {
			t.Fatalf("expected 400, got %d", rec.Code)
		}
	})
}

func TestContractHandler_ListContracts(t *testing.T) {
	t.Run("passes is_active filter", func(t *testing.T) {
		var got *bool
		conSvc := &mockContractService{
			listContractsFn: func(isActive *bool) ([]models.Contract, error) {
				got = isActive
				return []models.Contract{}, nil
			},
		}
		r := setupContractRouter(NewContractHandler(conSvc, &mockAuditService{}))

		rec := doRequest(r, "GET", "/contracts?is_active=false", "")

		if rec.Code != http.StatusOK {
			t.Fatalf("expected 200, got %d", rec.Code)
		}
		if got == nil || *got {
			t.Errorf("expected is_active=false, got %v", got)
		}
	})

	t.Run("returns 400 on bad filter", func(t *testing.T) {
		r := setupContractRouter(NewContractHandler(&mockContractService{}, &mockAuditService{}))

		rec := doRequest(r, "GET", "/contracts?is_active=maybe", "")

		if rec.Code != http.StatusBadRequest {
			t.Fatalf("expected 400, got %d", rec.Code)
		}
	})
}

func TestContractHandler_DeleteContract(t *testing.T) {
	conSvc := &mockContractService{
		deleteContractFn: func(string) error { return apperrors.ErrContractInUse },
	}
	r := setupContractRouter(NewContractHandler(conSvc, &mockAuditService{}))

	rec := doRequest(r, "DELETE", "/contracts/con-1", "")

	if rec.Code != http.StatusConflict {
		t.Fatalf("expected 409, got %d", rec.Code)
	}
	assertErrorCode(t, parseJSON(t, rec), "CONTRACT_IN_USE")
}
