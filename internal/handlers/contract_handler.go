package handlers

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	apperrors "finbook/internal/errors"
	"finbook/internal/recurrence"
	"finbook/internal/services"
)

// ContractHandler handles contract-related requests.
type ContractHandler struct {
	contractService services.ContractServicer
	auditService    services.AuditServicer
}

// NewContractHandler creates a new ContractHandler.
func NewContractHandler(contractService services.ContractServicer, auditService services.AuditServicer) *ContractHandler {
	return &ContractHandler{contractService: contractService, auditService: auditService}
}

// ContractRequest represents the request payload for creating or replacing a
// contract. Durations are in months.
type ContractRequest struct {
	Name              string           `json:"name" binding:"required,min=1,max=200"`
	IsActive          *bool            `json:"is_active"`
	DateStart         string           `json:"date_start" binding:"required"`
	CancelationPeriod *int             `json:"cancelation_period" binding:"omitempty,gte=0"`
	MinimumDuration   *int             `json:"minimum_duration" binding:"omitempty,gte=0"`
	RenewalDuration   *int             `json:"renewal_duration" binding:"omitempty,gte=0"`
	AccountID         string           `json:"account_id" binding:"required"`
	Amount            float64          `json:"amount"`
	PaymentDate       *string          `json:"payment_date"`
	PaymentCycle      recurrence.Cycle `json:"payment_cycle" binding:"required,payment_cycle"`
	CategoryID        string           `json:"category_id" binding:"required"`
}

func (r ContractRequest) input() (services.ContractInput, error) {
	start, err := parseDate(r.DateStart)
	if err != nil {
		return services.ContractInput{}, apperrors.WithMessage(apperrors.ErrInvalidInput, "date_start: "+err.Error())
	}
	paymentDate, err := parseOptionalDate(r.PaymentDate)
	if err != nil {
		return services.ContractInput{}, apperrors.WithMessage(apperrors.ErrInvalidInput, "payment_date: "+err.Error())
	}
	active := true
	if r.IsActive != nil {
		active = *r.IsActive
	}
	return services.ContractInput{
		Name:              r.Name,
		IsActive:          active,
		DateStart:         start,
		CancelationPeriod: r.CancelationPeriod,
		MinimumDuration:   r.MinimumDuration,
		RenewalDuration:   r.RenewalDuration,
		AccountID:         r.AccountID,
		Amount:            r.Amount,
		PaymentDate:       paymentDate,
		PaymentCycle:      r.PaymentCycle,
		CategoryID:        r.CategoryID,
	}, nil
}

// CreateContract handles the creation of a new contract
// @Summary     Create a contract
// @Description Create a recurring payment obligation. The response carries its payment schedule.
// @Tags        contracts
// @Accept      json
// @Produce     json
// @Security    BearerAuth
// @Param       request body ContractRequest true "Contract details"
// @Success     201 {object} models.Contract "Contract created"
// @Failure     400 {object} ErrorResponse "Invalid input"
// @Failure     401 {object} ErrorResponse "Unauthorized"
// @Failure     404 {object} ErrorResponse "Account or category not found"
// @Failure     500 {object} ErrorResponse "Server error"
// @Router      /contracts [post]
func (h *ContractHandler) CreateContract(c *gin.Context) {
	principal, err := getPrincipal(c)
	if err != nil {
		respondWithError(c, err)
		return
	}

	var req ContractRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondWithError(c, apperrors.WithMessage(apperrors.ErrInvalidInput, err.Error()))
		return
	}
	in, err := req.input()
	if err != nil {
		respondWithError(c, err)
		return
	}

	contract, err := h.contractService.CreateContract(in)
	if err != nil {
		respondWithError(c, err)
		return
	}

	h.auditService.Log(principal, "CREATE_CONTRACT", "contract", contract.ID, c.ClientIP(),
		map[string]any{"name": req.Name, "amount": req.Amount, "payment_cycle": req.PaymentCycle})

	c.JSON(http.StatusCreated, gin.H{"contract": contract})
}

// ListContracts handles retrieving contracts
// @Summary     List contracts
// @Tags        contracts
// @Produce     json
// @Security    BearerAuth
// @Param       is_active query bool false "Only active or inactive contracts"
// @Success     200 {array}  models.Contract "Contracts with schedules"
// @Failure     400 {object} ErrorResponse "Invalid filter"
// @Failure     401 {object} ErrorResponse "Unauthorized"
// @Failure     500 {object} ErrorResponse "Server error"
// @Router      /contracts [get]
func (h *ContractHandler) ListContracts(c *gin.Context) {
	if _, err := getPrincipal(c); err != nil {
		respondWithError(c, err)
		return
	}

	var isActive *bool
	if raw := c.Query("is_active"); raw != "" {
		v, err := strconv.ParseBool(raw)
		if err != nil {
			respondWithError(c, apperrors.WithMessage(apperrors.ErrInvalidInput, "is_active must be a boolean"))
			return
		}
		isActive = &v
	}

	contracts, err := h.contractService.ListContracts(isActive)
	if err != nil {
		respondWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, contracts)
}

// GetContractByID handles retrieving a contract by ID
// @Summary     Get contract by ID
// @Tags        contracts
// @Produce     json
// @Security    BearerAuth
// @Param       id path string true "Contract ID"
// @Success     200 {object} models.Contract "Contract details"
// @Failure     401 {object} ErrorResponse "Unauthorized"
// @Failure     404 {object} ErrorResponse "Contract not found"
// @Failure     500 {object} ErrorResponse "Server error"
// @Router      /contracts/{id} [get]
func (h *ContractHandler) GetContractByID(c *gin.Context) {
	if _, err := getPrincipal(c); err != nil {
		respondWithError(c, err)
		return
	}

	contract, err := h.contractService.GetContractByID(c.Param("id"))
	if err != nil {
		respondWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"contract": contract})
}

// UpdateContract handles replacing a contract
// @Summary     Update contract
// @Tags        contracts
// @Accept      json
// @Produce     json
// @Security    BearerAuth
// @Param       id path string true "Contract ID"
// @Param       request body ContractRequest true "Contract details"
// @Success     200 {object} models.Contract "Updated contract"
// @Failure     400 {object} ErrorResponse "Invalid input"
// @Failure     401 {object} ErrorResponse "Unauthorized"
// @Failure     404 {object} ErrorResponse "Contract not found"
// @Failure     500 {object} ErrorResponse "Server error"
// @Router      /contracts/{id} [put]
func (h *ContractHandler) UpdateContract(c *gin.Context) {
	principal, err := getPrincipal(c)
	if err != nil {
		respondWithError(c, err)
		return
	}

	var req ContractRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondWithError(c, apperrors.WithMessage(apperrors.ErrInvalidInput, err.Error()))
		return
	}
	in, err := req.input()
	if err != nil {
		respondWithError(c, err)
		return
	}

	contract, err := h.contractService.UpdateContract(c.Param("id"), in)
	if err != nil {
		respondWithError(c, err)
		return
	}

	h.auditService.Log(principal, "UPDATE_CONTRACT", "contract", contract.ID, c.ClientIP(), nil)

	c.JSON(http.StatusOK, gin.H{"contract": contract})
}

// DeleteContract handles deleting a contract
// @Summary     Delete contract
// @Tags        contracts
// @Security    BearerAuth
// @Param       id path string true "Contract ID"
// @Success     204 "Contract deleted"
// @Failure     401 {object} ErrorResponse "Unauthorized"
// @Failure     404 {object} ErrorResponse "Contract not found"
// @Failure     409 {object} ErrorResponse "Contract in use"
// @Failure     500 {object} ErrorResponse "Server error"
// @Router      /contracts/{id} [delete]
func (h *ContractHandler) DeleteContract(c *gin.Context) {
	principal, err := getPrincipal(c)
	if err != nil {
		respondWithError(c, err)
		return
	}

	id := c.Param("id")
	if err := h.contractService.DeleteContract(id); err != nil {
		respondWithError(c, err)
		return
	}

	h.auditService.Log(principal, "DELETE_CONTRACT", "contract", id, c.ClientIP(), nil)

	c.Status(http.StatusNoContent)
}
