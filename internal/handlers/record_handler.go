package handlers

import (
	"bytes"
	"encoding/json"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/gin-gonic/gin/binding"

	apperrors "finbook/internal/errors"
	"finbook/internal/services"
)

// RecordHandler handles record-related requests.
type RecordHandler struct {
	recordService services.RecordServicer
	auditService  services.AuditServicer
}

// NewRecordHandler creates a new RecordHandler.
func NewRecordHandler(recordService services.RecordServicer, auditService services.AuditServicer) *RecordHandler {
	return &RecordHandler{recordService: recordService, auditService: auditService}
}

// RecordRequest represents the request payload for creating or replacing a
// record. TransactionIDs, when present, replaces the linked transactions.
type RecordRequest struct {
	AccountID        string    `json:"account_id" binding:"required"`
	CategoryID       string    `json:"category_id" binding:"required"`
	ContractID       *string   `json:"contract_id"`
	CounterBookingID *string   `json:"counter_booking_id"`
	Subject          string    `json:"subject" binding:"required,max=200"`
	Date             string    `json:"date" binding:"required"`
	Amount           float64   `json:"amount"`
	TransactionIDs   *[]string `json:"transactions"`
}

func (r RecordRequest) input() (services.RecordInput, error) {
	date, err := parseDate(r.Date)
	if err != nil {
		return services.RecordInput{}, apperrors.WithMessage(apperrors.ErrInvalidInput, "date: "+err.Error())
	}
	in := services.RecordInput{
		AccountID:        r.AccountID,
		CategoryID:       r.CategoryID,
		ContractID:       r.ContractID,
		CounterBookingID: r.CounterBookingID,
		Subject:          r.Subject,
		Date:             date,
		Amount:           r.Amount,
	}
	if r.TransactionIDs != nil {
		in.TransactionIDs = *r.TransactionIDs
		if in.TransactionIDs == nil {
			in.TransactionIDs = []string{}
		}
	}
	return in, nil
}

// CreateRecords handles creating one record or a batch
// @Summary     Create records
// @Description Create a single record (JSON object) or several at once (JSON array). A batch is stored atomically.
// @Tags        records
// @Accept      json
// @Produce     json
// @Security    BearerAuth
// @Param       request body RecordRequest true "Record details, or an array of them"
// @Success     201 {object} models.Record "Record created"
// @Failure     400 {object} ErrorResponse "Invalid input"
// @Failure     401 {object} ErrorResponse "Unauthorized"
// @Failure     404 {object} ErrorResponse "Referenced entity not found"
// @Failure     500 {object} ErrorResponse "Server error"
// @Router      /records [post]
func (h *RecordHandler) CreateRecords(c *gin.Context) {
	principal, err := getPrincipal(c)
	if err != nil {
		respondWithError(c, err)
		return
	}

	body, err := c.GetRawData()
	if err != nil {
		respondWithError(c, uploadError(err))
		return
	}
	body = bytes.TrimSpace(body)
	batch := len(body) > 0 && body[0] == '['

	var reqs []RecordRequest
	if batch {
		err = json.Unmarshal(body, &reqs)
	} else {
		var req RecordRequest
		err = json.Unmarshal(body, &req)
		reqs = []RecordRequest{req}
	}
	if err != nil {
		respondWithError(c, apperrors.WithMessage(apperrors.ErrInvalidInput, err.Error()))
		return
	}

	inputs := make([]services.RecordInput, len(reqs))
	for i, req := range reqs {
		if err := binding.Validator.ValidateStruct(req); err != nil {
			respondWithError(c, apperrors.WithMessage(apperrors.ErrInvalidInput, err.Error()))
			return
		}
		in, err := req.input()
		if err != nil {
			respondWithError(c, err)
			return
		}
		inputs[i] = in
	}

	records, err := h.recordService.CreateRecords(inputs)
	if err != nil {
		respondWithError(c, err)
		return
	}

	for _, r := range records {
		h.auditService.Log(principal, "CREATE_RECORD", "record", r.ID, c.ClientIP(),
			map[string]any{"subject": r.Subject, "amount": r.Amount, "category_id": r.CategoryID})
	}

	if batch {
		c.JSON(http.StatusCreated, gin.H{"records": records})
		return
	}
	c.JSON(http.StatusCreated, gin.H{"record": records[0]})
}

// ListRecords handles retrieving records
// @Summary     List records
// @Description Filter with field__comparator parameters, search with q, sort with ordering. Paginated when page is given.
// @Tags        records
// @Produce     json
// @Security    BearerAuth
// @Param       q          query string false "Quick search over subject"
// @Param       ordering   query string false "Comma separated sort keys, prefix - for descending"
// @Param       category   query string false "Category id, includes sub-categories"
// @Param       date_start query string false "Earliest date"
// @Param       date_end   query string false "Latest date"
// @Param       page       query int    false "Page number"
// @Param       page_size  query int    false "Items per page (default 50, max 1000)"
// @Success     200 {array}  models.Record "Records"
// @Failure     400 {object} ErrorResponse "Invalid filter"
// @Failure     401 {object} ErrorResponse "Unauthorized"
// @Failure     500 {object} ErrorResponse "Server error"
// @Router      /records [get]
func (h *RecordHandler) ListRecords(c *gin.Context) {
	if _, err := getPrincipal(c); err != nil {
		respondWithError(c, err)
		return
	}

	list, err := h.recordService.ListRecords(c.Request.URL.Query())
	if err != nil {
		respondWithError(c, err)
		return
	}

	respondWithListing(c, list)
}

// Subjects handles subject autocompletion
// @Summary     Record subjects
// @Description Distinct subject, category and contract combinations starting with query
// @Tags        records
// @Produce     json
// @Security    BearerAuth
// @Param       query query string false "Subject prefix"
// @Success     200 {array}  services.SubjectSuggestion "Suggestions"
// @Failure     401 {object} ErrorResponse "Unauthorized"
// @Failure     500 {object} ErrorResponse "Server error"
// @Router      /records/subjects [get]
func (h *RecordHandler) Subjects(c *gin.Context) {
	if _, err := getPrincipal(c); err != nil {
		respondWithError(c, err)
		return
	}

	subjects, err := h.recordService.Subjects(c.Query("query"))
	if err != nil {
		respondWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, subjects)
}

// AggregateRecords handles grouped sums over records
// @Summary     Aggregate records
// @Description Sum record amounts grouped by category (rolled up to the root), account, contract, subject or month. Other parameters filter first.
// @Tags        records
// @Produce     json
// @Security    BearerAuth
// @Param       group     query string true "category, account, contract, subject or month"
// @Param       aggregate query string true "sum"
// @Success     200 {array}  query.Bucket "Buckets ordered by value"
// @Failure     400 {object} ErrorResponse "Missing parameter or unsupported aggregation"
// @Failure     401 {object} ErrorResponse "Unauthorized"
// @Failure     500 {object} ErrorResponse "Server error"
// @Router      /records/aggregate [get]
func (h *RecordHandler) AggregateRecords(c *gin.Context) {
	if _, err := getPrincipal(c); err != nil {
		respondWithError(c, err)
		return
	}

	buckets, err := h.recordService.AggregateRecords(c.Request.URL.Query())
	if err != nil {
		respondWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, buckets)
}

// GetRecordByID handles retrieving a record by ID
// @Summary     Get record by ID
// @Tags        records
// @Produce     json
// @Security    BearerAuth
// @Param       id path string true "Record ID"
// @Success     200 {object} models.Record "Record details"
// @Failure     401 {object} ErrorResponse "Unauthorized"
// @Failure     404 {object} ErrorResponse "Record not found"
// @Failure     500 {object} ErrorResponse "Server error"
// @Router      /records/{id} [get]
func (h *RecordHandler) GetRecordByID(c *gin.Context) {
	if _, err := getPrincipal(c); err != nil {
		respondWithError(c, err)
		return
	}

	record, err := h.recordService.GetRecordByID(c.Param("id"))
	if err != nil {
		respondWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"record": record})
}

// UpdateRecord handles replacing a record
// @Summary     Update record
// @Tags        records
// @Accept      json
// @Produce     json
// @Security    BearerAuth
// @Param       id path string true "Record ID"
// @Param       request body RecordRequest true "Record details"
// @Success     200 {object} models.Record "Updated record"
// @Failure     400 {object} ErrorResponse "Invalid input"
// @Failure     401 {object} ErrorResponse "Unauthorized"
// @Failure     404 {object} ErrorResponse "Record not found"
// @Failure     500 {object} ErrorResponse "Server error"
// @Router      /records/{id} [put]
func (h *RecordHandler) UpdateRecord(c *gin.Context) {
	principal, err := getPrincipal(c)
	if err != nil {
		respondWithError(c, err)
		return
	}

	var req RecordRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondWithError(c, apperrors.WithMessage(apperrors.ErrInvalidInput, err.Error()))
		return
	}
	in, err := req.input()
	if err != nil {
		respondWithError(c, err)
		return
	}

	record, err := h.recordService.UpdateRecord(c.Param("id"), in)
	if err != nil {
		respondWithError(c, err)
		return
	}

	h.auditService.Log(principal, "UPDATE_RECORD", "record", record.ID, c.ClientIP(),
		map[string]any{"subject": record.Subject, "amount": record.Amount})

	c.JSON(http.StatusOK, gin.H{"record": record})
}

// DeleteRecord handles deleting a record
// @Summary     Delete record
// @Tags        records
// @Security    BearerAuth
// @Param       id path string true "Record ID"
// @Success     204 "Record deleted"
// @Failure     401 {object} ErrorResponse "Unauthorized"
// @Failure     404 {object} ErrorResponse "Record not found"
// @Failure     409 {object} ErrorResponse "Record is a counter booking"
// @Failure     500 {object} ErrorResponse "Server error"
// @Router      /records/{id} [delete]
func (h *RecordHandler) DeleteRecord(c *gin.Context) {
	principal, err := getPrincipal(c)
	if err != nil {
		respondWithError(c, err)
		return
	}

	id := c.Param("id")
	if err := h.recordService.DeleteRecord(id); err != nil {
		respondWithError(c, err)
		return
	}

	h.auditService.Log(principal, "DELETE_RECORD", "record", id, c.ClientIP(), nil)

	c.Status(http.StatusNoContent)
}
