package handlers

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	apperrors "finbook/internal/errors"
	"finbook/internal/models"
	"finbook/internal/services"
)

// TransactionHandler handles requests on imported bank transactions.
type TransactionHandler struct {
	transactionService services.TransactionServicer
	auditService       services.AuditServicer
}

// NewTransactionHandler creates a new TransactionHandler.
func NewTransactionHandler(transactionService services.TransactionServicer, auditService services.AuditServicer) *TransactionHandler {
	return &TransactionHandler{transactionService: transactionService, auditService: auditService}
}

// ListTransactions handles retrieving transactions
// @Summary     List transactions
// @Description Filter with field__comparator parameters, search with q, sort with ordering. Paginated when page is given.
// @Tags        transactions
// @Produce     json
// @Security    BearerAuth
// @Param       q            query string false "Quick search over creditor, type and purpose"
// @Param       ordering     query string false "Comma separated sort keys, prefix - for descending"
// @Param       account_iban query string false "IBAN prefix of the owning account"
// @Param       is_duplicate query bool   false "Only paired counter bookings"
// @Param       page         query int    false "Page number"
// @Param       page_size    query int    false "Items per page (default 50, max 1000)"
// @Success     200 {array}  models.Transaction "Transactions with linked records"
// @Failure     400 {object} ErrorResponse "Invalid filter"
// @Failure     401 {object} ErrorResponse "Unauthorized"
// @Failure     500 {object} ErrorResponse "Server error"
// @Router      /transactions [get]
func (h *TransactionHandler) ListTransactions(c *gin.Context) {
	if _, err := getPrincipal(c); err != nil {
		respondWithError(c, err)
		return
	}

	list, err := h.transactionService.ListTransactions(c.Request.URL.Query())
	if err != nil {
		respondWithError(c, err)
		return
	}

	respondWithListing(c, list)
}

// GetTransactionByID handles retrieving a transaction by ID
// @Summary     Get transaction by ID
// @Tags        transactions
// @Produce     json
// @Security    BearerAuth
// @Param       id path string true "Transaction ID"
// @Success     200 {object} models.Transaction "Transaction details"
// @Failure     401 {object} ErrorResponse "Unauthorized"
// @Failure     404 {object} ErrorResponse "Transaction not found"
// @Failure     500 {object} ErrorResponse "Server error"
// @Router      /transactions/{id} [get]
func (h *TransactionHandler) GetTransactionByID(c *gin.Context) {
	if _, err := getPrincipal(c); err != nil {
		respondWithError(c, err)
		return
	}

	transaction, err := h.transactionService.GetTransactionByID(c.Param("id"))
	if err != nil {
		respondWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"transaction": transaction})
}

// DeleteTransaction handles deleting a transaction
// @Summary     Delete transaction
// @Tags        transactions
// @Security    BearerAuth
// @Param       id path string true "Transaction ID"
// @Success     204 "Transaction deleted"
// @Failure     401 {object} ErrorResponse "Unauthorized"
// @Failure     404 {object} ErrorResponse "Transaction not found"
// @Failure     500 {object} ErrorResponse "Server error"
// @Router      /transactions/{id} [delete]
func (h *TransactionHandler) DeleteTransaction(c *gin.Context) {
	principal, err := getPrincipal(c)
	if err != nil {
		respondWithError(c, err)
		return
	}

	id := c.Param("id")
	if err := h.transactionService.DeleteTransaction(id); err != nil {
		respondWithError(c, err)
		return
	}

	h.auditService.Log(principal, "DELETE_TRANSACTION", "transaction", id, c.ClientIP(), nil)

	c.Status(http.StatusNoContent)
}

// transition applies one of the flag operations and writes the result.
func (h *TransactionHandler) transition(c *gin.Context, action string, apply func(id string) (*models.Transaction, error)) {
	principal, err := getPrincipal(c)
	if err != nil {
		respondWithError(c, err)
		return
	}

	transaction, err := apply(c.Param("id"))
	if err != nil {
		respondWithError(c, err)
		return
	}

	h.auditService.Log(principal, action, "transaction", transaction.ID, c.ClientIP(), nil)

	c.JSON(http.StatusOK, gin.H{"transaction": transaction})
}

// Hide handles ignoring a transaction
// @Summary     Hide transaction
// @Description Mark a transaction without linked records as ignored
// @Tags        transactions
// @Produce     json
// @Security    BearerAuth
// @Param       id path string true "Transaction ID"
// @Success     200 {object} models.Transaction "Hidden transaction"
// @Failure     401 {object} ErrorResponse "Unauthorized"
// @Failure     404 {object} ErrorResponse "Transaction not found"
// @Failure     409 {object} ErrorResponse "Already imported"
// @Router      /transactions/{id}/hide [post]
func (h *TransactionHandler) Hide(c *gin.Context) {
	h.transition(c, "HIDE_TRANSACTION", h.transactionService.Hide)
}

// Show handles un-ignoring a transaction
// @Summary     Show transaction
// @Tags        transactions
// @Produce     json
// @Security    BearerAuth
// @Param       id path string true "Transaction ID"
// @Success     200 {object} models.Transaction "Visible transaction"
// @Failure     401 {object} ErrorResponse "Unauthorized"
// @Failure     404 {object} ErrorResponse "Transaction not found"
// @Failure     409 {object} ErrorResponse "Not ignored"
// @Router      /transactions/{id}/show [post]
func (h *TransactionHandler) Show(c *gin.Context) {
	h.transition(c, "SHOW_TRANSACTION", h.transactionService.Show)
}

// Bookmark handles highlighting a transaction
// @Summary     Bookmark transaction
// @Tags        transactions
// @Produce     json
// @Security    BearerAuth
// @Param       id path string true "Transaction ID"
// @Success     200 {object} models.Transaction "Highlighted transaction"
// @Failure     401 {object} ErrorResponse "Unauthorized"
// @Failure     404 {object} ErrorResponse "Transaction not found"
// @Router      /transactions/{id}/bookmark [post]
func (h *TransactionHandler) Bookmark(c *gin.Context) {
	h.transition(c, "BOOKMARK_TRANSACTION", h.transactionService.Bookmark)
}

// Unbookmark handles removing a highlight
// @Summary     Unbookmark transaction
// @Tags        transactions
// @Produce     json
// @Security    BearerAuth
// @Param       id path string true "Transaction ID"
// @Success     200 {object} models.Transaction "Transaction"
// @Failure     401 {object} ErrorResponse "Unauthorized"
// @Failure     404 {object} ErrorResponse "Transaction not found"
// @Router      /transactions/{id}/unbookmark [post]
func (h *TransactionHandler) Unbookmark(c *gin.Context) {
	h.transition(c, "UNBOOKMARK_TRANSACTION", h.transactionService.Unbookmark)
}

// SetRecords handles replacing the records linked to a transaction
// @Summary     Set linked records
// @Tags        transactions
// @Accept      json
// @Produce     json
// @Security    BearerAuth
// @Param       id      path string   true "Transaction ID"
// @Param       request body []string true "Record IDs"
// @Success     200 {object} models.Transaction "Transaction with its new records"
// @Failure     400 {object} ErrorResponse "Invalid input"
// @Failure     401 {object} ErrorResponse "Unauthorized"
// @Failure     404 {object} ErrorResponse "Transaction or record not found"
// @Router      /transactions/{id}/records [post]
func (h *TransactionHandler) SetRecords(c *gin.Context) {
	principal, err := getPrincipal(c)
	if err != nil {
		respondWithError(c, err)
		return
	}

	var recordIDs []string
	if err := c.ShouldBindJSON(&recordIDs); err != nil {
		respondWithError(c, apperrors.WithMessage(apperrors.ErrInvalidInput, err.Error()))
		return
	}

	transaction, err := h.transactionService.SetRecords(c.Param("id"), recordIDs)
	if err != nil {
		respondWithError(c, err)
		return
	}

	h.auditService.Log(principal, "SET_TRANSACTION_RECORDS", "transaction", transaction.ID, c.ClientIP(),
		map[string]any{"records": recordIDs})

	c.JSON(http.StatusOK, gin.H{"transaction": transaction})
}

// LinkRecord handles linking one record
// @Summary     Link record
// @Tags        transactions
// @Produce     json
// @Security    BearerAuth
// @Param       id       path string true "Transaction ID"
// @Param       recordId path string true "Record ID"
// @Success     200 {object} models.Transaction "Transaction with linked records"
// @Failure     401 {object} ErrorResponse "Unauthorized"
// @Failure     404 {object} ErrorResponse "Transaction or record not found"
// @Router      /transactions/{id}/records/{recordId} [post]
func (h *TransactionHandler) LinkRecord(c *gin.Context) {
	principal, err := getPrincipal(c)
	if err != nil {
		respondWithError(c, err)
		return
	}

	recordID := c.Param("recordId")
	transaction, err := h.transactionService.LinkRecord(c.Param("id"), recordID)
	if err != nil {
		respondWithError(c, err)
		return
	}

	h.auditService.Log(principal, "LINK_RECORD", "transaction", transaction.ID, c.ClientIP(),
		map[string]any{"record_id": recordID})

	c.JSON(http.StatusOK, gin.H{"transaction": transaction})
}

// UnlinkRecord handles unlinking one record
// @Summary     Unlink record
// @Tags        transactions
// @Produce     json
// @Security    BearerAuth
// @Param       id       path string true "Transaction ID"
// @Param       recordId path string true "Record ID"
// @Success     200 {object} models.Transaction "Transaction with remaining records"
// @Failure     401 {object} ErrorResponse "Unauthorized"
// @Failure     404 {object} ErrorResponse "Transaction or record not found"
// @Failure     409 {object} ErrorResponse "Not linked"
// @Router      /transactions/{id}/records/{recordId} [delete]
func (h *TransactionHandler) UnlinkRecord(c *gin.Context) {
	principal, err := getPrincipal(c)
	if err != nil {
		respondWithError(c, err)
		return
	}

	recordID := c.Param("recordId")
	transaction, err := h.transactionService.UnlinkRecord(c.Param("id"), recordID)
	if err != nil {
		respondWithError(c, err)
		return
	}

	h.auditService.Log(principal, "UNLINK_RECORD", "transaction", transaction.ID, c.ClientIP(),
		map[string]any{"record_id": recordID})

	c.JSON(http.StatusOK, gin.H{"transaction": transaction})
}

// PairCounterBooking handles marking two transactions as offsetting
// @Summary     Pair counter bookings
// @Description Mark exactly two transactions of the same account as offsetting each other
// @Tags        transactions
// @Accept      json
// @Security    BearerAuth
// @Param       request body []string true "Two transaction IDs"
// @Success     204 "Paired"
// @Failure     400 {object} ErrorResponse "Invalid input"
// @Failure     401 {object} ErrorResponse "Unauthorized"
// @Failure     404 {object} ErrorResponse "Transaction not found"
// @Router      /transactions/counter-booking [post]
func (h *TransactionHandler) PairCounterBooking(c *gin.Context) {
	principal, err := getPrincipal(c)
	if err != nil {
		respondWithError(c, err)
		return
	}

	var ids []string
	if err := c.ShouldBindJSON(&ids); err != nil {
		respondWithError(c, apperrors.WithMessage(apperrors.ErrInvalidInput, err.Error()))
		return
	}
	if len(ids) != 2 {
		respondWithError(c, apperrors.WithMessage(apperrors.ErrValidation, "exactly two transaction ids are required"))
		return
	}

	if err := h.transactionService.PairCounterBooking(ids[0], ids[1]); err != nil {
		respondWithError(c, err)
		return
	}

	h.auditService.Log(principal, "PAIR_COUNTER_BOOKING", "transaction", ids[0], c.ClientIP(),
		map[string]any{"counter_to": ids[1]})

	c.Status(http.StatusNoContent)
}

// FindDuplicates handles listing suspected duplicate imports
// @Summary     Duplicate transactions
// @Description Groups of transactions sharing value date, purpose and amount
// @Tags        transactions
// @Produce     json
// @Security    BearerAuth
// @Param       min_count query int false "Minimum group size (default 2)"
// @Success     200 {array}  services.DuplicateGroup "Duplicate groups"
// @Failure     400 {object} ErrorResponse "Invalid input"
// @Failure     401 {object} ErrorResponse "Unauthorized"
// @Router      /transactions/duplicates [get]
func (h *TransactionHandler) FindDuplicates(c *gin.Context) {
	if _, err := getPrincipal(c); err != nil {
		respondWithError(c, err)
		return
	}

	minCount, err := queryInt(c, "min_count", services.DefaultDuplicateMinimum)
	if err != nil {
		respondWithError(c, err)
		return
	}

	groups, err := h.transactionService.FindDuplicates(minCount)
	if err != nil {
		respondWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, groups)
}

// SuggestRecords handles suggesting records for a transaction
// @Summary     Record suggestions
// @Description Unlinked records with the same absolute amount near the booking date, best subject match first
// @Tags        transactions
// @Produce     json
// @Security    BearerAuth
// @Param       id    path  string true  "Transaction ID"
// @Param       limit query int    false "Maximum suggestions (default 10)"
// @Success     200 {array}  services.Suggestion "Suggestions"
// @Failure     401 {object} ErrorResponse "Unauthorized"
// @Failure     404 {object} ErrorResponse "Transaction not found"
// @Router      /transactions/{id}/suggestions [get]
func (h *TransactionHandler) SuggestRecords(c *gin.Context) {
	if _, err := getPrincipal(c); err != nil {
		respondWithError(c, err)
		return
	}

	limit, err := queryInt(c, "limit", services.DefaultSuggestionLimit)
	if err != nil {
		respondWithError(c, err)
		return
	}

	suggestions, err := h.transactionService.SuggestRecords(c.Param("id"), limit)
	if err != nil {
		respondWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, suggestions)
}

func queryInt(c *gin.Context, name string, fallback int) (int, error) {
	raw := c.Query(name)
	if raw == "" {
		return fallback, nil
	}
	v, err := strconv.Atoi(raw)
	if err != nil || v < 1 {
		return 0, apperrors.WithMessage(apperrors.ErrInvalidInput, name+" must be a positive integer")
	}
	return v, nil
}
