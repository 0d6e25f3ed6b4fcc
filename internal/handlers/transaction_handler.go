package handlers

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	apperrors "budgetwatch/internal/errors"
	"budgetwatch/internal/models"
	"budgetwatch/internal/pagination"
	"budgetwatch/internal/services"
)

// TransactionHandler handles transaction-related requests.
type TransactionHandler struct {
	ledgerService services.LedgerServicer
}

// NewTransactionHandler creates a new TransactionHandler.
func NewTransactionHandler(ledgerService services.LedgerServicer) *TransactionHandler {
	return &TransactionHandler{ledgerService: ledgerService}
}

// CreateTransactionRequest represents the request payload for creating a transaction.
type CreateTransactionRequest struct {
	CategoryID  *uint                  `json:"category_id"`
	Type        models.TransactionType `json:"type" binding:"required,transaction_type"`
	Amount      int64                  `json:"amount" binding:"required,gt=0"`
	Description string                 `json:"description" binding:"max=500"`
	Date        time.Time              `json:"date" binding:"required"`
}

// TransactionListQuery holds pagination and filter query parameters.
type TransactionListQuery struct {
	pagination.PageRequest
	From       *time.Time `form:"from" time_format:"2006-01-02"`
	To         *time.Time `form:"to" time_format:"2006-01-02"`
	Type       *string    `form:"type"`
	CategoryID *uint      `form:"category_id"`
}

// CreateTransaction handles the creation of a new transaction.
// @Summary     Create a transaction
// @Tags        transactions
// @Accept      json
// @Produce     json
// @Security    BearerAuth
// @Param       request body CreateTransactionRequest true "Transaction details"
// @Success     201 {object} models.Transaction "Transaction created"
// @Failure     400 {object} ErrorResponse "Invalid input"
// @Failure     404 {object} ErrorResponse "Category not found"
// @Router      /transactions [post]
func (h *TransactionHandler) CreateTransaction(c *gin.Context) {
	userID, err := getUserID(c)
	if err != nil {
		respondWithError(c, err)
		return
	}

	var req CreateTransactionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondWithError(c, apperrors.WithMessage(apperrors.ErrInvalidInput, err.Error()))
		return
	}

	tx, err := h.ledgerService.CreateTransaction(userID, req.CategoryID, req.Type, req.Amount, req.Description, req.Date)
	if err != nil {
		respondWithError(c, err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{"transaction": tx})
}

// GetTransactions handles listing transactions for the authenticated user.
// @Summary     Get transactions
// @Tags        transactions
// @Produce     json
// @Security    BearerAuth
// @Param       from        query string false "Start date (YYYY-MM-DD)"
// @Param       to          query string false "End date (YYYY-MM-DD)"
// @Param       type        query string false "Transaction type (income/expense)"
// @Param       category_id query int    false "Filter by category"
// @Param       page        query int    false "Page number (default 1)"
// @Param       page_size   query int    false "Items per page (default 20, max 100)"
// @Success     200 {object} pagination.PageResponse[models.Transaction] "Paginated transactions"
// @Failure     401 {object} ErrorResponse "Unauthorized"
// @Router      /transactions [get]
func (h *TransactionHandler) GetTransactions(c *gin.Context) {
	userID, err := getUserID(c)
	if err != nil {
		respondWithError(c, err)
		return
	}

	var query TransactionListQuery
	if err := c.ShouldBindQuery(&query); err != nil {
		respondWithError(c, apperrors.WithMessage(apperrors.ErrInvalidInput, err.Error()))
		return
	}

	filter := services.TransactionFilter{
		FromDate:   query.From,
		ToDate:     query.To,
		CategoryID: query.CategoryID,
	}
	if query.Type != nil {
		txType := models.TransactionType(*query.Type)
		if txType != models.TransactionTypeIncome && txType != models.TransactionTypeExpense {
			respondWithError(c, apperrors.WithMessage(apperrors.ErrInvalidInput, "Invalid transaction type"))
			return
		}
		filter.Type = &txType
	}

	result, err := h.ledgerService.GetUserTransactions(userID, query.PageRequest, filter)
	if err != nil {
		respondWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, result)
}

// GetTransactionByID handles fetching a single transaction.
// @Summary     Get a transaction
// @Tags        transactions
// @Produce     json
// @Security    BearerAuth
// @Param       id path int true "Transaction ID"
// @Success     200 {object} models.Transaction "Transaction"
// @Failure     404 {object} ErrorResponse "Transaction not found"
// @Router      /transactions/{id} [get]
func (h *TransactionHandler) GetTransactionByID(c *gin.Context) {
	userID, err := getUserID(c)
	if err != nil {
		respondWithError(c, err)
		return
	}

	transactionID, err := parsePathID(c, "id")
	if err != nil {
		respondWithError(c, err)
		return
	}

	tx, err := h.ledgerService.GetTransactionByID(userID, transactionID)
	if err != nil {
		respondWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"transaction": tx})
}

// DeleteTransaction handles deleting a transaction.
// @Summary     Delete a transaction
// @Tags        transactions
// @Produce     json
// @Security    BearerAuth
// @Param       id path int true "Transaction ID"
// @Success     204 "Transaction deleted"
// @Failure     404 {object} ErrorResponse "Transaction not found"
// @Router      /transactions/{id} [delete]
func (h *TransactionHandler) DeleteTransaction(c *gin.Context) {
	userID, err := getUserID(c)
	if err != nil {
		respondWithError(c, err)
		return
	}

	transactionID, err := parsePathID(c, "id")
	if err != nil {
		respondWithError(c, err)
		return
	}

	if err := h.ledgerService.DeleteTransaction(userID, transactionID); err != nil {
		respondWithError(c, err)
		return
	}

	c.Status(http.StatusNoContent)
}
