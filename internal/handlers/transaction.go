package handlers

import (
	"strings"

	"fraudguard/internal/models"
	"fraudguard/internal/services/transaction"
	"fraudguard/internal/utils"
	"fraudguard/internal/utils/response"

	"github.com/gofiber/fiber/v2"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

type TransactionHandler struct {
	service transaction.Service
	logger  *zap.Logger
}

func NewTransactionHandler(service transaction.Service, logger *zap.Logger) *TransactionHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &TransactionHandler{service: service, logger: logger}
}

type createTransactionRequest struct {
	Amount      decimal.Decimal `json:"amount"`
	Type        string          `json:"type"`
	Description string          `json:"description"`
	Metadata    models.JSON     `json:"metadata"`
}

type createAccountRequest struct {
	Currency string `json:"currency"`
}

// CreateTransaction handles POST /api/transactions for the authenticated user.
func (h *TransactionHandler) CreateTransaction(c *fiber.Ctx) error {
	claims, err := utils.GetUserClaims(c)
	if err != nil {
		return response.Unauthorized(c, "unauthorized")
	}

	var input createTransactionRequest
	if err := c.BodyParser(&input); err != nil {
		return response.BadRequest(c, "invalid request body")
	}

	result, err := h.service.CreateTransaction(c.UserContext(), transaction.CreateRequest{
		UserID:      claims.UserID,
		Amount:      input.Amount,
		Type:        models.TransactionType(strings.ToUpper(strings.TrimSpace(input.Type))),
		Description: input.Description,
		Metadata:    input.Metadata,
	})
	if err != nil {
		return writeError(c, h.logger, err)
	}

	return response.Created(c, result)
}

// ListTransactions handles GET /api/transactions?page&limit&status.
// status takes a comma-separated list.
func (h *TransactionHandler) ListTransactions(c *fiber.Ctx) error {
	claims, err := utils.GetUserClaims(c)
	if err != nil {
		return response.Unauthorized(c, "unauthorized")
	}

	p := utils.GetPagination(c, transaction.DefaultHistoryLimit, transaction.MaxHistoryLimit)
	txs, err := h.service.ListTransactions(c.UserContext(), claims.UserID, transaction.HistoryQuery{
		Limit:    p.Limit,
		Offset:   p.Offset,
		Statuses: parseStatuses(c.Query("status")),
	})
	if err != nil {
		return writeError(c, h.logger, err)
	}

	return response.Success(c, utils.NewPaginatedResponse(txs, p))
}

// GetBalance handles GET /api/balance.
func (h *TransactionHandler) GetBalance(c *fiber.Ctx) error {
	claims, err := utils.GetUserClaims(c)
	if err != nil {
		return response.Unauthorized(c, "unauthorized")
	}

	view, err := h.service.GetBalance(c.UserContext(), claims.UserID)
	if err != nil {
		return writeError(c, h.logger, err)
	}

	return response.Success(c, view)
}

// CreateAccount handles POST /api/accounts, opening the caller's account.
func (h *TransactionHandler) CreateAccount(c *fiber.Ctx) error {
	claims, err := utils.GetUserClaims(c)
	if err != nil {
		return response.Unauthorized(c, "unauthorized")
	}

	var input createAccountRequest
	if len(c.Body()) > 0 {
		if err := c.BodyParser(&input); err != nil {
			return response.BadRequest(c, "invalid request body")
		}
	}

	account, err := h.service.CreateAccount(c.UserContext(), claims.UserID, input.Currency)
	if err != nil {
		return writeError(c, h.logger, err)
	}

	return response.Created(c, account)
}

func parseStatuses(raw string) []models.TransactionStatus {
	var out []models.TransactionStatus
	for _, part := range strings.Split(raw, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, models.TransactionStatus(strings.ToUpper(part)))
		}
	}
	return out
}
