package webapi

import (
	"time"

	"github.com/amirasaad/ledger/pkg/config"
	"github.com/amirasaad/ledger/pkg/service/query"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/log"
)

// QueryRoutes registers the query surface.
func QueryRoutes(app *fiber.App, svc *query.Service, cfg *config.Query) {
	app.Get("/accounts/:id", GetBalance(svc))
	app.Get("/accounts/:id/transactions", GetTransactions(svc, cfg.TransactionLimit))
	app.Get("/accounts/:id/balance-at", GetBalanceAt(svc))
	app.Get("/events", ListEvents(svc, cfg.EventLimit))
}

// HealthRoutes registers the liveness endpoint.
func HealthRoutes(app *fiber.App) {
	app.Get("/health", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{"status": "ok", "service": "ledger"})
	})
}

// GetBalance handles GET /accounts/:id.
// @Summary Current account balance
// @Tags queries
// @Produce json
// @Param id path string true "Account ID"
// @Success 200 {object} Response
// @Failure 404 {object} ProblemDetails
// @Router /accounts/{id} [get]
func GetBalance(svc *query.Service) fiber.Handler {
	return func(c *fiber.Ctx) error {
		row, err := svc.GetCurrentBalance(c.Context(), c.Params("id"))
		if err != nil {
			return ProblemDetailsJSON(c, ErrorToStatusCode(err), "Account not found", err.Error())
		}
		return c.JSON(Response{Status: fiber.StatusOK, Message: "Current balance", Data: row})
	}
}

// GetTransactions handles GET /accounts/:id/transactions.
// @Summary Transaction history, newest first
// @Tags queries
// @Produce json
// @Param id path string true "Account ID"
// @Param limit query int false "Maximum rows"
// @Success 200 {object} Response
// @Router /accounts/{id}/transactions [get]
func GetTransactions(svc *query.Service, defaultLimit int) fiber.Handler {
	return func(c *fiber.Ctx) error {
		accountID := c.Params("id")
		limit := c.QueryInt("limit", defaultLimit)
		txs, err := svc.GetTransactionHistory(c.Context(), accountID, limit)
		if err != nil {
			log.Errorf("Failed to list transactions: %v", err)
			return ProblemDetailsJSON(c, ErrorToStatusCode(err), "Failed to list transactions", err.Error())
		}
		return c.JSON(Response{
			Status:  fiber.StatusOK,
			Message: "Transaction history",
			Data: fiber.Map{
				"account_id":   accountID,
				"transactions": txs,
				"total":        len(txs),
			},
		})
	}
}

// GetBalanceAt handles GET /accounts/:id/balance-at?timestamp=<RFC 3339>.
// It replays the raw event log up to the bound, bypassing the read model.
// @Summary Balance as of a past instant
// @Tags queries
// @Produce json
// @Param id path string true "Account ID"
// @Param timestamp query string true "ISO-8601 timestamp"
// @Success 200 {object} Response
// @Failure 400 {object} ProblemDetails
// @Failure 404 {object} ProblemDetails
// @Router /accounts/{id}/balance-at [get]
func GetBalanceAt(svc *query.Service) fiber.Handler {
	return func(c *fiber.Ctx) error {
		raw := c.Query("timestamp")
		if raw == "" {
			return ProblemDetailsJSON(c, fiber.StatusBadRequest,
				"Timestamp is required", "provide an ISO-8601 timestamp query parameter")
		}
		at, err := time.Parse(time.RFC3339, raw)
		if err != nil {
			return ProblemDetailsJSON(c, fiber.StatusBadRequest, "Invalid timestamp", err.Error())
		}
		result, err := svc.GetBalanceAt(c.Context(), c.Params("id"), at)
		if err != nil {
			return ProblemDetailsJSON(c, ErrorToStatusCode(err), "Balance reconstruction failed", err.Error())
		}
		return c.JSON(Response{Status: fiber.StatusOK, Message: "Balance at timestamp", Data: result})
	}
}

// ListEvents handles GET /events.
// @Summary Raw event audit listing, newest first
// @Tags queries
// @Produce json
// @Param limit query int false "Maximum rows"
// @Success 200 {object} Response
// @Router /events [get]
func ListEvents(svc *query.Service, defaultLimit int) fiber.Handler {
	return func(c *fiber.Ctx) error {
		limit := c.QueryInt("limit", defaultLimit)
		events, err := svc.ListEvents(c.Context(), limit)
		if err != nil {
			log.Errorf("Failed to list events: %v", err)
			return ProblemDetailsJSON(c, ErrorToStatusCode(err), "Failed to list events", err.Error())
		}
		return c.JSON(Response{
			Status:  fiber.StatusOK,
			Message: "Event log",
			Data: fiber.Map{
				"events": events,
				"total":  len(events),
			},
		})
	}
}
