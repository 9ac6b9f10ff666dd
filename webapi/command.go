// Package webapi exposes the command and query surfaces over Fiber. The
// handlers are thin I/O shims: every balance-affecting decision lives in the
// ledger service, every read in the query service.
package webapi

import (
	"github.com/amirasaad/ledger/pkg/service/ledger"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/log"
)

// CreateAccountRequest is the body of POST /commands/create-account.
type CreateAccountRequest struct {
	AccountID      string  `json:"account_id" validate:"required"`
	OwnerName      string  `json:"owner_name" validate:"required"`
	InitialBalance float64 `json:"initial_balance" validate:"gte=0"`
	Currency       string  `json:"currency" validate:"omitempty,len=3,uppercase"`
}

// DepositRequest is the body of POST /commands/deposit.
type DepositRequest struct {
	AccountID   string  `json:"account_id" validate:"required"`
	Amount      float64 `json:"amount" validate:"required,gt=0"`
	Description string  `json:"description"`
}

// WithdrawRequest is the body of POST /commands/withdraw.
type WithdrawRequest struct {
	AccountID   string  `json:"account_id" validate:"required"`
	Amount      float64 `json:"amount" validate:"required,gt=0"`
	Description string  `json:"description"`
}

// TransferRequest is the body of POST /commands/transfer. The amount bound
// is checked by the ledger service so a non-positive amount is rejected as a
// business rule (422), not a malformed request.
type TransferRequest struct {
	FromAccountID string  `json:"from_account_id" validate:"required"`
	ToAccountID   string  `json:"to_account_id" validate:"required"`
	Amount        float64 `json:"amount" validate:"required"`
	Description   string  `json:"description"`
}

// TransferEventDTO identifies one leg of an accepted transfer.
type TransferEventDTO struct {
	EventID string `json:"event_id"`
	Type    string `json:"type"`
}

// CommandRoutes registers the command surface.
func CommandRoutes(app *fiber.App, svc *ledger.Service) {
	app.Post("/commands/create-account", CreateAccount(svc))
	app.Post("/commands/deposit", Deposit(svc))
	app.Post("/commands/withdraw", Withdraw(svc))
	app.Post("/commands/transfer", Transfer(svc))
}

// CreateAccount handles POST /commands/create-account.
// @Summary Create a new account
// @Tags commands
// @Accept json
// @Produce json
// @Param request body CreateAccountRequest true "New account"
// @Success 201 {object} Response
// @Failure 400 {object} ProblemDetails
// @Failure 409 {object} ProblemDetails
// @Router /commands/create-account [post]
func CreateAccount(svc *ledger.Service) fiber.Handler {
	return func(c *fiber.Ctx) error {
		input, err := BindAndValidate[CreateAccountRequest](c)
		if err != nil {
			return nil
		}
		eventID, err := svc.CreateAccount(
			c.Context(), input.AccountID, input.OwnerName, input.InitialBalance, input.Currency)
		if err != nil {
			log.Errorf("Failed to create account: %v", err)
			return ProblemDetailsJSON(c, ErrorToStatusCode(err), "Failed to create account", err.Error())
		}
		return c.Status(fiber.StatusCreated).JSON(Response{
			Status:  fiber.StatusCreated,
			Message: "Account created",
			Data:    fiber.Map{"event_id": eventID},
		})
	}
}

// Deposit handles POST /commands/deposit.
// @Summary Deposit funds into an account
// @Tags commands
// @Accept json
// @Produce json
// @Param request body DepositRequest true "Deposit"
// @Success 201 {object} Response
// @Failure 400 {object} ProblemDetails
// @Failure 404 {object} ProblemDetails
// @Router /commands/deposit [post]
func Deposit(svc *ledger.Service) fiber.Handler {
	return func(c *fiber.Ctx) error {
		input, err := BindAndValidate[DepositRequest](c)
		if err != nil {
			return nil
		}
		eventID, err := svc.Deposit(c.Context(), input.AccountID, input.Amount, input.Description)
		if err != nil {
			log.Errorf("Failed to deposit: %v", err)
			return ProblemDetailsJSON(c, ErrorToStatusCode(err), "Failed to deposit", err.Error())
		}
		return c.Status(fiber.StatusCreated).JSON(Response{
			Status:  fiber.StatusCreated,
			Message: "Deposit accepted",
			Data:    fiber.Map{"event_id": eventID},
		})
	}
}

// Withdraw handles POST /commands/withdraw.
// @Summary Withdraw funds from an account
// @Tags commands
// @Accept json
// @Produce json
// @Param request body WithdrawRequest true "Withdrawal"
// @Success 201 {object} Response
// @Failure 400 {object} ProblemDetails
// @Failure 404 {object} ProblemDetails
// @Failure 422 {object} ProblemDetails
// @Router /commands/withdraw [post]
func Withdraw(svc *ledger.Service) fiber.Handler {
	return func(c *fiber.Ctx) error {
		input, err := BindAndValidate[WithdrawRequest](c)
		if err != nil {
			return nil
		}
		eventID, err := svc.Withdraw(c.Context(), input.AccountID, input.Amount, input.Description)
		if err != nil {
			log.Errorf("Failed to withdraw: %v", err)
			return ProblemDetailsJSON(c, ErrorToStatusCode(err), "Failed to withdraw", err.Error())
		}
		return c.Status(fiber.StatusCreated).JSON(Response{
			Status:  fiber.StatusCreated,
			Message: "Withdrawal accepted",
			Data:    fiber.Map{"event_id": eventID},
		})
	}
}

// Transfer handles POST /commands/transfer.
// @Summary Transfer funds between accounts
// @Tags commands
// @Accept json
// @Produce json
// @Param request body TransferRequest true "Transfer"
// @Success 201 {object} Response
// @Failure 400 {object} ProblemDetails
// @Failure 404 {object} ProblemDetails
// @Failure 422 {object} ProblemDetails
// @Router /commands/transfer [post]
func Transfer(svc *ledger.Service) fiber.Handler {
	return func(c *fiber.Ctx) error {
		input, err := BindAndValidate[TransferRequest](c)
		if err != nil {
			return nil
		}
		result, err := svc.Transfer(
			c.Context(), input.FromAccountID, input.ToAccountID, input.Amount, input.Description)
		if err != nil {
			log.Errorf("Failed to transfer: %v", err)
			return ProblemDetailsJSON(c, ErrorToStatusCode(err), "Failed to transfer", err.Error())
		}
		return c.Status(fiber.StatusCreated).JSON(Response{
			Status:  fiber.StatusCreated,
			Message: "Transfer accepted",
			Data: fiber.Map{
				"transfer_id": result.TransferID,
				"events": []TransferEventDTO{
					{EventID: result.WithdrawalEventID.String(), Type: "MoneyWithdrawn"},
					{EventID: result.DepositEventID.String(), Type: "MoneyDeposited"},
				},
			},
		})
	}
}
