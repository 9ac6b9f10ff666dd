package webapi

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http/httptest"
	"testing"
	"time"

	infraeventbus "github.com/amirasaad/ledger/infra/eventbus"
	infraeventstore "github.com/amirasaad/ledger/infra/eventstore"
	infrareadmodel "github.com/amirasaad/ledger/infra/readmodel"
	"github.com/amirasaad/ledger/pkg/app"
	"github.com/amirasaad/ledger/pkg/config"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/log"
	"github.com/stretchr/testify/suite"
)

type ApiTestSuite struct {
	suite.Suite
	app *fiber.App
}

// SetupTest builds the full application over the in-memory adapters with the
// projector subscribed, so commands are projected synchronously.
func (s *ApiTestSuite) SetupTest() {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	log.SetOutput(io.Discard)

	readModel := infrareadmodel.NewMemory()
	deps := &app.Deps{
		EventStore: infraeventstore.NewMemory(),
		ReadModel:  readModel.Repositories(),
		EventBus:   infraeventbus.NewWithMemory(logger),
		Logger:     logger,
	}
	cfg := &config.App{
		Projector: &config.Projector{CatchUp: false},
		Query:     &config.Query{TransactionLimit: 50, EventLimit: 100},
	}
	a := app.New(deps, cfg)
	s.Require().NoError(a.StartProjector(context.Background()))
	s.app = New(a)
}

func TestApiTestSuite(t *testing.T) {
	suite.Run(t, new(ApiTestSuite))
}

func (s *ApiTestSuite) request(method, target, body string) (int, map[string]any) {
	var reader io.Reader
	if body != "" {
		reader = bytes.NewReader([]byte(body))
	} else {
		reader = bytes.NewReader(nil)
	}
	req := httptest.NewRequest(method, target, reader)
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	resp, err := s.app.Test(req, 10000)
	s.Require().NoError(err)
	defer resp.Body.Close() //nolint:errcheck

	var decoded map[string]any
	raw, err := io.ReadAll(resp.Body)
	s.Require().NoError(err)
	if len(raw) > 0 {
		s.Require().NoError(json.Unmarshal(raw, &decoded), "body: %s", raw)
	}
	return resp.StatusCode, decoded
}

func (s *ApiTestSuite) createAccount(accountID string, balance float64) {
	body := fmt.Sprintf(
		`{"account_id":%q,"owner_name":"Test Owner","initial_balance":%.2f,"currency":"USD"}`,
		accountID, balance)
	status, _ := s.request("POST", "/commands/create-account", body)
	s.Require().Equal(fiber.StatusCreated, status)
}

func (s *ApiTestSuite) TestHealth() {
	status, body := s.request("GET", "/health", "")
	s.Equal(fiber.StatusOK, status)
	s.Equal("ok", body["status"])
	s.Equal("ledger", body["service"])
}

func (s *ApiTestSuite) TestCreateAccountVariants() {
	s.createAccount("acc-dup", 10)

	testCases := []struct {
		desc       string
		body       string
		wantStatus int
	}{
		{
			desc:       "success",
			body:       `{"account_id":"acc-1","owner_name":"Alice","initial_balance":100,"currency":"USD"}`,
			wantStatus: fiber.StatusCreated,
		},
		{
			desc:       "missing owner name",
			body:       `{"account_id":"acc-2","initial_balance":100}`,
			wantStatus: fiber.StatusBadRequest,
		},
		{
			desc:       "negative initial balance",
			body:       `{"account_id":"acc-3","owner_name":"Carol","initial_balance":-5}`,
			wantStatus: fiber.StatusBadRequest,
		},
		{
			desc:       "invalid body",
			body:       `{"account_id":123}`,
			wantStatus: fiber.StatusBadRequest,
		},
		{
			desc:       "duplicate account id",
			body:       `{"account_id":"acc-dup","owner_name":"Mallory","initial_balance":0}`,
			wantStatus: fiber.StatusConflict,
		},
	}

	for _, tc := range testCases {
		s.Run(tc.desc, func() {
			status, _ := s.request("POST", "/commands/create-account", tc.body)
			s.Equal(tc.wantStatus, status)
		})
	}
}

func (s *ApiTestSuite) TestDepositVariants() {
	s.createAccount("acc-1", 0)

	testCases := []struct {
		desc       string
		body       string
		wantStatus int
	}{
		{
			desc:       "success",
			body:       `{"account_id":"acc-1","amount":50}`,
			wantStatus: fiber.StatusCreated,
		},
		{
			desc:       "zero amount rejected at binding",
			body:       `{"account_id":"acc-1","amount":0}`,
			wantStatus: fiber.StatusBadRequest,
		},
		{
			desc:       "negative amount rejected at binding",
			body:       `{"account_id":"acc-1","amount":-10}`,
			wantStatus: fiber.StatusBadRequest,
		},
		{
			desc:       "unknown account",
			body:       `{"account_id":"ghost","amount":10}`,
			wantStatus: fiber.StatusNotFound,
		},
	}

	for _, tc := range testCases {
		s.Run(tc.desc, func() {
			status, _ := s.request("POST", "/commands/deposit", tc.body)
			s.Equal(tc.wantStatus, status)
		})
	}
}

func (s *ApiTestSuite) TestWithdrawVariants() {
	s.createAccount("acc-1", 100)

	testCases := []struct {
		desc       string
		body       string
		wantStatus int
	}{
		{
			desc:       "success",
			body:       `{"account_id":"acc-1","amount":40}`,
			wantStatus: fiber.StatusCreated,
		},
		{
			desc:       "insufficient funds",
			body:       `{"account_id":"acc-1","amount":1000}`,
			wantStatus: fiber.StatusUnprocessableEntity,
		},
		{
			desc:       "non-positive amount rejected at binding",
			body:       `{"account_id":"acc-1","amount":0}`,
			wantStatus: fiber.StatusBadRequest,
		},
		{
			desc:       "unknown account",
			body:       `{"account_id":"ghost","amount":10}`,
			wantStatus: fiber.StatusNotFound,
		},
	}

	for _, tc := range testCases {
		s.Run(tc.desc, func() {
			status, _ := s.request("POST", "/commands/withdraw", tc.body)
			s.Equal(tc.wantStatus, status)
		})
	}
}

func (s *ApiTestSuite) TestTransferVariants() {
	s.createAccount("acc-a", 500)
	s.createAccount("acc-b", 0)

	testCases := []struct {
		desc       string
		body       string
		wantStatus int
	}{
		{
			desc:       "success",
			body:       `{"from_account_id":"acc-a","to_account_id":"acc-b","amount":200}`,
			wantStatus: fiber.StatusCreated,
		},
		{
			desc:       "insufficient funds",
			body:       `{"from_account_id":"acc-a","to_account_id":"acc-b","amount":100000}`,
			wantStatus: fiber.StatusUnprocessableEntity,
		},
		{
			desc:       "non-positive amount is a business rule violation",
			body:       `{"from_account_id":"acc-a","to_account_id":"acc-b","amount":-5}`,
			wantStatus: fiber.StatusUnprocessableEntity,
		},
		{
			desc:       "same account",
			body:       `{"from_account_id":"acc-a","to_account_id":"acc-a","amount":10}`,
			wantStatus: fiber.StatusBadRequest,
		},
		{
			desc:       "unknown source account",
			body:       `{"from_account_id":"ghost","to_account_id":"acc-b","amount":10}`,
			wantStatus: fiber.StatusNotFound,
		},
		{
			desc:       "unknown destination account",
			body:       `{"from_account_id":"acc-a","to_account_id":"ghost","amount":10}`,
			wantStatus: fiber.StatusNotFound,
		},
	}

	for _, tc := range testCases {
		s.Run(tc.desc, func() {
			status, _ := s.request("POST", "/commands/transfer", tc.body)
			s.Equal(tc.wantStatus, status)
		})
	}
}

func (s *ApiTestSuite) TestTransferResponseShape() {
	s.createAccount("acc-a", 500)
	s.createAccount("acc-b", 0)

	status, body := s.request("POST", "/commands/transfer",
		`{"from_account_id":"acc-a","to_account_id":"acc-b","amount":75}`)
	s.Require().Equal(fiber.StatusCreated, status)

	data, ok := body["data"].(map[string]any)
	s.Require().True(ok, "data: %v", body)
	s.NotEmpty(data["transfer_id"])
	events, ok := data["events"].([]any)
	s.Require().True(ok)
	s.Len(events, 2)
}

func (s *ApiTestSuite) TestGetBalance() {
	s.createAccount("acc-1", 250)

	s.Run("found", func() {
		status, body := s.request("GET", "/accounts/acc-1", "")
		s.Require().Equal(fiber.StatusOK, status)
		data := body["data"].(map[string]any)
		s.Equal("acc-1", data["account_id"])
		s.InDelta(250.0, data["balance"].(float64), 1e-9)
	})

	s.Run("not found", func() {
		status, _ := s.request("GET", "/accounts/ghost", "")
		s.Equal(fiber.StatusNotFound, status)
	})
}

func (s *ApiTestSuite) TestGetTransactions() {
	s.createAccount("acc-1", 0)
	for i := 0; i < 3; i++ {
		status, _ := s.request("POST", "/commands/deposit",
			fmt.Sprintf(`{"account_id":"acc-1","amount":%d}`, (i+1)*10))
		s.Require().Equal(fiber.StatusCreated, status)
	}

	status, body := s.request("GET", "/accounts/acc-1/transactions?limit=2", "")
	s.Require().Equal(fiber.StatusOK, status)
	data := body["data"].(map[string]any)
	s.Equal("acc-1", data["account_id"])
	s.InDelta(2, data["total"].(float64), 0)
}

func (s *ApiTestSuite) TestGetBalanceAt() {
	s.createAccount("acc-1", 100)
	t0 := time.Now().UTC()
	time.Sleep(5 * time.Millisecond)
	status, _ := s.request("POST", "/commands/deposit", `{"account_id":"acc-1","amount":900}`)
	s.Require().Equal(fiber.StatusCreated, status)

	s.Run("reconstructs past balance", func() {
		status, body := s.request("GET",
			"/accounts/acc-1/balance-at?timestamp="+t0.Format(time.RFC3339Nano), "")
		s.Require().Equal(fiber.StatusOK, status)
		data := body["data"].(map[string]any)
		s.InDelta(100.0, data["balance"].(float64), 1e-9)
	})

	s.Run("missing timestamp", func() {
		status, _ := s.request("GET", "/accounts/acc-1/balance-at", "")
		s.Equal(fiber.StatusBadRequest, status)
	})

	s.Run("malformed timestamp", func() {
		status, _ := s.request("GET", "/accounts/acc-1/balance-at?timestamp=yesterday", "")
		s.Equal(fiber.StatusBadRequest, status)
	})

	s.Run("account did not exist yet", func() {
		before := t0.Add(-time.Hour).Format(time.RFC3339)
		status, _ := s.request("GET", "/accounts/acc-1/balance-at?timestamp="+before, "")
		s.Equal(fiber.StatusNotFound, status)
	})
}

func (s *ApiTestSuite) TestListEvents() {
	s.createAccount("acc-1", 0)
	status, _ := s.request("POST", "/commands/deposit", `{"account_id":"acc-1","amount":10}`)
	s.Require().Equal(fiber.StatusCreated, status)

	status, body := s.request("GET", "/events?limit=1", "")
	s.Require().Equal(fiber.StatusOK, status)
	data := body["data"].(map[string]any)
	s.InDelta(1, data["total"].(float64), 0)
}
