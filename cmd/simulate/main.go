// Command simulate generates continuous banking traffic against a running
// ledger API: account creation, deposits, withdrawals, and transfers, with
// a statistics summary on exit.
package main

import (
	"bytes"
	"encoding/json"
	"flag"
	"fmt"
	"math/rand"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/fatih/color"
)

type simulator struct {
	baseURL  string
	client   *http.Client
	accounts []string

	total   int
	success int
	failed  int
}

func main() {
	baseURL := flag.String("url", "http://localhost:4000", "ledger API base URL")
	accountCount := flag.Int("accounts", 10, "number of accounts to create")
	interval := flag.Duration("interval", time.Second, "delay between operations")
	duration := flag.Duration("duration", 5*time.Minute, "total run time (0 for infinite)")
	flag.Parse()

	sim := &simulator{
		baseURL: *baseURL,
		client:  &http.Client{Timeout: 10 * time.Second},
	}

	color.Cyan("Ledger traffic simulation against %s", *baseURL)

	for i := 0; i < *accountCount; i++ {
		id := fmt.Sprintf("sim-acc-%03d", i)
		initial := float64(1000 + rand.Intn(9000))
		if sim.post("/commands/create-account", map[string]any{
			"account_id":      id,
			"owner_name":      fmt.Sprintf("Simulated Owner %d", i),
			"initial_balance": initial,
			"currency":        "USD",
		}) {
			color.Green("created account %s with $%.2f", id, initial)
		}
		sim.accounts = append(sim.accounts, id)
	}

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)

	var deadline <-chan time.Time
	if *duration > 0 {
		deadline = time.After(*duration)
	}
	ticker := time.NewTicker(*interval)
	defer ticker.Stop()

	for {
		select {
		case <-stop:
			sim.printStats()
			return
		case <-deadline:
			sim.printStats()
			return
		case <-ticker.C:
			sim.step()
		}
	}
}

// step runs one random operation, occasionally an invalid one so the error
// paths get exercised too.
func (s *simulator) step() {
	amount := float64(10 + rand.Intn(490))
	from := s.accounts[rand.Intn(len(s.accounts))]
	to := s.accounts[rand.Intn(len(s.accounts))]

	switch rand.Intn(10) {
	case 0, 1, 2, 3:
		if s.post("/commands/deposit", map[string]any{
			"account_id": from, "amount": amount, "description": "Simulated deposit",
		}) {
			color.Green("deposited $%.2f to %s", amount, from)
		}
	case 4, 5, 6:
		if s.post("/commands/withdraw", map[string]any{
			"account_id": from, "amount": amount, "description": "Simulated withdrawal",
		}) {
			color.Yellow("withdrew $%.2f from %s", amount, from)
		}
	case 7, 8:
		if s.post("/commands/transfer", map[string]any{
			"from_account_id": from, "to_account_id": to,
			"amount": amount, "description": "Simulated transfer",
		}) {
			color.Magenta("transferred $%.2f %s -> %s", amount, from, to)
		}
	default:
		// deliberately invalid: withdraw far beyond any balance
		s.post("/commands/withdraw", map[string]any{
			"account_id": from, "amount": 10_000_000.0, "description": "Overdraft attempt",
		})
	}
}

func (s *simulator) post(path string, body map[string]any) bool {
	s.total++
	payload, err := json.Marshal(body)
	if err != nil {
		s.failed++
		return false
	}
	resp, err := s.client.Post(s.baseURL+path, "application/json", bytes.NewReader(payload))
	if err != nil {
		s.failed++
		color.Red("%s failed: %v", path, err)
		return false
	}
	defer resp.Body.Close() //nolint:errcheck

	if resp.StatusCode >= 400 {
		s.failed++
		color.Red("%s rejected: HTTP %d", path, resp.StatusCode)
		return false
	}
	s.success++
	return true
}

func (s *simulator) printStats() {
	rate := 0.0
	if s.total > 0 {
		rate = float64(s.success) / float64(s.total) * 100
	}
	color.Cyan("\nstatistics: %d operations, %d ok, %d failed (%.2f%% success)",
		s.total, s.success, s.failed, rate)
}
