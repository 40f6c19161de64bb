package integration

import (
	"fmt"
	"net/http"
	"sync"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// These tests fire overlapping requests at the full HTTP stack and assert
// the ledger invariants that matter under contention: no overspend, no
// double reversal, and conservation of the total across wallets.

func TestConcurrency_Deposits(t *testing.T) {
	app := newTestApp(t)
	defer app.close()

	app.register(t, "Alice", aliceTaxID, password)
	token := app.login(t, aliceTaxID, password)

	const workers = 20
	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			status, _ := app.do(t, "POST", "/api/v1/transactions/deposit", token, `{"amount":"5.00"}`, nil)
			assert.Equal(t, http.StatusCreated, status)
		}()
	}
	wg.Wait()

	// Every credit landed exactly once.
	assert.Equal(t, "100.00", app.balance(t, token))
}

func TestConcurrency_Transfers_NoOverspend(t *testing.T) {
	app := newTestApp(t)
	defer app.close()

	app.register(t, "Alice", aliceTaxID, password)
	app.register(t, "Bob", bobTaxID, password)
	aliceToken := app.login(t, aliceTaxID, password)
	bobToken := app.login(t, bobTaxID, password)

	app.deposit(t, aliceToken, "100.00")

	// 10 concurrent transfers of 30.00 against a balance of 100.00: only
	// three can clear, the rest must fail without touching either wallet.
	const workers = 10
	body := fmt.Sprintf(`{"recipient_tax_id":%q,"amount":"30.00"}`, bobTaxID)

	var wg sync.WaitGroup
	statuses := make([]int, workers)
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			statuses[i], _ = app.do(t, "POST", "/api/v1/transactions/transfer", aliceToken, body, nil)
		}(i)
	}
	wg.Wait()

	succeeded := 0
	for _, status := range statuses {
		switch status {
		case http.StatusCreated:
			succeeded++
		case http.StatusUnprocessableEntity:
		default:
			t.Fatalf("unexpected status %d", status)
		}
	}
	assert.Equal(t, 3, succeeded)

	aliceBalance, err := decimal.NewFromString(app.balance(t, aliceToken))
	require.NoError(t, err)
	bobBalance, err := decimal.NewFromString(app.balance(t, bobToken))
	require.NoError(t, err)

	assert.False(t, aliceBalance.IsNegative(), "transfers must never overdraw: %s", aliceBalance)
	assert.True(t, aliceBalance.Equal(decimal.RequireFromString("10.00")), "got %s", aliceBalance)
	assert.True(t, bobBalance.Equal(decimal.RequireFromString("90.00")), "got %s", bobBalance)
}

func TestConcurrency_BidirectionalTransfers_ConserveTotal(t *testing.T) {
	app := newTestApp(t)
	defer app.close()

	app.register(t, "Alice", aliceTaxID, password)
	app.register(t, "Bob", bobTaxID, password)
	aliceToken := app.login(t, aliceTaxID, password)
	bobToken := app.login(t, bobTaxID, password)

	app.deposit(t, aliceToken, "500.00")
	app.deposit(t, bobToken, "500.00")

	// Opposite-direction transfers hammer the same wallet pair. Deadlock
	// avoidance and atomicity both get exercised here.
	const rounds = 15
	aliceBody := fmt.Sprintf(`{"recipient_tax_id":%q,"amount":"10.00"}`, bobTaxID)
	bobBody := fmt.Sprintf(`{"recipient_tax_id":%q,"amount":"10.00"}`, aliceTaxID)

	var wg sync.WaitGroup
	for i := 0; i < rounds; i++ {
		wg.Add(2)
		go func() {
			defer wg.Done()
			status, _ := app.do(t, "POST", "/api/v1/transactions/transfer", aliceToken, aliceBody, nil)
			assert.Equal(t, http.StatusCreated, status)
		}()
		go func() {
			defer wg.Done()
			status, _ := app.do(t, "POST", "/api/v1/transactions/transfer", bobToken, bobBody, nil)
			assert.Equal(t, http.StatusCreated, status)
		}()
	}
	wg.Wait()

	aliceBalance := decimal.RequireFromString(app.balance(t, aliceToken))
	bobBalance := decimal.RequireFromString(app.balance(t, bobToken))
	total := aliceBalance.Add(bobBalance)
	assert.True(t, total.Equal(decimal.RequireFromString("1000.00")),
		"total must be conserved, got %s (%s + %s)", total, aliceBalance, bobBalance)
}

func TestConcurrency_Reversal_OnlyOneWins(t *testing.T) {
	app := newTestApp(t)
	defer app.close()

	app.register(t, "Alice", aliceTaxID, password)
	app.register(t, "Bob", bobTaxID, password)
	aliceToken := app.login(t, aliceTaxID, password)
	bobToken := app.login(t, bobTaxID, password)

	app.deposit(t, aliceToken, "100.00")
	body := fmt.Sprintf(`{"recipient_tax_id":%q,"amount":"40.00"}`, bobTaxID)
	status, resp := app.do(t, "POST", "/api/v1/transactions/transfer", aliceToken, body, nil)
	require.Equal(t, http.StatusCreated, status)
	transferID := resp["data"].(map[string]any)["transaction"].(map[string]any)["id"].(string)

	// Both participants race to reverse the same transfer.
	const attempts = 8
	var wg sync.WaitGroup
	statuses := make([]int, attempts)
	for i := 0; i < attempts; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			token := aliceToken
			if i%2 == 1 {
				token = bobToken
			}
			statuses[i], _ = app.do(t, "POST", "/api/v1/transactions/"+transferID+"/reverse", token, "", nil)
		}(i)
	}
	wg.Wait()

	succeeded, conflicted := 0, 0
	for _, status := range statuses {
		switch status {
		case http.StatusOK:
			succeeded++
		case http.StatusConflict:
			conflicted++
		default:
			t.Fatalf("unexpected status %d", status)
		}
	}
	assert.Equal(t, 1, succeeded, "exactly one reversal may apply")
	assert.Equal(t, attempts-1, conflicted)

	// The funds moved back exactly once.
	assert.Equal(t, "100.00", app.balance(t, aliceToken))
	assert.Equal(t, "0.00", app.balance(t, bobToken))
}
