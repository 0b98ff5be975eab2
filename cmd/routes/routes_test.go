package routes

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gorilla/mux"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/zjoart/go-invest-ledger/internal/investment"
	"github.com/zjoart/go-invest-ledger/internal/key"
	"github.com/zjoart/go-invest-ledger/internal/notification"
	"github.com/zjoart/go-invest-ledger/internal/platform"
	"github.com/zjoart/go-invest-ledger/internal/referral"
	"github.com/zjoart/go-invest-ledger/internal/testutil"
	"github.com/zjoart/go-invest-ledger/internal/user"
	"github.com/zjoart/go-invest-ledger/internal/wallet"
	"github.com/zjoart/go-invest-ledger/pkg/config"
)

func newServer(t *testing.T) http.Handler {
	t.Helper()
	db := testutil.NewTestDB(t,
		&user.User{},
		&wallet.Wallet{},
		&wallet.Transaction{},
		&referral.Request{},
		&investment.Plan{},
		&investment.Investment{},
		&platform.PaymentAccount{},
		&notification.Notification{},
		&key.APIKey{},
	)
	cfg := config.Config{
		JWTSecret:           "routes-secret",
		Env:                 "production",
		AllowedOrigins:      []string{"*"},
		AdminEmails:         []string{"admin@example.com"},
		Currency:            "PKR",
		MinDepositAmount:    decimal.NewFromInt(100),
		MinWithdrawalAmount: decimal.NewFromInt(100),
		TxMaxRetries:        3,
		MaxActiveKeys:       5,
	}
	return RegisterRoutes(mux.NewRouter(), cfg, db, nil)
}

func call(t *testing.T, h http.Handler, method, path, token string, body interface{}) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func register(t *testing.T, h http.Handler, email string) string {
	t.Helper()
	rec := call(t, h, "POST", "/api/auth/register", "", map[string]string{
		"name":     "Test User",
		"email":    email,
		"password": "password123",
	})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	var resp struct {
		Data struct {
			Token string `json:"token"`
		} `json:"data"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	require.NotEmpty(t, resp.Data.Token)
	return resp.Data.Token
}

func TestRoleGates(t *testing.T) {
	h := newServer(t)
	userToken := register(t, h, "user@example.com")
	adminToken := register(t, h, "admin@example.com")

	assert.Equal(t, http.StatusOK, call(t, h, "GET", "/api/wallet", userToken, nil).Code)
	assert.Equal(t, http.StatusUnauthorized, call(t, h, "GET", "/api/wallet", "", nil).Code)

	assert.Equal(t, http.StatusForbidden, call(t, h, "GET", "/api/review/transactions", userToken, nil).Code)
	assert.Equal(t, http.StatusForbidden, call(t, h, "GET", "/api/admin/users", userToken, nil).Code)
	assert.Equal(t, http.StatusForbidden, call(t, h, "POST", "/api/keys", userToken, map[string]interface{}{}).Code)

	assert.Equal(t, http.StatusOK, call(t, h, "GET", "/api/review/transactions", adminToken, nil).Code)
	assert.Equal(t, http.StatusOK, call(t, h, "GET", "/api/admin/users", adminToken, nil).Code)
}

func TestMetricsEndpoint(t *testing.T) {
	h := newServer(t)
	call(t, h, "GET", "/api/wallet", "", nil)

	rec := call(t, h, "GET", "/metrics", "", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "http_request_duration_seconds")
}
