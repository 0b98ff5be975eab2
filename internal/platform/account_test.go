package platform

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gorilla/mux"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/zjoart/go-invest-ledger/internal/testutil"
	"github.com/zjoart/go-invest-ledger/internal/user"
	"github.com/zjoart/go-invest-ledger/internal/wallet"
	"github.com/zjoart/go-invest-ledger/pkg/utils"
)

func TestRepositoryIsActive(t *testing.T) {
	repo := NewRepository(testutil.NewTestDB(t, &PaymentAccount{}))
	ctx := context.Background()

	live := &PaymentAccount{Method: "easypaisa", Title: "Easypaisa", AccountName: "Invest Co", AccountNumber: "0300", Active: true}
	require.NoError(t, repo.Create(ctx, live))
	closed := &PaymentAccount{Method: "bank", Title: "HBL", AccountName: "Invest Co", AccountNumber: "PK36", Active: true}
	require.NoError(t, repo.Create(ctx, closed))

	closed.Active = false
	require.NoError(t, repo.Save(ctx, closed))

	ok, err := repo.IsActive(ctx, live.ID.String())
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = repo.IsActive(ctx, closed.ID.String())
	require.NoError(t, err)
	assert.False(t, ok)

	ok, err = repo.IsActive(ctx, "garbage")
	require.NoError(t, err)
	assert.False(t, ok)

	active, err := repo.List(ctx, true)
	require.NoError(t, err)
	assert.Len(t, active, 1)

	err = repo.Create(ctx, &PaymentAccount{Method: "bank"})
	assert.ErrorIs(t, err, wallet.ErrValidationFailed)
}

func TestAccountHandlers(t *testing.T) {
	h := NewHandler(NewRepository(testutil.NewTestDB(t, &PaymentAccount{})))
	router := mux.NewRouter()
	router.HandleFunc("/accounts", h.ListAccounts).Methods("GET")
	router.HandleFunc("/accounts", h.CreateAccount).Methods("POST")
	router.HandleFunc("/accounts/{id}", h.UpdateAccount).Methods("PUT")

	admin := user.User{Role: user.RoleAdmin}
	as := func(r *http.Request, u user.User) *http.Request {
		return r.WithContext(context.WithValue(r.Context(), utils.UserKey, u))
	}

	req := httptest.NewRequest("POST", "/accounts", strings.NewReader(`{"method":"jazzcash","accountName":"Invest Co","accountNumber":"0301"}`))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, as(req, admin))
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	req = httptest.NewRequest("POST", "/accounts", strings.NewReader(`{"method":"jazzcash"}`))
	req.Header.Set("Content-Type", "application/json")
	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, as(req, admin))
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, as(httptest.NewRequest("GET", "/accounts", nil), user.User{Role: user.RoleUser}))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "jazzcash")

	req = httptest.NewRequest("PUT", "/accounts/00000000-0000-0000-0000-000000000001", strings.NewReader(`{"active":false}`))
	req.Header.Set("Content-Type", "application/json")
	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, as(req, admin))
	assert.Equal(t, http.StatusNotFound, rec.Code)
}
