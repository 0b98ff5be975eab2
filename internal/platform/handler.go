package platform

import (
	"net/http"

	"github.com/gorilla/mux"

	"github.com/zjoart/go-invest-ledger/internal/user"
	"github.com/zjoart/go-invest-ledger/internal/wallet"
	"github.com/zjoart/go-invest-ledger/pkg/id"
	"github.com/zjoart/go-invest-ledger/pkg/utils"
)

type Handler struct {
	Repo Repository
}

func NewHandler(repo Repository) *Handler {
	return &Handler{Repo: repo}
}

type AccountRequest struct {
	Method        *string `json:"method"`
	Title         *string `json:"title"`
	AccountName   *string `json:"accountName"`
	AccountNumber *string `json:"accountNumber"`
	Active        *bool   `json:"active"`
}

func (req AccountRequest) apply(a *PaymentAccount) {
	if req.Method != nil {
		a.Method = *req.Method
	}
	if req.Title != nil {
		a.Title = *req.Title
	}
	if req.AccountName != nil {
		a.AccountName = *req.AccountName
	}
	if req.AccountNumber != nil {
		a.AccountNumber = *req.AccountNumber
	}
	if req.Active != nil {
		a.Active = *req.Active
	}
}

// ListAccounts shows users the active accounts and admins all of them.
func (h *Handler) ListAccounts(w http.ResponseWriter, r *http.Request) {
	usr, _ := r.Context().Value(utils.UserKey).(user.User)

	accounts, err := h.Repo.List(r.Context(), usr.Role != user.RoleAdmin)
	if err != nil {
		wallet.WriteError(w, err, "Failed to fetch payment accounts")
		return
	}

	utils.BuildSuccessResponse(w, http.StatusOK, "Payment accounts", accounts)
}

func (h *Handler) CreateAccount(w http.ResponseWriter, r *http.Request) {
	var req AccountRequest
	if status, err := utils.DecodeJSONBody(w, r, &req); err != nil {
		utils.BuildErrorResponse(w, status, "Invalid request", map[string]string{"error": err.Error()})
		return
	}

	account := &PaymentAccount{Active: true}
	req.apply(account)
	if account.Title == "" {
		account.Title = account.Method
	}

	if err := h.Repo.Create(r.Context(), account); err != nil {
		wallet.WriteError(w, err, "Failed to create payment account")
		return
	}

	utils.BuildSuccessResponse(w, http.StatusCreated, "Payment account created", account)
}

func (h *Handler) UpdateAccount(w http.ResponseWriter, r *http.Request) {
	accountID, err := id.IsValidUUID(mux.Vars(r)["id"])
	if err != nil {
		utils.BuildErrorResponse(w, http.StatusBadRequest, "Invalid account id", nil)
		return
	}

	var req AccountRequest
	if status, err := utils.DecodeJSONBody(w, r, &req); err != nil {
		utils.BuildErrorResponse(w, status, "Invalid request", map[string]string{"error": err.Error()})
		return
	}

	account, err := h.Repo.Get(r.Context(), accountID)
	if err != nil {
		wallet.WriteError(w, err, "Failed to load payment account")
		return
	}
	req.apply(account)

	if err := h.Repo.Save(r.Context(), account); err != nil {
		wallet.WriteError(w, err, "Failed to update payment account")
		return
	}

	utils.BuildSuccessResponse(w, http.StatusOK, "Payment account updated", account)
}
