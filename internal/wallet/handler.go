package wallet

import (
	"context"
	"net/http"

	"github.com/shopspring/decimal"

	"github.com/zjoart/go-invest-ledger/internal/user"
	"github.com/zjoart/go-invest-ledger/pkg/utils"
)

// AccountLookup confirms that a deposit destination is an active platform account.
type AccountLookup interface {
	IsActive(ctx context.Context, id string) (bool, error)
}

type Handler struct {
	Service  *Service
	Accounts AccountLookup
}

func NewHandler(svc *Service, accounts AccountLookup) *Handler {
	return &Handler{Service: svc, Accounts: accounts}
}

func (h *Handler) GetWallet(w http.ResponseWriter, r *http.Request) {
	usr, _ := r.Context().Value(utils.UserKey).(user.User)

	summary, err := h.Service.Summary(r.Context(), usr.ID)
	if err != nil {
		WriteError(w, err, "Failed to load wallet")
		return
	}

	utils.BuildSuccessResponse(w, http.StatusOK, "Wallet Details", summary)
}

func (h *Handler) GetTransactions(w http.ResponseWriter, r *http.Request) {
	usr, _ := r.Context().Value(utils.UserKey).(user.User)

	page := utils.GetPaginationDetails(r)
	filter, ok := filterFromQuery(w, r, page)
	if !ok {
		return
	}

	txs, count, err := h.Service.ListForUser(r.Context(), usr.ID, filter)
	if err != nil {
		WriteError(w, err, "Failed to fetch transactions")
		return
	}

	utils.BuildSuccessResponse(w, http.StatusOK, "Transaction History", map[string]interface{}{
		"transactions": txs,
		"meta":         page.Meta(count),
	})
}

type DepositRequest struct {
	Amount    decimal.Decimal `json:"amount"`
	TID       string          `json:"tid"`
	AccountID string          `json:"accountId"`
	Sender    string          `json:"senderName"`
	Note      string          `json:"note"`
}

func (h *Handler) SubmitDeposit(w http.ResponseWriter, r *http.Request) {
	usr, _ := r.Context().Value(utils.UserKey).(user.User)

	var req DepositRequest
	if status, err := utils.DecodeJSONBody(w, r, &req); err != nil {
		utils.BuildErrorResponse(w, status, "Invalid request", map[string]string{"error": err.Error()})
		return
	}

	details := Details{}
	if req.AccountID != "" {
		if h.Accounts != nil {
			active, err := h.Accounts.IsActive(r.Context(), req.AccountID)
			if err != nil {
				WriteError(w, err, "Failed to verify payment account")
				return
			}
			if !active {
				utils.BuildErrorResponse(w, http.StatusBadRequest, "Payment account is not available", nil)
				return
			}
		}
		details[DetailAccountID] = req.AccountID
	}
	if req.Sender != "" {
		details["senderName"] = req.Sender
	}
	if req.Note != "" {
		details["note"] = req.Note
	}

	tx, err := h.Service.SubmitDeposit(r.Context(), usr.ID, req.Amount, req.TID, details)
	if err != nil {
		WriteError(w, err, "Failed to submit deposit")
		return
	}

	utils.BuildSuccessResponse(w, http.StatusCreated, "Deposit submitted for review", tx)
}

type WithdrawalRequest struct {
	Amount        decimal.Decimal `json:"amount"`
	Method        string          `json:"method"`
	AccountName   string          `json:"accountName"`
	AccountNumber string          `json:"accountNumber"`
}

func (h *Handler) SubmitWithdrawal(w http.ResponseWriter, r *http.Request) {
	usr, _ := r.Context().Value(utils.UserKey).(user.User)

	var req WithdrawalRequest
	if status, err := utils.DecodeJSONBody(w, r, &req); err != nil {
		utils.BuildErrorResponse(w, status, "Invalid request", map[string]string{"error": err.Error()})
		return
	}

	if req.AccountNumber == "" {
		utils.BuildErrorResponse(w, http.StatusBadRequest, "Account number is required", nil)
		return
	}

	tx, err := h.Service.SubmitWithdrawal(r.Context(), usr.ID, req.Amount, Details{
		"method":        req.Method,
		"accountName":   req.AccountName,
		"accountNumber": req.AccountNumber,
	})
	if err != nil {
		WriteError(w, err, "Failed to submit withdrawal")
		return
	}

	utils.BuildSuccessResponse(w, http.StatusCreated, "Withdrawal submitted for review", tx)
}

func filterFromQuery(w http.ResponseWriter, r *http.Request, page utils.Pagination) (TransactionFilter, bool) {
	q := r.URL.Query()
	filter := TransactionFilter{
		Status: TransactionStatus(q.Get("status")),
		Type:   TransactionType(q.Get("type")),
		Limit:  page.Limit,
		Offset: page.Offset,
	}

	if filter.Status != "" && !filter.Status.Valid() {
		utils.BuildErrorResponse(w, http.StatusBadRequest, "Invalid status filter", nil)
		return filter, false
	}
	if filter.Type != "" && !filter.Type.Valid() {
		utils.BuildErrorResponse(w, http.StatusBadRequest, "Invalid type filter", nil)
		return filter, false
	}
	return filter, true
}
