package wallet

import (
	"net/http"

	"github.com/gorilla/mux"
	"github.com/shopspring/decimal"

	"github.com/zjoart/go-invest-ledger/internal/user"
	"github.com/zjoart/go-invest-ledger/pkg/id"
	"github.com/zjoart/go-invest-ledger/pkg/utils"
)

// ReviewHandler serves the agent and admin side of the ledger.
type ReviewHandler struct {
	Service *Service
}

func NewReviewHandler(svc *Service) *ReviewHandler {
	return &ReviewHandler{Service: svc}
}

func (h *ReviewHandler) ListTransactions(w http.ResponseWriter, r *http.Request) {
	page := utils.GetPaginationDetails(r)
	filter, ok := filterFromQuery(w, r, page)
	if !ok {
		return
	}

	if raw := r.URL.Query().Get("userId"); raw != "" {
		userID, err := id.IsValidUUID(raw)
		if err != nil {
			utils.BuildErrorResponse(w, http.StatusBadRequest, "Invalid user id", nil)
			return
		}
		filter.UserID = &userID
	}

	txs, count, err := h.Service.ListAll(r.Context(), filter)
	if err != nil {
		WriteError(w, err, "Failed to fetch transactions")
		return
	}

	utils.BuildSuccessResponse(w, http.StatusOK, "Transactions", map[string]interface{}{
		"transactions": txs,
		"meta":         page.Meta(count),
	})
}

func (h *ReviewHandler) Approve(w http.ResponseWriter, r *http.Request) {
	reviewer, _ := r.Context().Value(utils.UserKey).(user.User)

	tx, err := h.Service.Approve(r.Context(), mux.Vars(r)["id"], reviewer.ID)
	if err != nil {
		WriteError(w, err, "Failed to approve transaction")
		return
	}

	utils.BuildSuccessResponse(w, http.StatusOK, "Transaction approved", tx)
}

type ReasonRequest struct {
	Reason string `json:"reason"`
}

func (h *ReviewHandler) Reject(w http.ResponseWriter, r *http.Request) {
	reviewer, _ := r.Context().Value(utils.UserKey).(user.User)

	var req ReasonRequest
	if status, err := utils.DecodeJSONBody(w, r, &req); err != nil {
		utils.BuildErrorResponse(w, status, "Invalid request", map[string]string{"error": err.Error()})
		return
	}

	tx, err := h.Service.Reject(r.Context(), mux.Vars(r)["id"], reviewer.ID, req.Reason)
	if err != nil {
		WriteError(w, err, "Failed to reject transaction")
		return
	}

	utils.BuildSuccessResponse(w, http.StatusOK, "Transaction rejected", tx)
}

func (h *ReviewHandler) Revoke(w http.ResponseWriter, r *http.Request) {
	reviewer, _ := r.Context().Value(utils.UserKey).(user.User)

	var req ReasonRequest
	if status, err := utils.DecodeJSONBody(w, r, &req); err != nil {
		utils.BuildErrorResponse(w, status, "Invalid request", map[string]string{"error": err.Error()})
		return
	}

	original, compensation, err := h.Service.Revoke(r.Context(), mux.Vars(r)["id"], reviewer.ID, req.Reason)
	if err != nil {
		WriteError(w, err, "Failed to revoke transaction")
		return
	}

	utils.BuildSuccessResponse(w, http.StatusOK, "Deposit revoked", map[string]interface{}{
		"transaction":  original,
		"compensation": compensation,
	})
}

type EditRequest struct {
	Amount *decimal.Decimal   `json:"amount"`
	Type   *TransactionType   `json:"type"`
	Status *TransactionStatus `json:"status"`
}

func (h *ReviewHandler) Edit(w http.ResponseWriter, r *http.Request) {
	var req EditRequest
	if status, err := utils.DecodeJSONBody(w, r, &req); err != nil {
		utils.BuildErrorResponse(w, status, "Invalid request", map[string]string{"error": err.Error()})
		return
	}
	if req.Amount == nil && req.Type == nil && req.Status == nil {
		utils.BuildErrorResponse(w, http.StatusBadRequest, "Nothing to update", nil)
		return
	}

	tx, err := h.Service.Edit(r.Context(), mux.Vars(r)["id"], EditInput{
		Amount: req.Amount,
		Type:   req.Type,
		Status: req.Status,
	})
	if err != nil {
		WriteError(w, err, "Failed to edit transaction")
		return
	}

	utils.BuildSuccessResponse(w, http.StatusOK, "Transaction updated", tx)
}

func (h *ReviewHandler) Delete(w http.ResponseWriter, r *http.Request) {
	if err := h.Service.Delete(r.Context(), mux.Vars(r)["id"]); err != nil {
		WriteError(w, err, "Failed to delete transaction")
		return
	}

	utils.BuildSuccessResponse(w, http.StatusOK, "Transaction deleted", nil)
}

type AdjustRequest struct {
	Field string          `json:"field"`
	Value decimal.Decimal `json:"value"`
}

func (h *ReviewHandler) AdjustStatistic(w http.ResponseWriter, r *http.Request) {
	userID, err := id.IsValidUUID(mux.Vars(r)["id"])
	if err != nil {
		utils.BuildErrorResponse(w, http.StatusBadRequest, "Invalid user id", nil)
		return
	}

	var req AdjustRequest
	if status, err := utils.DecodeJSONBody(w, r, &req); err != nil {
		utils.BuildErrorResponse(w, status, "Invalid request", map[string]string{"error": err.Error()})
		return
	}

	adjustment, err := h.Service.AdjustStatistic(r.Context(), userID, req.Field, req.Value)
	if err != nil {
		WriteError(w, err, "Failed to adjust statistic")
		return
	}

	summary, err := h.Service.Summary(r.Context(), userID)
	if err != nil {
		WriteError(w, err, "Failed to load summary")
		return
	}

	utils.BuildSuccessResponse(w, http.StatusOK, "Statistic updated", map[string]interface{}{
		"adjustment": adjustment,
		"summary":    summary,
	})
}
