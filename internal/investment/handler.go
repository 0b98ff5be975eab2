package investment

import (
	"net/http"
	"time"

	"github.com/gorilla/mux"

	"github.com/zjoart/go-invest-ledger/internal/user"
	"github.com/zjoart/go-invest-ledger/internal/wallet"
	"github.com/zjoart/go-invest-ledger/pkg/id"
	"github.com/zjoart/go-invest-ledger/pkg/utils"
)

type Handler struct {
	Service *Service
	Now     func() time.Time
}

func NewHandler(svc *Service) *Handler {
	return &Handler{Service: svc, Now: time.Now}
}

func (h *Handler) ListPlans(w http.ResponseWriter, r *http.Request) {
	usr, _ := r.Context().Value(utils.UserKey).(user.User)

	plans, err := h.Service.ListPlans(r.Context(), usr.Role != user.RoleAdmin)
	if err != nil {
		wallet.WriteError(w, err, "Failed to fetch plans")
		return
	}

	utils.BuildSuccessResponse(w, http.StatusOK, "Investment plans", plans)
}

func (h *Handler) CreatePlan(w http.ResponseWriter, r *http.Request) {
	var req PlanInput
	if status, err := utils.DecodeJSONBody(w, r, &req); err != nil {
		utils.BuildErrorResponse(w, status, "Invalid request", map[string]string{"error": err.Error()})
		return
	}

	plan, err := h.Service.CreatePlan(r.Context(), req)
	if err != nil {
		wallet.WriteError(w, err, "Failed to create plan")
		return
	}

	utils.BuildSuccessResponse(w, http.StatusCreated, "Plan created", plan)
}

func (h *Handler) UpdatePlan(w http.ResponseWriter, r *http.Request) {
	planID, err := id.IsValidUUID(mux.Vars(r)["id"])
	if err != nil {
		utils.BuildErrorResponse(w, http.StatusBadRequest, "Invalid plan id", nil)
		return
	}

	var req PlanInput
	if status, err := utils.DecodeJSONBody(w, r, &req); err != nil {
		utils.BuildErrorResponse(w, status, "Invalid request", map[string]string{"error": err.Error()})
		return
	}

	plan, err := h.Service.UpdatePlan(r.Context(), planID, req)
	if err != nil {
		wallet.WriteError(w, err, "Failed to update plan")
		return
	}

	utils.BuildSuccessResponse(w, http.StatusOK, "Plan updated", plan)
}

type PurchaseRequest struct {
	PlanID string `json:"planId"`
}

func (h *Handler) Purchase(w http.ResponseWriter, r *http.Request) {
	usr, _ := r.Context().Value(utils.UserKey).(user.User)

	var req PurchaseRequest
	if status, err := utils.DecodeJSONBody(w, r, &req); err != nil {
		utils.BuildErrorResponse(w, status, "Invalid request", map[string]string{"error": err.Error()})
		return
	}
	planID, err := id.IsValidUUID(req.PlanID)
	if err != nil {
		utils.BuildErrorResponse(w, http.StatusBadRequest, "Invalid plan id", nil)
		return
	}

	inv, err := h.Service.Purchase(r.Context(), usr.ID, planID)
	if err != nil {
		wallet.WriteError(w, err, "Failed to purchase plan")
		return
	}

	utils.BuildSuccessResponse(w, http.StatusCreated, "Investment started", inv)
}

func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	usr, _ := r.Context().Value(utils.UserKey).(user.User)

	invs, err := h.Service.List(r.Context(), usr.ID)
	if err != nil {
		wallet.WriteError(w, err, "Failed to fetch investments")
		return
	}

	utils.BuildSuccessResponse(w, http.StatusOK, "Investments", invs)
}

func (h *Handler) Claim(w http.ResponseWriter, r *http.Request) {
	usr, _ := r.Context().Value(utils.UserKey).(user.User)

	investmentID, err := id.IsValidUUID(mux.Vars(r)["id"])
	if err != nil {
		utils.BuildErrorResponse(w, http.StatusBadRequest, "Invalid investment id", nil)
		return
	}

	inv, income, err := h.Service.Claim(r.Context(), usr.ID, investmentID, h.Now())
	if err != nil {
		wallet.WriteError(w, err, "Failed to claim profit")
		return
	}

	utils.BuildSuccessResponse(w, http.StatusOK, "Profit claimed", map[string]interface{}{
		"investment":  inv,
		"transaction": income,
	})
}
