package referral

import (
	"context"
	"net/http"

	"github.com/google/uuid"
	"github.com/gorilla/mux"

	"github.com/zjoart/go-invest-ledger/internal/user"
	"github.com/zjoart/go-invest-ledger/internal/wallet"
	"github.com/zjoart/go-invest-ledger/pkg/id"
	"github.com/zjoart/go-invest-ledger/pkg/utils"
)

type Handler struct {
	Service *Service
}

func NewHandler(svc *Service) *Handler {
	return &Handler{Service: svc}
}

type CreateRequest struct {
	Email string `json:"email"`
}

func (h *Handler) Request(w http.ResponseWriter, r *http.Request) {
	usr, _ := r.Context().Value(utils.UserKey).(user.User)

	var req CreateRequest
	if status, err := utils.DecodeJSONBody(w, r, &req); err != nil {
		utils.BuildErrorResponse(w, status, "Invalid request", map[string]string{"error": err.Error()})
		return
	}
	if req.Email == "" {
		utils.BuildErrorResponse(w, http.StatusBadRequest, "Email is required", nil)
		return
	}

	created, err := h.Service.Request(r.Context(), usr.ID, req.Email)
	if err != nil {
		wallet.WriteError(w, err, "Failed to send referral request")
		return
	}

	utils.BuildSuccessResponse(w, http.StatusCreated, "Referral request sent", created)
}

func (h *Handler) Accept(w http.ResponseWriter, r *http.Request) {
	h.decide(w, r, h.Service.Approve, "Referral request accepted")
}

func (h *Handler) Reject(w http.ResponseWriter, r *http.Request) {
	h.decide(w, r, h.Service.Reject, "Referral request rejected")
}

type decision func(ctx context.Context, requestID uuid.UUID, actor user.User) (*Request, error)

func (h *Handler) decide(w http.ResponseWriter, r *http.Request, fn decision, message string) {
	usr, _ := r.Context().Value(utils.UserKey).(user.User)

	requestID, err := id.IsValidUUID(mux.Vars(r)["id"])
	if err != nil {
		utils.BuildErrorResponse(w, http.StatusBadRequest, "Invalid request id", nil)
		return
	}

	req, err := fn(r.Context(), requestID, usr)
	if err != nil {
		wallet.WriteError(w, err, "Failed to answer referral request")
		return
	}

	utils.BuildSuccessResponse(w, http.StatusOK, message, req)
}

func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	usr, _ := r.Context().Value(utils.UserKey).(user.User)

	reqs, err := h.Service.List(r.Context(), usr.ID)
	if err != nil {
		wallet.WriteError(w, err, "Failed to fetch referral requests")
		return
	}

	var incoming, outgoing []Request
	for _, req := range reqs {
		if req.TargetID == usr.ID {
			incoming = append(incoming, req)
		} else {
			outgoing = append(outgoing, req)
		}
	}

	utils.BuildSuccessResponse(w, http.StatusOK, "Referral requests", map[string]interface{}{
		"incoming": incoming,
		"outgoing": outgoing,
	})
}

func (h *Handler) Team(w http.ResponseWriter, r *http.Request) {
	usr, _ := r.Context().Value(utils.UserKey).(user.User)

	members, err := h.Service.Team(r.Context(), usr.ID)
	if err != nil {
		wallet.WriteError(w, err, "Failed to fetch team")
		return
	}

	utils.BuildSuccessResponse(w, http.StatusOK, "Referral team", map[string]interface{}{
		"referralCode":   usr.ReferralCode,
		"referralCount":  usr.ReferralCount,
		"referralIncome": usr.ReferralIncome,
		"members":        members,
	})
}
