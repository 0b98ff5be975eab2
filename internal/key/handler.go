package key

import (
	"net/http"

	"github.com/zjoart/go-invest-ledger/internal/user"
	"github.com/zjoart/go-invest-ledger/internal/wallet"
	"github.com/zjoart/go-invest-ledger/pkg/utils"
)

type Handler struct {
	Service *Service
}

func NewHandler(svc *Service) *Handler {
	return &Handler{Service: svc}
}

type CreateKeyRequest struct {
	Name        string   `json:"name"`
	Permissions []string `json:"permissions"`
	Expiry      string   `json:"expiry"`
}

type RolloverKeyRequest struct {
	ExpiredKeyID string `json:"expiredKeyId"`
	Expiry       string `json:"expiry"`
}

type RevokeKeyRequest struct {
	KeyID string `json:"keyId"`
}

const showOnceNotice = "This key will only be shown once. Please save it securely."

func (h *Handler) CreateAPIKey(w http.ResponseWriter, r *http.Request) {
	usr := r.Context().Value(utils.UserKey).(user.User)

	var req CreateKeyRequest
	if status, err := utils.DecodeJSONBody(w, r, &req); err != nil {
		utils.BuildErrorResponse(w, status, "Invalid request body", map[string]string{"error": err.Error()})
		return
	}

	issued, err := h.Service.Issue(r.Context(), usr, req.Name, req.Permissions, req.Expiry)
	if err != nil {
		wallet.WriteError(w, err, "Failed to create API key")
		return
	}

	utils.BuildSuccessResponse(w, http.StatusCreated, "API Key created. "+showOnceNotice, issued)
}

func (h *Handler) RolloverAPIKey(w http.ResponseWriter, r *http.Request) {
	usr := r.Context().Value(utils.UserKey).(user.User)

	var req RolloverKeyRequest
	if status, err := utils.DecodeJSONBody(w, r, &req); err != nil {
		utils.BuildErrorResponse(w, status, "Invalid request body", map[string]string{"error": err.Error()})
		return
	}

	issued, err := h.Service.Rollover(r.Context(), usr, req.ExpiredKeyID, req.Expiry)
	if err != nil {
		wallet.WriteError(w, err, "Failed to roll over API key")
		return
	}

	utils.BuildSuccessResponse(w, http.StatusCreated, "API Key rolled over. "+showOnceNotice, issued)
}

func (h *Handler) RevokeAPIKey(w http.ResponseWriter, r *http.Request) {
	usr := r.Context().Value(utils.UserKey).(user.User)

	var req RevokeKeyRequest
	if status, err := utils.DecodeJSONBody(w, r, &req); err != nil {
		utils.BuildErrorResponse(w, status, "Invalid request body", map[string]string{"error": err.Error()})
		return
	}

	if err := h.Service.Revoke(r.Context(), usr, req.KeyID); err != nil {
		wallet.WriteError(w, err, "Failed to revoke key")
		return
	}

	utils.BuildSuccessResponse(w, http.StatusOK, "API Key revoked successfully", nil)
}

func (h *Handler) ListAPIKeys(w http.ResponseWriter, r *http.Request) {
	usr := r.Context().Value(utils.UserKey).(user.User)

	keys, err := h.Service.List(r.Context(), usr)
	if err != nil {
		wallet.WriteError(w, err, "Failed to fetch keys")
		return
	}

	utils.BuildSuccessResponse(w, http.StatusOK, "API Keys retrieved", keys)
}
