package notification

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

func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	usr, _ := r.Context().Value(utils.UserKey).(user.User)
	page := utils.GetPaginationDetails(r)

	list, count, err := h.Repo.List(r.Context(), usr.ID, page.Limit, page.Offset)
	if err != nil {
		wallet.WriteError(w, err, "Failed to fetch notifications")
		return
	}
	unread, err := h.Repo.CountUnread(r.Context(), usr.ID)
	if err != nil {
		wallet.WriteError(w, err, "Failed to fetch notifications")
		return
	}

	utils.BuildSuccessResponse(w, http.StatusOK, "Notifications", map[string]interface{}{
		"notifications": list,
		"unread":        unread,
		"meta":          page.Meta(count),
	})
}

func (h *Handler) MarkRead(w http.ResponseWriter, r *http.Request) {
	usr, _ := r.Context().Value(utils.UserKey).(user.User)

	notificationID, err := id.IsValidUUID(mux.Vars(r)["id"])
	if err != nil {
		utils.BuildErrorResponse(w, http.StatusBadRequest, "Invalid notification id", nil)
		return
	}

	if err := h.Repo.MarkRead(r.Context(), notificationID, usr.ID); err != nil {
		wallet.WriteError(w, err, "Failed to update notification")
		return
	}

	utils.BuildSuccessResponse(w, http.StatusOK, "Notification marked as read", nil)
}

func (h *Handler) MarkAllRead(w http.ResponseWriter, r *http.Request) {
	usr, _ := r.Context().Value(utils.UserKey).(user.User)

	if err := h.Repo.MarkAllRead(r.Context(), usr.ID); err != nil {
		wallet.WriteError(w, err, "Failed to update notifications")
		return
	}

	utils.BuildSuccessResponse(w, http.StatusOK, "All notifications marked as read", nil)
}
