package auth

import (
	"net/http"

	"github.com/gorilla/mux"

	"github.com/zjoart/go-invest-ledger/internal/user"
	"github.com/zjoart/go-invest-ledger/internal/wallet"
	"github.com/zjoart/go-invest-ledger/pkg/id"
	"github.com/zjoart/go-invest-ledger/pkg/logger"
	"github.com/zjoart/go-invest-ledger/pkg/utils"
)

// UsersHandler serves account views: the caller's own profile and the admin
// user directory.
type UsersHandler struct {
	Users  user.Repository
	Ledger *wallet.Service
}

func NewUsersHandler(users user.Repository, ledger *wallet.Service) *UsersHandler {
	return &UsersHandler{Users: users, Ledger: ledger}
}

func (h *UsersHandler) Me(w http.ResponseWriter, r *http.Request) {
	usr, _ := r.Context().Value(utils.UserKey).(user.User)
	utils.BuildSuccessResponse(w, http.StatusOK, "Profile", usr)
}

type userView struct {
	user.User
	Summary *wallet.Summary `json:"summary,omitempty"`
}

func (h *UsersHandler) ListUsers(w http.ResponseWriter, r *http.Request) {
	page := utils.GetPaginationDetails(r)

	users, count, err := h.Users.List(r.Context(), page.Limit, page.Offset)
	if err != nil {
		wallet.WriteError(w, err, "Failed to fetch users")
		return
	}

	views := make([]userView, 0, len(users))
	for _, u := range users {
		view := userView{User: u}
		summary, err := h.Ledger.Summary(r.Context(), u.ID)
		if err != nil {
			logger.Warn("Failed to load user summary", logger.Merge(logger.WithError(err), logger.Fields{logger.UserIdKey: u.ID.String()}))
		} else {
			view.Summary = &summary
		}
		views = append(views, view)
	}

	utils.BuildSuccessResponse(w, http.StatusOK, "Users", map[string]interface{}{
		"users": views,
		"meta":  page.Meta(count),
	})
}

type RoleRequest struct {
	Role user.Role `json:"role"`
}

func (h *UsersHandler) UpdateRole(w http.ResponseWriter, r *http.Request) {
	actor, _ := r.Context().Value(utils.UserKey).(user.User)

	userID, err := id.IsValidUUID(mux.Vars(r)["id"])
	if err != nil {
		utils.BuildErrorResponse(w, http.StatusBadRequest, "Invalid user id", nil)
		return
	}

	var req RoleRequest
	if status, err := utils.DecodeJSONBody(w, r, &req); err != nil {
		utils.BuildErrorResponse(w, status, "Invalid request", map[string]string{"error": err.Error()})
		return
	}
	if !req.Role.Valid() {
		utils.BuildErrorResponse(w, http.StatusBadRequest, "Role must be one of user, agent, admin", nil)
		return
	}
	if userID == actor.ID && req.Role != user.RoleAdmin {
		utils.BuildErrorResponse(w, http.StatusBadRequest, "Admins cannot demote themselves", nil)
		return
	}

	if err := h.Users.UpdateRole(r.Context(), userID, req.Role); err != nil {
		wallet.WriteError(w, err, "Failed to update role")
		return
	}

	logger.Info("User role changed", logger.Fields{logger.UserIdKey: userID.String(), "role": string(req.Role), "by": actor.ID.String()})
	utils.BuildSuccessResponse(w, http.StatusOK, "Role updated", map[string]interface{}{
		"id":   userID,
		"role": req.Role,
	})
}
