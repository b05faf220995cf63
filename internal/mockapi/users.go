package mockapi

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/grouponesailor/tier2/internal/domain/access"
	"github.com/grouponesailor/tier2/internal/domain/model"
)

const userNotFound = "User not found"

// searchUsers отдаёт пользователей без списка групп.
func (h *Handler) searchUsers(w http.ResponseWriter, r *http.Request) {
	users := h.store.SearchUsers(r.URL.Query().Get("search"))
	for i := range users {
		users[i].AdGroups = nil
	}
	writeJSON(w, http.StatusOK, model.UserList{Count: len(users), Users: users})
}

func (h *Handler) user(w http.ResponseWriter, r *http.Request) {
	u, ok := h.store.User(chi.URLParam(r, "username"))
	if !ok {
		writeMessage(w, http.StatusNotFound, userNotFound)
		return
	}
	if u.AdGroups == nil {
		u.AdGroups = []string{}
	}
	writeJSON(w, http.StatusOK, u)
}

func (h *Handler) userADGroups(w http.ResponseWriter, r *http.Request) {
	u, ok := h.store.User(chi.URLParam(r, "username"))
	if !ok {
		writeMessage(w, http.StatusNotFound, userNotFound)
		return
	}

	groups := make([]model.ADGroup, 0, len(u.AdGroups))
	for _, name := range u.AdGroups {
		groups = append(groups, model.ADGroup{
			Name:        name,
			Type:        "Security",
			Description: "AD Group: " + name,
		})
	}
	writeJSON(w, http.StatusOK, model.UserADGroups{
		Username:    u.Username,
		DisplayName: u.DisplayName,
		Email:       u.Email,
		Department:  u.Department,
		Groups:      groups,
	})
}

func (h *Handler) userPermissions(w http.ResponseWriter, r *http.Request) {
	itemID, err := uuid.Parse(chi.URLParam(r, "itemId"))
	if err != nil {
		writeMessage(w, http.StatusBadRequest, "Invalid item ID format")
		return
	}
	u, ok := h.store.User(chi.URLParam(r, "username"))
	if !ok {
		writeMessage(w, http.StatusNotFound, userNotFound)
		return
	}

	required := r.URL.Query().Get("requiredAccess")
	if required == "" {
		required = access.Read
	}
	if level, ok := access.Normalize(required); ok {
		required = level
	}

	resp := model.UserPermissions{
		Username:       u.Username,
		DisplayName:    u.DisplayName,
		ItemID:         itemID,
		RequiredAccess: required,
		Permissions:    h.store.EffectivePermissions(u.Username, itemID),
	}
	if reason := h.store.CheckUserAccess(u.Username, itemID, required); reason != "" {
		resp.DenialReason = optString(reason)
	} else {
		resp.HasAccess = true
	}
	writeJSON(w, http.StatusOK, resp)
}
