// internal/app/features/api/members.go
package api

import (
	"net/http"
)

type changeRoleRequest struct {
	Role string `json:"role"`
}

func (h *Handler) handleChangeRole(w http.ResponseWriter, r *http.Request) {
	actorID, ok := h.currentUserID(w, r)
	if !ok {
		return
	}
	groupID, ok := h.pathID(w, r, "groupID")
	if !ok {
		return
	}
	targetID, ok := h.pathID(w, r, "userID")
	if !ok {
		return
	}
	var req changeRoleRequest
	if !h.decodeJSON(w, r, &req) {
		return
	}

	if err := h.Members.ChangeRole(r.Context(), actorID, groupID, targetID, req.Role); err != nil {
		h.writeError(w, r, err)
		return
	}
	h.writeJSON(w, http.StatusNoContent, nil)
}

func (h *Handler) handleLeaveGroup(w http.ResponseWriter, r *http.Request) {
	actorID, ok := h.currentUserID(w, r)
	if !ok {
		return
	}
	groupID, ok := h.pathID(w, r, "groupID")
	if !ok {
		return
	}

	if err := h.Members.LeaveGroup(r.Context(), actorID, groupID); err != nil {
		h.writeError(w, r, err)
		return
	}
	h.writeJSON(w, http.StatusNoContent, nil)
}

func (h *Handler) handleGetMyMembership(w http.ResponseWriter, r *http.Request) {
	actorID, ok := h.currentUserID(w, r)
	if !ok {
		return
	}
	groupID, ok := h.pathID(w, r, "groupID")
	if !ok {
		return
	}

	m, err := h.Members.GetMyMembership(r.Context(), actorID, groupID)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	h.writeJSON(w, http.StatusOK, m)
}
