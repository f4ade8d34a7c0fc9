// internal/app/features/api/groups.go
package api

import (
	"net/http"
)

type groupNameRequest struct {
	Name string `json:"name"`
}

func (h *Handler) handleCreateGroup(w http.ResponseWriter, r *http.Request) {
	actorID, ok := h.currentUserID(w, r)
	if !ok {
		return
	}
	var req groupNameRequest
	if !h.decodeJSON(w, r, &req) {
		return
	}

	g, err := h.Groups.Create(r.Context(), actorID, req.Name)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	h.writeJSON(w, http.StatusCreated, g)
}

func (h *Handler) handleListMyGroups(w http.ResponseWriter, r *http.Request) {
	actorID, ok := h.currentUserID(w, r)
	if !ok {
		return
	}
	groups, err := h.Groups.MyGroups(r.Context(), actorID)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	h.writeJSON(w, http.StatusOK, groups)
}

func (h *Handler) handleGetGroup(w http.ResponseWriter, r *http.Request) {
	actorID, ok := h.currentUserID(w, r)
	if !ok {
		return
	}
	groupID, ok := h.pathID(w, r, "groupID")
	if !ok {
		return
	}

	g, err := h.Groups.Get(r.Context(), actorID, groupID)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	h.writeJSON(w, http.StatusOK, g)
}

func (h *Handler) handleRenameGroup(w http.ResponseWriter, r *http.Request) {
	actorID, ok := h.currentUserID(w, r)
	if !ok {
		return
	}
	groupID, ok := h.pathID(w, r, "groupID")
	if !ok {
		return
	}
	var req groupNameRequest
	if !h.decodeJSON(w, r, &req) {
		return
	}

	if err := h.Groups.Rename(r.Context(), actorID, groupID, req.Name); err != nil {
		h.writeError(w, r, err)
		return
	}
	h.writeJSON(w, http.StatusNoContent, nil)
}

func (h *Handler) handleDeleteGroup(w http.ResponseWriter, r *http.Request) {
	actorID, ok := h.currentUserID(w, r)
	if !ok {
		return
	}
	groupID, ok := h.pathID(w, r, "groupID")
	if !ok {
		return
	}

	if err := h.Groups.SoftDelete(r.Context(), actorID, groupID); err != nil {
		h.writeError(w, r, err)
		return
	}
	h.writeJSON(w, http.StatusNoContent, nil)
}

type restoreGroupRequest struct {
	NewAdminUserID string `json:"newAdminUserId"`
}

// handleRestoreGroup is super-admin only. Restore does not bring old
// memberships back; the nominated member becomes the sole admin.
func (h *Handler) handleRestoreGroup(w http.ResponseWriter, r *http.Request) {
	actorID, ok := h.currentUserID(w, r)
	if !ok {
		return
	}
	groupID, ok := h.pathID(w, r, "groupID")
	if !ok {
		return
	}
	var req restoreGroupRequest
	if !h.decodeJSON(w, r, &req) {
		return
	}
	newAdminID, err := parseObjectID(req.NewAdminUserID, "newAdminUserId")
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	if err := h.Groups.Restore(r.Context(), actorID, groupID, newAdminID); err != nil {
		h.writeError(w, r, err)
		return
	}
	h.writeJSON(w, http.StatusNoContent, nil)
}

func (h *Handler) handlePurgeGroup(w http.ResponseWriter, r *http.Request) {
	actorID, ok := h.currentUserID(w, r)
	if !ok {
		return
	}
	groupID, ok := h.pathID(w, r, "groupID")
	if !ok {
		return
	}

	if err := h.Groups.HardDelete(r.Context(), actorID, groupID); err != nil {
		h.writeError(w, r, err)
		return
	}
	h.writeJSON(w, http.StatusNoContent, nil)
}

func (h *Handler) handleFindDeletedGroups(w http.ResponseWriter, r *http.Request) {
	actorID, ok := h.currentUserID(w, r)
	if !ok {
		return
	}
	groups, err := h.Groups.FindDeletedByName(r.Context(), actorID, r.URL.Query().Get("name"))
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	h.writeJSON(w, http.StatusOK, groups)
}

func (h *Handler) handleListMembers(w http.ResponseWriter, r *http.Request) {
	actorID, ok := h.currentUserID(w, r)
	if !ok {
		return
	}
	groupID, ok := h.pathID(w, r, "groupID")
	if !ok {
		return
	}

	members, err := h.Groups.GetMembers(r.Context(), actorID, groupID)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	h.writeJSON(w, http.StatusOK, members)
}
