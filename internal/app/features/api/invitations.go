// internal/app/features/api/invitations.go
package api

import (
	"net/http"
)

type inviteRequest struct {
	Email string `json:"email"`
}

func (h *Handler) handleCreateInvitation(w http.ResponseWriter, r *http.Request) {
	actorID, ok := h.currentUserID(w, r)
	if !ok {
		return
	}
	groupID, ok := h.pathID(w, r, "groupID")
	if !ok {
		return
	}
	var req inviteRequest
	if !h.decodeJSON(w, r, &req) {
		return
	}

	inv, err := h.Invites.Create(r.Context(), actorID, groupID, req.Email)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	h.writeJSON(w, http.StatusCreated, inv)
}

func (h *Handler) handleListGroupInvitations(w http.ResponseWriter, r *http.Request) {
	actorID, ok := h.currentUserID(w, r)
	if !ok {
		return
	}
	groupID, ok := h.pathID(w, r, "groupID")
	if !ok {
		return
	}

	invs, err := h.Invites.GetPendingForGroup(r.Context(), actorID, groupID)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	h.writeJSON(w, http.StatusOK, invs)
}

func (h *Handler) handleListMyInvitations(w http.ResponseWriter, r *http.Request) {
	actorID, ok := h.currentUserID(w, r)
	if !ok {
		return
	}
	invs, err := h.Invites.GetMyPending(r.Context(), actorID)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	h.writeJSON(w, http.StatusOK, invs)
}

func (h *Handler) handleGetInvitation(w http.ResponseWriter, r *http.Request) {
	actorID, ok := h.currentUserID(w, r)
	if !ok {
		return
	}
	invitationID, ok := h.pathID(w, r, "invitationID")
	if !ok {
		return
	}

	inv, err := h.Invites.Get(r.Context(), actorID, invitationID)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	h.writeJSON(w, http.StatusOK, inv)
}

func (h *Handler) handleAcceptInvitation(w http.ResponseWriter, r *http.Request) {
	actorID, ok := h.currentUserID(w, r)
	if !ok {
		return
	}
	invitationID, ok := h.pathID(w, r, "invitationID")
	if !ok {
		return
	}

	if err := h.Invites.Accept(r.Context(), actorID, invitationID); err != nil {
		h.writeError(w, r, err)
		return
	}
	h.writeJSON(w, http.StatusNoContent, nil)
}

func (h *Handler) handleRevokeInvitation(w http.ResponseWriter, r *http.Request) {
	actorID, ok := h.currentUserID(w, r)
	if !ok {
		return
	}
	invitationID, ok := h.pathID(w, r, "invitationID")
	if !ok {
		return
	}

	if err := h.Invites.Revoke(r.Context(), actorID, invitationID); err != nil {
		h.writeError(w, r, err)
		return
	}
	h.writeJSON(w, http.StatusNoContent, nil)
}
