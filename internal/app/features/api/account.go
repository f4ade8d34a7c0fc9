// internal/app/features/api/account.go
package api

import (
	"net/http"

	"go.uber.org/zap"
)

func (h *Handler) handleDeleteCheck(w http.ResponseWriter, r *http.Request) {
	actorID, ok := h.currentUserID(w, r)
	if !ok {
		return
	}
	check, err := h.Users.CanDeleteAccount(r.Context(), actorID)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	h.writeJSON(w, http.StatusOK, check)
}

type deleteAccountResponse struct {
	Placeholder string `json:"placeholder"`
}

// handleDeleteAccount soft-deletes the caller and ends the session. The
// placeholder is what other members will see in old messages and audit
// entries.
func (h *Handler) handleDeleteAccount(w http.ResponseWriter, r *http.Request) {
	actorID, ok := h.currentUserID(w, r)
	if !ok {
		return
	}

	placeholder, err := h.Users.DeleteAccount(r.Context(), actorID)
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	if err := h.Verifications.DeleteByUser(r.Context(), actorID); err != nil {
		h.Log.Warn("clear pending verification failed", zap.Error(err))
	}
	if err := h.Sessions.SignOut(w, r); err != nil {
		h.Log.Warn("sign out after account deletion failed", zap.Error(err))
	}
	h.writeJSON(w, http.StatusOK, deleteAccountResponse{Placeholder: placeholder})
}

func (h *Handler) handlePurgeUser(w http.ResponseWriter, r *http.Request) {
	actorID, ok := h.currentUserID(w, r)
	if !ok {
		return
	}
	targetID, ok := h.pathID(w, r, "userID")
	if !ok {
		return
	}

	if err := h.Users.HardDelete(r.Context(), actorID, targetID); err != nil {
		h.writeError(w, r, err)
		return
	}
	if err := h.Verifications.DeleteByUser(r.Context(), targetID); err != nil {
		h.Log.Warn("clear pending verification failed", zap.Error(err))
	}
	h.writeJSON(w, http.StatusNoContent, nil)
}

type updateEmailRequest struct {
	Email string `json:"email"`
}

// handleUpdateEmail changes the address and restarts verification; the
// old verification state no longer vouches for the new address.
func (h *Handler) handleUpdateEmail(w http.ResponseWriter, r *http.Request) {
	actorID, ok := h.currentUserID(w, r)
	if !ok {
		return
	}
	var req updateEmailRequest
	if !h.decodeJSON(w, r, &req) {
		return
	}

	if err := h.Users.UpdateEmail(r.Context(), actorID, req.Email); err != nil {
		h.writeError(w, r, err)
		return
	}

	u, err := h.Identity.GetUser(r.Context(), actorID)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	if err := h.signIn(w, r, u); err != nil {
		h.writeError(w, r, err)
		return
	}
	h.queueVerificationEmail(r.Context(), u)
	h.writeJSON(w, http.StatusOK, toUserResponse(u))
}

type changePasswordRequest struct {
	CurrentPassword string `json:"currentPassword"`
	NewPassword     string `json:"newPassword"`
}

func (h *Handler) handleChangePassword(w http.ResponseWriter, r *http.Request) {
	actorID, ok := h.currentUserID(w, r)
	if !ok {
		return
	}
	var req changePasswordRequest
	if !h.decodeJSON(w, r, &req) {
		return
	}

	if err := h.Users.ChangePassword(r.Context(), actorID, req.CurrentPassword, req.NewPassword); err != nil {
		h.writeError(w, r, err)
		return
	}
	h.writeJSON(w, http.StatusNoContent, nil)
}

func (h *Handler) handleGetMe(w http.ResponseWriter, r *http.Request) {
	actorID, ok := h.currentUserID(w, r)
	if !ok {
		return
	}
	u, err := h.Identity.GetUser(r.Context(), actorID)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	h.writeJSON(w, http.StatusOK, toUserResponse(u))
}
