// internal/app/features/api/audit.go
package api

import (
	"net/http"
)

func (h *Handler) handleListAuditLog(w http.ResponseWriter, r *http.Request) {
	actorID, ok := h.currentUserID(w, r)
	if !ok {
		return
	}
	groupID, ok := h.pathID(w, r, "groupID")
	if !ok {
		return
	}

	entries, err := h.Audit.ListForGroup(r.Context(), actorID, groupID)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	h.writeJSON(w, http.StatusOK, entries)
}
