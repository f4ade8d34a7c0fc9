// internal/app/features/api/messages.go
package api

import (
	"net/http"
	"strconv"
)

type postMessageRequest struct {
	Content string `json:"content"`
}

func (h *Handler) handlePostMessage(w http.ResponseWriter, r *http.Request) {
	actorID, ok := h.currentUserID(w, r)
	if !ok {
		return
	}
	groupID, ok := h.pathID(w, r, "groupID")
	if !ok {
		return
	}
	var req postMessageRequest
	if !h.decodeJSON(w, r, &req) {
		return
	}

	msg, err := h.Messages.Create(r.Context(), actorID, groupID, req.Content)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	h.writeJSON(w, http.StatusCreated, msg)
}

func (h *Handler) handleListMessages(w http.ResponseWriter, r *http.Request) {
	actorID, ok := h.currentUserID(w, r)
	if !ok {
		return
	}
	groupID, ok := h.pathID(w, r, "groupID")
	if !ok {
		return
	}

	// Bad limit values fall back to the service default.
	limit, _ := strconv.ParseInt(r.URL.Query().Get("limit"), 10, 64)

	msgs, err := h.Messages.ListRecent(r.Context(), actorID, groupID, limit)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	h.writeJSON(w, http.StatusOK, msgs)
}
