// internal/app/features/api/respond.go
package api

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/dalemusser/corix/internal/app/system/apperr"
	"github.com/dalemusser/corix/internal/app/system/auth"
	"github.com/go-chi/chi/v5"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"
)

const maxBodyBytes = 1 << 20 // 1 MiB; every API body is far smaller

type errorResponse struct {
	Error string `json:"error"`
	Kind  string `json:"kind"`
}

func (h *Handler) writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if v == nil {
		return
	}
	if err := json.NewEncoder(w).Encode(v); err != nil {
		h.Log.Error("encode response failed", zap.Error(err))
	}
}

// writeError maps the error taxonomy onto status codes. Unknown errors
// get a generic body so internals never leak to clients.
func (h *Handler) writeError(w http.ResponseWriter, r *http.Request, err error) {
	kind := apperr.KindOf(err)

	var status int
	switch kind {
	case apperr.KindNotAuthenticated:
		status = http.StatusUnauthorized
	case apperr.KindPermissionDenied:
		status = http.StatusForbidden
	case apperr.KindNotFound:
		status = http.StatusNotFound
	case apperr.KindInvalidInput:
		status = http.StatusBadRequest
	case apperr.KindConflict:
		status = http.StatusConflict
	case apperr.KindInvariantViolation:
		status = http.StatusUnprocessableEntity
	default:
		h.Log.Error("request failed",
			zap.String("path", r.URL.Path),
			zap.Error(err))
		h.writeJSON(w, http.StatusInternalServerError, errorResponse{
			Error: "internal error",
			Kind:  apperr.KindUnknown.String(),
		})
		return
	}

	msg := err.Error()
	var appErr *apperr.Error
	if errors.As(err, &appErr) {
		msg = appErr.Msg
	}
	h.writeJSON(w, status, errorResponse{Error: msg, Kind: kind.String()})
}

func (h *Handler) decodeJSON(w http.ResponseWriter, r *http.Request, dst any) bool {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		h.writeError(w, r, apperr.InvalidInput("malformed JSON body"))
		return false
	}
	return true
}

// currentUserID resolves the signed-in caller. RequireSignedIn runs
// before every gated route, so a miss here means middleware was skipped.
func (h *Handler) currentUserID(w http.ResponseWriter, r *http.Request) (primitive.ObjectID, bool) {
	u, ok := auth.CurrentUser(r)
	if !ok {
		h.writeError(w, r, apperr.NotAuthenticated("sign in required"))
		return primitive.NilObjectID, false
	}
	id, err := primitive.ObjectIDFromHex(u.ID)
	if err != nil {
		h.writeError(w, r, apperr.NotAuthenticated("invalid session"))
		return primitive.NilObjectID, false
	}
	return id, true
}

// parseObjectID parses an ObjectID from a request body field.
func parseObjectID(s, name string) (primitive.ObjectID, error) {
	id, err := primitive.ObjectIDFromHex(s)
	if err != nil {
		return primitive.NilObjectID, apperr.InvalidInput("invalid " + name)
	}
	return id, nil
}

// pathID parses an ObjectID URL parameter.
func (h *Handler) pathID(w http.ResponseWriter, r *http.Request, name string) (primitive.ObjectID, bool) {
	id, err := primitive.ObjectIDFromHex(chi.URLParam(r, name))
	if err != nil {
		h.writeError(w, r, apperr.InvalidInput("invalid "+name))
		return primitive.NilObjectID, false
	}
	return id, true
}
