// internal/app/features/api/identity.go
package api

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/dalemusser/corix/internal/app/system/apperr"
	"github.com/dalemusser/corix/internal/app/system/auth"
	"github.com/dalemusser/corix/internal/app/system/mailer"
	"github.com/dalemusser/corix/internal/app/system/tasks"
	"github.com/dalemusser/corix/internal/domain/models"
	"go.uber.org/zap"
)

type credentialsRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type userResponse struct {
	ID            string `json:"id"`
	Email         string `json:"email"`
	EmailVerified bool   `json:"emailVerified"`
	IsSuperAdmin  bool   `json:"isSuperAdmin,omitempty"`
}

func toUserResponse(u models.User) userResponse {
	return userResponse{
		ID:            u.ID.Hex(),
		Email:         u.Email,
		EmailVerified: u.EmailVerifiedAt != nil,
		IsSuperAdmin:  u.IsSuperAdmin,
	}
}

// handleRegister creates an account and signs the caller in. The account
// starts unverified; a verification link goes out right away.
func (h *Handler) handleRegister(w http.ResponseWriter, r *http.Request) {
	var req credentialsRequest
	if !h.decodeJSON(w, r, &req) {
		return
	}

	u, err := h.Identity.Register(r.Context(), req.Email, req.Password)
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	if err := h.signIn(w, r, u); err != nil {
		h.writeError(w, r, err)
		return
	}
	h.queueVerificationEmail(r.Context(), u)
	h.writeJSON(w, http.StatusCreated, toUserResponse(u))
}

func (h *Handler) handleLogin(w http.ResponseWriter, r *http.Request) {
	var req credentialsRequest
	if !h.decodeJSON(w, r, &req) {
		return
	}

	u, err := h.Identity.Login(r.Context(), req.Email, req.Password)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	if err := h.signIn(w, r, u); err != nil {
		h.writeError(w, r, err)
		return
	}
	h.writeJSON(w, http.StatusOK, toUserResponse(u))
}

func (h *Handler) handleLogout(w http.ResponseWriter, r *http.Request) {
	if err := h.Sessions.SignOut(w, r); err != nil {
		h.writeError(w, r, apperr.Internal("sign out failed", err))
		return
	}
	h.writeJSON(w, http.StatusNoContent, nil)
}

// handleRequestVerification re-sends the verification link to the
// signed-in caller.
func (h *Handler) handleRequestVerification(w http.ResponseWriter, r *http.Request) {
	actorID, ok := h.currentUserID(w, r)
	if !ok {
		return
	}
	u, ok := auth.CurrentUser(r)
	if !ok {
		h.writeError(w, r, apperr.NotAuthenticated("sign in required"))
		return
	}

	h.queueVerificationEmail(r.Context(), models.User{ID: actorID, Email: u.Email})
	h.writeJSON(w, http.StatusAccepted, nil)
}

type verifyRequest struct {
	Token string `json:"token"`
}

type verifyResponse struct {
	InvitationsAccepted int `json:"invitationsAccepted"`
}

// handleVerifyEmail consumes a link token, stamps the verification time,
// and auto-accepts any pending invitations for the address.
func (h *Handler) handleVerifyEmail(w http.ResponseWriter, r *http.Request) {
	var req verifyRequest
	if !h.decodeJSON(w, r, &req) {
		return
	}
	if req.Token == "" {
		h.writeError(w, r, apperr.InvalidInput("token is required"))
		return
	}

	v, err := h.Verifications.VerifyToken(r.Context(), req.Token)
	if err != nil {
		h.writeError(w, r, apperr.NotFound("verification link is invalid or expired"))
		return
	}

	accepted, err := h.Identity.MarkEmailVerified(r.Context(), v.UserID)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	h.writeJSON(w, http.StatusOK, verifyResponse{InvitationsAccepted: accepted})
}

func (h *Handler) signIn(w http.ResponseWriter, r *http.Request, u models.User) error {
	err := h.Sessions.SignIn(w, r, auth.SessionUser{
		ID:           u.ID.Hex(),
		Email:        u.Email,
		IsSuperAdmin: u.IsSuperAdmin,
	})
	if err != nil {
		return apperr.Internal("create session", err)
	}
	return nil
}

// queueVerificationEmail issues a token and hands the send to the task
// runner. Send failures are logged, never surfaced; the caller can
// request another link.
func (h *Handler) queueVerificationEmail(ctx context.Context, u models.User) {
	token, err := h.Verifications.Create(ctx, u.ID, u.Email)
	if err != nil {
		h.Log.Error("issue verification token failed",
			zap.String("user_id", u.ID.Hex()),
			zap.Error(err))
		return
	}

	email := mailer.BuildVerificationEmail(mailer.VerificationEmailData{
		SiteName:   h.SiteName,
		VerifyLink: fmt.Sprintf("%s/verify-email?token=%s", h.BaseURL, token),
		ExpiresIn:  formatExpiry(h.Verifications.Expiry()),
	})
	email.To = u.Email

	h.Runner.Enqueue(tasks.Task{
		Name: "verification-email",
		Run: func(ctx context.Context) error {
			_, err := h.Mail.Send(email)
			return err
		},
	})
}

func formatExpiry(d time.Duration) string {
	if d >= time.Hour {
		return fmt.Sprintf("%d hours", int(d.Hours()))
	}
	return fmt.Sprintf("%d minutes", int(d.Minutes()))
}
