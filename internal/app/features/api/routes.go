// internal/app/features/api/routes.go
package api

import (
	"github.com/go-chi/chi/v5"
)

// Routes mounts the JSON API. Registration, login, and the verification
// link are public; everything else requires a session.
func Routes(h *Handler) chi.Router {
	r := chi.NewRouter()

	// AUTH
	r.Post("/auth/register", h.handleRegister)
	r.Post("/auth/login", h.handleLogin)
	r.Post("/auth/verify-email", h.handleVerifyEmail)

	r.Group(func(pr chi.Router) {
		pr.Use(h.Sessions.RequireSignedIn)

		pr.Post("/auth/logout", h.handleLogout)
		pr.Post("/auth/verify-email/request", h.handleRequestVerification)

		// ACCOUNT
		pr.Get("/me", h.handleGetMe)
		pr.Get("/me/delete-check", h.handleDeleteCheck)
		pr.Delete("/me", h.handleDeleteAccount)
		pr.Put("/me/email", h.handleUpdateEmail)
		pr.Put("/me/password", h.handleChangePassword)
		pr.Get("/me/invitations", h.handleListMyInvitations)

		// GROUPS
		pr.Post("/groups", h.handleCreateGroup)
		pr.Get("/groups", h.handleListMyGroups)
		pr.Get("/groups/deleted", h.handleFindDeletedGroups)
		pr.Get("/groups/{groupID}", h.handleGetGroup)
		pr.Put("/groups/{groupID}/name", h.handleRenameGroup)
		pr.Delete("/groups/{groupID}", h.handleDeleteGroup)
		pr.Post("/groups/{groupID}/restore", h.handleRestoreGroup)
		pr.Delete("/groups/{groupID}/purge", h.handlePurgeGroup)

		// MEMBERS
		pr.Get("/groups/{groupID}/members", h.handleListMembers)
		pr.Get("/groups/{groupID}/members/me", h.handleGetMyMembership)
		pr.Put("/groups/{groupID}/members/{userID}/role", h.handleChangeRole)
		pr.Post("/groups/{groupID}/leave", h.handleLeaveGroup)

		// INVITATIONS
		pr.Post("/groups/{groupID}/invitations", h.handleCreateInvitation)
		pr.Get("/groups/{groupID}/invitations", h.handleListGroupInvitations)
		pr.Get("/invitations/{invitationID}", h.handleGetInvitation)
		pr.Post("/invitations/{invitationID}/accept", h.handleAcceptInvitation)
		pr.Post("/invitations/{invitationID}/revoke", h.handleRevokeInvitation)

		// MESSAGES
		pr.Post("/groups/{groupID}/messages", h.handlePostMessage)
		pr.Get("/groups/{groupID}/messages", h.handleListMessages)

		// AUDIT
		pr.Get("/groups/{groupID}/audit", h.handleListAuditLog)

		// SUPER-ADMIN
		pr.Delete("/users/{userID}/purge", h.handlePurgeUser)
	})

	return r
}
