// internal/app/features/api/handler.go
package api

import (
	"github.com/dalemusser/corix/internal/app/service/auditsvc"
	"github.com/dalemusser/corix/internal/app/service/groupsvc"
	"github.com/dalemusser/corix/internal/app/service/identitysvc"
	"github.com/dalemusser/corix/internal/app/service/invitesvc"
	"github.com/dalemusser/corix/internal/app/service/membersvc"
	"github.com/dalemusser/corix/internal/app/service/messagesvc"
	"github.com/dalemusser/corix/internal/app/service/usersvc"
	emailverifystore "github.com/dalemusser/corix/internal/app/store/emailverify"
	"github.com/dalemusser/corix/internal/app/system/auth"
	"github.com/dalemusser/corix/internal/app/system/mailer"
	"github.com/dalemusser/corix/internal/app/system/tasks"
	"go.uber.org/zap"
)

// Deps bundles everything the JSON API needs. BuildHandler fills this in
// once at startup.
type Deps struct {
	Identity *identitysvc.Service
	Groups   *groupsvc.Service
	Members  *membersvc.Service
	Invites  *invitesvc.Service
	Users    *usersvc.Service
	Messages *messagesvc.Service
	Audit    *auditsvc.Service

	Verifications *emailverifystore.Store
	Mail          *mailer.Mailer
	Runner        *tasks.Runner
	Sessions      *auth.SessionManager

	SiteName string
	BaseURL  string

	Log *zap.Logger
}

// Handler exposes the core operations as a thin JSON API. Services never
// see HTTP types; this layer only decodes requests, resolves the session
// user, and maps typed errors to status codes.
type Handler struct {
	Deps
}

func NewHandler(d Deps) *Handler {
	return &Handler{Deps: d}
}
