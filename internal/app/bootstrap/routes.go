// internal/app/bootstrap/routes.go
package bootstrap

import (
	"net/http"

	apifeature "github.com/dalemusser/corix/internal/app/features/api"
	healthfeature "github.com/dalemusser/corix/internal/app/features/health"
	"github.com/dalemusser/corix/internal/app/service/auditsvc"
	"github.com/dalemusser/corix/internal/app/service/groupsvc"
	"github.com/dalemusser/corix/internal/app/service/identitysvc"
	"github.com/dalemusser/corix/internal/app/service/invitesvc"
	"github.com/dalemusser/corix/internal/app/service/membersvc"
	"github.com/dalemusser/corix/internal/app/service/messagesvc"
	"github.com/dalemusser/corix/internal/app/service/usersvc"
	auditstore "github.com/dalemusser/corix/internal/app/store/audit"
	emailverifystore "github.com/dalemusser/corix/internal/app/store/emailverify"
	groupstore "github.com/dalemusser/corix/internal/app/store/groups"
	invitestore "github.com/dalemusser/corix/internal/app/store/invitations"
	membershipstore "github.com/dalemusser/corix/internal/app/store/memberships"
	messagestore "github.com/dalemusser/corix/internal/app/store/messages"
	userstore "github.com/dalemusser/corix/internal/app/store/users"
	"github.com/dalemusser/corix/internal/app/system/auditlog"
	"github.com/dalemusser/corix/internal/app/system/auth"
	"github.com/dalemusser/corix/internal/app/system/mailer"
	"github.com/dalemusser/waffle/config"
	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"
)

// BuildHandler constructs the root HTTP handler for the app.
//
// WAFFLE calls this after configuration, DB connections, schema setup,
// and Startup have completed. All stores and services are built here
// once and shared across requests.
func BuildHandler(coreCfg *config.CoreConfig, appCfg AppConfig, deps DBDeps, logger *zap.Logger) (http.Handler, error) {
	secure := coreCfg.Env == "prod"
	sessionMgr, err := auth.NewSessionManager(
		appCfg.SessionKey, appCfg.SessionName, appCfg.SessionDomain,
		appCfg.SessionMaxAge, secure, logger)
	if err != nil {
		logger.Error("session manager init failed", zap.Error(err))
		return nil, err
	}

	db := deps.MongoDatabase
	users := userstore.New(db)
	groups := groupstore.New(db)
	memberships := membershipstore.New(db)
	invitations := invitestore.New(db)
	messages := messagestore.New(db)
	audit := auditstore.New(db)
	verifications := emailverifystore.New(db, 0)

	auditLog := auditlog.New(audit, logger)
	mail := mailer.New(
		appCfg.MailSMTPHost, appCfg.MailSMTPPort,
		appCfg.MailSMTPUser, appCfg.MailSMTPPass,
		appCfg.MailFrom, logger)

	client := deps.MongoClient
	groupSvc := groupsvc.New(client, groups, memberships, invitations, audit, users, auditLog, logger)
	memberSvc := membersvc.New(client, memberships, auditLog, logger)
	inviteSvc := invitesvc.New(client, invitations, memberships, groups, users, auditLog, mail, taskRunner,
		invitesvc.EmailConfig{SiteName: appCfg.SiteName, BaseURL: appCfg.BaseURL}, logger)
	userSvc := usersvc.New(client, users, groups, memberships, invitations, audit, logger)
	messageSvc := messagesvc.New(messages, memberships, users, logger)
	auditSvc := auditsvc.New(audit, memberships, users)
	identitySvc := identitysvc.New(users, inviteSvc, logger)

	apiHandler := apifeature.NewHandler(apifeature.Deps{
		Identity:      identitySvc,
		Groups:        groupSvc,
		Members:       memberSvc,
		Invites:       inviteSvc,
		Users:         userSvc,
		Messages:      messageSvc,
		Audit:         auditSvc,
		Verifications: verifications,
		Mail:          mail,
		Runner:        taskRunner,
		Sessions:      sessionMgr,
		SiteName:      appCfg.SiteName,
		BaseURL:       appCfg.BaseURL,
		Log:           logger,
	})

	r := chi.NewRouter()

	// Global auth middleware: loads SessionUser into context if signed in.
	r.Use(sessionMgr.LoadSessionUser)

	healthHandler := healthfeature.NewHandler(deps.MongoClient, logger)
	r.Mount("/health", healthfeature.Routes(healthHandler))

	r.Mount("/api/v1", apifeature.Routes(apiHandler))

	return r, nil
}
