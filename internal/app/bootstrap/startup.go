// internal/app/bootstrap/startup.go
package bootstrap

import (
	"context"
	"fmt"

	userstore "github.com/dalemusser/corix/internal/app/store/users"
	"github.com/dalemusser/corix/internal/app/system/tasks"
	"github.com/dalemusser/waffle/config"
	"go.uber.org/zap"
)

// taskRunner is the background worker for async work (outbound email).
// It is created here, handed to services in BuildHandler, and stopped
// in Shutdown.
var taskRunner *tasks.Runner

// Startup runs one-time application initialization after DB connections
// and schema setup are complete, but before the HTTP handler is built.
//
// Corix starts the task runner and, when superadmin_email is configured,
// promotes that account to super-admin.
func Startup(ctx context.Context, coreCfg *config.CoreConfig, appCfg AppConfig, deps DBDeps, logger *zap.Logger) error {
	taskRunner = tasks.NewRunner(logger, appCfg.TaskQueueSize)
	taskRunner.Start(context.Background())

	if appCfg.SuperAdminEmail != "" {
		if err := ensureSuperAdmin(ctx, deps, appCfg.SuperAdminEmail, logger); err != nil {
			return err
		}
	}
	return nil
}

// ensureSuperAdmin promotes the configured account. The account must
// already exist; creating one here would mean inventing a password out
// of band, so a missing account is a startup error the operator can act
// on.
func ensureSuperAdmin(ctx context.Context, deps DBDeps, email string, logger *zap.Logger) error {
	users := userstore.New(deps.MongoDatabase)

	u, err := users.FindByEmail(ctx, email)
	if err != nil {
		return fmt.Errorf("look up superadmin %s: %w", email, err)
	}
	if u == nil {
		logger.Warn("superadmin_email set but no such account exists yet; register it and restart",
			zap.String("email", email))
		return nil
	}
	if u.IsSuperAdmin {
		return nil
	}
	if err := users.SetSuperAdmin(ctx, u.ID, true); err != nil {
		return fmt.Errorf("promote superadmin %s: %w", email, err)
	}
	logger.Info("promoted super-admin", zap.String("email", email))
	return nil
}
