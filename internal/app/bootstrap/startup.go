// internal/app/bootstrap/startup.go
package bootstrap

import (
	"context"
	"errors"
	"time"

	"github.com/combinefoundation/portal/internal/app/store/audit"
	"github.com/combinefoundation/portal/internal/app/store/errorlog"
	userstore "github.com/combinefoundation/portal/internal/app/store/users"
	"github.com/combinefoundation/portal/internal/app/system/passwords"
	"github.com/combinefoundation/portal/internal/domain/models"
	"github.com/dalemusser/waffle/config"
	"github.com/robfig/cron/v3"
	"go.mongodb.org/mongo-driver/mongo"
	"go.uber.org/zap"
)

// purgeCron runs the nightly log retention job. Created in Startup,
// stopped in Shutdown.
var purgeCron *cron.Cron

// Startup runs one-time application initialization after DB connections
// and schema setup are complete, but before the HTTP handler is built.
func Startup(ctx context.Context, coreCfg *config.CoreConfig, appCfg AppConfig, deps DBDeps, logger *zap.Logger) error {
	if err := ensureSuperAdmin(ctx, appCfg, deps, logger); err != nil {
		return err
	}
	startLogRetention(appCfg, deps, logger)
	return nil
}

// ensureSuperAdmin creates the configured superadmin account if it does
// not exist yet. An existing account is left untouched apart from a
// warning when it holds a different role.
func ensureSuperAdmin(ctx context.Context, appCfg AppConfig, deps DBDeps, logger *zap.Logger) error {
	if appCfg.SuperAdminEmail == "" {
		logger.Warn("superadmin_email not set; no superadmin account will be bootstrapped")
		return nil
	}

	users := userstore.New(deps.MongoDatabase)
	existing, err := users.GetByEmail(ctx, appCfg.SuperAdminEmail)
	if err == nil {
		if existing.Role != models.RoleSuperAdmin {
			logger.Warn("configured superadmin email belongs to a non-superadmin account",
				zap.String("email", appCfg.SuperAdminEmail),
				zap.String("role", existing.Role))
		}
		return nil
	}
	if !errors.Is(err, mongo.ErrNoDocuments) {
		return err
	}

	password := appCfg.SuperAdminPassword
	generated := password == ""
	if generated {
		password = passwords.Temporary(16)
	}
	hash, err := passwords.Hash(password)
	if err != nil {
		return err
	}

	created, err := users.Create(ctx, models.User{
		FullName:     "Super Admin",
		Email:        appCfg.SuperAdminEmail,
		Role:         models.RoleSuperAdmin,
		PasswordHash: hash,
	})
	if err != nil {
		return err
	}

	logger.Info("superadmin account created",
		zap.String("email", created.Email), zap.String("id", created.ID.Hex()))
	if generated {
		// Printed once; the operator is expected to sign in and change it.
		logger.Warn("superadmin password was generated", zap.String("password", password))
	}
	return nil
}

// startLogRetention schedules the nightly purge of audit and error
// entries past the retention window.
func startLogRetention(appCfg AppConfig, deps DBDeps, logger *zap.Logger) {
	audits := audit.New(deps.MongoDatabase)
	errlogs := errorlog.New(deps.MongoDatabase)

	purgeCron = cron.New()
	_, err := purgeCron.AddFunc("15 3 * * *", func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
		defer cancel()
		cutoff := time.Now().AddDate(0, 0, -appCfg.LogRetentionDays)

		na, err := audits.PurgeOlderThan(ctx, cutoff)
		if err != nil {
			logger.Error("audit log purge failed", zap.Error(err))
		}
		ne, err := errlogs.PurgeOlderThan(ctx, cutoff)
		if err != nil {
			logger.Error("error log purge failed", zap.Error(err))
		}
		logger.Info("log retention purge complete",
			zap.Int64("audit_deleted", na), zap.Int64("errors_deleted", ne),
			zap.Int("retention_days", appCfg.LogRetentionDays))
	})
	if err != nil {
		logger.Error("could not schedule log retention job", zap.Error(err))
		return
	}
	purgeCron.Start()
	logger.Info("log retention job scheduled", zap.Int("retention_days", appCfg.LogRetentionDays))
}
