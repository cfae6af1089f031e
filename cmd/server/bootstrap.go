package main

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/gin-gonic/gin"
	"go.uber.org/multierr"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/charlesng35/folio/internal/api"
	"github.com/charlesng35/folio/internal/app"
	iauth "github.com/charlesng35/folio/internal/auth"
	"github.com/charlesng35/folio/internal/cache"
	"github.com/charlesng35/folio/internal/database"
	"github.com/charlesng35/folio/internal/services"
	"github.com/charlesng35/folio/pkg/logger"
)

// runtimeStack bundles long-lived services used by the HTTP server.
type runtimeStack struct {
	DB         *gorm.DB
	Redis      *cache.RedisStore
	SessionSvc *iauth.SessionService
	Router     *gin.Engine
}

// bootstrapRuntime initialises the database, the counter store, auth services, and the HTTP router.
func bootstrapRuntime(ctx context.Context, cfg *app.Config, log *zap.Logger) (*runtimeStack, error) {
	stack := &runtimeStack{}
	var err error
	success := false

	defer func() {
		if !success {
			if shutdownErr := stack.Shutdown(); shutdownErr != nil {
				log.Warn("release partially initialised runtime", zap.Error(shutdownErr))
			}
		}
	}()

	// enable gin debug mode
	if debug, _ := os.LookupEnv("GIN_DEBUG"); debug != "true" {
		gin.SetMode(gin.ReleaseMode)
	}

	stack.DB, err = initialiseDatabase(cfg)
	if err != nil {
		return nil, err
	}

	var store cache.Store = cache.NewDatabaseStore(stack.DB)
	if cfg.Cache.Redis.Enabled {
		if stack.Redis, err = cache.NewRedisStore(ctx, cfg.Cache.RedisClientConfig()); err != nil {
			log.Warn("redis unavailable; falling back to database-backed counters", zap.Error(err))
			stack.Redis = nil
		} else {
			store = stack.Redis
			log.Info("redis connected", zap.String("addr", cfg.Cache.Redis.Address))
		}
	}

	jwtSvc, err := iauth.NewJWTService(cfg.Auth.JWTServiceConfig())
	if err != nil {
		return nil, fmt.Errorf("initialise jwt service: %w", err)
	}

	stack.SessionSvc, err = iauth.NewSessionService(stack.DB, jwtSvc, cfg.SessionServiceConfig())
	if err != nil {
		return nil, fmt.Errorf("initialise session service: %w", err)
	}

	if err := seedAdmin(ctx, stack.DB, cfg, log); err != nil {
		return nil, err
	}

	stack.Router, err = api.NewRouter(stack.DB, jwtSvc, cfg, stack.SessionSvc, store)
	if err != nil {
		return nil, fmt.Errorf("build api router: %w", err)
	}

	success = true
	return stack, nil
}

// Shutdown releases the counter store and the database pool.
func (s *runtimeStack) Shutdown() error {
	if s == nil {
		return nil
	}

	var err error
	if s.Redis != nil {
		err = multierr.Append(err, s.Redis.Close())
	}
	if s.DB != nil {
		err = multierr.Append(err, database.Close(s.DB))
	}
	return err
}

func initialiseDatabase(cfg *app.Config) (*gorm.DB, error) {
	dbCfg := cfg.Database.ConnectionConfig()
	db, err := database.Open(dbCfg)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	if err := database.AutoMigrateAndSeed(db); err != nil {
		_ = database.Close(db)
		return nil, fmt.Errorf("auto-migrate database: %w", err)
	}

	log := logger.WithModule("database")
	log.Info("database connected", zap.String("driver", strings.ToLower(dbCfg.Driver)))

	return db, nil
}

// seedAdmin creates the configured administrator on first start. An existing
// administrator is left untouched.
func seedAdmin(ctx context.Context, db *gorm.DB, cfg *app.Config, log *zap.Logger) error {
	if !cfg.Bootstrap.Enabled() {
		return nil
	}

	users, err := services.NewUserService(db, services.WithUserStorePolicy(cfg.Database.StorePolicy()))
	if err != nil {
		return fmt.Errorf("initialise user service: %w", err)
	}

	created, err := users.EnsureAdmin(ctx, services.CreateAdminInput{
		Email:       cfg.Bootstrap.AdminEmail,
		Password:    cfg.Bootstrap.AdminPassword,
		CompanyName: cfg.Bootstrap.AdminCompany,
	})
	if err != nil {
		return fmt.Errorf("bootstrap admin: %w", err)
	}
	if created {
		log.Info("bootstrap admin created", zap.String("email", strings.ToLower(strings.TrimSpace(cfg.Bootstrap.AdminEmail))))
	}
	return nil
}
