package api

import (
	"fmt"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"gorm.io/gorm"

	"github.com/charlesng35/folio/internal/app"
	"github.com/charlesng35/folio/internal/app/maintenance"
	iauth "github.com/charlesng35/folio/internal/auth"
	"github.com/charlesng35/folio/internal/auth/providers"
	"github.com/charlesng35/folio/internal/cache"
	"github.com/charlesng35/folio/internal/handlers"
	"github.com/charlesng35/folio/internal/middleware"
	"github.com/charlesng35/folio/internal/security"
	"github.com/charlesng35/folio/internal/services"
)

// NewRouter builds the Gin engine, wires middleware and registers all routes.
// store backs rate limiting and may be nil to disable it.
func NewRouter(db *gorm.DB, jwt *iauth.JWTService, cfg *app.Config, sessions *iauth.SessionService, store cache.Store) (*gin.Engine, error) {
	if db == nil {
		return nil, fmt.Errorf("database handle must be provided")
	}
	if jwt == nil {
		return nil, fmt.Errorf("jwt service must be provided")
	}
	if sessions == nil {
		return nil, fmt.Errorf("session service must be provided")
	}
	if cfg == nil {
		return nil, fmt.Errorf("config must be provided")
	}

	svc, err := newServiceSet(db, cfg)
	if err != nil {
		return nil, err
	}

	provider, err := providers.NewLocalProvider(db, cfg.LocalProviderConfig())
	if err != nil {
		return nil, err
	}

	r := gin.New()

	// Global middleware
	r.Use(middleware.Recovery())
	r.Use(middleware.RequestID())
	r.Use(middleware.Logger())
	r.Use(middleware.Metrics())
	r.Use(middleware.SecurityHeaders())
	r.Use(middleware.Timeout(cfg.Server.RequestTimeout))

	registerHealthRoutes(r, cfg, db, store)

	authenticator := middleware.NewAuthenticator(jwt, sessions, svc.users)
	throttle := func(c *gin.Context) { c.Next() }
	if cfg.RateLimit.Enabled {
		throttle = middleware.RateLimit(store, cfg.RateLimit.Requests, cfg.RateLimit.Window)
	}

	authHandler, err := handlers.NewAuthHandler(handlers.AuthHandlerDeps{
		Provider:     provider,
		Sessions:     sessions,
		Users:        svc.users,
		Registration: svc.registration,
		Activity:     svc.activity,
		WarningDays:  cfg.Access.WarningDays,
	})
	if err != nil {
		return nil, err
	}

	api := r.Group("/api")
	protected := api.Group("")
	protected.Use(authenticator.Required())

	registerAuthRoutes(api, protected, authRouteDeps{
		Handler:  authHandler,
		Auth:     authenticator,
		Throttle: throttle,
	})

	registerPublicRoutes(api, protected, publicRouteDeps{
		Invites:  handlers.NewInviteHandler(svc.invites),
		Site:     handlers.NewSiteHandler(svc.site),
		Access:   handlers.NewAccessHandler(nil),
		Setup:    handlers.NewSetupHandler(svc.users),
		Auth:     authenticator,
		Throttle: throttle,
	})

	registerExtensionRoutes(protected, handlers.NewExtensionHandler(svc.extensions))

	var counters maintenance.CounterPurger
	if purger, ok := store.(maintenance.CounterPurger); ok && purger != nil {
		counters = purger
	}

	registerAdminRoutes(protected, adminRouteDeps{
		Invites:     handlers.NewInviteHandler(svc.invites),
		Extensions:  handlers.NewExtensionHandler(svc.extensions),
		Companies:   handlers.NewCompanyHandler(svc.users),
		Activity:    handlers.NewActivityHandler(svc.activity),
		Stats:       handlers.NewStatsHandler(svc.stats),
		Site:        handlers.NewSiteHandler(svc.site),
		Maintenance: handlers.NewMaintenanceHandler(maintenance.NewCleaner(sessions, counters)),
		Security:    handlers.NewSecurityHandler(security.NewAuditService(db, jwt, cfg)),
	})

	// Metrics endpoint
	if cfg.Monitoring.Prometheus.Enabled {
		endpoint := strings.TrimSpace(cfg.Monitoring.Prometheus.Endpoint)
		if endpoint == "" {
			endpoint = "/metrics"
		}
		r.GET(endpoint, gin.WrapH(promhttp.Handler()))
	}

	// NotFound fallback
	r.NoRoute(middleware.NotFoundHandler)

	return r, nil
}

// serviceSet holds the domain services shared by the handlers.
type serviceSet struct {
	activity     *services.ActivityService
	invites      *services.InviteService
	users        *services.UserService
	registration *services.RegistrationService
	extensions   *services.ExtensionService
	site         *services.SiteService
	stats        *services.StatsService
}

func newServiceSet(db *gorm.DB, cfg *app.Config) (*serviceSet, error) {
	policy := cfg.Database.StorePolicy()

	activity, err := services.NewActivityService(db,
		services.WithActivityRetention(cfg.Activity.Retention),
		services.WithActivityStorePolicy(policy),
	)
	if err != nil {
		return nil, err
	}

	invites, err := services.NewInviteService(db, activity,
		services.WithInviteBaseURL(cfg.Server.BaseURL),
		services.WithInviteExpiry(cfg.Access.InviteTTL),
		services.WithInviteStorePolicy(policy),
	)
	if err != nil {
		return nil, err
	}

	users, err := services.NewUserService(db,
		services.WithUserStorePolicy(policy),
		services.WithUserWarningDays(cfg.Access.WarningDays),
	)
	if err != nil {
		return nil, err
	}

	registration, err := services.NewRegistrationService(db, invites, activity,
		services.WithInitialWindow(cfg.Access.InitialWindow),
		services.WithRegistrationStorePolicy(policy),
	)
	if err != nil {
		return nil, err
	}

	extensions, err := services.NewExtensionService(db, activity,
		services.WithExtensionGrant(cfg.Access.ExtensionGrant),
		services.WithMinReasonLength(cfg.Access.MinReasonLength),
		services.WithExtensionStorePolicy(policy),
	)
	if err != nil {
		return nil, err
	}

	site, err := services.NewSiteService(db, services.WithSiteStorePolicy(policy))
	if err != nil {
		return nil, err
	}

	stats, err := services.NewStatsService(users, invites, extensions, activity)
	if err != nil {
		return nil, err
	}

	return &serviceSet{
		activity:     activity,
		invites:      invites,
		users:        users,
		registration: registration,
		extensions:   extensions,
		site:         site,
		stats:        stats,
	}, nil
}
