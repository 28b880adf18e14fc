package app

import (
	"context"
	"embed"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/keyxmakerx/radio/internal/middleware"
	"github.com/keyxmakerx/radio/internal/plugins/audit"
	"github.com/keyxmakerx/radio/internal/plugins/auth"
	"github.com/keyxmakerx/radio/internal/plugins/events"
	"github.com/keyxmakerx/radio/internal/plugins/playback"
	"github.com/keyxmakerx/radio/internal/plugins/settings"
	"github.com/keyxmakerx/radio/internal/plugins/stations"
	"github.com/keyxmakerx/radio/internal/templates/layouts"
)

//go:embed static
var staticFS embed.FS

// RegisterRoutes builds every plugin and registers its routes. This is the
// single place where all routes are aggregated. Stored playback settings
// are applied to the player before the first request is served.
func (a *App) RegisterRoutes(ctx context.Context) error {
	e := a.Echo

	e.GET("/healthz", a.healthz)
	e.GET("/metrics", echo.WrapHandler(promhttp.Handler()))
	e.StaticFS("/static", echo.MustSubFS(staticFS, "static"))

	// --- auth ---
	userRepo := auth.NewUserRepository(a.DB)
	authService := auth.NewAuthService(userRepo, a.Redis, a.Config.Auth.SessionTTL)
	auth.RegisterRoutes(e, auth.NewHandler(authService, a.Config.Auth.SessionTTL), a.Config.Auth.LoginRate)
	a.installLayoutInjector(authService)

	// --- audit ---
	auditService := audit.NewAuditService(audit.NewAuditRepository(a.DB))
	audit.RegisterRoutes(e, audit.NewHandler(auditService), authService)

	// --- stations ---
	stationService := stations.NewStationService(
		stations.NewStationRepository(a.DB),
		a.Config.Media.Path,
		a.Config.Media.MaxSize,
		a.Config.Media.ThumbSize,
	)
	stationHandler := stations.NewHandler(stationService)
	stationHandler.SetAuditLogger(auditService)
	stations.RegisterRoutes(e, stationHandler, authService, a.Config.Media.MaxSize)

	// --- settings ---
	settingsService := settings.NewSettingsService(settings.NewSettingsRepository(a.DB), a.Player)
	settingsHandler := settings.NewHandler(settingsService)
	settingsHandler.SetAuditLogger(auditService)
	settings.RegisterRoutes(e, settingsHandler, authService)
	if err := settingsService.Apply(ctx); err != nil {
		return err
	}

	// --- playback ---
	playbackHandler := playback.NewHandler(a.Player, stationService, settingsService, a.Notifier)
	playbackHandler.SetAuditLogger(auditService)
	playback.RegisterRoutes(e, playbackHandler, authService)

	// --- events ---
	events.RegisterRoutes(e, events.NewHandler(a.Hub, a.Player, a.Config.BaseURL), authService)

	return nil
}

// installLayoutInjector fills the layout data templates read: the signed-in
// user, the CSRF token and the current path. Pages outside RequireAuth
// (login, errors) look the session up themselves.
func (a *App) installLayoutInjector(authService auth.AuthService) {
	middleware.LayoutInjector = func(c echo.Context, ctx context.Context) context.Context {
		session := auth.GetSession(c)
		if session == nil {
			session = auth.LookupSession(c, authService)
		}
		if session != nil {
			ctx = layouts.SetIsAuthenticated(ctx, true)
			ctx = layouts.SetUserName(ctx, session.Username)
			ctx = layouts.SetIsAdmin(ctx, session.IsAdmin)
		}
		ctx = layouts.SetCSRFToken(ctx, middleware.GetCSRFToken(c))
		ctx = layouts.SetActivePath(ctx, c.Request().URL.Path)
		return ctx
	}
}

// healthz reports whether MariaDB and Redis answer.
func (a *App) healthz(c echo.Context) error {
	ctx, cancel := context.WithTimeout(c.Request().Context(), 2*time.Second)
	defer cancel()

	status := map[string]string{"status": "ok", "database": "ok", "redis": "ok"}
	code := http.StatusOK
	if err := a.DB.PingContext(ctx); err != nil {
		status["database"], status["status"] = err.Error(), "degraded"
		code = http.StatusServiceUnavailable
	}
	if err := a.Redis.Ping(ctx).Err(); err != nil {
		status["redis"], status["status"] = err.Error(), "degraded"
		code = http.StatusServiceUnavailable
	}
	status["player"] = "stopped"
	if a.Player.Status().Playing {
		status["player"] = "playing"
	}
	return c.JSON(code, status)
}
