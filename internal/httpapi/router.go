// Package httpapi exposes the service over a JSON HTTP API. Handlers decode
// and validate payloads, translate opaque identifiers, and delegate to the
// service layer; they never touch the stores directly.
package httpapi

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"planloom/internal/auth"
	"planloom/internal/codec"
	"planloom/internal/service"
)

type RouterOpts struct {
	Logger *slog.Logger
	IsProd bool

	Auth          *service.AuthService
	Templates     *service.TemplateService
	Projects      *service.ProjectService
	Events        *service.EventService
	Tags          *service.TagService
	Settings      *service.SettingsService
	Notifications *service.NotificationService

	Codec        *codec.Codec
	CookieCodec  auth.CookieCodec
	CookieSecure bool
	SessionTTL   time.Duration

	GoogleClientID string
	AppleServiceID string

	// DBPing backs the health endpoint; nil reports healthy unconditionally.
	DBPing func(ctx context.Context) error
}

type api struct {
	logger *slog.Logger
	isProd bool

	authSvc         *service.AuthService
	templateSvc     *service.TemplateService
	projectSvc      *service.ProjectService
	eventSvc        *service.EventService
	tagSvc          *service.TagService
	settingsSvc     *service.SettingsService
	notificationSvc *service.NotificationService

	codec        *codec.Codec
	cookieCodec  auth.CookieCodec
	cookieSecure bool
	sessionTTL   time.Duration

	googleClientID string
	appleServiceID string

	dbPing       func(ctx context.Context) error
	loginLimiter *loginLimiter
}

func NewRouter(opts RouterOpts) http.Handler {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}

	a := &api{
		logger:          logger,
		isProd:          opts.IsProd,
		authSvc:         opts.Auth,
		templateSvc:     opts.Templates,
		projectSvc:      opts.Projects,
		eventSvc:        opts.Events,
		tagSvc:          opts.Tags,
		settingsSvc:     opts.Settings,
		notificationSvc: opts.Notifications,
		codec:           opts.Codec,
		cookieCodec:     opts.CookieCodec,
		cookieSecure:    opts.CookieSecure,
		sessionTTL:      opts.SessionTTL,
		googleClientID:  opts.GoogleClientID,
		appleServiceID:  opts.AppleServiceID,
		dbPing:          opts.DBPing,
		loginLimiter:    newLoginLimiter(5*time.Minute, 10),
	}

	mux := http.NewServeMux()

	mux.HandleFunc("GET /healthz", a.handleHealthz)

	mux.HandleFunc("POST /v1/auth/register", a.handleRegister)
	mux.HandleFunc("POST /v1/auth/login", a.handleLogin)
	mux.HandleFunc("POST /v1/auth/login/google", a.handleLoginGoogle)
	mux.HandleFunc("POST /v1/auth/login/apple", a.handleLoginApple)

	authed := http.NewServeMux()
	authed.HandleFunc("POST /v1/auth/logout", a.handleLogout)
	authed.HandleFunc("GET /v1/users/me", a.handleCurrentUser)

	authed.HandleFunc("GET /v1/settings", a.handleGetSettings)
	authed.HandleFunc("PUT /v1/settings", a.handleUpdateSettings)

	authed.HandleFunc("GET /v1/tags", a.handleListTags)
	authed.HandleFunc("POST /v1/tags", a.handleCreateTag)

	authed.HandleFunc("POST /v1/templates", a.handleCreateTemplate)
	authed.HandleFunc("GET /v1/templates", a.handleListTemplates)
	authed.HandleFunc("GET /v1/templates/{id}", a.handleGetTemplate)
	authed.HandleFunc("PATCH /v1/templates/{id}", a.handleUpdateTemplate)
	authed.HandleFunc("POST /v1/templates/delete", a.handleDeleteTemplates)
	authed.HandleFunc("POST /v1/templates/import", a.handleImportTemplate)
	authed.HandleFunc("POST /v1/templates/{id}/duplicate", a.handleDuplicateTemplate)
	authed.HandleFunc("POST /v1/templates/{id}/events", a.handleCreateEventTemplate)
	authed.HandleFunc("PATCH /v1/template-events/{id}", a.handleUpdateEventTemplate)
	authed.HandleFunc("POST /v1/template-events/delete", a.handleDeleteEventTemplates)

	authed.HandleFunc("POST /v1/projects", a.handleCreateProject)
	authed.HandleFunc("GET /v1/projects", a.handleListProjects)
	authed.HandleFunc("POST /v1/projects/instantiate", a.handleInstantiate)
	authed.HandleFunc("GET /v1/projects/{id}", a.handleGetProject)
	authed.HandleFunc("PATCH /v1/projects/{id}", a.handleUpdateProject)
	authed.HandleFunc("POST /v1/projects/delete", a.handleDeleteProjects)
	authed.HandleFunc("POST /v1/projects/{id}/events", a.handleCreateEvent)

	authed.HandleFunc("GET /v1/events/{id}", a.handleGetEvent)
	authed.HandleFunc("PATCH /v1/events/{id}", a.handleUpdateEvent)
	authed.HandleFunc("POST /v1/events/delete", a.handleDeleteEvents)

	authed.HandleFunc("POST /v1/notifications/tokens", a.handleRegisterToken)
	authed.HandleFunc("POST /v1/notifications/tokens/delete", a.handleDeleteToken)

	mux.Handle("/v1/", a.requireAuth(authed))

	var handler http.Handler = mux
	handler = RequestLogger(logger)(handler)
	handler = RequestID()(handler)
	handler = Recoverer(logger, opts.IsProd)(handler)
	return handler
}

func (a *api) handleHealthz(w http.ResponseWriter, r *http.Request) {
	if a.dbPing != nil {
		if err := a.dbPing(r.Context()); err != nil {
			a.logger.Error("health check", "err", err)
			WriteError(w, http.StatusServiceUnavailable, "unavailable", "database unreachable")
			return
		}
	}
	WriteJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}
