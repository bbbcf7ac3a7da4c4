// Package web serves the admin console: entity lists and forms, the
// secretary and doctor dashboards, and the health probe.
package web

import (
	"context"
	"errors"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/labstack/echo/v4"
	echomw "github.com/labstack/echo/v4/middleware"
	"github.com/rs/zerolog"

	"github.com/healthsphere/admin/internal/dashboard"
	"github.com/healthsphere/admin/internal/form"
	"github.com/healthsphere/admin/internal/platform/apiclient"
	"github.com/healthsphere/admin/internal/platform/middleware"
	"github.com/healthsphere/admin/internal/platform/websocket"
	"github.com/healthsphere/admin/internal/reference"
	"github.com/healthsphere/admin/internal/registry"
)

const (
	csrfContextKey = "csrf"
	csrfFormField  = "_csrf"
)

// HealthChecker reports whether the backend answers.
type HealthChecker interface {
	Health(ctx context.Context) error
}

// Config wires a Handler to its collaborators.
type Config struct {
	Registry  *registry.Registry
	Source    dashboard.Source
	Backend   HealthChecker
	Snapshots *dashboard.Store
	Events    websocket.Publisher
	Catalog   *reference.Catalog
	// AddDelay keeps the success message of a create on screen before
	// navigating back to the list.
	AddDelay time.Duration
	// SecureCookies marks the CSRF cookie Secure.
	SecureCookies bool
	Logger        zerolog.Logger
}

type Handler struct {
	registry  *registry.Registry
	source    dashboard.Source
	backend   HealthChecker
	snapshots *dashboard.Store
	events    websocket.Publisher
	catalog   *reference.Catalog
	addDelay  time.Duration
	secure    bool
	logger    zerolog.Logger
}

func NewHandler(cfg Config) *Handler {
	catalog := cfg.Catalog
	if catalog == nil {
		catalog = reference.Default()
	}
	return &Handler{
		registry:  cfg.Registry,
		source:    cfg.Source,
		backend:   cfg.Backend,
		snapshots: cfg.Snapshots,
		events:    cfg.Events,
		catalog:   catalog,
		addDelay:  cfg.AddDelay,
		secure:    cfg.SecureCookies,
		logger:    cfg.Logger,
	}
}

// RegisterRoutes mounts the console. Every HTML route is CSRF protected;
// the health probe and static assets are not.
func (h *Handler) RegisterRoutes(e *echo.Echo) {
	e.GET("/health", h.Health)
	e.StaticFS("/static", echo.MustSubFS(staticFS, "static"))

	g := e.Group("", echomw.CSRFWithConfig(echomw.CSRFConfig{
		TokenLookup:    "form:" + csrfFormField,
		ContextKey:     csrfContextKey,
		CookieName:     "_csrf",
		CookiePath:     "/",
		CookieHTTPOnly: true,
		CookieSecure:   h.secure,
		CookieSameSite: http.SameSiteStrictMode,
	}))

	g.GET("/", func(c echo.Context) error {
		return c.Redirect(http.StatusFound, secretaryPath)
	})
	g.GET(secretaryPath, h.Secretary)
	g.GET("/dashboard/doctor", h.Doctor)

	for _, ent := range h.registry.Entities() {
		base := "/" + ent.Name
		g.GET(base, h.List(ent))
		g.GET(base+"/new", h.New(ent))
		g.POST(base+"/new", h.Create(ent))
		g.GET(base+"/:id/edit", h.Edit(ent))
		g.POST(base+"/:id/edit", h.Update(ent))
		g.POST(base+"/:id/delete", h.Delete(ent))
	}
}

// Health answers 200 while the backend is reachable and 503 otherwise.
func (h *Handler) Health(c echo.Context) error {
	if err := h.backend.Health(h.ctx(c)); err != nil {
		h.logger.Warn().Err(err).Msg("backend health check failed")
		return c.JSON(http.StatusServiceUnavailable, map[string]string{
			"status":  "degraded",
			"backend": apiclient.Message(err),
		})
	}
	return c.JSON(http.StatusOK, map[string]string{"status": "ok", "backend": "up"})
}

// ctx carries the request id into backend calls.
func (h *Handler) ctx(c echo.Context) context.Context {
	return apiclient.WithRequestID(c.Request().Context(), middleware.GetRequestID(c))
}

// publish tells open dashboards that collection changed. Delivery is best
// effort.
func (h *Handler) publish(c echo.Context, collection, action string, id int64) {
	if h.events == nil {
		return
	}
	if err := h.events.Publish(c.Request().Context(), websocket.CollectionChanged(collection, action, id)); err != nil {
		h.logger.Warn().Err(err).Str("collection", collection).Msg("publish change event failed")
	}
}

// localPath returns target when it is a path on this site and fallback
// otherwise.
func localPath(target, fallback string) string {
	if target == "" || !strings.HasPrefix(target, "/") || strings.HasPrefix(target, "//") || strings.ContainsAny(target, "\\\r\n") {
		return fallback
	}
	u, err := url.Parse(target)
	if err != nil || u.Scheme != "" || u.Host != "" {
		return fallback
	}
	return target
}

// statusOf maps a failed load or save to the response status.
func statusOf(err error) int {
	var verr *form.ValidationError
	if errors.As(err, &verr) {
		return http.StatusUnprocessableEntity
	}
	switch apiclient.CategoryOf(err) {
	case apiclient.CategoryValidation:
		return http.StatusUnprocessableEntity
	case apiclient.CategoryNotFound:
		return http.StatusNotFound
	case apiclient.CategoryConflict:
		return http.StatusConflict
	case apiclient.CategoryNetwork, apiclient.CategoryServer:
		return http.StatusBadGateway
	}
	return http.StatusInternalServerError
}

// errorPage is the model of the error template.
type errorPage struct {
	Heading string
	Message string
	Back    string
}

func (p errorPage) PageTitle() string { return p.Heading }

func (h *Handler) renderError(c echo.Context, err error, heading, back string) error {
	return c.Render(statusOf(err), "error", errorPage{
		Heading: heading,
		Message: apiclient.Message(err),
		Back:    back,
	})
}
