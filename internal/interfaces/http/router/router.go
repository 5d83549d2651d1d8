// Package router assembles the gin engine: global middleware, system routes and
// the versioned invoice API.
package router

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/invoicing/backend/internal/infrastructure/config"
	"github.com/invoicing/backend/internal/infrastructure/logger"
	"github.com/invoicing/backend/internal/interfaces/http/handler"
	"github.com/invoicing/backend/internal/interfaces/http/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
)

// RouteRegistrar defines the interface for registering routes
type RouteRegistrar interface {
	RegisterRoutes(rg *gin.RouterGroup)
}

// Router manages HTTP route registration
type Router struct {
	engine     *gin.Engine
	apiVersion string
	registrars []RouteRegistrar
}

// RouterOption is a functional option for Router configuration
type RouterOption func(*Router)

// WithAPIVersion sets the API version prefix (e.g., "v1", "v2")
func WithAPIVersion(version string) RouterOption {
	return func(r *Router) {
		r.apiVersion = version
	}
}

// NewRouter creates a new Router instance
func NewRouter(engine *gin.Engine, opts ...RouterOption) *Router {
	r := &Router{
		engine:     engine,
		apiVersion: "v1",
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Register adds a RouteRegistrar to be registered later
func (r *Router) Register(registrar RouteRegistrar) *Router {
	r.registrars = append(r.registrars, registrar)
	return r
}

// Setup registers all routes under /api/<version>
func (r *Router) Setup() {
	api := r.engine.Group("/api/" + r.apiVersion)
	for _, registrar := range r.registrars {
		registrar.RegisterRoutes(api)
	}
}

// DomainGroup is a prefix with its own middleware and routes
type DomainGroup struct {
	name       string
	prefix     string
	middleware []gin.HandlerFunc
	routes     []routeDefinition
}

type routeDefinition struct {
	method   string
	path     string
	handlers []gin.HandlerFunc
}

// NewDomainGroup creates a new route group
func NewDomainGroup(name, prefix string) *DomainGroup {
	return &DomainGroup{name: name, prefix: prefix}
}

// Use adds middleware to this group
func (dg *DomainGroup) Use(middleware ...gin.HandlerFunc) *DomainGroup {
	dg.middleware = append(dg.middleware, middleware...)
	return dg
}

// GET registers a GET route
func (dg *DomainGroup) GET(path string, handlers ...gin.HandlerFunc) *DomainGroup {
	return dg.handle(http.MethodGet, path, handlers)
}

// POST registers a POST route
func (dg *DomainGroup) POST(path string, handlers ...gin.HandlerFunc) *DomainGroup {
	return dg.handle(http.MethodPost, path, handlers)
}

// PUT registers a PUT route
func (dg *DomainGroup) PUT(path string, handlers ...gin.HandlerFunc) *DomainGroup {
	return dg.handle(http.MethodPut, path, handlers)
}

// DELETE registers a DELETE route
func (dg *DomainGroup) DELETE(path string, handlers ...gin.HandlerFunc) *DomainGroup {
	return dg.handle(http.MethodDelete, path, handlers)
}

func (dg *DomainGroup) handle(method, path string, handlers []gin.HandlerFunc) *DomainGroup {
	dg.routes = append(dg.routes, routeDefinition{method: method, path: path, handlers: handlers})
	return dg
}

// RegisterRoutes implements RouteRegistrar
func (dg *DomainGroup) RegisterRoutes(rg *gin.RouterGroup) {
	group := rg.Group(dg.prefix, dg.middleware...)
	for _, route := range dg.routes {
		group.Handle(route.method, route.path, route.handlers...)
	}
}

// Name returns the group name
func (dg *DomainGroup) Name() string {
	return dg.name
}

// Prefix returns the group prefix
func (dg *DomainGroup) Prefix() string {
	return dg.prefix
}

// InvoiceGroups returns the self-service and administrative invoice groups.
// Self-service routes act on the subject named by X-User-Id; admin routes need the admin key.
func InvoiceGroups(h *handler.InvoiceHandler, auth config.AuthConfig) []*DomainGroup {
	me := NewDomainGroup("invoices-self", "/invoices/me").
		Use(middleware.APIKeyAuth(auth), middleware.RequireRole(middleware.RoleUser), middleware.RequireSubject()).
		GET("", h.ListMine).
		GET("/:id", h.GetMine).
		POST("/:id/pay", h.PayMine)

	admin := NewDomainGroup("invoices-admin", "/admin").
		Use(middleware.APIKeyAuth(auth), middleware.RequireRole(middleware.RoleAdmin)).
		GET("/invoices", h.ListAll).
		POST("/invoices", h.Create).
		GET("/invoices/:id", h.Get).
		PUT("/invoices/:id", h.Update).
		DELETE("/invoices/:id", h.HardDelete).
		POST("/invoices/:id/soft-delete", h.SoftDelete).
		POST("/invoices/:id/pay", h.Pay).
		GET("/users/:userId/invoices", h.ListForUser)

	return []*DomainGroup{me, admin}
}

// Deps are the collaborators NewEngine wires into the engine
type Deps struct {
	Config   *config.Config
	Logger   *zap.Logger
	Registry *prometheus.Registry
	Invoices *handler.InvoiceHandler
	System   *handler.SystemHandler
}

// NewEngine builds the gin engine with global middleware, /health, /metrics and /api/v1.
func NewEngine(deps Deps) (*gin.Engine, error) {
	cfg := deps.Config
	if cfg.App.Env == "production" {
		gin.SetMode(gin.ReleaseMode)
	}
	middleware.SetupValidator()

	engine := gin.New()
	if err := engine.SetTrustedProxies(cfg.HTTP.TrustedProxies); err != nil {
		return nil, err
	}

	httpMetrics := middleware.NewHTTPMetrics(deps.Registry)
	engine.Use(
		middleware.RequestID(),
		logger.Recovery(deps.Logger),
		middleware.Tracing(cfg.Telemetry.ServiceName, cfg.Telemetry.Enabled),
		logger.GinMiddleware(deps.Logger),
		middleware.EnrichSpan(),
		httpMetrics.Middleware(),
		middleware.BodyLimit(cfg.HTTP.MaxBodySize),
	)

	if deps.System != nil {
		engine.GET("/health", deps.System.Health)
	}
	engine.GET("/metrics", gin.WrapH(promhttp.HandlerFor(deps.Registry, promhttp.HandlerOpts{Registry: deps.Registry})))

	r := NewRouter(engine)
	for _, g := range InvoiceGroups(deps.Invoices, cfg.Auth) {
		r.Register(g)
	}
	r.Setup()
	return engine, nil
}
