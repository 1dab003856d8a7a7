// Package gin wires a godix provider into a Gin engine.
//
//	g := gin.New()
//	g.Use(godixgin.ScopeMiddleware(provider))
//	g.GET("/users/:id", godixgin.Handle(UserController.GetByID))
//	godixgin.RegisterDiagnostics(g.Group("/debug/services"), provider)
package gin

import (
	"errors"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/junioryono/godix"
)

// Initializer runs against a fresh request scope before the handler.
type Initializer func(godix.Scope, *gin.Context) error

type config struct {
	logger       *slog.Logger
	errorHandler func(*gin.Context, error)
	initializers []Initializer
	recover      bool
}

// Option configures the middleware and handlers of this package.
type Option func(*config)

// WithLogger sets the logger used for scope and resolution failures.
func WithLogger(logger *slog.Logger) Option {
	return func(c *config) {
		if logger != nil {
			c.logger = logger
		}
	}
}

// WithErrorHandler replaces the default handling of scope creation,
// initializer and resolution failures. The default aborts with 500.
// Custom handlers are expected to abort the context themselves.
func WithErrorHandler(h func(*gin.Context, error)) Option {
	return func(c *config) {
		if h != nil {
			c.errorHandler = h
		}
	}
}

// WithInitializer adds an Initializer. Initializers run in the order added.
func WithInitializer(init Initializer) Option {
	return func(c *config) {
		c.initializers = append(c.initializers, init)
	}
}

// WithRecovery turns panics inside a Handle wrapper into error responses.
func WithRecovery() Option {
	return func(c *config) {
		c.recover = true
	}
}

func newConfig(opts []Option) *config {
	c := &config{logger: slog.Default()}
	for _, opt := range opts {
		opt(c)
	}
	if c.errorHandler == nil {
		c.errorHandler = func(ctx *gin.Context, err error) {
			_ = ctx.AbortWithError(http.StatusInternalServerError, err)
		}
	}
	return c
}

// ScopeMiddleware creates one scope per request and closes it once the
// remaining handlers return.
func ScopeMiddleware(provider godix.Provider, opts ...Option) gin.HandlerFunc {
	cfg := newConfig(opts)

	return func(c *gin.Context) {
		if provider == nil {
			cfg.errorHandler(c, godix.ErrProviderNil)
			return
		}

		scope, err := provider.CreateScope(c.Request.Context())
		if err != nil {
			cfg.logger.Error("failed to create request scope",
				slog.String("route", c.FullPath()),
				slog.Any("error", err))
			cfg.errorHandler(c, err)
			return
		}

		defer func() {
			if err := scope.Close(); err != nil {
				cfg.logger.Error("failed to close request scope",
					slog.String("scope_id", scope.ID()),
					slog.Any("error", err))
			}
		}()

		c.Request = c.Request.WithContext(scope.Context())

		for _, init := range cfg.initializers {
			if err := init(scope, c); err != nil {
				cfg.errorHandler(c, err)
				return
			}
		}

		c.Next()
	}
}

// ErrNoScope is passed to the error handler when a request reaches Handle
// without a scope in its context.
var ErrNoScope = errors.New("godix/gin: no scope in request context")

// FromContext returns the request scope, or nil outside ScopeMiddleware.
func FromContext(c *gin.Context) godix.Scope {
	scope, err := godix.ScopeFromContext(c.Request.Context())
	if err != nil {
		return nil
	}
	return scope
}

// Handle resolves T from the request scope and calls method with it.
func Handle[T any](method func(T, *gin.Context), opts ...Option) gin.HandlerFunc {
	cfg := newConfig(opts)

	return func(c *gin.Context) {
		if cfg.recover {
			defer func() {
				if v := recover(); v != nil {
					cfg.logger.Error("panic in handler", slog.Any("panic", v))
					cfg.errorHandler(c, fmt.Errorf("godix/gin: handler panicked: %v", v))
				}
			}()
		}

		scope, err := godix.ScopeFromContext(c.Request.Context())
		if err != nil {
			cfg.errorHandler(c, errors.Join(ErrNoScope, err))
			return
		}

		controller, err := godix.Resolve[T](scope)
		if err != nil {
			cfg.logger.Error("failed to resolve controller",
				slog.String("route", c.FullPath()),
				slog.Any("error", err))
			cfg.errorHandler(c, err)
			return
		}

		method(controller, c)
	}
}

// RegisterDiagnostics adds two read-only routes describing provider:
// "" lists every service type and "/exclusivity" validates the declared
// constraints, answering 409 Conflict on a violation.
func RegisterDiagnostics(r gin.IRoutes, provider godix.Provider) {
	r.GET("", func(c *gin.Context) {
		if provider == nil {
			c.String(http.StatusServiceUnavailable, godix.ErrProviderNil.Error())
			return
		}
		c.JSON(http.StatusOK, godix.DescribeServices(provider))
	})

	r.GET("/exclusivity", func(c *gin.Context) {
		report, err := godix.InspectExclusivity(c.Request.Context(), provider)
		if err != nil {
			c.String(http.StatusServiceUnavailable, err.Error())
			return
		}

		status := http.StatusOK
		if !report.Valid {
			status = http.StatusConflict
		}
		c.JSON(status, report)
	})
}
