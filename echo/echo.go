// Package echo wires a godix provider into an Echo application.
//
//	e := echo.New()
//	e.Use(godixecho.ScopeMiddleware(provider))
//	e.GET("/users/:id", godixecho.Handle(UserController.GetByID))
//	godixecho.RegisterDiagnostics(e.Group("/debug/services"), provider)
package echo

import (
	"errors"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/junioryono/godix"
	"github.com/labstack/echo/v4"
)

// Initializer runs against a fresh request scope before the handler.
type Initializer func(godix.Scope, echo.Context) error

type config struct {
	logger       *slog.Logger
	errorHandler func(echo.Context, error) error
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
// initializer and resolution failures, which is an HTTP 500 error.
func WithErrorHandler(h func(echo.Context, error) error) Option {
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

// WithRecovery turns panics inside a Handle wrapper into errors.
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
		c.errorHandler = func(_ echo.Context, err error) error {
			return echo.NewHTTPError(http.StatusInternalServerError).SetInternal(err)
		}
	}
	return c
}

// ScopeMiddleware creates one scope per request and closes it when the
// handler chain returns.
func ScopeMiddleware(provider godix.Provider, opts ...Option) echo.MiddlewareFunc {
	cfg := newConfig(opts)

	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			if provider == nil {
				return cfg.errorHandler(c, godix.ErrProviderNil)
			}

			scope, err := provider.CreateScope(c.Request().Context())
			if err != nil {
				cfg.logger.Error("failed to create request scope",
					slog.String("request_id", c.Response().Header().Get(echo.HeaderXRequestID)),
					slog.Any("error", err))
				return cfg.errorHandler(c, err)
			}

			defer func() {
				if err := scope.Close(); err != nil {
					cfg.logger.Error("failed to close request scope",
						slog.String("scope_id", scope.ID()),
						slog.Any("error", err))
				}
			}()

			c.SetRequest(c.Request().WithContext(scope.Context()))

			for _, init := range cfg.initializers {
				if err := init(scope, c); err != nil {
					return cfg.errorHandler(c, err)
				}
			}

			return next(c)
		}
	}
}

// ErrNoScope is passed to the error handler when a request reaches Handle
// without a scope in its context.
var ErrNoScope = errors.New("godix/echo: no scope in request context")

// FromContext returns the request scope, or nil outside ScopeMiddleware.
func FromContext(c echo.Context) godix.Scope {
	scope, err := godix.ScopeFromContext(c.Request().Context())
	if err != nil {
		return nil
	}
	return scope
}

// Handle resolves T from the request scope and calls method with it.
func Handle[T any](method func(T, echo.Context) error, opts ...Option) echo.HandlerFunc {
	cfg := newConfig(opts)

	return func(c echo.Context) (err error) {
		if cfg.recover {
			defer func() {
				if v := recover(); v != nil {
					cfg.logger.Error("panic in handler", slog.Any("panic", v))
					err = cfg.errorHandler(c, fmt.Errorf("godix/echo: handler panicked: %v", v))
				}
			}()
		}

		scope, err := godix.ScopeFromContext(c.Request().Context())
		if err != nil {
			return cfg.errorHandler(c, errors.Join(ErrNoScope, err))
		}

		controller, err := godix.Resolve[T](scope)
		if err != nil {
			cfg.logger.Error("failed to resolve controller",
				slog.String("route", c.Path()),
				slog.Any("error", err))
			return cfg.errorHandler(c, err)
		}

		return method(controller, c)
	}
}

// Routes is satisfied by *echo.Echo and *echo.Group.
type Routes interface {
	GET(path string, h echo.HandlerFunc, m ...echo.MiddlewareFunc) *echo.Route
}

// RegisterDiagnostics adds two read-only routes describing provider:
// "" lists every service type and "/exclusivity" validates the declared
// constraints, answering 409 Conflict on a violation.
func RegisterDiagnostics(r Routes, provider godix.Provider) {
	r.GET("", func(c echo.Context) error {
		if provider == nil {
			return echo.NewHTTPError(http.StatusServiceUnavailable, godix.ErrProviderNil.Error())
		}
		return c.JSON(http.StatusOK, godix.DescribeServices(provider))
	})

	r.GET("/exclusivity", func(c echo.Context) error {
		report, err := godix.InspectExclusivity(c.Request().Context(), provider)
		if err != nil {
			return echo.NewHTTPError(http.StatusServiceUnavailable, err.Error())
		}

		status := http.StatusOK
		if !report.Valid {
			status = http.StatusConflict
		}
		return c.JSON(status, report)
	})
}
