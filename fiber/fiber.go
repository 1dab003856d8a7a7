// Package fiber wires a godix provider into a Fiber application.
//
//	app := fiber.New()
//	app.Use(godixfiber.ScopeMiddleware(provider))
//	app.Get("/users/:id", godixfiber.Handle(UserController.GetByID))
//	godixfiber.RegisterDiagnostics(app.Group("/debug/services"), provider)
//
// The request scope is kept in Ctx.Locals and in the user context, so
// constructors taking a context.Context can reach it.
package fiber

import (
	"errors"
	"fmt"
	"log/slog"

	"github.com/gofiber/fiber/v2"
	"github.com/junioryono/godix"
)

type scopeKey struct{}

// Initializer runs against a fresh request scope before the handler.
type Initializer func(godix.Scope, *fiber.Ctx) error

type config struct {
	logger       *slog.Logger
	errorHandler func(*fiber.Ctx, error) error
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
// initializer and resolution failures, which is a 500 fiber.Error.
func WithErrorHandler(h func(*fiber.Ctx, error) error) Option {
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
		c.errorHandler = func(_ *fiber.Ctx, err error) error {
			return fiber.NewError(fiber.StatusInternalServerError, err.Error())
		}
	}
	return c
}

// ScopeMiddleware creates one scope per request and closes it once the
// rest of the chain returns.
func ScopeMiddleware(provider godix.Provider, opts ...Option) fiber.Handler {
	cfg := newConfig(opts)

	return func(c *fiber.Ctx) error {
		if provider == nil {
			return cfg.errorHandler(c, godix.ErrProviderNil)
		}

		scope, err := provider.CreateScope(c.UserContext())
		if err != nil {
			cfg.logger.Error("failed to create request scope",
				slog.String("path", c.Path()),
				slog.Any("error", err))
			return cfg.errorHandler(c, err)
		}

		defer func() {
			c.Locals(scopeKey{}, nil)
			if err := scope.Close(); err != nil {
				cfg.logger.Error("failed to close request scope",
					slog.String("scope_id", scope.ID()),
					slog.Any("error", err))
			}
		}()

		c.SetUserContext(scope.Context())
		c.Locals(scopeKey{}, scope)

		for _, init := range cfg.initializers {
			if err := init(scope, c); err != nil {
				return cfg.errorHandler(c, err)
			}
		}

		return c.Next()
	}
}

// ErrNoScope is passed to the error handler when a request reaches Handle
// without a scope.
var ErrNoScope = errors.New("godix/fiber: no scope in request context")

// FromContext returns the request scope, or nil outside ScopeMiddleware.
func FromContext(c *fiber.Ctx) godix.Scope {
	if scope, ok := c.Locals(scopeKey{}).(godix.Scope); ok {
		return scope
	}

	scope, err := godix.ScopeFromContext(c.UserContext())
	if err != nil {
		return nil
	}
	return scope
}

// Handle resolves T from the request scope and calls method with it.
func Handle[T any](method func(T, *fiber.Ctx) error, opts ...Option) fiber.Handler {
	cfg := newConfig(opts)

	return func(c *fiber.Ctx) (err error) {
		if cfg.recover {
			defer func() {
				if v := recover(); v != nil {
					cfg.logger.Error("panic in handler", slog.Any("panic", v))
					err = cfg.errorHandler(c, fmt.Errorf("godix/fiber: handler panicked: %v", v))
				}
			}()
		}

		scope := FromContext(c)
		if scope == nil {
			return cfg.errorHandler(c, ErrNoScope)
		}

		controller, err := godix.Resolve[T](scope)
		if err != nil {
			cfg.logger.Error("failed to resolve controller",
				slog.String("path", c.Path()),
				slog.Any("error", err))
			return cfg.errorHandler(c, err)
		}

		return method(controller, c)
	}
}

// RegisterDiagnostics adds two read-only routes describing provider:
// "" lists every service type and "/exclusivity" validates the declared
// constraints, answering 409 Conflict on a violation.
func RegisterDiagnostics(r fiber.Router, provider godix.Provider) {
	r.Get("", func(c *fiber.Ctx) error {
		if provider == nil {
			return fiber.NewError(fiber.StatusServiceUnavailable, godix.ErrProviderNil.Error())
		}
		return c.JSON(godix.DescribeServices(provider))
	})

	r.Get("/exclusivity", func(c *fiber.Ctx) error {
		report, err := godix.InspectExclusivity(c.UserContext(), provider)
		if err != nil {
			return fiber.NewError(fiber.StatusServiceUnavailable, err.Error())
		}

		status := fiber.StatusOK
		if !report.Valid {
			status = fiber.StatusConflict
		}
		return c.Status(status).JSON(report)
	})
}
