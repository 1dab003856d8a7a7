// Package chi wires a godix provider into a go-chi router.
//
// Every request gets its own scope, attached to the request context, and
// handlers resolve their controllers from it:
//
//	provider, _ := godix.BuildAndValidate(services, nil, nil)
//
//	r := godixchi.NewRouter(provider)
//	r.Get("/users/{id}", godixchi.Handle(UserController.GetByID))
//	r.Mount("/debug/services", godixchi.Diagnostics(provider))
package chi

import (
	"errors"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/junioryono/godix"
)

// Initializer runs against a fresh request scope before the handler.
type Initializer func(godix.Scope, *http.Request) error

type config struct {
	logger       *slog.Logger
	errorHandler func(http.ResponseWriter, *http.Request, error)
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

// WithErrorHandler replaces the default 500 response for scope creation,
// initializer and resolution failures.
func WithErrorHandler(h func(http.ResponseWriter, *http.Request, error)) Option {
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
		c.errorHandler = func(w http.ResponseWriter, _ *http.Request, _ error) {
			http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		}
	}
	return c
}

// ScopeMiddleware creates one scope per request and closes it once the rest
// of the chain returns. The scope is reachable through
// godix.ScopeFromContext(r.Context()).
func ScopeMiddleware(provider godix.Provider, opts ...Option) func(http.Handler) http.Handler {
	cfg := newConfig(opts)

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if provider == nil {
				cfg.errorHandler(w, r, godix.ErrProviderNil)
				return
			}

			scope, err := provider.CreateScope(r.Context())
			if err != nil {
				cfg.logger.Error("failed to create request scope",
					slog.String("request_id", middleware.GetReqID(r.Context())),
					slog.Any("error", err))
				cfg.errorHandler(w, r, err)
				return
			}

			defer func() {
				if err := scope.Close(); err != nil {
					cfg.logger.Error("failed to close request scope",
						slog.String("scope_id", scope.ID()),
						slog.Any("error", err))
				}
			}()

			r = r.WithContext(scope.Context())

			for _, init := range cfg.initializers {
				if err := init(scope, r); err != nil {
					cfg.errorHandler(w, r, err)
					return
				}
			}

			next.ServeHTTP(w, r)
		})
	}
}

// NewRouter returns a chi router with request IDs, panic recovery and
// ScopeMiddleware installed.
func NewRouter(provider godix.Provider, opts ...Option) chi.Router {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Use(ScopeMiddleware(provider, opts...))
	return r
}

// ErrNoScope is passed to the error handler when a request reaches Handle
// without a scope in its context.
var ErrNoScope = errors.New("godix/chi: no scope in request context")

// Handle resolves T from the request scope and calls method with it.
//
//	r.Get("/users/{id}", godixchi.Handle(UserController.GetByID))
func Handle[T any](method func(T, http.ResponseWriter, *http.Request), opts ...Option) http.HandlerFunc {
	cfg := newConfig(opts)

	return func(w http.ResponseWriter, r *http.Request) {
		if cfg.recover {
			defer func() {
				if v := recover(); v != nil {
					cfg.logger.Error("panic in handler", slog.Any("panic", v))
					cfg.errorHandler(w, r, fmt.Errorf("godix/chi: handler panicked: %v", v))
				}
			}()
		}

		scope, err := godix.ScopeFromContext(r.Context())
		if err != nil {
			cfg.errorHandler(w, r, errors.Join(ErrNoScope, err))
			return
		}

		controller, err := godix.Resolve[T](scope)
		if err != nil {
			cfg.logger.Error("failed to resolve controller",
				slog.String("route", routePattern(r)),
				slog.Any("error", err))
			cfg.errorHandler(w, r, err)
			return
		}

		method(controller, w, r)
	}
}

// Param returns a URL parameter captured by the router.
func Param(r *http.Request, key string) string {
	return chi.URLParam(r, key)
}

func routePattern(r *http.Request) string {
	if rctx := chi.RouteContext(r.Context()); rctx != nil {
		return rctx.RoutePattern()
	}
	return r.URL.Path
}
