package fiber_test

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gofiber/fiber/v2"
	"github.com/junioryono/godix"
	godixfiber "github.com/junioryono/godix/fiber"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type greeting struct {
	Text string
}

type greetingController struct {
	Greeting *greeting
}

func newGreetingController(g *greeting) *greetingController {
	return &greetingController{Greeting: g}
}

func (c *greetingController) Get(ctx *fiber.Ctx) error {
	return ctx.SendString(c.Greeting.Text + " " + ctx.Params("name"))
}

func (c *greetingController) Panic(*fiber.Ctx) error {
	panic("boom")
}

type greeter interface {
	Greet() string
}

type englishGreeter struct{}

func (englishGreeter) Greet() string { return "hello" }

type frenchGreeter struct{}

func (frenchGreeter) Greet() string { return "bonjour" }

func buildProvider(t *testing.T, register func(c godix.Collection)) godix.Provider {
	t.Helper()

	collection := godix.NewCollection()
	register(collection)

	provider, err := collection.Build()
	require.NoError(t, err)
	t.Cleanup(func() { _ = provider.Close() })
	return provider
}

func greetingServices(c godix.Collection) {
	_ = c.AddScoped(func() *greeting { return &greeting{Text: "hello"} })
	_ = c.AddScoped(newGreetingController)
}

func serve(t *testing.T, app *fiber.App, path string) (int, string) {
	t.Helper()

	resp, err := app.Test(httptest.NewRequest(http.MethodGet, path, nil), -1)
	require.NoError(t, err)
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	return resp.StatusCode, string(body)
}

func TestScopeMiddleware(t *testing.T) {
	t.Parallel()

	t.Run("attaches and closes a request scope", func(t *testing.T) {
		t.Parallel()

		provider := buildProvider(t, greetingServices)

		var scope godix.Scope
		app := fiber.New()
		app.Use(godixfiber.ScopeMiddleware(provider))
		app.Get("/", func(c *fiber.Ctx) error {
			scope = godixfiber.FromContext(c)
			fromContext, err := godix.ScopeFromContext(c.UserContext())
			assert.NoError(t, err)
			assert.Same(t, scope, fromContext)

			_, err = godix.Resolve[*greeting](scope)
			return err
		})

		status, _ := serve(t, app, "/")
		assert.Equal(t, http.StatusOK, status)
		require.NotNil(t, scope)
		assert.False(t, scope.IsRootScope())
		assert.True(t, scope.IsDisposed())
	})

	t.Run("scope creation failure", func(t *testing.T) {
		t.Parallel()

		provider := buildProvider(t, func(godix.Collection) {})
		require.NoError(t, provider.Close())

		app := fiber.New()
		app.Use(godixfiber.ScopeMiddleware(provider))
		app.Get("/", func(*fiber.Ctx) error {
			t.Error("handler must not run")
			return nil
		})

		status, _ := serve(t, app, "/")
		assert.Equal(t, http.StatusInternalServerError, status)
	})

	t.Run("initializers run in order and can stop the request", func(t *testing.T) {
		t.Parallel()

		provider := buildProvider(t, greetingServices)
		errStop := errors.New("stop")

		var order []int
		app := fiber.New()
		app.Use(godixfiber.ScopeMiddleware(provider,
			godixfiber.WithInitializer(func(godix.Scope, *fiber.Ctx) error {
				order = append(order, 1)
				return nil
			}),
			godixfiber.WithInitializer(func(godix.Scope, *fiber.Ctx) error {
				order = append(order, 2)
				return errStop
			}),
			godixfiber.WithErrorHandler(func(c *fiber.Ctx, err error) error {
				assert.ErrorIs(t, err, errStop)
				return c.SendStatus(http.StatusBadRequest)
			}),
		))
		app.Get("/", func(*fiber.Ctx) error {
			t.Error("handler must not run")
			return nil
		})

		status, _ := serve(t, app, "/")
		assert.Equal(t, http.StatusBadRequest, status)
		assert.Equal(t, []int{1, 2}, order)
	})
}

func TestHandle(t *testing.T) {
	t.Parallel()

	t.Run("resolves the controller", func(t *testing.T) {
		t.Parallel()

		provider := buildProvider(t, greetingServices)

		app := fiber.New()
		app.Use(godixfiber.ScopeMiddleware(provider))
		app.Get("/greet/:name", godixfiber.Handle((*greetingController).Get))

		status, body := serve(t, app, "/greet/ada")
		assert.Equal(t, http.StatusOK, status)
		assert.Equal(t, "hello ada", body)
	})

	t.Run("missing scope", func(t *testing.T) {
		t.Parallel()

		var got error
		app := fiber.New()
		app.Get("/", godixfiber.Handle((*greetingController).Get,
			godixfiber.WithErrorHandler(func(c *fiber.Ctx, err error) error {
				got = err
				return c.SendStatus(http.StatusInternalServerError)
			}),
		))

		serve(t, app, "/")
		assert.ErrorIs(t, got, godixfiber.ErrNoScope)
	})

	t.Run("unresolvable controller", func(t *testing.T) {
		t.Parallel()

		provider := buildProvider(t, func(c godix.Collection) {
			_ = c.AddScoped(func() *greeting { return &greeting{} })
		})

		var got error
		app := fiber.New()
		app.Use(godixfiber.ScopeMiddleware(provider))
		app.Get("/", godixfiber.Handle((*greetingController).Get,
			godixfiber.WithErrorHandler(func(c *fiber.Ctx, err error) error {
				got = err
				return c.SendStatus(http.StatusNotFound)
			}),
		))

		status, _ := serve(t, app, "/")
		assert.Equal(t, http.StatusNotFound, status)
		assert.ErrorIs(t, got, godix.ErrServiceNotFound)
	})

	t.Run("recovery", func(t *testing.T) {
		t.Parallel()

		provider := buildProvider(t, greetingServices)

		app := fiber.New()
		app.Use(godixfiber.ScopeMiddleware(provider))
		app.Get("/", godixfiber.Handle((*greetingController).Panic, godixfiber.WithRecovery()))

		status, _ := serve(t, app, "/")
		assert.Equal(t, http.StatusInternalServerError, status)
	})
}

func TestRegisterDiagnostics(t *testing.T) {
	t.Parallel()

	provider := buildProvider(t, func(c godix.Collection) {
		require.NoError(t, c.AddSingleton(englishGreeter{}, godix.As(new(greeter))))
		require.NoError(t, c.AddSingleton(frenchGreeter{}, godix.As(new(greeter))))
		godix.DeclareExclusiveService[greeter](c)
	})

	app := fiber.New()
	godixfiber.RegisterDiagnostics(app.Group("/debug/services"), provider)

	status, body := serve(t, app, "/debug/services")
	require.Equal(t, http.StatusOK, status)

	var summaries []godix.ServiceSummary
	require.NoError(t, json.Unmarshal([]byte(body), &summaries))
	require.Len(t, summaries, 1)
	assert.Equal(t, "fiber_test.greeter", summaries[0].Service)

	status, body = serve(t, app, "/debug/services/exclusivity")
	require.Equal(t, http.StatusConflict, status)

	var report godix.ExclusivityReport
	require.NoError(t, json.Unmarshal([]byte(body), &report))
	assert.False(t, report.Valid)
	assert.Equal(t, []string{"Service greeter is exclusive, but is registered 2 times."}, report.Violations)
}
