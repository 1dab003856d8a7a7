package godix_test

import (
	"bytes"
	"context"
	"log/slog"
	"testing"

	"github.com/junioryono/godix"
	"github.com/junioryono/godix/internal/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var (
	memoryAsStore = testutil.Registration{
		Name:        "memory store",
		Constructor: testutil.NewMemoryStore,
		Lifetime:    godix.Singleton,
		Options:     []godix.AddOption{godix.As(new(testutil.Store))},
	}
	diskAsStore = testutil.Registration{
		Name:        "disk store",
		Constructor: testutil.NewDiskStore,
		Lifetime:    godix.Transient,
		Options:     []godix.AddOption{godix.As(new(testutil.Store))},
	}
)

func TestValidate_ServiceExclusivity(t *testing.T) {
	t.Parallel()

	testutil.RunExclusivityScenarios(t, []testutil.ExclusivityScenario{
		{
			Name:          "registered twice",
			Registrations: []testutil.Registration{memoryAsStore, diskAsStore},
			Declare:       func(c godix.Collection) { godix.DeclareExclusiveService[testutil.Store](c) },
			Violations:    []string{"Service Store is exclusive, but is registered 2 times."},
		},
		{
			Name:          "registered once",
			Registrations: []testutil.Registration{memoryAsStore},
			Declare:       func(c godix.Collection) { godix.DeclareExclusiveService[testutil.Store](c) },
		},
		{
			Name: "concrete type registered twice",
			Registrations: []testutil.Registration{
				{Name: "first", Constructor: testutil.NewMemoryStore, Lifetime: godix.Singleton},
				{Name: "second", Constructor: testutil.NewMemoryStore, Lifetime: godix.Scoped},
			},
			Declare:    func(c godix.Collection) { godix.DeclareExclusiveService[*testutil.MemoryStore](c) },
			Violations: []string{"Service *MemoryStore is exclusive, but is registered 2 times."},
		},
		{
			Name:          "repeated declarations report once",
			Registrations: []testutil.Registration{memoryAsStore, diskAsStore, memoryAsStore},
			Declare: func(c godix.Collection) {
				godix.DeclareExclusiveService[testutil.Store](c)
				godix.DeclareExclusiveService[testutil.Store](c)
			},
			Violations: []string{"Service Store is exclusive, but is registered 3 times."},
		},
		{
			Name: "declared through the add option",
			Registrations: []testutil.Registration{
				{Name: "exclusive", Constructor: testutil.NewDiskStore, Lifetime: godix.Singleton, Options: []godix.AddOption{godix.As(new(testutil.Store)), godix.ExclusiveService()}},
				memoryAsStore,
			},
			Violations: []string{"Service Store is exclusive, but is registered 2 times."},
		},
		{
			Name: "factories count as registrations",
			Registrations: []testutil.Registration{
				{Name: "first", Constructor: testutil.NewNotifier, Lifetime: godix.Transient},
				{Name: "second", Constructor: testutil.NewNotifier, Lifetime: godix.Transient},
			},
			Declare:    func(c godix.Collection) { godix.DeclareExclusiveService[testutil.Notifier](c) },
			Violations: []string{"Service Notifier is exclusive, but is registered 2 times."},
		},
	})
}

func TestValidate_ImplementationExclusivity(t *testing.T) {
	t.Parallel()

	declareMemory := func(c godix.Collection) {
		godix.DeclareExclusiveImplementation[testutil.Store, *testutil.MemoryStore](c)
	}

	testutil.RunExclusivityScenarios(t, []testutil.ExclusivityScenario{
		{
			Name:          "same implementation twice",
			Registrations: []testutil.Registration{memoryAsStore, memoryAsStore},
			Declare:       declareMemory,
			Violations:    []string{"Implementation *MemoryStore for service Store is exclusive, but is registered 2 times."},
		},
		{
			Name:          "other implementations are independent",
			Registrations: []testutil.Registration{memoryAsStore, diskAsStore, diskAsStore},
			Declare:       declareMemory,
		},
		{
			Name: "factories returning the interface are counted by runtime type",
			Registrations: []testutil.Registration{
				memoryAsStore,
				{Name: "factory", Constructor: func() testutil.Store { return testutil.NewMemoryStore() }, Lifetime: godix.Singleton},
			},
			Declare:    declareMemory,
			Violations: []string{"Implementation *MemoryStore for service Store is exclusive, but is registered 2 times."},
		},
		{
			Name: "interface factories only",
			Registrations: []testutil.Registration{
				{Name: "singleton factory", Constructor: func() testutil.Store { return testutil.NewMemoryStore() }, Lifetime: godix.Singleton},
				{Name: "transient factory", Constructor: func() testutil.Store { return testutil.NewMemoryStore() }, Lifetime: godix.Transient},
			},
			Declare:    declareMemory,
			Violations: []string{"Implementation *MemoryStore for service Store is exclusive, but is registered 2 times."},
		},
		{
			Name: "interface factories returning another implementation",
			Registrations: []testutil.Registration{
				memoryAsStore,
				{Name: "factory", Constructor: func() testutil.Store { return testutil.NewDiskStore() }, Lifetime: godix.Transient},
			},
			Declare: declareMemory,
		},
		{
			Name: "registered instances are counted",
			Registrations: []testutil.Registration{
				memoryAsStore,
				{Name: "instance", Constructor: &testutil.MemoryStore{ID: "fixed"}, Lifetime: godix.Singleton, Options: []godix.AddOption{godix.As(new(testutil.Store))}},
			},
			Declare:    declareMemory,
			Violations: []string{"Implementation *MemoryStore for service Store is exclusive, but is registered 2 times."},
		},
		{
			Name: "one implementation declared under two services is one constraint",
			Registrations: []testutil.Registration{
				memoryAsStore,
				{Name: "as cache", Constructor: testutil.NewMemoryStore, Lifetime: godix.Scoped, Options: []godix.AddOption{godix.As(new(testutil.Cache))}},
			},
			Declare: func(c godix.Collection) {
				declareMemory(c)
				godix.DeclareExclusiveImplementation[testutil.Cache, *testutil.MemoryStore](c)
				declareMemory(c)
			},
			Violations: []string{"Implementation *MemoryStore for service Store is exclusive, but is registered 2 times."},
		},
		{
			Name: "other service types are not counted",
			Registrations: []testutil.Registration{
				memoryAsStore,
				{Name: "as cache", Constructor: testutil.NewMemoryStore, Lifetime: godix.Singleton, Options: []godix.AddOption{godix.As(new(testutil.Cache))}},
			},
			Declare: declareMemory,
		},
		{
			Name: "declared through the add option",
			Registrations: []testutil.Registration{
				{Name: "exclusive", Constructor: testutil.NewMemoryStore, Lifetime: godix.Singleton, Options: []godix.AddOption{godix.As(new(testutil.Store)), godix.ExclusiveImplementation()}},
				memoryAsStore,
				diskAsStore,
			},
			Violations: []string{"Implementation *MemoryStore for service Store is exclusive, but is registered 2 times."},
		},
	})
}

func TestValidate_AllViolationsAreReported(t *testing.T) {
	t.Parallel()

	testutil.RunExclusivityScenarios(t, []testutil.ExclusivityScenario{
		{
			Name: "services first, then implementations, in declaration order",
			Registrations: []testutil.Registration{
				memoryAsStore, memoryAsStore, diskAsStore,
				{Name: "service", Constructor: testutil.NewMemoryStore, Lifetime: godix.Singleton},
				{Name: "service", Constructor: testutil.NewMemoryStore, Lifetime: godix.Singleton},
			},
			Declare: func(c godix.Collection) {
				godix.DeclareExclusiveImplementation[testutil.Store, *testutil.MemoryStore](c)
				godix.DeclareExclusiveService[*testutil.MemoryStore](c)
				godix.DeclareExclusiveService[testutil.Store](c)
			},
			Violations: []string{
				"Service *MemoryStore is exclusive, but is registered 2 times.",
				"Service Store is exclusive, but is registered 3 times.",
				"Implementation *MemoryStore for service Store is exclusive, but is registered 2 times.",
			},
		},
		{
			Name:          "no declarations and no duplicates",
			Registrations: []testutil.Registration{memoryAsStore},
		},
		{
			Name:          "duplicates without declarations",
			Registrations: []testutil.Registration{memoryAsStore, diskAsStore},
		},
	})

	collection := godix.NewCollection()
	memoryAsStore.Add(t, collection)
	memoryAsStore.Add(t, collection)
	godix.DeclareExclusiveService[testutil.Store](collection)
	godix.DeclareExclusiveImplementation[testutil.Store, *testutil.MemoryStore](collection)

	provider, err := collection.Build()
	require.NoError(t, err)
	t.Cleanup(func() { _ = provider.Close() })

	err = godix.Validate(provider)
	assert.EqualError(t, err, "service provider validation failed with the following errors:\n\n"+
		"Service Store is exclusive, but is registered 2 times.\n"+
		"Implementation *MemoryStore for service Store is exclusive, but is registered 2 times.")
}

func TestValidator_State(t *testing.T) {
	t.Parallel()

	t.Run("validated", func(t *testing.T) {
		t.Parallel()

		provider := testutil.NewCollectionBuilder(t).BuildProvider()

		validator := godix.NewValidator(provider)
		assert.Equal(t, godix.StateUnvalidated, validator.State())

		require.NoError(t, validator.Validate())
		assert.Equal(t, godix.StateValidated, validator.State())
		assert.Equal(t, "Validated", validator.State().String())
	})

	t.Run("failed is terminal", func(t *testing.T) {
		t.Parallel()

		var calls testutil.Counter
		collection := godix.NewCollection()
		require.NoError(t, collection.AddTransient(func() testutil.Store {
			calls.Inc()
			return testutil.NewDiskStore()
		}))
		require.NoError(t, collection.AddTransient(testutil.NewDiskStore, godix.As(new(testutil.Store))))
		godix.DeclareExclusiveService[testutil.Store](collection)

		provider, err := collection.Build()
		require.NoError(t, err)
		t.Cleanup(func() { _ = provider.Close() })

		validator := godix.NewValidator(provider)
		first := validator.Validate()
		require.Error(t, first)
		assert.Equal(t, godix.StateFailed, validator.State())

		second := validator.ValidateContext(context.Background())
		assert.Equal(t, first, second)
		assert.Equal(t, int64(1), calls.Load(), "validation runs once")
	})

	t.Run("resolution failures fail validation", func(t *testing.T) {
		t.Parallel()

		collection := godix.NewCollection()
		require.NoError(t, collection.AddSingleton(func() (testutil.Store, error) { return nil, testutil.ErrConstructor }))
		godix.DeclareExclusiveService[testutil.Store](collection)

		provider, err := collection.Build()
		require.NoError(t, err)
		t.Cleanup(func() { _ = provider.Close() })

		validator := godix.NewValidator(provider)
		err = validator.Validate()
		assert.ErrorIs(t, err, testutil.ErrConstructor)
		assert.NotErrorIs(t, err, godix.ErrExclusivityViolation)
		testutil.AssertErrorType[godix.ValidationError](t, err)
		assert.Equal(t, godix.StateFailed, validator.State())
	})

	t.Run("nil provider", func(t *testing.T) {
		t.Parallel()

		assert.ErrorIs(t, godix.Validate(nil), godix.ErrProviderNil)
	})

	t.Run("unknown state", func(t *testing.T) {
		t.Parallel()

		assert.Equal(t, "Unknown(9)", godix.ValidationState(9).String())
		assert.Equal(t, "Unvalidated", godix.StateUnvalidated.String())
		assert.Equal(t, "Failed", godix.StateFailed.String())
	})
}

func TestValidator_ScopedServices(t *testing.T) {
	t.Parallel()

	var closed recorder
	collection := godix.NewCollection()
	require.NoError(t, collection.AddScoped(func() *testutil.Disposable { return testutil.NewDisposable("first", closed.add) }))
	require.NoError(t, collection.AddScoped(func() *testutil.Disposable { return testutil.NewDisposable("second", closed.add) }))
	godix.DeclareExclusiveService[*testutil.Disposable](collection)

	provider, err := collection.BuildWithOptions(&godix.ProviderOptions{ValidateScopes: true})
	require.NoError(t, err)
	t.Cleanup(func() { _ = provider.Close() })

	err = godix.Validate(provider)
	testutil.AssertViolations(t, err, "Service *Disposable is exclusive, but is registered 2 times.")
	assert.Equal(t, []string{"second", "first"}, closed.list(), "instances created for counting are closed")
}

func TestValidator_Logging(t *testing.T) {
	t.Parallel()

	collection := godix.NewCollection()
	memoryAsStore.Add(t, collection)
	diskAsStore.Add(t, collection)
	godix.DeclareExclusiveService[testutil.Store](collection)

	provider, err := collection.Build()
	require.NoError(t, err)
	t.Cleanup(func() { _ = provider.Close() })

	var buf bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&buf, nil))

	require.Error(t, godix.NewValidator(provider, godix.WithValidatorLogger(logger), nil).Validate())
	assert.Contains(t, buf.String(), "level=WARN")
	assert.Contains(t, buf.String(), "exclusivity violation")
}
