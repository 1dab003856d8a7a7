// Package godix is a dependency injection container with exclusivity
// constraints: rules declaring that a service type, or an implementation of
// a service type, may be registered at most once.
//
// # Overview
//
// Services are registered on a Collection, the collection is built into a
// Provider, and services are resolved from the provider or from scopes
// created from it. On top of that the package provides:
//   - Exclusivity declarations, recorded on the collection and checked
//     against the built provider by a Validator
//   - A duplicate registration reporter that runs before build, with exact
//     and generic-family exclusions
//   - BuildAndValidate, which runs the reporter, builds, and validates in one
//     call
//
// # Basic Usage
//
//	services := godix.NewCollection()
//	services.AddSingleton(NewLogger)
//	services.AddScoped(NewUserService)
//
//	provider, err := godix.BuildAndValidate(services, nil, nil)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer provider.Close()
//
//	userService, err := godix.Resolve[*UserService](provider)
//
// # Service Lifetimes
//
//   - Singleton: one instance for the provider
//   - Scoped: one instance per scope
//   - Transient: a new instance on every request
//
// Requesting a type registered more than once resolves the last
// registration. Requesting a slice of it resolves all of them, in
// registration order.
//
// # Exclusivity
//
// A service type is declared exclusive with DeclareExclusiveService or the
// ExclusiveService option; an implementation with
// DeclareExclusiveImplementation or the ExclusiveImplementation option:
//
//	services.AddSingleton(NewSystemClock, godix.As(new(Clock)), godix.ExclusiveService())
//	godix.DeclareExclusiveImplementation[Store, *MemoryStore](services)
//
// Declarations are only checked by a Validator, which counts registrations
// by resolving them in a temporary scope. All violations are collected into
// one ExclusivityError:
//
//	service provider validation failed with the following errors:
//
//	Service Clock is exclusive, but is registered 2 times.
//
// # Duplicate Reports
//
// A ReportConfig scans a collection for service types registered more than
// once and hands each one to its callbacks. Reports are informational and
// never fail a build:
//
//	reporting := godix.NewReportConfig().
//	    OnDuplicateService(func(d godix.DuplicateService) { log.Println(d) }).
//	    ExceptGeneric(reflect.TypeFor[Repository[any]]())
//
// # Parameter Objects
//
// Constructors with many dependencies can take a struct embedding godix.In.
// Fields tagged optional:"true" resolve to their zero value when missing;
// fields tagged inject:"-" are skipped.
//
//	type ServiceParams struct {
//	    godix.In
//
//	    Store  Store
//	    Clock  Clock   `optional:"true"`
//	    Stores []Store
//	}
//
// # Modules
//
//	var StorageModule = godix.NewModule("storage",
//	    godix.DeclareExclusive[Store](),
//	    godix.AddSingleton(NewMemoryStore, godix.As(new(Store))),
//	)
//
//	services.AddModules(StorageModule)
//
// # Scopes
//
// Scopes close automatically when the context they were created with is
// cancelled. Disposable instances are closed in reverse creation order.
//
//	scope, err := provider.CreateScope(r.Context())
//	if err != nil {
//	    return err
//	}
//	defer scope.Close()
//
// # Errors
//
//   - ExclusivityError: one or more exclusivity constraints are violated
//   - ValidationError: registrations could not be counted
//   - CircularDependencyError: a service requires itself
//   - ResolutionError: a service could not be resolved
//   - BuildError: the collection could not be built
//
// The digbridge and dobridge packages expose a provider to go.uber.org/dig
// and github.com/samber/do containers; the chi, echo, gin and fiber modules
// attach request scopes to their routers.
package godix
