package godix

import (
	"context"
	"fmt"
	"log/slog"
	"reflect"
	"slices"
	"sync"
	"sync/atomic"

	"github.com/google/uuid"
)

// Provider is a built container. It resolves services from its root scope
// and creates child scopes.
type Provider interface {
	Disposable

	// ID returns the unique identifier for this provider instance.
	ID() string

	// Get resolves a service of the specified type from the root scope.
	// When the type is registered more than once the last registration wins.
	Get(serviceType reflect.Type) (any, error)

	// GetAll resolves every registration of the specified type from the
	// root scope, in registration order. An unregistered type yields an
	// empty slice.
	GetAll(serviceType reflect.Type) ([]any, error)

	// GetAllInstances is GetAll with each value tagged by the registration
	// that produced it.
	GetAllInstances(serviceType reflect.Type) ([]Instance, error)

	// ServiceTypes returns every registered service type once, in order of
	// first registration.
	ServiceTypes() []reflect.Type

	// Registrations returns the registrations of a service type in order,
	// without instantiating anything.
	Registrations(serviceType reflect.Type) []*Descriptor

	// CreateScope creates a new service scope for resolving services.
	CreateScope(ctx context.Context) (Scope, error)

	// Metadata returns a value attached to the collection the provider was
	// built from.
	Metadata(key any) (any, bool)

	// IsDisposed reports whether Close has been called.
	IsDisposed() bool
}

// Resolver is the resolving half of Provider and Scope.
type Resolver interface {
	Get(serviceType reflect.Type) (any, error)
	GetAll(serviceType reflect.Type) ([]any, error)
}

var (
	_ Resolver = Provider(nil)
	_ Resolver = Scope(nil)
)

// Instance is a resolved value together with the registration it came from.
type Instance struct {
	Value      any
	Descriptor *Descriptor
}

// ProviderOptions configures how a Provider is built and how it resolves.
type ProviderOptions struct {
	// ValidateScopes rejects resolving scoped services from the root scope,
	// directly or while constructing a singleton.
	ValidateScopes bool

	// ValidateOnBuild checks at build time that every required dependency
	// of every registration is registered and that no registrations depend
	// on each other in a cycle.
	ValidateOnBuild bool

	// Logger receives build and lifecycle events. Defaults to slog.Default().
	Logger *slog.Logger
}

type provider struct {
	id string

	// Registrations (immutable after build)
	descriptors []*Descriptor
	services    map[reflect.Type][]*Descriptor
	metadata    map[any]any

	options ProviderOptions
	logger  *slog.Logger

	// Singleton instances and the disposables among them
	singletons *instanceCache
	lifecycle  *lifecycleManager

	// Root scope for provider-level resolution
	rootScope *scope

	// Active scopes for cleanup tracking
	scopes   map[*scope]struct{}
	scopesMu sync.Mutex

	disposed int32
}

var (
	contextType  = reflect.TypeFor[context.Context]()
	scopeType    = reflect.TypeFor[Scope]()
	providerType = reflect.TypeFor[Provider]()
)

func newProvider(descriptors []*Descriptor, metadata map[any]any, options *ProviderOptions) (*provider, error) {
	if options == nil {
		options = &ProviderOptions{}
	}

	logger := options.Logger
	if logger == nil {
		logger = slog.Default()
	}

	p := &provider{
		id:          uuid.NewString(),
		descriptors: descriptors,
		services:    make(map[reflect.Type][]*Descriptor),
		metadata:    metadata,
		options:     *options,
		logger:      logger,
		singletons:  newInstanceCache(),
		lifecycle:   newLifecycleManager("provider"),
		scopes:      make(map[*scope]struct{}),
	}

	for i, d := range descriptors {
		if err := d.Validate(); err != nil {
			return nil, BuildError{Phase: "descriptor", Details: fmt.Sprintf("registration %d", i), Cause: err}
		}
		p.services[d.ServiceType] = append(p.services[d.ServiceType], d)
	}

	if options.ValidateOnBuild {
		if err := p.validateDependencies(); err != nil {
			return nil, err
		}
		if err := detectCycle(p); err != nil {
			return nil, err
		}
	}

	p.rootScope = newScope(p, nil, context.Background())

	p.logger.Debug("service provider built",
		slog.String("provider", p.id),
		slog.Int("registrations", len(descriptors)),
		slog.Int("services", len(p.services)),
	)

	return p, nil
}

// validateDependencies checks that every required dependency can be satisfied.
func (p *provider) validateDependencies() error {
	for _, d := range p.descriptors {
		for _, dep := range d.Dependencies {
			if dep.Optional || p.canSatisfy(dep.Type) {
				continue
			}

			return BuildError{
				Phase:   "dependencies",
				Details: d.String(),
				Cause:   ResolutionError{ServiceType: dep.Type, Cause: ErrServiceNotFound},
			}
		}
	}
	return nil
}

func (p *provider) canSatisfy(t reflect.Type) bool {
	if isBuiltin(t) || len(p.services[t]) > 0 {
		return true
	}
	return t.Kind() == reflect.Slice
}

func isBuiltin(t reflect.Type) bool {
	return t == contextType || t == scopeType || t == providerType
}

// ID returns the unique identifier for the provider.
func (p *provider) ID() string {
	return p.id
}

// Get resolves a service from the root scope
func (p *provider) Get(serviceType reflect.Type) (any, error) {
	if p.IsDisposed() {
		return nil, ErrProviderDisposed
	}

	return p.rootScope.Get(serviceType)
}

// GetAll resolves all registrations of a service from the root scope
func (p *provider) GetAll(serviceType reflect.Type) ([]any, error) {
	if p.IsDisposed() {
		return nil, ErrProviderDisposed
	}

	return p.rootScope.GetAll(serviceType)
}

// GetAllInstances resolves all registrations of a service from the root
// scope along with their origin.
func (p *provider) GetAllInstances(serviceType reflect.Type) ([]Instance, error) {
	if p.IsDisposed() {
		return nil, ErrProviderDisposed
	}

	return p.rootScope.GetAllInstances(serviceType)
}

func (p *provider) ServiceTypes() []reflect.Type {
	types := make([]reflect.Type, 0, len(p.services))
	for _, d := range p.descriptors {
		if !slices.Contains(types, d.ServiceType) {
			types = append(types, d.ServiceType)
		}
	}
	return types
}

func (p *provider) Registrations(serviceType reflect.Type) []*Descriptor {
	return slices.Clone(p.services[serviceType])
}

// CreateScope creates a new service scope
func (p *provider) CreateScope(ctx context.Context) (Scope, error) {
	if p.IsDisposed() {
		return nil, ErrProviderDisposed
	}

	return p.rootScope.CreateScope(ctx)
}

func (p *provider) Metadata(key any) (any, bool) {
	value, ok := p.metadata[key]
	return value, ok
}

func (p *provider) IsDisposed() bool {
	return atomic.LoadInt32(&p.disposed) != 0
}

// Close disposes the provider and all its resources
func (p *provider) Close() error {
	if !atomic.CompareAndSwapInt32(&p.disposed, 0, 1) {
		return nil
	}

	var errs []error

	p.scopesMu.Lock()
	scopes := make([]*scope, 0, len(p.scopes))
	for s := range p.scopes {
		scopes = append(scopes, s)
	}
	p.scopesMu.Unlock()

	for _, s := range scopes {
		if err := s.Close(); err != nil {
			errs = append(errs, fmt.Errorf("scope %s: %w", s.id, err))
		}
	}

	if err := p.rootScope.Close(); err != nil {
		errs = append(errs, fmt.Errorf("root scope: %w", err))
	}

	disposables := p.lifecycle.count()
	if err := p.lifecycle.dispose(context.Background()); err != nil {
		errs = append(errs, err)
	}

	p.singletons.clear()

	p.logger.Debug("service provider closed",
		slog.String("provider", p.id),
		slog.Int("disposables", disposables),
		slog.Int("errors", len(errs)),
	)

	if len(errs) > 0 {
		return DisposalError{Context: "provider", Errors: errs}
	}

	return nil
}

func (p *provider) trackScope(s *scope) {
	p.scopesMu.Lock()
	defer p.scopesMu.Unlock()
	p.scopes[s] = struct{}{}
}

func (p *provider) untrackScope(s *scope) {
	p.scopesMu.Lock()
	defer p.scopesMu.Unlock()
	delete(p.scopes, s)
}

// Resolve resolves a service of type T from a provider or scope.
// This is a generic convenience function that handles type assertions.
//
// Example:
//
//	logger, err := godix.Resolve[*Logger](provider)
//	if err != nil {
//	    // Handle error
//	}
func Resolve[T any](r Resolver) (T, error) {
	var zero T

	if r == nil {
		return zero, ErrProviderNil
	}

	serviceType := reflect.TypeFor[T]()
	service, err := r.Get(serviceType)
	if err != nil {
		return zero, err
	}

	if service == nil {
		return zero, nil
	}

	result, ok := service.(T)
	if !ok {
		return zero, TypeMismatchError{
			Expected: serviceType,
			Actual:   reflect.TypeOf(service),
			Context:  "type assertion",
		}
	}

	return result, nil
}

// MustResolve resolves a service of type T from the provider.
// It panics if the service cannot be resolved. This is useful for
// application initialization where missing services are fatal.
//
// Example:
//
//	// Panics if logger cannot be resolved
//	logger := godix.MustResolve[*Logger](provider)
func MustResolve[T any](r Resolver) T {
	service, err := Resolve[T](r)
	if err != nil {
		panic(fmt.Sprintf("failed to resolve service: %v", err))
	}

	return service
}

// ResolveAll resolves every registration of type T, in registration order.
//
// Example:
//
//	handlers, err := godix.ResolveAll[http.Handler](provider)
func ResolveAll[T any](r Resolver) ([]T, error) {
	if r == nil {
		return nil, ErrProviderNil
	}

	serviceType := reflect.TypeFor[T]()
	services, err := r.GetAll(serviceType)
	if err != nil {
		return nil, err
	}

	results := make([]T, 0, len(services))
	for i, service := range services {
		if service == nil {
			var zero T
			results = append(results, zero)
			continue
		}

		result, ok := service.(T)
		if !ok {
			return nil, TypeMismatchError{
				Expected: serviceType,
				Actual:   reflect.TypeOf(service),
				Context:  fmt.Sprintf("type assertion for registration %d", i),
			}
		}

		results = append(results, result)
	}

	return results, nil
}
