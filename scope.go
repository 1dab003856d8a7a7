package godix

import (
	"context"
	"log/slog"
	"reflect"
	"sync/atomic"

	"github.com/google/uuid"
)

// Scope defines a disposable service scope.
// Scopes are used to control the lifetime of scoped services.
//
// In web applications, a scope is typically created for each HTTP request,
// ensuring that services like database connections are properly managed
// and closed at the end of the request.
//
// A scope closes itself when its context is cancelled.
//
// Example:
//
//	scope, err := provider.CreateScope(ctx)
//	if err != nil {
//	    return err
//	}
//	defer scope.Close()
//
//	service, err := scope.Get(reflect.TypeFor[*RequestHandler]())
type Scope interface {
	Disposable

	// ID returns the unique ID of this scope.
	ID() string

	// Context returns the context associated with this scope.
	Context() context.Context

	// Provider returns the provider the scope belongs to.
	Provider() Provider

	// Parent returns the parent scope, or nil for the root scope.
	Parent() Scope

	// IsRootScope returns true if this is the provider's root scope.
	IsRootScope() bool

	// Get resolves a service; the last registration wins.
	Get(serviceType reflect.Type) (any, error)

	// GetAll resolves every registration of a service in order.
	GetAll(serviceType reflect.Type) ([]any, error)

	// GetAllInstances is GetAll with each value tagged by its registration.
	GetAllInstances(serviceType reflect.Type) ([]Instance, error)

	// CreateScope creates a child scope.
	CreateScope(ctx context.Context) (Scope, error)

	// IsDisposed reports whether Close has been called.
	IsDisposed() bool
}

type scope struct {
	id     string
	ctx    context.Context
	cancel context.CancelFunc
	stop   func() bool

	provider *provider
	parent   *scope

	// Scoped instances and the disposables created in this scope
	instances *instanceCache
	lifecycle *lifecycleManager

	disposed int32
}

// newScope creates a scope; a nil parent makes it the provider's root scope.
func newScope(p *provider, parent *scope, ctx context.Context) *scope {
	if ctx == nil {
		ctx = context.Background()
	}

	ctx, cancel := context.WithCancel(ctx)

	s := &scope{
		id:        uuid.NewString(),
		cancel:    cancel,
		provider:  p,
		parent:    parent,
		instances: newInstanceCache(),
		lifecycle: newLifecycleManager("scope"),
	}
	s.ctx = contextWithScope(ctx, s)

	if parent != nil {
		p.trackScope(s)
		s.stop = context.AfterFunc(ctx, func() {
			if err := s.Close(); err != nil {
				p.logger.Warn("scope closed with errors", slog.String("scope", s.id), slog.Any("error", err))
			}
		})
	}

	return s
}

func (s *scope) ID() string {
	return s.id
}

func (s *scope) Context() context.Context {
	return s.ctx
}

func (s *scope) Provider() Provider {
	return s.provider
}

func (s *scope) Parent() Scope {
	if s.parent == nil {
		return nil
	}
	return s.parent
}

func (s *scope) IsRootScope() bool {
	return s.parent == nil
}

func (s *scope) IsDisposed() bool {
	return atomic.LoadInt32(&s.disposed) != 0
}

// Get resolves a service in this scope
func (s *scope) Get(serviceType reflect.Type) (any, error) {
	if err := s.checkUsable(serviceType); err != nil {
		return nil, err
	}

	return s.resolveType(serviceType, newResolution())
}

// GetAll resolves every registration of a service in this scope
func (s *scope) GetAll(serviceType reflect.Type) ([]any, error) {
	instances, err := s.GetAllInstances(serviceType)
	if err != nil {
		return nil, err
	}

	values := make([]any, len(instances))
	for i, instance := range instances {
		values[i] = instance.Value
	}
	return values, nil
}

// GetAllInstances resolves every registration of a service with its origin
func (s *scope) GetAllInstances(serviceType reflect.Type) ([]Instance, error) {
	if err := s.checkUsable(serviceType); err != nil {
		return nil, err
	}

	descriptors := s.provider.services[serviceType]
	instances := make([]Instance, 0, len(descriptors))
	for _, d := range descriptors {
		value, err := s.resolveDescriptor(d, newResolution())
		if err != nil {
			return nil, err
		}
		instances = append(instances, Instance{Value: value, Descriptor: d})
	}

	return instances, nil
}

// CreateScope creates a child scope. A nil ctx inherits this scope's context.
func (s *scope) CreateScope(ctx context.Context) (Scope, error) {
	if s.IsDisposed() {
		return nil, ErrScopeDisposed
	}

	if s.provider.IsDisposed() {
		return nil, ErrProviderDisposed
	}

	if ctx == nil {
		ctx = s.ctx
	}

	child := newScope(s.provider, s, ctx)
	s.provider.logger.Debug("scope created", slog.String("scope", child.id), slog.String("parent", s.id))
	return child, nil
}

// Close closes every disposable created in the scope, newest first.
func (s *scope) Close() error {
	if !atomic.CompareAndSwapInt32(&s.disposed, 0, 1) {
		return nil
	}

	if s.stop != nil {
		s.stop()
	}

	if s.parent != nil {
		s.provider.untrackScope(s)
	}

	err := s.lifecycle.dispose(context.WithoutCancel(s.ctx))
	s.instances.clear()
	s.cancel()

	return err
}

func (s *scope) checkUsable(serviceType reflect.Type) error {
	if s.IsDisposed() {
		return ErrScopeDisposed
	}

	if s.provider.IsDisposed() {
		return ErrProviderDisposed
	}

	if serviceType == nil {
		return ErrServiceTypeNil
	}

	return nil
}

// scopeContextKey is the key for storing the current scope in context.
type scopeContextKey struct{}

// contextWithScope returns a context with the current scope.
func contextWithScope(ctx context.Context, s *scope) context.Context {
	return context.WithValue(ctx, scopeContextKey{}, s)
}

// ScopeFromContext returns the scope a context belongs to. Constructors
// that take a context.Context receive the resolving scope's context.
func ScopeFromContext(ctx context.Context) (Scope, error) {
	s, ok := ctx.Value(scopeContextKey{}).(*scope)
	if !ok || s == nil {
		return nil, ErrScopeNotInContext
	}

	if s.IsDisposed() {
		return nil, ErrScopeDisposed
	}

	return s, nil
}
