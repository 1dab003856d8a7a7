package godix

import (
	"errors"
	"reflect"
	"slices"
	"sync"

	"github.com/junioryono/godix/internal/reflection"
)

// Collection is the ordered list of registrations that a Provider is built
// from.
//
// Registrations keep the order they were added in. When a service type is
// registered more than once, resolving it returns the last registration and
// resolving a slice of it returns all of them in order.
//
// A Collection should be configured in a single goroutine before building the
// Provider. Its methods are guarded by a lock, but interleaving
// registrations from several goroutines makes the resulting order
// meaningless.
//
// Example:
//
//	collection := godix.NewCollection()
//	collection.AddSingleton(NewLogger)
//	collection.AddScoped(NewDatabase, godix.ExclusiveService())
//
//	provider, err := godix.BuildAndValidate(collection, nil, nil)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer provider.Close()
type Collection interface {
	// Build creates a Provider from the registered services
	// using default options.
	Build() (Provider, error)

	// BuildWithOptions creates a Provider with custom options
	// for validation and behavior configuration.
	BuildWithOptions(options *ProviderOptions) (Provider, error)

	// AddModules applies one or more module configurations to the service collection.
	// Modules provide a way to group related service registrations.
	AddModules(modules ...ModuleOption) error

	// AddSingleton registers a service with singleton lifetime.
	// Only one instance is created and shared across all resolutions.
	AddSingleton(constructor any, opts ...AddOption) error

	// AddScoped registers a service with scoped lifetime.
	// One instance is created per scope and shared within that scope.
	AddScoped(constructor any, opts ...AddOption) error

	// AddTransient registers a service with transient lifetime.
	// A new instance is created every time the service is resolved.
	AddTransient(constructor any, opts ...AddOption) error

	// Add appends a prepared descriptor.
	Add(descriptor *Descriptor) error

	// Insert places a descriptor at index, shifting later entries.
	Insert(index int, descriptor *Descriptor) error

	// RemoveAt removes the descriptor at index.
	RemoveAt(index int) error

	// At returns the descriptor at index.
	At(index int) (*Descriptor, error)

	// Contains checks if a service type is registered.
	Contains(serviceType reflect.Type) bool

	// Remove removes all registrations for a given service type.
	Remove(serviceType reflect.Type)

	// ToSlice returns a copy of all registered service descriptors in order.
	ToSlice() []*Descriptor

	// Count returns the number of registered services.
	Count() int

	// DeclareExclusiveService declares that serviceType may have at most one
	// registration in the built provider. It returns the collection so the
	// call can be chained; an invalid declaration is reported by Build.
	DeclareExclusiveService(serviceType reflect.Type) Collection

	// DeclareExclusiveImplementation declares that implementationType may
	// back at most one registration of serviceType in the built provider.
	// It returns the collection so the call can be chained; an invalid
	// declaration is reported by Build.
	DeclareExclusiveImplementation(serviceType, implementationType reflect.Type) Collection

	// SetMetadata attaches a value to the collection. Attached values are
	// carried over to providers built from it.
	SetMetadata(key, value any)

	// Metadata returns a value attached with SetMetadata.
	Metadata(key any) (any, bool)
}

type collection struct {
	mu sync.RWMutex

	// descriptors in registration order
	descriptors []*Descriptor

	// metadata attached by SetMetadata
	metadata map[any]any

	// deferred errors from the fluent declarations
	errs []error

	analyzer *reflection.Analyzer
}

// NewCollection creates a new empty Collection instance.
//
// Example:
//
//	collection := godix.NewCollection()
//	collection.AddSingleton(NewLogger)
//	provider, err := collection.Build()
func NewCollection() Collection {
	return &collection{
		metadata: make(map[any]any),
		analyzer: reflection.New(),
	}
}

// Build creates a Provider from the registered services using default options.
func (c *collection) Build() (Provider, error) {
	return c.BuildWithOptions(nil)
}

// BuildWithOptions creates a Provider with custom options for validation and behavior configuration.
func (c *collection) BuildWithOptions(options *ProviderOptions) (Provider, error) {
	c.mu.RLock()
	if len(c.errs) > 0 {
		err := errors.Join(c.errs...)
		c.mu.RUnlock()
		return nil, BuildError{Phase: "registration", Details: "invalid exclusivity declaration", Cause: err}
	}

	descriptors := slices.Clone(c.descriptors)
	metadata := make(map[any]any, len(c.metadata))
	for k, v := range c.metadata {
		metadata[k] = v
	}
	c.mu.RUnlock()

	p, err := newProvider(descriptors, metadata, options)
	if err != nil {
		return nil, err
	}

	return p, nil
}

// AddModules applies one or more module configurations to the service collection.
func (c *collection) AddModules(modules ...ModuleOption) error {
	for _, module := range modules {
		if module == nil {
			continue
		}

		if err := module(c); err != nil {
			return err
		}
	}

	return nil
}

// AddSingleton adds a singleton service to the collection.
func (c *collection) AddSingleton(constructor any, opts ...AddOption) error {
	return c.addService(constructor, Singleton, opts...)
}

// AddScoped adds a scoped service to the collection.
func (c *collection) AddScoped(constructor any, opts ...AddOption) error {
	return c.addService(constructor, Scoped, opts...)
}

// AddTransient adds a transient service to the collection.
func (c *collection) AddTransient(constructor any, opts ...AddOption) error {
	return c.addService(constructor, Transient, opts...)
}

// Add appends a prepared descriptor.
func (c *collection) Add(descriptor *Descriptor) error {
	c.mu.RLock()
	n := len(c.descriptors)
	c.mu.RUnlock()

	return c.Insert(n, descriptor)
}

// Insert places a descriptor at index, shifting later entries.
func (c *collection) Insert(index int, descriptor *Descriptor) error {
	if err := descriptor.Validate(); err != nil {
		return err
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if index < 0 || index > len(c.descriptors) {
		return RegistrationError{ServiceType: descriptor.ServiceType, Operation: "insert", Cause: ErrIndexOutOfRange}
	}

	c.descriptors = slices.Insert(c.descriptors, index, descriptor)
	return nil
}

// RemoveAt removes the descriptor at index.
func (c *collection) RemoveAt(index int) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if index < 0 || index >= len(c.descriptors) {
		return RegistrationError{Operation: "remove", Cause: ErrIndexOutOfRange}
	}

	c.descriptors = slices.Delete(c.descriptors, index, index+1)
	return nil
}

// At returns the descriptor at index.
func (c *collection) At(index int) (*Descriptor, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	if index < 0 || index >= len(c.descriptors) {
		return nil, ErrIndexOutOfRange
	}

	return c.descriptors[index], nil
}

// Contains checks if a service type is registered in the collection.
func (c *collection) Contains(serviceType reflect.Type) bool {
	c.mu.RLock()
	defer c.mu.RUnlock()

	for _, d := range c.descriptors {
		if d.ServiceType == serviceType {
			return true
		}
	}
	return false
}

// Remove removes all registrations for a given type
func (c *collection) Remove(serviceType reflect.Type) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.descriptors = slices.DeleteFunc(c.descriptors, func(d *Descriptor) bool {
		return d.ServiceType == serviceType
	})
}

// ToSlice returns a copy of all registered service descriptors
func (c *collection) ToSlice() []*Descriptor {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return slices.Clone(c.descriptors)
}

// Count returns the number of registered services in the collection.
func (c *collection) Count() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.descriptors)
}

func (c *collection) DeclareExclusiveService(serviceType reflect.Type) Collection {
	if err := EnsureLedger(c).RecordExclusiveService(serviceType); err != nil {
		c.deferError(RegistrationError{ServiceType: serviceType, Operation: "declare exclusive", Cause: err})
	}
	return c
}

func (c *collection) DeclareExclusiveImplementation(serviceType, implementationType reflect.Type) Collection {
	if err := EnsureLedger(c).RecordExclusiveImplementation(serviceType, implementationType); err != nil {
		c.deferError(RegistrationError{ServiceType: serviceType, Operation: "declare exclusive", Cause: err})
	}
	return c
}

func (c *collection) SetMetadata(key, value any) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.metadata[key] = value
}

func (c *collection) Metadata(key any) (any, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	value, ok := c.metadata[key]
	return value, ok
}

func (c *collection) deferError(err error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.errs = append(c.errs, err)
}

// addService registers a new service, and records any exclusivity requested
// through its options.
func (c *collection) addService(constructor any, lifetime Lifetime, opts ...AddOption) error {
	descriptors, options, err := newDescriptors(constructor, lifetime, c.analyzer, opts...)
	if err != nil {
		return err
	}

	if options.ExclusiveImplementation {
		for _, d := range descriptors {
			if d.ImplementationType == nil {
				return RegistrationError{ServiceType: d.ServiceType, Operation: "register", Cause: ErrImplementationUnknown}
			}
		}
	}

	c.mu.Lock()
	c.descriptors = append(c.descriptors, descriptors...)
	c.mu.Unlock()

	if !options.ExclusiveService && !options.ExclusiveImplementation {
		return nil
	}

	ledger := EnsureLedger(c)
	for _, d := range descriptors {
		if options.ExclusiveService {
			if err := ledger.RecordExclusiveService(d.ServiceType); err != nil {
				return err
			}
		}

		if options.ExclusiveImplementation {
			if err := ledger.RecordExclusiveImplementation(d.ServiceType, d.ImplementationType); err != nil {
				return err
			}
		}
	}

	return nil
}

// DeclareExclusiveService declares T an exclusive service of c and returns c.
//
//	godix.DeclareExclusiveService[Clock](collection)
func DeclareExclusiveService[T any](c Collection) Collection {
	return c.DeclareExclusiveService(reflect.TypeFor[T]())
}

// DeclareExclusiveImplementation declares the (TService, TImpl) pair
// exclusive in c and returns c.
//
//	godix.DeclareExclusiveImplementation[Store, *DiskStore](collection)
func DeclareExclusiveImplementation[TService, TImpl any](c Collection) Collection {
	return c.DeclareExclusiveImplementation(reflect.TypeFor[TService](), reflect.TypeFor[TImpl]())
}
