package godix

import (
	"bytes"
	"fmt"
	"reflect"
)

// ModuleOption represents a registration action within a module.
type ModuleOption func(Collection) error

// NewModule creates a new module with the given name and builders.
// Modules are a way to group related service registrations together.
//
// Example:
//
//	var StorageModule = godix.NewModule("storage",
//	    godix.AddSingleton(NewConnection, godix.ExclusiveService()),
//	    godix.AddScoped(NewUserRepository, godix.As(new(Repository[User]))),
//	)
//
//	var AppModule = godix.NewModule("app",
//	    StorageModule,
//	    godix.DeclareExclusive[Clock](),
//	    godix.AddTransient(NewHandler),
//	)
func NewModule(name string, builders ...ModuleOption) ModuleOption {
	return func(s Collection) error {
		for _, builder := range builders {
			if builder == nil {
				continue
			}

			if err := builder(s); err != nil {
				return ModuleError{Module: name, Cause: err}
			}
		}

		return nil
	}
}

// AddSingleton creates a ModuleOption for adding a singleton service.
func AddSingleton(service any, opts ...AddOption) ModuleOption {
	return func(s Collection) error {
		return s.AddSingleton(service, opts...)
	}
}

// AddScoped creates a ModuleOption for adding a scoped service.
func AddScoped(service any, opts ...AddOption) ModuleOption {
	return func(s Collection) error {
		return s.AddScoped(service, opts...)
	}
}

// AddTransient creates a ModuleOption for adding a transient service.
func AddTransient(service any, opts ...AddOption) ModuleOption {
	return func(s Collection) error {
		return s.AddTransient(service, opts...)
	}
}

// DeclareExclusive creates a ModuleOption declaring T an exclusive service.
func DeclareExclusive[T any]() ModuleOption {
	return func(s Collection) error {
		return EnsureLedger(s).RecordExclusiveService(reflect.TypeFor[T]())
	}
}

// DeclareExclusivePair creates a ModuleOption declaring the
// (TService, TImpl) pair exclusive.
func DeclareExclusivePair[TService, TImpl any]() ModuleOption {
	return func(s Collection) error {
		return EnsureLedger(s).RecordExclusiveImplementation(reflect.TypeFor[TService](), reflect.TypeFor[TImpl]())
	}
}

// An AddOption modifies the default behavior of AddSingleton, AddScoped, and AddTransient.
type AddOption interface {
	applyAddOption(*addOptions)
}

type addOptions struct {
	As                      []any
	ExclusiveService        bool
	ExclusiveImplementation bool
}

func (o *addOptions) Validate() error {
	for _, i := range o.As {
		t := reflect.TypeOf(i)

		if t == nil {
			return fmt.Errorf("invalid godix.As(nil): argument must be a pointer to an interface")
		}

		if t.Kind() != reflect.Ptr {
			return fmt.Errorf("invalid godix.As(%v): argument must be a pointer to an interface", t)
		}

		pointingTo := t.Elem()
		if pointingTo.Kind() != reflect.Interface {
			return fmt.Errorf("invalid godix.As(*%v): argument must be a pointer to an interface", pointingTo)
		}
	}
	return nil
}

// As is an AddOption that specifies that the value produced by the
// constructor implements one or more other interfaces and is provided
// to the container as those interfaces.
//
// As expects one or more pointers to the implemented interfaces. Values
// produced by constructors will be then available in the container as
// implementations of all of those interfaces, but not as the value itself.
//
// For example, the following will make io.Reader and io.Writer available
// in the container, but not buffer.
//
//	c.AddSingleton(newBuffer, godix.As(new(io.Reader), new(io.Writer)))
//
// Each interface becomes its own registration. They all carry the
// constructor's concrete return type as their implementation type, so an
// exclusive implementation declared for that type counts every one of them.
func As(i ...any) AddOption {
	return addAsOption(i)
}

type addAsOption []any

func (o addAsOption) String() string {
	buf := bytes.NewBufferString("As(")
	for i, iface := range o {
		if i > 0 {
			buf.WriteString(", ")
		}
		if t := reflect.TypeOf(iface); t != nil && t.Kind() == reflect.Ptr {
			buf.WriteString(t.Elem().String())
		} else {
			fmt.Fprintf(buf, "%v", t)
		}
	}
	buf.WriteString(")")
	return buf.String()
}

func (o addAsOption) applyAddOption(opts *addOptions) {
	opts.As = append(opts.As, o...)
}

// ExclusiveService is an AddOption that declares every service type the
// registration is exposed as exclusive: the built provider may hold at most
// one registration for it.
//
//	c.AddSingleton(NewClock, godix.As(new(Clock)), godix.ExclusiveService())
func ExclusiveService() AddOption {
	return addExclusiveServiceOption{}
}

type addExclusiveServiceOption struct{}

func (addExclusiveServiceOption) String() string {
	return "ExclusiveService()"
}

func (addExclusiveServiceOption) applyAddOption(opts *addOptions) {
	opts.ExclusiveService = true
}

// ExclusiveImplementation is an AddOption that declares the pair of each
// exposed service type and the constructor's concrete return type exclusive.
// Registrations of the same service type with other implementations are
// unaffected.
//
// The registration must have a known implementation type. Constructors that
// return an interface fail with ErrImplementationUnknown; declare their pair
// with DeclareExclusiveImplementation instead, which is checked against the
// runtime type of every resolved instance.
func ExclusiveImplementation() AddOption {
	return addExclusiveImplementationOption{}
}

type addExclusiveImplementationOption struct{}

func (addExclusiveImplementationOption) String() string {
	return "ExclusiveImplementation()"
}

func (addExclusiveImplementationOption) applyAddOption(opts *addOptions) {
	opts.ExclusiveImplementation = true
}
