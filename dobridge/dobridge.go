// Package dobridge connects godix with github.com/samber/do/v2 injectors.
//
// Provide and ProvideAll publish godix services into an injector, Import
// registers an injector service in a godix collection. Both directions keep
// instance caching on the side that owns the service: published services are
// transient in do and resolve through godix on every invocation.
//
//	injector := do.New()
//	dobridge.Provide[Store](injector, provider)
//
//	store := do.MustInvoke[Store](injector)
package dobridge

import (
	"errors"
	"reflect"

	"github.com/junioryono/godix"
	"github.com/samber/do/v2"
)

// ErrInjectorNil is returned when a nil do.Injector is passed.
var ErrInjectorNil = errors.New("dobridge: injector cannot be nil")

// Provide publishes the service T of r into i. Invoking T from i resolves it
// from r, so the last godix registration wins.
//
// Like every do registration, it panics when T is already declared in i.
func Provide[T any](i do.Injector, r godix.Resolver) {
	do.ProvideTransient(i, func(do.Injector) (T, error) {
		return godix.Resolve[T](r)
	})
}

// ProvideAll publishes every registration of T as []T.
func ProvideAll[T any](i do.Injector, r godix.Resolver) {
	do.ProvideTransient(i, func(do.Injector) ([]T, error) {
		return godix.ResolveAll[T](r)
	})
}

// ProvideNamed publishes every service type of p into i as an untyped
// service named after the type, for example "*app.Store". It returns the
// names in order of first registration.
//
//	store, err := do.InvokeNamed[any](injector, "*app.Store")
func ProvideNamed(i do.Injector, p godix.Provider) ([]string, error) {
	if i == nil {
		return nil, ErrInjectorNil
	}

	if p == nil {
		return nil, godix.ErrProviderNil
	}

	types := p.ServiceTypes()
	names := make([]string, 0, len(types))

	for _, t := range types {
		name := Name(t)
		do.ProvideNamedTransient(i, name, func(do.Injector) (any, error) {
			return p.Get(t)
		})
		names = append(names, name)
	}

	return names, nil
}

// Name is the service name ProvideNamed uses for t.
func Name(t reflect.Type) string {
	return t.String()
}

// Import registers T in c with the given lifetime. The godix constructor
// invokes T from i, so i decides how many instances exist; the lifetime only
// controls how long godix keeps the result.
func Import[T any](c godix.Collection, lifetime godix.Lifetime, i do.Injector, opts ...godix.AddOption) error {
	if c == nil {
		return godix.ErrCollectionNil
	}

	if i == nil {
		return ErrInjectorNil
	}

	constructor := func() (T, error) {
		return do.Invoke[T](i)
	}

	switch lifetime {
	case godix.Singleton:
		return c.AddSingleton(constructor, opts...)
	case godix.Scoped:
		return c.AddScoped(constructor, opts...)
	case godix.Transient:
		return c.AddTransient(constructor, opts...)
	default:
		return godix.LifetimeError{Value: lifetime}
	}
}
