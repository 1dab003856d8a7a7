// Package digbridge publishes the services of a godix Provider into a
// go.uber.org/dig container, so applications assembled with dig can consume
// registrations that were validated by godix.
//
//	provider, err := godix.BuildAndValidate(collection, nil, nil)
//	if err != nil {
//	    return err
//	}
//
//	container := dig.New()
//	if err := digbridge.Export(container, provider); err != nil {
//	    return err
//	}
//
//	err = container.Invoke(func(store Store) { ... })
package digbridge

import (
	"errors"
	"fmt"
	"reflect"

	"github.com/junioryono/godix"
	"go.uber.org/dig"
)

// ErrContainerNil is returned by Export when the dig container is nil.
var ErrContainerNil = errors.New("digbridge: container cannot be nil")

var errType = reflect.TypeFor[error]()

// Export provides every service type of p to c. Each type resolves through
// p.Get, so the last registration wins and lifetimes are those of p's root
// scope. Types registered more than once are also provided as a slice of
// every registration, unless that slice type is registered itself. The
// provider itself is provided as godix.Provider.
func Export(c *dig.Container, p godix.Provider) error {
	if c == nil {
		return ErrContainerNil
	}

	if p == nil {
		return godix.ErrProviderNil
	}

	types := p.ServiceTypes()
	registered := make(map[reflect.Type]bool, len(types))
	for _, t := range types {
		registered[t] = true
	}

	for _, t := range types {
		if !exportable(t) {
			continue
		}

		if err := c.Provide(single(p, t)); err != nil {
			return fmt.Errorf("digbridge: provide %s: %w", t, err)
		}

		sliceType := reflect.SliceOf(t)
		if registered[sliceType] {
			continue
		}

		if len(p.Registrations(t)) > 1 {
			if err := c.Provide(all(p, t)); err != nil {
				return fmt.Errorf("digbridge: provide %s: %w", sliceType, err)
			}
		}
	}

	providerType := reflect.TypeFor[godix.Provider]()
	if !registered[providerType] {
		if err := c.Provide(func() godix.Provider { return p }); err != nil {
			return fmt.Errorf("digbridge: provide %s: %w", providerType, err)
		}
	}

	return nil
}

// exportable reports whether dig accepts t as a constructor result.
func exportable(t reflect.Type) bool {
	if t == errType {
		return false
	}

	if t.Kind() == reflect.Struct {
		for i := 0; i < t.NumField(); i++ {
			f := t.Field(i)
			if f.Anonymous && (f.Type == reflect.TypeFor[dig.In]() || f.Type == reflect.TypeFor[dig.Out]()) {
				return false
			}
		}
	}

	return true
}

// single builds func() (T, error) resolving t from p.
func single(p godix.Provider, t reflect.Type) any {
	fnType := reflect.FuncOf(nil, []reflect.Type{t, errType}, false)
	return reflect.MakeFunc(fnType, func([]reflect.Value) []reflect.Value {
		value, err := p.Get(t)
		return results(t, value, err)
	}).Interface()
}

// all builds func() ([]T, error) resolving every registration of t from p.
func all(p godix.Provider, t reflect.Type) any {
	sliceType := reflect.SliceOf(t)
	fnType := reflect.FuncOf(nil, []reflect.Type{sliceType, errType}, false)
	return reflect.MakeFunc(fnType, func([]reflect.Value) []reflect.Value {
		values, err := p.GetAll(t)
		if err != nil {
			return results(sliceType, nil, err)
		}

		out := reflect.MakeSlice(sliceType, 0, len(values))
		for _, v := range values {
			out = reflect.Append(out, valueOf(t, v))
		}
		return results(sliceType, out.Interface(), nil)
	}).Interface()
}

func results(t reflect.Type, value any, err error) []reflect.Value {
	if err != nil {
		return []reflect.Value{reflect.Zero(t), reflect.ValueOf(&err).Elem()}
	}
	return []reflect.Value{valueOf(t, value), reflect.Zero(errType)}
}

// valueOf returns value as a reflect.Value of exactly type t.
func valueOf(t reflect.Type, value any) reflect.Value {
	out := reflect.New(t).Elem()
	if value != nil {
		out.Set(reflect.ValueOf(value))
	}
	return out
}
