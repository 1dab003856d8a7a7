package godix

import (
	"reflect"
	"runtime/debug"
	"slices"
)

// resolution tracks one top-level resolve call: the registrations being
// constructed, outermost first, and whether a singleton is among them.
type resolution struct {
	stack     []*Descriptor
	singleton bool
}

func newResolution() *resolution {
	return &resolution{}
}

// enter returns the resolution for constructing d's dependencies.
func (r *resolution) enter(d *Descriptor) *resolution {
	stack := make([]*Descriptor, len(r.stack), len(r.stack)+1)
	copy(stack, r.stack)

	return &resolution{
		stack:     append(stack, d),
		singleton: r.singleton || d.Lifetime == Singleton,
	}
}

func (r *resolution) cycle(d *Descriptor) error {
	i := slices.Index(r.stack, d)
	if i < 0 {
		return nil
	}

	chain := make([]reflect.Type, 0, len(r.stack)-i+1)
	for _, entry := range r.stack[i:] {
		chain = append(chain, entry.ServiceType)
	}
	return CircularDependencyError{Chain: append(chain, d.ServiceType)}
}

// resolveType resolves a request for t. Built-in types come first, then the
// last registration of t, then a slice of every registration of its element
// type.
func (s *scope) resolveType(t reflect.Type, r *resolution) (any, error) {
	switch t {
	case contextType:
		return s.ctx, nil
	case scopeType:
		return s, nil
	case providerType:
		return s.provider, nil
	}

	if descriptors := s.provider.services[t]; len(descriptors) > 0 {
		return s.resolveDescriptor(descriptors[len(descriptors)-1], r)
	}

	if t.Kind() == reflect.Slice {
		return s.resolveSlice(t, r)
	}

	return nil, ResolutionError{ServiceType: t, Cause: ErrServiceNotFound}
}

func (s *scope) resolveSlice(t reflect.Type, r *resolution) (any, error) {
	elem := t.Elem()
	descriptors := s.provider.services[elem]

	out := reflect.MakeSlice(t, 0, len(descriptors))
	for _, d := range descriptors {
		value, err := s.resolveDescriptor(d, r)
		if err != nil {
			return nil, err
		}

		rv, err := valueFor(value, elem)
		if err != nil {
			return nil, err
		}
		out = reflect.Append(out, rv)
	}

	return out.Interface(), nil
}

// resolveDescriptor produces the instance for one registration, honoring its
// lifetime.
func (s *scope) resolveDescriptor(d *Descriptor, r *resolution) (any, error) {
	if d.IsInstance {
		return d.Instance, nil
	}

	if err := r.cycle(d); err != nil {
		return nil, err
	}

	p := s.provider

	switch d.Lifetime {
	case Singleton:
		root := p.rootScope
		return p.singletons.getOrCreate(d, func() (any, error) {
			return root.create(d, r.enter(d), p.lifecycle)
		})

	case Scoped:
		if p.options.ValidateScopes && (s.IsRootScope() || r.singleton) {
			return nil, ResolutionError{ServiceType: d.ServiceType, Cause: ErrScopedFromRoot}
		}

		return s.instances.getOrCreate(d, func() (any, error) {
			return s.create(d, r.enter(d), s.lifecycle)
		})

	default:
		return s.create(d, r.enter(d), s.lifecycle)
	}
}

// create invokes d's constructor in this scope and hands the result to lc.
func (s *scope) create(d *Descriptor, r *resolution, lc *lifecycleManager) (any, error) {
	args, err := s.arguments(d, r)
	if err != nil {
		return nil, ResolutionError{ServiceType: d.ServiceType, Cause: err}
	}

	value, err := invoke(d, args)
	if err != nil {
		return nil, err
	}

	lc.track(value)
	return value, nil
}

// arguments resolves the constructor arguments, filling a parameter object
// field by field when the constructor takes one.
func (s *scope) arguments(d *Descriptor, r *resolution) ([]reflect.Value, error) {
	if d.isParamObject {
		obj := reflect.New(d.paramObject).Elem()
		for _, dep := range d.Dependencies {
			v, err := s.resolveDependency(dep.Type, dep.Optional, r)
			if err != nil {
				return nil, err
			}
			obj.Field(dep.Index).Set(v)
		}
		return []reflect.Value{obj}, nil
	}

	args := make([]reflect.Value, len(d.Dependencies))
	for i, dep := range d.Dependencies {
		v, err := s.resolveDependency(dep.Type, dep.Optional, r)
		if err != nil {
			return nil, err
		}
		args[i] = v
	}
	return args, nil
}

func (s *scope) resolveDependency(t reflect.Type, optional bool, r *resolution) (reflect.Value, error) {
	if optional && !s.provider.canSatisfy(t) {
		return reflect.Zero(t), nil
	}

	value, err := s.resolveType(t, r)
	if err != nil {
		return reflect.Value{}, err
	}

	return valueFor(value, t)
}

// valueFor converts a resolved value to a reflect.Value of exactly type t.
func valueFor(value any, t reflect.Type) (reflect.Value, error) {
	if value == nil {
		return reflect.Zero(t), nil
	}

	v := reflect.ValueOf(value)
	if v.Type() == t {
		return v, nil
	}

	if !v.Type().AssignableTo(t) {
		return reflect.Value{}, TypeMismatchError{Expected: t, Actual: v.Type(), Context: "dependency"}
	}

	out := reflect.New(t).Elem()
	out.Set(v)
	return out, nil
}

// invoke calls the constructor, turning a returned error or a panic into a
// typed error.
func invoke(d *Descriptor, args []reflect.Value) (value any, err error) {
	defer func() {
		if rec := recover(); rec != nil {
			value = nil
			err = ConstructorPanicError{Constructor: d.ConstructorType, Panic: rec, Stack: debug.Stack()}
		}
	}()

	results := d.Constructor.Call(args)

	if d.hasErrorReturn {
		if errValue := results[len(results)-1]; !isNil(errValue) {
			return nil, ConstructorInvocationError{Constructor: d.ConstructorType, Cause: errValue.Interface().(error)}
		}
	}

	return results[0].Interface(), nil
}

func isNil(v reflect.Value) bool {
	switch v.Kind() {
	case reflect.Interface, reflect.Pointer, reflect.Map, reflect.Slice, reflect.Func, reflect.Chan:
		return v.IsNil()
	default:
		return false
	}
}
