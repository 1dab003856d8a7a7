package godix

import (
	"fmt"
	"reflect"

	"github.com/junioryono/godix/internal/reflection"
)

// Descriptor is a single registration: the declared service type, where
// instances come from, and how long they live.
//
// The ImplementationType is recorded when the descriptor is created: the
// concrete type a constructor returns, or the dynamic type of a registered
// instance. Constructors whose return type is an interface leave it nil.
type Descriptor struct {
	// ServiceType is the declared type the registration is resolved by.
	ServiceType reflect.Type

	// ImplementationType is the concrete type produced, if known.
	ImplementationType reflect.Type

	// Lifetime determines instance caching behavior
	Lifetime Lifetime

	// Constructor is the reflected function value
	Constructor reflect.Value

	// ConstructorType is the type of the constructor function
	ConstructorType reflect.Type

	// Dependencies are the analyzed dependencies
	Dependencies []*reflection.Dependency

	// IsInstance indicates if this descriptor holds an instance value
	IsInstance bool

	// Instance is the actual instance value when IsInstance is true
	Instance any

	hasErrorReturn bool
	isParamObject  bool
	paramObject    reflect.Type
}

// NewDescriptor creates a single descriptor for a constructor or instance.
// It accepts at most one As type; use the Collection Add methods to register
// a constructor under several service types at once. Exclusivity options are
// ignored here because they belong to a collection.
func NewDescriptor(service any, lifetime Lifetime, opts ...AddOption) (*Descriptor, error) {
	descriptors, _, err := newDescriptors(service, lifetime, nil, opts...)
	if err != nil {
		return nil, err
	}

	if len(descriptors) != 1 {
		return nil, RegistrationError{
			ServiceType: descriptors[0].ServiceType,
			Operation:   "describe",
			Cause:       fmt.Errorf("expected a single service type, got %d", len(descriptors)),
		}
	}

	return descriptors[0], nil
}

// newDescriptors creates one descriptor per service type the registration is
// exposed as, along with the parsed options.
func newDescriptors(service any, lifetime Lifetime, analyzer *reflection.Analyzer, opts ...AddOption) ([]*Descriptor, *addOptions, error) {
	if service == nil {
		return nil, nil, RegistrationError{Operation: "register", Cause: ErrConstructorNil}
	}

	if !lifetime.IsValid() {
		return nil, nil, LifetimeError{Value: lifetime}
	}

	options := &addOptions{}
	for _, opt := range opts {
		if opt != nil {
			opt.applyAddOption(options)
		}
	}

	if err := options.Validate(); err != nil {
		return nil, nil, err
	}

	constructorValue := reflect.ValueOf(service)
	if constructorValue.Kind() == reflect.Pointer && constructorValue.IsNil() {
		return nil, nil, RegistrationError{ServiceType: constructorValue.Type(), Operation: "register", Cause: ErrConstructorNil}
	}

	if analyzer == nil {
		analyzer = reflection.New()
	}

	info, err := analyzer.Analyze(service)
	if err != nil {
		return nil, nil, RegistrationError{ServiceType: constructorValue.Type(), Operation: "analyze", Cause: err}
	}

	if info.IsFunc && info.NumResults != 1 {
		return nil, nil, RegistrationError{
			ServiceType: info.Type,
			Operation:   "register",
			Cause:       fmt.Errorf("constructor must return exactly one value, optionally followed by an error; got %d values", info.NumResults),
		}
	}

	produced := info.ResultType
	if err := validateServiceType(produced); err != nil {
		return nil, nil, RegistrationError{ServiceType: produced, Operation: "register", Cause: err}
	}

	var implementation reflect.Type
	if produced.Kind() != reflect.Interface {
		implementation = produced
	}

	template := Descriptor{
		ImplementationType: implementation,
		Lifetime:           lifetime,
		Constructor:        constructorValue,
		ConstructorType:    constructorValue.Type(),
		Dependencies:       info.Dependencies(),
		IsInstance:         !info.IsFunc,
		hasErrorReturn:     info.HasErrorReturn,
		isParamObject:      info.IsParamObject,
		paramObject:        info.ParamObject,
	}

	if template.IsInstance {
		template.Instance = service
	}

	serviceTypes := []reflect.Type{produced}
	if len(options.As) > 0 {
		serviceTypes = serviceTypes[:0]
		for _, as := range options.As {
			asType := reflect.TypeOf(as).Elem()
			if !produced.Implements(asType) {
				return nil, nil, RegistrationError{
					ServiceType: produced,
					Operation:   "register",
					Cause: TypeMismatchError{
						Expected: asType,
						Actual:   produced,
						Context:  "interface implementation",
					},
				}
			}
			serviceTypes = append(serviceTypes, asType)
		}
	}

	descriptors := make([]*Descriptor, 0, len(serviceTypes))
	for _, serviceType := range serviceTypes {
		d := template
		d.ServiceType = serviceType
		descriptors = append(descriptors, &d)
	}

	return descriptors, options, nil
}

// validateServiceType rejects types that cannot act as a service.
func validateServiceType(t reflect.Type) error {
	if t == nil {
		return ErrServiceTypeNil
	}

	switch t.Kind() {
	case reflect.Chan:
		return fmt.Errorf("channel type %s is not supported as a service type", t)
	case reflect.UnsafePointer:
		return fmt.Errorf("unsafe pointer is not supported as a service type")
	}

	return nil
}

// Validate validates the descriptor's configuration.
// It checks that the descriptor has a service type, a constructor or
// instance, a valid lifetime, and an implementation type that can be
// assigned to the service type.
func (d *Descriptor) Validate() error {
	if d == nil {
		return ValidationError{Cause: ErrDescriptorNil}
	}

	if d.ServiceType == nil {
		return ValidationError{Cause: ErrServiceTypeNil}
	}

	if !d.Constructor.IsValid() || d.ConstructorType == nil {
		return ValidationError{ServiceType: d.ServiceType, Cause: ErrConstructorNil}
	}

	if !d.Lifetime.IsValid() {
		return LifetimeError{Value: d.Lifetime}
	}

	if d.ImplementationType != nil && !d.ImplementationType.AssignableTo(d.ServiceType) {
		return ValidationError{
			ServiceType: d.ServiceType,
			Cause: TypeMismatchError{
				Expected: d.ServiceType,
				Actual:   d.ImplementationType,
				Context:  "implementation type",
			},
		}
	}

	if err := validateServiceType(d.ServiceType); err != nil {
		return ValidationError{ServiceType: d.ServiceType, Cause: err}
	}

	for _, dep := range d.Dependencies {
		if dep == nil || dep.Type == nil {
			continue
		}

		switch dep.Type.Kind() {
		case reflect.Chan, reflect.UnsafePointer:
			return ValidationError{
				ServiceType: d.ServiceType,
				Cause:       fmt.Errorf("%s is not supported as a dependency; use an interface or struct instead", dep.Type),
			}
		}
	}

	return nil
}

// String describes the registration for logs and error messages.
func (d *Descriptor) String() string {
	if d == nil {
		return "<nil>"
	}

	if d.ImplementationType == nil || d.ImplementationType == d.ServiceType {
		return fmt.Sprintf("%s %s", d.Lifetime, formatType(d.ServiceType))
	}

	return fmt.Sprintf("%s %s (%s)", d.Lifetime, formatType(d.ServiceType), formatType(d.ImplementationType))
}
