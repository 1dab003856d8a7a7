package godix

import (
	"reflect"
	"slices"
	"sync"
)

// ImplementationPair is a (service type, implementation type) exclusivity
// declaration.
type ImplementationPair struct {
	ServiceType        reflect.Type
	ImplementationType reflect.Type
}

// Ledger records the exclusivity declarations made against one Collection.
// Entries are only ever appended; declaring the same constraint twice keeps
// both entries and the validator de-duplicates them.
type Ledger struct {
	mu              sync.Mutex
	services        []reflect.Type
	implementations []ImplementationPair
}

func newLedger() *Ledger {
	return &Ledger{}
}

// RecordExclusiveService declares that serviceType may have at most one
// registration.
func (l *Ledger) RecordExclusiveService(serviceType reflect.Type) error {
	if serviceType == nil {
		return InvalidArgumentError{Argument: "serviceType", Reason: "type cannot be nil"}
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	l.services = append(l.services, serviceType)
	return nil
}

// RecordExclusiveImplementation declares that implementationType may back at
// most one registration of serviceType. The implementation must be
// assignable to the service type.
func (l *Ledger) RecordExclusiveImplementation(serviceType, implementationType reflect.Type) error {
	if serviceType == nil {
		return InvalidArgumentError{Argument: "serviceType", Reason: "type cannot be nil"}
	}

	if implementationType == nil {
		return InvalidArgumentError{Argument: "implementationType", Reason: "type cannot be nil"}
	}

	if implementationType.Kind() == reflect.Interface {
		return InvalidArgumentError{
			Argument: "implementationType",
			Type:     implementationType,
			Reason:   "implementation must be a concrete type",
		}
	}

	if !implementationType.AssignableTo(serviceType) {
		return InvalidArgumentError{
			Argument: "implementationType",
			Type:     implementationType,
			Reason:   "not assignable to " + formatType(serviceType),
		}
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	l.implementations = append(l.implementations, ImplementationPair{
		ServiceType:        serviceType,
		ImplementationType: implementationType,
	})
	return nil
}

// ExclusiveServices returns the declared exclusive service types in
// declaration order.
func (l *Ledger) ExclusiveServices() []reflect.Type {
	l.mu.Lock()
	defer l.mu.Unlock()
	return slices.Clone(l.services)
}

// ExclusiveImplementations returns the declared exclusive pairs in
// declaration order.
func (l *Ledger) ExclusiveImplementations() []ImplementationPair {
	l.mu.Lock()
	defer l.mu.Unlock()
	return slices.Clone(l.implementations)
}

// IsEmpty reports whether nothing has been declared.
func (l *Ledger) IsEmpty() bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.services) == 0 && len(l.implementations) == 0
}
