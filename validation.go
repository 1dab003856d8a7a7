package godix

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"reflect"
	"sync"
)

// ValidationState is the outcome of a Validator run.
type ValidationState int

const (
	// StateUnvalidated means Validate has not run yet.
	StateUnvalidated ValidationState = iota

	// StateValidated means every exclusivity constraint holds.
	StateValidated

	// StateFailed means at least one constraint is broken or counting failed.
	StateFailed
)

func (s ValidationState) String() string {
	switch s {
	case StateUnvalidated:
		return "Unvalidated"
	case StateValidated:
		return "Validated"
	case StateFailed:
		return "Failed"
	default:
		return fmt.Sprintf("Unknown(%d)", int(s))
	}
}

// ValidatorOption configures a Validator.
type ValidatorOption func(*Validator)

// WithValidatorLogger sets the logger violations are reported to. Defaults
// to slog.Default().
func WithValidatorLogger(logger *slog.Logger) ValidatorOption {
	return func(v *Validator) {
		v.logger = logger
	}
}

// Validator checks the exclusivity declarations recorded for a collection
// against the provider built from it. It runs once; later calls to Validate
// return the first outcome.
type Validator struct {
	provider Provider
	logger   *slog.Logger

	mu    sync.Mutex
	state ValidationState
	err   error
}

// NewValidator creates a validator for p.
func NewValidator(p Provider, opts ...ValidatorOption) *Validator {
	v := &Validator{provider: p}
	for _, opt := range opts {
		if opt != nil {
			opt(v)
		}
	}

	if v.logger == nil {
		v.logger = slog.Default()
	}

	return v
}

// Validate checks every exclusivity constraint and returns an
// ExclusivityError listing all violations, one per line. A provider built
// from a collection without declarations always passes.
func (v *Validator) Validate() error {
	return v.ValidateContext(context.Background())
}

// ValidateContext is Validate with a context for the scope that registrations
// are counted in. Scoped registrations are instantiated in that scope, which
// is closed before returning.
func (v *Validator) ValidateContext(ctx context.Context) error {
	v.mu.Lock()
	defer v.mu.Unlock()

	if v.state != StateUnvalidated {
		return v.err
	}

	v.err = v.validate(ctx)
	if v.err != nil {
		v.state = StateFailed
	} else {
		v.state = StateValidated
	}

	return v.err
}

// State returns the current state.
func (v *Validator) State() ValidationState {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.state
}

// Validate runs a one-off Validator against p.
func Validate(p Provider) error {
	return NewValidator(p).Validate()
}

func (v *Validator) validate(ctx context.Context) (err error) {
	if v.provider == nil {
		return ValidationError{Cause: ErrProviderNil}
	}

	ledger, ok := LedgerFrom(v.provider)
	if !ok || ledger.IsEmpty() {
		return nil
	}

	counting, err := v.provider.CreateScope(ctx)
	if err != nil {
		return ValidationError{Cause: err}
	}
	defer func() {
		if closeErr := counting.Close(); closeErr != nil {
			err = errors.Join(err, ValidationError{Cause: closeErr})
		}
	}()

	var violations []string

	for _, serviceType := range distinct(ledger.ExclusiveServices()) {
		services, err := counting.GetAll(serviceType)
		if err != nil {
			return ValidationError{ServiceType: serviceType, Cause: err}
		}

		if n := len(services); n > 1 {
			violations = append(violations, fmt.Sprintf("Service %s is exclusive, but is registered %d times.", formatType(serviceType), n))
		}
	}

	for _, group := range groupByImplementation(ledger.ExclusiveImplementations()) {
		count := 0
		for _, serviceType := range group.services {
			instances, err := counting.GetAllInstances(serviceType)
			if err != nil {
				return ValidationError{ServiceType: serviceType, Cause: err}
			}

			for _, instance := range instances {
				if implementationOf(instance) == group.implementation {
					count++
				}
			}
		}

		if count > 1 {
			violations = append(violations, fmt.Sprintf("Implementation %s for service %s is exclusive, but is registered %d times.",
				formatType(group.implementation), formatType(group.services[0]), count))
		}
	}

	if len(violations) == 0 {
		return nil
	}

	for _, violation := range violations {
		v.logger.Warn("exclusivity violation", slog.String("provider", v.provider.ID()), slog.String("violation", violation))
	}

	return ExclusivityError{Violations: violations}
}

// implementationOf is the runtime type of a resolved instance, or the
// registration's implementation type when the value is nil.
func implementationOf(instance Instance) reflect.Type {
	if instance.Value != nil {
		return reflect.TypeOf(instance.Value)
	}
	return instance.Descriptor.ImplementationType
}

// implementationGroup is every service type an implementation was declared
// exclusive for.
type implementationGroup struct {
	implementation reflect.Type
	services       []reflect.Type
}

func groupByImplementation(pairs []ImplementationPair) []implementationGroup {
	var groups []implementationGroup
	index := make(map[reflect.Type]int)

	for _, pair := range pairs {
		i, ok := index[pair.ImplementationType]
		if !ok {
			i = len(groups)
			index[pair.ImplementationType] = i
			groups = append(groups, implementationGroup{implementation: pair.ImplementationType})
		}
		groups[i].services = append(groups[i].services, pair.ServiceType)
	}

	for i := range groups {
		groups[i].services = distinct(groups[i].services)
	}

	return groups
}

// distinct removes repeated types, keeping the first occurrence.
func distinct(types []reflect.Type) []reflect.Type {
	seen := make(map[reflect.Type]bool, len(types))
	out := types[:0]
	for _, t := range types {
		if !seen[t] {
			seen[t] = true
			out = append(out, t)
		}
	}
	return out
}
