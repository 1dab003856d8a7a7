package godix

import (
	"log/slog"
	"reflect"

	"github.com/junioryono/godix/internal/lineage"
)

// TypeInfo describes a type in a duplicate report. The zero TypeInfo stands
// for an unknown implementation.
type TypeInfo struct {
	Type        reflect.Type
	DisplayName string
}

func newTypeInfo(t reflect.Type) TypeInfo {
	if t == nil {
		return TypeInfo{}
	}
	return TypeInfo{Type: t, DisplayName: t.String()}
}

// DuplicateService reports a service type registered more than once.
type DuplicateService struct {
	ServiceType TypeInfo

	// ImplementationTypes holds one entry per registration, in registration
	// order.
	ImplementationTypes []TypeInfo
}

// ReportConfig configures the duplicate registration report that
// BuildAndValidate runs before building.
//
//	reporting := godix.NewReportConfig().
//	    OnDuplicateService(func(d godix.DuplicateService) {
//	        log.Printf("%s registered %d times", d.ServiceType.DisplayName, len(d.ImplementationTypes))
//	    }).
//	    Except(reflect.TypeFor[http.Handler]()).
//	    ExceptGeneric(reflect.TypeFor[Repository[any]]())
type ReportConfig struct {
	callbacks         []func(DuplicateService)
	exclusions        []reflect.Type
	genericExclusions []reflect.Type
	logger            *slog.Logger
}

// NewReportConfig creates an empty report configuration.
func NewReportConfig() *ReportConfig {
	return &ReportConfig{}
}

// OnDuplicateService adds a callback invoked once per duplicated service
// type. Callbacks run in the order they were added.
func (rc *ReportConfig) OnDuplicateService(callback func(DuplicateService)) *ReportConfig {
	if callback != nil {
		rc.callbacks = append(rc.callbacks, callback)
	}
	return rc
}

// Except excludes service types from the report. Only registrations of
// exactly these types are skipped.
func (rc *ReportConfig) Except(types ...reflect.Type) *ReportConfig {
	for _, t := range types {
		if t != nil {
			rc.exclusions = append(rc.exclusions, t)
		}
	}
	return rc
}

// ExceptGeneric excludes whole generic families from the report. Any
// instantiation stands for its family, and service types that embed or
// implement a member of the family are skipped too (see IsAncestorOf).
// Non-generic types make Report fail.
func (rc *ReportConfig) ExceptGeneric(openGenerics ...reflect.Type) *ReportConfig {
	rc.genericExclusions = append(rc.genericExclusions, openGenerics...)
	return rc
}

// WithLogger sets the logger for report events. Defaults to slog.Default().
func (rc *ReportConfig) WithLogger(logger *slog.Logger) *ReportConfig {
	rc.logger = logger
	return rc
}

// Report scans the registrations of c and invokes the callbacks for every
// service type registered more than once, in order of first registration.
// Without callbacks nothing is scanned. The collection is never modified, and
// panics raised by callbacks are not recovered.
func (rc *ReportConfig) Report(c Collection) error {
	return rc.report(c, nil)
}

// report is Report with a logger to use when none was configured.
func (rc *ReportConfig) report(c Collection, fallback *slog.Logger) error {
	if len(rc.callbacks) == 0 {
		return nil
	}

	if c == nil {
		return ErrCollectionNil
	}

	for _, open := range rc.genericExclusions {
		if !lineage.IsGeneric(open) {
			return InvalidArgumentError{Argument: "openGeneric", Type: open, Reason: lineage.ErrNotGeneric.Error()}
		}
	}

	descriptors := c.ToSlice()

	matcher := lineage.NewMatcher()
	for _, d := range descriptors {
		matcher.AddForms(d.ServiceType, d.ImplementationType)
	}

	var order []reflect.Type
	groups := make(map[reflect.Type][]*Descriptor)

	for _, d := range descriptors {
		excluded, err := rc.excludes(matcher, d.ServiceType)
		if err != nil {
			return err
		}
		if excluded {
			continue
		}

		if _, seen := groups[d.ServiceType]; !seen {
			order = append(order, d.ServiceType)
		}
		groups[d.ServiceType] = append(groups[d.ServiceType], d)
	}

	logger := rc.logger
	if logger == nil {
		logger = fallback
	}
	if logger == nil {
		logger = slog.Default()
	}

	for _, serviceType := range order {
		group := groups[serviceType]
		if len(group) < 2 {
			continue
		}

		implementations := make([]TypeInfo, len(group))
		for i, d := range group {
			implementations[i] = newTypeInfo(d.ImplementationType)
		}

		logger.Debug("duplicate service registration",
			slog.String("service", serviceType.String()),
			slog.Int("registrations", len(group)),
		)

		for _, callback := range rc.callbacks {
			callback(DuplicateService{
				ServiceType:         newTypeInfo(serviceType),
				ImplementationTypes: append([]TypeInfo(nil), implementations...),
			})
		}
	}

	return nil
}

func (rc *ReportConfig) excludes(m *lineage.Matcher, serviceType reflect.Type) (bool, error) {
	for _, t := range rc.exclusions {
		if t == serviceType {
			return true, nil
		}
	}

	for _, open := range rc.genericExclusions {
		ok, err := isAncestorOf(m, serviceType, open)
		if err != nil || ok {
			return ok, err
		}
	}

	return false, nil
}
