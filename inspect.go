package godix

import (
	"context"
	"errors"
)

// RegistrationSummary describes one registration of a service type.
type RegistrationSummary struct {
	Implementation string `json:"implementation,omitempty"`
	Lifetime       string `json:"lifetime"`
	Instance       bool   `json:"instance,omitempty"`
}

// ServiceSummary lists the registrations of one service type.
type ServiceSummary struct {
	Service       string                `json:"service"`
	Registrations []RegistrationSummary `json:"registrations"`
}

// ImplementationSummary is one exclusive implementation declaration.
type ImplementationSummary struct {
	Service        string `json:"service"`
	Implementation string `json:"implementation"`
}

// ExclusivityReport holds the declarations attached to a provider and the
// outcome of validating them.
type ExclusivityReport struct {
	Services        []string                `json:"services"`
	Implementations []ImplementationSummary `json:"implementations"`
	Valid           bool                    `json:"valid"`
	Violations      []string                `json:"violations,omitempty"`
}

// DescribeServices lists every service type of p in registration order.
// Nothing is instantiated.
func DescribeServices(p Provider) []ServiceSummary {
	if p == nil {
		return nil
	}

	summaries := make([]ServiceSummary, 0)
	for _, t := range p.ServiceTypes() {
		summary := ServiceSummary{Service: t.String()}
		for _, d := range p.Registrations(t) {
			entry := RegistrationSummary{Lifetime: d.Lifetime.String(), Instance: d.IsInstance}
			if d.ImplementationType != nil {
				entry.Implementation = d.ImplementationType.String()
			}
			summary.Registrations = append(summary.Registrations, entry)
		}
		summaries = append(summaries, summary)
	}

	return summaries
}

// InspectExclusivity runs a fresh Validator against p and reports the
// declarations next to any violations. Violations are part of the report;
// the error is reserved for failures that prevented counting.
func InspectExclusivity(ctx context.Context, p Provider) (ExclusivityReport, error) {
	report := ExclusivityReport{
		Services:        make([]string, 0),
		Implementations: make([]ImplementationSummary, 0),
		Valid:           true,
	}

	if p == nil {
		return report, ErrProviderNil
	}

	if ledger, ok := LedgerFrom(p); ok {
		for _, t := range ledger.ExclusiveServices() {
			report.Services = append(report.Services, t.String())
		}
		for _, pair := range ledger.ExclusiveImplementations() {
			report.Implementations = append(report.Implementations, ImplementationSummary{
				Service:        pair.ServiceType.String(),
				Implementation: pair.ImplementationType.String(),
			})
		}
	}

	err := NewValidator(p).ValidateContext(ctx)
	if err == nil {
		return report, nil
	}

	var exclusivity ExclusivityError
	if !errors.As(err, &exclusivity) {
		return report, err
	}

	report.Valid = false
	report.Violations = exclusivity.Violations
	return report, nil
}
