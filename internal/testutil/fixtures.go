package testutil

import (
	"testing"

	"github.com/junioryono/godix"
	"github.com/stretchr/testify/require"
)

// Registration is a registration fixture
type Registration struct {
	Name        string
	Constructor any
	Lifetime    godix.Lifetime
	Options     []godix.AddOption
}

// Add registers the fixture in collection
func (r Registration) Add(t *testing.T, collection godix.Collection) {
	t.Helper()

	var err error
	switch r.Lifetime {
	case godix.Singleton:
		err = collection.AddSingleton(r.Constructor, r.Options...)
	case godix.Scoped:
		err = collection.AddScoped(r.Constructor, r.Options...)
	case godix.Transient:
		err = collection.AddTransient(r.Constructor, r.Options...)
	default:
		t.Fatalf("unknown lifetime: %v", r.Lifetime)
	}

	require.NoError(t, err, "failed to add %s", r.Name)
}

// ExclusivityScenario is a validation test case: the registrations of a
// collection and the violations Validate must report.
type ExclusivityScenario struct {
	Name          string
	Registrations []Registration
	Declare       func(collection godix.Collection)
	Violations    []string
}

// RunExclusivityScenarios builds each scenario and validates it
func RunExclusivityScenarios(t *testing.T, scenarios []ExclusivityScenario) {
	t.Helper()

	for _, scenario := range scenarios {
		t.Run(scenario.Name, func(t *testing.T) {
			t.Parallel()

			collection := godix.NewCollection()
			for _, r := range scenario.Registrations {
				r.Add(t, collection)
			}
			if scenario.Declare != nil {
				scenario.Declare(collection)
			}

			provider, err := collection.Build()
			require.NoError(t, err)
			t.Cleanup(func() { _ = provider.Close() })

			err = godix.Validate(provider)
			if len(scenario.Violations) == 0 {
				require.NoError(t, err)
				return
			}

			AssertViolations(t, err, scenario.Violations...)
		})
	}
}
