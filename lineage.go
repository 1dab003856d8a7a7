package godix

import (
	"reflect"

	"github.com/junioryono/godix/internal/lineage"
)

// IsAncestorOf reports whether candidate belongs to the generic family of
// openGeneric, embeds a member of it, or implements it.
//
// Go keeps no open generic definitions at runtime, so any instantiation
// stands for its family: passing Repository[string] means "Repository[T] for
// any T". A type implementing Repository[int] is recognized from
// Repository[string] by the shape of its methods: same names, same number of
// parameters and results. Interfaces with unexported methods are only
// recognized through an instantiation the type implements exactly;
// ReportConfig supplies every instantiation found in the registration list.
//
// A non-generic openGeneric fails with an InvalidArgumentError.
func IsAncestorOf(candidate, openGeneric reflect.Type) (bool, error) {
	return isAncestorOf(lineage.NewMatcher(), candidate, openGeneric)
}

func isAncestorOf(m *lineage.Matcher, candidate, openGeneric reflect.Type) (bool, error) {
	ok, err := m.IsAncestorOf(candidate, openGeneric)
	if err != nil {
		return false, InvalidArgumentError{
			Argument: "openGeneric",
			Type:     openGeneric,
			Reason:   err.Error(),
		}
	}
	return ok, nil
}
