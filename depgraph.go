package godix

import (
	"io"
	"reflect"

	"github.com/junioryono/godix/internal/graph"
)

// dependencyGraph links every registration to the registrations its
// constructor would be resolved against: the last registration of a type,
// or all registrations of the element type for an unregistered slice.
func dependencyGraph(p Provider) *graph.Graph[*Descriptor] {
	g := graph.New[*Descriptor]()

	types := p.ServiceTypes()
	registrations := make(map[reflect.Type][]*Descriptor, len(types))
	for _, t := range types {
		registrations[t] = p.Registrations(t)
		for _, d := range registrations[t] {
			g.AddNode(d, d.String())
		}
	}

	for _, t := range types {
		for _, d := range registrations[t] {
			if d.IsInstance {
				continue
			}

			for _, dep := range d.Dependencies {
				for _, target := range dependencyTargets(dep.Type, registrations) {
					_ = g.AddEdge(d, target)
				}
			}
		}
	}

	return g
}

func dependencyTargets(t reflect.Type, registrations map[reflect.Type][]*Descriptor) []*Descriptor {
	if isBuiltin(t) {
		return nil
	}

	if ds := registrations[t]; len(ds) > 0 {
		return ds[len(ds)-1:]
	}

	if t.Kind() == reflect.Slice {
		return registrations[t.Elem()]
	}

	return nil
}

// detectCycle reports the first dependency cycle between registrations.
func detectCycle(p Provider) error {
	cycle := dependencyGraph(p).FindCycle()
	if cycle == nil {
		return nil
	}

	chain := make([]reflect.Type, len(cycle))
	for i, d := range cycle {
		chain[i] = d.ServiceType
	}

	return BuildError{
		Phase:   "dependencies",
		Details: cycle[0].String(),
		Cause:   CircularDependencyError{Chain: chain},
	}
}

// WriteDependencyGraph writes the registrations of p and the dependencies
// between them in Graphviz DOT format. Nothing is instantiated.
func WriteDependencyGraph(w io.Writer, p Provider) error {
	if p == nil {
		return ErrProviderNil
	}
	return dependencyGraph(p).WriteDOT(w, "godix")
}
