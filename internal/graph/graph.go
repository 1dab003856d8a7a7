// Package graph holds the dependency graph between registrations. Nodes
// keep insertion order so cycles and DOT output are deterministic.
package graph

import (
	"errors"
	"fmt"
	"io"
	"slices"
	"strings"
)

// ErrCycle is returned by TopologicalOrder when the graph is not acyclic.
var ErrCycle = errors.New("graph contains a cycle")

// Graph is a directed graph where an edge from a to b means a depends on b.
// It is not safe for concurrent mutation.
type Graph[K comparable] struct {
	order  []K
	labels map[K]string
	edges  map[K][]K
}

// New creates an empty graph.
func New[K comparable]() *Graph[K] {
	return &Graph[K]{
		labels: make(map[K]string),
		edges:  make(map[K][]K),
	}
}

// AddNode adds k with a display label. Adding a node twice updates its label.
func (g *Graph[K]) AddNode(k K, label string) {
	if _, ok := g.labels[k]; !ok {
		g.order = append(g.order, k)
	}
	g.labels[k] = label
}

// AddEdge records that from depends on to. Both nodes must already exist.
func (g *Graph[K]) AddEdge(from, to K) error {
	if !g.HasNode(from) {
		return fmt.Errorf("unknown node %v", from)
	}
	if !g.HasNode(to) {
		return fmt.Errorf("unknown node %v", to)
	}
	if !slices.Contains(g.edges[from], to) {
		g.edges[from] = append(g.edges[from], to)
	}
	return nil
}

// HasNode reports whether k was added.
func (g *Graph[K]) HasNode(k K) bool {
	_, ok := g.labels[k]
	return ok
}

// Nodes returns every node in insertion order.
func (g *Graph[K]) Nodes() []K {
	return slices.Clone(g.order)
}

// Dependencies returns the direct dependencies of k in insertion order.
func (g *Graph[K]) Dependencies(k K) []K {
	return slices.Clone(g.edges[k])
}

// Size returns the number of nodes.
func (g *Graph[K]) Size() int {
	return len(g.order)
}

type color uint8

const (
	white color = iota
	grey
	black
)

// FindCycle returns the first cycle found, starting and ending on the same
// node, or nil when the graph is acyclic.
func (g *Graph[K]) FindCycle() []K {
	colors := make(map[K]color, len(g.order))
	var path []K

	var visit func(k K) []K
	visit = func(k K) []K {
		colors[k] = grey
		path = append(path, k)

		for _, dep := range g.edges[k] {
			switch colors[dep] {
			case grey:
				start := slices.Index(path, dep)
				cycle := slices.Clone(path[start:])
				return append(cycle, dep)
			case white:
				if cycle := visit(dep); cycle != nil {
					return cycle
				}
			}
		}

		path = path[:len(path)-1]
		colors[k] = black
		return nil
	}

	for _, k := range g.order {
		if colors[k] == white {
			if cycle := visit(k); cycle != nil {
				return cycle
			}
		}
	}

	return nil
}

// TopologicalOrder returns the nodes with every dependency before its
// dependents. Ties keep insertion order.
func (g *Graph[K]) TopologicalOrder() ([]K, error) {
	remaining := make(map[K]int, len(g.order))
	dependents := make(map[K][]K, len(g.order))
	for _, k := range g.order {
		remaining[k] = len(g.edges[k])
		for _, dep := range g.edges[k] {
			dependents[dep] = append(dependents[dep], k)
		}
	}

	sorted := make([]K, 0, len(g.order))
	done := make(map[K]bool, len(g.order))
	for len(sorted) < len(g.order) {
		progressed := false
		for _, k := range g.order {
			if done[k] || remaining[k] > 0 {
				continue
			}
			done[k] = true
			sorted = append(sorted, k)
			progressed = true
			for _, d := range dependents[k] {
				remaining[d]--
			}
		}
		if !progressed {
			return nil, ErrCycle
		}
	}

	return sorted, nil
}

// WriteDOT writes the graph in Graphviz DOT format.
func (g *Graph[K]) WriteDOT(w io.Writer, name string) error {
	var b strings.Builder

	fmt.Fprintf(&b, "digraph %q {\n", name)
	b.WriteString("  rankdir=LR;\n")
	b.WriteString("  node [shape=box];\n")

	ids := make(map[K]int, len(g.order))
	for i, k := range g.order {
		ids[k] = i
		fmt.Fprintf(&b, "  n%d [label=%q];\n", i, g.labels[k])
	}

	for _, k := range g.order {
		for _, dep := range g.edges[k] {
			fmt.Fprintf(&b, "  n%d -> n%d;\n", ids[k], ids[dep])
		}
	}

	b.WriteString("}\n")

	_, err := io.WriteString(w, b.String())
	return err
}
