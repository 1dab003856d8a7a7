// Package lineage decides whether a type belongs to, embeds, or implements a
// generic type family.
//
// Go keeps no open generic definitions at runtime. A family is therefore
// identified by an instantiation of it: the declaring package path plus the
// base name in front of the type argument list, so Repository[string] and
// Repository[int] share the family "pkg.Repository".
//
// Interface families are realized either exactly, by implementing a known
// instantiation, or by shape: every exported method of the exemplar exists
// on the candidate with the same name, arity and variadicity. Parameter types
// are not compared, since they may be the family's type arguments.
package lineage

import (
	"errors"
	"reflect"
	"strings"
)

// ErrNotGeneric is returned when a type that is not a generic instantiation
// is used where a generic family is required.
var ErrNotGeneric = errors.New("type must be generic")

var anyType = reflect.TypeOf((*any)(nil)).Elem()

// Family identifies a generic type definition.
type Family struct {
	PkgPath string
	Name    string
}

func (f Family) String() string {
	if f.PkgPath == "" {
		return f.Name
	}
	return f.PkgPath + "." + f.Name
}

// FamilyOf returns the family of a generic instantiation.
func FamilyOf(t reflect.Type) (Family, bool) {
	if t == nil {
		return Family{}, false
	}

	name := t.Name()
	i := strings.IndexByte(name, '[')
	if i <= 0 {
		return Family{}, false
	}

	return Family{PkgPath: t.PkgPath(), Name: name[:i]}, true
}

// IsGeneric reports whether t is a generic instantiation.
func IsGeneric(t reflect.Type) bool {
	_, ok := FamilyOf(t)
	return ok
}

// Matcher walks type lineage. Exact interface realization is checked against
// the closed forms of a family the matcher knows about, in addition to the one
// passed to IsAncestorOf. Families with unexported methods can only be
// realized exactly.
type Matcher struct {
	forms []reflect.Type
}

// NewMatcher creates a matcher that also considers the given closed forms.
// Non-generic types and duplicates are ignored.
func NewMatcher(forms ...reflect.Type) *Matcher {
	m := &Matcher{}
	m.AddForms(forms...)
	return m
}

// AddForms registers additional closed generic forms.
func (m *Matcher) AddForms(forms ...reflect.Type) {
	for _, form := range forms {
		if !IsGeneric(form) || m.knows(form) {
			continue
		}
		m.forms = append(m.forms, form)
	}
}

func (m *Matcher) knows(t reflect.Type) bool {
	for _, form := range m.forms {
		if form == t {
			return true
		}
	}
	return false
}

// IsAncestorOf reports whether candidate is an instantiation of open's family,
// embeds one (directly, through pointers or through further embedding), or
// implements the family, exactly or by shape.
func (m *Matcher) IsAncestorOf(candidate, open reflect.Type) (bool, error) {
	family, ok := FamilyOf(open)
	if !ok {
		return false, ErrNotGeneric
	}

	forms := make([]reflect.Type, 0, len(m.forms)+1)
	forms = append(forms, open)
	for _, form := range m.forms {
		if f, _ := FamilyOf(form); f == family && form != open {
			forms = append(forms, form)
		}
	}

	return derives(candidate, family, forms, make(map[reflect.Type]bool)), nil
}

func derives(t reflect.Type, family Family, forms []reflect.Type, seen map[reflect.Type]bool) bool {
	if t == nil || t == anyType || seen[t] {
		return false
	}
	seen[t] = true

	if f, ok := FamilyOf(t); ok && f == family {
		return true
	}

	switch t.Kind() {
	case reflect.Pointer:
		if derives(t.Elem(), family, forms, seen) {
			return true
		}
	case reflect.Struct:
		for i := 0; i < t.NumField(); i++ {
			field := t.Field(i)
			if field.Anonymous && derives(field.Type, family, forms, seen) {
				return true
			}
		}
	}

	for _, form := range forms {
		if form.Kind() != reflect.Interface || form.NumMethod() == 0 || form == t {
			continue
		}
		if t.Implements(form) || hasShapeOf(t, form) {
			return true
		}
	}

	return false
}

// hasShapeOf reports whether t has every method of the interface form with
// matching arity.
func hasShapeOf(t, form reflect.Type) bool {
	receiver := 1
	if t.Kind() == reflect.Interface {
		receiver = 0
	}

	for i := 0; i < form.NumMethod(); i++ {
		want := form.Method(i)
		if !want.IsExported() {
			return false
		}

		got, ok := t.MethodByName(want.Name)
		if !ok {
			return false
		}
		if got.Type.NumIn()-receiver != want.Type.NumIn() ||
			got.Type.NumOut() != want.Type.NumOut() ||
			got.Type.IsVariadic() != want.Type.IsVariadic() {
			return false
		}
	}

	return true
}
