package browsersim

import (
	"maps"
	"slices"
)

type element struct {
	tag     string
	attrs   map[string]string
	classes []string
}

func newElement(tag string) *element {
	return &element{tag: tag, attrs: map[string]string{}}
}

func (e *element) addClass(name string) {
	if !e.hasClass(name) {
		e.classes = append(e.classes, name)
	}
}

func (e *element) removeClass(name string) {
	e.classes = slices.DeleteFunc(e.classes, func(c string) bool { return c == name })
}

func (e *element) hasClass(name string) bool {
	return slices.Contains(e.classes, name)
}

func (e *element) snapshot() Snapshot {
	return Snapshot{
		Attributes: maps.Clone(e.attrs),
		Classes:    slices.Clone(e.classes),
	}
}

// Snapshot is the state of an element at one point in time.
type Snapshot struct {
	Attributes map[string]string
	Classes    []string
}

// Attribute returns the attribute value and whether it is set.
func (s Snapshot) Attribute(name string) (string, bool) {
	v, ok := s.Attributes[name]
	return v, ok
}

// HasClass reports whether the class list contains name.
func (s Snapshot) HasClass(name string) bool {
	return slices.Contains(s.Classes, name)
}

// MutationOp names a recorded side effect.
type MutationOp string

const (
	OpSetAttribute     MutationOp = "setAttribute"
	OpRemoveAttribute  MutationOp = "removeAttribute"
	OpAddClass         MutationOp = "classList.add"
	OpRemoveClass      MutationOp = "classList.remove"
	OpAddEventListener MutationOp = "addEventListener"
	OpStorageWrite     MutationOp = "localStorage.write"
)

// Mutation is one side effect a script had on the page.
type Mutation struct {
	Op    MutationOp
	Name  string
	Value string
	// AfterLoad is set for mutations made once the load event fired.
	AfterLoad bool
}

// Count returns how many mutations match op and name.
func Count(mutations []Mutation, op MutationOp, name string) int {
	n := 0
	for _, m := range mutations {
		if m.Op == op && m.Name == name {
			n++
		}
	}
	return n
}
