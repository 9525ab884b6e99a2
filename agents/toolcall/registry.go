/*
Copyright 2026 Chainguard, Inc.
SPDX-License-Identifier: Apache-2.0
*/

package toolcall

import (
	"fmt"
	"slices"
	"sort"
)

// Registry is an immutable snapshot of tools keyed by name.
// Derivations (With, Without, Only) return new registries.
type Registry struct {
	tools map[string]Tool
	// canonical maps NormalizeName(name) to the registered name.
	canonical map[string]string
}

// NewRegistry builds a registry from tools, rejecting names that collide
// after normalization.
func NewRegistry(tools ...Tool) (*Registry, error) {
	r := &Registry{
		tools:     make(map[string]Tool, len(tools)),
		canonical: make(map[string]string, len(tools)),
	}
	for _, t := range tools {
		if err := r.add(t); err != nil {
			return nil, err
		}
	}
	return r, nil
}

// MustRegistry is NewRegistry for statically known tool sets.
func MustRegistry(tools ...Tool) *Registry {
	r, err := NewRegistry(tools...)
	if err != nil {
		panic(err)
	}
	return r
}

// FromMap builds a registry from the output of a ToolProvider.
func FromMap(tools map[string]Tool) (*Registry, error) {
	names := make([]string, 0, len(tools))
	for name := range tools {
		names = append(names, name)
	}
	sort.Strings(names)
	list := make([]Tool, 0, len(names))
	for _, name := range names {
		t := tools[name]
		if t.Def.Name == "" {
			t.Def.Name = name
		}
		list = append(list, t)
	}
	return NewRegistry(list...)
}

func (r *Registry) add(t Tool) error {
	if t.Def.Name == "" {
		return fmt.Errorf("tool has no name")
	}
	if t.Handler == nil {
		return fmt.Errorf("tool %q has no handler", t.Def.Name)
	}
	key := NormalizeName(t.Def.Name)
	if existing, ok := r.canonical[key]; ok {
		return fmt.Errorf("tool %q conflicts with registered tool %q", t.Def.Name, existing)
	}
	r.tools[t.Def.Name] = t
	r.canonical[key] = t.Def.Name
	return nil
}

// Lookup finds a tool by exact name, falling back to normalized matching.
func (r *Registry) Lookup(name string) (Tool, bool) {
	if r == nil {
		return Tool{}, false
	}
	if t, ok := r.tools[name]; ok {
		return t, true
	}
	if registered, ok := r.canonical[NormalizeName(name)]; ok {
		return r.tools[registered], true
	}
	return Tool{}, false
}

// Has reports whether a tool with the (normalized) name is registered.
func (r *Registry) Has(name string) bool {
	_, ok := r.Lookup(name)
	return ok
}

// Len is the number of registered tools.
func (r *Registry) Len() int {
	if r == nil {
		return 0
	}
	return len(r.tools)
}

// Names returns the registered names, sorted.
func (r *Registry) Names() []string {
	if r == nil {
		return nil
	}
	names := make([]string, 0, len(r.tools))
	for name := range r.tools {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Definitions returns every tool definition, sorted by name.
func (r *Registry) Definitions() []Definition {
	names := r.Names()
	defs := make([]Definition, 0, len(names))
	for _, name := range names {
		defs = append(defs, r.tools[name].Def)
	}
	return defs
}

// With returns a new registry containing these tools plus the given ones.
// A given tool replaces a registered tool with the same normalized name.
func (r *Registry) With(tools ...Tool) (*Registry, error) {
	replaced := make([]string, 0, len(tools))
	for _, t := range tools {
		replaced = append(replaced, t.Def.Name)
	}
	next, err := NewRegistry(r.Without(replaced...).list()...)
	if err != nil {
		return nil, err
	}
	for _, t := range tools {
		if err := next.add(t); err != nil {
			return nil, err
		}
	}
	return next, nil
}

// Without returns a new registry minus the named tools.
func (r *Registry) Without(names ...string) *Registry {
	return r.filter(func(name string) bool {
		return !slices.ContainsFunc(names, func(n string) bool { return SameName(n, name) })
	})
}

// Only returns a new registry restricted to the named tools.
func (r *Registry) Only(names ...string) *Registry {
	return r.filter(func(name string) bool {
		return slices.ContainsFunc(names, func(n string) bool { return SameName(n, name) })
	})
}

// Filter returns a new registry with the tools for which keep returns true.
func (r *Registry) Filter(keep func(name string) bool) *Registry {
	return r.filter(keep)
}

func (r *Registry) filter(keep func(string) bool) *Registry {
	next := &Registry{
		tools:     make(map[string]Tool),
		canonical: make(map[string]string),
	}
	for _, t := range r.list() {
		if keep(t.Def.Name) {
			// Names were unique in r, so this cannot fail.
			_ = next.add(t)
		}
	}
	return next
}

func (r *Registry) list() []Tool {
	names := r.Names()
	out := make([]Tool, 0, len(names))
	for _, name := range names {
		out = append(out, r.tools[name])
	}
	return out
}
