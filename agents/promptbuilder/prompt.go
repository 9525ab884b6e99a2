/*
Copyright 2026 Chainguard, Inc.
SPDX-License-Identifier: Apache-2.0
*/

package promptbuilder

import (
	"fmt"
	"maps"
	"strings"
)

// stringLiteral only accepts untyped string constants from callers outside
// this package, keeping runtime data out of literal bindings.
type stringLiteral string

// Prompt is an immutable template plus its bindings.
type Prompt struct {
	segments []segment
	bindings map[string]binding
}

// NewPrompt parses a template literal.
func NewPrompt(template stringLiteral) (*Prompt, error) {
	segs, err := parseTemplate(string(template))
	if err != nil {
		return nil, err
	}
	bindings := make(map[string]binding)
	for _, s := range segs {
		if s.name != "" {
			bindings[s.name] = unboundBinding{name: s.name}
		}
	}
	return &Prompt{segments: segs, bindings: bindings}, nil
}

// Placeholders returns the set of placeholder names in the template.
func (p *Prompt) Placeholders() map[string]struct{} {
	names := make(map[string]struct{}, len(p.bindings))
	for name := range p.bindings {
		names[name] = struct{}{}
	}
	return names
}

// BindStringLiteral binds a developer-provided literal.
func (p *Prompt) BindStringLiteral(name string, value stringLiteral) (*Prompt, error) {
	return p.bind(name, literalBinding(value))
}

// BindJSON binds data encoded as indented JSON.
func (p *Prompt) BindJSON(name string, data any) (*Prompt, error) {
	return p.bind(name, jsonBinding{data: data})
}

// BindYAML binds data encoded as YAML.
func (p *Prompt) BindYAML(name string, data any) (*Prompt, error) {
	return p.bind(name, yamlBinding{data: data})
}

// BindFenced binds text inside a markdown code fence with the given info
// string (usually a language name, may be empty).
func (p *Prompt) BindFenced(name, info, content string) (*Prompt, error) {
	return p.bind(name, fencedBinding{info: info, content: content})
}

// BindPrompt binds the built text of another prompt. A nil prompt binds
// the empty string.
func (p *Prompt) BindPrompt(name string, section *Prompt) (*Prompt, error) {
	return p.bind(name, promptBinding{prompt: section})
}

func (p *Prompt) bind(name string, b binding) (*Prompt, error) {
	existing, ok := p.bindings[name]
	if !ok {
		return nil, fmt.Errorf("binding %q not found in template", name)
	}
	if _, unbound := existing.(unboundBinding); !unbound {
		return nil, fmt.Errorf("binding %q already bound", name)
	}
	next := &Prompt{segments: p.segments, bindings: maps.Clone(p.bindings)}
	next.bindings[name] = b
	return next, nil
}

// Build renders the prompt. It fails if any placeholder is unbound or a
// value cannot be encoded.
func (p *Prompt) Build() (string, error) {
	values := make(map[string]string, len(p.bindings))
	for name, b := range p.bindings {
		v, err := b.value()
		if err != nil {
			return "", err
		}
		values[name] = v
	}

	var sb strings.Builder
	for _, s := range p.segments {
		if s.name == "" {
			sb.WriteString(s.text)
			continue
		}
		sb.WriteString(values[s.name])
	}
	return sb.String(), nil
}
