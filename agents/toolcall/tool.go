/*
Copyright 2026 Chainguard, Inc.
SPDX-License-Identifier: Apache-2.0
*/

package toolcall

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/glittering-universe/CoStrict-CodeReview-sub000/agents/toolcall/params"
)

// ToolCall is a provider-independent representation of a tool call.
// Provider adapters parse their wire payloads into this shape once, on receipt.
type ToolCall struct {
	ID   string         `json:"id"`
	Name string         `json:"name"`
	Args map[string]any `json:"args"`
}

// ToolResult pairs a ToolCall with the value its handler produced.
type ToolResult struct {
	ID      string         `json:"id"`
	Name    string         `json:"name"`
	Args    map[string]any `json:"args"`
	Result  any            `json:"result"`
	IsError bool           `json:"isError,omitempty"`
}

// Text renders the result the way it is fed back to the model.
func (r ToolResult) Text() string {
	return ResultText(r.Result)
}

// Definition describes a tool's schema (name, description, parameters).
type Definition struct {
	Name        string
	Description string
	Parameters  []Parameter
}

// Parameter describes a single tool parameter.
type Parameter struct {
	Name        string
	Type        string // "string", "integer", "boolean", "number", "array", "object"
	Description string
	Required    bool
	Enum        []string
	// Items is the element type for "array" parameters.
	Items string
}

// JSONSchema renders the parameters as a JSON schema object, which is the
// shape every provider conversion starts from.
func (d Definition) JSONSchema() map[string]any {
	props := make(map[string]any, len(d.Parameters))
	required := make([]string, 0, len(d.Parameters))
	for _, p := range d.Parameters {
		prop := map[string]any{
			"type":        p.Type,
			"description": p.Description,
		}
		if len(p.Enum) > 0 {
			prop["enum"] = p.Enum
		}
		if p.Type == "array" {
			items := p.Items
			if items == "" {
				items = "string"
			}
			prop["items"] = map[string]any{"type": items}
		}
		props[p.Name] = prop
		if p.Required {
			required = append(required, p.Name)
		}
	}
	return map[string]any{
		"type":       "object",
		"properties": props,
		"required":   required,
	}
}

// Required returns the names of the required parameters in declaration order.
func (d Definition) Required() []string {
	var out []string
	for _, p := range d.Parameters {
		if p.Required {
			out = append(out, p.Name)
		}
	}
	return out
}

// Handler executes a tool call. A returned error is reported back to the
// model as an error result; it never ends the session.
type Handler func(ctx context.Context, call ToolCall) (any, error)

// Tool binds a definition to the handler that executes it.
type Tool struct {
	Def     Definition
	Handler Handler
}

// Name is the registered name of the tool.
func (t Tool) Name() string { return t.Def.Name }

// Param extracts a required parameter from the tool call args.
func Param[T any](call ToolCall, name string) (T, error) {
	return params.Extract[T](call.Args, name)
}

// OptionalParam extracts an optional parameter from the tool call args.
func OptionalParam[T any](call ToolCall, name string, defaultValue T) (T, error) {
	return params.ExtractOptional[T](call.Args, name, defaultValue)
}

// ResultText renders a handler result as text: strings pass through,
// Stringers render themselves, everything else is JSON.
func ResultText(v any) string {
	switch r := v.(type) {
	case nil:
		return ""
	case string:
		return r
	case fmt.Stringer:
		return r.String()
	case error:
		return "Error: " + r.Error()
	}
	b, err := json.Marshal(v)
	if err != nil {
		return fmt.Sprintf("%v", v)
	}
	return string(b)
}
