/*
Copyright 2026 Chainguard, Inc.
SPDX-License-Identifier: Apache-2.0
*/

// Package schema derives tool parameter lists from Go types.
package schema

import (
	"fmt"
	"slices"

	"github.com/glittering-universe/CoStrict-CodeReview-sub000/agents/toolcall"
	"github.com/invopop/jsonschema"
)

// Generator wraps jsonschema.Reflector with project defaults.
type Generator struct {
	reflector jsonschema.Reflector
}

// NewGenerator constructs a generator wired with the defaults we need for tool schemas.
func NewGenerator() *Generator {
	return &Generator{
		reflector: jsonschema.Reflector{
			RequiredFromJSONSchemaTags: true,
			ExpandedStruct:             true,
			AllowAdditionalProperties:  true,
			DoNotReference:             true,
		},
	}
}

// Reflect returns the JSON schema for the provided value.
func (g *Generator) Reflect(v any) *jsonschema.Schema {
	return g.reflector.Reflect(v)
}

// Parameters flattens the top-level properties of v's schema into tool
// parameters, in declaration order.
func (g *Generator) Parameters(v any) ([]toolcall.Parameter, error) {
	s := g.Reflect(v)
	if s == nil || s.Properties == nil || s.Properties.Len() == 0 {
		return nil, fmt.Errorf("type %T has no properties", v)
	}
	out := make([]toolcall.Parameter, 0, s.Properties.Len())
	for pair := s.Properties.Oldest(); pair != nil; pair = pair.Next() {
		prop := pair.Value
		p := toolcall.Parameter{
			Name:        pair.Key,
			Type:        prop.Type,
			Description: prop.Description,
			Required:    slices.Contains(s.Required, pair.Key),
		}
		if p.Type == "" {
			p.Type = "string"
		}
		for _, e := range prop.Enum {
			p.Enum = append(p.Enum, fmt.Sprint(e))
		}
		if prop.Items != nil {
			p.Items = prop.Items.Type
		}
		out = append(out, p)
	}
	return out, nil
}

// Reflect derives the JSON schema for the provided value using a default generator.
func Reflect(v any) *jsonschema.Schema {
	return NewGenerator().Reflect(v)
}

// ParametersFor returns the tool parameters for a zero value of T.
func ParametersFor[T any]() ([]toolcall.Parameter, error) {
	var zero T
	return NewGenerator().Parameters(&zero)
}
