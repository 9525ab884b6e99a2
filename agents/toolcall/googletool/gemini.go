/*
Copyright 2026 Chainguard, Inc.
SPDX-License-Identifier: Apache-2.0
*/

// Package googletool converts provider-independent tool definitions into
// Gemini function declarations.
package googletool

import (
	"github.com/glittering-universe/CoStrict-CodeReview-sub000/agents/toolcall"
	"google.golang.org/genai"
)

// FromDefinition converts a tool definition into a Gemini function declaration.
func FromDefinition(def toolcall.Definition) *genai.FunctionDeclaration {
	props := make(map[string]*genai.Schema, len(def.Parameters))
	for _, p := range def.Parameters {
		s := &genai.Schema{
			Type:        schemaType(p.Type),
			Description: p.Description,
			Enum:        p.Enum,
		}
		if p.Type == "array" {
			items := p.Items
			if items == "" {
				items = "string"
			}
			s.Items = &genai.Schema{Type: schemaType(items)}
		}
		props[p.Name] = s
	}
	return &genai.FunctionDeclaration{
		Name:        def.Name,
		Description: def.Description,
		Parameters: &genai.Schema{
			Type:       genai.TypeObject,
			Properties: props,
			Required:   def.Required(),
		},
	}
}

// FromDefinitions wraps every definition into a single Gemini tool.
func FromDefinitions(defs []toolcall.Definition) []*genai.Tool {
	if len(defs) == 0 {
		return nil
	}
	decls := make([]*genai.FunctionDeclaration, 0, len(defs))
	for _, def := range defs {
		decls = append(decls, FromDefinition(def))
	}
	return []*genai.Tool{{FunctionDeclarations: decls}}
}

// ToolConfig forces a call to the named function. An empty name returns nil.
func ToolConfig(name string) *genai.ToolConfig {
	if name == "" {
		return nil
	}
	return &genai.ToolConfig{
		FunctionCallingConfig: &genai.FunctionCallingConfig{
			Mode:                 genai.FunctionCallingConfigModeAny,
			AllowedFunctionNames: []string{name},
		},
	}
}

func schemaType(t string) genai.Type {
	switch t {
	case "integer":
		return genai.TypeInteger
	case "number":
		return genai.TypeNumber
	case "boolean":
		return genai.TypeBoolean
	case "array":
		return genai.TypeArray
	case "object":
		return genai.TypeObject
	default:
		return genai.TypeString
	}
}
