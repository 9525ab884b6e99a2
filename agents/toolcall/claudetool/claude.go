/*
Copyright 2026 Chainguard, Inc.
SPDX-License-Identifier: Apache-2.0
*/

// Package claudetool converts provider-independent tool definitions into
// Anthropic SDK tool parameters.
package claudetool

import (
	"github.com/anthropics/anthropic-sdk-go"
	"github.com/glittering-universe/CoStrict-CodeReview-sub000/agents/toolcall"
)

// FromDefinition converts a tool definition into an Anthropic tool.
func FromDefinition(def toolcall.Definition) anthropic.ToolUnionParam {
	schema := def.JSONSchema()
	tool := anthropic.ToolParam{
		Name:        def.Name,
		Description: anthropic.String(def.Description),
		InputSchema: anthropic.ToolInputSchemaParam{
			Properties: schema["properties"],
			Required:   def.Required(),
		},
	}
	return anthropic.ToolUnionParam{OfTool: &tool}
}

// FromDefinitions converts every definition, preserving order.
func FromDefinitions(defs []toolcall.Definition) []anthropic.ToolUnionParam {
	out := make([]anthropic.ToolUnionParam, 0, len(defs))
	for _, def := range defs {
		out = append(out, FromDefinition(def))
	}
	return out
}

// ToolChoice forces the model to call the named tool. An empty name
// leaves the choice to the model.
func ToolChoice(name string) anthropic.ToolChoiceUnionParam {
	if name == "" {
		return anthropic.ToolChoiceUnionParam{OfAuto: &anthropic.ToolChoiceAutoParam{}}
	}
	return anthropic.ToolChoiceParamOfTool(name)
}
