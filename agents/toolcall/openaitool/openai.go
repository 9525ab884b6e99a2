/*
Copyright 2026 Chainguard, Inc.
SPDX-License-Identifier: Apache-2.0
*/

// Package openaitool converts provider-independent tool definitions into
// OpenAI chat-completion function tools.
package openaitool

import (
	"github.com/glittering-universe/CoStrict-CodeReview-sub000/agents/toolcall"
	"github.com/openai/openai-go"
)

// FromDefinition converts a tool definition into an OpenAI function tool.
func FromDefinition(def toolcall.Definition) openai.ChatCompletionToolParam {
	return openai.ChatCompletionToolParam{
		Function: openai.FunctionDefinitionParam{
			Name:        def.Name,
			Description: openai.String(def.Description),
			Parameters:  openai.FunctionParameters(def.JSONSchema()),
		},
	}
}

// FromDefinitions converts every definition, preserving order.
func FromDefinitions(defs []toolcall.Definition) []openai.ChatCompletionToolParam {
	out := make([]openai.ChatCompletionToolParam, 0, len(defs))
	for _, def := range defs {
		out = append(out, FromDefinition(def))
	}
	return out
}

// ToolChoice forces a call to the named function.
func ToolChoice(name string) openai.ChatCompletionToolChoiceOptionUnionParam {
	if name == "" {
		return openai.ChatCompletionToolChoiceOptionUnionParam{OfAuto: openai.String("auto")}
	}
	return openai.ChatCompletionToolChoiceOptionParamOfChatCompletionNamedToolChoice(
		openai.ChatCompletionNamedToolChoiceFunctionParam{Name: name},
	)
}
