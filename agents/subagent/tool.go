/*
Copyright 2026 Chainguard, Inc.
SPDX-License-Identifier: Apache-2.0
*/

package subagent

import (
	"context"

	"github.com/glittering-universe/CoStrict-CodeReview-sub000/agents/toolcall"
	"github.com/glittering-universe/CoStrict-CodeReview-sub000/agents/toolcall/params"
)

// ToolName is the name of the spawning tool offered to the main review.
const ToolName = "spawn_subagent"

// NewTool exposes s as the spawn_subagent tool.
func NewTool(s *Spawner) toolcall.Tool {
	return toolcall.Tool{
		Def: toolcall.Definition{
			Name: ToolName,
			Description: "Delegate a focused investigation to a sub-agent and receive its markdown report. " +
				"Prefix the goal with a role in brackets such as [Security Analysis Agent] for a read-only analysis.",
			Parameters: []toolcall.Parameter{
				{Name: "goal", Type: "string", Description: "What the sub-agent should investigate, with any files or symbols to focus on", Required: true},
				{Name: "max_steps", Type: "integer", Description: "Step budget for the sub-agent (default 15)"},
				{Name: "tools", Type: "array", Items: "string", Description: "Restrict the sub-agent to these tool names"},
			},
		},
		Handler: func(ctx context.Context, call toolcall.ToolCall) (any, error) {
			goal, err := toolcall.Param[string](call, "goal")
			if err != nil {
				return nil, err
			}
			steps, err := toolcall.OptionalParam(call, "max_steps", 0)
			if err != nil {
				return nil, err
			}
			tools, err := params.Strings(call.Args, "tools")
			if err != nil {
				return nil, err
			}
			return s.Spawn(ctx, goal, MaxSteps(steps), Tools(tools...))
		},
	}
}
