/*
Copyright 2026 Chainguard, Inc.
SPDX-License-Identifier: Apache-2.0
*/

package subagent

import (
	"regexp"
	"strings"

	"github.com/glittering-universe/CoStrict-CodeReview-sub000/agents/toolcall"
)

// PreflightRoles are the analysis roles that run before the main review.
var PreflightRoles = []string{
	"Static Analysis Agent",
	"Logic Analysis Agent",
	"Performance Analysis Agent",
	"Security Analysis Agent",
}

var bracketToken = regexp.MustCompile(`\[([^\[\]]+)\]`)

// BracketToken returns the first [Bracketed] token of goal, trimmed.
func BracketToken(goal string) string {
	m := bracketToken.FindStringSubmatch(goal)
	if m == nil {
		return ""
	}
	return strings.TrimSpace(m[1])
}

// Role returns the role prefix of goal and whether it is a preflight role.
// Only a token at the very start of the goal counts as a role prefix.
func Role(goal string) (string, bool) {
	trimmed := strings.TrimSpace(goal)
	if !strings.HasPrefix(trimmed, "[") {
		return "", false
	}
	role := BracketToken(trimmed)
	for _, r := range PreflightRoles {
		if strings.EqualFold(r, role) {
			return r, true
		}
	}
	return role, false
}

// PreflightGoal formats a preflight goal for role.
func PreflightGoal(role, task string) string {
	return "[" + role + "] " + task
}

// Tool names no sub-agent may use.
var reservedTools = []string{"spawn_subagent", "submit_summary", "record_bug", "submit_report"}

// isExecTool reports whether a tool can run commands or reach external
// MCP servers.
func isExecTool(name string) bool {
	n := toolcall.NormalizeName(name)
	switch {
	case strings.HasPrefix(n, "mcp"):
		return true
	case strings.Contains(n, "sandbox"), strings.Contains(n, "shell"):
		return true
	case n == "execute_command", n == "run_command", n == "bash", n == "exec":
		return true
	}
	return false
}

// toolsFor narrows base for a goal. allow, when non-empty, further
// restricts the set to the named tools.
func toolsFor(base *toolcall.Registry, preflight bool, allow []string) *toolcall.Registry {
	tools := base.Without(reservedTools...)
	if preflight {
		tools = tools.Filter(func(name string) bool { return !isExecTool(name) })
	}
	if len(allow) > 0 {
		tools = tools.Only(allow...)
	}
	return tools
}
