/*
Copyright 2026 Chainguard, Inc.
SPDX-License-Identifier: Apache-2.0
*/

package promptbuilder

import (
	"encoding/json"
	"fmt"
	"strings"

	"gopkg.in/yaml.v3"
)

// binding produces the text substituted for a placeholder.
type binding interface {
	value() (string, error)
}

type unboundBinding struct {
	name string
}

func (u unboundBinding) value() (string, error) {
	return "", fmt.Errorf("unbound placeholder: %s", u.name)
}

type literalBinding string

func (l literalBinding) value() (string, error) {
	return string(l), nil
}

type jsonBinding struct {
	data any
}

func (j jsonBinding) value() (string, error) {
	b, err := json.MarshalIndent(j.data, "", "  ")
	if err != nil {
		return "", fmt.Errorf("failed to marshal JSON: %w", err)
	}
	return string(b), nil
}

type yamlBinding struct {
	data any
}

func (y yamlBinding) value() (string, error) {
	b, err := yaml.Marshal(y.data)
	if err != nil {
		return "", fmt.Errorf("failed to marshal YAML: %w", err)
	}
	return strings.TrimRight(string(b), "\n"), nil
}

type fencedBinding struct {
	info    string
	content string
}

func (f fencedBinding) value() (string, error) {
	if strings.ContainsAny(f.info, "`\n") {
		return "", fmt.Errorf("invalid fence info string %q", f.info)
	}
	fence := strings.Repeat("`", max(3, longestRun(f.content, '`')+1))
	var sb strings.Builder
	sb.WriteString(fence)
	sb.WriteString(f.info)
	sb.WriteByte('\n')
	sb.WriteString(f.content)
	if !strings.HasSuffix(f.content, "\n") {
		sb.WriteByte('\n')
	}
	sb.WriteString(fence)
	return sb.String(), nil
}

type promptBinding struct {
	prompt *Prompt
}

func (p promptBinding) value() (string, error) {
	if p.prompt == nil {
		return "", nil
	}
	return p.prompt.Build()
}

func longestRun(s string, c byte) int {
	longest, cur := 0, 0
	for i := 0; i < len(s); i++ {
		if s[i] != c {
			cur = 0
			continue
		}
		cur++
		longest = max(longest, cur)
	}
	return longest
}
