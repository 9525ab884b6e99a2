/*
Copyright 2026 Chainguard, Inc.
SPDX-License-Identifier: Apache-2.0
*/

package promptbuilder

// Bindable is implemented by request types that know how to fill a
// template with their own data.
type Bindable interface {
	Bind(prompt *Prompt) (*Prompt, error)
}

// Noop returns the prompt unchanged.
type Noop struct{}

// Bind implements Bindable.
func (Noop) Bind(prompt *Prompt) (*Prompt, error) {
	return prompt, nil
}

// Render binds b into a copy of prompt and builds it.
func Render(prompt *Prompt, b Bindable) (string, error) {
	bound, err := b.Bind(prompt)
	if err != nil {
		return "", err
	}
	return bound.Build()
}
