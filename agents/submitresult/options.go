/*
Copyright 2026 Chainguard, Inc.
SPDX-License-Identifier: Apache-2.0
*/

package submitresult

import (
	"fmt"

	"github.com/glittering-universe/CoStrict-CodeReview-sub000/agents/schema"
)

// Options configures a finishing tool.
type Options[Response any] struct {
	ToolName       string
	Description    string
	SuccessMessage string
	Generator      *schema.Generator
}

func (o *Options[Response]) setDefaults() {
	if o.ToolName == "" {
		o.ToolName = "submit_result"
	}
	if o.Description == "" {
		o.Description = "Submit the final result and complete the task."
	}
	if o.SuccessMessage == "" {
		o.SuccessMessage = "Result submitted successfully."
	}
	if o.Generator == nil {
		o.Generator = schema.NewGenerator()
	}
}

func (o *Options[Response]) validate() error {
	if o.ToolName == "" {
		return fmt.Errorf("tool name is required")
	}
	return nil
}
