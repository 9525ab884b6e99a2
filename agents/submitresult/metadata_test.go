/*
Copyright 2026 Chainguard, Inc.
SPDX-License-Identifier: Apache-2.0
*/

package submitresult

import "testing"

type sampleResult struct {
	_ struct{} `submitresult:"name=submit_verdict,description=Submit your verdict.,success=Verdict recorded."`

	Verdict string `json:"verdict" jsonschema:"description=Verdict,required"`
}

func TestOptionsForResponseMetadata(t *testing.T) {
	t.Parallel()

	opts := OptionsForResponse[*sampleResult]()
	if opts.ToolName != "submit_verdict" {
		t.Fatalf("expected tool name 'submit_verdict', got %q", opts.ToolName)
	}
	if opts.Description != "Submit your verdict." {
		t.Fatalf("unexpected description %q", opts.Description)
	}
	if opts.SuccessMessage != "Verdict recorded." {
		t.Fatalf("unexpected success message %q", opts.SuccessMessage)
	}
}

func TestOptionsForUnannotatedType(t *testing.T) {
	t.Parallel()

	opts := OptionsForResponse[string]()
	opts.setDefaults()
	if opts.ToolName != "submit_result" {
		t.Fatalf("expected default tool name, got %q", opts.ToolName)
	}
}
