/*
Copyright 2026 Chainguard, Inc.
SPDX-License-Identifier: Apache-2.0
*/

package schema_test

import (
	"testing"

	"github.com/glittering-universe/CoStrict-CodeReview-sub000/agents/schema"
	"github.com/glittering-universe/CoStrict-CodeReview-sub000/agents/toolcall"
	"github.com/google/go-cmp/cmp"
)

type bugArgs struct {
	Title    string   `json:"title" jsonschema:"required,description=Short title"`
	Severity string   `json:"severity,omitempty" jsonschema:"enum=low,enum=medium,enum=high"`
	Line     int      `json:"line,omitempty" jsonschema:"description=Line number"`
	Verified bool     `json:"verified"`
	Tags     []string `json:"tags,omitempty"`
}

func TestReflectNested(t *testing.T) {
	t.Parallel()

	type nested struct {
		Value string `json:"value" jsonschema:"description=Nested value"`
	}
	type sample struct {
		Name   string  `json:"name" jsonschema:"description=Name,required"`
		Nested *nested `json:"nested,omitempty"`
	}

	s := schema.Reflect(&sample{})
	if len(s.Required) != 1 || s.Required[0] != "name" {
		t.Fatalf("unexpected required: %#v", s.Required)
	}
	nestedSchema, ok := s.Properties.Get("nested")
	if !ok {
		t.Fatal("missing nested property")
	}
	value, ok := nestedSchema.Properties.Get("value")
	if !ok || value.Description != "Nested value" {
		t.Fatalf("unexpected nested value schema: %#v", value)
	}
}

func TestParametersFor(t *testing.T) {
	t.Parallel()

	got, err := schema.ParametersFor[bugArgs]()
	if err != nil {
		t.Fatalf("ParametersFor() = %v", err)
	}
	want := []toolcall.Parameter{
		{Name: "title", Type: "string", Description: "Short title", Required: true},
		{Name: "severity", Type: "string", Enum: []string{"low", "medium", "high"}},
		{Name: "line", Type: "integer", Description: "Line number"},
		{Name: "verified", Type: "boolean"},
		{Name: "tags", Type: "array", Items: "string"},
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("ParametersFor() (-want +got):\n%s", diff)
	}
}

func TestParametersRejectsScalars(t *testing.T) {
	t.Parallel()
	if _, err := schema.ParametersFor[string](); err == nil {
		t.Error("expected error for a type without properties")
	}
}
