/*
Copyright 2026 Chainguard, Inc.
SPDX-License-Identifier: Apache-2.0
*/

package submitresult

import (
	"context"
	"encoding/json"
	"fmt"
	"reflect"

	"github.com/chainguard-dev/clog"
	"github.com/glittering-universe/CoStrict-CodeReview-sub000/agents/toolcall"
)

// Tool names of the finishing tools.
const (
	SummaryToolName = "submit_summary"
	ReportToolName  = "submit_report"
)

// Summary is the artifact that completes a review.
type Summary struct {
	_ struct{} `submitresult:"name=submit_summary,description=Submit the final code review. Call this exactly once when the review is complete.,success=Review submitted."`

	Report string `json:"report" jsonschema:"required,description=The complete review in markdown"`
}

// Report is the artifact that completes a sub-agent session.
type Report struct {
	_ struct{} `submitresult:"name=submit_report,description=Submit your final analysis report. This must be your last action.,success=Report submitted."`

	Report string `json:"report" jsonschema:"required,description=Markdown report with the sections Summary and Findings and Recommendations and Conclusion"`
}

// Tool builds a finishing tool whose parameters are the fields of
// Response. Each call decodes its arguments into a Response and passes it
// to onSubmit, which may be nil.
func Tool[Response any](opts Options[Response], onSubmit func(context.Context, Response) error) (toolcall.Tool, error) {
	opts.setDefaults()
	if err := opts.validate(); err != nil {
		return toolcall.Tool{}, err
	}

	params, err := opts.Generator.Parameters(newResponse[Response]())
	if err != nil {
		return toolcall.Tool{}, fmt.Errorf("deriving %s parameters: %w", opts.ToolName, err)
	}
	def := toolcall.Definition{
		Name:        opts.ToolName,
		Description: opts.Description,
		Parameters:  params,
	}

	handler := func(ctx context.Context, call toolcall.ToolCall) (any, error) {
		for _, name := range def.Required() {
			if v, ok := call.Args[name]; !ok || v == nil {
				return nil, fmt.Errorf("%s parameter is required", name)
			}
		}

		payload, err := json.Marshal(call.Args)
		if err != nil {
			return nil, fmt.Errorf("failed to marshal payload: %w", err)
		}
		var parsed Response
		dest := newResponse[Response]()
		if err := json.Unmarshal(payload, dest); err != nil {
			return nil, fmt.Errorf("failed to unmarshal payload: %w", err)
		}
		if reflect.TypeFor[Response]().Kind() == reflect.Pointer {
			parsed = dest.(Response)
		} else {
			parsed = reflect.ValueOf(dest).Elem().Interface().(Response)
		}

		clog.FromContext(ctx).With("tool", opts.ToolName).Info("Submitting result")
		if onSubmit != nil {
			if err := onSubmit(ctx, parsed); err != nil {
				return nil, err
			}
		}
		return opts.SuccessMessage, nil
	}

	return toolcall.Tool{Def: def, Handler: handler}, nil
}

// ToolForResponse builds the finishing tool described by Response's annotations.
func ToolForResponse[Response any](onSubmit func(context.Context, Response) error) (toolcall.Tool, error) {
	return Tool(OptionsForResponse[Response](), onSubmit)
}

// SummaryTool is the submit_summary tool of the main review.
func SummaryTool(onSubmit func(context.Context, Summary) error) toolcall.Tool {
	return must(ToolForResponse(onSubmit))
}

// ReportTool is the submit_report tool of sub-agent sessions.
func ReportTool(onSubmit func(context.Context, Report) error) toolcall.Tool {
	return must(ToolForResponse(onSubmit))
}

// newResponse returns a pointer suitable for decoding a Response.
func newResponse[Response any]() any {
	typ := reflect.TypeFor[Response]()
	if typ.Kind() == reflect.Pointer {
		return reflect.New(typ.Elem()).Interface()
	}
	return reflect.New(typ).Interface()
}

func must(t toolcall.Tool, err error) toolcall.Tool {
	if err != nil {
		panic(err)
	}
	return t
}
