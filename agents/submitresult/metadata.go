/*
Copyright 2026 Chainguard, Inc.
SPDX-License-Identifier: Apache-2.0
*/

package submitresult

import (
	"reflect"
	"strings"
)

// tagKey is the struct tag key used to configure finishing tool metadata on response types.
const tagKey = "submitresult"

type tagMetadata struct {
	ToolName       string
	Description    string
	SuccessMessage string
}

// OptionsForResponse returns Options pre-populated from the annotations
// on the response type T, for example:
//
//	type Summary struct {
//	    _ struct{} `submitresult:"name=submit_summary,description=Submit the review."`
//	    Report string `json:"report" jsonschema:"required"`
//	}
//
// Values cannot contain commas.
func OptionsForResponse[T any]() Options[T] {
	meta, _ := extractMetadata(reflect.TypeFor[T]())
	return Options[T]{
		ToolName:       meta.ToolName,
		Description:    meta.Description,
		SuccessMessage: meta.SuccessMessage,
	}
}

func extractMetadata(t reflect.Type) (tagMetadata, bool) {
	meta := tagMetadata{}
	if t == nil {
		return meta, false
	}
	if t.Kind() == reflect.Pointer {
		t = t.Elem()
	}
	if t.Kind() != reflect.Struct {
		return meta, false
	}

	for i := 0; i < t.NumField(); i++ {
		tag := t.Field(i).Tag.Get(tagKey)
		if tag == "" {
			continue
		}
		parseTag(tag, &meta)
		return meta, true
	}
	return meta, false
}

func parseTag(tag string, meta *tagMetadata) {
	for part := range strings.SplitSeq(tag, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}

		key, value, _ := strings.Cut(part, "=")
		key = strings.ToLower(strings.TrimSpace(key))
		value = strings.TrimSpace(value)

		switch key {
		case "name", "tool", "toolname":
			meta.ToolName = value
		case "description":
			meta.Description = value
		case "success", "successmessage":
			meta.SuccessMessage = value
		}
	}
}
