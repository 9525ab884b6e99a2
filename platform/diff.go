/*
Copyright 2026 Chainguard, Inc.
SPDX-License-Identifier: Apache-2.0
*/

package platform

import (
	"strings"

	"github.com/waigani/diffparser"
)

// ParseHunks returns the hunk ranges of a unified diff. A diff that does
// not parse has no hunks.
func ParseHunks(diff string) []Hunk {
	if strings.TrimSpace(diff) == "" {
		return nil
	}
	parsed, err := diffparser.Parse(diff)
	if err != nil {
		return nil
	}
	var out []Hunk
	for _, f := range parsed.Files {
		for _, h := range f.Hunks {
			out = append(out, Hunk{
				OldStart: h.OrigRange.Start,
				OldLines: h.OrigRange.Length,
				NewStart: h.NewRange.Start,
				NewLines: h.NewRange.Length,
				Header:   strings.TrimSpace(h.HunkHeader),
			})
		}
	}
	return out
}

// FilePatch prefixes a bare hunk patch, as GitHub returns it, with the
// file headers a unified diff needs.
func FilePatch(name, status, patch string) string {
	if patch == "" {
		return ""
	}
	from, to := "a/"+name, "b/"+name
	switch status {
	case "added":
		from = "/dev/null"
	case "removed":
		to = "/dev/null"
	}
	return "--- " + from + "\n+++ " + to + "\n" + strings.TrimRight(patch, "\n") + "\n"
}

// InHunk reports whether line of the new file falls inside one of hunks.
func InHunk(hunks []Hunk, line int) bool {
	for _, h := range hunks {
		if line >= h.NewStart && line < h.NewStart+max(h.NewLines, 1) {
			return true
		}
	}
	return false
}
