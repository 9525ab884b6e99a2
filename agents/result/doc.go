/*
Copyright 2026 Chainguard, Inc.
SPDX-License-Identifier: Apache-2.0
*/

/*
Package result extracts JSON and text from model output.

Models wrap JSON in markdown fences and sometimes JSON-encode values that
were meant to be plain text. The helpers here undo both:

	cards, err := result.Extract[[]BugCard]("```json\n[...]\n```")

	report := result.Text(`"## Summary\n..."`)            // decoded string
	report = result.Text(`{"report": "## Summary"}`, "report") // field value
*/
package result
