/*
Copyright 2026 Chainguard, Inc.
SPDX-License-Identifier: Apache-2.0
*/

package review

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"sync"

	"github.com/chainguard-dev/clog"
	"github.com/glittering-universe/CoStrict-CodeReview-sub000/agents/sandbox"
	"github.com/glittering-universe/CoStrict-CodeReview-sub000/agents/schema"
	"github.com/glittering-universe/CoStrict-CodeReview-sub000/agents/toolcall"
)

// RecordBugToolName is the name of the bug-recording tool.
const RecordBugToolName = "record_bug"

// Verification says whether sandbox output demonstrated a bug.
type Verification string

const (
	Verified   Verification = "VERIFIED"
	Unverified Verification = "UNVERIFIED"
)

// BugCard is one recorded bug.
type BugCard struct {
	Title       string       `json:"title" jsonschema:"required,description=One-line summary of the bug"`
	Description string       `json:"description" jsonschema:"required,description=What goes wrong and for which input"`
	File        string       `json:"file,omitempty" jsonschema:"description=Repository-relative path of the affected file"`
	Line        int          `json:"line,omitempty" jsonschema:"description=Line number in the new version of the file"`
	Severity    string       `json:"severity,omitempty" jsonschema:"enum=critical,enum=high,enum=medium,enum=low"`
	Status      Verification `json:"status" jsonschema:"required,enum=VERIFIED,enum=UNVERIFIED,description=VERIFIED only when sandbox output demonstrates the bug"`
	Evidence    string       `json:"evidence,omitempty" jsonschema:"description=Sandbox output that demonstrates the bug"`
	Command     string       `json:"command,omitempty" jsonschema:"description=The verification command that was run"`
}

// Comment renders the card as a review thread comment.
func (b BugCard) Comment() string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "**[%s] %s**", b.Status, b.Title)
	if b.Severity != "" {
		fmt.Fprintf(&sb, " (%s)", b.Severity)
	}
	sb.WriteString("\n\n" + b.Description + "\n")
	if b.Command != "" {
		fmt.Fprintf(&sb, "\nVerified with `%s`\n", b.Command)
	}
	if b.Evidence != "" {
		fmt.Fprintf(&sb, "\n```\n%s\n```\n", strings.TrimRight(b.Evidence, "\n"))
	}
	return sb.String()
}

// bugBook collects the cards of one review.
type bugBook struct {
	mu    sync.Mutex
	cards []BugCard
}

func (b *bugBook) add(c BugCard) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.cards = append(b.cards, c)
}

func (b *bugBook) list() []BugCard {
	b.mu.Lock()
	defer b.mu.Unlock()
	return append([]BugCard(nil), b.cards...)
}

func (b *bugBook) len() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.cards)
}

const maxEvidenceChars = 2000

var bugParams = func() []toolcall.Parameter {
	params, err := schema.ParametersFor[BugCard]()
	if err != nil {
		panic(fmt.Sprintf("record_bug parameters: %v", err))
	}
	return params
}()

// recordBugTool adds cards to book. A VERIFIED card is downgraded unless
// evidence reports a sandbox run that ran to completion.
func recordBugTool(book *bugBook, evidence func() (*sandbox.Run, bool)) toolcall.Tool {
	def := toolcall.Definition{
		Name: RecordBugToolName,
		Description: "Record one bug found in the change. Call once per distinct bug. " +
			"Use status VERIFIED only when sandbox output demonstrates the bug.",
		Parameters: bugParams,
	}
	return toolcall.Tool{
		Def: def,
		Handler: func(ctx context.Context, call toolcall.ToolCall) (any, error) {
			for _, name := range def.Required() {
				if v, ok := call.Args[name]; !ok || v == nil {
					return nil, fmt.Errorf("%s parameter is required", name)
				}
			}
			raw, err := json.Marshal(call.Args)
			if err != nil {
				return nil, fmt.Errorf("encoding arguments: %w", err)
			}
			var card BugCard
			if err := json.Unmarshal(raw, &card); err != nil {
				return nil, fmt.Errorf("decoding bug: %w", err)
			}
			card.Title = strings.TrimSpace(card.Title)
			if card.Title == "" {
				return nil, fmt.Errorf("title parameter is required")
			}
			card.Status = Verification(strings.ToUpper(strings.TrimSpace(string(card.Status))))
			card.Severity = strings.ToLower(strings.TrimSpace(card.Severity))

			note := ""
			switch card.Status {
			case Verified:
				run, ok := evidence()
				if !ok {
					card.Status = Unverified
					note = " Marked UNVERIFIED: no sandbox run completed in this session."
					break
				}
				if card.Command == "" {
					card.Command = run.Command
				}
				if strings.TrimSpace(card.Evidence) == "" {
					card.Evidence = clip(run.Output(), maxEvidenceChars)
				}
			default:
				card.Status = Unverified
			}

			book.add(card)
			clog.FromContext(ctx).With("status", card.Status).With("file", card.File).Infof("Recorded bug: %s", card.Title)
			return fmt.Sprintf("Bug recorded as %s.%s", card.Status, note), nil
		},
	}
}
