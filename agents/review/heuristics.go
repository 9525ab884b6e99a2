/*
Copyright 2026 Chainguard, Inc.
SPDX-License-Identifier: Apache-2.0
*/

package review

import (
	"regexp"
	"strings"
	"unicode/utf8"
)

// Heuristics classify review text. Every field may be replaced; nil
// fields fall back to the defaults.
type Heuristics struct {
	// IsMetaSummary reports text that describes the review process
	// (usually waiting for sandbox approval) instead of concluding it.
	IsMetaSummary func(string) bool
	// HasBugVocabulary reports text that claims at least one defect.
	HasBugVocabulary func(string) bool
	// IsBugNarrative reports text that reads as a description of bugs
	// even when no single statement can be extracted from it.
	IsBugNarrative func(string) bool
	// ExtractCandidates returns the individual bug statements in text.
	ExtractCandidates func(string) []string
}

// DefaultHeuristics returns the English and Chinese pattern heuristics.
func DefaultHeuristics() Heuristics {
	return Heuristics{
		IsMetaSummary:     IsMetaSummary,
		HasBugVocabulary:  HasBugVocabulary,
		IsBugNarrative:    IsBugNarrative,
		ExtractCandidates: ExtractCandidates,
	}
}

func (h Heuristics) withDefaults() Heuristics {
	d := DefaultHeuristics()
	if h.IsMetaSummary == nil {
		h.IsMetaSummary = d.IsMetaSummary
	}
	if h.HasBugVocabulary == nil {
		h.HasBugVocabulary = d.HasBugVocabulary
	}
	if h.IsBugNarrative == nil {
		h.IsBugNarrative = d.IsBugNarrative
	}
	if h.ExtractCandidates == nil {
		h.ExtractCandidates = d.ExtractCandidates
	}
	return h
}

const (
	// shortSummaryRunes is the length under which approval talk alone
	// makes a text a meta-summary.
	shortSummaryRunes = 240
	// minCandidateRunes drops fragments too short to verify.
	minCandidateRunes = 12
)

var (
	approvalTalk = regexp.MustCompile(`(?i)approv|permission|authori[sz]|waiting|await|批准|审批|授权|等待`)

	waitingPatterns = []*regexp.Regexp{
		regexp.MustCompile(`(?i)\b(?:waiting|wait)\s+(?:for\s+)?(?:your|the\s+user'?s?|user|human)?\s*(?:approval|permission|confirmation|decision)`),
		regexp.MustCompile(`(?i)\b(?:please|kindly)\s+(?:approve|confirm|allow|grant)`),
		regexp.MustCompile(`(?i)\bonce\s+(?:you\s+)?(?:approve|approved|confirm|confirmed|permission\s+is\s+granted)`),
		regexp.MustCompile(`(?i)\b(?:need|needs|require|requires)\s+(?:your\s+)?(?:approval|permission)\s+to\s+(?:run|execute)`),
		regexp.MustCompile(`(?i)\b(?:the\s+)?(?:command|sandbox\s+execution)\s+was\s+(?:denied|not\s+approved)\b.*\b(?:cannot|unable|could\s+not)\b`),
		regexp.MustCompile(`等待.{0,12}(?:批准|审批|确认|授权)`),
		regexp.MustCompile(`(?:请|需要您?).{0,6}(?:批准|确认|授权)`),
	}

	bugVocabulary = regexp.MustCompile(`(?i)\b(?:bugs?|defects?|errors?|crash(?:es|ed)?|panics?|races?|race\s+condition|leaks?|deadlocks?|overflows?|underflows?|incorrect(?:ly)?|wrong|fails?|failing|broken|vulnerab\w*|injection|off-by-one|nil\s+(?:pointer|dereference)|null\s+(?:pointer|dereference)|out\s+of\s+bounds|uninitiali[sz]ed|unchecked)\b|缺陷|错误|漏洞|崩溃|异常|泄漏|泄露|死锁|竞态|越界|空指针|溢出|问题`)

	negated = regexp.MustCompile(`(?i)\b(?:no|not|without|zero|none|never)\b(?:\s+\w+){0,3}\s+(?:bugs?|defects?|errors?|issues?|problems?|vulnerabilit\w+)|\b(?:bugs?|defects?|issues?|problems?)\s+(?:were\s+)?(?:not\s+)?found:\s*none|(?:未|没有)(?:发现)?.{0,4}(?:问题|缺陷|错误|漏洞|bug)|无(?:明显)?(?:问题|缺陷|错误|漏洞)`)

	bulletItem   = regexp.MustCompile(`^\s*(?:[-*+•]|\d+[.)、]|[（(]?\d+[)）])\s+(.+)$`)
	clauseSplit  = regexp.MustCompile(`[;；,，。\n]+`)
	markdownJunk = regexp.MustCompile("[*_`]+")
	heading      = regexp.MustCompile(`^\s*#{1,6}\s`)
)

// IsMetaSummary is the default meta-summary detector: empty text, short
// text that talks about approval, or text that says it is waiting for
// permission.
func IsMetaSummary(text string) bool {
	text = strings.TrimSpace(text)
	if text == "" {
		return true
	}
	if utf8.RuneCountInString(text) < shortSummaryRunes && approvalTalk.MatchString(text) {
		return true
	}
	for _, p := range waitingPatterns {
		if p.MatchString(text) {
			return true
		}
	}
	return false
}

// HasBugVocabulary is true when some clause of text names a defect
// without negating it.
func HasBugVocabulary(text string) bool {
	for _, clause := range clauseSplit.Split(text, -1) {
		if claimsBug(clause) {
			return true
		}
	}
	return false
}

// IsBugNarrative is true when at least two clauses claim a defect.
func IsBugNarrative(text string) bool {
	n := 0
	for _, clause := range clauseSplit.Split(text, -1) {
		if claimsBug(clause) {
			n++
		}
	}
	return n >= 2
}

func claimsBug(s string) bool {
	return bugVocabulary.MatchString(s) && !negated.MatchString(s)
}

// ExtractCandidates returns the bullet items of text that claim a
// defect. When there are none it falls back to comma and semicolon
// delimited clauses. Results are cleaned of markdown and deduplicated.
func ExtractCandidates(text string) []string {
	var out []string
	seen := map[string]bool{}
	add := func(s string) {
		s = strings.TrimSpace(markdownJunk.ReplaceAllString(s, ""))
		s = strings.TrimRight(s, ".。:：")
		if utf8.RuneCountInString(s) < minCandidateRunes || !claimsBug(s) {
			return
		}
		key := strings.ToLower(s)
		if seen[key] {
			return
		}
		seen[key] = true
		out = append(out, s)
	}

	for _, line := range strings.Split(text, "\n") {
		if m := bulletItem.FindStringSubmatch(line); m != nil {
			add(m[1])
		}
	}
	if len(out) > 0 {
		return out
	}

	for _, line := range strings.Split(text, "\n") {
		if heading.MatchString(line) {
			continue
		}
		for _, clause := range clauseSplit.Split(line, -1) {
			add(clause)
		}
	}
	return out
}
