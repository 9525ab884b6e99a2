/*
Copyright 2026 Chainguard, Inc.
SPDX-License-Identifier: Apache-2.0
*/

// Package report renders eval results collected in a NamespacedObserver.
package report

import (
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/glittering-universe/CoStrict-CodeReview-sub000/agents/evals"
	"github.com/glittering-universe/CoStrict-CodeReview-sub000/platform"
)

// Row is the result of one eval.
type Row struct {
	// Name is the eval's path without the leading slash, e.g. "bugpass/records-bug".
	Name     string
	Sessions int64
	Failures []string
	Grades   []evals.Grade
}

// PassRate is the share of sessions that did not fail.
func (r Row) PassRate() float64 {
	if r.Sessions == 0 {
		return 1
	}
	return float64(r.Sessions-int64(len(r.Failures))) / float64(r.Sessions)
}

// AverageGrade is the mean grade, or -1 without grades.
func (r Row) AverageGrade() float64 {
	if len(r.Grades) == 0 {
		return -1
	}
	var sum float64
	for _, g := range r.Grades {
		sum += g.Score
	}
	return sum / float64(len(r.Grades))
}

// Collect returns one row per observer that judged at least one session,
// in path order.
func Collect(obs *evals.NamespacedObserver[*evals.ResultCollector]) []Row {
	var rows []Row
	obs.Walk(func(name string, c *evals.ResultCollector) {
		if c.Total() == 0 {
			return
		}
		rows = append(rows, Row{
			Name:     strings.TrimPrefix(name, "/"),
			Sessions: c.Total(),
			Failures: c.Failures(),
			Grades:   c.Grades(),
		})
	})
	return rows
}

// Write renders the rows as a table followed by the failure messages. It
// reports whether any eval passed fewer sessions than threshold.
func Write(w io.Writer, obs *evals.NamespacedObserver[*evals.ResultCollector], threshold float64) (bool, error) {
	rows := Collect(obs)
	if len(rows) == 0 {
		_, err := fmt.Fprintln(w, "No sessions were evaluated.")
		return false, err
	}

	below := false
	table := platform.NewTable(w, "Eval", "Sessions", "Failures", "Pass rate", "Grade")
	for _, r := range rows {
		rate := fmt.Sprintf("%.0f%%", r.PassRate()*100)
		if r.PassRate() < threshold {
			below = true
			rate += " ❌"
		}
		grade := "-"
		if g := r.AverageGrade(); g >= 0 {
			grade = fmt.Sprintf("%.2f", g)
		}
		if err := table.Append([]string{r.Name, strconv.FormatInt(r.Sessions, 10), strconv.Itoa(len(r.Failures)), rate, grade}); err != nil {
			return below, err
		}
	}
	if err := table.Render(); err != nil {
		return below, err
	}

	for _, r := range rows {
		for _, f := range r.Failures {
			if _, err := fmt.Fprintf(w, "- %s: %s\n", r.Name, f); err != nil {
				return below, err
			}
		}
	}
	return below, nil
}
