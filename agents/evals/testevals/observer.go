/*
Copyright 2026 Chainguard, Inc.
SPDX-License-Identifier: Apache-2.0
*/

package testevals

import (
	"fmt"
	"sync/atomic"
	"testing"

	"github.com/glittering-universe/CoStrict-CodeReview-sub000/agents/evals"
)

type observer struct {
	tb     testing.TB
	prefix string
	count  atomic.Int64
}

// New returns an Observer reporting to tb.
func New(tb testing.TB) evals.Observer {
	return &observer{tb: tb}
}

// NewPrefix returns an Observer reporting to tb with every message
// prefixed, typically by the observer's namespace.
func NewPrefix(tb testing.TB, prefix string) evals.Observer {
	return &observer{tb: tb, prefix: prefix}
}

func (o *observer) msg(s string) string {
	if o.prefix == "" {
		return s
	}
	return o.prefix + ": " + s
}

func (o *observer) Fail(msg string) { o.tb.Error(o.msg(msg)) }
func (o *observer) Log(msg string)  { o.tb.Log(o.msg(msg)) }

func (o *observer) Grade(score float64, reasoning string) {
	o.tb.Log(o.msg(fmt.Sprintf("Grade: %.2f - %s", score, reasoning)))
}

func (o *observer) Increment()   { o.count.Add(1) }
func (o *observer) Total() int64 { return o.count.Load() }
