/*
Copyright 2026 Chainguard, Inc.
SPDX-License-Identifier: Apache-2.0
*/

package server

import (
	"context"
	"fmt"
	"time"

	"github.com/chainguard-dev/clog"
	"github.com/glittering-universe/CoStrict-CodeReview-sub000/agents/agenttrace"
	"github.com/glittering-universe/CoStrict-CodeReview-sub000/agents/evals"
	"github.com/glittering-universe/CoStrict-CodeReview-sub000/agents/stream"
	"github.com/glittering-universe/CoStrict-CodeReview-sub000/platform"
	"github.com/hashicorp/golang-lru/v2/expirable"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"golang.org/x/sync/singleflight"
)

const (
	DefaultScanTTL     = 5 * time.Minute
	DefaultScanEntries = 64
)

// State is everything the server shares between requests. Create one per
// server; tests create their own.
type State struct {
	Approvals *stream.Approvals
	Scans     *ScanCache
	Metrics   *Metrics
	Registry  *prometheus.Registry
	// Evals judges every agent session of every review; results are
	// exported as agent_evaluation* metrics.
	Evals *evals.NamespacedObserver[*evals.MetricsObserver]

	evalCallbacks []evals.TraceCallback
}

// StateConfig sizes a State. Zero values use the defaults.
type StateConfig struct {
	ApprovalGrace time.Duration
	ScanTTL       time.Duration
	ScanEntries   int
}

// NewState creates the shared state with its own metrics registry.
func NewState(cfg StateConfig) *State {
	if cfg.ScanTTL <= 0 {
		cfg.ScanTTL = DefaultScanTTL
	}
	if cfg.ScanEntries <= 0 {
		cfg.ScanEntries = DefaultScanEntries
	}
	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	obs := evals.NewNamespacedObserver(evals.NewMetrics(reg).Observer)
	return &State{
		Approvals:     stream.NewApprovals(cfg.ApprovalGrace),
		Scans:         NewScanCache(cfg.ScanEntries, cfg.ScanTTL),
		Metrics:       NewMetrics(reg),
		Registry:      reg,
		Evals:         obs,
		evalCallbacks: evals.BuildSessionCallbacks(obs, evals.ReviewSuite()),
	}
}

// Tracer evaluates completed sessions and then logs them like the
// default tracer.
func (s *State) Tracer(ctx context.Context) agenttrace.Tracer {
	return evals.Chain(agenttrace.NewDefaultTracer(ctx), s.evalCallbacks...)
}

// Metrics are the server's prometheus counters.
type Metrics struct {
	ReviewsStarted  *prometheus.CounterVec
	ReviewsFinished *prometheus.CounterVec
	Disconnects     prometheus.Counter
	Decisions       *prometheus.CounterVec
	ScanCacheHits   prometheus.Counter
}

// NewMetrics registers the counters with reg.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	f := promauto.With(reg)
	return &Metrics{
		ReviewsStarted: f.NewCounterVec(prometheus.CounterOpts{
			Name: "reviews_started_total",
			Help: "Reviews started, by platform",
		}, []string{"platform"}),
		ReviewsFinished: f.NewCounterVec(prometheus.CounterOpts{
			Name: "reviews_finished_total",
			Help: "Reviews finished, by terminal state",
		}, []string{"state"}),
		Disconnects: f.NewCounter(prometheus.CounterOpts{
			Name: "stream_disconnects_total",
			Help: "Event streams whose client went away",
		}),
		Decisions: f.NewCounterVec(prometheus.CounterOpts{
			Name: "sandbox_decisions_total",
			Help: "Sandbox approval decisions received, by outcome",
		}, []string{"decision"}),
		ScanCacheHits: f.NewCounter(prometheus.CounterOpts{
			Name: "scan_cache_hits_total",
			Help: "Changed-file listings served from the scan cache",
		}),
	}
}

// ScanCache remembers changed-file listings for a while, keyed by
// repository and revision. Concurrent misses for one key share a scan.
type ScanCache struct {
	lru   *expirable.LRU[string, []platform.File]
	group singleflight.Group
}

// NewScanCache holds up to size listings for ttl each.
func NewScanCache(size int, ttl time.Duration) *ScanCache {
	return &ScanCache{lru: expirable.NewLRU[string, []platform.File](size, nil, ttl)}
}

// Files returns the cached listing for key, or scans src. cached reports
// whether no scan was needed.
func (c *ScanCache) Files(ctx context.Context, key string, src platform.ChangedFilesProvider) (files []platform.File, cached bool, err error) {
	if files, ok := c.lru.Get(key); ok {
		clog.FromContext(ctx).With("key", key).Debug("Scan cache hit")
		return files, true, nil
	}
	v, err, _ := c.group.Do(key, func() (any, error) {
		files, err := src.ChangedFiles(ctx)
		if err != nil {
			return nil, err
		}
		c.lru.Add(key, files)
		return files, nil
	})
	if err != nil {
		return nil, false, fmt.Errorf("scanning %s: %w", key, err)
	}
	return v.([]platform.File), false, nil
}

// Invalidate drops the listing for key.
func (c *ScanCache) Invalidate(key string) {
	c.lru.Remove(key)
}

// Len is the number of live listings.
func (c *ScanCache) Len() int {
	return c.lru.Len()
}
