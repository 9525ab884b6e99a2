/*
Copyright 2026 Chainguard, Inc.
SPDX-License-Identifier: Apache-2.0
*/

// Package server exposes reviews over HTTP.
//
// POST /api/review runs one review and streams its events as server-sent
// events. Sandbox commands the review wants to run are announced with a
// sandbox_request event and wait for POST /api/sandbox/decision.
package server

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/chainguard-dev/clog"
	"github.com/glittering-universe/CoStrict-CodeReview-sub000/agents/agenttrace"
	"github.com/glittering-universe/CoStrict-CodeReview-sub000/agents/review"
	"github.com/glittering-universe/CoStrict-CodeReview-sub000/agents/stream"
	"github.com/glittering-universe/CoStrict-CodeReview-sub000/platform"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const shutdownTimeout = 10 * time.Second

// Reviewer runs one review. *review.Orchestrator implements it.
type Reviewer interface {
	Run(ctx context.Context, req review.Request) (*review.Outcome, error)
}

// ReviewRequest is the body of POST /api/review. Either Files is set or
// the resolver turns the remaining fields into sources.
type ReviewRequest struct {
	Platform string          `json:"platform"`
	Repo     string          `json:"repo,omitempty"`
	Base     string          `json:"base,omitempty"`
	PR       string          `json:"pr,omitempty"`
	Files    []platform.File `json:"files,omitempty"`
	// Refresh bypasses the scan cache.
	Refresh bool `json:"refresh,omitempty"`
}

// Decision is the body of POST /api/sandbox/decision.
type Decision struct {
	RequestID string `json:"requestId"`
	Approved  bool   `json:"approved"`
	Reason    string `json:"reason,omitempty"`
}

// Source is where a review's files come from and where it is delivered.
type Source struct {
	// Key identifies the scan in the cache, e.g. "local:/src/app@main".
	Key      string
	Files    platform.ChangedFilesProvider
	Provider platform.Provider
}

// Resolver maps a request onto its Source.
type Resolver func(ctx context.Context, kind platform.Kind, req ReviewRequest) (Source, error)

// Server is the HTTP front end.
type Server struct {
	echo      *echo.Echo
	state     *State
	reviewer  Reviewer
	resolve   Resolver
	heartbeat time.Duration
}

// Option configures a Server.
type Option func(*Server)

// WithHeartbeat sets the ping interval of review streams.
func WithHeartbeat(d time.Duration) Option {
	return func(s *Server) { s.heartbeat = d }
}

// WithResolver lets requests name a repository or pull request instead
// of carrying their files.
func WithResolver(r Resolver) Option {
	return func(s *Server) { s.resolve = r }
}

// New wires the routes. ctx carries the logger handed to every request.
func New(ctx context.Context, state *State, reviewer Reviewer, opts ...Option) *Server {
	s := &Server{
		echo:      echo.New(),
		state:     state,
		reviewer:  reviewer,
		heartbeat: stream.DefaultHeartbeat,
	}
	for _, opt := range opts {
		opt(s)
	}

	e := s.echo
	e.HideBanner = true
	e.HidePort = true
	e.Use(middleware.Recover())
	e.Use(withLogger(clog.FromContext(ctx)))
	e.Use(middleware.RequestLoggerWithConfig(middleware.RequestLoggerConfig{
		LogMethod:  true,
		LogURI:     true,
		LogStatus:  true,
		LogLatency: true,
		LogValuesFunc: func(c echo.Context, v middleware.RequestLoggerValues) error {
			clog.FromContext(c.Request().Context()).
				With("method", v.Method).With("uri", v.URI).With("status", v.Status).With("latency", v.Latency).
				Debug("Request")
			return nil
		},
	}))

	e.POST("/api/review", s.handleReview)
	e.POST("/api/sandbox/decision", s.handleDecision)
	e.GET("/healthz", s.handleHealth)
	e.GET("/metrics", echo.WrapHandler(promhttp.HandlerFor(state.Registry, promhttp.HandlerOpts{})))
	return s
}

func withLogger(logger *clog.Logger) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			req := c.Request()
			c.SetRequest(req.WithContext(clog.WithLogger(req.Context(), logger)))
			return next(c)
		}
	}
}

// Handler is the server's http.Handler.
func (s *Server) Handler() http.Handler { return s.echo }

// Start serves on addr until ctx is done, then shuts down gracefully.
func (s *Server) Start(ctx context.Context, addr string) error {
	errCh := make(chan error, 1)
	go func() { errCh <- s.echo.Start(addr) }()
	clog.FromContext(ctx).With("addr", addr).Info("Server listening")

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), shutdownTimeout)
		defer cancel()
		clog.FromContext(ctx).Info("Shutting down")
		return s.echo.Shutdown(shutdownCtx)
	}
}

func jsonError(c echo.Context, code int, format string, args ...any) error {
	return c.JSON(code, map[string]string{"error": fmt.Sprintf(format, args...)})
}

func (s *Server) handleReview(c echo.Context) error {
	var req ReviewRequest
	if err := c.Bind(&req); err != nil {
		return jsonError(c, http.StatusBadRequest, "invalid request body: %v", err)
	}
	kind, err := platform.ParseKind(req.Platform)
	if err != nil {
		return jsonError(c, http.StatusBadRequest, "%v", err)
	}

	ctx := c.Request().Context()
	var src Source
	switch {
	case len(req.Files) > 0:
		src = Source{Provider: platform.NewLocal(nil, req.Repo)}
	case s.resolve == nil:
		return jsonError(c, http.StatusBadRequest, "request has no files")
	default:
		if src, err = s.resolve(ctx, kind, req); err != nil {
			return jsonError(c, http.StatusBadRequest, "%v", err)
		}
	}
	log := clog.FromContext(ctx).With("platform", kind)
	s.state.Metrics.ReviewsStarted.WithLabelValues(string(kind)).Inc()

	w := stream.NewWriter(ctx, stream.NewSSESink(c.Response()),
		stream.WithHeartbeat(s.heartbeat),
		stream.OnDisconnect(func(error) { s.state.Metrics.Disconnects.Inc() }),
	)
	defer w.Close()

	files := req.Files
	if src.Files != nil {
		if req.Refresh {
			s.state.Scans.Invalidate(src.Key)
		}
		var cached bool
		files, cached, err = s.state.Scans.Files(ctx, src.Key, src.Files)
		if err != nil {
			log.Errorf("Listing changed files: %v", err)
			s.state.Metrics.ReviewsFinished.WithLabelValues("error").Inc()
			_ = w.Emit(ctx, stream.Error(err.Error()))
			return nil
		}
		if cached {
			s.state.Metrics.ScanCacheHits.Inc()
		}
	}

	ctx = agenttrace.WithTracer(ctx, s.state.Tracer(ctx))
	out, err := s.reviewer.Run(ctx, review.Request{
		Files:     files,
		Kind:      kind,
		Platform:  src.Provider,
		Emitter:   w,
		Confirmer: s.state.Approvals.Confirmer(w),
	})
	if err != nil {
		// The review has already reported the error on the stream.
		log.Warnf("Review failed: %v", err)
		s.state.Metrics.ReviewsFinished.WithLabelValues("error").Inc()
		return nil
	}
	s.state.Metrics.ReviewsFinished.WithLabelValues(string(out.State)).Inc()
	return nil
}

func (s *Server) handleDecision(c echo.Context) error {
	var d Decision
	if err := c.Bind(&d); err != nil {
		return jsonError(c, http.StatusBadRequest, "invalid request body: %v", err)
	}
	if d.RequestID == "" {
		return jsonError(c, http.StatusBadRequest, "requestId is required")
	}
	if err := s.state.Approvals.Resolve(d.RequestID, d.Approved, d.Reason); errors.Is(err, stream.ErrUnknownRequest) {
		return jsonError(c, http.StatusNotFound, "%v", err)
	} else if err != nil {
		return err
	}

	decision := "denied"
	if d.Approved {
		decision = "approved"
	}
	s.state.Metrics.Decisions.WithLabelValues(decision).Inc()
	clog.FromContext(c.Request().Context()).With("request_id", d.RequestID).With("decision", decision).Info("Sandbox decision")
	return c.NoContent(http.StatusNoContent)
}

func (s *Server) handleHealth(c echo.Context) error {
	return c.JSON(http.StatusOK, map[string]any{
		"status":           "ok",
		"pendingApprovals": s.state.Approvals.Pending(),
		"cachedScans":      s.state.Scans.Len(),
	})
}
