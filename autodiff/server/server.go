// Package server serves a live report of a data source via HTTP.
package server

import (
	"context"
	"fmt"
	"net"
	"net/http"
	"sync"
	"time"

	"znkr.io/datasource"
	"znkr.io/datasource/autodiff/records"
	"znkr.io/datasource/autodiff/report"
)

// Options configure a [Server].
type Options struct {
	Title   string
	History int // number of reports in the Atom feed
}

// Server serves the latest report of a data source and streams its changes via websocket.
type Server struct {
	http    *http.Server
	addr    net.Addr
	handler *handler
	errc    chan error

	mu      sync.Mutex // serializes updates
	history []*report.Report
	feedID  string
	opts    Options
}

// Run creates a new server and runs it in a new goroutine. The server starts with the items of
// initial, it's updated with [Server.Update]. Changes of ds are streamed to websocket clients as
// they are published.
func Run(addr string, ds datasource.DataSource[records.Record], initial *report.Report, opts Options) (*Server, error) {
	if opts.History < 1 {
		opts.History = 1
	}

	h := newHandler(ds)
	s := &Server{
		http: &http.Server{
			Handler: h,
		},
		handler: h,
		errc:    make(chan error, 1),
		feedID:  report.FeedID(opts.Title, time.Now()),
		opts:    opts,
	}
	if err := s.Update(initial); err != nil {
		return nil, err
	}

	l, err := net.Listen("tcp", addr)
	if err != nil {
		return nil, fmt.Errorf("starting HTTP server: %w", err)
	}
	s.addr = l.Addr()

	go func() {
		if err := s.http.Serve(l); err != nil && err != http.ErrServerClosed {
			s.errc <- err
		}
	}()

	return s, nil
}

// Addr returns the address the server listens on.
func (s *Server) Addr() net.Addr { return s.addr }

// Update renders r and replaces the served report with it. Reports with changes are added to the
// Atom feed.
func (s *Server) Update(r *report.Report) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	history := s.history
	if !r.Batch.IsEmpty() {
		history = append(history, r)
		if n := len(history) - s.opts.History; n > 0 {
			history = history[n:]
		}
	}

	st, err := render(r, history, s.feedID, s.opts.Title)
	if err != nil {
		return fmt.Errorf("rendering report: %w", err)
	}
	s.history = history
	s.handler.state.Store(st)
	return nil
}

// Shutdown gracefully stops the server. Websocket connections are closed.
func (s *Server) Shutdown(ctx context.Context) error {
	s.handler.close()
	if err := s.http.Shutdown(ctx); err != nil {
		return fmt.Errorf("shutting down HTTP server: %w", err)
	}
	return nil
}

// Error returns a channel to listen to errors while serving.
func (s *Server) Error() <-chan error {
	return s.errc
}
