package server

import (
	"net/http"
	"sync"
	"sync/atomic"

	"github.com/gorilla/websocket"

	"znkr.io/datasource"
	"znkr.io/datasource/autodiff/logging"
	"znkr.io/datasource/autodiff/records"
	"znkr.io/datasource/autodiff/report"
)

var log = logging.New("server")

// state holds all rendered documents of a single report.
type state struct {
	page  []byte
	items []byte
	feed  []byte
}

func render(r *report.Report, history []*report.Report, feedID, title string) (*state, error) {
	page, err := report.HTML(r, report.Page{Live: true, LiveURL: "/changes"})
	if err != nil {
		return nil, err
	}
	items, err := report.JSON(r)
	if err != nil {
		return nil, err
	}
	feed, err := report.Feed(feedID, title, "/feed.atom", history)
	if err != nil {
		return nil, err
	}
	return &state{page: page, items: items, feed: feed}, nil
}

type handler struct {
	state atomic.Pointer[state]
	ds    datasource.DataSource[records.Record]
	mux   *http.ServeMux

	upgrader  websocket.Upgrader
	done      chan struct{}
	closeOnce sync.Once
}

func newHandler(ds datasource.DataSource[records.Record]) *handler {
	h := &handler{
		ds:   ds,
		mux:  http.NewServeMux(),
		done: make(chan struct{}),
	}
	h.mux.HandleFunc("/{$}", h.serveDoc("text/html; charset=utf-8", func(s *state) []byte { return s.page }))
	h.mux.HandleFunc("/items", h.serveDoc("application/json", func(s *state) []byte { return s.items }))
	h.mux.HandleFunc("/feed.atom", h.serveDoc("application/atom+xml", func(s *state) []byte { return s.feed }))
	h.mux.HandleFunc("/changes", h.serveChanges)
	return h
}

func (h *handler) close() {
	h.closeOnce.Do(func() { close(h.done) })
}

func (h *handler) ServeHTTP(w http.ResponseWriter, req *http.Request) {
	h.mux.ServeHTTP(w, req)
}

func (h *handler) serveDoc(mimeType string, doc func(*state) []byte) http.HandlerFunc {
	return func(w http.ResponseWriter, req *http.Request) {
		switch req.Method {
		case http.MethodGet:
		case http.MethodHead:
		default:
			w.WriteHeader(http.StatusNotImplemented)
			return
		}

		b := doc(h.state.Load())
		w.Header().Set("Content-Type", mimeType)
		if req.Method == http.MethodHead {
			return
		}

		w.WriteHeader(http.StatusOK)
		if _, err := w.Write(b); err != nil {
			log.WithError(err).WithField("path", req.URL.EscapedPath()).Warn("failed to write response")
		}
	}
}
