package server

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/gorilla/websocket"

	"znkr.io/datasource/autodiff/report"
	"znkr.io/datasource/change"
)

const (
	sendBufferSize = 32
	writeTimeout   = 10 * time.Second
	pingInterval   = 30 * time.Second
)

// Message is a single change batch sent to websocket clients.
type Message struct {
	Summary string          `json:"summary"`
	Changes []report.Change `json:"changes"`
}

// serveChanges streams every change published by the data source after the client connected.
// Clients that can't keep up are disconnected: A client that missed a change can't apply any
// later change.
func (h *handler) serveChanges(w http.ResponseWriter, req *http.Request) {
	ctx, cancel := context.WithCancel(req.Context())
	defer cancel()

	// The subscription precedes the handshake, the client receives every change published after
	// it connected.
	send := make(chan []byte, sendBufferSize)
	overflow := make(chan struct{})
	sub := h.ds.Subscribe(func(c change.Change) {
		b, err := json.Marshal(Message{
			Summary: report.Summary(change.Batch{Changes: []change.Change{c}}),
			Changes: report.Changes(c),
		})
		if err != nil {
			log.WithError(err).Error("failed to encode change")
			return
		}
		select {
		case send <- b:
		case <-ctx.Done():
		default:
			select {
			case <-overflow:
			default:
				close(overflow)
			}
		}
	})
	defer sub.Unsubscribe()

	ws, err := h.upgrader.Upgrade(w, req, nil)
	if err != nil {
		// Upgrade already replied with an error.
		log.WithError(err).Debug("websocket upgrade failed")
		return
	}
	defer ws.Close()

	clog := log.WithField("remote", req.RemoteAddr)
	clog.Debug("websocket connected")
	defer clog.Debug("websocket disconnected")

	// Read until the client goes away. Clients never send anything but control messages.
	go func() {
		defer cancel()
		for {
			if _, _, err := ws.ReadMessage(); err != nil {
				return
			}
		}
	}()

	ping := time.NewTicker(pingInterval)
	defer ping.Stop()

	closeWith := func(code int, text string) {
		msg := websocket.FormatCloseMessage(code, text)
		ws.WriteControl(websocket.CloseMessage, msg, time.Now().Add(writeTimeout))
	}

	for {
		select {
		case <-ctx.Done():
			return
		case <-h.done:
			closeWith(websocket.CloseGoingAway, "server shutting down")
			return
		case <-sub.Done():
			closeWith(websocket.CloseNormalClosure, "data source closed")
			return
		case <-overflow:
			clog.Warn("websocket client too slow, disconnecting")
			closeWith(websocket.CloseTryAgainLater, "too slow")
			return
		case b := <-send:
			ws.SetWriteDeadline(time.Now().Add(writeTimeout))
			if err := ws.WriteMessage(websocket.TextMessage, b); err != nil {
				clog.WithError(err).Info("failed to send change")
				return
			}
		case <-ping.C:
			if err := ws.WriteControl(websocket.PingMessage, nil, time.Now().Add(writeTimeout)); err != nil {
				return
			}
		}
	}
}
