package handlers

import (
	"field-route-service/internal/platform/obs"
	"field-route-service/internal/ports"
	"net/http"
	"time"

	"github.com/gorilla/websocket"
)

const (
	writeWait  = 10 * time.Second
	pongWait   = 60 * time.Second
	pingPeriod = 20 * time.Second
)

var upgrader = websocket.Upgrader{CheckOrigin: func(_ *http.Request) bool { return true }}

// StreamHandler pushes route.saved events to websocket clients so open maps
// can reload.
type StreamHandler struct {
	Events ports.EventSubscriber
}

func (h *StreamHandler) Routes(w http.ResponseWriter, r *http.Request) {
	if h.Events == nil {
		writeError(w, r, http.StatusServiceUnavailable, "event stream unavailable")
		return
	}

	ctx := r.Context()
	events, cancel, err := h.Events.Subscribe(ctx)
	if err != nil {
		obs.Log(ctx).WithError(err).Warn("route stream: subscribe failed")
		writeError(w, r, http.StatusServiceUnavailable, "event stream unavailable")
		return
	}
	defer cancel()

	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		return
	}
	defer func() { _ = conn.Close() }()

	// Reader: only control frames are expected; a read error means the client left.
	done := make(chan struct{})
	conn.SetReadLimit(1 << 10)
	_ = conn.SetReadDeadline(time.Now().Add(pongWait))
	conn.SetPongHandler(func(string) error { return conn.SetReadDeadline(time.Now().Add(pongWait)) })
	go func() {
		defer close(done)
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	ticker := time.NewTicker(pingPeriod)
	defer ticker.Stop()

	for {
		select {
		case <-done:
			return
		case <-ctx.Done():
			return
		case evt, ok := <-events:
			if !ok {
				return
			}
			_ = conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := conn.WriteJSON(evt); err != nil {
				return
			}
		case <-ticker.C:
			if err := conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(writeWait)); err != nil {
				return
			}
		}
	}
}
