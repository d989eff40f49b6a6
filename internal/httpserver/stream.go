package httpserver

import (
	"net/http"
	"time"

	"github.com/goccy/go-json"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"github.com/videocatalog/videocatalog/internal/catalogerr"
)

const subscriberCapacity = 512

var upgrader = websocket.Upgrader{
	// Same-origin enforcement happens at the LAN gate + API key layers;
	// the subscribe endpoint itself accepts any origin a caller that
	// already cleared those already reached.
	CheckOrigin: func(r *http.Request) bool { return true },
}

// subscribe serves /v1/catalog/subscribe as either SSE or a WebSocket
// upgrade, selected by the presence of the Upgrade header, per spec.md's
// "same path" streaming contract.
func (h *handlers) subscribe(w http.ResponseWriter, r *http.Request) {
	if h.deps.Broker == nil {
		WriteError(w, r, catalogerr.Conflict("event broker not configured"))
		return
	}

	lastSeq := int64(queryInt(r, "last_seq", 0))
	clientID := r.URL.Query().Get("client_id")
	if clientID == "" {
		clientID = uuid.NewString()
	}

	if websocket.IsWebSocketUpgrade(r) {
		h.subscribeWS(w, r, lastSeq, clientID)
		return
	}
	h.subscribeSSE(w, r, lastSeq, clientID)
}

func (h *handlers) subscribeSSE(w http.ResponseWriter, r *http.Request, lastSeq int64, clientID string) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		WriteError(w, r, catalogerr.Internal(nil))
		return
	}

	sub, err := h.deps.Broker.Subscribe(r.Context(), lastSeq, subscriberCapacity)
	if err != nil {
		WriteError(w, r, err)
		return
	}
	defer h.deps.Broker.Unsubscribe(sub.ID())

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("X-Accel-Buffering", "no")
	w.WriteHeader(http.StatusOK)
	flusher.Flush()

	if h.deps.Monitor != nil {
		h.deps.Monitor.ClientConnectedSSE()
		defer h.deps.Monitor.ClientDisconnectedSSE()
	}

	for {
		select {
		case <-r.Context().Done():
			return
		case <-sub.Removed():
			return
		case ev, ok := <-sub.Events():
			if !ok {
				return
			}
			body, err := json.Marshal(ev)
			if err != nil {
				continue
			}
			if _, err := w.Write([]byte("data: " + string(body) + "\n\n")); err != nil {
				return
			}
			flusher.Flush()
			if h.deps.Monitor != nil {
				h.deps.Monitor.RecordDelivery(clientID, ev.TimestampUTC, time.Now())
			}
		}
	}
}

func (h *handlers) subscribeWS(w http.ResponseWriter, r *http.Request, lastSeq int64, clientID string) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		return
	}
	defer func() { _ = conn.Close() }()

	sub, err := h.deps.Broker.Subscribe(r.Context(), lastSeq, subscriberCapacity)
	if err != nil {
		_ = conn.WriteControl(websocket.CloseMessage,
			websocket.FormatCloseMessage(4403, err.Error()), time.Now().Add(time.Second))
		return
	}
	defer h.deps.Broker.Unsubscribe(sub.ID())

	if h.deps.Monitor != nil {
		h.deps.Monitor.ClientConnectedWS()
		defer h.deps.Monitor.ClientDisconnectedWS()
	}

	for {
		select {
		case <-r.Context().Done():
			return
		case <-sub.Removed():
			_ = conn.WriteControl(websocket.CloseMessage,
				websocket.FormatCloseMessage(websocket.CloseMessageTooBig, "subscriber queue overflowed"), time.Now().Add(time.Second))
			return
		case ev, ok := <-sub.Events():
			if !ok {
				return
			}
			body, err := json.Marshal(ev)
			if err != nil {
				continue
			}
			if err := conn.WriteMessage(websocket.TextMessage, body); err != nil {
				return
			}
			if h.deps.Monitor != nil {
				h.deps.Monitor.RecordDelivery(clientID, ev.TimestampUTC, time.Now())
			}
		}
	}
}
