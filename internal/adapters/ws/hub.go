// Package ws pushes the live customer list to browsers over WebSocket.
package ws

import (
	"context"
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"github.com/coder/websocket"
	"github.com/rs/zerolog/log"
)

const EventSnapshot = "clientes.snapshot"

// writeTimeout bounds each write to a single browser.
const writeTimeout = 5 * time.Second

// Message is the envelope of every WebSocket message.
type Message struct {
	Type    string          `json:"type"`
	Payload json.RawMessage `json:"payload"`
}

// viewer is one open browser tab. Every message replaces the whole list, so
// the tab only needs the newest one: latest holds at most one pending
// message and a newer one takes its place.
type viewer struct {
	ws     *websocket.Conn
	latest chan []byte
	cancel context.CancelFunc
}

func newViewer(c *websocket.Conn, cancel context.CancelFunc) *viewer {
	return &viewer{ws: c, latest: make(chan []byte, 1), cancel: cancel}
}

// offer leaves data as the pending message. Callers hold Hub.mu, so there is
// a single producer and the loop ends after at most one discard.
func (v *viewer) offer(data []byte) {
	for {
		select {
		case v.latest <- data:
			return
		default:
		}
		select {
		case <-v.latest:
		default:
		}
	}
}

// Hub keeps the open tabs and the last message, which every new tab
// receives first.
type Hub struct {
	mu      sync.RWMutex
	viewers map[*viewer]struct{}
	last    []byte
}

func NewHub() *Hub {
	return &Hub{viewers: make(map[*viewer]struct{})}
}

func (h *Hub) HandleWS(w http.ResponseWriter, r *http.Request) {
	c, err := websocket.Accept(w, r, nil)
	if err != nil {
		log.Error().Err(err).Msg("websocket accept")
		return
	}

	ctx, cancel := context.WithCancel(context.WithoutCancel(r.Context()))
	v := newViewer(c, cancel)

	// registro y reenvío bajo el mismo lock que Broadcast
	h.mu.Lock()
	h.viewers[v] = struct{}{}
	if h.last != nil {
		v.offer(h.last)
	}
	h.mu.Unlock()

	log.Debug().Str("remote", r.RemoteAddr).Msg("websocket conectado")

	go h.writeLoop(ctx, v)

	defer func() {
		h.remove(v)
		_ = c.Close(websocket.StatusNormalClosure, "")
	}()
	// el navegador no envía nada; leer detecta el cierre
	for {
		if _, _, err := c.Read(ctx); err != nil {
			return
		}
	}
}

func (h *Hub) writeLoop(ctx context.Context, v *viewer) {
	for {
		select {
		case <-ctx.Done():
			return
		case data := <-v.latest:
			wctx, cancel := context.WithTimeout(ctx, writeTimeout)
			err := v.ws.Write(wctx, websocket.MessageText, data)
			cancel()
			if err != nil {
				log.Debug().Err(err).Msg("websocket write")
				h.remove(v)
				return
			}
		}
	}
}

// Broadcast stores msg as the last message and hands it to every tab. It
// never waits on the network.
func (h *Hub) Broadcast(msg Message) {
	data, err := json.Marshal(msg)
	if err != nil {
		log.Error().Err(err).Msg("websocket marshal")
		return
	}

	h.mu.Lock()
	defer h.mu.Unlock()
	h.last = data
	for v := range h.viewers {
		v.offer(data)
	}
}

// BroadcastEvent marshals payload and broadcasts it under eventType.
func (h *Hub) BroadcastEvent(eventType string, payload any) {
	data, err := json.Marshal(payload)
	if err != nil {
		log.Error().Err(err).Str("type", eventType).Msg("websocket payload")
		return
	}
	h.Broadcast(Message{Type: eventType, Payload: data})
}

func (h *Hub) ConnectionCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.viewers)
}

func (h *Hub) remove(v *viewer) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if _, ok := h.viewers[v]; ok {
		v.cancel()
		delete(h.viewers, v)
	}
}
