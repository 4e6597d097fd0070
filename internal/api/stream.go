package api

import (
	"net/http"
	"sync"

	json "github.com/goccy/go-json"
	"github.com/rs/zerolog"

	"takeoff_monitor/internal/models"
)

// streamClient is a single SSE consumer connection.
type streamClient struct {
	id   string
	send chan []byte
}

// Hub fans broadcast snapshots out to connected SSE clients. Slow clients
// whose buffers fill are dropped rather than blocking the tick.
type Hub struct {
	mu      sync.Mutex
	clients map[*streamClient]bool
	log     zerolog.Logger
}

func NewHub(logger zerolog.Logger) *Hub {
	return &Hub{
		clients: make(map[*streamClient]bool),
		log:     logger,
	}
}

// Broadcast is the engine subscription callback: it frames the snapshot as
// an SSE event and queues it for every connected client.
func (h *Hub) Broadcast(snap models.SimulationSnapshot) {
	data, err := json.Marshal(snap)
	if err != nil {
		h.log.Error().Err(err).Msg("failed to encode snapshot for stream")
		return
	}
	frame := []byte("event: snapshot\ndata: " + string(data) + "\n\n")

	h.mu.Lock()
	defer h.mu.Unlock()
	for client := range h.clients {
		select {
		case client.send <- frame:
		default:
			h.log.Debug().Str("client", client.id).Msg("stream client buffer full, dropping")
			delete(h.clients, client)
			close(client.send)
		}
	}
}

func (h *Hub) register(c *streamClient) {
	h.mu.Lock()
	h.clients[c] = true
	h.mu.Unlock()
	h.log.Debug().Str("client", c.id).Msg("stream client connected")
}

func (h *Hub) unregister(c *streamClient) {
	h.mu.Lock()
	if _, ok := h.clients[c]; ok {
		delete(h.clients, c)
		close(c.send)
	}
	h.mu.Unlock()
	h.log.Debug().Str("client", c.id).Msg("stream client disconnected")
}

// handleEvents serves the snapshot stream over server-sent events.
func (s *Server) handleEvents(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")

	flusher, ok := w.(http.Flusher)
	if !ok {
		writeJSONError(w, http.StatusInternalServerError, "streaming unsupported")
		return
	}

	client := &streamClient{
		id:   r.RemoteAddr,
		send: make(chan []byte, 64),
	}
	s.hub.register(client)
	defer s.hub.unregister(client)

	// prime the stream with the latest snapshot so a fresh consumer does
	// not wait a full tick
	if data, err := json.Marshal(s.engine.Snapshot()); err == nil {
		w.Write([]byte("event: snapshot\ndata: " + string(data) + "\n\n"))
		flusher.Flush()
	}

	for {
		select {
		case frame, open := <-client.send:
			if !open {
				return
			}
			if _, err := w.Write(frame); err != nil {
				return
			}
			flusher.Flush()
		case <-r.Context().Done():
			return
		}
	}
}
