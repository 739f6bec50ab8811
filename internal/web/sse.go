package web

import (
	"encoding/json"
	"fmt"
	"net/http"
	"sync"

	"github.com/sirupsen/logrus"

	"github.com/edvart/arena-inhouse/internal/engine"
	"github.com/edvart/arena-inhouse/internal/metrics"
)

// SSEClient represents one connected event stream consumer.
type SSEClient struct {
	ID      string
	Channel chan []byte
}

// SSEHub fans engine events out to connected clients as JSON lines.
// Events carry no player-private data, so every client gets the same
// payload and re-fetches state through the filtered read endpoints.
type SSEHub struct {
	clients map[*SSEClient]bool
	mu      sync.RWMutex
	log     *logrus.Logger
	metrics *metrics.Metrics
}

// NewSSEHub creates a new SSE hub.
func NewSSEHub(log *logrus.Logger, m *metrics.Metrics) *SSEHub {
	return &SSEHub{
		clients: make(map[*SSEClient]bool),
		log:     log,
		metrics: m,
	}
}

// Run processes engine events until the channel closes.
func (h *SSEHub) Run(events <-chan engine.Event) {
	h.log.Info("SSE hub started")
	for ev := range events {
		if payload := marshalEvent(ev); payload != nil {
			h.broadcast(payload)
		}
	}
}

// ssePayload is the wire shape of one event.
type ssePayload struct {
	Type    string `json:"type"`
	MatchID string `json:"match_id,omitempty"`
}

func marshalEvent(ev engine.Event) []byte {
	var p ssePayload
	switch e := ev.(type) {
	case engine.QueueUpdated:
		p = ssePayload{Type: "queue_update"}
	case engine.MatchCreated:
		p = ssePayload{Type: "match_created", MatchID: e.MatchID}
	case engine.DraftUpdated:
		p = ssePayload{Type: "draft_update", MatchID: e.MatchID}
	case engine.BetsUpdated:
		p = ssePayload{Type: "bets_update", MatchID: e.MatchID}
	case engine.MatchFinalized:
		p = ssePayload{Type: "match_finalized", MatchID: e.MatchID}
	case engine.ConfigUpdated:
		p = ssePayload{Type: "config_update"}
	default:
		return nil
	}

	b, err := json.Marshal(p)
	if err != nil {
		return nil
	}
	return b
}

func (h *SSEHub) broadcast(payload []byte) {
	h.mu.RLock()
	defer h.mu.RUnlock()

	for client := range h.clients {
		select {
		case client.Channel <- payload:
		default:
			// Client too slow, skip
			h.log.Warnf("dropping event for slow SSE client %s", client.ID)
		}
	}
}

// HandleConnection serves one SSE connection until the client leaves.
func (h *SSEHub) HandleConnection(w http.ResponseWriter, r *http.Request) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		http.Error(w, "SSE not supported", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")

	client := &SSEClient{
		ID:      fmt.Sprintf("%p", r),
		Channel: make(chan []byte, 16),
	}

	h.mu.Lock()
	h.clients[client] = true
	h.mu.Unlock()
	h.metrics.SSEClients.Inc()
	h.log.Infof("SSE client connected: %s", client.ID)

	defer func() {
		h.mu.Lock()
		delete(h.clients, client)
		h.mu.Unlock()
		h.metrics.SSEClients.Dec()
		h.log.Infof("SSE client disconnected: %s", client.ID)
	}()

	// Initial keepalive so proxies commit to the stream.
	fmt.Fprintf(w, ": connected\n\n")
	flusher.Flush()

	for {
		select {
		case <-r.Context().Done():
			return
		case msg := <-client.Channel:
			fmt.Fprintf(w, "data: %s\n\n", msg)
			flusher.Flush()
		}
	}
}
