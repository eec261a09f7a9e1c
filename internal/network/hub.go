// Package network pushes condition changes to connected coaches over
// WebSocket and exposes the coach HTTP API.
package network

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"github.com/MRamiBalles/kairo-condition/internal/events"
	"github.com/MRamiBalles/kairo-condition/internal/platform/logger"
	"github.com/MRamiBalles/kairo-condition/internal/platform/metrics"
)

// Message types sent to clients.
const (
	MsgTypeEvent = "event"
	MsgTypeReply = "reply"
	MsgTypeError = "error"
)

// Message is the envelope of every outgoing frame.
type Message struct {
	Type      string      `json:"type"`
	Timestamp int64       `json:"timestamp"`
	AthleteID string      `json:"athlete_id,omitempty"`
	Payload   interface{} `json:"payload"`
}

type outgoing struct {
	athleteID string
	data      []byte
}

type direct struct {
	client *Client
	data   []byte
}

// Hub maintains the set of active clients and broadcasts journal events to them.
type Hub struct {
	clients    map[*Client]bool
	broadcast  chan outgoing
	reply      chan direct
	register   chan *Client
	unregister chan *Client
	done       chan struct{}
	mu         sync.Mutex
	logger     *logger.Logger
	metrics    *metrics.Collector // optional
	maxClients int
	sendBuffer int
}

// NewHub initializes a new WebSocket Hub.
func NewHub(log *logger.Logger, m *metrics.Collector, maxClients, broadcastBuffer, sendBuffer int) *Hub {
	if sendBuffer < 1 {
		sendBuffer = 1
	}
	return &Hub{
		broadcast:  make(chan outgoing, broadcastBuffer),
		reply:      make(chan direct, broadcastBuffer),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		done:       make(chan struct{}),
		clients:    make(map[*Client]bool),
		logger:     log,
		metrics:    m,
		maxClients: maxClients,
		sendBuffer: sendBuffer,
	}
}

// Run starts the Hub's main loop to handle client connections and broadcasts.
func (h *Hub) Run(ctx context.Context) {
	defer close(h.done)
	for {
		select {
		case <-ctx.Done():
			h.logger.Info("WebSocket Hub shutting down.")
			h.mu.Lock()
			for client := range h.clients {
				h.drop(client)
			}
			h.mu.Unlock()
			return
		case client := <-h.register:
			h.mu.Lock()
			if h.maxClients > 0 && len(h.clients) >= h.maxClients {
				h.mu.Unlock()
				h.logger.Warnf("Rejecting WebSocket client: %d connections", h.maxClients)
				close(client.send)
				continue
			}
			h.clients[client] = true
			h.mu.Unlock()
			h.recordConnection(1)
			h.logger.Infof("WebSocket client connected (athlete %q)", client.athleteID)
		case client := <-h.unregister:
			h.mu.Lock()
			if _, ok := h.clients[client]; ok {
				h.drop(client)
				h.logger.Info("WebSocket client disconnected")
			}
			h.mu.Unlock()
		case msg := <-h.reply:
			h.mu.Lock()
			if h.clients[msg.client] {
				select {
				case msg.client.send <- msg.data:
					h.recordOut()
				default:
					h.drop(msg.client)
				}
			}
			h.mu.Unlock()
		case msg := <-h.broadcast:
			h.mu.Lock()
			for client := range h.clients {
				if !client.watches(msg.athleteID) {
					continue
				}
				select {
				case client.send <- msg.data:
					h.recordOut()
				default:
					// Slow client, cut it loose
					h.drop(client)
				}
			}
			h.mu.Unlock()
		}
	}
}

// Join registers a client. It returns false once the hub has stopped.
func (h *Hub) Join(client *Client) bool {
	select {
	case h.register <- client:
		return true
	case <-h.done:
		return false
	}
}

// Leave unregisters a client.
func (h *Hub) Leave(client *Client) {
	select {
	case h.unregister <- client:
	case <-h.done:
	}
}

// Reply queues a frame for a single client.
func (h *Hub) Reply(client *Client, data []byte) {
	select {
	case h.reply <- direct{client: client, data: data}:
	case <-h.done:
	}
}

// drop removes a client. Caller holds mu.
func (h *Hub) drop(client *Client) {
	delete(h.clients, client)
	close(client.send)
	h.recordConnection(-1)
}

// ClientCount returns the number of connected clients.
func (h *Hub) ClientCount() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.clients)
}

// BroadcastEvent serializes a journal event and queues it for every client
// watching the athlete.
func (h *Hub) BroadcastEvent(ctx context.Context, event events.GameEvent) {
	data, err := json.Marshal(Message{
		Type:      MsgTypeEvent,
		Timestamp: event.Timestamp.Unix(),
		AthleteID: event.AthleteID,
		Payload:   event,
	})
	if err != nil {
		h.logger.Errorf("Failed to serialize GameEvent for WebSocket broadcast: %v", err)
		return
	}
	select {
	case h.broadcast <- outgoing{athleteID: event.AthleteID, data: data}:
	case <-ctx.Done():
	case <-h.done:
	}
}

// Forward subscribes to the journal and broadcasts every new event until ctx is done.
func (h *Hub) Forward(ctx context.Context, eventLog *events.EventLog, buffer int) {
	ch, cancel := eventLog.Subscribe(buffer)
	defer cancel()

	for {
		select {
		case <-ctx.Done():
			return
		case e, ok := <-ch:
			if !ok {
				return
			}
			h.BroadcastEvent(ctx, e)
		}
	}
}

func encode(msgType, athleteID string, payload interface{}) []byte {
	data, _ := json.Marshal(Message{
		Type:      msgType,
		Timestamp: time.Now().Unix(),
		AthleteID: athleteID,
		Payload:   payload,
	})
	return data
}

func (h *Hub) recordConnection(delta int64) {
	if h.metrics != nil {
		h.metrics.RecordWSConnection(delta)
	}
}

func (h *Hub) recordOut() {
	if h.metrics != nil {
		h.metrics.RecordWSMessage(false)
	}
}

func (h *Hub) recordIn() {
	if h.metrics != nil {
		h.metrics.RecordWSMessage(true)
	}
}

func (h *Hub) recordError() {
	if h.metrics != nil {
		h.metrics.RecordWSError()
	}
}
