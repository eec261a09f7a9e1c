package network

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/gorilla/websocket"
)

const (
	// Time allowed to write a message to the peer.
	writeWait = 10 * time.Second
	// Time allowed to read the next pong message from the peer.
	pongWait = 60 * time.Second
	// Send pings to peer with this period. Must be less than pongWait.
	pingPeriod = (pongWait * 9) / 10
	// Maximum message size allowed from peer.
	maxMessageSize = 512
	// Time allowed for one command to run.
	commandTimeout = 5 * time.Second
)

// CommandHandler runs a text command for an athlete and returns the reply.
type CommandHandler interface {
	Dispatch(ctx context.Context, athleteID, line string) (string, error)
}

// CommandMessage is an incoming command from the frontend.
// A frame that is not JSON is taken as a bare command for the bound athlete.
type CommandMessage struct {
	AthleteID string `json:"athlete_id"`
	Command   string `json:"command"`
}

// Client is one WebSocket connection. A client bound to an athlete only
// receives that athlete's events; an unbound client receives everything.
type Client struct {
	hub       *Hub
	conn      *websocket.Conn
	send      chan []byte
	athleteID string
	handler   CommandHandler
	limiter   *rateLimiter
}

// NewClient creates a new WebSocket client and returns it.
func NewClient(hub *Hub, conn *websocket.Conn, athleteID string, handler CommandHandler, perSecond int) *Client {
	return &Client{
		hub:       hub,
		conn:      conn,
		send:      make(chan []byte, hub.sendBuffer),
		athleteID: athleteID,
		handler:   handler,
		limiter:   newRateLimiter(perSecond),
	}
}

func (c *Client) watches(athleteID string) bool {
	return c.athleteID == "" || c.athleteID == athleteID
}

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin:     func(r *http.Request) bool { return true },
}

// ServeWS upgrades the request and runs the client until it disconnects.
// ?athlete=<id> binds the connection to one athlete.
func ServeWS(hub *Hub, handler CommandHandler, perSecond int) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			hub.logger.Errorf("WebSocket upgrade failed: %v", err)
			hub.recordError()
			return
		}

		client := NewClient(hub, conn, r.URL.Query().Get("athlete"), handler, perSecond)
		if !hub.Join(client) {
			conn.Close()
			return
		}
		go client.WritePump()
		client.ReadPump()
	}
}

// ReadPump reads commands from the connection and answers them.
func (c *Client) ReadPump() {
	defer func() {
		c.hub.Leave(c)
		c.conn.Close()
	}()
	c.conn.SetReadLimit(maxMessageSize)
	c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		c.conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})
	for {
		_, message, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				c.hub.logger.Warnf("WebSocket read error: %v", err)
				c.hub.recordError()
			}
			break
		}
		c.hub.recordIn()
		c.handle(message)
	}
}

func (c *Client) handle(message []byte) {
	msg := CommandMessage{AthleteID: c.athleteID}
	if err := json.Unmarshal(message, &msg); err != nil {
		msg = CommandMessage{AthleteID: c.athleteID, Command: string(message)}
	}
	if msg.AthleteID == "" {
		msg.AthleteID = c.athleteID
	}
	if c.athleteID != "" && msg.AthleteID != c.athleteID {
		c.hub.Reply(c, encode(MsgTypeError, msg.AthleteID, "connection is bound to "+c.athleteID))
		return
	}
	if msg.AthleteID == "" || strings.TrimSpace(msg.Command) == "" {
		c.hub.Reply(c, encode(MsgTypeError, "", "need athlete_id and command"))
		return
	}

	if !c.limiter.Allow(time.Now()) {
		c.hub.logger.Warn("Rate limit exceeded for client commands on " + msg.AthleteID)
		c.hub.Reply(c, encode(MsgTypeError, msg.AthleteID, "slow down"))
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), commandTimeout)
	defer cancel()
	reply, err := c.handler.Dispatch(ctx, msg.AthleteID, msg.Command)
	if err != nil {
		c.hub.Reply(c, encode(MsgTypeError, msg.AthleteID, err.Error()))
		return
	}
	c.hub.Reply(c, encode(MsgTypeReply, msg.AthleteID, reply))
}

// WritePump pumps messages from the hub to the websocket connection.
func (c *Client) WritePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()
	for {
		select {
		case message, ok := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				// The hub closed the channel.
				c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, message); err != nil {
				return
			}
		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

// rateLimiter allows n commands per one-second window. n <= 0 disables it.
type rateLimiter struct {
	mu     sync.Mutex
	n      int
	window time.Time
	count  int
}

func newRateLimiter(n int) *rateLimiter {
	return &rateLimiter{n: n}
}

func (l *rateLimiter) Allow(now time.Time) bool {
	if l.n <= 0 {
		return true
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	if now.Sub(l.window) >= time.Second {
		l.window = now
		l.count = 0
	}
	if l.count >= l.n {
		return false
	}
	l.count++
	return true
}
