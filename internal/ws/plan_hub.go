package ws

import (
	"context"
	"encoding/json"
	"strings"
	"sync/atomic"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/industrieschule/vertretungsplan/internal/metrics"
	"github.com/industrieschule/vertretungsplan/internal/models"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = (pongWait * 9) / 10
	sendBufferSize = 256
)

// Event types pushed to live plan clients.
const (
	DayCreated    = "day.created"
	DayUpdated    = "day.updated"
	DayDeleted    = "day.deleted"
	LessonCreated = "lesson.created"
	LessonUpdated = "lesson.updated"
	LessonDeleted = "lesson.deleted"
)

// PlanEvent describes one change to the schedule. Classes lists the classes
// the change touches; an empty list concerns everyone.
type PlanEvent struct {
	Type    string    `json:"type"`
	DayID   string    `json:"day_id"`
	Date    string    `json:"date"`
	Label   string    `json:"label"`
	Classes []string  `json:"classes,omitempty"`
	Payload any       `json:"payload,omitempty"`
	At      time.Time `json:"at"`
}

func (e PlanEvent) concerns(klasse string) bool {
	if klasse == "" || len(e.Classes) == 0 {
		return true
	}
	for _, c := range e.Classes {
		if strings.EqualFold(c, klasse) || strings.EqualFold(c, models.AllClasses) {
			return true
		}
	}
	return false
}

type planMessage struct {
	event   PlanEvent
	payload []byte
}

// PlanHub fans schedule changes out to websocket clients.
type PlanHub struct {
	register   chan *planClient
	unregister chan *planClient
	broadcast  chan planMessage
	clients    map[*planClient]struct{}
	done       chan struct{}
	count      atomic.Int64

	log     *zap.Logger
	metrics *metrics.Metrics
}

func NewPlanHub(log *zap.Logger, m *metrics.Metrics) *PlanHub {
	if log == nil {
		log = zap.NewNop()
	}
	return &PlanHub{
		register:   make(chan *planClient),
		unregister: make(chan *planClient),
		broadcast:  make(chan planMessage, sendBufferSize),
		clients:    make(map[*planClient]struct{}),
		done:       make(chan struct{}),
		log:        log,
		metrics:    m,
	}
}

// Run serves the hub until ctx is done, then disconnects every client.
func (h *PlanHub) Run(ctx context.Context) {
	defer close(h.done)
	for {
		select {
		case <-ctx.Done():
			for client := range h.clients {
				h.remove(client)
			}
			h.log.Info("live plan hub stopped")
			return
		case client := <-h.register:
			h.clients[client] = struct{}{}
			h.count.Add(1)
			h.metrics.SubscriberConnected()
		case client := <-h.unregister:
			if _, ok := h.clients[client]; ok {
				h.remove(client)
			}
		case msg := <-h.broadcast:
			for client := range h.clients {
				if !msg.event.concerns(client.klasse) {
					continue
				}
				select {
				case client.send <- msg.payload:
				default:
					h.log.Warn("dropping slow live plan client", zap.String("klasse", client.klasse))
					h.metrics.SubscriberDropped()
					h.remove(client)
				}
			}
		}
	}
}

func (h *PlanHub) remove(client *planClient) {
	delete(h.clients, client)
	close(client.send)
	h.count.Add(-1)
	h.metrics.SubscriberGone()
}

// Subscribers returns the number of connected clients.
func (h *PlanHub) Subscribers() int {
	if h == nil {
		return 0
	}
	return int(h.count.Load())
}

// Publish queues an event for delivery. It is a no-op on a nil or stopped hub.
func (h *PlanHub) Publish(event PlanEvent) {
	if h == nil {
		return
	}
	if event.At.IsZero() {
		event.At = time.Now().UTC()
	}
	data, err := json.Marshal(event)
	if err != nil {
		h.log.Error("failed to marshal plan event", zap.String("type", event.Type), zap.Error(err))
		return
	}
	select {
	case h.broadcast <- planMessage{event: event, payload: data}:
	case <-h.done:
	}
}

type planClient struct {
	hub    *PlanHub
	conn   *websocket.Conn
	send   chan []byte
	klasse string
}

func newPlanClient(hub *PlanHub, conn *websocket.Conn, klasse string) *planClient {
	return &planClient{
		hub:    hub,
		conn:   conn,
		send:   make(chan []byte, sendBufferSize),
		klasse: klasse,
	}
}

func (c *planClient) readPump() {
	defer func() {
		select {
		case c.hub.unregister <- c:
		case <-c.hub.done:
		}
		c.conn.Close()
	}()
	c.conn.SetReadLimit(512)
	c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		c.conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})
	for {
		if _, _, err := c.conn.ReadMessage(); err != nil {
			break
		}
	}
}

func (c *planClient) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()
	for {
		select {
		case msg, ok := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			w, err := c.conn.NextWriter(websocket.TextMessage)
			if err != nil {
				return
			}
			if _, err := w.Write(msg); err != nil {
				return
			}
			if err := w.Close(); err != nil {
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
