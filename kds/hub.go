package kds

import (
	"encoding/json"
	"sync"
	"time"

	"github.com/MazaSebastian/DamafAPP/models"
	"github.com/MazaSebastian/DamafAPP/services"
	"github.com/MazaSebastian/DamafAPP/utils"
	"github.com/gorilla/websocket"
)

// Event types
const (
	EventKitchenUpdate   = "kitchen_update"
	EventOrderCreated    = "order_created"
	EventTicketGenerated = "ticket_generated"
)

const (
	writeWait = 5 * time.Second
	// sendBuffer is how many events a display may lag behind before it is dropped.
	sendBuffer = 32
)

type Message struct {
	Event string      `json:"event"`
	Data  interface{} `json:"data"`
}

type client struct {
	conn *websocket.Conn
	role string
	send chan []byte
}

// Hub holds the connected kitchen displays (chef, staff, admin) and pushes
// order events to all of them. Each display has its own writer goroutine so a
// slow one never holds up Broadcast.
type Hub struct {
	clients map[*websocket.Conn]*client
	mutex   sync.Mutex
}

func NewHub() *Hub {
	return &Hub{clients: make(map[*websocket.Conn]*client)}
}

func (h *Hub) Register(conn *websocket.Conn, role string) {
	c := &client{conn: conn, role: role, send: make(chan []byte, sendBuffer)}
	h.mutex.Lock()
	h.clients[conn] = c
	h.mutex.Unlock()
	go h.writePump(c)
}

// Unregister releases the connection. Safe to call twice.
func (h *Hub) Unregister(conn *websocket.Conn) {
	h.mutex.Lock()
	defer h.mutex.Unlock()
	h.dropLocked(conn)
}

func (h *Hub) dropLocked(conn *websocket.Conn) {
	c, ok := h.clients[conn]
	if !ok {
		return
	}
	delete(h.clients, conn)
	close(c.send)
	conn.Close()
}

func (h *Hub) writePump(c *client) {
	for data := range c.send {
		_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
		if err := c.conn.WriteMessage(websocket.TextMessage, data); err != nil {
			utils.ErrorLogger.Warnf("Error writing to %s client: %v", c.role, err)
			h.Unregister(c.conn)
			return
		}
	}
}

func (h *Hub) ClientCount() int {
	h.mutex.Lock()
	defer h.mutex.Unlock()
	return len(h.clients)
}

func (h *Hub) OrderCreated(order models.Order) {
	h.Broadcast(Message{Event: EventOrderCreated, Data: order})
}

// OrderTransitioned tells displays whether the order enters or leaves their queue.
func (h *Hub) OrderTransitioned(ev services.TransitionEvent) {
	h.Broadcast(Message{Event: EventKitchenUpdate, Data: ev})
}

func (h *Hub) TicketGenerated(ticket models.Ticket) {
	h.Broadcast(Message{Event: EventTicketGenerated, Data: ticket})
}

// Broadcast queues msg for every client without waiting on the network.
// A client whose buffer is full is dropped.
func (h *Hub) Broadcast(msg Message) {
	data, err := json.Marshal(msg)
	if err != nil {
		utils.ErrorLogger.Errorf("Error marshaling message: %v", err)
		return
	}

	h.mutex.Lock()
	defer h.mutex.Unlock()

	for conn, c := range h.clients {
		select {
		case c.send <- data:
		default:
			utils.ErrorLogger.Warnf("Dropping %s client: %s backlog full", c.role, msg.Event)
			h.dropLocked(conn)
		}
	}
	utils.InfoLogger.Debugf("Broadcast %s to %d clients", msg.Event, len(h.clients))
}
