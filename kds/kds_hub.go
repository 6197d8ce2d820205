package kds

import (
	"encoding/json"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/yeremiapane/waiter-dashboard/models"
	"github.com/yeremiapane/waiter-dashboard/utils"
)

// Dashboard push events
const (
	EventDashboardUpdate = "dashboard_update"
	EventOrderReceived   = "order_received"
)

type Message struct {
	Event string      `json:"event"`
	Data  interface{} `json:"data"`
}

type OrderReceived struct {
	Alias string       `json:"alias"`
	Entry models.Entry `json:"entry"`
}

// Hub menampung semua browser staff yang membuka dashboard
type Hub struct {
	clients      map[*websocket.Conn]string // conn -> role
	mutex        sync.Mutex
	writeTimeout time.Duration
}

func NewHub() *Hub {
	return &Hub{
		clients:      make(map[*websocket.Conn]string),
		writeTimeout: 5 * time.Second,
	}
}

// RegisterClient -> menambahkan connection ke set dengan role
func (h *Hub) RegisterClient(conn *websocket.Conn, role string) {
	h.mutex.Lock()
	defer h.mutex.Unlock()
	h.clients[conn] = role
}

// UnregisterClient -> melepaskan connection
func (h *Hub) UnregisterClient(conn *websocket.Conn) {
	h.mutex.Lock()
	defer h.mutex.Unlock()
	if _, ok := h.clients[conn]; !ok {
		return
	}
	delete(h.clients, conn)
	conn.Close()
}

func (h *Hub) ClientCount() int {
	h.mutex.Lock()
	defer h.mutex.Unlock()
	return len(h.clients)
}

// BroadcastDashboard -> kirim snapshot dashboard terbaru
func (h *Hub) BroadcastDashboard(d models.Dashboard) {
	h.Broadcast(Message{
		Event: EventDashboardUpdate,
		Data:  d,
	})
}

// BroadcastOrderReceived -> bunyi notifikasi di browser staff
func (h *Hub) BroadcastOrderReceived(alias string, entry models.Entry) {
	h.Broadcast(Message{
		Event: EventOrderReceived,
		Data:  OrderReceived{Alias: alias, Entry: entry},
	})
}

// SendDashboard -> snapshot hanya untuk satu client, misal saat baru connect
func (h *Hub) SendDashboard(conn *websocket.Conn, d models.Dashboard) error {
	data, err := json.Marshal(Message{Event: EventDashboardUpdate, Data: d})
	if err != nil {
		return err
	}

	h.mutex.Lock()
	defer h.mutex.Unlock()
	if _, ok := h.clients[conn]; !ok {
		return nil
	}
	_ = conn.SetWriteDeadline(time.Now().Add(h.writeTimeout))
	return conn.WriteMessage(websocket.TextMessage, data)
}

func (h *Hub) Broadcast(msg Message) {
	data, err := json.Marshal(msg)
	if err != nil {
		utils.ErrorLogger.Errorf("Error marshaling message: %v", err)
		return
	}

	h.mutex.Lock()
	defer h.mutex.Unlock()

	for conn, role := range h.clients {
		_ = conn.SetWriteDeadline(time.Now().Add(h.writeTimeout))
		if err := conn.WriteMessage(websocket.TextMessage, data); err != nil {
			utils.InfoLogger.Printf("Dropping %s client: %v", role, err)
			delete(h.clients, conn)
			conn.Close()
		}
	}
}
