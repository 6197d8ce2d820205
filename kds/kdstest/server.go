// Package kdstest menyediakan backend signaling palsu untuk test:
// alokasi meja via /new?alias= dan satu websocket per meja di /{id}?role=.
package kdstest

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/yeremiapane/waiter-dashboard/kds"
	"github.com/yeremiapane/waiter-dashboard/models"
)

// Received adalah command staff yang diterima backend
type Received struct {
	TableID string
	Role    string
	Command kds.Command
}

type peer struct {
	ws   *websocket.Conn
	role string
	mu   sync.Mutex
}

func (p *peer) write(data []byte) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.ws.WriteMessage(websocket.TextMessage, data)
}

type Server struct {
	*httptest.Server

	upgrader websocket.Upgrader
	commands chan Received

	mu            sync.Mutex
	aliases       map[string]string
	peers         map[string]*peer
	histories     map[string][]models.Entry
	failProvision bool
	provisioned   int
}

func NewServer() *Server {
	s := &Server{
		upgrader: websocket.Upgrader{
			CheckOrigin: func(r *http.Request) bool { return true },
		},
		commands:  make(chan Received, 64),
		aliases:   make(map[string]string),
		peers:     make(map[string]*peer),
		histories: make(map[string][]models.Entry),
	}
	s.Server = httptest.NewServer(http.HandlerFunc(s.route))
	return s
}

func (s *Server) WSURL() string {
	return "ws" + strings.TrimPrefix(s.URL, "http")
}

func (s *Server) route(w http.ResponseWriter, r *http.Request) {
	if r.URL.Path == "/new" {
		s.handleNew(w, r)
		return
	}
	s.handleChannel(w, r)
}

func (s *Server) handleNew(w http.ResponseWriter, r *http.Request) {
	alias := r.URL.Query().Get("alias")

	s.mu.Lock()
	fail := s.failProvision
	id := uuid.NewString()
	if !fail && alias != "" {
		s.aliases[id] = alias
		s.provisioned++
	}
	s.mu.Unlock()

	if fail {
		http.Error(w, "provisioning disabled", http.StatusInternalServerError)
		return
	}
	if alias == "" {
		http.Error(w, "alias required", http.StatusBadRequest)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(map[string]string{"uuid": id, "alias": alias})
}

func (s *Server) handleChannel(w http.ResponseWriter, r *http.Request) {
	tableID := strings.TrimPrefix(r.URL.Path, "/")

	s.mu.Lock()
	_, known := s.aliases[tableID]
	s.mu.Unlock()
	if !known {
		http.NotFound(w, r)
		return
	}

	ws, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		return
	}
	p := &peer{ws: ws, role: r.URL.Query().Get("role")}

	s.mu.Lock()
	s.peers[tableID] = p
	history := append([]models.Entry{}, s.histories[tableID]...)
	s.mu.Unlock()

	// seperti backend asli, kirim history saat join
	if data, err := json.Marshal(map[string]interface{}{"type": "history", "data": history}); err == nil {
		_ = p.write(data)
	}

	for {
		_, data, err := ws.ReadMessage()
		if err != nil {
			break
		}
		var cmd kds.Command
		if err := json.Unmarshal(data, &cmd); err != nil {
			continue
		}
		s.commands <- Received{TableID: tableID, Role: p.role, Command: cmd}
	}

	s.mu.Lock()
	if s.peers[tableID] == p {
		delete(s.peers, tableID)
	}
	s.mu.Unlock()
	ws.Close()
}

// FailProvisioning membuat /new mengembalikan 500
func (s *Server) FailProvisioning(fail bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.failProvision = fail
}

func (s *Server) Provisioned() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.provisioned
}

// SetHistory menentukan history yang dikirim saat meja (re)connect
func (s *Server) SetHistory(tableID string, history []models.Entry) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.histories[tableID] = history
}

func (s *Server) Connected(tableID string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.peers[tableID]
	return ok
}

func (s *Server) ConnectedCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.peers)
}

func (s *Server) Role(tableID string) string {
	s.mu.Lock()
	defer s.mu.Unlock()
	if p, ok := s.peers[tableID]; ok {
		return p.role
	}
	return ""
}

// WaitConnected menunggu sampai meja punya koneksi aktif
func (s *Server) WaitConnected(tableID string, timeout time.Duration) bool {
	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		if s.Connected(tableID) {
			return true
		}
		time.Sleep(5 * time.Millisecond)
	}
	return false
}

// Push mengirim frame {type, data} ke meja
func (s *Server) Push(tableID string, frameType kds.EventType, data interface{}) error {
	raw, err := json.Marshal(map[string]interface{}{"type": frameType, "data": data})
	if err != nil {
		return err
	}
	return s.PushRaw(tableID, raw)
}

func (s *Server) PushRaw(tableID string, raw []byte) error {
	s.mu.Lock()
	p, ok := s.peers[tableID]
	s.mu.Unlock()
	if !ok {
		return fmt.Errorf("table %s not connected", tableID)
	}
	return p.write(raw)
}

// Disconnect memutus koneksi dari sisi backend
func (s *Server) Disconnect(tableID string) {
	s.mu.Lock()
	p, ok := s.peers[tableID]
	delete(s.peers, tableID)
	s.mu.Unlock()
	if ok {
		p.ws.Close()
	}
}

func (s *Server) Commands() <-chan Received {
	return s.commands
}

// NextCommand menunggu command berikutnya, ok=false jika timeout
func (s *Server) NextCommand(timeout time.Duration) (Received, bool) {
	select {
	case r := <-s.commands:
		return r, true
	case <-time.After(timeout):
		return Received{}, false
	}
}
