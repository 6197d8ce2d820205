package kds

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/url"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/sirupsen/logrus"
	"github.com/yeremiapane/waiter-dashboard/utils"
)

// Channel adalah koneksi duplex untuk satu meja
type Channel interface {
	// Listen mulai membaca frame. onEvent dipanggil untuk setiap frame valid,
	// onClose sekali ketika pembacaan berhenti (err nil jika ditutup dari sisi kita).
	Listen(onEvent func(Event), onClose func(error))
	Send(cmd Command) error
	Close() error
}

// Dialer membuka Channel untuk satu meja
type Dialer interface {
	Open(ctx context.Context, tableID string) (Channel, error)
}

type WSDialer struct {
	BaseURL      string
	Role         string
	WriteTimeout time.Duration
	Dialer       *websocket.Dialer
}

func NewWSDialer(baseURL, role string, writeTimeout time.Duration) *WSDialer {
	return &WSDialer{
		BaseURL:      baseURL,
		Role:         role,
		WriteTimeout: writeTimeout,
		Dialer:       websocket.DefaultDialer,
	}
}

// ChannelURL -> {base}/{tableID}?role={role}
func ChannelURL(baseURL, tableID, role string) string {
	q := url.Values{}
	q.Set("role", role)
	return fmt.Sprintf("%s/%s?%s", baseURL, url.PathEscape(tableID), q.Encode())
}

func (d *WSDialer) Open(ctx context.Context, tableID string) (Channel, error) {
	target := ChannelURL(d.BaseURL, tableID, d.Role)
	ws, _, err := d.Dialer.DialContext(ctx, target, nil)
	if err != nil {
		return nil, fmt.Errorf("dial %s: %w", target, err)
	}
	return newConn(tableID, ws, d.WriteTimeout), nil
}

// Conn adalah Channel di atas gorilla websocket. Semua write lewat writeMu.
type Conn struct {
	tableID      string
	ws           *websocket.Conn
	writeTimeout time.Duration

	writeMu    sync.Mutex
	closed     bool
	listenOnce sync.Once
	done       chan struct{}
}

func newConn(tableID string, ws *websocket.Conn, writeTimeout time.Duration) *Conn {
	if writeTimeout <= 0 {
		writeTimeout = 5 * time.Second
	}
	return &Conn{
		tableID:      tableID,
		ws:           ws,
		writeTimeout: writeTimeout,
		done:         make(chan struct{}),
	}
}

func (c *Conn) Listen(onEvent func(Event), onClose func(error)) {
	c.listenOnce.Do(func() {
		go c.readLoop(onEvent, onClose)
	})
}

func (c *Conn) readLoop(onEvent func(Event), onClose func(error)) {
	log := utils.InfoLogger.WithField("table_id", c.tableID)
	for {
		_, data, err := c.ws.ReadMessage()
		if err != nil {
			if c.isClosed() {
				err = nil
			}
			if onClose != nil {
				onClose(err)
			}
			return
		}

		ev, err := ParseFrame(data)
		if err != nil {
			log.WithFields(logrus.Fields{"error": err}).Debug("Dropping frame")
			continue
		}
		onEvent(ev)
	}
}

// Send -> fire and forget. Setelah Close, Send tidak melakukan apa-apa.
func (c *Conn) Send(cmd Command) error {
	data, err := json.Marshal(cmd)
	if err != nil {
		return err
	}

	c.writeMu.Lock()
	defer c.writeMu.Unlock()
	if c.closed {
		return nil
	}
	if err := c.ws.SetWriteDeadline(time.Now().Add(c.writeTimeout)); err != nil {
		return err
	}
	return c.ws.WriteMessage(websocket.TextMessage, data)
}

// Close idempotent
func (c *Conn) Close() error {
	c.writeMu.Lock()
	if c.closed {
		c.writeMu.Unlock()
		return nil
	}
	c.closed = true
	close(c.done)
	msg := websocket.FormatCloseMessage(websocket.CloseNormalClosure, "")
	_ = c.ws.WriteControl(websocket.CloseMessage, msg, time.Now().Add(time.Second))
	c.writeMu.Unlock()

	err := c.ws.Close()
	if errors.Is(err, websocket.ErrCloseSent) {
		return nil
	}
	return err
}

func (c *Conn) isClosed() bool {
	select {
	case <-c.done:
		return true
	default:
		return false
	}
}
