package main

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/yeremiapane/waiter-dashboard/database"
	"github.com/yeremiapane/waiter-dashboard/kds"
	"github.com/yeremiapane/waiter-dashboard/kds/kdstest"
	"github.com/yeremiapane/waiter-dashboard/models"
	"github.com/yeremiapane/waiter-dashboard/router"
	"github.com/yeremiapane/waiter-dashboard/services"
	"github.com/yeremiapane/waiter-dashboard/utils"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

func TestMain(m *testing.M) {
	utils.InitLogger()
	gin.SetMode(gin.TestMode)
	os.Exit(m.Run())
}

type response struct {
	Status  bool            `json:"status"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data"`
}

// TestEndToEndIntegration menguji flow utama:
// 1. Buka meja -> backend alokasi id, koneksi tersambung
// 2. Meja mengirim service call -> muncul di meja dan daftar aksi
// 3. Staff confirm -> command terkirim, backend membalas confirmation
// 4. Tutup meja -> closeTable terkirim, entry meja hilang dari daftar aksi
// 5. Jurnal mencatat semuanya
func TestEndToEndIntegration(t *testing.T) {
	backend := kdstest.NewServer()
	defer backend.Close()

	db := setupTestDB(t)
	journal := services.NewActionJournal(db, 64)
	journal.Start()

	hub := kds.NewHub()
	session := services.NewSession(services.SessionConfig{
		Provisioner: services.NewHTTPProvisioner(backend.URL, 2*time.Second),
		Dialer:      kds.NewWSDialer(backend.WSURL(), "waiter", time.Second),
		Notifier:    services.Notifiers{services.LogNotifier{}, services.HubNotifier{Hub: hub}},
		Journal:     journal,
		OnChange:    hub.BroadcastDashboard,
		AppURL:      "http://localhost:5173",
	})

	ctx, cancel := context.WithCancel(context.Background())
	stopped := make(chan struct{})
	go func() {
		defer close(stopped)
		_ = session.Run(ctx)
	}()

	r := router.SetupRouter(router.Options{Session: session, Hub: hub, Journal: journal, CORSOrigin: "*"})

	// 1. buka meja
	w, resp := call(t, r, http.MethodPost, "/tables", `{"alias":"Mesa 1"}`)
	require.Equal(t, http.StatusCreated, w.Code, resp.Message)
	var mesa models.TableView
	require.NoError(t, json.Unmarshal(resp.Data, &mesa))
	assert.Equal(t, "http://localhost:5173/join/"+mesa.ID, mesa.JoinURL)
	require.True(t, backend.WaitConnected(mesa.ID, 2*time.Second))

	w, resp = call(t, r, http.MethodPost, "/tables", `{"alias":"Terraza"}`)
	require.Equal(t, http.StatusCreated, w.Code, resp.Message)
	var terraza models.TableView
	require.NoError(t, json.Unmarshal(resp.Data, &terraza))
	require.True(t, backend.WaitConnected(terraza.ID, 2*time.Second))

	// 2. service call dari Mesa 1
	require.NoError(t, backend.Push(mesa.ID, kds.EventMessage, map[string]string{"id": "e1", "action": "service"}))
	require.NoError(t, backend.Push(terraza.ID, kds.EventMessage, map[string]string{"id": "t1", "action": "bill"}))
	require.NoError(t, backend.PushRaw(mesa.ID, []byte(`{"type":"message","data":{"id":"bad","action":"dance"}}`)))

	d := waitDashboard(t, r, func(d models.Dashboard) bool { return len(d.Queue) == 2 })
	assert.Equal(t, []string{"t1", "e1"}, []string{d.Queue[0].ID, d.Queue[1].ID})
	assert.True(t, d.Tables[0].HasPending)
	assert.True(t, d.Tables[1].HasPending)

	// 3. confirm
	w, _ = call(t, r, http.MethodPost, "/tables/"+mesa.ID+"/entries/e1/confirm", "")
	require.Equal(t, http.StatusAccepted, w.Code)
	cmd, ok := backend.NextCommand(2 * time.Second)
	require.True(t, ok)
	assert.Equal(t, kds.ConfirmCommand("e1"), cmd.Command)

	require.NoError(t, backend.Push(mesa.ID, kds.EventConfirmation, map[string]string{"id": "e1", "status": "confirmed"}))
	d = waitDashboard(t, r, func(d models.Dashboard) bool {
		return len(d.Queue) == 2 && d.Queue[1].Status == models.StatusConfirmed
	})
	// Terraza masih pending, jadi di depan
	assert.Equal(t, "Terraza", d.Tables[0].Alias)
	assert.Equal(t, "Mesa 1", d.Tables[1].Alias)
	assert.False(t, d.Tables[1].HasPending)

	// 4. tutup meja
	w, _ = call(t, r, http.MethodDelete, "/tables/"+mesa.ID, "")
	require.Equal(t, http.StatusOK, w.Code)
	cmd, ok = backend.NextCommand(2 * time.Second)
	require.True(t, ok)
	assert.Equal(t, kds.CommandCloseTable, cmd.Command.Type)

	d = waitDashboard(t, r, func(d models.Dashboard) bool { return len(d.Tables) == 1 })
	require.Len(t, d.Queue, 1)
	assert.Equal(t, "Terraza", d.Queue[0].Alias)

	// 5. jurnal
	cancel()
	<-stopped
	journal.Stop()

	w, resp = call(t, r, http.MethodGet, "/action-logs", "")
	require.Equal(t, http.StatusOK, w.Code)
	var logs []models.ActionLog
	require.NoError(t, json.Unmarshal(resp.Data, &logs))
	kinds := make(map[string]int)
	for _, l := range logs {
		kinds[l.Kind]++
	}
	assert.Equal(t, 2, kinds[models.LogTableOpened])
	assert.Equal(t, 2, kinds[models.LogEntryReceived])
	assert.Equal(t, 1, kinds[models.LogCommandSent])
	assert.Equal(t, 1, kinds[models.LogEntryConfirmed])
	assert.Equal(t, 1, kinds[models.LogTableClosed])

	// session sudah berhenti
	w, _ = call(t, r, http.MethodGet, "/dashboard", "")
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
}

func TestPing(t *testing.T) {
	session := services.NewSession(services.SessionConfig{})
	r := router.SetupRouter(router.Options{Session: session, Hub: kds.NewHub()})

	req, _ := http.NewRequest(http.MethodGet, "/ping", nil)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"message":"pong"}`, w.Body.String())
	assert.Equal(t, "nosniff", w.Header().Get("X-Content-Type-Options"))

	// tanpa jurnal route tidak didaftarkan
	req, _ = http.NewRequest(http.MethodGet, "/action-logs", nil)
	w = httptest.NewRecorder()
	r.ServeHTTP(w, req)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

// setupTestDB -> migrasi jurnal di SQLite in-memory
func setupTestDB(t *testing.T) *gorm.DB {
	db, err := gorm.Open(sqlite.Open("file:integration?mode=memory&cache=shared"), &gorm.Config{})
	require.NoError(t, err)
	require.NoError(t, database.Migrate(db))
	return db
}

func call(t *testing.T, r http.Handler, method, path, body string) (*httptest.ResponseRecorder, response) {
	t.Helper()
	req, err := http.NewRequest(method, path, bytes.NewBufferString(body))
	require.NoError(t, err)
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	var resp response
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp), w.Body.String())
	return w, resp
}

func waitDashboard(t *testing.T, r http.Handler, cond func(models.Dashboard) bool) models.Dashboard {
	t.Helper()
	var d models.Dashboard
	require.Eventually(t, func() bool {
		req := httptest.NewRequest(http.MethodGet, "/dashboard", nil)
		w := httptest.NewRecorder()
		r.ServeHTTP(w, req)

		var resp response
		if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
			return false
		}
		d = models.Dashboard{}
		return json.Unmarshal(resp.Data, &d) == nil && cond(d)
	}, 2*time.Second, 20*time.Millisecond)
	return d
}
