package controllers_test

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/require"
	"github.com/yeremiapane/waiter-dashboard/controllers"
	"github.com/yeremiapane/waiter-dashboard/kds"
	"github.com/yeremiapane/waiter-dashboard/kds/kdstest"
	"github.com/yeremiapane/waiter-dashboard/models"
	"github.com/yeremiapane/waiter-dashboard/services"
	"github.com/yeremiapane/waiter-dashboard/utils"
)

type apiResponse struct {
	Status  bool            `json:"status"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data"`
}

type dashboardEnv struct {
	router  *gin.Engine
	backend *kdstest.Server
	session *services.Session
	hub     *kds.Hub
}

// setupDashboardRouter -> session asli yang terhubung ke backend palsu
func setupDashboardRouter(t *testing.T) *dashboardEnv {
	t.Helper()
	utils.InitLogger()
	gin.SetMode(gin.TestMode)

	backend := kdstest.NewServer()
	t.Cleanup(backend.Close)

	hub := kds.NewHub()
	session := services.NewSession(services.SessionConfig{
		Provisioner:      services.NewHTTPProvisioner(backend.URL, 2*time.Second),
		Dialer:           kds.NewWSDialer(backend.WSURL(), "waiter", time.Second),
		Notifier:         services.HubNotifier{Hub: hub},
		OnChange:         hub.BroadcastDashboard,
		AppURL:           "https://comanda.example.com",
		ProvisionTimeout: 2 * time.Second,
	})

	ctx, cancel := context.WithCancel(context.Background())
	stopped := make(chan struct{})
	go func() {
		defer close(stopped)
		_ = session.Run(ctx)
	}()
	t.Cleanup(func() {
		cancel()
		<-stopped
	})

	dashboardCtrl := controllers.NewDashboardController(session)
	kdsCtrl := controllers.NewKDSController(hub, session)

	router := gin.New()
	router.GET("/dashboard", dashboardCtrl.GetDashboard)
	router.GET("/tables", dashboardCtrl.GetAllTables)
	router.GET("/tables/:table_id", dashboardCtrl.GetTableByID)
	router.GET("/queue", dashboardCtrl.GetQueue)
	router.POST("/tables", dashboardCtrl.CreateTable)
	router.DELETE("/tables/:table_id", dashboardCtrl.CloseTable)
	router.POST("/tables/:table_id/reconnect", dashboardCtrl.ReconnectTable)
	router.POST("/tables/:table_id/entries/:entry_id/confirm", dashboardCtrl.ConfirmEntry)
	router.POST("/tables/:table_id/entries/:entry_id/cancel", dashboardCtrl.CancelEntry)
	router.GET("/ws/dashboard", kdsCtrl.DashboardSocket)

	return &dashboardEnv{router: router, backend: backend, session: session, hub: hub}
}

func performRequest(t *testing.T, r http.Handler, method, path string, body interface{}) (*httptest.ResponseRecorder, apiResponse) {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req, err := http.NewRequest(method, path, &buf)
	require.NoError(t, err)
	req.Header.Set("Content-Type", "application/json")

	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	var resp apiResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp), w.Body.String())
	return w, resp
}

// openTable membuka meja lewat HTTP dan menunggu backend melihat koneksinya
func (env *dashboardEnv) openTable(t *testing.T, alias string) models.TableView {
	t.Helper()
	w, resp := performRequest(t, env.router, http.MethodPost, "/tables", map[string]string{"alias": alias})
	require.Equal(t, http.StatusCreated, w.Code, resp.Message)

	var view models.TableView
	require.NoError(t, json.Unmarshal(resp.Data, &view))
	require.True(t, env.backend.WaitConnected(view.ID, 2*time.Second))
	return view
}

func (env *dashboardEnv) table(t *testing.T, id string) models.TableView {
	t.Helper()
	view, err := env.session.Table(context.Background(), id)
	require.NoError(t, err)
	return view
}

func (env *dashboardEnv) queue(t *testing.T) []models.GlobalQueueEntry {
	t.Helper()
	d, err := env.session.Snapshot(context.Background())
	require.NoError(t, err)
	return d.Queue
}
