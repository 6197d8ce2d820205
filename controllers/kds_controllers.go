package controllers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/yeremiapane/waiter-dashboard/kds"
	"github.com/yeremiapane/waiter-dashboard/services"
	"github.com/yeremiapane/waiter-dashboard/utils"
)

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool {
		return true // dashboard dibuka dari jaringan lokal restoran
	},
}

type KDSController struct {
	Hub     *kds.Hub
	Session *services.Session
}

func NewKDSController(hub *kds.Hub, session *services.Session) *KDSController {
	return &KDSController{Hub: hub, Session: session}
}

// DashboardSocket -> endpoint WebSocket untuk browser staff
func (kc *KDSController) DashboardSocket(c *gin.Context) {
	role := c.DefaultQuery("role", "staff")

	ws, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		return
	}

	kc.Hub.RegisterClient(ws, role)
	utils.InfoLogger.Printf("Dashboard client connected (role=%s)", role)

	// snapshot awal supaya client tidak menunggu perubahan berikutnya
	if snapshot, err := kc.Session.Snapshot(c.Request.Context()); err == nil {
		if err := kc.Hub.SendDashboard(ws, snapshot); err != nil {
			utils.InfoLogger.Debugf("Initial snapshot not delivered: %v", err)
		}
	}

	for {
		if _, _, err := ws.ReadMessage(); err != nil {
			break
		}
	}

	kc.Hub.UnregisterClient(ws)
}
