package router

import (
	"time"

	"github.com/gin-contrib/gzip"
	"github.com/gin-gonic/gin"
	"github.com/yeremiapane/waiter-dashboard/controllers"
	"github.com/yeremiapane/waiter-dashboard/kds"
	"github.com/yeremiapane/waiter-dashboard/middlewares"
	"github.com/yeremiapane/waiter-dashboard/services"
)

type Options struct {
	Session    *services.Session
	Hub        *kds.Hub
	Journal    *services.ActionJournal // nil jika jurnal dimatikan
	CORSOrigin string
}

func SetupRouter(opts Options) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())

	r.Use(middlewares.SecurityHeaders())
	r.Use(middlewares.CORSMiddlewares(opts.CORSOrigin))
	r.Use(middlewares.LoggerMiddleware())
	// history meja bisa panjang, websocket tidak dikompres
	r.Use(gzip.Gzip(gzip.DefaultCompression, gzip.WithExcludedPaths([]string{"/ws/"})))

	dashboardCtrl := controllers.NewDashboardController(opts.Session)
	kdsCtrl := controllers.NewKDSController(opts.Hub, opts.Session)

	r.GET("/ping", func(c *gin.Context) {
		c.JSON(200, gin.H{"message": "pong"})
	})

	// ----------------------------------------------------------------
	//                      DISPLAY (read-only)
	// ----------------------------------------------------------------
	r.GET("/dashboard", dashboardCtrl.GetDashboard)
	r.GET("/tables", dashboardCtrl.GetAllTables)
	r.GET("/tables/:table_id", dashboardCtrl.GetTableByID)
	r.GET("/queue", dashboardCtrl.GetQueue)

	// ----------------------------------------------------------------
	//                      STAFF ACTIONS
	// ----------------------------------------------------------------
	staff := r.Group("/tables")
	staff.Use(middlewares.NewRateLimiter(20, 1).RateLimit())
	{
		// buka meja memanggil backend, dibatasi lagi
		staff.POST("", middlewares.NewStrictRateLimiter(time.Second, 5), dashboardCtrl.CreateTable)
		staff.DELETE("/:table_id", dashboardCtrl.CloseTable)
		staff.POST("/:table_id/reconnect", dashboardCtrl.ReconnectTable)
		staff.POST("/:table_id/entries/:entry_id/confirm", dashboardCtrl.ConfirmEntry)
		staff.POST("/:table_id/entries/:entry_id/cancel", dashboardCtrl.CancelEntry)
	}

	if opts.Journal != nil {
		actionLogCtrl := controllers.NewActionLogController(opts.Journal)
		r.GET("/action-logs", actionLogCtrl.GetActionLogs)
	}

	// WebSocket untuk push dashboard ke browser staff
	r.GET("/ws/dashboard", kdsCtrl.DashboardSocket)

	return r
}
