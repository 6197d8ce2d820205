package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/yeremiapane/waiter-dashboard/config"
	"github.com/yeremiapane/waiter-dashboard/database"
	"github.com/yeremiapane/waiter-dashboard/kds"
	"github.com/yeremiapane/waiter-dashboard/models"
	"github.com/yeremiapane/waiter-dashboard/router"
	"github.com/yeremiapane/waiter-dashboard/services"
	"github.com/yeremiapane/waiter-dashboard/utils"
)

func main() {
	utils.InitLogger()
	cfg := config.Load()
	if err := utils.SetLogLevel(cfg.LogLevel); err != nil {
		utils.ErrorLogger.Errorf("Invalid LOG_LEVEL %q: %v", cfg.LogLevel, err)
	}
	if cfg.GinMode == "release" {
		gin.SetMode(gin.ReleaseMode)
	}

	var journal *services.ActionJournal
	if cfg.JournalEnabled {
		db, err := config.InitDB(cfg)
		if err != nil {
			utils.ErrorLogger.Fatalf("Failed to connect to database: %v", err)
		}
		if err := database.Migrate(db); err != nil {
			utils.ErrorLogger.Fatalf("Failed to AutoMigrate: %v", err)
		}
		journal = services.NewActionJournal(db, 512)
		journal.Start()
		defer journal.Stop()
	}

	hub := kds.NewHub()
	sessionCfg := services.SessionConfig{
		Provisioner:      services.NewHTTPProvisioner(cfg.APIURL, cfg.ProvisionTimeout),
		Dialer:           kds.NewWSDialer(cfg.WSURL, cfg.StaffRole, cfg.WriteTimeout),
		Notifier:         services.Notifiers{services.LogNotifier{}, services.HubNotifier{Hub: hub}},
		OnChange:         func(d models.Dashboard) { hub.BroadcastDashboard(d) },
		AppURL:           cfg.AppURL,
		ProvisionTimeout: cfg.ProvisionTimeout,
	}
	if journal != nil {
		sessionCfg.Journal = journal
	}
	session := services.NewSession(sessionCfg)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	sessionDone := make(chan struct{})
	go func() {
		defer close(sessionDone)
		if err := session.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
			utils.ErrorLogger.Errorf("Session stopped: %v", err)
		}
	}()

	srv := &http.Server{
		Addr: ":" + cfg.Port,
		Handler: router.SetupRouter(router.Options{
			Session:    session,
			Hub:        hub,
			Journal:    journal,
			CORSOrigin: cfg.CORSOrigin,
		}),
	}

	go func() {
		utils.InfoLogger.Printf("Listening on port %s", cfg.Port)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			utils.ErrorLogger.Fatal(err)
		}
	}()

	<-ctx.Done()
	utils.InfoLogger.Println("Shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		utils.ErrorLogger.Errorf("HTTP shutdown: %v", err)
	}
	<-sessionDone
}
