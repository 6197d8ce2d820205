package controllers

import (
	"context"
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/yeremiapane/waiter-dashboard/services"
	"github.com/yeremiapane/waiter-dashboard/utils"
)

type DashboardController struct {
	Session *services.Session
}

func NewDashboardController(session *services.Session) *DashboardController {
	return &DashboardController{Session: session}
}

// statusFor memetakan error session ke HTTP status
func statusFor(err error) int {
	var perr *services.ProvisioningError
	switch {
	case errors.Is(err, services.ErrAliasRequired):
		return http.StatusBadRequest
	case errors.Is(err, services.ErrAliasInUse), errors.Is(err, services.ErrEntryNotPending):
		return http.StatusConflict
	case errors.Is(err, services.ErrTableNotFound), errors.Is(err, services.ErrEntryNotFound):
		return http.StatusNotFound
	case errors.Is(err, services.ErrSessionClosed):
		return http.StatusServiceUnavailable
	case errors.As(err, &perr):
		return http.StatusBadGateway
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return http.StatusGatewayTimeout
	}
	return http.StatusInternalServerError
}

// GetDashboard -> meja terurut + daftar aksi
func (dc *DashboardController) GetDashboard(c *gin.Context) {
	d, err := dc.Session.Snapshot(c.Request.Context())
	if err != nil {
		utils.RespondError(c, statusFor(err), err)
		return
	}
	utils.RespondJSON(c, http.StatusOK, "Dashboard", d)
}

func (dc *DashboardController) GetAllTables(c *gin.Context) {
	d, err := dc.Session.Snapshot(c.Request.Context())
	if err != nil {
		utils.RespondError(c, statusFor(err), err)
		return
	}
	utils.RespondJSON(c, http.StatusOK, "List of tables", d.Tables)
}

func (dc *DashboardController) GetTableByID(c *gin.Context) {
	view, err := dc.Session.Table(c.Request.Context(), c.Param("table_id"))
	if err != nil {
		utils.RespondError(c, statusFor(err), err)
		return
	}
	utils.RespondJSON(c, http.StatusOK, "Table detail", view)
}

func (dc *DashboardController) GetQueue(c *gin.Context) {
	d, err := dc.Session.Snapshot(c.Request.Context())
	if err != nil {
		utils.RespondError(c, statusFor(err), err)
		return
	}
	utils.RespondJSON(c, http.StatusOK, "Recent actions", d.Queue)
}

// CreateTable -> membuka meja baru
func (dc *DashboardController) CreateTable(c *gin.Context) {
	var req struct {
		Alias string `json:"alias" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.RespondError(c, http.StatusBadRequest, err)
		return
	}

	view, err := dc.Session.CreateTable(c.Request.Context(), req.Alias)
	if err != nil {
		utils.RespondError(c, statusFor(err), err)
		return
	}

	utils.InfoLogger.Printf("New table opened: %s (%s)", view.Alias, view.ID)
	utils.RespondJSON(c, http.StatusCreated, "Table opened", view)
}

// CloseTable -> menutup meja, id yang tidak dikenal tetap 200
func (dc *DashboardController) CloseTable(c *gin.Context) {
	tableID := c.Param("table_id")
	if err := dc.Session.CloseTable(c.Request.Context(), tableID); err != nil {
		utils.RespondError(c, statusFor(err), err)
		return
	}
	utils.RespondJSON(c, http.StatusOK, "Table closed", gin.H{"id": tableID})
}

func (dc *DashboardController) ConfirmEntry(c *gin.Context) {
	dc.staffAction(c, dc.Session.Confirm, "Confirmation sent")
}

func (dc *DashboardController) CancelEntry(c *gin.Context) {
	dc.staffAction(c, dc.Session.Cancel, "Cancellation sent")
}

func (dc *DashboardController) staffAction(c *gin.Context, send func(ctx context.Context, tableID, entryID string) error, message string) {
	tableID := c.Param("table_id")
	entryID := c.Param("entry_id")
	if err := send(c.Request.Context(), tableID, entryID); err != nil {
		utils.RespondError(c, statusFor(err), err)
		return
	}
	utils.RespondJSON(c, http.StatusAccepted, message, gin.H{"table_id": tableID, "entry_id": entryID})
}

func (dc *DashboardController) ReconnectTable(c *gin.Context) {
	tableID := c.Param("table_id")
	if err := dc.Session.Reconnect(c.Request.Context(), tableID); err != nil {
		utils.RespondError(c, statusFor(err), err)
		return
	}
	utils.RespondJSON(c, http.StatusAccepted, "Reconnecting", gin.H{"id": tableID})
}
