package controllers

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/yeremiapane/waiter-dashboard/services"
	"github.com/yeremiapane/waiter-dashboard/utils"
)

type ActionLogController struct {
	Journal *services.ActionJournal
}

func NewActionLogController(journal *services.ActionJournal) *ActionLogController {
	return &ActionLogController{Journal: journal}
}

// GetActionLogs -> jurnal aksi terbaru
func (ac *ActionLogController) GetActionLogs(c *gin.Context) {
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "100"))

	logs, err := ac.Journal.List(limit)
	if err != nil {
		utils.RespondError(c, http.StatusInternalServerError, err)
		return
	}
	utils.RespondJSON(c, http.StatusOK, "Action logs", logs)
}
