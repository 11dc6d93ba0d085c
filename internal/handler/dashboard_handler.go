package handler

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	apperrors "agentdesk/internal/errors"
	"agentdesk/internal/model"
	"agentdesk/internal/service"
)

type DashboardHandler struct {
	dashboard *service.DashboardService
}

type startCallRequest struct {
	TaskType string `json:"taskType"`
	Notes    string `json:"notes"`
}

func NewDashboardHandler(dashboard *service.DashboardService) *DashboardHandler {
	return &DashboardHandler{dashboard: dashboard}
}

type sessionAction func(ctx context.Context, account *model.Account) (*service.Session, *apperrors.APIError)

// respond runs a session action for the signed-in account and writes the
// resulting dashboard state.
func (h *DashboardHandler) respond(c *gin.Context, action sessionAction) {
	account, ok := currentAccount(c)
	if !ok {
		return
	}

	session, apiErr := action(c.Request.Context(), account)
	if apiErr != nil {
		writeError(c, apiErr)
		return
	}
	c.JSON(http.StatusOK, gin.H{"session": session})
}

func (h *DashboardHandler) GetSession(c *gin.Context) {
	h.respond(c, h.dashboard.Session)
}

func (h *DashboardHandler) ClockIn(c *gin.Context) {
	h.respond(c, h.dashboard.ClockIn)
}

func (h *DashboardHandler) ClockOut(c *gin.Context) {
	h.respond(c, h.dashboard.ClockOut)
}

func (h *DashboardHandler) StartBreak(c *gin.Context) {
	h.respond(c, h.dashboard.StartBreak)
}

func (h *DashboardHandler) EndBreak(c *gin.Context) {
	h.respond(c, h.dashboard.EndBreak)
}

func (h *DashboardHandler) StartCall(c *gin.Context) {
	var req startCallRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		invalidJSON(c)
		return
	}

	h.respond(c, func(ctx context.Context, account *model.Account) (*service.Session, *apperrors.APIError) {
		return h.dashboard.StartCall(ctx, account, req.TaskType, req.Notes)
	})
}

func (h *DashboardHandler) EndCall(c *gin.Context) {
	h.respond(c, h.dashboard.EndCall)
}
