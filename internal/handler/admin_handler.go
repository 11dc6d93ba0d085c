package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"agentdesk/internal/service"
)

type AdminHandler struct {
	dashboard *service.DashboardService
}

func NewAdminHandler(dashboard *service.DashboardService) *AdminHandler {
	return &AdminHandler{dashboard: dashboard}
}

func (h *AdminHandler) ListUsers(c *gin.Context) {
	account, ok := currentAccount(c)
	if !ok {
		return
	}

	users, apiErr := h.dashboard.Users(c.Request.Context(), account)
	if apiErr != nil {
		writeError(c, apiErr)
		return
	}
	c.JSON(http.StatusOK, gin.H{"users": users})
}

// Summary serves GET /api/admin/summary?date=YYYY-MM-DD&userId=<id>.
func (h *AdminHandler) Summary(c *gin.Context) {
	account, ok := currentAccount(c)
	if !ok {
		return
	}

	report, apiErr := h.dashboard.Summary(c.Request.Context(), account, c.Query("date"), c.Query("userId"))
	if apiErr != nil {
		writeError(c, apiErr)
		return
	}
	c.JSON(http.StatusOK, report)
}
