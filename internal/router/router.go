package router

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"agentdesk/internal/handler"
	"agentdesk/internal/middleware"
	"agentdesk/internal/service"
)

type Handlers struct {
	Auth      *handler.AuthHandler
	Dashboard *handler.DashboardHandler
	Admin     *handler.AdminHandler
}

func New(authService *service.AuthService, handlers Handlers, corsOrigins []string) *gin.Engine {
	engine := gin.New()
	engine.Use(
		middleware.RequestID(),
		middleware.Logger(),
		middleware.Recovery(),
		middleware.CORS(corsOrigins),
	)

	engine.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	api := engine.Group("/api")
	auth := api.Group("/auth")
	auth.POST("/register", handlers.Auth.Register)
	auth.POST("/login", handlers.Auth.Login)

	secured := api.Group("")
	secured.Use(middleware.Auth(authService))

	secured.GET("/dashboard", handlers.Dashboard.GetSession)

	attendance := secured.Group("/attendance")
	attendance.POST("/clock-in", handlers.Dashboard.ClockIn)
	attendance.POST("/clock-out", handlers.Dashboard.ClockOut)

	breaks := secured.Group("/breaks")
	breaks.POST("/start", handlers.Dashboard.StartBreak)
	breaks.POST("/end", handlers.Dashboard.EndBreak)

	calls := secured.Group("/calls")
	calls.POST("/start", handlers.Dashboard.StartCall)
	calls.POST("/end", handlers.Dashboard.EndCall)

	admin := secured.Group("/admin")
	admin.GET("/users", handlers.Admin.ListUsers)
	admin.GET("/summary", handlers.Admin.Summary)

	return engine
}
