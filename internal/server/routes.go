package server

import (
	"github.com/survivornet/beacon/backend/internal/server/middleware"
	"github.com/survivornet/beacon/backend/internal/server/routes"

	"github.com/labstack/echo/v4"
)

func RegisterRoutes(e *echo.Echo) {
	// Health check route
	e.GET("/health", func(c echo.Context) error {
		return c.String(200, "OK")
	})

	apiRoutes := e.Group("/api", middleware.AuthMiddleware)

	// Broadcast routes
	apiRoutes.POST("/broadcasts", routes.CreateBroadcastHandler, middleware.RequirePermission("broadcast.create"))
	apiRoutes.GET("/broadcasts/:id", routes.GetBroadcastHandler, middleware.RequireAnyPermission("broadcast.view", "broadcast.search"))
	apiRoutes.POST("/broadcasts/search", routes.SearchBroadcastsHandler, middleware.RequirePermission("broadcast.search"))
}
