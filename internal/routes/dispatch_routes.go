package routes

import (
	"schoolbus_tracker/internal/controllers"
	"schoolbus_tracker/internal/middleware"

	"github.com/gin-gonic/gin"
)

// DispatchRoutes covers the route catalog managed from the dispatcher console,
// plus the live monitoring websocket. The socket does its own token check
// because browsers cannot set headers on websocket upgrades.
func DispatchRoutes(r *gin.Engine) {
	dispatch := r.Group("/dispatch")
	dispatch.Use(middleware.RequireAuthWithAnyRole("dispatcher", "admin"))
	{
		dispatch.POST("/routes", controllers.CreateRoute)
		dispatch.GET("/routes", controllers.ListRoutes)
		dispatch.GET("/routes/:id", controllers.GetRoute)
		dispatch.PUT("/routes/:id", controllers.UpdateRoute)
		dispatch.DELETE("/routes/:id", controllers.DeleteRoute)
		dispatch.PATCH("/routes/:id/stops", controllers.ReplaceStops)
		dispatch.PATCH("/routes/:id/students", controllers.AssignStudents)
		dispatch.GET("/routes/:id/vehicles", controllers.ListVehiclesForRoute)
	}

	ws := r.Group("/ws")
	{
		ws.GET("/runs", controllers.HandleDispatchSocket)
	}
}
