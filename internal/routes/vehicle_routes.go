package routes

import (
	"schoolbus_tracker/internal/controllers"
	"schoolbus_tracker/internal/middleware"

	"github.com/gin-gonic/gin"
)

func VehicleRoutes(r *gin.Engine) {
	vehicle := r.Group("/vehicle")
	vehicle.Use(middleware.RequireAuthWithAnyRole("dispatcher", "admin"))
	{
		vehicle.POST("/", controllers.CreateVehicle)
		vehicle.GET("/", controllers.ListVehicles)
		vehicle.PUT("/:id", controllers.UpdateVehicle)
		vehicle.DELETE("/:id", controllers.DeleteVehicle)
	}
}
