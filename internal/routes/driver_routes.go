package routes

import (
	"schoolbus_tracker/internal/controllers"
	"schoolbus_tracker/internal/middleware"

	"github.com/gin-gonic/gin"
)

func DriverRoutes(r *gin.Engine) {
	driver := r.Group("/driver")
	driver.Use(middleware.RequireAuthWithRole("driver"))
	{
		driver.GET("/vehicle", controllers.GetAuthenticatedDriverVehicle)
		driver.PATCH("/vehicles/:id/service", controllers.SetServiceStatus)
	}
}
