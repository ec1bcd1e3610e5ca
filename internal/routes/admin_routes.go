package routes

import (
	"schoolbus_tracker/internal/controllers"
	"schoolbus_tracker/internal/middleware"

	"github.com/gin-gonic/gin"
)

func AdminRoutes(r *gin.Engine) {
	admin := r.Group("admin")
	admin.Use(middleware.RequireAuthWithRole("admin"))
	{
		admin.GET("/vehicles", controllers.ListVehicles)
		admin.GET("/drivers", controllers.ListDrivers)
		admin.GET("/drivers/:id", controllers.GetDriver)
		admin.PUT("/drivers/:id", controllers.UpdateDriver)
		admin.DELETE("/drivers/:id", controllers.DeleteDriver)
	}
}
