package routes

import (
	ginlogger "github.com/gin-contrib/logger"
	"github.com/gin-gonic/gin"
)

func SetupRouter() *gin.Engine {
	r := gin.New()

	// Recovery and request logging apply to every group below
	r.Use(gin.Recovery())
	r.Use(ginlogger.SetLogger())

	AuthRoutes(r)
	DriverRoutes(r)
	VehicleRoutes(r)
	AdminRoutes(r)
	DispatchRoutes(r)
	RunRoutes(r)

	return r
}
