package routes

import (
	"schoolbus_tracker/internal/controllers"
	"schoolbus_tracker/internal/middleware"

	"github.com/gin-gonic/gin"
)

// RunRoutes exposes the live run state machine. Drivers work runs from the
// bus; dispatchers and admins can drive the same endpoints from the console.
func RunRoutes(r *gin.Engine) {
	run := r.Group("/runs")
	run.Use(middleware.RequireAuthWithAnyRole("driver", "dispatcher", "admin"))
	{
		run.POST("", controllers.StartRun)
		run.GET("/:id", controllers.GetRun)
		run.GET("/:id/events", controllers.RunEventHistory)
		run.GET("/:id/progress", controllers.GetRunProgress)
		run.GET("/:id/stops/:stopId/roster", controllers.GetRosterAtStop)
		run.GET("/:id/students/:studentId", controllers.GetStudentRecord)
		run.POST("/:id/stop", controllers.SelectStop)
		run.POST("/:id/mode", controllers.SetRunMode)
		run.POST("/:id/verify", controllers.VerifyCode)
		run.POST("/:id/check-in", controllers.CheckInStudent)
		run.POST("/:id/absent", controllers.MarkStudentAbsent)
		run.POST("/:id/stops/:stopId/check-in-all", controllers.CheckInAllAtStop)
		run.POST("/:id/stops/:stopId/delay", controllers.ReportDelay)
	}

	tracking := r.Group("/tracking")
	tracking.Use(middleware.RequireAuthWithAnyRole("driver", "dispatcher", "admin"))
	{
		tracking.GET("/routes", controllers.ListTrackedRoutes)
		tracking.GET("/routes/:id/runs", controllers.ListRunsForRoute)
	}
}
