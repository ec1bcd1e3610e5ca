package controllers

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"

	"schoolbus_tracker/internal/config"
	"schoolbus_tracker/internal/metrics"
	"schoolbus_tracker/internal/models"
	"schoolbus_tracker/internal/tracker"
)

var (
	runRegistry  *tracker.RunRegistry
	runCollector *metrics.Collector
)

// InitRunTracker wires the shared registry (and optional metrics collector)
// into the run handlers. Called once from main before routes are served.
func InitRunTracker(reg *tracker.RunRegistry, collector *metrics.Collector) {
	runRegistry = reg
	runCollector = collector
}

// statusForRunError maps core validation failures onto HTTP statuses.
func statusForRunError(err error) int {
	switch {
	case errors.Is(err, tracker.ErrRouteNotFound), errors.Is(err, tracker.ErrRunNotFound):
		return http.StatusNotFound
	case errors.Is(err, tracker.ErrInvalidStop),
		errors.Is(err, tracker.ErrUnknownStudent),
		errors.Is(err, tracker.ErrInvalidDelay),
		errors.Is(err, tracker.ErrInvalidMode):
		return http.StatusBadRequest
	case errors.Is(err, tracker.ErrOtpMismatch):
		return http.StatusUnauthorized
	case errors.Is(err, tracker.ErrAlreadyResolved), errors.Is(err, tracker.ErrModeChangeUnsafe):
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}

func abortRunError(c *gin.Context, err error) {
	c.JSON(statusForRunError(err), gin.H{"error": err.Error()})
}

// isDispatchRole reports whether the caller may see verification codes.
func isDispatchRole(c *gin.Context) bool {
	role, _ := c.MustGet("role").(string)
	return role == "dispatcher" || role == "admin"
}

// authorizeDriverForRoute ensures a driver only starts runs on the route
// their vehicle is assigned to. Dispatchers and admins pass unconditionally.
func authorizeDriverForRoute(c *gin.Context, routeID uint) bool {
	role, _ := c.MustGet("role").(string)
	if role != "driver" {
		return true
	}

	userID := uint(c.MustGet("user_id").(float64))
	var driver models.Driver
	if err := config.DB.Where("user_id = ?", userID).First(&driver).Error; err != nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Driver profile not found for the authenticated user."})
		return false
	}
	var vehicle models.Vehicle
	if err := config.DB.Where("driver_id = ? AND route_id = ?", driver.ID, routeID).First(&vehicle).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			c.JSON(http.StatusForbidden, gin.H{"error": "Your vehicle is not assigned to this route."})
		} else {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to verify vehicle assignment."})
		}
		return false
	}
	return true
}

// codeSheet is the per-run OTP listing handed to the dispatcher at run
// start. Drivers never receive it.
type codeSheet struct {
	StudentID string `json:"student_id"`
	Name      string `json:"name"`
	StopID    string `json:"stop_id"`
	Code      string `json:"code"`
}

// StartRun creates a run for a route+mode from the current catalog state.
func StartRun(c *gin.Context) {
	var input struct {
		RouteID uint   `json:"route_id" binding:"required"`
		Mode    string `json:"mode" binding:"required"`
	}
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid input: " + err.Error()})
		return
	}

	mode, err := tracker.ParseMode(input.Mode)
	if err != nil {
		abortRunError(c, err)
		return
	}

	var route models.Route
	if err := config.DB.Preload("Stops").Preload("Students").Preload("Vehicles").First(&route, input.RouteID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			abortRunError(c, tracker.ErrRouteNotFound)
		} else {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Database error: " + err.Error()})
		}
		return
	}

	if !authorizeDriverForRoute(c, route.ID) {
		return
	}

	def, err := routeDefFromModel(route)
	if err != nil {
		logrus.WithError(err).WithField("route_id", route.ID).Error("StartRun: catalog route does not convert")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Route catalog is inconsistent: " + err.Error()})
		return
	}
	// Refresh the registry's definition so the run sees current stops and
	// roster.
	if err := runRegistry.AddRoute(def); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	run, err := runRegistry.StartRun(def.ID, mode)
	if err != nil {
		abortRunError(c, err)
		return
	}

	resp := gin.H{"run": run.Snapshot()}
	if isDispatchRole(c) {
		var sheet []codeSheet
		for _, s := range def.Stops {
			entries, _ := run.RosterAt(s.ID)
			for _, e := range entries {
				sheet = append(sheet, codeSheet{StudentID: e.StudentID, Name: e.Name, StopID: e.StopID, Code: e.Code})
			}
		}
		resp["codes"] = sheet
	}

	logrus.WithFields(logrus.Fields{
		"run_id":   run.ID(),
		"route_id": def.ID,
		"mode":     mode,
	}).Info("run started")
	c.JSON(http.StatusCreated, resp)
}

func getRun(c *gin.Context) (*tracker.RouteRun, bool) {
	run, err := runRegistry.Run(c.Param("id"))
	if err != nil {
		abortRunError(c, err)
		return nil, false
	}
	return run, true
}

// GetRun returns a whole-run snapshot.
func GetRun(c *gin.Context) {
	run, ok := getRun(c)
	if !ok {
		return
	}
	c.JSON(http.StatusOK, gin.H{"run": run.Snapshot()})
}

// ListRunsForRoute returns summaries of every run started for a route.
func ListRunsForRoute(c *gin.Context) {
	routeID := c.Param("id")
	runs := runRegistry.RunsForRoute(routeID)

	summaries := make([]gin.H, 0, len(runs))
	for _, run := range runs {
		snap := run.Snapshot()
		summaries = append(summaries, gin.H{
			"run_id":       snap.RunID,
			"mode":         snap.Mode,
			"started_at":   snap.StartedAt,
			"current_stop": snap.CurrentStop,
			"completed":    snap.Completed,
		})
	}
	c.JSON(http.StatusOK, gin.H{"runs": summaries})
}

// GetRunProgress returns per-stop counts: the selected stop's by default, an
// explicit stop's with ?stop=.
func GetRunProgress(c *gin.Context) {
	run, ok := getRun(c)
	if !ok {
		return
	}
	stopID := c.Query("stop")
	if stopID == "" {
		c.JSON(http.StatusOK, gin.H{"stop": run.SelectedStop(), "progress": run.Progress()})
		return
	}
	p, err := run.ProgressAt(stopID)
	if err != nil {
		abortRunError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"stop": stopID, "progress": p})
}

// GetRosterAtStop lists the students bound to one stop with their live
// status. Verification codes are included for dispatch roles only.
func GetRosterAtStop(c *gin.Context) {
	run, ok := getRun(c)
	if !ok {
		return
	}
	stopID := c.Param("stopId")
	entries, err := run.RosterAt(stopID)
	if err != nil {
		abortRunError(c, err)
		return
	}

	withCodes := isDispatchRole(c)
	students := make([]gin.H, 0, len(entries))
	for _, e := range entries {
		rec, err := run.Record(e.StudentID)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
			return
		}
		entry := gin.H{
			"student_id":  e.StudentID,
			"name":        e.Name,
			"status":      rec.Status,
			"last_action": rec.LastAction,
		}
		if withCodes {
			entry["code"] = e.Code
		}
		students = append(students, entry)
	}
	c.JSON(http.StatusOK, gin.H{"stop": stopID, "students": students})
}

// GetStudentRecord returns one student's check-in record for a run.
func GetStudentRecord(c *gin.Context) {
	run, ok := getRun(c)
	if !ok {
		return
	}
	rec, err := run.Record(c.Param("studentId"))
	if err != nil {
		abortRunError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"record": rec})
}

// SelectStop moves the run's viewing context to another stop.
func SelectStop(c *gin.Context) {
	run, ok := getRun(c)
	if !ok {
		return
	}
	var input struct {
		StopID string `json:"stop_id" binding:"required"`
	}
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid input: " + err.Error()})
		return
	}
	if err := run.SelectStop(input.StopID); err != nil {
		abortRunError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"stop": input.StopID, "progress": run.Progress()})
}

// SetRunMode relabels the run as pickup or drop. Refused once any record is
// resolved unless force is set.
func SetRunMode(c *gin.Context) {
	run, ok := getRun(c)
	if !ok {
		return
	}
	var input struct {
		Mode  string `json:"mode" binding:"required"`
		Force bool   `json:"force"`
	}
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid input: " + err.Error()})
		return
	}
	if err := run.SetMode(tracker.Mode(input.Mode), input.Force); err != nil {
		abortRunError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"mode": run.Mode()})
}

// VerifyCode checks a submitted verification code. It never transitions
// status; boarding is a separate command.
func VerifyCode(c *gin.Context) {
	run, ok := getRun(c)
	if !ok {
		return
	}
	var input struct {
		StudentID string `json:"student_id" binding:"required"`
		Code      string `json:"code" binding:"required"`
	}
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid input: " + err.Error()})
		return
	}
	if err := run.VerifyCode(input.StudentID, input.Code); err != nil {
		if errors.Is(err, tracker.ErrOtpMismatch) && runCollector != nil {
			runCollector.OTPFailures.Inc()
		}
		abortRunError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"verified": true})
}

// CheckInStudent marks one student boarded (pickup) or dropped (drop).
func CheckInStudent(c *gin.Context) {
	run, ok := getRun(c)
	if !ok {
		return
	}
	var input struct {
		StudentID string `json:"student_id" binding:"required"`
	}
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid input: " + err.Error()})
		return
	}
	if err := run.MarkCompleted(input.StudentID); err != nil {
		abortRunError(c, err)
		return
	}
	rec, _ := run.Record(input.StudentID)
	c.JSON(http.StatusOK, gin.H{
		"record":   rec,
		"action":   run.Mode().ActionLabel(),
		"progress": run.Progress(),
	})
}

// MarkStudentAbsent marks one student absent for the run.
func MarkStudentAbsent(c *gin.Context) {
	run, ok := getRun(c)
	if !ok {
		return
	}
	var input struct {
		StudentID string `json:"student_id" binding:"required"`
	}
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid input: " + err.Error()})
		return
	}
	if err := run.MarkAbsent(input.StudentID); err != nil {
		abortRunError(c, err)
		return
	}
	rec, _ := run.Record(input.StudentID)
	c.JSON(http.StatusOK, gin.H{"record": rec, "progress": run.Progress()})
}

// CheckInAllAtStop resolves every pending student at a stop in one action.
func CheckInAllAtStop(c *gin.Context) {
	run, ok := getRun(c)
	if !ok {
		return
	}
	stopID := c.Param("stopId")
	done, err := run.MarkAllAtStop(stopID)
	if err != nil {
		abortRunError(c, err)
		return
	}
	p, _ := run.ProgressAt(stopID)
	c.JSON(http.StatusOK, gin.H{
		"stop":     stopID,
		"resolved": done,
		"count":    len(done),
		"progress": p,
	})
}

// ReportDelay shifts a stop's ETA and every downstream ETA by the given
// minutes. Calling it again compounds.
func ReportDelay(c *gin.Context) {
	run, ok := getRun(c)
	if !ok {
		return
	}
	stopID := c.Param("stopId")
	var input struct {
		Minutes int `json:"minutes" binding:"required"`
	}
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid input: " + err.Error()})
		return
	}
	if err := run.AdvanceDelay(stopID, input.Minutes); err != nil {
		abortRunError(c, err)
		return
	}

	logrus.WithFields(logrus.Fields{
		"run_id":  run.ID(),
		"stop_id": stopID,
		"minutes": input.Minutes,
	}).Info("delay reported")
	c.JSON(http.StatusOK, gin.H{"run": run.Snapshot()})
}

// ListTrackedRoutes lists the registry's route definitions: the catalog
// subset runs can currently be started from.
func ListTrackedRoutes(c *gin.Context) {
	defs := runRegistry.Routes()
	out := make([]gin.H, 0, len(defs))
	for _, def := range defs {
		out = append(out, gin.H{
			"route_id":  def.ID,
			"name":      def.Name,
			"direction": def.Direction,
			"vehicle":   def.VehicleID,
			"stops":     len(def.Stops),
			"students":  len(def.Roster),
		})
	}
	c.JSON(http.StatusOK, gin.H{"routes": out})
}

// RunEventHistory returns the persisted audit trail for one run.
func RunEventHistory(c *gin.Context) {
	runID := c.Param("id")
	limit := 200
	if v := c.Query("limit"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 && n < 1000 {
			limit = n
		}
	}
	var events []models.RunEvent
	if err := config.DB.Where("run_id = ?", runID).Order("id asc").Limit(limit).Find(&events).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Error fetching run events: " + err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"events": events})
}
