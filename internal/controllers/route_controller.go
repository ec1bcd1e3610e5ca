package controllers

import (
	"encoding/binary"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"

	"schoolbus_tracker/internal/config"
	"schoolbus_tracker/internal/models"
	"schoolbus_tracker/internal/tracker"

	"github.com/twpayne/go-geom"
	gjson "github.com/twpayne/go-geom/encoding/geojson"
	"github.com/twpayne/go-geom/encoding/wkb"
)

// RouteResponse mirrors models.Route but carries Geometry as a GeoJSON
// string for API output.
type RouteResponse struct {
	ID          uint             `json:"ID"`
	CreatedAt   time.Time        `json:"CreatedAt"`
	UpdatedAt   time.Time        `json:"UpdatedAt"`
	DeletedAt   gorm.DeletedAt   `json:"DeletedAt,omitempty"`
	Name        string           `json:"name"`
	Description string           `json:"description"`
	Direction   string           `json:"direction"`
	Geometry    string           `json:"geometry"`
	Stops       []models.Stop    `json:"stops"`
	Students    []models.Student `json:"students"`
	Vehicles    []models.Vehicle `json:"vehicles"`
}

// toRouteResponse converts a models.Route to a RouteResponse
func toRouteResponse(route models.Route) RouteResponse {
	jsonGeom, _ := convertWKBToGeoJSON(route.Geometry)
	return RouteResponse{
		ID:          route.ID,
		CreatedAt:   route.CreatedAt,
		UpdatedAt:   route.UpdatedAt,
		DeletedAt:   route.DeletedAt,
		Name:        route.Name,
		Description: route.Description,
		Direction:   route.Direction,
		Geometry:    jsonGeom,
		Stops:       route.Stops,
		Students:    route.Students,
		Vehicles:    route.Vehicles,
	}
}

// parseAndConvertGeometry parses a GeoJSON string into a geom.T and returns WKB bytes
func parseAndConvertGeometry(raw string) ([]byte, error) {
	if raw == "" {
		return nil, nil
	}
	var g geom.T
	err := gjson.Unmarshal([]byte(raw), &g)
	if err != nil {
		return nil, err
	}
	return wkb.Marshal(g, binary.LittleEndian)
}

// convertWKBToGeoJSON converts WKB bytes into a GeoJSON string
func convertWKBToGeoJSON(wkbBytes []byte) (string, error) {
	if len(wkbBytes) == 0 {
		return "", nil
	}
	g, err := wkb.Unmarshal(wkbBytes)
	if err != nil {
		return "", err
	}
	b, err := gjson.Marshal(g)
	if err != nil {
		return "", err
	}
	return string(b), nil
}

type stopInput struct {
	Name      string  `json:"name" binding:"required"`
	Seq       int     `json:"seq" binding:"required"`
	Scheduled string  `json:"scheduled" binding:"required"`
	Lat       float64 `json:"lat"`
	Lng       float64 `json:"lng"`
}

// CreateRoute creates a route with its ordered stops and optional GeoJSON
// LineString path. Dispatcher/admin only (enforced by route group).
func CreateRoute(c *gin.Context) {
	var input struct {
		Name        string      `json:"name" binding:"required"`
		Description string      `json:"description"`
		Direction   string      `json:"direction"`
		Geometry    string      `json:"geometry"`
		Stops       []stopInput `json:"stops"`
	}

	if err := c.ShouldBindJSON(&input); err != nil {
		logrus.WithError(err).Warn("CreateRoute: invalid input payload")
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid input: " + err.Error()})
		return
	}

	// Scheduled times must parse before anything is written.
	for _, s := range input.Stops {
		if _, err := tracker.ParseTimeOfDay(s.Scheduled); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": fmt.Sprintf("stop %q: %v", s.Name, err)})
			return
		}
	}

	tx := config.DB.Begin()
	if tx.Error != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to start transaction"})
		return
	}

	wkbGeom, err := parseAndConvertGeometry(input.Geometry)
	if err != nil {
		tx.Rollback()
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid geometry: " + err.Error()})
		return
	}

	route := models.Route{Name: input.Name, Description: input.Description, Direction: input.Direction, Geometry: wkbGeom}
	if err := tx.Create(&route).Error; err != nil {
		tx.Rollback()
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Create route failed: " + err.Error()})
		return
	}

	for _, s := range input.Stops {
		stop := models.Stop{Name: s.Name, Seq: s.Seq, Scheduled: s.Scheduled, Lat: s.Lat, Lng: s.Lng, RouteID: route.ID}
		if err := tx.Create(&stop).Error; err != nil {
			tx.Rollback()
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Create stop failed: " + err.Error()})
			return
		}
	}

	if err := tx.Commit().Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Transaction commit failed: " + err.Error()})
		return
	}

	config.DB.Preload("Stops").Preload("Students").Preload("Vehicles").First(&route, route.ID)
	c.JSON(http.StatusCreated, gin.H{"route": toRouteResponse(route)})
}

// ReplaceStops replaces the stop list of an existing route.
func ReplaceStops(c *gin.Context) {
	rID, _ := strconv.ParseUint(c.Param("id"), 10, 64)

	var route models.Route
	if err := config.DB.First(&route, rID).Error; err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Route not found"})
		return
	}

	var input struct {
		Stops []stopInput `json:"stops" binding:"required"`
	}
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	for _, s := range input.Stops {
		if _, err := tracker.ParseTimeOfDay(s.Scheduled); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": fmt.Sprintf("stop %q: %v", s.Name, err)})
			return
		}
	}

	tx := config.DB.Begin()
	tx.Where("route_id=?", route.ID).Delete(&models.Stop{})
	for _, s := range input.Stops {
		stop := models.Stop{Name: s.Name, Seq: s.Seq, Scheduled: s.Scheduled, Lat: s.Lat, Lng: s.Lng, RouteID: route.ID}
		if err := tx.Create(&stop).Error; err != nil {
			tx.Rollback()
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Create stop failed: " + err.Error()})
			return
		}
	}
	tx.Commit()

	config.DB.Preload("Stops").Preload("Students").Preload("Vehicles").First(&route, route.ID)
	c.JSON(http.StatusOK, gin.H{"route": toRouteResponse(route)})
}

// AssignStudents binds students to stops on a route.
func AssignStudents(c *gin.Context) {
	rID, _ := strconv.ParseUint(c.Param("id"), 10, 64)

	var route models.Route
	if err := config.DB.Preload("Stops").First(&route, rID).Error; err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Route not found"})
		return
	}

	var input struct {
		Students []struct {
			Name          string `json:"name" binding:"required"`
			Grade         string `json:"grade"`
			GuardianName  string `json:"guardian_name"`
			GuardianPhone string `json:"guardian_phone"`
			StopID        uint   `json:"stop_id" binding:"required"`
		} `json:"students" binding:"required"`
	}
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	stopOnRoute := make(map[uint]bool, len(route.Stops))
	for _, s := range route.Stops {
		stopOnRoute[s.ID] = true
	}

	tx := config.DB.Begin()
	for _, st := range input.Students {
		if !stopOnRoute[st.StopID] {
			tx.Rollback()
			c.JSON(http.StatusBadRequest, gin.H{"error": fmt.Sprintf("stop %d is not on route %d", st.StopID, route.ID)})
			return
		}
		student := models.Student{
			Name:          st.Name,
			Grade:         st.Grade,
			GuardianName:  st.GuardianName,
			GuardianPhone: st.GuardianPhone,
			RouteID:       route.ID,
			StopID:        st.StopID,
		}
		if err := tx.Create(&student).Error; err != nil {
			tx.Rollback()
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Create student failed: " + err.Error()})
			return
		}
	}
	if err := tx.Commit().Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Transaction commit failed: " + err.Error()})
		return
	}

	config.DB.Preload("Stops").Preload("Students").Preload("Vehicles").First(&route, route.ID)
	c.JSON(http.StatusOK, gin.H{"route": toRouteResponse(route)})
}

// ListRoutes returns all routes with stops, students and vehicles.
func ListRoutes(c *gin.Context) {
	var routes []models.Route
	config.DB.Preload("Stops").Preload("Students").Preload("Vehicles").Find(&routes)

	var routeResponses []RouteResponse
	for _, r := range routes {
		routeResponses = append(routeResponses, toRouteResponse(r))
	}
	c.JSON(http.StatusOK, gin.H{"routes": routeResponses})
}

// GetRoute returns a single route with its stops, students and vehicles.
func GetRoute(c *gin.Context) {
	rID, _ := strconv.ParseUint(c.Param("id"), 10, 64)

	var route models.Route
	if err := config.DB.Preload("Stops").Preload("Students").Preload("Vehicles").First(&route, rID).Error; err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Route not found"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"route": toRouteResponse(route)})
}

// UpdateRoute handles updating an existing route.
func UpdateRoute(c *gin.Context) {
	rID, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil {
		logrus.WithError(err).Warn("UpdateRoute: Invalid route ID in parameter")
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid route ID"})
		return
	}

	var existingRoute models.Route
	if err := config.DB.First(&existingRoute, rID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "Route not found"})
		} else {
			logrus.WithError(err).Error("UpdateRoute: Database error fetching route")
			c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		}
		return
	}

	var input struct {
		Name        *string `json:"name"`
		Description *string `json:"description"`
		Direction   *string `json:"direction"`
		Geometry    *string `json:"geometry"`
	}
	if err := c.ShouldBindJSON(&input); err != nil {
		logrus.WithError(err).Warn("UpdateRoute: Invalid input payload")
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	if input.Name != nil {
		existingRoute.Name = *input.Name
	}
	if input.Description != nil {
		existingRoute.Description = *input.Description
	}
	if input.Direction != nil {
		existingRoute.Direction = *input.Direction
	}
	if input.Geometry != nil {
		if *input.Geometry == "" {
			existingRoute.Geometry = nil
		} else {
			wkbGeom, err := parseAndConvertGeometry(*input.Geometry)
			if err != nil {
				c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid geometry: " + err.Error()})
				return
			}
			existingRoute.Geometry = wkbGeom
		}
	}

	if err := config.DB.Save(&existingRoute).Error; err != nil {
		logrus.WithError(err).Error("UpdateRoute: Failed to save updated route")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Update failed: " + err.Error()})
		return
	}

	c.JSON(http.StatusOK, gin.H{"route": toRouteResponse(existingRoute)})
}

// DeleteRoute removes a route, its stops and its roster.
func DeleteRoute(c *gin.Context) {
	rID, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid route ID"})
		return
	}

	var route models.Route
	if err := config.DB.First(&route, rID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "Route not found"})
		} else {
			c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		}
		return
	}

	tx := config.DB.Begin()
	if tx.Error != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to start transaction"})
		return
	}

	if err := tx.Where("route_id = ?", route.ID).Delete(&models.Stop{}).Error; err != nil {
		tx.Rollback()
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to delete stops: " + err.Error()})
		return
	}
	if err := tx.Where("route_id = ?", route.ID).Delete(&models.Student{}).Error; err != nil {
		tx.Rollback()
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to delete students: " + err.Error()})
		return
	}
	if err := tx.Delete(&route).Error; err != nil {
		tx.Rollback()
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to delete route: " + err.Error()})
		return
	}

	if err := tx.Commit().Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Transaction commit failed: " + err.Error()})
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "Route deleted successfully"})
}

// routeDefFromModel converts a catalog route into the tracker definition a
// run is started from.
func routeDefFromModel(route models.Route) (tracker.RouteDef, error) {
	def := tracker.RouteDef{
		ID:        strconv.FormatUint(uint64(route.ID), 10),
		Name:      route.Name,
		Direction: route.Direction,
	}
	for _, v := range route.Vehicles {
		if v.InService {
			def.VehicleID = v.VehicleNo
			break
		}
	}
	for _, s := range route.Stops {
		tod, err := tracker.ParseTimeOfDay(s.Scheduled)
		if err != nil {
			return tracker.RouteDef{}, fmt.Errorf("stop %d: %w", s.ID, err)
		}
		def.Stops = append(def.Stops, tracker.StopDef{
			ID:        strconv.FormatUint(uint64(s.ID), 10),
			Seq:       s.Seq,
			Name:      s.Name,
			Scheduled: tod,
		})
	}
	for _, st := range route.Students {
		def.Roster = append(def.Roster, tracker.StudentDef{
			StudentID: strconv.FormatUint(uint64(st.ID), 10),
			Name:      st.Name,
			StopID:    strconv.FormatUint(uint64(st.StopID), 10),
		})
	}
	return def, nil
}
