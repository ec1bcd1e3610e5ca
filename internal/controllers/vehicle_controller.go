package controllers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"schoolbus_tracker/internal/config"
	"schoolbus_tracker/internal/models"
)

// CreateVehicle registers a bus in the fleet; defaults InService to true.
func CreateVehicle(c *gin.Context) {
	var input struct {
		VehicleNo           string `json:"vehicle_no" binding:"required"`
		VehicleRegistration string `json:"vehicle_registration" binding:"required"`
		Capacity            int    `json:"capacity"`
		DriverID            uint   `json:"driver_id"`
		RouteID             uint   `json:"route_id"`
	}

	// Parse JSON
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid vehicle input: " + err.Error()})
		return
	}

	vehicle := models.Vehicle{
		VehicleNo:           input.VehicleNo,
		VehicleRegistration: input.VehicleRegistration,
		Capacity:            input.Capacity,
		DriverID:            input.DriverID,
		RouteID:             input.RouteID,
		InService:           true,
	}

	// Save to DB
	if err := config.DB.Create(&vehicle).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to create vehicle: " + err.Error()})
		return
	}

	c.JSON(http.StatusCreated, gin.H{"vehicle": vehicle})
}

// ListVehicles returns the whole fleet. Administrative use.
func ListVehicles(c *gin.Context) {
	var vehicles []models.Vehicle
	if err := config.DB.Find(&vehicles).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Error listing vehicles: " + err.Error()})
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": vehicles}) // Return in a 'data' key for consistency with frontend service
}

// ListVehiclesForRoute returns the buses assigned to one route.
func ListVehiclesForRoute(c *gin.Context) {
	var vehicles []models.Vehicle
	if err := config.DB.Where("route_id = ?", c.Param("id")).Find(&vehicles).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Error fetching vehicles"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"vehicles": vehicles})
}

// UpdateVehicle updates fleet details: reassigning driver or route included.
func UpdateVehicle(c *gin.Context) {
	id := c.Param("id")

	var vehicle models.Vehicle
	if err := config.DB.First(&vehicle, id).Error; err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Vehicle not found"})
		return
	}

	if err := c.ShouldBindJSON(&vehicle); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid update"})
		return
	}

	config.DB.Save(&vehicle)
	c.JSON(http.StatusOK, gin.H{"vehicle": vehicle})
}

func DeleteVehicle(c *gin.Context) {
	id := c.Param("id")

	var vehicle models.Vehicle
	if err := config.DB.First(&vehicle, id).Error; err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Vehicle not found"})
		return
	}

	config.DB.Delete(&vehicle)
	c.JSON(http.StatusOK, gin.H{"message": "Vehicle deleted"})
}
