package controllers

import (
	"errors"
	"net/http"
	"strconv"

	"gorm.io/gorm"

	logrus "github.com/sirupsen/logrus"

	"github.com/gin-gonic/gin"
	"golang.org/x/crypto/bcrypt"

	"schoolbus_tracker/internal/config"
	"schoolbus_tracker/internal/models"
)

// updateDriverInput defines the fields a client can send to update a driver's profile.
// Fields that belong to the User model are updated on the associated User.
type updateDriverInput struct {
	UserName     *string `json:"name"`     // Optional: User's name
	UserEmail    *string `json:"email"`    // Optional: User's email
	UserPhone    *string `json:"phone"`    // Optional: User's general phone
	UserPassword *string `json:"password"` // Optional: User's password

	DriverPhone   *string `json:"driver_phone"`   // Optional: Driver-specific phone
	LicenseNumber *string `json:"license_number"` // Optional: Driver's license number
	VehicleID     *uint   `json:"vehicle_id"`     // Optional: assigned vehicle
}

// SetServiceStatus allows a driver to change their vehicle's in_service flag.
// Requires the driver's user_id from JWT claims and vehicle ID from the URL.
func SetServiceStatus(c *gin.Context) {
	userID := uint(c.MustGet("user_id").(float64))

	vehIDStr := c.Param("id")
	vehID, err := strconv.ParseUint(vehIDStr, 10, 32)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid Vehicle ID format."})
		return
	}

	// Find the vehicle AND ensure it belongs to the driver linked to the
	// authenticated user.
	var driver models.Driver
	if err := config.DB.Where("user_id = ?", userID).First(&driver).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "Driver profile not found for the authenticated user."})
		} else {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to verify authorization."})
		}
		return
	}

	var vehicle models.Vehicle
	if err := config.DB.Where("id = ? AND driver_id = ?", vehID, driver.ID).First(&vehicle).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "Vehicle not found or not assigned to you."})
		} else {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Database error while fetching vehicle: " + err.Error()})
		}
		return
	}

	var payload struct {
		InService *bool `json:"in_service" binding:"required"`
	}
	if err := c.ShouldBindJSON(&payload); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body format: " + err.Error()})
		return
	}

	vehicle.InService = *payload.InService
	if err := config.DB.Save(&vehicle).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to update service status: " + err.Error()})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"message": "Service status updated successfully.",
		"vehicle": vehicle,
	})
}

// GetAuthenticatedDriverVehicle fetches the vehicle assigned to the authenticated driver.
func GetAuthenticatedDriverVehicle(c *gin.Context) {
	userID := uint(c.MustGet("user_id").(float64))

	var driver models.Driver
	if err := config.DB.Where("user_id = ?", userID).First(&driver).Error; err != nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Driver profile not found for the authenticated user."})
		return
	}

	var vehicle models.Vehicle
	if err := config.DB.Where("driver_id = ?", driver.ID).First(&vehicle).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "No vehicle assigned to this driver."})
			return
		}
		logrus.WithError(err).Error("Error fetching vehicle for authenticated driver")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch vehicle data."})
		return
	}
	c.JSON(http.StatusOK, gin.H{"vehicle": vehicle})
}

// GetDriver fetches a single driver by their UserID.
func GetDriver(c *gin.Context) {
	userIDStr := c.Param("id")
	userID, err := strconv.ParseUint(userIDStr, 10, 32)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid User ID format."})
		return
	}

	var user models.User
	if err := config.DB.Where("id = ? AND role = ?", uint(userID), "driver").
		Preload("Driver").
		First(&user).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "Driver user not found."})
		} else {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Database error: " + err.Error()})
		}
		return
	}

	response := prepareUserResponse(user)
	c.JSON(http.StatusOK, gin.H{"driver_profile": response})
}

// ListDrivers fetches all users with the role 'driver' and preloads their driver profiles.
func ListDrivers(c *gin.Context) {
	var users []models.User
	if err := config.DB.Where("role = ?", "driver").
		Preload("Driver").
		Find(&users).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Error listing drivers: " + err.Error()})
		return
	}

	var driverProfiles []gin.H
	for _, user := range users {
		driverProfiles = append(driverProfiles, prepareUserResponse(user))
	}

	c.JSON(http.StatusOK, gin.H{"data": driverProfiles})
}

// UpdateDriver allows modifying driver details (both user-level and driver-specific).
func UpdateDriver(c *gin.Context) {
	userIDStr := c.Param("id")
	userID, err := strconv.ParseUint(userIDStr, 10, 32)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid User ID format."})
		return
	}

	var user models.User
	if err := config.DB.Where("id = ? AND role = ?", uint(userID), "driver").
		Preload("Driver").
		First(&user).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "Driver user not found."})
		} else {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Database error fetching user: " + err.Error()})
		}
		return
	}

	var input updateDriverInput
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body: " + err.Error()})
		return
	}

	tx := config.DB.Begin()
	if tx.Error != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Could not start transaction."})
		return
	}

	// Update User-level fields if provided
	if input.UserName != nil {
		user.Name = *input.UserName
	}
	if input.UserEmail != nil {
		user.Email = *input.UserEmail
	}
	if input.UserPhone != nil {
		user.Phone = *input.UserPhone
	}
	if input.UserPassword != nil {
		hashedPassword, hashErr := bcrypt.GenerateFromPassword([]byte(*input.UserPassword), bcrypt.DefaultCost)
		if hashErr != nil {
			tx.Rollback()
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to hash password."})
			return
		}
		user.Password = string(hashedPassword)
	}

	if err := tx.Save(&user).Error; err != nil {
		tx.Rollback()
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to update user details: " + err.Error()})
		return
	}

	// Update Driver-specific fields if provided
	if user.Driver != nil {
		if input.DriverPhone != nil {
			user.Driver.Phone = *input.DriverPhone
		}
		if input.LicenseNumber != nil {
			user.Driver.LicenseNumber = *input.LicenseNumber
		}
		if input.VehicleID != nil {
			var vehicle models.Vehicle
			if err := tx.First(&vehicle, *input.VehicleID).Error; err != nil {
				tx.Rollback()
				if errors.Is(err, gorm.ErrRecordNotFound) {
					c.JSON(http.StatusBadRequest, gin.H{"error": "Vehicle ID provided does not exist."})
				} else {
					c.JSON(http.StatusInternalServerError, gin.H{"error": "Database error validating Vehicle ID: " + err.Error()})
				}
				return
			}
			user.Driver.VehicleID = *input.VehicleID
		}

		if err := tx.Save(user.Driver).Error; err != nil {
			tx.Rollback()
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to update driver specific details: " + err.Error()})
			return
		}
	}

	if err := tx.Commit().Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Could not commit transaction: " + err.Error()})
		return
	}

	var updatedUser models.User
	config.DB.Where("id = ?", user.ID).
		Preload("Driver").
		First(&updatedUser)

	response := prepareUserResponse(updatedUser)
	c.JSON(http.StatusOK, gin.H{
		"message":        "Driver details updated successfully.",
		"driver_profile": response,
	})
}

// DeleteDriver removes a driver by their UserID.
func DeleteDriver(c *gin.Context) {
	userIDStr := c.Param("id")
	userID, err := strconv.ParseUint(userIDStr, 10, 32)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid User ID format."})
		return
	}

	var user models.User
	if err := config.DB.Where("id = ? AND role = ?", uint(userID), "driver").First(&user).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "Driver user not found."})
		} else {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Database error fetching user for deletion: " + err.Error()})
		}
		return
	}

	if err := config.DB.Delete(&user).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to delete driver user: " + err.Error()})
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "Driver and associated user account deleted successfully."})
}
