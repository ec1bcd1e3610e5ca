package models

import (
	"gorm.io/gorm"
)

// Route represents a school-run service path.
// Each route has many stops in visiting order and a roster of students
// assigned to those stops.
type Route struct {
	gorm.Model

	Name        string `json:"name" binding:"required"`
	Description string `json:"description"`
	// Direction tag for the run window, e.g. "Morning" / "Afternoon"
	Direction string `json:"direction"`

	// Geometry stored in PostGIS as a LINESTRING (SRID 4326)
	// When creating, provide GeoJSON; migrations define the column type appropriately.
	Geometry []byte `gorm:"type:bytea"`

	// Associations
	Stops    []Stop    `gorm:"foreignKey:RouteID;constraint:OnUpdate:CASCADE,OnDelete:SET NULL;" json:"stops,omitempty"`
	Students []Student `gorm:"foreignKey:RouteID;constraint:OnUpdate:CASCADE,OnDelete:SET NULL;" json:"students,omitempty"`
	Vehicles []Vehicle `gorm:"foreignKey:RouteID;constraint:OnUpdate:CASCADE,OnDelete:SET NULL;" json:"vehicles,omitempty"`
}
