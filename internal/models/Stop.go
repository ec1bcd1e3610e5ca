package models

import (
	"gorm.io/gorm"
)

// Stop represents a pickup or dropoff point along a route.
// Seq indicates visiting order; Scheduled is the timetabled "HH:MM"
// time-of-day the vehicle is due there.
type Stop struct {
	gorm.Model

	Name      string  `json:"name" binding:"required"`
	Seq       int     `json:"seq" binding:"required"`
	Scheduled string  `json:"scheduled" binding:"required"`
	Lat       float64 `json:"lat"`
	Lng       float64 `json:"lng"`

	// Foreign key to route
	RouteID uint `json:"route_id"`
}
