package models

import (
	"gorm.io/gorm"
)

// Student is a rostered rider: bound to one route and one stop on it.
// GuardianPhone is where boarding notifications go.
type Student struct {
	gorm.Model

	Name          string `json:"name" binding:"required"`
	Grade         string `json:"grade"`
	GuardianName  string `json:"guardian_name"`
	GuardianPhone string `json:"guardian_phone"`

	RouteID uint `json:"route_id" gorm:"index"`
	StopID  uint `json:"stop_id" gorm:"index"`
}
