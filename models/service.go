package models

import (
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Service is a bookable spa treatment.
type Service struct {
	Id              string  `json:"id" gorm:"primaryKey"`
	Name            string  `json:"name" gorm:"not null;unique"`
	Description     string  `json:"description"`
	DurationMinutes int     `json:"duration_minutes" gorm:"not null"`
	Price           float64 `json:"price" gorm:"type:numeric(12,2)"`
	Active          bool    `json:"-"`
}

func (service *Service) BeforeCreate(tx *gorm.DB) (err error) {
	// UUID version 4
	service.Id = uuid.NewString()
	return
}
