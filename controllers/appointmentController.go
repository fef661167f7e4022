package controllers

import (
	"errors"
	"strings"
	"time"

	"github.com/BillyJoe121/zenzspa-project-sub002/database"
	"github.com/BillyJoe121/zenzspa-project-sub002/middlewares"
	"github.com/BillyJoe121/zenzspa-project-sub002/models"
	"github.com/BillyJoe121/zenzspa-project-sub002/utils"

	"github.com/gofiber/fiber/v2"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

type AppointmentCreateDTO struct {
	ServiceID string         `json:"service_id" validate:"required,uuid4"`
	StartsAt  time.Time      `json:"starts_at" validate:"required"`
	Notes     datatypes.JSON `json:"notes" validate:"omitempty"`
}

type AppointmentUpdateDTO struct {
	StartsAt *time.Time      `json:"starts_at" validate:"omitempty"`
	Notes    *datatypes.JSON `json:"notes" validate:"omitempty"`
}

// POST /api/appointment
func CreateAppointment(c *fiber.Ctx) error {
	var in AppointmentCreateDTO
	if err := middlewares.BindAndValidate(c, &in); err != nil {
		return err
	}
	userID, _ := c.Locals("userID").(string)
	if userID == "" {
		return fiber.NewError(fiber.StatusUnauthorized, "auth context missing")
	}

	db, err := database.RequestDB(c)
	if err != nil {
		return fiber.NewError(fiber.StatusInternalServerError, "db unavailable")
	}

	var service models.Service
	if err := db.First(&service, "id = ? AND active = ?", in.ServiceID, true).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return fiber.NewError(fiber.StatusNotFound, "service not found")
		}
		return fiber.NewError(fiber.StatusInternalServerError, "could not load service")
	}

	startsAt := in.StartsAt.UTC()
	endsAt := startsAt.Add(time.Duration(service.DurationMinutes) * time.Minute)

	// Reject overlap with any of the user's scheduled appointments.
	var overlaps int64
	err = db.Model(&models.Appointment{}).
		Where("user_id = ? AND status = ?", userID, models.AppointmentScheduled).
		Where("starts_at < ? AND ends_at > ?", endsAt, startsAt).
		Count(&overlaps).Error
	if err != nil {
		return fiber.NewError(fiber.StatusInternalServerError, "could not check availability")
	}
	if overlaps > 0 {
		return fiber.NewError(fiber.StatusConflict, "overlapping appointment exists")
	}

	appointment := models.Appointment{
		UserID:    userID,
		ServiceID: service.Id,
		StartsAt:  startsAt,
		EndsAt:    endsAt,
		Status:    models.AppointmentScheduled,
		Notes:     in.Notes,
	}
	if err := db.Create(&appointment).Error; err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "could not create appointment")
	}

	db.Preload("Service").First(&appointment, "id = ?", appointment.Id)
	return c.Status(fiber.StatusCreated).JSON(appointment)
}

// GET /api/appointments?limit=N
func GetAppointments(c *fiber.Ctx) error {
	userID, _ := c.Locals("userID").(string)
	limit := utils.ParseIntDefault(c.Query("limit"), 50)
	if limit > 200 {
		limit = 200
	}

	db, err := database.RequestDB(c)
	if err != nil {
		return fiber.NewError(fiber.StatusInternalServerError, "db unavailable")
	}

	var appointments []models.Appointment
	if err := db.Preload("Service").
		Where("user_id = ?", userID).
		Order("starts_at DESC").
		Limit(limit).
		Find(&appointments).Error; err != nil {
		return fiber.NewError(fiber.StatusInternalServerError, "could not list appointments")
	}
	return c.JSON(appointments)
}

// GET /api/appointment/:id
func GetAppointment(c *fiber.Ctx) error {
	id := strings.TrimSpace(c.Params("id"))
	userID, _ := c.Locals("userID").(string)

	db, err := database.RequestDB(c)
	if err != nil {
		return fiber.NewError(fiber.StatusInternalServerError, "db unavailable")
	}

	var appointment models.Appointment
	if err := db.Preload("Service").
		First(&appointment, "id = ? AND user_id = ?", id, userID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return fiber.NewError(fiber.StatusNotFound, "appointment not found")
		}
		return fiber.NewError(fiber.StatusInternalServerError, "could not load appointment")
	}
	return c.JSON(appointment)
}

// PUT /api/appointment/:id
func UpdateAppointment(c *fiber.Ctx) error {
	id := strings.TrimSpace(c.Params("id"))
	userID, _ := c.Locals("userID").(string)

	var in AppointmentUpdateDTO
	if err := middlewares.BindAndValidate(c, &in); err != nil {
		return err
	}

	db, err := database.RequestDB(c)
	if err != nil {
		return fiber.NewError(fiber.StatusInternalServerError, "db unavailable")
	}

	var appointment models.Appointment
	if err := db.Preload("Service").
		First(&appointment, "id = ? AND user_id = ?", id, userID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return fiber.NewError(fiber.StatusNotFound, "appointment not found")
		}
		return fiber.NewError(fiber.StatusInternalServerError, "could not load appointment")
	}
	if appointment.Status != models.AppointmentScheduled {
		return fiber.NewError(fiber.StatusConflict, "only scheduled appointments can be updated")
	}

	updates := map[string]any{}
	if in.StartsAt != nil {
		startsAt := in.StartsAt.UTC()
		updates["starts_at"] = startsAt
		updates["ends_at"] = startsAt.Add(time.Duration(appointment.Service.DurationMinutes) * time.Minute)
	}
	if in.Notes != nil {
		updates["notes"] = *in.Notes
	}
	if len(updates) == 0 {
		return c.JSON(appointment)
	}

	if err := db.Model(&appointment).Updates(updates).Error; err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "could not update appointment")
	}
	return c.JSON(appointment)
}

// DELETE /api/appointment/:id
func CancelAppointment(c *fiber.Ctx) error {
	id := strings.TrimSpace(c.Params("id"))
	userID, _ := c.Locals("userID").(string)

	db, err := database.RequestDB(c)
	if err != nil {
		return fiber.NewError(fiber.StatusInternalServerError, "db unavailable")
	}

	var appointment models.Appointment
	if err := db.First(&appointment, "id = ? AND user_id = ?", id, userID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return fiber.NewError(fiber.StatusNotFound, "appointment not found")
		}
		return fiber.NewError(fiber.StatusInternalServerError, "could not load appointment")
	}
	if appointment.Status == models.AppointmentCancelled {
		return c.JSON(appointment)
	}
	if appointment.Status != models.AppointmentScheduled {
		return fiber.NewError(fiber.StatusConflict, "only scheduled appointments can be cancelled")
	}

	now := time.Now().UTC()
	if err := db.Model(&appointment).Updates(map[string]any{
		"status":       models.AppointmentCancelled,
		"cancelled_at": &now,
	}).Error; err != nil {
		return fiber.NewError(fiber.StatusInternalServerError, "could not cancel appointment")
	}
	return c.JSON(appointment)
}
