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
	"github.com/google/uuid"
	"gorm.io/gorm"
)

type PaymentCreateDTO struct {
	Amount    float64    `json:"amount" validate:"required,gt=0"`
	Method    string     `json:"method" validate:"required,oneof=cash card transfer"`
	Reference string     `json:"reference" validate:"omitempty"`
	Note      string     `json:"note" validate:"omitempty"`
	PaidAt    *time.Time `json:"paid_at" validate:"omitempty"`
}

// POST /api/appointment/:id/payments
func CreatePayment(c *fiber.Ctx) error {
	appointmentID := strings.TrimSpace(c.Params("id"))
	userID, _ := c.Locals("userID").(string)

	var in PaymentCreateDTO
	if err := middlewares.BindAndValidate(c, &in); err != nil {
		return err
	}
	utils.NormalizeDTO(&in)

	db, err := database.RequestDB(c)
	if err != nil {
		return fiber.NewError(fiber.StatusInternalServerError, "db unavailable")
	}

	var appointment models.Appointment
	if err := db.First(&appointment, "id = ? AND user_id = ?", appointmentID, userID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return fiber.NewError(fiber.StatusNotFound, "appointment not found")
		}
		return fiber.NewError(fiber.StatusInternalServerError, "could not load appointment")
	}
	if appointment.Status == models.AppointmentCancelled {
		return fiber.NewError(fiber.StatusConflict, "cannot pay a cancelled appointment")
	}

	paidAt := time.Now().UTC()
	if in.PaidAt != nil {
		paidAt = in.PaidAt.UTC()
	}
	reference := strings.TrimSpace(in.Reference)
	if reference == "" {
		reference = uuid.NewString()
	}

	payment := models.Payment{
		AppointmentID: appointment.Id,
		Amount:        utils.Round2(in.Amount),
		Method:        in.Method,
		Reference:     reference,
		Note:          in.Note,
		PaidAt:        paidAt,
	}
	if err := db.Create(&payment).Error; err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "could not record payment")
	}

	// Keep the rollup on the appointment current.
	if err := db.Model(&appointment).
		Update("paid_total", gorm.Expr("paid_total + ?", payment.Amount)).Error; err != nil {
		return fiber.NewError(fiber.StatusInternalServerError, "could not update paid total")
	}

	return c.Status(fiber.StatusCreated).JSON(payment)
}

// GET /api/appointment/:id/payments
func ListPayments(c *fiber.Ctx) error {
	appointmentID := strings.TrimSpace(c.Params("id"))
	userID, _ := c.Locals("userID").(string)

	db, err := database.RequestDB(c)
	if err != nil {
		return fiber.NewError(fiber.StatusInternalServerError, "db unavailable")
	}

	var appointment models.Appointment
	if err := db.First(&appointment, "id = ? AND user_id = ?", appointmentID, userID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return fiber.NewError(fiber.StatusNotFound, "appointment not found")
		}
		return fiber.NewError(fiber.StatusInternalServerError, "could not load appointment")
	}

	var payments []models.Payment
	if err := db.Where("appointment_id = ?", appointment.Id).
		Order("paid_at").
		Find(&payments).Error; err != nil {
		return fiber.NewError(fiber.StatusInternalServerError, "could not list payments")
	}
	return c.JSON(payments)
}
