package controllers

import (
	"errors"
	"strings"

	"github.com/BillyJoe121/zenzspa-project-sub002/database"
	"github.com/BillyJoe121/zenzspa-project-sub002/middlewares"
	"github.com/BillyJoe121/zenzspa-project-sub002/models"
	"github.com/BillyJoe121/zenzspa-project-sub002/utils"

	"github.com/gofiber/fiber/v2"
	"gorm.io/gorm"
)

type ServiceCreateDTO struct {
	Name            string  `json:"name" validate:"required,min=1"`
	Description     string  `json:"description" validate:"omitempty"`
	DurationMinutes int     `json:"duration_minutes" validate:"required,gt=0"`
	Price           float64 `json:"price" validate:"gte=0"`
}

type ServiceUpdateDTO struct {
	Name            *string  `json:"name" validate:"omitempty,min=1"`
	Description     *string  `json:"description" validate:"omitempty"`
	DurationMinutes *int     `json:"duration_minutes" validate:"omitempty,gt=0"`
	Price           *float64 `json:"price" validate:"omitempty,gte=0"`
}

// POST /api/service
func CreateService(c *fiber.Ctx) error {
	var in ServiceCreateDTO
	if err := middlewares.BindAndValidate(c, &in); err != nil {
		return err
	}
	utils.NormalizeDTO(&in)

	db, err := database.RequestDB(c)
	if err != nil {
		return fiber.NewError(fiber.StatusInternalServerError, "db unavailable")
	}

	service := models.Service{
		Name:            in.Name,
		Description:     in.Description,
		DurationMinutes: in.DurationMinutes,
		Price:           utils.Round2(in.Price),
		Active:          true,
	}
	if err := db.Create(&service).Error; err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "could not create service")
	}
	return c.Status(fiber.StatusCreated).JSON(service)
}

// GET /api/services
func GetServices(c *fiber.Ctx) error {
	db, err := database.RequestDB(c)
	if err != nil {
		return fiber.NewError(fiber.StatusInternalServerError, "db unavailable")
	}

	var services []models.Service
	if err := db.Where("active = ?", true).Order("name").Find(&services).Error; err != nil {
		return fiber.NewError(fiber.StatusInternalServerError, "could not list services")
	}
	return c.JSON(services)
}

// PUT /api/service/:id
func UpdateService(c *fiber.Ctx) error {
	id := strings.TrimSpace(c.Params("id"))
	if id == "" {
		return fiber.NewError(fiber.StatusBadRequest, "missing service id in path")
	}

	var in ServiceUpdateDTO
	if err := middlewares.BindAndValidate(c, &in); err != nil {
		return err
	}
	utils.NormalizePtrDTO(&in)

	db, err := database.RequestDB(c)
	if err != nil {
		return fiber.NewError(fiber.StatusInternalServerError, "db unavailable")
	}

	var existing models.Service
	if err := db.First(&existing, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return fiber.NewError(fiber.StatusNotFound, "service not found")
		}
		return fiber.NewError(fiber.StatusInternalServerError, "could not load service")
	}

	updates := utils.UpdatesFromPtrDTO(&in)
	if len(updates) == 0 {
		return c.JSON(existing)
	}
	if err := db.Model(&existing).Updates(updates).Error; err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "could not update service")
	}
	return c.JSON(existing)
}
