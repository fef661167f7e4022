package database

import (
	"errors"

	"github.com/gofiber/fiber/v2"
	"gorm.io/gorm"
)

// RequestDB returns the *gorm.DB bound to the current request.
// Prefer the per-request TX opened by middlewares.Tx(); fall back to the
// shared handle for routes outside the transactional group.
func RequestDB(c *fiber.Ctx) (*gorm.DB, error) {
	if v := c.Locals("tx"); v != nil {
		if tx, ok := v.(*gorm.DB); ok && tx != nil {
			return tx, nil
		}
	}
	if DB == nil {
		return nil, errors.New("database not initialized")
	}
	return DB, nil
}
