package middlewares

import (
	"log"

	"github.com/BillyJoe121/zenzspa-project-sub002/database"

	"github.com/gofiber/fiber/v2"
)

// Tx opens a per-request DB transaction for business handlers.
// Order: run AFTER IsAuthenticatedHeader() (so userID is present), and AFTER
// Idempotency() (the coordinator's own short transactions must not be tied
// to the handler TX).
func Tx() fiber.Handler {
	return func(c *fiber.Ctx) (err error) {
		tx := database.DB.Begin()
		if tx.Error != nil {
			return fiber.NewError(fiber.StatusInternalServerError, "failed to begin transaction")
		}

		// Ensure we always cleanup.
		defer func() {
			if r := recover(); r != nil {
				_ = tx.Rollback()
				panic(r) // re-panic after rollback so Fiber's handler can catch
			}
			if err != nil {
				_ = tx.Rollback()
				return
			}
			if e := tx.Commit().Error; e != nil {
				log.Printf("tx commit failed: %v", e)
				err = fiber.NewError(fiber.StatusInternalServerError, "transaction commit failed")
			}
		}()

		// Make the TX available to handlers via database.RequestDB(c).
		c.Locals("tx", tx)

		// Run the handler chain inside this TX.
		err = c.Next()
		return err
	}
}
