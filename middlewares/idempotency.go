package middlewares

import (
	"errors"
	"strings"

	"github.com/BillyJoe121/zenzspa-project-sub002/idempotency"

	"github.com/gofiber/fiber/v2"
)

// Idempotency guards mutating HTTP methods with the execution coordinator.
// Reads and keyless requests pass straight through. Runs BEFORE Tx() so the
// coordinator's short transactions are never tied to the handler's
// per-request transaction.
func Idempotency(coord *idempotency.Coordinator) fiber.Handler {
	return func(c *fiber.Ctx) error {
		method := strings.ToUpper(c.Method())
		if method != fiber.MethodPost && method != fiber.MethodPut && method != fiber.MethodPatch && method != fiber.MethodDelete {
			return c.Next()
		}

		key := strings.TrimSpace(c.Get("Idempotency-Key"))
		if key == "" {
			return c.Next()
		}
		if err := idempotency.ValidateKey(key); err != nil {
			return c.Status(fiber.StatusUnprocessableEntity).JSON(fiber.Map{
				"code":    "idempotency_key_invalid",
				"message": err.Error(),
			})
		}

		userID, _ := c.Locals("userID").(string)
		body := append([]byte(nil), c.Body()...)

		req := idempotency.Request{
			RawKey:   key,
			CallerID: userID,
			Endpoint: method + " " + c.Path(),
			Body:     body,
		}
		res, err := coord.Execute(c.UserContext(), req, func() (int, []byte, error) {
			if err := c.Next(); err != nil {
				return 0, nil, err
			}
			resp := c.Response()
			captured := append([]byte(nil), resp.Body()...)
			return resp.StatusCode(), captured, nil
		})
		if err != nil {
			if errors.Is(err, idempotency.ErrStoreUnavailable) {
				return fiber.NewError(fiber.StatusInternalServerError, "idempotency check failed")
			}
			// Handler failure: the record is already deleted, propagate untouched.
			return err
		}

		switch res.Outcome {
		case idempotency.OutcomeReplayed:
			// The API only serves JSON; without this the cached body would
			// default to text/plain.
			c.Set(fiber.HeaderContentType, fiber.MIMEApplicationJSON)
			c.Set("Idempotency-Replayed", "true")
			c.Status(res.Status)
			return c.Send(res.Body)
		case idempotency.OutcomeDuplicateInProgress:
			return c.Status(fiber.StatusConflict).JSON(fiber.Map{
				"code":    "idempotency_in_progress",
				"message": "a request with this Idempotency-Key is still in progress, retry later",
			})
		case idempotency.OutcomeKeyMismatch:
			return c.Status(fiber.StatusUnprocessableEntity).JSON(fiber.Map{
				"code":    "idempotency_key_mismatch",
				"message": "Idempotency-Key reused with a different request payload",
			})
		}

		// Executed: the handler already wrote the live response.
		return nil
	}
}
