package middlewares

import (
	"bytes"
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/BillyJoe121/zenzspa-project-sub002/idempotency"
	"github.com/BillyJoe121/zenzspa-project-sub002/models"

	"github.com/gofiber/fiber/v2"
)

const validKey = "abcdefghijklmnop"

func newTestApp(coord *idempotency.Coordinator, calls *int32) *fiber.App {
	app := fiber.New(fiber.Config{ErrorHandler: ErrorHandler})

	// Stand-in for IsAuthenticatedHeader: a fixed caller identity.
	app.Use(func(c *fiber.Ctx) error {
		c.Locals("userID", "user-1")
		return c.Next()
	})
	app.Use(Idempotency(coord))

	app.Post("/api/appointment", func(c *fiber.Ctx) error {
		atomic.AddInt32(calls, 1)
		return c.Status(fiber.StatusCreated).JSON(fiber.Map{"id": "appt-1"})
	})
	app.Get("/api/appointments", func(c *fiber.Ctx) error {
		atomic.AddInt32(calls, 1)
		return c.JSON([]string{})
	})
	app.Post("/api/fail", func(c *fiber.Ctx) error {
		atomic.AddInt32(calls, 1)
		return fiber.NewError(fiber.StatusBadGateway, "gateway down")
	})
	return app
}

func post(t *testing.T, app *fiber.App, path, key, body string) *http.Response {
	t.Helper()
	req := httptest.NewRequest(fiber.MethodPost, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	if key != "" {
		req.Header.Set("Idempotency-Key", key)
	}
	resp, err := app.Test(req)
	if err != nil {
		t.Fatalf("request: %v", err)
	}
	return resp
}

func TestIdempotency_KeylessRequestsAlwaysRun(t *testing.T) {
	var calls int32
	app := newTestApp(idempotency.NewCoordinator(idempotency.NewMemoryStore(), 0), &calls)

	for i := 0; i < 3; i++ {
		resp := post(t, app, "/api/appointment", "", `{"x":1}`)
		if resp.StatusCode != fiber.StatusCreated {
			t.Fatalf("status %d", resp.StatusCode)
		}
	}
	if calls != 3 {
		t.Fatalf("keyless requests must all execute, got %d", calls)
	}
}

func TestIdempotency_ReadsBypass(t *testing.T) {
	var calls int32
	store := idempotency.NewMemoryStore()
	app := newTestApp(idempotency.NewCoordinator(store, 0), &calls)

	req := httptest.NewRequest(fiber.MethodGet, "/api/appointments", nil)
	req.Header.Set("Idempotency-Key", validKey)
	resp, err := app.Test(req)
	if err != nil {
		t.Fatalf("request: %v", err)
	}
	if resp.StatusCode != fiber.StatusOK {
		t.Fatalf("status %d", resp.StatusCode)
	}
	if store.Len() != 0 {
		t.Fatal("GET requests must not create records")
	}
}

func TestIdempotency_ShortKeyRejected(t *testing.T) {
	var calls int32
	app := newTestApp(idempotency.NewCoordinator(idempotency.NewMemoryStore(), 0), &calls)

	resp := post(t, app, "/api/appointment", "short", `{"x":1}`)
	if resp.StatusCode != fiber.StatusUnprocessableEntity {
		t.Fatalf("expected 422 for short key, got %d", resp.StatusCode)
	}
	if calls != 0 {
		t.Fatal("handler must not run for an invalid key")
	}
}

func TestIdempotency_ReplaySameResponse(t *testing.T) {
	var calls int32
	app := newTestApp(idempotency.NewCoordinator(idempotency.NewMemoryStore(), 0), &calls)

	first := post(t, app, "/api/appointment", validKey, `{"x":1}`)
	firstBody, _ := io.ReadAll(first.Body)
	if first.StatusCode != fiber.StatusCreated {
		t.Fatalf("first status %d", first.StatusCode)
	}

	second := post(t, app, "/api/appointment", validKey, `{"x":1}`)
	secondBody, _ := io.ReadAll(second.Body)
	if second.StatusCode != fiber.StatusCreated {
		t.Fatalf("replay status %d", second.StatusCode)
	}
	if !bytes.Equal(firstBody, secondBody) {
		t.Fatalf("replayed body differs: %q vs %q", firstBody, secondBody)
	}
	if second.Header.Get("Idempotency-Replayed") != "true" {
		t.Fatal("replay must be marked with the Idempotency-Replayed header")
	}
	if ct := second.Header.Get("Content-Type"); ct != fiber.MIMEApplicationJSON {
		t.Fatalf("replayed response must be served as JSON, got %q", ct)
	}
	if calls != 1 {
		t.Fatalf("handler ran %d times", calls)
	}
}

func TestIdempotency_MismatchRejected(t *testing.T) {
	var calls int32
	app := newTestApp(idempotency.NewCoordinator(idempotency.NewMemoryStore(), 0), &calls)

	post(t, app, "/api/appointment", validKey, `{"x":1}`)
	resp := post(t, app, "/api/appointment", validKey, `{"x":2}`)
	if resp.StatusCode != fiber.StatusUnprocessableEntity {
		t.Fatalf("expected 422 for key reuse, got %d", resp.StatusCode)
	}
	body, _ := io.ReadAll(resp.Body)
	if !bytes.Contains(body, []byte("idempotency_key_mismatch")) {
		t.Fatalf("expected stable error code in body: %s", body)
	}
	if calls != 1 {
		t.Fatalf("handler ran %d times", calls)
	}
}

func TestIdempotency_DuplicateInProgressConflict(t *testing.T) {
	var calls int32
	store := idempotency.NewMemoryStore()
	app := newTestApp(idempotency.NewCoordinator(store, time.Minute), &calls)

	// A previous attempt is still running (record PENDING, recent lock).
	body := `{"x":1}`
	rec := models.IdempotencyRecord{
		StorageKey:         idempotency.StorageKey("user-1", validKey),
		RawKey:             validKey,
		OwnerID:            "user-1",
		Status:             models.IdempotencyPending,
		RequestFingerprint: idempotency.Fingerprint([]byte(body)),
		LockedAt:           time.Now().UTC(),
	}
	if _, err := store.GetOrCreate(context.Background(), &rec); err != nil {
		t.Fatal(err)
	}

	resp := post(t, app, "/api/appointment", validKey, body)
	if resp.StatusCode != fiber.StatusConflict {
		t.Fatalf("expected 409 while in progress, got %d", resp.StatusCode)
	}
	if calls != 0 {
		t.Fatal("handler must not run while the key is pending")
	}
}

func TestIdempotency_HandlerErrorNotCached(t *testing.T) {
	var calls int32
	store := idempotency.NewMemoryStore()
	app := newTestApp(idempotency.NewCoordinator(store, 0), &calls)

	resp := post(t, app, "/api/fail", validKey, `{"x":1}`)
	if resp.StatusCode != fiber.StatusBadGateway {
		t.Fatalf("handler error must propagate, got %d", resp.StatusCode)
	}
	if store.Len() != 0 {
		t.Fatal("failed attempt must not leave a record")
	}

	// Retry with the same key runs again.
	resp = post(t, app, "/api/fail", validKey, `{"x":1}`)
	if resp.StatusCode != fiber.StatusBadGateway {
		t.Fatalf("retry must execute again, got %d", resp.StatusCode)
	}
	if calls != 2 {
		t.Fatalf("handler ran %d times", calls)
	}
}
