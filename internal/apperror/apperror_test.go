package apperror

import (
	"errors"
	"fmt"
	"io"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gofiber/fiber/v2"
	"github.com/sirupsen/logrus"
	"github.com/sirupsen/logrus/hooks/test"
)

func TestKindStatus(t *testing.T) {
	cases := map[Kind]int{
		KindValidation:      400,
		KindUnauthorized:    401,
		KindForbidden:       403,
		KindNotFound:        404,
		KindTooManyRequests: 429,
		KindInternal:        500,
	}
	for kind, want := range cases {
		if got := kind.Status(); got != want {
			t.Fatalf("%s: expected %d, got %d", kind, want, got)
		}
	}
}

func TestAsThroughWrapping(t *testing.T) {
	cause := errors.New("db down")
	err := fmt.Errorf("load user: %w", Internal(cause))

	appErr, ok := As(err)
	if !ok {
		t.Fatalf("expected *Error in chain")
	}
	if appErr.Kind != KindInternal {
		t.Fatalf("unexpected kind %s", appErr.Kind)
	}
	if !errors.Is(err, cause) {
		t.Fatalf("cause should be reachable with errors.Is")
	}
	if _, ok := As(errors.New("plain")); ok {
		t.Fatalf("plain errors carry no *Error")
	}
}

func TestDefaultMessages(t *testing.T) {
	if NotFound("").Message != msgNotFound {
		t.Fatalf("expected default not found message")
	}
	if Unauthorized("token revoked").Message != "token revoked" {
		t.Fatalf("explicit message should win")
	}
}

func TestHandler(t *testing.T) {
	logger, hook := test.NewNullLogger()
	logger.SetLevel(logrus.DebugLevel)

	app := fiber.New(fiber.Config{ErrorHandler: Handler(logger)})
	app.Get("/validation", func(c *fiber.Ctx) error {
		return Validation("", map[string]string{"email": "is required"})
	})
	app.Get("/fiber", func(c *fiber.Ctx) error {
		return fiber.NewError(fiber.StatusTeapot, "short and stout")
	})
	app.Get("/plain", func(c *fiber.Ctx) error {
		return errors.New("secret detail")
	})

	res, err := app.Test(httptest.NewRequest("GET", "/validation", nil))
	if err != nil {
		t.Fatalf("request failed: %v", err)
	}
	if res.StatusCode != fiber.StatusBadRequest {
		t.Fatalf("expected 400, got %d", res.StatusCode)
	}
	b, _ := io.ReadAll(res.Body)
	if !strings.Contains(string(b), `"email":"is required"`) {
		t.Fatalf("field errors missing: %s", string(b))
	}

	res, _ = app.Test(httptest.NewRequest("GET", "/fiber", nil))
	if res.StatusCode != fiber.StatusTeapot {
		t.Fatalf("expected 418, got %d", res.StatusCode)
	}

	res, _ = app.Test(httptest.NewRequest("GET", "/plain", nil))
	if res.StatusCode != fiber.StatusInternalServerError {
		t.Fatalf("expected 500, got %d", res.StatusCode)
	}
	b, _ = io.ReadAll(res.Body)
	if strings.Contains(string(b), "secret detail") {
		t.Fatalf("internal error leaked to client: %s", string(b))
	}
	if len(hook.Entries) != 1 {
		t.Fatalf("expected one logged entry, got %d", len(hook.Entries))
	}
}
