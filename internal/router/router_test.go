package router

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/sirupsen/logrus/hooks/test"

	"github.com/wichananm65/fullstack-starter/internal/auth"
	"github.com/wichananm65/fullstack-starter/internal/middleware"
	"github.com/wichananm65/fullstack-starter/internal/user"
)

const secret = "router-test-secret"

func newApp(t *testing.T, health func(ctx context.Context) error) (*fiber.App, *user.Service) {
	t.Helper()
	logger, _ := test.NewNullLogger()
	service := user.NewService(user.NewInMemoryRepository(nil), nil, logger)
	denylist := auth.NewMemoryDenylist()
	handler := user.NewHandler(service, auth.NewTokenIssuer(secret, "tests", time.Hour), denylist)

	app := New(Deps{
		Log:         logger,
		JWTSecret:   secret,
		Users:       handler,
		Denylist:    denylist,
		Metrics:     middleware.NewMetrics("router_test"),
		RateLimiter: middleware.NewRateLimiter(100, 100, logger),
		Health:      health,
	})
	return app, service
}

func call(t *testing.T, app *fiber.App, method, path, token, body string) (int, map[string]any) {
	t.Helper()
	var reader io.Reader
	if body != "" {
		reader = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	res, err := app.Test(req, -1)
	if err != nil {
		t.Fatalf("%s %s: %v", method, path, err)
	}
	out := map[string]any{}
	raw, _ := io.ReadAll(res.Body)
	_ = json.Unmarshal(raw, &out)
	return res.StatusCode, out
}

func TestHealth(t *testing.T) {
	app, _ := newApp(t, nil)
	if status, body := call(t, app, "GET", "/health", "", ""); status != fiber.StatusOK || body["status"] != "ok" {
		t.Fatalf("unexpected health %d %v", status, body)
	}

	down, _ := newApp(t, func(ctx context.Context) error { return errors.New("db down") })
	if status, _ := call(t, down, "GET", "/health", "", ""); status != fiber.StatusServiceUnavailable {
		t.Fatalf("expected 503, got %d", status)
	}
}

func TestAuthFlow(t *testing.T) {
	app, _ := newApp(t, nil)

	status, body := call(t, app, "POST", "/auth/register", "",
		`{"email":"flow@example.com","password":"secret123","firstName":"Flo","lastName":"W"}`)
	if status != fiber.StatusCreated {
		t.Fatalf("register: %d %v", status, body)
	}

	status, body = call(t, app, "POST", "/auth/login", "", `{"email":"flow@example.com","password":"secret123"}`)
	if status != fiber.StatusOK {
		t.Fatalf("login: %d %v", status, body)
	}
	token, _ := body["token"].(string)

	if status, _ := call(t, app, "GET", "/user/profile", "", ""); status != fiber.StatusUnauthorized {
		t.Fatalf("expected 401 without token, got %d", status)
	}
	if status, _ := call(t, app, "GET", "/user/profile", "not.a.token", ""); status != fiber.StatusUnauthorized {
		t.Fatalf("expected 401 for malformed token, got %d", status)
	}
	if status, body := call(t, app, "GET", "/user/profile", token, ""); status != fiber.StatusOK || body["email"] != "flow@example.com" {
		t.Fatalf("profile: %d %v", status, body)
	}
	if status, _ := call(t, app, "GET", "/user", token, ""); status != fiber.StatusForbidden {
		t.Fatalf("expected 403 for non-admin list, got %d", status)
	}

	if status, body := call(t, app, "GET", "/auth/verify", token, ""); status != fiber.StatusOK || body["valid"] != true {
		t.Fatalf("verify: %d %v", status, body)
	}
	if status, _ := call(t, app, "POST", "/auth/logout", token, ""); status != fiber.StatusOK {
		t.Fatalf("logout: %d", status)
	}
	if status, _ := call(t, app, "GET", "/auth/verify", token, ""); status != fiber.StatusUnauthorized {
		t.Fatalf("expected 401 after logout, got %d", status)
	}
}

func TestAdminFlow(t *testing.T) {
	app, service := newApp(t, nil)
	if _, err := service.EnsureAdmin(context.Background(), "root@example.com", "rootpass1"); err != nil {
		t.Fatalf("ensure admin: %v", err)
	}

	_, body := call(t, app, "POST", "/auth/login", "", `{"email":"root@example.com","password":"rootpass1"}`)
	token, _ := body["token"].(string)
	if token == "" {
		t.Fatalf("admin login failed: %v", body)
	}

	status, body := call(t, app, "GET", "/user?limit=5", token, "")
	if status != fiber.StatusOK || body["total"] != float64(1) || body["limit"] != float64(5) {
		t.Fatalf("list: %d %v", status, body)
	}
	if status, _ := call(t, app, "GET", "/user/3f2504e0-4f89-11d3-9a0c-0305e82c3301", token, ""); status != fiber.StatusNotFound {
		t.Fatalf("expected 404, got %d", status)
	}
}

func TestMetricsEndpoint(t *testing.T) {
	app, _ := newApp(t, nil)
	call(t, app, "GET", "/health", "", "")

	res, err := app.Test(httptest.NewRequest("GET", "/metrics", nil))
	if err != nil {
		t.Fatalf("metrics: %v", err)
	}
	raw, _ := io.ReadAll(res.Body)
	if res.StatusCode != fiber.StatusOK || !strings.Contains(string(raw), "router_test_http_requests_total") {
		t.Fatalf("unexpected metrics output %d", res.StatusCode)
	}
}

func TestUnknownPathIsNotFound(t *testing.T) {
	app, _ := newApp(t, nil)

	if status, _ := call(t, app, "GET", "/does-not-exist", "", ""); status != fiber.StatusNotFound {
		t.Fatalf("expected 404 for unknown path without token, got %d", status)
	}
	if status, _ := call(t, app, "GET", "/user/profile", "", ""); status != fiber.StatusUnauthorized {
		t.Fatalf("expected 401 for protected path without token, got %d", status)
	}
}
