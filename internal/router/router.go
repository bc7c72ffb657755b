package router

import (
	"context"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/gofiber/fiber/v2/middleware/requestid"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/wichananm65/fullstack-starter/internal/apperror"
	"github.com/wichananm65/fullstack-starter/internal/auth"
	"github.com/wichananm65/fullstack-starter/internal/logging"
	"github.com/wichananm65/fullstack-starter/internal/middleware"
	"github.com/wichananm65/fullstack-starter/internal/user"
)

// Deps is everything the HTTP layer needs. Metrics, RateLimiter and Health
// are optional.
type Deps struct {
	Log         logrus.FieldLogger
	JWTSecret   string
	CORSOrigins string
	Users       *user.Handler
	Denylist    auth.Denylist
	Metrics     *middleware.Metrics
	RateLimiter *middleware.RateLimiter
	Health      func(ctx context.Context) error
}

// New assembles the application. Protected routes carry the JWT middleware
// themselves, so an unknown path is a 404 with or without a token.
func New(d Deps) *fiber.App {
	app := fiber.New(fiber.Config{
		AppName:      "fullstack-starter",
		ErrorHandler: apperror.Handler(d.Log),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
	})

	app.Use(recover.New())
	app.Use(requestid.New(requestid.Config{Generator: uuid.NewString}))
	app.Use(logging.Middleware(d.Log))
	if d.Metrics != nil {
		app.Use(d.Metrics.Middleware())
	}
	setupCORS(app, d.CORSOrigins)

	app.Get("/health", health(d.Health))
	if d.Metrics != nil {
		app.Get("/metrics", d.Metrics.Handler())
	}

	var guards []fiber.Handler
	if d.RateLimiter != nil {
		guards = append(guards, d.RateLimiter.Handler())
	}
	d.Users.RegisterPublicRoutes(app, guards...)

	d.Users.RegisterProtectedRoutes(app, auth.Middleware(d.JWTSecret, d.Denylist, d.Log))

	return app
}

func setupCORS(app *fiber.App, origins string) {
	if origins == "" {
		origins = "*"
	}
	app.Use(cors.New(cors.Config{
		AllowOrigins: origins,
		AllowMethods: "GET,POST,HEAD,PUT,DELETE,PATCH,OPTIONS",
		AllowHeaders: "Origin, Content-Type, Accept, Authorization",
	}))
}

func health(check func(ctx context.Context) error) fiber.Handler {
	return func(c *fiber.Ctx) error {
		if check != nil {
			ctx, cancel := context.WithTimeout(c.UserContext(), 2*time.Second)
			defer cancel()
			if err := check(ctx); err != nil {
				return c.Status(fiber.StatusServiceUnavailable).JSON(fiber.Map{"status": "unavailable"})
			}
		}
		return c.JSON(fiber.Map{"status": "ok"})
	}
}
