package auth

import (
	"strings"

	"github.com/gofiber/fiber/v2"
	jwtware "github.com/gofiber/jwt/v2"
	"github.com/golang-jwt/jwt/v4"
	"github.com/sirupsen/logrus"

	"github.com/wichananm65/fullstack-starter/internal/apperror"
)

// ContextKey is where the verified *jwt.Token is stored in fiber locals.
const ContextKey = "user"

// Middleware verifies the bearer token and rejects revoked ones. Every
// failure becomes a 401 handled by the application error handler.
func Middleware(secret string, denylist Denylist, log logrus.FieldLogger) fiber.Handler {
	return jwtware.New(jwtware.Config{
		SigningKey:    []byte(secret),
		SigningMethod: "HS256",
		ContextKey:    ContextKey,
		Claims:        &Claims{},
		ErrorHandler: func(c *fiber.Ctx, err error) error {
			log.WithError(err).WithField("path", c.Path()).Debug("token rejected")
			return apperror.UnauthorizedWrap("invalid or missing token", err)
		},
		SuccessHandler: func(c *fiber.Ctx) error {
			claims, err := ClaimsFromCtx(c)
			if err != nil {
				return err
			}
			revoked, err := denylist.IsRevoked(c.UserContext(), claims.ID)
			if err != nil {
				return apperror.Internal(err)
			}
			if revoked {
				return apperror.Unauthorized("token has been revoked")
			}
			return c.Next()
		},
	})
}

// ClaimsFromCtx returns the claims of the verified token for this request.
func ClaimsFromCtx(c *fiber.Ctx) (*Claims, error) {
	tok, ok := c.Locals(ContextKey).(*jwt.Token)
	if !ok || tok == nil {
		return nil, apperror.Unauthorized("")
	}
	claims, ok := tok.Claims.(*Claims)
	if !ok || claims.UserID == "" {
		return nil, apperror.Unauthorized("")
	}
	return claims, nil
}

// RequireRole allows the request through only for the listed roles.
func RequireRole(roles ...string) fiber.Handler {
	allowed := make(map[string]struct{}, len(roles))
	for _, r := range roles {
		allowed[strings.ToLower(r)] = struct{}{}
	}
	return func(c *fiber.Ctx) error {
		claims, err := ClaimsFromCtx(c)
		if err != nil {
			return err
		}
		if _, ok := allowed[strings.ToLower(claims.Role)]; !ok {
			return apperror.Forbidden("insufficient role")
		}
		return c.Next()
	}
}
