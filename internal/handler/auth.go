package handler

import (
	"strings"

	"github.com/gofiber/fiber/v2"
	"github.com/golang-jwt/jwt/v5"
)

const userIDLocal = "userId"

// AuthClaims carries the authenticated user identity issued by the account
// service.
type AuthClaims struct {
	jwt.RegisteredClaims
	UserID string `json:"user_id"`
}

// JWTAuth verifies the Bearer token on every request and stores the
// authenticated user id in the request locals. Tokens must be HS256-signed
// with the shared secret.
func JWTAuth(secret string) fiber.Handler {
	return func(c *fiber.Ctx) error {
		authHeader := c.Get(fiber.HeaderAuthorization)
		if authHeader == "" {
			return fiber.NewError(fiber.StatusUnauthorized, "authorization header is required")
		}

		tokenString, found := strings.CutPrefix(authHeader, "Bearer ")
		if !found {
			return fiber.NewError(fiber.StatusUnauthorized, "bearer token is required")
		}

		claims := &AuthClaims{}
		token, err := jwt.ParseWithClaims(tokenString, claims, func(_ *jwt.Token) (any, error) {
			return []byte(secret), nil
		}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
		if err != nil || !token.Valid {
			return fiber.NewError(fiber.StatusUnauthorized, "invalid token")
		}

		userID := strings.TrimSpace(claims.UserID)
		if userID == "" {
			userID = strings.TrimSpace(claims.Subject)
		}
		if userID == "" {
			return fiber.NewError(fiber.StatusUnauthorized, "token carries no user identity")
		}

		c.Locals(userIDLocal, userID)
		return c.Next()
	}
}

// AuthenticatedUserID returns the user id stored by JWTAuth, or "" when the
// middleware did not run.
func AuthenticatedUserID(c *fiber.Ctx) string {
	if id, ok := c.Locals(userIDLocal).(string); ok {
		return id
	}
	return ""
}
