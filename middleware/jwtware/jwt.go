// Package jwtware guards fiber routes with a bearer access token.
package jwtware

import (
	"strings"

	"github.com/gofiber/fiber/v2"

	"github.com/hrj2233/blog-app-api/auth"
)

// ErrJWTMissingOrMalformed is returned when the Authorization header is
// absent or does not carry a bearer token.
var ErrJWTMissingOrMalformed = auth.ErrTokenMalformed

// AccessVerifier validates a raw access token. This mirrors the
// TokenService.VerifyAccess method without binding to the concrete type.
type AccessVerifier interface {
	VerifyAccess(raw string) (*auth.SessionClaims, error)
}

// Config holds the middleware configuration. Verifier is required.
type Config struct {
	// Verifier validates the extracted token.
	Verifier AccessVerifier

	// Filter skips the middleware when it returns true.
	Filter func(*fiber.Ctx) bool

	// ErrorHandler writes the rejection response. Defaults to a uniform
	// 401 that never distinguishes missing, expired, and forged tokens.
	ErrorHandler fiber.ErrorHandler

	// ContextKey is the locals key the verified claims are stored under.
	// Defaults to auth.ContextKey.
	ContextKey string

	// AuthScheme is the expected Authorization scheme. Defaults to
	// "Bearer".
	AuthScheme string
}

// New returns a fiber middleware that rejects requests without a valid
// access token and stores the verified claims in the request locals.
func New(config Config) fiber.Handler {
	cfg := setDefaults(config)

	return func(c *fiber.Ctx) error {
		if cfg.Filter != nil && cfg.Filter(c) {
			return c.Next()
		}

		raw, err := extractToken(c, cfg.AuthScheme)
		if err != nil {
			return cfg.ErrorHandler(c, err)
		}

		claims, err := cfg.Verifier.VerifyAccess(raw)
		if err != nil {
			return cfg.ErrorHandler(c, err)
		}

		c.Locals(cfg.ContextKey, claims)

		return c.Next()
	}
}

func setDefaults(cfg Config) Config {
	if cfg.Verifier == nil {
		panic("jwtware: Config.Verifier is required")
	}
	if cfg.ContextKey == "" {
		cfg.ContextKey = auth.ContextKey
	}
	if cfg.AuthScheme == "" {
		cfg.AuthScheme = "Bearer"
	}
	if cfg.ErrorHandler == nil {
		cfg.ErrorHandler = defaultErrorHandler
	}
	return cfg
}

func extractToken(c *fiber.Ctx, scheme string) (string, error) {
	header := c.Get(fiber.HeaderAuthorization)
	if header == "" {
		return "", ErrJWTMissingOrMalformed.Clone()
	}

	prefix := scheme + " "
	if len(header) <= len(prefix) || !strings.EqualFold(header[:len(prefix)], prefix) {
		return "", ErrJWTMissingOrMalformed.Clone()
	}

	token := strings.TrimSpace(header[len(prefix):])
	if token == "" {
		return "", ErrJWTMissingOrMalformed.Clone()
	}

	return token, nil
}

// defaultErrorHandler answers every rejection with the same 401 body so
// a caller cannot probe which check failed.
func defaultErrorHandler(c *fiber.Ctx, _ error) error {
	return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
		"message": "invalid or expired token",
		"code":    auth.TextCodeInvalidCredential,
	})
}
