package auth

import (
	"context"
	"fmt"
	"net/http"
	"strings"

	"github.com/golang-jwt/jwt/v5"
	"github.com/labstack/echo/v4"
	"go.uber.org/zap"
)

// Operator represents an authenticated operator from a JWT.
type Operator struct {
	Subject string `json:"subject"`
	Role    string `json:"role"`
}

// contextKey is used for storing the operator in context.
type contextKey string

const operatorContextKey contextKey = "authenticated_operator"

// JWTConfig holds the configuration for the JWT middleware.
type JWTConfig struct {
	Secret    string
	Logger    *zap.Logger
	SkipPaths []string
}

// JWTMiddleware validates bearer tokens on the internal ops routes.
func JWTMiddleware(config JWTConfig) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			path := c.Request().URL.Path
			for _, skipPath := range config.SkipPaths {
				if strings.HasPrefix(path, skipPath) {
					return next(c)
				}
			}

			authHeader := c.Request().Header.Get("Authorization")
			if authHeader == "" {
				config.Logger.Warn("Missing authorization header",
					zap.String("path", path),
					zap.String("method", c.Request().Method))
				return c.JSON(http.StatusUnauthorized, echo.Map{
					"error": "Authorization header required",
					"code":  "MISSING_AUTH_HEADER",
				})
			}

			tokenString := strings.TrimPrefix(authHeader, "Bearer ")
			if tokenString == authHeader {
				config.Logger.Warn("Invalid authorization header format",
					zap.String("path", path))
				return c.JSON(http.StatusUnauthorized, echo.Map{
					"error": "Invalid authorization header format. Expected: Bearer <token>",
					"code":  "INVALID_AUTH_FORMAT",
				})
			}

			token, err := jwt.Parse(tokenString, func(token *jwt.Token) (interface{}, error) {
				if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
					return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
				}
				return []byte(config.Secret), nil
			})

			if err != nil || !token.Valid {
				config.Logger.Warn("JWT validation failed",
					zap.Error(err),
					zap.String("path", path))
				return c.JSON(http.StatusUnauthorized, echo.Map{
					"error": "Invalid or expired token",
					"code":  "INVALID_TOKEN",
				})
			}

			operator := &Operator{}
			if claims, ok := token.Claims.(jwt.MapClaims); ok {
				operator.Subject, _ = claims["sub"].(string)
				operator.Role, _ = claims["role"].(string)
			}

			ctx := context.WithValue(c.Request().Context(), operatorContextKey, operator)
			c.SetRequest(c.Request().WithContext(ctx))

			return next(c)
		}
	}
}

// OperatorFromContext returns the authenticated operator, if any.
func OperatorFromContext(ctx context.Context) (*Operator, bool) {
	operator, ok := ctx.Value(operatorContextKey).(*Operator)
	return operator, ok
}
