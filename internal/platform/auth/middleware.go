package auth

import (
	"net/http"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/labstack/echo/v4"
)

type contextKey string

const (
	userIDKey contextKey = "auth_user_id"
	roleKey   contextKey = "auth_role"
	emailKey  contextKey = "auth_email"
)

// Claims are the JWT claims carried by clinic access tokens.
type Claims struct {
	Role  string `json:"role"`
	Email string `json:"email,omitempty"`
	jwt.RegisteredClaims
}

// JWTMiddleware validates a Bearer token signed with the given HMAC secret and
// stores the authenticated identity on the echo context.
func JWTMiddleware(secret, issuer string) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			header := c.Request().Header.Get("Authorization")
			if header == "" {
				return echo.NewHTTPError(http.StatusUnauthorized, "missing authorization header")
			}

			parts := strings.SplitN(header, " ", 2)
			if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
				return echo.NewHTTPError(http.StatusUnauthorized, "invalid authorization header")
			}

			claims := &Claims{}
			token, err := jwt.ParseWithClaims(parts[1], claims, func(t *jwt.Token) (any, error) {
				if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
					return nil, jwt.ErrSignatureInvalid
				}
				return []byte(secret), nil
			}, jwt.WithIssuer(issuer), jwt.WithValidMethods([]string{"HS256"}))
			if err != nil || !token.Valid {
				return echo.NewHTTPError(http.StatusUnauthorized, "invalid or expired token")
			}

			c.Set(string(userIDKey), claims.Subject)
			c.Set(string(roleKey), claims.Role)
			c.Set(string(emailKey), claims.Email)
			return next(c)
		}
	}
}

// DevAuthMiddleware injects a fixed admin identity. Only for local development.
func DevAuthMiddleware() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			c.Set(string(userIDKey), "dev-user")
			c.Set(string(roleKey), "admin")
			c.Set(string(emailKey), "dev@localhost")
			return next(c)
		}
	}
}

// IssueToken signs a new access token for the given identity.
func IssueToken(secret, issuer, userID, role, email string, ttl time.Duration) (string, error) {
	now := time.Now()
	claims := Claims{
		Role:  role,
		Email: email,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   userID,
			Issuer:    issuer,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString([]byte(secret))
}

// UserIDFromContext returns the authenticated user ID, or "" when absent.
func UserIDFromContext(c echo.Context) string {
	id, _ := c.Get(string(userIDKey)).(string)
	return id
}

// RoleFromContext returns the authenticated user's role, or "" when absent.
func RoleFromContext(c echo.Context) string {
	role, _ := c.Get(string(roleKey)).(string)
	return role
}
