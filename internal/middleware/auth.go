package middleware

import (
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"

	apperrors "finbook/internal/errors"
)

// PrincipalKey is the gin context key holding the authenticated principal.
const PrincipalKey = "principal"

// Gate decides whether a principal may use the API. Tokens are issued by an
// external identity provider; the gate only judges the verified subject.
type Gate interface {
	IsAuthenticated(principal string) bool
}

// GateFunc adapts a function to the Gate interface.
type GateFunc func(principal string) bool

func (f GateFunc) IsAuthenticated(principal string) bool { return f(principal) }

// AnyPrincipal admits every verified, non-empty subject.
var AnyPrincipal Gate = GateFunc(func(principal string) bool { return principal != "" })

// AllowList admits only the listed principals.
func AllowList(principals ...string) Gate {
	allowed := make(map[string]bool, len(principals))
	for _, p := range principals {
		allowed[p] = true
	}
	return GateFunc(func(principal string) bool { return allowed[principal] })
}

// IssueToken signs an HS256 token for subject. The API never calls this; it
// exists for tooling and tests that stand in for the identity provider.
func IssueToken(secret []byte, subject string, ttl time.Duration) (string, error) {
	now := time.Now()
	claims := jwt.RegisteredClaims{
		Subject:   subject,
		IssuedAt:  jwt.NewNumericDate(now),
		NotBefore: jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(secret)
}

// AuthMiddleware verifies the bearer JWT, asks gate about its subject and
// stores the subject as the request principal.
func AuthMiddleware(secret []byte, gate Gate) gin.HandlerFunc {
	return func(c *gin.Context) {
		authHeader := c.GetHeader("Authorization")
		if authHeader == "" {
			abortUnauthorized(c, "Authorization header is required")
			return
		}

		parts := strings.Split(authHeader, " ")
		if len(parts) != 2 || parts[0] != "Bearer" {
			abortUnauthorized(c, "Invalid authorization header format")
			return
		}

		claims := &jwt.RegisteredClaims{}
		token, err := jwt.ParseWithClaims(parts[1], claims, func(token *jwt.Token) (interface{}, error) {
			if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
				return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
			}
			return secret, nil
		})
		if err != nil || !token.Valid {
			abortUnauthorized(c, "Invalid or expired token")
			return
		}

		if !gate.IsAuthenticated(claims.Subject) {
			abortUnauthorized(c, "Access denied")
			return
		}

		c.Set(PrincipalKey, claims.Subject)
		c.Next()
	}
}

// Principal returns the authenticated principal of the request, or "".
func Principal(c *gin.Context) string {
	return c.GetString(PrincipalKey)
}

func abortUnauthorized(c *gin.Context, message string) {
	appErr := apperrors.WithMessage(apperrors.ErrUnauthorized, message)
	c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
		"error": gin.H{"code": appErr.Code, "message": appErr.Message},
	})
}
