package middleware

import (
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"

	"github.com/elo-edu/secretaria-api/internal/models"
	appErrors "github.com/elo-edu/secretaria-api/pkg/errors"
	"github.com/elo-edu/secretaria-api/pkg/response"
)

// ContextOperatorKey is the gin context key storing operator claims.
const ContextOperatorKey = "currentOperator"

// Operator protects the secretary routes by requiring a valid operator
// bearer token. An empty secret disables the gate for local development.
func Operator(secret string) gin.HandlerFunc {
	key := []byte(secret)
	return func(c *gin.Context) {
		if len(key) == 0 {
			c.Next()
			return
		}

		header := c.GetHeader("Authorization")
		if header == "" {
			response.Error(c, appErrors.ErrUnauthorized)
			c.Abort()
			return
		}

		parts := strings.SplitN(header, " ", 2)
		if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
			response.Error(c, appErrors.Clone(appErrors.ErrUnauthorized, "invalid authorization header"))
			c.Abort()
			return
		}

		claims, err := parseOperatorToken(parts[1], key)
		if err != nil {
			response.Error(c, err)
			c.Abort()
			return
		}

		c.Set(ContextOperatorKey, claims)
		c.Next()
	}
}

func parseOperatorToken(raw string, key []byte) (*models.OperatorClaims, error) {
	token, err := jwt.Parse(raw, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, appErrors.ErrUnauthorized
		}
		return key, nil
	})
	if err != nil || !token.Valid {
		return nil, appErrors.Clone(appErrors.ErrUnauthorized, "invalid or expired token")
	}

	mapClaims, ok := token.Claims.(jwt.MapClaims)
	if !ok {
		return nil, appErrors.ErrUnauthorized
	}
	// Download tokens are single-purpose and never grant operator access.
	if typ, _ := mapClaims["typ"].(string); typ != "" {
		return nil, appErrors.Clone(appErrors.ErrUnauthorized, "token not valid for operator access")
	}

	claims := &models.OperatorClaims{}
	claims.Subject, _ = mapClaims["sub"].(string)
	claims.Name, _ = mapClaims["name"].(string)
	claims.Role, _ = mapClaims["role"].(string)
	if claims.Subject == "" {
		return nil, appErrors.ErrUnauthorized
	}
	return claims, nil
}

// OperatorFrom retrieves the operator claims set by the auth middleware.
func OperatorFrom(c *gin.Context) (*models.OperatorClaims, bool) {
	value, ok := c.Get(ContextOperatorKey)
	if !ok {
		return nil, false
	}
	claims, ok := value.(*models.OperatorClaims)
	return claims, ok
}
