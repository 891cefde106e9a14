package middleware

import (
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/incubatehub/compliance-api/internal/models"
	"github.com/incubatehub/compliance-api/internal/service"
	appErrors "github.com/incubatehub/compliance-api/pkg/errors"
	"github.com/incubatehub/compliance-api/pkg/response"
)

// ContextUserKey is the gin context key storing JWT claims.
const ContextUserKey = "currentUser"

// JWT requires a valid bearer token carrying one of the compliance roles.
// Company-bound tokens also seed the response metadata with their company.
func JWT(authService *service.AuthService) gin.HandlerFunc {
	return func(c *gin.Context) {
		token, err := bearerToken(c.GetHeader("Authorization"))
		if err != nil {
			response.Error(c, err)
			c.Abort()
			return
		}

		claims, err := authService.ValidateToken(token)
		if err != nil {
			response.Error(c, err)
			c.Abort()
			return
		}
		if !knownRole(claims.Role) {
			response.Error(c, appErrors.Clone(appErrors.ErrForbidden, "role not recognised"))
			c.Abort()
			return
		}

		c.Set(ContextUserKey, claims)
		SetCompanyCode(c, claims.CompanyCode)
		c.Next()
	}
}

// CurrentClaims returns the claims attached by JWT, or nil on unauthenticated routes.
func CurrentClaims(c *gin.Context) *models.JWTClaims {
	value, exists := c.Get(ContextUserKey)
	if !exists {
		return nil
	}
	claims, _ := value.(*models.JWTClaims)
	return claims
}

func bearerToken(header string) (string, error) {
	if header == "" {
		return "", appErrors.ErrUnauthorized
	}
	parts := strings.SplitN(header, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") || strings.TrimSpace(parts[1]) == "" {
		return "", appErrors.Clone(appErrors.ErrUnauthorized, "invalid authorization header")
	}
	return strings.TrimSpace(parts[1]), nil
}
