package middleware

import (
	"fmt"

	"github.com/gin-gonic/gin"

	"github.com/incubatehub/compliance-api/internal/models"
	appErrors "github.com/incubatehub/compliance-api/pkg/errors"
	"github.com/incubatehub/compliance-api/pkg/response"
)

// Route policies of the compliance API.
var (
	// ReadCompliance covers overviews, participant summaries, reminder previews and export status.
	ReadCompliance = []models.UserRole{models.RoleAdmin, models.RoleConsultant, models.RoleViewer}
	// ReviewDocuments covers document verification and export requests.
	ReviewDocuments = []models.UserRole{models.RoleAdmin, models.RoleConsultant}
	// Operate covers reminder dispatch and system metrics.
	Operate = []models.UserRole{models.RoleAdmin}
)

func knownRole(role models.UserRole) bool {
	for _, r := range ReadCompliance {
		if r == role {
			return true
		}
	}
	return false
}

// RequireRoles lets the request through only when the caller's role is listed.
func RequireRoles(roles ...models.UserRole) gin.HandlerFunc {
	allowed := make(map[models.UserRole]struct{}, len(roles))
	for _, r := range roles {
		allowed[r] = struct{}{}
	}
	return func(c *gin.Context) {
		claims := CurrentClaims(c)
		if claims == nil {
			response.Error(c, appErrors.ErrUnauthorized)
			c.Abort()
			return
		}
		if _, ok := allowed[claims.Role]; !ok {
			response.Error(c, appErrors.Clone(appErrors.ErrForbidden, fmt.Sprintf("role %s may not perform this action", claims.Role)))
			c.Abort()
			return
		}
		c.Next()
	}
}
