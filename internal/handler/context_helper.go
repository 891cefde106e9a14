package handler

import (
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/incubatehub/compliance-api/internal/middleware"
	"github.com/incubatehub/compliance-api/internal/models"
	appErrors "github.com/incubatehub/compliance-api/pkg/errors"
)

func claimsFromContext(c *gin.Context) *models.JWTClaims {
	return middleware.CurrentClaims(c)
}

// scopedCompanyCode resolves the company a request acts on. Tokens bound to a
// company may only address that company; admins may address any.
func scopedCompanyCode(claims *models.JWTClaims, requested string) (string, error) {
	requested = strings.TrimSpace(requested)
	if claims == nil || claims.Role == models.RoleAdmin || claims.CompanyCode == "" {
		if requested == "" {
			return "", appErrors.Clone(appErrors.ErrValidation, "companyCode is required")
		}
		return requested, nil
	}
	if requested == "" {
		return claims.CompanyCode, nil
	}
	if !strings.EqualFold(requested, claims.CompanyCode) {
		return "", appErrors.Clone(appErrors.ErrForbidden, "company not accessible with this token")
	}
	return claims.CompanyCode, nil
}
