package middleware

import (
	"strings"

	"github.com/gin-gonic/gin"

	apperrors "github.com/Thrusbalda/auto-work-log/internal/errors"
	"github.com/Thrusbalda/auto-work-log/internal/service"
)

// DeviceIDContextKey holds the token subject of an authenticated request.
const DeviceIDContextKey = "deviceID"

// Auth rejects requests without a valid bearer token.
func Auth(authService *service.AuthService) gin.HandlerFunc {
	return func(c *gin.Context) {
		token, apiErr := bearerToken(c.GetHeader("Authorization"))
		if apiErr != nil {
			writeError(c, apiErr)
			return
		}

		deviceID, apiErr := authService.ParseToken(token)
		if apiErr != nil {
			writeError(c, apiErr)
			return
		}

		c.Set(DeviceIDContextKey, deviceID)
		c.Next()
	}
}

func bearerToken(header string) (string, *apperrors.APIError) {
	if header == "" {
		return "", apperrors.Unauthorized("missing authorization header")
	}
	token, found := strings.CutPrefix(header, "Bearer ")
	token = strings.TrimSpace(token)
	if !found || token == "" {
		return "", apperrors.Unauthorized("invalid authorization format")
	}
	return token, nil
}

// DeviceID returns the authenticated subject, or "" on public routes.
func DeviceID(c *gin.Context) string {
	return c.GetString(DeviceIDContextKey)
}

func writeError(c *gin.Context, apiErr *apperrors.APIError) {
	c.AbortWithStatusJSON(apiErr.Status, gin.H{
		"error": gin.H{
			"code":    apiErr.Code,
			"message": apiErr.Message,
			"details": apiErr.Details,
		},
	})
}
