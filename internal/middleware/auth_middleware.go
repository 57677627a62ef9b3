package middleware

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/agrolink/messaging/internal/app/models/dto"
	"github.com/agrolink/messaging/internal/pkg/auth"
)

// JWTAuthMiddleware validates the bearer token and stores the caller's
// identity in the request context. Browser websocket clients cannot set
// headers on the upgrade request, so a token query parameter is accepted
// as a fallback.
func JWTAuthMiddleware(jwtService *auth.JWTService) gin.HandlerFunc {
	return func(c *gin.Context) {
		tokenString, err := auth.ExtractBearerToken(c.GetHeader("Authorization"))
		if err != nil {
			if qt := c.Query("token"); qt != "" {
				tokenString = qt
			} else {
				abortUnauthorized(c, dto.ErrorCodeUnauthorized, "Authentication required")
				return
			}
		}

		claims, err := jwtService.ValidateAndExtractClaims(tokenString)
		if err != nil {
			if err == auth.ErrExpiredToken {
				abortUnauthorized(c, dto.ErrorCodeExpiredToken, "Token expired")
				return
			}
			abortUnauthorized(c, dto.ErrorCodeInvalidToken, "Invalid token")
			return
		}

		c.Set("userID", claims.UserID)
		c.Set("displayName", claims.DisplayName)
		c.Set("userRole", claims.Role)

		c.Next()
	}
}

func abortUnauthorized(c *gin.Context, code dto.ErrorCode, message string) {
	c.AbortWithStatusJSON(http.StatusUnauthorized, dto.APIResponse{
		Error:     dto.NewErrorDetail(code, message),
		Timestamp: time.Now(),
	})
}
