package middleware

import (
	"errors"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/agrolink/messaging/internal/app/models/dto"
	"github.com/agrolink/messaging/internal/pkg/apperrors"
)

// HandleAPIError maps application errors to their HTTP responses. The
// message on a CustomError wins over the generic text for its category.
func HandleAPIError(c *gin.Context, err error) {
	respond := func(status int, code dto.ErrorCode, fallback string) {
		message := fallback
		var custom *apperrors.CustomError
		if errors.As(err, &custom) && custom.Message != "" {
			message = custom.Message
		}
		c.JSON(status, dto.APIResponse{
			Error:     dto.NewErrorDetail(code, message),
			Timestamp: time.Now(),
		})
	}

	switch {
	case errors.Is(err, apperrors.ErrResourceNotFound),
		errors.Is(err, apperrors.ErrConversationNotFound),
		errors.Is(err, apperrors.ErrMessageNotFound):
		respond(404, dto.ErrorCodeResourceNotFound, "Resource not found")
	case errors.Is(err, apperrors.ErrPermissionDenied),
		errors.Is(err, apperrors.ErrNotParticipant):
		respond(403, dto.ErrorCodeForbidden, "Permission denied")
	case errors.Is(err, apperrors.ErrUnauthorized):
		respond(401, dto.ErrorCodeUnauthorized, "Authentication required")
	case errors.Is(err, apperrors.ErrTokenExpired):
		respond(401, dto.ErrorCodeExpiredToken, "Token expired")
	case errors.Is(err, apperrors.ErrTokenInvalid):
		respond(401, dto.ErrorCodeInvalidToken, "Invalid token")
	case errors.Is(err, apperrors.ErrConflict),
		errors.Is(err, apperrors.ErrResourceAlreadyExists),
		errors.Is(err, apperrors.ErrAlreadyParticipant):
		respond(409, dto.ErrorCodeConflict, "Resource conflict")
	case errors.Is(err, apperrors.ErrValidationFailed),
		errors.Is(err, apperrors.ErrInvalidStatusChange),
		errors.Is(err, apperrors.ErrCrossConversationReply):
		respond(400, dto.ErrorCodeValidationFailed, "Validation failed")
	case errors.Is(err, apperrors.ErrBadRequest):
		respond(400, dto.ErrorCodeInvalidRequest, "Invalid request")
	case errors.Is(err, apperrors.ErrNotImplemented):
		respond(501, dto.ErrorCodeNotImplemented, "Operation not supported")
	default:
		respond(500, dto.ErrorCodeInternalServer, "Internal server error")
	}
}
