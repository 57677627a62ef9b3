package controllers

import (
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/agrolink/messaging/internal/pkg/apperrors"
)

// currentUserID returns the authenticated caller's ID placed in the context
// by the auth middleware
func currentUserID(ctx *gin.Context) (int64, error) {
	userID := ctx.GetInt64("userID")
	if userID == 0 {
		return 0, apperrors.ErrUnauthorized
	}
	return userID, nil
}

// pathID parses a numeric path parameter
func pathID(ctx *gin.Context, name string) (int64, error) {
	id, err := strconv.ParseInt(ctx.Param(name), 10, 64)
	if err != nil || id <= 0 {
		return 0, apperrors.NewBadRequestError("Invalid " + name + " parameter")
	}
	return id, nil
}
