package controllers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/agrolink/messaging/internal/app/models/dto"
	"github.com/agrolink/messaging/internal/app/services"
	"github.com/agrolink/messaging/internal/middleware"
	"github.com/agrolink/messaging/internal/pkg/apperrors"
)

// SearchController handles message search endpoints
type SearchController struct {
	messageService services.MessageService
}

// NewSearchController creates a new SearchController
func NewSearchController(messageService services.MessageService) *SearchController {
	return &SearchController{
		messageService: messageService,
	}
}

// SearchMessages godoc
// @Summary Search messages by content
// @Description Case-insensitive substring search scoped to conversations the caller participates in, optionally restricted to one conversation
// @Tags search
// @Produce json
// @Security BearerAuth
// @Param query query string true "Search text"
// @Param conversationId query int false "Restrict to this conversation"
// @Param limit query int false "Maximum results (default 50, max 100)" default(50)
// @Success 200 {object} dto.APIResponse{data=[]dto.MessageResponse}
// @Failure 400 {object} dto.APIResponse{error=dto.ErrorDetail}
// @Failure 401 {object} dto.APIResponse{error=dto.ErrorDetail}
// @Failure 403 {object} dto.APIResponse{error=dto.ErrorDetail}
// @Router /search/messages [get]
func (c *SearchController) SearchMessages(ctx *gin.Context) {
	userID, err := currentUserID(ctx)
	if err != nil {
		middleware.HandleAPIError(ctx, err)
		return
	}

	var req dto.SearchMessagesRequest
	if err := ctx.ShouldBindQuery(&req); err != nil {
		middleware.HandleAPIError(ctx, apperrors.NewBadRequestError("Invalid query parameters: "+err.Error()))
		return
	}

	messages, err := c.messageService.SearchMessages(ctx, userID, &req)
	if err != nil {
		middleware.HandleAPIError(ctx, err)
		return
	}

	response := make([]dto.MessageResponse, 0, len(messages))
	for _, m := range messages {
		response = append(response, dto.ToMessageResponse(m, userID))
	}

	ctx.JSON(http.StatusOK, dto.NewSuccessResponse(response))
}
