package controllers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/agrolink/messaging/internal/app/models"
	"github.com/agrolink/messaging/internal/app/models/dto"
	"github.com/agrolink/messaging/internal/app/services"
	"github.com/agrolink/messaging/internal/middleware"
	"github.com/agrolink/messaging/internal/pkg/apperrors"
)

// MessageController handles message pipeline endpoints
type MessageController struct {
	messageService services.MessageService
}

// NewMessageController creates a new MessageController
func NewMessageController(messageService services.MessageService) *MessageController {
	return &MessageController{
		messageService: messageService,
	}
}

// GetMessages godoc
// @Summary List messages
// @Description With conversationId returns a newest-first page and marks the conversation read for the caller; with threadId returns the replies to a message, oldest first
// @Tags messages
// @Produce json
// @Security BearerAuth
// @Param conversationId query int false "Conversation ID"
// @Param threadId query int false "Thread root message ID"
// @Param before query string false "Return messages created before this RFC3339 timestamp"
// @Param limit query int false "Page size (default 50, max 100)" default(50)
// @Success 200 {object} dto.APIResponse{data=[]dto.MessageResponse}
// @Failure 400 {object} dto.APIResponse{error=dto.ErrorDetail}
// @Failure 401 {object} dto.APIResponse{error=dto.ErrorDetail}
// @Failure 403 {object} dto.APIResponse{error=dto.ErrorDetail}
// @Failure 404 {object} dto.APIResponse{error=dto.ErrorDetail}
// @Router /messages [get]
func (c *MessageController) GetMessages(ctx *gin.Context) {
	userID, err := currentUserID(ctx)
	if err != nil {
		middleware.HandleAPIError(ctx, err)
		return
	}

	var req dto.GetMessagesRequest
	if err := ctx.ShouldBindQuery(&req); err != nil {
		middleware.HandleAPIError(ctx, apperrors.NewBadRequestError("Invalid query parameters: "+err.Error()))
		return
	}

	var messages []*models.Message
	if req.ThreadID != 0 {
		messages, err = c.messageService.GetThreadReplies(ctx, userID, req.ThreadID)
	} else {
		messages, err = c.messageService.ListMessages(ctx, userID, &req)
	}
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

// PostMessage godoc
// @Summary Send a message, toggle a reaction or append an attachment
// @Description Dispatches on the type query parameter: empty sends a message, reaction toggles an emoji reaction, attachment appends file metadata to a sent message
// @Tags messages
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param type query string false "Operation type" Enums(reaction, attachment)
// @Param message body dto.SendMessageRequest true "Message details (reaction uses dto.ReactionRequest, attachment uses dto.AddAttachmentRequest)"
// @Success 201 {object} dto.APIResponse{data=dto.MessageResponse}
// @Failure 400 {object} dto.APIResponse{error=dto.ErrorDetail}
// @Failure 401 {object} dto.APIResponse{error=dto.ErrorDetail}
// @Failure 403 {object} dto.APIResponse{error=dto.ErrorDetail}
// @Failure 404 {object} dto.APIResponse{error=dto.ErrorDetail}
// @Router /messages [post]
func (c *MessageController) PostMessage(ctx *gin.Context) {
	userID, err := currentUserID(ctx)
	if err != nil {
		middleware.HandleAPIError(ctx, err)
		return
	}

	switch ctx.Query("type") {
	case "reaction":
		c.toggleReaction(ctx, userID)
	case "attachment":
		c.addAttachment(ctx, userID)
	default:
		c.sendMessage(ctx, userID)
	}
}

func (c *MessageController) sendMessage(ctx *gin.Context, userID int64) {
	var req dto.SendMessageRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		middleware.HandleAPIError(ctx, apperrors.NewBadRequestError("Invalid request body: "+err.Error()))
		return
	}

	message, err := c.messageService.SendMessage(ctx, userID, &req)
	if err != nil {
		middleware.HandleAPIError(ctx, err)
		return
	}

	ctx.JSON(http.StatusCreated, dto.NewSuccessResponse(dto.ToMessageResponse(message, userID)))
}

func (c *MessageController) toggleReaction(ctx *gin.Context, userID int64) {
	var req dto.ReactionRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		middleware.HandleAPIError(ctx, apperrors.NewBadRequestError("Invalid request body: "+err.Error()))
		return
	}

	result, err := c.messageService.ToggleReaction(ctx, userID, &req)
	if err != nil {
		middleware.HandleAPIError(ctx, err)
		return
	}

	ctx.JSON(http.StatusOK, dto.NewSuccessResponse(result))
}

func (c *MessageController) addAttachment(ctx *gin.Context, userID int64) {
	var req dto.AddAttachmentRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		middleware.HandleAPIError(ctx, apperrors.NewBadRequestError("Invalid request body: "+err.Error()))
		return
	}

	attachment, err := c.messageService.AddAttachment(ctx, userID, &req)
	if err != nil {
		middleware.HandleAPIError(ctx, err)
		return
	}

	ctx.JSON(http.StatusCreated, dto.NewSuccessResponse(dto.ToAttachmentResponse(attachment)))
}

// PatchMessage godoc
// @Summary Report a status transition, mark a conversation read or edit a message
// @Description Dispatches on the type query parameter: status reports a forward-only lifecycle transition, read advances the caller's read watermark, edit replaces the content of the caller's own message
// @Tags messages
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param type query string true "Operation type" Enums(status, read, edit)
// @Param update body dto.UpdateStatusRequest true "Update details (read uses dto.MarkReadRequest, edit uses dto.EditMessageRequest)"
// @Success 200 {object} dto.APIResponse{data=dto.MessageResponse}
// @Failure 400 {object} dto.APIResponse{error=dto.ErrorDetail}
// @Failure 401 {object} dto.APIResponse{error=dto.ErrorDetail}
// @Failure 403 {object} dto.APIResponse{error=dto.ErrorDetail}
// @Failure 404 {object} dto.APIResponse{error=dto.ErrorDetail}
// @Router /messages [patch]
func (c *MessageController) PatchMessage(ctx *gin.Context) {
	userID, err := currentUserID(ctx)
	if err != nil {
		middleware.HandleAPIError(ctx, err)
		return
	}

	switch ctx.Query("type") {
	case "status":
		c.updateStatus(ctx, userID)
	case "read":
		c.markRead(ctx, userID)
	case "edit":
		c.editMessage(ctx, userID)
	default:
		middleware.HandleAPIError(ctx, apperrors.NewBadRequestError("Unknown update type: "+ctx.Query("type")))
	}
}

func (c *MessageController) updateStatus(ctx *gin.Context, userID int64) {
	var req dto.UpdateStatusRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		middleware.HandleAPIError(ctx, apperrors.NewBadRequestError("Invalid request body: "+err.Error()))
		return
	}

	message, err := c.messageService.UpdateMessageStatus(ctx, userID, &req)
	if err != nil {
		middleware.HandleAPIError(ctx, err)
		return
	}

	ctx.JSON(http.StatusOK, dto.NewSuccessResponse(dto.ToMessageResponse(message, userID)))
}

func (c *MessageController) markRead(ctx *gin.Context, userID int64) {
	var req dto.MarkReadRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		middleware.HandleAPIError(ctx, apperrors.NewBadRequestError("Invalid request body: "+err.Error()))
		return
	}

	if err := c.messageService.MarkConversationRead(ctx, req.ConversationID, userID); err != nil {
		middleware.HandleAPIError(ctx, err)
		return
	}

	ctx.JSON(http.StatusOK, dto.NewSuccessResponse(nil))
}

func (c *MessageController) editMessage(ctx *gin.Context, userID int64) {
	var req dto.EditMessageRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		middleware.HandleAPIError(ctx, apperrors.NewBadRequestError("Invalid request body: "+err.Error()))
		return
	}

	message, err := c.messageService.EditMessage(ctx, req.MessageID, userID, req.Content)
	if err != nil {
		middleware.HandleAPIError(ctx, err)
		return
	}

	ctx.JSON(http.StatusOK, dto.NewSuccessResponse(dto.ToMessageResponse(message, userID)))
}

// DeleteMessage godoc
// @Summary Delete a message
// @Description Message deletion is not supported; the endpoint always reports 501
// @Tags messages
// @Produce json
// @Security BearerAuth
// @Param id path int true "Message ID"
// @Failure 401 {object} dto.APIResponse{error=dto.ErrorDetail}
// @Failure 501 {object} dto.APIResponse{error=dto.ErrorDetail}
// @Router /messages/{id} [delete]
func (c *MessageController) DeleteMessage(ctx *gin.Context) {
	userID, err := currentUserID(ctx)
	if err != nil {
		middleware.HandleAPIError(ctx, err)
		return
	}
	messageID, err := pathID(ctx, "id")
	if err != nil {
		middleware.HandleAPIError(ctx, err)
		return
	}

	if err := c.messageService.DeleteMessage(ctx, messageID, userID); err != nil {
		middleware.HandleAPIError(ctx, err)
		return
	}

	ctx.JSON(http.StatusOK, dto.NewSuccessResponse(nil))
}
