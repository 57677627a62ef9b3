package controllers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/agrolink/messaging/internal/app/models/dto"
	"github.com/agrolink/messaging/internal/app/services"
	"github.com/agrolink/messaging/internal/middleware"
	"github.com/agrolink/messaging/internal/pkg/apperrors"
)

// ConversationController handles conversation management endpoints
type ConversationController struct {
	conversationService services.ConversationService
}

// NewConversationController creates a new ConversationController
func NewConversationController(conversationService services.ConversationService) *ConversationController {
	return &ConversationController{
		conversationService: conversationService,
	}
}

// ListConversations godoc
// @Summary List the caller's conversations
// @Description Returns non-archived conversations ordered pinned-first, then by most recent activity, with unread counts
// @Tags conversations
// @Produce json
// @Security BearerAuth
// @Success 200 {object} dto.APIResponse{data=[]dto.ConversationSummaryResponse}
// @Failure 401 {object} dto.APIResponse{error=dto.ErrorDetail}
// @Failure 500 {object} dto.APIResponse{error=dto.ErrorDetail}
// @Router /conversations [get]
func (c *ConversationController) ListConversations(ctx *gin.Context) {
	userID, err := currentUserID(ctx)
	if err != nil {
		middleware.HandleAPIError(ctx, err)
		return
	}

	summaries, err := c.conversationService.ListConversationsForUser(ctx, userID)
	if err != nil {
		middleware.HandleAPIError(ctx, err)
		return
	}

	response := make([]dto.ConversationSummaryResponse, 0, len(summaries))
	for _, s := range summaries {
		response = append(response, dto.ToConversationSummaryResponse(s))
	}

	ctx.JSON(http.StatusOK, dto.NewSuccessResponse(response))
}

// CreateConversation godoc
// @Summary Create a conversation
// @Description Creates a group conversation when type=group, otherwise finds or creates the direct conversation with another user
// @Tags conversations
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param type query string false "Conversation type" Enums(direct, group) default(direct)
// @Param conversation body dto.CreateDirectConversationRequest true "Direct conversation details (group requests use dto.CreateGroupConversationRequest)"
// @Success 201 {object} dto.APIResponse{data=dto.ConversationResponse}
// @Failure 400 {object} dto.APIResponse{error=dto.ErrorDetail}
// @Failure 401 {object} dto.APIResponse{error=dto.ErrorDetail}
// @Failure 404 {object} dto.APIResponse{error=dto.ErrorDetail}
// @Failure 500 {object} dto.APIResponse{error=dto.ErrorDetail}
// @Router /conversations [post]
func (c *ConversationController) CreateConversation(ctx *gin.Context) {
	userID, err := currentUserID(ctx)
	if err != nil {
		middleware.HandleAPIError(ctx, err)
		return
	}

	if ctx.Query("type") == "group" {
		c.createGroup(ctx, userID)
		return
	}
	c.createDirect(ctx, userID)
}

func (c *ConversationController) createDirect(ctx *gin.Context, userID int64) {
	var req dto.CreateDirectConversationRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		middleware.HandleAPIError(ctx, apperrors.NewBadRequestError("Invalid request body: "+err.Error()))
		return
	}

	conversation, err := c.conversationService.GetOrCreateDirectConversation(ctx, userID, req.OtherUserID, req.ProductID)
	if err != nil {
		middleware.HandleAPIError(ctx, err)
		return
	}

	ctx.JSON(http.StatusCreated, dto.NewSuccessResponse(dto.ToConversationResponse(conversation)))
}

func (c *ConversationController) createGroup(ctx *gin.Context, userID int64) {
	var req dto.CreateGroupConversationRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		middleware.HandleAPIError(ctx, apperrors.NewBadRequestError("Invalid request body: "+err.Error()))
		return
	}

	conversation, err := c.conversationService.CreateGroupConversation(ctx, userID, &req)
	if err != nil {
		middleware.HandleAPIError(ctx, err)
		return
	}

	ctx.JSON(http.StatusCreated, dto.NewSuccessResponse(dto.ToConversationResponse(conversation)))
}

// GetConversation godoc
// @Summary Get a conversation
// @Description Returns a conversation with its participants; restricted to members
// @Tags conversations
// @Produce json
// @Security BearerAuth
// @Param id path int true "Conversation ID"
// @Success 200 {object} dto.APIResponse{data=dto.ConversationResponse}
// @Failure 401 {object} dto.APIResponse{error=dto.ErrorDetail}
// @Failure 403 {object} dto.APIResponse{error=dto.ErrorDetail}
// @Failure 404 {object} dto.APIResponse{error=dto.ErrorDetail}
// @Failure 500 {object} dto.APIResponse{error=dto.ErrorDetail}
// @Router /conversations/{id} [get]
func (c *ConversationController) GetConversation(ctx *gin.Context) {
	userID, err := currentUserID(ctx)
	if err != nil {
		middleware.HandleAPIError(ctx, err)
		return
	}
	conversationID, err := pathID(ctx, "id")
	if err != nil {
		middleware.HandleAPIError(ctx, err)
		return
	}

	conversation, err := c.conversationService.GetConversation(ctx, conversationID, userID)
	if err != nil {
		middleware.HandleAPIError(ctx, err)
		return
	}

	ctx.JSON(http.StatusOK, dto.NewSuccessResponse(dto.ToConversationResponse(conversation)))
}

// UpdateConversation godoc
// @Summary Apply a per-participant conversation action
// @Description Dispatches on the action field: archive and togglePin flip the caller's own flags; leave, removeMember and updateInfo are reserved
// @Tags conversations
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path int true "Conversation ID"
// @Param update body dto.UpdateConversationRequest true "Action to apply"
// @Success 200 {object} dto.APIResponse
// @Failure 400 {object} dto.APIResponse{error=dto.ErrorDetail}
// @Failure 401 {object} dto.APIResponse{error=dto.ErrorDetail}
// @Failure 403 {object} dto.APIResponse{error=dto.ErrorDetail}
// @Failure 501 {object} dto.APIResponse{error=dto.ErrorDetail}
// @Router /conversations/{id} [patch]
func (c *ConversationController) UpdateConversation(ctx *gin.Context) {
	userID, err := currentUserID(ctx)
	if err != nil {
		middleware.HandleAPIError(ctx, err)
		return
	}
	conversationID, err := pathID(ctx, "id")
	if err != nil {
		middleware.HandleAPIError(ctx, err)
		return
	}

	var req dto.UpdateConversationRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		middleware.HandleAPIError(ctx, apperrors.NewBadRequestError("Invalid request body: "+err.Error()))
		return
	}

	switch req.Action {
	case dto.ConversationActionArchive:
		err = c.conversationService.ToggleArchive(ctx, conversationID, userID)
	case dto.ConversationActionTogglePin:
		err = c.conversationService.TogglePin(ctx, conversationID, userID)
	case dto.ConversationActionLeave:
		err = c.conversationService.LeaveConversation(ctx, conversationID, userID)
	case dto.ConversationActionRemoveMember:
		err = c.conversationService.RemoveMember(ctx, conversationID, userID, 0)
	case dto.ConversationActionUpdateInfo:
		err = c.conversationService.UpdateGroupInfo(ctx, conversationID, userID)
	default:
		err = apperrors.NewValidationError("Unknown action: " + req.Action)
	}
	if err != nil {
		middleware.HandleAPIError(ctx, err)
		return
	}

	ctx.JSON(http.StatusOK, dto.NewSuccessResponse(nil))
}

// AddParticipant godoc
// @Summary Add a member to a group conversation
// @Description The caller must be an owner or admin of the group; the new member joins with the MEMBER role
// @Tags conversations
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path int true "Conversation ID"
// @Param participant body dto.AddParticipantRequest true "User to add"
// @Success 201 {object} dto.APIResponse{data=dto.ParticipantResponse}
// @Failure 400 {object} dto.APIResponse{error=dto.ErrorDetail}
// @Failure 401 {object} dto.APIResponse{error=dto.ErrorDetail}
// @Failure 403 {object} dto.APIResponse{error=dto.ErrorDetail}
// @Failure 404 {object} dto.APIResponse{error=dto.ErrorDetail}
// @Failure 409 {object} dto.APIResponse{error=dto.ErrorDetail}
// @Router /conversations/{id}/participants [post]
func (c *ConversationController) AddParticipant(ctx *gin.Context) {
	userID, err := currentUserID(ctx)
	if err != nil {
		middleware.HandleAPIError(ctx, err)
		return
	}
	conversationID, err := pathID(ctx, "id")
	if err != nil {
		middleware.HandleAPIError(ctx, err)
		return
	}

	var req dto.AddParticipantRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		middleware.HandleAPIError(ctx, apperrors.NewBadRequestError("Invalid request body: "+err.Error()))
		return
	}

	participant, err := c.conversationService.AddGroupMember(ctx, conversationID, userID, req.UserID)
	if err != nil {
		middleware.HandleAPIError(ctx, err)
		return
	}

	ctx.JSON(http.StatusCreated, dto.NewSuccessResponse(dto.ToParticipantResponse(participant)))
}
