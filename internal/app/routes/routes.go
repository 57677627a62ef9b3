package routes

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/agrolink/messaging/internal/app/controllers"
	"github.com/agrolink/messaging/internal/middleware"
	"github.com/agrolink/messaging/internal/pkg/auth"
	"github.com/agrolink/messaging/internal/pkg/websocket"
)

// SetupRouter configures all application routes
func SetupRouter(
	router *gin.Engine,
	conversationController *controllers.ConversationController,
	messageController *controllers.MessageController,
	searchController *controllers.SearchController,
	wsHandler *websocket.Handler,
	jwtService *auth.JWTService,
) {
	router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	// API version group; every endpoint requires an authenticated caller
	v1 := router.Group("/api/v1")
	v1.Use(middleware.JWTAuthMiddleware(jwtService))

	conversations := v1.Group("/conversations")
	{
		conversations.GET("", conversationController.ListConversations)
		conversations.POST("", conversationController.CreateConversation)
		conversations.GET("/:id", conversationController.GetConversation)
		conversations.PATCH("/:id", conversationController.UpdateConversation)
		conversations.POST("/:id/participants", conversationController.AddParticipant)
	}

	messages := v1.Group("/messages")
	{
		messages.GET("", messageController.GetMessages)
		messages.POST("", messageController.PostMessage)
		messages.PATCH("", messageController.PatchMessage)
		messages.DELETE("/:id", messageController.DeleteMessage)
	}

	search := v1.Group("/search")
	{
		search.GET("/messages", searchController.SearchMessages)
	}

	// Realtime event stream; auth via the same middleware, token accepted
	// as a query parameter for browser clients
	v1.GET("/ws", wsHandler.HandleConnection)
}
