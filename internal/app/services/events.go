package services

import "github.com/agrolink/messaging/internal/pkg/websocket"

// EventPusher is the realtime fan-out surface the services publish to.
// *websocket.Hub satisfies it. A nil pusher disables pushes entirely;
// database writes never depend on delivery.
type EventPusher interface {
	BroadcastToConversation(event *websocket.Event, excludeUserID int64)
	NotifyUser(userID int64, event *websocket.Event)
	SubscribeUser(userID, conversationID int64)
}
