package websocket

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// testConnFactory upgrades inbound requests and hands the server-side
// connection back to the test
type testConnFactory struct {
	srv   *httptest.Server
	conns chan *websocket.Conn
}

func newTestConnFactory(t *testing.T) *testConnFactory {
	t.Helper()
	f := &testConnFactory{conns: make(chan *websocket.Conn, 8)}
	upgrader := websocket.Upgrader{}
	f.srv = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		require.NoError(t, err)
		f.conns <- conn
	}))
	t.Cleanup(f.srv.Close)
	return f
}

// dial opens a connection pair and returns the hub-side client plus the
// peer side the test reads from
func (f *testConnFactory) dial(t *testing.T, hub *Hub, userID int64, queueSize int, conversationIDs ...int64) (*Client, *websocket.Conn) {
	t.Helper()
	peer, _, err := websocket.DefaultDialer.Dial(
		"ws"+strings.TrimPrefix(f.srv.URL, "http"), nil)
	require.NoError(t, err)
	t.Cleanup(func() { peer.Close() })

	serverConn := <-f.conns

	client := &Client{
		hub:           hub,
		conn:          serverConn,
		send:          make(chan []byte, queueSize),
		userID:        userID,
		connID:        uuid.NewString(),
		subscriptions: make(map[int64]bool),
		logger:        zerolog.Nop(),
	}
	for _, id := range conversationIDs {
		client.subscriptions[id] = true
	}
	hub.registerClient(client)
	return client, peer
}

func readEvent(t *testing.T, peer *websocket.Conn) *Event {
	t.Helper()
	peer.SetReadDeadline(time.Now().Add(2 * time.Second))
	_, data, err := peer.ReadMessage()
	require.NoError(t, err)
	var event Event
	require.NoError(t, json.Unmarshal(data, &event))
	return &event
}

func assertNoEvent(t *testing.T, peer *websocket.Conn) {
	t.Helper()
	peer.SetReadDeadline(time.Now().Add(150 * time.Millisecond))
	_, _, err := peer.ReadMessage()
	assert.Error(t, err, "expected no event to arrive")
}

func TestHubBroadcastScopedToSubscriptions(t *testing.T) {
	factory := newTestConnFactory(t)
	hub := NewHub(zerolog.Nop())

	sender, senderPeer := factory.dial(t, hub, 1, 8, 10)
	recipient, recipientPeer := factory.dial(t, hub, 2, 8, 10)
	bystander, bystanderPeer := factory.dial(t, hub, 3, 8, 99)
	go sender.writePump()
	go recipient.writePump()
	go bystander.writePump()

	hub.dispatch(&broadcastRequest{
		event:         NewEvent(EventMessageNew, 10, map[string]string{"content": "merhaba"}),
		excludeUserID: 1,
	})

	event := readEvent(t, recipientPeer)
	assert.Equal(t, EventMessageNew, event.Type)
	assert.Equal(t, int64(10), event.ConversationID)

	assertNoEvent(t, senderPeer)
	assertNoEvent(t, bystanderPeer)
}

func TestHubNotifyUserTargetsSingleUser(t *testing.T) {
	factory := newTestConnFactory(t)
	hub := NewHub(zerolog.Nop())

	target, targetPeer := factory.dial(t, hub, 2, 8)
	other, otherPeer := factory.dial(t, hub, 3, 8)
	go target.writePump()
	go other.writePump()

	hub.dispatch(&broadcastRequest{
		event:      NewEvent(EventConversationUpdated, 10, nil),
		onlyUserID: 2,
	})

	event := readEvent(t, targetPeer)
	assert.Equal(t, EventConversationUpdated, event.Type)
	assertNoEvent(t, otherPeer)
}

func TestHubMultipleConnectionsPerUser(t *testing.T) {
	factory := newTestConnFactory(t)
	hub := NewHub(zerolog.Nop())

	phone, phonePeer := factory.dial(t, hub, 2, 8, 10)
	laptop, laptopPeer := factory.dial(t, hub, 2, 8, 10)
	go phone.writePump()
	go laptop.writePump()

	assert.Equal(t, 2, hub.ConnectionCount(2))

	hub.dispatch(&broadcastRequest{event: NewEvent(EventMessageNew, 10, nil)})

	assert.Equal(t, EventMessageNew, readEvent(t, phonePeer).Type)
	assert.Equal(t, EventMessageNew, readEvent(t, laptopPeer).Type)
}

func TestHubSubscribeUserAddsConversation(t *testing.T) {
	factory := newTestConnFactory(t)
	hub := NewHub(zerolog.Nop())

	client, peer := factory.dial(t, hub, 2, 8)
	go client.writePump()

	// Not yet subscribed; this event must never be queued
	hub.dispatch(&broadcastRequest{event: NewEvent(EventMessageNew, 10, nil)})

	hub.subscribeUser(2, 10)
	hub.dispatch(&broadcastRequest{event: NewEvent(EventMessageEdited, 10, nil)})

	// The first event the peer sees is the post-subscription one
	assert.Equal(t, EventMessageEdited, readEvent(t, peer).Type)
}

func TestHubDropsSlowClient(t *testing.T) {
	factory := newTestConnFactory(t)
	hub := NewHub(zerolog.Nop())

	// No writePump draining the queue; capacity one means the second
	// dispatch finds it full
	_, _ = factory.dial(t, hub, 2, 1, 10)
	require.Equal(t, 1, hub.ConnectionCount(2))

	hub.dispatch(&broadcastRequest{event: NewEvent(EventMessageNew, 10, nil)})
	assert.Equal(t, 1, hub.ConnectionCount(2))

	hub.dispatch(&broadcastRequest{event: NewEvent(EventMessageNew, 10, nil)})
	assert.Equal(t, 0, hub.ConnectionCount(2), "a client that cannot keep up is dropped")
}

func TestHubUnregisterRemovesUserEntry(t *testing.T) {
	factory := newTestConnFactory(t)
	hub := NewHub(zerolog.Nop())

	client, _ := factory.dial(t, hub, 2, 8, 10)
	require.Equal(t, 1, hub.ConnectionCount(2))

	hub.unregisterClient(client)
	assert.Equal(t, 0, hub.ConnectionCount(2))

	// Idempotent; a second unregister of the same client is a no-op
	hub.unregisterClient(client)
	assert.Equal(t, 0, hub.ConnectionCount(2))
}
