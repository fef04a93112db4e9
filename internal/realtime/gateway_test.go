package realtime

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func startGateway(t *testing.T) *Gateway {
	t.Helper()
	g := NewGateway(NewRegistry())
	go g.Run()
	t.Cleanup(g.Close)
	return g
}

func recvFrame(t *testing.T, c *Client) Envelope {
	t.Helper()
	select {
	case raw := <-c.Outbox():
		var env Envelope
		require.NoError(t, json.Unmarshal(raw, &env))
		return env
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for frame")
		return Envelope{}
	}
}

func assertNoFrame(t *testing.T, c *Client) {
	t.Helper()
	select {
	case raw := <-c.Outbox():
		t.Fatalf("unexpected frame: %s", raw)
	case <-time.After(50 * time.Millisecond):
	}
}

func TestAddUserBroadcastsRoster(t *testing.T) {
	g := startGateway(t)

	alice := NewClient("alice")
	g.AddUser(alice)

	env := recvFrame(t, alice)
	assert.Equal(t, EventGetUsers, env.Event)

	var roster []map[string]string
	require.NoError(t, json.Unmarshal(env.Data, &roster))
	assert.Equal(t, []map[string]string{{"userId": "alice"}}, roster)

	bob := NewClient("bob")
	g.AddUser(bob)

	env = recvFrame(t, alice)
	require.NoError(t, json.Unmarshal(env.Data, &roster))
	assert.Len(t, roster, 2)
}

func TestSendMessageDeliversToReceiver(t *testing.T) {
	g := NewGateway(NewRegistry())
	g.now = func() time.Time { return time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC) }
	go g.Run()
	t.Cleanup(g.Close)

	alice := NewClient("alice")
	bob := NewClient("bob")
	g.AddUser(alice)
	g.AddUser(bob)
	recvFrame(t, alice) // roster after alice joins
	recvFrame(t, alice) // roster after bob joins
	recvFrame(t, bob)

	g.SendMessage(ChatMessage{
		SenderID:       "alice",
		SenderName:     "Alice",
		ReceiverID:     "bob",
		Text:           "hello",
		ConversationID: "conv1",
	})

	env := recvFrame(t, bob)
	assert.Equal(t, EventGetMessage, env.Event)

	var payload map[string]interface{}
	require.NoError(t, json.Unmarshal(env.Data, &payload))
	assert.Equal(t, "alice", payload["senderId"])
	assert.Equal(t, "hello", payload["text"])
	assert.Equal(t, "conv1", payload["conversationId"])
	assert.Contains(t, payload["createdAt"], "2026-03-01T12:00:00")

	assertNoFrame(t, alice)
}

func TestSendMessageToOfflineReceiverIsDropped(t *testing.T) {
	g := startGateway(t)

	alice := NewClient("alice")
	g.AddUser(alice)
	recvFrame(t, alice)

	g.SendMessage(ChatMessage{SenderID: "alice", ReceiverID: "nobody", Text: "hi"})
	assertNoFrame(t, alice)
}

func TestMarkAsReadForwardsToSender(t *testing.T) {
	g := startGateway(t)

	alice := NewClient("alice")
	g.AddUser(alice)
	recvFrame(t, alice)

	g.MarkAsRead(ReadReceipt{ConversationID: "conv1", ReaderID: "bob", SenderID: "alice"})

	env := recvFrame(t, alice)
	assert.Equal(t, EventMessageRead, env.Event)

	var payload map[string]interface{}
	require.NoError(t, json.Unmarshal(env.Data, &payload))
	assert.Equal(t, "conv1", payload["conversationId"])
	assert.Equal(t, "bob", payload["readerId"])
	assert.NotEmpty(t, payload["readAt"])
}

func TestTypingForwarded(t *testing.T) {
	g := startGateway(t)

	bob := NewClient("bob")
	g.AddUser(bob)
	recvFrame(t, bob)

	g.Typing(TypingEvent{ConversationID: "conv1", UserID: "alice", ReceiverID: "bob"})
	env := recvFrame(t, bob)
	assert.Equal(t, EventUserTyping, env.Event)

	g.StopTyping(TypingEvent{ConversationID: "conv1", UserID: "alice", ReceiverID: "bob"})
	env = recvFrame(t, bob)
	assert.Equal(t, EventUserStopTyping, env.Event)
}

func TestHandleFrameOverridesSenderIdentity(t *testing.T) {
	g := startGateway(t)

	alice := NewClient("alice")
	bob := NewClient("bob")
	g.AddUser(alice)
	g.AddUser(bob)
	recvFrame(t, alice)
	recvFrame(t, alice)
	recvFrame(t, bob)

	// A client claiming to be someone else must still be delivered as itself.
	raw := []byte(`{"event":"sendMessage","data":{"senderId":"mallory","receiverId":"bob","text":"hi"}}`)
	g.HandleFrame(alice, raw)

	env := recvFrame(t, bob)
	var payload map[string]interface{}
	require.NoError(t, json.Unmarshal(env.Data, &payload))
	assert.Equal(t, "alice", payload["senderId"])
}

func TestHandleFrameIgnoresMalformedAndUnknown(t *testing.T) {
	g := startGateway(t)

	alice := NewClient("alice")
	g.AddUser(alice)
	recvFrame(t, alice)

	g.HandleFrame(alice, []byte(`not json`))
	g.HandleFrame(alice, []byte(`{"event":"mystery","data":{}}`))
	g.HandleFrame(alice, []byte(`{"event":"sendMessage","data":"not an object"}`))

	assertNoFrame(t, alice)
}

func TestDisconnectStaleConnectionKeepsRoster(t *testing.T) {
	g := startGateway(t)

	stale := NewClient("alice")
	fresh := NewClient("alice")
	g.AddUser(stale)
	recvFrame(t, stale)
	g.AddUser(fresh)
	recvFrame(t, fresh)

	// The stale connection closing must not sign alice out.
	g.Disconnect(stale)
	assertNoFrame(t, fresh)

	g.SendMessage(ChatMessage{SenderID: "bob", ReceiverID: "alice", Text: "still there"})
	env := recvFrame(t, fresh)
	assert.Equal(t, EventGetMessage, env.Event)
}

func TestBroadcastReachesEveryone(t *testing.T) {
	g := startGateway(t)

	alice := NewClient("alice")
	bob := NewClient("bob")
	g.AddUser(alice)
	g.AddUser(bob)
	recvFrame(t, alice)
	recvFrame(t, alice)
	recvFrame(t, bob)

	g.Broadcast(EventNewPost, map[string]string{"postId": "p1"})

	for _, c := range []*Client{alice, bob} {
		env := recvFrame(t, c)
		assert.Equal(t, EventNewPost, env.Event)
	}
}
