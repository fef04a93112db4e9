package realtime

import (
	"encoding/json"
	"log"
	"time"
)

// Wire event names. Inbound names come from the client; outbound names are
// what the frontend listens for.
const (
	EventAddUser     = "addUser"
	EventSendMessage = "sendMessage"
	EventMarkAsRead  = "markAsRead"
	EventTyping      = "typing"
	EventStopTyping  = "stopTyping"

	EventGetUsers        = "getUsers"
	EventGetMessage      = "getMessage"
	EventMessageRead     = "messageRead"
	EventUserTyping      = "userTyping"
	EventUserStopTyping  = "userStopTyping"
	EventGetNotification = "getNotification"
	EventNewPost         = "newPost"
)

// Envelope is the frame format on the socket wire.
type Envelope struct {
	Event string          `json:"event"`
	Data  json.RawMessage `json:"data"`
}

// ChatMessage is the payload of an inbound sendMessage event. Delivery is
// fire-and-forget: durability for offline recipients comes from the REST
// message write, not from this path.
type ChatMessage struct {
	SenderID             string `json:"senderId"`
	SenderName           string `json:"senderName"`
	SenderProfilePicture string `json:"senderProfilePicture"`
	ReceiverID           string `json:"receiverId"`
	Text                 string `json:"text"`
	ConversationID       string `json:"conversationId"`
}

// ReadReceipt is the payload of an inbound markAsRead event.
type ReadReceipt struct {
	ConversationID string `json:"conversationId"`
	ReaderID       string `json:"readerId"`
	SenderID       string `json:"senderId"`
}

// TypingEvent is the payload of typing / stopTyping events.
type TypingEvent struct {
	ConversationID string `json:"conversationId"`
	UserID         string `json:"userId"`
	ReceiverID     string `json:"receiverId"`
}

type rosterEntry struct {
	UserID string `json:"userId"`
}

// Gateway routes socket events between live connections. All state mutation
// runs on a single dispatch goroutine fed by a channel, so each event is
// handled to completion before the next and the registry needs no lock.
// Public methods only enqueue work and are safe from any goroutine.
type Gateway struct {
	registry *Registry
	ops      chan func()
	done     chan struct{}
	now      func() time.Time
}

// NewGateway wraps a registry in a dispatcher. Call Run (usually in its own
// goroutine) before enqueueing events, and Close on shutdown.
func NewGateway(registry *Registry) *Gateway {
	return &Gateway{
		registry: registry,
		ops:      make(chan func(), 256),
		done:     make(chan struct{}),
		now:      time.Now,
	}
}

// Run drains the event queue until Close is called.
func (g *Gateway) Run() {
	for {
		select {
		case fn := <-g.ops:
			g.dispatch(fn)
		case <-g.done:
			return
		}
	}
}

// Close stops the dispatch loop.
func (g *Gateway) Close() {
	close(g.done)
}

// dispatch runs one handler; a malformed payload or handler panic is logged
// and ignored so the connection stays alive.
func (g *Gateway) dispatch(fn func()) {
	defer func() {
		if r := recover(); r != nil {
			log.Printf("realtime: event handler panic: %v", r)
		}
	}()
	fn()
}

func (g *Gateway) enqueue(fn func()) {
	select {
	case g.ops <- fn:
	case <-g.done:
	}
}

// AddUser registers the connection and broadcasts the updated roster.
func (g *Gateway) AddUser(c *Client) {
	g.enqueue(func() {
		g.registry.Register(c)
		g.broadcastRoster()
	})
}

// Disconnect removes the connection (if still registered) and broadcasts the
// updated roster.
func (g *Gateway) Disconnect(c *Client) {
	g.enqueue(func() {
		if g.registry.Unregister(c) {
			g.broadcastRoster()
		}
	})
}

// SendMessage forwards a chat message to the receiver's connection with a
// server-stamped timestamp. Offline receivers are dropped silently.
func (g *Gateway) SendMessage(msg ChatMessage) {
	g.enqueue(func() {
		receiver := g.registry.Lookup(msg.ReceiverID)
		if receiver == nil {
			return
		}
		receiver.push(frame(EventGetMessage, map[string]interface{}{
			"senderId":             msg.SenderID,
			"senderName":           msg.SenderName,
			"senderProfilePicture": msg.SenderProfilePicture,
			"text":                 msg.Text,
			"conversationId":       msg.ConversationID,
			"createdAt":            g.now().UTC(),
		}))
	})
}

// MarkAsRead forwards a read receipt to the original sender's connection.
func (g *Gateway) MarkAsRead(r ReadReceipt) {
	g.enqueue(func() {
		sender := g.registry.Lookup(r.SenderID)
		if sender == nil {
			return
		}
		sender.push(frame(EventMessageRead, map[string]interface{}{
			"conversationId": r.ConversationID,
			"readerId":       r.ReaderID,
			"readAt":         g.now().UTC(),
		}))
	})
}

// Typing forwards a typing indicator; never persisted.
func (g *Gateway) Typing(ev TypingEvent) {
	g.forwardTyping(EventUserTyping, ev)
}

// StopTyping forwards the end of a typing indicator.
func (g *Gateway) StopTyping(ev TypingEvent) {
	g.forwardTyping(EventUserStopTyping, ev)
}

func (g *Gateway) forwardTyping(event string, ev TypingEvent) {
	g.enqueue(func() {
		receiver := g.registry.Lookup(ev.ReceiverID)
		if receiver == nil {
			return
		}
		receiver.push(frame(event, map[string]interface{}{
			"conversationId": ev.ConversationID,
			"userId":         ev.UserID,
		}))
	})
}

// EmitToUser addresses an arbitrary event to one user's connection. Used by
// the HTTP layer for notification and feed fan-out; offline users are
// dropped silently.
func (g *Gateway) EmitToUser(userID, event string, data interface{}) {
	g.enqueue(func() {
		c := g.registry.Lookup(userID)
		if c == nil {
			return
		}
		c.push(frame(event, data))
	})
}

// Broadcast sends an event to every registered connection.
func (g *Gateway) Broadcast(event string, data interface{}) {
	g.enqueue(func() {
		payload := frame(event, data)
		for _, c := range g.registry.all() {
			c.push(payload)
		}
	})
}

// broadcastRoster sends the full presence roster to everyone. Acceptable at
// small scale; a known scalability ceiling.
func (g *Gateway) broadcastRoster() {
	roster := make([]rosterEntry, 0)
	for _, id := range g.registry.Roster() {
		roster = append(roster, rosterEntry{UserID: id})
	}
	payload := frame(EventGetUsers, roster)
	for _, c := range g.registry.all() {
		c.push(payload)
	}
}

// HandleFrame decodes one inbound envelope and enqueues the matching event.
// Unknown events and malformed payloads are logged and ignored.
func (g *Gateway) HandleFrame(c *Client, raw []byte) {
	var env Envelope
	if err := json.Unmarshal(raw, &env); err != nil {
		log.Printf("realtime: malformed frame from %s: %v", c.UserID, err)
		return
	}

	switch env.Event {
	case EventAddUser:
		g.AddUser(c)
	case EventSendMessage:
		var msg ChatMessage
		if err := json.Unmarshal(env.Data, &msg); err != nil {
			log.Printf("realtime: malformed sendMessage from %s: %v", c.UserID, err)
			return
		}
		msg.SenderID = c.UserID
		g.SendMessage(msg)
	case EventMarkAsRead:
		var r ReadReceipt
		if err := json.Unmarshal(env.Data, &r); err != nil {
			log.Printf("realtime: malformed markAsRead from %s: %v", c.UserID, err)
			return
		}
		r.ReaderID = c.UserID
		g.MarkAsRead(r)
	case EventTyping:
		var ev TypingEvent
		if err := json.Unmarshal(env.Data, &ev); err != nil {
			return
		}
		ev.UserID = c.UserID
		g.Typing(ev)
	case EventStopTyping:
		var ev TypingEvent
		if err := json.Unmarshal(env.Data, &ev); err != nil {
			return
		}
		ev.UserID = c.UserID
		g.StopTyping(ev)
	default:
		log.Printf("realtime: unknown event %q from %s", env.Event, c.UserID)
	}
}

func frame(event string, data interface{}) []byte {
	payload, err := json.Marshal(struct {
		Event string      `json:"event"`
		Data  interface{} `json:"data"`
	}{Event: event, Data: data})
	if err != nil {
		log.Printf("realtime: marshal %s: %v", event, err)
		return nil
	}
	return payload
}
