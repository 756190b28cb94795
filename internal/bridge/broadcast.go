// ABOUTME: Named, origin-scoped publish/subscribe channel for chatbot status (Channel B)
// ABOUTME: Independent widget instances on the same origin all receive published status events

package bridge

import (
	"sync"

	"github.com/Githafconsulting/Githaforge-chatbot-builder-V2-sub001/internal/transport"
)

// EventChatbotUpdated is the discriminator for status broadcast payloads.
const EventChatbotUpdated = "CHATBOT_UPDATED"

// StatusChannelName is the well-known channel administrative surfaces
// publish chatbot status changes on.
const StatusChannelName = "githaforge:chatbot-status"

// ChatbotPayload is the chatbot snapshot carried by a status event. The
// content fields are optional; when present they refresh the widget's
// overrides alongside the deploy status.
type ChatbotPayload struct {
	DeployStatus  transport.DeployStatus `json:"deploy_status"`
	PausedMessage string                 `json:"paused_message,omitempty"`
	Title         *string                `json:"title,omitempty"`
	Subtitle      *string                `json:"subtitle,omitempty"`
	Greeting      *string                `json:"greeting,omitempty"`
}

// StatusEvent is the payload broadcast when an operator changes a chatbot.
// The widget never publishes these; only administrative surfaces do.
type StatusEvent struct {
	Type      string         `json:"type"`
	ChatbotID string         `json:"chatbotId"`
	Chatbot   ChatbotPayload `json:"chatbot"`
}

// Channel is one named broadcast channel. A nil *Channel is a valid
// degraded channel: Subscribe and Publish are no-ops, matching execution
// contexts where the broadcast primitive is unavailable.
type Channel struct {
	name string

	mu     sync.Mutex
	subs   map[int]func(StatusEvent)
	nextID int
}

var (
	registryMu sync.Mutex
	registry   = map[string]*Channel{}
)

// Open returns the channel with the given name, creating it on first use.
// All callers passing the same name share one channel, regardless of which
// widget instance or surface they belong to.
func Open(name string) *Channel {
	registryMu.Lock()
	defer registryMu.Unlock()

	if ch, ok := registry[name]; ok {
		return ch
	}
	ch := &Channel{
		name: name,
		subs: make(map[int]func(StatusEvent)),
	}
	registry[name] = ch
	return ch
}

// Subscribe registers fn for every future event on the channel and returns
// a cancel function. fn may be invoked from any goroutine.
func (c *Channel) Subscribe(fn func(StatusEvent)) (cancel func()) {
	if c == nil {
		return func() {}
	}

	c.mu.Lock()
	id := c.nextID
	c.nextID++
	c.subs[id] = fn
	c.mu.Unlock()

	return func() {
		c.mu.Lock()
		delete(c.subs, id)
		c.mu.Unlock()
	}
}

// Publish delivers evt to every current subscriber. Delivery is
// synchronous and in no particular order; subscribers filter for
// themselves (the widget drops events for other chatbot ids).
func (c *Channel) Publish(evt StatusEvent) {
	if c == nil {
		return
	}

	c.mu.Lock()
	fns := make([]func(StatusEvent), 0, len(c.subs))
	for _, fn := range c.subs {
		fns = append(fns, fn)
	}
	c.mu.Unlock()

	for _, fn := range fns {
		fn(evt)
	}
}
