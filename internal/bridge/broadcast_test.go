// ABOUTME: Tests for the named status broadcast channel
// ABOUTME: Verifies shared delivery by name, cancel semantics, and nil-channel degradation

package bridge

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Githafconsulting/Githaforge-chatbot-builder-V2-sub001/internal/transport"
)

func collectEvents() (func(StatusEvent), func() []StatusEvent) {
	var mu sync.Mutex
	var events []StatusEvent
	return func(evt StatusEvent) {
			mu.Lock()
			defer mu.Unlock()
			events = append(events, evt)
		}, func() []StatusEvent {
			mu.Lock()
			defer mu.Unlock()
			out := make([]StatusEvent, len(events))
			copy(out, events)
			return out
		}
}

func pausedEvent(chatbotID, msg string) StatusEvent {
	return StatusEvent{
		Type:      EventChatbotUpdated,
		ChatbotID: chatbotID,
		Chatbot: ChatbotPayload{
			DeployStatus:  transport.DeployPaused,
			PausedMessage: msg,
		},
	}
}

func TestChannel_PublishReachesSubscriber(t *testing.T) {
	ch := Open(t.Name())
	record, got := collectEvents()
	cancel := ch.Subscribe(record)
	defer cancel()

	ch.Publish(pausedEvent("cb_1", "back soon"))

	events := got()
	require.Len(t, events, 1)
	assert.Equal(t, "cb_1", events[0].ChatbotID)
	assert.Equal(t, transport.DeployPaused, events[0].Chatbot.DeployStatus)
	assert.Equal(t, "back soon", events[0].Chatbot.PausedMessage)
}

func TestChannel_SameNameSharesChannel(t *testing.T) {
	// Two independent "tabs" opening the same name see each other's events
	a := Open(t.Name())
	b := Open(t.Name())
	require.Same(t, a, b)

	record, got := collectEvents()
	cancel := a.Subscribe(record)
	defer cancel()

	b.Publish(pausedEvent("cb_1", ""))
	assert.Len(t, got(), 1)
}

func TestChannel_DifferentNamesIsolated(t *testing.T) {
	a := Open(t.Name() + "/a")
	b := Open(t.Name() + "/b")

	record, got := collectEvents()
	cancel := a.Subscribe(record)
	defer cancel()

	b.Publish(pausedEvent("cb_1", ""))
	assert.Empty(t, got())
}

func TestChannel_MultipleSubscribers(t *testing.T) {
	ch := Open(t.Name())

	recordA, gotA := collectEvents()
	recordB, gotB := collectEvents()
	cancelA := ch.Subscribe(recordA)
	defer cancelA()
	cancelB := ch.Subscribe(recordB)
	defer cancelB()

	ch.Publish(pausedEvent("cb_1", ""))

	assert.Len(t, gotA(), 1)
	assert.Len(t, gotB(), 1)
}

func TestChannel_CancelStopsDelivery(t *testing.T) {
	ch := Open(t.Name())
	record, got := collectEvents()
	cancel := ch.Subscribe(record)

	ch.Publish(pausedEvent("cb_1", ""))
	cancel()
	ch.Publish(pausedEvent("cb_1", ""))

	assert.Len(t, got(), 1)
}

func TestChannel_NilDegradesSilently(t *testing.T) {
	var ch *Channel

	cancel := ch.Subscribe(func(StatusEvent) { t.Fatal("must never deliver") })
	ch.Publish(pausedEvent("cb_1", ""))
	cancel()
}
