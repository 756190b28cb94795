// ABOUTME: Tests for the widget controller composition: send flow, feedback, status, lifecycle
// ABOUTME: Uses a scripted mock transport so no network is involved

package widget

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Githafconsulting/Githaforge-chatbot-builder-V2-sub001/internal/bridge"
	"github.com/Githafconsulting/Githaforge-chatbot-builder-V2-sub001/internal/config"
	"github.com/Githafconsulting/Githaforge-chatbot-builder-V2-sub001/internal/feedback"
	"github.com/Githafconsulting/Githaforge-chatbot-builder-V2-sub001/internal/store"
	"github.com/Githafconsulting/Githaforge-chatbot-builder-V2-sub001/internal/transcript"
	"github.com/Githafconsulting/Githaforge-chatbot-builder-V2-sub001/internal/transport"
)

type sentMessage struct {
	Text      string
	SessionID string
	ChatbotID string
}

// mockClient scripts the backend. Replies are dequeued in order; an empty
// queue yields a generated reply.
type mockClient struct {
	mu sync.Mutex

	replies   []*transport.SendResult
	sendErr   error
	statusErr error
	status    transport.ChatbotStatus

	sent      []sentMessage
	ended     []string
	feedbacks []transport.FeedbackSubmission
	statusIDs []string

	block chan struct{} // when non-nil, SendMessage blocks until closed
}

func (m *mockClient) SendMessage(ctx context.Context, text, sessionID, chatbotID string) (*transport.SendResult, error) {
	m.mu.Lock()
	m.sent = append(m.sent, sentMessage{Text: text, SessionID: sessionID, ChatbotID: chatbotID})
	block := m.block
	m.mu.Unlock()

	if block != nil {
		<-block
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	if m.sendErr != nil {
		return nil, m.sendErr
	}
	if len(m.replies) > 0 {
		res := m.replies[0]
		m.replies = m.replies[1:]
		return res, nil
	}
	return &transport.SendResult{
		ResponseText: "reply to " + text,
		TurnID:       fmt.Sprintf("turn-%d", len(m.sent)),
	}, nil
}

func (m *mockClient) EndConversation(ctx context.Context, sessionID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.ended = append(m.ended, sessionID)
	return nil
}

func (m *mockClient) SubmitFeedback(ctx context.Context, sub transport.FeedbackSubmission) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.feedbacks = append(m.feedbacks, sub)
	return nil
}

func (m *mockClient) GetChatbotStatus(ctx context.Context, chatbotID string) (*transport.ChatbotStatus, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.statusIDs = append(m.statusIDs, chatbotID)
	if m.statusErr != nil {
		return nil, m.statusErr
	}
	status := m.status
	if status.DeployStatus == "" {
		status.DeployStatus = transport.DeployActive
	}
	return &status, nil
}

type mockBeacon struct {
	mu       sync.Mutex
	urls     []string
	payloads [][]byte
}

func (b *mockBeacon) Send(url string, payload []byte) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.urls = append(b.urls, url)
	b.payloads = append(b.payloads, payload)
}

func (b *mockBeacon) sends() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.urls)
}

func testConfig(mode config.Mode, chatbotID string) *config.Config {
	cfg := config.Default("https://backend.test")
	cfg.Widget.Mode = mode
	cfg.Widget.ChatbotID = chatbotID
	return cfg
}

func newTestController(t *testing.T, opts Options) (*Controller, *mockClient, *mockBeacon) {
	t.Helper()

	client, _ := opts.Client.(*mockClient)
	if client == nil {
		client = &mockClient{}
		opts.Client = client
	}
	beacon, _ := opts.Beacon.(*mockBeacon)
	if beacon == nil {
		beacon = &mockBeacon{}
		opts.Beacon = beacon
	}
	if opts.Config == nil {
		opts.Config = testConfig(config.ModeStandalone, "")
	}

	c, err := New(context.Background(), opts)
	require.NoError(t, err)
	return c, client, beacon
}

func TestNew_RequiresConfig(t *testing.T) {
	_, err := New(context.Background(), Options{})
	require.Error(t, err)
}

func TestNew_RejectsInvalidConfig(t *testing.T) {
	cfg := testConfig(config.ModeStandalone, "")
	cfg.Backend.Origin = ""

	_, err := New(context.Background(), Options{Config: cfg, Client: &mockClient{}})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid widget config")
}

func TestController_SendAppendsBothTurns(t *testing.T) {
	c, client, _ := newTestController(t, Options{
		Config: testConfig(config.ModeStandalone, "bot-1"),
	})
	client.mu.Lock()
	client.replies = []*transport.SendResult{{
		ResponseText: "hi there",
		TurnID:       "t1",
		Sources:      []transport.Source{{Content: "docs", Similarity: 0.92}},
	}}
	client.mu.Unlock()

	require.NoError(t, c.Send(context.Background(), "hello"))

	turns := c.Transcript()
	require.Len(t, turns, 2)
	assert.Equal(t, transcript.RoleUser, turns[0].Role)
	assert.Equal(t, "hello", turns[0].Text)
	assert.Empty(t, turns[0].TurnID)
	assert.Equal(t, transcript.RoleAgent, turns[1].Role)
	assert.Equal(t, "hi there", turns[1].Text)
	assert.Equal(t, "t1", turns[1].TurnID)
	require.Len(t, turns[1].Sources, 1)
	assert.InDelta(t, 0.92, turns[1].Sources[0].Similarity, 1e-9)

	require.Len(t, client.sent, 1)
	assert.Equal(t, "hello", client.sent[0].Text)
	assert.Equal(t, c.SessionToken(), client.sent[0].SessionID)
	assert.Equal(t, "bot-1", client.sent[0].ChatbotID)
}

func TestController_SendTrimsAndRejectsEmpty(t *testing.T) {
	c, client, _ := newTestController(t, Options{})

	require.ErrorIs(t, c.Send(context.Background(), "   "), ErrEmptyMessage)
	assert.Empty(t, client.sent)
	assert.Equal(t, 0, c.tr.Len())
}

func TestController_SendErrorBecomesSyntheticTurn(t *testing.T) {
	cfg := testConfig(config.ModeStandalone, "")
	cfg.Widget.ErrorMessage = "we hit a snag"
	client := &mockClient{sendErr: errors.New("backend down")}
	c, _, _ := newTestController(t, Options{Config: cfg, Client: client})

	// Transport failure is absorbed into the transcript, never returned
	require.NoError(t, c.Send(context.Background(), "hello"))

	turns := c.Transcript()
	require.Len(t, turns, 2)
	assert.Equal(t, transcript.RoleAgent, turns[1].Role)
	assert.Equal(t, "we hit a snag", turns[1].Text)
	assert.Empty(t, turns[1].TurnID, "error turns are not feedback-addressable")
}

func TestController_SendWhileBusy(t *testing.T) {
	client := &mockClient{block: make(chan struct{})}
	c, _, _ := newTestController(t, Options{Client: client})

	done := make(chan error, 1)
	go func() { done <- c.Send(context.Background(), "first") }()

	require.Eventually(t, c.Busy, time.Second, 5*time.Millisecond)
	require.ErrorIs(t, c.Send(context.Background(), "second"), ErrBusy)

	close(client.block)
	require.NoError(t, <-done)
	assert.False(t, c.Busy())

	// Only the first message reached the backend
	require.Len(t, client.sent, 1)
}

func TestController_TeardownAbandonsInFlightResponse(t *testing.T) {
	client := &mockClient{block: make(chan struct{})}
	c, _, beacon := newTestController(t, Options{Client: client})

	done := make(chan error, 1)
	go func() { done <- c.Send(context.Background(), "hello") }()
	require.Eventually(t, c.Busy, time.Second, 5*time.Millisecond)

	c.Teardown()
	close(client.block)
	require.NoError(t, <-done)

	// The user turn stays; the late response is dropped
	turns := c.Transcript()
	require.Len(t, turns, 1)
	assert.Equal(t, transcript.RoleUser, turns[0].Role)
	assert.Equal(t, 1, beacon.sends())
}

func TestController_NegativeFeedbackFlow(t *testing.T) {
	c, client, _ := newTestController(t, Options{
		Config: testConfig(config.ModeStandalone, "abc123"),
	})
	client.mu.Lock()
	client.replies = []*transport.SendResult{{ResponseText: "hi there", TurnID: "t1"}}
	client.mu.Unlock()

	require.NoError(t, c.Send(context.Background(), "hello"))

	// Thumbs-down records locally; nothing goes to the backend yet
	require.NoError(t, c.RateNegative("t1"))
	assert.Equal(t, feedback.PendingComment, c.FeedbackState("t1"))
	assert.Empty(t, client.feedbacks)

	// The pending state is one-directional
	require.ErrorIs(t, c.RatePositive(context.Background(), "t1"), feedback.ErrRatingPending)

	require.NoError(t, c.SubmitComment(context.Background(), "t1", "too slow"))
	assert.Equal(t, feedback.Submitted, c.FeedbackState("t1"))

	require.Len(t, client.feedbacks, 1)
	assert.Equal(t, "t1", client.feedbacks[0].TurnID)
	assert.Equal(t, transport.RatingNegative, client.feedbacks[0].Rating)
	assert.Equal(t, "too slow", client.feedbacks[0].Comment)

	// Finalizing strips the turn's feedback key but keeps the turn
	turns := c.Transcript()
	require.Len(t, turns, 2)
	assert.Equal(t, "hi there", turns[1].Text)
	assert.Empty(t, turns[1].TurnID)

	require.ErrorIs(t, c.RateNegative("t1"), feedback.ErrFinalized)
}

func TestController_RatePositiveSubmitsImmediately(t *testing.T) {
	c, client, _ := newTestController(t, Options{})
	client.mu.Lock()
	client.replies = []*transport.SendResult{{ResponseText: "sure", TurnID: "t9"}}
	client.mu.Unlock()

	require.NoError(t, c.Send(context.Background(), "question"))
	require.NoError(t, c.RatePositive(context.Background(), "t9"))

	require.Len(t, client.feedbacks, 1)
	assert.Equal(t, transport.RatingPositive, client.feedbacks[0].Rating)
	assert.Empty(t, client.feedbacks[0].Comment)
	assert.Equal(t, feedback.Submitted, c.FeedbackState("t9"))
}

func TestController_RateUnknownTurn(t *testing.T) {
	c, client, _ := newTestController(t, Options{})

	require.ErrorIs(t, c.RatePositive(context.Background(), "nope"), ErrUnknownTurn)
	require.ErrorIs(t, c.RateNegative("nope"), ErrUnknownTurn)
	assert.Empty(t, client.feedbacks)
}

func TestController_StatusFetchOnBind(t *testing.T) {
	client := &mockClient{status: transport.ChatbotStatus{
		DeployStatus:  transport.DeployPaused,
		PausedMessage: "back soon",
	}}
	c, _, _ := newTestController(t, Options{
		Config: testConfig(config.ModeStandalone, "bot-1"),
		Client: client,
	})

	require.Equal(t, []string{"bot-1"}, client.statusIDs)
	assert.True(t, c.Paused())
	assert.Equal(t, "back soon", c.PausedMessage())

	require.ErrorIs(t, c.Send(context.Background(), "hello"), ErrPaused)
	assert.Equal(t, 0, c.tr.Len())
}

func TestController_NoStatusFetchWithoutChatbotID(t *testing.T) {
	_, client, _ := newTestController(t, Options{
		Config: testConfig(config.ModeStandalone, ""),
	})
	assert.Empty(t, client.statusIDs)
}

func TestController_StatusFetchFailureDegradesToActive(t *testing.T) {
	client := &mockClient{statusErr: errors.New("status unavailable")}
	c, _, _ := newTestController(t, Options{
		Config: testConfig(config.ModeStandalone, "bot-1"),
		Client: client,
	})

	assert.False(t, c.Paused())
	require.NoError(t, c.Send(context.Background(), "hello"))
}

func TestController_PausedBroadcast(t *testing.T) {
	ch := bridge.Open(t.Name())
	c, client, _ := newTestController(t, Options{
		Config: testConfig(config.ModeStandalone, "bot-1"),
		Status: ch,
	})

	require.NoError(t, c.Send(context.Background(), "hello"))
	before := c.tr.Len()

	ch.Publish(bridge.StatusEvent{
		Type:      bridge.EventChatbotUpdated,
		ChatbotID: "bot-1",
		Chatbot: bridge.ChatbotPayload{
			DeployStatus:  transport.DeployPaused,
			PausedMessage: "back soon",
		},
	})

	assert.True(t, c.Paused())
	assert.Equal(t, "back soon", c.PausedMessage())
	require.ErrorIs(t, c.Send(context.Background(), "another"), ErrPaused)
	assert.Equal(t, before, c.tr.Len())
	require.Len(t, client.sent, 1)

	// Resuming re-enables submission
	ch.Publish(bridge.StatusEvent{
		Type:      bridge.EventChatbotUpdated,
		ChatbotID: "bot-1",
		Chatbot:   bridge.ChatbotPayload{DeployStatus: transport.DeployActive},
	})
	assert.False(t, c.Paused())
	require.NoError(t, c.Send(context.Background(), "another"))
}

func TestController_BroadcastForOtherChatbotIgnored(t *testing.T) {
	ch := bridge.Open(t.Name())
	c, _, _ := newTestController(t, Options{
		Config: testConfig(config.ModeStandalone, "bot-1"),
		Status: ch,
	})

	ch.Publish(bridge.StatusEvent{
		Type:      bridge.EventChatbotUpdated,
		ChatbotID: "bot-2",
		Chatbot:   bridge.ChatbotPayload{DeployStatus: transport.DeployPaused},
	})

	assert.False(t, c.Paused())
}

func TestController_BroadcastPartialContentOverride(t *testing.T) {
	cfg := testConfig(config.ModeStandalone, "bot-1")
	cfg.Widget.Title = "Support"
	cfg.Widget.Greeting = "Hello!"
	ch := bridge.Open(t.Name())
	c, _, _ := newTestController(t, Options{Config: cfg, Status: ch})

	greeting := "Welcome back"
	ch.Publish(bridge.StatusEvent{
		Type:      bridge.EventChatbotUpdated,
		ChatbotID: "bot-1",
		Chatbot: bridge.ChatbotPayload{
			DeployStatus: transport.DeployActive,
			Greeting:     &greeting,
		},
	})

	ov := c.Overrides()
	assert.Equal(t, "Welcome back", ov.Greeting)
	assert.Equal(t, "Support", ov.Title, "absent fields keep their value")
}

func TestController_HostContentPatch(t *testing.T) {
	inbound := make(chan []byte, 1)
	cfg := testConfig(config.ModeEmbedded, "bot-1")
	cfg.Widget.Title = "Support"
	c, _, _ := newTestController(t, Options{
		Config:      cfg,
		HostInbound: inbound,
		HostPost:    func([]byte) {},
	})

	inbound <- []byte(`{"type":"updateChatContent","title":"Sales"}`)

	require.Eventually(t, func() bool {
		return c.Overrides().Title == "Sales"
	}, time.Second, 5*time.Millisecond)
}

func TestController_VisibilityByMode(t *testing.T) {
	standalone, _, _ := newTestController(t, Options{
		Config: testConfig(config.ModeStandalone, ""),
	})
	assert.Equal(t, VisibilityClosed, standalone.Visibility())
	standalone.Open()
	assert.Equal(t, VisibilityOpen, standalone.Visibility())
	standalone.Close()
	assert.Equal(t, VisibilityClosed, standalone.Visibility())

	embedded, _, _ := newTestController(t, Options{
		Config:   testConfig(config.ModeEmbedded, "bot-1"),
		HostPost: func([]byte) {},
	})
	assert.Equal(t, VisibilityOpen, embedded.Visibility())
}

func TestController_EmbeddedCloseForwardsToHost(t *testing.T) {
	var mu sync.Mutex
	var posted [][]byte
	c, _, _ := newTestController(t, Options{
		Config: testConfig(config.ModeEmbedded, "bot-1"),
		HostPost: func(raw []byte) {
			mu.Lock()
			posted = append(posted, raw)
			mu.Unlock()
		},
	})

	c.Close()

	mu.Lock()
	defer mu.Unlock()
	require.Len(t, posted, 1)
	var msg map[string]string
	require.NoError(t, json.Unmarshal(posted[0], &msg))
	assert.Equal(t, bridge.MsgCloseRequest, msg["type"])
	// Local visibility is the host's concern in embed mode
	assert.Equal(t, VisibilityOpen, c.Visibility())
}

func TestController_DestroySignalsGracefullyOnce(t *testing.T) {
	c, client, beacon := newTestController(t, Options{})
	require.NoError(t, c.Send(context.Background(), "hello"))

	c.Destroy(context.Background())
	c.Destroy(context.Background())
	c.Teardown()

	require.Equal(t, []string{c.SessionToken()}, client.ended)
	assert.Equal(t, 0, beacon.sends())
}

func TestController_TeardownUsesBeacon(t *testing.T) {
	c, client, beacon := newTestController(t, Options{})
	require.NoError(t, c.Send(context.Background(), "hello"))

	c.Teardown()

	require.Equal(t, 1, beacon.sends())
	assert.True(t, strings.HasSuffix(beacon.urls[0], "/api/v1/conversation-end"))
	var payload map[string]string
	require.NoError(t, json.Unmarshal(beacon.payloads[0], &payload))
	assert.Equal(t, c.SessionToken(), payload["session_id"])
	assert.Empty(t, client.ended)
}

func TestController_EmptyTranscriptNeverSignals(t *testing.T) {
	c, client, beacon := newTestController(t, Options{})

	c.Destroy(context.Background())

	assert.Empty(t, client.ended)
	assert.Equal(t, 0, beacon.sends())
}

func TestController_SendAfterTeardown(t *testing.T) {
	c, _, _ := newTestController(t, Options{})
	require.NoError(t, c.Send(context.Background(), "hello"))
	c.Teardown()

	require.ErrorIs(t, c.Send(context.Background(), "again"), ErrTornDown)
}

func TestController_SessionPersistsAcrossInstances(t *testing.T) {
	kv := store.NewMemory()

	first, _, _ := newTestController(t, Options{KV: kv})
	token := first.SessionToken()
	require.NotEmpty(t, token)

	second, _, _ := newTestController(t, Options{KV: kv})
	assert.Equal(t, token, second.SessionToken())
}

func TestController_SeparateChatbotsSeparateSessions(t *testing.T) {
	kv := store.NewMemory()

	a, _, _ := newTestController(t, Options{
		KV:     kv,
		Config: testConfig(config.ModeStandalone, "bot-a"),
	})
	b, _, _ := newTestController(t, Options{
		KV:     kv,
		Config: testConfig(config.ModeStandalone, "bot-b"),
	})

	assert.NotEqual(t, a.SessionToken(), b.SessionToken())
}
