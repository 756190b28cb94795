// ABOUTME: WidgetController composes session, transcript, feedback, transport, lifecycle, and bridge
// ABOUTME: Owns the open/closed and active/paused presentation state exposed to the view layer

package widget

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"

	"github.com/Githafconsulting/Githaforge-chatbot-builder-V2-sub001/internal/bridge"
	"github.com/Githafconsulting/Githaforge-chatbot-builder-V2-sub001/internal/config"
	"github.com/Githafconsulting/Githaforge-chatbot-builder-V2-sub001/internal/feedback"
	"github.com/Githafconsulting/Githaforge-chatbot-builder-V2-sub001/internal/lifecycle"
	"github.com/Githafconsulting/Githaforge-chatbot-builder-V2-sub001/internal/session"
	"github.com/Githafconsulting/Githaforge-chatbot-builder-V2-sub001/internal/store"
	"github.com/Githafconsulting/Githaforge-chatbot-builder-V2-sub001/internal/transcript"
	"github.com/Githafconsulting/Githaforge-chatbot-builder-V2-sub001/internal/transport"
)

// Visibility is the widget's presentation state. Orthogonal to
// active/paused.
type Visibility string

const (
	VisibilityClosed Visibility = "closed"
	VisibilityOpen   Visibility = "open"
)

var (
	// ErrBusy indicates a message send is already in flight; input is
	// disabled while a request is outstanding.
	ErrBusy = errors.New("a message send is already in flight")

	// ErrPaused indicates the chatbot is operator-paused; submission is
	// disabled until it resumes.
	ErrPaused = errors.New("chatbot is paused")

	// ErrTornDown indicates the widget instance has been destroyed.
	ErrTornDown = errors.New("widget has been torn down")

	// ErrEmptyMessage indicates a blank message was submitted.
	ErrEmptyMessage = errors.New("message is empty")

	// ErrUnknownTurn indicates the turn id is not feedback-addressable.
	ErrUnknownTurn = errors.New("unknown turn id")
)

// Overrides is the current display-string override set.
type Overrides struct {
	Title    string
	Subtitle string
	Greeting string
}

// Options wires a Controller. Config is required; everything else has a
// working default. Client and Beacon exist as options so tests and
// alternative bindings can substitute them.
type Options struct {
	Config *config.Config

	// KV backs session identity persistence. Defaults to in-memory.
	KV store.KV

	// Client overrides the transport binding built from Config.
	Client transport.Client

	// Beacon overrides the teardown sender. A nil default is built from
	// Config unless NoBeacon is set.
	Beacon transport.BeaconSender

	// HostInbound and HostPost connect Channel A when embedded or
	// previewed. Both nil in standalone mode.
	HostInbound <-chan []byte
	HostPost    bridge.PostFunc

	// Status is the Channel B broadcast channel. Nil means the primitive
	// is unavailable; status updates then only happen via the bind fetch.
	Status *bridge.Channel

	Logger *slog.Logger
}

// Controller is the widget's conversational state machine. One instance
// owns its transcript, feedback state, and session identity exclusively;
// instances are never shared, even on the same page.
type Controller struct {
	cfg    *config.Config
	logger *slog.Logger

	sess   session.Identity
	client transport.Client

	mu         sync.Mutex
	visibility Visibility
	deploy     transport.DeployStatus
	pausedMsg  string
	overrides  Overrides
	busy       bool
	tornDown   bool

	tr       *transcript.Transcript
	fb       *feedback.Tracker
	signaler *lifecycle.Signaler
	host     *bridge.HostLink

	cancelStatus func()
}

// New constructs and binds a widget controller. The session identity is
// read (or created) once; the chatbot status is fetched once when a
// chatbot id is configured, then kept current via the broadcast channel.
func New(ctx context.Context, opts Options) (*Controller, error) {
	if opts.Config == nil {
		return nil, fmt.Errorf("config is required")
	}
	cfg := opts.Config
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid widget config: %w", err)
	}

	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	logger = logger.With("component", "widget")

	kv := opts.KV
	if kv == nil {
		kv = store.NewMemory()
	}

	sess, err := session.Load(ctx, kv, cfg.Widget.ChatbotID)
	if err != nil {
		return nil, fmt.Errorf("loading session identity: %w", err)
	}

	origin := transport.SelectOrigin(cfg.Backend.Origin, cfg.Backend.RuntimeOrigin)
	client := opts.Client
	if client == nil {
		client = transport.NewHTTPClient(origin, cfg.Backend.RequestTimeout, logger)
	}

	beacon := opts.Beacon
	if beacon == nil {
		beacon = transport.NewHTTPBeacon(cfg.Backend.BeaconTimeout, logger)
	}

	c := &Controller{
		cfg:    cfg,
		logger: logger,
		sess:   sess,
		client: client,
		tr:     transcript.New(),
		overrides: Overrides{
			Title:    cfg.Widget.Title,
			Subtitle: cfg.Widget.Subtitle,
			Greeting: cfg.Widget.Greeting,
		},
		deploy: transport.DeployActive,
	}

	// Standalone widgets start closed; embedded and preview surfaces have
	// no closed state reachable by the visitor
	if cfg.Widget.Mode == config.ModeStandalone {
		c.visibility = VisibilityClosed
	} else {
		c.visibility = VisibilityOpen
	}

	c.fb = feedback.NewTracker(client, c.finalizeFeedback, logger)

	beaconURL, beaconPayload := transport.ConversationEndBeacon(origin, sess.Token())
	c.signaler = lifecycle.New(sess.Token(), c.transcriptLen, client, beacon, beaconURL, beaconPayload, logger)

	c.host = bridge.NewHostLink(opts.HostInbound, opts.HostPost, c.applyPatch, logger)

	c.bindStatus(ctx, opts.Status)

	return c, nil
}

// bindStatus fetches the chatbot status once and subscribes to broadcast
// patches. Status knowledge is a derived projection: the fetch seeds it,
// broadcasts keep it current, and neither is treated as source of truth
// beyond the last event seen.
func (c *Controller) bindStatus(ctx context.Context, ch *bridge.Channel) {
	chatbotID := c.cfg.Widget.ChatbotID
	if chatbotID == "" {
		return
	}

	status, err := c.client.GetChatbotStatus(ctx, chatbotID)
	if err != nil {
		// Degrade to active; a broadcast or the next bind will correct it
		c.logger.Debug("chatbot status fetch failed", "chatbot_id", chatbotID, "error", err)
	} else {
		c.mu.Lock()
		c.deploy = status.DeployStatus
		c.pausedMsg = status.PausedMessage
		c.mu.Unlock()
	}

	c.cancelStatus = ch.Subscribe(c.onStatusEvent)
}

// onStatusEvent applies a cross-tab status broadcast. Events for other
// chatbots produce no state change.
func (c *Controller) onStatusEvent(evt bridge.StatusEvent) {
	if evt.Type != bridge.EventChatbotUpdated || evt.ChatbotID != c.cfg.Widget.ChatbotID {
		return
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	c.deploy = evt.Chatbot.DeployStatus
	c.pausedMsg = evt.Chatbot.PausedMessage

	if evt.Chatbot.Title != nil {
		c.overrides.Title = *evt.Chatbot.Title
	}
	if evt.Chatbot.Subtitle != nil {
		c.overrides.Subtitle = *evt.Chatbot.Subtitle
	}
	if evt.Chatbot.Greeting != nil {
		c.overrides.Greeting = *evt.Chatbot.Greeting
	}
}

// applyPatch applies a host content override (Channel A). Only fields
// present in the message change.
func (c *Controller) applyPatch(p bridge.ContentPatch) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if p.Title != nil {
		c.overrides.Title = *p.Title
	}
	if p.Subtitle != nil {
		c.overrides.Subtitle = *p.Subtitle
	}
	if p.Greeting != nil {
		c.overrides.Greeting = *p.Greeting
	}
}

// Send submits a user message. Sends are serialized: input stays disabled
// while a request is outstanding, so no two sends are ever in flight for
// one widget instance. Transport failures surface as a synthetic agent
// turn, never as an error.
func (c *Controller) Send(ctx context.Context, text string) error {
	text = strings.TrimSpace(text)
	if text == "" {
		return ErrEmptyMessage
	}

	c.mu.Lock()
	switch {
	case c.tornDown:
		c.mu.Unlock()
		return ErrTornDown
	case c.deploy == transport.DeployPaused:
		c.mu.Unlock()
		return ErrPaused
	case c.busy:
		c.mu.Unlock()
		return ErrBusy
	}
	c.busy = true
	c.tr.AppendUser(text)
	c.mu.Unlock()

	res, err := c.client.SendMessage(ctx, text, c.sess.Token(), c.cfg.Widget.ChatbotID)

	c.mu.Lock()
	defer c.mu.Unlock()
	c.busy = false

	// A teardown abandons the outstanding request: no transcript entry
	if c.tornDown {
		return nil
	}

	if err != nil {
		c.logger.Debug("message send failed", "error", err)
		c.tr.AppendAgentError(c.cfg.Widget.ErrorMessage)
		return nil
	}

	c.tr.AppendAgent(transcript.AgentResult{
		Text:    res.ResponseText,
		TurnID:  res.TurnID,
		Sources: toTranscriptSources(res.Sources),
	})
	return nil
}

func toTranscriptSources(in []transport.Source) []transcript.Source {
	if len(in) == 0 {
		return nil
	}
	out := make([]transcript.Source, len(in))
	for i, s := range in {
		out[i] = transcript.Source{Content: s.Content, Similarity: s.Similarity}
	}
	return out
}

// RatePositive submits a positive rating for a turn.
func (c *Controller) RatePositive(ctx context.Context, turnID string) error {
	if err := c.checkRateable(turnID); err != nil {
		return err
	}
	return c.fb.RatePositive(ctx, turnID)
}

// RateNegative enters the negative-pending-comment state for a turn.
func (c *Controller) RateNegative(turnID string) error {
	if err := c.checkRateable(turnID); err != nil {
		return err
	}
	return c.fb.RateNegative(turnID)
}

// SubmitComment completes a pending negative rating.
func (c *Controller) SubmitComment(ctx context.Context, turnID, comment string) error {
	return c.fb.SubmitComment(ctx, turnID, comment)
}

// FeedbackState returns the rating state for a turn.
func (c *Controller) FeedbackState(turnID string) feedback.State {
	return c.fb.State(turnID)
}

// checkRateable rejects turn ids the transcript has never seen. Ids the
// tracker already knows are let through so it can report the precise
// transition error.
func (c *Controller) checkRateable(turnID string) error {
	if c.fb.State(turnID) != feedback.Unrated {
		return nil
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if _, ok := c.tr.FindByTurnID(turnID); !ok {
		return ErrUnknownTurn
	}
	return nil
}

// finalizeFeedback clears the turn's feedback key once its rating
// submitted, removing the affordance while keeping the turn visible.
func (c *Controller) finalizeFeedback(turnID string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.tr.ClearTurnID(turnID)
}

// Open makes a standalone widget visible. Embedded and preview widgets
// are already open.
func (c *Controller) Open() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.visibility = VisibilityOpen
}

// Close hides the widget. In embed mode the widget cannot control its own
// visibility, so the close is forwarded to the embedding host instead of
// changing local state.
func (c *Controller) Close() {
	if c.cfg.Widget.Mode == config.ModeEmbedded {
		c.host.RequestClose()
		return
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	c.visibility = VisibilityClosed
}

// NotifyLoaded reports that the first render has settled, letting an
// embedding host reveal the widget. Forwarded at most once.
func (c *Controller) NotifyLoaded() {
	c.host.NotifyLoaded()
}

// Destroy tears the instance down gracefully while the page stays alive:
// the conversation-end signal goes through the normal transport.
func (c *Controller) Destroy(ctx context.Context) {
	c.mu.Lock()
	if c.tornDown {
		c.mu.Unlock()
		return
	}
	c.tornDown = true
	c.mu.Unlock()

	c.detach()
	c.signaler.CloseGracefully(ctx)
}

// Teardown handles abrupt page teardown (navigation, tab close, reload):
// the conversation-end signal goes through the beacon and nothing blocks.
func (c *Controller) Teardown() {
	c.mu.Lock()
	if c.tornDown {
		c.mu.Unlock()
		return
	}
	c.tornDown = true
	c.mu.Unlock()

	c.detach()
	c.signaler.Teardown()
}

func (c *Controller) detach() {
	c.host.Close()
	if c.cancelStatus != nil {
		c.cancelStatus()
	}
}

// Visibility returns the widget's open/closed state.
func (c *Controller) Visibility() Visibility {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.visibility
}

// Paused reports whether the chatbot is operator-paused.
func (c *Controller) Paused() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.deploy == transport.DeployPaused
}

// PausedMessage returns the operator-configured message shown in place of
// the greeting while paused.
func (c *Controller) PausedMessage() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.pausedMsg
}

// Overrides returns the current display strings.
func (c *Controller) Overrides() Overrides {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.overrides
}

// Busy reports whether a send is in flight; the view disables input then.
func (c *Controller) Busy() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.busy
}

// Transcript returns a copy of the conversation log in append order.
func (c *Controller) Transcript() []transcript.Turn {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.tr.Turns()
}

// SessionToken returns the stable per-visitor session token.
func (c *Controller) SessionToken() string {
	return c.sess.Token()
}

func (c *Controller) transcriptLen() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.tr.Len()
}
