// ABOUTME: Inbound override channel from an embedding or preview host (Channel A)
// ABOUTME: Applies known content patches, ignores unknown shapes, posts loaded/close signals out

package bridge

import (
	"encoding/json"
	"log/slog"
	"sync"
)

// Message type discriminators on the host channel. Unknown types must be
// ignored rather than rejected, to tolerate future additive fields.
const (
	MsgUpdateChatContent = "updateChatContent"
	MsgWidgetLoaded      = "widgetLoaded"
	MsgCloseRequest      = "closeWidget"
)

// ContentPatch carries optional display-string overrides from the host.
// Nil fields are left untouched; last write wins, no history retained.
type ContentPatch struct {
	Title    *string
	Subtitle *string
	Greeting *string
}

// hostMessage is the discriminated inbound payload.
type hostMessage struct {
	Type     string  `json:"type"`
	Title    *string `json:"title,omitempty"`
	Subtitle *string `json:"subtitle,omitempty"`
	Greeting *string `json:"greeting,omitempty"`
}

// outboundSignal is the shape of widget-to-host notifications.
type outboundSignal struct {
	Type string `json:"type"`
}

// PostFunc delivers a raw message to the embedding host. Nil means the
// widget is standalone and has no host to talk to.
type PostFunc func(msg []byte)

// HostLink is the widget's side of the host message channel. Content flows
// in; exactly two signals flow out: a one-time "fully loaded" notification
// and close requests (closing is host-mediated in embed mode).
type HostLink struct {
	post    PostFunc
	onPatch func(ContentPatch)
	logger  *slog.Logger

	loadedOnce sync.Once
	stop       chan struct{}
	stopOnce   sync.Once
}

// NewHostLink wires the link. inbound may be nil (standalone: nothing ever
// arrives); post may be nil (standalone: outbound signals are no-ops).
// onPatch is invoked for every recognized content update, possibly from
// another goroutine.
func NewHostLink(inbound <-chan []byte, post PostFunc, onPatch func(ContentPatch), logger *slog.Logger) *HostLink {
	if logger == nil {
		logger = slog.Default()
	}
	l := &HostLink{
		post:    post,
		onPatch: onPatch,
		logger:  logger.With("component", "bridge"),
		stop:    make(chan struct{}),
	}

	if inbound != nil {
		go l.consume(inbound)
	}
	return l
}

// consume reads host messages until the channel closes or the link stops.
func (l *HostLink) consume(inbound <-chan []byte) {
	for {
		select {
		case raw, ok := <-inbound:
			if !ok {
				return
			}
			// A stopped link must not apply messages that raced the stop
			select {
			case <-l.stop:
				return
			default:
			}
			l.handle(raw)
		case <-l.stop:
			return
		}
	}
}

// handle parses one raw host message. Protocol drift is a no-op: bad JSON
// and unknown types are logged at debug level and dropped.
func (l *HostLink) handle(raw []byte) {
	var msg hostMessage
	if err := json.Unmarshal(raw, &msg); err != nil {
		l.logger.Debug("ignoring malformed host message", "error", err)
		return
	}

	if msg.Type != MsgUpdateChatContent {
		l.logger.Debug("ignoring unknown host message type", "type", msg.Type)
		return
	}

	if l.onPatch != nil {
		l.onPatch(ContentPatch{
			Title:    msg.Title,
			Subtitle: msg.Subtitle,
			Greeting: msg.Greeting,
		})
	}
}

// NotifyLoaded tells the host the widget's first render has settled, so it
// can reveal the iframe without a flash of unstyled content. Sent at most
// once per link.
func (l *HostLink) NotifyLoaded() {
	l.loadedOnce.Do(func() {
		l.postSignal(MsgWidgetLoaded)
	})
}

// RequestClose asks the host to hide the widget. Inside someone else's
// iframe the widget cannot control its own visibility, so closing is
// necessarily host-mediated.
func (l *HostLink) RequestClose() {
	l.postSignal(MsgCloseRequest)
}

func (l *HostLink) postSignal(msgType string) {
	if l.post == nil {
		return
	}
	payload, _ := json.Marshal(outboundSignal{Type: msgType})
	l.post(payload)
}

// Close stops consuming inbound messages. Safe to call multiple times.
func (l *HostLink) Close() {
	l.stopOnce.Do(func() { close(l.stop) })
}
