// ABOUTME: Conversation-end signaling on widget teardown, exactly once per session
// ABOUTME: Graceful teardown uses the normal transport; abrupt teardown uses the beacon

package lifecycle

import (
	"context"
	"log/slog"

	"github.com/Githafconsulting/Githaforge-chatbot-builder-V2-sub001/internal/dedupe"
)

// Ender is what the signaler needs from the transport for the graceful path.
type Ender interface {
	EndConversation(ctx context.Context, sessionID string) error
}

// Beacon is the delivery-optimized path for abrupt teardown. The URL and
// payload are prepared at construction so nothing needs marshaling while
// the page is unloading.
type Beacon interface {
	Send(url string, payload []byte)
}

// Signaler emits the "conversation ended" signal for one widget instance.
// Both teardown paths may fire for the same session (a host can close the
// panel and then navigate away); the guard ensures only the first one
// transmits. A conversation that never exchanged a turn is never ended on
// the backend.
type Signaler struct {
	sessionID     string
	transcriptLen func() int

	ender         Ender
	beacon        Beacon
	beaconURL     string
	beaconPayload []byte

	guard  *dedupe.Guard
	logger *slog.Logger
}

// New creates a signaler. transcriptLen reports the current turn count;
// beacon may be nil in contexts with no unload hook (preview surfaces).
func New(sessionID string, transcriptLen func() int, ender Ender, beacon Beacon, beaconURL string, beaconPayload []byte, logger *slog.Logger) *Signaler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Signaler{
		sessionID:     sessionID,
		transcriptLen: transcriptLen,
		ender:         ender,
		beacon:        beacon,
		beaconURL:     beaconURL,
		beaconPayload: beaconPayload,
		guard:         dedupe.New(0),
		logger:        logger.With("component", "lifecycle"),
	}
}

// CloseGracefully signals conversation end through the normal transport.
// Used when the widget instance is destroyed while the page stays alive.
// Failures are swallowed; the signal is best-effort.
func (s *Signaler) CloseGracefully(ctx context.Context) {
	if !s.shouldSignal() {
		return
	}

	if err := s.ender.EndConversation(ctx, s.sessionID); err != nil {
		s.logger.Debug("graceful conversation-end failed", "error", err)
	}
}

// Teardown signals conversation end via the beacon. Used on abrupt page
// teardown (navigation, tab close, reload); it never blocks and no outcome
// is observable.
func (s *Signaler) Teardown() {
	if s.beacon == nil {
		return
	}
	if !s.shouldSignal() {
		return
	}

	s.beacon.Send(s.beaconURL, s.beaconPayload)
}

// shouldSignal applies both guards: a conversation with no turns is never
// ended, and only the first teardown path transmits.
func (s *Signaler) shouldSignal() bool {
	if s.transcriptLen() == 0 {
		return false
	}
	return !s.guard.CheckAndMark("end:" + s.sessionID)
}
