// ABOUTME: Two-phase per-turn rating state machine with one-directional transitions
// ABOUTME: Positive ratings submit immediately; negative ratings collect an optional comment first

package feedback

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"sync"

	"github.com/Githafconsulting/Githaforge-chatbot-builder-V2-sub001/internal/dedupe"
	"github.com/Githafconsulting/Githaforge-chatbot-builder-V2-sub001/internal/transport"
)

// State is the rating state of one turn. A turn with no recorded state is
// implicitly Unrated.
type State string

const (
	// Unrated means no rating has been entered for the turn.
	Unrated State = "unrated"

	// PendingComment means the user rated the turn negative and may still
	// attach a comment. Entering this state is irrevocable; the only exit
	// is a successful submission.
	PendingComment State = "negative-pending-comment"

	// Submitted is terminal: the rating reached the backend and the turn
	// is no longer rateable.
	Submitted State = "submitted"
)

// maxCommentLen caps free-text comments, in runes.
const maxCommentLen = 500

var (
	// ErrFinalized indicates the turn's feedback already submitted; there
	// is no change-your-rating path.
	ErrFinalized = errors.New("feedback already finalized for turn")

	// ErrRatingPending indicates a negative rating is awaiting its comment,
	// so a positive rating can no longer be entered.
	ErrRatingPending = errors.New("negative rating pending comment for turn")

	// ErrNotPending indicates SubmitComment was called for a turn that has
	// no negative rating awaiting a comment.
	ErrNotPending = errors.New("no rating pending comment for turn")

	// ErrSubmitInFlight indicates a submission for the turn is already
	// running; the duplicate trigger is suppressed.
	ErrSubmitInFlight = errors.New("feedback submission already in flight")
)

// Submitter is what the tracker needs from the transport layer.
type Submitter interface {
	SubmitFeedback(ctx context.Context, sub transport.FeedbackSubmission) error
}

// FinalizeFunc is called exactly once per turn, after its rating
// successfully submits. The controller clears the transcript's TurnID here
// so the view drops the feedback affordance.
type FinalizeFunc func(turnID string)

// Tracker holds per-turn rating state for one widget instance.
// Submissions for different turns may run concurrently; the network call
// happens outside the tracker lock.
type Tracker struct {
	mu       sync.Mutex
	states   map[string]State
	inflight *dedupe.Guard

	submitter Submitter
	finalize  FinalizeFunc
	logger    *slog.Logger
}

// NewTracker creates a tracker. finalize may be nil.
func NewTracker(submitter Submitter, finalize FinalizeFunc, logger *slog.Logger) *Tracker {
	if logger == nil {
		logger = slog.Default()
	}
	return &Tracker{
		states:    make(map[string]State),
		inflight:  dedupe.New(0),
		submitter: submitter,
		finalize:  finalize,
		logger:    logger.With("component", "feedback"),
	}
}

// State returns the rating state for turnID.
func (t *Tracker) State(turnID string) State {
	t.mu.Lock()
	defer t.mu.Unlock()

	if s, ok := t.states[turnID]; ok {
		return s
	}
	return Unrated
}

// RatePositive submits a positive rating immediately. On success the turn
// finalizes; on failure the turn remains Unrated and the action stays
// retryable.
func (t *Tracker) RatePositive(ctx context.Context, turnID string) error {
	t.mu.Lock()
	switch t.states[turnID] {
	case Submitted:
		t.mu.Unlock()
		return ErrFinalized
	case PendingComment:
		t.mu.Unlock()
		return ErrRatingPending
	}
	t.mu.Unlock()

	if t.inflight.CheckAndMark(turnID) {
		return ErrSubmitInFlight
	}

	err := t.submitter.SubmitFeedback(ctx, transport.FeedbackSubmission{
		TurnID: turnID,
		Rating: transport.RatingPositive,
	})
	if err != nil {
		// No durable transition; the user can click again
		t.inflight.Release(turnID)
		t.logger.Debug("positive rating submit failed", "turn_id", turnID, "error", err)
		return err
	}

	t.finalizeTurn(turnID)
	return nil
}

// RateNegative records a negative rating without any network call. The
// transition is irrevocable: there is no way back to Unrated and the view
// replaces the rating affordance with a single add-detail affordance.
// Re-entering the pending state is a no-op.
func (t *Tracker) RateNegative(turnID string) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	switch t.states[turnID] {
	case Submitted:
		return ErrFinalized
	case PendingComment:
		return nil
	}
	t.states[turnID] = PendingComment
	return nil
}

// SubmitComment completes a pending negative rating with an optional
// free-text comment. On success the turn finalizes; on failure it stays
// PendingComment and remains retryable.
func (t *Tracker) SubmitComment(ctx context.Context, turnID, comment string) error {
	t.mu.Lock()
	switch t.states[turnID] {
	case Submitted:
		t.mu.Unlock()
		return ErrFinalized
	case PendingComment:
		t.mu.Unlock()
	default:
		t.mu.Unlock()
		return ErrNotPending
	}

	if t.inflight.CheckAndMark(turnID) {
		return ErrSubmitInFlight
	}

	err := t.submitter.SubmitFeedback(ctx, transport.FeedbackSubmission{
		TurnID:  turnID,
		Rating:  transport.RatingNegative,
		Comment: NormalizeComment(comment),
	})
	if err != nil {
		t.inflight.Release(turnID)
		t.logger.Debug("negative rating submit failed", "turn_id", turnID, "error", err)
		return err
	}

	t.finalizeTurn(turnID)
	return nil
}

// finalizeTurn records the terminal state and notifies the finalize hook.
func (t *Tracker) finalizeTurn(turnID string) {
	t.mu.Lock()
	t.states[turnID] = Submitted
	t.mu.Unlock()

	if t.finalize != nil {
		t.finalize(turnID)
	}
}

// NormalizeComment trims surrounding whitespace and caps the comment at
// 500 runes. An all-whitespace comment becomes empty, which the transport
// layer omits from the wire entirely.
func NormalizeComment(s string) string {
	s = strings.TrimSpace(s)
	if runes := []rune(s); len(runes) > maxCommentLen {
		s = string(runes[:maxCommentLen])
	}
	return s
}
