// ABOUTME: Append-only ordered log of user and agent turns for one conversation
// ABOUTME: Owns turn identity; the only permitted mutation is clearing a turn's TurnID

package transcript

import (
	"time"
)

// Role identifies who produced a turn.
type Role string

const (
	RoleUser  Role = "user"
	RoleAgent Role = "agent"
)

// Source is a retrieved document snippet attached to an agent turn.
type Source struct {
	Content    string
	Similarity float64
}

// Turn is one entry in the conversation log. TurnID is assigned by the
// backend for agent turns only; it is the feedback-addressable key. User
// turns and synthetic error turns carry no TurnID.
type Turn struct {
	Text      string
	Role      Role
	Timestamp time.Time
	TurnID    string
	Sources   []Source
}

// HasFeedbackKey reports whether this turn can still collect feedback.
func (t Turn) HasFeedbackKey() bool {
	return t.Role == RoleAgent && t.TurnID != ""
}

// AgentResult carries the backend's reply for appending as an agent turn.
type AgentResult struct {
	Text    string
	TurnID  string
	Sources []Source
}

// Transcript is the append-only conversation log. It is owned by exactly
// one widget controller, which serializes all access; the type itself is
// not safe for unsynchronized concurrent use.
type Transcript struct {
	turns []Turn
	now   func() time.Time
}

// New creates an empty transcript.
func New() *Transcript {
	return &Transcript{now: time.Now}
}

// AppendUser appends a user turn.
func (tr *Transcript) AppendUser(text string) {
	tr.turns = append(tr.turns, Turn{
		Text:      text,
		Role:      RoleUser,
		Timestamp: tr.now(),
	})
}

// AppendAgent appends an agent turn from a successful backend reply.
func (tr *Transcript) AppendAgent(res AgentResult) {
	tr.turns = append(tr.turns, Turn{
		Text:      res.Text,
		Role:      RoleAgent,
		Timestamp: tr.now(),
		TurnID:    res.TurnID,
		Sources:   res.Sources,
	})
}

// AppendAgentError appends a synthetic agent turn for a failed send. The
// turn has no TurnID, so no feedback affordance is ever offered for it.
func (tr *Transcript) AppendAgentError(message string) {
	tr.turns = append(tr.turns, Turn{
		Text:      message,
		Role:      RoleAgent,
		Timestamp: tr.now(),
	})
}

// ClearTurnID removes the feedback key from the turn carrying turnID,
// keeping the turn itself in the visible history. Returns false if no
// turn carries that id. Called once feedback for the turn is finalized.
func (tr *Transcript) ClearTurnID(turnID string) bool {
	if turnID == "" {
		return false
	}
	for i := range tr.turns {
		if tr.turns[i].TurnID == turnID {
			tr.turns[i].TurnID = ""
			return true
		}
	}
	return false
}

// FindByTurnID returns the turn carrying turnID, if any.
func (tr *Transcript) FindByTurnID(turnID string) (Turn, bool) {
	if turnID == "" {
		return Turn{}, false
	}
	for i := range tr.turns {
		if tr.turns[i].TurnID == turnID {
			return tr.turns[i], true
		}
	}
	return Turn{}, false
}

// Turns returns a copy of the log in append order.
func (tr *Transcript) Turns() []Turn {
	out := make([]Turn, len(tr.turns))
	copy(out, tr.turns)
	return out
}

// Len returns the number of turns.
func (tr *Transcript) Len() int {
	return len(tr.turns)
}
