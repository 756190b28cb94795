// ABOUTME: Transport contract between the widget runtime and the chatbot backend
// ABOUTME: Defines the Client interface, wire types, and binding selection

package transport

import (
	"context"
)

// Source is a retrieved document snippet returned with an agent reply.
type Source struct {
	Content    string  `json:"content"`
	Similarity float64 `json:"similarity"`
}

// SendResult is the backend's reply to a message.
type SendResult struct {
	ResponseText string   `json:"response_text"`
	Sources      []Source `json:"sources,omitempty"`
	TurnID       string   `json:"turn_id,omitempty"`
}

// Rating is the feedback value for a turn. The wire encoding is 0|1.
type Rating int

const (
	RatingNegative Rating = 0
	RatingPositive Rating = 1
)

// FeedbackSubmission is a finalized rating for one turn. Comment is
// omitted on the wire when empty.
type FeedbackSubmission struct {
	TurnID  string `json:"turn_id"`
	Rating  Rating `json:"rating"`
	Comment string `json:"comment,omitempty"`
}

// DeployStatus is the operator-controlled chatbot availability state.
type DeployStatus string

const (
	DeployActive DeployStatus = "active"
	DeployPaused DeployStatus = "paused"
)

// ChatbotStatus is the runtime status of the chatbot the widget is bound to.
type ChatbotStatus struct {
	DeployStatus  DeployStatus `json:"deploy_status"`
	PausedMessage string       `json:"paused_message,omitempty"`
}

// Client abstracts the backend operations the widget consumes. All methods
// are safe to call concurrently and respect ctx for cancellation; timeouts
// are the binding's responsibility.
type Client interface {
	// SendMessage delivers a user message and returns the agent reply.
	SendMessage(ctx context.Context, text, sessionID, chatbotID string) (*SendResult, error)

	// EndConversation marks the session's conversation ended. Idempotent
	// on the backend; safe to call zero or more times.
	EndConversation(ctx context.Context, sessionID string) error

	// SubmitFeedback records a finalized rating for a turn.
	SubmitFeedback(ctx context.Context, sub FeedbackSubmission) error

	// GetChatbotStatus fetches the current deploy status for a chatbot.
	GetChatbotStatus(ctx context.Context, chatbotID string) (*ChatbotStatus, error)
}

// BeaconSender is the delivery-optimized, fire-and-forget transmission
// capability used during page teardown. Send never blocks the caller and
// no response is observable.
type BeaconSender interface {
	Send(url string, payload []byte)
}

// SelectOrigin picks the backend origin for the widget instance. A
// runtime-supplied origin (embed mode, tunnels, custom domains) wins over
// the build-time default; exactly one is ever used.
func SelectOrigin(defaultOrigin, runtimeOrigin string) string {
	if runtimeOrigin != "" {
		return runtimeOrigin
	}
	return defaultOrigin
}
