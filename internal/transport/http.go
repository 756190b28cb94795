// ABOUTME: HTTP/JSON binding of the transport Client against a backend origin
// ABOUTME: One binding instance per widget, constructed for exactly one origin

package transport

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"
)

const (
	messagePath         = "/api/v1/message"
	conversationEndPath = "/api/v1/conversation-end"
	feedbackPath        = "/api/v1/feedback"
	chatbotStatusPath   = "/api/v1/chatbot-status"
)

// sendMessageRequest is the JSON body for POST /api/v1/message.
type sendMessageRequest struct {
	Text      string `json:"text"`
	SessionID string `json:"session_id"`
	ChatbotID string `json:"chatbot_id,omitempty"`
}

// conversationEndRequest is the JSON body for POST /api/v1/conversation-end.
type conversationEndRequest struct {
	SessionID string `json:"session_id"`
}

// HTTPClient implements Client against a single backend origin.
type HTTPClient struct {
	origin string
	http   *http.Client
	logger *slog.Logger
}

// NewHTTPClient creates a binding for the given origin. The origin is fixed
// for the client's lifetime; binding selection happens before construction
// via SelectOrigin.
func NewHTTPClient(origin string, timeout time.Duration, logger *slog.Logger) *HTTPClient {
	if logger == nil {
		logger = slog.Default()
	}
	return &HTTPClient{
		origin: strings.TrimRight(origin, "/"),
		http:   &http.Client{Timeout: timeout},
		logger: logger.With("component", "transport"),
	}
}

// Origin returns the backend origin this binding targets.
func (c *HTTPClient) Origin() string {
	return c.origin
}

// SendMessage delivers a user message and decodes the agent reply.
func (c *HTTPClient) SendMessage(ctx context.Context, text, sessionID, chatbotID string) (*SendResult, error) {
	var result SendResult
	err := c.postJSON(ctx, messagePath, sendMessageRequest{
		Text:      text,
		SessionID: sessionID,
		ChatbotID: chatbotID,
	}, &result)
	if err != nil {
		return nil, fmt.Errorf("sending message: %w", err)
	}
	return &result, nil
}

// EndConversation marks the conversation ended for sessionID.
func (c *HTTPClient) EndConversation(ctx context.Context, sessionID string) error {
	if err := c.postJSON(ctx, conversationEndPath, conversationEndRequest{SessionID: sessionID}, nil); err != nil {
		return fmt.Errorf("ending conversation: %w", err)
	}
	return nil
}

// SubmitFeedback records a rating for a turn.
func (c *HTTPClient) SubmitFeedback(ctx context.Context, sub FeedbackSubmission) error {
	if err := c.postJSON(ctx, feedbackPath, sub, nil); err != nil {
		return fmt.Errorf("submitting feedback: %w", err)
	}
	return nil
}

// GetChatbotStatus fetches the deploy status for chatbotID.
func (c *HTTPClient) GetChatbotStatus(ctx context.Context, chatbotID string) (*ChatbotStatus, error) {
	u := c.origin + chatbotStatusPath + "?chatbotId=" + url.QueryEscape(chatbotID)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return nil, fmt.Errorf("building status request: %w", err)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetching chatbot status: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, fmt.Errorf("fetching chatbot status: backend returned %s", resp.Status)
	}

	var status ChatbotStatus
	if err := json.NewDecoder(resp.Body).Decode(&status); err != nil {
		return nil, fmt.Errorf("decoding chatbot status: %w", err)
	}
	return &status, nil
}

// ConversationEndBeacon returns the URL and payload for the teardown-time
// best-effort end signal, for handing to a BeaconSender.
func (c *HTTPClient) ConversationEndBeacon(sessionID string) (string, []byte) {
	return ConversationEndBeacon(c.origin, sessionID)
}

// ConversationEndBeacon builds the teardown beacon for any origin. Prepared
// ahead of time so nothing marshals while the page is unloading.
func ConversationEndBeacon(origin, sessionID string) (string, []byte) {
	payload, _ := json.Marshal(conversationEndRequest{SessionID: sessionID})
	return strings.TrimRight(origin, "/") + conversationEndPath, payload
}

// postJSON posts body as JSON to path and optionally decodes the response
// into out. Non-2xx responses are errors.
func (c *HTTPClient) postJSON(ctx context.Context, path string, body, out any) error {
	payload, err := json.Marshal(body)
	if err != nil {
		return fmt.Errorf("encoding request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.origin+path, bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("building request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		// Drain so the connection can be reused
		io.Copy(io.Discard, io.LimitReader(resp.Body, 4096))
		return fmt.Errorf("backend returned %s", resp.Status)
	}

	if out != nil {
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			return fmt.Errorf("decoding response: %w", err)
		}
	}
	return nil
}
