// Package transport implements the widget's backend bindings.
//
// # Overview
//
// The widget consumes four backend operations: send a message, end the
// conversation, submit feedback, and fetch chatbot status. The Client
// interface abstracts them; HTTPClient is the JSON-over-HTTP binding.
//
// # Binding selection
//
// Two bindings exist conceptually: the default binding against the
// build-time-configured origin (standalone and admin-preview contexts),
// and a parameterized binding built from a runtime-supplied origin (embed
// mode served over a tunnel or custom domain). Both are HTTPClient; which
// origin it targets is decided exactly once via SelectOrigin, never per
// call site:
//
//	origin := transport.SelectOrigin(cfg.Backend.Origin, cfg.Backend.RuntimeOrigin)
//	client := transport.NewHTTPClient(origin, cfg.Backend.RequestTimeout, logger)
//
// # Failure policy
//
// SendMessage errors are returned to the controller, which converts them
// into a synthetic agent turn; they are never fatal. EndConversation and
// SubmitFeedback are best-effort from the widget's perspective: callers
// log and swallow their errors.
//
// # Beacon
//
// Teardown-time delivery uses BeaconSender instead of the normal request
// machinery, because its semantics are different: no response observable,
// must not block teardown. HTTPBeacon posts from a goroutine on a detached
// context. HTTPClient.ConversationEndBeacon produces the URL and payload.
package transport
