// Package bridge implements the widget's two cross-context channels.
//
// # Channel A — host override channel
//
// When embedded (or previewed), the widget listens for messages from its
// controlling context. Exactly one inbound shape is recognized:
//
//	{"type": "updateChatContent", "title": "...", "subtitle": "...", "greeting": "..."}
//
// Only the fields present are applied; unrecognized message shapes are
// ignored, never errors. Two signals flow the other way: a one-time
// widgetLoaded notification after first render settles, and closeWidget
// when the visitor closes an embedded widget (the host owns the iframe's
// visibility).
//
// # Channel B — cross-tab status broadcast
//
// A named publish/subscribe channel, scoped to the origin rather than a
// single page: every widget instance passing the same channel name shares
// it. Administrative surfaces publish CHATBOT_UPDATED events when an
// operator pauses, resumes, or edits a chatbot; widgets bound to that
// chatbot id apply the deploy status and any content fields without a
// reload. Widgets never publish.
//
// Both channels are optional capabilities. A nil inbound channel, nil post
// function, or nil *Channel degrades to a no-op so the widget keeps
// functioning in its default standalone configuration.
package bridge
