// Package dedupe provides a small TTL guard for one-shot actions.
//
// The widget runtime has two spots where an action must happen at most
// once despite multiple triggers: the conversation-end signal (the graceful
// and abrupt teardown paths can both fire for one session) and feedback
// submission (a user can re-click a rating while the first submit is still
// in flight). Guard.CheckAndMark gives first-trigger-wins semantics;
// Release re-arms a key when the guarded action failed and should remain
// retryable.
package dedupe
