// Package widget assembles the chat widget runtime. A Controller owns a
// session identity, a transcript, the per-turn feedback tracker, the
// lifecycle end-signaler, and the two cross-context bridges, and exposes
// the operations a rendering surface drives: Send, Open/Close, the rating
// calls, and the two teardown paths.
//
// Controllers are never shared. Two widgets on the same page are two
// Controllers with disjoint state, even for the same chatbot.
package widget
