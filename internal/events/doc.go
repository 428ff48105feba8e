// Package events defines the activity events published after a step
// submission or an energy movement commits, and a fan-out emitter that
// delivers them to registered handlers.
//
// Handlers run after the write they describe has been committed. A failing
// handler never undoes that write.
package events
