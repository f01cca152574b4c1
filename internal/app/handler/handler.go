// Package handler provides the result type shared by the TUI key handlers.
package handler

import tea "github.com/charmbracelet/bubbletea"

// Result is the outcome of offering a key to a handler.
type Result struct {
	Handled bool
	Cmd     tea.Cmd
}

// NotHandled lets the next handler try the key.
var NotHandled = Result{}

// HandledNoCmd consumes the key without a follow-up command.
var HandledNoCmd = Result{Handled: true}

// Handled consumes the key and schedules cmd.
func Handled(cmd tea.Cmd) Result {
	return Result{Handled: true, Cmd: cmd}
}

// Handler offers a key to one group of bindings.
type Handler func(key string) Result

// Chain offers key to each handler in order and stops at the first that
// handles it.
func Chain(key string, handlers ...Handler) (bool, tea.Cmd) {
	for _, h := range handlers {
		if r := h(key); r.Handled {
			return true, r.Cmd
		}
	}
	return false, nil
}
