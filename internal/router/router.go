// Package router binds the host location bar to the application state
// store. URL changes decode into the navigation stack; stack changes made
// by views encode back into the URL. Each side tags its own writes so the
// other can skip the echo.
package router

import (
	"github.com/openlims/limsclient/internal/appstate"
	"github.com/openlims/limsclient/internal/uristack"
)

// History abstracts the host location bar and its session history.
type History interface {
	// Navigate rewrites the visible fragment. When replace is true the
	// current history entry is overwritten instead of pushed.
	Navigate(fragment string, replace bool)
	// Back steps to the previous history entry.
	Back()
}

// Options control how the next state-driven navigation is mirrored to the
// URL. They are one-shot: consumed by the mirror that follows the set.
type Options struct {
	// Trigger re-dispatches the mirrored fragment through HandleURLChange,
	// as if the user had navigated to it.
	Trigger bool
	// Replace overwrites the current history entry.
	Replace bool
}

// Router keeps the location bar and the state store's navigation stack in
// sync.
type Router struct {
	state   *appstate.State
	history History

	// routesHit counts navigations handled this session, so Back knows
	// whether a previous in-app entry exists to return to.
	routesHit int
	pending   *Options
}

// New wires a router to the state store and starts mirroring stack
// changes into the history.
func New(state *appstate.State, history History) *Router {
	r := &Router{state: state, history: history}
	state.OnStackChange(r.mirror)
	return r
}

// SetRoutingOptions stages options for the next state-driven navigation.
func (r *Router) SetRoutingOptions(opts Options) {
	r.pending = &opts
}

// HandleURLChange processes a fragment arriving from the location bar:
// decode it and push the stack into the state store.
func (r *Router) HandleURLChange(fragment string) {
	r.routesHit++
	r.state.SetUriStackFrom(uristack.Decode(fragment), r)
}

// mirror reflects a stack change back into the URL. Changes the router
// itself pushed are skipped; they already came from the URL.
func (r *Router) mirror(stack []string, source any) {
	if source == r {
		return
	}
	opts := Options{}
	if r.pending != nil {
		opts = *r.pending
		r.pending = nil
	}
	// Leaving the current view invalidates its banner messages.
	r.state.ClearMessages()
	r.routesHit++
	fragment := uristack.Encode(stack)
	r.history.Navigate(fragment, opts.Replace)
	if opts.Trigger {
		r.state.SetUriStackFrom(uristack.Decode(fragment), r)
	}
}

// Back returns to the previous in-app history entry, or replaces the
// location with home when the session entered on a deep link and has no
// previous entry to return to.
func (r *Router) Back() {
	if r.routesHit > 1 {
		r.history.Back()
		return
	}
	r.SetRoutingOptions(Options{Trigger: true, Replace: true})
	r.state.SetUriStack(nil)
}
