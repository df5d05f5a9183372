// Package appstate holds the process-wide application state: the current
// navigation stack, the current user, the composed resource registry, the
// vocabulary cache, and the bounded error-message queue. A single State is
// constructed at application start and passed by reference to every
// component that needs it; there is no ambient global.
package appstate

import (
	"context"
	"fmt"
	"log"
	"slices"
	"strings"
	"sync"

	"github.com/openlims/limsclient/internal/api"
	"github.com/openlims/limsclient/internal/schema"
	"github.com/openlims/limsclient/internal/vocab"
)

// MaxMessages bounds the error-message queue; the oldest entry is dropped
// when a sixth arrives.
const MaxMessages = 5

// User is the authenticated user, as returned by the user resource.
type User struct {
	Username       string   `json:"username"`
	Name           string   `json:"name"`
	Email          string   `json:"email,omitempty"`
	IsSuperuser    bool     `json:"is_superuser,omitempty"`
	IsStaff        bool     `json:"is_staff,omitempty"`
	AllPermissions []string `json:"all_permissions,omitempty"`
}

// Confirmer presents a blocking ok/cancel confirmation to the user. The
// shell supplies a prompt-based implementation; tests supply fakes.
type Confirmer interface {
	Confirm(title, body string, ok, cancel func())
}

// StackListener observes navigation-stack changes. source identifies the
// component that initiated the change so it can ignore its own echoes.
type StackListener func(stack []string, source any)

// Config wires a State to its collaborators.
type Config struct {
	Client      *api.Client
	ReportsRoot string // e.g. "/reports/api/v1"
	Fixture     map[string]*schema.UiResource
	Confirmer   Confirmer
}

// State is the application state store. All methods are safe for concurrent
// use; listeners are invoked outside the lock.
type State struct {
	client      *api.Client
	reportsRoot string
	fixture     map[string]*schema.UiResource
	confirmer   Confirmer

	mu                sync.RWMutex
	registry          *schema.Registry
	vocabularies      *vocab.Store
	currentUser       *User
	uriStack          []string
	currentView       string
	currentResourceID string
	messages          []string
	pagePending       bool
	pendingCancel     func()

	users      []api.Entity
	adminUsers []api.Entity
	usergroups []api.Entity

	permissionOptions []PermissionGroup

	stackListeners   []StackListener
	messageListeners []func()
}

// New creates a State with empty caches. Call Start to populate the
// registry, vocabularies, and current user from the server.
func New(cfg Config) *State {
	return &State{
		client:            cfg.Client,
		reportsRoot:       cfg.ReportsRoot,
		fixture:           cfg.Fixture,
		confirmer:         cfg.Confirmer,
		registry:          schema.NewRegistry(nil),
		vocabularies:      vocab.NewStore(),
		currentView:       "home",
		currentResourceID: "home",
	}
}

// Start performs the session bootstrap: compose resources, load
// vocabularies, resolve the current user. Each step is fetched at most once
// per session unless explicitly invalidated.
func (s *State) Start(ctx context.Context, username string) error {
	if err := s.LoadResources(ctx); err != nil {
		return err
	}
	if err := s.LoadVocabularies(ctx); err != nil {
		return err
	}
	return s.SetCurrentUser(ctx, username)
}

// LoadResources fetches the server resource list, composes it with the
// static fixture, rebuilds the registry, and refreshes the permission
// option groups.
func (s *State) LoadResources(ctx context.Context) error {
	serverResources, err := s.client.GetResources(ctx, s.reportsRoot)
	if err != nil {
		s.Error(err.Error())
		return err
	}
	composed := schema.Compose(s.fixture, serverResources)

	validator, err := schema.NewFieldValidator()
	if err != nil {
		return err
	}
	for key, res := range composed {
		validator.ValidateSchema(key, res.Schema, func(w error) {
			log.Printf("appstate: %v", w)
			s.Error(w.Error())
		})
	}

	s.mu.Lock()
	s.registry = schema.NewRegistry(composed)
	s.mu.Unlock()
	s.rebuildPermissionOptions()
	return nil
}

// LoadVocabularies fetches and replaces the vocabulary cache.
func (s *State) LoadVocabularies(ctx context.Context) error {
	terms, err := s.client.GetVocabularies(ctx, s.reportsRoot)
	if err != nil {
		s.Error(err.Error())
		return err
	}
	s.vocabularies.Load(terms)
	return nil
}

// SetCurrentUser resolves the named user against the user resource.
func (s *State) SetCurrentUser(ctx context.Context, username string) error {
	res, err := s.GetResource("user")
	if err != nil {
		return err
	}
	entity, err := s.client.GetEntity(ctx, res, username)
	if err != nil {
		s.Error(err.Error())
		return err
	}
	user := &User{Username: username}
	if v, ok := entity["username"].(string); ok {
		user.Username = v
	}
	if v, ok := entity["name"].(string); ok {
		user.Name = v
	}
	if v, ok := entity["email"].(string); ok {
		user.Email = v
	}
	if v, ok := entity["is_superuser"].(bool); ok {
		user.IsSuperuser = v
	}
	if v, ok := entity["is_staff"].(bool); ok {
		user.IsStaff = v
	}
	if perms, ok := entity["all_permissions"].([]any); ok {
		for _, p := range perms {
			if str, ok := p.(string); ok {
				user.AllPermissions = append(user.AllPermissions, str)
			}
		}
	}
	s.mu.Lock()
	s.currentUser = user
	s.mu.Unlock()
	return nil
}

// CurrentUser returns the resolved user, or nil before Start.
func (s *State) CurrentUser() *User {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.currentUser
}

// IsSuperuser reports whether the current user bypasses permission checks.
func (s *State) IsSuperuser() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.currentUser != nil && s.currentUser.IsSuperuser
}

// ─── Navigation stack ──────────────────────────────────────────────────────

// OnStackChange registers a navigation-stack listener.
func (s *State) OnStackChange(fn StackListener) {
	s.mu.Lock()
	s.stackListeners = append(s.stackListeners, fn)
	s.mu.Unlock()
}

// URIStack returns the current navigation stack.
func (s *State) URIStack() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return slices.Clone(s.uriStack)
}

// SetUriStack replaces the navigation stack and notifies listeners. When
// the new stack equals the current one the notification is still emitted:
// listeners keyed on identity (the menu highlight) must re-run even when
// the user navigates to the value already shown.
func (s *State) SetUriStack(stack []string) {
	s.SetUriStackFrom(stack, nil)
}

// SetUriStackFrom is SetUriStack with an originating component, which
// listeners receive and may use to skip their own echoes.
func (s *State) SetUriStackFrom(stack []string, source any) {
	s.mu.Lock()
	if !slices.Equal(s.uriStack, stack) {
		s.uriStack = slices.Clone(stack)
		if len(stack) > 0 {
			s.currentResourceID = stack[0]
		} else {
			s.currentResourceID = "home"
		}
		s.currentView = viewFor(stack)
	}
	listeners := slices.Clone(s.stackListeners)
	notify := slices.Clone(s.uriStack)
	s.mu.Unlock()
	for _, fn := range listeners {
		fn(notify, source)
	}
}

// CurrentResourceID returns the head of the navigation stack, or "home".
func (s *State) CurrentResourceID() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.currentResourceID
}

// CurrentView names the content view implied by the navigation stack:
// "home" for an empty stack, "list" for a bare resource, "detail" once an
// entity id follows the resource.
func (s *State) CurrentView() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.currentView
}

func viewFor(stack []string) string {
	switch {
	case len(stack) == 0:
		return "home"
	case len(stack) == 1:
		return "list"
	default:
		return "detail"
	}
}

// ─── Resources and vocabularies ────────────────────────────────────────────

// GetResource returns the composed UiResource for id.
func (s *State) GetResource(id string) (*schema.UiResource, error) {
	s.mu.RLock()
	reg := s.registry
	s.mu.RUnlock()
	return reg.Get(id)
}

// GetSchema returns the schema of the composed resource for id.
func (s *State) GetSchema(id string) (*schema.Schema, error) {
	res, err := s.GetResource(id)
	if err != nil {
		return nil, err
	}
	return res.Schema, nil
}

// Resources returns the full composed mapping.
func (s *State) Resources() map[string]*schema.UiResource {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.registry.All()
}

// GetVocabulary returns the term mapping for a scope, with the store's
// regex-union fallback.
func (s *State) GetVocabulary(scope string) (map[string]*vocab.Term, error) {
	return s.vocabularies.Get(scope)
}

// GetVocabularyTitle resolves a stored key to its display title. A missing
// vocabulary or key surfaces a non-fatal notice and falls back to the raw
// value; rendering is never blocked on vocabulary state.
func (s *State) GetVocabularyTitle(scope, val string) string {
	title, err := s.vocabularies.Title(scope, val)
	if err != nil {
		s.Error(err.Error())
	}
	return title
}

// GetVocabularySelectOptions returns active terms as selection options; a
// missing scope surfaces a notice and yields no options.
func (s *State) GetVocabularySelectOptions(scope string) []vocab.Option {
	opts, err := s.vocabularies.SelectOptions(scope)
	if err != nil {
		s.Error(fmt.Sprintf("Vocabulary unavailable: vocabulary_scope_ref: %s", scope))
		return nil
	}
	return opts
}

// GetModel fetches one entity of a resource, unwrapping single-element
// "objects" responses. Composite keys are joined with "/" by the caller.
func (s *State) GetModel(ctx context.Context, resourceID, key string) (api.Entity, *schema.UiResource, error) {
	res, err := s.GetResource(resourceID)
	if err != nil {
		return nil, nil, err
	}
	entity, err := s.client.GetEntity(ctx, res, key)
	if err != nil {
		s.Error(err.Error())
		return nil, nil, err
	}
	return entity, res, nil
}

// ─── Permissions ───────────────────────────────────────────────────────────

// HasPermission reports whether the current user may act on the resource.
// Superusers always pass. Otherwise the user's permission set must contain
// a string of the form permission/resource/<key>[/<perm>]; with no perm
// argument any suffix counts.
func (s *State) HasPermission(resourceKey string, permission ...string) bool {
	user := s.CurrentUser()
	if user == nil {
		return false
	}
	if user.IsSuperuser {
		return true
	}
	want := "permission/resource/" + resourceKey
	if len(permission) > 0 && permission[0] != "" {
		want += "/" + permission[0]
	}
	for _, p := range user.AllPermissions {
		if strings.Contains(p, want) {
			return true
		}
	}
	return false
}

// ─── Messages ──────────────────────────────────────────────────────────────

// OnMessages registers a listener for message-queue changes.
func (s *State) OnMessages(fn func()) {
	s.mu.Lock()
	s.messageListeners = append(s.messageListeners, fn)
	s.mu.Unlock()
}

// Error appends a message to the bounded queue, dropping the oldest entry
// beyond MaxMessages, and notifies listeners.
func (s *State) Error(msg string) {
	log.Printf("error: %s", msg)
	s.mu.Lock()
	s.messages = append(s.messages, msg)
	if len(s.messages) > MaxMessages {
		s.messages = s.messages[len(s.messages)-MaxMessages:]
	}
	listeners := slices.Clone(s.messageListeners)
	s.mu.Unlock()
	for _, fn := range listeners {
		fn()
	}
}

// Messages returns the queued messages, oldest first.
func (s *State) Messages() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return slices.Clone(s.messages)
}

// ClearMessages empties the queue; called after navigating away from the
// page the messages belonged to.
func (s *State) ClearMessages() {
	s.mu.Lock()
	s.messages = nil
	listeners := slices.Clone(s.messageListeners)
	s.mu.Unlock()
	for _, fn := range listeners {
		fn()
	}
}

// ─── Pending-change guard ──────────────────────────────────────────────────

// SetPagePending flags the current page as having unsaved changes. An
// optional callback runs if a later page change is cancelled.
func (s *State) SetPagePending(onCancel func()) {
	s.mu.Lock()
	s.pagePending = true
	s.pendingCancel = onCancel
	s.mu.Unlock()
}

// ClearPagePending drops the pending-change flag.
func (s *State) ClearPagePending() {
	s.mu.Lock()
	s.pagePending = false
	s.pendingCancel = nil
	s.mu.Unlock()
}

// IsPagePending reports whether unsaved changes are flagged.
func (s *State) IsPagePending() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.pagePending
}

// PageChangeOptions name the continuations of RequestPageChange.
type PageChangeOptions struct {
	OK     func()
	Cancel func()
}

// RequestPageChange runs opts.OK immediately when no change is pending.
// Otherwise the confirmer is shown: accepting runs opts.OK and clears the
// flag; cancelling runs the callback registered with SetPagePending, or
// opts.Cancel when none was.
func (s *State) RequestPageChange(opts PageChangeOptions) {
	ok := func() {
		if opts.OK != nil {
			opts.OK()
		}
		s.ClearPagePending()
	}
	if !s.IsPagePending() {
		ok()
		return
	}
	s.mu.RLock()
	cancel := s.pendingCancel
	s.mu.RUnlock()
	if cancel == nil {
		cancel = opts.Cancel
	}
	if cancel == nil {
		cancel = func() {}
	}
	if s.confirmer == nil {
		// No confirmer wired: keep the pending flag and refuse the change.
		return
	}
	s.confirmer.Confirm(
		"Please confirm",
		"Pending changes in the page: continue anyway?",
		ok, cancel)
}
