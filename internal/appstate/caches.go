package appstate

import (
	"context"
	"fmt"
	"regexp"
	"sort"
	"strings"

	"github.com/openlims/limsclient/internal/api"
	"github.com/openlims/limsclient/internal/vocab"
)

// Session caches for picker option lists. Each collection is fetched at
// most once per session and reused until explicitly invalidated.

// userResourceID is the backing resource for user collections.
const userResourceID = "screensaveruser"

func entityString(e api.Entity, key string) string {
	if v, ok := e[key].(string); ok {
		return v
	}
	return ""
}

// Users returns all users, fetching on first use.
func (s *State) Users(ctx context.Context) ([]api.Entity, error) {
	s.mu.RLock()
	cached := s.users
	s.mu.RUnlock()
	if cached != nil {
		return cached, nil
	}
	res, err := s.GetResource(userResourceID)
	if err != nil {
		return nil, err
	}
	result, err := s.client.List(ctx, res, api.ListParams{
		Includes: []string{"username", "name", "email"},
		Order:    []string{"name"},
	})
	if err != nil {
		s.Error(err.Error())
		return nil, err
	}
	s.mu.Lock()
	s.users = result.Objects
	s.mu.Unlock()
	return result.Objects, nil
}

// AdminUsers returns staff users, fetching on first use.
func (s *State) AdminUsers(ctx context.Context) ([]api.Entity, error) {
	s.mu.RLock()
	cached := s.adminUsers
	s.mu.RUnlock()
	if cached != nil {
		return cached, nil
	}
	res, err := s.GetResource(userResourceID)
	if err != nil {
		return nil, err
	}
	result, err := s.client.List(ctx, res, api.ListParams{
		Search: map[string]string{"is_staff__eq": "true"},
		Order:  []string{"name"},
	})
	if err != nil {
		s.Error(err.Error())
		return nil, err
	}
	s.mu.Lock()
	s.adminUsers = result.Objects
	s.mu.Unlock()
	return result.Objects, nil
}

// UserGroups returns all user groups, fetching on first use.
func (s *State) UserGroups(ctx context.Context) ([]api.Entity, error) {
	s.mu.RLock()
	cached := s.usergroups
	s.mu.RUnlock()
	if cached != nil {
		return cached, nil
	}
	res, err := s.GetResource("usergroup")
	if err != nil {
		return nil, err
	}
	result, err := s.client.List(ctx, res, api.ListParams{})
	if err != nil {
		s.Error(err.Error())
		return nil, err
	}
	s.mu.Lock()
	s.usergroups = result.Objects
	s.mu.Unlock()
	return result.Objects, nil
}

// InvalidateUserCaches drops the user, admin-user, and user-group caches so
// the next access refetches them.
func (s *State) InvalidateUserCaches() {
	s.mu.Lock()
	s.users = nil
	s.adminUsers = nil
	s.usergroups = nil
	s.mu.Unlock()
}

// UserOptions returns users as multiselect options labelled name:username.
func (s *State) UserOptions(ctx context.Context) ([]vocab.Option, error) {
	users, err := s.Users(ctx)
	if err != nil {
		return nil, err
	}
	opts := make([]vocab.Option, len(users))
	for i, u := range users {
		username := entityString(u, "username")
		opts[i] = vocab.Option{Val: username, Label: entityString(u, "name") + ":" + username}
	}
	return opts, nil
}

// AdminUserOptions returns staff users as multiselect options.
func (s *State) AdminUserOptions(ctx context.Context) ([]vocab.Option, error) {
	users, err := s.AdminUsers(ctx)
	if err != nil {
		return nil, err
	}
	opts := make([]vocab.Option, len(users))
	for i, u := range users {
		username := entityString(u, "username")
		opts[i] = vocab.Option{Val: username, Label: entityString(u, "name") + ":" + username}
	}
	return opts, nil
}

// UserGroupOptions returns user groups as options keyed by group name.
func (s *State) UserGroupOptions(ctx context.Context) ([]vocab.Option, error) {
	groups, err := s.UserGroups(ctx)
	if err != nil {
		return nil, err
	}
	opts := make([]vocab.Option, len(groups))
	for i, g := range groups {
		name := entityString(g, "name")
		opts[i] = vocab.Option{Val: name, Label: name}
	}
	return opts, nil
}

// PermissionGroup is one group of permission options for the editor UI.
type PermissionGroup struct {
	Group   string
	Options []vocab.Option
}

// PermissionOptions returns the permission option groups built from the
// composed resources.
func (s *State) PermissionOptions() []PermissionGroup {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.permissionOptions
}

// rebuildPermissionOptions derives resource read/write options plus
// per-field read options for every composed resource that declares fields.
// Resources without a schema are skipped: only server-backed resources
// carry permissions.
func (s *State) rebuildPermissionOptions() {
	s.mu.RLock()
	reg := s.registry
	s.mu.RUnlock()

	var resourceOpts []vocab.Option
	groups := []PermissionGroup{}
	for _, key := range reg.Keys() {
		res, _ := reg.Get(key)
		if res.Schema == nil || len(res.Schema.Fields) == 0 {
			continue
		}
		resourceOpts = append(resourceOpts,
			vocab.Option{
				Val:   strings.Join([]string{"resource", key, "read"}, "/"),
				Label: strings.Join([]string{"resource", key, "read"}, ":"),
			},
			vocab.Option{
				Val:   strings.Join([]string{"resource", key, "write"}, "/"),
				Label: strings.Join([]string{"resource", key, "write"}, ":"),
			})

		fieldKeys := make([]string, 0, len(res.Schema.Fields))
		for fkey := range res.Schema.Fields {
			fieldKeys = append(fieldKeys, fkey)
		}
		sort.Strings(fieldKeys)
		fieldOpts := make([]vocab.Option, len(fieldKeys))
		for i, fkey := range fieldKeys {
			fieldOpts[i] = vocab.Option{
				Val:   strings.Join([]string{"fields." + key, fkey, "read"}, "/"),
				Label: strings.Join([]string{key, fkey, "read"}, ":"),
			}
		}
		groups = append(groups, PermissionGroup{Group: key, Options: fieldOpts})
	}
	out := append([]PermissionGroup{{Group: "resources", Options: resourceOpts}}, groups...)

	s.mu.Lock()
	s.permissionOptions = out
	s.mu.Unlock()
}

var nonWordRun = regexp.MustCompile(`\W+`)

// VocabularyKey derives a term key from a display title: lowercased, with
// runs of non-word characters collapsed to underscores.
func VocabularyKey(title string) string {
	return nonWordRun.ReplaceAllString(strings.ToLower(title), "_")
}

// AddVocabularyTerm creates a new term in an existing vocabulary scope and
// refreshes the vocabulary cache. The key is derived from the title; a key
// already present in the scope is rejected; the new term's ordinal follows
// the scope's current maximum.
func (s *State) AddVocabularyTerm(ctx context.Context, scope, title, comment string) (*vocab.Term, error) {
	current, err := s.GetVocabulary(scope)
	if err != nil {
		s.Error(fmt.Sprintf("Error locating vocabulary: %s", scope))
		return nil, err
	}
	key := VocabularyKey(title)
	if _, exists := current[key]; exists {
		return nil, fmt.Errorf("vocabulary term %q is already used in scope %s", key, scope)
	}
	res, err := s.GetResource("vocabularies")
	if err != nil {
		return nil, err
	}
	term := &vocab.Term{
		Scope:   scope,
		Key:     key,
		Title:   title,
		Ordinal: s.vocabularies.NextOrdinal(scope),
	}
	_, err = s.client.Create(ctx, res, api.Entity{
		"scope":       term.Scope,
		"key":         term.Key,
		"title":       term.Title,
		"description": term.Title,
		"ordinal":     term.Ordinal,
		"comment":     comment,
	}, comment)
	if err != nil {
		s.Error(err.Error())
		return nil, err
	}
	if err := s.LoadVocabularies(ctx); err != nil {
		return nil, err
	}
	return term, nil
}
