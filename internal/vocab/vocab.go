// Package vocab resolves controlled vocabularies: named value sets fetched
// from the server, keyed by scope, used to turn stored keys into display
// titles and to populate selection widgets.
package vocab

import (
	"fmt"
	"regexp"
	"sort"
	"sync"
)

// Term is one vocabulary entry.
type Term struct {
	Scope     string `json:"scope"`
	Key       string `json:"key"`
	Title     string `json:"title"`
	Ordinal   int    `json:"ordinal"`
	IsRetired bool   `json:"is_retired,omitempty"`
	Comment   string `json:"comment,omitempty"`
}

// Option is a {value, label} pair for a selection widget.
type Option struct {
	Val   string `json:"val"`
	Label string `json:"label"`
}

// UnknownVocabularyError reports a scope that matched nothing, neither
// exactly nor as a regex over the known scopes.
type UnknownVocabularyError struct {
	Scope string
}

func (e *UnknownVocabularyError) Error() string {
	return fmt.Sprintf("unknown vocabulary: %s", e.Scope)
}

// Store holds the session vocabulary cache: scope -> key -> term. It is
// populated once from the server vocabulary list and replaced wholesale on
// invalidation.
type Store struct {
	mu     sync.RWMutex
	scopes map[string]map[string]*Term
}

// NewStore creates an empty store.
func NewStore() *Store {
	return &Store{scopes: make(map[string]map[string]*Term)}
}

// Load replaces the cache with the given terms, grouping them by scope.
func (s *Store) Load(terms []*Term) {
	scopes := make(map[string]map[string]*Term)
	for _, t := range terms {
		m, ok := scopes[t.Scope]
		if !ok {
			m = make(map[string]*Term)
			scopes[t.Scope] = m
		}
		m[t.Key] = t
	}
	s.mu.Lock()
	s.scopes = scopes
	s.mu.Unlock()
}

// Loaded reports whether any vocabulary has been loaded.
func (s *Store) Loaded() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.scopes) > 0
}

// Get returns the term mapping for a scope. An exact match wins; otherwise
// the scope is treated as a regex anchored at both ends and matched against
// every known scope, and the matching scopes' entries are unioned. A scope
// matching nothing fails with UnknownVocabularyError.
func (s *Store) Get(scope string) (map[string]*Term, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if m, ok := s.scopes[scope]; ok {
		return m, nil
	}
	re, err := regexp.Compile("^" + scope + "$")
	if err != nil {
		return nil, &UnknownVocabularyError{Scope: scope}
	}
	matched := make(map[string]*Term)
	for candidate, terms := range s.scopes {
		if !re.MatchString(candidate) {
			continue
		}
		for key, t := range terms {
			matched[key] = t
		}
	}
	if len(matched) == 0 {
		return nil, &UnknownVocabularyError{Scope: scope}
	}
	return matched, nil
}

// Title resolves a stored key to its display title. A missing vocabulary or
// key is a non-fatal condition: the raw value is returned along with an
// error describing the miss, for the caller to surface as a notice.
func (s *Store) Title(scope, val string) (string, error) {
	terms, err := s.Get(scope)
	if err != nil {
		return val, err
	}
	t, ok := terms[val]
	if !ok {
		return val, fmt.Errorf("vocabulary %s is misconfigured: rawData: %s", scope, val)
	}
	return t.Title, nil
}

// SelectOptions returns the scope's terms as selection options in ordinal
// order. Retired terms are excluded: they remain resolvable through Title
// but are never offered for new values.
func (s *Store) SelectOptions(scope string) ([]Option, error) {
	terms, err := s.Get(scope)
	if err != nil {
		return nil, err
	}
	active := make([]*Term, 0, len(terms))
	for _, t := range terms {
		if !t.IsRetired {
			active = append(active, t)
		}
	}
	sort.Slice(active, func(i, j int) bool {
		if active[i].Ordinal != active[j].Ordinal {
			return active[i].Ordinal < active[j].Ordinal
		}
		return active[i].Key < active[j].Key
	})
	opts := make([]Option, len(active))
	for i, t := range active {
		opts[i] = Option{Val: t.Key, Label: t.Title}
	}
	return opts, nil
}

// NextOrdinal returns max(ordinal)+1 over a scope's terms, or 1 for a new
// scope. Used when appending a term to an existing vocabulary.
func (s *Store) NextOrdinal(scope string) int {
	terms, err := s.Get(scope)
	if err != nil {
		return 1
	}
	max := 0
	for _, t := range terms {
		if t.Ordinal > max {
			max = t.Ordinal
		}
	}
	return max + 1
}
