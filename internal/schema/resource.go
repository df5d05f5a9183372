package schema

import (
	"fmt"
	"sort"
)

// ListOptions are a UiResource's default list parameters. They seed the
// list view and are encoded into list requests as query parameters.
type ListOptions struct {
	RPP           int               `json:"rpp,omitempty"`
	RPPSelections []int             `json:"rpp_selections,omitempty"`
	Page          int               `json:"page,omitempty"`
	Order         []string          `json:"order,omitempty"`
	Search        map[string]string `json:"search,omitempty"`
	Includes      []string          `json:"includes,omitempty"`
}

// UiResource describes one navigable entity type. Entries originate in the
// static fixture, are augmented once per session with the server resource
// list, and are never mutated by user action afterwards.
//
// A UiResource whose Key differs from its APIResource is "virtual": it
// inherits all fields of the underlying resource, overridden by its own
// declared fields, and typically narrows the list with a default search.
type UiResource struct {
	Key            string       `json:"key"`
	Title          string       `json:"title"`
	Route          string       `json:"route,omitempty"`
	APIResource    string       `json:"api_resource,omitempty"`
	APIName        string       `json:"api_name,omitempty"`
	APIURI         string       `json:"apiUri,omitempty"`
	URLRoot        string       `json:"url_root,omitempty"`
	Description    string       `json:"description,omitempty"`
	HeaderMessage  string       `json:"header_message,omitempty"`
	IDAttribute    []string     `json:"id_attribute,omitempty"`
	TitleAttribute []string     `json:"title_attribute,omitempty"`
	ContentTypes   []string     `json:"content_types,omitempty"`
	Ordinal        int          `json:"ordinal,omitempty"`
	Options        *ListOptions `json:"options,omitempty"`
	Schema         *Schema      `json:"schema,omitempty"`
}

// UnknownResourceError reports a lookup for a resource id that is not in
// the registry.
type UnknownResourceError struct {
	ID string
}

func (e *UnknownResourceError) Error() string {
	return fmt.Sprintf("unknown resource: %s", e.ID)
}

// overlay returns base with every declared (non-zero) field of over applied
// on top. The merge is shallow, matching the fixture's top-level-key
// semantics: a declared Options block replaces the base block wholesale.
// Schemas merge at field granularity so virtual resources inherit the
// underlying field set.
func overlay(base, over *UiResource) *UiResource {
	if base == nil {
		c := *over
		return &c
	}
	out := *base
	if over.Key != "" {
		out.Key = over.Key
	}
	if over.Title != "" {
		out.Title = over.Title
	}
	if over.Route != "" {
		out.Route = over.Route
	}
	if over.APIResource != "" {
		out.APIResource = over.APIResource
	}
	if over.APIName != "" {
		out.APIName = over.APIName
	}
	if over.APIURI != "" {
		out.APIURI = over.APIURI
	}
	if over.URLRoot != "" {
		out.URLRoot = over.URLRoot
	}
	if over.Description != "" {
		out.Description = over.Description
	}
	if over.HeaderMessage != "" {
		out.HeaderMessage = over.HeaderMessage
	}
	if len(over.IDAttribute) > 0 {
		out.IDAttribute = over.IDAttribute
	}
	if len(over.TitleAttribute) > 0 {
		out.TitleAttribute = over.TitleAttribute
	}
	if len(over.ContentTypes) > 0 {
		out.ContentTypes = over.ContentTypes
	}
	if over.Ordinal != 0 {
		out.Ordinal = over.Ordinal
	}
	if over.Options != nil {
		out.Options = over.Options
	}
	switch {
	case over.Schema == nil:
		out.Schema = base.Schema
	case base.Schema == nil:
		out.Schema = over.Schema
	default:
		merged := base.Schema.clone()
		for key, f := range over.Schema.Fields {
			merged.Fields[key] = f
		}
		if over.Schema.ExtraSelectorOptions != nil {
			merged.ExtraSelectorOptions = over.Schema.ExtraSelectorOptions
		}
		out.Schema = merged
	}
	return &out
}

// Compose merges the static UI fixture with the server's resource list into
// the unified resource registry mapping.
//
// Server resources are indexed by key and merged under the fixture entry of
// the same key (fixture fields win on conflict); server resources with no
// fixture entry are added as-is. Every entry whose key differs from its
// api_resource is then overlaid on the server resource named by
// api_resource, so virtual resources inherit the underlying schema plus
// their own declared keys.
//
// Compose is idempotent: re-running it over already-composed output with
// the same server snapshot yields the same mapping.
func Compose(fixture map[string]*UiResource, server []*UiResource) map[string]*UiResource {
	byKey := make(map[string]*UiResource, len(server))
	for _, res := range server {
		byKey[res.Key] = res
	}

	out := make(map[string]*UiResource, len(fixture)+len(server))
	for _, res := range server {
		if fix, ok := fixture[res.Key]; ok {
			out[res.Key] = overlay(res, fix)
		} else {
			c := *res
			out[res.Key] = &c
		}
	}
	for key, fix := range fixture {
		if _, ok := out[key]; !ok {
			c := *fix
			if c.Key == "" {
				c.Key = key
			}
			out[key] = &c
		}
	}

	// Virtual-resource inheritance pass.
	for key, res := range out {
		if res.APIResource == "" || res.APIResource == key {
			continue
		}
		if base, ok := byKey[res.APIResource]; ok {
			merged := overlay(base, res)
			merged.Key = key
			out[key] = merged
		}
	}
	return out
}

// Registry is the composed resource mapping, keyed by resource id. It is
// built once per session and safe for concurrent reads afterwards.
type Registry struct {
	resources map[string]*UiResource
}

// NewRegistry creates a registry over a composed mapping.
func NewRegistry(resources map[string]*UiResource) *Registry {
	if resources == nil {
		resources = make(map[string]*UiResource)
	}
	return &Registry{resources: resources}
}

// Get returns the UiResource for id, or an UnknownResourceError.
func (r *Registry) Get(id string) (*UiResource, error) {
	res, ok := r.resources[id]
	if !ok {
		return nil, &UnknownResourceError{ID: id}
	}
	return res, nil
}

// All returns the full resource mapping.
func (r *Registry) All() map[string]*UiResource {
	return r.resources
}

// Keys returns all registered resource ids in ordinal, then key order.
func (r *Registry) Keys() []string {
	keys := make([]string, 0, len(r.resources))
	for key := range r.resources {
		keys = append(keys, key)
	}
	sort.Slice(keys, func(i, j int) bool {
		a, b := r.resources[keys[i]], r.resources[keys[j]]
		if a.Ordinal != b.Ordinal {
			return a.Ordinal < b.Ordinal
		}
		return keys[i] < keys[j]
	})
	return keys
}
