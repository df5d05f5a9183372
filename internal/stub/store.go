package stub

import (
	"fmt"
	"slices"
	"sort"
	"strconv"
	"strings"
	"sync"

	"github.com/openlims/limsclient/internal/api"
	"github.com/openlims/limsclient/internal/schema"
)

// Store is the stub server's in-memory entity store, one table per
// resource key.
type Store struct {
	mu        sync.RWMutex
	resources map[string]*schema.UiResource
	tables    map[string][]api.Entity
}

// NewStore creates a store over the given server-side resource
// descriptors.
func NewStore(resources []*schema.UiResource) *Store {
	byKey := make(map[string]*schema.UiResource, len(resources))
	for _, res := range resources {
		byKey[res.Key] = res
	}
	return &Store{
		resources: byKey,
		tables:    make(map[string][]api.Entity),
	}
}

// Resources returns the server resource descriptors in ordinal order.
func (s *Store) Resources() []*schema.UiResource {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]*schema.UiResource, 0, len(s.resources))
	for _, res := range s.resources {
		out = append(out, res)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Ordinal != out[j].Ordinal {
			return out[i].Ordinal < out[j].Ordinal
		}
		return out[i].Key < out[j].Key
	})
	return out
}

// Resource returns the descriptor for key.
func (s *Store) Resource(key string) (*schema.UiResource, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	res, ok := s.resources[key]
	return res, ok
}

// EntityID renders an entity's identifier from the resource's id
// attributes, composite parts joined by "/".
func EntityID(res *schema.UiResource, e api.Entity) string {
	attrs := res.IDAttribute
	if len(attrs) == 0 {
		attrs = []string{"id"}
	}
	parts := make([]string, len(attrs))
	for i, attr := range attrs {
		parts[i] = fmt.Sprint(e[attr])
	}
	return strings.Join(parts, "/")
}

// Insert appends an entity to a resource's table.
func (s *Store) Insert(resource string, e api.Entity) {
	s.mu.Lock()
	s.tables[resource] = append(s.tables[resource], e)
	s.mu.Unlock()
}

// Get returns the entity with the given id.
func (s *Store) Get(resource, id string) (api.Entity, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	res, ok := s.resources[resource]
	if !ok {
		return nil, false
	}
	for _, e := range s.tables[resource] {
		if EntityID(res, e) == id {
			return e, true
		}
	}
	return nil, false
}

// Patch merges values into the entity with the given id.
func (s *Store) Patch(resource, id string, values api.Entity) (api.Entity, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	res, ok := s.resources[resource]
	if !ok {
		return nil, false
	}
	for _, e := range s.tables[resource] {
		if EntityID(res, e) == id {
			for k, v := range values {
				e[k] = v
			}
			return e, true
		}
	}
	return nil, false
}

// Query applies search, ordering, and paging to a resource's table. total
// is the matched count before paging.
func (s *Store) Query(resource string, q ListQuery) (page []api.Entity, total int) {
	s.mu.RLock()
	rows := make([]api.Entity, len(s.tables[resource]))
	copy(rows, s.tables[resource])
	s.mu.RUnlock()

	matched := rows[:0:0]
	for _, e := range rows {
		if q.matches(e) {
			matched = append(matched, e)
		}
	}
	q.order(matched)
	total = len(matched)

	if q.RPP <= 0 {
		return matched, total
	}
	pageNum := q.Page
	if pageNum < 1 {
		pageNum = 1
	}
	start := (pageNum - 1) * q.RPP
	if start >= total {
		return nil, total
	}
	end := start + q.RPP
	if end > total {
		end = total
	}
	return matched[start:end], total
}

// ListQuery is a parsed list request.
type ListQuery struct {
	RPP    int
	Page   int
	Order  []string
	Search map[string]string
}

// matches applies every search term conjunctively. Term keys may carry an
// operator suffix in the backend's double-underscore style.
func (q ListQuery) matches(e api.Entity) bool {
	for key, want := range q.Search {
		field, op := key, "eq"
		if i := strings.LastIndex(key, "__"); i > 0 {
			field, op = key[:i], key[i+2:]
		}
		got := fieldString(e, field)
		switch op {
		case "eq":
			if got != want {
				return false
			}
		case "ne":
			if got == want {
				return false
			}
		case "in":
			if !slices.Contains(strings.Split(want, ","), got) {
				return false
			}
		case "isnull":
			isNull := got == "" || e[field] == nil
			if wantNull, _ := strconv.ParseBool(want); wantNull != isNull {
				return false
			}
		case "icontains":
			if !strings.Contains(strings.ToLower(got), strings.ToLower(want)) {
				return false
			}
		default:
			// Unrecognized operator terms match nothing, making the
			// mistake visible in the result instead of silently ignored.
			return false
		}
	}
	return true
}

// order sorts rows by the order fields, "-" prefix for descending.
// Numeric values compare numerically.
func (q ListQuery) order(rows []api.Entity) {
	if len(q.Order) == 0 {
		return
	}
	sort.SliceStable(rows, func(i, j int) bool {
		for _, field := range q.Order {
			desc := strings.HasPrefix(field, "-")
			name := strings.TrimPrefix(field, "-")
			cmp := compareValues(rows[i][name], rows[j][name])
			if cmp == 0 {
				continue
			}
			if desc {
				return cmp > 0
			}
			return cmp < 0
		}
		return false
	})
}

func compareValues(a, b any) int {
	af, aok := toNumber(a)
	bf, bok := toNumber(b)
	if aok && bok {
		switch {
		case af < bf:
			return -1
		case af > bf:
			return 1
		default:
			return 0
		}
	}
	return strings.Compare(fmt.Sprint(a), fmt.Sprint(b))
}

func toNumber(v any) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case int:
		return float64(n), true
	default:
		return 0, false
	}
}

func fieldString(e api.Entity, field string) string {
	v, ok := e[field]
	if !ok || v == nil {
		return ""
	}
	return fmt.Sprint(v)
}
