// Package stub is a development REST backend implementing the API contract
// the client consumes: the resource list, the vocabulary listing, entity
// CRUD with list arguments, the audit-comment header, and the download
// cookie side channel. It serves embedded demo data from memory.
package stub

import (
	"encoding/json"
	"log"
	"net/http"
	"strconv"
	"strings"
	"sync"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/openlims/limsclient/internal/api"
)

// LogEntry records one audited mutation.
type LogEntry struct {
	Method   string `json:"method"`
	Resource string `json:"resource"`
	Key      string `json:"key,omitempty"`
	Comment  string `json:"comment"`
}

// Server is the stub backend.
type Server struct {
	store *Store

	mu     sync.Mutex
	apilog []LogEntry
}

// NewServer creates a stub backend over seeded demo data.
func NewServer() *Server {
	store := NewStore(SeedResources())
	SeedEntities(store)
	return &Server{store: store}
}

// APILog returns the audited mutations recorded so far.
func (s *Server) APILog() []LogEntry {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]LogEntry, len(s.apilog))
	copy(out, s.apilog)
	return out
}

func (s *Server) logMutation(r *http.Request, resource, key string) {
	entry := LogEntry{
		Method:   r.Method,
		Resource: resource,
		Key:      key,
		Comment:  r.Header.Get(api.HeaderComment),
	}
	s.mu.Lock()
	s.apilog = append(s.apilog, entry)
	s.mu.Unlock()
	log.Printf("apilog %s %s/%s comment=%q", entry.Method, entry.Resource, entry.Key, entry.Comment)
}

// Handler assembles the chi router for both API roots.
func (s *Server) Handler() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Use(middleware.Logger)

	for _, root := range []string{"/db/api/v1", "/reports/api/v1"} {
		r.Route(root, func(r chi.Router) {
			r.Get("/resource", s.getResources)
			r.Get("/apilog", s.getAPILog)
			r.Get("/{resource}", s.list)
			r.Post("/{resource}", s.create)
			r.Get("/{resource}/*", s.get)
			r.Patch("/{resource}/*", s.patch)
		})
	}
	return r
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Printf("writeJSON encode error: %v", err)
	}
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]string{"error_message": message})
}

func (s *Server) getResources(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"objects": s.store.Resources(),
	})
}

func (s *Server) getAPILog(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{"objects": s.APILog()})
}

// parseListQuery reads the recognized list arguments. Unknown parameters
// are ignored, as the production backend ignores them.
func parseListQuery(r *http.Request) ListQuery {
	q := ListQuery{Search: map[string]string{}}
	values := r.URL.Query()
	if v, err := strconv.Atoi(values.Get("rpp")); err == nil {
		q.RPP = v
	}
	if v, err := strconv.Atoi(values.Get("page")); err == nil {
		q.Page = v
	}
	if order := values.Get("order"); order != "" {
		q.Order = strings.Split(order, ",")
	}
	if search := values.Get("search"); search != "" {
		for _, term := range strings.Split(search, api.SearchDelimiter) {
			if k, v, ok := strings.Cut(term, "="); ok {
				q.Search[k] = v
			}
		}
	}
	return q
}

func (s *Server) list(w http.ResponseWriter, r *http.Request) {
	s.serveList(w, r, chi.URLParam(r, "resource"))
}

func (s *Server) serveList(w http.ResponseWriter, r *http.Request, resource string) {
	if _, ok := s.store.Resource(resource); !ok {
		writeError(w, http.StatusNotFound, "unknown resource: "+resource)
		return
	}
	q := parseListQuery(r)
	page, total := s.store.Query(resource, q)

	// A download request is an ordinary list fetch that additionally
	// confirms delivery through the client-visible cookie.
	if downloadID := r.URL.Query().Get("downloadID"); downloadID != "" {
		http.SetCookie(w, &http.Cookie{
			Name:  "downloadID_" + downloadID,
			Value: "downloaded",
			Path:  "/",
		})
		if format := r.URL.Query().Get("format"); format != "" {
			w.Header().Set("Content-Disposition",
				"attachment; filename="+resource+"."+format)
		}
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"objects": page,
		"meta":    map[string]any{"total_count": total},
	})
}

func (s *Server) get(w http.ResponseWriter, r *http.Request) {
	resource := chi.URLParam(r, "resource")
	id := chi.URLParam(r, "*")
	entity, ok := s.store.Get(resource, id)
	if !ok {
		writeError(w, http.StatusNotFound, resource+"/"+id+" not found")
		return
	}
	// Single results ride in a one-element objects array, as the
	// production backend serves them.
	writeJSON(w, http.StatusOK, map[string]any{
		"objects": []api.Entity{entity},
	})
}

func (s *Server) create(w http.ResponseWriter, r *http.Request) {
	resource := chi.URLParam(r, "resource")
	res, ok := s.store.Resource(resource)
	if !ok {
		writeError(w, http.StatusNotFound, "unknown resource: "+resource)
		return
	}
	var values api.Entity
	if err := json.NewDecoder(r.Body).Decode(&values); err != nil {
		writeError(w, http.StatusBadRequest, "decoding body: "+err.Error())
		return
	}
	id := EntityID(res, values)
	if _, exists := s.store.Get(resource, id); exists {
		writeError(w, http.StatusConflict, resource+"/"+id+" already exists")
		return
	}
	s.store.Insert(resource, values)
	s.logMutation(r, resource, id)
	writeJSON(w, http.StatusCreated, map[string]any{
		"objects": []api.Entity{values},
	})
}

func (s *Server) patch(w http.ResponseWriter, r *http.Request) {
	resource := chi.URLParam(r, "resource")
	id := chi.URLParam(r, "*")
	var values api.Entity
	if err := json.NewDecoder(r.Body).Decode(&values); err != nil {
		writeError(w, http.StatusBadRequest, "decoding body: "+err.Error())
		return
	}
	entity, ok := s.store.Patch(resource, id, values)
	if !ok {
		writeError(w, http.StatusNotFound, resource+"/"+id+" not found")
		return
	}
	s.logMutation(r, resource, id)
	writeJSON(w, http.StatusOK, map[string]any{
		"objects": []api.Entity{entity},
	})
}
