package api

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/openlims/limsclient/internal/schema"
)

func screenResource() *schema.UiResource {
	return &schema.UiResource{
		Key:         "screen",
		APIResource: "screen",
		URLRoot:     "/db/api/v1",
	}
}

func TestSearchString(t *testing.T) {
	s := SearchString(map[string]string{
		"screen_type__in":   "small_molecule",
		"project_phase__ne": "annotation",
	})
	assert.Equal(t, "project_phase__ne=annotation;screen_type__in=small_molecule", s)
}

func TestListParams_Query(t *testing.T) {
	q := ListParams{
		RPP:      50,
		Page:     2,
		Order:    []string{"-date_created", "title"},
		Search:   map[string]string{"screen_type__in": "rnai"},
		Includes: []string{"-comments"},
	}.Query()
	assert.Equal(t, "50", q.Get("rpp"))
	assert.Equal(t, "2", q.Get("page"))
	assert.Equal(t, "-date_created,title", q.Get("order"))
	assert.Equal(t, "screen_type__in=rnai", q.Get("search"))
	assert.Equal(t, "-comments", q.Get("includes"))
	assert.Empty(t, q.Get("log"))
}

func TestGetEntity_UnwrapsObjectsArray(t *testing.T) {
	r := chi.NewRouter()
	r.Get("/db/api/v1/screen/{id}", func(w http.ResponseWriter, req *http.Request) {
		assert.Equal(t, "*", req.URL.Query().Get("includes"))
		json.NewEncoder(w).Encode(map[string]any{
			"objects": []map[string]any{
				{"screen_id": float64(1000), "title": "Test screen", "facility_id": chi.URLParam(req, "id")},
			},
		})
	})
	srv := httptest.NewServer(r)
	defer srv.Close()

	c := New(srv.URL)
	entity, err := c.GetEntity(context.Background(), screenResource(), "1000")
	require.NoError(t, err)
	assert.Equal(t, "Test screen", entity["title"])
	assert.Equal(t, "1000", entity["facility_id"])
}

func TestGetEntity_PlainObject(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
		json.NewEncoder(w).Encode(map[string]any{"title": "Bare"})
	}))
	defer srv.Close()

	c := New(srv.URL)
	entity, err := c.GetEntity(context.Background(), screenResource(), "1")
	require.NoError(t, err)
	assert.Equal(t, "Bare", entity["title"])
}

func TestPatch_SendsCommentHeader(t *testing.T) {
	var gotComment, gotMethod string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
		gotComment = req.Header.Get(HeaderComment)
		gotMethod = req.Method
		var body map[string]any
		json.NewDecoder(req.Body).Decode(&body)
		json.NewEncoder(w).Encode(body)
	}))
	defer srv.Close()

	c := New(srv.URL)
	entity, err := c.Patch(context.Background(), screenResource(), "1000",
		Entity{"title": "Renamed"}, "fixing a typo")
	require.NoError(t, err)
	assert.Equal(t, "fixing a typo", gotComment)
	assert.Equal(t, http.MethodPatch, gotMethod)
	assert.Equal(t, "Renamed", entity["title"])
}

func TestCreate_PostsToCollectionURL(t *testing.T) {
	var gotPath string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
		gotPath = req.URL.Path
		w.WriteHeader(http.StatusCreated)
		json.NewEncoder(w).Encode(map[string]any{"screen_id": 1})
	}))
	defer srv.Close()

	c := New(srv.URL)
	_, err := c.Create(context.Background(), screenResource(), Entity{"title": "New"}, "created")
	require.NoError(t, err)
	assert.Equal(t, "/db/api/v1/screen", gotPath)
}

func TestNetworkFetchError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		json.NewEncoder(w).Encode(map[string]any{"error_message": "title is required"})
	}))
	defer srv.Close()

	c := New(srv.URL)
	_, err := c.GetEntity(context.Background(), screenResource(), "9")
	var fetchErr *NetworkFetchError
	require.ErrorAs(t, err, &fetchErr)
	assert.Equal(t, http.StatusBadRequest, fetchErr.Status)
	assert.Equal(t, "title is required", fetchErr.Body)
}

func TestGetResources(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
		assert.Equal(t, "/reports/api/v1/resource", req.URL.Path)
		json.NewEncoder(w).Encode(map[string]any{
			"objects": []map[string]any{
				{"key": "screen", "title": "Screen", "api_resource": "screen"},
			},
		})
	}))
	defer srv.Close()

	c := New(srv.URL)
	resources, err := c.GetResources(context.Background(), "/reports/api/v1")
	require.NoError(t, err)
	require.Len(t, resources, 1)
	assert.Equal(t, "screen", resources[0].Key)
}
