package appstate

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/openlims/limsclient/internal/api"
	"github.com/openlims/limsclient/internal/schema"
	"github.com/openlims/limsclient/internal/vocab"
)

func newTestState() *State {
	return New(Config{ReportsRoot: "/reports/api/v1"})
}

func TestSetUriStack_NotifiesOnEqualValue(t *testing.T) {
	s := newTestState()
	var notified int
	s.OnStackChange(func(stack []string, source any) { notified++ })

	stack := []string{"list", "screen"}
	s.SetUriStack(stack)
	s.SetUriStack([]string{"list", "screen"})

	// Structurally equal stacks still emit: the menu must re-highlight.
	assert.Equal(t, 2, notified)
	assert.Equal(t, []string{"list", "screen"}, s.URIStack())
	assert.Equal(t, "list", s.CurrentResourceID())
}

func TestSetUriStackFrom_PassesSource(t *testing.T) {
	s := newTestState()
	type router struct{}
	src := &router{}
	var got any
	s.OnStackChange(func(stack []string, source any) { got = source })
	s.SetUriStackFrom([]string{"screen", "1000"}, src)
	assert.Same(t, src, got)
}

func TestSetUriStack_EmptyStackIsHome(t *testing.T) {
	s := newTestState()
	s.SetUriStack([]string{"list", "screen"})
	s.SetUriStack(nil)
	assert.Equal(t, "home", s.CurrentResourceID())
}

func TestCurrentView_TracksStackShape(t *testing.T) {
	s := newTestState()
	assert.Equal(t, "home", s.CurrentView())

	s.SetUriStack([]string{"screen"})
	assert.Equal(t, "list", s.CurrentView())

	s.SetUriStack([]string{"screen", "1000"})
	assert.Equal(t, "detail", s.CurrentView())

	s.SetUriStack(nil)
	assert.Equal(t, "home", s.CurrentView())
}

func TestError_BoundedQueue(t *testing.T) {
	s := newTestState()
	for i := 1; i <= 6; i++ {
		s.Error(fmt.Sprintf("message %d", i))
	}
	msgs := s.Messages()
	require.Len(t, msgs, MaxMessages)
	// Oldest dropped, arrival order retained.
	assert.Equal(t, "message 2", msgs[0])
	assert.Equal(t, "message 6", msgs[4])
}

func TestClearMessages(t *testing.T) {
	s := newTestState()
	s.Error("one")
	s.ClearMessages()
	assert.Empty(t, s.Messages())
}

func TestHasPermission(t *testing.T) {
	s := newTestState()
	s.mu.Lock()
	s.currentUser = &User{
		Username:       "screener1",
		AllPermissions: []string{"permission/resource/screen/read"},
	}
	s.mu.Unlock()

	assert.True(t, s.HasPermission("screen"))
	assert.True(t, s.HasPermission("screen", "read"))
	assert.False(t, s.HasPermission("screen", "write"))
	assert.False(t, s.HasPermission("well"))

	s.mu.Lock()
	s.currentUser = &User{Username: "root", IsSuperuser: true}
	s.mu.Unlock()
	assert.True(t, s.HasPermission("well", "write"))
}

func TestHasPermission_NoUser(t *testing.T) {
	s := newTestState()
	assert.False(t, s.HasPermission("screen"))
}

type fakeConfirmer struct {
	accept    bool
	confirmed int
}

func (f *fakeConfirmer) Confirm(title, body string, ok, cancel func()) {
	f.confirmed++
	if f.accept {
		ok()
	} else if cancel != nil {
		cancel()
	}
}

func TestRequestPageChange_NoPending(t *testing.T) {
	s := newTestState()
	var ran bool
	s.RequestPageChange(PageChangeOptions{OK: func() { ran = true }})
	assert.True(t, ran)
}

func TestRequestPageChange_PendingAccepted(t *testing.T) {
	conf := &fakeConfirmer{accept: true}
	s := New(Config{Confirmer: conf})
	s.SetPagePending(nil)

	var ran bool
	s.RequestPageChange(PageChangeOptions{OK: func() { ran = true }})
	assert.Equal(t, 1, conf.confirmed)
	assert.True(t, ran)
	// Accepting the change clears the pending flag.
	assert.False(t, s.IsPagePending())
}

func TestRequestPageChange_PendingCancelled(t *testing.T) {
	conf := &fakeConfirmer{accept: false}
	s := New(Config{Confirmer: conf})

	var pendingCancelRan, okRan bool
	s.SetPagePending(func() { pendingCancelRan = true })
	s.RequestPageChange(PageChangeOptions{
		OK:     func() { okRan = true },
		Cancel: func() { t.Fatal("caller cancel must yield to the registered pending callback") },
	})
	assert.True(t, pendingCancelRan)
	assert.False(t, okRan)
	// Cancelling keeps the pending flag.
	assert.True(t, s.IsPagePending())
}

func TestGetVocabularyTitle_FallsBackAndNotices(t *testing.T) {
	s := newTestState()
	s.vocabularies.Load([]*vocab.Term{
		{Scope: "screen.type", Key: "rnai", Title: "RNAi", Ordinal: 1},
	})

	assert.Equal(t, "RNAi", s.GetVocabularyTitle("screen.type", "rnai"))
	assert.Empty(t, s.Messages())

	assert.Equal(t, "crispr", s.GetVocabularyTitle("screen.type", "crispr"))
	assert.Len(t, s.Messages(), 1)
}

func TestGetResource_Unknown(t *testing.T) {
	s := newTestState()
	_, err := s.GetResource("plate")
	var unknown *schema.UnknownResourceError
	assert.ErrorAs(t, err, &unknown)
}

func TestVocabularyKey(t *testing.T) {
	assert.Equal(t, "small_molecule", VocabularyKey("Small Molecule"))
	assert.Equal(t, "a_b_c", VocabularyKey("A  b/C"))
}

func stubBackend(t *testing.T) *httptest.Server {
	t.Helper()
	mux := http.NewServeMux()
	mux.HandleFunc("/reports/api/v1/resource", func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]any{"objects": []map[string]any{
			{
				"key": "screensaveruser", "api_resource": "screensaveruser",
				"title": "Screensaver User", "url_root": "/db/api/v1",
				"schema": map[string]any{"fields": map[string]any{
					"username": map[string]any{"key": "username", "data_type": "string", "ordinal": 0, "visibility": []string{"l", "d"}},
				}},
			},
			{
				"key": "usergroup", "api_resource": "usergroup",
				"title": "User Group", "url_root": "/reports/api/v1",
				"schema": map[string]any{"fields": map[string]any{
					"name": map[string]any{"key": "name", "data_type": "string", "ordinal": 0, "visibility": []string{"l", "d"}},
				}},
			},
		}})
	})
	mux.HandleFunc("/db/api/v1/screensaveruser", func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]any{"objects": []map[string]any{
			{"username": "ann", "name": "Ann A"},
			{"username": "bob", "name": "Bob B"},
		}})
	})
	mux.HandleFunc("/reports/api/v1/usergroup", func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]any{"objects": []map[string]any{
			{"name": "smallMoleculeScreeners"},
		}})
	})
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv
}

func TestUserOptions_CachedAfterFirstFetch(t *testing.T) {
	srv := stubBackend(t)
	s := New(Config{
		Client:      api.New(srv.URL),
		ReportsRoot: "/reports/api/v1",
	})
	require.NoError(t, s.LoadResources(context.Background()))

	opts, err := s.UserOptions(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []vocab.Option{
		{Val: "ann", Label: "Ann A:ann"},
		{Val: "bob", Label: "Bob B:bob"},
	}, opts)

	// Second call is served from the cache even with the server gone.
	srv.Close()
	opts, err = s.UserOptions(context.Background())
	require.NoError(t, err)
	assert.Len(t, opts, 2)

	s.InvalidateUserCaches()
	_, err = s.UserOptions(context.Background())
	assert.Error(t, err)
}

func TestPermissionOptions(t *testing.T) {
	srv := stubBackend(t)
	s := New(Config{Client: api.New(srv.URL), ReportsRoot: "/reports/api/v1"})
	require.NoError(t, s.LoadResources(context.Background()))

	groups := s.PermissionOptions()
	require.NotEmpty(t, groups)
	assert.Equal(t, "resources", groups[0].Group)
	assert.Contains(t, groups[0].Options, vocab.Option{
		Val: "resource/screensaveruser/read", Label: "resource:screensaveruser:read",
	})
	assert.Contains(t, groups[0].Options, vocab.Option{
		Val: "resource/usergroup/write", Label: "resource:usergroup:write",
	})

	var userGroup *PermissionGroup
	for i := range groups {
		if groups[i].Group == "screensaveruser" {
			userGroup = &groups[i]
		}
	}
	require.NotNil(t, userGroup)
	assert.Contains(t, userGroup.Options, vocab.Option{
		Val: "fields.screensaveruser/username/read", Label: "screensaveruser:username:read",
	})
}
