package download

import (
	"context"
	"net/url"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeCookies struct {
	mu      sync.Mutex
	cookies map[string]string
}

func (f *fakeCookies) set(name, value string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.cookies == nil {
		f.cookies = map[string]string{}
	}
	f.cookies[name] = value
}

func (f *fakeCookies) Cookie(name string) (string, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	v, ok := f.cookies[name]
	return v, ok
}

func TestNewRequest_AppendsExportParameters(t *testing.T) {
	req, err := NewRequest("http://localhost/db/api/v1/screen?includes=*", Options{
		Format:          "xlsx",
		UseVocabularies: true,
		UseTitles:       true,
	})
	require.NoError(t, err)

	u, err := url.Parse(req.URL)
	require.NoError(t, err)
	q := u.Query()
	assert.Equal(t, "xlsx", q.Get("format"))
	assert.Equal(t, "true", q.Get("use_vocabularies"))
	assert.Equal(t, "true", q.Get("use_titles"))
	assert.Equal(t, "false", q.Get("raw_lists"))
	assert.Equal(t, req.DownloadID, q.Get("downloadID"))
	// The original query survives.
	assert.Equal(t, "*", q.Get("includes"))
}

func TestNewRequest_FreshIDPerRequest(t *testing.T) {
	a, err := NewRequest("http://localhost/db/api/v1/screen", Options{})
	require.NoError(t, err)
	b, err := NewRequest("http://localhost/db/api/v1/screen", Options{})
	require.NoError(t, err)
	assert.NotEqual(t, a.DownloadID, b.DownloadID)
}

func TestWait_ReturnsWhenCookieAppears(t *testing.T) {
	req, err := NewRequest("http://localhost/db/api/v1/screen", Options{})
	require.NoError(t, err)

	cookies := &fakeCookies{}
	w := &Watcher{Cookies: cookies, Interval: time.Millisecond, Attempts: 100}

	go func() {
		time.Sleep(5 * time.Millisecond)
		cookies.set(req.CookieName(), "done")
	}()

	err = w.Wait(context.Background(), req)
	assert.NoError(t, err)
}

func TestWait_TimesOutAfterAttemptBound(t *testing.T) {
	req, err := NewRequest("http://localhost/db/api/v1/screen", Options{})
	require.NoError(t, err)

	w := &Watcher{Cookies: &fakeCookies{}, Interval: time.Millisecond, Attempts: 3}
	err = w.Wait(context.Background(), req)

	var timeout *TimeoutError
	require.ErrorAs(t, err, &timeout)
	assert.Equal(t, 3, timeout.Attempts)
}

func TestWait_ContextCancel(t *testing.T) {
	req, err := NewRequest("http://localhost/db/api/v1/screen", Options{})
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	w := &Watcher{Cookies: &fakeCookies{}, Interval: time.Minute, Attempts: 10}
	err = w.Wait(ctx, req)
	assert.ErrorIs(t, err, context.Canceled)
}
