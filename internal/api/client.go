// Package api is the REST client for the LIMS backend. Resources are
// fetched and mutated at <root>/<resource_key>[/<id>]; list requests carry
// the recognized list-argument query parameters; mutations carry a free-text
// audit comment in a custom header.
package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"sort"
	"strconv"
	"strings"

	"github.com/openlims/limsclient/internal/schema"
	"github.com/openlims/limsclient/internal/vocab"
)

// HeaderComment is the request header carrying the audit comment recorded
// with every mutation.
const HeaderComment = "X-APILOG-COMMENT"

// SearchDelimiter separates key=value terms inside the "search" list
// parameter.
const SearchDelimiter = ";"

// NetworkFetchError wraps an HTTP-layer failure with its status and any
// error text the server returned.
type NetworkFetchError struct {
	URL        string
	Status     int
	StatusText string
	Body       string
}

func (e *NetworkFetchError) Error() string {
	msg := fmt.Sprintf("fetch %s: %d %s", e.URL, e.Status, e.StatusText)
	if e.Body != "" {
		msg += ": " + e.Body
	}
	return msg
}

// Entity is a single resource object as returned by the server.
type Entity map[string]any

// ListResult is a page of entities plus the server's paging metadata.
type ListResult struct {
	Objects []Entity       `json:"objects"`
	Meta    map[string]any `json:"meta,omitempty"`
}

// ListParams are the recognized list-request parameters. Zero values are
// omitted from the query.
type ListParams struct {
	RPP      int
	Page     int
	Order    []string
	Search   map[string]string
	Includes []string
	Children string
	Log      bool
}

// Query renders the parameters as URL query values.
func (p ListParams) Query() url.Values {
	q := url.Values{}
	if p.RPP > 0 {
		q.Set("rpp", strconv.Itoa(p.RPP))
	}
	if p.Page > 0 {
		q.Set("page", strconv.Itoa(p.Page))
	}
	if len(p.Order) > 0 {
		q.Set("order", strings.Join(p.Order, ","))
	}
	if len(p.Search) > 0 {
		q.Set("search", SearchString(p.Search))
	}
	if len(p.Includes) > 0 {
		q.Set("includes", strings.Join(p.Includes, ","))
	}
	if p.Children != "" {
		q.Set("children", p.Children)
	}
	if p.Log {
		q.Set("log", "true")
	}
	return q
}

// SearchString joins a search hash into the wire form: key=value terms in
// key order, separated by the search delimiter.
func SearchString(search map[string]string) string {
	keys := make([]string, 0, len(search))
	for k := range search {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	terms := make([]string, len(keys))
	for i, k := range keys {
		terms[i] = k + "=" + search[k]
	}
	return strings.Join(terms, SearchDelimiter)
}

// Client talks to one LIMS backend. The zero HTTP client falls back to
// http.DefaultClient.
type Client struct {
	// BaseURL is the scheme://host prefix; resource url_root paths are
	// appended to it.
	BaseURL string
	HTTP    *http.Client
}

// New creates a client for the given base URL.
func New(baseURL string) *Client {
	return &Client{BaseURL: strings.TrimRight(baseURL, "/"), HTTP: &http.Client{}}
}

func (c *Client) httpClient() *http.Client {
	if c.HTTP != nil {
		return c.HTTP
	}
	return http.DefaultClient
}

// ResourceURL returns the collection URL for a resource, honoring its
// fixture-declared url_root.
func (c *Client) ResourceURL(res *schema.UiResource) string {
	if res.APIURI != "" {
		return c.BaseURL + res.APIURI
	}
	key := res.APIResource
	if key == "" {
		key = res.Key
	}
	return c.BaseURL + res.URLRoot + "/" + key
}

// EntityURL returns the URL for one entity of a resource. Composite ids are
// passed pre-joined with "/".
func (c *Client) EntityURL(res *schema.UiResource, id string) string {
	return c.ResourceURL(res) + "/" + id
}

func (c *Client) do(ctx context.Context, method, rawURL string, query url.Values, body any, comment string) ([]byte, error) {
	if len(query) > 0 {
		sep := "?"
		if strings.Contains(rawURL, "?") {
			sep = "&"
		}
		rawURL += sep + query.Encode()
	}
	var reader io.Reader
	if body != nil {
		buf, err := json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("encoding %s body: %w", method, err)
		}
		reader = bytes.NewReader(buf)
	}
	req, err := http.NewRequestWithContext(ctx, method, rawURL, reader)
	if err != nil {
		return nil, err
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if comment != "" {
		req.Header.Set(HeaderComment, comment)
	}
	resp, err := c.httpClient().Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, &NetworkFetchError{
			URL:        rawURL,
			Status:     resp.StatusCode,
			StatusText: http.StatusText(resp.StatusCode),
			Body:       errorText(data),
		}
	}
	return data, nil
}

// errorText pulls the server's error message out of a failure body.
func errorText(data []byte) string {
	var body struct {
		ErrorMessage string `json:"error_message"`
		Error        string `json:"error"`
	}
	if err := json.Unmarshal(data, &body); err == nil {
		if body.ErrorMessage != "" {
			return body.ErrorMessage
		}
		if body.Error != "" {
			return body.Error
		}
	}
	return strings.TrimSpace(string(data))
}

// GetEntity fetches one entity with all columns included. A response
// wrapping the entity in a one-element "objects" array is unwrapped.
func (c *Client) GetEntity(ctx context.Context, res *schema.UiResource, id string) (Entity, error) {
	q := url.Values{}
	q.Set("includes", "*")
	data, err := c.do(ctx, http.MethodGet, c.EntityURL(res, id), q, nil, "")
	if err != nil {
		return nil, err
	}
	var wrapped struct {
		Objects []Entity `json:"objects"`
	}
	if err := json.Unmarshal(data, &wrapped); err == nil && len(wrapped.Objects) == 1 {
		return wrapped.Objects[0], nil
	}
	var entity Entity
	if err := json.Unmarshal(data, &entity); err != nil {
		return nil, fmt.Errorf("decoding entity %s/%s: %w", res.Key, id, err)
	}
	return entity, nil
}

// List fetches a page of a resource's entities.
func (c *Client) List(ctx context.Context, res *schema.UiResource, params ListParams) (*ListResult, error) {
	data, err := c.do(ctx, http.MethodGet, c.ResourceURL(res), params.Query(), nil, "")
	if err != nil {
		return nil, err
	}
	var result ListResult
	if err := json.Unmarshal(data, &result); err != nil {
		return nil, fmt.Errorf("decoding %s list: %w", res.Key, err)
	}
	return &result, nil
}

// Create POSTs a new entity to the collection URL, recording the audit
// comment.
func (c *Client) Create(ctx context.Context, res *schema.UiResource, values Entity, comment string) (Entity, error) {
	data, err := c.do(ctx, http.MethodPost, c.ResourceURL(res), nil, values, comment)
	if err != nil {
		return nil, err
	}
	return decodeMutationResult(data)
}

// Patch partially updates one entity, recording the audit comment.
func (c *Client) Patch(ctx context.Context, res *schema.UiResource, id string, values Entity, comment string) (Entity, error) {
	data, err := c.do(ctx, http.MethodPatch, c.EntityURL(res, id), nil, values, comment)
	if err != nil {
		return nil, err
	}
	return decodeMutationResult(data)
}

func decodeMutationResult(data []byte) (Entity, error) {
	if len(bytes.TrimSpace(data)) == 0 {
		return Entity{}, nil
	}
	var wrapped struct {
		Objects []Entity `json:"objects"`
	}
	if err := json.Unmarshal(data, &wrapped); err == nil && len(wrapped.Objects) == 1 {
		return wrapped.Objects[0], nil
	}
	var entity Entity
	if err := json.Unmarshal(data, &entity); err != nil {
		return nil, fmt.Errorf("decoding mutation result: %w", err)
	}
	return entity, nil
}

// GetVocabularies fetches every vocabulary term, for grouping by scope in
// the vocabulary store.
func (c *Client) GetVocabularies(ctx context.Context, root string) ([]*vocab.Term, error) {
	data, err := c.do(ctx, http.MethodGet, c.BaseURL+root+"/vocabularies", nil, nil, "")
	if err != nil {
		return nil, err
	}
	var result struct {
		Objects []*vocab.Term `json:"objects"`
	}
	if err := json.Unmarshal(data, &result); err != nil {
		return nil, fmt.Errorf("decoding vocabularies: %w", err)
	}
	return result.Objects, nil
}

// GetResources fetches the server resource list for composition.
func (c *Client) GetResources(ctx context.Context, root string) ([]*schema.UiResource, error) {
	data, err := c.do(ctx, http.MethodGet, c.BaseURL+root+"/resource", nil, nil, "")
	if err != nil {
		return nil, err
	}
	var result struct {
		Objects []*schema.UiResource `json:"objects"`
	}
	if err := json.Unmarshal(data, &result); err != nil {
		return nil, fmt.Errorf("decoding resource list: %w", err)
	}
	return result.Objects, nil
}
