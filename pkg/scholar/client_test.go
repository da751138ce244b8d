package scholar

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/paperdesk/paperdesk/internal/resilience"
)

func newTestClient(t *testing.T, handler http.HandlerFunc) Client {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	return NewClient(WithBaseURL(srv.URL))
}

func TestSearchAuthor_Success(t *testing.T) {
	var gotPath, gotQuery string
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		gotQuery = r.URL.Query().Get("query")
		fmt.Fprint(w, `{
			"total": 1,
			"data": [{
				"authorId": "1741101",
				"name": "Alice Smith",
				"hIndex": 45,
				"citationCount": 12345,
				"affiliations": ["Example University", "Example Lab"]
			}]
		}`)
	})

	author, err := c.SearchAuthor(context.Background(), "Alice Smith")
	require.NoError(t, err)
	assert.Equal(t, "/author/search", gotPath)
	assert.Equal(t, "Alice Smith", gotQuery)
	assert.Equal(t, "Alice Smith", author.Name)
	assert.Equal(t, 45, author.HIndex)
	assert.Equal(t, 12345, author.Citations)
	assert.Equal(t, "Example University", author.Affiliation)
}

func TestSearchAuthor_EmptyResult(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"total": 0, "data": []}`)
	})

	_, err := c.SearchAuthor(context.Background(), "Nobody")
	require.Error(t, err)
	assert.ErrorIs(t, err, resilience.ErrNotFound)
	assert.False(t, resilience.IsTransient(err))
}

func TestSearchAuthor_NotFoundStatus(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	})

	_, err := c.SearchAuthor(context.Background(), "Nobody")
	require.Error(t, err)
	assert.ErrorIs(t, err, resilience.ErrNotFound)
}

func TestSearchAuthor_RateLimitedIsTransient(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
	})

	_, err := c.SearchAuthor(context.Background(), "Alice")
	require.Error(t, err)
	assert.True(t, resilience.IsTransient(err))
	assert.NotErrorIs(t, err, resilience.ErrNotFound)
}

func TestSearchAuthor_ServerErrorIsTransient(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	})

	_, err := c.SearchAuthor(context.Background(), "Alice")
	require.Error(t, err)
	assert.True(t, resilience.IsTransient(err))
}

func TestSearchAuthor_ForbiddenIsPermanent(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusForbidden)
	})

	_, err := c.SearchAuthor(context.Background(), "Alice")
	require.Error(t, err)
	assert.False(t, resilience.IsTransient(err))
}

func TestSearchAuthor_BadJSONIsTransient(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"data": [`)
	})

	_, err := c.SearchAuthor(context.Background(), "Alice")
	require.Error(t, err)
	assert.True(t, resilience.IsTransient(err))
}

func TestSearchAuthor_SendsAPIKey(t *testing.T) {
	var gotKey string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotKey = r.Header.Get("x-api-key")
		fmt.Fprint(w, `{"total": 1, "data": [{"name": "Alice"}]}`)
	}))
	t.Cleanup(srv.Close)

	c := NewClient(WithBaseURL(srv.URL), WithAPIKey("secret"))
	_, err := c.SearchAuthor(context.Background(), "Alice")
	require.NoError(t, err)
	assert.Equal(t, "secret", gotKey)
}

func TestSearchAuthor_NoAffiliations(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"total": 1, "data": [{"name": "Alice", "hIndex": 3}]}`)
	})

	author, err := c.SearchAuthor(context.Background(), "Alice")
	require.NoError(t, err)
	assert.Empty(t, author.Affiliation)
}
