package movies

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/smith3v/tg-couple-bot/pkg/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestClient(t *testing.T, handler http.HandlerFunc) *Client {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)
	c := NewClient(config.TMDBConfig{APIKey: "secret", BaseURL: server.URL + "/"})
	c.Intn = func(n int) int { return n - 1 }
	return c
}

func TestRandomByGenreQueriesDiscover(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/discover/movie", r.URL.Path)
		q := r.URL.Query()
		assert.Equal(t, "secret", q.Get("api_key"))
		assert.Equal(t, "10749", q.Get("with_genres"))
		assert.Equal(t, "popularity.desc", q.Get("sort_by"))
		assert.Equal(t, "20", q.Get("page"))
		assert.Equal(t, DefaultLanguage, q.Get("language"))
		fmt.Fprint(w, `{"results":[
			{"id":1,"title":"Notting Hill","overview":"A bookshop","poster_path":"/a.jpg"},
			{"id":2,"title":"No Poster","overview":"","poster_path":""},
			{"id":3,"title":"Before Sunrise","overview":"A train","poster_path":"/b.jpg"}
		]}`)
	})

	movie, err := c.RandomByGenre(context.Background(), "romance")
	require.NoError(t, err)
	assert.Equal(t, "Before Sunrise", movie.Title)
	assert.Equal(t, PosterBaseURL+"/b.jpg", movie.PosterURL())
}

func TestRandomByGenreUnknownGenre(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		t.Fatalf("unexpected request")
	})
	_, err := c.RandomByGenre(context.Background(), "western")
	assert.True(t, errors.Is(err, ErrUnknownGenre))
}

func TestRandomByGenreEmptyPage(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"results":[{"id":2,"title":"No Poster"}]}`)
	})
	_, err := c.RandomByGenre(context.Background(), "comedy")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestRandomByGenreHTTPError(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "invalid key", http.StatusUnauthorized)
	})
	_, err := c.RandomByGenre(context.Background(), "thriller")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "401")
}

func TestGenreKeysMatchTMDb(t *testing.T) {
	assert.Equal(t, map[string]int{"comedy": 35, "romance": 10749, "scifi": 878, "thriller": 53}, GenreIDs)
}
