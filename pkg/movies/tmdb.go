// Package movies picks random popular films from TMDb for the movie roulette.
package movies

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math/rand"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/smith3v/tg-couple-bot/pkg/config"
	"github.com/smith3v/tg-couple-bot/pkg/logger"
)

const (
	DefaultBaseURL  = "https://api.themoviedb.org/3"
	DefaultLanguage = "en-US"
	PosterBaseURL   = "https://image.tmdb.org/t/p/w500"

	maxPage        = 20
	requestTimeout = 10 * time.Second
)

var (
	ErrUnknownGenre = errors.New("unknown genre")
	ErrNotFound     = errors.New("no movie found")
)

// GenreIDs maps roulette genres to TMDb genre ids.
var GenreIDs = map[string]int{
	"comedy":   35,
	"romance":  10749,
	"scifi":    878,
	"thriller": 53,
}

type Movie struct {
	ID         int    `json:"id"`
	Title      string `json:"title"`
	Overview   string `json:"overview"`
	PosterPath string `json:"poster_path"`
}

// PosterURL is empty when TMDb has no poster for the movie.
func (m Movie) PosterURL() string {
	if m.PosterPath == "" {
		return ""
	}
	return PosterBaseURL + m.PosterPath
}

type discoverResponse struct {
	Results []Movie `json:"results"`
}

type Client struct {
	HTTP     *http.Client
	BaseURL  string
	APIKey   string
	Language string
	// Intn is swappable so tests can pin the page and pick.
	Intn func(n int) int
}

func NewClient(cfg config.TMDBConfig) *Client {
	c := &Client{
		HTTP:     &http.Client{Timeout: requestTimeout},
		BaseURL:  strings.TrimRight(cfg.BaseURL, "/"),
		APIKey:   cfg.APIKey,
		Language: cfg.Language,
		Intn:     rand.Intn,
	}
	if c.BaseURL == "" {
		c.BaseURL = DefaultBaseURL
	}
	if c.Language == "" {
		c.Language = DefaultLanguage
	}
	return c
}

// RandomByGenre fetches a random page of popular movies in genre and picks
// one that has a poster.
func (c *Client) RandomByGenre(ctx context.Context, genre string) (Movie, error) {
	genreID, ok := GenreIDs[genre]
	if !ok {
		return Movie{}, fmt.Errorf("%w: %q", ErrUnknownGenre, genre)
	}
	page := c.Intn(maxPage) + 1

	query := url.Values{}
	query.Set("api_key", c.APIKey)
	query.Set("with_genres", strconv.Itoa(genreID))
	query.Set("language", c.Language)
	query.Set("sort_by", "popularity.desc")
	query.Set("page", strconv.Itoa(page))

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.BaseURL+"/discover/movie?"+query.Encode(), nil)
	if err != nil {
		return Movie{}, err
	}
	resp, err := c.HTTP.Do(req)
	if err != nil {
		return Movie{}, fmt.Errorf("tmdb discover: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return Movie{}, fmt.Errorf("tmdb discover: unexpected status %d", resp.StatusCode)
	}

	var body discoverResponse
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return Movie{}, fmt.Errorf("tmdb discover: decode: %w", err)
	}

	var candidates []Movie
	for _, movie := range body.Results {
		if movie.PosterPath != "" && movie.Title != "" {
			candidates = append(candidates, movie)
		}
	}
	if len(candidates) == 0 {
		logger.Debug("tmdb page had no usable movies", "genre", genre, "page", page)
		return Movie{}, ErrNotFound
	}
	return candidates[c.Intn(len(candidates))], nil
}
