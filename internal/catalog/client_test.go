package catalog_test

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"testing"
	"time"

	"code.cloudfoundry.org/lager/v3/lagertest"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/plexmcp/plexmcp/internal/catalog"
)

// fakePlex serves the subset of the Plex JSON API the client touches.
func fakePlex(t *testing.T) *httptest.Server {
	t.Helper()

	identity := `{"MediaContainer":{"friendlyName":"Basement Plex"}}`
	sections := `{"MediaContainer":{"Directory":[
		{"key":"3","type":"artist","title":"Music"},
		{"key":"1","type":"movie","title":"Movies"}
	]}}`

	items := []map[string]any{
		{
			"title": "Alpha", "year": 1994, "rating": 8.1,
			"summary": "First film.", "studio": "Studio A", "contentRating": "PG-13",
			"addedAt": time.Date(2024, 1, 2, 0, 0, 0, 0, time.UTC).Unix(),
			"Genre":    []map[string]any{{"tag": "Drama"}, {"tag": "Crime"}},
			"Director": []map[string]any{{"tag": "Jane Doe"}},
			"Writer":   []map[string]any{{"tag": "John Writer"}},
			"Role":     []map[string]any{{"tag": "Big Star", "role": "The Lead"}},
			"Country":  []map[string]any{{"tag": "USA"}},
		},
		{
			"title": "Beta", "year": 2001,
			"Genre": []map[string]any{{"tag": "Comedy"}},
		},
		{"title": "Gamma"},
	}

	mux := http.NewServeMux()
	mux.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("X-Plex-Token") == "" {
			http.Error(w, "unauthorized", http.StatusUnauthorized)
			return
		}
		fmt.Fprint(w, identity)
	})
	mux.HandleFunc("/library/sections", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, sections)
	})
	mux.HandleFunc("/library/sections/1/all", func(w http.ResponseWriter, r *http.Request) {
		matched := items
		if title := r.URL.Query().Get("title"); title != "" {
			matched = nil
			for _, item := range items {
				name, _ := item["title"].(string)
				if strings.Contains(strings.ToLower(name), strings.ToLower(title)) {
					matched = append(matched, item)
				}
			}
		}
		if size := r.URL.Query().Get("X-Plex-Container-Size"); size != "" {
			if n, err := strconv.Atoi(size); err == nil && len(matched) > n {
				matched = matched[:n]
			}
		}
		writeContainer(w, matched)
	})
	mux.HandleFunc("/library/sections/1/recentlyAdded", func(w http.ResponseWriter, r *http.Request) {
		// Plex returns newest first; Gamma is the most recent here.
		recent := []map[string]any{items[2], items[1], items[0]}
		if size := r.URL.Query().Get("X-Plex-Container-Size"); size != "" {
			if n, err := strconv.Atoi(size); err == nil && len(recent) > n {
				recent = recent[:n]
			}
		}
		writeContainer(w, recent)
	})

	server := httptest.NewServer(mux)
	t.Cleanup(server.Close)
	return server
}

func writeContainer(w http.ResponseWriter, metadata []map[string]any) {
	json.NewEncoder(w).Encode(map[string]any{
		"MediaContainer": map[string]any{"Metadata": metadata},
	})
}

func newClient(t *testing.T) *catalog.Client {
	t.Helper()
	server := fakePlex(t)
	client, err := catalog.NewClient(lagertest.NewTestLogger("test"), server.URL, "token")
	require.NoError(t, err)
	return client
}

func TestNewClientConnects(t *testing.T) {
	client := newClient(t)
	assert.Equal(t, "Basement Plex", client.ServerName())
}

func TestNewClientUnreachable(t *testing.T) {
	_, err := catalog.NewClient(lagertest.NewTestLogger("test"), "http://127.0.0.1:1", "token")
	require.Error(t, err)
	assert.ErrorIs(t, err, catalog.ErrUnreachable)
}

func TestSectionNotFound(t *testing.T) {
	client := newClient(t)

	_, err := client.Shows()
	require.Error(t, err)
	assert.ErrorIs(t, err, catalog.ErrSectionNotFound)
}

func TestAllDecodesItems(t *testing.T) {
	client := newClient(t)

	movies, err := client.Movies()
	require.NoError(t, err)
	items, err := movies.All()
	require.NoError(t, err)
	require.Len(t, items, 3)

	alpha := items[0]
	assert.Equal(t, "Alpha", alpha.Title)
	assert.Equal(t, 1994, alpha.Year)
	assert.Equal(t, 8.1, alpha.Rating)
	assert.Equal(t, []string{"Drama", "Crime"}, alpha.Genres)
	assert.Equal(t, []string{"Jane Doe"}, alpha.Directors)
	assert.Equal(t, []string{"John Writer"}, alpha.Writers)
	require.Len(t, alpha.Cast, 1)
	assert.Equal(t, "Big Star", alpha.Cast[0].Name)
	assert.Equal(t, "The Lead", alpha.Cast[0].Role)
	assert.Equal(t, "USA", alpha.Countries[0])
	assert.Equal(t, "PG-13", alpha.ContentRating)
	assert.False(t, alpha.AddedAt.IsZero())

	// Items the source reports without a year keep a zero Year.
	assert.Equal(t, 0, items[2].Year)
	assert.True(t, items[2].AddedAt.IsZero())
}

func TestSearchPushesTitleToSource(t *testing.T) {
	client := newClient(t)
	movies, err := client.Movies()
	require.NoError(t, err)

	items, err := movies.Search(catalog.Filter{Title: "alp", Limit: 5})
	require.NoError(t, err)
	require.Len(t, items, 1)
	assert.Equal(t, "Alpha", items[0].Title)
}

func TestSearchFiltersTagsInMemory(t *testing.T) {
	client := newClient(t)
	movies, err := client.Movies()
	require.NoError(t, err)

	byGenre, err := movies.Search(catalog.Filter{Genre: "comedy"})
	require.NoError(t, err)
	require.Len(t, byGenre, 1)
	assert.Equal(t, "Beta", byGenre[0].Title)

	byDirector, err := movies.Search(catalog.Filter{Director: "jane"})
	require.NoError(t, err)
	require.Len(t, byDirector, 1)
	assert.Equal(t, "Alpha", byDirector[0].Title)

	byActor, err := movies.Search(catalog.Filter{Actor: "big star"})
	require.NoError(t, err)
	require.Len(t, byActor, 1)
	assert.Equal(t, "Alpha", byActor[0].Title)
}

func TestRecentlyAdded(t *testing.T) {
	client := newClient(t)
	movies, err := client.Movies()
	require.NoError(t, err)

	recent, err := movies.RecentlyAdded(2)
	require.NoError(t, err)
	require.Len(t, recent, 2)
	assert.Equal(t, "Gamma", recent[0].Title)
	assert.Equal(t, "Beta", recent[1].Title)
}

func TestLostConnectionSurfacesUnreachable(t *testing.T) {
	server := fakePlex(t)
	client, err := catalog.NewClient(lagertest.NewTestLogger("test"), server.URL, "token")
	require.NoError(t, err)

	movies, err := client.Movies()
	require.NoError(t, err)

	server.Close()

	// The request fails, marking the connection lost; the retry on the
	// next access cannot reach the server either.
	_, err = movies.All()
	require.Error(t, err)
	assert.ErrorIs(t, err, catalog.ErrUnreachable)

	_, err = movies.All()
	require.Error(t, err)
	assert.ErrorIs(t, err, catalog.ErrUnreachable)
}
