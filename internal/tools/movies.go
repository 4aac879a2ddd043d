package tools

import (
	"encoding/json"
	"fmt"
	"sort"
	"time"

	"code.cloudfoundry.org/lager/v3"

	"github.com/plexmcp/plexmcp/internal/catalog"
	"github.com/plexmcp/plexmcp/internal/mcp"
)

// Library provides the movie collection queried by every tool.
type Library interface {
	Movies() (catalog.Collection, error)
}

// Movies holds the movie tool group. Each tool is stateless given the
// current catalog snapshot.
type Movies struct {
	logger  lager.Logger
	library Library
}

func NewMovies(logger lager.Logger, library Library) *Movies {
	return &Movies{logger: logger.Session("movie-tools"), library: library}
}

// errorPayload is an operational failure reported as data inside a
// successful response, distinct from protocol-level errors.
type errorPayload struct {
	Error string `json:"error"`
}

func errorf(format string, a ...any) errorPayload {
	return errorPayload{Error: fmt.Sprintf(format, a...)}
}

// decodeArgs unmarshals tool arguments into a struct whose fields carry the
// declared defaults. Empty arguments leave the defaults untouched.
func decodeArgs(args json.RawMessage, into any) error {
	if len(args) == 0 {
		return nil
	}
	if err := json.Unmarshal(args, into); err != nil {
		return fmt.Errorf("invalid arguments: %w", err)
	}
	return nil
}

type movieSummary struct {
	Title     string   `json:"title"`
	Year      int      `json:"year,omitempty"`
	Rating    float64  `json:"rating,omitempty"`
	Genres    []string `json:"genres"`
	Directors []string `json:"directors"`
	Summary   string   `json:"summary,omitempty"`
	AddedAt   string   `json:"added_at,omitempty"`
}

func summarize(item catalog.Item, summaryLen int) movieSummary {
	s := movieSummary{
		Title:     item.Title,
		Year:      item.Year,
		Rating:    item.Rating,
		Genres:    item.Genres,
		Directors: item.Directors,
	}
	if summaryLen > 0 {
		s.Summary = truncate(item.Summary, summaryLen)
	}
	return s
}

func summarizeAll(items []catalog.Item, summaryLen int) []movieSummary {
	out := make([]movieSummary, len(items))
	for i, item := range items {
		out[i] = summarize(item, summaryLen)
	}
	return out
}

func truncate(s string, max int) string {
	runes := []rune(s)
	if len(runes) <= max {
		return s
	}
	return string(runes[:max]) + "..."
}

// RegisterTools adds every movie tool to the registry. Registration order
// is the order tools/list reports.
func (m *Movies) RegisterTools(registry *mcp.Registry) error {
	register := []mcp.Tool{
		{
			Name:        "get_library_stats",
			Description: "Get overall movie library statistics including total movies, top genres, and directors",
			InputSchema: map[string]any{"type": "object", "properties": map[string]any{}},
			Handler:     m.libraryStats,
		},
		{
			Name:        "list_all_movies",
			Description: "List all movies in the library with pagination",
			InputSchema: map[string]any{
				"type": "object",
				"properties": map[string]any{
					"limit":  map[string]any{"type": "integer", "description": "Number of movies to return", "default": 100},
					"offset": map[string]any{"type": "integer", "description": "Starting position", "default": 0},
				},
			},
			Handler: m.listAllMovies,
		},
		{
			Name:        "search_movies",
			Description: "Search for movies by title",
			InputSchema: map[string]any{
				"type": "object",
				"properties": map[string]any{
					"query": map[string]any{"type": "string", "description": "Movie title to search for"},
					"limit": map[string]any{"type": "integer", "description": "Maximum results", "default": 10},
				},
				"required": []string{"query"},
			},
			Handler: m.searchMovies,
		},
		{
			Name:        "search_by_genre",
			Description: "Find movies by genre (e.g., Drama, Comedy, Sci-Fi)",
			InputSchema: map[string]any{
				"type": "object",
				"properties": map[string]any{
					"genre": map[string]any{"type": "string", "description": "Genre to search for"},
					"limit": map[string]any{"type": "integer", "description": "Maximum results", "default": 20},
				},
				"required": []string{"genre"},
			},
			Handler: m.searchByGenre,
		},
		{
			Name:        "search_by_director",
			Description: "Find movies by director name",
			InputSchema: map[string]any{
				"type": "object",
				"properties": map[string]any{
					"director": map[string]any{"type": "string", "description": "Director name to search for"},
					"limit":    map[string]any{"type": "integer", "description": "Maximum results", "default": 20},
				},
				"required": []string{"director"},
			},
			Handler: m.searchByDirector,
		},
		{
			Name:        "search_by_year_range",
			Description: "Find movies within a specific year range",
			InputSchema: map[string]any{
				"type": "object",
				"properties": map[string]any{
					"start_year": map[string]any{"type": "integer", "description": "Starting year"},
					"end_year":   map[string]any{"type": "integer", "description": "Ending year"},
					"limit":      map[string]any{"type": "integer", "description": "Maximum results", "default": 30},
				},
				"required": []string{"start_year", "end_year"},
			},
			Handler: m.searchByYearRange,
		},
		{
			Name:        "get_all_genres",
			Description: "Get all available genres in the library",
			InputSchema: map[string]any{"type": "object", "properties": map[string]any{}},
			Handler:     m.allGenres,
		},
		{
			Name:        "get_all_directors",
			Description: "Get all directors in the library",
			InputSchema: map[string]any{"type": "object", "properties": map[string]any{}},
			Handler:     m.allDirectors,
		},
		{
			Name:        "get_recent_movies",
			Description: "Get recently added movies",
			InputSchema: map[string]any{
				"type": "object",
				"properties": map[string]any{
					"limit": map[string]any{"type": "integer", "description": "Maximum results", "default": 10},
				},
			},
			Handler: m.recentMovies,
		},
		{
			Name:        "get_movie_details",
			Description: "Get full metadata for a single movie, including cast",
			InputSchema: map[string]any{
				"type": "object",
				"properties": map[string]any{
					"title": map[string]any{"type": "string", "description": "Movie title to look up"},
				},
				"required": []string{"title"},
			},
			Handler: m.movieDetails,
		},
		{
			Name:        "search_by_actor",
			Description: "Find movies featuring a specific actor",
			InputSchema: map[string]any{
				"type": "object",
				"properties": map[string]any{
					"actor_name": map[string]any{"type": "string", "description": "Actor name to search for"},
					"limit":      map[string]any{"type": "integer", "description": "Maximum results", "default": 20},
				},
				"required": []string{"actor_name"},
			},
			Handler: m.searchByActor,
		},
		{
			Name:        "find_similar_by_metadata",
			Description: "Find movies similar to a reference movie by shared genres, directors, actors, and decade",
			InputSchema: map[string]any{
				"type": "object",
				"properties": map[string]any{
					"reference_movie": map[string]any{"type": "string", "description": "Title of the movie to compare against"},
					"similarity_factors": map[string]any{
						"type":        "array",
						"items":       map[string]any{"type": "string", "enum": []string{"genre", "director", "actor", "decade"}},
						"description": "Factors to score on (default: all)",
					},
				},
				"required": []string{"reference_movie"},
			},
			Handler: m.findSimilar,
		},
		{
			Name:        "search_multi_criteria",
			Description: "Search movies matching every provided criterion: genres, directors, actors, year range, minimum rating",
			InputSchema: map[string]any{
				"type": "object",
				"properties": map[string]any{
					"genres":     map[string]any{"type": "array", "items": map[string]any{"type": "string"}, "description": "Genres the movie must have"},
					"directors":  map[string]any{"type": "array", "items": map[string]any{"type": "string"}, "description": "Directors the movie must have"},
					"actors":     map[string]any{"type": "array", "items": map[string]any{"type": "string"}, "description": "Actors the movie must feature"},
					"year_range": map[string]any{"type": "array", "items": map[string]any{"type": "integer"}, "description": "Inclusive [start_year, end_year]"},
					"min_rating": map[string]any{"type": "number", "description": "Minimum rating"},
					"limit":      map[string]any{"type": "integer", "description": "Maximum results", "default": 20},
				},
			},
			Handler: m.searchMultiCriteria,
		},
		{
			Name:        "get_genre_combinations",
			Description: "Group movies by their full genre combination and rank combinations by size",
			InputSchema: map[string]any{
				"type": "object",
				"properties": map[string]any{
					"limit": map[string]any{"type": "integer", "description": "Maximum combinations to return", "default": 10},
				},
			},
			Handler: m.genreCombinations,
		},
	}

	for _, tool := range register {
		if err := registry.Register(tool); err != nil {
			return err
		}
	}
	return nil
}

// --- get_library_stats ---

type nameCount struct {
	Name  string `json:"name"`
	Count int    `json:"count"`
}

// counter accumulates tag counts while remembering first-encounter order so
// ties rank stably.
type counter struct {
	counts map[string]int
	order  []string
}

func newCounter() *counter {
	return &counter{counts: make(map[string]int)}
}

func (c *counter) add(key string) {
	if _, seen := c.counts[key]; !seen {
		c.order = append(c.order, key)
	}
	c.counts[key]++
}

func (c *counter) top(n int) []nameCount {
	ranked := make([]nameCount, len(c.order))
	for i, key := range c.order {
		ranked[i] = nameCount{Name: key, Count: c.counts[key]}
	}
	sort.SliceStable(ranked, func(i, j int) bool {
		return ranked[i].Count > ranked[j].Count
	})
	if len(ranked) > n {
		ranked = ranked[:n]
	}
	return ranked
}

func (m *Movies) libraryStats(json.RawMessage) (any, error) {
	movies, err := m.allMovies()
	if err != nil {
		return errorf("%s", err), nil
	}

	decades := make(map[string]int)
	genres := newCounter()
	directors := newCounter()

	for _, movie := range movies {
		if movie.Year != 0 {
			decades[decadeOf(movie.Year)]++
		}
		for _, genre := range movie.Genres {
			genres.add(genre)
		}
		for _, director := range movie.Directors {
			directors.add(director)
		}
	}

	return map[string]any{
		"total_movies":  len(movies),
		"decades":       decades,
		"top_genres":    genres.top(10),
		"top_directors": directors.top(10),
	}, nil
}

func decadeOf(year int) string {
	return fmt.Sprintf("%ds", year/10*10)
}

// --- list_all_movies ---

func (m *Movies) listAllMovies(args json.RawMessage) (any, error) {
	in := struct {
		Limit  int `json:"limit"`
		Offset int `json:"offset"`
	}{Limit: 100}
	if err := decodeArgs(args, &in); err != nil {
		return nil, err
	}

	movies, err := m.allMovies()
	if err != nil {
		return errorf("%s", err), nil
	}

	total := len(movies)
	window := paginate(movies, in.Offset, in.Limit)

	return map[string]any{
		"movies":   summarizeAll(window, 150),
		"total":    total,
		"offset":   in.Offset,
		"limit":    in.Limit,
		"has_more": in.Offset+in.Limit < total,
	}, nil
}

func paginate(items []catalog.Item, offset, limit int) []catalog.Item {
	if offset < 0 {
		offset = 0
	}
	if limit < 0 {
		limit = 0
	}
	if offset >= len(items) {
		return nil
	}
	end := offset + limit
	if end > len(items) {
		end = len(items)
	}
	return items[offset:end]
}

// --- search_movies ---

func (m *Movies) searchMovies(args json.RawMessage) (any, error) {
	in := struct {
		Query string `json:"query"`
		Limit int    `json:"limit"`
	}{Limit: 10}
	if err := decodeArgs(args, &in); err != nil {
		return nil, err
	}
	if in.Query == "" {
		return errorf("query is required"), nil
	}

	results, err := m.search(catalog.Filter{Title: in.Query, Limit: in.Limit})
	if err != nil {
		return errorf("%s", err), nil
	}

	return map[string]any{
		"movies": summarizeAll(results, 200),
		"total":  len(results),
	}, nil
}

// --- search_by_genre ---

func (m *Movies) searchByGenre(args json.RawMessage) (any, error) {
	in := struct {
		Genre string `json:"genre"`
		Limit int    `json:"limit"`
	}{Limit: 20}
	if err := decodeArgs(args, &in); err != nil {
		return nil, err
	}
	if in.Genre == "" {
		return errorf("genre is required"), nil
	}

	results, err := m.search(catalog.Filter{Genre: in.Genre, Limit: in.Limit})
	if err != nil {
		return errorf("%s", err), nil
	}

	return map[string]any{
		"movies": summarizeAll(results, 0),
		"genre":  in.Genre,
		"total":  len(results),
	}, nil
}

// --- search_by_director ---

func (m *Movies) searchByDirector(args json.RawMessage) (any, error) {
	in := struct {
		Director string `json:"director"`
		Limit    int    `json:"limit"`
	}{Limit: 20}
	if err := decodeArgs(args, &in); err != nil {
		return nil, err
	}
	if in.Director == "" {
		return errorf("director is required"), nil
	}

	results, err := m.search(catalog.Filter{Director: in.Director, Limit: in.Limit})
	if err != nil {
		return errorf("%s", err), nil
	}

	return map[string]any{
		"movies":   summarizeAll(results, 0),
		"director": in.Director,
		"total":    len(results),
	}, nil
}

// --- search_by_year_range ---

func (m *Movies) searchByYearRange(args json.RawMessage) (any, error) {
	in := struct {
		StartYear *int `json:"start_year"`
		EndYear   *int `json:"end_year"`
		Limit     int  `json:"limit"`
	}{Limit: 30}
	if err := decodeArgs(args, &in); err != nil {
		return nil, err
	}
	if in.StartYear == nil || in.EndYear == nil {
		return errorf("start_year and end_year are required"), nil
	}

	movies, err := m.allMovies()
	if err != nil {
		return errorf("%s", err), nil
	}

	var matched []movieSummary
	for _, movie := range movies {
		if movie.Year == 0 || movie.Year < *in.StartYear || movie.Year > *in.EndYear {
			continue
		}
		matched = append(matched, summarize(movie, 0))
		if len(matched) >= in.Limit {
			break
		}
	}

	return map[string]any{
		"movies":     matched,
		"year_range": fmt.Sprintf("%d-%d", *in.StartYear, *in.EndYear),
		"total":      len(matched),
	}, nil
}

// --- get_all_genres / get_all_directors ---

func (m *Movies) allGenres(json.RawMessage) (any, error) {
	movies, err := m.allMovies()
	if err != nil {
		return errorf("%s", err), nil
	}
	return map[string]any{"genres": collectTags(movies, func(i catalog.Item) []string { return i.Genres })}, nil
}

func (m *Movies) allDirectors(json.RawMessage) (any, error) {
	movies, err := m.allMovies()
	if err != nil {
		return errorf("%s", err), nil
	}
	return map[string]any{"directors": collectTags(movies, func(i catalog.Item) []string { return i.Directors })}, nil
}

func collectTags(items []catalog.Item, tags func(catalog.Item) []string) []string {
	seen := make(map[string]struct{})
	for _, item := range items {
		for _, tag := range tags(item) {
			seen[tag] = struct{}{}
		}
	}
	sorted := make([]string, 0, len(seen))
	for tag := range seen {
		sorted = append(sorted, tag)
	}
	sort.Strings(sorted)
	return sorted
}

// --- get_recent_movies ---

func (m *Movies) recentMovies(args json.RawMessage) (any, error) {
	in := struct {
		Limit int `json:"limit"`
	}{Limit: 10}
	if err := decodeArgs(args, &in); err != nil {
		return nil, err
	}

	collection, err := m.library.Movies()
	if err != nil {
		return errorf("%s", err), nil
	}
	recent, err := collection.RecentlyAdded(in.Limit)
	if err != nil {
		return errorf("%s", err), nil
	}

	summaries := make([]movieSummary, len(recent))
	for i, movie := range recent {
		summaries[i] = summarize(movie, 150)
		if !movie.AddedAt.IsZero() {
			summaries[i].AddedAt = movie.AddedAt.Format(time.RFC3339)
		}
	}
	return map[string]any{"recent_movies": summaries}, nil
}

// --- get_movie_details ---

func (m *Movies) movieDetails(args json.RawMessage) (any, error) {
	in := struct {
		Title string `json:"title"`
	}{}
	if err := decodeArgs(args, &in); err != nil {
		return nil, err
	}
	if in.Title == "" {
		return errorf("title is required"), nil
	}

	results, err := m.search(catalog.Filter{Title: in.Title, Limit: 1})
	if err != nil {
		return errorf("%s", err), nil
	}
	if len(results) == 0 {
		return errorf("Movie '%s' not found", in.Title), nil
	}

	movie := results[0]
	cast := movie.Cast
	if len(cast) > 10 {
		cast = cast[:10]
	}

	details := map[string]any{
		"title":          movie.Title,
		"year":           movie.Year,
		"rating":         movie.Rating,
		"genres":         movie.Genres,
		"directors":      movie.Directors,
		"writers":        movie.Writers,
		"cast":           cast,
		"summary":        movie.Summary,
		"studio":         movie.Studio,
		"content_rating": movie.ContentRating,
		"countries":      movie.Countries,
	}
	if !movie.AddedAt.IsZero() {
		details["added_at"] = movie.AddedAt.Format(time.RFC3339)
	}
	return details, nil
}

// --- search_by_actor ---

func (m *Movies) searchByActor(args json.RawMessage) (any, error) {
	in := struct {
		ActorName string `json:"actor_name"`
		Limit     int    `json:"limit"`
	}{Limit: 20}
	if err := decodeArgs(args, &in); err != nil {
		return nil, err
	}
	if in.ActorName == "" {
		return errorf("actor_name is required"), nil
	}

	results, err := m.search(catalog.Filter{Actor: in.ActorName, Limit: in.Limit})
	if err != nil {
		return errorf("%s", err), nil
	}

	return map[string]any{
		"movies": summarizeAll(results, 0),
		"actor":  in.ActorName,
		"total":  len(results),
	}, nil
}

// --- shared fetch helpers ---

func (m *Movies) allMovies() ([]catalog.Item, error) {
	collection, err := m.library.Movies()
	if err != nil {
		return nil, err
	}
	return collection.All()
}

func (m *Movies) search(filter catalog.Filter) ([]catalog.Item, error) {
	collection, err := m.library.Movies()
	if err != nil {
		return nil, err
	}
	return collection.Search(filter)
}
