package tools

import (
	"encoding/json"
	"fmt"
	"sort"
	"strings"

	"github.com/plexmcp/plexmcp/internal/catalog"
)

// Similarity weights: a shared genre counts 2, a shared director 3, a shared
// actor 1, landing in the same decade 1.
const (
	genreWeight    = 2
	directorWeight = 3
	actorWeight    = 1
	decadeWeight   = 1
)

const maxSimilarResults = 20

// reason text lists at most this many shared names; the score still counts
// them all.
const maxReasonNames = 3

type similarMovie struct {
	Title   string   `json:"title"`
	Year    int      `json:"year,omitempty"`
	Rating  float64  `json:"rating,omitempty"`
	Score   int      `json:"similarity_score"`
	Reasons []string `json:"reasons"`
}

func (m *Movies) findSimilar(args json.RawMessage) (any, error) {
	in := struct {
		ReferenceMovie    string   `json:"reference_movie"`
		SimilarityFactors []string `json:"similarity_factors"`
	}{}
	if err := decodeArgs(args, &in); err != nil {
		return nil, err
	}
	if in.ReferenceMovie == "" {
		return errorf("reference_movie is required"), nil
	}

	factors := factorSet(in.SimilarityFactors)

	matches, err := m.search(catalog.Filter{Title: in.ReferenceMovie, Limit: 1})
	if err != nil {
		return errorf("%s", err), nil
	}
	if len(matches) == 0 {
		return errorf("Movie '%s' not found", in.ReferenceMovie), nil
	}
	reference := matches[0]

	movies, err := m.allMovies()
	if err != nil {
		return errorf("%s", err), nil
	}

	var scored []similarMovie
	for _, candidate := range movies {
		if strings.EqualFold(candidate.Title, reference.Title) {
			continue
		}
		score, reasons := scoreSimilarity(reference, candidate, factors)
		if score <= 0 {
			continue
		}
		scored = append(scored, similarMovie{
			Title:   candidate.Title,
			Year:    candidate.Year,
			Rating:  candidate.Rating,
			Score:   score,
			Reasons: reasons,
		})
	}

	sort.SliceStable(scored, func(i, j int) bool {
		return scored[i].Score > scored[j].Score
	})
	if len(scored) > maxSimilarResults {
		scored = scored[:maxSimilarResults]
	}

	return map[string]any{
		"reference":      reference.Title,
		"similar_movies": scored,
		"total":          len(scored),
	}, nil
}

func factorSet(factors []string) map[string]bool {
	if len(factors) == 0 {
		return map[string]bool{"genre": true, "director": true, "actor": true, "decade": true}
	}
	set := make(map[string]bool, len(factors))
	for _, factor := range factors {
		set[strings.ToLower(factor)] = true
	}
	return set
}

func scoreSimilarity(reference, candidate catalog.Item, factors map[string]bool) (int, []string) {
	score := 0
	var reasons []string

	if factors["genre"] {
		shared := sharedFold(reference.Genres, candidate.Genres)
		if len(shared) > 0 {
			score += genreWeight * len(shared)
			reasons = append(reasons, fmt.Sprintf("shares %d genre(s): %s",
				len(shared), strings.Join(capNames(shared), ", ")))
		}
	}
	if factors["director"] {
		shared := sharedFold(reference.Directors, candidate.Directors)
		if len(shared) > 0 {
			score += directorWeight * len(shared)
			reasons = append(reasons, fmt.Sprintf("shares %d director(s): %s",
				len(shared), strings.Join(capNames(shared), ", ")))
		}
	}
	if factors["actor"] {
		shared := sharedFold(castNames(reference.Cast), castNames(candidate.Cast))
		if len(shared) > 0 {
			score += actorWeight * len(shared)
			reasons = append(reasons, fmt.Sprintf("shares %d actor(s): %s",
				len(shared), strings.Join(capNames(shared), ", ")))
		}
	}
	if factors["decade"] && reference.Year != 0 && candidate.Year != 0 &&
		reference.Year/10 == candidate.Year/10 {
		score += decadeWeight
		reasons = append(reasons, fmt.Sprintf("same decade (%s)", decadeOf(candidate.Year)))
	}

	return score, reasons
}

// sharedFold returns the values of b present in a, case-insensitively,
// preserving b's order.
func sharedFold(a, b []string) []string {
	lookup := make(map[string]struct{}, len(a))
	for _, v := range a {
		lookup[strings.ToLower(v)] = struct{}{}
	}
	var shared []string
	for _, v := range b {
		if _, ok := lookup[strings.ToLower(v)]; ok {
			shared = append(shared, v)
		}
	}
	return shared
}

func capNames(names []string) []string {
	if len(names) > maxReasonNames {
		return names[:maxReasonNames]
	}
	return names
}

func castNames(cast []catalog.CastMember) []string {
	names := make([]string, len(cast))
	for i, member := range cast {
		names[i] = member.Name
	}
	return names
}

// --- search_multi_criteria ---

func (m *Movies) searchMultiCriteria(args json.RawMessage) (any, error) {
	in := struct {
		Genres    []string `json:"genres"`
		Directors []string `json:"directors"`
		Actors    []string `json:"actors"`
		YearRange []int    `json:"year_range"`
		MinRating *float64 `json:"min_rating"`
		Limit     int      `json:"limit"`
	}{Limit: 20}
	if err := decodeArgs(args, &in); err != nil {
		return nil, err
	}
	if len(in.YearRange) != 0 && len(in.YearRange) != 2 {
		return errorf("year_range must be [start_year, end_year]"), nil
	}

	movies, err := m.allMovies()
	if err != nil {
		return errorf("%s", err), nil
	}

	var matched []movieSummary
	for _, movie := range movies {
		if !matchesCriteria(movie, in.Genres, in.Directors, in.Actors, in.YearRange, in.MinRating) {
			continue
		}
		matched = append(matched, summarize(movie, 0))
		if len(matched) >= in.Limit {
			break
		}
	}

	criteria := map[string]any{}
	if len(in.Genres) > 0 {
		criteria["genres"] = in.Genres
	}
	if len(in.Directors) > 0 {
		criteria["directors"] = in.Directors
	}
	if len(in.Actors) > 0 {
		criteria["actors"] = in.Actors
	}
	if len(in.YearRange) == 2 {
		criteria["year_range"] = in.YearRange
	}
	if in.MinRating != nil {
		criteria["min_rating"] = *in.MinRating
	}

	return map[string]any{
		"movies":   matched,
		"criteria": criteria,
		"total":    len(matched),
	}, nil
}

// matchesCriteria applies every provided criterion conjunctively; list
// criteria require each listed value to be contained (case-insensitively)
// in the movie's tags.
func matchesCriteria(movie catalog.Item, genres, directors, actors []string, yearRange []int, minRating *float64) bool {
	for _, genre := range genres {
		if !containsFold(movie.Genres, genre) {
			return false
		}
	}
	for _, director := range directors {
		if !containsFold(movie.Directors, director) {
			return false
		}
	}
	for _, actor := range actors {
		if !containsFold(castNames(movie.Cast), actor) {
			return false
		}
	}
	if len(yearRange) == 2 {
		if movie.Year == 0 || movie.Year < yearRange[0] || movie.Year > yearRange[1] {
			return false
		}
	}
	if minRating != nil && movie.Rating < *minRating {
		return false
	}
	return true
}

func containsFold(tags []string, want string) bool {
	for _, tag := range tags {
		if strings.Contains(strings.ToLower(tag), strings.ToLower(want)) {
			return true
		}
	}
	return false
}

// --- get_genre_combinations ---

type genreCombination struct {
	Genres   string   `json:"genres"`
	Count    int      `json:"count"`
	Examples []string `json:"examples"`
}

const maxCombinationExamples = 5

func (m *Movies) genreCombinations(args json.RawMessage) (any, error) {
	in := struct {
		Limit int `json:"limit"`
	}{Limit: 10}
	if err := decodeArgs(args, &in); err != nil {
		return nil, err
	}

	movies, err := m.allMovies()
	if err != nil {
		return errorf("%s", err), nil
	}

	buckets := make(map[string]*genreCombination)
	var order []string
	for _, movie := range movies {
		if len(movie.Genres) < 2 {
			continue
		}
		key := combinationKey(movie.Genres)
		bucket, seen := buckets[key]
		if !seen {
			bucket = &genreCombination{Genres: key}
			buckets[key] = bucket
			order = append(order, key)
		}
		bucket.Count++
		if len(bucket.Examples) < maxCombinationExamples {
			bucket.Examples = append(bucket.Examples, movie.Title)
		}
	}

	combinations := make([]genreCombination, len(order))
	for i, key := range order {
		combinations[i] = *buckets[key]
	}
	sort.SliceStable(combinations, func(i, j int) bool {
		return combinations[i].Count > combinations[j].Count
	})

	total := len(combinations)
	if len(combinations) > in.Limit {
		combinations = combinations[:in.Limit]
	}

	return map[string]any{
		"combinations": combinations,
		"total":        total,
	}, nil
}

// combinationKey normalizes a genre set so tag order does not matter.
func combinationKey(genres []string) string {
	sorted := make([]string, len(genres))
	copy(sorted, genres)
	sort.Strings(sorted)
	return strings.Join(sorted, " + ")
}
