package catalog

import (
	"errors"
	"time"
)

// Kind selects a library section by media type.
type Kind string

const (
	KindMovie Kind = "movie"
	KindShow  Kind = "show"
)

var (
	// ErrSectionNotFound means the Plex library has no section of the
	// requested kind.
	ErrSectionNotFound = errors.New("no matching library section")

	// ErrUnreachable means the Plex server could not be contacted.
	ErrUnreachable = errors.New("plex server unreachable")
)

// CastMember is an actor credit with its role annotation.
type CastMember struct {
	Name string `json:"name"`
	Role string `json:"role,omitempty"`
}

// Item is a read-only view of one catalog entry. A zero Year means the
// source reported none.
type Item struct {
	Title         string
	Year          int
	Rating        float64
	Genres        []string
	Directors     []string
	Writers       []string
	Cast          []CastMember
	Summary       string
	Studio        string
	ContentRating string
	Countries     []string
	AddedAt       time.Time
}

// Filter is an equality/substring predicate for Collection.Search. Title is
// pushed down to the source; tag fields match case-insensitively. Zero
// values are ignored. Limit of 0 means no cap.
type Filter struct {
	Title    string
	Genre    string
	Director string
	Actor    string
	Limit    int
}

// Collection is a queryable set of items of one kind.
type Collection interface {
	// All materializes the full collection in the source's native order.
	All() ([]Item, error)

	// Search returns items matching the filter, capped at Filter.Limit.
	Search(Filter) ([]Item, error)

	// RecentlyAdded returns up to max items, newest first.
	RecentlyAdded(max int) ([]Item, error)
}
