package catalog

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"sync"
	"time"

	"code.cloudfoundry.org/lager/v3"
)

// Client wraps connectivity to a Plex server. It connects at construction
// and, if the connection is later lost, retries once per access.
type Client struct {
	logger  lager.Logger
	baseURL string
	token   string
	http    *http.Client

	mu        sync.Mutex
	name      string
	connected bool
}

// NewClient connects to the Plex server at baseURL and verifies the token by
// fetching the server identity.
func NewClient(logger lager.Logger, baseURL, token string) (*Client, error) {
	c := &Client{
		logger:  logger.Session("catalog"),
		baseURL: strings.TrimRight(baseURL, "/"),
		token:   token,
		http:    &http.Client{Timeout: 30 * time.Second},
	}
	if err := c.connect(); err != nil {
		return nil, err
	}
	return c, nil
}

func (c *Client) connect() error {
	var container mediaContainer
	if err := c.getJSON("/", nil, &container); err != nil {
		return err
	}
	c.mu.Lock()
	c.name = container.MediaContainer.FriendlyName
	c.connected = true
	c.mu.Unlock()
	c.logger.Info("connected", lager.Data{"server": container.MediaContainer.FriendlyName})
	return nil
}

// ensureConnected performs the single lazy reconnect if a prior request
// marked the connection as lost.
func (c *Client) ensureConnected() error {
	c.mu.Lock()
	connected := c.connected
	c.mu.Unlock()
	if connected {
		return nil
	}
	return c.connect()
}

// ServerName returns the Plex server's friendly name as of the last
// successful connection.
func (c *Client) ServerName() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.name
}

// Movies returns the first movie library section.
func (c *Client) Movies() (Collection, error) {
	return c.Section(KindMovie)
}

// Shows returns the first TV show library section.
func (c *Client) Shows() (Collection, error) {
	return c.Section(KindShow)
}

// Section returns the first library section of the given kind.
func (c *Client) Section(kind Kind) (Collection, error) {
	if err := c.ensureConnected(); err != nil {
		return nil, err
	}
	var container mediaContainer
	if err := c.getJSON("/library/sections", nil, &container); err != nil {
		return nil, err
	}
	for _, dir := range container.MediaContainer.Directory {
		if dir.Type == string(kind) {
			return &section{client: c, key: dir.Key}, nil
		}
	}
	return nil, fmt.Errorf("%w: kind %q", ErrSectionNotFound, kind)
}

func (c *Client) getJSON(path string, query url.Values, out any) error {
	req, err := http.NewRequest("GET", c.baseURL+path, nil)
	if err != nil {
		return err
	}
	if query != nil {
		req.URL.RawQuery = query.Encode()
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("X-Plex-Token", c.token)

	resp, err := c.http.Do(req)
	if err != nil {
		c.mu.Lock()
		c.connected = false
		c.mu.Unlock()
		return fmt.Errorf("%w: %s", ErrUnreachable, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("plex returned status %d for %s", resp.StatusCode, path)
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decoding plex response for %s: %w", path, err)
	}
	return nil
}

// section is a Collection backed by one Plex library section.
type section struct {
	client *Client
	key    string
}

func (s *section) All() ([]Item, error) {
	if err := s.client.ensureConnected(); err != nil {
		return nil, err
	}
	var container mediaContainer
	if err := s.client.getJSON("/library/sections/"+s.key+"/all", nil, &container); err != nil {
		return nil, err
	}
	return toItems(container.MediaContainer.Metadata), nil
}

func (s *section) Search(f Filter) ([]Item, error) {
	if err := s.client.ensureConnected(); err != nil {
		return nil, err
	}

	// Title substring matching is the only predicate Plex pushes down for
	// us; tag filters are applied over the materialized collection.
	if f.Title != "" {
		query := url.Values{"title": {f.Title}}
		if f.Limit > 0 {
			query.Set("X-Plex-Container-Start", "0")
			query.Set("X-Plex-Container-Size", strconv.Itoa(f.Limit))
		}
		var container mediaContainer
		if err := s.client.getJSON("/library/sections/"+s.key+"/all", query, &container); err != nil {
			return nil, err
		}
		items := toItems(container.MediaContainer.Metadata)
		if f.Limit > 0 && len(items) > f.Limit {
			items = items[:f.Limit]
		}
		return items, nil
	}

	all, err := s.All()
	if err != nil {
		return nil, err
	}
	var matched []Item
	for _, item := range all {
		if f.Genre != "" && !containsTagFold(item.Genres, f.Genre) {
			continue
		}
		if f.Director != "" && !containsTagFold(item.Directors, f.Director) {
			continue
		}
		if f.Actor != "" && !castContainsFold(item.Cast, f.Actor) {
			continue
		}
		matched = append(matched, item)
		if f.Limit > 0 && len(matched) >= f.Limit {
			break
		}
	}
	return matched, nil
}

func (s *section) RecentlyAdded(max int) ([]Item, error) {
	if err := s.client.ensureConnected(); err != nil {
		return nil, err
	}
	query := url.Values{}
	if max > 0 {
		query.Set("X-Plex-Container-Start", "0")
		query.Set("X-Plex-Container-Size", strconv.Itoa(max))
	}
	var container mediaContainer
	if err := s.client.getJSON("/library/sections/"+s.key+"/recentlyAdded", query, &container); err != nil {
		return nil, err
	}
	items := toItems(container.MediaContainer.Metadata)
	if max > 0 && len(items) > max {
		items = items[:max]
	}
	return items, nil
}

func containsTagFold(tags []string, want string) bool {
	for _, tag := range tags {
		if strings.Contains(strings.ToLower(tag), strings.ToLower(want)) {
			return true
		}
	}
	return false
}

func castContainsFold(cast []CastMember, want string) bool {
	for _, member := range cast {
		if strings.Contains(strings.ToLower(member.Name), strings.ToLower(want)) {
			return true
		}
	}
	return false
}

// Plex wire format (Accept: application/json).

type mediaContainer struct {
	MediaContainer struct {
		FriendlyName string      `json:"friendlyName"`
		Directory    []directory `json:"Directory"`
		Metadata     []metadata  `json:"Metadata"`
	} `json:"MediaContainer"`
}

type directory struct {
	Key   string `json:"key"`
	Type  string `json:"type"`
	Title string `json:"title"`
}

type mediaTag struct {
	Tag  string `json:"tag"`
	Role string `json:"role,omitempty"`
}

type metadata struct {
	Title         string     `json:"title"`
	Year          int        `json:"year"`
	Rating        float64    `json:"rating"`
	Summary       string     `json:"summary"`
	Studio        string     `json:"studio"`
	ContentRating string     `json:"contentRating"`
	AddedAt       int64      `json:"addedAt"`
	Genre         []mediaTag `json:"Genre"`
	Director      []mediaTag `json:"Director"`
	Writer        []mediaTag `json:"Writer"`
	Role          []mediaTag `json:"Role"`
	Country       []mediaTag `json:"Country"`
}

func toItems(entries []metadata) []Item {
	items := make([]Item, len(entries))
	for i, m := range entries {
		item := Item{
			Title:         m.Title,
			Year:          m.Year,
			Rating:        m.Rating,
			Genres:        tagsOf(m.Genre),
			Directors:     tagsOf(m.Director),
			Writers:       tagsOf(m.Writer),
			Summary:       m.Summary,
			Studio:        m.Studio,
			ContentRating: m.ContentRating,
			Countries:     tagsOf(m.Country),
		}
		if m.AddedAt > 0 {
			item.AddedAt = time.Unix(m.AddedAt, 0).UTC()
		}
		for _, role := range m.Role {
			item.Cast = append(item.Cast, CastMember{Name: role.Tag, Role: role.Role})
		}
		items[i] = item
	}
	return items
}

func tagsOf(tags []mediaTag) []string {
	if len(tags) == 0 {
		return nil
	}
	out := make([]string, len(tags))
	for i, t := range tags {
		out[i] = t.Tag
	}
	return out
}
