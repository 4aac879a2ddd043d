package tools

import (
	"code.cloudfoundry.org/lager/v3"

	"github.com/plexmcp/plexmcp/internal/catalog"
	"github.com/plexmcp/plexmcp/internal/mcp"
)

// ShowLibrary provides the TV show collection.
type ShowLibrary interface {
	Shows() (catalog.Collection, error)
}

// TV is the TV show tool group. No tools are registered yet.
type TV struct {
	logger  lager.Logger
	library ShowLibrary
}

func NewTV(logger lager.Logger, library ShowLibrary) *TV {
	return &TV{logger: logger.Session("tv-tools"), library: library}
}

// RegisterTools adds the TV tool group to the registry.
//
// TODO: add show tools (list_all_shows, search_shows, get_show_seasons,
// get_recent_episodes) once the show metadata mapping is settled.
func (t *TV) RegisterTools(registry *mcp.Registry) error {
	return nil
}
