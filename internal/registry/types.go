// Package registry discovers community MCP servers through the public
// registry API and installs them into a workspace's launch configuration.
package registry

import (
	"path"
	"strings"
)

// Runtimes understood by the installer.
const (
	RuntimeNode   = "node"
	RuntimePython = "python"
	RuntimeDocker = "docker"
)

// Packages lists where a server can be fetched from, per ecosystem.
type Packages struct {
	Npm    string `json:"npm,omitempty"`
	Pypi   string `json:"pypi,omitempty"`
	Docker string `json:"docker,omitempty"`
}

// Server is the registry metadata for one community server.
type Server struct {
	ID          string   `json:"id"`
	Name        string   `json:"name"`
	Description string   `json:"description,omitempty"`
	Version     string   `json:"version,omitempty"`
	Runtime     string   `json:"runtime,omitempty"`
	Command     string   `json:"command,omitempty"`
	Repository  string   `json:"repository,omitempty"`
	Packages    Packages `json:"packages"`
	Tags        []string `json:"tags,omitempty"`
}

// ConfigName is the key the server is stored under in mcp.json: the last
// segment of its id.
func (s Server) ConfigName() string {
	return path.Base(strings.TrimRight(s.ID, "/"))
}

// RuntimeOrDefault returns Runtime, or node when it is empty.
func (s Server) RuntimeOrDefault() string {
	if s.Runtime == "" {
		return RuntimeNode
	}
	return strings.ToLower(s.Runtime)
}

// Query filters ListServers.
type Query struct {
	Search string
	// Limit caps the number of servers returned. Zero means DefaultLimit.
	Limit int
}

type listResponse struct {
	Servers  []Server `json:"servers"`
	Metadata struct {
		NextCursor string `json:"next_cursor"`
		Count      int    `json:"count"`
	} `json:"metadata"`
}
