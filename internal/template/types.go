package template

// ServerType selects how a server's placeholders are resolved.
type ServerType string

const (
	// Custom servers belong to the orchestration root and get full path resolution.
	Custom ServerType = "custom"
	// Community servers are third-party packages; only whole-argument
	// ${workspaceFolder} tokens are resolved, the editor handles the rest.
	Community ServerType = "community"
)

// Placeholder tokens recognised in template arguments.
const (
	WorkspaceToken = "${workspaceFolder}"
	RootDirName    = "AIStack-MCP"
	RelativeRoot   = "../" + RootDirName
	CompoundToken  = WorkspaceToken + "/" + RelativeRoot
)

// DefaultCustomCommand is used when a custom server omits its command.
const DefaultCustomCommand = "cmd"

// ServerConfig is the launch part of a ServerSpec.
type ServerConfig struct {
	Command string            `json:"command,omitempty"`
	Args    []string          `json:"args,omitempty"`
	Env     map[string]string `json:"env,omitempty"`
}

// ServerSpec is one server entry in a template.
type ServerSpec struct {
	Name        string        `json:"name"`
	Type        ServerType    `json:"type,omitempty"`
	Description string        `json:"description,omitempty"`
	Enabled     *bool         `json:"enabled,omitempty"`
	Config      *ServerConfig `json:"config,omitempty"`
	RequiresEnv []string      `json:"requires_env,omitempty"`
}

// IsEnabled reports the enabled flag, which defaults to true.
func (s ServerSpec) IsEnabled() bool {
	return s.Enabled == nil || *s.Enabled
}

// Template is a named, versioned set of servers loaded from <name>.json.
type Template struct {
	Name        string       `json:"name"`
	Description string       `json:"description"`
	Version     string       `json:"version,omitempty"`
	Author      string       `json:"author,omitempty"`
	Servers     []ServerSpec `json:"servers"`
}

// Summary is the listing entry for a template.
type Summary struct {
	// ID is the file stem used to load the template.
	ID          string `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description"`
	Version     string `json:"version"`
	Author      string `json:"author"`
	File        string `json:"file"`
}

// Overrides are name-matched partial server entries merged over a template.
type Overrides struct {
	Servers []map[string]any `json:"servers"`
}
