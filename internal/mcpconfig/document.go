// Package mcpconfig models the resolved launch configuration that editors
// read from .cursor/mcp.json and provides the one writer every producer uses.
package mcpconfig

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"sort"

	"github.com/morikuni/failure/v2"
	"github.com/samber/lo"

	"aistack/internal/errcode"
)

const (
	// ConfigDir is the editor directory inside a workspace.
	ConfigDir = ".cursor"
	// ConfigFile is the launch configuration file name.
	ConfigFile = "mcp.json"
	// StatusFile records which template was applied last.
	StatusFile = "ACTIVE_MODE.txt"
)

// Server is one launch entry. Env and Disabled are omitted when empty.
type Server struct {
	Command  string            `json:"command"`
	Args     []string          `json:"args"`
	Env      map[string]string `json:"env,omitempty"`
	Disabled bool              `json:"disabled,omitempty"`
}

// Document is the top-level object of mcp.json.
type Document struct {
	MCPServers map[string]Server `json:"mcpServers"`
}

// New returns an empty document.
func New() Document {
	return Document{MCPServers: map[string]Server{}}
}

// PathFor returns <workspace>/.cursor/mcp.json.
func PathFor(workspace string) string {
	return filepath.Join(workspace, ConfigDir, ConfigFile)
}

// Set adds or replaces the server stored under name.
func (d *Document) Set(name string, s Server) {
	if d.MCPServers == nil {
		d.MCPServers = map[string]Server{}
	}
	d.MCPServers[name] = s
}

// Has reports whether a server named name exists.
func (d Document) Has(name string) bool {
	_, ok := d.MCPServers[name]
	return ok
}

// Remove deletes the server named name and reports whether it was present.
func (d *Document) Remove(name string) bool {
	if !d.Has(name) {
		return false
	}
	delete(d.MCPServers, name)
	return true
}

// Names returns the server names in sorted order.
func (d Document) Names() []string {
	names := lo.Keys(d.MCPServers)
	sort.Strings(names)
	return names
}

// Marshal serializes the document with two-space indentation. Map keys are
// sorted so equal documents always produce equal bytes.
func (d Document) Marshal() ([]byte, error) {
	out := Document{MCPServers: make(map[string]Server, len(d.MCPServers))}
	for name, s := range d.MCPServers {
		if s.Args == nil {
			s.Args = []string{}
		}
		out.MCPServers[name] = s
	}

	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", "  ")
	if err := enc.Encode(out); err != nil {
		return nil, failure.Wrap(err, failure.Message("failed to encode configuration"))
	}
	return buf.Bytes(), nil
}

// Raw returns the document as a generic JSON object, the form the validator inspects.
func (d Document) Raw() (map[string]any, error) {
	data, err := d.Marshal()
	if err != nil {
		return nil, err
	}
	return Parse(data)
}

// Parse decodes data into a generic JSON object.
func Parse(data []byte) (map[string]any, error) {
	var raw map[string]any
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, failure.New(errcode.StructuralError,
			failure.Message("configuration is not a JSON object: "+err.Error()))
	}
	return raw, nil
}

// Decode parses data into a Document.
func Decode(data []byte) (Document, error) {
	var doc Document
	if err := json.Unmarshal(data, &doc); err != nil {
		return Document{}, failure.New(errcode.StructuralError,
			failure.Message("invalid configuration: "+err.Error()))
	}
	if doc.MCPServers == nil {
		doc.MCPServers = map[string]Server{}
	}
	return doc, nil
}

// Read loads the document at path. A missing file is a NotFound error.
func Read(path string) (Document, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return Document{}, failure.New(errcode.NotFound,
				failure.Message("configuration file not found: "+path),
				failure.Context{"path": path})
		}
		return Document{}, failure.Wrap(err, failure.Context{"path": path})
	}
	doc, err := Decode(data)
	if err != nil {
		return Document{}, failure.Wrap(err, failure.Context{"path": path})
	}
	return doc, nil
}
