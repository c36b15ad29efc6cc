package template

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path"
	"sort"
	"strings"

	"github.com/bmatcuk/doublestar/v4"
	"github.com/mitchellh/mapstructure"
	"github.com/morikuni/failure/v2"

	"aistack/internal/errcode"
)

// MaxTemplateSize bounds the size of a template file.
const MaxTemplateSize = 1 << 20

const customDir = "custom"

// ListTemplates returns every top-level template sorted by name. Files that
// cannot be parsed are skipped with a warning.
func (e *Engine) ListTemplates() ([]Summary, error) {
	matches, err := doublestar.Glob(e.fsys, "*.json", doublestar.WithFilesOnly())
	if err != nil {
		return nil, failure.Wrap(err, failure.Message("failed to scan template store"))
	}

	summaries := make([]Summary, 0, len(matches))
	for _, file := range matches {
		id := strings.TrimSuffix(path.Base(file), ".json")
		if id == customDir {
			continue
		}

		raw, err := e.readRaw(file)
		if err != nil {
			e.logger.Warn("Failed to read template", "file", file, "error", errcode.Message(err))
			continue
		}

		summaries = append(summaries, Summary{
			ID:          id,
			Name:        stringOr(raw["name"], id),
			Description: stringOr(raw["description"], "No description"),
			Version:     stringOr(raw["version"], "unknown"),
			Author:      stringOr(raw["author"], "unknown"),
			File:        file,
		})
	}

	sort.SliceStable(summaries, func(i, j int) bool {
		return summaries[i].Name < summaries[j].Name
	})
	return summaries, nil
}

// LoadTemplate reads <name>.json from the store, falling back to custom/<name>.json.
func (e *Engine) LoadTemplate(name string) (*Template, error) {
	raw, err := e.loadRaw(name)
	if err != nil {
		return nil, err
	}
	return decodeTemplate(name, raw)
}

// loadRaw locates a template by name and returns it as a generic object.
func (e *Engine) loadRaw(name string) (map[string]any, error) {
	if name == "" || strings.ContainsAny(name, `/\`) || strings.Contains(name, "..") {
		return nil, failure.New(errcode.NotFound,
			failure.Message("Template not found: "+name),
			failure.Context{"template": name})
	}

	for _, candidate := range []string{name + ".json", path.Join(customDir, name+".json")} {
		raw, err := e.readRaw(candidate)
		if errors.Is(err, fs.ErrNotExist) {
			continue
		}
		if err != nil {
			return nil, failure.Wrap(err, failure.Context{"template": name})
		}
		return raw, nil
	}

	return nil, failure.New(errcode.NotFound,
		failure.Message("Template not found: "+name),
		failure.Context{"template": name})
}

func (e *Engine) readRaw(file string) (map[string]any, error) {
	info, err := fs.Stat(e.fsys, file)
	if err != nil {
		return nil, err
	}
	if info.IsDir() {
		return nil, fs.ErrNotExist
	}
	if info.Size() > MaxTemplateSize {
		return nil, failure.New(errcode.InvalidFormat,
			failure.Message(fmt.Sprintf("template %s is larger than %d bytes", file, MaxTemplateSize)))
	}

	data, err := fs.ReadFile(e.fsys, file)
	if err != nil {
		return nil, err
	}

	var raw map[string]any
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, failure.New(errcode.InvalidFormat,
			failure.Message("Invalid template JSON: "+err.Error()),
			failure.Context{"file": file})
	}
	return raw, nil
}

func decodeTemplate(name string, raw map[string]any) (*Template, error) {
	var tmpl Template
	dec, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		TagName: "json",
		Result:  &tmpl,
	})
	if err != nil {
		return nil, err
	}
	if err := dec.Decode(raw); err != nil {
		return nil, failure.New(errcode.InvalidFormat,
			failure.Message("Invalid template structure: "+err.Error()),
			failure.Context{"template": name})
	}
	return &tmpl, nil
}

// LoadOverrides reads an override document from disk.
func LoadOverrides(file string) (*Overrides, error) {
	data, err := os.ReadFile(file)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, failure.New(errcode.NotFound,
				failure.Message("overrides file not found: "+file))
		}
		return nil, failure.Wrap(err)
	}

	var ov Overrides
	if err := json.Unmarshal(data, &ov); err != nil {
		return nil, failure.New(errcode.InvalidFormat,
			failure.Message("Invalid overrides JSON: "+err.Error()))
	}
	return &ov, nil
}

func stringOr(v any, fallback string) string {
	if s, ok := v.(string); ok {
		return s
	}
	return fallback
}
