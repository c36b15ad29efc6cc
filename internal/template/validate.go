package template

import (
	"fmt"
	"strings"

	"github.com/morikuni/failure/v2"

	"aistack/internal/errcode"
)

// ValidateTemplate checks the structure of a stored template. It returns nil
// when the template is valid, otherwise an InvalidFormat error listing every
// problem found.
func (e *Engine) ValidateTemplate(name string) error {
	raw, err := e.loadRaw(name)
	if err != nil {
		return err
	}

	problems := templateProblems(raw)
	if len(problems) == 0 {
		return nil
	}
	for _, p := range problems {
		e.logger.Error("Template validation failed", "template", name, "problem", p)
	}
	return failure.New(errcode.InvalidFormat,
		failure.Message(fmt.Sprintf("template '%s' is invalid:\n  - %s", name, strings.Join(problems, "\n  - "))),
		failure.Context{"template": name})
}

func templateProblems(raw map[string]any) []string {
	var problems []string
	for _, field := range []string{"name", "description", "servers"} {
		if _, ok := raw[field]; !ok {
			problems = append(problems, "Template missing required field: "+field)
		}
	}

	servers, ok := raw["servers"].([]any)
	if !ok {
		if _, present := raw["servers"]; present {
			problems = append(problems, "Field 'servers' must be an array")
		}
		return problems
	}

	for i, s := range servers {
		server, ok := s.(map[string]any)
		if !ok {
			problems = append(problems, fmt.Sprintf("Server #%d is not an object", i+1))
			continue
		}

		label, hasName := server["name"].(string)
		if !hasName {
			label = fmt.Sprintf("#%d", i+1)
			problems = append(problems, fmt.Sprintf("Server %s missing 'name' field", label))
		}
		if _, ok := server["type"]; !ok {
			problems = append(problems, fmt.Sprintf("Server '%s' missing 'type' field", label))
		}

		enabled := true
		if v, ok := server["enabled"].(bool); ok {
			enabled = v
		}
		if _, ok := server["config"]; !ok && enabled {
			problems = append(problems, fmt.Sprintf("Server '%s' missing 'config' field", label))
		}
	}
	return problems
}
