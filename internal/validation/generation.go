package validation

import (
	"fmt"
	"os"
	"path/filepath"

	"aistack/internal/builder"
	"aistack/internal/logging"
	"aistack/internal/mcpconfig"
)

// GenerationStep is the outcome of generating and validating one topology.
type GenerationStep struct {
	Mode   string
	Passed bool
	Errors []Finding
	Err    error
}

func (s GenerationStep) String() string {
	if s.Passed {
		return fmt.Sprintf("✓ %s generation: PASSED", s.Mode)
	}
	return fmt.Sprintf("✗ %s generation: FAILED", s.Mode)
}

// GenerationResult collects the steps of TestGeneration.
type GenerationResult struct {
	Steps []GenerationStep
}

// Passed is true when every step passed.
func (g GenerationResult) Passed() bool {
	for _, s := range g.Steps {
		if !s.Passed {
			return false
		}
	}
	return len(g.Steps) > 0
}

// TestGeneration builds, writes, rereads and validates both builder
// topologies inside a scratch directory under dir (the system temp dir when
// dir is empty). Any error finding fails the step, which catches drift
// between the builder and the validator.
func TestGeneration(dir string) (GenerationResult, error) {
	scratch, err := os.MkdirTemp(dir, "aistack-generation-*")
	if err != nil {
		return GenerationResult{}, fmt.Errorf("failed to create scratch directory: %w", err)
	}
	defer os.RemoveAll(scratch)

	var result GenerationResult
	result.Steps = append(result.Steps, generateSingle(filepath.Join(scratch, "test_workspace")))
	result.Steps = append(result.Steps, generateMulti(filepath.Join(scratch, "core")))
	return result, nil
}

func generateSingle(workspace string) GenerationStep {
	step := GenerationStep{Mode: "Single-repo"}
	if err := os.MkdirAll(workspace, 0o755); err != nil {
		step.Err = err
		return step
	}
	return writeAndCheck(step, builder.BuildSingle(workspace), mcpconfig.PathFor(workspace))
}

func generateMulti(core string) GenerationStep {
	step := GenerationStep{Mode: "Multi-repo"}

	var repos []string
	for _, name := range []string{"repo-a", "repo-b"} {
		repo := filepath.Join(core, builder.WorkspacesDir, name)
		if err := os.MkdirAll(filepath.Join(repo, ".git"), 0o755); err != nil {
			step.Err = err
			return step
		}
		repos = append(repos, repo)
	}

	doc, err := builder.BuildMulti(core, repos, builder.Options{})
	if err != nil {
		step.Err = err
		return step
	}
	return writeAndCheck(step, doc, mcpconfig.PathFor(core))
}

func writeAndCheck(step GenerationStep, doc mcpconfig.Document, path string) GenerationStep {
	logger := logging.GetDefault()
	if _, err := builder.Write(doc, path, builder.WriteOptions{Logger: logger}); err != nil {
		step.Err = err
		return step
	}

	report, err := ValidateFile(path)
	if err != nil {
		step.Err = err
		return step
	}
	step.Errors = report.Filter(LevelError)
	step.Passed = len(step.Errors) == 0
	return step
}
