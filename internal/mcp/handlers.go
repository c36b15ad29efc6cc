package mcp

import (
	"context"
	"encoding/json"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/mark3labs/mcp-go/mcp"

	"aistack/internal/builder"
	"aistack/internal/errcode"
	"aistack/internal/mcpconfig"
	"aistack/internal/template"
	"aistack/internal/validation"
)

// generated is the JSON body returned by the generating tools.
type generated struct {
	Path       string          `json:"path,omitempty"`
	BackupPath string          `json:"backup_path,omitempty"`
	DryRun     bool            `json:"dry_run"`
	Warnings   []string        `json:"warnings,omitempty"`
	Config     json.RawMessage `json:"config"`
}

func jsonResult(v any) (*mcp.CallToolResult, error) {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("failed to encode result: %v", err)), nil
	}
	return mcp.NewToolResultText(string(data)), nil
}

func errorResult(err error) *mcp.CallToolResult {
	return mcp.NewToolResultError(errcode.Message(err))
}

func (s *Server) handleListTemplates(_ context.Context, _ mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	summaries, err := s.engine.ListTemplates()
	if err != nil {
		return errorResult(err), nil
	}
	if len(summaries) == 0 {
		return mcp.NewToolResultText("No templates found."), nil
	}
	return jsonResult(summaries)
}

func (s *Server) handleApplyTemplate(_ context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	var args applyArgs
	if err := decodeArgs(req, &args); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	res, err := s.engine.Apply(template.ApplyOptions{
		Template:  args.Template,
		Workspace: args.Workspace,
		Root:      args.Root,
		DryRun:    args.DryRun,
	})
	if err != nil {
		s.logger.Warn("apply_template failed", "template", args.Template, "error", err)
		return errorResult(err), nil
	}

	return jsonResult(generated{
		Path:       res.Path,
		BackupPath: res.BackupPath,
		DryRun:     args.DryRun,
		Warnings:   res.Warnings,
		Config:     res.Content,
	})
}

func (s *Server) handleBuildSingle(_ context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	var args buildSingleArgs
	if err := decodeArgs(req, &args); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return s.emit(builder.BuildSingle(args.Workspace), args.Workspace, args.DryRun)
}

func (s *Server) handleBuildMulti(_ context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	var args buildMultiArgs
	if err := decodeArgs(req, &args); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	doc, err := builder.BuildMulti(args.Core, args.Repos, builder.Options{Absolute: args.Absolute})
	if err != nil {
		return errorResult(err), nil
	}
	return s.emit(doc, args.Core, args.DryRun)
}

// emit serializes doc and writes it under dir unless dryRun is set.
func (s *Server) emit(doc mcpconfig.Document, dir string, dryRun bool) (*mcp.CallToolResult, error) {
	content, err := doc.Marshal()
	if err != nil {
		return errorResult(err), nil
	}
	out := generated{DryRun: dryRun, Config: content}
	if !dryRun {
		res, err := builder.Write(doc, mcpconfig.PathFor(dir), builder.WriteOptions{
			Backup: true,
			Now:    s.now,
			Logger: s.logger,
		})
		if err != nil {
			return errorResult(err), nil
		}
		out.Path = res.Path
		out.BackupPath = res.BackupPath
	}
	return jsonResult(out)
}

func (s *Server) handleValidateConfig(_ context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	var args validateArgs
	if err := decodeArgs(req, &args); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	path := args.Path
	if path == "" {
		path = mcpconfig.PathFor(args.Workspace)
	}
	path = filepath.Clean(path)

	report, err := validation.ValidateFile(path)
	if err != nil {
		return errorResult(err), nil
	}

	var b strings.Builder
	fmt.Fprintf(&b, "Validating: %s\n", report.File)
	for _, f := range report.Findings {
		fmt.Fprintln(&b, f.String())
	}
	fmt.Fprintf(&b, "\nErrors: %d, Warnings: %d, Info: %d\n",
		report.Count(validation.LevelError), report.Count(validation.LevelWarning), report.Count(validation.LevelInfo))
	if report.Passed(args.Strict) {
		b.WriteString("Result: PASSED")
	} else {
		b.WriteString("Result: FAILED")
	}
	return mcp.NewToolResultText(b.String()), nil
}
