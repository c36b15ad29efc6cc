// Package mcp exposes aistack over the Model Context Protocol so an AI
// assistant can list templates, generate launch configurations and validate
// them without leaving the editor.
//
// # Implementation
//
// The package uses the mcp-go library (github.com/mark3labs/mcp-go) and
// talks JSON-RPC over stdin/stdout:
//
//	aistack mcp
//
// Stdout carries protocol messages only; all logging goes to stderr or the
// debug log file.
//
// # Tools
//
//   - list_templates: the templates the engine can apply
//   - apply_template: resolve a template for a workspace, optionally as a dry run
//   - build_single: the single-workspace configuration
//   - build_multi: the orchestration configuration for several repositories
//   - validate_config: static checks on an existing mcp.json
//
// Tool failures, including bad arguments, are returned as tool results with
// IsError set rather than as protocol errors, so the assistant sees the
// message.
package mcp
