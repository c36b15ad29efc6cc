package mcp

import "github.com/mark3labs/mcp-go/mcp"

var listTemplatesTool = mcp.NewTool("list_templates",
	mcp.WithDescription("List the configuration templates that can be applied to a workspace."),
)

var applyTemplateTool = mcp.NewTool("apply_template",
	mcp.WithDescription("Resolve a template for a workspace and write .cursor/mcp.json. Returns the generated configuration."),
	mcp.WithString("template",
		mcp.Required(),
		mcp.Description("Template id, for example minimal, standard or full"),
	),
	mcp.WithString("workspace",
		mcp.Required(),
		mcp.Description("Absolute path of the workspace to configure"),
	),
	mcp.WithString("root",
		mcp.Description("Orchestration root; detected when omitted"),
	),
	mcp.WithBoolean("dry_run",
		mcp.Description("Return the configuration without writing it"),
	),
)

var buildSingleTool = mcp.NewTool("build_single",
	mcp.WithDescription("Generate the single-workspace configuration that uses ${workspaceFolder} everywhere."),
	mcp.WithString("workspace",
		mcp.Required(),
		mcp.Description("Workspace the configuration is written to"),
	),
	mcp.WithBoolean("dry_run",
		mcp.Description("Return the configuration without writing it"),
	),
)

var buildMultiTool = mcp.NewTool("build_multi",
	mcp.WithDescription("Generate the multi-repository configuration served from an orchestration root."),
	mcp.WithString("core",
		mcp.Required(),
		mcp.Description("Orchestration root the configuration is written to"),
	),
	mcp.WithArray("repos",
		mcp.Required(),
		mcp.Description("Repository paths to serve, in order"),
		mcp.Items(map[string]any{"type": "string"}),
	),
	mcp.WithBoolean("absolute",
		mcp.Description("Address repositories by absolute path instead of the workspaces directory"),
	),
	mcp.WithBoolean("dry_run",
		mcp.Description("Return the configuration without writing it"),
	),
)

var validateConfigTool = mcp.NewTool("validate_config",
	mcp.WithDescription("Validate an mcp.json file and report errors, warnings and notes."),
	mcp.WithString("path",
		mcp.Description("Path of the mcp.json file"),
	),
	mcp.WithString("workspace",
		mcp.Description("Workspace whose .cursor/mcp.json is validated when path is omitted"),
	),
	mcp.WithBoolean("strict",
		mcp.Description("Treat warnings as failures"),
	),
)
