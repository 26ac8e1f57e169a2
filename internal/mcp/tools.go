package mcp

import "github.com/xiy/taskbridge/internal/catalog"

// ToolDefinition models MCP tool metadata.
type ToolDefinition struct {
	Name        string         `json:"name"`
	Description string         `json:"description"`
	InputSchema map[string]any `json:"inputSchema"`
}

// toolDefinitions renders the shared catalog as MCP tool metadata.
func toolDefinitions() []ToolDefinition {
	descriptors := catalog.All()
	defs := make([]ToolDefinition, 0, len(descriptors))
	for _, d := range descriptors {
		defs = append(defs, ToolDefinition{
			Name:        d.Name,
			Description: d.Description,
			InputSchema: d.InputSchema(),
		})
	}
	return defs
}
