// Package tools is the catalog of inventory operations offered to the
// language model. Each tool publishes a JSON schema for its input and decodes
// the model's arguments into a typed command.
package tools

import (
	"github.com/modelcontextprotocol/go-sdk/jsonschema"

	"pantrybot/command"
)

type Tool interface {
	Name() string
	Title() string
	Description() string
	InputSchema() *jsonschema.Schema
	Decode(input map[string]any) (command.Command, error)
}

type Call struct {
	Name      string         `json:"name"`
	Input     map[string]any `json:"input"`
	ToolUseID string         `json:"tool_use_id,omitempty"`
}
