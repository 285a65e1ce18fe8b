package tools

import (
	"github.com/modelcontextprotocol/go-sdk/jsonschema"

	"pantrybot/command"
)

type DeleteIngredient struct{}

func (t *DeleteIngredient) Name() string  { return command.NameDelete }
func (t *DeleteIngredient) Title() string { return "Delete Ingredient" }
func (t *DeleteIngredient) Description() string {
	return "Removes an ingredient entirely. Use only when it is all gone: \"all eaten\", \"used up\", " +
		"\"finished\", \"throw out the milk\". Never use this when a specific amount is removed."
}

func (t *DeleteIngredient) InputSchema() *jsonschema.Schema {
	return &jsonschema.Schema{
		Type: "object",
		Properties: map[string]*jsonschema.Schema{
			"identifier": identifierSchema(),
		},
		Required: []string{"identifier"},
	}
}

func (t *DeleteIngredient) Decode(input map[string]any) (command.Command, error) {
	id, err := identifierArg(input)
	if err != nil {
		return nil, err
	}
	return command.Delete{Identifier: id}, nil
}

func identifierSchema() *jsonschema.Schema {
	return &jsonschema.Schema{
		Type:        "string",
		Description: "Numeric ingredient ID, or the ingredient name exactly as listed in the inventory",
	}
}
