package tools

import (
	"github.com/modelcontextprotocol/go-sdk/jsonschema"

	"pantrybot/command"
)

type ListIngredients struct{}

func (t *ListIngredients) Name() string  { return command.NameList }
func (t *ListIngredients) Title() string { return "List Ingredients" }
func (t *ListIngredients) Description() string {
	return "Lists every ingredient in the inventory. Use for \"what do I have\", \"show the fridge\", \"list\"."
}

func (t *ListIngredients) InputSchema() *jsonschema.Schema {
	return &jsonschema.Schema{Type: "object", Properties: map[string]*jsonschema.Schema{}}
}

func (t *ListIngredients) Decode(map[string]any) (command.Command, error) {
	return command.List{}, nil
}
