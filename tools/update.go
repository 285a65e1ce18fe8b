package tools

import (
	"github.com/modelcontextprotocol/go-sdk/jsonschema"

	"pantrybot/command"
)

type UpdateIngredient struct{}

func (t *UpdateIngredient) Name() string  { return command.NameUpdate }
func (t *UpdateIngredient) Title() string { return "Update Ingredient" }
func (t *UpdateIngredient) Description() string {
	return "Overwrites fields of an ingredient. Use when the user names a field change: " +
		"\"change milk quantity to 1000ml\", \"move the cheese to the freezer\", \"eggs expire on Friday\". " +
		"Pass only the fields that change; an empty string clears an optional field."
}

func (t *UpdateIngredient) InputSchema() *jsonschema.Schema {
	minQty := 0.0
	return &jsonschema.Schema{
		Type: "object",
		Properties: map[string]*jsonschema.Schema{
			"identifier": identifierSchema(),
			"name":       {Type: "string", Description: "New name"},
			"quantity":   {Type: "number", Minimum: &minQty, Description: "New absolute quantity"},
			"unit":       {Type: "string"},
			"expires_at": {Type: "string", Format: "date", Description: "New expiry date as YYYY-MM-DD"},
			"location":   {Type: "string"},
			"notes":      {Type: "string"},
		},
		Required: []string{"identifier"},
	}
}

func (t *UpdateIngredient) Decode(input map[string]any) (command.Command, error) {
	id, err := identifierArg(input)
	if err != nil {
		return nil, err
	}
	cmd := command.Update{Identifier: id}

	if qty, ok, err := numberArg(input, "quantity"); err != nil {
		return nil, err
	} else if ok {
		if qty.IsNegative() {
			return nil, invalid("quantity must not be negative")
		}
		cmd.Quantity = &qty
	}
	if expires, ok, err := dateArg(input, "expires_at"); err != nil {
		return nil, err
	} else if ok {
		cmd.ExpiresAt = &expires
	}

	for key, dst := range map[string]**string{
		"name":     &cmd.Name,
		"unit":     &cmd.Unit,
		"location": &cmd.Location,
		"notes":    &cmd.Notes,
	} {
		s, ok, err := stringArg(input, key)
		if err != nil {
			return nil, err
		}
		if ok {
			*dst = &s
		}
	}
	if cmd.Name != nil && *cmd.Name == "" {
		return nil, invalid("name must not be empty")
	}

	if !cmd.HasChanges() {
		return nil, invalid("at least one field to change is required")
	}
	return cmd, nil
}
