package tools

import (
	"github.com/modelcontextprotocol/go-sdk/jsonschema"

	"pantrybot/command"
)

type AddIngredient struct{}

func (t *AddIngredient) Name() string  { return command.NameAdd }
func (t *AddIngredient) Title() string { return "Add Ingredient" }
func (t *AddIngredient) Description() string {
	return "Adds a new ingredient to the inventory. Use when the user bought, received or stocked something " +
		"(\"add 2 cartons of milk\", \"I bought eggs\"). Quantity defaults to 1. Resolve relative expiry " +
		"expressions such as \"tomorrow\" or \"next Wednesday\" against the current date and pass an ISO date."
}

func (t *AddIngredient) InputSchema() *jsonschema.Schema {
	minQty := 0.0
	return &jsonschema.Schema{
		Type: "object",
		Properties: map[string]*jsonschema.Schema{
			"name":       {Type: "string", Description: "Ingredient name"},
			"quantity":   {Type: "number", ExclusiveMinimum: &minQty, Description: "Amount, defaults to 1"},
			"unit":       {Type: "string", Description: "Unit such as ml, g, pcs"},
			"expires_at": {Type: "string", Format: "date", Description: "Expiry date as YYYY-MM-DD"},
			"location":   {Type: "string", Description: "Storage location such as fridge or freezer"},
			"notes":      {Type: "string"},
		},
		Required: []string{"name"},
	}
}

func (t *AddIngredient) Decode(input map[string]any) (command.Command, error) {
	name, err := requiredString(input, "name")
	if err != nil {
		return nil, err
	}
	qty, ok, err := numberArg(input, "quantity")
	if err != nil {
		return nil, err
	}
	if ok && !qty.IsPositive() {
		return nil, invalid("quantity must be positive")
	}
	expires, _, err := dateArg(input, "expires_at")
	if err != nil {
		return nil, err
	}
	unit, _, err := stringArg(input, "unit")
	if err != nil {
		return nil, err
	}
	location, _, err := stringArg(input, "location")
	if err != nil {
		return nil, err
	}
	notes, _, err := stringArg(input, "notes")
	if err != nil {
		return nil, err
	}
	add := command.Add{
		Name:      name,
		Unit:      unit,
		ExpiresAt: expires,
		Location:  location,
		Notes:     notes,
	}
	if ok {
		add.Quantity = &qty
	}
	return add, nil
}
