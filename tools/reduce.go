package tools

import (
	"github.com/modelcontextprotocol/go-sdk/jsonschema"

	"pantrybot/command"
)

type ReduceQuantity struct{}

func (t *ReduceQuantity) Name() string  { return command.NameReduceQuantity }
func (t *ReduceQuantity) Title() string { return "Reduce Ingredient Quantity" }
func (t *ReduceQuantity) Description() string {
	return "Subtracts an amount from an ingredient. Use whenever a specific amount was used or removed: " +
		"\"remove 3 bananas\", \"used 200ml of milk\", \"ate 2 eggs\", \"delete 3 bananas\"."
}

func (t *ReduceQuantity) InputSchema() *jsonschema.Schema {
	minAmount := 0.0
	return &jsonschema.Schema{
		Type: "object",
		Properties: map[string]*jsonschema.Schema{
			"identifier": identifierSchema(),
			"amount":     {Type: "number", ExclusiveMinimum: &minAmount, Description: "Amount to subtract"},
		},
		Required: []string{"identifier", "amount"},
	}
}

func (t *ReduceQuantity) Decode(input map[string]any) (command.Command, error) {
	id, err := identifierArg(input)
	if err != nil {
		return nil, err
	}
	amount, ok, err := numberArg(input, "amount")
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, invalid("amount is required")
	}
	if !amount.IsPositive() {
		return nil, invalid("amount must be positive")
	}
	return command.ReduceQuantity{Identifier: id, Delta: amount}, nil
}
