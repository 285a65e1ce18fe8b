package tools

import (
	"github.com/modelcontextprotocol/go-sdk/jsonschema"

	"pantrybot/command"
)

type CheckExpiring struct{}

func (t *CheckExpiring) Name() string  { return command.NameCheckExpiring }
func (t *CheckExpiring) Title() string { return "Check Expiring Ingredients" }
func (t *CheckExpiring) Description() string {
	return "Lists ingredients that expire within the given number of days, including ones already expired. " +
		"Use for \"what's going bad\", \"anything expiring this week\". Omit days to use the default window."
}

func (t *CheckExpiring) InputSchema() *jsonschema.Schema {
	minDays := 0.0
	return &jsonschema.Schema{
		Type: "object",
		Properties: map[string]*jsonschema.Schema{
			"days": {Type: "integer", Minimum: &minDays, Description: "Window in days"},
		},
	}
}

func (t *CheckExpiring) Decode(input map[string]any) (command.Command, error) {
	days, ok, err := intArg(input, "days")
	if err != nil {
		return nil, err
	}
	if !ok {
		return command.CheckExpiring{}, nil
	}
	if days < 0 {
		return nil, invalid("days must not be negative")
	}
	return command.CheckExpiring{Days: &days}, nil
}
