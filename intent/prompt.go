package intent

import (
	"fmt"
	"strings"
	"time"

	"pantrybot/session"
	"pantrybot/tools"
)

const systemPrompt = `You are the inventory assistant for a household kitchen. You manage a list of ingredients with quantities, units, expiry dates and storage locations.

TODAY:
The current date is %s (%s). Resolve every relative date ("today", "tomorrow", "in 3 days", "next Wednesday", "end of the month") against this date and pass it as YYYY-MM-DD.

KNOWN INGREDIENTS:
%s

TASK:
Pick exactly ONE tool that matches the user's latest message and call it with its arguments. Never answer in plain text and never call more than one tool.

ROUTING RULES:
- A message naming a specific amount to remove or use ("remove 3 bananas", "delete 3 bananas", "used 200ml of milk") calls reduce_ingredient_quantity, never delete_ingredient.
- A message saying something is entirely consumed ("all the bananas are gone", "used up", "finished", "all eaten") calls delete_ingredient, never reduce_ingredient_quantity.
- A message naming a field change ("change milk quantity to 1000ml", "move the cheese to the freezer") calls update_ingredient with only the changed fields.
- Refer to existing ingredients by their numeric ID or by their name exactly as written under KNOWN INGREDIENTS, even if the user uses a plural or different case.
- Use the recent conversation to resolve references such as "it" or "the rest".
- Numbers must be JSON numbers, dates must be YYYY-MM-DD.

TOOL USE:
Use the provided tools directly through the tool interface. If you cannot use the tool interface, reply with only {"tool_calls":[{"name":"<tool>","input":{...}}]}.
`

// NewPrompt builds the routing prompt for utterance. At most historyTurns of
// history are included, oldest first, followed by the utterance itself.
func NewPrompt(ref time.Time, utterance string, history []session.Turn, historyTurns int, knownNames []string, registry *tools.Registry) Prompt {
	date := ref.Format("2006-01-02")

	known := "(inventory is empty or unavailable)"
	if len(knownNames) > 0 {
		known = "- " + strings.Join(knownNames, "\n- ")
	}

	if over := len(history) - historyTurns; over > 0 {
		history = history[over:]
	}
	msgs := make([]Message, 0, len(history)+1)
	for _, turn := range history {
		role := turn.Role
		if role != session.RoleAssistant {
			role = session.RoleUser
		}
		msgs = append(msgs, TextMessage(role, turn.Content))
	}
	msgs = append(msgs, TextMessage(session.RoleUser, utterance))

	var specs []ToolSpec
	for _, t := range registry.GetTools() {
		specs = append(specs, ToolSpec{
			Name:        t.Name(),
			Description: t.Description(),
			InputSchema: t.InputSchema(),
		})
	}

	return Prompt{
		System:        fmt.Sprintf(systemPrompt, date, ref.Weekday(), known),
		ReferenceDate: date,
		KnownNames:    knownNames,
		Messages:      msgs,
		Tools:         specs,
	}
}
