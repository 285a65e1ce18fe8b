package tools

import (
	"fmt"
	"sort"

	"pantrybot/command"
)

// Registry maps tool names to implementations
type Registry map[string]Tool

// NewRegistry creates a registry holding one tool per inventory operation.
func NewRegistry() *Registry {
	registry := Registry{}
	for _, t := range []Tool{
		&AddIngredient{},
		&ListIngredients{},
		&CheckExpiring{},
		&DeleteIngredient{},
		&ReduceQuantity{},
		&UpdateIngredient{},
	} {
		registry[t.Name()] = t
	}
	return &registry
}

// GetTools returns all tools sorted by name so prompts are stable.
func (r *Registry) GetTools() []Tool {
	tools := make([]Tool, 0, len(*r))
	for _, tool := range *r {
		tools = append(tools, tool)
	}
	sort.Slice(tools, func(i, j int) bool { return tools[i].Name() < tools[j].Name() })
	return tools
}

// GetTool retrieves a tool by name from the registry
func (r Registry) GetTool(name string) (Tool, error) {
	tool, exists := r[name]
	if !exists {
		return nil, fmt.Errorf("%w: tool %q not found in registry", ErrInvalidInput, name)
	}
	return tool, nil
}

// Decode looks up the called tool and decodes its arguments.
func (r Registry) Decode(call Call) (command.Command, error) {
	tool, err := r.GetTool(call.Name)
	if err != nil {
		return nil, err
	}
	input := call.Input
	if input == nil {
		input = map[string]any{}
	}
	cmd, err := tool.Decode(input)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", call.Name, err)
	}
	return cmd, nil
}
