package intent

import (
	"context"
	"encoding/json"
	"strings"

	"github.com/modelcontextprotocol/go-sdk/jsonschema"

	"pantrybot/tools"
)

const (
	PartText       = "text"
	PartToolUse    = "tool_use"
	PartToolResult = "tool_result"
)

// LLMClient is the contract every language model backend implements.
type LLMClient interface {
	Invoke(ctx context.Context, prompt Prompt) (Response, error)
}

type MessagePart struct {
	Type      string         `json:"type"`
	Text      string         `json:"text,omitempty"`
	ToolUseID string         `json:"tool_use_id,omitempty"`
	ToolName  string         `json:"tool_name,omitempty"`
	Data      map[string]any `json:"data,omitempty"`
}

type MessageParts []MessagePart

// Join concatenates the text parts.
func (mp MessageParts) Join() string {
	var b strings.Builder
	for _, part := range mp {
		if part.Type == PartText {
			b.WriteString(part.Text)
		}
	}
	return b.String()
}

type Message struct {
	Role    string       `json:"role"`
	Content MessageParts `json:"content"`
}

func TextMessage(role, text string) Message {
	return Message{Role: role, Content: MessageParts{{Type: PartText, Text: text}}}
}

type ToolSpec struct {
	Name        string             `json:"name"`
	Description string             `json:"description"`
	InputSchema *jsonschema.Schema `json:"input_schema"`
}

// Prompt is what the router sends to a model. System carries the routing
// instructions; ReferenceDate and KnownNames are also rendered into System
// and exposed separately for clients that want them.
type Prompt struct {
	System        string     `json:"system"`
	ReferenceDate string     `json:"reference_date"`
	KnownNames    []string   `json:"known_names,omitempty"`
	Messages      []Message  `json:"messages"`
	Tools         []ToolSpec `json:"tools,omitempty"`
}

// Utterance returns the text of the last user message.
func (p Prompt) Utterance() string {
	for i := len(p.Messages) - 1; i >= 0; i-- {
		m := p.Messages[i]
		if m.Role == "user" {
			if text := m.Content.Join(); text != "" {
				return text
			}
		}
	}
	return ""
}

// Response represents the model's response structure.
type Response struct {
	Content   string       `json:"content,omitempty"`
	ToolCalls []tools.Call `json:"tool_calls,omitempty"`
}

// ParseModelOutput extracts tool calls embedded as JSON in Content, for
// models that answer in text instead of native tool use. Two shapes are
// recognized:
//
//	{"tool_calls":[{"name":"...","input":{...}}]}
//	{"name":"...","input":{...}}
//
// Text outside recognized objects stays in Content.
func (r *Response) ParseModelOutput() {
	s := strings.TrimSpace(r.Content)
	if s == "" {
		r.Content = ""
		return
	}

	var content strings.Builder
	var calls []tools.Call

	i := 0
	for i < len(s) {
		start := strings.IndexByte(s[i:], '{')
		if start == -1 {
			content.WriteString(s[i:])
			break
		}
		start += i
		content.WriteString(s[i:start])

		end, ok := matchBrace(s, start)
		if !ok {
			content.WriteString(s[start:])
			break
		}
		obj := s[start : end+1]

		if found := callsFromJSON(obj); len(found) > 0 {
			calls = append(calls, found...)
		} else {
			content.WriteString(obj)
		}
		i = end + 1
	}

	r.Content = strings.TrimSpace(content.String())
	r.ToolCalls = append(r.ToolCalls, calls...)
}

// matchBrace returns the index of the brace closing the object opened at
// start, skipping braces inside JSON strings.
func matchBrace(s string, start int) (int, bool) {
	depth := 0
	inString := false
	escaped := false
	for end := start; end < len(s); end++ {
		c := s[end]
		switch {
		case escaped:
			escaped = false
		case c == '\\' && inString:
			escaped = true
		case c == '"':
			inString = !inString
		case inString:
		case c == '{':
			depth++
		case c == '}':
			depth--
			if depth == 0 {
				return end, true
			}
		}
	}
	return 0, false
}

func callsFromJSON(obj string) []tools.Call {
	var probe struct {
		ToolCalls []tools.Call `json:"tool_calls"`
		tools.Call
	}
	if err := json.Unmarshal([]byte(obj), &probe); err != nil {
		return nil
	}
	if len(probe.ToolCalls) > 0 {
		return probe.ToolCalls
	}
	if probe.Name != "" && probe.Input != nil {
		return []tools.Call{probe.Call}
	}
	return nil
}
