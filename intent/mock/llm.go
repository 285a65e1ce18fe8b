// Package mock is a deterministic stand-in for a language model. It routes
// common inventory phrasings with regular expressions and answers in the
// text tool-call format, so the router's text fallback path is exercised.
package mock

import (
	"context"
	"encoding/json"
	"log/slog"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"

	"pantrybot/command"
	"pantrybot/intent"
	"pantrybot/tools"
)

const number = `(\d+(?:\.\d+)?)`

var (
	updateQtyRe = regexp.MustCompile(`(?i)^(?:change|set|update)\s+(?:the\s+)?(.+?)(?:'s)?\s+(?:quantity|amount)\s+to\s+` + number + `\s*([a-z]+)?$`)
	moveRe      = regexp.MustCompile(`(?i)^(?:move|put)\s+(?:the\s+)?(.+?)\s+(?:to|in|into)\s+(?:the\s+)?(.+)$`)
	expiresRe   = regexp.MustCompile(`(?i)^(?:the\s+)?(.+?)\s+(?:expires?|expiring|goes bad)\s+(.+)$`)

	goneSuffixRe = regexp.MustCompile(`(?i)^(.+?)\s+(?:(?:are|is|was|were)\s+)?(?:all\s+)?(?:gone|used up|finished|eaten)$`)
	gonePrefixRe = regexp.MustCompile(`(?i)^(?:i\s+)?(?:ran out of|run out of|used up|finished|ate all)\s+(.+)$`)

	reduceRe   = regexp.MustCompile(`(?i)^(?:please\s+)?(?:i\s+)?(?:remove|delete|reduce|use|used|ate|eat|drank|drink|take|took|consumed?)\s+` + number + `\s*([a-z]+\s+of\s+)?([a-z].*)$`)
	reduceByRe = regexp.MustCompile(`(?i)^(?:reduce|decrease|lower)\s+(?:the\s+)?(.+?)\s+by\s+` + number + `\s*[a-z]*$`)
	deleteRe   = regexp.MustCompile(`(?i)^(?:please\s+)?(?:delete|remove|throw out|throw away|toss|discard)\s+(.+)$`)

	addRe      = regexp.MustCompile(`(?i)^(?:please\s+)?(?:i\s+)?(?:add|bought|buy|got|stocked|stock)\s+(?:` + number + `\s*(ml|l|g|kg|pcs|packs?|bottles?|cartons?|cans?|bags?|jars?)?\s+)?(?:of\s+)?(.+?)(?:\s+(?:expiring|expires|that expires|which expires|good until|until|best before)\s+(.+))?$`)
	locationRe = regexp.MustCompile(`(?i)^(.+?)\s+(?:in|into|to)\s+the\s+(\w+)$`)

	expiringRe = regexp.MustCompile(`(?i)expir|going bad|go bad|use soon`)
	daysRe     = regexp.MustCompile(`(\d+)\s*days?`)
	listRe     = regexp.MustCompile(`(?i)\b(list|inventory|what do i have|what's in|what is in|show)\b`)
)

type LLMClient struct{}

func NewLLMClient() *LLMClient {
	return &LLMClient{}
}

// Invoke answers the latest user message with a single text-encoded tool
// call, or with a plain refusal when no rule matches.
func (m *LLMClient) Invoke(ctx context.Context, prompt intent.Prompt) (intent.Response, error) {
	if err := ctx.Err(); err != nil {
		return intent.Response{}, err
	}
	slog.Info("LLM_CLIENT: Invoked", "messages_len", len(prompt.Messages))

	ref, err := time.Parse(time.DateOnly, prompt.ReferenceDate)
	if err != nil {
		ref = time.Now()
	}

	call, ok := interpret(prompt.Utterance(), ref, prompt.KnownNames)
	if !ok {
		slog.Info("LLM_CLIENT: No rule matched")
		return intent.Response{Content: "Sorry, I can only help with the ingredient inventory."}, nil
	}
	call.ToolUseID = "toolu_" + uuid.NewString()

	b, err := json.Marshal(map[string]any{"tool_calls": []tools.Call{call}})
	if err != nil {
		return intent.Response{}, err
	}
	slog.Info("LLM_CLIENT: Returning tool call", "tool", call.Name)
	return intent.Response{Content: string(b)}, nil
}

func interpret(utterance string, ref time.Time, known []string) (tools.Call, bool) {
	text := strings.Trim(strings.TrimSpace(utterance), ".!? ")
	if text == "" {
		return tools.Call{}, false
	}

	if m := updateQtyRe.FindStringSubmatch(text); m != nil {
		input := map[string]any{"identifier": matchName(m[1], known), "quantity": parseNumber(m[2])}
		if m[3] != "" {
			input["unit"] = m[3]
		}
		return tools.Call{Name: command.NameUpdate, Input: input}, true
	}
	if m := moveRe.FindStringSubmatch(text); m != nil {
		return tools.Call{Name: command.NameUpdate, Input: map[string]any{
			"identifier": matchName(m[1], known), "location": m[2],
		}}, true
	}
	if m := goneSuffixRe.FindStringSubmatch(text); m != nil {
		return tools.Call{Name: command.NameDelete, Input: map[string]any{"identifier": matchName(m[1], known)}}, true
	}
	if m := gonePrefixRe.FindStringSubmatch(text); m != nil {
		return tools.Call{Name: command.NameDelete, Input: map[string]any{"identifier": matchName(m[1], known)}}, true
	}
	if m := reduceRe.FindStringSubmatch(text); m != nil {
		return tools.Call{Name: command.NameReduceQuantity, Input: map[string]any{
			"identifier": matchName(m[3], known), "amount": parseNumber(m[1]),
		}}, true
	}
	if m := reduceByRe.FindStringSubmatch(text); m != nil {
		return tools.Call{Name: command.NameReduceQuantity, Input: map[string]any{
			"identifier": matchName(m[1], known), "amount": parseNumber(m[2]),
		}}, true
	}
	if m := deleteRe.FindStringSubmatch(text); m != nil {
		return tools.Call{Name: command.NameDelete, Input: map[string]any{"identifier": matchName(m[1], known)}}, true
	}
	if m := addRe.FindStringSubmatch(text); m != nil {
		return addCall(m, ref), true
	}
	if m := expiresRe.FindStringSubmatch(text); m != nil {
		name := matchName(m[1], known)
		if date, ok := resolveDate(m[2], ref); ok && isKnown(name, known) {
			return tools.Call{Name: command.NameUpdate, Input: map[string]any{"identifier": name, "expires_at": date}}, true
		}
	}
	if expiringRe.MatchString(text) {
		input := map[string]any{}
		lower := strings.ToLower(text)
		switch {
		case daysRe.MatchString(lower):
			input["days"] = parseNumber(daysRe.FindStringSubmatch(lower)[1])
		case strings.Contains(lower, "today"):
			input["days"] = 0
		case strings.Contains(lower, "tomorrow"):
			input["days"] = 1
		case strings.Contains(lower, "week"):
			input["days"] = 7
		}
		return tools.Call{Name: command.NameCheckExpiring, Input: input}, true
	}
	if listRe.MatchString(text) {
		return tools.Call{Name: command.NameList, Input: map[string]any{}}, true
	}
	return tools.Call{}, false
}

func addCall(m []string, ref time.Time) tools.Call {
	input := map[string]any{}
	name := m[3]
	if loc := locationRe.FindStringSubmatch(name); loc != nil {
		name, input["location"] = loc[1], loc[2]
	}
	input["name"] = cleanSubject(name)
	if m[1] != "" {
		input["quantity"] = parseNumber(m[1])
	}
	if m[2] != "" {
		input["unit"] = strings.ToLower(m[2])
	}
	if m[4] != "" {
		if date, ok := resolveDate(m[4], ref); ok {
			input["expires_at"] = date
		} else {
			// Passed through unresolved; the tool rejects it and the
			// router asks again.
			input["expires_at"] = m[4]
		}
	}
	return tools.Call{Name: command.NameAdd, Input: input}
}

func parseNumber(s string) float64 {
	f, _ := strconv.ParseFloat(s, 64)
	return f
}

// cleanSubject strips leading quantifiers and articles from a noun phrase.
func cleanSubject(s string) string {
	s = strings.TrimSpace(s)
	for {
		lower := strings.ToLower(s)
		trimmed := false
		for _, prefix := range []string{"all ", "of ", "the ", "my ", "some ", "our "} {
			if strings.HasPrefix(lower, prefix) {
				s = strings.TrimSpace(s[len(prefix):])
				trimmed = true
				break
			}
		}
		if !trimmed {
			return strings.Trim(s, ".,!? ")
		}
	}
}

// matchName maps a noun phrase to a known ingredient name, ignoring case and
// simple plurals. Unknown phrases are returned cleaned but otherwise as
// typed.
func matchName(phrase string, known []string) string {
	p := cleanSubject(phrase)
	lp := strings.ToLower(p)
	for _, n := range known {
		if strings.ToLower(n) == lp {
			return n
		}
	}
	for _, n := range known {
		if singular(strings.ToLower(n)) == singular(lp) {
			return n
		}
	}
	return p
}

func isKnown(name string, known []string) bool {
	for _, n := range known {
		if n == name {
			return true
		}
	}
	return false
}

func singular(s string) string {
	switch {
	case strings.HasSuffix(s, "ies") && len(s) > 3:
		return s[:len(s)-3] + "y"
	case strings.HasSuffix(s, "oes"):
		return s[:len(s)-2]
	case strings.HasSuffix(s, "s") && !strings.HasSuffix(s, "ss"):
		return s[:len(s)-1]
	}
	return s
}
