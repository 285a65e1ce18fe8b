// Package bedrock is the Amazon Bedrock Converse backend for the intent
// router.
package bedrock

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"

	"pantrybot"
	"pantrybot/intent"
	"pantrybot/tools"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/bedrockruntime"
	"github.com/aws/aws-sdk-go-v2/service/bedrockruntime/document"
	"github.com/aws/aws-sdk-go-v2/service/bedrockruntime/types"
)

const (
	// A single tool call with a handful of arguments fits comfortably.
	defaultMaxTokens = 1024

	// Low temperature and top_p keep tool selection deterministic.
	defaultTemperature = 0.2
	defaultTopP        = 0.9
)

type bedrockRuntimeClient interface {
	Converse(context.Context, *bedrockruntime.ConverseInput, ...func(*bedrockruntime.Options)) (*bedrockruntime.ConverseOutput, error)
}

type LLMOptions struct {
	ModelID     string
	MaxTokens   int32
	Temperature float32
	TopP        float32
}

type LLMClient struct {
	brc  bedrockRuntimeClient
	opts LLMOptions
}

func NewLLMClient(brc bedrockRuntimeClient, opts LLMOptions) *LLMClient {
	if opts.ModelID == "" {
		opts.ModelID = pantrybot.DefaultBedrockModelID
	}
	if opts.MaxTokens == 0 {
		opts.MaxTokens = defaultMaxTokens
	}
	if opts.Temperature == 0 {
		opts.Temperature = defaultTemperature
	}
	if opts.TopP == 0 {
		opts.TopP = defaultTopP
	}
	return &LLMClient{
		brc:  brc,
		opts: opts,
	}
}

func (c *LLMClient) Invoke(ctx context.Context, prompt intent.Prompt) (intent.Response, error) {
	slog.Info("LLM_CLIENT: Invoked", "messages_len", len(prompt.Messages))

	var sys []types.SystemContentBlock
	if prompt.System != "" {
		sys = append(sys, &types.SystemContentBlockMemberText{Value: prompt.System})
	}

	var toolList []types.Tool
	for _, t := range prompt.Tools {
		spec, err := buildToolSpec(t)
		if err != nil {
			slog.Error("LLM_CLIENT: Failed to build tool spec", "error", err)
			continue
		}
		toolList = append(toolList, &types.ToolMemberToolSpec{Value: spec})
	}

	in := &bedrockruntime.ConverseInput{
		ModelId:  aws.String(c.opts.ModelID),
		System:   sys,
		Messages: buildMessages(prompt.Messages),
		InferenceConfig: &types.InferenceConfiguration{
			MaxTokens:   aws.Int32(c.opts.MaxTokens),
			Temperature: aws.Float32(c.opts.Temperature),
			TopP:        aws.Float32(c.opts.TopP),
		},
	}
	if len(toolList) > 0 {
		// "any" forces the model to call one of the tools rather than chat.
		in.ToolConfig = &types.ToolConfiguration{
			Tools:      toolList,
			ToolChoice: &types.ToolChoiceMemberAny{Value: types.AnyToolChoice{}},
		}
	}

	out, err := c.brc.Converse(ctx, in)
	if err != nil {
		slog.Error("LLM_CLIENT: Bedrock invoke failed", "error", err, "model_id", c.opts.ModelID)
		return intent.Response{}, err
	}

	attrs := []any{"stop_reason", out.StopReason}
	if out.Metrics != nil {
		attrs = append(attrs, "latency_ms", aws.ToInt64(out.Metrics.LatencyMs))
	}
	if out.Usage != nil {
		attrs = append(attrs,
			"input_tokens", aws.ToInt32(out.Usage.InputTokens),
			"output_tokens", aws.ToInt32(out.Usage.OutputTokens))
	}
	slog.Info("LLM_CLIENT: Bedrock invoke succeeded", attrs...)

	switch out.StopReason {
	case types.StopReasonMaxTokens:
		slog.Warn("LLM_CLIENT: Model hit MaxTokens limit")
		return intent.Response{}, fmt.Errorf("model hit MaxTokens limit; consider increasing MAX_TOKENS")

	case types.StopReasonGuardrailIntervened, types.StopReasonContentFiltered:
		slog.Warn("LLM_CLIENT: Model response blocked by Bedrock safety filters")
		return intent.Response{}, fmt.Errorf("model response blocked by Bedrock safety filters")
	}

	calls, err := toolCallsFromOutput(out)
	if err != nil {
		return intent.Response{}, fmt.Errorf("failed to parse tool calls: %w", err)
	}
	text, err := textFromOutput(out)
	if err != nil {
		return intent.Response{}, fmt.Errorf("failed to extract text: %w", err)
	}
	slog.Info("LLM_CLIENT: Extracted output", "calls_len", len(calls), "text_len", len(text))
	return intent.Response{Content: text, ToolCalls: calls}, nil
}

// buildMessages converts the prompt into Converse messages. Converse wants
// the conversation to open with a user turn and roles to alternate, so a
// leading assistant turn is dropped and consecutive turns of the same role
// are merged.
func buildMessages(in []intent.Message) []types.Message {
	var msgs []types.Message
	for _, m := range in {
		role := types.ConversationRoleUser
		if m.Role == string(types.ConversationRoleAssistant) {
			role = types.ConversationRoleAssistant
		}
		if len(msgs) == 0 && role == types.ConversationRoleAssistant {
			continue
		}

		blocks := contentBlocks(m.Content)
		if len(blocks) == 0 {
			continue
		}
		if n := len(msgs); n > 0 && msgs[n-1].Role == role {
			msgs[n-1].Content = append(msgs[n-1].Content, blocks...)
			continue
		}
		msgs = append(msgs, types.Message{Role: role, Content: blocks})
	}
	return msgs
}

func contentBlocks(parts intent.MessageParts) []types.ContentBlock {
	var blocks []types.ContentBlock
	for _, part := range parts {
		switch part.Type {
		case intent.PartText:
			if part.Text == "" {
				continue
			}
			blocks = append(blocks, &types.ContentBlockMemberText{Value: part.Text})

		case intent.PartToolUse:
			input := part.Data
			if input == nil {
				input = map[string]any{}
			}
			blocks = append(blocks, &types.ContentBlockMemberToolUse{Value: types.ToolUseBlock{
				ToolUseId: aws.String(part.ToolUseID),
				Name:      aws.String(part.ToolName),
				Input:     document.NewLazyDocument(input),
			}})

		case intent.PartToolResult:
			result := part.Data
			if result == nil {
				result = map[string]any{}
			}
			status := types.ToolResultStatusSuccess
			if _, failed := result["error"]; failed {
				status = types.ToolResultStatusError
			}
			blocks = append(blocks, &types.ContentBlockMemberToolResult{Value: types.ToolResultBlock{
				ToolUseId: aws.String(part.ToolUseID),
				Status:    status,
				Content: []types.ToolResultContentBlock{
					&types.ToolResultContentBlockMemberJson{Value: document.NewLazyDocument(result)},
				},
			}})
		}
	}
	return blocks
}

// buildToolSpec constructs a ToolSpecification for a tool.
func buildToolSpec(t intent.ToolSpec) (types.ToolSpecification, error) {
	// Round-trip through JSON so the schema's own MarshalJSON decides the
	// shape the document encoder sees.
	schemaJSON, err := json.Marshal(t.InputSchema)
	if err != nil {
		return types.ToolSpecification{}, fmt.Errorf("failed to marshal tool schema for %s: %w", t.Name, err)
	}

	var schemaMap map[string]any
	if err := json.Unmarshal(schemaJSON, &schemaMap); err != nil {
		return types.ToolSpecification{}, fmt.Errorf("failed to unmarshal tool schema for %s: %w", t.Name, err)
	}

	return types.ToolSpecification{
		Name:        aws.String(t.Name),
		Description: aws.String(t.Description),
		InputSchema: &types.ToolInputSchemaMemberJson{
			Value: document.NewLazyDocument(schemaMap),
		},
	}, nil
}

// textFromOutput returns the assistant's text blocks joined with '\n'.
func textFromOutput(out *bedrockruntime.ConverseOutput) (string, error) {
	if out == nil || out.Output == nil {
		return "", nil
	}

	msg, ok := out.Output.(*types.ConverseOutputMemberMessage)
	if !ok || msg == nil || len(msg.Value.Content) == 0 {
		return "", nil
	}

	texts := make([]string, 0, len(msg.Value.Content))
	for _, cb := range msg.Value.Content {
		if t, ok := cb.(*types.ContentBlockMemberText); ok && t != nil && strings.TrimSpace(t.Value) != "" {
			texts = append(texts, t.Value)
		}
	}
	return strings.Join(texts, "\n"), nil
}

// toolCallsFromOutput extracts tool uses emitted by the assistant. Inputs are
// re-decoded with encoding/json so numbers arrive as float64, the same as
// from every other backend.
func toolCallsFromOutput(out *bedrockruntime.ConverseOutput) ([]tools.Call, error) {
	var calls []tools.Call
	if out == nil {
		return calls, nil
	}

	msg, ok := out.Output.(*types.ConverseOutputMemberMessage)
	if !ok || msg == nil || msg.Value.Content == nil {
		return calls, nil
	}

	for _, cb := range msg.Value.Content {
		tu, ok := cb.(*types.ContentBlockMemberToolUse)
		if !ok || tu == nil {
			continue
		}

		input := map[string]any{}
		if tu.Value.Input != nil {
			raw, err := tu.Value.Input.MarshalSmithyDocument()
			if err != nil {
				return nil, fmt.Errorf("tool %s: %w", aws.ToString(tu.Value.Name), err)
			}
			if err := json.Unmarshal(raw, &input); err != nil || input == nil {
				slog.Warn("LLM_CLIENT: Tool input is not an object", "tool", aws.ToString(tu.Value.Name), "input", string(raw))
				input = map[string]any{}
			}
		}

		calls = append(calls, tools.Call{
			Name:      aws.ToString(tu.Value.Name),
			Input:     input,
			ToolUseID: aws.ToString(tu.Value.ToolUseId),
		})
	}

	return calls, nil
}
