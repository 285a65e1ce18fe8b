package bedrock

import (
	"context"
	"testing"

	"pantrybot"
	"pantrybot/intent"
	"pantrybot/tools"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/bedrockruntime"
	"github.com/aws/aws-sdk-go-v2/service/bedrockruntime/document"
	"github.com/aws/aws-sdk-go-v2/service/bedrockruntime/types"
	"github.com/modelcontextprotocol/go-sdk/jsonschema"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// mockBedrockClient implements bedrockRuntimeClient for testing
type mockBedrockClient struct {
	response *bedrockruntime.ConverseOutput
	err      error
	input    *bedrockruntime.ConverseInput
}

func (m *mockBedrockClient) Converse(ctx context.Context, input *bedrockruntime.ConverseInput, opts ...func(*bedrockruntime.Options)) (*bedrockruntime.ConverseOutput, error) {
	m.input = input
	return m.response, m.err
}

func userPrompt(text string) intent.Prompt {
	return intent.Prompt{
		System:   "route it",
		Messages: []intent.Message{intent.TextMessage("user", text)},
		Tools: []intent.ToolSpec{{
			Name:        "get_ingredient_list",
			Description: "List ingredients",
			InputSchema: &jsonschema.Schema{Type: "object"},
		}},
	}
}

func output(stop types.StopReason, blocks ...types.ContentBlock) *bedrockruntime.ConverseOutput {
	return &bedrockruntime.ConverseOutput{
		StopReason: stop,
		Output:     &types.ConverseOutputMemberMessage{Value: types.Message{Content: blocks}},
		Usage: &types.TokenUsage{
			InputTokens:  aws.Int32(10),
			OutputTokens: aws.Int32(20),
		},
		Metrics: &types.ConverseMetrics{
			LatencyMs: aws.Int64(100),
		},
	}
}

func TestNewLLMClient(t *testing.T) {
	tests := []struct {
		name     string
		input    LLMOptions
		expected LLMOptions
	}{
		{
			name:  "empty options uses defaults",
			input: LLMOptions{},
			expected: LLMOptions{
				ModelID:     pantrybot.DefaultBedrockModelID,
				MaxTokens:   defaultMaxTokens,
				Temperature: defaultTemperature,
				TopP:        defaultTopP,
			},
		},
		{
			name: "custom options preserved",
			input: LLMOptions{
				ModelID:     "custom-model",
				MaxTokens:   2048,
				Temperature: 0.5,
				TopP:        0.8,
			},
			expected: LLMOptions{
				ModelID:     "custom-model",
				MaxTokens:   2048,
				Temperature: 0.5,
				TopP:        0.8,
			},
		},
		{
			name: "partial options with defaults",
			input: LLMOptions{
				ModelID:   "custom-model",
				MaxTokens: 2048,
			},
			expected: LLMOptions{
				ModelID:     "custom-model",
				MaxTokens:   2048,
				Temperature: defaultTemperature,
				TopP:        defaultTopP,
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mockClient := &mockBedrockClient{}
			client := NewLLMClient(mockClient, tt.input)

			assert.Equal(t, tt.expected, client.opts)
			assert.Equal(t, mockClient, client.brc)
		})
	}
}

func TestLLMClient_Invoke(t *testing.T) {
	tests := []struct {
		name          string
		mockResponse  *bedrockruntime.ConverseOutput
		mockError     error
		expectedResp  intent.Response
		expectedError string
	}{
		{
			name: "tool use response",
			mockResponse: output(types.StopReasonToolUse, &types.ContentBlockMemberToolUse{
				Value: types.ToolUseBlock{
					ToolUseId: aws.String("test-id"),
					Name:      aws.String("reduce_ingredient_quantity"),
					Input:     document.NewLazyDocument(map[string]any{"identifier": "Banana", "amount": 3}),
				},
			}),
			expectedResp: intent.Response{
				ToolCalls: []tools.Call{{
					Name:      "reduce_ingredient_quantity",
					Input:     map[string]any{"identifier": "Banana", "amount": 3.0},
					ToolUseID: "test-id",
				}},
			},
		},
		{
			name: "text response is passed through",
			mockResponse: output(types.StopReasonEndTurn,
				&types.ContentBlockMemberText{Value: `{"name":"get_ingredient_list","input":{}}`}),
			expectedResp: intent.Response{Content: `{"name":"get_ingredient_list","input":{}}`},
		},
		{
			name:          "max tokens error",
			mockResponse:  output(types.StopReasonMaxTokens),
			expectedError: "model hit MaxTokens limit",
		},
		{
			name:          "safety filter error",
			mockResponse:  output(types.StopReasonContentFiltered),
			expectedError: "model response blocked by Bedrock safety filters",
		},
		{
			name:          "bedrock API error",
			mockError:     assert.AnError,
			expectedError: "assert.AnError general error for testing",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mockClient := &mockBedrockClient{
				response: tt.mockResponse,
				err:      tt.mockError,
			}

			llmClient := NewLLMClient(mockClient, LLMOptions{})
			resp, err := llmClient.Invoke(context.Background(), userPrompt("remove 3 bananas"))

			if tt.expectedError != "" {
				require.Error(t, err)
				assert.Contains(t, err.Error(), tt.expectedError)
				return
			}

			require.NoError(t, err)
			assert.Equal(t, tt.expectedResp, resp)
		})
	}
}

func TestLLMClient_InvokeRequest(t *testing.T) {
	mockClient := &mockBedrockClient{response: output(types.StopReasonEndTurn)}
	llmClient := NewLLMClient(mockClient, LLMOptions{ModelID: "m"})

	_, err := llmClient.Invoke(context.Background(), userPrompt("list"))
	require.NoError(t, err)

	in := mockClient.input
	require.NotNil(t, in)
	assert.Equal(t, "m", aws.ToString(in.ModelId))
	require.Len(t, in.System, 1)
	assert.Equal(t, &types.SystemContentBlockMemberText{Value: "route it"}, in.System[0])
	require.NotNil(t, in.ToolConfig)
	assert.IsType(t, &types.ToolChoiceMemberAny{}, in.ToolConfig.ToolChoice)
	assert.Len(t, in.ToolConfig.Tools, 1)
}

func TestBuildMessages(t *testing.T) {
	msgs := buildMessages([]intent.Message{
		intent.TextMessage("assistant", "stale reply"),
		intent.TextMessage("user", "remove bananas"),
		intent.TextMessage("user", "remove 3 bananas"),
		{Role: "assistant", Content: intent.MessageParts{{
			Type: intent.PartToolUse, ToolUseID: "t1", ToolName: "reduce_ingredient_quantity",
			Data: map[string]any{"identifier": "Banana"},
		}}},
		{Role: "user", Content: intent.MessageParts{{
			Type: intent.PartToolResult, ToolUseID: "t1",
			Data: map[string]any{"error": "amount is required"},
		}}},
	})

	require.Len(t, msgs, 3)
	assert.Equal(t, types.ConversationRoleUser, msgs[0].Role)
	assert.Len(t, msgs[0].Content, 2, "consecutive user turns are merged")
	assert.Equal(t, types.ConversationRoleAssistant, msgs[1].Role)
	assert.IsType(t, &types.ContentBlockMemberToolUse{}, msgs[1].Content[0])

	result, ok := msgs[2].Content[0].(*types.ContentBlockMemberToolResult)
	require.True(t, ok)
	assert.Equal(t, "t1", aws.ToString(result.Value.ToolUseId))
	assert.Equal(t, types.ToolResultStatusError, result.Value.Status)
}

func TestTextFromOutput(t *testing.T) {
	tests := []struct {
		name     string
		output   *bedrockruntime.ConverseOutput
		expected string
	}{
		{
			name:     "nil output",
			output:   nil,
			expected: "",
		},
		{
			name:     "single text block",
			output:   output(types.StopReasonEndTurn, &types.ContentBlockMemberText{Value: "Hello world"}),
			expected: "Hello world",
		},
		{
			name: "multiple text blocks",
			output: output(types.StopReasonEndTurn,
				&types.ContentBlockMemberText{Value: "Hello"},
				&types.ContentBlockMemberText{Value: "world"},
			),
			expected: "Hello\nworld",
		},
		{
			name: "blank blocks skipped",
			output: output(types.StopReasonEndTurn,
				&types.ContentBlockMemberText{Value: "  "},
				&types.ContentBlockMemberText{Value: "Hello"},
			),
			expected: "Hello",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result, err := textFromOutput(tt.output)
			require.NoError(t, err)
			assert.Equal(t, tt.expected, result)
		})
	}
}

func TestToolCallsFromOutput(t *testing.T) {
	tests := []struct {
		name     string
		output   *bedrockruntime.ConverseOutput
		expected []tools.Call
	}{
		{
			name: "multiple tool calls",
			output: output(types.StopReasonToolUse,
				&types.ContentBlockMemberToolUse{Value: types.ToolUseBlock{
					ToolUseId: aws.String("id1"),
					Name:      aws.String("tool1"),
					Input:     document.NewLazyDocument(map[string]any{}),
				}},
				&types.ContentBlockMemberToolUse{Value: types.ToolUseBlock{
					ToolUseId: aws.String("id2"),
					Name:      aws.String("tool2"),
					Input:     document.NewLazyDocument(map[string]any{"days": 5}),
				}},
			),
			expected: []tools.Call{
				{Name: "tool1", Input: map[string]any{}, ToolUseID: "id1"},
				{Name: "tool2", Input: map[string]any{"days": 5.0}, ToolUseID: "id2"},
			},
		},
		{
			name:     "no tool calls",
			output:   output(types.StopReasonEndTurn, &types.ContentBlockMemberText{Value: "Just text"}),
			expected: nil,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result, err := toolCallsFromOutput(tt.output)
			require.NoError(t, err)
			assert.Equal(t, tt.expected, result)
		})
	}
}

func TestBuildToolSpec(t *testing.T) {
	tool := intent.ToolSpec{
		Name:        "get_ingredient_list",
		Description: "List ingredients",
		InputSchema: &jsonschema.Schema{Type: "object"},
	}

	result, err := buildToolSpec(tool)
	require.NoError(t, err)
	assert.Equal(t, tool.Name, *result.Name)
	assert.Equal(t, tool.Description, *result.Description)
	assert.NotNil(t, result.InputSchema)
}
