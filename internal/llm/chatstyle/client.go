// Package chatstyle implements the LLM Client contract for the flat
// chat-completions wire dialect (spec §4.1, §6): one message list
// shared by every role, assistant tool_calls travel in a structured
// field with JSON-string arguments, and tool results are plain
// tool-role messages keyed by tool_call_id.
//
// The wire transport is github.com/sashabaranov/go-openai, whose
// request/response shapes already match this dialect closely enough
// that conversion is a thin field-for-field mapping rather than a
// hand-rolled HTTP client.
package chatstyle

import (
	"context"
	"encoding/json"

	openai "github.com/sashabaranov/go-openai"

	"github.com/haasonsaas/nexus/internal/llm"
)

// Config configures a Client against a chat-completions endpoint.
type Config struct {
	APIBase   string
	APIKey    string
	Model     string
	MaxTokens int
}

// Client implements llm.Client for the chat-completions dialect.
type Client struct {
	cfg    Config
	client *openai.Client
}

// New constructs a chat-completions Client backed by go-openai.
func New(cfg Config) *Client {
	oc := openai.DefaultConfig(cfg.APIKey)
	if cfg.APIBase != "" {
		oc.BaseURL = cfg.APIBase
	}
	if cfg.MaxTokens <= 0 {
		cfg.MaxTokens = 4096
	}
	return &Client{cfg: cfg, client: openai.NewClientWithConfig(oc)}
}

func toOpenAIMessages(msgs []llm.Message) []openai.ChatCompletionMessage {
	out := make([]openai.ChatCompletionMessage, 0, len(msgs))
	for _, m := range msgs {
		switch m.Role {
		case llm.RoleTool:
			out = append(out, openai.ChatCompletionMessage{
				Role:       openai.ChatMessageRoleTool,
				Content:    m.Content.AsText(),
				ToolCallID: m.ToolCallID,
				Name:       m.ToolName,
			})
		default:
			msg := openai.ChatCompletionMessage{
				Role:    string(m.Role),
				Content: m.Content.AsText(),
			}
			for _, tc := range m.ToolCalls {
				args, _ := json.Marshal(tc.Arguments)
				msg.ToolCalls = append(msg.ToolCalls, openai.ToolCall{
					ID:   tc.ID,
					Type: openai.ToolTypeFunction,
					Function: openai.FunctionCall{
						Name:      tc.Name,
						Arguments: string(args),
					},
				})
			}
			out = append(out, msg)
		}
	}
	return out
}

func toOpenAITools(tools []llm.ToolSchema) []openai.Tool {
	if len(tools) == 0 {
		return nil
	}
	out := make([]openai.Tool, len(tools))
	for i, t := range tools {
		out[i] = openai.Tool{
			Type: openai.ToolTypeFunction,
			Function: &openai.FunctionDefinition{
				Name:        t.Name,
				Description: t.Description,
				Parameters:  t.InputSchema,
			},
		}
	}
	return out
}

// Generate implements llm.Client.
func (c *Client) Generate(ctx context.Context, req llm.Request) (*llm.Response, error) {
	messages := toOpenAIMessages(req.Messages)
	if req.System != "" {
		messages = append([]openai.ChatCompletionMessage{{
			Role:    openai.ChatMessageRoleSystem,
			Content: req.System,
		}}, messages...)
	}

	ccReq := openai.ChatCompletionRequest{
		Model:     c.cfg.Model,
		Messages:  messages,
		MaxTokens: c.cfg.MaxTokens,
	}
	if tools := toOpenAITools(req.Tools); len(tools) > 0 {
		ccReq.Tools = tools
		ccReq.ToolChoice = "auto"
	}

	resp, err := c.client.CreateChatCompletion(ctx, ccReq)
	if err != nil {
		return nil, classifyError(err)
	}
	if len(resp.Choices) == 0 {
		return nil, &llm.TransportError{Code: "empty_choices", Message: "provider returned no choices"}
	}

	choice := resp.Choices[0]
	out := &llm.Response{
		Content:      choice.Message.Content,
		FinishReason: string(choice.FinishReason),
	}
	for _, tc := range choice.Message.ToolCalls {
		var args map[string]any
		raw := tc.Function.Arguments
		if err := json.Unmarshal([]byte(raw), &args); err != nil {
			// Invalid JSON is preserved verbatim under a reserved key
			// per spec §8's round-trip property.
			args = map[string]any{"__raw_arguments": raw}
		}
		out.ToolCalls = append(out.ToolCalls, llm.ToolCall{
			ID:        tc.ID,
			Type:      "function",
			Name:      tc.Function.Name,
			Arguments: args,
		})
	}
	if resp.Usage.TotalTokens > 0 {
		out.Usage = &llm.Usage{TotalTokens: resp.Usage.TotalTokens}
	}
	return out, nil
}

func classifyError(err error) error {
	var apiErr *openai.APIError
	if ok := asAPIError(err, &apiErr); ok {
		switch apiErr.HTTPStatusCode {
		case 429:
			return &llm.TransportError{Code: "rate_limited", Message: apiErr.Message}
		case 500, 502, 503, 504:
			return &llm.TransportError{Code: "server_error", Message: apiErr.Message}
		case 401, 403:
			return &llm.FatalError{Code: "auth_error", Message: apiErr.Message, Hint: "check API credentials"}
		case 402:
			return &llm.FatalError{Code: "quota_error", Message: apiErr.Message, Hint: "insufficient balance"}
		case 404:
			return &llm.FatalError{Code: "model_unsupported", Message: apiErr.Message}
		default:
			if apiErr.HTTPStatusCode >= 400 && apiErr.HTTPStatusCode < 500 {
				return &llm.FatalError{Code: "client_error", Message: apiErr.Message}
			}
		}
	}
	return &llm.TransportError{Code: "network_error", Message: err.Error()}
}

func asAPIError(err error, target **openai.APIError) bool {
	apiErr, ok := err.(*openai.APIError)
	if !ok {
		return false
	}
	*target = apiErr
	return true
}
