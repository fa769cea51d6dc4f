// Package blockstyle implements the LLM Client contract for the
// message-block wire dialect (spec §4.1, §6): the system message
// travels out-of-band, assistant turns serialise thinking/text/tool
// calls as an ordered list of typed content blocks, and tool results
// are posted back as user-role messages carrying a tool_result block.
package blockstyle

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/haasonsaas/nexus/internal/llm"
)

// Config configures a Client against a block-style endpoint.
type Config struct {
	APIBase    string
	APIKey     string
	Model      string
	MaxTokens  int
	HTTPClient *http.Client
}

// Client implements llm.Client for the block-style dialect by
// speaking the wire protocol of spec §6 directly: HTTP POST
// {api_base}/v1/messages with the anthropic-version header. It holds
// no per-session state, matching spec §4.1's statelessness
// requirement.
type Client struct {
	cfg Config
}

// New constructs a block-style Client. If cfg.HTTPClient is nil, a
// client with a 120s timeout is used, per spec §5's recommended
// transport-level timeout.
func New(cfg Config) *Client {
	if cfg.HTTPClient == nil {
		cfg.HTTPClient = &http.Client{Timeout: 120 * time.Second}
	}
	if cfg.MaxTokens <= 0 {
		cfg.MaxTokens = 4096
	}
	return &Client{cfg: cfg}
}

// wireMessage is one element of the request's "messages" array.
type wireMessage struct {
	Role    string      `json:"role"`
	Content []wireBlock `json:"content"`
}

type wireBlock struct {
	Type string `json:"type"`

	Text string `json:"text,omitempty"`

	// tool_use
	ID    string          `json:"id,omitempty"`
	Name  string          `json:"name,omitempty"`
	Input json.RawMessage `json:"input,omitempty"`

	// tool_result
	ToolUseID string `json:"tool_use_id,omitempty"`
	Content   string `json:"content,omitempty"`
	IsError   bool   `json:"is_error,omitempty"`

	// thinking
	Thinking string `json:"thinking,omitempty"`
}

type wireTool struct {
	Name        string         `json:"name"`
	Description string         `json:"description"`
	InputSchema map[string]any `json:"input_schema"`
}

type wireRequest struct {
	Model     string        `json:"model"`
	Messages  []wireMessage `json:"messages"`
	System    string        `json:"system,omitempty"`
	Tools     []wireTool    `json:"tools,omitempty"`
	MaxTokens int           `json:"max_tokens"`
}

type wireResponse struct {
	Content []wireBlock `json:"content"`
	Role    string      `json:"role"`
	Model   string      `json:"model"`
	// StopReason mirrors Anthropic's stop_reason: "end_turn",
	// "tool_use", "max_tokens", etc.
	StopReason string `json:"stop_reason"`
	Usage      *struct {
		InputTokens  int `json:"input_tokens"`
		OutputTokens int `json:"output_tokens"`
	} `json:"usage"`

	// BaseResp carries the provider-specific status envelope; codes
	// 0, 1000 and absence denote success (spec §6).
	BaseResp *struct {
		StatusCode int    `json:"status_code"`
		StatusMsg  string `json:"status_msg"`
	} `json:"base_resp"`

	// Error is populated on a dialect-level error envelope.
	Error *struct {
		Type    string `json:"type"`
		Message string `json:"message"`
	} `json:"error"`
}

func toWireMessages(msgs []llm.Message) []wireMessage {
	out := make([]wireMessage, 0, len(msgs))
	for _, m := range msgs {
		switch m.Role {
		case llm.RoleSystem:
			// carried out-of-band; handled by caller via req.System
			continue
		case llm.RoleTool:
			out = append(out, wireMessage{
				Role: "user",
				Content: []wireBlock{{
					Type:      string(llm.BlockToolResult),
					ToolUseID: m.ToolCallID,
					Content:   m.Content.AsText(),
				}},
			})
		default:
			blocks := make([]wireBlock, 0, len(m.ToolCalls)+2)
			if m.Thinking != "" {
				blocks = append(blocks, wireBlock{Type: string(llm.BlockThinking), Thinking: m.Thinking})
			}
			for _, b := range m.Content.AsBlocks() {
				blocks = append(blocks, fromInternalBlock(b))
			}
			for _, tc := range m.ToolCalls {
				input, _ := json.Marshal(tc.Arguments)
				blocks = append(blocks, wireBlock{
					Type:  string(llm.BlockToolUse),
					ID:    tc.ID,
					Name:  tc.Name,
					Input: input,
				})
			}
			out = append(out, wireMessage{Role: string(m.Role), Content: blocks})
		}
	}
	return out
}

func fromInternalBlock(b llm.Block) wireBlock {
	switch b.Kind {
	case llm.BlockToolResult:
		return wireBlock{Type: string(llm.BlockToolResult), ToolUseID: b.ToolUseID, Content: b.ToolContent, IsError: b.ToolIsError}
	case llm.BlockToolUse:
		return wireBlock{Type: string(llm.BlockToolUse), ID: b.ToolUseID, Name: b.ToolName, Input: b.ToolInput}
	case llm.BlockThinking:
		return wireBlock{Type: string(llm.BlockThinking), Thinking: b.Text}
	default:
		return wireBlock{Type: string(llm.BlockText), Text: b.Text}
	}
}

func toWireTools(tools []llm.ToolSchema) []wireTool {
	if len(tools) == 0 {
		return nil
	}
	out := make([]wireTool, len(tools))
	for i, t := range tools {
		out[i] = wireTool{Name: t.Name, Description: t.Description, InputSchema: t.InputSchema}
	}
	return out
}

// Generate implements llm.Client.
func (c *Client) Generate(ctx context.Context, req llm.Request) (*llm.Response, error) {
	body := wireRequest{
		Model:     c.cfg.Model,
		Messages:  toWireMessages(req.Messages),
		System:    req.System,
		Tools:     toWireTools(req.Tools),
		MaxTokens: c.cfg.MaxTokens,
	}
	payload, err := json.Marshal(body)
	if err != nil {
		return nil, &llm.TransportError{Code: "marshal_error", Message: err.Error()}
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.cfg.APIBase+"/v1/messages", bytes.NewReader(payload))
	if err != nil {
		return nil, &llm.TransportError{Code: "request_build_error", Message: err.Error()}
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Authorization", "Bearer "+c.cfg.APIKey)
	httpReq.Header.Set("anthropic-version", "2023-06-01")

	resp, err := c.cfg.HTTPClient.Do(httpReq)
	if err != nil {
		return nil, &llm.TransportError{Code: "network_error", Message: err.Error()}
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, &llm.TransportError{Code: "read_error", Message: err.Error()}
	}

	if resp.StatusCode >= 500 || resp.StatusCode == 429 {
		return nil, &llm.TransportError{Code: fmt.Sprintf("http_%d", resp.StatusCode), Message: string(raw)}
	}
	if resp.StatusCode >= 400 {
		hint := ""
		if resp.StatusCode == 401 || resp.StatusCode == 403 {
			hint = "check API credentials"
		} else if resp.StatusCode == 402 {
			hint = "insufficient balance"
		}
		return nil, &llm.FatalError{Code: fmt.Sprintf("http_%d", resp.StatusCode), Message: string(raw), Hint: hint}
	}

	var wr wireResponse
	if err := json.Unmarshal(raw, &wr); err != nil {
		return nil, &llm.TransportError{Code: "parse_error", Message: err.Error()}
	}

	if wr.Error != nil {
		return nil, &llm.TransportError{Code: wr.Error.Type, Message: wr.Error.Message}
	}
	if wr.BaseResp != nil && wr.BaseResp.StatusCode != 0 && wr.BaseResp.StatusCode != 1000 {
		return nil, &llm.TransportError{Code: fmt.Sprintf("base_resp_%d", wr.BaseResp.StatusCode), Message: wr.BaseResp.StatusMsg}
	}

	out := &llm.Response{FinishReason: wr.StopReason}
	for _, b := range wr.Content {
		switch b.Type {
		case string(llm.BlockText):
			out.Content += b.Text
		case string(llm.BlockThinking):
			out.Thinking += b.Thinking
		case string(llm.BlockToolUse):
			var args map[string]any
			_ = json.Unmarshal(b.Input, &args)
			out.ToolCalls = append(out.ToolCalls, llm.ToolCall{ID: b.ID, Type: "function", Name: b.Name, Arguments: args})
		}
	}
	if wr.Usage != nil {
		out.Usage = &llm.Usage{TotalTokens: wr.Usage.InputTokens + wr.Usage.OutputTokens}
	}
	return out, nil
}
