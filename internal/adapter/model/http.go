package model

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/homequote/intake/internal/capability"
	"github.com/homequote/intake/internal/domain"
	"github.com/homequote/intake/internal/slots"
)

// HTTPClient speaks the OpenAI-compatible chat-completions wire format.
type HTTPClient struct {
	baseURL    string
	apiKey     string
	model      string
	httpClient *http.Client
}

// NewHTTPClient creates a chat-completions client.
func NewHTTPClient(baseURL, apiKey, model string, timeout time.Duration) *HTTPClient {
	return &HTTPClient{
		baseURL: strings.TrimSuffix(baseURL, "/"),
		apiKey:  apiKey,
		model:   model,
		httpClient: &http.Client{
			Timeout: timeout,
		},
	}
}

var _ Client = (*HTTPClient)(nil)

type chatCompletionRequest struct {
	Model    string        `json:"model"`
	Messages []chatMessage `json:"messages"`
	Tools    []wireTool    `json:"tools,omitempty"`
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type wireTool struct {
	Type     string       `json:"type"`
	Function wireFunction `json:"function"`
}

type wireFunction struct {
	Name        string         `json:"name"`
	Description string         `json:"description,omitempty"`
	Parameters  map[string]any `json:"parameters,omitempty"`
}

type chatCompletionResponse struct {
	ID      string   `json:"id"`
	Choices []choice `json:"choices"`
}

type choice struct {
	Message struct {
		Role      string         `json:"role"`
		Content   string         `json:"content"`
		ToolCalls []wireToolCall `json:"tool_calls,omitempty"`
	} `json:"message"`
	FinishReason string `json:"finish_reason,omitempty"`
}

type wireToolCall struct {
	ID       string `json:"id"`
	Type     string `json:"type"`
	Function struct {
		Name      string `json:"name"`
		Arguments string `json:"arguments"`
	} `json:"function"`
}

type errorResponse struct {
	Error *apiError `json:"error"`
}

type apiError struct {
	Message string `json:"message"`
	Type    string `json:"type"`
}

// Complete sends the conversation context and decodes the response into
// the typed union the orchestrator branches on.
func (c *HTTPClient) Complete(ctx context.Context, req *Request) (*domain.ModelOutput, error) {
	wireReq := chatCompletionRequest{
		Model: c.model,
		Tools: buildTools(req.Capabilities),
	}
	for _, turn := range req.Turns {
		wireReq.Messages = append(wireReq.Messages, chatMessage{Role: turn.Role, Content: turn.Content})
	}

	body, err := json.Marshal(wireReq)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/v1/chat/completions", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	if c.apiKey != "" {
		httpReq.Header.Set("Authorization", "Bearer "+c.apiKey)
	}

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("failed to send request: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		var errResp errorResponse
		if err := json.Unmarshal(respBody, &errResp); err == nil && errResp.Error != nil {
			return nil, fmt.Errorf("model API error [%d]: %s (type: %s)", resp.StatusCode, errResp.Error.Message, errResp.Error.Type)
		}
		return nil, fmt.Errorf("model API error [%d]: %s", resp.StatusCode, string(respBody))
	}

	var result chatCompletionResponse
	if err := json.Unmarshal(respBody, &result); err != nil {
		return nil, fmt.Errorf("failed to unmarshal response: %w", err)
	}
	if len(result.Choices) == 0 {
		return nil, fmt.Errorf("model returned no choices")
	}

	return decodeChoice(result.Choices[0])
}

func decodeChoice(ch choice) (*domain.ModelOutput, error) {
	out := &domain.ModelOutput{Text: ch.Message.Content}

	for _, tc := range ch.Message.ToolCalls {
		args := make(map[string]any)
		if tc.Function.Arguments != "" {
			if err := json.Unmarshal([]byte(tc.Function.Arguments), &args); err != nil {
				return nil, fmt.Errorf("failed to decode arguments for %s: %w", tc.Function.Name, err)
			}
		}

		if tc.Function.Name == UpdateSlotsName {
			if out.Slots == nil {
				out.Slots = make(map[string]string)
			}
			for k, v := range args {
				if s, ok := v.(string); ok {
					out.Slots[k] = s
				}
			}
			continue
		}

		out.Requests = append(out.Requests, domain.CapabilityRequest{
			Name: tc.Function.Name,
			Args: args,
		})
	}
	return out, nil
}

func buildTools(schemas []capability.Schema) []wireTool {
	tools := make([]wireTool, 0, len(schemas)+1)
	for _, s := range schemas {
		tools = append(tools, wireTool{
			Type: "function",
			Function: wireFunction{
				Name:        s.Name,
				Description: s.Description,
				Parameters:  schemaParameters(s.Required, s.Optional),
			},
		})
	}
	tools = append(tools, wireTool{
		Type: "function",
		Function: wireFunction{
			Name:        UpdateSlotsName,
			Description: "Records intake field values extracted from the user's message.",
			Parameters:  schemaParameters(nil, slots.Required),
		},
	})
	return tools
}

func schemaParameters(required, optional []string) map[string]any {
	props := make(map[string]any, len(required)+len(optional))
	for _, name := range required {
		props[name] = map[string]any{"type": "string"}
	}
	for _, name := range optional {
		props[name] = map[string]any{"type": "string"}
	}
	params := map[string]any{
		"type":       "object",
		"properties": props,
	}
	if len(required) > 0 {
		params["required"] = required
	}
	return params
}
