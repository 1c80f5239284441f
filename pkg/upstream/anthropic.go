// Copyright 2026 Teradata
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//	http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

// Package upstream provides the Anthropic Messages API client used for
// auxiliary completions (complexity classification). The routing proxy
// itself forwards the caller's original request body; this client only
// issues the small side calls the pipeline makes on its own behalf.
package upstream

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"time"

	"github.com/teradata-labs/heddle/pkg/types"
)

const (
	// DefaultEndpoint is the Anthropic Messages API endpoint.
	DefaultEndpoint = "https://api.anthropic.com/v1/messages"
	// DefaultTimeout bounds a single classification call.
	DefaultTimeout = 30 * time.Second
	// apiVersion is the Anthropic API version header value.
	apiVersion = "2023-06-01"
)

// Client is a minimal Anthropic Messages API client.
type Client struct {
	apiKey     string
	endpoint   string
	httpClient *http.Client
}

// Config holds configuration for the Anthropic client.
type Config struct {
	APIKey   string // Default: ANTHROPIC_API_KEY env var
	Endpoint string // Default: https://api.anthropic.com/v1/messages
	Timeout  time.Duration
}

// NewClient creates a new Anthropic client.
func NewClient(config Config) *Client {
	if config.APIKey == "" {
		config.APIKey = os.Getenv("ANTHROPIC_API_KEY")
	}
	if config.Endpoint == "" {
		if envEndpoint := os.Getenv("ANTHROPIC_API_ENDPOINT"); envEndpoint != "" {
			config.Endpoint = envEndpoint
		} else {
			config.Endpoint = DefaultEndpoint
		}
	}
	if config.Timeout == 0 {
		config.Timeout = DefaultTimeout
	}
	return &Client{
		apiKey:   config.APIKey,
		endpoint: config.Endpoint,
		httpClient: &http.Client{
			Timeout: config.Timeout,
		},
	}
}

// wire structs for the Messages API.

type messagesRequest struct {
	Model       string        `json:"model"`
	Messages    []wireMessage `json:"messages"`
	System      string        `json:"system,omitempty"`
	MaxTokens   int           `json:"max_tokens"`
	Temperature *float64      `json:"temperature,omitempty"`
}

type wireMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type messagesResponse struct {
	ID         string `json:"id"`
	Model      string `json:"model"`
	StopReason string `json:"stop_reason"`
	Content    []struct {
		Type string `json:"type"`
		Text string `json:"text"`
	} `json:"content"`
	Usage struct {
		InputTokens  int `json:"input_tokens"`
		OutputTokens int `json:"output_tokens"`
	} `json:"usage"`
}

// Complete sends req to the Messages API and returns the response.
// Message content blocks are flattened to text; the classification calls
// this serves only ever carry plain text.
func (c *Client) Complete(ctx context.Context, req *types.Request) (*types.Response, error) {
	apiReq := messagesRequest{
		Model:       req.Model,
		System:      req.System,
		MaxTokens:   req.MaxTokens,
		Temperature: req.Temperature,
	}
	if apiReq.MaxTokens == 0 {
		apiReq.MaxTokens = 1024
	}
	for _, msg := range req.Messages {
		if msg.Role == "system" {
			if apiReq.System == "" {
				apiReq.System = msg.Text()
			} else {
				apiReq.System += "\n\n" + msg.Text()
			}
			continue
		}
		apiReq.Messages = append(apiReq.Messages, wireMessage{
			Role:    msg.Role,
			Content: msg.Text(),
		})
	}

	body, err := json.Marshal(apiReq)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("x-api-key", c.apiKey)
	httpReq.Header.Set("anthropic-version", apiVersion)

	httpResp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("HTTP request failed: %w", err)
	}
	defer func() { _ = httpResp.Body.Close() }()

	respBody, err := io.ReadAll(httpResp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}
	if httpResp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("API error (status %d): %s", httpResp.StatusCode, string(respBody))
	}

	var apiResp messagesResponse
	if err := json.Unmarshal(respBody, &apiResp); err != nil {
		return nil, fmt.Errorf("failed to unmarshal response: %w", err)
	}

	return convertResponse(&apiResp), nil
}

func convertResponse(apiResp *messagesResponse) *types.Response {
	var text string
	for _, block := range apiResp.Content {
		if block.Type == "text" {
			text += block.Text
		}
	}
	finish := apiResp.StopReason
	if finish == "end_turn" || finish == "" {
		finish = types.FinishStop
	}
	return &types.Response{
		ID:     apiResp.ID,
		Object: "chat.completion",
		Model:  apiResp.Model,
		Choices: []types.Choice{{
			Message:      types.Message{Role: "assistant", Content: text},
			FinishReason: finish,
		}},
		Usage: &types.Usage{
			InputTokens:  apiResp.Usage.InputTokens,
			OutputTokens: apiResp.Usage.OutputTokens,
		},
	}
}
