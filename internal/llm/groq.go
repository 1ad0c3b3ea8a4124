package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"
)

// Default values for the Groq provider.
const (
	defaultGroqBaseURL    = "https://api.groq.com/openai/v1"
	defaultGroqModel      = "llama-3.3-70b-versatile"
	defaultGroqMaxTokens  = 2048
	defaultGroqRetryDelay = 2 * time.Second
)

// chatRequest represents the Groq Chat Completions API request body.
// Groq exposes an OpenAI-compatible wire format.
type chatRequest struct {
	Model       string        `json:"model"`
	Messages    []chatMessage `json:"messages"`
	Temperature float64       `json:"temperature"`
	MaxTokens   int           `json:"max_tokens,omitempty"`
}

// chatMessage represents a single message in the chat conversation.
type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// chatResponse represents the Chat Completions API response body.
type chatResponse struct {
	ID      string       `json:"id"`
	Model   string       `json:"model"`
	Choices []chatChoice `json:"choices"`
	Usage   chatUsage    `json:"usage"`
}

// chatChoice represents a single completion choice.
type chatChoice struct {
	Index        int         `json:"index"`
	Message      chatMessage `json:"message"`
	FinishReason string      `json:"finish_reason"`
}

// chatUsage contains token usage information.
type chatUsage struct {
	PromptTokens     int `json:"prompt_tokens"`
	CompletionTokens int `json:"completion_tokens"`
	TotalTokens      int `json:"total_tokens"`
}

// groqErrorResponse represents an error response from the Groq API.
type groqErrorResponse struct {
	Error groqErrorDetail `json:"error"`
}

// groqErrorDetail contains error details from the Groq API.
type groqErrorDetail struct {
	Message string `json:"message"`
	Type    string `json:"type"`
	Code    string `json:"code"`
}

// GroqClient implements Client using the Groq Chat Completions API.
type GroqClient struct {
	httpClient  *http.Client
	apiKey      string
	model       string
	baseURL     string
	temperature float64
	maxRetries  int
	retryDelay  time.Duration
}

// Compile-time check that GroqClient implements Client.
var _ Client = (*GroqClient)(nil)

// GroqConfig holds the parameters needed to create a Groq client.
// This is defined in the llm package to avoid importing the config package.
type GroqConfig struct {
	// APIKey is the Groq API key.
	APIKey string
	// Model is the model identifier (e.g., "llama-3.3-70b-versatile").
	Model string
	// BaseURL is the API base URL (empty means default).
	BaseURL string
}

// NewGroqClient creates a new Groq completion client.
//
// Transient provider errors (429 and 5xx) are retried up to maxRetries times
// with a linearly growing delay; everything else fails immediately.
func NewGroqClient(cfg GroqConfig, temperature float64, timeout time.Duration, maxRetries int) *GroqClient {
	baseURL := cfg.BaseURL
	if baseURL == "" {
		baseURL = defaultGroqBaseURL
	}

	model := cfg.Model
	if model == "" {
		model = defaultGroqModel
	}

	if timeout <= 0 {
		timeout = 30 * time.Second
	}

	if maxRetries < 0 {
		maxRetries = 0
	}

	return &GroqClient{
		httpClient: &http.Client{
			Timeout: timeout,
			Transport: &http.Transport{
				MaxIdleConns:        10,
				MaxIdleConnsPerHost: 10,
				IdleConnTimeout:     90 * time.Second,
			},
		},
		apiKey:      cfg.APIKey,
		model:       model,
		baseURL:     baseURL,
		temperature: temperature,
		maxRetries:  maxRetries,
		retryDelay:  defaultGroqRetryDelay,
	}
}

// Complete sends the messages to the Chat Completions endpoint.
func (c *GroqClient) Complete(ctx context.Context, req Request) (*Response, error) {
	maxTokens := req.MaxTokens
	if maxTokens <= 0 {
		maxTokens = defaultGroqMaxTokens
	}

	messages := make([]chatMessage, len(req.Messages))
	for i, m := range req.Messages {
		messages[i] = chatMessage{Role: m.Role, Content: m.Content}
	}

	chatReq := chatRequest{
		Model:       c.model,
		Messages:    messages,
		Temperature: c.temperature,
		MaxTokens:   maxTokens,
	}

	var lastErr error
	for attempt := 0; attempt <= c.maxRetries; attempt++ {
		if attempt > 0 {
			delay := c.retryDelay * time.Duration(attempt)
			select {
			case <-ctx.Done():
				return nil, fmt.Errorf("groq: context cancelled during retry wait: %w", ctx.Err())
			case <-time.After(delay):
			}
		}

		resp, err := c.doRequest(ctx, chatReq)
		if err == nil {
			return resp, nil
		}

		// Only retry on transient errors (5xx, 429).
		if !IsTransient(err) {
			return nil, err
		}
		lastErr = err
	}

	return nil, fmt.Errorf("groq: exhausted %d retries: %w", c.maxRetries, lastErr)
}

// Provider returns the name of the LLM provider.
func (c *GroqClient) Provider() string {
	return "groq"
}

// Model returns the model identifier being used.
func (c *GroqClient) Model() string {
	return c.model
}

// doRequest performs a single API request to the Chat Completions endpoint.
func (c *GroqClient) doRequest(ctx context.Context, chatReq chatRequest) (*Response, error) {
	body, err := json.Marshal(chatReq)
	if err != nil {
		return nil, fmt.Errorf("groq: failed to marshal request: %w", err)
	}

	endpoint := c.baseURL + "/chat/completions"
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("groq: failed to create request: %w", err)
	}

	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Authorization", "Bearer "+c.apiKey)

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		if ctx.Err() != nil {
			return nil, fmt.Errorf("groq: request cancelled: %w", ctx.Err())
		}
		// No HTTP response received; report as transient so retries apply.
		return nil, &APIError{Provider: "groq", StatusCode: 0, Message: err.Error()}
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(io.LimitReader(resp.Body, 10<<20))
	if err != nil {
		return nil, fmt.Errorf("groq: failed to read response body: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		return nil, parseGroqAPIError(resp.StatusCode, respBody)
	}

	var chatResp chatResponse
	if err := json.Unmarshal(respBody, &chatResp); err != nil {
		return nil, fmt.Errorf("groq: failed to unmarshal response: %w", err)
	}

	if len(chatResp.Choices) == 0 {
		return nil, fmt.Errorf("groq: empty choices in response")
	}

	model := chatResp.Model
	if model == "" {
		model = c.model
	}

	return &Response{
		Content: chatResp.Choices[0].Message.Content,
		Model:   model,
		Usage: Usage{
			InputTokens:  chatResp.Usage.PromptTokens,
			OutputTokens: chatResp.Usage.CompletionTokens,
		},
	}, nil
}

// parseGroqAPIError parses a Groq API error from the status code and body.
func parseGroqAPIError(statusCode int, body []byte) *APIError {
	apiErr := &APIError{
		Provider:   "groq",
		StatusCode: statusCode,
		Message:    string(body),
	}

	var errResp groqErrorResponse
	if err := json.Unmarshal(body, &errResp); err == nil && errResp.Error.Message != "" {
		apiErr.Message = errResp.Error.Message
		apiErr.Type = errResp.Error.Type
		apiErr.Code = errResp.Error.Code
	}

	return apiErr
}
