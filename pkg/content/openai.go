package content

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/pkg/errors"
)

const defaultOpenAIBaseURL = "https://api.openai.com"

// APIError is a non-2xx answer from the completion backend. It carries the
// status code so the retry policy can distinguish retryable failures.
type APIError struct {
	StatusCode int
	Message    string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("completion api: status %d: %s", e.StatusCode, e.Message)
}

// HTTPStatus implements the status interface used by the retry policy
func (e *APIError) HTTPStatus() int {
	return e.StatusCode
}

// OpenAIClient implements CompletionClient against the OpenAI chat
// completions endpoint.
type OpenAIClient struct {
	apiKey     string
	baseURL    string
	httpClient *http.Client
}

// NewOpenAIClient creates a client. A nil httpClient falls back to
// http.DefaultClient.
func NewOpenAIClient(apiKey string, httpClient *http.Client) *OpenAIClient {
	if httpClient == nil {
		httpClient = http.DefaultClient
	}
	return &OpenAIClient{
		apiKey:     apiKey,
		baseURL:    defaultOpenAIBaseURL,
		httpClient: httpClient,
	}
}

type chatCompletionRequest struct {
	Model       string        `json:"model"`
	Messages    []chatMessage `json:"messages"`
	MaxTokens   int           `json:"max_tokens,omitempty"`
	Temperature float64       `json:"temperature,omitempty"`
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatCompletionResponse struct {
	Model   string `json:"model"`
	Choices []struct {
		Message      chatMessage `json:"message"`
		FinishReason string      `json:"finish_reason"`
	} `json:"choices"`
	Usage struct {
		TotalTokens int `json:"total_tokens"`
	} `json:"usage"`
	Error *struct {
		Message string `json:"message"`
	} `json:"error"`
}

// Complete implements CompletionClient.Complete
func (c *OpenAIClient) Complete(ctx context.Context, req CompletionRequest) (*CompletionResponse, error) {
	payload, err := json.Marshal(chatCompletionRequest{
		Model:       req.Model,
		Messages:    []chatMessage{{Role: "user", Content: req.Prompt}},
		MaxTokens:   req.MaxTokens,
		Temperature: req.Temperature,
	})
	if err != nil {
		return nil, errors.Wrap(err, "encoding completion request")
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost,
		c.baseURL+"/v1/chat/completions", bytes.NewReader(payload))
	if err != nil {
		return nil, errors.Wrap(err, "building completion request")
	}
	httpReq.Header.Set("Authorization", "Bearer "+c.apiKey)
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return nil, errors.Wrap(err, "calling completion api")
	}
	defer func() { _ = resp.Body.Close() }()

	var body chatCompletionResponse
	decodeErr := json.NewDecoder(resp.Body).Decode(&body)

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		msg := resp.Status
		if decodeErr == nil && body.Error != nil {
			msg = body.Error.Message
		}
		return nil, &APIError{StatusCode: resp.StatusCode, Message: msg}
	}
	if decodeErr != nil {
		return nil, errors.Wrap(decodeErr, "malformed completion response")
	}
	if len(body.Choices) == 0 {
		return nil, errors.New("completion response contained no choices")
	}

	return &CompletionResponse{
		Text:         body.Choices[0].Message.Content,
		Model:        body.Model,
		TokensUsed:   body.Usage.TotalTokens,
		FinishReason: body.Choices[0].FinishReason,
	}, nil
}
