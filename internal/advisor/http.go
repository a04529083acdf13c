package advisor

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"time"
)

// Defaults for an OpenAI-compatible chat-completions endpoint.
const (
	DefaultURL         = "https://api.groq.com/openai/v1/chat/completions"
	DefaultModel       = "llama-3.1-8b-instant"
	DefaultAPIKeyEnv   = "GROQ_API_KEY"
	DefaultTemperature = 0.2
)

// ErrNoAPIKey is returned when the HTTP advisor has no API key.
var ErrNoAPIKey = errors.New("advisor API key not set")

const systemPrompt = "You verify movements in physiotherapy exercises. " +
	"Decide whether the movement is good using the numeric metrics. " +
	`Reply ONLY with JSON: {"is_good": bool, "reason": string}.`

// HTTPClient is the subset of *http.Client the advisor needs.
type HTTPClient interface {
	Do(req *http.Request) (*http.Response, error)
}

// HTTPConfig configures an HTTPAdvisor.
type HTTPConfig struct {
	URL    string
	Model  string
	APIKey string
	// Timeout bounds one request (default: DefaultTimeout).
	Timeout time.Duration
	// Client defaults to an *http.Client with Timeout.
	Client HTTPClient
}

// HTTPAdvisor asks a chat-completions model for the verdict.
type HTTPAdvisor struct {
	config HTTPConfig
}

// NewHTTPAdvisor creates an HTTPAdvisor, filling defaults.
func NewHTTPAdvisor(config HTTPConfig) (*HTTPAdvisor, error) {
	if config.APIKey == "" {
		return nil, ErrNoAPIKey
	}
	if config.URL == "" {
		config.URL = DefaultURL
	}
	if config.Model == "" {
		config.Model = DefaultModel
	}
	if config.Timeout <= 0 {
		config.Timeout = DefaultTimeout
	}
	if config.Client == nil {
		config.Client = &http.Client{Timeout: config.Timeout}
	}
	return &HTTPAdvisor{config: config}, nil
}

// APIKeyFromEnv reads the API key from the named environment variable, or
// from DefaultAPIKeyEnv when name is empty.
func APIKeyFromEnv(name string) string {
	if name == "" {
		name = DefaultAPIKeyEnv
	}
	return os.Getenv(name)
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatRequest struct {
	Model          string            `json:"model"`
	Temperature    float64           `json:"temperature"`
	ResponseFormat map[string]string `json:"response_format"`
	Messages       []chatMessage     `json:"messages"`
}

type chatResponse struct {
	Choices []struct {
		Message chatMessage `json:"message"`
	} `json:"choices"`
}

// Advise posts the metrics and parses the model's JSON answer.
func (h *HTTPAdvisor) Advise(ctx context.Context, in Input) (Verdict, error) {
	ctx, cancel := context.WithTimeout(ctx, h.config.Timeout)
	defer cancel()

	payload, err := json.Marshal(map[string]Metrics{"metrics": in.Metrics})
	if err != nil {
		return Verdict{}, fmt.Errorf("marshal metrics: %w", err)
	}

	body, err := json.Marshal(chatRequest{
		Model:          h.config.Model,
		Temperature:    DefaultTemperature,
		ResponseFormat: map[string]string{"type": "json_object"},
		Messages: []chatMessage{
			{Role: "system", Content: systemPrompt},
			{Role: "user", Content: string(payload)},
		},
	})
	if err != nil {
		return Verdict{}, fmt.Errorf("marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, h.config.URL, bytes.NewReader(body))
	if err != nil {
		return Verdict{}, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+h.config.APIKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := h.config.Client.Do(req)
	if err != nil {
		return Verdict{}, fmt.Errorf("advisor request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		io.Copy(io.Discard, resp.Body)
		return Verdict{}, fmt.Errorf("advisor returned status %d", resp.StatusCode)
	}

	var chat chatResponse
	if err := json.NewDecoder(resp.Body).Decode(&chat); err != nil {
		return Verdict{}, fmt.Errorf("decode advisor response: %w", err)
	}
	if len(chat.Choices) == 0 {
		return Verdict{}, ErrNoVerdict
	}

	var v Verdict
	if err := json.Unmarshal([]byte(chat.Choices[0].Message.Content), &v); err != nil {
		return Verdict{}, fmt.Errorf("parse verdict: %w", err)
	}
	return v, nil
}
