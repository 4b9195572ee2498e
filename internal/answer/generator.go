package answer

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"
)

// Common errors
var (
	ErrMissingAPIKey   = errors.New("generation API key not configured")
	ErrGeneratorFailed = errors.New("generation provider failed")
	ErrEmptyCompletion = errors.New("provider returned no completion")
)

const (
	defaultGenModel   = "gemini-2.0-flash"
	genRequestTimeout = 60 * time.Second
	genMaxRetries     = 3
	genBaseBackoff    = 500 * time.Millisecond
)

// geminiGenEndpoint is a var so tests can point it at a local httptest server.
var geminiGenEndpoint = "https://generativelanguage.googleapis.com/v1beta/models/%s:generateContent"

// Generator produces a completion for an assembled prompt.
type Generator interface {
	Generate(ctx context.Context, prompt string) (string, error)
	Model() string
	Close() error
}

// GeminiGenerator calls the Gemini generateContent REST API.
type GeminiGenerator struct {
	apiKey string
	model  string
	client *http.Client
}

// NewGeminiGenerator creates a Gemini-backed generator.
func NewGeminiGenerator(apiKey string) (*GeminiGenerator, error) {
	if apiKey == "" {
		return nil, ErrMissingAPIKey
	}
	return &GeminiGenerator{
		apiKey: apiKey,
		model:  defaultGenModel,
		client: &http.Client{Timeout: genRequestTimeout},
	}, nil
}

type geminiGenRequest struct {
	Contents []geminiContent `json:"contents"`
}

type geminiContent struct {
	Parts []geminiPart `json:"parts"`
}

type geminiPart struct {
	Text string `json:"text"`
}

type geminiGenResponse struct {
	Candidates []struct {
		Content geminiContent `json:"content"`
	} `json:"candidates"`
}

// Generate sends the prompt and returns the first candidate's text. Transient
// failures are retried with exponential backoff.
func (g *GeminiGenerator) Generate(ctx context.Context, prompt string) (string, error) {
	var lastErr error
	backoff := genBaseBackoff

	for attempt := 0; attempt < genMaxRetries; attempt++ {
		text, err := g.generateOnce(ctx, prompt)
		if err == nil {
			return text, nil
		}
		lastErr = err

		if ctx.Err() != nil {
			return "", ctx.Err()
		}
		if attempt < genMaxRetries-1 {
			select {
			case <-ctx.Done():
				return "", ctx.Err()
			case <-time.After(backoff):
				backoff *= 2
			}
		}
	}
	return "", lastErr
}

func (g *GeminiGenerator) generateOnce(ctx context.Context, prompt string) (string, error) {
	reqBody := geminiGenRequest{
		Contents: []geminiContent{{Parts: []geminiPart{{Text: prompt}}}},
	}
	payload, err := json.Marshal(reqBody)
	if err != nil {
		return "", fmt.Errorf("%w: marshal request: %v", ErrGeneratorFailed, err)
	}

	url := fmt.Sprintf(geminiGenEndpoint, g.model)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(payload))
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrGeneratorFailed, err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("x-goog-api-key", g.apiKey)

	resp, err := g.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrGeneratorFailed, err)
	}
	defer func() {
		_ = resp.Body.Close()
	}()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("%w: read response: %v", ErrGeneratorFailed, err)
	}
	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("%w: status %d: %s", ErrGeneratorFailed, resp.StatusCode, truncate(string(body), 200))
	}

	var genResp geminiGenResponse
	if err := json.Unmarshal(body, &genResp); err != nil {
		return "", fmt.Errorf("%w: decode response: %v", ErrGeneratorFailed, err)
	}
	if len(genResp.Candidates) == 0 || len(genResp.Candidates[0].Content.Parts) == 0 {
		return "", ErrEmptyCompletion
	}
	return genResp.Candidates[0].Content.Parts[0].Text, nil
}

// Model returns the model name
func (g *GeminiGenerator) Model() string {
	return g.model
}

// Close releases resources
func (g *GeminiGenerator) Close() error {
	return nil
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
