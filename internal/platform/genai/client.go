// Package genai wraps the Ollama text-generation API behind a small
// Generator interface so services can be tested against a fake.
package genai

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/rs/zerolog"
)

// Generator produces free-form text from a prompt. Implementations must
// honor the context deadline and return an error on empty output.
type Generator interface {
	Generate(ctx context.Context, prompt, system string) (string, error)
}

// generateRequest is the Ollama /api/generate payload.
type generateRequest struct {
	Model  string `json:"model"`
	Prompt string `json:"prompt"`
	System string `json:"system,omitempty"`
}

// generateChunk is one line of the NDJSON stream Ollama returns.
type generateChunk struct {
	Response string `json:"response"`
	Done     bool   `json:"done"`
}

// OllamaClient talks to a local Ollama server.
type OllamaClient struct {
	httpClient *resty.Client
	model      string
	logger     zerolog.Logger
}

// NewOllamaClient creates a client for the given base URL and model.
// The timeout bounds a full generation, not a single read.
func NewOllamaClient(baseURL, model string, timeout time.Duration, logger zerolog.Logger) *OllamaClient {
	client := resty.New().
		SetBaseURL(baseURL).
		SetTimeout(timeout).
		SetHeader("Content-Type", "application/json")

	return &OllamaClient{
		httpClient: client,
		model:      model,
		logger:     logger.With().Str("component", "genai").Logger(),
	}
}

// Generate calls /api/generate and accumulates the streamed response.
// Ollama emits one JSON object per line; partial or malformed lines are
// skipped rather than failing the whole generation.
func (c *OllamaClient) Generate(ctx context.Context, prompt, system string) (string, error) {
	req := generateRequest{
		Model:  c.model,
		Prompt: prompt,
		System: system,
	}

	start := time.Now()
	resp, err := c.httpClient.R().
		SetContext(ctx).
		SetBody(req).
		SetDoNotParseResponse(true).
		Post("/api/generate")
	if err != nil {
		c.logger.Error().Err(err).Str("model", c.model).Msg("generation request failed")
		return "", fmt.Errorf("call ollama: %w", err)
	}
	defer resp.RawBody().Close()

	if resp.StatusCode() < 200 || resp.StatusCode() >= 300 {
		c.logger.Error().Int("status", resp.StatusCode()).Str("model", c.model).Msg("ollama returned non-2xx")
		return "", fmt.Errorf("ollama status %d", resp.StatusCode())
	}

	var out strings.Builder
	scanner := bufio.NewScanner(resp.RawBody())
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		var chunk generateChunk
		if err := json.Unmarshal([]byte(line), &chunk); err != nil {
			continue
		}
		out.WriteString(chunk.Response)
		if chunk.Done {
			break
		}
	}
	if err := scanner.Err(); err != nil {
		return "", fmt.Errorf("read ollama stream: %w", err)
	}

	text := strings.TrimSpace(out.String())
	if text == "" {
		return "", fmt.Errorf("ollama returned empty output for model %s", c.model)
	}

	c.logger.Debug().
		Str("model", c.model).
		Int("chars", len(text)).
		Dur("elapsed", time.Since(start)).
		Msg("generation complete")

	return text, nil
}
