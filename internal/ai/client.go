package ai

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
)

// Client talks to one OpenAI-compatible /chat/completions endpoint.
type Client struct {
	cfg        Config
	httpClient *http.Client
}

// NewClient builds a Client for cfg (presets applied, not yet validated:
// validation happens per call so config hot-reloads surface immediately).
func NewClient(cfg Config) *Client {
	cfg = cfg.ApplyPreset()
	timeout := cfg.Timeout
	if timeout == 0 {
		timeout = defaultTimeout
	}
	return &Client{
		cfg:        cfg,
		httpClient: &http.Client{Timeout: timeout},
	}
}

// Config returns the client's resolved configuration.
func (c *Client) Config() Config { return c.cfg }

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatRequest struct {
	Model       string        `json:"model"`
	Messages    []chatMessage `json:"messages"`
	Stream      bool          `json:"stream"`
	MaxTokens   int           `json:"max_tokens,omitempty"`
	Temperature float64       `json:"temperature,omitempty"`
}

type chatResponse struct {
	Choices []struct {
		Message chatMessage `json:"message"`
	} `json:"choices"`
}

type streamChunk struct {
	Choices []struct {
		Delta struct {
			Content string `json:"content"`
		} `json:"delta"`
		FinishReason *string `json:"finish_reason"`
	} `json:"choices"`
}

func (c *Client) newRequest(ctx context.Context, prompt string, stream bool) (*http.Request, error) {
	body, err := json.Marshal(chatRequest{
		Model:       c.cfg.Model,
		Messages:    []chatMessage{{Role: "user", Content: prompt}},
		Stream:      stream,
		MaxTokens:   c.cfg.MaxTokens,
		Temperature: 0.7,
	})
	if err != nil {
		return nil, transportErr("encoding request", err)
	}
	url := strings.TrimRight(c.cfg.BaseURL, "/") + "/chat/completions"
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return nil, transportErr("building request", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.cfg.APIKey)
	req.Header.Set("Content-Type", "application/json")
	return req, nil
}

// checkStatus maps a non-200 response to the error taxonomy and drains a
// short error-body excerpt for the message.
func checkStatus(resp *http.Response) error {
	if resp.StatusCode == http.StatusOK {
		return nil
	}
	excerpt, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
	msg := fmt.Sprintf("%s: %s", resp.Status, strings.TrimSpace(string(excerpt)))
	if resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden {
		return authErr(msg)
	}
	return transportErr(msg, nil)
}

// Complete performs a non-streaming completion and returns the full text.
func (c *Client) Complete(ctx context.Context, prompt string) (string, error) {
	if err := c.cfg.Validate(); err != nil {
		return "", err
	}
	req, err := c.newRequest(ctx, prompt, false)
	if err != nil {
		return "", err
	}
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", transportErr("request failed", err)
	}
	defer resp.Body.Close()
	if err := checkStatus(resp); err != nil {
		return "", err
	}

	var out chatResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return "", transportErr("decoding response", err)
	}
	if len(out.Choices) == 0 {
		return "", transportErr("empty response from provider", nil)
	}
	return out.Choices[0].Message.Content, nil
}

// Stream performs a streaming completion, invoking onFragment for every
// non-empty content delta in arrival order. Returns nil on a clean
// end-of-stream. A ctx cancellation surfaces as ctx.Err(), letting callers
// distinguish supersession from transport failure.
func (c *Client) Stream(ctx context.Context, prompt string, onFragment func(string)) error {
	if err := c.cfg.Validate(); err != nil {
		return err
	}
	req, err := c.newRequest(ctx, prompt, true)
	if err != nil {
		return err
	}
	resp, err := c.httpClient.Do(req)
	if err != nil {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		return transportErr("request failed", err)
	}
	defer resp.Body.Close()
	if err := checkStatus(resp); err != nil {
		return err
	}

	scanner := bufio.NewScanner(resp.Body)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, ":") {
			continue
		}
		data, ok := strings.CutPrefix(line, "data:")
		if !ok {
			continue
		}
		data = strings.TrimSpace(data)
		if data == "[DONE]" {
			return nil
		}

		var chunk streamChunk
		if err := json.Unmarshal([]byte(data), &chunk); err != nil {
			return transportErr("decoding stream chunk", err)
		}
		for _, choice := range chunk.Choices {
			if choice.Delta.Content != "" {
				onFragment(choice.Delta.Content)
			}
			if choice.FinishReason != nil && *choice.FinishReason == "stop" {
				return nil
			}
		}
	}
	if err := scanner.Err(); err != nil {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		return transportErr("reading stream", err)
	}
	return nil
}

// TestConnection issues a tiny completion to verify endpoint, model and
// credential together. Used by `clipvault status --probe-ai`.
func (c *Client) TestConnection(ctx context.Context) error {
	_, err := c.Complete(ctx, "Reply with the single word: ok")
	return err
}
