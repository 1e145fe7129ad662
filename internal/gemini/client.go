// Package gemini calls the Gemini generateContent endpoint for lifestyle
// suggestions.
package gemini

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"
)

const SystemInstruction = "You are a health assistant providing general, non-medical advice. Offer actionable, positive, and simple suggestions for a healthier lifestyle based on the user's information. Do not diagnose or recommend specific treatments. Always advise consulting a healthcare professional for personalized advice."

// NoSuggestion is returned when the first candidate part carries no text.
const NoSuggestion = "No suggestion generated."

var (
	ErrMissingAPIKey = errors.New("gemini api key not configured")
	ErrNoCandidates  = errors.New("gemini response had no candidate parts")
)

type Client struct {
	endpoint         string
	apiKey           string
	client           *http.Client
	maxResponseBytes int64
}

func NewClient(endpoint, apiKey string, timeout time.Duration) *Client {
	if timeout <= 0 {
		timeout = 60 * time.Second
	}
	return &Client{
		endpoint:         endpoint,
		apiKey:           apiKey,
		maxResponseBytes: 4 * 1024 * 1024,
		client:           &http.Client{Timeout: timeout},
	}
}

type part struct {
	Text *string `json:"text,omitempty"`
}

type content struct {
	Parts []part `json:"parts"`
}

type generateRequest struct {
	Contents          []content        `json:"contents"`
	Tools             []map[string]any `json:"tools"`
	SystemInstruction content          `json:"systemInstruction"`
}

type generateResponse struct {
	Candidates []struct {
		Content *content `json:"content"`
	} `json:"candidates"`
}

// Suggest sends prompt with the fixed system instruction and the search
// tool enabled, and returns the text of the first candidate part.
func (c *Client) Suggest(ctx context.Context, prompt string) (string, error) {
	if c.apiKey == "" {
		return "", ErrMissingAPIKey
	}

	system := SystemInstruction
	body, err := json.Marshal(generateRequest{
		Contents:          []content{{Parts: []part{{Text: &prompt}}}},
		Tools:             []map[string]any{{"google_search": map[string]any{}}},
		SystemInstruction: content{Parts: []part{{Text: &system}}},
	})
	if err != nil {
		return "", fmt.Errorf("marshal gemini request: %w", err)
	}

	endpoint, err := url.Parse(c.endpoint)
	if err != nil {
		return "", fmt.Errorf("parse gemini url: %w", err)
	}
	q := endpoint.Query()
	q.Set("key", c.apiKey)
	endpoint.RawQuery = q.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint.String(), bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("create gemini request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		// url.Error would echo the key-bearing URL.
		var uerr *url.Error
		if errors.As(err, &uerr) {
			err = uerr.Err
		}
		return "", fmt.Errorf("call gemini: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(io.LimitReader(resp.Body, c.maxResponseBytes+1))
	if err != nil {
		return "", fmt.Errorf("read gemini response: %w", err)
	}
	if int64(len(respBody)) > c.maxResponseBytes {
		return "", fmt.Errorf("gemini response exceeded limit (%d bytes)", c.maxResponseBytes)
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return "", fmt.Errorf("gemini error status %d", resp.StatusCode)
	}

	var parsed generateResponse
	if err := json.Unmarshal(respBody, &parsed); err != nil {
		return "", fmt.Errorf("decode gemini response: %w", err)
	}
	if len(parsed.Candidates) == 0 || parsed.Candidates[0].Content == nil || len(parsed.Candidates[0].Content.Parts) == 0 {
		return "", ErrNoCandidates
	}

	text := parsed.Candidates[0].Content.Parts[0].Text
	if text == nil {
		return NoSuggestion, nil
	}
	return *text, nil
}
