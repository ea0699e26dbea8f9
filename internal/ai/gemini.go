// AngelaMos | 2026
// gemini.go

package ai

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"go.opentelemetry.io/otel/attribute"

	"github.com/carterperez-dev/flashdeck/internal/config"
	"github.com/carterperez-dev/flashdeck/internal/core"
)

var (
	ErrNetwork        = errors.New("ai network error")
	ErrService        = errors.New("ai service error")
	ErrResponseFormat = errors.New("ai response format error")
)

// Category is the client-facing hint for a generation failure.
func Category(err error) string {
	switch {
	case errors.Is(err, ErrNetwork):
		return "network error"
	case errors.Is(err, ErrResponseFormat):
		return "AI response format error"
	default:
		return "AI service error"
	}
}

type Card struct {
	Question string `json:"question"`
	Answer   string `json:"answer"`
}

type Client struct {
	apiKey     string
	model      string
	baseURL    string
	httpClient *http.Client
}

func NewClient(cfg config.AIConfig, httpClient *http.Client) *Client {
	if httpClient == nil {
		timeout := cfg.Timeout
		if timeout <= 0 {
			timeout = 45 * time.Second
		}
		httpClient = &http.Client{Timeout: timeout}
	}

	return &Client{
		apiKey:     cfg.APIKey,
		model:      cfg.Model,
		baseURL:    strings.TrimRight(cfg.BaseURL, "/"),
		httpClient: httpClient,
	}
}

type part struct {
	Text string `json:"text"`
}

type content struct {
	Role  string `json:"role,omitempty"`
	Parts []part `json:"parts"`
}

type generationConfig struct {
	ResponseMimeType string  `json:"responseMimeType"`
	Temperature      float64 `json:"temperature"`
}

type generateRequest struct {
	Contents         []content        `json:"contents"`
	GenerationConfig generationConfig `json:"generationConfig"`
}

type generateResponse struct {
	Candidates []struct {
		Content content `json:"content"`
	} `json:"candidates"`
	Error *struct {
		Code    int    `json:"code"`
		Message string `json:"message"`
		Status  string `json:"status"`
	} `json:"error,omitempty"`
}

const promptTemplate = `Create exactly %d flashcards from the study material below.
Each flashcard has a short question and a concise answer taken from the material.
Respond with JSON only, in this shape:
{"flashcards":[{"question":"...","answer":"..."}]}

Study material:
%s`

func buildPrompt(text string, count int) string {
	return fmt.Sprintf(promptTemplate, count, text)
}

// Generate asks the model for count flashcards covering text. The returned
// slice may be shorter than count; callers trim anything longer.
func (c *Client) Generate(ctx context.Context, text string, count int) ([]Card, error) {
	ctx, span := core.StartSpan(ctx, "ai.generate",
		attribute.String("ai.model", c.model),
		attribute.Int("ai.count", count),
	)
	defer span.End()

	cards, err := c.generate(ctx, text, count)
	if err != nil {
		core.SetSpanError(ctx, err)
		return nil, err
	}

	span.SetAttributes(attribute.Int("ai.cards", len(cards)))
	return cards, nil
}

func (c *Client) generate(ctx context.Context, text string, count int) ([]Card, error) {
	body, err := json.Marshal(generateRequest{
		Contents: []content{{
			Role:  "user",
			Parts: []part{{Text: buildPrompt(text, count)}},
		}},
		GenerationConfig: generationConfig{
			ResponseMimeType: "application/json",
			Temperature:      0.4,
		},
	})
	if err != nil {
		return nil, fmt.Errorf("marshal request: %w", err)
	}

	url := fmt.Sprintf("%s/models/%s:generateContent", c.baseURL, c.model)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}

	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("x-goog-api-key", c.apiKey)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrNetwork, err)
	}
	defer resp.Body.Close() //nolint:errcheck // read-only body

	raw, err := io.ReadAll(io.LimitReader(resp.Body, 4<<20))
	if err != nil {
		return nil, fmt.Errorf("%w: read body: %w", ErrNetwork, err)
	}

	var parsed generateResponse
	decodeErr := json.Unmarshal(raw, &parsed)

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		msg := resp.Status
		if decodeErr == nil && parsed.Error != nil {
			msg = parsed.Error.Message
		}
		return nil, fmt.Errorf("%w: status %d: %s", ErrService, resp.StatusCode, msg)
	}

	if decodeErr != nil {
		return nil, fmt.Errorf("%w: decode envelope: %w", ErrResponseFormat, decodeErr)
	}

	if len(parsed.Candidates) == 0 || len(parsed.Candidates[0].Content.Parts) == 0 {
		return nil, fmt.Errorf("%w: no candidates", ErrResponseFormat)
	}

	var sb strings.Builder
	for _, p := range parsed.Candidates[0].Content.Parts {
		sb.WriteString(p.Text)
	}

	return ParseCards(sb.String())
}

// ParseCards extracts the flashcards array from model output. Markdown code
// fences are tolerated and pairs with a blank side are dropped.
func ParseCards(output string) ([]Card, error) {
	cleaned := stripFences(output)

	var payload struct {
		Flashcards *[]Card `json:"flashcards"`
	}
	if err := json.Unmarshal([]byte(cleaned), &payload); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrResponseFormat, err)
	}

	if payload.Flashcards == nil {
		return nil, fmt.Errorf("%w: missing flashcards array", ErrResponseFormat)
	}

	cards := make([]Card, 0, len(*payload.Flashcards))
	for _, card := range *payload.Flashcards {
		q := strings.TrimSpace(card.Question)
		a := strings.TrimSpace(card.Answer)
		if q == "" || a == "" {
			continue
		}
		cards = append(cards, Card{Question: q, Answer: a})
	}

	return cards, nil
}

func stripFences(s string) string {
	s = strings.TrimSpace(s)
	if !strings.HasPrefix(s, "```") {
		return s
	}

	s = strings.TrimPrefix(s, "```")
	if nl := strings.IndexByte(s, '\n'); nl >= 0 {
		s = s[nl+1:]
	}
	s = strings.TrimSuffix(strings.TrimSpace(s), "```")

	return strings.TrimSpace(s)
}
