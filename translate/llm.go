package translate

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/rpblab/beyscout/config"
	"github.com/rpblab/beyscout/models"
)

// LLMBackend translates text through an OpenAI-compatible chat
// completion API. It uses net/http directly; no SDK needed.
type LLMBackend struct {
	httpClient *http.Client
	cfg        config.TranslateConfig
}

// NewLLMBackend creates a backend from config, or nil when no API key
// is configured (the expected no-op state).
func NewLLMBackend(cfg config.TranslateConfig) *LLMBackend {
	if cfg.APIKey == "" {
		return nil
	}
	return &LLMBackend{
		httpClient: &http.Client{Timeout: cfg.Timeout},
		cfg:        cfg,
	}
}

type chatRequest struct {
	Model       string        `json:"model"`
	Messages    []chatMessage `json:"messages"`
	Temperature float64       `json:"temperature"`
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatResponse struct {
	Choices []struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
	} `json:"choices"`
}

type chatErrorResponse struct {
	Error struct {
		Message string `json:"message"`
	} `json:"error"`
}

// Translate sends the text to the chat API and returns the translation.
func (b *LLMBackend) Translate(ctx context.Context, text, targetLang string) (string, error) {
	reqBody := chatRequest{
		Model: b.cfg.Model,
		Messages: []chatMessage{
			{Role: "system", Content: systemPrompt(targetLang)},
			{Role: "user", Content: text},
		},
		Temperature: 0,
	}

	bodyBytes, err := json.Marshal(reqBody)
	if err != nil {
		return "", fmt.Errorf("marshal request: %w", err)
	}

	endpoint := strings.TrimRight(b.cfg.BaseURL, "/") + "/chat/completions"
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(bodyBytes))
	if err != nil {
		return "", fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+b.cfg.APIKey)

	resp, err := b.httpClient.Do(req)
	if err != nil {
		return "", models.NewScrapeError(models.ErrCodeTranslation, "translation request failed", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", models.NewScrapeError(models.ErrCodeTranslation, "failed to read translation response", err)
	}

	if resp.StatusCode != http.StatusOK {
		msg := "translation API error"
		var errResp chatErrorResponse
		if json.Unmarshal(respBody, &errResp) == nil && errResp.Error.Message != "" {
			msg = errResp.Error.Message
		}
		return "", models.NewScrapeError(models.ErrCodeTranslation,
			fmt.Sprintf("translation API returned %d: %s", resp.StatusCode, msg), nil)
	}

	var chatResp chatResponse
	if err := json.Unmarshal(respBody, &chatResp); err != nil {
		return "", models.NewScrapeError(models.ErrCodeTranslation, "failed to parse translation response", err)
	}
	if len(chatResp.Choices) == 0 {
		return "", models.NewScrapeError(models.ErrCodeTranslation, "translation returned no choices", nil)
	}

	return chatResp.Choices[0].Message.Content, nil
}

func systemPrompt(targetLang string) string {
	return fmt.Sprintf(`You are a translation engine. Translate the user's Markdown document into the language with ISO code %q.

Rules:
- Preserve all Markdown structure, links, and code spans exactly.
- Do not translate product codes (e.g. BX-01) or proper nouns.
- Return ONLY the translated document, no commentary.`, targetLang)
}
