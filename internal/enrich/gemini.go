// Package enrich rewrites item display text through the Gemini API:
// a short Korean summary when an abstract exists, a title translation
// otherwise. Failures never propagate past the single item.
package enrich

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/alekseyt9/newswatch/internal/domain"
	"github.com/alekseyt9/newswatch/internal/ports"
)

const defaultBaseURL = "https://generativelanguage.googleapis.com/v1beta/models"

// maxPromptAbstract caps abstract text sent upstream to bound request cost.
const maxPromptAbstract = 1500

const truncationMarker = "…(이하 생략)"

// GeminiClient implements ports.Enricher against the generateContent endpoint.
type GeminiClient struct {
	apiKey  string
	model   string
	baseURL string
	client  *http.Client
	logger  *slog.Logger
}

var _ ports.Enricher = (*GeminiClient)(nil)

// NewGeminiClient builds a client; baseURL is overridable for tests and
// defaults to the public endpoint.
func NewGeminiClient(apiKey, model, baseURL string, client *http.Client, logger *slog.Logger) *GeminiClient {
	if client == nil {
		client = &http.Client{Timeout: 30 * time.Second}
	}
	if baseURL == "" {
		baseURL = defaultBaseURL
	}
	return &GeminiClient{
		apiKey:  apiKey,
		model:   model,
		baseURL: baseURL,
		client:  client,
		logger:  logger,
	}
}

// Enrich returns a copy of the item with EnrichedText populated. A non-empty
// abstract yields a summary (FromAbstract=true), otherwise a translated
// title. Any service failure falls back to the original title verbatim.
func (g *GeminiClient) Enrich(ctx context.Context, item domain.Item) domain.Item {
	fromAbstract := strings.TrimSpace(item.Abstract) != ""

	text, err := g.generate(ctx, buildPrompt(item, fromAbstract))
	if err != nil {
		g.warn("enrichment failed, falling back to title", "title", item.Title, "error", err)
		item.EnrichedText = item.Title
		item.Enriched = false
		item.FromAbstract = false
		return item
	}

	item.EnrichedText = text
	item.Enriched = true
	item.FromAbstract = fromAbstract
	return item
}

// EnrichMany processes items sequentially with a fixed delay between
// upstream calls to stay under the service rate limit.
func (g *GeminiClient) EnrichMany(ctx context.Context, items []domain.Item, delay time.Duration) []domain.Item {
	out := make([]domain.Item, 0, len(items))
	for i, it := range items {
		if i > 0 && delay > 0 {
			select {
			case <-time.After(delay):
			case <-ctx.Done():
				// Remaining items pass through with the title fallback.
				it.EnrichedText = it.Title
				it.Enriched = false
				it.FromAbstract = false
				out = append(out, it)
				continue
			}
		}
		out = append(out, g.Enrich(ctx, it))
	}
	return out
}

func buildPrompt(item domain.Item, fromAbstract bool) string {
	if fromAbstract {
		abstract := truncateRunes(strings.TrimSpace(item.Abstract), maxPromptAbstract)
		return fmt.Sprintf(
			"다음 뉴스의 초록을 한국어로 간단히 요약해주세요 (2-3문장):\n\n제목: %s\n초록: %s\n\n요약:",
			item.Title, abstract)
	}
	return fmt.Sprintf("다음 뉴스 제목을 자연스러운 한국어로 번역해주세요:\n\n%s\n\n번역:", item.Title)
}

func (g *GeminiClient) generate(ctx context.Context, prompt string) (string, error) {
	if g.apiKey == "" || g.model == "" {
		return "", errors.New("gemini api key and model are required")
	}

	body := geminiRequest{Contents: []geminiContent{{Parts: []geminiPart{{Text: prompt}}}}}
	payload, err := json.Marshal(body)
	if err != nil {
		return "", fmt.Errorf("marshal request: %w", err)
	}

	url := fmt.Sprintf("%s/%s:generateContent?key=%s", g.baseURL, g.model, g.apiKey)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(payload))
	if err != nil {
		return "", fmt.Errorf("new request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := g.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("request gemini: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		data, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		return "", fmt.Errorf("gemini status %d: %s", resp.StatusCode, strings.TrimSpace(string(data)))
	}

	var parsed geminiResponse
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return "", fmt.Errorf("decode response: %w", err)
	}

	text, err := extractText(parsed)
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(text), nil
}

type geminiRequest struct {
	Contents []geminiContent `json:"contents"`
}

type geminiContent struct {
	Parts []geminiPart `json:"parts"`
}

type geminiPart struct {
	Text string `json:"text"`
}

type geminiResponse struct {
	Candidates []struct {
		Content struct {
			Parts []struct {
				Text string `json:"text"`
			} `json:"parts"`
		} `json:"content"`
	} `json:"candidates"`
}

func extractText(resp geminiResponse) (string, error) {
	if len(resp.Candidates) == 0 {
		return "", errors.New("gemini response missing candidates")
	}
	parts := resp.Candidates[0].Content.Parts
	if len(parts) == 0 || strings.TrimSpace(parts[0].Text) == "" {
		return "", errors.New("gemini response missing text")
	}
	return parts[0].Text, nil
}

func truncateRunes(s string, n int) string {
	if utf8.RuneCountInString(s) <= n {
		return s
	}
	return string([]rune(s)[:n]) + truncationMarker
}

func (g *GeminiClient) warn(msg string, args ...any) {
	if g.logger != nil {
		g.logger.Warn(msg, args...)
	}
}
