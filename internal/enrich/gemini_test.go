package enrich

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/alekseyt9/newswatch/internal/domain"
)

func geminiStub(t *testing.T, reply string, gotPrompts *[]string) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req geminiRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Errorf("decode request: %v", err)
		}
		if gotPrompts != nil && len(req.Contents) > 0 && len(req.Contents[0].Parts) > 0 {
			*gotPrompts = append(*gotPrompts, req.Contents[0].Parts[0].Text)
		}

		var resp geminiResponse
		resp.Candidates = make([]struct {
			Content struct {
				Parts []struct {
					Text string `json:"text"`
				} `json:"parts"`
			} `json:"content"`
		}, 1)
		resp.Candidates[0].Content.Parts = []struct {
			Text string `json:"text"`
		}{{Text: reply}}
		_ = json.NewEncoder(w).Encode(resp)
	}))
}

func TestEnrichSummarizesAbstract(t *testing.T) {
	var prompts []string
	server := geminiStub(t, " 요약된 내용입니다. ", &prompts)
	defer server.Close()

	g := NewGeminiClient("key", "model", server.URL, server.Client(), nil)
	got := g.Enrich(context.Background(), domain.Item{
		Title:    "Big model released",
		Abstract: "A lab released a new model today.",
	})

	if got.EnrichedText != "요약된 내용입니다." {
		t.Fatalf("unexpected text: %q", got.EnrichedText)
	}
	if !got.Enriched {
		t.Fatalf("successful call must mark the item enriched")
	}
	if !got.FromAbstract {
		t.Fatalf("expected FromAbstract=true for a non-empty abstract")
	}
	if len(prompts) != 1 || !strings.Contains(prompts[0], "초록: A lab released") {
		t.Fatalf("prompt must carry the abstract: %v", prompts)
	}
}

func TestEnrichTranslatesTitleOnly(t *testing.T) {
	var prompts []string
	server := geminiStub(t, "번역된 제목", &prompts)
	defer server.Close()

	g := NewGeminiClient("key", "model", server.URL, server.Client(), nil)
	got := g.Enrich(context.Background(), domain.Item{Title: "Model released", Abstract: "   "})

	if got.FromAbstract {
		t.Fatalf("blank abstract must be treated as empty")
	}
	if got.EnrichedText != "번역된 제목" {
		t.Fatalf("unexpected text: %q", got.EnrichedText)
	}
	if len(prompts) != 1 || strings.Contains(prompts[0], "초록") {
		t.Fatalf("title-only prompt must not mention an abstract: %v", prompts)
	}
}

func TestEnrichFallsBackOnServiceError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
	}))
	defer server.Close()

	g := NewGeminiClient("key", "model", server.URL, server.Client(), nil)
	got := g.Enrich(context.Background(), domain.Item{Title: "Original title", Abstract: "has abstract"})

	if got.EnrichedText != "Original title" {
		t.Fatalf("expected title fallback, got %q", got.EnrichedText)
	}
	if got.Enriched {
		t.Fatalf("fallback must not mark the item enriched")
	}
	if got.FromAbstract {
		t.Fatalf("failed enrichment must not claim FromAbstract")
	}
}

func TestEnrichFallsBackOnMalformedResponse(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode(geminiResponse{})
	}))
	defer server.Close()

	g := NewGeminiClient("key", "model", server.URL, server.Client(), nil)
	got := g.Enrich(context.Background(), domain.Item{Title: "Keep me"})
	if got.EnrichedText != "Keep me" || got.FromAbstract {
		t.Fatalf("unexpected fallback result: %+v", got)
	}
}

func TestEnrichManyKeepsOrderAndIsolatesFailures(t *testing.T) {
	calls := 0
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		if calls == 2 {
			w.WriteHeader(http.StatusInternalServerError)
			return
		}
		var resp geminiResponse
		resp.Candidates = make([]struct {
			Content struct {
				Parts []struct {
					Text string `json:"text"`
				} `json:"parts"`
			} `json:"content"`
		}, 1)
		resp.Candidates[0].Content.Parts = []struct {
			Text string `json:"text"`
		}{{Text: "ok"}}
		_ = json.NewEncoder(w).Encode(resp)
	}))
	defer server.Close()

	g := NewGeminiClient("key", "model", server.URL, server.Client(), nil)
	items := []domain.Item{
		{Title: "one", Abstract: "a"},
		{Title: "two", Abstract: "b"},
		{Title: "three", Abstract: "c"},
	}

	got := g.EnrichMany(context.Background(), items, 0)
	if len(got) != 3 {
		t.Fatalf("expected 3 results, got %d", len(got))
	}
	if got[0].EnrichedText != "ok" || !got[0].Enriched || got[2].EnrichedText != "ok" || !got[2].Enriched {
		t.Fatalf("healthy items must be enriched: %+v", got)
	}
	if got[1].EnrichedText != "two" || got[1].Enriched || got[1].FromAbstract {
		t.Fatalf("failed item must fall back to its title: %+v", got[1])
	}
}

func TestPromptTruncatesLongAbstract(t *testing.T) {
	t.Parallel()

	long := strings.Repeat("가", maxPromptAbstract+50)
	prompt := buildPrompt(domain.Item{Title: "t", Abstract: long}, true)
	if !strings.Contains(prompt, truncationMarker) {
		t.Fatalf("capped abstract must carry the truncation marker")
	}
	if strings.Count(prompt, "가") != maxPromptAbstract {
		t.Fatalf("abstract not capped at %d chars", maxPromptAbstract)
	}
}

func TestEnrichManyDelayBetweenCalls(t *testing.T) {
	var times []time.Time
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		times = append(times, time.Now())
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer server.Close()

	g := NewGeminiClient("key", "model", server.URL, server.Client(), nil)
	g.EnrichMany(context.Background(), []domain.Item{{Title: "a"}, {Title: "b"}}, 30*time.Millisecond)

	if len(times) != 2 {
		t.Fatalf("expected 2 calls, got %d", len(times))
	}
	if gap := times[1].Sub(times[0]); gap < 25*time.Millisecond {
		t.Fatalf("expected inter-call delay, got %v", gap)
	}
}
