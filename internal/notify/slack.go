// Package notify delivers rendered digests to a Slack incoming webhook.
// Payloads are chunked so no single call exceeds the transport byte
// ceiling; a missing webhook degrades to a logged local preview.
package notify

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

	"github.com/alekseyt9/newswatch/internal/digest"
	"github.com/alekseyt9/newswatch/internal/ports"
)

// DefaultMaxBytes leaves headroom under Slack's 40KB message limit.
const DefaultMaxBytes = 39000

const (
	continuesNotice   = "\n\n_(계속)_"
	truncatedNotice   = "\n\n_... 메시지가 너무 길어 잘렸습니다_"
	previewBlockLimit = 5
)

// WebhookNotifier implements ports.Notifier over a Slack incoming webhook.
type WebhookNotifier struct {
	webhookURL string
	client     *http.Client
	logger     *slog.Logger

	// maxBytes is the per-call payload-text ceiling in bytes.
	maxBytes int
	// firstItems is how many leading blocks ride with the title message.
	firstItems int
	// chunkItems is how many blocks each continuation message holds.
	chunkItems int
	// sendDelay paces continuation sends against the webhook rate limit.
	sendDelay time.Duration
}

var _ ports.Notifier = (*WebhookNotifier)(nil)

// NewWebhookNotifier builds a notifier. An empty webhookURL is valid and
// selects the preview-only degraded mode.
func NewWebhookNotifier(webhookURL string, firstItems, chunkItems int, sendDelay time.Duration, client *http.Client, logger *slog.Logger) *WebhookNotifier {
	if client == nil {
		client = &http.Client{Timeout: 15 * time.Second}
	}
	if firstItems <= 0 {
		firstItems = 10
	}
	if chunkItems <= 0 {
		chunkItems = firstItems
	}
	return &WebhookNotifier{
		webhookURL: webhookURL,
		client:     client,
		logger:     logger,
		maxBytes:   DefaultMaxBytes,
		firstItems: firstItems,
		chunkItems: chunkItems,
		sendDelay:  sendDelay,
	}
}

// Dispatch sends the digest: one title message carrying the leading blocks,
// then independent continuation messages for the rest. Delivery across
// chunks is at-least-once, not atomic: a failed chunk is logged and lost,
// chunks before and after it still go out.
func (n *WebhookNotifier) Dispatch(ctx context.Context, title string, blocks []string) error {
	if n.webhookURL == "" {
		n.preview(title, blocks)
		return nil
	}

	head := blocks
	if len(head) > n.firstItems {
		head = blocks[:n.firstItems]
	}
	rest := blocks[len(head):]

	first := "*" + title + "*\n" + digest.Join(head)
	if len(rest) > 0 {
		first += continuesNotice
	}

	var errs []error
	if err := n.post(ctx, first); err != nil {
		errs = append(errs, fmt.Errorf("first chunk: %w", err))
		n.warn("digest chunk failed", "chunk", 0, "error", err)
	}

	for i := 0; len(rest) > 0; i++ {
		chunk := rest
		if len(chunk) > n.chunkItems {
			chunk = rest[:n.chunkItems]
		}
		rest = rest[len(chunk):]

		if n.sendDelay > 0 {
			select {
			case <-time.After(n.sendDelay):
			case <-ctx.Done():
				errs = append(errs, ctx.Err())
				return errors.Join(errs...)
			}
		}

		if err := n.post(ctx, digest.Join(chunk)); err != nil {
			errs = append(errs, fmt.Errorf("chunk %d: %w", i+1, err))
			n.warn("digest chunk failed", "chunk", i+1, "error", err)
		}
	}

	return errors.Join(errs...)
}

// post sends one webhook call, hard-truncating the text at a UTF-8-safe
// boundary below the byte ceiling as a last resort.
func (n *WebhookNotifier) post(ctx context.Context, text string) error {
	text = truncateBytes(text, n.maxBytes)

	payload, err := json.Marshal(map[string]string{"text": text})
	if err != nil {
		return fmt.Errorf("marshal payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, n.webhookURL, bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("new request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := n.client.Do(req)
	if err != nil {
		return fmt.Errorf("do request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return fmt.Errorf("slack error %s: %s", resp.Status, strings.TrimSpace(string(body)))
	}
	return nil
}

// truncateBytes cuts s below max bytes without splitting a codepoint,
// appending a truncation notice when anything was dropped.
func truncateBytes(s string, max int) string {
	if len(s) <= max {
		return s
	}

	cut := max - len(truncatedNotice)
	if cut <= 0 {
		// Ceiling smaller than the notice itself: cut without it.
		cut = max
		for cut > 0 && !isRuneStart(s[cut]) {
			cut--
		}
		return s[:cut]
	}
	for cut > 0 && !isRuneStart(s[cut]) {
		cut--
	}
	return s[:cut] + truncatedNotice
}

func isRuneStart(b byte) bool {
	return b&0xC0 != 0x80
}

func (n *WebhookNotifier) preview(title string, blocks []string) {
	shown := blocks
	if len(shown) > previewBlockLimit {
		shown = blocks[:previewBlockLimit]
	}
	n.info("webhook not configured, digest preview only",
		"title", title,
		"blocks", len(blocks),
		"preview", digest.Join(shown))
}

func (n *WebhookNotifier) info(msg string, args ...any) {
	if n.logger != nil {
		n.logger.Info(msg, args...)
	}
}

func (n *WebhookNotifier) warn(msg string, args ...any) {
	if n.logger != nil {
		n.logger.Warn(msg, args...)
	}
}
