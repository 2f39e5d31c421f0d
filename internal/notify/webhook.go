// Package notify implements the best-effort webhook notifier. The core
// calls it and moves on: delivery happens on a background goroutine,
// failures are logged and swallowed, and nothing here can fail or block a
// request.
package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"time"

	"github.com/scriptvoid/scriptvoid/internal/model"
	"github.com/scriptvoid/scriptvoid/internal/queue"
	queue_publisher "github.com/scriptvoid/scriptvoid/internal/service"
)

// Webhook posts Discord-style JSON messages to a configured URL and
// mirrors the same events onto the message broker. An empty URL disables
// the HTTP leg; the broker leg is always attempted.
type Webhook struct {
	URL    string
	Client *http.Client
}

// NewWebhook builds a notifier. url may be empty.
func NewWebhook(url string) *Webhook {
	return &Webhook{
		URL:    url,
		Client: &http.Client{Timeout: 5 * time.Second},
	}
}

// ScriptPublished announces a new script. Fire-and-forget.
func (w *Webhook) ScriptPublished(s model.Script) {
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		_ = queue_publisher.PublishScriptPublished(ctx, queue.ScriptPublishedEvent{
			ScriptID:      s.ID,
			OwnerID:       s.OwnerID,
			OwnerUsername: s.OwnerUsername,
			Title:         s.Title,
			Multiplier:    s.Multiplier,
			PublishedAt:   time.Now().UTC().Format(time.RFC3339),
		})
		w.post(ctx, fmt.Sprintf("New script by %s: %s", s.OwnerUsername, s.Title))
	}()
}

// PromotionRedeemed announces a successful code redemption. Fire-and-forget.
func (w *Webhook) PromotionRedeemed(s model.Script, codeType, tier string) {
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		_ = queue_publisher.PublishPromotionRedeemed(ctx, queue.PromotionRedeemedEvent{
			ScriptID:      s.ID,
			OwnerUsername: s.OwnerUsername,
			CodeType:      codeType,
			Tier:          tier,
			RedeemedAt:    time.Now().UTC().Format(time.RFC3339),
		})
		if tier != "" {
			w.post(ctx, fmt.Sprintf("%s promoted %q to tier %s", s.OwnerUsername, s.Title, tier))
		} else {
			w.post(ctx, fmt.Sprintf("%s reset the age of %q", s.OwnerUsername, s.Title))
		}
	}()
}

// post sends one webhook message. Errors are logged, never propagated.
func (w *Webhook) post(ctx context.Context, content string) {
	if w.URL == "" {
		return
	}
	body, err := json.Marshal(map[string]string{"content": content})
	if err != nil {
		log.Printf("[NOTIFY] marshal failed: %v", err)
		return
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, w.URL, bytes.NewReader(body))
	if err != nil {
		log.Printf("[NOTIFY] request build failed: %v", err)
		return
	}
	req.Header.Set("Content-Type", "application/json")
	resp, err := w.Client.Do(req)
	if err != nil {
		log.Printf("[NOTIFY] webhook post failed: %v", err)
		return
	}
	_ = resp.Body.Close()
}
