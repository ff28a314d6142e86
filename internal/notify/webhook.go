package notify

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"
)

// WebhookPayload is the JSON body POSTed to a generic alert webhook.
type WebhookPayload struct {
	Title   string    `json:"title"`
	Message string    `json:"message"`
	Status  string    `json:"status"`
	SentAt  time.Time `json:"sent_at"`
}

type Webhook struct {
	URL    string
	Client *http.Client
}

func NewWebhook(url string) *Webhook {
	if url == "" {
		return nil
	}
	return &Webhook{URL: url, Client: &http.Client{Timeout: 10 * time.Second}}
}

func (w *Webhook) Send(ctx context.Context, title, text string) error {
	if w == nil || w.URL == "" {
		return errors.New("webhook disabled")
	}
	body, err := json.Marshal(WebhookPayload{
		Title:   title,
		Message: text,
		Status:  "alert",
		SentAt:  time.Now().UTC(),
	})
	if err != nil {
		return err
	}
	return postJSON(ctx, w.Client, w.URL, body)
}
