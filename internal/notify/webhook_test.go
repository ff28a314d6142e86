package notify

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"go.uber.org/multierr"
	"go.uber.org/zap"
)

func TestWebhook_PostsPayload(t *testing.T) {
	var received WebhookPayload
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			t.Errorf("expected POST, got %s", r.Method)
		}
		if ct := r.Header.Get("Content-Type"); ct != "application/json" {
			t.Errorf("expected Content-Type application/json, got %s", ct)
		}
		if err := json.NewDecoder(r.Body).Decode(&received); err != nil {
			t.Errorf("failed to decode body: %s", err)
		}
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	if err := NewWebhook(srv.URL).Send(context.Background(), "Site down: A", "https://a is not responding"); err != nil {
		t.Fatalf("Send: %v", err)
	}
	if received.Title != "Site down: A" || received.Status != "alert" || received.SentAt.IsZero() {
		t.Fatalf("unexpected payload: %+v", received)
	}
}

func TestWebhook_NilWhenUnconfigured(t *testing.T) {
	if NewWebhook("") != nil {
		t.Fatal("expected nil webhook for empty url")
	}
	var w *Webhook
	if err := w.Send(context.Background(), "x", "y"); err == nil {
		t.Fatal("expected error from nil webhook")
	}
}

func TestMulti_TriesAllAndCombinesErrors(t *testing.T) {
	var calls []string
	errA := errors.New("a failed")
	errC := errors.New("c failed")
	m := Multi{
		Func(func(_ context.Context, title, _ string) error { calls = append(calls, "a"); return errA }),
		nil,
		Func(func(_ context.Context, _, _ string) error { calls = append(calls, "b"); return nil }),
		Func(func(_ context.Context, _, _ string) error { calls = append(calls, "c"); return errC }),
	}

	err := m.Send(context.Background(), "t", "x")
	if strings.Join(calls, ",") != "a,b,c" {
		t.Fatalf("every sink must be tried, got %v", calls)
	}
	if errs := multierr.Errors(err); len(errs) != 2 || !errors.Is(err, errA) || !errors.Is(err, errC) {
		t.Fatalf("unexpected combined error: %v", err)
	}
}

func TestLog_NeverFails(t *testing.T) {
	if err := (Log{Logger: zap.NewNop()}).Send(context.Background(), "t", "b"); err != nil {
		t.Fatalf("log sink returned %v", err)
	}
}
