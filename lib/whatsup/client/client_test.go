package whatsappclient

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

type webhookRecorder struct {
	mu       sync.Mutex
	failFor  int
	payloads []map[string]interface{}
}

func (w *webhookRecorder) handler(rw http.ResponseWriter, r *http.Request) {
	w.mu.Lock()
	defer w.mu.Unlock()
	body, _ := io.ReadAll(r.Body)
	payload := map[string]interface{}{}
	_ = json.Unmarshal(body, &payload)
	w.payloads = append(w.payloads, payload)
	if len(w.payloads) <= w.failFor {
		rw.WriteHeader(http.StatusBadGateway)
		return
	}
	rw.WriteHeader(http.StatusOK)
}

func (w *webhookRecorder) count() int {
	w.mu.Lock()
	defer w.mu.Unlock()
	return len(w.payloads)
}

func TestSend(t *testing.T) {
	t.Run("payload check", func(t *testing.T) {
		rec := &webhookRecorder{}
		server := httptest.NewServer(http.HandlerFunc(rec.handler))
		defer server.Close()

		client := NewClient(Config{WebhookURL: server.URL, InstanceName: "rh", ApiKey: "secret"})
		attempts, err := client.Send(context.Background(), Message{
			Number:   "5511987654321",
			Text:     "olá",
			Link:     "http://front/aprovacaop/1?token=abc",
			Metadata: map[string]string{"approval_id": "1"},
		})
		require.NoError(t, err)
		require.Equal(t, 1, attempts)
		require.Equal(t, 1, rec.count())
		payload := rec.payloads[0]
		require.Equal(t, "5511987654321", payload["number"])
		require.Equal(t, "olá", payload["text"])
		require.Equal(t, "http://front/aprovacaop/1?token=abc", payload["link"])
		require.Equal(t, "rh", payload["instance_name"])
		require.Equal(t, "secret", payload["apikey"])
		require.Equal(t, map[string]interface{}{"approval_id": "1"}, payload["metadata"])
	})

	t.Run("retry then success check", func(t *testing.T) {
		rec := &webhookRecorder{failFor: 2}
		server := httptest.NewServer(http.HandlerFunc(rec.handler))
		defer server.Close()

		client := NewClient(Config{WebhookURL: server.URL, RetryDelay: time.Millisecond})
		attempts, err := client.Send(context.Background(), Message{Number: "5511987654321", Text: "x"})
		require.NoError(t, err)
		require.Equal(t, 3, attempts)
	})

	t.Run("all attempts fail check", func(t *testing.T) {
		rec := &webhookRecorder{failFor: 10}
		server := httptest.NewServer(http.HandlerFunc(rec.handler))
		defer server.Close()

		client := NewClient(Config{WebhookURL: server.URL, Attempts: 2, RetryDelay: time.Millisecond})
		attempts, err := client.Send(context.Background(), Message{Number: "5511987654321", Text: "x"})
		require.Error(t, err)
		require.Equal(t, 2, attempts)
		require.Equal(t, 2, rec.count())
	})

	t.Run("not configured check", func(t *testing.T) {
		client := NewClient(Config{})
		require.False(t, client.IsConfigured())
		attempts, err := client.Send(context.Background(), Message{Number: "5511987654321"})
		require.Error(t, err)
		require.Zero(t, attempts)
	})

	t.Run("empty number check", func(t *testing.T) {
		client := NewClient(Config{WebhookURL: "http://127.0.0.1:1"})
		attempts, err := client.Send(context.Background(), Message{})
		require.Error(t, err)
		require.Zero(t, attempts)
	})

	t.Run("cancelled context check", func(t *testing.T) {
		ctx, cancel := context.WithCancel(context.Background())
		cancel()
		client := NewClient(Config{WebhookURL: "http://127.0.0.1:1"})
		attempts, err := client.Send(ctx, Message{Number: "5511987654321"})
		require.ErrorIs(t, err, context.Canceled)
		require.Zero(t, attempts)
	})
}
