package provider

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
)

func newTestClient(serverURL string, opts ...Option) *Client {
	base := []Option{
		WithEndpoint(serverURL, "test-model"),
		WithRateLimit(6000, 100),
		WithRetry(2),
	}
	return NewClient("sk-test-key-0123456789", append(base, opts...)...)
}

func TestClientComplete(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/chat/completions" {
			t.Errorf("path = %q, want /chat/completions", r.URL.Path)
		}
		if got := r.Header.Get("Authorization"); got != "Bearer sk-test-key-0123456789" {
			t.Errorf("authorization = %q", got)
		}
		w.Write([]byte(`{
			"choices": [{"message": {"content": "{\"narration\": \"ok\"}"}}],
			"usage": {"total_tokens": 123}
		}`))
	}))
	defer server.Close()

	c := newTestClient(server.URL)
	got, err := c.Complete(context.Background(), "system", "user")
	if err != nil {
		t.Fatalf("Complete() error = %v", err)
	}
	if got.Text != `{"narration": "ok"}` {
		t.Errorf("text = %q", got.Text)
	}
	if got.TokenCount != 123 {
		t.Errorf("token count = %d, want 123", got.TokenCount)
	}
}

func TestClientErrorClassification(t *testing.T) {
	tests := []struct {
		name      string
		status    int
		wantIs    error
		wantAsReq bool
	}{
		{"429 is rate limited", http.StatusTooManyRequests, ErrRateLimited, false},
		{"401 is bad credentials", http.StatusUnauthorized, ErrInvalidCredentials, false},
		{"400 is request error", http.StatusBadRequest, nil, true},
		{"503 is unavailable", http.StatusServiceUnavailable, ErrProviderUnavailable, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
				w.Write([]byte(`upstream says no`))
			}))
			defer server.Close()

			c := newTestClient(server.URL, WithRetry(0))
			_, err := c.Complete(context.Background(), "system", "user")
			if err == nil {
				t.Fatal("want error")
			}
			if tt.wantIs != nil && !errors.Is(err, tt.wantIs) {
				t.Errorf("err = %v, want errors.Is %v", err, tt.wantIs)
			}
			if tt.wantAsReq {
				var reqErr *RequestError
				if !errors.As(err, &reqErr) {
					t.Fatalf("err = %v, want RequestError", err)
				}
				if reqErr.Message != "upstream says no" {
					t.Errorf("upstream message = %q", reqErr.Message)
				}
			}
		})
	}
}

func TestClientDoesNotRetryCredentialErrors(t *testing.T) {
	var calls atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusUnauthorized)
	}))
	defer server.Close()

	c := newTestClient(server.URL, WithRetry(3))
	_, err := c.Complete(context.Background(), "system", "user")
	if !errors.Is(err, ErrInvalidCredentials) {
		t.Fatalf("err = %v, want ErrInvalidCredentials", err)
	}
	if calls.Load() != 1 {
		t.Errorf("calls = %d, want 1 (no retries)", calls.Load())
	}
}

func TestClientRetriesTransientFailures(t *testing.T) {
	var calls atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) < 2 {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		w.Write([]byte(`{"choices": [{"message": {"content": "recovered"}}], "usage": {"total_tokens": 5}}`))
	}))
	defer server.Close()

	c := newTestClient(server.URL, WithRetry(2))
	got, err := c.Complete(context.Background(), "system", "user")
	if err != nil {
		t.Fatalf("Complete() error = %v", err)
	}
	if got.Text != "recovered" {
		t.Errorf("text = %q", got.Text)
	}
	if calls.Load() != 2 {
		t.Errorf("calls = %d, want 2", calls.Load())
	}
}

func TestModerationClient(t *testing.T) {
	t.Run("flagged content", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Write([]byte(`{"results": [{"flagged": true}]}`))
		}))
		defer server.Close()

		c := NewModerationClient("sk-test", WithModerationEndpoint(server.URL))
		flagged, err := c.Moderate(context.Background(), "bad input")
		if err != nil {
			t.Fatal(err)
		}
		if !flagged {
			t.Error("want flagged = true")
		}
	})

	t.Run("provider outage surfaces as error for fail-open handling", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusServiceUnavailable)
		}))
		defer server.Close()

		c := NewModerationClient("sk-test", WithModerationEndpoint(server.URL))
		flagged, err := c.Moderate(context.Background(), "anything")
		if err == nil {
			t.Fatal("want error on outage")
		}
		if flagged {
			t.Error("outage must not report flagged")
		}
	})
}

func TestImageClient(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/images/generations" {
			t.Errorf("path = %q", r.URL.Path)
		}
		w.Write([]byte(`{"data": [{"url": "https://img.example.com/1.png"}]}`))
	}))
	defer server.Close()

	c := NewImageClient("sk-test", WithImageEndpoint(server.URL))
	url, err := c.Generate(context.Background(), ImageRequest{Prompt: "a castle", Model: "img-large"})
	if err != nil {
		t.Fatal(err)
	}
	if url != "https://img.example.com/1.png" {
		t.Errorf("url = %q", url)
	}
}

func TestImageClientContentPolicyRejection(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		w.Write([]byte(`content policy violation`))
	}))
	defer server.Close()

	c := NewImageClient("sk-test", WithImageEndpoint(server.URL))
	_, err := c.Generate(context.Background(), ImageRequest{Prompt: "something rejected"})
	var reqErr *RequestError
	if !errors.As(err, &reqErr) {
		t.Fatalf("err = %v, want RequestError", err)
	}
}
