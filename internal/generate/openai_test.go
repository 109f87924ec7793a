package generate

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
)

func TestOpenAIClient_MissingCredentialFailsBeforeTransport(t *testing.T) {
	var calls atomic.Int64
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
	}))
	defer srv.Close()

	c := NewOpenAIClient(OpenAIConfig{BaseURL: srv.URL}, nil)
	_, err := c.Generate(context.Background(), Request{Text: "text", Language: "English", Count: 5})
	if !errors.Is(err, ErrCredentialMissing) {
		t.Fatalf("expected ErrCredentialMissing, got %v", err)
	}
	if calls.Load() != 0 {
		t.Errorf("expected no transport calls, got %d", calls.Load())
	}
}

func TestOpenAIClient_AuthRejectionIsCredentialError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, `{"error":{"message":"invalid api key"}}`, http.StatusUnauthorized)
	}))
	defer srv.Close()

	c := NewOpenAIClient(OpenAIConfig{APIKey: "bad", BaseURL: srv.URL}, nil)
	_, err := c.Generate(context.Background(), Request{Text: "text", Language: "English", Count: 5})
	if !errors.Is(err, ErrCredential) {
		t.Fatalf("expected ErrCredential, got %v", err)
	}
}

func TestOpenAIClient_RateLimitIsRetryable(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "rate limited", http.StatusTooManyRequests)
	}))
	defer srv.Close()

	c := NewOpenAIClient(OpenAIConfig{APIKey: "key", BaseURL: srv.URL}, nil)
	_, err := c.Generate(context.Background(), Request{Text: "text", Language: "English", Count: 5})
	var retryErr *RetryableError
	if !errors.As(err, &retryErr) {
		t.Fatalf("expected RetryableError, got %v", err)
	}
	if retryErr.StatusCode != http.StatusTooManyRequests {
		t.Errorf("expected status 429, got %d", retryErr.StatusCode)
	}
}

func TestOpenAIClient_ParsesStructuredResponse(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if got := r.Header.Get("Authorization"); got != "Bearer key" {
			t.Errorf("unexpected auth header %q", got)
		}
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"choices":[{"message":{"content":"[{\"question\":\"Q1\",\"answer\":\"A1\",\"card_type\":\"Definition\"}]"}}]}`))
	}))
	defer srv.Close()

	c := NewOpenAIClient(OpenAIConfig{APIKey: "key", BaseURL: srv.URL}, nil)
	records, err := c.Generate(context.Background(), Request{Text: "text", Language: "English", Count: 5})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(records) != 1 || records[0].Question != "Q1" {
		t.Fatalf("unexpected records: %+v", records)
	}
}

func TestOpenAIClient_CountCapsRecords(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"choices":[{"message":{"content":"[{\"question\":\"Q1\",\"answer\":\"A1\"},{\"question\":\"Q2\",\"answer\":\"A2\"},{\"question\":\"Q3\",\"answer\":\"A3\"}]"}}]}`))
	}))
	defer srv.Close()

	c := NewOpenAIClient(OpenAIConfig{APIKey: "key", BaseURL: srv.URL}, nil)
	records, err := c.Generate(context.Background(), Request{Text: "text", Language: "English", Count: 2})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(records) != 2 {
		t.Fatalf("expected records capped at 2, got %d", len(records))
	}
}

func TestClassifyAuth(t *testing.T) {
	if err := classifyAuth(errors.New("Incorrect API key provided")); !errors.Is(err, ErrCredential) {
		t.Errorf("api key message should classify as credential error, got %v", err)
	}
	if err := classifyAuth(errors.New("authentication failed")); !errors.Is(err, ErrCredential) {
		t.Errorf("auth message should classify as credential error, got %v", err)
	}
	plain := errors.New("model overloaded")
	if err := classifyAuth(plain); errors.Is(err, ErrCredential) {
		t.Errorf("unrelated message should not classify as credential error")
	}
}
