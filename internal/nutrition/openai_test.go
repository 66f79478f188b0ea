package nutrition

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"reflect"
	"sync"
	"testing"
	"time"
)

// fakeOpenAI records the models requested and answers per model.
type fakeOpenAI struct {
	mu       sync.Mutex
	models   []string
	respond  func(model string) (status int, body string)
	requests int
}

func (f *fakeOpenAI) handler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var payload struct {
			Model string `json:"model"`
		}
		if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
			http.Error(w, "bad payload", http.StatusBadRequest)
			return
		}

		f.mu.Lock()
		f.models = append(f.models, payload.Model)
		f.requests++
		f.mu.Unlock()

		status, body := f.respond(payload.Model)
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		fmt.Fprint(w, body)
	}
}

func completionBody(content string) string {
	wrapped, _ := json.Marshal(content)
	return fmt.Sprintf(`{"choices":[{"message":{"content":%s}}]}`, wrapped)
}

func newTestAnalyzer(t *testing.T, model string, fake *fakeOpenAI) *OpenAIAnalyzer {
	t.Helper()
	srv := httptest.NewServer(fake.handler())
	t.Cleanup(srv.Close)

	a := NewOpenAIAnalyzer("test-key", "", model, 5*time.Second)
	a.baseURL = srv.URL
	return a
}

func TestInferMissingKey(t *testing.T) {
	fake := &fakeOpenAI{respond: func(string) (int, string) {
		return http.StatusOK, completionBody(`{"is_food":true,"items":[]}`)
	}}
	srv := httptest.NewServer(fake.handler())
	defer srv.Close()

	a := NewOpenAIAnalyzer("", "", "gpt-4o-mini", time.Second)
	a.baseURL = srv.URL

	_, err := a.Infer(context.Background(), "QUJD")
	if !errors.Is(err, ErrNotConfigured) {
		t.Fatalf("want ErrNotConfigured, got %v", err)
	}
	if fake.requests != 0 {
		t.Fatalf("no network call expected, got %d", fake.requests)
	}
}

func TestInferSuccessFirstCandidate(t *testing.T) {
	fake := &fakeOpenAI{respond: func(string) (int, string) {
		return http.StatusOK, completionBody(`{"is_food":true,"items":[{"name":"apple","calories":95,"protein":0.5,"carbs":25,"fat":0.3}]}`)
	}}
	a := newTestAnalyzer(t, "gpt-4o-mini", fake)

	result, err := a.Infer(context.Background(), "QUJD")
	if err != nil {
		t.Fatalf("Infer: %v", err)
	}
	if !result.IsFood || len(result.Items) != 1 || result.Items[0].Name != "apple" {
		t.Fatalf("unexpected result: %+v", result)
	}
	if fake.requests != 1 {
		t.Fatalf("requests = %d, want 1", fake.requests)
	}
}

func TestInferFallsBackOnAccessDenial(t *testing.T) {
	fake := &fakeOpenAI{respond: func(model string) (int, string) {
		if model == "gpt-4o-mini" {
			return http.StatusForbidden, `{"error":{"message":"project does not have access"}}`
		}
		return http.StatusOK, completionBody(`{"is_food":true,"items":[{"name":"toast","calories":80}]}`)
	}}
	a := newTestAnalyzer(t, "gpt-4o-mini", fake)

	result, err := a.Infer(context.Background(), "QUJD")
	if err != nil {
		t.Fatalf("Infer: %v", err)
	}
	if len(result.Items) != 1 || result.Items[0].Name != "toast" {
		t.Fatalf("unexpected result: %+v", result)
	}
	if want := []string{"gpt-4o-mini", "gpt-4o"}; !reflect.DeepEqual(fake.models, want) {
		t.Fatalf("models tried = %v, want %v", fake.models, want)
	}
}

func TestInferAbortsOnNonAccessError(t *testing.T) {
	fake := &fakeOpenAI{respond: func(string) (int, string) {
		return http.StatusTooManyRequests, `{"error":{"message":"rate limit exceeded"}}`
	}}
	a := newTestAnalyzer(t, "gpt-4o-mini", fake)

	_, err := a.Infer(context.Background(), "QUJD")
	if err == nil {
		t.Fatal("expected error")
	}
	if errors.Is(err, ErrModelAccess) {
		t.Fatalf("rate limiting must not classify as access denial: %v", err)
	}
	if fake.requests != 1 {
		t.Fatalf("requests = %d, want 1 (no fallback)", fake.requests)
	}
}

func TestInferMalformedReplyNotRetried(t *testing.T) {
	fake := &fakeOpenAI{respond: func(string) (int, string) {
		return http.StatusOK, completionBody("this is not json")
	}}
	a := newTestAnalyzer(t, "gpt-4o-mini", fake)

	_, err := a.Infer(context.Background(), "QUJD")
	if !errors.Is(err, ErrMalformedReply) {
		t.Fatalf("want ErrMalformedReply, got %v", err)
	}
	if fake.requests != 1 {
		t.Fatalf("requests = %d, want 1 (parse failures are terminal)", fake.requests)
	}
}

func TestInferExhaustionReportsAccessDenial(t *testing.T) {
	fake := &fakeOpenAI{respond: func(string) (int, string) {
		return http.StatusForbidden, `{"error":{"message":"model_not_found"}}`
	}}
	a := newTestAnalyzer(t, "gpt-4o-mini", fake)

	_, err := a.Infer(context.Background(), "QUJD")
	if !errors.Is(err, ErrModelAccess) {
		t.Fatalf("want ErrModelAccess, got %v", err)
	}
	if fake.requests != 2 {
		t.Fatalf("requests = %d, want 2 (both candidates tried)", fake.requests)
	}
}

func TestCandidateOrdering(t *testing.T) {
	tests := []struct {
		primary string
		want    []string
	}{
		{"gpt-4o-mini", []string{"gpt-4o-mini", "gpt-4o"}},
		{"gpt-4o", []string{"gpt-4o", "gpt-4o-mini"}},
		{"some-custom-model", []string{"some-custom-model", "gpt-4o"}},
	}
	for _, tt := range tests {
		a := NewOpenAIAnalyzer("k", "", tt.primary, time.Second)
		if got := a.candidates(); !reflect.DeepEqual(got, tt.want) {
			t.Errorf("candidates(%q) = %v, want %v", tt.primary, got, tt.want)
		}
	}
}

func TestAccessDeniedClassifier(t *testing.T) {
	tests := []struct {
		msg  string
		want bool
	}{
		{"openai status 403: forbidden", true},
		{"the model `gpt-4o` does not exist", true},
		{"project does not have access", true},
		{"openai status 429: rate limit exceeded", false},
		{"connection refused", false},
	}
	for _, tt := range tests {
		if got := accessDenied(errors.New(tt.msg)); got != tt.want {
			t.Errorf("accessDenied(%q) = %v, want %v", tt.msg, got, tt.want)
		}
	}
	if accessDenied(nil) {
		t.Error("accessDenied(nil) must be false")
	}
}
