package persona

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

func TestLanguageName(t *testing.T) {
	cases := []struct {
		code string
		want string
	}{
		{"ar", "Arabic"},
		{"en", "English"},
		{"fr", "French"},
		{"not-a-code!", "not-a-code!"},
	}
	for _, tc := range cases {
		if got := languageName(tc.code); got != tc.want {
			t.Fatalf("languageName(%q) = %q, want %q", tc.code, got, tc.want)
		}
	}
}

func chatStub(t *testing.T, reply string, sawSystem *string) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !strings.HasSuffix(r.URL.Path, "/chat/completions") {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		var req struct {
			Messages []struct {
				Role    string `json:"role"`
				Content string `json:"content"`
			} `json:"messages"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Errorf("decode request: %v", err)
		}
		if len(req.Messages) > 0 && sawSystem != nil {
			*sawSystem = req.Messages[0].Content
		}
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]any{
			"choices": []map[string]any{
				{"message": map[string]any{"role": "assistant", "content": reply}},
			},
		})
	}))
}

func TestReplySpeaksAsPersona(t *testing.T) {
	var system string
	ts := chatStub(t, "I miss you too.", &system)
	defer ts.Close()

	c := NewClient(Config{APIKey: "k", BaseURL: ts.URL})
	got, err := c.Reply(context.Background(), "Jamil", "daughter", "I miss you")
	if err != nil {
		t.Fatalf("Reply() error = %v", err)
	}
	if got != "I miss you too." {
		t.Fatalf("Reply() = %q", got)
	}
	if !strings.Contains(system, "Jamil") || !strings.Contains(system, "daughter") {
		t.Fatalf("system prompt missing persona context: %q", system)
	}
}

func TestTranslateNamesLanguage(t *testing.T) {
	var system string
	ts := chatStub(t, "مرحبا", &system)
	defer ts.Close()

	c := NewClient(Config{APIKey: "k", BaseURL: ts.URL})
	got, err := c.Translate(context.Background(), "hello", "ar")
	if err != nil {
		t.Fatalf("Translate() error = %v", err)
	}
	if got != "مرحبا" {
		t.Fatalf("Translate() = %q", got)
	}
	if !strings.Contains(system, "Arabic") {
		t.Fatalf("system prompt should name the language: %q", system)
	}
}

func TestCompleteEmptyChoices(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]any{"choices": []any{}})
	}))
	defer ts.Close()

	c := NewClient(Config{APIKey: "k", BaseURL: ts.URL})
	if _, err := c.Reply(context.Background(), "a", "b", "hi"); err == nil {
		t.Fatal("Reply() with no choices should fail")
	}
}
