package vision

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"productstudio/internal/domain"
)

func completionResponse(content string) string {
	payload := map[string]any{
		"choices": []map[string]any{
			{"message": map[string]any{"content": content}},
		},
	}
	b, _ := json.Marshal(payload)
	return string(b)
}

func newTestAnalyzer(t *testing.T, handler http.HandlerFunc) (*OpenAIAnalyzer, *httptest.Server) {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	analyzer, err := NewOpenAIAnalyzer(OpenAIOptions{
		APIKey:     "test-key",
		Model:      "gpt-4o",
		BaseURL:    srv.URL,
		HTTPClient: srv.Client(),
	})
	if err != nil {
		t.Fatalf("NewOpenAIAnalyzer: %v", err)
	}
	return analyzer, srv
}

func TestAnalyzeParsesDocument(t *testing.T) {
	doc := "materials:\n  primary_material:\n    type: stoneware\nmetadata:\n  confidence_overall: 0.9\n"
	analyzer, _ := newTestAnalyzer(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/chat/completions" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		if r.Header.Get("Authorization") != "Bearer test-key" {
			t.Errorf("missing auth header")
		}
		_, _ = w.Write([]byte(completionResponse("```yaml\n" + doc + "```")))
	})

	res, err := analyzer.Analyze(context.Background(), AnalyzeRequest{
		ProductName: "acme mug",
		Images:      []ImageInput{{Data: []byte{1, 2, 3}, MIME: "image/png"}},
	})
	if err != nil {
		t.Fatalf("Analyze: %v", err)
	}
	if res.Degraded {
		t.Fatal("result marked degraded")
	}
	if res.Fields.Material == nil || *res.Fields.Material != "stoneware" {
		t.Fatalf("Material = %v", res.Fields.Material)
	}
	if res.Fields.Confidence == nil || *res.Fields.Confidence != 0.9 {
		t.Fatalf("Confidence = %v", res.Fields.Confidence)
	}
}

func TestAnalyzeKeepsRawTextWhenUnparseable(t *testing.T) {
	analyzer, _ := newTestAnalyzer(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(completionResponse("The mug appears to be {{{ not yaml")))
	})

	res, err := analyzer.Analyze(context.Background(), AnalyzeRequest{
		ProductName: "acme mug",
		Images:      []ImageInput{{Data: []byte{1}, MIME: "image/jpeg"}},
	})
	if err != nil {
		t.Fatalf("Analyze: %v", err)
	}
	if !res.Degraded {
		t.Fatal("expected degraded result")
	}
	if res.Document == "" {
		t.Fatal("raw document lost")
	}
}

func TestAnalyzeRemoteFailure(t *testing.T) {
	analyzer, _ := newTestAnalyzer(t, func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "upstream exploded", http.StatusBadGateway)
	})

	_, err := analyzer.Analyze(context.Background(), AnalyzeRequest{
		ProductName: "acme mug",
		Images:      []ImageInput{{Data: []byte{1}, MIME: "image/png"}},
	})
	if !errors.Is(err, domain.ErrAdapterFailure) {
		t.Fatalf("err = %v, want ErrAdapterFailure", err)
	}
}

func TestAnalyzeRejectsEmptyImages(t *testing.T) {
	analyzer, _ := newTestAnalyzer(t, func(w http.ResponseWriter, r *http.Request) {
		t.Error("request should not reach the server")
	})

	_, err := analyzer.Analyze(context.Background(), AnalyzeRequest{ProductName: "acme mug"})
	if !errors.Is(err, domain.ErrInvalidInput) {
		t.Fatalf("err = %v, want ErrInvalidInput", err)
	}
}

func TestAnalyzeEmptyContent(t *testing.T) {
	analyzer, _ := newTestAnalyzer(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(completionResponse("")))
	})

	_, err := analyzer.Analyze(context.Background(), AnalyzeRequest{
		ProductName: "acme mug",
		Images:      []ImageInput{{Data: []byte{1}, MIME: "image/png"}},
	})
	if !errors.Is(err, domain.ErrAdapterFailure) {
		t.Fatalf("err = %v, want ErrAdapterFailure", err)
	}
}
