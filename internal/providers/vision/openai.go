package vision

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"productstudio/internal/domain"
	"productstudio/internal/specdoc"
)

const (
	openAIDefaultTimeout = 120 * time.Second
	openAIDefaultModel   = "gpt-4o"
)

const analysisSystemPrompt = `You are a technical product analysis expert. Analyze the provided product photos with extreme precision and produce a structured YAML specification covering geometry and dimensions (with units), materials and finishes, optical properties, and all visible colors as hex codes. Use the top-level keys: metadata (with confidence_overall between 0 and 1), dimensions (with a primary block containing width/height/depth, each with value and unit), colors (with a primary block containing hex and name), and materials (with a primary_material block containing type). Respond with YAML only, no commentary.`

// OpenAIOptions configures the OpenAI-backed analyzer.
type OpenAIOptions struct {
	APIKey     string
	Model      string
	BaseURL    string
	HTTPClient *http.Client
}

// OpenAIAnalyzer calls the OpenAI chat completions API with the reference
// images attached as data URLs and expects a YAML document back.
type OpenAIAnalyzer struct {
	apiKey  string
	model   string
	baseURL string
	client  *http.Client
}

type openAIMessage struct {
	Role    string          `json:"role"`
	Content json.RawMessage `json:"content"`
}

type openAIContentPart struct {
	Type     string          `json:"type"`
	Text     string          `json:"text,omitempty"`
	ImageURL *openAIImageURL `json:"image_url,omitempty"`
}

type openAIImageURL struct {
	URL string `json:"url"`
}

type openAIRequest struct {
	Model       string          `json:"model"`
	Messages    []openAIMessage `json:"messages"`
	Temperature float64         `json:"temperature"`
}

type openAIResponse struct {
	Choices []struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
	} `json:"choices"`
	Error *struct {
		Message string `json:"message"`
		Type    string `json:"type"`
	} `json:"error"`
}

// NewOpenAIAnalyzer validates the options and returns a ready analyzer.
func NewOpenAIAnalyzer(opts OpenAIOptions) (*OpenAIAnalyzer, error) {
	if strings.TrimSpace(opts.APIKey) == "" {
		return nil, fmt.Errorf("vision: openai api key is required")
	}
	baseURL := strings.TrimRight(opts.BaseURL, "/")
	if baseURL == "" {
		baseURL = "https://api.openai.com/v1"
	}
	model := strings.TrimSpace(opts.Model)
	if model == "" {
		model = openAIDefaultModel
	}
	client := opts.HTTPClient
	if client == nil {
		client = &http.Client{Timeout: openAIDefaultTimeout}
	}
	return &OpenAIAnalyzer{
		apiKey:  opts.APIKey,
		model:   model,
		baseURL: baseURL,
		client:  client,
	}, nil
}

// Model returns the configured model identifier.
func (a *OpenAIAnalyzer) Model() string { return a.model }

// Analyze sends the reference images to the vision model and returns the YAML
// document it produced. When the document does not parse as structured YAML
// the raw text is still returned, marked as degraded, so that the attempt is
// never lost.
func (a *OpenAIAnalyzer) Analyze(ctx context.Context, req AnalyzeRequest) (*Analysis, error) {
	if len(req.Images) == 0 {
		return nil, fmt.Errorf("%w: no images provided", domain.ErrInvalidInput)
	}

	userParts := []openAIContentPart{{
		Type: "text",
		Text: fmt.Sprintf("Analyze this product: %s. Produce the full YAML specification.", req.ProductName),
	}}
	for _, img := range req.Images {
		userParts = append(userParts, openAIContentPart{
			Type: "image_url",
			ImageURL: &openAIImageURL{
				URL: fmt.Sprintf("data:%s;base64,%s", img.MIME, base64.StdEncoding.EncodeToString(img.Data)),
			},
		})
	}

	systemContent, _ := json.Marshal(analysisSystemPrompt)
	partsContent, err := json.Marshal(userParts)
	if err != nil {
		return nil, fmt.Errorf("%w: encode request: %v", domain.ErrAdapterFailure, err)
	}
	payload := openAIRequest{
		Model: a.model,
		Messages: []openAIMessage{
			{Role: "system", Content: systemContent},
			{Role: "user", Content: partsContent},
		},
		Temperature: 0.2,
	}

	var buf bytes.Buffer
	if err := json.NewEncoder(&buf).Encode(payload); err != nil {
		return nil, fmt.Errorf("%w: encode request: %v", domain.ErrAdapterFailure, err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, a.baseURL+"/chat/completions", &buf)
	if err != nil {
		return nil, fmt.Errorf("%w: build request: %v", domain.ErrAdapterFailure, err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Authorization", "Bearer "+a.apiKey)

	resp, err := a.client.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("%w: analysis call: %v", domain.ErrAdapterFailure, err)
	}
	defer func() {
		_ = resp.Body.Close()
	}()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 16<<20))
	if err != nil {
		return nil, fmt.Errorf("%w: read response: %v", domain.ErrAdapterFailure, err)
	}
	if resp.StatusCode >= 300 {
		return nil, fmt.Errorf("%w: analysis call returned %d: %s", domain.ErrAdapterFailure, resp.StatusCode, truncate(string(body), 200))
	}

	var out openAIResponse
	if err := json.Unmarshal(body, &out); err != nil {
		return nil, fmt.Errorf("%w: decode response: %v", domain.ErrAdapterFailure, err)
	}
	if out.Error != nil {
		return nil, fmt.Errorf("%w: %s", domain.ErrAdapterFailure, out.Error.Message)
	}
	if len(out.Choices) == 0 || strings.TrimSpace(out.Choices[0].Message.Content) == "" {
		return nil, fmt.Errorf("%w: analysis returned no content", domain.ErrAdapterFailure)
	}

	document := stripCodeFence(out.Choices[0].Message.Content)
	fields := specdoc.Extract(document)
	degraded := fields.Dimensions == nil && fields.Colors == nil && fields.Material == nil && fields.Confidence == nil

	return &Analysis{
		Document: document,
		Fields:   fields,
		Model:    a.model,
		Degraded: degraded,
	}, nil
}

// stripCodeFence removes a wrapping markdown code fence, which models emit
// despite instructions not to.
func stripCodeFence(s string) string {
	s = strings.TrimSpace(s)
	if !strings.HasPrefix(s, "```") {
		return s
	}
	s = strings.TrimPrefix(s, "```")
	if i := strings.Index(s, "\n"); i >= 0 {
		s = s[i+1:]
	}
	s = strings.TrimSuffix(strings.TrimSpace(s), "```")
	return strings.TrimSpace(s)
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}

var _ Analyzer = (*OpenAIAnalyzer)(nil)
