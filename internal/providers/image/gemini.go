package image

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
)

const (
	geminiDefaultTimeout = 120 * time.Second
	geminiDefaultModel   = "gemini-2.0-flash-exp"
)

// GeminiOptions configures the Gemini-backed generator.
type GeminiOptions struct {
	APIKey     string
	Model      string
	BaseURL    string
	HTTPClient *http.Client
}

// GeminiGenerator produces product images via the Gemini generateContent API,
// conditioning each call on the reference photo and the specification
// document.
type GeminiGenerator struct {
	apiKey  string
	model   string
	baseURL string
	client  *http.Client
}

type geminiContent struct {
	Role  string       `json:"role,omitempty"`
	Parts []geminiPart `json:"parts,omitempty"`
}

type geminiPart struct {
	Text       string            `json:"text,omitempty"`
	InlineData *geminiInlineData `json:"inlineData,omitempty"`
}

type geminiInlineData struct {
	MimeType string `json:"mimeType,omitempty"`
	Data     string `json:"data,omitempty"`
}

type geminiGenerationConfig struct {
	CandidateCount     int      `json:"candidateCount,omitempty"`
	ResponseModalities []string `json:"responseModalities,omitempty"`
}

type geminiGenerateRequest struct {
	Contents         []geminiContent         `json:"contents"`
	GenerationConfig *geminiGenerationConfig `json:"generationConfig,omitempty"`
}

type geminiGenerateResponse struct {
	Candidates []struct {
		Content      geminiContent `json:"content"`
		FinishReason string        `json:"finishReason,omitempty"`
	} `json:"candidates"`
	Error *struct {
		Code    int    `json:"code,omitempty"`
		Message string `json:"message,omitempty"`
	} `json:"error,omitempty"`
}

// NewGeminiGenerator validates the options and returns a ready generator.
func NewGeminiGenerator(opts GeminiOptions) (*GeminiGenerator, error) {
	if strings.TrimSpace(opts.APIKey) == "" {
		return nil, fmt.Errorf("image: gemini api key is required")
	}
	baseURL := strings.TrimRight(opts.BaseURL, "/")
	if baseURL == "" {
		baseURL = "https://generativelanguage.googleapis.com/v1beta"
	}
	model := strings.TrimSpace(opts.Model)
	if model == "" {
		model = geminiDefaultModel
	}
	client := opts.HTTPClient
	if client == nil {
		client = &http.Client{Timeout: geminiDefaultTimeout}
	}
	return &GeminiGenerator{
		apiKey:  opts.APIKey,
		model:   model,
		baseURL: baseURL,
		client:  client,
	}, nil
}

// Model returns the configured model identifier.
func (g *GeminiGenerator) Model() string { return g.model }

// Generate issues one generateContent call and returns the single image it
// produced. A response containing only text is a failure.
func (g *GeminiGenerator) Generate(ctx context.Context, req GenerateRequest) (*Result, error) {
	payload := geminiGenerateRequest{
		Contents: []geminiContent{{
			Role: "user",
			Parts: []geminiPart{
				{Text: buildGenerationPrompt(req)},
				{InlineData: &geminiInlineData{
					MimeType: req.ReferenceMIME,
					Data:     base64.StdEncoding.EncodeToString(req.ReferenceImage),
				}},
			},
		}},
		GenerationConfig: &geminiGenerationConfig{
			CandidateCount:     1,
			ResponseModalities: []string{"TEXT", "IMAGE"},
		},
	}

	var buf bytes.Buffer
	if err := json.NewEncoder(&buf).Encode(payload); err != nil {
		return nil, fmt.Errorf("%w: encode request: %v", domain.ErrAdapterFailure, err)
	}

	endpoint := fmt.Sprintf("%s/models/%s:generateContent", g.baseURL, g.model)
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, &buf)
	if err != nil {
		return nil, fmt.Errorf("%w: build request: %v", domain.ErrAdapterFailure, err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("x-goog-api-key", g.apiKey)

	resp, err := g.client.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("%w: generation call: %v", domain.ErrAdapterFailure, err)
	}
	defer func() {
		_ = resp.Body.Close()
	}()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 64<<20))
	if err != nil {
		return nil, fmt.Errorf("%w: read response: %v", domain.ErrAdapterFailure, err)
	}
	if resp.StatusCode >= 300 {
		return nil, fmt.Errorf("%w: generation call returned %d", domain.ErrAdapterFailure, resp.StatusCode)
	}

	var out geminiGenerateResponse
	if err := json.Unmarshal(body, &out); err != nil {
		return nil, fmt.Errorf("%w: decode response: %v", domain.ErrAdapterFailure, err)
	}
	if out.Error != nil {
		return nil, fmt.Errorf("%w: %s", domain.ErrAdapterFailure, out.Error.Message)
	}
	if len(out.Candidates) == 0 {
		return nil, fmt.Errorf("%w: generation returned no candidates", domain.ErrAdapterFailure)
	}

	result := &Result{}
	for _, part := range out.Candidates[0].Content.Parts {
		if part.InlineData != nil && result.Data == nil {
			data, err := base64.StdEncoding.DecodeString(part.InlineData.Data)
			if err != nil {
				return nil, fmt.Errorf("%w: decode image data: %v", domain.ErrAdapterFailure, err)
			}
			result.Data = data
			result.MIME = part.InlineData.MimeType
		}
		if part.Text != "" {
			if result.Text != "" {
				result.Text += "\n"
			}
			result.Text += part.Text
		}
	}
	if len(result.Data) == 0 {
		return nil, fmt.Errorf("%w: generation response contained no image", domain.ErrAdapterFailure)
	}
	if result.MIME == "" {
		result.MIME = "image/png"
	}
	return result, nil
}

func buildGenerationPrompt(req GenerateRequest) string {
	var b strings.Builder
	b.WriteString("Generate a marketing photo of the product shown in the attached reference image.\n")
	b.WriteString("The product must match this technical specification exactly:\n\n")
	b.WriteString(req.SpecDocument)
	b.WriteString("\n\nCreative direction: ")
	b.WriteString(req.Prompt)
	if req.AspectRatio != "" {
		fmt.Fprintf(&b, "\nAspect ratio: %s.", req.AspectRatio)
	}
	if req.Resolution != "" {
		fmt.Fprintf(&b, " Resolution: %s.", req.Resolution)
	}
	return b.String()
}

var _ Generator = (*GeminiGenerator)(nil)
