package vision

import (
	"context"

	"productstudio/internal/specdoc"
)

// ImageInput is one reference image handed to the analyzer.
type ImageInput struct {
	Data []byte
	MIME string
}

// AnalyzeRequest carries everything the remote vision model needs.
type AnalyzeRequest struct {
	ProductName string
	Images      []ImageInput
}

// Analysis is the normalized result of a vision analysis call. Document is
// the raw YAML text exactly as returned by the model; Fields are the
// best-effort structured extraction. Degraded marks results where the raw
// text survived but structured extraction produced nothing.
type Analysis struct {
	Document string
	Fields   specdoc.Fields
	Model    string
	Degraded bool
}

// Analyzer is the contract implemented by vision analysis providers. Remote
// failures, malformed responses and empty output surface as errors wrapping
// domain.ErrAdapterFailure.
type Analyzer interface {
	Analyze(ctx context.Context, req AnalyzeRequest) (*Analysis, error)
}
