package image

import "context"

// GenerateRequest describes one image to produce: the grounding reference
// photo, the full specification document and the effective prompt. The
// adapter is invoked once per output image.
type GenerateRequest struct {
	ReferenceImage []byte
	ReferenceMIME  string
	SpecDocument   string
	Prompt         string
	AspectRatio    string
	Resolution     string
	RequestID      string
}

// Result is one generated image plus any commentary the model attached.
type Result struct {
	Data []byte
	MIME string
	Text string
}

// Generator is the contract implemented by image generation providers. A
// response without image bytes is a failure, not a zero-length success;
// failures wrap domain.ErrAdapterFailure.
type Generator interface {
	Generate(ctx context.Context, req GenerateRequest) (*Result, error)
}
