package domain

import "time"

// RequestStatus enumerates generation request lifecycle states.
type RequestStatus string

const (
	StatusPending    RequestStatus = "pending"
	StatusProcessing RequestStatus = "processing"
	StatusCompleted  RequestStatus = "completed"
	StatusFailed     RequestStatus = "failed"
)

// Terminal reports whether the status admits no further transitions.
func (s RequestStatus) Terminal() bool {
	return s == StatusCompleted || s == StatusFailed
}

// Bounds for the number of images a single request may produce.
const (
	MinImageCount = 1
	MaxImageCount = 10
)

// GenerationRequest is one user-initiated ask to produce N marketing images.
// A nil SpecificationID means the product's active specification is resolved
// at processing time, not at creation time.
type GenerationRequest struct {
	ID              string
	ProductID       string
	SpecificationID *string
	Prompt          string
	CustomPrompt    string
	AspectRatio     string
	Resolution      string
	ImageCount      int
	Status          RequestStatus
	CancelRequested bool
	ErrorMessage    string
	CreatedBy       string
	CreatedAt       time.Time
	StartedAt       *time.Time
	CompletedAt     *time.Time
}

// GeneratedImage is one output artifact of a generation request. The
// generation index is 1-based and unique within the request; a failed request
// keeps the images committed before the failure.
type GeneratedImage struct {
	ID              string
	RequestID       string
	ProductID       string
	Filename        string
	StoragePath     string
	SizeBytes       int64
	MIMEType        string
	Width           *int
	Height          *int
	GenerationIndex int
	ModelResponse   string
	CreatedAt       time.Time
}
