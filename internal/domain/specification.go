package domain

import "time"

// Dimensions holds the quick-access primary dimensions extracted from a
// specification document. Individual values are nil when the document does
// not carry them.
type Dimensions struct {
	Width  *float64 `json:"width"`
	Height *float64 `json:"height"`
	Depth  *float64 `json:"depth"`
	Unit   string   `json:"unit"`
}

// ColorRef is a named color extracted from a specification document.
type ColorRef struct {
	Hex  string `json:"hex"`
	Name string `json:"name"`
}

// Specification is an immutable, numbered version of a product's technical
// description. Versions are append-only per product, starting at 1; at most
// one version per product is active at any time. Corrections are new
// versions, never in-place edits.
type Specification struct {
	ID          string
	ProductID   string
	Version     int
	Document    string
	Active      bool
	ChangeNotes string

	// Derived once at creation from the document; never recomputed.
	PrimaryDimensions *Dimensions
	PrimaryColors     []ColorRef
	MaterialType      *string

	// Analysis provenance; empty for manually submitted versions.
	AnalysisModel string
	Confidence    *float64
	ImageCount    *int

	CreatedBy string
	CreatedAt time.Time
}
