package domain

import "time"

// MaxReferenceImages caps the number of reference photos per product.
const MaxReferenceImages = 4

// ReferenceImage is one uploaded photo belonging to a product. Exactly one
// image per product carries the primary flag; the first upload becomes
// primary unless it is reassigned later.
type ReferenceImage struct {
	ID           string
	ProductID    string
	Filename     string
	StoragePath  string
	SizeBytes    int64
	MIMEType     string
	Width        *int
	Height       *int
	Primary      bool
	DisplayOrder int
	UploadedBy   string
	UploadedAt   time.Time
}
