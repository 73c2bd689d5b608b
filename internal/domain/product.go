package domain

import "time"

// Product is the root catalog entity. Reference images, specifications and
// generation requests are owned by exactly one product.
type Product struct {
	ID          string
	Slug        string
	Name        string
	Description string
	Category    string
	Tags        []string
	Active      bool
	CreatedBy   string
	CreatedAt   time.Time
	UpdatedAt   time.Time
}
