package handlers

import (
	"time"

	"productstudio/internal/domain"
	"productstudio/internal/storage"
)

type productResponse struct {
	ID          string    `json:"id"`
	Slug        string    `json:"slug"`
	Name        string    `json:"name"`
	Description string    `json:"description,omitempty"`
	Category    string    `json:"category,omitempty"`
	Tags        []string  `json:"tags,omitempty"`
	Active      bool      `json:"active"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

func toProductResponse(p *domain.Product) productResponse {
	return productResponse{
		ID:          p.ID,
		Slug:        p.Slug,
		Name:        p.Name,
		Description: p.Description,
		Category:    p.Category,
		Tags:        p.Tags,
		Active:      p.Active,
		CreatedAt:   p.CreatedAt,
		UpdatedAt:   p.UpdatedAt,
	}
}

type referenceResponse struct {
	ID           string    `json:"id"`
	ProductID    string    `json:"product_id"`
	Filename     string    `json:"filename"`
	URL          string    `json:"url"`
	SizeBytes    int64     `json:"size_bytes"`
	MIMEType     string    `json:"mime_type"`
	Width        *int      `json:"width"`
	Height       *int      `json:"height"`
	Primary      bool      `json:"is_primary"`
	DisplayOrder int       `json:"display_order"`
	UploadedAt   time.Time `json:"uploaded_at"`
}

func toReferenceResponse(img *domain.ReferenceImage, store storage.Store) referenceResponse {
	return referenceResponse{
		ID:           img.ID,
		ProductID:    img.ProductID,
		Filename:     img.Filename,
		URL:          store.PublicURL(img.StoragePath),
		SizeBytes:    img.SizeBytes,
		MIMEType:     img.MIMEType,
		Width:        img.Width,
		Height:       img.Height,
		Primary:      img.Primary,
		DisplayOrder: img.DisplayOrder,
		UploadedAt:   img.UploadedAt,
	}
}

type specificationResponse struct {
	ID                string             `json:"id"`
	ProductID         string             `json:"product_id"`
	Version           int                `json:"version"`
	Document          string             `json:"document"`
	Active            bool               `json:"is_active"`
	ChangeNotes       string             `json:"change_notes,omitempty"`
	PrimaryDimensions *domain.Dimensions `json:"primary_dimensions"`
	PrimaryColors     []domain.ColorRef  `json:"primary_colors"`
	MaterialType      *string            `json:"material_type"`
	AnalysisModel     string             `json:"analysis_model,omitempty"`
	Confidence        *float64           `json:"confidence_overall"`
	ImageCount        *int               `json:"image_count"`
	CreatedAt         time.Time          `json:"created_at"`
}

func toSpecificationResponse(s *domain.Specification) specificationResponse {
	return specificationResponse{
		ID:                s.ID,
		ProductID:         s.ProductID,
		Version:           s.Version,
		Document:          s.Document,
		Active:            s.Active,
		ChangeNotes:       s.ChangeNotes,
		PrimaryDimensions: s.PrimaryDimensions,
		PrimaryColors:     s.PrimaryColors,
		MaterialType:      s.MaterialType,
		AnalysisModel:     s.AnalysisModel,
		Confidence:        s.Confidence,
		ImageCount:        s.ImageCount,
		CreatedAt:         s.CreatedAt,
	}
}

type requestResponse struct {
	ID              string     `json:"id"`
	ProductID       string     `json:"product_id"`
	SpecificationID *string    `json:"specification_id"`
	Prompt          string     `json:"prompt"`
	CustomPrompt    string     `json:"custom_prompt,omitempty"`
	AspectRatio     string     `json:"aspect_ratio"`
	Resolution      string     `json:"resolution"`
	ImageCount      int        `json:"image_count"`
	Status          string     `json:"status"`
	ErrorMessage    string     `json:"error_message,omitempty"`
	CreatedAt       time.Time  `json:"created_at"`
	StartedAt       *time.Time `json:"started_at"`
	CompletedAt     *time.Time `json:"completed_at"`
}

func toRequestResponse(req *domain.GenerationRequest) requestResponse {
	return requestResponse{
		ID:              req.ID,
		ProductID:       req.ProductID,
		SpecificationID: req.SpecificationID,
		Prompt:          req.Prompt,
		CustomPrompt:    req.CustomPrompt,
		AspectRatio:     req.AspectRatio,
		Resolution:      req.Resolution,
		ImageCount:      req.ImageCount,
		Status:          string(req.Status),
		ErrorMessage:    req.ErrorMessage,
		CreatedAt:       req.CreatedAt,
		StartedAt:       req.StartedAt,
		CompletedAt:     req.CompletedAt,
	}
}

type imageResponse struct {
	ID              string    `json:"id"`
	RequestID       string    `json:"request_id"`
	ProductID       string    `json:"product_id"`
	Filename        string    `json:"filename"`
	URL             string    `json:"url"`
	SizeBytes       int64     `json:"size_bytes"`
	MIMEType        string    `json:"mime_type"`
	Width           *int      `json:"width"`
	Height          *int      `json:"height"`
	GenerationIndex int       `json:"generation_index"`
	ModelResponse   string    `json:"model_response,omitempty"`
	CreatedAt       time.Time `json:"created_at"`
}

func toImageResponse(img *domain.GeneratedImage, store storage.Store) imageResponse {
	return imageResponse{
		ID:              img.ID,
		RequestID:       img.RequestID,
		ProductID:       img.ProductID,
		Filename:        img.Filename,
		URL:             store.PublicURL(img.StoragePath),
		SizeBytes:       img.SizeBytes,
		MIMEType:        img.MIMEType,
		Width:           img.Width,
		Height:          img.Height,
		GenerationIndex: img.GenerationIndex,
		ModelResponse:   img.ModelResponse,
		CreatedAt:       img.CreatedAt,
	}
}
