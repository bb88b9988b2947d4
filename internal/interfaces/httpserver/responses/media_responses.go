package responses

import (
	"time"

	"mediavault/internal/domain/media"
)

// MediaResponse represents a media record in API responses.
type MediaResponse struct {
	ID        string    `json:"id"`
	Title     string    `json:"title"`
	OwnerID   string    `json:"owner_id"`
	Status    string    `json:"status"`
	Progress  int       `json:"progress"`
	Mime      string    `json:"mime"`
	Bytes     int64     `json:"bytes"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// BuildMediaResponse creates a response from a domain record.
func BuildMediaResponse(record *media.MediaRecord) *MediaResponse {
	return &MediaResponse{
		ID:        record.ID,
		Title:     record.Title,
		OwnerID:   record.OwnerID,
		Status:    string(record.Status),
		Progress:  record.Progress,
		Mime:      record.MimeType,
		Bytes:     record.Bytes,
		CreatedAt: record.CreatedAt,
		UpdatedAt: record.UpdatedAt,
	}
}

// MediaListResponse wraps a list of records.
type MediaListResponse struct {
	Media []*MediaResponse `json:"media"`
}

// BuildMediaListResponse creates a list response from domain records.
func BuildMediaListResponse(records []*media.MediaRecord) *MediaListResponse {
	out := make([]*MediaResponse, len(records))
	for i, record := range records {
		out[i] = BuildMediaResponse(record)
	}
	return &MediaListResponse{Media: out}
}
