package requests

import (
	"fmt"

	"mediavault/internal/domain/media"
)

// UpdateMediaRequest represents a partial media metadata update.
type UpdateMediaRequest struct {
	Title  *string `json:"title"`
	Status *string `json:"status"`
}

// ToDomain converts the request into domain update fields.
func (r *UpdateMediaRequest) ToDomain() (media.UpdateFields, error) {
	fields := media.UpdateFields{Title: r.Title}
	if r.Status != nil {
		status := media.Status(*r.Status)
		if !status.Valid() {
			return media.UpdateFields{}, fmt.Errorf("unknown status %q", *r.Status)
		}
		fields.Status = &status
	}
	return fields, nil
}
