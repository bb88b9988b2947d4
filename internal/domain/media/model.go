package media

import (
	"context"
	"errors"
	"io"
	"time"
)

// Status is the lifecycle state of a media record. It starts at
// StatusProcessing and moves exactly once to a terminal state; afterwards only
// an explicit admin override may flip it between the two terminal states.
type Status string

const (
	StatusProcessing Status = "processing"
	StatusSafe       Status = "safe"
	StatusFlagged    Status = "flagged"
)

// Terminal reports whether the status is a final classification.
func (s Status) Terminal() bool {
	return s == StatusSafe || s == StatusFlagged
}

// Valid reports whether the status is one of the known states.
func (s Status) Valid() bool {
	return s == StatusProcessing || s.Terminal()
}

// MediaRecord represents stored media metadata.
type MediaRecord struct {
	ID         string    `json:"id"`
	Title      string    `json:"title"`
	StorageKey string    `json:"storage_key"`
	OwnerID    string    `json:"owner_id"`
	Status     Status    `json:"status"`
	Progress   int       `json:"progress"`
	MimeType   string    `json:"mime"`
	Bytes      int64     `json:"bytes"`
	Sha256     string    `json:"sha256"`
	CreatedAt  time.Time `json:"created_at"`
	UpdatedAt  time.Time `json:"updated_at"`
}

// UpdateFields is a partial update; nil fields are left untouched.
type UpdateFields struct {
	Title    *string
	Status   *Status
	Progress *int
}

// Empty reports whether the update would change nothing.
func (u UpdateFields) Empty() bool {
	return u.Title == nil && u.Status == nil && u.Progress == nil
}

// Filter restricts List results. Zero values mean "no restriction".
type Filter struct {
	OwnerID  string
	Statuses []Status
}

// Store defines persistence operations for media records. Implementations
// must make Update atomic with respect to concurrent updates on the same id.
type Store interface {
	// Create persists a new record.
	Create(ctx context.Context, record *MediaRecord) error

	// Get retrieves a record by id.
	Get(ctx context.Context, id string) (*MediaRecord, error)

	// Update applies the non-nil fields atomically and returns the new state.
	Update(ctx context.Context, id string, fields UpdateFields) (*MediaRecord, error)

	// UpdateIfStatus applies the update only while the record still has the
	// given status. Used by the pipeline so the terminal transition happens at
	// most once and a concurrent delete is observed as not-found.
	UpdateIfStatus(ctx context.Context, id string, current Status, fields UpdateFields) (*MediaRecord, error)

	// Delete removes a record by id.
	Delete(ctx context.Context, id string) error

	// List returns records matching the filter, newest first.
	List(ctx context.Context, filter Filter) ([]*MediaRecord, error)
}

// ErrPayloadMissing marks the recoverable inconsistency where a record exists
// but its payload bytes do not. Surfaced to clients as not-found.
var ErrPayloadMissing = errors.New("payload bytes missing")

// Payload is an open byte payload. ReaderAt keeps concurrent range requests
// against the same payload independent of each other.
type Payload interface {
	io.ReaderAt
	io.Closer
	Size() int64
}

// BlobStorage defines payload byte operations.
type BlobStorage interface {
	// Save stores payload bytes under the key. The payload becomes visible to
	// readers only once Save returns.
	Save(ctx context.Context, key string, body io.Reader, size int64, contentType string) error

	// Open returns the payload for random-access reads. Returns an error
	// wrapping ErrPayloadMissing when the bytes are absent.
	Open(ctx context.Context, key string) (Payload, error)

	// Delete removes the payload bytes. Deleting a missing key is not an error.
	Delete(ctx context.Context, key string) error
}
