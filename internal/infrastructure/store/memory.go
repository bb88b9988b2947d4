package store

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"mediavault/internal/domain/media"
	"mediavault/internal/utils/platformerrors"
)

// MemoryStore is a mutex-based in-memory media record store. It backs tests
// and the MEDIA_METADATA_BACKEND=memory configuration; the gorm repository is
// the production implementation of the same contract.
type MemoryStore struct {
	mu      sync.RWMutex
	records map[string]*media.MediaRecord
	log     zerolog.Logger
}

// NewMemoryStore creates a new in-memory media store.
func NewMemoryStore(log zerolog.Logger) *MemoryStore {
	return &MemoryStore{
		records: make(map[string]*media.MediaRecord),
		log:     log.With().Str("component", "memory-store").Logger(),
	}
}

// Create stores a new record.
func (s *MemoryStore) Create(ctx context.Context, record *media.MediaRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.records[record.ID]; exists {
		return platformerrors.NewError(ctx, platformerrors.LayerRepository, platformerrors.ErrorTypeConflict,
			"media record already exists", nil, "f1c0a9d2-10b4-4a4e-8e0d-62b7f7f0c2a1")
	}

	now := time.Now().UTC()
	if record.CreatedAt.IsZero() {
		record.CreatedAt = now
	}
	record.UpdatedAt = now

	clone := *record
	s.records[record.ID] = &clone
	return nil
}

// Get retrieves a record by id.
func (s *MemoryStore) Get(ctx context.Context, id string) (*media.MediaRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	record, ok := s.records[id]
	if !ok {
		return nil, notFound(ctx, "2b6d4e8f-9a0c-41d7-b3e5-7f8a9b0c1d2e")
	}
	clone := *record
	return &clone, nil
}

// Update applies the non-nil fields atomically under the store lock.
func (s *MemoryStore) Update(ctx context.Context, id string, fields media.UpdateFields) (*media.MediaRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	record, ok := s.records[id]
	if !ok {
		return nil, notFound(ctx, "3c7e5f90-ab1d-42e8-c4f6-8091a2b3c4d5")
	}

	applyFields(record, fields)
	clone := *record
	return &clone, nil
}

// UpdateIfStatus applies the update only while the record has the given status.
func (s *MemoryStore) UpdateIfStatus(ctx context.Context, id string, current media.Status, fields media.UpdateFields) (*media.MediaRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	record, ok := s.records[id]
	if !ok {
		return nil, notFound(ctx, "4d8f6a01-bc2e-43f9-d507-91a2b3c4d5e6")
	}
	if record.Status != current {
		return nil, platformerrors.NewError(ctx, platformerrors.LayerRepository, platformerrors.ErrorTypeConflict,
			"media record status changed concurrently", nil, "5e907b12-cd3f-440a-e618-a2b3c4d5e6f7")
	}

	applyFields(record, fields)
	clone := *record
	return &clone, nil
}

// Delete removes a record by id.
func (s *MemoryStore) Delete(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.records[id]; !ok {
		return notFound(ctx, "6fa18c23-de40-451b-f729-b3c4d5e6f708")
	}
	delete(s.records, id)
	return nil
}

// List returns matching records, newest first.
func (s *MemoryStore) List(ctx context.Context, filter media.Filter) ([]*media.MediaRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	result := make([]*media.MediaRecord, 0, len(s.records))
	for _, record := range s.records {
		if filter.OwnerID != "" && record.OwnerID != filter.OwnerID {
			continue
		}
		if len(filter.Statuses) > 0 && !statusIn(record.Status, filter.Statuses) {
			continue
		}
		clone := *record
		result = append(result, &clone)
	}

	sort.Slice(result, func(i, j int) bool {
		if result[i].CreatedAt.Equal(result[j].CreatedAt) {
			return result[i].ID > result[j].ID
		}
		return result[i].CreatedAt.After(result[j].CreatedAt)
	})
	return result, nil
}

func applyFields(record *media.MediaRecord, fields media.UpdateFields) {
	if fields.Title != nil {
		record.Title = *fields.Title
	}
	if fields.Status != nil {
		record.Status = *fields.Status
		if fields.Status.Terminal() && fields.Progress == nil {
			record.Progress = 100
		}
	}
	if fields.Progress != nil {
		record.Progress = *fields.Progress
	}
	record.UpdatedAt = time.Now().UTC()
}

func statusIn(status media.Status, set []media.Status) bool {
	for _, s := range set {
		if s == status {
			return true
		}
	}
	return false
}

func notFound(ctx context.Context, uuid string) *platformerrors.PlatformError {
	return platformerrors.NewError(ctx, platformerrors.LayerRepository, platformerrors.ErrorTypeNotFound,
		"media record not found", nil, uuid)
}
