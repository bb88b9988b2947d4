package media

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"io"

	"github.com/gabriel-vasile/mimetype"
	"github.com/rs/zerolog"

	"mediavault/internal/domain/identity"
	"mediavault/internal/infrastructure/metrics"
	"mediavault/internal/utils/platformerrors"
)

// detectLimit is how many leading bytes mime detection may consume.
// Matches mimetype's own default read limit.
const detectLimit = 3072

const maxTitleLength = 200

// Analyzer starts and cancels background analysis tasks. Satisfied by
// pipeline.Runner; declared here so the domain does not depend on the
// pipeline package.
type Analyzer interface {
	Start(id string) error
	Cancel(id string)
}

// Service implements media ingestion and metadata management.
type Service struct {
	store    Store
	blobs    BlobStorage
	analyzer Analyzer
	maxBytes int64
	idFn     func() string
	log      zerolog.Logger
}

// NewService creates a media service. maxBytes caps accepted upload sizes.
func NewService(store Store, blobs BlobStorage, analyzer Analyzer, maxBytes int64, idFn func() string, log zerolog.Logger) *Service {
	return &Service{
		store:    store,
		blobs:    blobs,
		analyzer: analyzer,
		maxBytes: maxBytes,
		idFn:     idFn,
		log:      log.With().Str("component", "media-service").Logger(),
	}
}

// Upload ingests a new payload: detects its media type, hashes and stores the
// bytes, persists the metadata record in processing state and schedules the
// analysis task. The returned record is the initial state; progress arrives
// through the event broadcaster.
func (s *Service) Upload(ctx context.Context, caller identity.Identity, title string, src io.Reader, size int64) (*MediaRecord, error) {
	if !caller.CanUpload() {
		return nil, platformerrors.NewError(ctx, platformerrors.LayerDomain, platformerrors.ErrorTypeForbidden,
			"caller may not upload media", nil, "a1b2c3d4-0001-4abc-9def-100000000001")
	}
	if size <= 0 {
		metrics.RecordUpload("unknown", "rejected", 0)
		return nil, platformerrors.NewError(ctx, platformerrors.LayerDomain, platformerrors.ErrorTypeValidation,
			"upload rejected: no file provided", nil, "a1b2c3d4-0002-4abc-9def-100000000002")
	}
	if size > s.maxBytes {
		metrics.RecordUpload("unknown", "rejected", size)
		return nil, platformerrors.NewError(ctx, platformerrors.LayerDomain, platformerrors.ErrorTypeValidation,
			fmt.Sprintf("upload rejected: %d bytes exceeds the %d byte limit", size, s.maxBytes), nil,
			"a1b2c3d4-0003-4abc-9def-100000000003")
	}

	head := make([]byte, detectLimit)
	n, err := io.ReadFull(src, head)
	if err != nil && !errors.Is(err, io.ErrUnexpectedEOF) && !errors.Is(err, io.EOF) {
		return nil, platformerrors.NewError(ctx, platformerrors.LayerDomain, platformerrors.ErrorTypeInternal,
			"failed to read upload stream", err, "a1b2c3d4-0004-4abc-9def-100000000004")
	}
	if n == 0 {
		metrics.RecordUpload("unknown", "rejected", 0)
		return nil, platformerrors.NewError(ctx, platformerrors.LayerDomain, platformerrors.ErrorTypeValidation,
			"upload rejected: empty file", nil, "a1b2c3d4-0005-4abc-9def-100000000005")
	}
	mtype := mimetype.Detect(head[:n])

	id := s.idFn()
	key := id + mtype.Extension()

	hasher := sha256.New()
	body := io.TeeReader(
		io.LimitReader(io.MultiReader(bytes.NewReader(head[:n]), src), size),
		hasher,
	)

	if err := s.blobs.Save(ctx, key, body, size, mtype.String()); err != nil {
		return nil, platformerrors.NewError(ctx, platformerrors.LayerInfrastructure, platformerrors.ErrorTypeExternal,
			"failed to store payload bytes", err, "a1b2c3d4-0006-4abc-9def-100000000006")
	}

	if title == "" {
		title = "Untitled"
	}
	record := &MediaRecord{
		ID:         id,
		Title:      title,
		StorageKey: key,
		OwnerID:    caller.UserID,
		Status:     StatusProcessing,
		Progress:   0,
		MimeType:   mtype.String(),
		Bytes:      size,
		Sha256:     hex.EncodeToString(hasher.Sum(nil)),
	}

	if err := s.store.Create(ctx, record); err != nil {
		s.discardBlob(ctx, key)
		return nil, err
	}

	if err := s.analyzer.Start(id); err != nil {
		if delErr := s.store.Delete(ctx, id); delErr != nil {
			s.log.Error().Err(delErr).Str("media_id", id).Msg("failed to roll back record after analyzer refusal")
		}
		s.discardBlob(ctx, key)
		return nil, platformerrors.NewError(ctx, platformerrors.LayerDomain, platformerrors.ErrorTypeInternal,
			"failed to schedule analysis", err, "a1b2c3d4-0007-4abc-9def-100000000007")
	}

	metrics.RecordUpload(mtype.String(), "accepted", size)
	s.log.Info().Str("media_id", id).Str("mime", mtype.String()).Int64("bytes", size).Msg("media ingested")

	return record, nil
}

// List returns the records visible to the caller: admins see everything,
// editors see their own uploads, everyone else sees safe content only.
func (s *Service) List(ctx context.Context, caller identity.Identity) ([]*MediaRecord, error) {
	var filter Filter
	switch caller.Role {
	case identity.RoleAdmin:
	case identity.RoleEditor:
		filter.OwnerID = caller.UserID
	default:
		filter.Statuses = []Status{StatusSafe}
	}
	return s.store.List(ctx, filter)
}

// Update edits a record's metadata. Title edits require ownership; a status
// override additionally requires admin rights and a record that has already
// reached a terminal state.
func (s *Service) Update(ctx context.Context, caller identity.Identity, id string, fields UpdateFields) (*MediaRecord, error) {
	record, err := s.store.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if !caller.CanModify(record.OwnerID) {
		return nil, platformerrors.NewError(ctx, platformerrors.LayerDomain, platformerrors.ErrorTypeForbidden,
			"caller may not modify this record", nil, "a1b2c3d4-0008-4abc-9def-100000000008")
	}
	if fields.Empty() {
		return nil, platformerrors.NewError(ctx, platformerrors.LayerDomain, platformerrors.ErrorTypeValidation,
			"no fields to update", nil, "a1b2c3d4-0009-4abc-9def-100000000009")
	}
	if fields.Progress != nil {
		return nil, platformerrors.NewError(ctx, platformerrors.LayerDomain, platformerrors.ErrorTypeValidation,
			"progress is owned by the analysis pipeline", nil, "a1b2c3d4-000a-4abc-9def-10000000000a")
	}

	if fields.Title != nil {
		if *fields.Title == "" || len(*fields.Title) > maxTitleLength {
			return nil, platformerrors.NewError(ctx, platformerrors.LayerDomain, platformerrors.ErrorTypeValidation,
				fmt.Sprintf("title must be 1-%d characters", maxTitleLength), nil, "a1b2c3d4-000b-4abc-9def-10000000000b")
		}
	}

	if fields.Status != nil {
		if !caller.CanOverrideStatus() {
			return nil, platformerrors.NewError(ctx, platformerrors.LayerDomain, platformerrors.ErrorTypeForbidden,
				"only admins may override the classification", nil, "a1b2c3d4-000c-4abc-9def-10000000000c")
		}
		if !fields.Status.Terminal() {
			return nil, platformerrors.NewError(ctx, platformerrors.LayerDomain, platformerrors.ErrorTypeValidation,
				"status may only be set to safe or flagged", nil, "a1b2c3d4-000d-4abc-9def-10000000000d")
		}
		if !record.Status.Terminal() {
			return nil, platformerrors.NewError(ctx, platformerrors.LayerDomain, platformerrors.ErrorTypeConflict,
				"record is still processing", nil, "a1b2c3d4-000e-4abc-9def-10000000000e")
		}
	}

	return s.store.Update(ctx, id, fields)
}

// Delete removes a record, cancels any in-flight analysis for it and discards
// the payload bytes. The analysis task observes the cancellation before its
// next persist, so the deleted id sees no further writes or events.
func (s *Service) Delete(ctx context.Context, caller identity.Identity, id string) error {
	record, err := s.store.Get(ctx, id)
	if err != nil {
		return err
	}
	if !caller.CanModify(record.OwnerID) {
		return platformerrors.NewError(ctx, platformerrors.LayerDomain, platformerrors.ErrorTypeForbidden,
			"caller may not delete this record", nil, "a1b2c3d4-000f-4abc-9def-10000000000f")
	}

	s.analyzer.Cancel(id)

	if err := s.store.Delete(ctx, id); err != nil {
		return err
	}
	s.discardBlob(ctx, record.StorageKey)

	s.log.Info().Str("media_id", id).Msg("media deleted")
	return nil
}

// discardBlob removes payload bytes, logging instead of failing: the record
// is the source of truth and an orphaned blob is surfaced as not-found later.
func (s *Service) discardBlob(ctx context.Context, key string) {
	if err := s.blobs.Delete(ctx, key); err != nil {
		s.log.Error().Err(err).Str("storage_key", key).Msg("failed to delete payload bytes")
	}
}
