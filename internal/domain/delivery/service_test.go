package delivery_test

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"math/rand"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/rs/zerolog"

	"mediavault/internal/domain/delivery"
	"mediavault/internal/domain/identity"
	"mediavault/internal/domain/media"
	"mediavault/internal/infrastructure/store"
	"mediavault/internal/utils/platformerrors"
)

// memBlobs is an in-memory BlobStorage for delivery tests.
type memBlobs struct {
	objects map[string][]byte
}

func newMemBlobs() *memBlobs {
	return &memBlobs{objects: make(map[string][]byte)}
}

func (m *memBlobs) Save(_ context.Context, key string, body io.Reader, _ int64, _ string) error {
	data, err := io.ReadAll(body)
	if err != nil {
		return err
	}
	m.objects[key] = data
	return nil
}

func (m *memBlobs) Open(_ context.Context, key string) (media.Payload, error) {
	data, ok := m.objects[key]
	if !ok {
		return nil, fmt.Errorf("open %s: %w", key, media.ErrPayloadMissing)
	}
	return memPayload{Reader: bytes.NewReader(data)}, nil
}

func (m *memBlobs) Delete(_ context.Context, key string) error {
	delete(m.objects, key)
	return nil
}

type memPayload struct {
	*bytes.Reader
}

func (p memPayload) Size() int64 { return p.Reader.Size() }
func (p memPayload) Close() error { return nil }

func randomPayload(t *testing.T, n int) []byte {
	t.Helper()
	data := make([]byte, n)
	rng := rand.New(rand.NewSource(42))
	if _, err := rng.Read(data); err != nil {
		t.Fatalf("generate payload: %v", err)
	}
	return data
}

func newFixture(t *testing.T, status media.Status, payload []byte) (*delivery.Service, string) {
	t.Helper()

	st := store.NewMemoryStore(zerolog.Nop())
	blobs := newMemBlobs()
	ctx := context.Background()

	const id = "med_fixture"
	record := &media.MediaRecord{
		ID:         id,
		Title:      "clip",
		StorageKey: id + ".bin",
		OwnerID:    "editor-1",
		Status:     status,
		MimeType:   "video/mp4",
		Bytes:      int64(len(payload)),
	}
	if err := st.Create(ctx, record); err != nil {
		t.Fatalf("seed record: %v", err)
	}
	if err := blobs.Save(ctx, record.StorageKey, bytes.NewReader(payload), int64(len(payload)), record.MimeType); err != nil {
		t.Fatalf("seed payload: %v", err)
	}

	return delivery.NewService(st, blobs, zerolog.Nop()), id
}

var admin = identity.Identity{UserID: "admin-1", Role: identity.RoleAdmin}
var viewer = identity.Identity{UserID: "user-1", Role: identity.RoleUser}

func TestServeFullPayload(t *testing.T) {
	payload := randomPayload(t, 4096)
	svc, id := newFixture(t, media.StatusSafe, payload)

	rec := httptest.NewRecorder()
	if err := svc.Serve(context.Background(), rec, id, viewer, ""); err != nil {
		t.Fatalf("Serve: %v", err)
	}

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	if got := rec.Header().Get("Content-Length"); got != "4096" {
		t.Errorf("Content-Length = %q, want 4096", got)
	}
	if got := rec.Header().Get("Content-Type"); got != "video/mp4" {
		t.Errorf("Content-Type = %q, want video/mp4", got)
	}
	if got := rec.Header().Get("Accept-Ranges"); got != "bytes" {
		t.Errorf("Accept-Ranges = %q, want bytes", got)
	}
	if !bytes.Equal(rec.Body.Bytes(), payload) {
		t.Error("full response body differs from payload")
	}
}

func TestServeOpenEndedRangeUsesDefaultWindow(t *testing.T) {
	payload := randomPayload(t, 5_000_000)
	svc, id := newFixture(t, media.StatusSafe, payload)

	rec := httptest.NewRecorder()
	if err := svc.Serve(context.Background(), rec, id, viewer, "bytes=0-"); err != nil {
		t.Fatalf("Serve: %v", err)
	}

	if rec.Code != http.StatusPartialContent {
		t.Fatalf("status = %d, want 206", rec.Code)
	}
	if got := rec.Header().Get("Content-Range"); got != "bytes 0-999999/5000000" {
		t.Errorf("Content-Range = %q, want bytes 0-999999/5000000", got)
	}
	if got := rec.Header().Get("Content-Length"); got != "1000000" {
		t.Errorf("Content-Length = %q, want 1000000", got)
	}
	if !bytes.Equal(rec.Body.Bytes(), payload[:1_000_000]) {
		t.Error("partial body differs from first 1,000,000 payload bytes")
	}
}

func TestServeOpenEndedRangeNearEnd(t *testing.T) {
	payload := randomPayload(t, 5_000_000)
	svc, id := newFixture(t, media.StatusSafe, payload)

	rec := httptest.NewRecorder()
	if err := svc.Serve(context.Background(), rec, id, viewer, "bytes=4500000-"); err != nil {
		t.Fatalf("Serve: %v", err)
	}

	if got := rec.Header().Get("Content-Range"); got != "bytes 4500000-4999999/5000000" {
		t.Errorf("Content-Range = %q, want bytes 4500000-4999999/5000000", got)
	}
	if !bytes.Equal(rec.Body.Bytes(), payload[4_500_000:]) {
		t.Error("partial body differs from payload tail")
	}
}

func TestServeExplicitRange(t *testing.T) {
	payload := randomPayload(t, 10_000)
	svc, id := newFixture(t, media.StatusSafe, payload)

	rec := httptest.NewRecorder()
	if err := svc.Serve(context.Background(), rec, id, viewer, "bytes=100-299"); err != nil {
		t.Fatalf("Serve: %v", err)
	}

	if rec.Code != http.StatusPartialContent {
		t.Fatalf("status = %d, want 206", rec.Code)
	}
	if got := rec.Header().Get("Content-Range"); got != "bytes 100-299/10000" {
		t.Errorf("Content-Range = %q", got)
	}
	if !bytes.Equal(rec.Body.Bytes(), payload[100:300]) {
		t.Error("partial body differs from payload[100:300]")
	}
}

func TestServeUnsatisfiableRanges(t *testing.T) {
	payload := randomPayload(t, 10_000)
	svc, id := newFixture(t, media.StatusSafe, payload)

	cases := []struct {
		name   string
		header string
	}{
		{"start after end", "bytes=100-50"},
		{"start beyond size", "bytes=10000-"},
		{"end beyond size", "bytes=0-10000"},
		{"missing start", "bytes=-500"},
		{"not a number", "bytes=abc-"},
		{"wrong unit", "items=0-100"},
		{"multiple ranges", "bytes=0-10,20-30"},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			rec := httptest.NewRecorder()
			err := svc.Serve(context.Background(), rec, id, viewer, tc.header)
			if !platformerrors.IsErrorType(err, platformerrors.ErrorTypeRangeNotSatisfiable) {
				t.Fatalf("error = %v, want range not satisfiable", err)
			}
			if got := rec.Header().Get("Content-Range"); got != "bytes */10000" {
				t.Errorf("Content-Range = %q, want bytes */10000", got)
			}
		})
	}
}

func TestServeContiguousRangesReassemble(t *testing.T) {
	payload := randomPayload(t, 257_123)
	svc, id := newFixture(t, media.StatusSafe, payload)

	const chunk = 33_000
	var assembled []byte
	for start := 0; start < len(payload); start += chunk {
		end := start + chunk - 1
		if end >= len(payload) {
			end = len(payload) - 1
		}

		rec := httptest.NewRecorder()
		header := fmt.Sprintf("bytes=%d-%d", start, end)
		if err := svc.Serve(context.Background(), rec, id, viewer, header); err != nil {
			t.Fatalf("Serve %s: %v", header, err)
		}
		if rec.Code != http.StatusPartialContent {
			t.Fatalf("%s: status = %d, want 206", header, rec.Code)
		}
		assembled = append(assembled, rec.Body.Bytes()...)
	}

	if !bytes.Equal(assembled, payload) {
		t.Error("contiguous chunks do not reassemble into the original payload")
	}
}

func TestServeFlaggedGating(t *testing.T) {
	payload := randomPayload(t, 1024)
	svc, id := newFixture(t, media.StatusFlagged, payload)

	rec := httptest.NewRecorder()
	err := svc.Serve(context.Background(), rec, id, viewer, "")
	if !platformerrors.IsErrorType(err, platformerrors.ErrorTypeForbidden) {
		t.Fatalf("viewer error = %v, want forbidden", err)
	}

	rec = httptest.NewRecorder()
	if err := svc.Serve(context.Background(), rec, id, admin, ""); err != nil {
		t.Fatalf("admin Serve: %v", err)
	}
	if rec.Code != http.StatusOK {
		t.Errorf("admin status = %d, want 200", rec.Code)
	}
}

func TestServeMissingRecord(t *testing.T) {
	svc, _ := newFixture(t, media.StatusSafe, randomPayload(t, 16))

	rec := httptest.NewRecorder()
	err := svc.Serve(context.Background(), rec, "med_absent", viewer, "")
	if !platformerrors.IsErrorType(err, platformerrors.ErrorTypeNotFound) {
		t.Fatalf("error = %v, want not found", err)
	}
}

func TestServeMissingPayloadBytes(t *testing.T) {
	st := store.NewMemoryStore(zerolog.Nop())
	blobs := newMemBlobs()
	ctx := context.Background()

	record := &media.MediaRecord{ID: "med_orphan", StorageKey: "med_orphan.bin", Status: media.StatusSafe}
	if err := st.Create(ctx, record); err != nil {
		t.Fatalf("seed record: %v", err)
	}

	svc := delivery.NewService(st, blobs, zerolog.Nop())

	rec := httptest.NewRecorder()
	err := svc.Serve(ctx, rec, "med_orphan", viewer, "")
	if !platformerrors.IsErrorType(err, platformerrors.ErrorTypeNotFound) {
		t.Fatalf("error = %v, want not found", err)
	}
}
