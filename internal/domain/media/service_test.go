package media_test

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"strings"
	"testing"

	"github.com/rs/zerolog"

	"mediavault/internal/domain/identity"
	"mediavault/internal/domain/media"
	"mediavault/internal/infrastructure/store"
	"mediavault/internal/utils/platformerrors"
)

const testMaxBytes = 1 << 20

var (
	editor      = identity.Identity{UserID: "editor-1", Role: identity.RoleEditor}
	otherEditor = identity.Identity{UserID: "editor-2", Role: identity.RoleEditor}
	admin       = identity.Identity{UserID: "admin-1", Role: identity.RoleAdmin}
	viewer      = identity.Identity{UserID: "user-1", Role: identity.RoleUser}
)

type fakeAnalyzer struct {
	started   []string
	cancelled []string
	startErr  error
}

func (a *fakeAnalyzer) Start(id string) error {
	if a.startErr != nil {
		return a.startErr
	}
	a.started = append(a.started, id)
	return nil
}

func (a *fakeAnalyzer) Cancel(id string) {
	a.cancelled = append(a.cancelled, id)
}

type fakeBlobs struct {
	objects map[string][]byte
	saveErr error
}

func newFakeBlobs() *fakeBlobs {
	return &fakeBlobs{objects: make(map[string][]byte)}
}

func (b *fakeBlobs) Save(_ context.Context, key string, body io.Reader, _ int64, _ string) error {
	if b.saveErr != nil {
		return b.saveErr
	}
	data, err := io.ReadAll(body)
	if err != nil {
		return err
	}
	b.objects[key] = data
	return nil
}

func (b *fakeBlobs) Open(_ context.Context, key string) (media.Payload, error) {
	return nil, fmt.Errorf("open %s: %w", key, media.ErrPayloadMissing)
}

func (b *fakeBlobs) Delete(_ context.Context, key string) error {
	delete(b.objects, key)
	return nil
}

type fixture struct {
	svc      *media.Service
	store    *store.MemoryStore
	blobs    *fakeBlobs
	analyzer *fakeAnalyzer
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	st := store.NewMemoryStore(zerolog.Nop())
	blobs := newFakeBlobs()
	analyzer := &fakeAnalyzer{}
	ids := 0
	idFn := func() string {
		ids++
		return fmt.Sprintf("med_test%03d", ids)
	}
	return &fixture{
		svc:      media.NewService(st, blobs, analyzer, testMaxBytes, idFn, zerolog.Nop()),
		store:    st,
		blobs:    blobs,
		analyzer: analyzer,
	}
}

func TestUploadIngestsAndSchedules(t *testing.T) {
	f := newFixture(t)
	payload := []byte("%PDF-1.4 tiny but recognizable document body")

	record, err := f.svc.Upload(context.Background(), editor, "quarterly report", bytes.NewReader(payload), int64(len(payload)))
	if err != nil {
		t.Fatalf("Upload: %v", err)
	}

	if record.Status != media.StatusProcessing || record.Progress != 0 {
		t.Errorf("initial state = %s/%d, want processing/0", record.Status, record.Progress)
	}
	if record.OwnerID != editor.UserID {
		t.Errorf("owner = %q, want %q", record.OwnerID, editor.UserID)
	}
	if record.Bytes != int64(len(payload)) {
		t.Errorf("bytes = %d, want %d", record.Bytes, len(payload))
	}
	if !strings.HasPrefix(record.MimeType, "application/pdf") {
		t.Errorf("mime = %q, want application/pdf", record.MimeType)
	}

	sum := sha256.Sum256(payload)
	if record.Sha256 != hex.EncodeToString(sum[:]) {
		t.Errorf("sha256 = %q, want %q", record.Sha256, hex.EncodeToString(sum[:]))
	}

	stored, ok := f.blobs.objects[record.StorageKey]
	if !ok {
		t.Fatalf("payload not stored under %q", record.StorageKey)
	}
	if !bytes.Equal(stored, payload) {
		t.Error("stored payload differs from upload")
	}

	if len(f.analyzer.started) != 1 || f.analyzer.started[0] != record.ID {
		t.Errorf("analyzer started = %v, want [%s]", f.analyzer.started, record.ID)
	}

	persisted, err := f.store.Get(context.Background(), record.ID)
	if err != nil {
		t.Fatalf("Get persisted record: %v", err)
	}
	if persisted.Title != "quarterly report" {
		t.Errorf("persisted title = %q", persisted.Title)
	}
}

func TestUploadRejections(t *testing.T) {
	cases := []struct {
		name     string
		caller   identity.Identity
		size     int64
		wantType platformerrors.ErrorType
	}{
		{"viewer cannot upload", viewer, 10, platformerrors.ErrorTypeForbidden},
		{"zero size", editor, 0, platformerrors.ErrorTypeValidation},
		{"oversize", editor, testMaxBytes + 1, platformerrors.ErrorTypeValidation},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			f := newFixture(t)
			_, err := f.svc.Upload(context.Background(), tc.caller, "x", strings.NewReader("data"), tc.size)
			if !platformerrors.IsErrorType(err, tc.wantType) {
				t.Fatalf("error = %v, want %s", err, tc.wantType)
			}
			if len(f.analyzer.started) != 0 {
				t.Error("analyzer started despite rejection")
			}
		})
	}
}

func TestUploadRollsBackOnAnalyzerRefusal(t *testing.T) {
	f := newFixture(t)
	f.analyzer.startErr = errors.New("shutting down")

	_, err := f.svc.Upload(context.Background(), editor, "x", strings.NewReader("payload"), 7)
	if !platformerrors.IsErrorType(err, platformerrors.ErrorTypeInternal) {
		t.Fatalf("error = %v, want internal", err)
	}

	records, listErr := f.store.List(context.Background(), media.Filter{})
	if listErr != nil {
		t.Fatalf("List: %v", listErr)
	}
	if len(records) != 0 {
		t.Error("record left behind after rollback")
	}
	if len(f.blobs.objects) != 0 {
		t.Error("payload left behind after rollback")
	}
}

func seed(t *testing.T, f *fixture, id, owner string, status media.Status) {
	t.Helper()
	err := f.store.Create(context.Background(), &media.MediaRecord{
		ID:         id,
		Title:      "seeded",
		StorageKey: id + ".bin",
		OwnerID:    owner,
		Status:     status,
	})
	if err != nil {
		t.Fatalf("seed %s: %v", id, err)
	}
	f.blobs.objects[id+".bin"] = []byte("seeded-bytes")
}

func TestListVisibility(t *testing.T) {
	f := newFixture(t)
	seed(t, f, "med_safe", editor.UserID, media.StatusSafe)
	seed(t, f, "med_flag", editor.UserID, media.StatusFlagged)
	seed(t, f, "med_proc", otherEditor.UserID, media.StatusProcessing)

	cases := []struct {
		name   string
		caller identity.Identity
		want   int
	}{
		{"admin sees all", admin, 3},
		{"editor sees own", editor, 2},
		{"other editor sees own", otherEditor, 1},
		{"viewer sees safe only", viewer, 1},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got, err := f.svc.List(context.Background(), tc.caller)
			if err != nil {
				t.Fatalf("List: %v", err)
			}
			if len(got) != tc.want {
				t.Errorf("visible records = %d, want %d", len(got), tc.want)
			}
		})
	}

	visible, err := f.svc.List(context.Background(), viewer)
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if visible[0].ID != "med_safe" {
		t.Errorf("viewer sees %q, want med_safe", visible[0].ID)
	}
}

func TestUpdateTitle(t *testing.T) {
	f := newFixture(t)
	seed(t, f, "med_t", editor.UserID, media.StatusSafe)

	title := "renamed"
	updated, err := f.svc.Update(context.Background(), editor, "med_t", media.UpdateFields{Title: &title})
	if err != nil {
		t.Fatalf("Update: %v", err)
	}
	if updated.Title != "renamed" {
		t.Errorf("title = %q, want renamed", updated.Title)
	}

	if _, err := f.svc.Update(context.Background(), otherEditor, "med_t", media.UpdateFields{Title: &title}); !platformerrors.IsErrorType(err, platformerrors.ErrorTypeForbidden) {
		t.Errorf("non-owner update error = %v, want forbidden", err)
	}

	empty := ""
	if _, err := f.svc.Update(context.Background(), editor, "med_t", media.UpdateFields{Title: &empty}); !platformerrors.IsErrorType(err, platformerrors.ErrorTypeValidation) {
		t.Errorf("empty title error = %v, want validation", err)
	}

	if _, err := f.svc.Update(context.Background(), editor, "med_t", media.UpdateFields{}); !platformerrors.IsErrorType(err, platformerrors.ErrorTypeValidation) {
		t.Errorf("empty update error = %v, want validation", err)
	}
}

func TestUpdateStatusOverride(t *testing.T) {
	f := newFixture(t)
	seed(t, f, "med_done", editor.UserID, media.StatusFlagged)
	seed(t, f, "med_busy", editor.UserID, media.StatusProcessing)

	safe := media.StatusSafe
	updated, err := f.svc.Update(context.Background(), admin, "med_done", media.UpdateFields{Status: &safe})
	if err != nil {
		t.Fatalf("admin override: %v", err)
	}
	if updated.Status != media.StatusSafe {
		t.Errorf("status = %q, want safe", updated.Status)
	}

	if _, err := f.svc.Update(context.Background(), editor, "med_done", media.UpdateFields{Status: &safe}); !platformerrors.IsErrorType(err, platformerrors.ErrorTypeForbidden) {
		t.Errorf("editor override error = %v, want forbidden", err)
	}

	if _, err := f.svc.Update(context.Background(), admin, "med_busy", media.UpdateFields{Status: &safe}); !platformerrors.IsErrorType(err, platformerrors.ErrorTypeConflict) {
		t.Errorf("override while processing error = %v, want conflict", err)
	}

	processing := media.StatusProcessing
	if _, err := f.svc.Update(context.Background(), admin, "med_done", media.UpdateFields{Status: &processing}); !platformerrors.IsErrorType(err, platformerrors.ErrorTypeValidation) {
		t.Errorf("non-terminal target error = %v, want validation", err)
	}
}

func TestDelete(t *testing.T) {
	f := newFixture(t)
	seed(t, f, "med_del", editor.UserID, media.StatusProcessing)

	if err := f.svc.Delete(context.Background(), otherEditor, "med_del"); !platformerrors.IsErrorType(err, platformerrors.ErrorTypeForbidden) {
		t.Fatalf("non-owner delete error = %v, want forbidden", err)
	}

	if err := f.svc.Delete(context.Background(), editor, "med_del"); err != nil {
		t.Fatalf("Delete: %v", err)
	}

	if len(f.analyzer.cancelled) != 1 || f.analyzer.cancelled[0] != "med_del" {
		t.Errorf("analyzer cancelled = %v, want [med_del]", f.analyzer.cancelled)
	}
	if _, err := f.store.Get(context.Background(), "med_del"); !platformerrors.IsErrorType(err, platformerrors.ErrorTypeNotFound) {
		t.Errorf("record still present after delete")
	}
	if _, ok := f.blobs.objects["med_del.bin"]; ok {
		t.Error("payload bytes still present after delete")
	}

	if err := f.svc.Delete(context.Background(), editor, "med_del"); !platformerrors.IsErrorType(err, platformerrors.ErrorTypeNotFound) {
		t.Errorf("second delete error = %v, want not found", err)
	}
}
