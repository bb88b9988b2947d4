package storage_test

import (
	"bytes"
	"context"
	"errors"
	"io"
	"strings"
	"testing"

	"github.com/rs/zerolog"

	"mediavault/internal/config"
	"mediavault/internal/domain/media"
	"mediavault/internal/infrastructure/storage"
)

func newLocal(t *testing.T) *storage.LocalStorage {
	t.Helper()
	cfg := &config.Config{LocalStoragePath: t.TempDir()}
	local, err := storage.NewLocalStorage(cfg, zerolog.Nop())
	if err != nil {
		t.Fatalf("NewLocalStorage: %v", err)
	}
	return local
}

func TestLocalStorageRoundTrip(t *testing.T) {
	local := newLocal(t)
	ctx := context.Background()
	data := []byte("payload bytes for the round trip")

	if err := local.Save(ctx, "med_x.bin", strings.NewReader(string(data)), int64(len(data)), "application/octet-stream"); err != nil {
		t.Fatalf("Save: %v", err)
	}

	payload, err := local.Open(ctx, "med_x.bin")
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	defer payload.Close()

	if payload.Size() != int64(len(data)) {
		t.Errorf("Size = %d, want %d", payload.Size(), len(data))
	}

	got := make([]byte, 7)
	if _, err := payload.ReadAt(got, 8); err != nil {
		t.Fatalf("ReadAt: %v", err)
	}
	if !bytes.Equal(got, data[8:15]) {
		t.Errorf("ReadAt = %q, want %q", got, data[8:15])
	}

	all, err := io.ReadAll(io.NewSectionReader(payload, 0, payload.Size()))
	if err != nil {
		t.Fatalf("read all: %v", err)
	}
	if !bytes.Equal(all, data) {
		t.Error("full read differs from saved payload")
	}
}

func TestLocalStorageOpenMissing(t *testing.T) {
	local := newLocal(t)

	_, err := local.Open(context.Background(), "med_absent.bin")
	if !errors.Is(err, media.ErrPayloadMissing) {
		t.Fatalf("error = %v, want ErrPayloadMissing", err)
	}
}

func TestLocalStorageDelete(t *testing.T) {
	local := newLocal(t)
	ctx := context.Background()

	if err := local.Save(ctx, "med_d.bin", strings.NewReader("x"), 1, "text/plain"); err != nil {
		t.Fatalf("Save: %v", err)
	}
	if err := local.Delete(ctx, "med_d.bin"); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	if _, err := local.Open(ctx, "med_d.bin"); !errors.Is(err, media.ErrPayloadMissing) {
		t.Errorf("Open after delete error = %v, want ErrPayloadMissing", err)
	}

	// Deleting an absent key is a no-op.
	if err := local.Delete(ctx, "med_d.bin"); err != nil {
		t.Errorf("second Delete: %v", err)
	}
}

func TestLocalStorageHealth(t *testing.T) {
	local := newLocal(t)
	if err := local.Health(context.Background()); err != nil {
		t.Errorf("Health: %v", err)
	}
}
