package storage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/rs/zerolog"

	"mediavault/internal/config"
	"mediavault/internal/domain/media"
)

// LocalStorage stores payload bytes on the local filesystem, one file per
// storage key under the configured base path.
type LocalStorage struct {
	basePath string
	log      zerolog.Logger
}

// NewLocalStorage creates a local filesystem storage backend.
func NewLocalStorage(cfg *config.Config, log zerolog.Logger) (*LocalStorage, error) {
	logger := log.With().Str("component", "local-storage").Logger()

	basePath := cfg.LocalStoragePath
	if basePath == "" {
		return nil, errors.New("MEDIA_LOCAL_STORAGE_PATH must be set for the local storage backend")
	}
	if err := os.MkdirAll(basePath, 0755); err != nil {
		return nil, fmt.Errorf("create local storage directory: %w", err)
	}

	logger.Info().Str("path", basePath).Msg("local storage initialized")

	return &LocalStorage{
		basePath: basePath,
		log:      logger,
	}, nil
}

// Save writes the payload to a temp file and renames it into place, so
// readers never observe a half-written payload.
func (l *LocalStorage) Save(ctx context.Context, key string, body io.Reader, size int64, contentType string) error {
	fullPath := l.pathFor(key)
	if err := os.MkdirAll(filepath.Dir(fullPath), 0755); err != nil {
		return fmt.Errorf("create directory: %w", err)
	}

	tmp, err := os.CreateTemp(filepath.Dir(fullPath), ".upload-*")
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}
	defer os.Remove(tmp.Name())

	written, err := io.Copy(tmp, body)
	if closeErr := tmp.Close(); err == nil {
		err = closeErr
	}
	if err != nil {
		return fmt.Errorf("write payload: %w", err)
	}

	if err := os.Rename(tmp.Name(), fullPath); err != nil {
		return fmt.Errorf("finalize payload: %w", err)
	}

	l.log.Debug().
		Str("key", key).
		Int64("bytes", written).
		Str("content_type", contentType).
		Msg("payload saved to local storage")

	return nil
}

// Open returns the payload file for random-access reads.
func (l *LocalStorage) Open(ctx context.Context, key string) (media.Payload, error) {
	file, err := os.Open(l.pathFor(key))
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("open %s: %w", key, media.ErrPayloadMissing)
		}
		return nil, fmt.Errorf("open payload: %w", err)
	}

	info, err := file.Stat()
	if err != nil {
		file.Close()
		return nil, fmt.Errorf("stat payload: %w", err)
	}

	return &localPayload{File: file, size: info.Size()}, nil
}

// Delete removes the payload file. A missing file is not an error.
func (l *LocalStorage) Delete(ctx context.Context, key string) error {
	if err := os.Remove(l.pathFor(key)); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("delete payload: %w", err)
	}
	return nil
}

// Health checks that the storage directory is writable.
func (l *LocalStorage) Health(ctx context.Context) error {
	testFile := filepath.Join(l.basePath, ".health_check")
	if err := os.WriteFile(testFile, []byte("ok"), 0644); err != nil {
		return fmt.Errorf("storage directory not writable: %w", err)
	}
	_ = os.Remove(testFile)
	return nil
}

func (l *LocalStorage) pathFor(key string) string {
	return filepath.Join(l.basePath, filepath.FromSlash(key))
}

// localPayload wraps an open file; *os.File already provides ReadAt/Close.
type localPayload struct {
	*os.File
	size int64
}

func (p *localPayload) Size() int64 { return p.size }
