package session

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
)

// FileStore keeps the credential in a single sealed file.
type FileStore struct {
	path   string
	sealer *Sealer
}

func NewFileStore(path, secret string) (*FileStore, error) {
	if path == "" {
		return nil, fmt.Errorf("file store path is required")
	}
	sealer, err := NewSealer(secret)
	if err != nil {
		return nil, fmt.Errorf("file store: %w", err)
	}
	return &FileStore{path: path, sealer: sealer}, nil
}

func (f *FileStore) Load(ctx context.Context) (string, error) {
	data, err := os.ReadFile(f.path)
	if errors.Is(err, os.ErrNotExist) {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("reading session file: %w", err)
	}
	return f.sealer.Open(data)
}

func (f *FileStore) Save(ctx context.Context, token string) error {
	sealed, err := f.sealer.Seal(token)
	if err != nil {
		return err
	}

	if err := os.MkdirAll(filepath.Dir(f.path), 0o700); err != nil {
		return fmt.Errorf("creating session directory: %w", err)
	}

	tmp := f.path + ".tmp"
	if err := os.WriteFile(tmp, sealed, 0o600); err != nil {
		return fmt.Errorf("writing session file: %w", err)
	}
	if err := os.Rename(tmp, f.path); err != nil {
		return fmt.Errorf("replacing session file: %w", err)
	}
	return nil
}

func (f *FileStore) Clear(ctx context.Context) error {
	if err := os.Remove(f.path); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("removing session file: %w", err)
	}
	return nil
}
