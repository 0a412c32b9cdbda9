package storage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
)

// LocalStore keeps objects as files below a root directory.
type LocalStore struct {
	root string
}

func NewLocalStore(root string) (*LocalStore, error) {
	if err := os.MkdirAll(root, 0755); err != nil {
		return nil, fmt.Errorf("failed to create storage directory: %w", err)
	}
	abs, err := filepath.Abs(root)
	if err != nil {
		return nil, err
	}
	return &LocalStore{root: abs}, nil
}

func (s *LocalStore) resolve(objectName string) (string, error) {
	p := filepath.Join(s.root, filepath.FromSlash(objectName))
	if p != s.root && !strings.HasPrefix(p, s.root+string(filepath.Separator)) {
		return "", fmt.Errorf("invalid object name %q", objectName)
	}
	return p, nil
}

func (s *LocalStore) UploadFile(ctx context.Context, reader io.Reader, objectName, contentType string) (*UploadResult, error) {
	p, err := s.resolve(objectName)
	if err != nil {
		return nil, err
	}
	if err := os.MkdirAll(filepath.Dir(p), 0755); err != nil {
		return nil, fmt.Errorf("failed to create object directory: %w", err)
	}
	out, err := os.Create(p)
	if err != nil {
		return nil, fmt.Errorf("failed to create object: %w", err)
	}
	size, err := io.Copy(out, reader)
	if err != nil {
		out.Close()
		os.Remove(p)
		return nil, fmt.Errorf("failed to write object: %w", err)
	}
	if err := out.Close(); err != nil {
		return nil, fmt.Errorf("failed to close object: %w", err)
	}
	return &UploadResult{ObjectName: objectName, PublicURL: "file://" + p, Size: size}, nil
}

func (s *LocalStore) ReadFile(ctx context.Context, objectName string) (io.ReadCloser, error) {
	p, err := s.resolve(objectName)
	if err != nil {
		return nil, err
	}
	f, err := os.Open(p)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("%w: %s", ErrObjectNotFound, objectName)
	}
	return f, err
}

func (s *LocalStore) DeleteFile(ctx context.Context, objectName string) error {
	p, err := s.resolve(objectName)
	if err != nil {
		return err
	}
	err = os.Remove(p)
	if errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("%w: %s", ErrObjectNotFound, objectName)
	}
	return err
}

func (s *LocalStore) Close() error {
	return nil
}
