// Package storage accepts uploaded binary content and returns a retrievable
// reference path. The core never inspects the content.
package storage

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
)

// FileStore is the file-storage collaborator consumed by the handlers.
type FileStore interface {
	Save(name string, content io.Reader) (string, error)
}

// LocalStore writes uploads under a base directory.
type LocalStore struct {
	baseDir string
}

func NewLocalStore(baseDir string) (*LocalStore, error) {
	if err := os.MkdirAll(baseDir, 0o755); err != nil {
		return nil, fmt.Errorf("creating upload dir: %w", err)
	}
	return &LocalStore{baseDir: baseDir}, nil
}

// Save stores the content under a collision-free name and returns the
// reference path.
func (s *LocalStore) Save(name string, content io.Reader) (string, error) {
	ref := filepath.Join(
		time.Now().UTC().Format("2006/01"),
		uuid.New().String()+"_"+filepath.Base(name),
	)

	full := filepath.Join(s.baseDir, ref)
	if err := os.MkdirAll(filepath.Dir(full), 0o755); err != nil {
		return "", err
	}

	f, err := os.Create(full)
	if err != nil {
		return "", err
	}
	defer f.Close()

	if _, err := io.Copy(f, content); err != nil {
		os.Remove(full)
		return "", err
	}
	return ref, nil
}
