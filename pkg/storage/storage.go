// Package storage keeps uploaded files on disk, named by content hash and
// written atomically.
package storage

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
)

var ErrNotFound = errors.New("file not found")

// FileInfo contains metadata about a stored file
type FileInfo struct {
	ID          uuid.UUID `json:"id"`
	Name        string    `json:"name"`
	Size        int64     `json:"size"`
	ContentType string    `json:"content_type"`
	SHA256      string    `json:"sha256"`
	Path        string    `json:"path"` // Internal storage path
	CreatedAt   time.Time `json:"created_at"`

	// Attributes are caller-defined key/value pairs kept in the metadata sidecar.
	Attributes map[string]string `json:"attributes,omitempty"`
}

// Storage defines the interface for file storage operations
type Storage interface {
	// Save stores a file and returns its metadata. Saving identical content
	// twice in the same session returns the same file; the latest attributes win.
	Save(ctx context.Context, sessionID uuid.UUID, filename, contentType string, data []byte, attrs map[string]string) (*FileInfo, error)

	// Read returns the content and metadata of a file
	Read(ctx context.Context, sessionID, fileID uuid.UUID) ([]byte, *FileInfo, error)

	// Delete removes a file by its ID
	Delete(ctx context.Context, sessionID, fileID uuid.UUID) error

	// List returns all files of a session
	List(ctx context.Context, sessionID uuid.UUID) ([]*FileInfo, error)

	// GetInfo returns metadata for a file without reading it
	GetInfo(ctx context.Context, sessionID, fileID uuid.UUID) (*FileInfo, error)
}

// StorageType identifies the storage backend
type StorageType string

const (
	StorageTypeLocal StorageType = "local"
)

// Config holds storage configuration
type Config struct {
	Type      StorageType `mapstructure:"type" yaml:"type"`
	LocalPath string      `mapstructure:"local_path" yaml:"local_path"`
}

// New creates a new Storage implementation based on configuration
func New(cfg *Config) (Storage, error) {
	switch cfg.Type {
	case StorageTypeLocal, "":
		return NewLocalStorage(cfg.LocalPath)
	default:
		return nil, errors.New("unsupported storage type: " + string(cfg.Type))
	}
}
