package storage

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
)

// digestLength is how many hex characters of the SHA-256 go into stored names.
const digestLength = 12

// LocalStorage implements Storage using the local filesystem
type LocalStorage struct {
	basePath string

	mu    sync.Mutex
	locks map[string]*sync.Mutex
}

// NewLocalStorage creates a new local filesystem storage
func NewLocalStorage(basePath string) (*LocalStorage, error) {
	if err := os.MkdirAll(basePath, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create storage directory: %w", err)
	}

	return &LocalStorage{basePath: basePath, locks: map[string]*sync.Mutex{}}, nil
}

// ContentHash returns the hex SHA-256 of data.
func ContentHash(data []byte) string {
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:])
}

// StoredName returns "<stem>-<first 12 hex of sha256><ext>" for a sanitized filename.
func StoredName(filename string, data []byte) string {
	safe := sanitizeFilename(filepath.Base(filename))
	ext := filepath.Ext(safe)
	stem := strings.TrimSuffix(safe, ext)
	if stem == "" {
		stem = "upload"
	}
	return fmt.Sprintf("%s-%s%s", stem, ContentHash(data)[:digestLength], ext)
}

// Save stores a file and returns its metadata
func (s *LocalStorage) Save(ctx context.Context, sessionID uuid.UUID, filename, contentType string, data []byte, attrs map[string]string) (*FileInfo, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	sessionDir := filepath.Join(s.basePath, sessionID.String())
	if err := os.MkdirAll(sessionDir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create session directory: %w", err)
	}

	digest := ContentHash(data)
	storedName := StoredName(filename, data)
	fileID := uuid.NewSHA1(sessionID, []byte(storedName))
	target := filepath.Join(sessionDir, storedName)

	unlock := s.lock(target)
	defer unlock()

	if err := WriteAtomic(target, data); err != nil {
		return nil, err
	}

	info := &FileInfo{
		ID:          fileID,
		Name:        filename,
		Size:        int64(len(data)),
		ContentType: contentType,
		SHA256:      digest,
		Path:        storedName,
		CreatedAt:   time.Now().UTC(),
		Attributes:  attrs,
	}

	if err := s.saveMetadata(sessionID, fileID, info); err != nil {
		_ = os.Remove(target)
		return nil, err
	}

	return info, nil
}

// Read returns the content and metadata of a file
func (s *LocalStorage) Read(ctx context.Context, sessionID, fileID uuid.UUID) ([]byte, *FileInfo, error) {
	info, err := s.GetInfo(ctx, sessionID, fileID)
	if err != nil {
		return nil, nil, err
	}

	data, err := os.ReadFile(filepath.Join(s.basePath, sessionID.String(), info.Path))
	if err != nil {
		return nil, nil, fmt.Errorf("failed to read file: %w", err)
	}
	return data, info, nil
}

// Delete removes a file by its ID
func (s *LocalStorage) Delete(ctx context.Context, sessionID, fileID uuid.UUID) error {
	info, err := s.GetInfo(ctx, sessionID, fileID)
	if err != nil {
		return err
	}

	filePath := filepath.Join(s.basePath, sessionID.String(), info.Path)
	if err := os.Remove(filePath); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("failed to delete file: %w", err)
	}

	_ = os.Remove(s.metaPath(sessionID, fileID))
	return nil
}

// List returns all files of a session
func (s *LocalStorage) List(ctx context.Context, sessionID uuid.UUID) ([]*FileInfo, error) {
	metaDir := filepath.Join(s.basePath, sessionID.String(), ".meta")
	if _, err := os.Stat(metaDir); os.IsNotExist(err) {
		return []*FileInfo{}, nil
	}

	entries, err := os.ReadDir(metaDir)
	if err != nil {
		return nil, fmt.Errorf("failed to list metadata: %w", err)
	}

	files := make([]*FileInfo, 0, len(entries))
	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), ".json") {
			continue
		}

		id, err := uuid.Parse(strings.TrimSuffix(entry.Name(), ".json"))
		if err != nil {
			continue
		}

		info, err := s.GetInfo(ctx, sessionID, id)
		if err != nil {
			continue
		}
		files = append(files, info)
	}

	return files, nil
}

// GetInfo returns metadata for a file without reading it
func (s *LocalStorage) GetInfo(ctx context.Context, sessionID, fileID uuid.UUID) (*FileInfo, error) {
	data, err := os.ReadFile(s.metaPath(sessionID, fileID))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("%w: %s", ErrNotFound, fileID)
		}
		return nil, fmt.Errorf("failed to read metadata: %w", err)
	}

	var info FileInfo
	if err := json.Unmarshal(data, &info); err != nil {
		return nil, fmt.Errorf("failed to parse metadata: %w", err)
	}

	return &info, nil
}

func (s *LocalStorage) metaPath(sessionID, fileID uuid.UUID) string {
	return filepath.Join(s.basePath, sessionID.String(), ".meta", fileID.String()+".json")
}

// saveMetadata saves file metadata to a JSON file
func (s *LocalStorage) saveMetadata(sessionID, fileID uuid.UUID, info *FileInfo) error {
	metaDir := filepath.Join(s.basePath, sessionID.String(), ".meta")
	if err := os.MkdirAll(metaDir, 0o755); err != nil {
		return fmt.Errorf("failed to create metadata directory: %w", err)
	}

	data, err := json.MarshalIndent(info, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal metadata: %w", err)
	}

	return WriteAtomic(s.metaPath(sessionID, fileID), data)
}

// lock serializes writers of one target path within the process.
func (s *LocalStorage) lock(path string) func() {
	s.mu.Lock()
	l, ok := s.locks[path]
	if !ok {
		l = &sync.Mutex{}
		s.locks[path] = l
	}
	s.mu.Unlock()

	l.Lock()
	return l.Unlock
}

// WriteAtomic writes data to a temporary file in the target directory, syncs
// it to disk and renames it over path, so readers never see a partial file.
func WriteAtomic(path string, data []byte) (err error) {
	tmp, err := os.CreateTemp(filepath.Dir(path), filepath.Base(path)+".*.tmp")
	if err != nil {
		return fmt.Errorf("failed to create temp file: %w", err)
	}
	defer func() {
		if err != nil {
			_ = os.Remove(tmp.Name())
		}
	}()

	if _, err = tmp.Write(data); err != nil {
		_ = tmp.Close()
		return fmt.Errorf("failed to write file: %w", err)
	}
	if err = tmp.Sync(); err != nil {
		_ = tmp.Close()
		return fmt.Errorf("failed to sync file: %w", err)
	}
	if err = tmp.Close(); err != nil {
		return fmt.Errorf("failed to close file: %w", err)
	}
	if err = os.Rename(tmp.Name(), path); err != nil {
		return fmt.Errorf("failed to move file into place: %w", err)
	}
	return nil
}

// sanitizeFilename removes unsafe characters from filenames
func sanitizeFilename(name string) string {
	replacer := strings.NewReplacer(
		"/", "_",
		"\\", "_",
		"..", "_",
		":", "_",
		"*", "_",
		"?", "_",
		"\"", "_",
		"<", "_",
		">", "_",
		"|", "_",
	)
	return replacer.Replace(name)
}

// IsNotFound reports whether err means the file does not exist.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrNotFound)
}
