// Package scratch keeps short-lived per-session artifacts (exported tables,
// reports) in memory until they are bundled or expire.
package scratch

import (
	"errors"
	"path"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
)

var (
	ErrInvalidName = errors.New("invalid artifact name")
	ErrNotFound    = errors.New("artifact not found")
)

// Artifact is one stored file
type Artifact struct {
	Name      string    `json:"name"`
	Size      int       `json:"size"`
	UpdatedAt time.Time `json:"updated_at"`
	data      []byte
}

type session struct {
	artifacts map[string]*Artifact
	touched   time.Time
}

// Store is safe for concurrent use.
type Store struct {
	mu       sync.Mutex
	ttl      time.Duration
	sessions map[uuid.UUID]*session
	now      func() time.Time
}

// New returns a store whose sessions expire ttl after their last write.
func New(ttl time.Duration) *Store {
	return &Store{
		ttl:      ttl,
		sessions: make(map[uuid.UUID]*session),
		now:      time.Now,
	}
}

// CleanName validates an artifact name: a single path element without
// traversal or hidden-file prefixes.
func CleanName(name string) (string, error) {
	name = strings.TrimSpace(name)
	if name == "" || strings.ContainsAny(name, `/\`) || name != path.Base(name) || strings.HasPrefix(name, ".") {
		return "", ErrInvalidName
	}
	return name, nil
}

// Put stores data under name, replacing any previous artifact.
func (s *Store) Put(sessionID uuid.UUID, name string, data []byte) (*Artifact, error) {
	name, err := CleanName(name)
	if err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	sess, ok := s.sessions[sessionID]
	if !ok {
		sess = &session{artifacts: make(map[string]*Artifact)}
		s.sessions[sessionID] = sess
	}
	sess.touched = now

	a := &Artifact{Name: name, Size: len(data), UpdatedAt: now, data: append([]byte(nil), data...)}
	sess.artifacts[name] = a
	return a, nil
}

// Get returns a copy of an artifact's content.
func (s *Store) Get(sessionID uuid.UUID, name string) ([]byte, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	sess, ok := s.sessions[sessionID]
	if !ok {
		return nil, ErrNotFound
	}
	a, ok := sess.artifacts[name]
	if !ok {
		return nil, ErrNotFound
	}
	return append([]byte(nil), a.data...), nil
}

// List returns the session's artifacts sorted by name.
func (s *Store) List(sessionID uuid.UUID) []Artifact {
	s.mu.Lock()
	defer s.mu.Unlock()

	sess, ok := s.sessions[sessionID]
	if !ok {
		return nil
	}
	out := make([]Artifact, 0, len(sess.artifacts))
	for _, a := range sess.artifacts {
		out = append(out, Artifact{Name: a.Name, Size: a.Size, UpdatedAt: a.UpdatedAt})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

// Files returns a copy of every artifact of the session keyed by name.
func (s *Store) Files(sessionID uuid.UUID) map[string][]byte {
	s.mu.Lock()
	defer s.mu.Unlock()

	files := map[string][]byte{}
	if sess, ok := s.sessions[sessionID]; ok {
		for name, a := range sess.artifacts {
			files[name] = append([]byte(nil), a.data...)
		}
	}
	return files
}

// Purge drops sessions idle for longer than the TTL at now and returns how
// many were removed.
func (s *Store) Purge(now time.Time) int {
	s.mu.Lock()
	defer s.mu.Unlock()

	removed := 0
	for id, sess := range s.sessions {
		if now.Sub(sess.touched) > s.ttl {
			delete(s.sessions, id)
			removed++
		}
	}
	return removed
}
