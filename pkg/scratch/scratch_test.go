package scratch

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCleanName(t *testing.T) {
	tests := []struct {
		name    string
		wantErr bool
	}{
		{"report.yaml", false},
		{" categories.csv ", false},
		{"", true},
		{"../etc/passwd", true},
		{"a/b.csv", true},
		{`a\b.csv`, true},
		{".hidden", true},
		{"..", true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := CleanName(tt.name)
			if tt.wantErr {
				assert.ErrorIs(t, err, ErrInvalidName)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestStore(t *testing.T) {
	s := New(time.Hour)
	a, b := uuid.New(), uuid.New()

	_, err := s.Put(a, "z.csv", []byte("1"))
	require.NoError(t, err)
	_, err = s.Put(a, "a.csv", []byte("2"))
	require.NoError(t, err)
	_, err = s.Put(b, "other.csv", []byte("3"))
	require.NoError(t, err)

	list := s.List(a)
	require.Len(t, list, 2)
	assert.Equal(t, "a.csv", list[0].Name)

	got, err := s.Get(a, "z.csv")
	require.NoError(t, err)
	assert.Equal(t, []byte("1"), got)

	_, err = s.Get(a, "other.csv")
	assert.ErrorIs(t, err, ErrNotFound)

	files := s.Files(a)
	assert.Len(t, files, 2)
	files["a.csv"][0] = 'x'
	got, _ = s.Get(a, "a.csv")
	assert.Equal(t, []byte("2"), got, "Files returns copies")
}

func TestStore_Purge(t *testing.T) {
	now := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	s := New(time.Hour)
	s.now = func() time.Time { return now }

	old, fresh := uuid.New(), uuid.New()
	_, _ = s.Put(old, "a.csv", []byte("a"))
	now = now.Add(50 * time.Minute)
	_, _ = s.Put(fresh, "b.csv", []byte("b"))

	removed := s.Purge(now.Add(20 * time.Minute))
	assert.Equal(t, 1, removed)
	assert.Empty(t, s.List(old))
	assert.Len(t, s.List(fresh), 1)
}
