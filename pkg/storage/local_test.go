package storage

import (
	"context"
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStoredName(t *testing.T) {
	data := []byte("Mes,ISV\nEnero,15\n")
	name := StoredName("ventas.csv", data)
	assert.Equal(t, "ventas-"+ContentHash(data)[:12]+".csv", name)
	assert.Equal(t, "upload-"+ContentHash(data)[:12], StoredName("", data))
	assert.NotContains(t, StoredName("../../etc/passwd", data), "/")
}

func TestLocalStorage(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()
	s, err := NewLocalStorage(dir)
	require.NoError(t, err)
	session := uuid.New()
	data := []byte("Mes,ISV\nEnero,15\n")

	info, err := s.Save(ctx, session, "ventas.csv", "text/csv", data, map[string]string{"delimiter": ","})
	require.NoError(t, err)
	assert.Equal(t, int64(len(data)), info.Size)
	assert.Equal(t, ContentHash(data), info.SHA256)

	t.Run("same content same id", func(t *testing.T) {
		again, err := s.Save(ctx, session, "ventas.csv", "text/csv", data, map[string]string{"delimiter": ";"})
		require.NoError(t, err)
		assert.Equal(t, info.ID, again.ID)

		files, err := s.List(ctx, session)
		require.NoError(t, err)
		assert.Len(t, files, 1)
	})

	t.Run("read back", func(t *testing.T) {
		got, meta, err := s.Read(ctx, session, info.ID)
		require.NoError(t, err)
		assert.Equal(t, data, got)
		assert.Equal(t, "ventas.csv", meta.Name)
		assert.Equal(t, map[string]string{"delimiter": ";"}, meta.Attributes)
	})

	t.Run("attributes survive a new store on the same directory", func(t *testing.T) {
		reopened, err := NewLocalStorage(dir)
		require.NoError(t, err)
		meta, err := reopened.GetInfo(ctx, session, info.ID)
		require.NoError(t, err)
		assert.Equal(t, ";", meta.Attributes["delimiter"])
	})

	t.Run("other session cannot see it", func(t *testing.T) {
		_, _, err := s.Read(ctx, uuid.New(), info.ID)
		assert.True(t, IsNotFound(err))
	})

	t.Run("delete", func(t *testing.T) {
		require.NoError(t, s.Delete(ctx, session, info.ID))
		_, err := s.GetInfo(ctx, session, info.ID)
		assert.True(t, IsNotFound(err))
	})
}

func TestLocalStorage_ConcurrentSaves(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()
	s, err := NewLocalStorage(dir)
	require.NoError(t, err)
	session := uuid.New()
	data := []byte("a,b\n1,2\n")

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := s.Save(ctx, session, "x.csv", "text/csv", data, nil)
			assert.NoError(t, err)
		}()
	}
	wg.Wait()

	entries, err := os.ReadDir(filepath.Join(dir, session.String()))
	require.NoError(t, err)
	for _, e := range entries {
		assert.NotContains(t, e.Name(), ".tmp")
	}
}

func TestWriteAtomic(t *testing.T) {
	path := filepath.Join(t.TempDir(), "out.txt")
	require.NoError(t, WriteAtomic(path, []byte("one")))
	require.NoError(t, WriteAtomic(path, []byte("two")))
	got, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "two", string(got))
}
