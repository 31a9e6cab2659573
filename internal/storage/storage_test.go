package storage

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLocal_PutDelete(t *testing.T) {
	dir := t.TempDir()
	s, err := NewLocal(dir, "http://localhost:8080/uploads/")
	require.NoError(t, err)
	ctx := context.Background()

	url, err := s.Put(ctx, []byte("png-bytes"), "Cover.PNG")
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(url, "http://localhost:8080/uploads/"))
	assert.True(t, strings.HasSuffix(url, ".png"))

	file := filepath.Join(dir, filepath.Base(url))
	data, err := os.ReadFile(file)
	require.NoError(t, err)
	assert.Equal(t, "png-bytes", string(data))

	require.NoError(t, s.Delete(ctx, url))
	_, err = os.Stat(file)
	assert.True(t, os.IsNotExist(err))

	// second delete is a no-op
	assert.NoError(t, s.Delete(ctx, url))
}

func TestLocal_DeleteForeign(t *testing.T) {
	s, err := NewLocal(t.TempDir(), "http://localhost:8080/uploads")
	require.NoError(t, err)

	assert.ErrorIs(t, s.Delete(context.Background(), "https://cdn.example.com/x.png"), ErrForeignURL)
}
