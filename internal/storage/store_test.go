package storage_test

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/Marax1234/PortfolioWebapp-sub000/internal/storage"
)

func newTestStore(t *testing.T) *storage.Store {
	t.Helper()
	store := storage.NewStore(storage.Config{
		MaxUploadSize:     10 * 1024 * 1024,
		AllowedImageTypes: []string{"image/jpeg", "image/png"},
		AllowedVideoTypes: []string{"video/mp4"},
		UploadDir:         t.TempDir(),
		PublicPrefix:      "uploads",
	}, zap.NewNop())
	require.NoError(t, store.Bootstrap())
	return store
}

func TestBootstrapIdempotent(t *testing.T) {
	store := newTestStore(t)

	// A second bootstrap over existing directories must succeed.
	require.NoError(t, store.Bootstrap())

	for _, sub := range append([]string{storage.SubareaTemp}, storage.Subareas...) {
		info, err := os.Stat(filepath.Join(store.Config().UploadDir, sub))
		require.NoError(t, err)
		assert.True(t, info.IsDir())
	}
}

func TestValidate(t *testing.T) {
	store := newTestStore(t)

	assert.NoError(t, store.Validate(1024, "image/jpeg"))
	assert.NoError(t, store.Validate(1024, "video/mp4"))

	err := store.Validate(11*1024*1024, "image/jpeg")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "too large")

	err = store.Validate(1024, "application/pdf")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unsupported content type")
}

func TestGenerateName(t *testing.T) {
	store := newTestStore(t)

	name := store.GenerateName("My Vacation Photo!.JPG", "")
	assert.True(t, strings.HasPrefix(name, "my-vacation-photo-"), name)
	assert.True(t, strings.HasSuffix(name, ".jpg"), name)

	withSuffix := store.GenerateName("photo.png", "-800w")
	assert.True(t, strings.HasSuffix(withSuffix, "-800w.png"), withSuffix)
}

func TestGenerateNameUniqueness(t *testing.T) {
	store := newTestStore(t)

	// Sequential calls land in the same millisecond; the random token
	// must keep the names distinct.
	seen := make(map[string]bool)
	for i := 0; i < 100; i++ {
		name := store.GenerateName("photo.jpg", "")
		assert.False(t, seen[name], "duplicate name %s", name)
		seen[name] = true
	}
}

func TestPersistAndPublicURL(t *testing.T) {
	store := newTestStore(t)

	path, err := store.Persist([]byte("content"), "photo-1.jpg", storage.SubareaOriginals)
	require.NoError(t, err)

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, []byte("content"), data)

	assert.Equal(t, "/uploads/originals/photo-1.jpg",
		store.PublicURL("photo-1.jpg", storage.SubareaOriginals))
}

func TestPersistMissingDir(t *testing.T) {
	store := storage.NewStore(storage.Config{
		UploadDir:    filepath.Join(t.TempDir(), "nope"),
		PublicPrefix: "uploads",
	}, zap.NewNop())

	// No bootstrap: the write must fail visibly, not be swallowed.
	_, err := store.Persist([]byte("x"), "f.jpg", storage.SubareaOriginals)
	require.Error(t, err)
}

func TestDeleteIdempotent(t *testing.T) {
	store := newTestStore(t)

	path, err := store.Persist([]byte("x"), "gone.jpg", storage.SubareaOriginals)
	require.NoError(t, err)

	assert.True(t, store.Delete(path))
	assert.False(t, store.Delete(path))
}

func TestDeleteVariantSet(t *testing.T) {
	store := newTestStore(t)

	base := "shot-123-abcd1234.png"
	_, err := store.Persist([]byte("o"), base, storage.SubareaOriginals)
	require.NoError(t, err)
	_, err = store.Persist([]byte("t"), base, storage.SubareaThumbnails)
	require.NoError(t, err)
	_, err = store.Persist([]byte("w"), "shot-123-abcd1234.webp", storage.SubareaWebP)
	require.NoError(t, err)
	_, err = store.Persist([]byte("a"), "shot-123-abcd1234.avif", storage.SubareaAVIF)
	require.NoError(t, err)

	store.DeleteVariantSet(base)

	stats := store.UsageStats()
	assert.Equal(t, 0, stats.TotalFiles)

	// Second call with nothing left must not error or panic.
	store.DeleteVariantSet(base)
}

func TestDeleteVariantSetPartialAbsence(t *testing.T) {
	store := newTestStore(t)

	// Only the original exists; the missing variants are not an error.
	base := "lonely-1-deadbeef.jpg"
	_, err := store.Persist([]byte("o"), base, storage.SubareaOriginals)
	require.NoError(t, err)

	store.DeleteVariantSet(base)
	assert.Equal(t, 0, store.UsageStats().TotalFiles)
}

func TestReapTemp(t *testing.T) {
	store := newTestStore(t)
	tempDir := filepath.Join(store.Config().UploadDir, storage.SubareaTemp)

	oldFile := filepath.Join(tempDir, "stale.tmp")
	require.NoError(t, os.WriteFile(oldFile, []byte("x"), 0o644))
	oldTime := time.Now().Add(-30 * time.Hour)
	require.NoError(t, os.Chtimes(oldFile, oldTime, oldTime))

	freshFile := filepath.Join(tempDir, "fresh.tmp")
	require.NoError(t, os.WriteFile(freshFile, []byte("x"), 0o644))

	removed := store.ReapTemp(24)
	assert.Equal(t, 1, removed)

	_, err := os.Stat(oldFile)
	assert.True(t, os.IsNotExist(err))
	_, err = os.Stat(freshFile)
	assert.NoError(t, err)
}

func TestReapTempMissingDir(t *testing.T) {
	store := storage.NewStore(storage.Config{
		UploadDir:    filepath.Join(t.TempDir(), "never-created"),
		PublicPrefix: "uploads",
	}, zap.NewNop())

	assert.Equal(t, 0, store.ReapTemp(24))
}

func TestUsageStats(t *testing.T) {
	store := newTestStore(t)

	_, err := store.Persist([]byte("12345"), "a.jpg", storage.SubareaOriginals)
	require.NoError(t, err)
	_, err = store.Persist([]byte("123"), "b.jpg", storage.SubareaOriginals)
	require.NoError(t, err)
	_, err = store.Persist([]byte("12"), "a.webp", storage.SubareaWebP)
	require.NoError(t, err)

	stats := store.UsageStats()
	assert.Equal(t, 3, stats.TotalFiles)
	assert.Equal(t, int64(10), stats.TotalBytes)
	assert.Equal(t, 2, stats.Subareas[storage.SubareaOriginals].Files)
	assert.Equal(t, int64(8), stats.Subareas[storage.SubareaOriginals].Bytes)
}

func TestUsageStatsMissingSubarea(t *testing.T) {
	store := newTestStore(t)
	require.NoError(t, os.RemoveAll(filepath.Join(store.Config().UploadDir, storage.SubareaAVIF)))

	stats := store.UsageStats()
	assert.NotContains(t, stats.Subareas, storage.SubareaAVIF)
	assert.Equal(t, 0, stats.TotalFiles)
}
