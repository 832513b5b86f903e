// Package storage owns the physical file namespace of the upload area.
// All filesystem interaction for media goes through the Store.
package storage

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

var sanitizeRE = regexp.MustCompile(`[^a-z0-9_-]+`)

// Store is the sole owner of the upload area. It is safe for concurrent
// use: the configuration is read-only and every generated write target is
// a unique path.
type Store struct {
	cfg    Config
	logger *zap.Logger
}

// NewStore creates a Store. Call Bootstrap before first use.
func NewStore(cfg Config, logger *zap.Logger) *Store {
	return &Store{cfg: cfg, logger: logger}
}

// Config returns the immutable storage configuration.
func (s *Store) Config() Config {
	return s.cfg
}

// Bootstrap ensures the upload root and every subarea exist. Idempotent,
// safe to call on every process start.
func (s *Store) Bootstrap() error {
	dirs := append([]string{SubareaTemp}, Subareas...)
	for _, sub := range dirs {
		dir := filepath.Join(s.cfg.UploadDir, sub)
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create storage dir %s: %w", dir, err)
		}
	}
	return nil
}

// Validate pre-flights a client-declared size and MIME type against the
// configured limits. This checks declared metadata only; the derivation
// pipeline performs the authoritative structural check by decoding.
func (s *Store) Validate(size int64, mimeType string) error {
	if size > s.cfg.MaxUploadSize {
		return fmt.Errorf("file too large: %d bytes (max %d)", size, s.cfg.MaxUploadSize)
	}
	for _, t := range s.cfg.AllowedImageTypes {
		if t == mimeType {
			return nil
		}
	}
	for _, t := range s.cfg.AllowedVideoTypes {
		if t == mimeType {
			return nil
		}
	}
	return fmt.Errorf("unsupported content type: %s", mimeType)
}

// GenerateName builds a unique storage filename from the original name:
// sanitized lower-case stem, millisecond timestamp, 8-char random token,
// optional suffix, original extension. The timestamp+token combination is
// the uniqueness guarantee; two calls in the same millisecond still differ.
func (s *Store) GenerateName(originalName, suffix string) string {
	ext := strings.ToLower(filepath.Ext(originalName))
	stem := strings.TrimSuffix(filepath.Base(originalName), filepath.Ext(originalName))
	stem = sanitizeRE.ReplaceAllString(strings.ToLower(stem), "-")
	token := strings.ReplaceAll(uuid.NewString(), "-", "")[:8]
	return fmt.Sprintf("%s-%d-%s%s%s", stem, time.Now().UnixMilli(), token, suffix, ext)
}

// Persist writes data to <root>/<subarea>/<filename> and returns the
// absolute path. Write failures propagate to the caller.
func (s *Store) Persist(data []byte, filename, subarea string) (string, error) {
	path := filepath.Join(s.cfg.UploadDir, subarea, filename)
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return "", fmt.Errorf("persist %s: %w", path, err)
	}
	abs, err := filepath.Abs(path)
	if err != nil {
		return path, nil
	}
	return abs, nil
}

// PublicURL composes the serving path for a stored file. Pure string work,
// no filesystem access; must match the static-serving route exactly.
func (s *Store) PublicURL(filename, subarea string) string {
	prefix := strings.Trim(s.cfg.PublicPrefix, "/")
	return "/" + prefix + "/" + subarea + "/" + filename
}

// Path returns the on-disk location of a file in a subarea.
func (s *Store) Path(filename, subarea string) string {
	return filepath.Join(s.cfg.UploadDir, subarea, filename)
}

// Delete removes a single file, best effort. Missing files and permission
// errors are logged and swallowed; deleting twice is not an error. Returns
// whether a file was actually removed.
func (s *Store) Delete(path string) bool {
	err := os.Remove(path)
	if err == nil {
		return true
	}
	if !os.IsNotExist(err) {
		s.logger.Warn("failed to delete file", zap.String("path", path), zap.Error(err))
	}
	return false
}

// DeleteVariantSet removes every artifact derived from one base storage
// name: the original, the same-named thumbnail, and the extension-swapped
// WebP and AVIF variants. Deletions run concurrently and independently;
// partial absence of any variant is not an error.
func (s *Store) DeleteVariantSet(baseName string) {
	ext := filepath.Ext(baseName)
	stem := strings.TrimSuffix(baseName, ext)

	targets := []string{
		s.Path(baseName, SubareaOriginals),
		s.Path(baseName, SubareaThumbnails),
		s.Path(stem+".webp", SubareaWebP),
		s.Path(stem+".avif", SubareaAVIF),
	}

	var g errgroup.Group
	for _, target := range targets {
		g.Go(func() error {
			s.Delete(target)
			return nil
		})
	}
	g.Wait()
}

// ReapTemp deletes files in the temp subarea older than maxAgeHours.
// Tolerates the directory not existing. Returns the number of files removed.
func (s *Store) ReapTemp(maxAgeHours int) int {
	dir := filepath.Join(s.cfg.UploadDir, SubareaTemp)
	entries, err := os.ReadDir(dir)
	if err != nil {
		if !os.IsNotExist(err) {
			s.logger.Warn("failed to read temp dir", zap.String("dir", dir), zap.Error(err))
		}
		return 0
	}

	cutoff := time.Now().Add(-time.Duration(maxAgeHours) * time.Hour)
	removed := 0
	for _, entry := range entries {
		info, err := entry.Info()
		if err != nil {
			continue
		}
		if info.ModTime().Before(cutoff) {
			if s.Delete(filepath.Join(dir, entry.Name())) {
				removed++
			}
		}
	}
	return removed
}

// SubareaStats holds file count and byte size for one subarea.
type SubareaStats struct {
	Files int   `json:"files"`
	Bytes int64 `json:"bytes"`
}

// Stats aggregates usage across the artifact subareas.
type Stats struct {
	Subareas   map[string]SubareaStats `json:"subareas"`
	TotalFiles int                     `json:"totalFiles"`
	TotalBytes int64                   `json:"totalBytes"`
}

// UsageStats walks the artifact subareas and sums file count and byte size
// per subarea and overall. A missing subarea is skipped, not an error.
func (s *Store) UsageStats() Stats {
	stats := Stats{Subareas: make(map[string]SubareaStats, len(Subareas))}
	for _, sub := range Subareas {
		dir := filepath.Join(s.cfg.UploadDir, sub)
		entries, err := os.ReadDir(dir)
		if err != nil {
			if !os.IsNotExist(err) {
				s.logger.Warn("failed to read subarea", zap.String("dir", dir), zap.Error(err))
			}
			continue
		}
		var sa SubareaStats
		for _, entry := range entries {
			info, err := entry.Info()
			if err != nil || info.IsDir() {
				continue
			}
			sa.Files++
			sa.Bytes += info.Size()
		}
		stats.Subareas[sub] = sa
		stats.TotalFiles += sa.Files
		stats.TotalBytes += sa.Bytes
	}
	return stats
}
