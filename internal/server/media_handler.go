package server

import (
	"context"
	"database/sql"
	"errors"
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"go.uber.org/zap"
	"golang.org/x/sync/semaphore"

	"github.com/Marax1234/PortfolioWebapp-sub000/internal/database"
	"github.com/Marax1234/PortfolioWebapp-sub000/internal/media"
	"github.com/Marax1234/PortfolioWebapp-sub000/internal/storage"
)

// Database is the record store the handlers depend on.
type Database interface {
	SaveMedia(ctx context.Context, rec *database.MediaRecord) error
	GetMedia(ctx context.Context, id string) (*database.MediaRecord, error)
	ListMedia(ctx context.Context, limit, offset int) ([]*database.MediaRecord, error)
	DeleteMedia(ctx context.Context, id string) error
}

// MediaHandler handles upload, retrieval, and deletion of portfolio media.
type MediaHandler struct {
	store     *storage.Store
	pipeline  *media.Pipeline
	db        Database
	logger    *zap.Logger
	opts      media.Options
	uploadSem *semaphore.Weighted
}

// NewMediaHandler creates a MediaHandler. maxConcurrent bounds how many
// uploads may run the derivation pipeline at once.
func NewMediaHandler(store *storage.Store, pipeline *media.Pipeline, db Database, logger *zap.Logger, opts media.Options, maxConcurrent int64) *MediaHandler {
	if maxConcurrent <= 0 {
		maxConcurrent = 4
	}
	return &MediaHandler{
		store:     store,
		pipeline:  pipeline,
		db:        db,
		logger:    logger,
		opts:      opts,
		uploadSem: semaphore.NewWeighted(maxConcurrent),
	}
}

// Register registers the media routes.
func (h *MediaHandler) Register(e *echo.Echo) {
	g := e.Group("/api")
	g.POST("/media", h.Upload)
	g.GET("/media", h.List)
	g.GET("/media/:id", h.Get)
	g.DELETE("/media/:id", h.Delete)
	g.GET("/storage/stats", h.Stats)
}

type mediaResponse struct {
	ID            string    `json:"id"`
	Title         string    `json:"title,omitempty"`
	OriginalName  string    `json:"originalName"`
	StorageName   string    `json:"storageName"`
	ContentType   string    `json:"contentType"`
	MediaType     string    `json:"mediaType"`
	Size          int64     `json:"size"`
	Width         int       `json:"width,omitempty"`
	Height        int       `json:"height,omitempty"`
	AspectRatio   float64   `json:"aspectRatio,omitempty"`
	OriginalPath  string    `json:"originalPath"`
	ThumbnailPath string    `json:"thumbnailPath,omitempty"`
	WebPPath      string    `json:"webpPath,omitempty"`
	AVIFPath      string    `json:"avifPath,omitempty"`
	DominantColor string    `json:"dominantColor,omitempty"`
	CreatedAt     time.Time `json:"createdAt"`
}

func toResponse(rec *database.MediaRecord) mediaResponse {
	return mediaResponse{
		ID:            rec.ID,
		Title:         rec.Title,
		OriginalName:  rec.OriginalName,
		StorageName:   rec.StorageName,
		ContentType:   rec.ContentType,
		MediaType:     string(rec.MediaType),
		Size:          rec.Size,
		Width:         rec.Width,
		Height:        rec.Height,
		AspectRatio:   rec.AspectRatio,
		OriginalPath:  rec.OriginalPath,
		ThumbnailPath: rec.ThumbnailPath,
		WebPPath:      rec.WebPPath,
		AVIFPath:      rec.AVIFPath,
		DominantColor: rec.DominantColor,
		CreatedAt:     rec.CreatedAt,
	}
}

// Upload accepts one multipart file, runs the derivation pipeline for
// images (videos are stored as-is), and saves the media record.
func (h *MediaHandler) Upload(c echo.Context) error {
	fileHeader, err := c.FormFile("file")
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "missing file field")
	}
	contentType := fileHeader.Header.Get("Content-Type")

	if err := h.store.Validate(fileHeader.Size, contentType); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}

	src, err := fileHeader.Open()
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "failed to open upload")
	}
	defer src.Close()
	data, err := io.ReadAll(src)
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "failed to read upload")
	}

	if err := ValidateContentType(data, contentType); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}

	ctx := c.Request().Context()
	if err := h.uploadSem.Acquire(ctx, 1); err != nil {
		return echo.NewHTTPError(http.StatusServiceUnavailable, "server busy")
	}
	defer h.uploadSem.Release(1)

	rec := &database.MediaRecord{
		ID:           uuid.New().String(),
		Title:        c.FormValue("title"),
		OriginalName: fileHeader.Filename,
		ContentType:  contentType,
		MediaType:    database.DeriveMediaType(contentType),
	}

	switch rec.MediaType {
	case database.MediaTypeVideo:
		// Videos are stored as opaque blobs, no derivation.
		storageName := h.store.GenerateName(fileHeader.Filename, "")
		if _, err := h.store.Persist(data, storageName, storage.SubareaOriginals); err != nil {
			h.logger.Error("video persist failed", zap.String("file", storageName), zap.Error(err))
			return echo.NewHTTPError(http.StatusInternalServerError, "failed to store file")
		}
		rec.StorageName = storageName
		rec.Size = int64(len(data))
		rec.OriginalPath = h.store.PublicURL(storageName, storage.SubareaOriginals)

	default:
		result, err := h.pipeline.Process(ctx, data, fileHeader.Filename, contentType, h.opts)
		if err != nil {
			if errors.Is(err, media.ErrDecode) {
				return echo.NewHTTPError(http.StatusUnprocessableEntity, err.Error())
			}
			// A server-side fault, not bad input; keep the detail out of
			// the response.
			h.logger.Error("media processing failed",
				zap.String("file", fileHeader.Filename), zap.Error(err))
			return echo.NewHTTPError(http.StatusInternalServerError, "failed to store file")
		}
		rec.StorageName = result.Original.StorageName
		rec.Size = result.Original.Size
		rec.Width = result.Original.Width
		rec.Height = result.Original.Height
		rec.AspectRatio = result.Original.AspectRatio
		rec.OriginalPath = result.OriginalPath
		rec.ThumbnailPath = result.ThumbnailPath
		rec.WebPPath = result.WebPPath
		rec.AVIFPath = result.AVIFPath
		rec.DominantColor = media.ExtractDominantColor(data)
	}

	if err := h.db.SaveMedia(ctx, rec); err != nil {
		// Keep the stored artifacts: an orphaned variant set is
		// recoverable, a dangling record is not.
		h.logger.Error("failed to save media record",
			zap.String("file", rec.StorageName), zap.Error(err))
		return echo.NewHTTPError(http.StatusInternalServerError, "failed to save media record")
	}
	rec.CreatedAt = time.Now()

	return c.JSON(http.StatusCreated, toResponse(rec))
}

// List returns media records, newest first.
func (h *MediaHandler) List(c echo.Context) error {
	limit, _ := strconv.Atoi(c.QueryParam("limit"))
	if limit <= 0 || limit > 100 {
		limit = 20
	}
	offset, _ := strconv.Atoi(c.QueryParam("offset"))
	if offset < 0 {
		offset = 0
	}

	records, err := h.db.ListMedia(c.Request().Context(), limit, offset)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, "failed to list media")
	}

	items := make([]mediaResponse, 0, len(records))
	for _, rec := range records {
		items = append(items, toResponse(rec))
	}
	return c.JSON(http.StatusOK, map[string]any{
		"items":  items,
		"limit":  limit,
		"offset": offset,
	})
}

// Get returns one media record.
func (h *MediaHandler) Get(c echo.Context) error {
	rec, err := h.db.GetMedia(c.Request().Context(), c.Param("id"))
	if errors.Is(err, sql.ErrNoRows) {
		return echo.NewHTTPError(http.StatusNotFound, "media not found")
	}
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, "database error")
	}
	return c.JSON(http.StatusOK, toResponse(rec))
}

// Delete soft-deletes the record, then removes the stored variant set.
// Storage removal is best effort: an orphaned file is better than a
// record pointing at nothing.
func (h *MediaHandler) Delete(c echo.Context) error {
	ctx := c.Request().Context()
	rec, err := h.db.GetMedia(ctx, c.Param("id"))
	if errors.Is(err, sql.ErrNoRows) {
		return echo.NewHTTPError(http.StatusNotFound, "media not found")
	}
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, "database error")
	}

	if err := h.db.DeleteMedia(ctx, rec.ID); err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, "failed to delete media")
	}

	h.pipeline.CleanupVariantSet(rec.StorageName)

	return c.JSON(http.StatusOK, map[string]any{
		"success": true,
		"message": "media deleted",
	})
}

// Stats reports aggregate storage usage across the artifact subareas.
func (h *MediaHandler) Stats(c echo.Context) error {
	return c.JSON(http.StatusOK, h.store.UsageStats())
}
