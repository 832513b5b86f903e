package media

import (
	"context"
	"fmt"
	"image"
	"path/filepath"
	"strings"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"github.com/Marax1234/PortfolioWebapp-sub000/internal/observability"
	"github.com/Marax1234/PortfolioWebapp-sub000/internal/storage"
)

// Pipeline orchestrates one upload's derivation: inspect, optimize and
// persist the original, then best-effort thumbnail, WebP, and AVIF
// branches. Safe for concurrent use; no state is shared between runs.
type Pipeline struct {
	store   *storage.Store
	logger  *zap.Logger
	metrics *observability.Metrics
	tracer  trace.Tracer

	// Encoder seams for the derived formats. Overridable in tests to
	// exercise the partial-failure paths.
	webpEncode func(image.Image, int) ([]byte, error)
	avifEncode func(image.Image, int) ([]byte, error)
}

// NewPipeline creates a Pipeline backed by the given content store.
// Metrics may be nil.
func NewPipeline(store *storage.Store, logger *zap.Logger, metrics *observability.Metrics) *Pipeline {
	return &Pipeline{
		store:      store,
		logger:     logger,
		metrics:    metrics,
		tracer:     otel.Tracer("media"),
		webpEncode: encodeWebP,
		avifEncode: encodeAVIF,
	}
}

// ConvertToWebP re-encodes an already-optimized image buffer as WebP.
func (p *Pipeline) ConvertToWebP(data []byte, quality int) ([]byte, error) {
	img, err := imagingDecode(data)
	if err != nil {
		return nil, err
	}
	return p.webpEncode(img, quality)
}

// ConvertToAVIF re-encodes an already-optimized image buffer as AVIF.
func (p *Pipeline) ConvertToAVIF(data []byte, quality int) ([]byte, error) {
	img, err := imagingDecode(data)
	if err != nil {
		return nil, err
	}
	return p.avifEncode(img, quality)
}

func imagingDecode(data []byte) (image.Image, error) {
	img, err := decode(data, true)
	if err != nil {
		return nil, fmt.Errorf("decode image: %w", err)
	}
	return img, nil
}

// Process runs the full derivation for one upload. Decode failure and
// original-persist failure are fatal; each derived branch fails
// independently and only omits its manifest field. The storage name is
// generated before any I/O so a caller can always clean up by name.
func (p *Pipeline) Process(ctx context.Context, data []byte, originalName, mimeType string, opts Options) (*ProcessedFile, error) {
	opts = opts.normalized()
	start := time.Now()

	ctx, span := p.tracer.Start(ctx, "media.process", trace.WithAttributes(
		attribute.String("media.original_name", originalName),
		attribute.String("media.mime_type", mimeType),
		attribute.Int("media.bytes", len(data)),
	))
	defer span.End()

	info, err := Inspect(data)
	if err != nil {
		p.metrics.ObserveProcess("decode_failed", time.Since(start))
		return nil, err
	}
	span.SetAttributes(
		attribute.Int("media.width", info.Width),
		attribute.Int("media.height", info.Height),
		attribute.String("media.format", info.Format),
	)

	storageName := p.store.GenerateName(originalName, "")

	optimized, outInfo, err := OptimizeOriginal(data, opts)
	if err != nil {
		p.metrics.ObserveProcess("optimize_failed", time.Since(start))
		return nil, err
	}

	if _, err := p.store.Persist(optimized, storageName, storage.SubareaOriginals); err != nil {
		p.metrics.ObserveProcess("persist_failed", time.Since(start))
		return nil, err
	}

	result := &ProcessedFile{
		Original: FileMetadata{
			OriginalName: originalName,
			StorageName:  storageName,
			MimeType:     mimeType,
			Size:         int64(len(optimized)),
			Width:        outInfo.Width,
			Height:       outInfo.Height,
			AspectRatio:  outInfo.AspectRatio,
		},
		OriginalPath: p.store.PublicURL(storageName, storage.SubareaOriginals),
		MediaType:    MediaTypeImage,
	}

	p.attemptThumbnail(result, optimized, storageName, originalName, opts)
	if opts.GenerateWebP {
		p.attemptVariant(result, optimized, storageName, originalName, "webp", opts.Quality)
	}
	if opts.GenerateAVIF {
		p.attemptVariant(result, optimized, storageName, originalName, "avif", opts.Quality)
	}

	p.metrics.ObserveProcess("completed", time.Since(start))
	p.logger.Info("processed upload",
		zap.String("file", storageName),
		zap.Int("width", outInfo.Width),
		zap.Int("height", outInfo.Height),
		zap.Bool("thumbnail", result.Thumbnail != nil),
		zap.Bool("webp", result.WebP != nil),
		zap.Bool("avif", result.AVIF != nil),
		zap.Duration("duration", time.Since(start)),
	)
	return result, nil
}

// attemptThumbnail runs the thumbnail branch. The thumbnail keeps the
// original storage name (JPEG bytes regardless of extension) so the
// variant set stays a pure name transform.
func (p *Pipeline) attemptThumbnail(result *ProcessedFile, optimized []byte, storageName, originalName string, opts Options) {
	thumb, err := GenerateThumbnail(optimized, opts.ThumbnailSize)
	if err == nil {
		_, err = p.store.Persist(thumb, storageName, storage.SubareaThumbnails)
	}
	if err != nil {
		p.metrics.VariantFailure("thumbnail")
		p.logger.Warn("thumbnail branch failed",
			zap.String("file", storageName), zap.Error(err))
		return
	}
	result.Thumbnail = &FileMetadata{
		OriginalName: originalName,
		StorageName:  storageName,
		MimeType:     "image/jpeg",
		Size:         int64(len(thumb)),
		Width:        opts.ThumbnailSize,
		Height:       opts.ThumbnailSize,
		AspectRatio:  1,
	}
	result.ThumbnailPath = p.store.PublicURL(storageName, storage.SubareaThumbnails)
}

// attemptVariant runs the WebP or AVIF branch against the already-optimized
// original buffer.
func (p *Pipeline) attemptVariant(result *ProcessedFile, optimized []byte, storageName, originalName, format string, quality int) {
	variantName := strings.TrimSuffix(storageName, filepath.Ext(storageName)) + "." + format

	var data []byte
	var err error
	var subarea string
	switch format {
	case "webp":
		subarea = storage.SubareaWebP
		data, err = p.ConvertToWebP(optimized, quality)
	case "avif":
		subarea = storage.SubareaAVIF
		data, err = p.ConvertToAVIF(optimized, quality)
	}
	if err == nil {
		_, err = p.store.Persist(data, variantName, subarea)
	}
	if err != nil {
		p.metrics.VariantFailure(format)
		p.logger.Warn("variant branch failed",
			zap.String("file", storageName), zap.String("format", format), zap.Error(err))
		return
	}

	meta := &FileMetadata{
		OriginalName: originalName,
		StorageName:  variantName,
		MimeType:     "image/" + format,
		Size:         int64(len(data)),
		Width:        result.Original.Width,
		Height:       result.Original.Height,
		AspectRatio:  result.Original.AspectRatio,
	}
	url := p.store.PublicURL(variantName, subarea)
	if format == "webp" {
		result.WebP = meta
		result.WebPPath = url
	} else {
		result.AVIF = meta
		result.AVIFPath = url
	}
}

// BatchItem is one input to ProcessBatch.
type BatchItem struct {
	Data     []byte
	Name     string
	MimeType string
}

// BatchError describes one failed batch item, in input order.
type BatchError struct {
	Name   string `json:"name"`
	Reason string `json:"reason"`
}

// ProcessBatch runs Process for each item with failure isolation between
// items: a fatal error on one input never prevents the others from
// completing.
func (p *Pipeline) ProcessBatch(ctx context.Context, items []BatchItem) ([]*ProcessedFile, []BatchError) {
	var results []*ProcessedFile
	var errs []BatchError
	for _, item := range items {
		res, err := p.Process(ctx, item.Data, item.Name, item.MimeType, DefaultOptions())
		if err != nil {
			errs = append(errs, BatchError{Name: item.Name, Reason: err.Error()})
			continue
		}
		results = append(results, res)
	}
	return results, errs
}

// GenerateResponsiveSizes produces width-constrained JPEG renditions of the
// image, aspect preserved and never upscaled. Results stay in memory;
// persisting them is the caller's choice. Per-size failures are omitted.
func (p *Pipeline) GenerateResponsiveSizes(data []byte, originalName string, sizes []int) []ResponsiveVariant {
	if len(sizes) == 0 {
		sizes = DefaultResponsiveSizes
	}

	img, err := decode(data, false)
	if err != nil {
		p.logger.Warn("responsive sizes: decode failed",
			zap.String("file", originalName), zap.Error(err))
		return nil
	}
	srcWidth := img.Bounds().Dx()

	variants := make([]ResponsiveVariant, 0, len(sizes))
	for _, width := range sizes {
		target := width
		if target > srcWidth {
			target = srcWidth
		}
		rendition, err := renderWidth(img, target, DefaultOptions().Quality)
		if err != nil {
			p.logger.Warn("responsive sizes: encode failed",
				zap.String("file", originalName), zap.Int("width", width), zap.Error(err))
			continue
		}
		variants = append(variants, ResponsiveVariant{
			Width:    width,
			Data:     rendition,
			Filename: p.store.GenerateName(originalName, fmt.Sprintf("-%dw", width)),
		})
	}
	return variants
}

// CleanupVariantSet removes every artifact sharing the given base storage
// name. Best effort, idempotent.
func (p *Pipeline) CleanupVariantSet(baseName string) {
	p.store.DeleteVariantSet(baseName)
}
