// Package media turns one uploaded image into its artifact family: an
// optimized original, a square thumbnail, and WebP/AVIF variants.
//
// The transforms in this file are pure (buffer in, buffer out) and carry
// no filesystem side effects; orchestration and persistence live in
// pipeline.go.
package media

import (
	"bytes"
	"errors"
	"fmt"
	"image"
	"image/color"
	"image/png"

	"github.com/disintegration/imaging"
	"github.com/gen2brain/avif"
	"github.com/gen2brain/webp"

	_ "golang.org/x/image/webp" // WebP decode registration
)

// ErrDecode marks bytes that could not be decoded as an image. Callers use
// it to tell bad input apart from server-side faults like a failed write.
var ErrDecode = errors.New("undecodable image")

// Inspect decodes the image header to obtain intrinsic dimensions, format,
// and alpha-channel presence. This is the authoritative content check:
// bytes that fail here are not an image, whatever the declared MIME says.
func Inspect(data []byte) (ImageInfo, error) {
	cfg, format, err := image.DecodeConfig(bytes.NewReader(data))
	if err != nil {
		return ImageInfo{}, fmt.Errorf("%w: decode header: %v", ErrDecode, err)
	}
	if cfg.Width <= 0 || cfg.Height <= 0 {
		return ImageInfo{}, fmt.Errorf("%w: no dimensions: %dx%d", ErrDecode, cfg.Width, cfg.Height)
	}
	return ImageInfo{
		Width:       cfg.Width,
		Height:      cfg.Height,
		Format:      format,
		HasAlpha:    modelHasAlpha(cfg.ColorModel),
		AspectRatio: float64(cfg.Width) / float64(cfg.Height),
	}, nil
}

func modelHasAlpha(m color.Model) bool {
	switch m {
	case color.NRGBAModel, color.NRGBA64Model, color.AlphaModel, color.Alpha16Model:
		return true
	}
	if p, ok := m.(color.Palette); ok {
		for _, c := range p {
			if _, _, _, a := c.RGBA(); a < 0xffff {
				return true
			}
		}
	}
	return false
}

// decode decodes the full image. Unless metadata preservation is requested
// the EXIF orientation is normalized into the pixel data, so downstream
// consumers never need to read it.
func decode(data []byte, preserveMetadata bool) (image.Image, error) {
	return imaging.Decode(bytes.NewReader(data), imaging.AutoOrientation(!preserveMetadata))
}

// OptimizeOriginal resizes the image to fit within the configured bounds
// (preserving aspect ratio, never enlarging) and re-encodes it with
// format-specific tuning. Formats without a tuned encode path pass through
// unchanged unless a resize was required.
func OptimizeOriginal(data []byte, opts Options) ([]byte, ImageInfo, error) {
	opts = opts.normalized()

	info, err := Inspect(data)
	if err != nil {
		return nil, ImageInfo{}, err
	}

	img, err := decode(data, opts.PreserveMetadata)
	if err != nil {
		return nil, ImageInfo{}, fmt.Errorf("%w: %v", ErrDecode, err)
	}

	resized := false
	if info.Width > opts.MaxWidth || info.Height > opts.MaxHeight {
		img = imaging.Fit(img, opts.MaxWidth, opts.MaxHeight, imaging.Lanczos)
		resized = true
	}

	out := info
	bounds := img.Bounds()
	out.Width = bounds.Dx()
	out.Height = bounds.Dy()

	var buf bytes.Buffer
	switch info.Format {
	case "jpeg":
		err = imaging.Encode(&buf, img, imaging.JPEG, imaging.JPEGQuality(opts.Quality))
	case "png":
		err = imaging.Encode(&buf, img, imaging.PNG, imaging.PNGCompressionLevel(png.BestCompression))
	case "webp":
		err = webp.Encode(&buf, img, webp.Options{Quality: opts.Quality, Method: webpMethod})
	case "avif":
		err = avif.Encode(&buf, img, avif.Options{Quality: opts.Quality, Speed: avifSpeed})
	case "gif":
		err = imaging.Encode(&buf, img, imaging.GIF)
	default:
		if !resized {
			return data, out, nil
		}
		format, ferr := imaging.FormatFromExtension(info.Format)
		if ferr != nil {
			// No encoder for this format: hand back the source untouched.
			out.Width = info.Width
			out.Height = info.Height
			return data, out, nil
		}
		err = imaging.Encode(&buf, img, format)
	}
	if err != nil {
		return nil, ImageInfo{}, fmt.Errorf("encode %s: %w", info.Format, err)
	}
	return buf.Bytes(), out, nil
}

// GenerateThumbnail produces a square crop-to-fill thumbnail, always
// encoded as JPEG. Transparency in alpha-bearing sources is discarded;
// thumbnail serving stays uniform regardless of source format.
func GenerateThumbnail(data []byte, size int) ([]byte, error) {
	if size <= 0 {
		size = DefaultOptions().ThumbnailSize
	}
	img, err := decode(data, false)
	if err != nil {
		return nil, fmt.Errorf("decode image: %w", err)
	}
	thumb := imaging.Fill(img, size, size, imaging.Center, imaging.Lanczos)

	var buf bytes.Buffer
	if err := imaging.Encode(&buf, thumb, imaging.JPEG, imaging.JPEGQuality(thumbnailQuality)); err != nil {
		return nil, fmt.Errorf("encode thumbnail: %w", err)
	}
	return buf.Bytes(), nil
}

func encodeWebP(img image.Image, quality int) ([]byte, error) {
	var buf bytes.Buffer
	if err := webp.Encode(&buf, img, webp.Options{Quality: quality, Method: webpMethod}); err != nil {
		return nil, fmt.Errorf("encode webp: %w", err)
	}
	return buf.Bytes(), nil
}

func encodeAVIF(img image.Image, quality int) ([]byte, error) {
	var buf bytes.Buffer
	if err := avif.Encode(&buf, img, avif.Options{Quality: quality, Speed: avifSpeed}); err != nil {
		return nil, fmt.Errorf("encode avif: %w", err)
	}
	return buf.Bytes(), nil
}

// ResponsiveVariant is one width-constrained rendition held in memory.
// Persistence is the caller's choice.
type ResponsiveVariant struct {
	Width    int
	Data     []byte
	Filename string
}

// renderWidth produces one width-constrained JPEG rendition. The caller
// guarantees width does not exceed the source width.
func renderWidth(img image.Image, width, quality int) ([]byte, error) {
	resized := imaging.Resize(img, width, 0, imaging.Lanczos)
	var buf bytes.Buffer
	if err := imaging.Encode(&buf, resized, imaging.JPEG, imaging.JPEGQuality(quality)); err != nil {
		return nil, fmt.Errorf("encode rendition: %w", err)
	}
	return buf.Bytes(), nil
}

// ExtractDominantColor downsamples the image to a fixed 100x100 grid and
// reports the average color as an "rgb(r,g,b)" string. Best effort: any
// failure yields an empty string.
func ExtractDominantColor(data []byte) string {
	img, err := decode(data, false)
	if err != nil {
		return ""
	}
	small := imaging.Resize(img, 100, 100, imaging.Box)

	var r, g, b, n uint64
	bounds := small.Bounds()
	for y := bounds.Min.Y; y < bounds.Max.Y; y++ {
		for x := bounds.Min.X; x < bounds.Max.X; x++ {
			cr, cg, cb, _ := small.At(x, y).RGBA()
			r += uint64(cr >> 8)
			g += uint64(cg >> 8)
			b += uint64(cb >> 8)
			n++
		}
	}
	if n == 0 {
		return ""
	}
	return fmt.Sprintf("rgb(%d,%d,%d)", r/n, g/n, b/n)
}
