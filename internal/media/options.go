package media

// Encoder tuning shared by the pipeline stages.
const (
	thumbnailQuality = 80
	webpMethod       = 6
	avifSpeed        = 6
)

// DefaultResponsiveSizes are the widths generated when a caller passes none.
var DefaultResponsiveSizes = []int{400, 800, 1200, 1600}

// Options controls one derivation run.
type Options struct {
	// Quality is the encode quality for lossy formats (JPEG, WebP, AVIF).
	Quality int
	// MaxWidth and MaxHeight bound the optimized original. Larger images
	// are scaled to fit, smaller ones are never enlarged.
	MaxWidth  int
	MaxHeight int
	// ThumbnailSize is the edge length of the square thumbnail.
	ThumbnailSize int
	// GenerateWebP and GenerateAVIF toggle the derived-format branches.
	GenerateWebP bool
	GenerateAVIF bool
	// PreserveMetadata skips orientation normalization, keeping embedded
	// EXIF meaningful for downstream consumers.
	PreserveMetadata bool
}

// DefaultOptions returns the standard pipeline configuration.
func DefaultOptions() Options {
	return Options{
		Quality:       85,
		MaxWidth:      2400,
		MaxHeight:     2400,
		ThumbnailSize: 400,
		GenerateWebP:  true,
		GenerateAVIF:  true,
	}
}

// normalized fills zero values with defaults so callers can set only the
// knobs they care about.
func (o Options) normalized() Options {
	def := DefaultOptions()
	if o.Quality == 0 {
		o.Quality = def.Quality
	}
	if o.MaxWidth == 0 {
		o.MaxWidth = def.MaxWidth
	}
	if o.MaxHeight == 0 {
		o.MaxHeight = def.MaxHeight
	}
	if o.ThumbnailSize == 0 {
		o.ThumbnailSize = def.ThumbnailSize
	}
	return o
}
