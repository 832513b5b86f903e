package storage

// Subareas of the upload root. Every artifact lives in exactly one of these.
const (
	SubareaOriginals  = "originals"
	SubareaThumbnails = "thumbnails"
	SubareaWebP       = "webp"
	SubareaAVIF       = "avif"
	SubareaTemp       = "temp"
)

// Subareas lists the artifact subareas in a stable order. Temp is excluded:
// it holds transient files only and is never counted in usage stats.
var Subareas = []string{SubareaOriginals, SubareaThumbnails, SubareaWebP, SubareaAVIF}

// Config is the immutable storage configuration, read once at construction.
type Config struct {
	// MaxUploadSize is the upload size ceiling in bytes.
	MaxUploadSize int64
	// AllowedImageTypes and AllowedVideoTypes are disjoint MIME whitelists.
	AllowedImageTypes []string
	AllowedVideoTypes []string
	// UploadDir is the root path of the public-facing upload area.
	UploadDir string
	// PublicPrefix is the logical upload-area prefix used in public URLs.
	PublicPrefix string
}
