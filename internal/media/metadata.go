package media

// MediaType tags a processed upload for callers that branch on it.
type MediaType string

const (
	MediaTypeImage MediaType = "IMAGE"
	MediaTypeVideo MediaType = "VIDEO"
)

// FileMetadata describes one physical artifact. Produced once, never mutated.
type FileMetadata struct {
	OriginalName string  `json:"originalName"`
	StorageName  string  `json:"storageName"`
	MimeType     string  `json:"mimeType"`
	Size         int64   `json:"size"`
	Width        int     `json:"width,omitempty"`
	Height       int     `json:"height,omitempty"`
	AspectRatio  float64 `json:"aspectRatio,omitempty"`
}

// ProcessedFile is the manifest of one derivation run. Original is always
// present; each derived field is nil when that branch failed or was
// disabled — absence is the partial-failure signal, not an error.
type ProcessedFile struct {
	Original     FileMetadata `json:"original"`
	OriginalPath string       `json:"originalPath"`

	Thumbnail     *FileMetadata `json:"thumbnail,omitempty"`
	ThumbnailPath string        `json:"thumbnailPath,omitempty"`

	WebP     *FileMetadata `json:"webp,omitempty"`
	WebPPath string        `json:"webpPath,omitempty"`

	AVIF     *FileMetadata `json:"avif,omitempty"`
	AVIFPath string        `json:"avifPath,omitempty"`

	MediaType MediaType `json:"mediaType,omitempty"`
}

// ImageInfo is the result of inspecting raw image bytes. AspectRatio is
// computed once here and reused by every later stage so a lossy resize
// never drifts the reported ratio.
type ImageInfo struct {
	Width       int
	Height      int
	Format      string
	HasAlpha    bool
	AspectRatio float64
}
