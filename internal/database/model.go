package database

import (
	"strings"
	"time"
)

// MediaRecord is one portfolio media entry and the public paths of its
// stored variant set. Derived paths are empty when that variant was not
// produced.
type MediaRecord struct {
	ID            string
	Title         string
	OriginalName  string
	StorageName   string
	ContentType   string
	MediaType     MediaType
	Size          int64
	Width         int
	Height        int
	AspectRatio   float64
	OriginalPath  string
	ThumbnailPath string
	WebPPath      string
	AVIFPath      string
	DominantColor string
	CreatedAt     time.Time
	DeletedAt     *time.Time
}

type MediaType string

const (
	MediaTypeImage MediaType = "IMAGE"
	MediaTypeVideo MediaType = "VIDEO"
	MediaTypeOther MediaType = "OTHER"
)

// DeriveMediaType maps a MIME type to the stored media type tag.
func DeriveMediaType(contentType string) MediaType {
	if strings.HasPrefix(contentType, "image/") {
		return MediaTypeImage
	}
	if strings.HasPrefix(contentType, "video/") {
		return MediaTypeVideo
	}
	return MediaTypeOther
}
