package server

import (
	"fmt"
	"net/http"
	"strings"
)

// ValidateContentType checks that the uploaded bytes match the declared
// content type. The derivation pipeline decodes images structurally; this
// sniff is the lighter check applied to every upload, videos included.
func ValidateContentType(data []byte, declaredType string) error {
	head := data
	if len(head) > 512 {
		head = head[:512]
	}
	actualType := http.DetectContentType(head)

	if !isContentTypeMatch(actualType, declaredType) {
		return fmt.Errorf("content type mismatch: declared=%s, detected=%s",
			declaredType, actualType)
	}
	return nil
}

func isContentTypeMatch(actual, declared string) bool {
	if actual == declared {
		return true
	}

	// DetectContentType knows a limited sniff set and falls back to
	// application/octet-stream for anything outside it (QuickTime
	// containers among others). That result is inconclusive, not a
	// mismatch; the allowed-type whitelist still gates the upload.
	if actual == "application/octet-stream" {
		return true
	}

	// Same top-level type is close enough: video containers in particular
	// sniff inconsistently (e.g. video/quicktime vs video/mp4).
	actualPrefix := strings.Split(actual, "/")[0]
	declaredPrefix := strings.Split(declared, "/")[0]
	return actualPrefix == declaredPrefix
}
