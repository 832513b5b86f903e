package server_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Marax1234/PortfolioWebapp-sub000/internal/server"
)

// quickTimeHeader builds a minimal QuickTime ftyp box (brand "qt  ").
// Go's sniffer does not know the format and reports it as
// application/octet-stream.
func quickTimeHeader() []byte {
	return []byte("\x00\x00\x00\x14ftypqt  \x00\x00\x02\x00qt  \x00\x00\x00\x08free")
}

func TestValidateContentTypeMatch(t *testing.T) {
	png := []byte("\x89PNG\r\n\x1a\n")
	assert.NoError(t, server.ValidateContentType(png, "image/png"))
}

func TestValidateContentTypeMismatch(t *testing.T) {
	err := server.ValidateContentType([]byte("plain text, not an image"), "image/jpeg")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "content type mismatch")
}

func TestValidateContentTypeOctetStreamInconclusive(t *testing.T) {
	// QuickTime sniffs as application/octet-stream; that must not reject
	// a declared type the configuration allows.
	assert.NoError(t, server.ValidateContentType(quickTimeHeader(), "video/quicktime"))
}
