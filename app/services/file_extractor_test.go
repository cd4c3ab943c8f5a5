package services

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestExtractText(t *testing.T) {
	extractor := NewTextExtractor()

	t.Run("plain text file", func(t *testing.T) {
		text, err := extractor.ExtractText("disclosure.txt", []byte("A coating that repairs microcracks."))
		require.NoError(t, err)
		assert.Equal(t, "A coating that repairs microcracks.", text)
	})

	t.Run("extension check is case-insensitive", func(t *testing.T) {
		_, err := extractor.ExtractText("DISCLOSURE.TXT", []byte("ok"))
		assert.NoError(t, err)
	})

	t.Run("rejects invalid UTF-8 in text files", func(t *testing.T) {
		_, err := extractor.ExtractText("binary.txt", []byte{0xff, 0xfe, 0xfd})
		assert.Error(t, err)
	})

	t.Run("rejects unsupported extensions", func(t *testing.T) {
		_, err := extractor.ExtractText("disclosure.docx", []byte("content"))
		assert.ErrorIs(t, err, ErrUnsupportedFileType)
	})

	t.Run("rejects oversized files", func(t *testing.T) {
		_, err := extractor.ExtractText("huge.txt", make([]byte, MaxUploadSize+1))
		assert.Error(t, err)
	})
}
