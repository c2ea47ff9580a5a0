package helpers

import (
	"encoding/base64"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// pngHeader is enough of a PNG file for content sniffing
var pngHeader = []byte{
	0x89, 'P', 'N', 'G', '\r', '\n', 0x1a, '\n',
	0x00, 0x00, 0x00, 0x0d, 'I', 'H', 'D', 'R',
	0x00, 0x00, 0x00, 0x01, 0x00, 0x00, 0x00, 0x01,
	0x08, 0x02, 0x00, 0x00, 0x00, 0x90, 0x77, 0x53, 0xde,
}

func TestEncodeImage(t *testing.T) {
	t.Run("png produces bare payload and data uri", func(t *testing.T) {
		att, err := EncodeImage(pngHeader)
		require.NoError(t, err)

		assert.Equal(t, "image/png", att.MIMEType)
		assert.False(t, strings.HasPrefix(att.Encoded, "data:"))
		assert.Equal(t, "data:image/png;base64,"+att.Encoded, att.PreviewURL)

		decoded, err := base64.StdEncoding.DecodeString(att.Encoded)
		require.NoError(t, err)
		assert.Equal(t, pngHeader, decoded)
	})

	t.Run("rejects non-image content", func(t *testing.T) {
		_, err := EncodeImage([]byte("just some requirement text"))
		assert.ErrorIs(t, err, ErrNotImage)
	})

	t.Run("rejects empty content", func(t *testing.T) {
		_, err := EncodeImage(nil)
		assert.ErrorContains(t, err, "image is empty")
	})
}

func TestLoadImage(t *testing.T) {
	path := filepath.Join(t.TempDir(), "mockup.png")
	require.NoError(t, os.WriteFile(path, pngHeader, 0644))

	att, err := LoadImage(path)
	require.NoError(t, err)
	assert.Equal(t, "image/png", att.MIMEType)

	_, err = LoadImage(filepath.Join(t.TempDir(), "missing.png"))
	assert.ErrorContains(t, err, "failed to read image")
}

func TestDirSaver(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "exports")
	saver := DirSaver{Dir: dir}

	path, err := saver.Save("requirement_analysis_report.pdf", []byte("%PDF-1.7"))
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, "requirement_analysis_report.pdf"), path)

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "%PDF-1.7", string(data))
}
