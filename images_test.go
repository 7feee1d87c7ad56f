package newsapi

import (
	"bytes"
	"image/jpeg"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestProcessImageResizesWideImages(t *testing.T) {
	dir := t.TempDir()
	src := filepath.Join(dir, "wide.png")
	writePNG(t, src, 2400, 600)

	f, err := os.Open(src)
	require.NoError(t, err)
	defer f.Close()

	data, w, h, err := processImage(f)
	require.NoError(t, err)
	require.Equal(t, maxImageWidth, w)
	require.Equal(t, 300, h)

	cfg, err := jpeg.DecodeConfig(bytes.NewReader(data))
	require.NoError(t, err)
	require.Equal(t, maxImageWidth, cfg.Width)
	require.Equal(t, 300, cfg.Height)
}

func TestProcessImageKeepsSmallImages(t *testing.T) {
	dir := t.TempDir()
	src := filepath.Join(dir, "small.png")
	writePNG(t, src, 64, 48)

	f, err := os.Open(src)
	require.NoError(t, err)
	defer f.Close()

	_, w, h, err := processImage(f)
	require.NoError(t, err)
	require.Equal(t, 64, w)
	require.Equal(t, 48, h)
}

func TestProcessImageRejectsGarbage(t *testing.T) {
	_, _, _, err := processImage(strings.NewReader("not an image"))
	require.ErrorContains(t, err, "decode image")
}

func TestImportImagePicksFreeName(t *testing.T) {
	dir := t.TempDir()
	filesDir := filepath.Join(dir, "files")
	src := filepath.Join(dir, "Team Photo!.png")
	writePNG(t, src, 8, 8)

	first, err := importImage(src, filesDir)
	require.NoError(t, err)
	second, err := importImage(src, filesDir)
	require.NoError(t, err)

	require.Equal(t, "public://news/team-photo.jpg", first.File.URI)
	require.Equal(t, "public://news/team-photo-2.jpg", second.File.URI)
	require.Equal(t, 8, first.Width)
	require.Equal(t, 8, first.Height)

	info, err := os.Stat(filepath.Join(filesDir, "news", "team-photo.jpg"))
	require.NoError(t, err)
	require.Equal(t, info.Size(), first.File.Size)
}

func TestFileSlug(t *testing.T) {
	tests := map[string]string{
		"Stadium Night.png":  "stadium-night",
		"/tmp/a/B__c.JPG":    "b-c",
		"Ünïcode Straße.gif": "ünïcode-straße",
		"---.png":            "image",
	}
	for in, want := range tests {
		require.Equal(t, want, fileSlug(in), in)
	}
}
