package newsapi

import (
	"bytes"
	"fmt"
	"image"
	_ "image/gif"
	"image/jpeg"
	_ "image/png"
	"io"
	"os"
	"path"
	"path/filepath"
	"strings"
	"unicode"

	_ "golang.org/x/image/bmp"
	"golang.org/x/image/draw"
	_ "golang.org/x/image/tiff"
	_ "golang.org/x/image/webp"
)

const (
	maxImageWidth = 1200
	jpegQuality   = 82
	maxImageSize  = 20 << 20
	imagesSubdir  = "news"
)

// StoredImage is an image written under the public files directory.
type StoredImage struct {
	File   File
	Width  int
	Height int
}

// processImage decodes src, scales it down to maxImageWidth if wider and
// re-encodes it as JPEG.
func processImage(src io.Reader) ([]byte, int, int, error) {
	img, _, err := image.Decode(io.LimitReader(src, maxImageSize))
	if err != nil {
		return nil, 0, 0, fmt.Errorf("decode image: %w", err)
	}

	bounds := img.Bounds()
	w, h := bounds.Dx(), bounds.Dy()
	if w > maxImageWidth {
		newH := h * maxImageWidth / w
		dst := image.NewRGBA(image.Rect(0, 0, maxImageWidth, newH))
		draw.CatmullRom.Scale(dst, dst.Bounds(), img, bounds, draw.Over, nil)
		img = dst
		w, h = maxImageWidth, newH
	}

	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, img, &jpeg.Options{Quality: jpegQuality}); err != nil {
		return nil, 0, 0, fmt.Errorf("encode jpeg: %w", err)
	}
	return buf.Bytes(), w, h, nil
}

// importImage processes the image at srcPath and writes it to
// <filesDir>/news/<name>.jpg, picking a free name. The returned file has a
// public:// uri relative to filesDir.
func importImage(srcPath, filesDir string) (StoredImage, error) {
	f, err := os.Open(srcPath)
	if err != nil {
		return StoredImage{}, err
	}
	defer f.Close()

	data, w, h, err := processImage(f)
	if err != nil {
		return StoredImage{}, fmt.Errorf("%s: %w", srcPath, err)
	}

	dir := filepath.Join(filesDir, imagesSubdir)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return StoredImage{}, fmt.Errorf("create images dir: %w", err)
	}
	name, err := uniqueFilename(dir, fileSlug(srcPath))
	if err != nil {
		return StoredImage{}, err
	}
	if err := os.WriteFile(filepath.Join(dir, name), data, 0o644); err != nil {
		return StoredImage{}, fmt.Errorf("write image: %w", err)
	}

	return StoredImage{
		File: File{
			URI:      publicScheme + path.Join(imagesSubdir, name),
			Filename: name,
			MIME:     "image/jpeg",
			Size:     int64(len(data)),
		},
		Width:  w,
		Height: h,
	}, nil
}

// uniqueFilename appends a counter until base.jpg is not taken in dir.
func uniqueFilename(dir, base string) (string, error) {
	candidate := base + ".jpg"
	for i := 2; ; i++ {
		_, err := os.Stat(filepath.Join(dir, candidate))
		if os.IsNotExist(err) {
			return candidate, nil
		}
		if err != nil {
			return "", err
		}
		candidate = fmt.Sprintf("%s-%d.jpg", base, i)
	}
}

// fileSlug lowercases the base name of p and keeps letters and digits,
// joining the rest with single dashes.
func fileSlug(p string) string {
	base := strings.TrimSuffix(filepath.Base(p), filepath.Ext(p))
	var b strings.Builder
	dash := false
	for _, r := range strings.ToLower(base) {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			b.WriteRune(r)
			dash = false
			continue
		}
		if !dash && b.Len() > 0 {
			b.WriteByte('-')
			dash = true
		}
	}
	s := strings.TrimRight(b.String(), "-")
	if s == "" {
		return "image"
	}
	return s
}
