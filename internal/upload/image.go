// Package upload stores product images on local disk.
package upload

import (
	"bytes"
	"fmt"
	"image"
	"image/jpeg"
	"image/png"
	"io"
	"net/http"
	"os"
	"path"
	"path/filepath"

	"canteen_system/internal/apperr"

	"github.com/google/uuid"
	"github.com/nfnt/resize"
)

const (
	// MaxWidth is the widest image kept; wider uploads are downscaled
	MaxWidth = 800
	// MaxDimension caps either side of an upload before it is decoded
	MaxDimension = 4096
)

// Store writes images under Dir and serves them from URLPrefix
type Store struct {
	Dir       string
	URLPrefix string
	MaxBytes  int64
}

func New(dir string, maxBytes int64) *Store {
	return &Store{Dir: dir, URLPrefix: "/uploads", MaxBytes: maxBytes}
}

// SaveProductImage validates, downscales and stores an image. It returns the
// public path of the stored file.
func (s *Store) SaveProductImage(r io.Reader) (string, error) {
	data, err := io.ReadAll(io.LimitReader(r, s.MaxBytes+1))
	if err != nil {
		return "", fmt.Errorf("read upload: %w", err)
	}
	if int64(len(data)) > s.MaxBytes {
		return "", apperr.Invalid(fmt.Sprintf("Image exceeds %d bytes", s.MaxBytes))
	}

	var ext string
	switch http.DetectContentType(data) {
	case "image/jpeg":
		ext = ".jpg"
	case "image/png":
		ext = ".png"
	default:
		return "", apperr.Invalid("Image must be JPEG or PNG")
	}

	cfg, _, err := image.DecodeConfig(bytes.NewReader(data))
	if err != nil {
		return "", apperr.Invalid("Image could not be decoded")
	}
	if cfg.Width > MaxDimension || cfg.Height > MaxDimension {
		return "", apperr.Invalid(fmt.Sprintf("Image exceeds %dx%d pixels", MaxDimension, MaxDimension))
	}
	img, _, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return "", apperr.Invalid("Image could not be decoded")
	}
	if img.Bounds().Dx() > MaxWidth {
		img = resize.Resize(MaxWidth, 0, img, resize.Lanczos3)
	}

	dir := filepath.Join(s.Dir, "products")
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("create upload dir: %w", err)
	}
	name := uuid.NewString() + ext
	out, err := os.Create(filepath.Join(dir, name))
	if err != nil {
		return "", fmt.Errorf("create image file: %w", err)
	}
	defer out.Close()

	if ext == ".png" {
		err = png.Encode(out, img)
	} else {
		err = jpeg.Encode(out, img, &jpeg.Options{Quality: 80})
	}
	if err != nil {
		return "", fmt.Errorf("encode image: %w", err)
	}
	return path.Join(s.URLPrefix, "products", name), nil
}
