// Image loading and saving functionality
package io

import (
	"bufio"
	"errors"
	"fmt"
	"image"
	"image/jpeg"
	"image/png"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/dustin/go-humanize"
	"github.com/sirupsen/logrus"
	"golang.org/x/image/bmp"
	"golang.org/x/image/tiff"
	_ "golang.org/x/image/webp"

	"image-filter-chain/internal/core"
)

var ErrUnsupportedFormat = errors.New("unsupported image format")

// Extensions the loader can decode. webp is read-only.
var (
	decodeExtensions = []string{".jpg", ".jpeg", ".png", ".bmp", ".tif", ".tiff", ".webp"}
	encodeExtensions = []string{".jpg", ".jpeg", ".png", ".bmp", ".tif", ".tiff"}
)

// ImageLoader handles image file operations
type ImageLoader struct {
	logger *logrus.Logger
}

func NewImageLoader(logger *logrus.Logger) *ImageLoader {
	return &ImageLoader{
		logger: logger,
	}
}

// LoadImage decodes the file at path and returns the image with its format name.
func (il *ImageLoader) LoadImage(path string) (image.Image, string, error) {
	il.logger.WithField("filepath", path).Debug("Loading image")

	if !il.IsSupported(path) {
		return nil, "", fmt.Errorf("%w: %s", ErrUnsupportedFormat, path)
	}

	f, err := os.Open(path)
	if err != nil {
		return nil, "", fmt.Errorf("open image: %w", err)
	}
	defer f.Close()

	if info, err := f.Stat(); err == nil {
		il.logger.WithFields(logrus.Fields{
			"filepath": path,
			"size":     humanize.Bytes(uint64(info.Size())),
		}).Debug("Image file opened")
	}

	return il.Decode(f, path)
}

// Decode reads an image from r. name is used for logging and error messages.
func (il *ImageLoader) Decode(r io.Reader, name string) (image.Image, string, error) {
	img, format, err := image.Decode(bufio.NewReader(r))
	if err != nil {
		return nil, "", fmt.Errorf("failed to load image %s: %w", name, err)
	}
	if err := core.ValidateImage(img); err != nil {
		return nil, "", fmt.Errorf("invalid image %s: %w", name, err)
	}

	size := img.Bounds().Size()
	il.logger.WithFields(logrus.Fields{
		"filepath": name,
		"format":   format,
		"width":    size.X,
		"height":   size.Y,
		"pixels":   humanize.Comma(int64(size.X * size.Y)),
	}).Info("Image loaded successfully")

	return img, format, nil
}

// SaveImage writes img to path, choosing the encoder from the extension.
func (il *ImageLoader) SaveImage(img image.Image, path string) error {
	il.logger.WithField("filepath", path).Debug("Saving image")

	if img == nil || img.Bounds().Empty() {
		return fmt.Errorf("cannot save empty image")
	}
	if !hasExtension(path, encodeExtensions) {
		return fmt.Errorf("%w: %s", ErrUnsupportedFormat, path)
	}

	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create image file: %w", err)
	}

	if err := il.Encode(f, img, path); err != nil {
		f.Close()
		return err
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("failed to save image %s: %w", path, err)
	}

	il.logger.WithFields(logrus.Fields{
		"filepath": path,
		"width":    img.Bounds().Dx(),
		"height":   img.Bounds().Dy(),
	}).Info("Image saved successfully")
	return nil
}

// Encode writes img to w in the format named by name's extension.
func (il *ImageLoader) Encode(w io.Writer, img image.Image, name string) error {
	var err error
	switch extension(name) {
	case ".jpg", ".jpeg":
		err = jpeg.Encode(w, img, &jpeg.Options{Quality: 95})
	case ".png":
		err = png.Encode(w, img)
	case ".bmp":
		err = bmp.Encode(w, img)
	case ".tif", ".tiff":
		err = tiff.Encode(w, img, &tiff.Options{Compression: tiff.Deflate})
	default:
		return fmt.Errorf("%w: %s", ErrUnsupportedFormat, name)
	}
	if err != nil {
		return fmt.Errorf("failed to save image %s: %w", name, err)
	}
	return nil
}

// IsSupported reports whether path has a decodable extension.
func (il *ImageLoader) IsSupported(path string) bool {
	return hasExtension(path, decodeExtensions)
}

// ValidateImageFile checks the header of the file at path without decoding
// the pixels.
func (il *ImageLoader) ValidateImageFile(path string) error {
	if !il.IsSupported(path) {
		return ErrUnsupportedFormat
	}

	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("open image: %w", err)
	}
	defer f.Close()

	cfg, _, err := image.DecodeConfig(bufio.NewReader(f))
	if err != nil {
		return fmt.Errorf("invalid or corrupted image file: %w", err)
	}
	if cfg.Width <= 0 || cfg.Height <= 0 {
		return fmt.Errorf("invalid image dimensions")
	}
	return nil
}

// OpenExtensions returns the extensions offered by the open dialog.
func (il *ImageLoader) OpenExtensions() []string {
	return append([]string(nil), decodeExtensions...)
}

// SaveExtensions returns the extensions offered by the save dialog.
func (il *ImageLoader) SaveExtensions() []string {
	return append([]string(nil), encodeExtensions...)
}

func (il *ImageLoader) GetSupportedFormats() []string {
	return []string{"JPEG", "PNG", "TIFF", "BMP", "WebP"}
}

func extension(path string) string {
	return strings.ToLower(filepath.Ext(path))
}

func hasExtension(path string, allowed []string) bool {
	ext := extension(path)
	for _, a := range allowed {
		if ext == a {
			return true
		}
	}
	return false
}
