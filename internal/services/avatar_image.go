package services

import (
	"bytes"
	"errors"
	"fmt"
	"image"
	"image/jpeg"
	"path/filepath"
	"strings"

	// Decoders for the formats accepted as avatar input.
	_ "image/gif"
	_ "image/png"

	_ "golang.org/x/image/bmp"
	"golang.org/x/image/draw"
	_ "golang.org/x/image/webp"
)

const (
	DefaultAvatarSize = 512
	avatarJPEGQuality = 85
)

var ErrInvalidImage = errors.New("invalid image")

// PrepareAvatar decodes data, center-crops it to a square, scales it down to
// at most size pixels per side and re-encodes it as JPEG.
func PrepareAvatar(data []byte, size int) ([]byte, error) {
	if size <= 0 {
		size = DefaultAvatarSize
	}
	src, _, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidImage, err)
	}

	crop := squareCrop(src.Bounds())
	if crop.Empty() {
		return nil, ErrInvalidImage
	}
	side := crop.Dx()
	if side > size {
		side = size
	}

	dst := image.NewRGBA(image.Rect(0, 0, side, side))
	draw.CatmullRom.Scale(dst, dst.Bounds(), src, crop, draw.Src, nil)

	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, dst, &jpeg.Options{Quality: avatarJPEGQuality}); err != nil {
		return nil, fmt.Errorf("encoding avatar: %w", err)
	}
	return buf.Bytes(), nil
}

func squareCrop(b image.Rectangle) image.Rectangle {
	w, h := b.Dx(), b.Dy()
	side := w
	if h < side {
		side = h
	}
	x0 := b.Min.X + (w-side)/2
	y0 := b.Min.Y + (h-side)/2
	return image.Rect(x0, y0, x0+side, y0+side)
}

func avatarFilename(name string) string {
	base := strings.TrimSuffix(filepath.Base(name), filepath.Ext(name))
	if base == "" || base == "." || base == string(filepath.Separator) {
		base = "avatar"
	}
	return base + ".jpg"
}
