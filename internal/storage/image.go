// AngelaMos | 2026
// image.go

package storage

import (
	"bytes"
	"errors"
	"fmt"
	"image"
	_ "image/gif" // register gif decoder
	"image/jpeg"
	_ "image/png" // register png decoder
	"io"

	"golang.org/x/image/draw"
)

var ErrUnsupportedImage = errors.New("unsupported image format")

const (
	ImageKindProfile = "profile"
	ImageKindCover   = "cover"
)

// CompressOptions bounds the longest edge of the output and sets the JPEG
// quality (1-100).
type CompressOptions struct {
	MaxDim  int
	Quality int
}

// CompressImage decodes a JPEG, PNG or GIF, scales it down so neither edge
// exceeds MaxDim while keeping the aspect ratio, and re-encodes it as JPEG.
// Images already within bounds are re-encoded without resizing.
func CompressImage(r io.Reader, opts CompressOptions) ([]byte, error) {
	src, _, err := image.Decode(r)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrUnsupportedImage, err)
	}

	w, h := fitWithin(src.Bounds().Dx(), src.Bounds().Dy(), opts.MaxDim)

	dst := image.NewRGBA(image.Rect(0, 0, w, h))
	draw.Draw(dst, dst.Bounds(), image.White, image.Point{}, draw.Src)
	draw.CatmullRom.Scale(dst, dst.Bounds(), src, src.Bounds(), draw.Over, nil)

	quality := opts.Quality
	if quality < 1 || quality > 100 {
		quality = jpeg.DefaultQuality
	}

	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, dst, &jpeg.Options{Quality: quality}); err != nil {
		return nil, fmt.Errorf("encode jpeg: %w", err)
	}

	return buf.Bytes(), nil
}

func fitWithin(w, h, maxDim int) (int, int) {
	if maxDim <= 0 || (w <= maxDim && h <= maxDim) {
		return w, h
	}

	if w >= h {
		return maxDim, max(1, h*maxDim/w)
	}
	return max(1, w*maxDim/h), maxDim
}
