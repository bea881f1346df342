// Package imageproc shrinks uploaded profile pictures before they are stored.
package imageproc

import (
	"bytes"
	"image"
	"io"

	"github.com/disintegration/imaging"
)

// MaxPixels caps the decoded size of an image. Larger images are stored as
// uploaded instead of being decoded into memory.
const MaxPixels = 50_000_000

// Resizer bounds images to a square of MaxDimension pixels, keeping the
// aspect ratio. Input that is not a decodable image passes through unchanged.
type Resizer struct {
	MaxDimension int
}

func NewResizer(maxDimension int) *Resizer {
	return &Resizer{MaxDimension: maxDimension}
}

// Process returns a reader over the resized image, or over the original
// bytes when resizing does not apply.
func (r *Resizer) Process(reader io.Reader, fileName string) (io.Reader, error) {
	data, err := io.ReadAll(reader)
	if err != nil {
		return nil, err
	}

	resized, ok := r.resize(data, fileName)
	if !ok {
		return bytes.NewReader(data), nil
	}
	return bytes.NewReader(resized), nil
}

func (r *Resizer) resize(data []byte, fileName string) ([]byte, bool) {
	if r.MaxDimension <= 0 {
		return nil, false
	}

	format, err := imaging.FormatFromFilename(fileName)
	if err != nil {
		return nil, false
	}

	header, _, err := image.DecodeConfig(bytes.NewReader(data))
	if err != nil {
		return nil, false
	}
	if int64(header.Width)*int64(header.Height) > MaxPixels {
		return nil, false
	}

	img, err := imaging.Decode(bytes.NewReader(data), imaging.AutoOrientation(true))
	if err != nil {
		return nil, false
	}

	bounds := img.Bounds()
	if bounds.Dx() <= r.MaxDimension && bounds.Dy() <= r.MaxDimension {
		return nil, false
	}

	thumb := imaging.Fit(img, r.MaxDimension, r.MaxDimension, imaging.Lanczos)
	var buf bytes.Buffer
	if err := imaging.Encode(&buf, thumb, format); err != nil {
		return nil, false
	}
	return buf.Bytes(), true
}
