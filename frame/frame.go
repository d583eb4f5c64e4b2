// Package frame holds the decoded image that travels from the camera or an
// image loader to the renderer.
package frame

import (
	"errors"
	"fmt"
	"image"
	"image/color"
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"
	"io"
	"math"

	_ "golang.org/x/image/bmp"
	"golang.org/x/image/draw"
	_ "golang.org/x/image/webp"
)

var (
	// ErrEmpty is returned for frames without pixels.
	ErrEmpty = errors.New("frame: empty frame")
	// ErrSize is returned when the pixel buffer doesn't match the dimensions.
	ErrSize = errors.New("frame: pixel buffer size mismatch")
)

// Frame is a decoded RGBA image. Pix is tightly packed, row major, with the
// origin at the top-left corner.
type Frame struct {
	Width  int
	Height int
	Pix    []byte
}

// New allocates a transparent frame of the given size.
func New(width, height int) *Frame {
	if width < 0 || height < 0 {
		width, height = 0, 0
	}
	return &Frame{
		Width:  width,
		Height: height,
		Pix:    make([]byte, width*height*4),
	}
}

// FromPixels wraps an existing RGBA buffer, as read back from a canvas.
func FromPixels(pix []byte, width, height int) (*Frame, error) {
	f := &Frame{Width: width, Height: height, Pix: pix}
	if err := f.Validate(); err != nil {
		return nil, err
	}
	return f, nil
}

// FromImage converts any image into a frame.
func FromImage(img image.Image) *Frame {
	b := img.Bounds()
	if rgba, ok := img.(*image.RGBA); ok && rgba.Stride == b.Dx()*4 && b.Min == (image.Point{}) {
		return &Frame{Width: b.Dx(), Height: b.Dy(), Pix: rgba.Pix[:b.Dx()*b.Dy()*4]}
	}
	dst := image.NewRGBA(image.Rect(0, 0, b.Dx(), b.Dy()))
	draw.Copy(dst, image.Point{}, img, b, draw.Src, nil)

	return &Frame{Width: b.Dx(), Height: b.Dy(), Pix: dst.Pix}
}

// Decode reads an encoded image (JPEG, PNG, GIF, BMP or WebP).
func Decode(r io.Reader) (*Frame, error) {
	img, _, err := image.Decode(r)
	if err != nil {
		return nil, fmt.Errorf("frame: decode: %w", err)
	}
	return FromImage(img), nil
}

// Validate checks the frame is non-empty and its buffer matches its size.
func (f *Frame) Validate() error {
	if f == nil || f.Width <= 0 || f.Height <= 0 {
		return ErrEmpty
	}
	if len(f.Pix) != f.Width*f.Height*4 {
		return fmt.Errorf("%w: %dx%d needs %d bytes, got %d",
			ErrSize, f.Width, f.Height, f.Width*f.Height*4, len(f.Pix))
	}
	return nil
}

// Bounds returns the frame rectangle.
func (f *Frame) Bounds() image.Rectangle {
	return image.Rect(0, 0, f.Width, f.Height)
}

// Image exposes the frame as an image.RGBA sharing the same pixels.
func (f *Frame) Image() *image.RGBA {
	return &image.RGBA{
		Pix:    f.Pix,
		Stride: f.Width * 4,
		Rect:   f.Bounds(),
	}
}

// At returns the color of the pixel at (x, y).
func (f *Frame) At(x, y int) color.RGBA {
	if !(image.Point{X: x, Y: y}).In(f.Bounds()) {
		return color.RGBA{}
	}
	i := (y*f.Width + x) * 4
	return color.RGBA{R: f.Pix[i], G: f.Pix[i+1], B: f.Pix[i+2], A: f.Pix[i+3]}
}

// Grayscale converts the frame to one luma byte per pixel, the input format
// expected by the face detector.
func Grayscale(f *Frame) []byte {
	gray := make([]byte, f.Width*f.Height)
	for i := range gray {
		// gray = 0.2*red + 0.7*green + 0.1*blue
		gray[i] = uint8(math.Round(
			0.2126*float64(f.Pix[i*4+0]) +
				0.7152*float64(f.Pix[i*4+1]) +
				0.0722*float64(f.Pix[i*4+2])))
	}
	return gray
}
