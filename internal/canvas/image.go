package canvas

import (
	"bytes"
	"fmt"
	"image"

	// Decoders for loadImage.
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"
)

// Image is a decoded image usable with DrawImage. Width, Height and Src
// are visible to scripts as img.width, img.height and img.src.
type Image struct {
	Width  int
	Height int
	Src    string

	img image.Image
}

// Size implements game.Image.
func (i *Image) Size() (int, int) {
	return i.Width, i.Height
}

// DecodeImage decodes PNG, JPEG or GIF data fetched from src.
func DecodeImage(src string, data []byte) (*Image, error) {
	img, _, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("canvas: cannot decode image %s: %w", src, err)
	}
	b := img.Bounds()
	return &Image{Width: b.Dx(), Height: b.Dy(), Src: src, img: img}, nil
}

// NewImage wraps an in-memory image.
func NewImage(src string, img image.Image) *Image {
	b := img.Bounds()
	return &Image{Width: b.Dx(), Height: b.Dy(), Src: src, img: img}
}
