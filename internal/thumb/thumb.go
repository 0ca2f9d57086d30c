// Package thumb produces small JPEG previews of image assets.
package thumb

import (
	"bytes"
	"image"
	_ "image/gif"
	"image/jpeg"
	_ "image/png"
	"sync"

	"github.com/disintegration/imaging"
	"github.com/rwcarlsen/goexif/exif"
)

const (
	MaxSize = 240
	Quality = 80
)

// Thumbnail is an encoded JPEG preview.
type Thumbnail struct {
	Data   []byte
	Width  int
	Height int
}

// Generate decodes an image, applies its EXIF orientation and fits it within
// maxSize x maxSize.
func Generate(data []byte, maxSize int) (*Thumbnail, error) {
	img, _, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, err
	}
	img = applyOrientation(img, Orientation(data))
	img = imaging.Fit(img, maxSize, maxSize, imaging.Lanczos)

	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, img, &jpeg.Options{Quality: Quality}); err != nil {
		return nil, err
	}
	b := img.Bounds()
	return &Thumbnail{Data: buf.Bytes(), Width: b.Dx(), Height: b.Dy()}, nil
}

// Dimensions reads only the image header.
func Dimensions(data []byte) (width, height int, err error) {
	cfg, _, err := image.DecodeConfig(bytes.NewReader(data))
	if err != nil {
		return 0, 0, err
	}
	return cfg.Width, cfg.Height, nil
}

// Orientation returns the EXIF orientation tag (1-8), or 1 when there is none.
func Orientation(data []byte) int {
	x, err := exif.Decode(bytes.NewReader(data))
	if err != nil {
		return 1
	}
	tag, err := x.Get(exif.Orientation)
	if err != nil {
		return 1
	}
	if v, err := tag.Int(0); err == nil && v >= 1 && v <= 8 {
		return v
	}
	return 1
}

func applyOrientation(img image.Image, orientation int) image.Image {
	switch orientation {
	case 2:
		return imaging.FlipH(img)
	case 3:
		return imaging.Rotate180(img)
	case 4:
		return imaging.FlipV(img)
	case 5:
		return imaging.Transpose(img)
	case 6:
		return imaging.Rotate270(img)
	case 7:
		return imaging.Transverse(img)
	case 8:
		return imaging.Rotate90(img)
	default:
		return img
	}
}

// Cache memoizes thumbnails by object handle. Handles never change content, so
// entries never go stale; they are dropped only by Forget.
type Cache struct {
	mu      sync.Mutex
	entries map[string]*Thumbnail
	maxSize int
}

// NewCache creates a Cache producing thumbnails of at most maxSize pixels.
func NewCache(maxSize int) *Cache {
	if maxSize <= 0 {
		maxSize = MaxSize
	}
	return &Cache{entries: make(map[string]*Thumbnail), maxSize: maxSize}
}

// Get returns the thumbnail for handle, generating it from data on first use.
func (c *Cache) Get(handle string, data func() ([]byte, error)) (*Thumbnail, error) {
	c.mu.Lock()
	if t, ok := c.entries[handle]; ok {
		c.mu.Unlock()
		return t, nil
	}
	c.mu.Unlock()

	raw, err := data()
	if err != nil {
		return nil, err
	}
	t, err := Generate(raw, c.maxSize)
	if err != nil {
		return nil, err
	}

	c.mu.Lock()
	c.entries[handle] = t
	c.mu.Unlock()
	return t, nil
}

// Forget drops a cached thumbnail.
func (c *Cache) Forget(handle string) {
	c.mu.Lock()
	delete(c.entries, handle)
	c.mu.Unlock()
}

// Len returns the number of cached thumbnails.
func (c *Cache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.entries)
}
