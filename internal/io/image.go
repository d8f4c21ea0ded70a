package ioutils

import (
	"bytes"
	"context"
	"image"
	"image/jpeg"
	_ "image/png" // PNG decoder registration

	"golang.org/x/image/draw"
)

// ImageService prepares cover art for embedding or extraction.
//
//	svc := NewImageService()
//	cover, _ := svc.PrepareCover(ctx, pictureBytes, 500)
type ImageService struct {
	// Quality is the JPEG quality used when re-encoding.
	Quality int
}

// NewImageService creates a new ImageService.
func NewImageService() *ImageService {
	return &ImageService{Quality: 90}
}

// PrepareCover returns data as a JPEG no larger than maxSize on either
// side. A maxSize of 0 only converts the image.
func (s *ImageService) PrepareCover(ctx context.Context, data []byte, maxSize int) ([]byte, error) {
	if maxSize > 0 {
		return s.ResizeImage(ctx, data, maxSize, maxSize)
	}
	return s.ConvertToJPEG(ctx, data)
}

// ResizeImage resizes an image to fit within the specified maximum dimensions.
//
// The aspect ratio is preserved and images that already fit keep their size.
// The result is always JPEG-encoded. Catmull-Rom is used for scaling.
//
// Example:
//
//	// A 1500x1000 image becomes 1000x666
//	resized, err := svc.ResizeImage(ctx, imageData, 1000, 1000)
func (s *ImageService) ResizeImage(ctx context.Context, data []byte, maxWidth, maxHeight int) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	img, _, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, err
	}

	bounds := img.Bounds()
	width, height := FitWithin(bounds.Dx(), bounds.Dy(), maxWidth, maxHeight)

	dst := image.NewRGBA(image.Rect(0, 0, width, height))
	draw.CatmullRom.Scale(dst, dst.Bounds(), img, bounds, draw.Over, nil)

	return s.encode(dst)
}

// ConvertToJPEG re-encodes an image (JPEG, PNG) as JPEG.
func (s *ImageService) ConvertToJPEG(ctx context.Context, data []byte) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	img, _, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, err
	}
	return s.encode(img)
}

func (s *ImageService) encode(img image.Image) ([]byte, error) {
	quality := s.Quality
	if quality <= 0 || quality > 100 {
		quality = 90
	}

	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, img, &jpeg.Options{Quality: quality}); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// FitWithin scales width x height down to fit maxWidth x maxHeight,
// preserving the aspect ratio. Sizes that already fit are returned as is.
func FitWithin(width, height, maxWidth, maxHeight int) (int, int) {
	if width <= 0 || height <= 0 || maxWidth <= 0 || maxHeight <= 0 {
		return width, height
	}
	if width <= maxWidth && height <= maxHeight {
		return width, height
	}

	ratio := float64(width) / float64(height)
	if float64(maxWidth)/float64(maxHeight) > ratio {
		// Height is the limiting factor
		return max(1, int(float64(maxHeight)*ratio)), maxHeight
	}
	return maxWidth, max(1, int(float64(maxWidth)/ratio))
}
