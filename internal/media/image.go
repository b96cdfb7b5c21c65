package media

import (
	"bytes"
	"fmt"
	"image"

	// Image format decoders
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"

	"github.com/disintegration/imaging"
	_ "golang.org/x/image/bmp"
	_ "golang.org/x/image/tiff"
	_ "golang.org/x/image/webp"
)

// DecodeDimensions returns image dimensions without fully decoding the image.
func DecodeDimensions(data []byte) (Dimensions, error) {
	config, _, err := image.DecodeConfig(bytes.NewReader(data))
	if err != nil {
		return Dimensions{}, err
	}
	return Dimensions{Width: config.Width, Height: config.Height}, nil
}

// decodeImage decodes data into a bitmap, applying EXIF orientation the way
// a browser's image decoder does.
func decodeImage(data []byte) (image.Image, error) {
	img, err := imaging.Decode(bytes.NewReader(data), imaging.AutoOrientation(true))
	if err != nil {
		return nil, fmt.Errorf("decode image: %w", err)
	}
	return img, nil
}

// encodeJPEG encodes img as JPEG. quality is on the 1..100 scale.
func encodeJPEG(img image.Image, quality int) ([]byte, error) {
	var buf bytes.Buffer
	if err := imaging.Encode(&buf, img, imaging.JPEG, imaging.JPEGQuality(quality)); err != nil {
		return nil, fmt.Errorf("encode jpeg: %w", err)
	}
	return buf.Bytes(), nil
}

// EncodeJPEG is the exported form of the JPEG encoder used by camera frame
// capture.
func EncodeJPEG(img image.Image, quality int) ([]byte, error) {
	return encodeJPEG(img, quality)
}

// QualityPercent converts a 0..1 browser-style quality into the 1..100 scale
// used by the JPEG encoders.
func QualityPercent(q float64) int {
	p := int(q*100 + 0.5)
	if p < 1 {
		return 1
	}
	if p > 100 {
		return 100
	}
	return p
}
