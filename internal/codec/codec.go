// Package codec turns meal photos into the base64 PNG payload embedded in inference requests.
package codec

import (
	"bytes"
	"encoding/base64"
	"image"
	"image/color"
	"image/draw"
	_ "image/jpeg"
	"image/png"
	"io"

	apperrors "github.com/anime-shed/nutrivision-go/internal/errors"
)

// MIMEType is the container format every encoded image uses.
const MIMEType = "image/png"

const dataURIPrefix = "data:" + MIMEType + ";base64,"

// SupportedFormats lists the upload containers Decode accepts.
var SupportedFormats = []string{"jpeg", "png"}

// Decode reads a JPEG or PNG image. Anything else is an encoding error.
func Decode(r io.Reader) (image.Image, string, error) {
	img, format, err := image.Decode(r)
	if err != nil {
		return nil, "", apperrors.NewEncodingError("failed to decode image", err)
	}
	for _, supported := range SupportedFormats {
		if format == supported {
			return img, format, nil
		}
	}
	return nil, format, apperrors.NewEncodingError("unsupported image format: "+format, nil)
}

// Normalize copies img into an opaque three-channel image. Alpha is dropped,
// not composited, so colour values are kept as-is.
func Normalize(img image.Image) *image.NRGBA {
	bounds := img.Bounds()
	out := image.NewNRGBA(image.Rect(0, 0, bounds.Dx(), bounds.Dy()))

	if o, ok := img.(interface{ Opaque() bool }); ok && o.Opaque() {
		draw.Draw(out, out.Bounds(), img, bounds.Min, draw.Src)
		return out
	}

	for y := bounds.Min.Y; y < bounds.Max.Y; y++ {
		for x := bounds.Min.X; x < bounds.Max.X; x++ {
			c := color.NRGBAModel.Convert(img.At(x, y)).(color.NRGBA)
			c.A = 0xff
			out.SetNRGBA(x-bounds.Min.X, y-bounds.Min.Y, c)
		}
	}
	return out
}

// EncodeBytes serializes img as PNG.
func EncodeBytes(img image.Image) ([]byte, error) {
	if img == nil {
		return nil, apperrors.NewEncodingError("image is nil", nil)
	}
	if b := img.Bounds(); b.Dx() <= 0 || b.Dy() <= 0 {
		return nil, apperrors.NewEncodingError("image has no pixels", nil)
	}

	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		return nil, apperrors.NewEncodingError("failed to encode image as PNG", err)
	}
	return buf.Bytes(), nil
}

// Encode serializes img as PNG and returns it as unwrapped standard base64.
func Encode(img image.Image) (string, error) {
	data, err := EncodeBytes(img)
	if err != nil {
		return "", err
	}
	return base64.StdEncoding.EncodeToString(data), nil
}

// DataURI wraps an encoded image for the image_url content part.
func DataURI(encoded string) string {
	return dataURIPrefix + encoded
}

// CheckSize rejects payloads larger than limit. A limit <= 0 disables the check.
func CheckSize(encoded string, limit int) error {
	if limit > 0 && len(encoded) > limit {
		return apperrors.NewSizeExceededError(len(encoded), limit)
	}
	return nil
}
