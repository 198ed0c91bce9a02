// Package testutil holds small helpers shared by tests.
package testutil

import (
	"bytes"
	"image"
	"image/color"
	"image/jpeg"
	"image/png"
)

// MakePNG returns an encoded PNG of the given dimensions.
func MakePNG(w, h int) []byte {
	return encode(w, h, func(buf *bytes.Buffer, img image.Image) error {
		return png.Encode(buf, img)
	})
}

// MakeJPEG returns an encoded JPEG of the given dimensions.
func MakeJPEG(w, h int) []byte {
	return encode(w, h, func(buf *bytes.Buffer, img image.Image) error {
		return jpeg.Encode(buf, img, &jpeg.Options{Quality: 80})
	})
}

func encode(w, h int, enc func(*bytes.Buffer, image.Image) error) []byte {
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.Set(x, y, color.RGBA{R: uint8(x % 256), G: uint8(y % 256), B: 128, A: 255})
		}
	}
	buf := bytes.NewBuffer(nil)
	if err := enc(buf, img); err != nil {
		panic(err)
	}
	return buf.Bytes()
}
