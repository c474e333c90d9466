// Package metadata reads pixel dimensions from encoded images without decoding
// the full bitmap.
package metadata

import (
	"bytes"
	"image"
	"io"
	"os"

	// Registered decoders.
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"

	_ "golang.org/x/image/bmp"
	_ "golang.org/x/image/tiff"
	_ "golang.org/x/image/webp"
)

type Dimensions struct {
	Width  int `json:"width"`
	Height int `json:"height"`
}

// Extract returns the dimensions of data, or zero dimensions when the format is
// unknown or the header is malformed.
func Extract(data []byte) Dimensions {
	return ExtractReader(bytes.NewReader(data))
}

// ExtractFile is Extract for a file on disk. Unreadable files yield zero dimensions.
func ExtractFile(path string) Dimensions {
	f, err := os.Open(path)
	if err != nil {
		return Dimensions{}
	}
	defer f.Close()
	return ExtractReader(f)
}

func ExtractReader(r io.Reader) Dimensions {
	cfg, _, err := image.DecodeConfig(r)
	if err != nil || cfg.Width < 0 || cfg.Height < 0 {
		return Dimensions{}
	}
	return Dimensions{Width: cfg.Width, Height: cfg.Height}
}
