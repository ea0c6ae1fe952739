// Package favicon validates the configured faviconDataURI once at startup
// (SPEC_FULL.md supplemented feature §3): the source PNG itself stays an
// external collaborator (spec.md §1 Non-goal), but a malformed or
// oversized image is caught before it's ever served to a client, and a
// larger-than-spec icon is resized to the protocol's expected 64×64.
//
// Grounded on golang.org/x/image's draw/resize idiom as used by the rest
// of the retrieved pack's image-handling code; decoding uses the standard
// image/png codec (x/image does not replace that, only supplies scaling).
package favicon

import (
	"bytes"
	"encoding/base64"
	"image"
	"image/png"
	"strings"

	"golang.org/x/image/draw"

	"github.com/gekware/minecraft-server-hibernation/internal/errco"
)

const (
	dataURIPrefix = "data:image/png;base64,"
	targetSize    = 64
)

// Validate decodes dataURI, resizing to 64×64 if larger, and returns a
// data URI guaranteed well-formed for direct embedding in an INFO packet.
// An empty dataURI is passed through unchanged (no favicon configured).
func Validate(dataURI string) (string, error) {
	if dataURI == "" {
		return "", nil
	}
	if !strings.HasPrefix(dataURI, dataURIPrefix) {
		return "", errco.New(errco.ClassFatal, "faviconDataURI must be a data:image/png;base64, URI", nil)
	}

	raw, err := base64.StdEncoding.DecodeString(strings.TrimPrefix(dataURI, dataURIPrefix))
	if err != nil {
		return "", errco.New(errco.ClassFatal, "faviconDataURI is not valid base64", err)
	}

	img, err := png.Decode(bytes.NewReader(raw))
	if err != nil {
		return "", errco.New(errco.ClassFatal, "faviconDataURI is not a valid PNG", err)
	}

	bounds := img.Bounds()
	if bounds.Dx() <= targetSize && bounds.Dy() <= targetSize {
		return dataURI, nil
	}

	resized := resize(img, targetSize, targetSize)

	var out bytes.Buffer
	if err := png.Encode(&out, resized); err != nil {
		return "", errco.New(errco.ClassFatal, "re-encoding resized favicon", err)
	}

	return dataURIPrefix + base64.StdEncoding.EncodeToString(out.Bytes()), nil
}

// resize uses golang.org/x/image/draw's bilinear scaler, the same
// approach the pack's image-processing examples reach for instead of a
// hand-rolled nearest-neighbor loop.
func resize(src image.Image, w, h int) image.Image {
	dst := image.NewRGBA(image.Rect(0, 0, w, h))
	draw.BiLinear.Scale(dst, dst.Bounds(), src, src.Bounds(), draw.Over, nil)
	return dst
}
