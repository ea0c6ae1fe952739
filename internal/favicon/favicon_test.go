package favicon

import (
	"bytes"
	"encoding/base64"
	"image"
	"image/color"
	"image/png"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func pngDataURI(t *testing.T, w, h int) string {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.Set(x, y, color.RGBA{R: 255, A: 255})
		}
	}
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, img))
	return dataURIPrefix + base64.StdEncoding.EncodeToString(buf.Bytes())
}

func TestValidateEmptyPassesThrough(t *testing.T) {
	out, err := Validate("")
	require.NoError(t, err)
	assert.Empty(t, out)
}

func TestValidateRejectsNonDataURI(t *testing.T) {
	_, err := Validate("not-a-data-uri")
	assert.Error(t, err)
}

func TestValidatePassesThroughSmallIcon(t *testing.T) {
	src := pngDataURI(t, 64, 64)
	out, err := Validate(src)
	require.NoError(t, err)
	assert.Equal(t, src, out)
}

func TestValidateResizesOversizedIcon(t *testing.T) {
	src := pngDataURI(t, 256, 256)
	out, err := Validate(src)
	require.NoError(t, err)
	assert.NotEqual(t, src, out)

	raw, err := base64.StdEncoding.DecodeString(out[len(dataURIPrefix):])
	require.NoError(t, err)
	img, err := png.Decode(bytes.NewReader(raw))
	require.NoError(t, err)
	assert.Equal(t, targetSize, img.Bounds().Dx())
	assert.Equal(t, targetSize, img.Bounds().Dy())
}
