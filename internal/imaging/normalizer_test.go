package imaging

import (
	"bytes"
	"context"
	"image"
	"image/color"
	"image/png"
	"testing"

	"github.com/disintegration/imaging"
	"github.com/sngm3741/building-survey-services/api/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func pngBytes(t *testing.T, w, h int) []byte {
	t.Helper()
	img := image.NewNRGBA(image.Rect(0, 0, w, h))
	for x := 0; x < w; x++ {
		for y := 0; y < h; y++ {
			img.Set(x, y, color.NRGBA{R: uint8(x), G: uint8(y), B: 128, A: 255})
		}
	}
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, img))
	return buf.Bytes()
}

func TestNormalize_ScalesToTwentyPercent(t *testing.T) {
	cases := []struct{ w, h, wantW, wantH int }{
		{100, 50, 20, 10},
		{640, 480, 128, 96},
		{33, 27, 6, 5},
	}
	n := NewNormalizer(0)
	for _, tc := range cases {
		out, err := n.Normalize(pngBytes(t, tc.w, tc.h))
		require.NoError(t, err)

		decoded, err := imaging.Decode(bytes.NewReader(out))
		require.NoError(t, err, "output must decode again")
		assert.Equal(t, tc.wantW, decoded.Bounds().Dx())
		assert.Equal(t, tc.wantH, decoded.Bounds().Dy())
	}
}

func TestNormalize_OutputIsJPEG(t *testing.T) {
	out, err := NewNormalizer(0).Normalize(pngBytes(t, 50, 50))
	require.NoError(t, err)
	_, format, err := image.DecodeConfig(bytes.NewReader(out))
	require.NoError(t, err)
	assert.Equal(t, "jpeg", format)
}

func TestNormalize_RejectsGarbage(t *testing.T) {
	_, err := NewNormalizer(0).Normalize([]byte("definitely not an image"))
	assert.ErrorIs(t, err, domain.ErrDecode)

	_, err = NewNormalizer(0).Normalize(nil)
	assert.ErrorIs(t, err, domain.ErrDecode)
}

func TestNormalize_RejectsTinyImage(t *testing.T) {
	_, err := NewNormalizer(0).Normalize(pngBytes(t, 4, 40))
	assert.True(t, domain.IsValidation(err))
}

func TestNormalize_RejectsTooManyPixels(t *testing.T) {
	n := NewNormalizer(0)
	n.maxPixels = 100
	_, err := n.Normalize(pngBytes(t, 20, 10))
	assert.True(t, domain.IsValidation(err))
}

// withOrientation inserts an EXIF APP1 segment carrying orientation tag value o
// right after the JPEG SOI marker.
func withOrientation(t *testing.T, jpg []byte, o byte) []byte {
	t.Helper()
	require.Equal(t, []byte{0xFF, 0xD8}, jpg[:2])
	app1 := []byte{
		0xFF, 0xE1, 0x00, 0x22,
		'E', 'x', 'i', 'f', 0x00, 0x00,
		'M', 'M', 0x00, 0x2A, 0x00, 0x00, 0x00, 0x08,
		0x00, 0x01,
		0x01, 0x12, 0x00, 0x03, 0x00, 0x00, 0x00, 0x01, 0x00, o, 0x00, 0x00,
		0x00, 0x00, 0x00, 0x00,
	}
	out := append([]byte{}, jpg[:2]...)
	out = append(out, app1...)
	return append(out, jpg[2:]...)
}

func TestNormalize_IgnoresExifOrientation(t *testing.T) {
	src, err := imaging.Decode(bytes.NewReader(pngBytes(t, 100, 50)))
	require.NoError(t, err)
	var buf bytes.Buffer
	require.NoError(t, imaging.Encode(&buf, src, imaging.JPEG))

	rotated := withOrientation(t, buf.Bytes(), 6)
	out, err := NewNormalizer(0).Normalize(rotated)
	require.NoError(t, err)
	decoded, err := imaging.Decode(bytes.NewReader(out))
	require.NoError(t, err)
	assert.Equal(t, 20, decoded.Bounds().Dx())
	assert.Equal(t, 10, decoded.Bounds().Dy())
}

func TestNormalize_RejectsOversizedInput(t *testing.T) {
	raw := pngBytes(t, 20, 20)
	_, err := NewNormalizer(len(raw) - 1).Normalize(raw)
	assert.True(t, domain.IsValidation(err))
}

func TestNormalizeAll(t *testing.T) {
	n := NewNormalizer(0)
	out, err := n.NormalizeAll(context.Background(), map[domain.ImageCategory][]byte{
		domain.ImageSoftFloor:       pngBytes(t, 100, 100),
		domain.ImageShortColumn:     pngBytes(t, 50, 50),
		domain.ImagePreviousDamages: nil,
	})
	require.NoError(t, err)
	assert.Len(t, out, 2)

	_, err = n.NormalizeAll(context.Background(), map[domain.ImageCategory][]byte{
		domain.ImageSoftFloor:   pngBytes(t, 100, 100),
		domain.ImageShortColumn: []byte("not an image"),
	})
	assert.ErrorIs(t, err, domain.ErrDecode)
}
