package utils

import (
	"bytes"
	"encoding/base64"
	"image"
	"image/color"
	"image/jpeg"
	"image/png"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func encodedFrame(t *testing.T, w, h int, asPNG bool) []byte {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for x := 0; x < w; x++ {
		img.Set(x, h/2, color.RGBA{R: 200, A: 255})
	}
	var buf bytes.Buffer
	if asPNG {
		require.NoError(t, png.Encode(&buf, img))
	} else {
		require.NoError(t, jpeg.Encode(&buf, img, &jpeg.Options{Quality: 80}))
	}
	return buf.Bytes()
}

func TestInspectFrame(t *testing.T) {
	t.Parallel()
	u := New()

	info, err := u.InspectFrame(encodedFrame(t, 640, 480, false))
	require.NoError(t, err)
	assert.Equal(t, FrameInfo{Width: 640, Height: 480, Format: "jpeg"}, info)

	info, err = u.InspectFrame(encodedFrame(t, 32, 24, true))
	require.NoError(t, err)
	assert.Equal(t, "png", info.Format)

	_, err = u.InspectFrame([]byte("definitely not an image"))
	assert.ErrorIs(t, err, ErrUnknownFormat)

	_, err = u.InspectFrame(nil)
	assert.ErrorIs(t, err, ErrNoFile)
}

func TestDecodeBase64Image(t *testing.T) {
	t.Parallel()
	u := New()
	frame := encodedFrame(t, 16, 16, true)
	b64 := base64.StdEncoding.EncodeToString(frame)

	got, err := u.DecodeBase64Image(b64)
	require.NoError(t, err)
	assert.Equal(t, frame, got)

	got, err = u.DecodeBase64Image("data:image/png;base64," + b64)
	require.NoError(t, err)
	assert.Equal(t, frame, got)

	_, err = u.DecodeBase64Image("%%%")
	assert.Error(t, err)
}

func TestNewULIDFromTimestamp(t *testing.T) {
	t.Parallel()
	u := New()
	now := time.Now()

	a, err := u.NewULIDFromTimestamp(now)
	require.NoError(t, err)
	b, err := u.NewULIDFromTimestamp(now.Add(time.Millisecond))
	require.NoError(t, err)

	assert.Len(t, a, 26)
	assert.Less(t, a, b)
}
