package qr

import (
	"bytes"
	"context"
	"encoding/base64"
	"image/png"
	"strings"
	"testing"

	qrcode "github.com/skip2/go-qrcode"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const samplePayload = `{"ticketId":"TKT-1700000000000-abc123xyz","orderId":"ORD-1","userId":"guest","eventId":"E1","ticketType":"vip","timestamp":"2026-03-01T20:00:00.000Z","signature":"e0lrhr"}`

func TestEncodeProducesSquarePNG(t *testing.T) {
	enc, err := NewEncoder(DefaultOptions())
	require.NoError(t, err)

	raw, err := enc.Encode(context.Background(), samplePayload, enc.Defaults())
	require.NoError(t, err)

	img, err := png.Decode(bytes.NewReader(raw))
	require.NoError(t, err)
	assert.Equal(t, 400, img.Bounds().Dx())
	assert.Equal(t, 400, img.Bounds().Dy())

	code, err := qrcode.New(samplePayload, qrcode.Highest)
	require.NoError(t, err)
	code.DisableBorder = true
	modules := len(code.Bitmap()) + 4

	// quiet zone corner is white, finder pattern center is dark
	r, g, b, _ := img.At(0, 0).RGBA()
	assert.Equal(t, uint32(0xffff), r&g&b)
	center := (5*400 + modules - 1) / modules
	r, g, b, _ = img.At(center, center).RGBA()
	assert.Equal(t, uint32(0), r|g|b)
}

func TestEncodeHonoursWidth(t *testing.T) {
	enc, err := NewEncoder(DefaultOptions())
	require.NoError(t, err)

	raw, err := enc.Encode(context.Background(), "hello", Options{Width: 128, Margin: 4, ErrorCorrection: "L"})
	require.NoError(t, err)
	img, err := png.Decode(bytes.NewReader(raw))
	require.NoError(t, err)
	assert.Equal(t, 128, img.Bounds().Dx())
}

func TestEncodeRejectsTinyWidth(t *testing.T) {
	enc, err := NewEncoder(DefaultOptions())
	require.NoError(t, err)

	_, err = enc.Encode(context.Background(), samplePayload, Options{Width: 10, Margin: 2, ErrorCorrection: "H"})
	require.Error(t, err)
}

func TestDataURL(t *testing.T) {
	enc, err := NewEncoder(DefaultOptions())
	require.NoError(t, err)

	url, err := enc.DataURL(context.Background(), samplePayload, enc.Defaults())
	require.NoError(t, err)
	require.True(t, strings.HasPrefix(url, "data:image/png;base64,"))

	raw, err := base64.StdEncoding.DecodeString(strings.TrimPrefix(url, "data:image/png;base64,"))
	require.NoError(t, err)
	_, err = png.Decode(bytes.NewReader(raw))
	require.NoError(t, err)
}

func TestNewEncoderRejectsUnknownLevel(t *testing.T) {
	_, err := NewEncoder(Options{Width: 400, Margin: 2, ErrorCorrection: "X"})
	require.Error(t, err)
}

func TestEncodeHonoursContext(t *testing.T) {
	enc, err := NewEncoder(DefaultOptions())
	require.NoError(t, err)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err = enc.Encode(ctx, samplePayload, enc.Defaults())
	require.ErrorIs(t, err, context.Canceled)
}
