package qr

import (
	"bytes"
	"context"
	"encoding/base64"
	"fmt"
	"image"
	"image/color"
	"image/png"
	"strings"

	qrcode "github.com/skip2/go-qrcode"

	"github.com/strikeground/strikeground-backend/pkg/config"
)

const dataURLPrefix = "data:image/png;base64,"

// Options controls QR rendering.
type Options struct {
	Width           int
	Margin          int
	ErrorCorrection string
}

// DefaultOptions mirrors the storefront rendering: 400px, 2 module quiet zone, level H.
func DefaultOptions() Options {
	return Options{Width: 400, Margin: 2, ErrorCorrection: "H"}
}

// OptionsFromConfig maps the QR config section to rendering options.
func OptionsFromConfig(cfg config.QRConfig) Options {
	return Options{
		Width:           cfg.Width,
		Margin:          cfg.Margin,
		ErrorCorrection: cfg.ErrorCorrection,
	}
}

// Encoder renders text into square PNG QR codes.
type Encoder struct {
	defaults Options
}

// NewEncoder builds an encoder. Zero width or level in per-call options fall back to defaults.
func NewEncoder(defaults Options) (*Encoder, error) {
	if defaults.Width <= 0 {
		defaults.Width = DefaultOptions().Width
	}
	if strings.TrimSpace(defaults.ErrorCorrection) == "" {
		defaults.ErrorCorrection = DefaultOptions().ErrorCorrection
	}
	if _, err := parseLevel(defaults.ErrorCorrection); err != nil {
		return nil, err
	}
	if defaults.Margin < 0 {
		return nil, fmt.Errorf("qr margin must not be negative")
	}
	return &Encoder{defaults: defaults}, nil
}

// Defaults returns the encoder's default options.
func (e *Encoder) Defaults() Options {
	return e.defaults
}

// Encode renders text as a width x width PNG.
func (e *Encoder) Encode(ctx context.Context, text string, opts Options) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if text == "" {
		return nil, fmt.Errorf("qr text required")
	}
	opts = e.merge(opts)
	level, err := parseLevel(opts.ErrorCorrection)
	if err != nil {
		return nil, err
	}

	code, err := qrcode.New(text, level)
	if err != nil {
		return nil, fmt.Errorf("build qr code: %w", err)
	}
	code.DisableBorder = true
	img, err := render(code.Bitmap(), opts.Width, opts.Margin)
	if err != nil {
		return nil, err
	}

	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		return nil, fmt.Errorf("encode qr png: %w", err)
	}
	return buf.Bytes(), nil
}

// DataURL renders text and wraps the PNG in a data:image/png;base64 URL.
func (e *Encoder) DataURL(ctx context.Context, text string, opts Options) (string, error) {
	raw, err := e.Encode(ctx, text, opts)
	if err != nil {
		return "", err
	}
	return dataURLPrefix + base64.StdEncoding.EncodeToString(raw), nil
}

func (e *Encoder) merge(opts Options) Options {
	if opts.Width <= 0 {
		opts.Width = e.defaults.Width
	}
	if strings.TrimSpace(opts.ErrorCorrection) == "" {
		opts.ErrorCorrection = e.defaults.ErrorCorrection
	}
	if opts.Margin < 0 {
		opts.Margin = e.defaults.Margin
	}
	return opts
}

// render scales the module bitmap plus quiet zone onto an exact width x width canvas.
func render(bitmap [][]bool, width, margin int) (*image.Paletted, error) {
	modules := len(bitmap) + 2*margin
	if width < modules {
		return nil, fmt.Errorf("qr width %d is smaller than %d modules", width, modules)
	}

	img := image.NewPaletted(image.Rect(0, 0, width, width), color.Palette{color.White, color.Black})
	for y := 0; y < width; y++ {
		row := y*modules/width - margin
		for x := 0; x < width; x++ {
			col := x*modules/width - margin
			if row < 0 || col < 0 || row >= len(bitmap) || col >= len(bitmap) {
				continue
			}
			if bitmap[row][col] {
				img.SetColorIndex(x, y, 1)
			}
		}
	}
	return img, nil
}

func parseLevel(value string) (qrcode.RecoveryLevel, error) {
	switch strings.ToUpper(strings.TrimSpace(value)) {
	case "L":
		return qrcode.Low, nil
	case "M":
		return qrcode.Medium, nil
	case "Q":
		return qrcode.High, nil
	case "H":
		return qrcode.Highest, nil
	default:
		return 0, fmt.Errorf("unsupported qr error correction level %q", value)
	}
}
