package sink

import (
	"bytes"
	"fmt"
	"image/color"
	"sync"

	"git.sr.ht/~sbinet/gg"
	"golang.org/x/image/font"
	"golang.org/x/image/font/gofont/gobold"
	"golang.org/x/image/font/gofont/goregular"
	"golang.org/x/image/font/opentype"

	"github.com/matzehuels/zonemap/pkg/errors"
	"github.com/matzehuels/zonemap/pkg/render/cell"
	"github.com/matzehuels/zonemap/pkg/viewport"
)

var (
	colorBackdrop = color.RGBA{0xf8, 0xfa, 0xfc, 0xff}
	colorOutline  = color.RGBA{0xff, 0xff, 0xff, 0xff}
	colorLabel    = color.RGBA{0xff, 0xff, 0xff, 0xff}
)

// PNGOption configures [RenderPNG].
type PNGOption func(*pngRenderer)

type pngRenderer struct {
	scale float64
	// faces is per render: a font.Face is not safe for concurrent use.
	faces map[faceKey]font.Face
}

// WithScale sets the raster scale factor (default 2.0 for 2x resolution).
func WithScale(s float64) PNGOption {
	return func(r *pngRenderer) { r.scale = s }
}

// RenderPNG rasterises the scene.
func RenderPNG(s *viewport.Scene, opts ...PNGOption) ([]byte, error) {
	r := pngRenderer{scale: 2.0, faces: map[faceKey]font.Face{}}
	for _, opt := range opts {
		opt(&r)
	}
	if r.scale <= 0 {
		return nil, errors.New(errors.ErrCodeInvalidInput, "png scale must be positive, got %v", r.scale)
	}
	w, h := sceneSize(s)
	if w <= 0 || h <= 0 {
		return nil, errors.New(errors.ErrCodeInvalidInput, "cannot rasterise an empty %dx%d scene", w, h)
	}

	dc := gg.NewContext(px(float64(w)*r.scale), px(float64(h)*r.scale))
	dc.Scale(r.scale, r.scale)
	dc.SetColor(colorBackdrop)
	dc.Clear()

	for _, c := range s.Cells {
		if err := r.drawCell(dc, c); err != nil {
			return nil, err
		}
	}

	var buf bytes.Buffer
	if err := dc.EncodePNG(&buf); err != nil {
		return nil, fmt.Errorf("encode png: %w", err)
	}
	return buf.Bytes(), nil
}

func (r *pngRenderer) drawCell(dc *gg.Context, c cell.Cell) error {
	for _, cmd := range c.Commands {
		switch cmd := cmd.(type) {
		case cell.Rect:
			dc.SetColor(cmd.Fill.RGBA())
			dc.DrawRoundedRectangle(cmd.X0, cmd.Y0, cmd.Width(), cmd.Height(), cmd.Radius)
			dc.Fill()
			dc.SetColor(colorOutline)
			dc.SetLineWidth(1)
			dc.DrawRoundedRectangle(cmd.X0, cmd.Y0, cmd.Width(), cmd.Height(), cmd.Radius)
			dc.Stroke()
		case cell.Text:
			face, err := r.face(cmd.Size, cmd.Bold)
			if err != nil {
				return err
			}
			dc.SetFontFace(face)
			dc.SetColor(colorLabel)
			dc.DrawStringAnchored(cmd.Content, cmd.X, cmd.Y, 0.5, 0)
		case cell.Glyph:
			drawFlag(dc, cmd)
		}
	}
	return nil
}

func drawFlag(dc *gg.Context, g cell.Glyph) {
	a := uint8(g.Opacity * 0xff)
	ink := color.NRGBA{0xff, 0xff, 0xff, a}
	f := flagShapeOf(g)

	dc.SetColor(ink)
	dc.SetLineWidth(1.5)
	dc.DrawLine(f.poleX, f.top, f.poleX, f.bottom)
	dc.Stroke()

	dc.NewSubPath()
	dc.MoveTo(f.poleX, f.top)
	dc.LineTo(f.tipX, f.tipY)
	dc.LineTo(f.poleX, f.tail)
	dc.ClosePath()
	dc.Fill()
}

type faceKey struct {
	size float64
	bold bool
}

var (
	fontsOnce sync.Once
	fontsErr  error
	regular   *opentype.Font
	bold      *opentype.Font
)

// face returns a Go font face of the given pixel size.
func (r *pngRenderer) face(size float64, isBold bool) (font.Face, error) {
	fontsOnce.Do(func() {
		if regular, fontsErr = opentype.Parse(goregular.TTF); fontsErr != nil {
			return
		}
		bold, fontsErr = opentype.Parse(gobold.TTF)
	})
	if fontsErr != nil {
		return nil, fmt.Errorf("parse go fonts: %w", fontsErr)
	}

	key := faceKey{size, isBold}
	if f, ok := r.faces[key]; ok {
		return f, nil
	}
	src := regular
	if isBold {
		src = bold
	}
	f, err := opentype.NewFace(src, &opentype.FaceOptions{Size: size, DPI: 72, Hinting: font.HintingFull})
	if err != nil {
		return nil, fmt.Errorf("font face %.0fpx: %w", size, err)
	}
	r.faces[key] = f
	return f, nil
}
