// Package postprocess turns a raw page screenshot into a small,
// URL-stamped, palette-reduced preview image. The pipeline is a fixed
// sequence: decode, resize, crop, annotate, quantize, save. Every step
// is deterministic, so running it twice over the same source with the
// same parameters produces byte-identical output.
package postprocess

import (
	"errors"
	"fmt"
	"image"
	"image/color"
	"image/draw"
	"image/png"
	"os"
	"strconv"
	"strings"

	"github.com/disintegration/imaging"
	"github.com/ericpauley/go-quantize/quantize"
	"golang.org/x/image/font"
	"golang.org/x/image/font/gofont/goregular"
	"golang.org/x/image/font/opentype"
	"golang.org/x/image/math/fixed"
)

var (
	ErrDecodeFailed    = errors.New("cannot decode source image")
	ErrCropInvalid     = errors.New("crop margins exceed resized image bounds")
	ErrEncodeFailed    = errors.New("cannot write output image")
	ErrFontUnavailable = errors.New("cannot load font")

	ErrScaleOutOfRange   = errors.New("scale factor must be in (0, 1]")
	ErrMarginNegative    = errors.New("margins must be non-negative")
	ErrFontSizeInvalid   = errors.New("font size must be positive")
	ErrPaletteOutOfRange = errors.New("palette size must be in [2, 256]")
)

// Params configures one Process call. All values are supplied per
// invocation; nothing is persisted between calls.
type Params struct {
	// ScaleFactor shrinks both dimensions; must be in (0, 1].
	ScaleFactor float64
	// MarginX is trimmed from the left and the right of the resized
	// image. MarginY is trimmed from the top only, so the bottom of
	// the page content stays visible.
	MarginX int
	MarginY int
	// FontPath points at a TTF/OTF file for the URL stamp. Empty
	// selects the embedded Go Regular face.
	FontPath string
	FontSize float64
	// FontColor fills the stamped text.
	FontColor color.Color
	// TextMargin insets the text from the top-right corner.
	TextMargin int
	// PaletteSize caps the number of distinct colors in the output,
	// between 2 and 256.
	PaletteSize int
}

func (p Params) Validate() error {
	if p.ScaleFactor <= 0 || p.ScaleFactor > 1 {
		return ErrScaleOutOfRange
	}
	if p.MarginX < 0 || p.MarginY < 0 || p.TextMargin < 0 {
		return ErrMarginNegative
	}
	if p.FontSize <= 0 {
		return ErrFontSizeInvalid
	}
	if p.PaletteSize < 2 || p.PaletteSize > 256 {
		return ErrPaletteOutOfRange
	}
	return nil
}

// Process reads the screenshot at sourcePath, applies the pipeline,
// and writes the result to outputPath, replacing any existing file.
// Nothing is written unless every step succeeds.
func Process(sourcePath, pageURL, outputPath string, p Params) error {
	if err := p.Validate(); err != nil {
		return err
	}

	src, err := imaging.Open(sourcePath)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrDecodeFailed, err)
	}

	resized := Resize(src, p.ScaleFactor)

	cropped, err := CropMargins(resized, p.MarginX, p.MarginY)
	if err != nil {
		return err
	}

	stamped, err := Annotate(cropped, pageURL, p)
	if err != nil {
		return err
	}

	out := Quantize(stamped, p.PaletteSize)

	if err := imaging.Save(out, outputPath, imaging.PNGCompressionLevel(png.BestCompression)); err != nil {
		return fmt.Errorf("%w: %v", ErrEncodeFailed, err)
	}
	return nil
}

// Resize scales both dimensions by factor, truncating (not rounding)
// the scaled sizes to integers. CatmullRom keeps fine page detail
// that cheaper filters smear.
func Resize(img image.Image, factor float64) *image.NRGBA {
	bounds := img.Bounds()
	w := int(float64(bounds.Dx()) * factor)
	h := int(float64(bounds.Dy()) * factor)
	if w == 0 || h == 0 {
		// imaging treats a zero dimension as "preserve aspect ratio";
		// an empty image is the honest result here, and the crop step
		// rejects it.
		return image.NewNRGBA(image.Rect(0, 0, w, h))
	}
	return imaging.Resize(img, w, h, imaging.CatmullRom)
}

// CropMargins trims marginX from the left and right and marginY from
// the top. The bottom edge is kept.
func CropMargins(img image.Image, marginX, marginY int) (*image.NRGBA, error) {
	if marginX < 0 || marginY < 0 {
		return nil, ErrMarginNegative
	}

	bounds := img.Bounds()
	w := bounds.Dx() - 2*marginX
	h := bounds.Dy() - marginY
	if w <= 0 || h <= 0 {
		return nil, fmt.Errorf("%w: %dx%d after margins %d,%d", ErrCropInvalid, bounds.Dx(), bounds.Dy(), marginX, marginY)
	}

	return imaging.Crop(img, image.Rect(marginX, marginY, bounds.Dx()-marginX, bounds.Dy())), nil
}

// Annotate draws text right-aligned near the top edge, inset by
// p.TextMargin, in p.FontColor. Text wider than the image is drawn
// anyway and clips on the left. The returned image is a copy; the
// input is untouched.
func Annotate(img image.Image, text string, p Params) (*image.NRGBA, error) {
	face, err := loadFace(p.FontPath, p.FontSize)
	if err != nil {
		return nil, err
	}
	defer face.Close()

	dst := imaging.Clone(img)

	fontColor := p.FontColor
	if fontColor == nil {
		fontColor = color.NRGBA{A: 255}
	}

	d := &font.Drawer{
		Dst:  dst,
		Src:  image.NewUniform(fontColor),
		Face: face,
	}

	textWidth := d.MeasureString(text).Ceil()
	x := dst.Bounds().Dx() - textWidth - p.TextMargin
	y := p.TextMargin + face.Metrics().Ascent.Ceil()

	d.Dot = fixed.P(x, y)
	d.DrawString(text)

	return dst, nil
}

// Quantize reduces the image to a median-cut palette of at most
// paletteSize colors. Pixels map to their nearest palette entry with
// no dithering, keeping the mapping deterministic.
func Quantize(img image.Image, paletteSize int) *image.Paletted {
	q := quantize.MedianCutQuantizer{}
	palette := q.Quantize(make(color.Palette, 0, paletteSize), img)

	out := image.NewPaletted(img.Bounds(), palette)
	draw.Draw(out, out.Bounds(), img, img.Bounds().Min, draw.Src)
	return out
}

// ParseHexColor parses "RRGGBB" or "#RRGGBB" into an opaque color.
func ParseHexColor(s string) (color.NRGBA, error) {
	s = strings.TrimPrefix(s, "#")
	if len(s) != 6 {
		return color.NRGBA{}, fmt.Errorf("invalid hex color %q", s)
	}
	v, err := strconv.ParseUint(s, 16, 32)
	if err != nil {
		return color.NRGBA{}, fmt.Errorf("invalid hex color %q", s)
	}
	return color.NRGBA{
		R: uint8(v >> 16),
		G: uint8(v >> 8),
		B: uint8(v),
		A: 255,
	}, nil
}

func loadFace(fontPath string, size float64) (font.Face, error) {
	data := goregular.TTF
	if fontPath != "" {
		b, err := os.ReadFile(fontPath)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrFontUnavailable, err)
		}
		data = b
	}

	parsed, err := opentype.Parse(data)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrFontUnavailable, err)
	}

	face, err := opentype.NewFace(parsed, &opentype.FaceOptions{
		Size:    size,
		DPI:     72,
		Hinting: font.HintingFull,
	})
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrFontUnavailable, err)
	}
	return face, nil
}
