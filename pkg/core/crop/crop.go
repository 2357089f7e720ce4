// Package crop extracts a user-selected region from an image and re-encodes it as JPEG.
package crop

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"image"
	"image/jpeg"
	"image/png"
	"math"
	"net/http"
	"path/filepath"
	"strings"

	"github.com/disintegration/imaging"
	"golang.org/x/image/draw"
	"golang.org/x/image/webp"

	"github.com/humanitycalls/volunteer-desk/pkg/core/model"
	"github.com/humanitycalls/volunteer-desk/pkg/errorx"
)

// DefaultQuality matches an encoder quality of 0.92
const DefaultQuality = 92

// ContentType of every blob the engine produces
const ContentType = "image/jpeg"

// ErrCropFailed is matched by every *FailedError
var ErrCropFailed = errors.New("crop failed")

// FailedError is a recoverable crop failure; the caller should ask the user to select again
type FailedError struct {
	Reason string
}

func (e *FailedError) Error() string {
	return fmt.Sprintf("crop failed: %s", e.Reason)
}

func (e *FailedError) Is(target error) bool {
	return target == ErrCropFailed
}

func (e *FailedError) UserMessage() string {
	return fmt.Sprintf("Could not crop the image (%s). Please select the area again.", e.Reason)
}

// Size is a width and height in pixels
type Size struct {
	Width  int
	Height int
}

func (s Size) IsZero() bool {
	return s.Width <= 0 || s.Height <= 0
}

// Point is a position in natural image pixels
type Point struct {
	X float64
	Y float64
}

// Region is a rectangle either in natural pixels or in displayed pixels
type Region struct {
	X      float64
	Y      float64
	Width  float64
	Height float64
}

func (r Region) IsZero() bool {
	return r.Width <= 0 || r.Height <= 0
}

// Selection is a finalised crop request. When Displayed is set, Region is in the
// coordinate space of the image as it was displayed and is rescaled to natural size.
type Selection struct {
	Region    Region
	Displayed Size
	Zoom      float64
}

// SelectionFromInput converts a crop captured on a form into a Selection
func SelectionFromInput(in *model.CropInput) Selection {
	if in == nil {
		return Selection{}
	}
	return Selection{
		Region: Region{
			X:      float64(in.X),
			Y:      float64(in.Y),
			Width:  float64(in.Width),
			Height: float64(in.Height),
		},
		Displayed: Size{Width: in.DisplayedWidth, Height: in.DisplayedHeight},
		Zoom:      in.Zoom,
	}
}

// Blob is an encoded crop result
type Blob struct {
	Data        []byte
	Width       int
	Height      int
	ContentType string
}

// Engine crops images. It holds configuration only and is safe for concurrent use.
type Engine struct {
	Quality   int
	MaxWidth  int
	MaxHeight int
}

// NewEngine creates an engine; quality <= 0 means DefaultQuality and a zero
// max width leaves output at the region's natural size
func NewEngine(quality, maxWidth int) *Engine {
	if quality <= 0 || quality > 100 {
		quality = DefaultQuality
	}
	return &Engine{Quality: quality, MaxWidth: maxWidth}
}

// Crop decodes source, extracts the selected region and encodes it as JPEG.
// filename is only used when the content type cannot be sniffed.
func (e *Engine) Crop(ctx context.Context, source []byte, filename string, sel Selection) (*Blob, error) {
	if err := ctx.Err(); err != nil {
		return nil, errorx.Cancelled(ctx, err)
	}
	if sel.Region.IsZero() {
		return nil, &FailedError{Reason: "no crop area was selected"}
	}
	if sel.Zoom != 0 && sel.Zoom < 1 {
		return nil, &FailedError{Reason: fmt.Sprintf("zoom %.2f is below 1", sel.Zoom)}
	}

	img, err := Decode(source, filename)
	if err != nil {
		return nil, &FailedError{Reason: err.Error()}
	}

	bounds := img.Bounds()
	natural := Size{Width: bounds.Dx(), Height: bounds.Dy()}
	rect, err := SourceRect(sel, natural)
	if err != nil {
		return nil, err
	}

	cropped := imaging.Crop(img, rect.Add(bounds.Min))
	out := e.bound(cropped)

	if err := ctx.Err(); err != nil {
		return nil, errorx.Cancelled(ctx, err)
	}

	var buf bytes.Buffer
	if err := imaging.Encode(&buf, out, imaging.JPEG, imaging.JPEGQuality(e.Quality)); err != nil {
		return nil, &FailedError{Reason: fmt.Sprintf("encoding failed: %v", err)}
	}
	if buf.Len() == 0 {
		return nil, &FailedError{Reason: "encoding produced an empty image"}
	}

	ob := out.Bounds()
	return &Blob{
		Data:        buf.Bytes(),
		Width:       ob.Dx(),
		Height:      ob.Dy(),
		ContentType: ContentType,
	}, nil
}

// SourceRect maps a selection onto natural image pixels. A rectangle that overshoots
// the image by at most one pixel of rounding is clamped; anything further is rejected.
func SourceRect(sel Selection, natural Size) (image.Rectangle, error) {
	r := sel.Region
	if r.IsZero() {
		return image.Rectangle{}, &FailedError{Reason: "no crop area was selected"}
	}

	if !sel.Displayed.IsZero() {
		sx := float64(natural.Width) / float64(sel.Displayed.Width)
		sy := float64(natural.Height) / float64(sel.Displayed.Height)
		r = Region{X: r.X * sx, Y: r.Y * sy, Width: r.Width * sx, Height: r.Height * sy}
	}

	x0 := int(math.Round(r.X))
	y0 := int(math.Round(r.Y))
	x1 := int(math.Round(r.X + r.Width))
	y1 := int(math.Round(r.Y + r.Height))

	if x0 < -1 || y0 < -1 || x1 > natural.Width+1 || y1 > natural.Height+1 {
		return image.Rectangle{}, &FailedError{Reason: "crop area lies outside the image"}
	}

	rect := image.Rect(x0, y0, x1, y1).Intersect(image.Rect(0, 0, natural.Width, natural.Height))
	if rect.Empty() {
		return image.Rectangle{}, &FailedError{Reason: "crop area is empty"}
	}
	return rect, nil
}

// RegionForZoom returns the natural-pixel window visible at zoom when the crop frame
// is locked to aspect (width / height) and centred on center. A zero center means
// the middle of the image.
func RegionForZoom(natural Size, aspect, zoom float64, center Point) Region {
	if zoom < 1 {
		zoom = 1
	}
	if aspect <= 0 {
		aspect = float64(natural.Width) / float64(natural.Height)
	}

	// Largest frame of the requested aspect that fits, shrunk by the zoom
	w := float64(natural.Width)
	h := w / aspect
	if h > float64(natural.Height) {
		h = float64(natural.Height)
		w = h * aspect
	}
	w /= zoom
	h /= zoom

	if center == (Point{}) {
		center = Point{X: float64(natural.Width) / 2, Y: float64(natural.Height) / 2}
	}

	x := clamp(center.X-w/2, 0, float64(natural.Width)-w)
	y := clamp(center.Y-h/2, 0, float64(natural.Height)-h)
	return Region{X: x, Y: y, Width: w, Height: h}
}

// FullFrame selects the largest centred window of the given aspect (0 keeps the
// image's own aspect) at zoom, for callers that have no interactive selection
func FullFrame(source []byte, filename string, aspect, zoom float64) (Selection, error) {
	natural, err := Dimensions(source, filename)
	if err != nil {
		return Selection{}, err
	}
	return Selection{Region: RegionForZoom(natural, aspect, zoom, Point{}), Zoom: zoom}, nil
}

// Dimensions returns the natural size of an encoded image, decoding only the
// header when the format allows it
func Dimensions(source []byte, filename string) (Size, error) {
	cfg, _, err := image.DecodeConfig(bytes.NewReader(source))
	if err != nil {
		img, decErr := Decode(source, filename)
		if decErr != nil {
			return Size{}, &FailedError{Reason: decErr.Error()}
		}
		b := img.Bounds()
		cfg.Width, cfg.Height = b.Dx(), b.Dy()
	}
	natural := Size{Width: cfg.Width, Height: cfg.Height}
	if natural.IsZero() {
		return Size{}, &FailedError{Reason: "image has no pixels"}
	}
	return natural, nil
}

// Decode sniffs the image format and falls back to the file extension
func Decode(data []byte, filename string) (image.Image, error) {
	if len(data) == 0 {
		return nil, fmt.Errorf("empty file")
	}
	head := data
	if len(head) > 512 {
		head = head[:512]
	}
	ct := http.DetectContentType(head)

	var (
		img image.Image
		err error
	)
	switch {
	case strings.Contains(ct, "jpeg"):
		img, err = jpeg.Decode(bytes.NewReader(data))
	case strings.Contains(ct, "png"):
		img, err = png.Decode(bytes.NewReader(data))
	case strings.Contains(ct, "webp"):
		img, err = webp.Decode(bytes.NewReader(data))
	default:
		switch strings.ToLower(filepath.Ext(filename)) {
		case ".jpg", ".jpeg":
			img, err = jpeg.Decode(bytes.NewReader(data))
		case ".png":
			img, err = png.Decode(bytes.NewReader(data))
		case ".webp":
			img, err = webp.Decode(bytes.NewReader(data))
		default:
			return nil, fmt.Errorf("unsupported image format %s", ct)
		}
	}
	if err != nil {
		return nil, fmt.Errorf("failed to decode image: %w", err)
	}
	return img, nil
}

// bound downscales img to fit MaxWidth x MaxHeight, keeping aspect
func (e *Engine) bound(img image.Image) image.Image {
	if e.MaxWidth <= 0 && e.MaxHeight <= 0 {
		return img
	}
	b := img.Bounds()
	w, h := b.Dx(), b.Dy()
	if (e.MaxWidth <= 0 || w <= e.MaxWidth) && (e.MaxHeight <= 0 || h <= e.MaxHeight) {
		return img
	}

	scale := 1.0
	if e.MaxWidth > 0 {
		scale = math.Min(scale, float64(e.MaxWidth)/float64(w))
	}
	if e.MaxHeight > 0 {
		scale = math.Min(scale, float64(e.MaxHeight)/float64(h))
	}
	nw := max(1, int(math.Round(float64(w)*scale)))
	nh := max(1, int(math.Round(float64(h)*scale)))

	dst := image.NewRGBA(image.Rect(0, 0, nw, nh))
	draw.CatmullRom.Scale(dst, dst.Bounds(), img, b, draw.Src, nil)
	return dst
}

func clamp(v, lo, hi float64) float64 {
	if hi < lo {
		return lo
	}
	return math.Max(lo, math.Min(v, hi))
}
