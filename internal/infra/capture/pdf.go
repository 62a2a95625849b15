package capture

import (
	"bytes"
	"errors"
	"fmt"
	"image"
	"math"

	"github.com/disintegration/imaging"
	"github.com/phpdave11/gofpdf"
)

const (
	A4WidthMM  = 210.0
	A4HeightMM = 297.0
	MarginMM   = 10.0
	TargetDPI  = 150.0
	mmPerInch  = 25.4
)

// Placement is where the page image lands on the sheet, in millimetres.
type Placement struct {
	X, Y, W, H float64
}

// Fit scales a w×h bitmap uniformly into A4 minus the margins and centers it.
func Fit(w, h int) Placement {
	if w <= 0 || h <= 0 {
		return Placement{}
	}
	availW := A4WidthMM - 2*MarginMM
	availH := A4HeightMM - 2*MarginMM
	s := math.Min(availW/float64(w), availH/float64(h))
	fw, fh := float64(w)*s, float64(h)*s
	return Placement{
		X: (A4WidthMM - fw) / 2,
		Y: (A4HeightMM - fh) / 2,
		W: fw,
		H: fh,
	}
}

// EncodePDF downsamples bitmap to TargetDPI at its fitted size and embeds it
// as the only content of a single A4 page.
func EncodePDF(bitmap image.Image) ([]byte, error) {
	if bitmap == nil {
		return nil, errors.New("capture: no bitmap")
	}
	b := bitmap.Bounds()
	place := Fit(b.Dx(), b.Dy())
	if place.W == 0 {
		return nil, errors.New("capture: empty bitmap")
	}
	targetW := int(math.Round(place.W / mmPerInch * TargetDPI))
	targetH := int(math.Round(place.H / mmPerInch * TargetDPI))
	scaled := imaging.Resize(bitmap, targetW, targetH, imaging.Lanczos)

	var png bytes.Buffer
	if err := imaging.Encode(&png, scaled, imaging.PNG); err != nil {
		return nil, fmt.Errorf("encode page image: %w", err)
	}

	pdf := gofpdf.New("P", "mm", "A4", "")
	pdf.SetMargins(MarginMM, MarginMM, MarginMM)
	pdf.SetAutoPageBreak(false, 0)
	pdf.AddPage()
	opts := gofpdf.ImageOptions{ImageType: "PNG"}
	pdf.RegisterImageOptionsReader("page", opts, &png)
	pdf.ImageOptions("page", place.X, place.Y, place.W, place.H, false, opts, 0, "")

	var out bytes.Buffer
	if err := pdf.Output(&out); err != nil {
		return nil, fmt.Errorf("write pdf: %w", err)
	}
	return out.Bytes(), nil
}
