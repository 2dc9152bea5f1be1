package viz

import (
	"math"

	"github.com/san-kum/spacesim/internal/physics"
)

const fitMargin = 1.2

// Viewport maps world coordinates onto canvas dots with y pointing up and
// one world unit spanning the same number of dots on both axes.
type Viewport struct {
	CenterX, CenterY float64
	// HalfSpan is the world distance from the center to the nearest edge.
	HalfSpan float64
}

// Fit returns a viewport enclosing every body, radius included.
func Fit(bodies []physics.BodyState) Viewport {
	if len(bodies) == 0 {
		return Viewport{HalfSpan: 1}
	}
	minX, minY := math.Inf(1), math.Inf(1)
	maxX, maxY := math.Inf(-1), math.Inf(-1)
	for _, b := range bodies {
		minX = math.Min(minX, b.X-b.Radius)
		maxX = math.Max(maxX, b.X+b.Radius)
		minY = math.Min(minY, b.Y-b.Radius)
		maxY = math.Max(maxY, b.Y+b.Radius)
	}
	half := math.Max(maxX-minX, maxY-minY) / 2 * fitMargin
	if half <= 0 || math.IsNaN(half) || math.IsInf(half, 0) {
		half = 1
	}
	return Viewport{CenterX: (minX + maxX) / 2, CenterY: (minY + maxY) / 2, HalfSpan: half}
}

func (v Viewport) Contains(b physics.BodyState) bool {
	return math.Abs(b.X-v.CenterX)+b.Radius <= v.HalfSpan &&
		math.Abs(b.Y-v.CenterY)+b.Radius <= v.HalfSpan
}

// Grow refits when any body has left the view. It never shrinks, so the
// picture does not jitter as bodies move inside it.
func (v Viewport) Grow(bodies []physics.BodyState) Viewport {
	for _, b := range bodies {
		if !v.Contains(b) {
			fit := Fit(bodies)
			fit.HalfSpan = math.Max(fit.HalfSpan, v.HalfSpan)
			return fit
		}
	}
	return v
}

// scale is dots per world unit for a canvas of w x h dots.
func (v Viewport) scale(w, h int) float64 {
	return float64(min(w, h)) / (2 * v.HalfSpan)
}

// ToDots maps a world point to dot coordinates on a w x h dot canvas.
func (v Viewport) ToDots(x, y float64, w, h int) (int, int) {
	s := v.scale(w, h)
	px := float64(w)/2 + (x-v.CenterX)*s
	py := float64(h)/2 - (y-v.CenterY)*s
	return int(math.Round(px)), int(math.Round(py))
}

// DotRadius converts a world length to dots.
func (v Viewport) DotRadius(r float64, w, h int) float64 {
	return r * v.scale(w, h)
}
