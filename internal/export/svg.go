// Package export renders stored runs as SVG.
package export

import (
	"bufio"
	"fmt"
	"io"

	"github.com/san-kum/spacesim/internal/physics"
	"github.com/san-kum/spacesim/internal/sim"
	"github.com/san-kum/spacesim/internal/viz"
)

var palette = []string{"#00ccff", "#ff9ff3", "#feca57", "#5fd068", "#ff6b6b", "#e0f0ff"}

// TrajectoriesSVG draws one path per body index and the bodies' final
// positions. Indices are positional, so after a destructive collision a
// path continues with whichever body moved into that slot.
func TrajectoriesSVG(w io.Writer, frames []sim.Frame, width, height int) error {
	if len(frames) == 0 {
		return fmt.Errorf("no frames to draw")
	}

	var all []physics.BodyState
	bodies := 0
	for _, f := range frames {
		all = append(all, f.Bodies...)
		bodies = max(bodies, len(f.Bodies))
	}
	view := viz.Fit(all)

	bw := bufio.NewWriter(w)
	fmt.Fprintf(bw, `<?xml version="1.0" encoding="UTF-8"?>
<svg xmlns="http://www.w3.org/2000/svg" width="%d" height="%d" viewBox="0 0 %d %d">
<rect width="100%%" height="100%%" fill="#0a0a0a"/>
`, width, height, width, height)

	for i := 0; i < bodies; i++ {
		color := palette[i%len(palette)]
		fmt.Fprintf(bw, `<path fill="none" stroke="%s" stroke-width="1" stroke-opacity="0.6" d="`, color)
		first := true
		for _, f := range frames {
			if i >= len(f.Bodies) {
				continue
			}
			x, y := view.ToDots(f.Bodies[i].X, f.Bodies[i].Y, width, height)
			cmd := "L"
			if first {
				cmd = "M"
				first = false
			}
			fmt.Fprintf(bw, "%s%d,%d ", cmd, x, y)
		}
		bw.WriteString("\"/>\n")
	}

	last := frames[len(frames)-1]
	for i, b := range last.Bodies {
		x, y := view.ToDots(b.X, b.Y, width, height)
		r := max(view.DotRadius(b.Radius, width, height), 1.5)
		fmt.Fprintf(bw, `<circle cx="%d" cy="%d" r="%.1f" fill="%s"/>
`, x, y, r, palette[i%len(palette)])
	}

	bw.WriteString("</svg>\n")
	return bw.Flush()
}
