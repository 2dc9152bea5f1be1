// Package viz renders a running session in the terminal.
//
// Bodies are drawn as circles on a braille [Canvas] through a [Viewport]
// that grows to keep every body in view. [Model] is a Bubble Tea program
// fed by a [Feed] emitter; [Run] wires the three to an engine.
//
// # Key Bindings
//
//	Arrows - Steer the controllable body (released after a short hold)
//	C      - Toggle trails
//	R      - Refit the viewport
//	T      - Cycle color themes
//	Q      - Stop the session and quit
package viz
