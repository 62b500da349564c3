// Package viz draws simulation snapshots in the terminal.
//
// The package implements the renderers the scheduler hands frames to:
//
//   - [Program]: interactive Bubble Tea UI with a braille map and status panel
//   - [LogRenderer]: headless one-line summaries through logr
//   - [Canvas]: braille dot canvas, also consumed by the SVG exporter
//
// # Key Bindings
//
//	↑/k  - Raise render rate
//	↓/j  - Lower render rate
//	←/h  - Ask the simulation for less pacing
//	→/l  - Ask the simulation for more pacing
//	?    - Toggle full help
//	q    - Quit
package viz
