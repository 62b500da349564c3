package viz

import (
	tea "github.com/charmbracelet/bubbletea"

	"github.com/san-kum/marsvis/internal/scheduler"
)

// Program runs the terminal UI and serves as the scheduler's renderer.
// Render and Wait are called from the render goroutine; they rasterize
// there and hand the result to the bubbletea loop as a message.
type Program struct {
	prog *tea.Program
	size *canvasSize
}

func NewProgram(controls Controls, address string, opts ...tea.ProgramOption) *Program {
	m := NewModel(controls, address)
	return &Program{prog: tea.NewProgram(m, opts...), size: m.size}
}

// Run blocks until the user quits.
func (p *Program) Run() error {
	_, err := p.prog.Run()
	return err
}

func (p *Program) Quit() { p.prog.Quit() }

func (p *Program) Render(f scheduler.Frame) {
	p.prog.Send(rasterize(f, p.size))
}

func (p *Program) Wait(s scheduler.Stats) {
	p.prog.Send(waitingMsg{stats: s})
}

func rasterize(f scheduler.Frame, size *canvasSize) frameMsg {
	c := NewCanvas(size.get())
	Draw(c, f.Snapshot)
	return frameMsg{
		canvas:     c.String(),
		stats:      f.Stats,
		progress:   f.Snapshot.Progress,
		entities:   f.Snapshot.EntityCount(),
		geometries: f.Snapshot.Geometries.Len(),
		cells:      f.Snapshot.CellCount(),
	}
}
