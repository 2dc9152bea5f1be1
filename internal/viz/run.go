package viz

import (
	"context"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/san-kum/spacesim/internal/physics"
	"github.com/san-kum/spacesim/internal/sim"
)

// Run drives e and shows it until the session ends and the user quits, or
// the user quits early. Quitting early cancels the session.
func Run(ctx context.Context, title string, e *physics.Engine, opts ...sim.Option) (*sim.Result, error) {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	feed := NewFeed(e, 64)
	driver := sim.NewDriver(e, feed, opts...)

	toModel := make(chan Outcome, 1)
	final := make(chan Outcome, 1)
	go func() {
		res, err := driver.Run(ctx)
		feed.Close()
		o := Outcome{Result: res, Err: err}
		toModel <- o
		final <- o
	}()

	var control Controller
	if e.HasControllable() {
		control = e
	}
	p := tea.NewProgram(NewModel(title, feed.Updates(), toModel, control, cancel), tea.WithAltScreen())
	_, uiErr := p.Run()

	cancel()
	o := <-final
	if uiErr != nil {
		return o.Result, uiErr
	}
	return o.Result, o.Err
}
