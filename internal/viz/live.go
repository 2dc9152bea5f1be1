package viz

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/guptarohit/asciigraph"

	"github.com/san-kum/spacesim/internal/physics"
	"github.com/san-kum/spacesim/internal/sim"
)

const (
	canvasWidth     = 60
	canvasHeight    = 24
	energyCapacity  = 300
	trailCapacity   = 400
	holdTimeout     = 150 * time.Millisecond
	refreshInterval = time.Second / 60
)

var (
	canvasStyle = lipgloss.NewStyle().Padding(0, 1)
	statsStyle  = lipgloss.NewStyle().Border(lipgloss.NormalBorder(), false, false, false, true).Padding(0, 2).Width(42)
	labelStyle  = lipgloss.NewStyle().Width(10)
)

// Controller receives steering input. *physics.Engine implements it.
type Controller interface {
	SetControl(d physics.Direction, pressed bool) error
}

type Outcome struct {
	Result *sim.Result
	Err    error
}

type (
	tickMsg    time.Time
	updateMsg  Update
	outcomeMsg Outcome
)

var arrowKeys = map[string]physics.Direction{
	"up":    physics.Up,
	"down":  physics.Down,
	"left":  physics.Left,
	"right": physics.Right,
}

// Model is the live viewer. Terminals report key presses only, so a
// direction is released once no repeat arrived within holdTimeout.
type Model struct {
	title   string
	updates <-chan Update
	outcome <-chan Outcome
	control Controller
	stop    context.CancelFunc

	canvas     *Canvas
	view       Viewport
	fitted     bool
	current    Update
	energy     []float64
	trails     [][2]int
	showTrails bool
	theme      int

	held    map[physics.Direction]time.Time
	lastErr error
	done    *Outcome
}

// NewModel builds a viewer. control may be nil when nothing is steerable;
// stop is called when the user quits.
func NewModel(title string, updates <-chan Update, outcome <-chan Outcome, control Controller, stop context.CancelFunc) Model {
	return Model{
		title:      title,
		updates:    updates,
		outcome:    outcome,
		control:    control,
		stop:       stop,
		canvas:     NewCanvas(canvasWidth, canvasHeight),
		energy:     make([]float64, 0, energyCapacity),
		trails:     make([][2]int, 0, trailCapacity),
		showTrails: true,
		held:       make(map[physics.Direction]time.Time),
	}
}

func tick() tea.Cmd {
	return tea.Tick(refreshInterval, func(t time.Time) tea.Msg { return tickMsg(t) })
}

func waitUpdate(ch <-chan Update) tea.Cmd {
	return func() tea.Msg {
		u, ok := <-ch
		if !ok {
			return nil
		}
		return updateMsg(u)
	}
}

func waitOutcome(ch <-chan Outcome) tea.Cmd {
	return func() tea.Msg {
		o, ok := <-ch
		if !ok {
			return nil
		}
		return outcomeMsg(o)
	}
}

func (m Model) Init() tea.Cmd {
	return tea.Batch(tick(), waitUpdate(m.updates), waitOutcome(m.outcome))
}

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		key := msg.String()
		if dir, ok := arrowKeys[key]; ok {
			m.press(dir, time.Now())
			return m, nil
		}
		switch key {
		case "q", "ctrl+c":
			if m.stop != nil {
				m.stop()
			}
			return m, tea.Quit
		case "c":
			m.showTrails = !m.showTrails
			m.trails = m.trails[:0]
		case "r":
			m.fitted = false
			m.trails = m.trails[:0]
		case "t":
			m.theme = (m.theme + 1) % len(Themes)
		}
	case updateMsg:
		m.apply(Update(msg))
		return m, waitUpdate(m.updates)
	case outcomeMsg:
		o := Outcome(msg)
		m.done = &o
	case tickMsg:
		m.releaseStale(time.Time(msg))
		m.draw()
		return m, tick()
	}
	return m, nil
}

func (m *Model) press(dir physics.Direction, now time.Time) {
	if m.control == nil || m.done != nil {
		return
	}
	if _, held := m.held[dir]; !held {
		if err := m.control.SetControl(dir, true); err != nil {
			m.lastErr = err
			return
		}
	}
	m.held[dir] = now
}

func (m *Model) releaseStale(now time.Time) {
	for dir, at := range m.held {
		if now.Sub(at) < holdTimeout {
			continue
		}
		delete(m.held, dir)
		if err := m.control.SetControl(dir, false); err != nil {
			m.lastErr = err
		}
	}
}

func (m *Model) apply(u Update) {
	m.current = u
	if !m.fitted {
		m.view = Fit(u.Frame.Bodies)
		m.fitted = true
	} else if grown := m.view.Grow(u.Frame.Bodies); grown != m.view {
		m.view = grown
		m.trails = m.trails[:0]
	}

	if len(m.energy) == energyCapacity {
		copy(m.energy, m.energy[1:])
		m.energy = m.energy[:len(m.energy)-1]
	}
	m.energy = append(m.energy, u.Energy)

	if !m.showTrails {
		return
	}
	w, h := m.canvas.Dots()
	for _, b := range u.Frame.Bodies {
		x, y := m.view.ToDots(b.X, b.Y, w, h)
		if len(m.trails) == trailCapacity {
			copy(m.trails, m.trails[1:])
			m.trails = m.trails[:len(m.trails)-1]
		}
		m.trails = append(m.trails, [2]int{x, y})
	}
}

func (m *Model) draw() {
	m.canvas.Clear()
	for _, p := range m.trails {
		m.canvas.Set(p[0], p[1])
	}
	w, h := m.canvas.Dots()
	for _, b := range m.current.Frame.Bodies {
		x, y := m.view.ToDots(b.X, b.Y, w, h)
		m.canvas.FillCircle(x, y, m.view.DotRadius(b.Radius, w, h))
	}
}

func (m Model) status() string {
	theme := Themes[m.theme]
	if m.done == nil {
		return lipgloss.NewStyle().Foreground(theme.Accent).Bold(true).Render("RUNNING")
	}
	switch {
	case m.done.Err == nil:
		return lipgloss.NewStyle().Foreground(theme.Accent).Bold(true).Render("COMPLETED")
	case errors.Is(m.done.Err, context.Canceled):
		return lipgloss.NewStyle().Foreground(theme.Warning).Bold(true).Render("STOPPED")
	default:
		return lipgloss.NewStyle().Foreground(theme.Error).Bold(true).Render("FAILED")
	}
}

func (m Model) View() string {
	theme := Themes[m.theme]
	label := labelStyle.Foreground(theme.Muted)
	value := lipgloss.NewStyle().Foreground(theme.Bodies)

	header := lipgloss.NewStyle().Foreground(theme.Accent).Bold(true).Render(m.title) + "  " + m.status()

	board := canvasStyle.Foreground(theme.Bodies).Render(m.canvas.String())

	var stats strings.Builder
	row := func(name, val string) {
		stats.WriteString(label.Render(name) + value.Render(val) + "\n")
	}
	f := m.current.Frame
	row("step", fmt.Sprintf("%d", f.Step))
	row("time", fmt.Sprintf("%.4f", f.Time))
	row("bodies", fmt.Sprintf("%d", len(f.Bodies)))
	row("energy", fmt.Sprintf("%.4g", m.current.Energy))
	row("span", fmt.Sprintf("%.3g", 2*m.view.HalfSpan))
	if m.control != nil {
		row("thrust", m.thrust())
	}
	if len(m.energy) > 1 {
		stats.WriteString("\n")
		stats.WriteString(asciigraph.Plot(m.energy,
			asciigraph.Height(6),
			asciigraph.Width(30),
			asciigraph.Caption("kinetic energy")))
		stats.WriteString("\n")
	}
	if m.done != nil && m.done.Err != nil && !errors.Is(m.done.Err, context.Canceled) {
		stats.WriteString("\n" + lipgloss.NewStyle().Foreground(theme.Error).Render(m.done.Err.Error()) + "\n")
	} else if m.lastErr != nil {
		stats.WriteString("\n" + lipgloss.NewStyle().Foreground(theme.Warning).Render(m.lastErr.Error()) + "\n")
	}

	help := "q quit  c trails  r refit  t theme (" + theme.Name + ")"
	if m.control != nil {
		help = "arrows steer  " + help
	}

	body := lipgloss.JoinHorizontal(lipgloss.Top, board, statsStyle.BorderForeground(theme.Muted).Render(stats.String()))
	return header + "\n\n" + body + "\n" + lipgloss.NewStyle().Foreground(theme.Muted).Italic(true).Render(help) + "\n"
}

func (m Model) thrust() string {
	if len(m.held) == 0 {
		return "-"
	}
	parts := make([]string, 0, len(m.held))
	for d := physics.Up; d <= physics.Right; d++ {
		if _, ok := m.held[d]; ok {
			parts = append(parts, d.String())
		}
	}
	return strings.Join(parts, "+")
}
