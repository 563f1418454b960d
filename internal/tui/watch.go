// Package tui renders a live terminal view of a running simulation:
// the engine advances a little further on every frame tick and the
// watched variable is charted as it evolves.
package tui

import (
	"fmt"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/guptarohit/asciigraph"

	"github.com/kmatsu/odelab/internal/engine"
	"github.com/kmatsu/odelab/internal/ode"
)

var (
	cyan   = lipgloss.NewStyle().Foreground(lipgloss.Color("86"))
	white  = lipgloss.NewStyle().Foreground(lipgloss.Color("255"))
	dim    = lipgloss.NewStyle().Foreground(lipgloss.Color("242"))
	dimmer = lipgloss.NewStyle().Foreground(lipgloss.Color("238"))
	green  = lipgloss.NewStyle().Foreground(lipgloss.Color("82"))
	yellow = lipgloss.NewStyle().Foreground(lipgloss.Color("220"))
	red    = lipgloss.NewStyle().Foreground(lipgloss.Color("196"))
)

const historyLen = 240

// Options configures the watch view.
type Options struct {
	ModelName string
	Interval  float64 // simulated seconds advanced per frame
	Watch     string  // variable to chart; defaults to the first one
}

type watchModel struct {
	eng   *engine.Engine
	name  string
	watch string
	names []string

	interval float64
	speed    float64
	paused   bool
	err      error

	t0 float64
	y0 ode.State

	history []float64
	width   int
	height  int
}

type tickMsg time.Time

func tick() tea.Cmd {
	return tea.Tick(33*time.Millisecond, func(t time.Time) tea.Msg { return tickMsg(t) })
}

// NewWatch builds the watch view over an engine. The engine must not be
// shared with other drivers while the view runs.
func NewWatch(eng *engine.Engine, opts Options) (*watchModel, error) {
	names := eng.Model().Vars().Names()
	watch := opts.Watch
	if watch == "" {
		watch = names[0]
	}
	if _, err := eng.Binding().Resolve(watch); err != nil {
		return nil, err
	}
	interval := opts.Interval
	if interval <= 0 {
		interval = 0.05
	}
	return &watchModel{
		eng:      eng,
		name:     opts.ModelName,
		watch:    watch,
		names:    names,
		interval: interval,
		speed:    1.0,
		t0:       eng.T(),
		y0:       eng.Y(),
		history:  make([]float64, 0, historyLen),
		width:    80,
		height:   24,
	}, nil
}

func (m *watchModel) Init() tea.Cmd { return tick() }

func (m *watchModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "q", "ctrl+c", "escape":
			return m, tea.Quit
		case " ", "p":
			m.paused = !m.paused
		case "+", "=":
			if m.speed < 16 {
				m.speed *= 2
			}
		case "-", "_":
			if m.speed > 0.25 {
				m.speed /= 2
			}
		case "r":
			m.reset()
		case "w":
			m.cycleWatch()
		}
		return m, nil
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		return m, nil
	case tickMsg:
		if !m.paused && m.err == nil {
			m.step()
		}
		return m, tick()
	}
	return m, nil
}

func (m *watchModel) step() {
	tn := m.eng.T() + m.interval*m.speed
	if _, err := m.eng.Advance(tn); err != nil {
		m.err = err
		return
	}
	vals, err := m.eng.Binding().Get(m.watch)
	if err != nil || len(vals) == 0 {
		return
	}
	m.history = append(m.history, vals[0])
	if len(m.history) > historyLen {
		m.history = m.history[1:]
	}
}

func (m *watchModel) reset() {
	t0 := m.t0
	if err := m.eng.Restart(engine.Checkpoint{T: &t0, Y: m.y0.Clone()}); err != nil {
		m.err = err
		return
	}
	m.history = m.history[:0]
	m.err = nil
	m.paused = false
}

func (m *watchModel) cycleWatch() {
	for i, name := range m.names {
		if name == m.watch {
			m.watch = m.names[(i+1)%len(m.names)]
			break
		}
	}
	m.history = m.history[:0]
}

func (m *watchModel) View() string {
	var b strings.Builder

	status := green.Render("● running")
	if m.err != nil {
		status = red.Render("✕ " + m.err.Error())
	} else if m.paused {
		status = yellow.Render("○ paused")
	}
	b.WriteString(fmt.Sprintf("\n   %s  %s  %s\n",
		cyan.Render(m.name),
		dim.Render(fmt.Sprintf("t=%.3f  speed=%gx", m.eng.T(), m.speed)),
		status))
	b.WriteString(dimmer.Render("   "+strings.Repeat("─", 60)) + "\n\n")

	gw := m.width - 14
	if gw < 40 {
		gw = 40
	}
	gh := m.height - 12
	if gh < 6 {
		gh = 6
	}
	if gh > 16 {
		gh = 16
	}

	if len(m.history) > 1 {
		graph := asciigraph.Plot(m.history,
			asciigraph.Height(gh),
			asciigraph.Width(gw),
			asciigraph.Caption(m.watch),
		)
		for _, line := range strings.Split(graph, "\n") {
			b.WriteString("   " + line + "\n")
		}
	} else {
		b.WriteString(dim.Render("   collecting samples...") + "\n")
	}

	b.WriteString("\n   ")
	for _, name := range m.names {
		vals, err := m.eng.Binding().Get(name)
		if err != nil || len(vals) == 0 {
			continue
		}
		marker := dim
		if name == m.watch {
			marker = cyan
		}
		val := fmt.Sprintf("%.4g", vals[0])
		if len(vals) > 1 {
			val += "..."
		}
		b.WriteString(marker.Render(name+"=") + white.Render(val) + "  ")
	}
	b.WriteString("\n")

	b.WriteString("\n" + dim.Render("   space pause  w watch next  ± speed  r reset  q quit") + "\n")
	return b.String()
}

// RunWatch drives the view until the user quits.
func RunWatch(eng *engine.Engine, opts Options) error {
	m, err := NewWatch(eng, opts)
	if err != nil {
		return err
	}
	p := tea.NewProgram(m, tea.WithAltScreen())
	_, err = p.Run()
	return err
}
