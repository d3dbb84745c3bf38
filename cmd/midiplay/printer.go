package main

import (
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/Garik-/midi/pkg/midi"
	"github.com/charmbracelet/lipgloss"
)

var (
	dimStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("#555"))
	noteStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("#fff"))
	metaStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("#7aa2f7"))
	beatStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("#e0af68"))
	statusStyle = lipgloss.NewStyle().Reverse(true)
)

// printer writes played events to w, one line each.
type printer struct {
	mu sync.Mutex
	w  io.Writer
}

func newPrinter(w io.Writer) *printer {
	return &printer{w: w}
}

func (p *printer) OnStart(fromBeginning bool) {
	status := "resumed"
	if fromBeginning {
		status = "started"
	}
	p.println(statusStyle.Render(" " + status + " "))
}

func (p *printer) OnEvent(e *midi.Event, elapsed time.Duration) {
	style := noteStyle
	switch k := e.Kind(); {
	case k == midi.KindMetronome:
		style = beatStyle
	case k.IsMeta():
		style = metaStyle
	}

	ts := dimStyle.Render(fmt.Sprintf("%9s %8d", elapsed.Truncate(time.Millisecond), e.Tick()))
	p.println(ts + "  " + style.Render(fmt.Sprintf("%-16s %v", e.Kind(), e.Message())))
}

func (p *printer) OnStop(finished bool) {
	status := "stopped"
	if finished {
		status = "finished"
	}
	p.println(statusStyle.Render(" " + status + " "))
}

func (p *printer) println(s string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	fmt.Fprintln(p.w, s)
}
