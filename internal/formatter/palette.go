package formatter

import (
	"github.com/charmbracelet/lipgloss"
	"github.com/desertthunder/ytmirror/internal/models"
)

var styles = NewPalette("#7D56F4", "#04B575", "#FF0000", "#FFA500", "#626262")

// struct Palette is a simple stylesheet built with named [lipgloss.Style] fields
type Palette struct {
	title lipgloss.Style
	ok    lipgloss.Style
	err   lipgloss.Style
	warn  lipgloss.Style
	muted lipgloss.Style
}

func NewPalette(t, s, e, w, m string) *Palette {
	return &Palette{
		title: NewBold(t),
		ok:    NewBold(s),
		err:   NewBold(e),
		warn:  NewStyle(w),
		muted: NewEm(m),
	}
}

func NewStyle(fg string) lipgloss.Style {
	return lipgloss.NewStyle().Foreground(lipgloss.Color(fg))
}

func NewBold(fg string) lipgloss.Style {
	return NewStyle(fg).Bold(true)
}

func NewEm(fg string) lipgloss.Style {
	return NewStyle(fg).Italic(true)
}

// State renders an availability label in the color of its state.
func (p *Palette) State(a models.Availability) string {
	switch a {
	case models.Available:
		return p.ok.Render(string(a))
	case models.Pending:
		return p.warn.Render(string(a))
	case models.Unavailable:
		return p.err.Render(string(a))
	default:
		return p.muted.Render(string(models.Unchecked))
	}
}

func (p *Palette) Title(s string) string { return p.title.Render(s) }
func (p *Palette) Muted(s string) string { return p.muted.Render(s) }

// StateLabel renders a with the default palette.
func StateLabel(a models.Availability) string {
	return styles.State(a)
}
