package output

import (
	"github.com/fatih/color"
)

// Palette defines the colors used for the different parts of the console output
type Palette struct {
	Border *color.Color
	Title  *color.Color
	Label  *color.Color
	Value  *color.Color
	Good   *color.Color
	Warn   *color.Color
	Bad    *color.Color
	Dim    *color.Color
	Accent *color.Color
}

// DefaultPalette returns the palette used on color terminals.
func DefaultPalette() *Palette {
	return &Palette{
		Border: color.New(color.FgCyan),
		Title:  color.New(color.Bold),
		Label:  color.New(color.Bold),
		Value:  color.New(color.FgCyan),
		Good:   color.New(color.FgGreen),
		Warn:   color.New(color.FgYellow),
		Bad:    color.New(color.FgRed),
		Dim:    color.New(color.Faint),
		Accent: color.New(color.FgMagenta),
	}
}

// NoColorPalette returns a palette with all colors disabled.
func NoColorPalette() *Palette {
	p := DefaultPalette()
	p.each(func(c *color.Color) { c.DisableColor() })
	return p
}

// forceColor enables colors even when fatih/color detected no terminal.
func (p *Palette) forceColor() {
	p.each(func(c *color.Color) { c.EnableColor() })
}

func (p *Palette) each(fn func(*color.Color)) {
	for _, c := range []*color.Color{p.Border, p.Title, p.Label, p.Value, p.Good, p.Warn, p.Bad, p.Dim, p.Accent} {
		fn(c)
	}
}

// rateColor picks a color for an error rate: green up to 1%, yellow up to 5%, red above.
func (p *Palette) rateColor(errorRate float64) *color.Color {
	switch {
	case errorRate > 0.05:
		return p.Bad
	case errorRate > 0.01:
		return p.Warn
	default:
		return p.Good
	}
}

// SuccessIcon returns a checkmark in the palette's success color.
func (p *Palette) SuccessIcon() string {
	return p.Good.Sprint("✓")
}

// ErrorIcon returns an X in the palette's failure color.
func (p *Palette) ErrorIcon() string {
	return p.Bad.Sprint("✗")
}
