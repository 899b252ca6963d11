// Package render is the boundary between the board scheduler and the display.
// Coordinates are pixels on a 256x64 panel with y measured to the top of a line.
package render

import (
	"sort"
	"strings"
	"unicode/utf8"
)

const (
	Width  = 256
	Height = 64

	// CharWidth is the advance of the text-mode font
	CharWidth = 6
)

type Area struct {
	X, Y, W, H int
}

var FullScreen = Area{0, 0, Width, Height}

func (a Area) containsY(y int) bool {
	return y >= a.Y && y < a.Y+a.H
}

func (a Area) overlapsX(x int, width int) bool {
	return x < a.X+a.W && x+width > a.X
}

// Renderer is the set of drawing primitives the board needs.
type Renderer interface {
	TextWidth(text string) int
	Blank(area Area)
	DrawText(x, y int, text string)
	CentreText(y int, text string)
	SetClip(area Area)
	ClearClip()
	Commit(area Area)
	ClearAll()
	SetBrightness(level int)
}

// Text is one run of text placed on the frame.
type Text struct {
	X, Y int
	Text string
}

// Frame is an in-memory frame buffer that keeps text runs instead of pixels.
type Frame struct {
	texts      []Text
	clip       *Area
	brightness int
}

func (f *Frame) TextWidth(text string) int {
	return utf8.RuneCountInString(text) * CharWidth
}

func (f *Frame) Blank(area Area) {
	kept := f.texts[:0]
	for _, text := range f.texts {
		if !area.containsY(text.Y) || !area.overlapsX(text.X, f.TextWidth(text.Text)) {
			kept = append(kept, text)
		}
	}
	f.texts = kept
}

func (f *Frame) DrawText(x, y int, text string) {
	if f.clip != nil && !f.clip.containsY(y) {
		return
	}

	f.texts = append(f.texts, Text{X: x, Y: y, Text: text})
}

func (f *Frame) CentreText(y int, text string) {
	x := (Width - f.TextWidth(text)) / 2
	if x < 0 {
		x = 0
	}

	f.DrawText(x, y, text)
}

func (f *Frame) SetClip(area Area) {
	f.clip = &area
}

func (f *Frame) ClearClip() {
	f.clip = nil
}

func (f *Frame) ClearAll() {
	f.texts = nil
}

func (f *Frame) SetBrightness(level int) {
	f.brightness = level
}

func (f *Frame) Brightness() int {
	return f.brightness
}

// Lines renders the frame top to bottom, one string per distinct y.
func (f *Frame) Lines(area Area) []string {
	texts := make([]Text, 0, len(f.texts))
	for _, text := range f.texts {
		if area.containsY(text.Y) {
			texts = append(texts, text)
		}
	}

	sort.SliceStable(texts, func(i, j int) bool {
		if texts[i].Y != texts[j].Y {
			return texts[i].Y < texts[j].Y
		}
		return texts[i].X < texts[j].X
	})

	var lines []string
	var current strings.Builder
	row := -1 << 31
	for _, text := range texts {
		if text.Y != row && current.Len() > 0 {
			lines = append(lines, current.String())
			current.Reset()
		}
		row = text.Y

		// pad to the text's column so the layout survives in logs
		column := text.X / CharWidth
		if pad := column - utf8.RuneCountInString(current.String()); pad > 0 {
			current.WriteString(strings.Repeat(" ", pad))
		} else if current.Len() > 0 {
			current.WriteByte(' ')
		}
		current.WriteString(text.Text)
	}
	if current.Len() > 0 {
		lines = append(lines, current.String())
	}

	return lines
}

// Contains reports whether any text run on the frame contains s.
func (f *Frame) Contains(s string) bool {
	for _, text := range f.texts {
		if strings.Contains(text.Text, s) {
			return true
		}
	}

	return false
}
