package render

import (
	"fmt"
	"strings"
)

// Recorder keeps every drawing call so board behaviour can be asserted on.
type Recorder struct {
	Frame

	Draws   []Text
	Commits []Area
	Clears  int
}

func NewRecorder() *Recorder {
	return &Recorder{}
}

func (r *Recorder) DrawText(x, y int, text string) {
	r.Draws = append(r.Draws, Text{X: x, Y: y, Text: text})
	r.Frame.DrawText(x, y, text)
}

func (r *Recorder) CentreText(y int, text string) {
	x := (Width - r.TextWidth(text)) / 2
	if x < 0 {
		x = 0
	}
	r.DrawText(x, y, text)
}

func (r *Recorder) Commit(area Area) {
	r.Commits = append(r.Commits, area)
}

func (r *Recorder) ClearAll() {
	r.Clears++
	r.Frame.ClearAll()
}

// Drawn counts the draw calls whose text equals text.
func (r *Recorder) Drawn(text string) int {
	count := 0
	for _, draw := range r.Draws {
		if draw.Text == text {
			count++
		}
	}

	return count
}

// DrawnWith counts the draw calls whose text contains substr.
func (r *Recorder) DrawnWith(substr string) int {
	count := 0
	for _, draw := range r.Draws {
		if strings.Contains(draw.Text, substr) {
			count++
		}
	}

	return count
}

func (r *Recorder) Reset() {
	r.Draws = nil
	r.Commits = nil
	r.Clears = 0
}

func (r *Recorder) String() string {
	return fmt.Sprintf("%d draws, %d commits, %d clears", len(r.Draws), len(r.Commits), r.Clears)
}
