package render

import (
	"strings"
	"sync"

	"github.com/rs/zerolog/log"
)

// Panel is a text-mode display that writes each changed frame to the log.
type Panel struct {
	Frame

	mu        sync.Mutex
	committed []string
}

func NewPanel() *Panel {
	return &Panel{}
}

func (p *Panel) Commit(area Area) {
	lines := p.Lines(FullScreen)

	p.mu.Lock()
	defer p.mu.Unlock()

	if strings.Join(lines, "\n") == strings.Join(p.committed, "\n") {
		return
	}
	p.committed = lines

	log.Debug().Int("y", area.Y).Int("h", area.H).Strs("screen", lines).Msg("Display updated")
}

// Screen returns the last committed frame. It is safe to call from other goroutines.
func (p *Panel) Screen() []string {
	p.mu.Lock()
	defer p.mu.Unlock()

	screen := make([]string, len(p.committed))
	copy(screen, p.committed)

	return screen
}
