package output

import (
	"fmt"
	"io"
	"strings"
	"sync"
)

// ProgressBar counts finished items, e.g. rows of an import.
type ProgressBar struct {
	w     io.Writer
	title string
	width int

	mu      sync.Mutex
	current int
	total   int
}

// NewProgressBar creates a bar for total items.
func NewProgressBar(w io.Writer, title string, total int) *ProgressBar {
	return &ProgressBar{w: w, title: title, width: 30, total: total}
}

// Set records progress; it matches the importer's progress callback.
func (p *ProgressBar) Set(done, total int) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.current, p.total = done, total
	p.render()
}

// Increment adds n finished items.
func (p *ProgressBar) Increment(n int) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.current += n
	p.render()
}

// Finish renders the final state and ends the line.
func (p *ProgressBar) Finish() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.render()
	fmt.Fprintln(p.w)
}

func (p *ProgressBar) render() {
	if p.total <= 0 {
		fmt.Fprintf(p.w, "\r%s %d", p.title, p.current)
		return
	}
	ratio := float64(p.current) / float64(p.total)
	if ratio > 1 {
		ratio = 1
	}
	filled := int(float64(p.width) * ratio)
	bar := strings.Repeat("█", filled) + strings.Repeat("░", p.width-filled)
	fmt.Fprintf(p.w, "\r%s [%s] %3.0f%% (%d/%d)", p.title, bar, ratio*100, p.current, p.total)
}
