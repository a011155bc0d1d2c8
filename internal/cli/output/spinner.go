package output

import (
	"fmt"
	"io"
	"sync"
	"time"
)

var spinnerFrames = []string{"⠋", "⠙", "⠹", "⠸", "⠼", "⠴", "⠦", "⠧", "⠇", "⠏"}

// Spinner animates a message while a request is in flight. Stop,
// Success and Fail may be called more than once; only the first call
// has an effect.
type Spinner struct {
	w        io.Writer
	message  string
	interval time.Duration

	mu   sync.Mutex
	once sync.Once
	done chan struct{}
	wg   sync.WaitGroup
}

// NewSpinner creates a spinner writing to w, normally stderr.
func NewSpinner(w io.Writer, message string) *Spinner {
	return &Spinner{
		w:        w,
		message:  message,
		interval: 100 * time.Millisecond,
		done:     make(chan struct{}),
	}
}

// Start begins the animation in the background.
func (s *Spinner) Start() {
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		ticker := time.NewTicker(s.interval)
		defer ticker.Stop()
		for i := 0; ; i++ {
			s.mu.Lock()
			fmt.Fprintf(s.w, "\r%s %s", spinnerFrames[i%len(spinnerFrames)], s.message)
			s.mu.Unlock()
			select {
			case <-s.done:
				return
			case <-ticker.C:
			}
		}
	}()
}

func (s *Spinner) finish(line string) {
	s.once.Do(func() {
		close(s.done)
		s.wg.Wait()
		s.mu.Lock()
		defer s.mu.Unlock()
		fmt.Fprint(s.w, "\r\033[K"+line)
	})
}

// Stop ends the animation and clears the line.
func (s *Spinner) Stop() {
	s.finish("")
}

// Success ends the animation with a check mark.
func (s *Spinner) Success(message string) {
	s.finish("✓ " + message + "\n")
}

// Fail ends the animation with a cross.
func (s *Spinner) Fail(message string) {
	s.finish("✗ " + message + "\n")
}
