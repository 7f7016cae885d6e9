package cli

import (
	"fmt"
	"io"
	"os"
	"sync"
	"time"

	"golang.org/x/term"
)

// ANSI color codes
const (
	ColorReset  = "\033[0m"
	ColorRed    = "\033[31m"
	ColorGreen  = "\033[32m"
	ColorYellow = "\033[33m"
	ColorBlue   = "\033[34m"
	ColorCyan   = "\033[36m"
	ColorWhite  = "\033[37m"
	ColorGray   = "\033[90m"
)

// Spinner frames for animated progress
var spinnerFrames = []string{"⠋", "⠙", "⠹", "⠸", "⠼", "⠴", "⠦", "⠧", "⠇", "⠏"}

// Terminal provides terminal-aware output utilities
type Terminal struct {
	IsTerminal bool
	UseColor   bool
	out        io.Writer

	mu           sync.Mutex
	spinnerIndex int
}

// NewTerminal creates a new Terminal instance
func NewTerminal() *Terminal {
	isTerminal := term.IsTerminal(int(os.Stdout.Fd()))
	return &Terminal{
		IsTerminal: isTerminal,
		UseColor:   isTerminal && os.Getenv("NO_COLOR") == "",
		out:        os.Stdout,
	}
}

// IsInteractive reports whether stdin is a terminal, so prompts can be shown
func (t *Terminal) IsInteractive() bool {
	return term.IsTerminal(int(os.Stdin.Fd()))
}

// ClearLine clears the current line (terminal only)
func (t *Terminal) ClearLine() {
	if t.IsTerminal {
		fmt.Fprint(t.out, "\r\033[K")
	}
}

// Spinner returns the next spinner frame
func (t *Terminal) Spinner() string {
	if !t.IsTerminal {
		return ""
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	frame := spinnerFrames[t.spinnerIndex]
	t.spinnerIndex = (t.spinnerIndex + 1) % len(spinnerFrames)
	return frame
}

// StartSpinner animates msg until the returned func is called. Outside a
// terminal msg is printed once.
func (t *Terminal) StartSpinner(msg string) (stop func()) {
	if !t.IsTerminal {
		fmt.Fprintln(t.out, msg)
		return func() {}
	}

	done := make(chan struct{})
	finished := make(chan struct{})
	go func() {
		defer close(finished)
		ticker := time.NewTicker(100 * time.Millisecond)
		defer ticker.Stop()
		for {
			t.ClearLine()
			fmt.Fprint(t.out, t.Color(ColorCyan, t.Spinner()+" "+msg))
			select {
			case <-done:
				t.ClearLine()
				return
			case <-ticker.C:
			}
		}
	}()

	var once sync.Once
	return func() {
		once.Do(func() {
			close(done)
			<-finished
		})
	}
}

// Color wraps text in ANSI color codes (terminal only)
func (t *Terminal) Color(color, text string) string {
	if !t.UseColor {
		return text
	}
	return color + text + ColorReset
}

// PhaseColor returns the appropriate color for a forwarding phase
func PhaseColor(phase string) string {
	switch phase {
	case "fetching":
		return ColorBlue
	case "sending":
		return ColorGreen
	default:
		return ColorWhite
	}
}
