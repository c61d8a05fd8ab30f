package ui

import (
	"io"
	"os"
	"runtime"
	"sync"

	"github.com/charmbracelet/lipgloss"
	"github.com/muesli/termenv"
	"golang.org/x/term"
)

// Global UI state
var (
	uiMu        sync.RWMutex
	out         io.Writer = os.Stderr
	noColorMode bool
)

// SetOutput redirects user-facing output. Nil restores os.Stderr.
func SetOutput(w io.Writer) {
	uiMu.Lock()
	defer uiMu.Unlock()
	if w == nil {
		w = os.Stderr
	}
	out = w
}

func output() io.Writer {
	uiMu.RLock()
	defer uiMu.RUnlock()
	return out
}

// SetNoColor disables colored output.
func SetNoColor(noColor bool) {
	uiMu.Lock()
	defer uiMu.Unlock()
	noColorMode = noColor
	if noColor {
		lipgloss.SetColorProfile(termenv.Ascii)
	}
}

// IsNoColor returns whether color is disabled.
func IsNoColor() bool {
	uiMu.RLock()
	defer uiMu.RUnlock()
	return noColorMode
}

// ConfigureColor disables color when asked to, when NO_COLOR is set, or
// when stderr is not a terminal.
func ConfigureColor(noColor bool) {
	if noColor || os.Getenv("NO_COLOR") != "" || !IsTerminal(os.Stderr) {
		SetNoColor(true)
	}
}

// IsTerminal reports whether f is attached to a terminal.
func IsTerminal(f *os.File) bool {
	return f != nil && term.IsTerminal(int(f.Fd()))
}

var (
	unicodeOnce sync.Once
	unicodeOK   bool
)

// UnicodeTerminal reports whether stderr can render Unicode glyphs.
// Legacy Windows consoles cannot; Windows Terminal sets WT_SESSION.
func UnicodeTerminal() bool {
	unicodeOnce.Do(func() {
		if os.Getenv("TERM") == "dumb" || !IsTerminal(os.Stderr) {
			return
		}
		if runtime.GOOS == "windows" {
			unicodeOK = os.Getenv("WT_SESSION") != ""
			return
		}
		unicodeOK = true
	})
	return unicodeOK
}

// Icon returns unicode when the terminal supports it, ascii otherwise.
func Icon(unicode, ascii string) string {
	if UnicodeTerminal() {
		return unicode
	}
	return ascii
}
