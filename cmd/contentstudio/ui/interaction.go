package ui

import (
	"os"
	"strings"
	"sync"

	"github.com/charmbracelet/lipgloss"
	"github.com/muesli/termenv"
)

const (
	envNoInteraction = "NO_INTERACTION"
	envCI            = "CI"
	envTerm          = "TERM"
)

var interaction struct {
	mu         sync.RWMutex
	configured bool
	enabled    bool
}

// ConfigureInteraction decides whether the CLI runs interactively and
// pins the lipgloss color profile accordingly. The root command calls
// it once, before any subcommand runs; noInteraction forces plain
// output regardless of the terminal.
func ConfigureInteraction(noInteraction bool) {
	enabled := detectInteractive(noInteraction)

	interaction.mu.Lock()
	interaction.configured = true
	interaction.enabled = enabled
	interaction.mu.Unlock()

	if enabled {
		lipgloss.SetColorProfile(termenv.ColorProfile())
		return
	}
	lipgloss.SetColorProfile(termenv.Ascii)
}

// IsInteractive reports whether live terminal UI (spinners, the watch
// checklist) may be used. Unconfigured callers get auto-detection.
func IsInteractive() bool {
	interaction.mu.RLock()
	configured, enabled := interaction.configured, interaction.enabled
	interaction.mu.RUnlock()

	if !configured {
		ConfigureInteraction(false)
		return IsInteractive()
	}
	return enabled
}

// IsPlain is the inverse of IsInteractive.
func IsPlain() bool {
	return !IsInteractive()
}

// detectInteractive is false when explicitly disabled, when running
// under CI, on dumb terminals and when stderr is not a terminal.
func detectInteractive(noInteraction bool) bool {
	if noInteraction {
		return false
	}
	if envTruthy(envNoInteraction) || envTruthy(envCI) {
		return false
	}
	if strings.EqualFold(strings.TrimSpace(os.Getenv(envTerm)), "dumb") {
		return false
	}
	return stderrIsTerminal()
}

func stderrIsTerminal() bool {
	info, err := os.Stderr.Stat()
	if err != nil {
		return false
	}
	return (info.Mode() & os.ModeCharDevice) != 0
}

func envTruthy(key string) bool {
	switch strings.TrimSpace(strings.ToLower(os.Getenv(key))) {
	case "1", "true", "yes", "on":
		return true
	default:
		return false
	}
}
