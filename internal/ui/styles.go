package ui

import (
	"fmt"
	"strings"
	"time"

	"github.com/alfredjeanlab/leadrelay/internal/model"
	"github.com/alfredjeanlab/leadrelay/internal/progress"
)

// ANSI256 color codes matching the Ayu palette.
const (
	colorAccent  = 74  // blue
	colorMuted   = 245 // medium gray
	colorSuccess = 114 // green
	colorError   = 203 // red
	colorPending = 240 // dark gray
)

var noColor bool

func render(color int, s string) string {
	if noColor {
		return s
	}
	return fmt.Sprintf("\x1b[38;5;%dm%s\x1b[0m", color, s)
}

// RenderAccent returns s in the accent (blue) color.
func RenderAccent(s string) string { return render(colorAccent, s) }

// RenderMuted returns s in the muted (gray) color.
func RenderMuted(s string) string { return render(colorMuted, s) }

// RenderSuccess returns s in green.
func RenderSuccess(s string) string { return render(colorSuccess, s) }

// RenderError returns s in red.
func RenderError(s string) string { return render(colorError, s) }

// ForceNoColor disables color output globally.
func ForceNoColor() {
	noColor = true
}

// StepGlyph returns the one-character marker for a step status.
func StepGlyph(status model.Status) string {
	switch status {
	case model.StatusCompleted:
		return RenderSuccess("✓")
	case model.StatusInProgress:
		return RenderAccent("▸")
	case model.StatusError:
		return RenderError("✗")
	default:
		return render(colorPending, "·")
	}
}

// RenderStep formats one workflow step line for the watch view.
func RenderStep(st progress.StepState) string {
	var b strings.Builder
	b.WriteString("  ")
	b.WriteString(StepGlyph(st.Status))
	b.WriteString(" ")
	b.WriteString(st.Name)
	if st.Status == model.StatusCompleted && st.Duration > 0 {
		b.WriteString(RenderMuted(fmt.Sprintf("  (%s)", st.Duration.Round(time.Millisecond))))
	}
	if st.Message != "" {
		b.WriteString(RenderMuted("  " + st.Message))
	}
	return b.String()
}

// RenderConnection formats the runner's connection state for the header line.
func RenderConnection(state progress.State, attempt int) string {
	switch state {
	case progress.StateOpen:
		return RenderSuccess("connected")
	case progress.StateReconnecting:
		return RenderError(fmt.Sprintf("reconnecting (attempt %d)", attempt))
	case progress.StateFailed:
		return RenderError("connection lost")
	case progress.StateConnecting:
		return RenderMuted("connecting…")
	default:
		return RenderMuted(state.String())
	}
}
