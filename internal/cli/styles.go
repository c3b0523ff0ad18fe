package cli

import (
	"fmt"

	"github.com/charmbracelet/lipgloss"
)

// Adaptive colors for light and dark terminals.
var (
	colorWhite  = lipgloss.AdaptiveColor{Light: "0", Dark: "15"}
	colorDim    = lipgloss.AdaptiveColor{Light: "242", Dark: "240"}
	colorGreen  = lipgloss.AdaptiveColor{Light: "28", Dark: "40"}
	colorYellow = lipgloss.AdaptiveColor{Light: "136", Dark: "220"}
	colorOrange = lipgloss.AdaptiveColor{Light: "166", Dark: "208"}
	colorCyan   = lipgloss.AdaptiveColor{Light: "30", Dark: "45"}
)

// Semantic styles for CLI output.
var (
	styleBrand   = lipgloss.NewStyle().Bold(true).Foreground(colorCyan)
	styleVersion = lipgloss.NewStyle().Foreground(colorGreen)
	styleLabel   = lipgloss.NewStyle().Foreground(colorDim)
	styleValue   = lipgloss.NewStyle().Foreground(colorWhite)
	styleSuccess = lipgloss.NewStyle().Foreground(colorGreen)
	styleWarning = lipgloss.NewStyle().Bold(true).Foreground(colorYellow)
	styleHint    = lipgloss.NewStyle().Foreground(colorDim)
	styleSection = lipgloss.NewStyle().Bold(true).Foreground(colorWhite)
	styleUpdate  = lipgloss.NewStyle().Bold(true).Foreground(colorOrange)
)

// labelWidth aligns printField values.
const labelWidth = 12

func printField(label, value string) {
	fmt.Printf("  %s %s\n", styleLabel.Width(labelWidth).Render(label+":"), styleValue.Render(value))
}
