package viz

import "github.com/charmbracelet/lipgloss"

// Theme is the color scheme of the viewer.
type Theme struct {
	Name    string
	Bodies  lipgloss.Color
	Trail   lipgloss.Color
	Accent  lipgloss.Color
	Muted   lipgloss.Color
	Warning lipgloss.Color
	Error   lipgloss.Color
}

var Themes = []Theme{
	{
		Name:    "deepspace",
		Bodies:  lipgloss.Color("#e0f0ff"),
		Trail:   lipgloss.Color("#4488aa"),
		Accent:  lipgloss.Color("#00ccff"),
		Muted:   lipgloss.Color("#666688"),
		Warning: lipgloss.Color("#ffcc00"),
		Error:   lipgloss.Color("#ff4444"),
	},
	{
		Name:    "nebula",
		Bodies:  lipgloss.Color("#ff9ff3"),
		Trail:   lipgloss.Color("#8b6b8c"),
		Accent:  lipgloss.Color("#feca57"),
		Muted:   lipgloss.Color("#8b6b8c"),
		Warning: lipgloss.Color("#ffc048"),
		Error:   lipgloss.Color("#ff4757"),
	},
	{
		Name:    "retro",
		Bodies:  lipgloss.Color("#00ff00"),
		Trail:   lipgloss.Color("#005500"),
		Accent:  lipgloss.Color("#88ff88"),
		Muted:   lipgloss.Color("#008800"),
		Warning: lipgloss.Color("#ffff00"),
		Error:   lipgloss.Color("#ff0000"),
	},
}

// ThemeIndex returns the position of the named theme, or 0.
func ThemeIndex(name string) int {
	for i, t := range Themes {
		if t.Name == name {
			return i
		}
	}
	return 0
}

func ThemeNames() []string {
	names := make([]string, len(Themes))
	for i, t := range Themes {
		names[i] = t.Name
	}
	return names
}
