package refresh

import (
	"strings"

	"github.com/launchdeck/launchdeck/internal/discovery"
	"github.com/launchdeck/launchdeck/internal/launcher"
)

// Untitled is shown for windows without a title
const Untitled = "Без имени"

// LabelFunc renders the row label of a live process in a group
type LabelFunc func(h discovery.ProcessHandle) string

// PlatformLabel decorates platform instances: squares for the designer,
// circles for the client, green when the base looks like a test base
func PlatformLabel(h discovery.ProcessHandle) string {
	title := strings.TrimSpace(h.Title)
	name := title
	if name == "" {
		name = Untitled
	}

	test := strings.Contains(strings.ToLower(title), "тест")
	designer := strings.Contains(title, "Конфигуратор")

	var icon string
	switch {
	case designer && test:
		icon = "🟩"
	case designer:
		icon = "🟥"
	case test:
		icon = "🟢"
	default:
		icon = "🔴"
	}
	return icon + " " + name
}

// ToolLabel renders tracked tools as icon plus window title, falling back
// to the target's display name
func ToolLabel(targets []launcher.LaunchTarget) LabelFunc {
	return func(h discovery.ProcessHandle) string {
		t, _ := targetFor(targets, h.Executable)
		name := strings.TrimSpace(h.Title)
		if name == "" {
			name = t.Name
		}
		if name == "" {
			name = Untitled
		}
		return join(t.Icon, name)
	}
}

// PlaceholderLabel renders a target with no running instance
func PlaceholderLabel(t launcher.LaunchTarget) string {
	return join(t.Icon, t.Name)
}

func join(icon, name string) string {
	if icon == "" {
		return name
	}
	return icon + " " + name
}

func targetFor(targets []launcher.LaunchTarget, process string) (launcher.LaunchTarget, bool) {
	for _, t := range targets {
		if strings.EqualFold(t.ProcessName, process) {
			return t, true
		}
	}
	return launcher.LaunchTarget{}, false
}
