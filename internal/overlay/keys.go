package overlay

import "strings"

// Key is a key press as seen by the application shell.
type Key struct {
	Name  string
	Ctrl  bool
	Meta  bool
	Alt   bool
	Shift bool
}

// ParseKey reads chords like "ctrl+k", "cmd+k" or a single key name.
func ParseKey(s string) Key {
	var k Key
	parts := strings.Split(strings.ToLower(strings.TrimSpace(s)), "+")
	for i, p := range parts {
		if i == len(parts)-1 {
			k.Name = p
			break
		}
		switch p {
		case "ctrl", "control":
			k.Ctrl = true
		case "cmd", "meta", "super":
			k.Meta = true
		case "alt", "option":
			k.Alt = true
		case "shift":
			k.Shift = true
		}
	}
	return k
}

// IsToggleChord reports whether k is ctrl+k or meta+k. A plain k, or k with
// any other modifier, is ordinary input.
func (k Key) IsToggleChord() bool {
	return strings.EqualFold(k.Name, "k") && (k.Ctrl || k.Meta) && !k.Alt && !k.Shift
}

// Action is a non-search overlay command.
type Action string

const (
	ActionToggleTheme      Action = "toggle-theme"
	ActionPoliticianSearch Action = "politician-search"
	ActionDonorSearch      Action = "donor-search"
)

// Actions lists the commands in display order.
func Actions() []Action {
	return []Action{ActionPoliticianSearch, ActionDonorSearch, ActionToggleTheme}
}
