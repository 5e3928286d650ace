package hotkey

import (
	"fmt"
	"sort"
	"strings"
)

type Mod uint8

const (
	ModCtrl Mod = iota
	ModShift
	ModAlt
	ModSuper
)

var modNames = map[Mod]string{
	ModCtrl:  "ctrl",
	ModShift: "shift",
	ModAlt:   "alt",
	ModSuper: "super",
}

// Combo is one non-modifier key plus at least one modifier, e.g. ctrl+alt+space.
type Combo struct {
	Mods []Mod
	Key  string
}

// Default matches the combination the original releases shipped with.
func Default() Combo {
	return Combo{Mods: []Mod{ModCtrl, ModAlt}, Key: "space"}
}

// Parse reads a spec like "ctrl+alt+space" or "ctrl+shift+d". Key names are
// single letters, digits, "space", or f1..f12. Modifier aliases: control,
// ctl, win, cmd, meta, option.
func Parse(spec string) (Combo, error) {
	parts := strings.Split(strings.ToLower(strings.TrimSpace(spec)), "+")
	var c Combo
	seen := map[Mod]bool{}
	for _, p := range parts {
		p = strings.TrimSpace(p)
		switch p {
		case "ctrl", "control", "ctl":
			if !seen[ModCtrl] {
				c.Mods = append(c.Mods, ModCtrl)
				seen[ModCtrl] = true
			}
		case "shift":
			if !seen[ModShift] {
				c.Mods = append(c.Mods, ModShift)
				seen[ModShift] = true
			}
		case "alt", "option":
			if !seen[ModAlt] {
				c.Mods = append(c.Mods, ModAlt)
				seen[ModAlt] = true
			}
		case "super", "win", "cmd", "meta":
			if !seen[ModSuper] {
				c.Mods = append(c.Mods, ModSuper)
				seen[ModSuper] = true
			}
		case "":
			return Combo{}, fmt.Errorf("empty key in combo %q", spec)
		default:
			if c.Key != "" {
				return Combo{}, fmt.Errorf("combo %q has more than one non-modifier key", spec)
			}
			if !validKey(p) {
				return Combo{}, fmt.Errorf("unknown key %q in combo %q", p, spec)
			}
			c.Key = p
		}
	}
	if c.Key == "" {
		return Combo{}, fmt.Errorf("combo %q has no non-modifier key", spec)
	}
	if len(c.Mods) == 0 {
		return Combo{}, fmt.Errorf("combo %q needs at least one modifier", spec)
	}
	sort.Slice(c.Mods, func(i, j int) bool { return c.Mods[i] < c.Mods[j] })
	return c, nil
}

func validKey(k string) bool {
	if len(k) == 1 {
		ch := k[0]
		return (ch >= 'a' && ch <= 'z') || (ch >= '0' && ch <= '9')
	}
	if k == "space" {
		return true
	}
	if len(k) >= 2 && k[0] == 'f' {
		switch k[1:] {
		case "1", "2", "3", "4", "5", "6", "7", "8", "9", "10", "11", "12":
			return true
		}
	}
	return false
}

func (c Combo) String() string {
	parts := make([]string, 0, len(c.Mods)+1)
	for _, m := range c.Mods {
		parts = append(parts, modNames[m])
	}
	parts = append(parts, c.Key)
	return strings.Join(parts, "+")
}

func (c Combo) hasMod(m Mod) bool {
	for _, have := range c.Mods {
		if have == m {
			return true
		}
	}
	return false
}
