package hotkey

import "testing"

func TestParse(t *testing.T) {
	for _, tt := range []struct {
		spec string
		want string
	}{
		{"ctrl+alt+space", "ctrl+alt+space"},
		{"CTRL+SHIFT+Space", "ctrl+shift+space"},
		{"alt+ctrl+space", "ctrl+alt+space"}, // canonical modifier order
		{"control+option+v", "ctrl+alt+v"},
		{"win+f5", "super+f5"},
		{"ctrl+ctrl+space", "ctrl+space"}, // duplicate modifiers collapse
	} {
		t.Run(tt.spec, func(t *testing.T) {
			c, err := Parse(tt.spec)
			if err != nil {
				t.Fatalf("Parse(%q): %v", tt.spec, err)
			}
			if got := c.String(); got != tt.want {
				t.Errorf("Parse(%q).String() = %q, want %q", tt.spec, got, tt.want)
			}
		})
	}
}

func TestParseInvalid(t *testing.T) {
	for _, spec := range []string{
		"",
		"space",          // no modifier
		"ctrl+alt",       // no key
		"ctrl+space+v",   // two keys
		"ctrl+banana",    // unknown key
		"ctrl++space",    // empty segment
		"ctrl+f13",       // out of range
	} {
		t.Run(spec, func(t *testing.T) {
			if _, err := Parse(spec); err == nil {
				t.Errorf("Parse(%q) should fail", spec)
			}
		})
	}
}

func TestFakeListenerEdgeSuppression(t *testing.T) {
	f := NewFake()

	f.SimPress()
	f.SimPress() // repeat while held: no second edge
	select {
	case <-f.Keydown():
	default:
		t.Fatal("expected one keydown")
	}
	select {
	case <-f.Keydown():
		t.Fatal("repeat press should not emit a second keydown")
	default:
	}

	f.SimRelease()
	f.SimRelease() // release while not held: nothing
	select {
	case <-f.Keyup():
	default:
		t.Fatal("expected one keyup")
	}
	select {
	case <-f.Keyup():
		t.Fatal("stray release should not emit a second keyup")
	default:
	}
}

func TestFakeSetCombo(t *testing.T) {
	f := NewFake()
	c, err := Parse("ctrl+shift+r")
	if err != nil {
		t.Fatal(err)
	}
	if err := f.SetCombo(c); err != nil {
		t.Fatal(err)
	}
	if got := f.Combo().String(); got != "ctrl+shift+r" {
		t.Errorf("Combo() = %q, want ctrl+shift+r", got)
	}
}
