package inject

import "testing"

func TestCharToKey(t *testing.T) {
	for _, tt := range []struct {
		c     byte
		code  uint16
		shift bool
	}{
		{'a', 30, false},
		{'Z', 44, true},
		{'0', 11, false},
		{' ', 57, false},
		{'!', 2, true},
		{'?', 53, true},
	} {
		code, shift, ok := charToKey(tt.c)
		if !ok {
			t.Errorf("charToKey(%q) not ok", tt.c)
			continue
		}
		if code != tt.code || shift != tt.shift {
			t.Errorf("charToKey(%q) = (%d, %v), want (%d, %v)", tt.c, code, shift, tt.code, tt.shift)
		}
	}

	if _, _, ok := charToKey(0xe1); ok {
		t.Error("non-ASCII byte must not map to a keystroke")
	}
}
