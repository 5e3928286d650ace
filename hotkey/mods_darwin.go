//go:build darwin

package hotkey

import (
	"fmt"

	"golang.design/x/hotkey"
)

func modFor(m Mod) (hotkey.Modifier, error) {
	switch m {
	case ModCtrl:
		return hotkey.ModCtrl, nil
	case ModShift:
		return hotkey.ModShift, nil
	case ModAlt:
		return hotkey.ModOption, nil
	case ModSuper:
		return hotkey.ModCmd, nil
	default:
		return 0, fmt.Errorf("unknown modifier %d", m)
	}
}
