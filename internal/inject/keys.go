package inject

import "strings"

// keySpec names one entry in the documented key alphabet: letters a-z,
// digits 0-9, function keys f1-f24, modifiers and their *_right variants,
// arrows, navigation, common symbols, and media volume keys.
type keySpec struct {
	xdotool string // X11 keysym name, for the linux xdotool backend
	vk      uint16 // Windows virtual-key code, for the windows SendInput backend
}

// vk* constants mirror winuser.h; only the subset the alphabet below needs.
const (
	vkBack      = 0x08
	vkTab       = 0x09
	vkReturn    = 0x0D
	vkShift     = 0x10
	vkControl   = 0x11
	vkMenu      = 0x12 // alt
	vkEscape    = 0x1B
	vkSpace     = 0x20
	vkPageUp    = 0x21
	vkPageDown  = 0x22
	vkEnd       = 0x23
	vkHome      = 0x24
	vkLeft      = 0x25
	vkUp        = 0x26
	vkRight     = 0x27
	vkDown      = 0x28
	vkInsert    = 0x2D
	vkDelete    = 0x2E
	vkLWin      = 0x5B
	vkRWin      = 0x5C
	vkLShift    = 0xA0
	vkRShift    = 0xA1
	vkLControl  = 0xA2
	vkRControl  = 0xA3
	vkLMenu     = 0xA4
	vkRMenu     = 0xA5
	vkVolMute   = 0xAD
	vkVolDown   = 0xAE
	vkVolUp     = 0xAF
	vkOem1      = 0xBA // ;:
	vkOemPlus   = 0xBB
	vkOemComma  = 0xBC
	vkOemMinus  = 0xBD
	vkOemPeriod = 0xBE
	vkOem2      = 0xBF // /?
	vkOem3      = 0xC0 // `~
	vkOem4      = 0xDB // [{
	vkOem5      = 0xDC // \|
	vkOem6      = 0xDD // ]}
	vkOem7      = 0xDE // '"
)

// keyAlphabet maps canonical lowercase key names to their per-backend
// translations. Letters and digits are generated at init time rather than
// enumerated here.
var keyAlphabet = map[string]keySpec{
	"shift":        {"shift", vkLShift},
	"shift_right":  {"shift", vkRShift},
	"control":      {"ctrl", vkLControl},
	"control_right": {"ctrl", vkRControl},
	"alt":          {"alt", vkLMenu},
	"alt_right":    {"alt", vkRMenu},
	"meta":         {"super", vkLWin},
	"meta_right":   {"super", vkRWin},

	"up":    {"Up", vkUp},
	"down":  {"Down", vkDown},
	"left":  {"Left", vkLeft},
	"right": {"Right", vkRight},

	"enter":     {"Return", vkReturn},
	"return":    {"Return", vkReturn},
	"tab":       {"Tab", vkTab},
	"space":     {"space", vkSpace},
	"backspace": {"BackSpace", vkBack},
	"escape":    {"Escape", vkEscape},
	"esc":       {"Escape", vkEscape},
	"delete":    {"Delete", vkDelete},
	"del":       {"Delete", vkDelete},
	"insert":    {"Insert", vkInsert},
	"home":      {"Home", vkHome},
	"end":       {"End", vkEnd},
	"pageup":    {"Page_Up", vkPageUp},
	"pagedown":  {"Page_Down", vkPageDown},

	"minus":         {"minus", vkOemMinus},
	"equal":         {"equal", vkOemPlus},
	"bracketleft":   {"bracketleft", vkOem4},
	"bracketright":  {"bracketright", vkOem6},
	"semicolon":     {"semicolon", vkOem1},
	"quote":         {"apostrophe", vkOem7},
	"comma":         {"comma", vkOemComma},
	"period":        {"period", vkOemPeriod},
	"slash":         {"slash", vkOem2},
	"backslash":     {"backslash", vkOem5},
	"grave":         {"grave", vkOem3},

	"volumeup":   {"XF86AudioRaiseVolume", vkVolUp},
	"volumedown": {"XF86AudioLowerVolume", vkVolDown},
	"volumemute": {"XF86AudioMute", vkVolMute},
}

func init() {
	for c := 'a'; c <= 'z'; c++ {
		name := string(c)
		keyAlphabet[name] = keySpec{xdotool: name, vk: uint16('A' + (c - 'a'))}
	}
	for c := '0'; c <= '9'; c++ {
		name := string(c)
		keyAlphabet[name] = keySpec{xdotool: name, vk: uint16(c)}
	}
	for n := 1; n <= 24; n++ {
		name := "f" + itoa(n)
		// VK_F1 is 0x70; F13-F24 continue contiguously from 0x7C.
		var vk uint16
		if n <= 12 {
			vk = uint16(0x70 + (n - 1))
		} else {
			vk = uint16(0x7C + (n - 13))
		}
		keyAlphabet[name] = keySpec{xdotool: "F" + itoa(n), vk: vk}
	}
}

func itoa(n int) string {
	if n == 0 {
		return "0"
	}
	var buf [4]byte
	i := len(buf)
	for n > 0 {
		i--
		buf[i] = byte('0' + n%10)
		n /= 10
	}
	return string(buf[i:])
}

// lookupKey resolves a symbolic key name, case-insensitively, against the
// documented alphabet.
func lookupKey(name string) (keySpec, bool) {
	spec, ok := keyAlphabet[strings.ToLower(name)]
	return spec, ok
}
