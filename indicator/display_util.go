package indicator

import "errors"

// ErrScreenNotCompiled is returned when screen support was not compiled in.
var ErrScreenNotCompiled = errors.New("screen support not compiled in (build with -tags=screen)")

const defaultFramebuffer = "/dev/fb0"

// maxTitleRunes bounds the title shown on the display.
const maxTitleRunes = 24

// rgb565 packs 16-bit-per-channel color into a 16 bpp framebuffer pixel.
func rgb565(r, g, b uint32) uint16 {
	return uint16(r>>11)<<11 | uint16(g>>10)<<5 | uint16(b>>11)
}

// fitText shortens s to at most max runes, marking the cut with an ellipsis.
func fitText(s string, max int) string {
	runes := []rune(s)
	if len(runes) <= max {
		return s
	}
	if max <= 1 {
		return string(runes[:max])
	}
	return string(runes[:max-1]) + "…"
}
