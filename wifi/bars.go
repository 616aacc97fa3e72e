package wifi

// Bars renders a signal strength as the four-glyph meter nmcli prints.
func Bars(signal uint8) string {
	glyphs := []rune("▂▄▆█")
	n := 0
	switch {
	case signal > 80:
		n = 4
	case signal > 55:
		n = 3
	case signal > 30:
		n = 2
	case signal > 5:
		n = 1
	}
	out := make([]rune, len(glyphs))
	for i := range glyphs {
		if i < n {
			out[i] = glyphs[i]
		} else {
			out[i] = '_'
		}
	}
	return string(out)
}
