package conv

const hexd = "0123456789ABCDEF"

// AppendHex8 appends b as two uppercase hex digits.
func AppendHex8(dst []byte, b byte) []byte {
	return append(dst, hexd[b>>4], hexd[b&0x0F])
}

// AppendHex16 appends n as four uppercase hex digits.
func AppendHex16(dst []byte, n uint16) []byte {
	return AppendHex8(AppendHex8(dst, byte(n>>8)), byte(n))
}

// AppendHexDump appends a canonical dump of data, 16 bytes per line, with
// addresses starting at base:
//
//	0010  48 65 6C 6C 6F                                   |Hello|
func AppendHexDump(dst []byte, base uint16, data []byte) []byte {
	for off := 0; off < len(data); off += 16 {
		end := off + 16
		if end > len(data) {
			end = len(data)
		}
		line := data[off:end]
		dst = AppendHex16(dst, base+uint16(off))
		dst = append(dst, ' ', ' ')
		for i := 0; i < 16; i++ {
			if i < len(line) {
				dst = AppendHex8(dst, line[i])
			} else {
				dst = append(dst, ' ', ' ')
			}
			dst = append(dst, ' ')
		}
		dst = append(dst, ' ', '|')
		for _, b := range line {
			if b < 0x20 || b > 0x7E {
				b = '.'
			}
			dst = append(dst, b)
		}
		dst = append(dst, '|', '\n')
	}
	return dst
}
