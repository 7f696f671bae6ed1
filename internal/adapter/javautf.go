package adapter

import (
	"fmt"
	"unicode/utf16"
)

// Legacy mutation tables store strings the way a JVM data stream does: a
// 2-byte length followed by "modified UTF-8" bytes, where NUL is encoded
// as the two-byte sequence 0xC0 0x80 and supplementary characters are
// encoded as a surrogate pair of two 3-byte sequences.

func encodeJavaUTF(s string) ([]byte, error) {
	var buf []byte
	for _, r := range s {
		switch {
		case r == 0:
			buf = append(buf, 0xc0, 0x80)
		case r < 0x80:
			buf = append(buf, byte(r))
		case r < 0x800:
			buf = append(buf, 0xc0|byte(r>>6), 0x80|byte(r&0x3f))
		case r <= 0xffff:
			buf = append(buf, 0xe0|byte(r>>12), 0x80|byte((r>>6)&0x3f), 0x80|byte(r&0x3f))
		default:
			hi, lo := utf16.EncodeRune(r)
			for _, u := range []rune{hi, lo} {
				buf = append(buf, 0xe0|byte(u>>12), 0x80|byte((u>>6)&0x3f), 0x80|byte(u&0x3f))
			}
		}
	}
	if len(buf) > 0xffff {
		return nil, fmt.Errorf("string of %d encoded bytes exceeds 16-bit length prefix", len(buf))
	}
	out := make([]byte, 0, len(buf)+2)
	out = append(out, byte(len(buf)>>8), byte(len(buf)))
	return append(out, buf...), nil
}

func decodeJavaUTF(data []byte) (string, error) {
	var units []uint16
	for i := 0; i < len(data); {
		b := data[i]
		switch {
		case b < 0x80:
			units = append(units, uint16(b))
			i++
		case b&0xe0 == 0xc0:
			if i+2 > len(data) || data[i+1]&0xc0 != 0x80 {
				return "", fmt.Errorf("%w: bad UTF sequence at %d", ErrFormat, i)
			}
			units = append(units, uint16(b&0x1f)<<6|uint16(data[i+1]&0x3f))
			i += 2
		case b&0xf0 == 0xe0:
			if i+3 > len(data) || data[i+1]&0xc0 != 0x80 || data[i+2]&0xc0 != 0x80 {
				return "", fmt.Errorf("%w: bad UTF sequence at %d", ErrFormat, i)
			}
			units = append(units,
				uint16(b&0x0f)<<12|uint16(data[i+1]&0x3f)<<6|uint16(data[i+2]&0x3f))
			i += 3
		default:
			return "", fmt.Errorf("%w: bad UTF byte 0x%02x at %d", ErrFormat, b, i)
		}
	}
	return string(utf16.Decode(units)), nil
}
