package tickets

import "strings"

const hexDigits = "0123456789abcdef"

type jsonMember struct {
	key   string
	value string
}

// writeJSONObject renders string members in the given order with JSON.stringify's
// escaping, so signatures computed by the storefront and here agree byte for byte.
func writeJSONObject(members []jsonMember) string {
	var b strings.Builder
	b.WriteByte('{')
	for i, m := range members {
		if i > 0 {
			b.WriteByte(',')
		}
		writeJSONString(&b, m.key)
		b.WriteByte(':')
		writeJSONString(&b, m.value)
	}
	b.WriteByte('}')
	return b.String()
}

// writeJSONString escapes only the quote, the backslash and C0 controls.
// U+2028, U+2029 and HTML characters are written raw. Invalid UTF-8 becomes U+FFFD,
// the same substitution the checksum applies when it walks UTF-16 units.
func writeJSONString(b *strings.Builder, s string) {
	b.WriteByte('"')
	for _, r := range s {
		switch r {
		case '"':
			b.WriteString(`\"`)
		case '\\':
			b.WriteString(`\\`)
		case '\b':
			b.WriteString(`\b`)
		case '\f':
			b.WriteString(`\f`)
		case '\n':
			b.WriteString(`\n`)
		case '\r':
			b.WriteString(`\r`)
		case '\t':
			b.WriteString(`\t`)
		default:
			if r < 0x20 {
				b.WriteString(`\u00`)
				b.WriteByte(hexDigits[r>>4])
				b.WriteByte(hexDigits[r&0xf])
				continue
			}
			b.WriteRune(r)
		}
	}
	b.WriteByte('"')
}
