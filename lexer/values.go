package lexer

import (
	"strconv"

	"github.com/vsop-lang/vsopc/token"
)

func extractBase10(lexeme string) token.Value {
	n, _ := strconv.ParseInt(lexeme, 10, 64)
	return token.Value{Str: lexeme, Num: int32(n)}
}

func extractBase16(lexeme string) token.Value {
	n, _ := strconv.ParseInt(lexeme[2:], 16, 64)
	return token.Value{Str: lexeme, Num: int32(n)}
}

const hexDigits = "0123456789abcdef"

// charToHex renders a byte as the canonical lowercase \xHH escape.
func charToHex(c byte) string {
	return string([]byte{'\\', 'x', hexDigits[c>>4], hexDigits[c&0xf]})
}

// extractString re-serialises a string-literal lexeme (quotes included)
// into the canonical form: escapes resolved to bytes, line-continuations
// elided, and any non-printable byte (or a literal quote/backslash)
// re-encoded as \xHH. Mirrors lexer.cpp's string_value exactly, and is
// idempotent under re-application (spec.md §8, property 3) since its
// output contains only printable ASCII plus \xHH escapes of non-printables.
func extractString(lexeme string) token.Value {
	body := lexeme[1 : len(lexeme)-1] // strip the surrounding quotes
	var out []byte

	i := 0
	for i < len(body) {
		c := body[i]

		if c == '\\' {
			i++
			if i >= len(body) {
				break
			}
			switch body[i] {
			case 'b':
				out = appendCanonical(out, '\b')
				i++
			case 't':
				out = appendCanonical(out, '\t')
				i++
			case 'n':
				out = appendCanonical(out, '\n')
				i++
			case 'r':
				out = appendCanonical(out, '\r')
				i++
			case '"':
				out = appendCanonical(out, '"')
				i++
			case '\\':
				out = appendCanonical(out, '\\')
				i++
			case 'x':
				if i+2 < len(body) {
					n, err := strconv.ParseUint(body[i+1:i+3], 16, 8)
					if err == nil {
						out = appendCanonical(out, byte(n))
						i += 3
						continue
					}
				}
				i++
			case '\n':
				i++ // line continuation: elide the LF and any following spaces/tabs
				for i < len(body) && (body[i] == ' ' || body[i] == '\t') {
					i++
				}
			default:
				i++
			}
			continue
		}

		out = appendCanonical(out, c)
		i++
	}

	return token.Value{Str: string(out)}
}

// appendCanonical appends c in canonical form: a raw printable byte, except
// `"` and `\` are always re-encoded as \x22/\x5c, so every path that can
// produce those bytes keeps the canonical form's quoting invariant (a
// canonical value never itself contains a raw quote or backslash).
func appendCanonical(out []byte, c byte) []byte {
	if c >= 32 && c <= 126 && c != '"' && c != '\\' {
		return append(out, c)
	}
	return append(out, charToHex(c)...)
}
