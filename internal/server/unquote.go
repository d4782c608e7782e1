package server

import (
	"bytes"
	"errors"
	"strconv"
	"unicode/utf16"
	"unicode/utf8"
)

// Static errors.
var (
	errNotQuoted  = errors.New("value is not a JSON string")
	errBadEscape  = errors.New("invalid escape sequence in JSON string")
	errBadUnicode = errors.New("invalid \\u escape in JSON string")
)

const (
	hexDigits      = 4
	surrogatePair  = 6 // \uXXXX
	unicodeEscape  = 'u'
	escapeRune     = '\\'
	quoteRune      = '"'
	highSurrStart  = 0xD800
	lowSurrStart   = 0xDC00
	surrogatesEnd  = 0xE000
	replacementHex = 0xFFFD
)

// unquoteJSONString decodes a JSON string token into its raw bytes.
//
// Unlike encoding/json it performs no UTF-8 validation on unescaped bytes:
// a client posting legacy-encoded (for example CP949) text must have those
// bytes delivered to the normalizer untouched, not replaced with U+FFFD.
// The token has already passed the JSON syntax check, so escape errors here
// indicate a corrupted value.
func unquoteJSONString(raw []byte) ([]byte, error) {
	if len(raw) < 2 || raw[0] != quoteRune || raw[len(raw)-1] != quoteRune {
		return nil, errNotQuoted
	}

	body := raw[1 : len(raw)-1]
	if !bytes.ContainsRune(body, escapeRune) {
		return body, nil
	}

	out := make([]byte, 0, len(body))

	for index := 0; index < len(body); index++ {
		char := body[index]
		if char != escapeRune {
			out = append(out, char)

			continue
		}

		index++
		if index >= len(body) {
			return nil, errBadEscape
		}

		switch body[index] {
		case quoteRune, escapeRune, '/':
			out = append(out, body[index])
		case 'b':
			out = append(out, '\b')
		case 'f':
			out = append(out, '\f')
		case 'n':
			out = append(out, '\n')
		case 'r':
			out = append(out, '\r')
		case 't':
			out = append(out, '\t')
		case unicodeEscape:
			decoded, consumed, err := decodeUnicodeEscape(body[index-1:])
			if err != nil {
				return nil, err
			}

			out = utf8.AppendRune(out, decoded)
			index += consumed - 1
		default:
			return nil, errBadEscape
		}
	}

	return out, nil
}

// decodeUnicodeEscape decodes a \uXXXX sequence (or a surrogate pair of
// two such sequences) starting at the backslash. It returns the rune and
// how many bytes after the leading "\u" were consumed.
func decodeUnicodeEscape(body []byte) (rune, int, error) {
	value, err := parseHex4(body, 2)
	if err != nil {
		return 0, 0, err
	}

	consumed := 1 + hexDigits // 'u' plus four hex digits

	if value < highSurrStart || value >= surrogatesEnd {
		return rune(value), consumed, nil
	}

	if value >= lowSurrStart {
		// Unpaired low surrogate; degrade like the stdlib does.
		return replacementHex, consumed, nil
	}

	// High surrogate: require an immediately following \uXXXX low half.
	next := 2 + hexDigits
	if len(body) < next+surrogatePair || body[next] != escapeRune || body[next+1] != unicodeEscape {
		return replacementHex, consumed, nil
	}

	low, err := parseHex4(body, next+2)
	if err != nil {
		return 0, 0, err
	}

	combined := utf16.DecodeRune(rune(value), rune(low))
	if combined == utf8.RuneError {
		return replacementHex, consumed, nil
	}

	return combined, consumed + surrogatePair, nil
}

func parseHex4(body []byte, offset int) (int64, error) {
	if len(body) < offset+hexDigits {
		return 0, errBadUnicode
	}

	value, err := strconv.ParseInt(string(body[offset:offset+hexDigits]), 16, 32)
	if err != nil {
		return 0, errBadUnicode
	}

	return value, nil
}
