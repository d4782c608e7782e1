// Package textnorm normalizes untrusted request text into a canonical UTF-8
// string before it is handed to the speech backend.
//
// The contract is best-effort and total: input is tried as UTF-8 first and
// decoded with a legacy fallback codec otherwise, dropping undecodable
// bytes. Normalize never fails. The package is pure and independent of the
// transport layer.
package textnorm

import (
	"errors"
	"fmt"
	"strings"
	"unicode/utf8"

	"golang.org/x/text/encoding"
	"golang.org/x/text/encoding/ianaindex"
	"golang.org/x/text/encoding/korean"
)

// ErrUnknownCharset indicates the configured fallback codec name could not
// be resolved.
var ErrUnknownCharset = errors.New("unknown fallback charset")

// Normalizer converts arbitrary text payloads (decoded or raw-byte) into a
// stripped UTF-8 string. Construct once at startup; safe for concurrent use.
type Normalizer struct {
	fallback encoding.Encoding
	charset  string
}

// New resolves the fallback codec by name. The historical deployment codec
// is cp949; any IANA-registered charset name is accepted.
func New(charset string) (*Normalizer, error) {
	enc, err := resolveCharset(charset)
	if err != nil {
		return nil, err
	}

	return &Normalizer{
		fallback: enc,
		charset:  charset,
	}, nil
}

// Charset reports the configured fallback codec name.
func (n *Normalizer) Charset() string {
	return n.charset
}

// Normalize converts raw into a stripped UTF-8 string. Valid UTF-8 input is
// recovered exactly (modulo the strip); anything else is decoded with the
// fallback codec, dropping bytes the codec cannot represent. Never fails.
func (n *Normalizer) Normalize(raw []byte) string {
	if utf8.Valid(raw) {
		return strings.TrimSpace(string(raw))
	}

	// Decoders carry transform state, so each call gets a fresh one.
	decoded, err := n.fallback.NewDecoder().Bytes(raw)
	if err != nil {
		// x/text decoders substitute rather than fail; this branch is
		// unreachable for the shipped codecs, but the contract holds
		// either way: degrade to dropping what could not be decoded.
		decoded = []byte{}
	}

	return strings.TrimSpace(dropReplacementRunes(string(decoded)))
}

// dropReplacementRunes removes the U+FFFD markers the decoder substitutes
// for undecodable byte sequences.
func dropReplacementRunes(s string) string {
	if !strings.ContainsRune(s, utf8.RuneError) {
		return s
	}

	return strings.Map(func(r rune) rune {
		if r == utf8.RuneError {
			return -1
		}

		return r
	}, s)
}

func resolveCharset(name string) (encoding.Encoding, error) {
	// cp949 is the EUC-KR superset Windows codec; the IANA index does not
	// list it under that alias.
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "cp949", "windows-949", "euc-kr", "uhc":
		return korean.EUCKR, nil
	}

	enc, err := ianaindex.IANA.Encoding(name)
	if err != nil || enc == nil {
		return nil, fmt.Errorf("%w: %q", ErrUnknownCharset, name)
	}

	return enc, nil
}
