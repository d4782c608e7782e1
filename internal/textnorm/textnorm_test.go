// Package textnorm_test tests the best-effort text normalization pipeline.
package textnorm_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/book-expert/nao-bridge/internal/textnorm"
)

// "안녕" (annyeong) encoded as CP949; not valid UTF-8.
var cp949Annyeong = []byte{0xBE, 0xC8, 0xB3, 0xE7}

func newCP949Normalizer(t *testing.T) *textnorm.Normalizer {
	t.Helper()

	normalizer, err := textnorm.New("cp949")
	require.NoError(t, err)

	return normalizer
}

func TestNormalizeUTF8Passthrough(t *testing.T) {
	t.Parallel()

	normalizer := newCP949Normalizer(t)

	assert.Equal(t, "hello", normalizer.Normalize([]byte("  hello \n")))
	assert.Equal(t, "안녕하세요", normalizer.Normalize([]byte("\t안녕하세요  ")))
}

func TestNormalizeCP949Fallback(t *testing.T) {
	t.Parallel()

	normalizer := newCP949Normalizer(t)

	assert.Equal(t, "안녕", normalizer.Normalize(cp949Annyeong))
}

func TestNormalizeDropsUndecodableBytes(t *testing.T) {
	t.Parallel()

	normalizer := newCP949Normalizer(t)

	// 0xFF is not a valid CP949 lead byte; it decodes to a replacement
	// marker, which normalization drops.
	got := normalizer.Normalize([]byte("ab\xffcd"))
	assert.Equal(t, "abcd", got)

	// A dangling lead byte at end of input is dropped the same way.
	assert.Equal(t, "ab", normalizer.Normalize([]byte("ab\xbe")))
}

func TestNormalizeNeverFails(t *testing.T) {
	t.Parallel()

	normalizer := newCP949Normalizer(t)

	inputs := [][]byte{
		nil,
		{},
		{0xFF},
		{0xFF, 0xFE, 0xFD},
		[]byte("   "),
	}

	for _, input := range inputs {
		assert.NotPanics(t, func() {
			_ = normalizer.Normalize(input)
		})
	}

	assert.Empty(t, normalizer.Normalize([]byte("   ")))
}

func TestNewUnknownCharset(t *testing.T) {
	t.Parallel()

	_, err := textnorm.New("definitely-not-a-charset")
	require.ErrorIs(t, err, textnorm.ErrUnknownCharset)
}

func TestNewIANACharset(t *testing.T) {
	t.Parallel()

	normalizer, err := textnorm.New("Shift_JIS")
	require.NoError(t, err)
	assert.Equal(t, "Shift_JIS", normalizer.Charset())
}
