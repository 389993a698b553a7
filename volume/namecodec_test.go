package volume

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestFormatShortName_DotAndDotDot(t *testing.T) {
	assert.Equal(t, [11]byte{'.', ' ', ' ', ' ', ' ', ' ', ' ', ' ', ' ', ' ', ' '}, formatShortName("."))
	assert.Equal(t, [11]byte{'.', '.', ' ', ' ', ' ', ' ', ' ', ' ', ' ', ' ', ' '}, formatShortName(".."))
}

func TestFormatShortName_StemAndExtension(t *testing.T) {
	got := formatShortName("readme.txt")
	assert.Equal(t, "README  TXT", string(got[:]))
}

func TestFormatShortName_Uppercases(t *testing.T) {
	got := formatShortName("hello.c")
	assert.Equal(t, "HELLO   C  ", string(got[:]))
}

func TestFormatShortName_TruncatesLongComponents(t *testing.T) {
	got := formatShortName("verylongname.extra")
	assert.Equal(t, "VERYLONGEXT", string(got[:]))
}

func TestParseShortName_RoundTrip(t *testing.T) {
	for _, name := range []string{".", "..", "README.TXT", "NOEXT", "A.B"} {
		raw := formatShortName(name)
		assert.Equal(t, name, parseShortName(raw))
	}
}

func TestParseShortName_NoExtension(t *testing.T) {
	raw := formatShortName("NOEXT")
	assert.Equal(t, "NOEXT", parseShortName(raw))
}

func TestToUpperASCII_LeavesNonLettersAlone(t *testing.T) {
	assert.Equal(t, byte('~'), toUpperASCII('~'))
	assert.Equal(t, byte('1'), toUpperASCII('1'))
}
