package card

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestUnitConvert(t *testing.T) {
	const n = 5*1024*1024 + 1023

	assert.Equal(t, uint64(n), Bytes.Convert(n))
	assert.Equal(t, uint64(5*1024), Kilobytes.Convert(n))
	assert.Equal(t, uint64(5), Megabytes.Convert(n))
}

func TestParseUnit(t *testing.T) {
	for in, want := range map[string]Unit{
		"":      Bytes,
		"b":     Bytes,
		"KB":    Kilobytes,
		" mb ":  Megabytes,
		"bytes": Bytes,
	} {
		got, err := ParseUnit(in)
		require.NoError(t, err, in)
		assert.Equal(t, want, got, in)
	}

	_, err := ParseUnit("GB")
	assert.Error(t, err)
}
