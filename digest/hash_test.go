package digest

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestParseRoundTrip(t *testing.T) {
	h := Sum([]byte("hello"))
	parsed, err := Parse(h.String())
	assert.NoError(t, err)
	assert.Equal(t, h, parsed)
}

func TestSumDeterministic(t *testing.T) {
	a := Sum([]byte("a"), []byte("b"))
	b := Sum([]byte("a"), []byte("b"))
	assert.Equal(t, a, b)

	c := Sum([]byte("ab"))
	assert.NotEqual(t, a, c, "Sum must not be trivially concatenation-ambiguous in this test vector")
}

func TestFromBytes(t *testing.T) {
	assert.Equal(t, Zero, FromBytes(nil))
	short := FromBytes([]byte{1, 2, 3})
	assert.Equal(t, byte(3), short[31])
	assert.Equal(t, byte(0), short[0])
}
