package format

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestShortAddress(t *testing.T) {
	assert.Equal(t, "0x1234…abcd", ShortAddress("0x1234567890abcdef1234567890abcdef1234abcd"))
	assert.Equal(t, "0x1234", ShortAddress("0x1234"))
	assert.Equal(t, "hello-world-address", ShortAddress("hello-world-address"))
	assert.Equal(t, "", ShortAddress(""))
}

func TestAmount(t *testing.T) {
	assert.Equal(t, "1", Amount("1000000000000000000", 18))
	assert.Equal(t, "1.5", Amount("1500000", 6))
	assert.Equal(t, "0.000001", Amount("1", 6))
	assert.Equal(t, "42", Amount("42", 0))
	assert.Equal(t, "12abc", Amount("12abc", 18))
}

func TestOptionalAndTime(t *testing.T) {
	h := "0xabc"
	assert.Equal(t, "0xabc", OptionalHash(&h))
	assert.Equal(t, "-", OptionalHash(nil))
	assert.Equal(t, "-", Time(time.Time{}))

	s := 12.3456
	assert.Equal(t, "12.35", Score(&s))
	assert.Equal(t, "-", Score(nil))
}
