package tokenx

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCharCounterRoundsUp(t *testing.T) {
	c := CharCounter{CharsPerToken: 4}

	assert.Equal(t, 0, c.Count(""))
	assert.Equal(t, 1, c.Count("a"))
	assert.Equal(t, 1, c.Count("abcd"))
	assert.Equal(t, 2, c.Count("abcde"))
	assert.Equal(t, 25, c.Count(strings.Repeat("x", 100)))
}

func TestCharCounterDefaultRatio(t *testing.T) {
	var c CharCounter

	assert.Equal(t, 1, c.Count("abcd"))
	assert.Equal(t, 2, c.Count("abcdefgh"))
}

func TestTiktokenCounter(t *testing.T) {
	counter, err := NewTiktokenCounter(DefaultEncoding)
	require.NoError(t, err)

	assert.Equal(t, 0, counter.Count(""))
	assert.Greater(t, counter.Count("hello world"), 0)

	// longer text costs more tokens
	short := counter.Count("hello")
	long := counter.Count(strings.Repeat("hello world ", 50))
	assert.Greater(t, long, short)
}

func TestTiktokenCounterForModel(t *testing.T) {
	counter, err := NewTiktokenCounterForModel("gpt-4")
	require.NoError(t, err)
	assert.Greater(t, counter.Count("hello world"), 0)
}
